package eventstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/obfpkg/internal/errors"
)

func appendAll(t *testing.T, store Store, events ...Event) {
	t.Helper()
	for _, e := range events {
		require.NoError(t, AppendEvent(t.Context(), store, e))
	}
}

func must[T Event](t *testing.T) func(T, error) T {
	return func(e T, err error) T {
		t.Helper()
		require.NoError(t, err)
		return e
	}
}

func TestBuildHistoryProjection_Rebuild(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	appendAll(t, store,
		must[*BuildStarted](t)(NewBuildStarted("ok", "/src/proj", "/src/dist", "mypkg", "1.2.0")),
		must[*StageCompleted](t)(NewStageCompleted("ok", "generate_stubs", "success", 40*time.Millisecond)),
		must[*StubsGenerated](t)(NewStubsGenerated("ok", "/tmp/obf/mypkg-stubs", true, 1)),
		must[*ArtifactsProduced](t)(NewArtifactsProduced("ok", "/src/dist", []string{"mypkg-1.2.0.tar.gz"})),
		must[*BuildCompleted](t)(NewBuildCompleted("ok", time.Second)),
		must[*BuildStarted](t)(NewBuildStarted("bad", "/src/proj", "/src/dist", "mypkg", "")),
		must[*BuildFailed](t)(NewBuildFailed("bad", "obfuscate", "pyarmor exited with code 1")),
	)

	proj := NewBuildHistoryProjection(store, 10)
	require.NoError(t, proj.Rebuild(t.Context()))

	history := proj.GetHistory()
	require.Len(t, history, 2)
	assert.Equal(t, "bad", history[0].BuildID, "newest first")

	ok, found := proj.GetBuild("ok")
	require.True(t, found)
	assert.Equal(t, buildStatusCompleted, ok.Status)
	assert.Equal(t, "mypkg", ok.Package)
	assert.Equal(t, "1.2.0", ok.Version)
	assert.Equal(t, "/tmp/obf/mypkg-stubs", ok.StubsDir)
	assert.Equal(t, []string{"mypkg-1.2.0.tar.gz"}, ok.Artifacts)
	require.Len(t, ok.Stages, 1)
	assert.Equal(t, 40*time.Millisecond, ok.Stages[0].Duration)
	assert.NotNil(t, ok.CompletedAt)

	last, found := proj.GetBuild("bad")
	require.True(t, found)
	assert.Equal(t, buildStatusFailed, last.Status)
	assert.Equal(t, "obfuscate", last.ErrorStage)
	assert.Equal(t, "pyarmor exited with code 1", last.ErrorMessage)
}

func TestBuildHistoryProjection_MaxSize(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	for _, id := range []string{"b1", "b2", "b3"} {
		appendAll(t, store,
			must[*BuildStarted](t)(NewBuildStarted(id, "/src", "/dist", "pkg", "")),
			must[*BuildCompleted](t)(NewBuildCompleted(id, time.Millisecond)),
		)
	}

	proj := NewBuildHistoryProjection(store, 2)
	require.NoError(t, proj.Rebuild(t.Context()))

	history := proj.GetHistory()
	require.Len(t, history, 2)
	assert.Equal(t, "b3", history[0].BuildID)
	assert.Equal(t, "b2", history[1].BuildID)
}

func TestBuildHistoryProjection_ApplyRunning(t *testing.T) {
	proj := NewBuildHistoryProjection(nil, 0)
	proj.Apply(must[*BuildStarted](t)(NewBuildStarted("live", "/src", "/dist", "pkg", "")))

	summary, found := proj.GetBuild("live")
	require.True(t, found)
	assert.Equal(t, buildStatusRunning, summary.Status)
	assert.Empty(t, proj.GetHistory())
}

func TestEventPayloadExcludesBaseFields(t *testing.T) {
	e := must[*BuildFailed](t)(NewBuildFailed("x", "assemble", "boom"))
	assert.JSONEq(t, `{"stage":"assemble","error":"boom"}`, string(e.Payload()))
}

func TestLoadBuild(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	for _, id := range []string{"old", "new"} {
		appendAll(t, store,
			must[*BuildStarted](t)(NewBuildStarted(id, "/src", "/dist", "pkg", "0.1.0")),
			must[*BuildCompleted](t)(NewBuildCompleted(id, time.Millisecond)),
		)
	}

	summary, found, err := LoadBuild(t.Context(), store, "old")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, buildStatusCompleted, summary.Status)
	assert.Equal(t, "0.1.0", summary.Version)

	_, found, err = LoadBuild(t.Context(), store, "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNewBaseEvent_MarshalFailureIsClassified(t *testing.T) {
	_, err := newBaseEvent("x", TypeBuildStarted, make(chan int))
	require.Error(t, err)
	assert.Equal(t, errors.CategoryEventStore, errors.GetCategory(err))

	ce, ok := errors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, "x", ce.Context()["build_id"])
}
