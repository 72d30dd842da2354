package eventstore

import (
	"bytes"
	stderrors "errors"
	"path/filepath"
	"testing"
	"time"
)

const testBuildID = "build-123"

func TestEventStoreAppendAndRetrieve(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := t.Context()
	payload := []byte(`{"test": "data"}`)
	metadata := map[string]string{"key": "value"}

	if err := store.Append(ctx, testBuildID, "TestEvent", payload, metadata); err != nil {
		t.Fatalf("failed to append event: %v", err)
	}

	events, err := store.GetByBuildID(ctx, testBuildID)
	if err != nil {
		t.Fatalf("failed to get events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	event := events[0]
	if event.BuildID() != testBuildID {
		t.Errorf("expected build_id %s, got %s", testBuildID, event.BuildID())
	}
	if event.Type() != "TestEvent" {
		t.Errorf("expected event_type TestEvent, got %s", event.Type())
	}
	if !bytes.Equal(event.Payload(), payload) {
		t.Errorf("expected payload %s, got %s", payload, event.Payload())
	}
	if event.Metadata()["key"] != "value" {
		t.Errorf("expected metadata key=value, got %v", event.Metadata())
	}
	if event.ID() == 0 {
		t.Errorf("expected a database id")
	}
}

func TestEventStoreGetRange(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := t.Context()
	before := time.Now().Add(-time.Second)
	for _, id := range []string{"a", "b", "c"} {
		if err := store.Append(ctx, id, TypeBuildStarted, []byte(`{}`), nil); err != nil {
			t.Fatalf("append %s: %v", id, err)
		}
	}
	after := time.Now().Add(time.Second)

	events, err := store.GetRange(ctx, before, after)
	if err != nil {
		t.Fatalf("GetRange: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].BuildID() != "a" || events[2].BuildID() != "c" {
		t.Errorf("events not in insertion order: %s..%s", events[0].BuildID(), events[2].BuildID())
	}

	none, err := store.GetRange(ctx, after, after.Add(time.Hour))
	if err != nil {
		t.Fatalf("GetRange: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no events in the future, got %d", len(none))
	}
}

func TestEventStorePersistsAcrossOpen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	ctx := t.Context()

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	evt, err := NewBuildCompleted(testBuildID, 2*time.Second)
	if err != nil {
		t.Fatalf("NewBuildCompleted: %v", err)
	}
	if err := AppendEvent(ctx, store, evt); err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	events, err := reopened.GetByBuildID(ctx, testBuildID)
	if err != nil {
		t.Fatalf("GetByBuildID: %v", err)
	}
	if len(events) != 1 || events[0].Type() != TypeBuildCompleted {
		t.Fatalf("expected persisted BuildCompleted, got %v", events)
	}
}

func TestNewSQLiteStore_BadPath(t *testing.T) {
	_, err := NewSQLiteStore(filepath.Join(t.TempDir(), "missing", "history.db"))
	if err == nil {
		t.Fatal("expected error for database in missing directory")
	}
	if !stderrors.Is(err, ErrDatabaseOpenFailed) {
		t.Errorf("expected ErrDatabaseOpenFailed, got %v", err)
	}
}
