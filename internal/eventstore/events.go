package eventstore

import (
	"encoding/json"
	"time"

	"git.home.luguber.info/inful/obfpkg/internal/errors"
)

// Event type names as stored in the build_events table.
const (
	TypeBuildStarted      = "BuildStarted"
	TypeStageCompleted    = "StageCompleted"
	TypeStubsGenerated    = "StubsGenerated"
	TypeArtifactsProduced = "ArtifactsProduced"
	TypeBuildCompleted    = "BuildCompleted"
	TypeBuildFailed       = "BuildFailed"
)

func newBaseEvent(buildID, eventType string, payload any) (BaseEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return BaseEvent{}, errors.WrapError(err, errors.CategoryEventStore, "failed to marshal "+eventType+" payload").
			WithContext("build_id", buildID).
			Build()
	}
	return BaseEvent{
		EventBuildID:   buildID,
		EventType:      eventType,
		EventTimestamp: time.Now(),
		EventPayload:   data,
	}, nil
}

// BuildStarted is emitted when the pipeline begins.
type BuildStarted struct {
	BaseEvent
	Source  string `json:"source"`
	Output  string `json:"output"`
	Package string `json:"package"`
	Version string `json:"version,omitempty"`
}

// NewBuildStarted creates a BuildStarted event.
func NewBuildStarted(buildID, source, output, pkg, version string) (*BuildStarted, error) {
	e := &BuildStarted{Source: source, Output: output, Package: pkg, Version: version}
	base, err := newBaseEvent(buildID, TypeBuildStarted, e)
	if err != nil {
		return nil, err
	}
	e.BaseEvent = base
	return e, nil
}

// StageCompleted is emitted after every pipeline stage, successful or not.
type StageCompleted struct {
	BaseEvent
	Stage      string `json:"stage"`
	Result     string `json:"result"`
	DurationMS int64  `json:"duration_ms"`
}

// NewStageCompleted creates a StageCompleted event.
func NewStageCompleted(buildID, stage, result string, duration time.Duration) (*StageCompleted, error) {
	e := &StageCompleted{Stage: stage, Result: result, DurationMS: duration.Milliseconds()}
	base, err := newBaseEvent(buildID, TypeStageCompleted, e)
	if err != nil {
		return nil, err
	}
	e.BaseEvent = base
	return e, nil
}

// StubsGenerated is emitted when the stubs directory has been produced.
type StubsGenerated struct {
	BaseEvent
	Dir         string `json:"dir"`
	Overlaid    bool   `json:"overlaid"`
	RenameTries int    `json:"rename_tries"`
}

// NewStubsGenerated creates a StubsGenerated event.
func NewStubsGenerated(buildID, dir string, overlaid bool, renameTries int) (*StubsGenerated, error) {
	e := &StubsGenerated{Dir: dir, Overlaid: overlaid, RenameTries: renameTries}
	base, err := newBaseEvent(buildID, TypeStubsGenerated, e)
	if err != nil {
		return nil, err
	}
	e.BaseEvent = base
	return e, nil
}

// ArtifactsProduced is emitted once distribution files land in the output directory.
type ArtifactsProduced struct {
	BaseEvent
	OutputDir string   `json:"output_dir"`
	Files     []string `json:"files"`
}

// NewArtifactsProduced creates an ArtifactsProduced event.
func NewArtifactsProduced(buildID, outputDir string, files []string) (*ArtifactsProduced, error) {
	e := &ArtifactsProduced{OutputDir: outputDir, Files: files}
	base, err := newBaseEvent(buildID, TypeArtifactsProduced, e)
	if err != nil {
		return nil, err
	}
	e.BaseEvent = base
	return e, nil
}

// BuildCompleted is emitted when the pipeline finishes without error.
type BuildCompleted struct {
	BaseEvent
	DurationMS int64 `json:"duration_ms"`
}

// NewBuildCompleted creates a BuildCompleted event.
func NewBuildCompleted(buildID string, duration time.Duration) (*BuildCompleted, error) {
	e := &BuildCompleted{DurationMS: duration.Milliseconds()}
	base, err := newBaseEvent(buildID, TypeBuildCompleted, e)
	if err != nil {
		return nil, err
	}
	e.BaseEvent = base
	return e, nil
}

// BuildFailed is emitted when a stage aborts the pipeline.
type BuildFailed struct {
	BaseEvent
	Stage string `json:"stage"`
	Error string `json:"error"`
}

// NewBuildFailed creates a BuildFailed event.
func NewBuildFailed(buildID, stage, errMsg string) (*BuildFailed, error) {
	e := &BuildFailed{Stage: stage, Error: errMsg}
	base, err := newBaseEvent(buildID, TypeBuildFailed, e)
	if err != nil {
		return nil, err
	}
	e.BaseEvent = base
	return e, nil
}
