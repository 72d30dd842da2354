// Package eventstore records the build history of obfpkg runs in SQLite and
// projects it into per-build summaries.
package eventstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

const (
	buildStatusRunning   = "running"
	buildStatusCompleted = "completed"
	buildStatusFailed    = "failed"
)

// StageTiming is one stage result inside a BuildSummary.
type StageTiming struct {
	Stage    string        `json:"stage"`
	Result   string        `json:"result"`
	Duration time.Duration `json:"duration"`
}

// BuildSummary is a read model summarizing a completed or in-progress build.
type BuildSummary struct {
	BuildID      string        `json:"build_id"`
	Source       string        `json:"source,omitempty"`
	Output       string        `json:"output,omitempty"`
	Package      string        `json:"package,omitempty"`
	Version      string        `json:"version,omitempty"`
	Status       string        `json:"status"` // "running", "completed", "failed"
	StartedAt    time.Time     `json:"started_at"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
	Duration     time.Duration `json:"duration,omitempty"`
	Stages       []StageTiming `json:"stages,omitempty"`
	StubsDir     string        `json:"stubs_dir,omitempty"`
	Artifacts    []string      `json:"artifacts,omitempty"`
	ErrorStage   string        `json:"error_stage,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
}

// BuildHistoryProjection maintains an in-memory view of build history,
// reconstructed from events stored in the event store.
type BuildHistoryProjection struct {
	mu      sync.RWMutex
	store   Store
	builds  map[string]*BuildSummary // buildID -> summary
	history []*BuildSummary          // ordered by start time, newest first
	maxSize int
}

// NewBuildHistoryProjection creates a new projection backed by the given store.
func NewBuildHistoryProjection(store Store, maxHistorySize int) *BuildHistoryProjection {
	if maxHistorySize <= 0 {
		maxHistorySize = 20
	}
	return &BuildHistoryProjection{
		store:   store,
		builds:  make(map[string]*BuildSummary),
		history: make([]*BuildSummary, 0, maxHistorySize),
		maxSize: maxHistorySize,
	}
}

// Rebuild reconstructs the projection from all events in the store.
func (p *BuildHistoryProjection) Rebuild(ctx context.Context) error {
	events, err := p.store.GetRange(ctx, time.Unix(0, 0), time.Now().Add(time.Hour))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.builds = make(map[string]*BuildSummary)
	p.history = make([]*BuildSummary, 0, p.maxSize)
	for _, event := range events {
		p.applyEventLocked(event)
	}

	sort.SliceStable(p.history, func(i, j int) bool {
		return p.history[i].StartedAt.After(p.history[j].StartedAt)
	})
	if len(p.history) > p.maxSize {
		p.history = p.history[:p.maxSize]
	}
	return nil
}

// Apply processes a single event and updates the projection.
func (p *BuildHistoryProjection) Apply(event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyEventLocked(event)
}

func (p *BuildHistoryProjection) applyEventLocked(event Event) {
	buildID := event.BuildID()
	if buildID == "" {
		return
	}

	summary, exists := p.builds[buildID]
	if !exists {
		summary = &BuildSummary{
			BuildID:   buildID,
			Status:    buildStatusRunning,
			StartedAt: event.Timestamp(),
		}
		p.builds[buildID] = summary
	}

	switch event.Type() {
	case TypeBuildStarted:
		var payload BuildStarted
		if err := json.Unmarshal(event.Payload(), &payload); err == nil {
			summary.Source = payload.Source
			summary.Output = payload.Output
			summary.Package = payload.Package
			summary.Version = payload.Version
		}
		summary.StartedAt = event.Timestamp()

	case TypeStageCompleted:
		var payload StageCompleted
		if err := json.Unmarshal(event.Payload(), &payload); err == nil {
			summary.Stages = append(summary.Stages, StageTiming{
				Stage:    payload.Stage,
				Result:   payload.Result,
				Duration: time.Duration(payload.DurationMS) * time.Millisecond,
			})
		}

	case TypeStubsGenerated:
		var payload StubsGenerated
		if err := json.Unmarshal(event.Payload(), &payload); err == nil {
			summary.StubsDir = payload.Dir
		}

	case TypeArtifactsProduced:
		var payload ArtifactsProduced
		if err := json.Unmarshal(event.Payload(), &payload); err == nil {
			summary.Artifacts = payload.Files
		}

	case TypeBuildCompleted:
		p.finishLocked(summary, event.Timestamp(), buildStatusCompleted)

	case TypeBuildFailed:
		var payload BuildFailed
		if err := json.Unmarshal(event.Payload(), &payload); err == nil {
			summary.ErrorStage = payload.Stage
			summary.ErrorMessage = payload.Error
		}
		p.finishLocked(summary, event.Timestamp(), buildStatusFailed)
	}
}

func (p *BuildHistoryProjection) finishLocked(summary *BuildSummary, at time.Time, status string) {
	summary.CompletedAt = &at
	summary.Duration = at.Sub(summary.StartedAt)
	summary.Status = status

	for _, h := range p.history {
		if h.BuildID == summary.BuildID {
			return
		}
	}
	p.history = append([]*BuildSummary{summary}, p.history...)
	if len(p.history) > p.maxSize {
		dropped := p.history[p.maxSize:]
		p.history = p.history[:p.maxSize]
		for _, d := range dropped {
			delete(p.builds, d.BuildID)
		}
	}
}

// GetHistory returns the finished builds, newest first.
func (p *BuildHistoryProjection) GetHistory() []*BuildSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]*BuildSummary, len(p.history))
	copy(result, p.history)
	return result
}

// GetBuild returns the summary for a specific build.
func (p *BuildHistoryProjection) GetBuild(buildID string) (*BuildSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	summary, exists := p.builds[buildID]
	if !exists {
		return nil, false
	}
	cp := *summary
	return &cp, true
}

// LoadBuild replays the events of one build, regardless of how many builds
// followed it. found is false when the store has no events for buildID.
func LoadBuild(ctx context.Context, store Store, buildID string) (summary *BuildSummary, found bool, err error) {
	events, err := store.GetByBuildID(ctx, buildID)
	if err != nil {
		return nil, false, err
	}
	p := NewBuildHistoryProjection(store, 1)
	for _, e := range events {
		p.Apply(e)
	}
	summary, found = p.GetBuild(buildID)
	return summary, found, nil
}
