package workspace

import (
	"fmt"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/obfpkg/internal/logfields"
)

// DefaultPrefix names the scoped working directories of the main pipeline.
const DefaultPrefix = "obf-pkg-"

// Manager handles one scoped working directory. Create acquires it and
// Cleanup releases it; callers pair them with defer.
type Manager struct {
	baseDir string
	prefix  string
	tempDir string
	keep    bool // If true, Cleanup leaves the directory for inspection
}

// Option configures a Manager.
type Option func(*Manager)

// WithPrefix overrides DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(m *Manager) { m.prefix = prefix }
}

// WithKeep makes Cleanup a no-op so the workspace survives the run.
func WithKeep(keep bool) Option {
	return func(m *Manager) { m.keep = keep }
}

// NewManager creates a workspace manager rooted at baseDir (os.TempDir when empty).
func NewManager(baseDir string, opts ...Option) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	m := &Manager{baseDir: baseDir, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create creates a uniquely named workspace directory below the base directory.
func (m *Manager) Create() error {
	if m.tempDir != "" {
		return fmt.Errorf("workspace already created: %s", m.tempDir)
	}
	tempDir, err := os.MkdirTemp(m.baseDir, m.prefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}

	m.tempDir = tempDir
	slog.Info("Created workspace", logfields.Path(tempDir))
	return nil
}

// GetPath returns the path to the workspace directory
func (m *Manager) GetPath() string {
	return m.tempDir
}

// Cleanup removes the workspace directory. It is safe to call more than
// once and before Create.
func (m *Manager) Cleanup() error {
	if m.tempDir == "" {
		return nil
	}

	if m.keep {
		slog.Info("Keeping workspace", logfields.Path(m.tempDir))
		return nil
	}

	if err := os.RemoveAll(m.tempDir); err != nil {
		return fmt.Errorf("failed to cleanup workspace: %w", err)
	}

	slog.Debug("Cleaned up workspace", logfields.Path(m.tempDir))
	m.tempDir = ""
	return nil
}

// With acquires a workspace, runs fn inside it and releases the workspace
// on every exit path, including panics and errors returned by fn. A failed
// cleanup is logged and does not change fn's result.
func With(m *Manager, fn func(dir string) error) error {
	if err := m.Create(); err != nil {
		return err
	}
	defer func() {
		if err := m.Cleanup(); err != nil {
			slog.Warn("Workspace cleanup failed", logfields.Error(err))
		}
	}()
	return fn(m.GetPath())
}
