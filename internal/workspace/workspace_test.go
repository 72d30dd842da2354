package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestManager_CreateAndCleanup(t *testing.T) {
	tempBase := t.TempDir()
	mgr := NewManager(tempBase)

	if err := mgr.Create(); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	wsPath := mgr.GetPath()
	if wsPath == "" {
		t.Fatal("GetPath() returned empty string")
	}
	if filepath.Dir(wsPath) != tempBase {
		t.Errorf("Expected workspace below %s, got: %s", tempBase, wsPath)
	}
	if !strings.HasPrefix(filepath.Base(wsPath), DefaultPrefix) {
		t.Errorf("Expected prefixed directory, got: %s", wsPath)
	}
	if _, err := os.Stat(wsPath); os.IsNotExist(err) {
		t.Errorf("Workspace directory does not exist: %s", wsPath)
	}

	if err := mgr.Cleanup(); err != nil {
		t.Fatalf("Cleanup() failed: %v", err)
	}
	if _, err := os.Stat(wsPath); !os.IsNotExist(err) {
		t.Errorf("Workspace directory still exists after cleanup: %s", wsPath)
	}

	// Second cleanup is a no-op
	if err := mgr.Cleanup(); err != nil {
		t.Fatalf("second Cleanup() failed: %v", err)
	}
}

func TestManager_DoubleCreate(t *testing.T) {
	mgr := NewManager(t.TempDir())
	if err := mgr.Create(); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	defer mgr.Cleanup()

	if err := mgr.Create(); err == nil {
		t.Fatal("expected error on second Create()")
	}
}

func TestManager_Keep(t *testing.T) {
	mgr := NewManager(t.TempDir(), WithKeep(true), WithPrefix("debug-"))
	if err := mgr.Create(); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	wsPath := mgr.GetPath()

	if err := mgr.Cleanup(); err != nil {
		t.Fatalf("Cleanup() failed: %v", err)
	}
	if _, err := os.Stat(wsPath); err != nil {
		t.Errorf("Kept workspace was removed: %s", wsPath)
	}
	if !strings.HasPrefix(filepath.Base(wsPath), "debug-") {
		t.Errorf("Expected custom prefix, got: %s", wsPath)
	}
}

func TestWith_RemovesOnError(t *testing.T) {
	base := t.TempDir()
	boom := errors.New("obfuscator failed")
	var seen string

	err := With(NewManager(base), func(dir string) error {
		seen = dir
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}
	if _, statErr := os.Stat(seen); !os.IsNotExist(statErr) {
		t.Errorf("workspace %s survived a failing run", seen)
	}
}

func TestWith_RemovesOnPanic(t *testing.T) {
	base := t.TempDir()
	var seen string

	func() {
		defer func() { _ = recover() }()
		_ = With(NewManager(base), func(dir string) error {
			seen = dir
			panic("boom")
		})
	}()

	if _, err := os.Stat(seen); !os.IsNotExist(err) {
		t.Errorf("workspace %s survived a panic", seen)
	}
}

func TestWith_MissingBase(t *testing.T) {
	err := With(NewManager(filepath.Join(t.TempDir(), "missing")), func(string) error { return nil })
	if err == nil {
		t.Fatal("expected error for missing base directory")
	}
}

func TestWith_Keep(t *testing.T) {
	var seen string
	err := With(NewManager(t.TempDir(), WithKeep(true)), func(dir string) error {
		seen = dir
		return nil
	})
	if err != nil {
		t.Fatalf("With() failed: %v", err)
	}
	if _, err := os.Stat(seen); err != nil {
		t.Errorf("kept workspace %s was removed", seen)
	}
}
