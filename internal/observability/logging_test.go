package observability

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestWithBuildID(t *testing.T) {
	ctx := WithBuildID(context.Background(), "build-123")

	lc := GetContext(ctx)
	if lc.BuildID != "build-123" {
		t.Errorf("expected build-123, got %s", lc.BuildID)
	}
}

func TestWithStage(t *testing.T) {
	ctx := WithStage(context.Background(), "generate_stubs")

	lc := GetContext(ctx)
	if lc.Stage != "generate_stubs" {
		t.Errorf("expected generate_stubs, got %s", lc.Stage)
	}
}

func TestMultipleContextValues(t *testing.T) {
	ctx := WithBuildID(context.Background(), "build-1")
	ctx = WithStage(ctx, "obfuscate")
	inner := WithStage(ctx, "assemble")

	if lc := GetContext(ctx); lc.BuildID != "build-1" || lc.Stage != "obfuscate" {
		t.Errorf("unexpected context %+v", lc)
	}
	if lc := GetContext(inner); lc.BuildID != "build-1" || lc.Stage != "assemble" {
		t.Errorf("stage override lost build id: %+v", lc)
	}
}

func TestContextHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewContextHandler(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	ctx := WithStage(WithBuildID(context.Background(), "build-9"), "obfuscate")
	logger.InfoContext(ctx, "Running pyarmor", slog.String("tool", "pyarmor"))

	out := buf.String()
	for _, want := range []string{"build_id=build-9", "stage=obfuscate", "tool=pyarmor"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}

	buf.Reset()
	logger.With("component", "stubs").Info("no context")
	if strings.Contains(buf.String(), "build_id") {
		t.Errorf("unexpected build_id without context: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "component=stubs") {
		t.Errorf("WithAttrs lost: %q", buf.String())
	}
}
