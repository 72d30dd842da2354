// Package toolexec runs the external collaborators of the pipeline
// (stub generator, obfuscator, package assembler) as subprocesses and
// captures their output for diagnosis.
package toolexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"git.home.luguber.info/inful/obfpkg/internal/logfields"
)

// ErrToolFailed is wrapped by every ExternalToolError.
var ErrToolFailed = errors.New("external tool failed")

// Command describes one subprocess invocation.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory; empty means the current one.
	Dir string
	// Env is appended to the inherited environment as KEY=VALUE pairs.
	Env []string
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Result carries captured output of a finished subprocess.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
}

// Runner executes commands. ExecRunner is the production implementation;
// tests substitute fakes.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ExternalToolError reports a subprocess that could not start or exited non-zero.
type ExternalToolError struct {
	Tool     string
	Args     []string
	Dir      string
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Err      error
}

func (e *ExternalToolError) Error() string {
	msg := fmt.Sprintf("%s failed", e.Tool)
	if e.ExitCode > 0 {
		msg = fmt.Sprintf("%s exited with code %d", e.Tool, e.ExitCode)
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if s := strings.TrimSpace(string(e.Stderr)); s != "" {
		msg += ": " + s
	}
	return msg
}

// Unwrap exposes both the sentinel and the underlying exec error.
func (e *ExternalToolError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrToolFailed}
	}
	return []error{ErrToolFailed, e.Err}
}

// Diagnostics renders stderr followed by stdout, the way a user wants to
// read a failing tool's output.
func (e *ExternalToolError) Diagnostics() string {
	return fmt.Sprintf("%s\n\nSTDOUT:\n%s", strings.TrimSpace(string(e.Stderr)), strings.TrimSpace(string(e.Stdout)))
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes cmd and waits for it. The subprocess is killed when ctx is done.
func (ExecRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	var stdout, stderr bytes.Buffer
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Stdout = &stdout
	c.Stderr = &stderr
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}

	slog.DebugContext(ctx, "Running external tool", logfields.Tool(cmd.Name), slog.String("command", cmd.String()), logfields.Path(cmd.Dir))
	start := time.Now()
	err := c.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes(), Duration: time.Since(start)}
	if err == nil {
		slog.DebugContext(ctx, "External tool finished", logfields.Tool(cmd.Name), logfields.Duration(res.Duration))
		return res, nil
	}

	te := &ExternalToolError{
		Tool:   cmd.Name,
		Args:   cmd.Args,
		Dir:    cmd.Dir,
		Stdout: res.Stdout,
		Stderr: res.Stderr,
		Err:    err,
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		te.ExitCode = exitErr.ExitCode()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		te.Err = errors.Join(ctxErr, err)
	}
	return res, te
}

// Expand substitutes {key} placeholders in args with values from vars.
func Expand(args []string, vars map[string]string) []string {
	if len(args) == 0 {
		return nil
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	r := strings.NewReplacer(pairs...)
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = r.Replace(a)
	}
	return out
}

// EnvList flattens a map into KEY=VALUE pairs.
func EnvList(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}
