package commands

import (
	"context"
	"errors"

	"github.com/alecthomas/kong"

	obferrors "git.home.luguber.info/inful/obfpkg/internal/errors"
	"git.home.luguber.info/inful/obfpkg/internal/pathcheck"
	"git.home.luguber.info/inful/obfpkg/internal/pipeline"
	"git.home.luguber.info/inful/obfpkg/internal/stubs"
	"git.home.luguber.info/inful/obfpkg/internal/toolexec"
)

// Classify maps domain errors onto error categories so the CLI adapter can
// pick exit codes. Already classified errors pass through unchanged.
// The innermost domain error becomes the cause; the failing stage is kept
// as context.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var (
		stageErr  *pipeline.StageError
		pathErr   *pathcheck.ValidationError
		notFound  *pipeline.PackageNotFoundError
		ambiguous *pipeline.AmbiguousPackageError
		toolErr   *toolexec.ExternalToolError
		renameErr *stubs.RenameExhaustedError
		parseErr  *kong.ParseError
	)
	stage := ""
	if errors.As(err, &stageErr) {
		stage = string(stageErr.Stage)
	}

	var b *obferrors.ErrorBuilder
	switch {
	case stageErr != nil && stageErr.Kind == pipeline.StageErrorCanceled,
		errors.Is(err, context.Canceled):
		b = obferrors.CanceledError("interrupted").WithCause(err)
	case errors.As(err, &pathErr):
		b = obferrors.ValidationError("invalid path").WithCause(pathErr).
			WithContext("check", string(pathErr.Check))
	case errors.As(err, &notFound):
		b = obferrors.ValidationError("package not found").WithCause(notFound)
	case errors.As(err, &ambiguous):
		b = obferrors.ValidationError("ambiguous package").WithCause(ambiguous).
			WithContext("candidates", ambiguous.Candidates)
	case errors.Is(err, pipeline.ErrStubsDirRequired):
		b = obferrors.ValidationError("missing stubs directory").WithCause(pipeline.ErrStubsDirRequired)
	case errors.As(err, &toolErr):
		b = obferrors.ExternalError("external tool failed").WithCause(toolErr).
			WithContext("tool", toolErr.Tool).
			WithContext("exit_code", toolErr.ExitCode)
		if len(toolErr.Stdout) > 0 {
			b = b.WithContext("stdout", string(toolErr.Stdout))
		}
	case errors.As(err, &renameErr):
		b = obferrors.FileSystemError("stubs rename failed").WithCause(renameErr).
			WithContext("attempts", renameErr.Attempts)
	case errors.As(err, &parseErr):
		b = obferrors.ValidationError("invalid arguments").WithCause(parseErr)
	default:
		if _, ok := obferrors.AsClassified(err); ok {
			return err
		}
		if stageErr == nil {
			return err
		}
		b = obferrors.BuildError("build failed").WithCause(stageErr.Err)
	}

	if stage != "" {
		b = b.WithContext("stage", stage)
	}
	return b.Build()
}
