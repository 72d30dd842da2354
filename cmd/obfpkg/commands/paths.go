package commands

import (
	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/obfpkg/internal/pathcheck"
)

// ExistingDirFlag is a path flag that must name an existing directory.
type ExistingDirFlag string

func (f *ExistingDirFlag) Decode(ctx *kong.DecodeContext) error {
	p, err := decodePath(ctx, pathcheck.ExistingDir())
	*f = ExistingDirFlag(p)
	return err
}

// OutputDirFlag is a path flag that must be absent or an empty directory,
// with an existing parent.
type OutputDirFlag string

func (f *OutputDirFlag) Decode(ctx *kong.DecodeContext) error {
	p, err := decodePath(ctx, pathcheck.EmptyOrAbsentDir())
	*f = OutputDirFlag(p)
	return err
}

func decodePath(ctx *kong.DecodeContext, c pathcheck.Constraint) (string, error) {
	var raw string
	if err := ctx.Scan.PopValueInto("path", &raw); err != nil {
		return "", err
	}
	p, err := c.Validate(raw)
	if err != nil {
		return "", err
	}
	return p.String(), nil
}
