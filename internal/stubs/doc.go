// Package stubs drives the companion type-stub package of a build.
//
// An Orchestrator owns a build directory. It clears the directory's
// subdirectories, runs the stub generator for one package, optionally
// overlays hand-written .pyi files from the source tree, and renames the
// generated package directory to its "-stubs" name:
//
//	orch, err := stubs.New(stubs.BuildContext{
//	    SourcePath:  "/work/proj",
//	    BuildPath:   "/work/stubs-pkg",
//	    PackageName: "mypkg",
//	})
//	if err != nil { ... }
//	if _, err := orch.Generate(ctx); err != nil { ... }
//	// /work/stubs-pkg/mypkg-stubs now holds the stubs
package stubs
