// Package pipeline coordinates an obfpkg run.
//
// A run is a fixed sequence of named stages executed by RunStages:
//
//	validate_inputs -> resolve_package -> resolve_version -> prepare_output
//	  [-> stubs_manifest -> generate_stubs -> assemble_stubs]   (with a stubs dir)
//	  -> source_manifest -> obfuscate -> assemble
//
// Every stage is timed and reported to the metrics recorder and the build
// history. The first fatal stage error aborts the run. The scoped working
// directory used by the obfuscate and assemble stages is released on every
// exit path.
package pipeline
