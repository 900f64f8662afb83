// Package seqc is the embeddable compiler front door: one source
// string in, one LLVM IR text module out, running the fixed
// lex/parse/check/emit pipeline (spec.md §7).
//
// Grounded on the teacher's pkg/embed and pkg/cli packages: a small
// façade package sitting above the internal pipeline, giving library
// callers (and cmd/seqc) a single entry point instead of requiring
// them to wire the stages themselves.
package seqc

import (
	"github.com/seqc/seqc/internal/config"
	"github.com/seqc/seqc/internal/pipeline"
)

// Result is what a successful compilation publishes: the emitted
// module text. The analysis artifacts (word effects, specialization
// decisions) are not included.
type Result struct {
	IR string
}

// Compile lowers source to an LLVM IR text module using the host's
// default target triple and no FFI bindings or external words.
func Compile(source string) (*Result, error) {
	return CompileWithConfig(source, nil)
}

// CompileWithConfig lowers source under an explicit CompilerConfig
// (target override, FFI bindings, external word registration; spec.md
// §6). A nil cfg behaves like Compile.
func CompileWithConfig(source string, cfg *config.CompilerConfig) (*Result, error) {
	ctx := pipeline.NewPipelineContext("<source>", source, cfg)
	ctx = pipeline.Standard().Run(ctx)
	if ctx.Err != nil {
		return nil, ctx.Err
	}
	return &Result{IR: ctx.IR}, nil
}

// CompileWithFFI is CompileWithConfig with the FFI binding table
// supplied directly, for callers that assemble bindings programmatically
// rather than loading them from a YAML CompilerConfig file.
func CompileWithFFI(source string, cfg *config.CompilerConfig, ffiBindings map[string]config.FFIBinding) (*Result, error) {
	merged := &config.CompilerConfig{}
	if cfg != nil {
		*merged = *cfg
	}
	// Copy rather than alias cfg.FFIBindings: populating it in place
	// below would otherwise mutate the caller's map out from under it.
	copied := make(map[string]config.FFIBinding, len(merged.FFIBindings)+len(ffiBindings))
	for name, b := range merged.FFIBindings {
		copied[name] = b
	}
	for name, b := range ffiBindings {
		copied[name] = b
	}
	merged.FFIBindings = copied
	return CompileWithConfig(source, merged)
}
