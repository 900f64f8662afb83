// Package config holds compiler-wide constants and the YAML-loadable
// CompilerConfig that parameterizes a compilation (target triple,
// FFI bindings, external builtin registration).
//
// Grounded on the teacher's internal/config/constants.go (bare
// package-level vars/consts for cross-cutting settings — version,
// mode flags, file extensions) for the ambient pieces, and on
// original_source/crates/compiler/src/codegen/mod.rs's small target
// triple table for TripleFor.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Version is the current seqc version.
var Version = "0.1.0"

const SourceFileExt = ".seq"

// IsTestMode indicates the compiler is running in pure-inline-test
// mode (spec.md §4.8's `main` replaced by an inline test harness).
// Set by internal/cli on each run, from its -test flag or the
// config's test_mode.
var IsTestMode = false

// FFIBinding names one C symbol a source-visible word is bound to,
// resolved at link time rather than compiled by this core (spec.md
// §6 "FFI bindings object"). Args and Returns are drawn from this
// language's closed primitive set ("int", "float", "bool") so the
// emitter can marshal stack values to and from the C ABI directly; a
// full C type grammar (structs, pointers) is out of scope (spec.md §1
// Non-goals).
type FFIBinding struct {
	Symbol  string   `yaml:"symbol"`
	Lib     string   `yaml:"lib"`
	Args    []string `yaml:"args"`
	Returns string   `yaml:"returns"`
}

// CompilerConfig is the optional YAML document controlling one
// compilation: target triple override, FFI bindings, and additional
// external builtin names the checker should accept without a Go-side
// definition (spec.md §6's "external collaborators").
type CompilerConfig struct {
	Target        string                `yaml:"target"`
	FFIBindings   map[string]FFIBinding `yaml:"ffi_bindings"`
	ExternalWords []string              `yaml:"external_words"`
	TestMode      bool                  `yaml:"test_mode"`
}

// Load reads and parses a CompilerConfig from a YAML file.
func Load(path string) (*CompilerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var cfg CompilerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &cfg, nil
}

// triple is one (GOOS, GOARCH) -> LLVM target triple mapping.
type triple struct {
	goos, goarch, value string
}

// triples is the deterministic target table (spec.md §4.8 module
// preamble), grounded directly on the original's own small triple
// table in codegen/mod.rs.
var triples = []triple{
	{"darwin", "arm64", "arm64-apple-macosx11.0.0"},
	{"darwin", "amd64", "x86_64-apple-macosx10.12.0"},
	{"linux", "amd64", "x86_64-unknown-linux-gnu"},
	{"linux", "arm64", "aarch64-unknown-linux-gnu"},
}

const unknownTriple = "unknown-unknown-unknown"

// TripleFor returns the LLVM target triple for goos/goarch, falling
// back to unknownTriple for unrecognized pairs.
func TripleFor(goos, goarch string) string {
	for _, t := range triples {
		if t.goos == goos && t.goarch == goarch {
			return t.value
		}
	}
	return unknownTriple
}

// ResolveTarget returns cfg's target override if set, else the triple
// for the given host pair.
func (c *CompilerConfig) ResolveTarget(hostGOOS, hostGOARCH string) string {
	if c != nil && c.Target != "" {
		return c.Target
	}
	return TripleFor(hostGOOS, hostGOARCH)
}
