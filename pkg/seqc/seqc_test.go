package seqc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqc/seqc/internal/config"
	"github.com/seqc/seqc/internal/diagnostics"
)

func TestCompileHelloWorld(t *testing.T) {
	src := `: main ( -- )
  "hello" io.write-line
;
`
	result, err := Compile(src)
	require.NoError(t, err)
	assert.Contains(t, result.IR, "target triple")
	assert.Contains(t, result.IR, "seq_rt_b_io.write_line")
}

func TestCompileUnknownWordDiagnostic(t *testing.T) {
	src := `: main ( -- )
  nonexistent-word
;
`
	_, err := Compile(src)
	require.Error(t, err)
	diag, ok := err.(*diagnostics.Diagnostic)
	require.True(t, ok, "expected a *diagnostics.Diagnostic, got %T", err)
	assert.Equal(t, diagnostics.CodeUnknownWord, diag.CodeOf())
}

func TestCompileWithConfigTargetOverride(t *testing.T) {
	src := `: main ( -- )
;
`
	result, err := CompileWithConfig(src, &config.CompilerConfig{Target: "x86_64-pc-windows-msvc"})
	require.NoError(t, err)
	assert.Contains(t, result.IR, "x86_64-pc-windows-msvc")
}

func TestCompileWithFFIRegistersExternalSymbol(t *testing.T) {
	src := `: main ( -- )
  1.0 sys.sqrt drop
;
`
	bindings := map[string]config.FFIBinding{
		"sys.sqrt": {Symbol: "sqrt", Lib: "m", Args: []string{"float"}, Returns: "float"},
	}
	result, err := CompileWithFFI(src, nil, bindings)
	require.NoError(t, err)
	assert.Contains(t, result.IR, "declare double @sqrt(double)")
}

func TestCompileWithFFIMergesIntoExistingConfig(t *testing.T) {
	src := `: main ( -- )
  1.0 sys.sqrt drop
;
`
	base := &config.CompilerConfig{Target: "x86_64-linux-gnu"}
	bindings := map[string]config.FFIBinding{
		"sys.sqrt": {Symbol: "sqrt", Lib: "m", Args: []string{"float"}, Returns: "float"},
	}
	result, err := CompileWithFFI(src, base, bindings)
	require.NoError(t, err)
	assert.Contains(t, result.IR, "x86_64-linux-gnu")
	assert.Contains(t, result.IR, "declare double @sqrt(double)")
	assert.Empty(t, base.FFIBindings, "CompileWithFFI must not mutate the caller's config")
}

func TestCompileWithFFIDoesNotAliasExistingBindings(t *testing.T) {
	src := `: main ( -- )
  1.0 sys.sqrt drop
;
`
	base := &config.CompilerConfig{
		FFIBindings: map[string]config.FFIBinding{
			"sys.cos": {Symbol: "cos", Lib: "m", Args: []string{"float"}, Returns: "float"},
		},
	}
	extra := map[string]config.FFIBinding{
		"sys.sqrt": {Symbol: "sqrt", Lib: "m", Args: []string{"float"}, Returns: "float"},
	}
	_, err := CompileWithFFI(src, base, extra)
	require.NoError(t, err)

	assert.Len(t, base.FFIBindings, 1, "the caller's own binding map must be untouched by the merge")
	_, hasSqrt := base.FFIBindings["sys.sqrt"]
	assert.False(t, hasSqrt, "CompileWithFFI must not write the merged bindings back into the caller's map")
}
