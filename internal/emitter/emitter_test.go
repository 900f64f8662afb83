package emitter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqc/seqc/internal/analyzer"
	"github.com/seqc/seqc/internal/config"
	"github.com/seqc/seqc/internal/parser"
)

func compile(t *testing.T, src string) string {
	t.Helper()
	prog, err := parser.Parse("<test>", src)
	require.NoError(t, err)

	res, err := analyzer.NewChecker().Check(prog)
	require.NoError(t, err)

	spec := analyzer.ComputeSpecialization(prog, res)
	ir, err := Emit(prog, res, spec, "x86_64-unknown-linux-gnu", nil)
	require.NoError(t, err)
	return ir
}

func TestEmitHelloWorldStringAndOpaqueCall(t *testing.T) {
	ir := compile(t, `
: main ( -- )
  "hello" io.write-line
;
`)
	assert.Contains(t, ir, "target triple")
	assert.Contains(t, ir, `@.str.0 = private unnamed_addr constant`)
	assert.Contains(t, ir, "seq_rt_make_string")
	assert.Contains(t, ir, "seq_rt_b_io.write_line")
	assert.Contains(t, ir, "define ptr @seq_main")
}

func TestEmitMainNormalModeRunsSchedulerWithoutPop(t *testing.T) {
	config.IsTestMode = false
	t.Cleanup(func() { config.IsTestMode = false })

	ir := compile(t, `
: main ( -- Int )
  2 3 i.+
;
`)
	start := strings.Index(ir, "define i32 @main")
	require.NotEqual(t, -1, start, "expected a C main entry point")
	mainBody := ir[start:]
	assert.NotContains(t, mainBody, "seq_rt_pop")
	assert.Contains(t, mainBody, "seq_rt_scheduler_run")
	assert.Contains(t, ir, "add i64")
}

func TestEmitMainTestModeReturnsStackTopAsExitCode(t *testing.T) {
	config.IsTestMode = true
	t.Cleanup(func() { config.IsTestMode = false })

	ir := compile(t, `
: main ( -- Int )
  2 3 i.+
;
`)
	assert.Contains(t, ir, "seq_rt_stack_base")
	assert.Contains(t, ir, "seq_rt_pop")
	assert.Contains(t, ir, "trunc i64")
	assert.Contains(t, ir, "ret i32")
}

func TestEmitConditionalBranchesAndMerges(t *testing.T) {
	ir := compile(t, `
: pick-msg ( Int Int -- String )
  i.> if "greater" else "not greater" then
;

: main ( -- )
  3 5 pick-msg drop
;
`)
	assert.Contains(t, ir, "icmp")
	assert.Contains(t, ir, "br i1")
	assert.Contains(t, ir, "phi ptr")
}

func TestEmitVariantConstructorAndMatchDispatch(t *testing.T) {
	ir := compile(t, `
union Result {
  Ok { value: Int }
  Err { msg: String }
}

: h ( -- Int )
  42 Make-Ok
  match
    Ok { >value } ->
    Err { >msg } -> drop 0
  end
;

: main ( -- )
  h drop
;
`)
	assert.Contains(t, ir, "seq_rt_variant_make")
	assert.Contains(t, ir, "seq_rt_variant_tag")
}

func TestEmitFastPathEmitsMusttailForSelfRecursion(t *testing.T) {
	ir := compile(t, `
: countdown ( Int -- Int )
  dup 0 i.=
  if
    drop 0
  else
    1 i.- countdown
  then
;

: main ( -- )
  5 countdown drop
;
`)
	start := strings.Index(ir, "define tailcc i64 @seq_countdown_i64")
	require.NotEqual(t, -1, start, "expected a fast-path entry point for countdown")
	end := strings.Index(ir[start:], "\n}")
	require.NotEqual(t, -1, end, "expected fast-path function body to be closed")
	fastPathBody := ir[start : start+end]

	assert.Contains(t, fastPathBody, "musttail call tailcc i64 @seq_countdown_i64")
	assert.NotContains(t, fastPathBody, "ret ptr")
}
