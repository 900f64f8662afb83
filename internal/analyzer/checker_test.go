package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqc/seqc/internal/diagnostics"
	"github.com/seqc/seqc/internal/parser"
	"github.com/seqc/seqc/internal/types"
)

func check(t *testing.T, src string) (*Result, error) {
	t.Helper()
	prog, err := parser.Parse("<test>", src)
	require.NoError(t, err)
	return NewChecker().Check(prog)
}

func TestCheckSimpleArithmeticWord(t *testing.T) {
	res, err := check(t, `
: main ( -- Int )
  2 3 i.+
;
`)
	require.NoError(t, err)
	eff := res.WordEffects["main"]
	assert.Equal(t, types.Push(types.RowVar{Name: "rest"}, types.Int{}), eff.Outputs)
}

func TestCheckUnknownWordProducesT301(t *testing.T) {
	_, err := check(t, `
: main ( -- )
  nonexistent-word
;
`)
	require.Error(t, err)
	diag, ok := err.(*diagnostics.Diagnostic)
	require.True(t, ok)
	assert.Equal(t, diagnostics.CodeUnknownWord, diag.CodeOf())
}

func TestCheckVariantConstructorIsRegistered(t *testing.T) {
	res, err := check(t, `
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
`)
	require.NoError(t, err)

	eff, ok := res.WordEffects["Make-Ok"]
	require.True(t, ok, "Make-Ok must be registered as a callable word")
	assert.Equal(t, types.Union{Name: "Result"}, topOf(t, eff.Outputs))

	in, ok := eff.Inputs.(types.Cons)
	require.True(t, ok)
	assert.Equal(t, types.Int{}, in.Top)
}

func TestCheckVariantConstructorFieldOrderMatchesDeclaration(t *testing.T) {
	res, err := check(t, `
union Pair {
  Of { first: Int, second: String }
}

: main ( -- )
  1 "x" Make-Of drop
;
`)
	require.NoError(t, err)

	eff := res.WordEffects["Make-Of"]
	outer, ok := eff.Inputs.(types.Cons)
	require.True(t, ok)
	assert.Equal(t, types.String{}, outer.Top, "second field must be on top, popped last-declared-first")

	inner, ok := outer.Rest.(types.Cons)
	require.True(t, ok)
	assert.Equal(t, types.Int{}, inner.Top)
}

func TestCheckNonExhaustiveMatchProducesT304(t *testing.T) {
	_, err := check(t, `
union Result {
  Ok { value: Int }
  Err { msg: String }
}

: h ( -- Int )
  42 Make-Ok
  match
    Ok { >value } ->
  end
;
`)
	require.Error(t, err)
	diag, ok := err.(*diagnostics.Diagnostic)
	require.True(t, ok)
	assert.Equal(t, diagnostics.CodeNonExhaustiveMatch, diag.CodeOf())
	assert.Contains(t, diag.Error(), "Result")
	assert.Contains(t, diag.Error(), "Err")
}

func TestRegisterExternalWordsAcceptsOpaqueCalls(t *testing.T) {
	prog, err := parser.Parse("<test>", `
: main ( -- )
  sys.custom drop
;
`)
	require.NoError(t, err)

	c := NewChecker()
	c.RegisterExternalWords([]string{"sys.custom"})
	_, err = c.Check(prog)
	assert.NoError(t, err)
}

func topOf(t *testing.T, st types.StackType) types.Type {
	t.Helper()
	cons, ok := st.(types.Cons)
	require.True(t, ok, "expected a non-empty stack type, got %T", st)
	return cons.Top
}
