package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqc/seqc/internal/ast"
)

func TestParseWordDefWithEffectAndBody(t *testing.T) {
	prog, err := Parse("<test>", `
: add-one ( Int -- Int )
  1 i.+
;
`)
	require.NoError(t, err)
	require.Len(t, prog.Words, 1)

	w := prog.Words[0]
	assert.Equal(t, "add-one", w.Name)
	require.NotNil(t, w.Effect)
	require.Len(t, w.Body, 2)

	lit, ok := w.Body[0].(*ast.IntLiteral)
	require.True(t, ok)
	assert.Equal(t, int64(1), lit.Value)

	call, ok := w.Body[1].(*ast.WordCall)
	require.True(t, ok)
	assert.Equal(t, "i.+", call.Name)
}

func TestParseWordDefWithoutEffectAnnotation(t *testing.T) {
	prog, err := Parse("<test>", `
: noop
;
`)
	require.NoError(t, err)
	require.Len(t, prog.Words, 1)
	assert.Nil(t, prog.Words[0].Effect)
	assert.Empty(t, prog.Words[0].Body)
}

func TestParseIntFloatBoolAndStringLiterals(t *testing.T) {
	prog, err := Parse("<test>", `
: lits ( -- )
  42 0x2A 0b101010 3.14 true false "hi"
;
`)
	require.NoError(t, err)
	body := prog.Words[0].Body
	require.Len(t, body, 7)

	assert.Equal(t, int64(42), body[0].(*ast.IntLiteral).Value)
	assert.Equal(t, int64(42), body[1].(*ast.IntLiteral).Value)
	assert.Equal(t, int64(42), body[2].(*ast.IntLiteral).Value)
	assert.InDelta(t, 3.14, body[3].(*ast.FloatLiteral).Value, 1e-9)
	assert.Equal(t, true, body[4].(*ast.BoolLiteral).Value)
	assert.Equal(t, false, body[5].(*ast.BoolLiteral).Value)
	assert.Equal(t, "hi", body[6].(*ast.StringLiteral).Value)
}

func TestParseSymbolLiteral(t *testing.T) {
	prog, err := Parse("<test>", `
: sym ( -- )
  :ok
;
`)
	require.NoError(t, err)
	lit, ok := prog.Words[0].Body[0].(*ast.SymbolLiteral)
	require.True(t, ok)
	assert.Equal(t, "ok", lit.Value)
}

func TestParseMalformedHexLiteralIsAnError(t *testing.T) {
	_, err := Parse("<test>", `
: bad ( -- )
  0xZZ
;
`)
	require.Error(t, err)
}

func TestParseIfElseThen(t *testing.T) {
	prog, err := Parse("<test>", `
: pick ( Bool -- Int )
  if 1 else 2 then
;
`)
	require.NoError(t, err)
	ifStmt, ok := prog.Words[0].Body[0].(*ast.If)
	require.True(t, ok)
	require.Len(t, ifStmt.Then, 1)
	require.Len(t, ifStmt.Else, 1)
	assert.Equal(t, int64(1), ifStmt.Then[0].(*ast.IntLiteral).Value)
	assert.Equal(t, int64(2), ifStmt.Else[0].(*ast.IntLiteral).Value)
}

func TestParseIfWithoutElse(t *testing.T) {
	prog, err := Parse("<test>", `
: pick ( Bool -- )
  if drop then
;
`)
	require.NoError(t, err)
	ifStmt, ok := prog.Words[0].Body[0].(*ast.If)
	require.True(t, ok)
	assert.Len(t, ifStmt.Then, 1)
	assert.Empty(t, ifStmt.Else)
}

func TestParseQuotationLiteral(t *testing.T) {
	prog, err := Parse("<test>", `
: main ( -- )
  [ 1 2 i.+ ] call
;
`)
	require.NoError(t, err)
	q, ok := prog.Words[0].Body[0].(*ast.Quotation)
	require.True(t, ok)
	assert.Len(t, q.Body, 3)
	assert.NotEmpty(t, q.StableID)
}

func TestParseQuotationStableIDIsDeterministicByPosition(t *testing.T) {
	src := `
: main ( -- )
  [ 1 ]
;
`
	p1, err := Parse("<test>", src)
	require.NoError(t, err)
	p2, err := Parse("<test>", src)
	require.NoError(t, err)

	id1 := p1.Words[0].Body[0].(*ast.Quotation).StableID
	id2 := p2.Words[0].Body[0].(*ast.Quotation).StableID
	assert.Equal(t, id1, id2, "StableID must be deterministic for the same (file, line, column)")
}

func TestParseUnionWithVariantsAndFields(t *testing.T) {
	prog, err := Parse("<test>", `
union Result {
  Ok { value: Int }
  Err { msg: String }
}
`)
	require.NoError(t, err)
	require.Len(t, prog.Unions, 1)
	u := prog.Unions[0]
	assert.Equal(t, "Result", u.Name)
	require.Len(t, u.Variants, 2)
	assert.Equal(t, "Ok", u.Variants[0].Name)
	assert.Equal(t, "value", u.Variants[0].Fields[0].Name)
	assert.Equal(t, "Int", u.Variants[0].Fields[0].TypeName)
}

func TestParseUnionNameMustBeUppercase(t *testing.T) {
	_, err := Parse("<test>", `
union result {
  Ok { }
}
`)
	require.Error(t, err)
}

func TestParseUnionDuplicateVariantNameIsAnError(t *testing.T) {
	_, err := Parse("<test>", `
union Result {
  Ok { }
  Ok { }
}
`)
	require.Error(t, err)
}

func TestParseMatchArmsWithBindingsAndMultiStatementBody(t *testing.T) {
	prog, err := Parse("<test>", `
: h ( -- )
  match
    Ok { >value } -> value drop
    Err { >msg } -> drop
  end
;
`)
	require.NoError(t, err)
	m, ok := prog.Words[0].Body[0].(*ast.Match)
	require.True(t, ok)
	require.Len(t, m.Arms, 2)

	okArm := m.Arms[0]
	assert.Equal(t, "Ok", okArm.Variant)
	require.Len(t, okArm.Bound, 1)
	assert.Equal(t, "value", okArm.Bound[0].FieldName)
	require.Len(t, okArm.Body, 2)
}

func TestParseMatchBindingRequiresArrowPrefix(t *testing.T) {
	_, err := Parse("<test>", `
: h ( -- )
  match
    Ok { value } ->
  end
;
`)
	require.Error(t, err)
}

func TestParseMatchRequiresAtLeastOneArm(t *testing.T) {
	_, err := Parse("<test>", `
: h ( -- )
  match
  end
;
`)
	require.Error(t, err)
}

func TestParseIncludeForms(t *testing.T) {
	prog, err := Parse("<test>", `
include std:io
include ffi:m
include "local/module.seq"
`)
	require.NoError(t, err)
	require.Len(t, prog.Includes, 3)
	assert.Equal(t, "std:io", prog.Includes[0].Path)
	assert.Equal(t, "ffi:m", prog.Includes[1].Path)
	assert.Equal(t, "local/module.seq", prog.Includes[2].Path)
}

func TestParseUnexpectedEOFInWordBody(t *testing.T) {
	_, err := Parse("<test>", `
: main ( -- )
  1 2
`)
	require.Error(t, err)
}
