package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/seqc/seqc/internal/token"
)

func tokenTypes(toks []token.Token) []token.Type {
	types := make([]token.Type, len(toks))
	for i, t := range toks {
		types[i] = t.Type
	}
	return types
}

func TestNextTokenDelimitersAndWords(t *testing.T) {
	input := ": dup-add ( Int Int -- Int ) dup i.+ ;"
	toks := TokenizeAll(input)

	want := []token.Type{
		token.COLON, token.IDENT, token.LPAREN, token.IDENT, token.IDENT,
		token.IDENT, token.IDENT, token.RPAREN, token.IDENT, token.IDENT,
		token.SEMICOLON, token.EOF,
	}
	assert.Equal(t, want, tokenTypes(toks))
	assert.Equal(t, "dup-add", toks[1].Lexeme)
}

func TestNextTokenNewlineIsSignificant(t *testing.T) {
	toks := TokenizeAll("dup\ndrop")
	want := []token.Type{token.IDENT, token.NEWLINE, token.IDENT, token.EOF}
	assert.Equal(t, want, tokenTypes(toks))
}

func TestNextTokenLineCommentStopsAtNewline(t *testing.T) {
	toks := TokenizeAll("dup # pops nothing, just copies\ndrop")
	want := []token.Type{token.IDENT, token.NEWLINE, token.IDENT, token.EOF}
	assert.Equal(t, want, tokenTypes(toks))
	assert.Equal(t, "dup", toks[0].Lexeme)
	assert.Equal(t, "drop", toks[2].Lexeme)
}

func TestNextTokenStringLiteralEscapes(t *testing.T) {
	toks := TokenizeAll(`"hello\nworld"`)
	assert.Equal(t, token.STRING, toks[0].Type)
	assert.Equal(t, "hello\nworld", toks[0].Lexeme)
}

func TestNextTokenUnterminatedStringIsIllegalAtOpeningQuote(t *testing.T) {
	toks := TokenizeAll(`"never closes`)
	assert.Equal(t, token.ILLEGAL, toks[0].Type)
	assert.NotEmpty(t, toks[0].Illegal)
	assert.Equal(t, 0, toks[0].Column)
}

func TestNextTokenUnknownEscapeIsIllegal(t *testing.T) {
	toks := TokenizeAll(`"bad\qescape"`)
	assert.NotEmpty(t, toks[0].Illegal)
}

func TestNextTokenPositionsTrackLinesAndColumns(t *testing.T) {
	toks := TokenizeAll("dup\n  drop")
	assert.Equal(t, 0, toks[0].Line)
	assert.Equal(t, 0, toks[0].Column)
	dropTok := toks[2]
	assert.Equal(t, 1, dropTok.Line)
	assert.Equal(t, 2, dropTok.Column)
}

func TestNextTokenRowVariableAndArrowLexemesAreWords(t *testing.T) {
	toks := TokenizeAll("..rest -> |")
	assert.Equal(t, token.IDENT, toks[0].Type)
	assert.Equal(t, "..rest", toks[0].Lexeme)
	assert.Equal(t, token.IDENT, toks[1].Type)
	assert.Equal(t, "->", toks[1].Lexeme)
	assert.Equal(t, token.IDENT, toks[2].Type)
	assert.Equal(t, "|", toks[2].Lexeme)
}

func TestTokenizeAllAlwaysEndsInEOF(t *testing.T) {
	for _, src := range []string{"", "   ", "# only a comment", "dup"} {
		toks := TokenizeAll(src)
		assert.Equal(t, token.EOF, toks[len(toks)-1].Type, "source %q", src)
	}
}
