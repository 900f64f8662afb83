// Package parser turns a token stream into a typed AST.
//
// Grounded on original_source/crates/compiler/src/parser.rs (the Rust
// parser this spec was distilled from) for exact surface syntax
// (include forms, union/variant/field punctuation, word-def shape,
// match-arm termination rule, effect-annotation keyword), re-expressed
// in the teacher's (funvibe/funxy) single-cursor recursive-descent
// idiom: a `tokens []token.Token` slice with an integer position and
// check/expect/advance helpers (internal/parser/expressions_core.go).
package parser

import (
	"fmt"

	"github.com/seqc/seqc/internal/ast"
	"github.com/seqc/seqc/internal/diagnostics"
	"github.com/seqc/seqc/internal/lexer"
	"github.com/seqc/seqc/internal/token"
)

// maxQuotationDepth bounds quotation-type nesting as a DoS guard
// (spec.md §5, §4.2).
const maxQuotationDepth = 32

// Parser consumes a fixed token slice with a single cursor position.
type Parser struct {
	tokens   []token.Token
	pos      int
	file     string
	quoteSeq uint64
}

// Parse tokenizes and parses source text in one call.
func Parse(file, source string) (*ast.Program, error) {
	toks := lexer.TokenizeAll(source)
	p := &Parser{tokens: toks, file: file}
	return p.ParseProgram()
}

func New(toks []token.Token, file string) *Parser {
	return &Parser{tokens: toks, file: file}
}

func (p *Parser) cur() token.Token {
	if p.pos >= len(p.tokens) {
		return token.Token{Type: token.EOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekAt(n int) token.Token {
	i := p.pos + n
	if i >= len(p.tokens) {
		return token.Token{Type: token.EOF}
	}
	return p.tokens[i]
}

func (p *Parser) atEnd() bool {
	return p.cur().Type == token.EOF
}

func (p *Parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return t
}

// skipNewlines skips NEWLINE tokens; the tokenizer already strips line
// comments, so this is the only housekeeping the parser must do
// before reading a meaningful token (spec.md §4.1).
func (p *Parser) skipNewlines() {
	for p.cur().Type == token.NEWLINE {
		p.advance()
	}
}

// isLexeme reports whether the current token is an IDENT with exactly
// this lexeme (used for the source language's bare-word keywords:
// include, union, if, else, then, match, end, true, false, Closure).
func (p *Parser) isLexeme(lexeme string) bool {
	t := p.cur()
	return t.Type == token.IDENT && t.Lexeme == lexeme
}

func (p *Parser) isType(typ token.Type) bool {
	return p.cur().Type == typ
}

func (p *Parser) expectLexeme(lexeme, context string) error {
	if !p.isLexeme(lexeme) {
		return diagnostics.FromToken(diagnostics.CodeExpectedToken, p.cur(),
			"expected %q in %s, got %q", lexeme, context, p.cur().Lexeme)
	}
	p.advance()
	return nil
}

func (p *Parser) expectType(typ token.Type, context string) (token.Token, error) {
	if !p.isType(typ) {
		return token.Token{}, diagnostics.FromToken(diagnostics.CodeExpectedToken, p.cur(),
			"expected %s in %s, got %q", typ, context, p.cur().Lexeme)
	}
	return p.advance(), nil
}

func (p *Parser) illegalToken() error {
	t := p.cur()
	if t.Illegal != "" {
		code := diagnostics.CodeUnterminatedString
		if t.Type == token.IDENT {
			code = diagnostics.CodeUnknownEscape
		}
		return diagnostics.FromToken(code, t, "%s", t.Illegal)
	}
	return nil
}

// ParseProgram parses a full Program: includes, unions, and word
// definitions in any order (spec.md §4.2 "Top level").
func (p *Parser) ParseProgram() (*ast.Program, error) {
	prog := &ast.Program{File: p.file}
	for {
		p.skipNewlines()
		if p.atEnd() {
			break
		}
		if err := p.illegalToken(); err != nil {
			return prog, err
		}

		switch {
		case p.isLexeme("include"):
			inc, err := p.parseInclude()
			if err != nil {
				return prog, err
			}
			prog.Includes = append(prog.Includes, inc)
		case p.isLexeme("union"):
			u, err := p.parseUnionDef()
			if err != nil {
				return prog, err
			}
			prog.Unions = append(prog.Unions, u)
		case p.isType(token.COLON):
			w, err := p.parseWordDef()
			if err != nil {
				return prog, err
			}
			prog.Words = append(prog.Words, w)
		default:
			return prog, diagnostics.FromToken(diagnostics.CodeExpectedToken, p.cur(),
				"expected 'include', 'union', or a word definition, got %q", p.cur().Lexeme)
		}
	}
	return prog, nil
}

// parseInclude parses `include std:name`, `include ffi:lib`, or
// `include "relative/path"`.
func (p *Parser) parseInclude() (*ast.Include, error) {
	tok := p.advance() // 'include'

	if p.isType(token.STRING) {
		path := p.advance()
		return &ast.Include{Token: tok, Path: path.Lexeme}, nil
	}

	head := p.cur()
	if head.Type != token.IDENT {
		return nil, diagnostics.FromToken(diagnostics.CodeExpectedToken, head,
			"expected module name, library name, or quoted path after 'include'")
	}
	p.advance()

	if head.Lexeme == "std" || head.Lexeme == "ffi" {
		if _, err := p.expectType(token.COLON, "include"); err != nil {
			return nil, err
		}
		name, err := p.expectType(token.IDENT, "include")
		if err != nil {
			return nil, err
		}
		return &ast.Include{Token: tok, Path: head.Lexeme + ":" + name.Lexeme}, nil
	}

	return &ast.Include{Token: tok, Path: head.Lexeme}, nil
}

// parseUnionDef parses `union Name { Variant { field: Type, ... } ... }`.
func (p *Parser) parseUnionDef() (*ast.UnionDef, error) {
	tok := p.advance() // 'union'

	name, err := p.expectType(token.IDENT, "union definition")
	if err != nil {
		return nil, err
	}
	if !isUpper(name.Lexeme) {
		return nil, diagnostics.FromToken(diagnostics.CodeExpectedToken, name,
			"union name %q must start with an uppercase letter", name.Lexeme)
	}

	p.skipNewlines()
	if _, err := p.expectType(token.LBRACE, "union definition"); err != nil {
		return nil, err
	}

	u := &ast.UnionDef{Token: tok, Name: name.Lexeme}
	seen := map[string]bool{}
	for {
		p.skipNewlines()
		if p.isType(token.RBRACE) {
			p.advance()
			break
		}
		if p.atEnd() {
			return nil, diagnostics.FromToken(diagnostics.CodeUnexpectedEOF, p.cur(),
				"unexpected end of file in union %q", u.Name)
		}
		variant, err := p.parseUnionVariant()
		if err != nil {
			return nil, err
		}
		if seen[variant.Name] {
			return nil, diagnostics.FromToken(diagnostics.CodeExpectedToken, tok,
				"duplicate variant name %q in union %q", variant.Name, u.Name)
		}
		seen[variant.Name] = true
		u.Variants = append(u.Variants, variant)
	}
	if len(u.Variants) == 0 {
		return nil, diagnostics.FromToken(diagnostics.CodeExpectedToken, tok,
			"union %q must have at least one variant", u.Name)
	}
	return u, nil
}

func (p *Parser) parseUnionVariant() (ast.Variant, error) {
	name, err := p.expectType(token.IDENT, "union variant")
	if err != nil {
		return ast.Variant{}, err
	}
	if !isUpper(name.Lexeme) {
		return ast.Variant{}, diagnostics.FromToken(diagnostics.CodeExpectedToken, name,
			"variant name %q must start with an uppercase letter", name.Lexeme)
	}
	v := ast.Variant{Name: name.Lexeme}

	p.skipNewlines()
	if p.isType(token.LBRACE) {
		p.advance()
		fields, err := p.parseUnionFields()
		if err != nil {
			return ast.Variant{}, err
		}
		v.Fields = fields
		if _, err := p.expectType(token.RBRACE, fmt.Sprintf("variant %q", v.Name)); err != nil {
			return ast.Variant{}, err
		}
	}
	return v, nil
}

func (p *Parser) parseUnionFields() ([]ast.Field, error) {
	var fields []ast.Field
	seen := map[string]bool{}
	for {
		p.skipNewlines()
		if p.isType(token.RBRACE) {
			break
		}
		fieldName, err := p.expectType(token.IDENT, "union field")
		if err != nil {
			return nil, err
		}
		if _, err := p.expectType(token.COLON, "union field"); err != nil {
			return nil, err
		}
		typeName, err := p.expectType(token.IDENT, "union field")
		if err != nil {
			return nil, err
		}
		if seen[fieldName.Lexeme] {
			return nil, diagnostics.FromToken(diagnostics.CodeExpectedToken, fieldName,
				"duplicate field name %q", fieldName.Lexeme)
		}
		seen[fieldName.Lexeme] = true
		fields = append(fields, ast.Field{Name: fieldName.Lexeme, TypeName: typeName.Lexeme})

		p.skipNewlines()
		if p.isType(token.COMMA) {
			p.advance()
		}
	}
	return fields, nil
}

func isUpper(s string) bool {
	if s == "" {
		return false
	}
	return s[0] >= 'A' && s[0] <= 'Z'
}

func isLower(s string) bool {
	if s == "" {
		return false
	}
	return s[0] >= 'a' && s[0] <= 'z'
}

// parseWordDef parses `: name ( effect )? body ;`.
func (p *Parser) parseWordDef() (*ast.WordDef, error) {
	tok := p.advance() // ':'

	name, err := p.expectType(token.IDENT, "word definition")
	if err != nil {
		return nil, err
	}

	w := &ast.WordDef{Token: tok, Name: name.Lexeme}

	p.skipNewlines()
	if p.isType(token.LPAREN) {
		eff, err := p.parseStackEffect()
		if err != nil {
			return nil, err
		}
		w.Effect = &eff
	}

	for {
		p.skipNewlines()
		if p.isType(token.SEMICOLON) {
			p.advance()
			break
		}
		if p.atEnd() {
			return nil, diagnostics.FromToken(diagnostics.CodeUnexpectedEOF, p.cur(),
				"unexpected end of file in word %q", w.Name)
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		w.Body = append(w.Body, stmt)
	}
	return w, nil
}
