package parser

import (
	"strconv"
	"strings"

	"github.com/seqc/seqc/internal/ast"
	"github.com/seqc/seqc/internal/diagnostics"
	"github.com/seqc/seqc/internal/token"
)

func (p *Parser) stableQuotationID(tok token.Token) string {
	return ast.StableID(p.file, tok.Line, tok.Column).String()
}

// parseStatement dispatches a single body statement. Lexical shape of
// the lead token (hex/binary/decimal/float/bool/string/keyword) is
// classified here, per spec.md §4.1 ("recognized downstream in
// parsing, not here") and §4.2's literal forms list, grounded on
// original_source parser.rs's parse_statement token-shape cascade.
func (p *Parser) parseStatement() (ast.Statement, error) {
	p.skipNewlines()
	if err := p.illegalToken(); err != nil {
		return nil, err
	}
	tok := p.cur()

	switch tok.Type {
	case token.STRING:
		p.advance()
		return &ast.StringLiteral{Token: tok, Value: tok.Lexeme}, nil

	case token.LBRACKET:
		p.advance()
		return p.parseQuotation(tok)

	case token.COLON:
		p.advance()
		name, err := p.expectType(token.IDENT, "symbol literal")
		if err != nil {
			return nil, err
		}
		return &ast.SymbolLiteral{Token: tok, Value: name.Lexeme}, nil

	case token.IDENT:
		p.advance()
		return p.classifyWordToken(tok)

	default:
		return nil, diagnostics.FromToken(diagnostics.CodeExpectedToken, tok,
			"unexpected token %q in word body", tok.Lexeme)
	}
}

func (p *Parser) classifyWordToken(tok token.Token) (ast.Statement, error) {
	lex := tok.Lexeme

	switch lex {
	case "true":
		return &ast.BoolLiteral{Token: tok, Value: true}, nil
	case "false":
		return &ast.BoolLiteral{Token: tok, Value: false}, nil
	case "if":
		return p.parseIf(tok)
	case "match":
		return p.parseMatch(tok)
	}

	if f, ok := parseFloatLiteral(lex); ok {
		return &ast.FloatLiteral{Token: tok, Value: f}, nil
	}
	if n, ok, malformed := parseHexOrBinary(lex); malformed {
		return nil, diagnostics.FromToken(diagnostics.CodeMalformedNumber, tok, "invalid numeric literal %q", lex)
	} else if ok {
		return &ast.IntLiteral{Token: tok, Value: n}, nil
	}
	if n, err := strconv.ParseInt(lex, 10, 64); err == nil {
		return &ast.IntLiteral{Token: tok, Value: n}, nil
	}

	return &ast.WordCall{Token: tok, Name: lex}, nil
}

// parseFloatLiteral recognizes the float lexical shape: contains '.'
// or an exponent marker outside of a 0x/0b prefix (spec.md §4.1, §4.2).
func parseFloatLiteral(lex string) (float64, bool) {
	if strings.HasPrefix(lex, "0x") || strings.HasPrefix(lex, "0X") ||
		strings.HasPrefix(lex, "0b") || strings.HasPrefix(lex, "0B") {
		return 0, false
	}
	if !strings.ContainsAny(lex, ".eE") {
		return 0, false
	}
	f, err := strconv.ParseFloat(lex, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// parseHexOrBinary recognizes 0x.../0b... integer literals. malformed
// is true when the prefix matched but the digits after it don't.
func parseHexOrBinary(lex string) (value int64, ok bool, malformed bool) {
	switch {
	case strings.HasPrefix(lex, "0x") || strings.HasPrefix(lex, "0X"):
		n, err := strconv.ParseInt(lex[2:], 16, 64)
		if err != nil {
			return 0, false, true
		}
		return n, true, false
	case strings.HasPrefix(lex, "0b") || strings.HasPrefix(lex, "0B"):
		n, err := strconv.ParseInt(lex[2:], 2, 64)
		if err != nil {
			return 0, false, true
		}
		return n, true, false
	default:
		return 0, false, false
	}
}

// parseIf parses `if then_branch (else else_branch)? then`.
func (p *Parser) parseIf(tok token.Token) (ast.Statement, error) {
	ifStmt := &ast.If{Token: tok}

	for {
		p.skipNewlines()
		if p.atEnd() {
			return nil, diagnostics.FromToken(diagnostics.CodeUnexpectedEOF, p.cur(), "unexpected end of file in 'if' statement")
		}
		if p.isLexeme("else") {
			p.advance()
			break
		}
		if p.isLexeme("then") {
			p.advance()
			return ifStmt, nil
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		ifStmt.Then = append(ifStmt.Then, stmt)
	}

	for {
		p.skipNewlines()
		if p.atEnd() {
			return nil, diagnostics.FromToken(diagnostics.CodeUnexpectedEOF, p.cur(), "unexpected end of file in 'else' branch")
		}
		if p.isLexeme("then") {
			p.advance()
			return ifStmt, nil
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		ifStmt.Else = append(ifStmt.Else, stmt)
	}
}

// parseQuotation parses `[ body ]`, the opening '[' already consumed.
func (p *Parser) parseQuotation(tok token.Token) (ast.Statement, error) {
	p.quoteSeq++
	q := &ast.Quotation{Token: tok, ID: p.quoteSeq, StableID: p.stableQuotationID(tok)}
	for {
		p.skipNewlines()
		if p.isType(token.RBRACKET) {
			p.advance()
			return q, nil
		}
		if p.atEnd() {
			return nil, diagnostics.FromToken(diagnostics.CodeUnexpectedEOF, p.cur(), "unexpected end of file in quotation")
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		q.Body = append(q.Body, stmt)
	}
}

// parseMatch parses `match arm... end`.
func (p *Parser) parseMatch(tok token.Token) (ast.Statement, error) {
	m := &ast.Match{Token: tok}
	for {
		p.skipNewlines()
		if p.isLexeme("end") {
			p.advance()
			break
		}
		if p.atEnd() {
			return nil, diagnostics.FromToken(diagnostics.CodeUnexpectedEOF, p.cur(), "unexpected end of file in 'match'")
		}
		arm, err := p.parseMatchArm()
		if err != nil {
			return nil, err
		}
		m.Arms = append(m.Arms, arm)
	}
	if len(m.Arms) == 0 {
		return nil, diagnostics.FromToken(diagnostics.CodeExpectedToken, tok, "match must have at least one arm")
	}
	return m, nil
}

// parseMatchArm parses `Name ('{' '>field'... '}')? -> body`, where
// the body extends until the two-token lookahead recognizes the start
// of the next arm (an uppercase IDENT followed by '->' or '{') or the
// literal 'end' (spec.md §4.2).
func (p *Parser) parseMatchArm() (ast.MatchArm, error) {
	variant, err := p.expectType(token.IDENT, "match arm")
	if err != nil {
		return ast.MatchArm{}, err
	}
	arm := ast.MatchArm{Variant: variant.Lexeme}

	p.skipNewlines()
	if p.isType(token.LBRACE) {
		p.advance()
		for {
			p.skipNewlines()
			if p.isType(token.RBRACE) {
				p.advance()
				break
			}
			if p.atEnd() {
				return ast.MatchArm{}, diagnostics.FromToken(diagnostics.CodeUnexpectedEOF, p.cur(),
					"unexpected end of file in match bindings for %q", variant.Lexeme)
			}
			bindTok, err := p.expectType(token.IDENT, "match binding")
			if err != nil {
				return ast.MatchArm{}, err
			}
			if !strings.HasPrefix(bindTok.Lexeme, ">") || len(bindTok.Lexeme) < 2 {
				return ast.MatchArm{}, diagnostics.FromToken(diagnostics.CodeBadMatchBinding, bindTok,
					"match bindings must use '>' prefix to indicate stack extraction; use '>%s' instead of %q",
					bindTok.Lexeme, bindTok.Lexeme)
			}
			arm.Bound = append(arm.Bound, ast.Binding{FieldName: bindTok.Lexeme[1:]})
		}
	}

	p.skipNewlines()
	if !p.isLexeme("->") {
		return ast.MatchArm{}, diagnostics.FromToken(diagnostics.CodeExpectedToken, p.cur(),
			"expected '->' after pattern %q, got %q", variant.Lexeme, p.cur().Lexeme)
	}
	p.advance()

	for {
		p.skipNewlines()
		if p.isLexeme("end") {
			break
		}
		if next := p.cur(); next.Type == token.IDENT && isUpper(next.Lexeme) {
			follow := p.peekAt(1)
			if (follow.Type == token.IDENT && follow.Lexeme == "->") || follow.Type == token.LBRACE {
				break
			}
		}
		if p.atEnd() {
			return ast.MatchArm{}, diagnostics.FromToken(diagnostics.CodeUnexpectedEOF, p.cur(), "unexpected end of file in match arm body")
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return ast.MatchArm{}, err
		}
		arm.Body = append(arm.Body, stmt)
	}
	return arm, nil
}
