package parser

import (
	"github.com/seqc/seqc/internal/diagnostics"
	"github.com/seqc/seqc/internal/token"
	"github.com/seqc/seqc/internal/types"
)

// parseStackEffect parses `( inputs -- outputs ( | side_effect... )? )`.
func (p *Parser) parseStackEffect() (types.Effect, error) {
	if _, err := p.expectType(token.LPAREN, "stack effect"); err != nil {
		return types.Effect{}, err
	}

	inRow, inTypes, err := p.parseTypeListUntil(isDashDash, "stack effect inputs", 0)
	if err != nil {
		return types.Effect{}, err
	}
	if !p.isLexeme("--") {
		return types.Effect{}, diagnostics.FromToken(diagnostics.CodeExpectedToken, p.cur(),
			"expected '--' separator in stack effect, got %q", p.cur().Lexeme)
	}
	p.advance()

	outRow, outTypes, err := p.parseTypeListUntil(isRParenOrPipe, "stack effect outputs", 0)
	if err != nil {
		return types.Effect{}, err
	}

	var sideEffects []types.SideEffect
	if p.isLexeme("|") {
		p.advance()
		sideEffects, err = p.parseSideEffects()
		if err != nil {
			return types.Effect{}, err
		}
	}

	if _, err := p.expectType(token.RPAREN, "stack effect"); err != nil {
		return types.Effect{}, err
	}

	inputs := buildStackType(inRow, outRow, inTypes, true)
	outputs := buildStackType(inRow, outRow, outTypes, false)
	return types.Effect{Inputs: inputs, Outputs: outputs, SideEffects: sideEffects}, nil
}

func isDashDash(t token.Token) bool      { return t.Type == token.IDENT && t.Lexeme == "--" }
func isRBracket(t token.Token) bool      { return t.Type == token.RBRACKET }
func isRParenOrPipe(t token.Token) bool {
	return t.Type == token.RPAREN || (t.Type == token.IDENT && t.Lexeme == "|")
}
// buildStackType constructs the StackType bottom (row variable or
// closed empty stack) plus the declared tops, in order. When the user
// omitted a row variable on one or both sides, an implicit "rest" is
// inserted and shared between input and output (spec.md §4.2's
// "unifying input and output rows"), grounded on the original
// compiler's build_stack_type which always falls back to RowVar("rest").
func buildStackType(inRow, outRow *string, ts []types.Type, isInputSide bool) types.StackType {
	var base types.StackType
	switch {
	case isInputSide && inRow != nil:
		base = types.RowVar{Name: *inRow}
	case !isInputSide && outRow != nil:
		base = types.RowVar{Name: *outRow}
	case inRow == nil && outRow == nil:
		base = types.RowVar{Name: "rest"}
	case isInputSide && inRow == nil && outRow != nil:
		base = types.RowVar{Name: *outRow}
	case !isInputSide && outRow == nil && inRow != nil:
		base = types.RowVar{Name: *inRow}
	default:
		base = types.RowVar{Name: "rest"}
	}
	for _, t := range ts {
		base = types.Push(base, t)
	}
	return base
}

// parseSideEffects parses zero-or-more `Yield Type` side-effect
// annotations, terminated by ')'.
func (p *Parser) parseSideEffects() ([]types.SideEffect, error) {
	var effs []types.SideEffect
	for !p.isType(token.RPAREN) {
		if p.atEnd() {
			return nil, diagnostics.FromToken(diagnostics.CodeUnexpectedEOF, p.cur(),
				"unexpected end of file in side-effect list")
		}
		kw, err := p.expectType(token.IDENT, "side effect")
		if err != nil {
			return nil, err
		}
		if kw.Lexeme != "Yield" {
			return nil, diagnostics.FromToken(diagnostics.CodeExpectedToken, kw,
				"unknown side effect %q, expected 'Yield'", kw.Lexeme)
		}
		typTok, err := p.expectType(token.IDENT, "Yield side effect")
		if err != nil {
			return nil, err
		}
		t, err := p.resolveConcreteOrVar(typTok)
		if err != nil {
			return nil, err
		}
		effs = append(effs, types.SideEffect{Kind: types.Yield, Type: t})
	}
	if len(effs) == 0 {
		return nil, diagnostics.FromToken(diagnostics.CodeExpectedToken, p.cur(),
			"expected at least one effect after '|'")
	}
	return effs, nil
}

// parseTypeListUntil parses a row-variable-then-types sequence until a
// terminator predicate matches, per spec.md §4.2's type-list grammar,
// enforcing the 32-level quotation nesting guard (spec.md §5).
func (p *Parser) parseTypeListUntil(isTerminator func(token.Token) bool, context string, depth int) (*string, []types.Type, error) {
	if depth > maxQuotationDepth {
		return nil, nil, diagnostics.FromToken(diagnostics.CodeNestingTooDeep, p.cur(),
			"quotation type nesting exceeds maximum depth of %d", maxQuotationDepth)
	}

	var rowVar *string
	var ts []types.Type

	for !isTerminator(p.cur()) {
		if p.atEnd() {
			return nil, nil, diagnostics.FromToken(diagnostics.CodeUnexpectedEOF, p.cur(),
				"unexpected end while parsing %s", context)
		}
		tok := p.advance()

		switch {
		case isRowVarLexeme(tok.Lexeme):
			name := tok.Lexeme[2:]
			if err := validateRowVarName(tok, name); err != nil {
				return nil, nil, err
			}
			if rowVar != nil {
				return nil, nil, diagnostics.FromToken(diagnostics.CodeDuplicateRowVar, tok,
					"a row variable may appear at most once per side, already have ..%s", *rowVar)
			}
			rowVar = &name

		case tok.Lexeme == "Closure":
			if _, err := p.expectType(token.LBRACKET, "Closure type"); err != nil {
				return nil, nil, err
			}
			eff, err := p.parseQuotationEffect(depth)
			if err != nil {
				return nil, nil, err
			}
			ts = append(ts, types.Closure{Effect: eff})

		case tok.Type == token.LBRACKET:
			eff, err := p.parseQuotationEffect(depth)
			if err != nil {
				return nil, nil, err
			}
			ts = append(ts, types.Quotation{Effect: eff})

		default:
			t, err := p.resolveConcreteOrVar(tok)
			if err != nil {
				return nil, nil, err
			}
			ts = append(ts, t)
		}
	}
	return rowVar, ts, nil
}

func isRowVarLexeme(s string) bool {
	return len(s) > 2 && s[0] == '.' && s[1] == '.'
}

func validateRowVarName(tok token.Token, name string) error {
	if name == "" {
		return diagnostics.FromToken(diagnostics.CodeMalformedRowVar, tok, "row variable must have a name after '..'")
	}
	if !isLower(name) {
		return diagnostics.FromToken(diagnostics.CodeMalformedRowVar, tok,
			"row variable '..%s' must start with a lowercase letter", name)
	}
	for _, ch := range name {
		if !(ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9' || ch == '_') {
			return diagnostics.FromToken(diagnostics.CodeMalformedRowVar, tok,
				"row variable '..%s' may only contain letters, digits, and underscores", name)
		}
	}
	switch name {
	case "Int", "Float", "Bool", "String":
		return diagnostics.FromToken(diagnostics.CodeMalformedRowVar, tok,
			"row variable '..%s' cannot use a type name as identifier", name)
	}
	return nil
}

// resolveConcreteOrVar classifies a bare type-position token as one of
// the four concrete types or an uppercase type variable.
func (p *Parser) resolveConcreteOrVar(tok token.Token) (types.Type, error) {
	switch tok.Lexeme {
	case "Int":
		return types.Int{}, nil
	case "Float":
		return types.Float{}, nil
	case "Bool":
		return types.Bool{}, nil
	case "String":
		return types.String{}, nil
	default:
		if isUpper(tok.Lexeme) {
			return types.Var{Name: tok.Lexeme}, nil
		}
		return nil, diagnostics.FromToken(diagnostics.CodeExpectedToken, tok,
			"unknown type %q: expected Int, Float, Bool, String, Closure, or an uppercase type variable", tok.Lexeme)
	}
}

// parseQuotationEffect parses `inputs -- outputs]`, the opening '['
// already consumed by the caller.
func (p *Parser) parseQuotationEffect(depth int) (types.Effect, error) {
	inRow, inTypes, err := p.parseTypeListUntil(isDashDash, "quotation type inputs", depth+1)
	if err != nil {
		return types.Effect{}, err
	}
	if !p.isLexeme("--") {
		if p.isType(token.RBRACKET) {
			return types.Effect{}, diagnostics.FromToken(diagnostics.CodeExpectedToken, p.cur(),
				"quotation types require a '--' separator")
		}
		return types.Effect{}, diagnostics.FromToken(diagnostics.CodeExpectedToken, p.cur(),
			"expected '--' separator in quotation type")
	}
	p.advance()

	outRow, outTypes, err := p.parseTypeListUntil(isRBracket, "quotation type outputs", depth+1)
	if err != nil {
		return types.Effect{}, err
	}
	if _, err := p.expectType(token.RBRACKET, "quotation type"); err != nil {
		return types.Effect{}, err
	}

	inputs := buildStackType(inRow, outRow, inTypes, true)
	outputs := buildStackType(inRow, outRow, outTypes, false)
	return types.Effect{Inputs: inputs, Outputs: outputs}, nil
}
