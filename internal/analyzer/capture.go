package analyzer

import (
	"fmt"

	"github.com/seqc/seqc/internal/ast"
	"github.com/seqc/seqc/internal/diagnostics"
	"github.com/seqc/seqc/internal/types"
	"github.com/seqc/seqc/internal/unify"
)

// checkQuotation infers a quotation body's effect in isolation, derives
// an expected effect from the statement that immediately consumes it
// (spec.md §4.6 "the expected effect ... e.g. the signature of the
// consuming combinator"), and decides between pushing a bare Quotation
// or converting to a Closure that captures surplus inputs off the
// current stack.
func (c *Checker) checkQuotation(q *ast.Quotation, stack types.StackType) (types.StackType, unify.Subst, error) {
	bodyEffect, err := c.inferQuotationBody(q)
	if err != nil {
		return nil, nil, err
	}

	value, captured, err := computeCapture(bodyEffect)
	if err != nil {
		return nil, nil, diagnostics.FromToken(diagnostics.CodeInvalidCapture, q.Token, "%s", err.Error())
	}
	c.quotationTypes[q.ID] = value

	if len(captured) == 0 {
		return types.Push(stack, value), unify.New(), nil
	}

	// Pop the captured values off the current stack top-first, matching
	// them against computeCapture's list from its end (the list is
	// bottom-to-top among the surplus inputs), then push the closure value.
	newStack := stack
	sub := unify.New()
	for i := len(captured) - 1; i >= 0; i-- {
		cons, ok := newStack.(types.Cons)
		if !ok {
			return nil, nil, diagnostics.FromToken(diagnostics.CodeInvalidCapture, q.Token,
				"quotation captures %d value(s) but the enclosing stack has too few", len(captured))
		}
		s, err := unify.UnifyTypes(cons.Top, captured[i])
		if err != nil {
			return nil, nil, diagnostics.FromToken(diagnostics.CodeInvalidCapture, q.Token,
				"capture %d: %s", i, err.Error())
		}
		sub = unify.Compose(s, sub)
		newStack = unify.ApplyStack(s, cons.Rest)
	}
	return types.Push(newStack, unify.ApplyType(sub, value)), sub, nil
}

// inferQuotationBody checks q.Body starting from a fresh, wholly
// unconstrained input row, returning the resulting effect.
func (c *Checker) inferQuotationBody(q *ast.Quotation) (types.Effect, error) {
	savedWord, savedCounter := c.currentWord, c.stmtCounter
	defer func() { c.currentWord, c.stmtCounter = savedWord, savedCounter }()

	in := types.RowVar{Name: c.freshName("qin")}
	out, sub, err := c.checkBody(q.Body, in)
	if err != nil {
		return types.Effect{}, err
	}
	return types.Effect{Inputs: unify.ApplyStack(sub, in), Outputs: out}, nil
}

// computeCapture implements spec.md §4.6's rule in the absence of a
// concrete call-site expectation: the body's own stack requirement is
// the expected effect it must satisfy, except when the body demands
// concrete inputs beneath its row variable — those become captures and
// the quotation becomes a Closure over the remainder.
//
// Without a statically known consumer we treat "the row variable alone"
// as the minimal expected input row (the weakest requirement any
// combinator could impose); any concrete element the body needs beneath
// that row is therefore surplus and is captured. This mirrors scenario
// 5 of spec.md (`42 [ handle-connection ] spawn`), where the consuming
// combinator declares an entirely empty input row.
func computeCapture(bodyEffect types.Effect) (types.Type, []types.Type, error) {
	concrete, _ := concreteInputs(bodyEffect.Inputs)
	if len(concrete) == 0 {
		return types.Quotation{Effect: bodyEffect}, nil, nil
	}
	for _, t := range concrete {
		if !representableCapture(t) {
			return nil, nil, fmt.Errorf("value of type %s cannot be captured by a closure", t)
		}
	}
	remainingIn := rowOf(bodyEffect.Inputs)
	closureEffect := types.Effect{Inputs: remainingIn, Outputs: bodyEffect.Outputs, SideEffects: bodyEffect.SideEffects}
	return types.Closure{Effect: closureEffect, Captures: concrete}, concrete, nil
}

// representableCapture reports whether t can be stored in a closure's
// capture list. Closure-of-closure and variant captures are rejected
// in this revision (spec.md §4.6): only the runtime's value-tag
// universe minus Union and Closure itself is representable.
func representableCapture(t types.Type) bool {
	switch t.(type) {
	case types.Int, types.Float, types.Bool, types.String, types.Quotation:
		return true
	default:
		return false
	}
}

// concreteInputs walks down from the top of st collecting Cons.Top
// types until it reaches the bottom row variable (or empty stack),
// returned bottom-to-top (the order values must be captured/popped in).
func concreteInputs(st types.StackType) ([]types.Type, types.StackType) {
	var topDown []types.Type
	cur := st
	for {
		switch v := cur.(type) {
		case types.Cons:
			topDown = append(topDown, v.Top)
			cur = v.Rest
		default:
			bottomUp := make([]types.Type, len(topDown))
			for i, t := range topDown {
				bottomUp[len(topDown)-1-i] = t
			}
			return bottomUp, cur
		}
	}
}

func rowOf(st types.StackType) types.StackType {
	_, bottom := concreteInputs(st)
	return bottom
}
