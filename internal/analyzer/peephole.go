package analyzer

import (
	"github.com/seqc/seqc/internal/ast"
	"github.com/seqc/seqc/internal/diagnostics"
	"github.com/seqc/seqc/internal/types"
)

// checkPickRollPeephole resolves a literal-int-then-pick/roll pair
// atomically against the concrete stack shape (spec.md §4.5 "Special
// peephole"). When the stack bottoms into an open row before n layers
// are peeled, it falls back to a fresh type variable for the unknown
// element rather than failing, keeping the overall shape well-defined.
func (c *Checker) checkPickRollPeephole(call *ast.WordCall, n int64, stack types.StackType) (types.StackType, error) {
	if n < 0 {
		return nil, diagnostics.FromToken(diagnostics.CodeStackMismatch, call.Token,
			"%s: depth must be non-negative, got %d", call.Name, n)
	}

	elems, base, ok := peelTopDown(stack, int(n)+1)
	if !ok {
		// Row variable reached before n+1 elements were concrete:
		// invent a fresh element type for the unresolved depth rather
		// than rejecting the program.
		x := types.Var{Name: c.freshName("pick_elem")}
		switch call.Name {
		case "pick":
			return types.Push(stack, x), nil
		default: // roll
			return stack, nil
		}
	}

	target := elems[n] // elems[0] is the current top
	switch call.Name {
	case "pick":
		return types.Push(stack, target), nil
	default: // roll
		newStack := base
		for i := int(n) - 1; i >= 0; i-- {
			newStack = types.Push(newStack, elems[i])
		}
		return types.Push(newStack, target), nil
	}
}

// peelTopDown returns the top n elements of st (elems[0] is the
// current top) and the stack beneath them. ok is false if st bottoms
// into a row variable or the empty stack before n elements are found.
func peelTopDown(st types.StackType, n int) (elems []types.Type, base types.StackType, ok bool) {
	cur := st
	for i := 0; i < n; i++ {
		cons, isCons := cur.(types.Cons)
		if !isCons {
			return nil, nil, false
		}
		elems = append(elems, cons.Top)
		cur = cons.Rest
	}
	return elems, cur, true
}
