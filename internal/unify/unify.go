package unify

import (
	"fmt"

	"github.com/seqc/seqc/internal/types"
)

// Error is a one-line explanation naming the position where matching
// broke; callers (the analyzer) wrap it with operator and stack
// context per spec.md §4.3.
type Error struct {
	msg string
}

func (e *Error) Error() string { return e.msg }

func errf(format string, args ...interface{}) error {
	return &Error{msg: fmt.Sprintf(format, args...)}
}

// UnifyTypes follows standard occurs-checked HM unification, with the
// extension that Quotation and Closure unify structurally on their
// effects and, for Closure, pointwise on their capture lists.
func UnifyTypes(a, b types.Type) (Subst, error) {
	switch at := a.(type) {
	case types.Var:
		return bindTypeOccursChecked(at.Name, b)
	}
	switch bt := b.(type) {
	case types.Var:
		return bindTypeOccursChecked(bt.Name, a)
	}

	switch at := a.(type) {
	case types.Int:
		if _, ok := b.(types.Int); ok {
			return New(), nil
		}
	case types.Float:
		if _, ok := b.(types.Float); ok {
			return New(), nil
		}
	case types.Bool:
		if _, ok := b.(types.Bool); ok {
			return New(), nil
		}
	case types.String:
		if _, ok := b.(types.String); ok {
			return New(), nil
		}
	case types.Union:
		if bu, ok := b.(types.Union); ok && bu.Name == at.Name {
			return New(), nil
		}
	case types.Quotation:
		if bq, ok := b.(types.Quotation); ok {
			return UnifyEffects(at.Effect, bq.Effect)
		}
		// A bare Quotation position accepts a Closure of the same
		// effect: a declared parameter like spawn's `Quotation[ -- ]`
		// imposes no constraint on captures, so a closure produced by
		// capture analysis (spec.md §4.6) satisfies it on effect alone.
		if bc, ok := b.(types.Closure); ok {
			return UnifyEffects(at.Effect, bc.Effect)
		}
	case types.Closure:
		if bq, ok := b.(types.Quotation); ok {
			return UnifyEffects(at.Effect, bq.Effect)
		}
		if bc, ok := b.(types.Closure); ok {
			s1, err := UnifyEffects(at.Effect, bc.Effect)
			if err != nil {
				return nil, err
			}
			if len(at.Captures) != len(bc.Captures) {
				return nil, errf("closure capture count mismatch: %d vs %d", len(at.Captures), len(bc.Captures))
			}
			acc := s1
			for i := range at.Captures {
				s2, err := UnifyTypes(ApplyType(acc, at.Captures[i]), ApplyType(acc, bc.Captures[i]))
				if err != nil {
					return nil, err
				}
				acc = Compose(s2, acc)
			}
			return acc, nil
		}
	}
	return nil, errf("cannot unify %s with %s", a.String(), b.String())
}

func bindTypeOccursChecked(name string, t types.Type) (Subst, error) {
	if tv, ok := t.(types.Var); ok && tv.Name == name {
		return New(), nil
	}
	if occursInType(name, t) {
		return nil, errf("occurs check failed: %s occurs in %s", name, t.String())
	}
	return bindType(name, t), nil
}

func occursInType(name string, t types.Type) bool {
	switch v := t.(type) {
	case types.Var:
		return v.Name == name
	case types.Quotation:
		return occursInEffect(name, v.Effect)
	case types.Closure:
		if occursInEffect(name, v.Effect) {
			return true
		}
		for _, c := range v.Captures {
			if occursInType(name, c) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func occursInEffect(name string, e types.Effect) bool {
	return occursInStack(name, e.Inputs) || occursInStack(name, e.Outputs)
}

func occursInStack(name string, st types.StackType) bool {
	switch v := st.(type) {
	case types.Cons:
		return occursInType(name, v.Top) || occursInStack(name, v.Rest)
	default:
		return false
	}
}

// UnifyEffects unifies two effects' input and output stacks in turn,
// composing the resulting substitutions.
func UnifyEffects(a, b types.Effect) (Subst, error) {
	s1, err := UnifyStacks(a.Inputs, b.Inputs)
	if err != nil {
		return nil, err
	}
	s2, err := UnifyStacks(ApplyStack(s1, a.Outputs), ApplyStack(s1, b.Outputs))
	if err != nil {
		return nil, err
	}
	return Compose(s2, s1), nil
}

// UnifyStacks proceeds top-down, peeling matching top elements. A row
// variable unifies with any tail, subject to the occurs check; two
// distinct row variables are unified by binding the left to the right
// (deterministic to keep error messages stable).
func UnifyStacks(a, b types.StackType) (Subst, error) {
	switch av := a.(type) {
	case types.RowVar:
		return bindRowOccursChecked(av.Name, b)
	case types.EmptyStack:
		switch b.(type) {
		case types.EmptyStack:
			return New(), nil
		case types.RowVar:
			return bindRowOccursChecked(b.(types.RowVar).Name, a)
		default:
			return nil, errf("stack underflow: expected more elements, got %s", b.String())
		}
	case types.Cons:
		switch bv := b.(type) {
		case types.RowVar:
			return bindRowOccursChecked(bv.Name, a)
		case types.EmptyStack:
			return nil, errf("stack underflow: expected empty stack, got %s", a.String())
		case types.Cons:
			s1, err := UnifyTypes(av.Top, bv.Top)
			if err != nil {
				return nil, errf("top-of-stack mismatch: %s", err.Error())
			}
			s2, err := UnifyStacks(ApplyStack(s1, av.Rest), ApplyStack(s1, bv.Rest))
			if err != nil {
				return nil, err
			}
			return Compose(s2, s1), nil
		}
	}
	return nil, errf("cannot unify stacks %s and %s", a.String(), b.String())
}

func bindRowOccursChecked(name string, st types.StackType) (Subst, error) {
	if rv, ok := st.(types.RowVar); ok && rv.Name == name {
		return New(), nil
	}
	if FreeRowVars(st)[name] {
		return nil, errf("occurs check failed: row variable ..%s occurs in %s", name, st.String())
	}
	return bindRow(name, st), nil
}
