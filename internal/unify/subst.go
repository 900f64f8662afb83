// Package unify implements substitution application and unification
// over the row-polymorphic stack types in internal/types.
//
// Grounded on the teacher's internal/typesystem/unify.go (co-inductive
// cycle guard, occurs check via free-variable walk, deterministic
// left-binds-to-right tie-break) generalized from typesystem.Type's
// record/trait universe to types.Type's stack-effect universe.
package unify

import (
	"github.com/seqc/seqc/internal/types"
)

// Subst is a finite map composed of a type-variable substitution and
// a row-variable substitution. Both halves are applied together by
// ApplyType/ApplyStack.
type Subst struct {
	Types map[string]types.Type
	Rows  map[string]types.StackType
}

func New() Subst {
	return Subst{Types: map[string]types.Type{}, Rows: map[string]types.StackType{}}
}

// Compose returns a substitution equivalent to applying b and then a
// (Compose(a, b) applies b beneath a, per spec.md §3).
func Compose(a, b Subst) Subst {
	out := New()
	for k, v := range b.Types {
		out.Types[k] = ApplyType(a, v)
	}
	for k, v := range a.Types {
		if _, exists := out.Types[k]; !exists {
			out.Types[k] = v
		}
	}
	for k, v := range b.Rows {
		out.Rows[k] = ApplyStack(a, v)
	}
	for k, v := range a.Rows {
		if _, exists := out.Rows[k]; !exists {
			out.Rows[k] = v
		}
	}
	return out
}

func bindType(name string, t types.Type) Subst {
	s := New()
	s.Types[name] = t
	return s
}

func bindRow(name string, s types.StackType) Subst {
	sub := New()
	sub.Rows[name] = s
	return sub
}

// ApplyType walks t and rewrites free type/row variables through s.
func ApplyType(s Subst, t types.Type) types.Type {
	return applyTypeVisited(s, t, map[string]bool{})
}

func applyTypeVisited(s Subst, t types.Type, visited map[string]bool) types.Type {
	switch v := t.(type) {
	case types.Var:
		if visited[v.Name] {
			return v
		}
		if repl, ok := s.Types[v.Name]; ok {
			visited2 := cloneVisited(visited)
			visited2[v.Name] = true
			return applyTypeVisited(s, repl, visited2)
		}
		return v
	case types.Quotation:
		return types.Quotation{Effect: applyEffect(s, v.Effect, visited)}
	case types.Closure:
		caps := make([]types.Type, len(v.Captures))
		for i, c := range v.Captures {
			caps[i] = applyTypeVisited(s, c, visited)
		}
		return types.Closure{Effect: applyEffect(s, v.Effect, visited), Captures: caps}
	default:
		return t
	}
}

func applyEffect(s Subst, e types.Effect, visited map[string]bool) types.Effect {
	return types.Effect{
		Inputs:      applyStackVisited(s, e.Inputs, visited),
		Outputs:     applyStackVisited(s, e.Outputs, visited),
		SideEffects: e.SideEffects,
	}
}

// ApplyStack is the stack-type analog of ApplyType. When a row
// variable is rewritten to a bound stack, splicing occurs: the
// substituted sequence is grafted in place of the row variable.
func ApplyStack(s Subst, st types.StackType) types.StackType {
	return applyStackVisited(s, st, map[string]bool{})
}

func applyStackVisited(s Subst, st types.StackType, visited map[string]bool) types.StackType {
	switch v := st.(type) {
	case types.EmptyStack:
		return v
	case types.RowVar:
		if visited[v.Name] {
			return v
		}
		if repl, ok := s.Rows[v.Name]; ok {
			visited2 := cloneVisited(visited)
			visited2[v.Name] = true
			return applyStackVisited(s, repl, visited2)
		}
		return v
	case types.Cons:
		return types.Cons{
			Rest: applyStackVisited(s, v.Rest, visited),
			Top:  applyTypeVisited(s, v.Top, visited),
		}
	default:
		return st
	}
}

func cloneVisited(v map[string]bool) map[string]bool {
	out := make(map[string]bool, len(v)+1)
	for k, val := range v {
		out[k] = val
	}
	return out
}

// FreeRowVars returns the set of row-variable names free in st.
func FreeRowVars(st types.StackType) map[string]bool {
	out := map[string]bool{}
	collectFreeRowVars(st, out)
	return out
}

func collectFreeRowVars(st types.StackType, out map[string]bool) {
	switch v := st.(type) {
	case types.RowVar:
		out[v.Name] = true
	case types.Cons:
		collectFreeRowVars(v.Rest, out)
	}
}
