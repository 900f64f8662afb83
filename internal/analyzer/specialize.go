package analyzer

import (
	"github.com/seqc/seqc/internal/ast"
	"github.com/seqc/seqc/internal/builtins"
	"github.com/seqc/seqc/internal/types"
)

// registerWindowCapacity mirrors the emitter's virtual-register window
// size (spec.md §4.7/§4.8): words whose live-value count never exceeds
// this can be emitted entirely in registers, without a spill to the
// tagged-value memory stack.
const registerWindowCapacity = 4

// Specialization records, per word, whether it is eligible for the
// register-only fast path and the maximum number of live values its
// body requires.
type Specialization struct {
	FastPath  bool
	MaxLive   int
}

// ComputeSpecialization runs the scanner described in spec.md §4.7 over
// every word in prog, using the published word-effect and quotation-type
// maps from a prior Check to resolve the primitive-only requirement.
// Grounded on original_source/crates/compiler/src/codegen/specialization.rs's
// structural eligibility walk, generalized to this checker's Result shape.
func ComputeSpecialization(prog *ast.Program, res *Result) map[string]Specialization {
	out := make(map[string]Specialization, len(prog.Words))
	for _, w := range prog.Words {
		out[w.Name] = scanWord(w, res)
	}
	return out
}

func scanWord(w *ast.WordDef, res *Result) Specialization {
	eff, hasEffect := res.WordEffects[w.Name]
	if !hasEffect || !eff.IsPure() || !allPrimitive(eff.Inputs) || !allPrimitive(eff.Outputs) {
		return Specialization{FastPath: false}
	}

	live, eligible := scanBody(w.Body, 0, res)
	return Specialization{FastPath: eligible && live <= registerWindowCapacity, MaxLive: live}
}

// scanBody walks a statement sequence keeping an approximate count of
// live stack values: a literal adds one, a call sets the count to the
// depth of the callee's declared outputs, and an If leaves the count it
// had below its condition, so the count can be lower than the true
// number of live values. It returns false the moment a construct that
// cannot be register-resident is found (string or symbol literal,
// quotation literal, match, an impure call, or a call whose effect is
// not all-primitive unless it is a stack shuffle; pick and roll count
// as shuffles only directly after an integer literal).
func scanBody(body []ast.Statement, live int, res *Result) (maxLive int, eligible bool) {
	maxLive = live
	for i, stmt := range body {
		switch s := stmt.(type) {
		case *ast.IntLiteral, *ast.FloatLiteral, *ast.BoolLiteral:
			live++
		case *ast.StringLiteral, *ast.SymbolLiteral:
			return maxLive, false
		case *ast.WordCall:
			eff, ok := builtins.Table[s.Name]
			if !ok {
				eff, ok = res.WordEffects[s.Name]
			}
			shuffle := false
			switch s.Name {
			case "dup", "drop", "swap", "over", "rot", "nip", "tuck", "2dup", "3drop":
				shuffle = true
			case "pick", "roll":
				if i > 0 {
					_, shuffle = body[i-1].(*ast.IntLiteral)
				}
			}
			if !ok || !eff.IsPure() || (!shuffle && (!allPrimitive(eff.Inputs) || !allPrimitive(eff.Outputs))) {
				return maxLive, false
			}
			live = stackDepth(eff.Outputs)
		case *ast.If:
			restLive := live - 1 // the Bool condition
			thenMax, thenOK := scanBody(s.Then, restLive, res)
			if !thenOK {
				return maxLive, false
			}
			elseMax := restLive
			if s.Else != nil {
				var elseOK bool
				elseMax, elseOK = scanBody(s.Else, restLive, res)
				if !elseOK {
					return maxLive, false
				}
			}
			live = restLive
			if thenMax > maxLive {
				maxLive = thenMax
			}
			if elseMax > maxLive {
				maxLive = elseMax
			}
		default:
			// Quotation and Match are never fast-path eligible: a
			// quotation may become a heap-allocated closure, and match
			// dispatches over a tagged union value, both of which
			// require the full tagged-value representation.
			return maxLive, false
		}
		if live > maxLive {
			maxLive = live
		}
	}
	return maxLive, true
}

func allPrimitive(st types.StackType) bool {
	switch v := st.(type) {
	case types.EmptyStack:
		return true
	case types.RowVar:
		return true
	case types.Cons:
		switch v.Top.(type) {
		case types.Int, types.Float, types.Bool:
			return allPrimitive(v.Rest)
		default:
			return false
		}
	default:
		return false
	}
}

func stackDepth(st types.StackType) int {
	n := 0
	for {
		cons, ok := st.(types.Cons)
		if !ok {
			return n
		}
		n++
		st = cons.Rest
	}
}
