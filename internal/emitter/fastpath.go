package emitter

import (
	"fmt"
	"strings"

	"github.com/seqc/seqc/internal/ast"
	"github.com/seqc/seqc/internal/types"
)

// emitFastPaths emits the additional register-convention entry point
// for every word analyzer.ComputeSpecialization marked eligible
// (spec.md §4.7, §4.8 "Fast-path specialization"). Only words whose
// declared effect has exactly one output are emitted this revision;
// multi-value returns need a struct-return extension this compiler
// doesn't implement yet.
func (e *Emitter) emitFastPaths() error {
	for _, w := range e.prog.Words {
		spec := e.spec[w.Name]
		if !spec.FastPath {
			continue
		}
		eff := e.res.WordEffects[w.Name]
		if stackDepth(eff.Outputs) != 1 {
			continue
		}
		if err := e.emitFastPathWord(w, eff); err != nil {
			return err
		}
	}
	return nil
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

// stackKinds returns st's concrete element kinds in bottom-to-top
// order (the same order the source's `( a b -- c )` declaration
// reads), ignoring any row variable at the base.
func stackKinds(st types.StackType) []string {
	var topDown []string
	cur := st
	for {
		cons, ok := cur.(types.Cons)
		if !ok {
			break
		}
		topDown = append(topDown, registerKind(cons.Top))
		cur = cons.Rest
	}
	out := make([]string, len(topDown))
	for i, k := range topDown {
		out[len(topDown)-1-i] = k
	}
	return out
}

func registerKind(t types.Type) string {
	switch t.(type) {
	case types.Float:
		return "double"
	case types.Bool:
		return "i1"
	default:
		return "i64"
	}
}

// emitFastPathWord emits a register-in/register-out sibling of w's
// ordinary stack-convention function. Its body reuses the same
// funcBuilder machinery as the stack path; a scratch stack obtained
// from the runtime backs any call to another word that the
// specialization scanner allowed through (self-recursion or a call to
// any word with a pure, all-primitive effect, whether or not that word
// is itself specializable), since those still go through the
// ordinary tagged-value calling convention (spec.md §4.7's eligibility
// doesn't require callees to also be fast-path entry points).
func (e *Emitter) emitFastPathWord(w *ast.WordDef, eff types.Effect) error {
	argKinds := stackKinds(eff.Inputs)
	retKind := stackKinds(eff.Outputs)[0]
	sym := userWordSymbol(w.Name) + fastPathSuffix(argKinds, retKind)

	fb := newFuncBuilder(e, sym, "")
	fb.wordName = w.Name
	fb.stmtIndex = buildStmtIndex(w.Body)
	fb.fastPathRetKind = retKind
	fb.fastPathArgKinds = argKinds

	var params []string
	for i, k := range argKinds {
		reg := fmt.Sprintf("%%a%d", i)
		params = append(params, fmt.Sprintf("%s %s", k, reg))
	}
	fb.emit("define tailcc %s @%s(%s) {", retKind, sym, strings.Join(params, ", "))
	fb.emitLabel("entry")
	for i, k := range argKinds {
		fb.window = append(fb.window, regEntry{kind: k, operand: fmt.Sprintf("%%a%d", i)})
	}

	base := fb.newSSA()
	fb.emit("  %s = call ptr @seq_rt_stack_base()", base)
	fb.sp = base

	// Mirror emitWord's tail-position rule so a trailing self-recursive
	// call is recognized as a tail call (spec.md §4.8 "recursive calls
	// emit tail calls with musttail when in tail position"). A fast path
	// is built for "main" when main declares a single primitive output
	// (e.g. ( -- Int )); its body then gets no tail position, as in
	// emitWord, for the same reason: musttail requires matching
	// conventions, and emitWordCall's
	// fast-path-aware dispatch only takes the true-musttail branch for a
	// same-signature self-recursive call; anything else still falls back
	// to the ordinary tagged-value call so no mismatched-return-type IR
	// is ever emitted.
	tailEligible := w.Name != "main"
	if err := fb.emitBody(w.Body, tailEligible); err != nil {
		return err
	}

	if !fb.terminated {
		var result string
		if len(fb.window) >= 1 {
			result = fb.window[len(fb.window)-1].operand
		} else {
			v := fb.popToValue()
			result = fb.memOperand(v, retKind)
		}
		fb.emit("  ret %s %s", retKind, result)
	}

	e.flushFunc(fb)
	return nil
}
