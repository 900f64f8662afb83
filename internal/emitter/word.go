package emitter

import (
	"fmt"

	"github.com/seqc/seqc/internal/ast"
	"github.com/seqc/seqc/internal/types"
)

// emitWord emits one user word's stack-convention function: tailcc for
// every word except "main", which the runtime invokes via a plain C
// function pointer and so uses the platform default convention
// (spec.md §4.8 "Calling conventions"). Tail calls out of "main" are
// therefore never musttail, since musttail requires the caller and
// callee conventions to agree.
func (e *Emitter) emitWord(w *ast.WordDef) error {
	isMain := w.Name == "main"
	sym := userWordSymbol(w.Name)

	fb := newFuncBuilder(e, sym, "%sp0")
	fb.wordName = w.Name
	fb.stmtIndex = buildStmtIndex(w.Body)

	if isMain {
		fb.emit("define ptr @%s(ptr %%sp0) {", sym)
	} else {
		fb.emit("define tailcc ptr @%s(ptr %%sp0) {", sym)
	}
	fb.emitLabel("entry")

	tailEligible := !isMain
	if err := fb.emitBody(w.Body, tailEligible); err != nil {
		return err
	}
	fb.finishFunction()

	e.flushFunc(fb)
	return nil
}

// finishFunction closes out a function body that didn't already
// terminate via a tail-call ret: spills any resident window entries
// and returns the final stack pointer.
func (fb *funcBuilder) finishFunction() {
	if fb.terminated {
		return
	}
	if len(fb.window) > 0 {
		fb.spill()
	}
	fb.emit("  ret ptr %s", fb.sp)
}

func (e *Emitter) flushFunc(fb *funcBuilder) {
	for _, l := range fb.lines {
		e.line("%s", l)
	}
	e.line("}")
	e.line("")
}

// emitQuotations emits every quotation literal collected from the
// program: a bare Quotation gets a tailcc impl plus a thin
// C-convention wrapper (the musttail target and the runtime-callable
// entry point, respectively); a Closure gets a single C-convention
// function that first reconstructs its captured values onto the real
// stack, since closures are not TCO'd in this revision (spec.md §4.8).
func (e *Emitter) emitQuotations() error {
	ids := make([]uint64, 0, len(e.quotations))
	for id := range e.quotations {
		ids = append(ids, id)
	}
	sortUint64s(ids)

	for _, id := range ids {
		q := e.quotations[id]
		value, ok := e.res.QuotationTypes[id]
		if !ok {
			return unhandledStatement(q.Token, q)
		}
		switch v := value.(type) {
		case types.Quotation:
			if err := e.emitBareQuotation(id, q); err != nil {
				return err
			}
		case types.Closure:
			if err := e.emitClosureBody(id, q, v); err != nil {
				return err
			}
		default:
			return unhandledStatement(q.Token, q)
		}
	}
	return nil
}

func (e *Emitter) emitBareQuotation(id uint64, q *ast.Quotation) error {
	implSym := quotationImplSymbol(id)
	wrapperSym := quotationWrapperSymbol(id)

	impl := newFuncBuilder(e, implSym, "%sp0")
	impl.wordName = fmt.Sprintf("quotation$%d", id)
	impl.stmtIndex = buildStmtIndex(q.Body)
	impl.emit("define tailcc ptr @%s(ptr %%sp0) {", implSym)
	impl.emitLabel("entry")
	if err := impl.emitBody(q.Body, true); err != nil {
		return err
	}
	impl.finishFunction()
	e.flushFunc(impl)

	wrapper := newFuncBuilder(e, wrapperSym, "%sp0")
	wrapper.emit("define ptr @%s(ptr %%sp0) {", wrapperSym)
	wrapper.emitLabel("entry")
	r := wrapper.newSSA()
	wrapper.emit("  %s = call tailcc ptr @%s(ptr %%sp0)", r, implSym)
	wrapper.emit("  ret ptr %s", r)
	wrapper.terminated = true
	e.flushFunc(wrapper)

	return nil
}

func (e *Emitter) emitClosureBody(id uint64, q *ast.Quotation, value types.Closure) error {
	sym := quotationWrapperSymbol(id)
	n := len(value.Captures)

	fb := newFuncBuilder(e, sym, "%sp0")
	fb.wordName = fmt.Sprintf("quotation$%d", id)
	fb.stmtIndex = buildStmtIndex(q.Body)
	fb.emit("define ptr @%s(ptr %%env, ptr %%sp0) {", sym)
	fb.emitLabel("entry")

	sp := "%sp0"
	for i := 0; i < n; i++ {
		slot := fb.newSSA()
		fb.emit("  %s = getelementptr %%Value, ptr %%env, i64 %d", slot, i)
		val := fb.newSSA()
		fb.emit("  %s = load %%Value, ptr %s", val, slot)
		newSp := fb.newSSA()
		fb.emit("  %s = call ptr @seq_rt_push(ptr %s, %%Value %s)", newSp, sp, val)
		sp = newSp
	}
	fb.sp = sp

	// Closures are not TCO'd in this revision: the body is emitted with
	// tail position disabled so `call`/user-word calls inside it never
	// attempt a musttail (spec.md §4.8).
	if err := fb.emitBody(q.Body, false); err != nil {
		return err
	}
	fb.finishFunction()
	e.flushFunc(fb)
	return nil
}

func sortUint64s(xs []uint64) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j-1] > xs[j]; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
}
