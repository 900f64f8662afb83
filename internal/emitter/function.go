package emitter

import (
	"fmt"

	"github.com/seqc/seqc/internal/ast"
)

// windowCapacity bounds the virtual register window (spec.md §4.8
// "Virtual-register window... capacity 4").
const windowCapacity = 4

// regEntry is one primitive value the window holds directly as an SSA
// operand instead of a memory slot.
type regEntry struct {
	kind    string // "i64" (Int), "double" (Float), "i1" (Bool)
	operand string // an SSA register name or a literal constant
}

func discriminantFor(kind string) int {
	switch kind {
	case "i64":
		return 0
	case "double":
		return 1
	case "i1":
		return 2
	}
	return 0
}

// funcBuilder accumulates one function's IR body, tracking the current
// stack-pointer SSA name, the virtual register window above it, and
// block-local SSA/label counters (spec.md §4.8).
type funcBuilder struct {
	e    *Emitter
	name string

	wordName  string // surface word this function implements, for StatementTypes lookup
	stmtIndex map[ast.Statement]int
	prevStmt  ast.Statement // previous statement in the current body, for the dup triviality check

	// fastPathRetKind/fastPathArgKinds are set only when this
	// funcBuilder is building a register-convention fast-path entry
	// point (emitFastPathWord); empty otherwise. They let
	// emitUserWordCall recognize a same-signature self-recursive tail
	// call and musttail directly into this function's own symbol
	// instead of the tagged-value sibling (spec.md §4.7/§4.8).
	fastPathRetKind  string
	fastPathArgKinds []string

	sp     string
	window []regEntry

	auxSp string // lazily bound on first >aux/aux> use

	ssa        int
	label      int
	lines      []string
	terminated bool
	curLabel   string // name of the basic block currently being emitted into
}

func newFuncBuilder(e *Emitter, name, initialSp string) *funcBuilder {
	return &funcBuilder{e: e, name: name, sp: initialSp}
}

func (fb *funcBuilder) newSSA() string {
	fb.ssa++
	return fmt.Sprintf("%%r%d", fb.ssa)
}

func (fb *funcBuilder) newLabel(prefix string) string {
	fb.label++
	return fmt.Sprintf("%s.%d", prefix, fb.label)
}

// emitLabel opens a new basic block, clearing the window per spec.md
// §4.8 ("the window is also cleared at the start of any new basic
// block") and recording its name so later phi construction can name
// its predecessor correctly.
func (fb *funcBuilder) emitLabel(label string) {
	fb.emit("%s:", label)
	fb.curLabel = label
	fb.clearWindow()
}

func (fb *funcBuilder) emit(format string, args ...interface{}) {
	fb.lines = append(fb.lines, fmt.Sprintf(format, args...))
}

// clearWindow drops the window without spilling: used at the start of
// a new basic block, where no virtual entries survive (spec.md §4.8).
func (fb *funcBuilder) clearWindow() {
	fb.window = nil
}

// pushWindow adds a primitive virtual entry, spilling first if the
// window is already at capacity.
func (fb *funcBuilder) pushWindow(kind, operand string) {
	if len(fb.window) >= windowCapacity {
		fb.spill()
	}
	fb.window = append(fb.window, regEntry{kind: kind, operand: operand})
}

// popWindow removes and returns the top window entry. Callers must
// check ensureWindow(1) first.
func (fb *funcBuilder) popWindow() regEntry {
	n := len(fb.window)
	top := fb.window[n-1]
	fb.window = fb.window[:n-1]
	return top
}

// ensureWindow reports whether at least n entries are currently
// resident in the window (the inline path requires this; callers fall
// back to the memory-stack path otherwise).
func (fb *funcBuilder) ensureWindow(n int) bool {
	return len(fb.window) >= n
}

// spill writes every window entry into the memory stack in order,
// advancing the stack pointer, then empties the window (spec.md §4.8
// "Any operation that needs a real pointer on the stack ... first
// spills the virtual window").
func (fb *funcBuilder) spill() {
	for _, ent := range fb.window {
		v := fb.buildValue(ent)
		newSp := fb.newSSA()
		fb.emit("  %s = call ptr @seq_rt_push(ptr %s, %%Value %s)", newSp, fb.sp, v)
		fb.sp = newSp
	}
	fb.window = nil
}

// buildValue materializes a %Value aggregate literal for a primitive
// register entry (tag at offset 0, payload at offset 1; spec.md §4.8).
func (fb *funcBuilder) buildValue(ent regEntry) string {
	tag := discriminantFor(ent.kind)
	v1 := fb.newSSA()
	fb.emit("  %s = insertvalue %%Value { i64 undef, i64 undef, i64 undef, i64 undef, i64 undef }, i64 %d, 0", v1, tag)
	payload := ent.operand
	switch ent.kind {
	case "double":
		bits := fb.newSSA()
		fb.emit("  %s = bitcast double %s to i64", bits, ent.operand)
		payload = bits
	case "i1":
		ext := fb.newSSA()
		fb.emit("  %s = zext i1 %s to i64", ext, ent.operand)
		payload = ext
	}
	v2 := fb.newSSA()
	fb.emit("  %s = insertvalue %%Value %s, i64 %s, 1", v2, v1, payload)
	return v2
}

// popToValue spills then pops one %Value off the memory stack,
// returning the popped aggregate's SSA name.
func (fb *funcBuilder) popToValue() string {
	if len(fb.window) > 0 {
		fb.spill()
	}
	pair := fb.newSSA()
	fb.emit("  %s = call { ptr, %%Value } @seq_rt_pop(ptr %s)", pair, fb.sp)
	newSp := fb.newSSA()
	fb.emit("  %s = extractvalue { ptr, %%Value } %s, 0", newSp, pair)
	fb.sp = newSp
	val := fb.newSSA()
	fb.emit("  %s = extractvalue { ptr, %%Value } %s, 1", val, pair)
	return val
}

// pushValue pushes an already-materialized %Value onto the memory
// stack.
func (fb *funcBuilder) pushValue(val string) {
	newSp := fb.newSSA()
	fb.emit("  %s = call ptr @seq_rt_push(ptr %s, %%Value %s)", newSp, fb.sp, val)
	fb.sp = newSp
}

// snapshot captures the mutable emission state so a branch can be
// explored and then rolled back to a common point before the other
// branch is emitted (spec.md §4.8 "after spilling, each branch is
// emitted independently").
type snapshot struct {
	sp     string
	window []regEntry
}

func (fb *funcBuilder) save() snapshot {
	w := make([]regEntry, len(fb.window))
	copy(w, fb.window)
	return snapshot{sp: fb.sp, window: w}
}

func (fb *funcBuilder) restore(s snapshot) {
	fb.sp = s.sp
	fb.window = s.window
}

func (fb *funcBuilder) auxBase() string {
	if fb.auxSp == "" {
		v := fb.newSSA()
		fb.emit("  %s = call ptr @seq_rt_aux_base()", v)
		fb.auxSp = v
	}
	return fb.auxSp
}
