package emitter

import "strings"

// tryInlineShuffle handles the pure stack-shuffle builtins as free
// permutations of the window vector (spec.md §4.8 "stack shuffles are
// permutations of a (ssa_var, register_type) vector"). Returns false
// (no emission performed) when the window doesn't hold enough entries,
// letting the caller fall back to the memory-stack path.
func (fb *funcBuilder) tryInlineShuffle(name string) bool {
	switch name {
	case "drop":
		if !fb.ensureWindow(1) {
			return false
		}
		fb.popWindow()
		return true

	case "dup":
		if !fb.ensureWindow(1) {
			return false
		}
		top := fb.window[len(fb.window)-1]
		fb.pushWindow(top.kind, top.operand) // primitive registers duplicate trivially, never heap-aware
		return true

	case "swap":
		if !fb.ensureWindow(2) {
			return false
		}
		n := len(fb.window)
		fb.window[n-1], fb.window[n-2] = fb.window[n-2], fb.window[n-1]
		return true

	case "over":
		if !fb.ensureWindow(2) {
			return false
		}
		n := len(fb.window)
		fb.pushWindow(fb.window[n-2].kind, fb.window[n-2].operand)
		return true

	case "rot":
		if !fb.ensureWindow(3) {
			return false
		}
		n := len(fb.window)
		fb.window[n-3], fb.window[n-2], fb.window[n-1] = fb.window[n-2], fb.window[n-1], fb.window[n-3]
		return true

	case "nip":
		if !fb.ensureWindow(2) {
			return false
		}
		n := len(fb.window)
		fb.window[n-2] = fb.window[n-1]
		fb.window = fb.window[:n-1]
		return true

	case "tuck":
		if !fb.ensureWindow(2) {
			return false
		}
		n := len(fb.window)
		top, below := fb.window[n-1], fb.window[n-2]
		fb.window[n-2] = top
		fb.window[n-1] = below
		fb.pushWindow(top.kind, top.operand)
		return true

	case "2dup":
		if !fb.ensureWindow(2) {
			return false
		}
		n := len(fb.window)
		a, b := fb.window[n-2], fb.window[n-1]
		fb.pushWindow(a.kind, a.operand)
		fb.pushWindow(b.kind, b.operand)
		return true

	case "3drop":
		if !fb.ensureWindow(3) {
			return false
		}
		fb.window = fb.window[:len(fb.window)-3]
		return true
	}
	return false
}

var intBinOps = map[string]string{
	"i.+": "add", "i.-": "sub", "i.*": "mul",
	"i.and": "and", "i.or": "or", "i.xor": "xor",
}

var intCmpOps = map[string]string{
	"i.<": "slt", "i.>": "sgt", "i.<=": "sle", "i.>=": "sge", "i.=": "eq",
}

var floatBinOps = map[string]string{
	"f.+": "fadd", "f.-": "fsub", "f.*": "fmul", "f./": "fdiv",
}

var floatCmpOps = map[string]string{
	"f.<": "olt", "f.>": "ogt", "f.<=": "ole", "f.>=": "oge", "f.=": "oeq",
}

// tryInlineArith handles arithmetic, comparison, bitwise, shift,
// boolean and aux-stack builtins directly on window entries (spec.md
// §4.8 "Inline specialization of stack/arithmetic ops"), including the
// explicit divide-by-zero guard for i./ and i.% and the shift-count
// clamp.
func (fb *funcBuilder) tryInlineArith(name string) bool {
	if op, ok := intBinOps[name]; ok {
		return fb.binNumeric(op, "i64")
	}
	if op, ok := intCmpOps[name]; ok {
		return fb.cmpNumeric("icmp "+op, "i64")
	}
	if op, ok := floatBinOps[name]; ok {
		return fb.binNumeric(op, "double")
	}
	if op, ok := floatCmpOps[name]; ok {
		return fb.cmpNumeric("fcmp "+op, "double")
	}
	switch name {
	case "i.shl", "i.shr":
		return fb.shiftOp(name)
	case "i.not":
		if !fb.ensureWindow(1) {
			return false
		}
		a := fb.popWindow()
		r := fb.newSSA()
		fb.emit("  %s = xor i64 %s, -1", r, a.operand)
		fb.pushWindow("i64", r)
		return true
	case "i./", "i.%":
		return fb.safeDivide(name)
	case "not":
		if !fb.ensureWindow(1) {
			return false
		}
		a := fb.popWindow()
		r := fb.newSSA()
		fb.emit("  %s = xor i1 %s, true", r, a.operand)
		fb.pushWindow("i1", r)
		return true
	case "and", "or":
		if !fb.ensureWindow(2) {
			return false
		}
		b := fb.popWindow()
		a := fb.popWindow()
		llvmOp := map[string]string{"and": "and", "or": "or"}[name]
		r := fb.newSSA()
		fb.emit("  %s = %s i1 %s, %s", r, llvmOp, a.operand, b.operand)
		fb.pushWindow("i1", r)
		return true
	case ">aux":
		if !fb.ensureWindow(1) {
			return false
		}
		a := fb.popWindow()
		val := fb.buildValue(a)
		base := fb.auxBase()
		newAux := fb.newSSA()
		fb.emit("  %s = call ptr @seq_rt_push(ptr %s, %%Value %s)", newAux, base, val)
		fb.auxSp = newAux
		return true
	case "aux>":
		base := fb.auxBase()
		pair := fb.newSSA()
		fb.emit("  %s = call { ptr, %%Value } @seq_rt_pop(ptr %s)", pair, base)
		newAux := fb.newSSA()
		fb.emit("  %s = extractvalue { ptr, %%Value } %s, 0", newAux, pair)
		fb.auxSp = newAux
		val := fb.newSSA()
		fb.emit("  %s = extractvalue { ptr, %%Value } %s, 1", val, pair)
		// The value's kind is known only at run time, so it goes onto
		// the memory stack whole, discriminant included.
		if len(fb.window) > 0 {
			fb.spill()
		}
		fb.pushValue(val)
		return true
	}
	return false
}

func (fb *funcBuilder) binNumeric(llvmOp, kind string) bool {
	if !fb.ensureWindow(2) {
		return false
	}
	b := fb.popWindow()
	a := fb.popWindow()
	if a.kind != kind || b.kind != kind {
		fb.pushWindow(a.kind, a.operand)
		fb.pushWindow(b.kind, b.operand)
		return false
	}
	r := fb.newSSA()
	fb.emit("  %s = %s %s %s, %s", r, llvmOp, kind, a.operand, b.operand)
	fb.pushWindow(kind, r)
	return true
}

func (fb *funcBuilder) cmpNumeric(llvmCmp, kind string) bool {
	if !fb.ensureWindow(2) {
		return false
	}
	b := fb.popWindow()
	a := fb.popWindow()
	if a.kind != kind || b.kind != kind {
		fb.pushWindow(a.kind, a.operand)
		fb.pushWindow(b.kind, b.operand)
		return false
	}
	r := fb.newSSA()
	parts := strings.SplitN(llvmCmp, " ", 2)
	fb.emit("  %s = %s %s %s %s, %s", r, parts[0], parts[1], kind, a.operand, b.operand)
	fb.pushWindow("i1", r)
	return true
}

func (fb *funcBuilder) shiftOp(name string) bool {
	if !fb.ensureWindow(2) {
		return false
	}
	amount := fb.popWindow()
	val := fb.popWindow()
	if amount.kind != "i64" || val.kind != "i64" {
		fb.pushWindow(val.kind, val.operand)
		fb.pushWindow(amount.kind, amount.operand)
		return false
	}
	inRange := fb.newSSA()
	fb.emit("  %s = icmp ult i64 %s, 64", inRange, amount.operand)
	raw := fb.newSSA()
	llvmOp := map[string]string{"i.shl": "shl", "i.shr": "ashr"}[name]
	fb.emit("  %s = %s i64 %s, %s", raw, llvmOp, val.operand, amount.operand)
	clamped := fb.newSSA()
	fb.emit("  %s = select i1 %s, i64 %s, i64 0", clamped, inRange, raw)
	fb.pushWindow("i64", clamped)
	return true
}

func (fb *funcBuilder) safeDivide(name string) bool {
	if !fb.ensureWindow(2) {
		return false
	}
	b := fb.popWindow()
	a := fb.popWindow()
	if a.kind != "i64" || b.kind != "i64" {
		fb.pushWindow(a.kind, a.operand)
		fb.pushWindow(b.kind, b.operand)
		return false
	}
	isZero := fb.newSSA()
	fb.emit("  %s = icmp eq i64 %s, 0", isZero, b.operand)
	safeDivisor := fb.newSSA()
	fb.emit("  %s = select i1 %s, i64 1, i64 %s", safeDivisor, isZero, b.operand)
	raw := fb.newSSA()
	llvmOp := map[string]string{"i./": "sdiv", "i.%": "srem"}[name]
	fb.emit("  %s = %s i64 %s, %s", raw, llvmOp, a.operand, safeDivisor)
	result := fb.newSSA()
	fb.emit("  %s = select i1 %s, i64 0, i64 %s", result, isZero, raw)
	ok := fb.newSSA()
	fb.emit("  %s = xor i1 %s, true", ok, isZero)
	fb.pushWindow("i64", result)
	fb.pushWindow("i1", ok)
	return true
}

// unpackValueOntoWindow pushes a %Value's payload word onto the window
// as an i64 entry. The discriminant is not read, so a spill of that
// entry tags it as Int whatever kind the value had.
func (fb *funcBuilder) unpackValueOntoWindow(val string) {
	payload := fb.newSSA()
	fb.emit("  %s = extractvalue %%Value %s, 1", payload, val)
	fb.pushWindow("i64", payload)
}
