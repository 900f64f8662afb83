package emitter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/seqc/seqc/internal/analyzer"
	"github.com/seqc/seqc/internal/ast"
	"github.com/seqc/seqc/internal/types"
)

// emitBody lowers a statement sequence, tracking whether each
// statement is in tail position (spec.md §4.8 "Tail position"):
// tailPos is true only for the body's own last statement, and it is
// threaded through so musttail/ret forms are only emitted there.
func (fb *funcBuilder) emitBody(body []ast.Statement, tailPos bool) error {
	i := 0
	for i < len(body) && !fb.terminated {
		last := tailPos && i == len(body)-1

		if lit, ok := body[i].(*ast.IntLiteral); ok && i+1 < len(body) {
			if call, ok := body[i+1].(*ast.WordCall); ok && (call.Name == "pick" || call.Name == "roll") {
				if err := fb.emitPickRollPeephole(call.Name, lit.Value); err != nil {
					return err
				}
				fb.prevStmt = body[i+1]
				i += 2
				continue
			}
		}

		if err := fb.emitStatement(body[i], last); err != nil {
			return err
		}
		fb.prevStmt = body[i]
		i++
	}
	return nil
}

func (fb *funcBuilder) emitStatement(stmt ast.Statement, tail bool) error {
	switch s := stmt.(type) {
	case *ast.IntLiteral:
		fb.pushWindow("i64", formatIntConst(s.Value))
		return nil
	case *ast.FloatLiteral:
		fb.pushWindow("double", formatFloatConst(s.Value))
		return nil
	case *ast.BoolLiteral:
		fb.pushWindow("i1", formatBoolConst(s.Value))
		return nil
	case *ast.StringLiteral:
		return fb.emitStringLiteral(s)
	case *ast.SymbolLiteral:
		return fb.emitSymbolLiteral(s)
	case *ast.WordCall:
		return fb.emitWordCall(s, tail)
	case *ast.If:
		return fb.emitIf(s, tail)
	case *ast.Match:
		return fb.emitMatch(s, tail)
	case *ast.Quotation:
		return fb.emitQuotationLiteral(s)
	default:
		return unhandledStatement(stmt.GetToken(), stmt)
	}
}

func (fb *funcBuilder) emitStringLiteral(s *ast.StringLiteral) error {
	idx := fb.e.strPool[s.Value]
	v := fb.newSSA()
	fb.emit("  %s = call %%Value @seq_rt_make_string(ptr @.str.%d, i64 %d)", v, idx, len(s.Value))
	fb.pushValueDirect(v, tagString)
	return nil
}

func (fb *funcBuilder) emitSymbolLiteral(s *ast.SymbolLiteral) error {
	idx := fb.e.symPool[s.Value]
	v := fb.newSSA()
	fb.emit("  %s = call %%Value @seq_rt_make_symbol(ptr @.sym.%d)", v, idx)
	fb.pushValueDirect(v, tagSymbol)
	return nil
}

// pushValueDirect pushes an already-materialized %Value through the
// memory stack; heap-tagged values never live in the register window.
func (fb *funcBuilder) pushValueDirect(val string, tag int) {
	_ = tag
	fb.pushValue(val)
}

func formatIntConst(v int64) string {
	return strconv.FormatInt(v, 10)
}

// formatFloatConst renders v in LLVM's decimal double-constant syntax,
// which requires a literal decimal point.
func formatFloatConst(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func formatBoolConst(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

// emitWordCall dispatches a call to a builtin or user word: the inline
// shuffle/arithmetic tables first, then the fixed special forms
// (pick/roll, >aux/aux>, call), then opaque runtime builtins, finally
// plain user words (spec.md §4.8).
func (fb *funcBuilder) emitWordCall(call *ast.WordCall, tail bool) error {
	name := call.Name

	// Inlining never emits a ret, so it's always safe regardless of
	// tail position; only the fallback/dispatch below cares about tail.
	if fb.tryInlineShuffle(name) || fb.tryInlineArith(name) {
		return nil
	}

	switch name {
	case "drop", "dup", "swap", "over", "rot", "nip", "tuck", "2dup", "3drop",
		"i.not", "not", "and", "or", ">aux", "aux>":
		return fb.emitShuffleMemoryFallback(name)
	case "pick", "roll":
		return fb.emitPickRollDynamic(name)
	case "i.+", "i.-", "i.*", "i.and", "i.or", "i.xor",
		"i.<", "i.>", "i.<=", "i.>=", "i.=",
		"f.+", "f.-", "f.*", "f./", "f.<", "f.>", "f.<=", "f.>=", "f.=",
		"i.shl", "i.shr", "i./", "i.%":
		// Reached only when the window lacked enough live entries for
		// the inline path above; retry against the memory stack.
		return fb.emitBinaryMemoryFallback(name)
	case "call":
		return fb.emitCall(tail)
	}

	if isOpaqueBuiltin(name) {
		return fb.emitOpaqueCall(name)
	}

	if unionName, vi, ok := fb.findVariant(name); ok {
		return fb.emitVariantConstructor(unionName, vi)
	}

	return fb.emitUserWordCall(name, tail)
}

// findVariant reports the union name and variant info for a synthetic
// "Make-<Variant>" call (spec.md §3's constructor, registered by
// analyzer.Checker.registerVariantConstructors).
func (fb *funcBuilder) findVariant(call string) (string, types.VariantInfo, bool) {
	variant := strings.TrimPrefix(call, "Make-")
	if variant == call {
		return "", types.VariantInfo{}, false
	}
	for name, info := range fb.e.res.Unions {
		if vi, ok := info.FindVariant(variant); ok {
			return name, vi, true
		}
	}
	return "", types.VariantInfo{}, false
}

// emitVariantConstructor pops a variant's fields in declaration order,
// hands them to the runtime's variant allocator, and pushes the result
// tagged as a Union value (spec.md §3's Make-<Variant>, §4.8's
// seq_rt_variant_make accessor).
func (fb *funcBuilder) emitVariantConstructor(unionName string, vi types.VariantInfo) error {
	n := len(vi.Fields)
	if len(fb.window) > 0 {
		fb.spill()
	}
	fields := make([]string, n)
	for i := n - 1; i >= 0; i-- {
		fields[i] = fb.popToValue()
	}
	arr := fb.newSSA()
	fb.emit("  %s = alloca %%Value, i64 %d", arr, n)
	for i, field := range fields {
		slot := fb.newSSA()
		fb.emit("  %s = getelementptr %%Value, ptr %s, i64 %d", slot, arr, i)
		fb.emit("  store %%Value %s, ptr %s", field, slot)
	}
	tag := fb.tagFor(unionName, vi.Name)
	ptr := fb.newSSA()
	fb.emit("  %s = call ptr @seq_rt_variant_make(i64 %d, ptr %s, i64 %d)", ptr, tag, arr, n)
	fb.pushValue(fb.buildHeapValue(tagUnion, ptr))
	return nil
}

// tagFor returns the variant's discriminant within its union: the
// index of its declaration, matching emitMatch's variantIndex so
// construction and pattern dispatch agree on the same numbering.
func (fb *funcBuilder) tagFor(unionName, variant string) int {
	return variantIndex(fb.e.res.Unions[unionName], variant)
}

var opaqueBuiltinSet = func() map[string]bool {
	m := make(map[string]bool, len(opaqueBuiltins))
	for _, n := range opaqueBuiltins {
		m[n] = true
	}
	return m
}()

func isOpaqueBuiltin(name string) bool {
	return opaqueBuiltinSet[name]
}

// emitOpaqueCall spills the window (the runtime needs a real memory
// stack pointer) and calls the builtin's uniform (ptr)->ptr entry.
func (fb *funcBuilder) emitOpaqueCall(name string) error {
	if len(fb.window) > 0 {
		fb.spill()
	}
	newSp := fb.newSSA()
	fb.emit("  %s = call ptr @%s(ptr %s)", newSp, opaqueBuiltinSymbol(name), fb.sp)
	fb.sp = newSp
	return nil
}

// emitUserWordCall calls another word defined in this program. In tail
// position this is a guaranteed tail call (spec.md §4.8); otherwise an
// ordinary call, after spilling so the callee sees a real pointer.
func (fb *funcBuilder) emitUserWordCall(name string, tail bool) error {
	if fb.fastPathRetKind != "" {
		return fb.emitFastPathUserWordCall(name, tail)
	}
	if len(fb.window) > 0 {
		fb.spill()
	}
	sym := userWordSymbol(name)
	if tail {
		r := fb.newSSA()
		fb.emit("  %s = musttail call tailcc ptr @%s(ptr %s)", r, sym, fb.sp)
		fb.emit("  ret ptr %s", r)
		fb.terminated = true
		return nil
	}
	newSp := fb.newSSA()
	fb.emit("  %s = call tailcc ptr @%s(ptr %s)", newSp, sym, fb.sp)
	fb.sp = newSp
	return nil
}

// emitFastPathUserWordCall handles a word call from inside a
// register-convention fast-path function. musttail requires the caller
// and callee to share a return type, and this function's declared
// return type is fb.fastPathRetKind, not ptr, so only a self-recursive
// tail call whose operands are still held directly in the register
// window (matching this function's own parameter kinds) can musttail
// into this same symbol; every other shape, including a tail call to a
// different word, falls back to the ordinary tagged-value call that
// non-tail fast-path calls already use (spec.md §4.7's eligibility
// scan allows a fast-path body to call another word, but only
// self-recursion can share this function's register signature).
func (fb *funcBuilder) emitFastPathUserWordCall(name string, tail bool) error {
	if tail && name == fb.wordName && len(fb.window) == len(fb.fastPathArgKinds) {
		matches := true
		for i, k := range fb.fastPathArgKinds {
			if fb.window[i].kind != k {
				matches = false
				break
			}
		}
		if matches {
			var args []string
			for i, entry := range fb.window {
				args = append(args, fmt.Sprintf("%s %s", fb.fastPathArgKinds[i], entry.operand))
			}
			r := fb.newSSA()
			fb.emit("  %s = musttail call tailcc %s @%s(%s)", r, fb.fastPathRetKind, fb.name, strings.Join(args, ", "))
			fb.emit("  ret %s %s", fb.fastPathRetKind, r)
			fb.terminated = true
			fb.window = nil
			return nil
		}
	}

	if len(fb.window) > 0 {
		fb.spill()
	}
	sym := userWordSymbol(name)
	newSp := fb.newSSA()
	fb.emit("  %s = call tailcc ptr @%s(ptr %s)", newSp, sym, fb.sp)
	fb.sp = newSp
	return nil
}

// emitCall implements the `call` builtin's special-cased tail handling
// (spec.md §4.8 "call in tail position is handled specially"): a plain
// Quotation's impl is called with musttail; a Closure falls back to the
// runtime call helper regardless of position.
func (fb *funcBuilder) emitCall(tail bool) error {
	val := fb.popToValue()
	tag := fb.newSSA()
	fb.emit("  %s = extractvalue %%Value %s, 0", tag, val)

	if !tail {
		return fb.emitCallHelper(val)
	}

	isQuot := fb.newSSA()
	fb.emit("  %s = icmp eq i64 %s, %d", isQuot, tag, tagQuotation)
	quotL := fb.newLabel("call.quot")
	closL := fb.newLabel("call.clos")
	fb.emit("  br i1 %s, label %%%s, label %%%s", isQuot, quotL, closL)

	save := fb.save()

	fb.emitLabel(quotL)
	obj := fb.heapPointerOf(val)
	implPtr := fb.newSSA()
	fb.emit("  %s = call ptr @seq_rt_quotation_impl(ptr %s)", implPtr, obj)
	r := fb.newSSA()
	fb.emit("  %s = musttail call tailcc ptr %s(ptr %s)", r, implPtr, fb.sp)
	fb.emit("  ret ptr %s", r)

	fb.restore(save)
	fb.emitLabel(closL)
	newSp := fb.newSSA()
	fb.emit("  %s = call ptr @seq_rt_call(ptr %s, %%Value %s)", newSp, fb.sp, val)
	fb.sp = newSp
	fb.emit("  ret ptr %s", fb.sp)
	fb.terminated = true
	return nil
}

func (fb *funcBuilder) emitCallHelper(val string) error {
	newSp := fb.newSSA()
	fb.emit("  %s = call ptr @seq_rt_call(ptr %s, %%Value %s)", newSp, fb.sp, val)
	fb.sp = newSp
	return nil
}

// emitShuffleMemoryFallback implements a stack-shuffle builtin against
// the memory stack when the window doesn't hold enough live entries.
// dup consults the statement-type map to decide whether the top is
// known-primitive (cheap copy) or needs the runtime clone helper
// (spec.md §4.8).
func (fb *funcBuilder) emitShuffleMemoryFallback(name string) error {
	if len(fb.window) > 0 {
		fb.spill()
	}
	switch name {
	case "drop":
		fb.popToValue()
	case "dup":
		v := fb.popToValue()
		var dup string
		if fb.topIsTrivial() {
			dup = v
		} else {
			dup = fb.newSSA()
			fb.emit("  %s = call %%Value @seq_rt_clone(%%Value %s)", dup, v)
		}
		fb.pushValue(v)
		fb.pushValue(dup)
	case "swap":
		b := fb.popToValue()
		a := fb.popToValue()
		fb.pushValue(b)
		fb.pushValue(a)
	case "over":
		b := fb.popToValue()
		a := fb.popToValue()
		fb.pushValue(a)
		fb.pushValue(b)
		fb.pushValue(a)
	case "rot":
		c := fb.popToValue()
		b := fb.popToValue()
		a := fb.popToValue()
		fb.pushValue(b)
		fb.pushValue(c)
		fb.pushValue(a)
	case "nip":
		b := fb.popToValue()
		fb.popToValue()
		fb.pushValue(b)
	case "tuck":
		b := fb.popToValue()
		a := fb.popToValue()
		fb.pushValue(b)
		fb.pushValue(a)
		fb.pushValue(b)
	case "2dup":
		b := fb.popToValue()
		a := fb.popToValue()
		fb.pushValue(a)
		fb.pushValue(b)
		fb.pushValue(a)
		fb.pushValue(b)
	case "3drop":
		fb.popToValue()
		fb.popToValue()
		fb.popToValue()
	case "i.not":
		v := fb.popToValue()
		payload := fb.newSSA()
		fb.emit("  %s = extractvalue %%Value %s, 1", payload, v)
		r := fb.newSSA()
		fb.emit("  %s = xor i64 %s, -1", r, payload)
		fb.pushWindow("i64", r)
	case "not":
		v := fb.popToValue()
		payload := fb.newSSA()
		fb.emit("  %s = extractvalue %%Value %s, 1", payload, v)
		b := fb.newSSA()
		fb.emit("  %s = trunc i64 %s to i1", b, payload)
		r := fb.newSSA()
		fb.emit("  %s = xor i1 %s, true", r, b)
		fb.pushWindow("i1", r)
	case "and", "or":
		bv := fb.popToValue()
		av := fb.popToValue()
		ap := fb.newSSA()
		fb.emit("  %s = extractvalue %%Value %s, 1", ap, av)
		bp := fb.newSSA()
		fb.emit("  %s = extractvalue %%Value %s, 1", bp, bv)
		ab := fb.newSSA()
		fb.emit("  %s = trunc i64 %s to i1", ab, ap)
		bb := fb.newSSA()
		fb.emit("  %s = trunc i64 %s to i1", bb, bp)
		llvmOp := map[string]string{"and": "and", "or": "or"}[name]
		r := fb.newSSA()
		fb.emit("  %s = %s i1 %s, %s", r, llvmOp, ab, bb)
		fb.pushWindow("i1", r)
	case ">aux":
		v := fb.popToValue()
		base := fb.auxBase()
		newAux := fb.newSSA()
		fb.emit("  %s = call ptr @seq_rt_push(ptr %s, %%Value %s)", newAux, base, v)
		fb.auxSp = newAux
	case "aux>":
		base := fb.auxBase()
		pair := fb.newSSA()
		fb.emit("  %s = call { ptr, %%Value } @seq_rt_pop(ptr %s)", pair, base)
		newAux := fb.newSSA()
		fb.emit("  %s = extractvalue { ptr, %%Value } %s, 0", newAux, pair)
		fb.auxSp = newAux
		val := fb.newSSA()
		fb.emit("  %s = extractvalue { ptr, %%Value } %s, 1", val, pair)
		fb.pushValue(val)
	}
	return nil
}

// emitBinaryMemoryFallback performs an arithmetic/comparison/shift/
// divide op entirely against the memory stack, for the case where the
// inline window path didn't have both operands resident (spec.md §4.8).
func (fb *funcBuilder) emitBinaryMemoryFallback(name string) error {
	bv := fb.popToValue()
	av := fb.popToValue()
	kind := "i64"
	if _, ok := floatBinOps[name]; ok {
		kind = "double"
	} else if _, ok := floatCmpOps[name]; ok {
		kind = "double"
	}

	a := fb.memOperand(av, kind)
	b := fb.memOperand(bv, kind)

	if op, ok := intBinOps[name]; ok {
		r := fb.newSSA()
		fb.emit("  %s = %s i64 %s, %s", r, op, a, b)
		fb.pushWindow("i64", r)
		return nil
	}
	if op, ok := intCmpOps[name]; ok {
		r := fb.newSSA()
		fb.emit("  %s = icmp %s i64 %s, %s", r, op, a, b)
		fb.pushWindow("i1", r)
		return nil
	}
	if op, ok := floatBinOps[name]; ok {
		r := fb.newSSA()
		fb.emit("  %s = %s double %s, %s", r, op, a, b)
		fb.pushWindow("double", r)
		return nil
	}
	if op, ok := floatCmpOps[name]; ok {
		r := fb.newSSA()
		fb.emit("  %s = fcmp %s double %s, %s", r, op, a, b)
		fb.pushWindow("i1", r)
		return nil
	}
	switch name {
	case "i.shl", "i.shr":
		inRange := fb.newSSA()
		fb.emit("  %s = icmp ult i64 %s, 64", inRange, b)
		raw := fb.newSSA()
		llvmOp := map[string]string{"i.shl": "shl", "i.shr": "ashr"}[name]
		fb.emit("  %s = %s i64 %s, %s", raw, llvmOp, a, b)
		clamped := fb.newSSA()
		fb.emit("  %s = select i1 %s, i64 %s, i64 0", clamped, inRange, raw)
		fb.pushWindow("i64", clamped)
	case "i./", "i.%":
		isZero := fb.newSSA()
		fb.emit("  %s = icmp eq i64 %s, 0", isZero, b)
		safeDivisor := fb.newSSA()
		fb.emit("  %s = select i1 %s, i64 1, i64 %s", safeDivisor, isZero, b)
		raw := fb.newSSA()
		llvmOp := map[string]string{"i./": "sdiv", "i.%": "srem"}[name]
		fb.emit("  %s = %s i64 %s, %s", raw, llvmOp, a, safeDivisor)
		result := fb.newSSA()
		fb.emit("  %s = select i1 %s, i64 0, i64 %s", result, isZero, raw)
		ok := fb.newSSA()
		fb.emit("  %s = xor i1 %s, true", ok, isZero)
		fb.pushWindow("i64", result)
		fb.pushWindow("i1", ok)
	}
	return nil
}

// memOperand extracts val's payload as an operand of the given
// register kind.
func (fb *funcBuilder) memOperand(val, kind string) string {
	payload := fb.newSSA()
	fb.emit("  %s = extractvalue %%Value %s, 1", payload, val)
	switch kind {
	case "double":
		bits := fb.newSSA()
		fb.emit("  %s = bitcast i64 %s to double", bits, payload)
		return bits
	case "i1":
		b := fb.newSSA()
		fb.emit("  %s = trunc i64 %s to i1", b, payload)
		return b
	default:
		return payload
	}
}

// topIsTrivial reports whether the value just popped (the one
// immediately preceding the current emission point, in the original
// statement stream) is known to be an Int/Float/Bool by the published
// statement-type map (spec.md §4.8's dup triviality rule).
func (fb *funcBuilder) topIsTrivial() bool {
	if fb.prevStmt == nil {
		return false
	}
	switch fb.prevStmt.(type) {
	case *ast.IntLiteral, *ast.FloatLiteral, *ast.BoolLiteral:
		return true
	}
	idx, ok := fb.stmtIndex[fb.prevStmt]
	if !ok {
		return false
	}
	top, ok := fb.e.res.StatementTypes[analyzer.StmtKey{Word: fb.wordName, Index: idx}]
	if !ok {
		return false
	}
	switch top.(type) {
	case types.Int, types.Float, types.Bool:
		return true
	default:
		return false
	}
}

// emitPickRollPeephole handles the compile-time-constant case inline
// against the window when possible, falling back to the dynamic memory
// path otherwise (spec.md §4.7, §4.8).
func (fb *funcBuilder) emitPickRollPeephole(name string, n int64) error {
	if n >= 0 && int(n)+1 <= len(fb.window) {
		w := len(fb.window)
		idx := w - 1 - int(n)
		switch name {
		case "pick":
			ent := fb.window[idx]
			fb.pushWindow(ent.kind, ent.operand)
		default: // roll
			ent := fb.window[idx]
			copy(fb.window[idx:], fb.window[idx+1:])
			fb.window[w-1] = ent
		}
		return nil
	}
	return fb.emitPickRollConst(name, n)
}

// emitPickRollConst and emitPickRollDynamic both spill to the memory
// stack and call the runtime helper with either a literal or a
// computed index (spec.md §4.5 "falls back to the general form").
func (fb *funcBuilder) emitPickRollConst(name string, n int64) error {
	if len(fb.window) > 0 {
		fb.spill()
	}
	return fb.emitPickRollMem(name, intToStr(n))
}

func (fb *funcBuilder) emitPickRollDynamic(name string) error {
	if len(fb.window) > 0 {
		fb.spill()
	}
	idxVal := fb.popToValue()
	idx := fb.newSSA()
	fb.emit("  %s = extractvalue %%Value %s, 1", idx, idxVal)
	return fb.emitPickRollMem(name, idx)
}

func (fb *funcBuilder) emitPickRollMem(name, idxOperand string) error {
	switch name {
	case "pick":
		v := fb.newSSA()
		fb.emit("  %s = call %%Value @seq_rt_pick(ptr %s, i64 %s)", v, fb.sp, idxOperand)
		fb.pushValue(v)
	default: // roll
		newSp := fb.newSSA()
		fb.emit("  %s = call ptr @seq_rt_roll(ptr %s, i64 %s)", newSp, fb.sp, idxOperand)
		fb.sp = newSp
	}
	return nil
}

func intToStr(v int64) string {
	return strconv.FormatInt(v, 10)
}

// emitQuotationLiteral constructs the Quotation/Closure value computed
// by the analyzer for this literal (spec.md §4.6), popping its
// captures top-first (the same order as analyzer.checkQuotation's pop
// loop) and calling the matching runtime constructor.
func (fb *funcBuilder) emitQuotationLiteral(q *ast.Quotation) error {
	value, ok := fb.e.res.QuotationTypes[q.ID]
	if !ok {
		return unhandledStatement(q.Token, q)
	}

	wrapperRef := "@" + quotationWrapperSymbol(q.ID)
	implRef := "@" + quotationImplSymbol(q.ID)

	switch v := value.(type) {
	case types.Quotation:
		r := fb.newSSA()
		fb.emit("  %s = call ptr @seq_rt_make_quotation(ptr %s, ptr %s)", r, implRef, wrapperRef)
		fb.pushValue(fb.buildHeapValue(tagQuotation, r))
		return nil
	case types.Closure:
		n := len(v.Captures)
		if len(fb.window) > 0 {
			fb.spill()
		}
		captures := make([]string, n)
		for i := n - 1; i >= 0; i-- {
			captures[i] = fb.popToValue()
		}
		arr := fb.newSSA()
		fb.emit("  %s = alloca %%Value, i64 %d", arr, n)
		for i, capVal := range captures {
			slot := fb.newSSA()
			fb.emit("  %s = getelementptr %%Value, ptr %s, i64 %d", slot, arr, i)
			fb.emit("  store %%Value %s, ptr %s", capVal, slot)
		}
		r := fb.newSSA()
		fb.emit("  %s = call ptr @seq_rt_make_closure(ptr %s, ptr %s, i64 %d)", r, wrapperRef, arr, n)
		fb.pushValue(fb.buildHeapValue(tagClosure, r))
		return nil
	default:
		return unhandledStatement(q.Token, q)
	}
}
