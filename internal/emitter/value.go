package emitter

// Heap-value discriminants beyond the three primitive ones handled by
// regEntry (spec.md §4.8 "others = heap tags"). The exact numbering is
// an emitter/runtime agreement; nothing in the surface language
// observes these values directly.
const (
	tagString    = 3
	tagSymbol    = 4
	tagQuotation = 5
	tagClosure   = 6
	tagUnion     = 7
)

// buildHeapValue materializes a %Value whose payload is a pointer,
// tagged with tag (spec.md §4.8 "word 1 holds primitive payload or a
// pointer").
func (fb *funcBuilder) buildHeapValue(tag int, ptrOperand string) string {
	asInt := fb.newSSA()
	fb.emit("  %s = ptrtoint ptr %s to i64", asInt, ptrOperand)
	v1 := fb.newSSA()
	fb.emit("  %s = insertvalue %%Value { i64 undef, i64 undef, i64 undef, i64 undef, i64 undef }, i64 %d, 0", v1, tag)
	v2 := fb.newSSA()
	fb.emit("  %s = insertvalue %%Value %s, i64 %s, 1", v2, v1, asInt)
	return v2
}

// heapPointerOf extracts the payload word of val and recovers it as a
// ptr, the inverse of buildHeapValue.
func (fb *funcBuilder) heapPointerOf(val string) string {
	payload := fb.newSSA()
	fb.emit("  %s = extractvalue %%Value %s, 1", payload, val)
	ptr := fb.newSSA()
	fb.emit("  %s = inttoptr i64 %s to ptr", ptr, payload)
	return ptr
}
