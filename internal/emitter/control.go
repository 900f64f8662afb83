package emitter

import (
	"fmt"
	"strings"

	"github.com/seqc/seqc/internal/ast"
	"github.com/seqc/seqc/internal/diagnostics"
	"github.com/seqc/seqc/internal/types"
)

// branchExit records the exit point of one arm of a branching
// construct that did not terminate its own function, so a merge block
// can phi-select among them (spec.md §4.8 "If/else", "Match").
type branchExit struct {
	label string
	sp    string
}

// emitCond pops the condition value, resolving it to an i1 operand
// from either the register window or the memory stack.
func (fb *funcBuilder) emitCond() string {
	if fb.ensureWindow(1) && fb.window[len(fb.window)-1].kind == "i1" {
		return fb.popWindow().operand
	}
	if len(fb.window) > 0 {
		fb.spill()
	}
	v := fb.popToValue()
	return fb.memOperand(v, "i1")
}

// emitIf lowers a conditional (spec.md §4.8 "If/else"): pops the
// condition, emits then/else blocks independently from a shared
// snapshot, and merges with a phi over stack-pointer unless both
// branches terminated their own function.
func (fb *funcBuilder) emitIf(s *ast.If, tail bool) error {
	cond := fb.emitCond()
	// Values still in the window must reach memory before the branch:
	// each new block starts with an empty window.
	if len(fb.window) > 0 {
		fb.spill()
	}

	thenL := fb.newLabel("if.then")
	elseL := fb.newLabel("if.else")
	mergeL := fb.newLabel("if.merge")

	fb.emit("  br i1 %s, label %%%s, label %%%s", cond, thenL, elseL)
	branchPoint := fb.save()

	fb.emitLabel(thenL)
	if err := fb.emitBody(s.Then, tail); err != nil {
		return err
	}
	var exits []branchExit
	if !fb.terminated {
		exits = append(exits, fb.closeBranch(mergeL))
	}

	fb.restore(branchPoint)
	fb.terminated = false
	fb.emitLabel(elseL)
	if s.Else != nil {
		if err := fb.emitBody(s.Else, tail); err != nil {
			return err
		}
	}
	if !fb.terminated {
		exits = append(exits, fb.closeBranch(mergeL))
	}

	return fb.finishBranches(mergeL, exits)
}

// closeBranch spills the current branch's window, jumps to target, and
// reports the branch's exit label/stack-pointer for phi construction.
func (fb *funcBuilder) closeBranch(target string) branchExit {
	if len(fb.window) > 0 {
		fb.spill()
	}
	fb.emit("  br label %%%s", target)
	return branchExit{label: fb.curLabel, sp: fb.sp}
}

// finishBranches opens the merge block and phi-selects the stack
// pointer from every branch that didn't terminate; if none survived,
// the whole construct terminated and no merge block is needed.
func (fb *funcBuilder) finishBranches(mergeL string, exits []branchExit) error {
	if len(exits) == 0 {
		fb.terminated = true
		return nil
	}
	fb.terminated = false
	fb.emitLabel(mergeL)
	if len(exits) == 1 {
		fb.sp = exits[0].sp
		return nil
	}
	var parts []string
	for _, ex := range exits {
		parts = append(parts, fmt.Sprintf("[ %s, %%%s ]", ex.sp, ex.label))
	}
	newSp := fb.newSSA()
	fb.emit("  %s = phi ptr %s", newSp, strings.Join(parts, ", "))
	fb.sp = newSp
	return nil
}

// emitMatch lowers a match over a tagged union value (spec.md §4.8
// "Match"): pops the scrutinee, switches on its runtime-reported
// variant tag, and for each arm pushes the variant's fields (all of
// them, or just the bound ones) before emitting the arm body.
func (fb *funcBuilder) emitMatch(m *ast.Match, tail bool) error {
	info, err := fb.findMatchUnion(m)
	if err != nil {
		return err
	}

	if len(fb.window) > 0 {
		fb.spill()
	}
	scrutinee := fb.popToValue()
	obj := fb.heapPointerOf(scrutinee)
	tag := fb.newSSA()
	fb.emit("  %s = call i64 @seq_rt_variant_tag(ptr %s)", tag, obj)

	mergeL := fb.newLabel("match.merge")
	defaultL := fb.newLabel("match.unreachable")

	armLabels := make([]string, len(m.Arms))
	for i := range m.Arms {
		armLabels[i] = fb.newLabel("match.arm")
	}

	var cases []string
	for i, arm := range m.Arms {
		vi, _ := info.FindVariant(arm.Variant)
		idx := variantIndex(info, vi.Name)
		cases = append(cases, fmt.Sprintf("i64 %d, label %%%s", idx, armLabels[i]))
	}
	fb.emit("  switch i64 %s, label %%%s [ %s ]", tag, defaultL, strings.Join(cases, " "))
	branchPoint := fb.save()

	var exits []branchExit
	for i, arm := range m.Arms {
		fb.restore(branchPoint)
		fb.terminated = false
		fb.emitLabel(armLabels[i])
		vi, _ := info.FindVariant(arm.Variant)
		fb.pushArmFields(obj, arm, vi)
		if err := fb.emitBody(arm.Body, tail); err != nil {
			return err
		}
		if !fb.terminated {
			exits = append(exits, fb.closeBranch(mergeL))
		}
	}

	fb.emitLabel(defaultL)
	fb.emit("  unreachable")

	return fb.finishBranches(mergeL, exits)
}

// pushArmFields reads the variant's fields (all of them for a bare
// pattern, only the bound ones for a bound pattern, always in
// declaration order) off the runtime variant object and pushes them.
func (fb *funcBuilder) pushArmFields(obj string, arm ast.MatchArm, vi types.VariantInfo) {
	wanted := func(name string) bool { return true }
	if arm.Bound != nil {
		set := map[string]bool{}
		for _, b := range arm.Bound {
			set[b.FieldName] = true
		}
		wanted = func(name string) bool { return set[name] }
	}
	for i, f := range vi.Fields {
		if !wanted(f.Name) {
			continue
		}
		v := fb.newSSA()
		fb.emit("  %s = call %%Value @seq_rt_variant_field(ptr %s, i64 %d)", v, obj, i)
		fb.pushValue(v)
	}
}

func (fb *funcBuilder) findMatchUnion(m *ast.Match) (types.UnionInfo, error) {
	for _, arm := range m.Arms {
		for _, info := range fb.e.res.Unions {
			if _, ok := info.FindVariant(arm.Variant); ok {
				return info, nil
			}
		}
	}
	return types.UnionInfo{}, diagnostics.FromToken(diagnostics.CodeUnknownVariant, m.Token,
		"emitter: match has no arm naming a known variant")
}

func variantIndex(info types.UnionInfo, variant string) int {
	for i, v := range info.Variants {
		if v.Name == variant {
			return i
		}
	}
	return -1
}
