package analyzer

import (
	"sort"

	"github.com/seqc/seqc/internal/ast"
	"github.com/seqc/seqc/internal/diagnostics"
	"github.com/seqc/seqc/internal/types"
	"github.com/seqc/seqc/internal/unify"
)

// checkMatch pops a union-typed scrutinee, checks each arm against the
// fields it pushes, unifies the arms' results, and enforces
// exhaustiveness over the scrutinee's registered variants (spec.md §4.5).
func (c *Checker) checkMatch(m *ast.Match, stack types.StackType) (types.StackType, unify.Subst, error) {
	cons, ok := stack.(types.Cons)
	if !ok {
		return nil, nil, diagnostics.FromToken(diagnostics.CodeStackMismatch, m.Token,
			"match: expected a union value on the stack, found empty stack")
	}
	scrutinee, ok := cons.Top.(types.Union)
	if !ok {
		return nil, nil, diagnostics.FromToken(diagnostics.CodeStackMismatch, m.Token,
			"match: expected a union value on top of stack, found %s", cons.Top)
	}
	info, ok := c.unions[scrutinee.Name]
	if !ok {
		return nil, nil, diagnostics.FromToken(diagnostics.CodeUnknownType, m.Token,
			"match: unknown union %q", scrutinee.Name)
	}
	base := cons.Rest

	var result types.StackType
	var acc unify.Subst = unify.New()
	seenVariant := map[string]bool{}

	for _, arm := range m.Arms {
		vi, ok := info.FindVariant(arm.Variant)
		if !ok {
			return nil, nil, diagnostics.FromToken(diagnostics.CodeUnknownVariant, m.Token,
				"match: %q has no variant %q", scrutinee.Name, arm.Variant)
		}
		if seenVariant[arm.Variant] {
			return nil, nil, diagnostics.FromToken(diagnostics.CodeDeclarationMismatch, m.Token,
				"match: duplicate arm for variant %q", arm.Variant)
		}
		seenVariant[arm.Variant] = true

		armStack, err := c.pushArmFields(m, arm, vi, base)
		if err != nil {
			return nil, nil, err
		}

		armResult, sArm, err := c.checkBody(arm.Body, armStack)
		if err != nil {
			return nil, nil, err
		}
		acc = unify.Compose(sArm, acc)

		if result == nil {
			result = armResult
			continue
		}
		su, err := unify.UnifyStacks(result, armResult)
		if err != nil {
			return nil, nil, diagnostics.FromToken(diagnostics.CodeBranchMismatch, m.Token,
				"match: arm for %q produces a different stack than earlier arms: %s", arm.Variant, err.Error())
		}
		result = unify.ApplyStack(su, result)
		acc = unify.Compose(su, acc)
	}

	if missing := missingVariants(info, seenVariant); len(missing) > 0 {
		sort.Strings(missing)
		return nil, nil, diagnostics.FromToken(diagnostics.CodeNonExhaustiveMatch, m.Token,
			"match over %q is not exhaustive: missing variant(s) %v", scrutinee.Name, missing)
	}

	return result, acc, nil
}

// pushArmFields pushes a variant's fields onto base: all of them, in
// declaration order, for a bare pattern; only the named ones, still in
// declaration order, for a bound pattern (spec.md §4.5).
func (c *Checker) pushArmFields(m *ast.Match, arm ast.MatchArm, vi types.VariantInfo, base types.StackType) (types.StackType, error) {
	if arm.Bound == nil {
		st := base
		for _, f := range vi.Fields {
			st = types.Push(st, f.Type)
		}
		return st, nil
	}

	wanted := map[string]bool{}
	for _, b := range arm.Bound {
		wanted[b.FieldName] = true
	}
	st := base
	found := map[string]bool{}
	for _, f := range vi.Fields {
		if wanted[f.Name] {
			st = types.Push(st, f.Type)
			found[f.Name] = true
		}
	}
	for name := range wanted {
		if !found[name] {
			return nil, diagnostics.FromToken(diagnostics.CodeBadMatchBinding, m.Token,
				"match arm %q: %q is not a field of variant %q", arm.Variant, name, arm.Variant)
		}
	}
	return st, nil
}

func missingVariants(info types.UnionInfo, seen map[string]bool) []string {
	var missing []string
	for _, v := range info.Variants {
		if !seen[v.Name] {
			missing = append(missing, v.Name)
		}
	}
	return missing
}
