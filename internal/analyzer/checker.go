// Package analyzer implements the Hindley-Milner-style type checker
// over row-polymorphic stack types (spec.md §4.5), the quotation
// capture analysis (§4.6), and the specialization scanner (§4.7).
//
// Grounded on the teacher's internal/analyzer package shape (a single
// Checker/Analyzer struct owning an env map, a union/type registry,
// and a fresh-variable counter, walked in three passes — see
// internal/analyzer/declarations.go + inference*.go in the teacher),
// generalized from funxy's expression-and-trait inference to this
// language's stack-effect inference, and directly grounded on
// original_source/crates/compiler/src/typechecker.rs for the pass
// structure (register unions, register word effects, check bodies)
// and fresh-variable naming scheme ("prefix$counter").
package analyzer

import (
	"fmt"

	"github.com/seqc/seqc/internal/ast"
	"github.com/seqc/seqc/internal/builtins"
	"github.com/seqc/seqc/internal/diagnostics"
	"github.com/seqc/seqc/internal/token"
	"github.com/seqc/seqc/internal/types"
	"github.com/seqc/seqc/internal/unify"
)

// StmtKey identifies one statement's position for the published
// top-of-stack type map (spec.md §2: "(word, statement-index) -> top
// of stack type map used for dup-fast-path specialization").
type StmtKey struct {
	Word  string
	Index int
}

// Result is everything the analyzer publishes for the emitter to
// consume (spec.md §2's two maps), plus the resolved union registry
// the emitter needs for match-arm tag dispatch.
type Result struct {
	QuotationTypes map[uint64]types.Type
	StatementTypes map[StmtKey]types.Type
	Unions         map[string]types.UnionInfo
	WordEffects    map[string]types.Effect
}

// Checker performs all three passes of spec.md §4.5 over one Program.
type Checker struct {
	env   map[string]types.Effect
	declared map[string]bool // words with an explicit effect (vs. a placeholder)
	unions map[string]types.UnionInfo

	fresh int

	quotationTypes map[uint64]types.Type
	statementTypes map[StmtKey]types.Type

	currentWord  string
	stmtCounter  int
}

func NewChecker() *Checker {
	return &Checker{
		env:            map[string]types.Effect{},
		declared:       map[string]bool{},
		unions:         map[string]types.UnionInfo{},
		quotationTypes: map[uint64]types.Type{},
		statementTypes: map[StmtKey]types.Type{},
	}
}

// RegisterExternalWords installs additional word signatures (e.g. the
// external builtins named in a CompilerConfig, spec.md §6) so calls to
// them type-check as ordinary user words.
func (c *Checker) RegisterExternalWords(names []string) {
	for _, name := range names {
		c.env[name] = builtins.OpaqueEffect()
		c.declared[name] = true
	}
}

// FFISignature is an FFI-bound word's primitive argument/return shape
// (spec.md §6 "FFI bindings object"), expressed independently of
// internal/config so this package never needs to import it.
type FFISignature struct {
	Args    []string // each "int", "float", or "bool"
	Returns string
}

func ffiPrimitive(kind string) (types.Type, error) {
	switch kind {
	case "int":
		return types.Int{}, nil
	case "float":
		return types.Float{}, nil
	case "bool":
		return types.Bool{}, nil
	default:
		return nil, fmt.Errorf("unsupported ffi primitive kind %q", kind)
	}
}

// toEffect builds ( ..r a1 a2 .. -- ..r ret ), the convention every
// other builtin effect follows: a row variable at the bottom so the
// binding can be called with unrelated values already on the stack.
func (s FFISignature) toEffect(rowName string) (types.Effect, error) {
	in := types.StackType(types.RowVar{Name: rowName})
	for _, a := range s.Args {
		t, err := ffiPrimitive(a)
		if err != nil {
			return types.Effect{}, err
		}
		in = types.Push(in, t)
	}
	ret, err := ffiPrimitive(s.Returns)
	if err != nil {
		return types.Effect{}, err
	}
	out := types.Push(types.StackType(types.RowVar{Name: rowName}), ret)
	return types.NewEffect(in, out), nil
}

// RegisterFFIBindings installs a typed stack effect for each FFI-bound
// word named in sigs, built from its declared primitive argument/
// return kinds (spec.md §6). Unlike RegisterExternalWords' single
// opaque ptr->ptr effect, these type-check like any other word with a
// concrete signature.
func (c *Checker) RegisterFFIBindings(sigs map[string]FFISignature) error {
	for name, sig := range sigs {
		eff, err := sig.toEffect(c.freshName("ffi"))
		if err != nil {
			return diagnostics.New(diagnostics.CodeUnsupportedFFI, token.Position{},
				"ffi binding %q: %s", name, err.Error())
		}
		c.env[name] = eff
		c.declared[name] = true
	}
	return nil
}

func (c *Checker) freshName(prefix string) string {
	n := c.fresh
	c.fresh++
	return fmt.Sprintf("%s$%d", prefix, n)
}

// Check runs all three passes over prog and returns the published
// maps, or the first diagnostic encountered (spec.md §7: "the first
// error aborts compilation").
func (c *Checker) Check(prog *ast.Program) (*Result, error) {
	if err := c.registerUnions(prog); err != nil {
		return nil, err
	}
	c.registerVariantConstructors(prog)
	c.registerWordEffects(prog)

	for _, w := range prog.Words {
		if err := c.checkWord(w); err != nil {
			return nil, err
		}
	}

	effects := make(map[string]types.Effect, len(c.env))
	for k, v := range c.env {
		effects[k] = v
	}
	return &Result{
		QuotationTypes: c.quotationTypes,
		StatementTypes: c.statementTypes,
		Unions:         c.unions,
		WordEffects:    effects,
	}, nil
}

// registerUnions is pass 1: turns declared field type names into
// Type values, resolving union names to Union(name) and rejecting
// unknown names. A field may reference a primitive or any union
// registered so far (including its own, for self-referential tagged
// structures), per spec.md §3's "previously declarable union names".
func (c *Checker) registerUnions(prog *ast.Program) error {
	seenName := map[string]bool{}
	for _, u := range prog.Unions {
		if seenName[u.Name] {
			return diagnostics.FromToken(diagnostics.CodeDeclarationMismatch, u.Token,
				"union %q declared more than once", u.Name)
		}
		seenName[u.Name] = true
		c.unions[u.Name] = types.UnionInfo{Name: u.Name}
	}

	for _, u := range prog.Unions {
		info := types.UnionInfo{Name: u.Name}
		variantNameSeen := map[string]bool{}
		for _, v := range u.Variants {
			if variantNameSeen[v.Name] {
				return diagnostics.FromToken(diagnostics.CodeDeclarationMismatch, u.Token,
					"duplicate variant name %q in union %q", v.Name, u.Name)
			}
			variantNameSeen[v.Name] = true
			if owner, ok := c.variantOwner(v.Name); ok && owner != u.Name {
				return diagnostics.FromToken(diagnostics.CodeAmbiguousVariant, u.Token,
					"variant name %q is ambiguous: declared in both %q and %q", v.Name, owner, u.Name)
			}

			vi := types.VariantInfo{Name: v.Name}
			for _, f := range v.Fields {
				ft, err := c.resolveFieldType(u.Token, f.TypeName)
				if err != nil {
					return err
				}
				vi.Fields = append(vi.Fields, types.VariantField{Name: f.Name, Type: ft})
			}
			info.Variants = append(info.Variants, vi)
		}
		c.unions[u.Name] = info
	}
	return nil
}

// registerVariantConstructors gives each declared variant a synthetic
// "Make-<Variant>" word (spec.md §3 "a synthetic constructor
// Make-<Variant> is conceptually available for each variant", used
// directly in §8 scenario 4's worked example). Its effect pops the
// variant's fields in declaration order and pushes the union value:
// ( ..r field1 .. fieldN -- ..r Union ).
func (c *Checker) registerVariantConstructors(prog *ast.Program) {
	for _, u := range prog.Unions {
		info := c.unions[u.Name]
		for _, vi := range info.Variants {
			row := c.freshName("ctor")
			var in types.StackType = types.RowVar{Name: row}
			for _, f := range vi.Fields {
				in = types.Push(in, f.Type)
			}
			out := types.Push(types.RowVar{Name: row}, types.Union{Name: u.Name})
			c.env["Make-"+vi.Name] = types.Effect{Inputs: in, Outputs: out}
			c.declared["Make-"+vi.Name] = true
		}
	}
}

func (c *Checker) variantOwner(variant string) (string, bool) {
	for name, info := range c.unions {
		for _, v := range info.Variants {
			if v.Name == variant {
				return name, true
			}
		}
	}
	return "", false
}

func (c *Checker) resolveFieldType(tok token.Token, typeName string) (types.Type, error) {
	switch typeName {
	case "Int":
		return types.Int{}, nil
	case "Float":
		return types.Float{}, nil
	case "Bool":
		return types.Bool{}, nil
	case "String":
		return types.String{}, nil
	default:
		if _, ok := c.unions[typeName]; ok {
			return types.Union{Name: typeName}, nil
		}
		return nil, diagnostics.FromToken(diagnostics.CodeUnknownType, tok,
			"unknown field type %q", typeName)
	}
}

// registerWordEffects is pass 2: words without a declared effect get
// the most general placeholder ( ..in -- ..out ) so forward references
// type-check (spec.md §4.5).
func (c *Checker) registerWordEffects(prog *ast.Program) {
	for _, w := range prog.Words {
		if w.Effect != nil {
			c.env[w.Name] = *w.Effect
			c.declared[w.Name] = true
		} else {
			in := c.freshName("in_" + w.Name)
			out := c.freshName("out_" + w.Name)
			c.env[w.Name] = types.Effect{Inputs: types.RowVar{Name: in}, Outputs: types.RowVar{Name: out}}
			c.declared[w.Name] = false
		}
	}
}

// findVariant returns (unionName, fields) for a registered variant.
func (c *Checker) findVariant(name string) (string, types.VariantInfo, bool) {
	for uname, info := range c.unions {
		if vi, ok := info.FindVariant(name); ok {
			return uname, vi, true
		}
	}
	return "", types.VariantInfo{}, false
}

// checkWord infers w's body and, if it declared an effect, unifies
// the final inferred stack with the declared output (spec.md §4.5
// "Final check").
func (c *Checker) checkWord(w *ast.WordDef) error {
	c.currentWord = w.Name
	c.stmtCounter = 0

	declaredEffect := c.env[w.Name]
	startStack := declaredEffect.Inputs
	if !c.declared[w.Name] {
		startStack = types.RowVar{Name: c.freshName("in_" + w.Name)}
	}

	finalStack, _, err := c.checkBody(w.Body, startStack)
	if err != nil {
		return err
	}

	if c.declared[w.Name] {
		if _, err := unify.UnifyStacks(finalStack, declaredEffect.Outputs); err != nil {
			return diagnostics.FromToken(diagnostics.CodeStackMismatch, w.Token,
				"word %q: declared output (%s) does not match inferred output (%s): %s",
				w.Name, declaredEffect.Outputs, finalStack, err.Error())
		}
	}
	return nil
}

// checkBody infers a statement sequence starting from stack, threading
// a substitution and recording each visited statement's resulting
// top-of-stack type (spec.md §4.5 "Body checking").
func (c *Checker) checkBody(body []ast.Statement, stack types.StackType) (types.StackType, unify.Subst, error) {
	sub := unify.New()
	i := 0
	for i < len(body) {
		// Peephole: literal int immediately preceding pick/roll is
		// checked atomically (spec.md §4.5 "Special peephole").
		if lit, ok := body[i].(*ast.IntLiteral); ok && i+1 < len(body) {
			if call, ok := body[i+1].(*ast.WordCall); ok && (call.Name == "pick" || call.Name == "roll") {
				newStack, err := c.checkPickRollPeephole(call, lit.Value, stack)
				if err != nil {
					return nil, nil, err
				}
				c.recordStmtType(i, stack)
				c.recordStmtType(i+1, newStack)
				stack = newStack
				i += 2
				continue
			}
		}

		newStack, s2, err := c.checkStatement(body[i], stack)
		if err != nil {
			return nil, nil, err
		}
		sub = unify.Compose(s2, sub)
		stack = newStack
		c.recordStmtType(i, stack)
		i++
	}
	return stack, sub, nil
}

func (c *Checker) recordStmtType(idx int, stack types.StackType) {
	key := StmtKey{Word: c.currentWord, Index: c.stmtCounter}
	c.stmtCounter++
	if cons, ok := stack.(types.Cons); ok && cons.Top != nil {
		c.statementTypes[key] = cons.Top
		return
	}
	delete(c.statementTypes, key)
}

func (c *Checker) checkStatement(stmt ast.Statement, stack types.StackType) (types.StackType, unify.Subst, error) {
	switch s := stmt.(type) {
	case *ast.IntLiteral:
		return types.Push(stack, types.Int{}), unify.New(), nil
	case *ast.FloatLiteral:
		return types.Push(stack, types.Float{}), unify.New(), nil
	case *ast.BoolLiteral:
		return types.Push(stack, types.Bool{}), unify.New(), nil
	case *ast.StringLiteral:
		return types.Push(stack, types.String{}), unify.New(), nil
	case *ast.SymbolLiteral:
		// Symbols have no dedicated Type in spec.md §3's closed type
		// set; they type as String and differ from strings only in
		// runtime interning (spec.md §4.8), not in the type system.
		return types.Push(stack, types.String{}), unify.New(), nil
	case *ast.WordCall:
		return c.checkWordCall(s, stack)
	case *ast.If:
		return c.checkIf(s, stack)
	case *ast.Match:
		return c.checkMatch(s, stack)
	case *ast.Quotation:
		return c.checkQuotation(s, stack)
	default:
		return nil, nil, diagnostics.New(diagnostics.CodeUnknownWord, token.Position{},
			"internal error: unhandled statement type %T", stmt)
	}
}

func (c *Checker) checkWordCall(call *ast.WordCall, stack types.StackType) (types.StackType, unify.Subst, error) {
	eff, ok := builtins.Table[call.Name]
	if !ok {
		eff, ok = c.env[call.Name]
	}
	if !ok {
		return nil, nil, diagnostics.FromToken(diagnostics.CodeUnknownWord, call.Token,
			"unknown word %q", call.Name)
	}
	fresh := c.freshenEffect(eff)

	// Fresh callee variables go on the left so they bind to the current
	// stack's own row and type variables, not the other way round;
	// otherwise the word's declared input row would be renamed away and
	// the final declared-output check could no longer see it.
	s1, err := unify.UnifyStacks(fresh.Inputs, stack)
	if err != nil {
		return nil, nil, diagnostics.FromToken(diagnostics.CodeStackMismatch, call.Token,
			"call to %q: %s (stack was %s, expected %s)", call.Name, err.Error(), stack, fresh.Inputs)
	}
	out := unify.ApplyStack(s1, fresh.Outputs)
	return out, s1, nil
}

// freshenEffect renames all type and row variables in eff to globally
// fresh names, so two calls to the same builtin in one body never
// share a variable (spec.md §4.4, §8 "Effect freshening is capture-safe").
func (c *Checker) freshenEffect(eff types.Effect) types.Effect {
	typeMap := map[string]string{}
	rowMap := map[string]string{}
	return types.Effect{
		Inputs:      c.freshenStack(eff.Inputs, typeMap, rowMap),
		Outputs:     c.freshenStack(eff.Outputs, typeMap, rowMap),
		SideEffects: eff.SideEffects,
	}
}

func (c *Checker) freshenStack(st types.StackType, typeMap, rowMap map[string]string) types.StackType {
	switch v := st.(type) {
	case types.EmptyStack:
		return v
	case types.RowVar:
		fresh, ok := rowMap[v.Name]
		if !ok {
			fresh = c.freshName(v.Name)
			rowMap[v.Name] = fresh
		}
		return types.RowVar{Name: fresh}
	case types.Cons:
		return types.Cons{Rest: c.freshenStack(v.Rest, typeMap, rowMap), Top: c.freshenType(v.Top, typeMap, rowMap)}
	default:
		return st
	}
}

func (c *Checker) freshenType(t types.Type, typeMap, rowMap map[string]string) types.Type {
	switch v := t.(type) {
	case types.Var:
		fresh, ok := typeMap[v.Name]
		if !ok {
			fresh = c.freshName(v.Name)
			typeMap[v.Name] = fresh
		}
		return types.Var{Name: fresh}
	case types.Quotation:
		return types.Quotation{Effect: types.Effect{
			Inputs:  c.freshenStack(v.Effect.Inputs, typeMap, rowMap),
			Outputs: c.freshenStack(v.Effect.Outputs, typeMap, rowMap),
		}}
	case types.Closure:
		caps := make([]types.Type, len(v.Captures))
		for i, cap := range v.Captures {
			caps[i] = c.freshenType(cap, typeMap, rowMap)
		}
		return types.Closure{Effect: types.Effect{
			Inputs:  c.freshenStack(v.Effect.Inputs, typeMap, rowMap),
			Outputs: c.freshenStack(v.Effect.Outputs, typeMap, rowMap),
		}, Captures: caps}
	default:
		return t
	}
}

func (c *Checker) checkIf(s *ast.If, stack types.StackType) (types.StackType, unify.Subst, error) {
	rest, s0, err := c.popType(stack, types.Bool{}, s.Token, "if")
	if err != nil {
		return nil, nil, err
	}

	thenResult, sThen, err := c.checkBody(s.Then, rest)
	if err != nil {
		return nil, nil, err
	}

	var elseResult types.StackType
	var sElse unify.Subst
	if s.Else != nil {
		elseResult, sElse, err = c.checkBody(s.Else, rest)
		if err != nil {
			return nil, nil, err
		}
	} else {
		elseResult = rest
		sElse = unify.New()
	}

	sU, err := unify.UnifyStacks(thenResult, elseResult)
	if err != nil {
		return nil, nil, diagnostics.FromToken(diagnostics.CodeBranchMismatch, s.Token,
			"if/else branches produce different stacks: then=%s else=%s (%s)", thenResult, elseResult, err.Error())
	}
	final := unify.ApplyStack(sU, thenResult)
	composed := unify.Compose(sU, unify.Compose(sElse, unify.Compose(sThen, s0)))
	return final, composed, nil
}

func (c *Checker) popType(stack types.StackType, want types.Type, tok token.Token, context string) (types.StackType, unify.Subst, error) {
	cons, ok := stack.(types.Cons)
	if !ok {
		// allow popping through an open row variable by inventing a
		// fresh stack shape
		if rv, ok := stack.(types.RowVar); ok {
			restName := c.freshName(rv.Name + "_r")
			newRest := types.RowVar{Name: restName}
			s, err := unify.UnifyStacks(stack, types.Push(newRest, want))
			if err != nil {
				return nil, nil, diagnostics.FromToken(diagnostics.CodeRowUnderflow, tok,
					"%s: row underflow: %s", context, err.Error())
			}
			return newRest, s, nil
		}
		return nil, nil, diagnostics.FromToken(diagnostics.CodeStackMismatch, tok,
			"%s: expected a value on the stack, found empty stack", context)
	}
	s, err := unify.UnifyTypes(cons.Top, want)
	if err != nil {
		return nil, nil, diagnostics.FromToken(diagnostics.CodeStackMismatch, tok,
			"%s: expected %s on top of stack, found %s", context, want, cons.Top)
	}
	return unify.ApplyStack(s, cons.Rest), s, nil
}
