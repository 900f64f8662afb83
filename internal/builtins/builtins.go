// Package builtins holds the static table mapping builtin names to
// stack effects (spec.md §4.4), plus the opaque runtime-declared
// builtins (I/O, channels, string, crypto, regex, ...) that the
// emitter's preamble declares regardless of whether a program uses
// them (spec.md §4.8).
//
// Grounded on the teacher's internal/analyzer/builtins.go pattern of a
// single package-level registration table consulted by both the
// checker and the codegen stage, generalized from funxy's
// general-purpose builtin set to this language's stack-effect table.
package builtins

import "github.com/seqc/seqc/internal/types"

func row(name string) types.StackType { return types.RowVar{Name: name} }

func push(s types.StackType, ts ...types.Type) types.StackType {
	for _, t := range ts {
		s = types.Push(s, t)
	}
	return s
}

func effect(in, out types.StackType) types.Effect {
	return types.Effect{Inputs: in, Outputs: out}
}

func effectYield(in, out types.StackType, yieldType types.Type) types.Effect {
	e := effect(in, out)
	e.SideEffects = []types.SideEffect{{Kind: types.Yield, Type: yieldType}}
	return e
}

var (
	tInt    = types.Int{}
	tFloat  = types.Float{}
	tBool   = types.Bool{}
	tString = types.String{}
)

// Table maps a builtin's source name to its effect, unrowed (i.e. as
// declared once; callers must freshen row/type variables before use,
// per spec.md §4.4: "For each call the table's entry is freshened").
var Table = buildTable()

// IsBuiltin reports whether name is a known builtin.
func IsBuiltin(name string) bool {
	_, ok := Table[name]
	return ok
}

func buildTable() map[string]types.Effect {
	t := map[string]types.Effect{}

	// --- stack shuffles ---
	t["dup"] = effect(push(row("a"), types.Var{Name: "T"}), push(row("a"), types.Var{Name: "T"}, types.Var{Name: "T"}))
	t["drop"] = effect(push(row("a"), types.Var{Name: "T"}), row("a"))
	t["swap"] = effect(
		push(row("a"), types.Var{Name: "T"}, types.Var{Name: "U"}),
		push(row("a"), types.Var{Name: "U"}, types.Var{Name: "T"}),
	)
	t["over"] = effect(
		push(row("a"), types.Var{Name: "T"}, types.Var{Name: "U"}),
		push(row("a"), types.Var{Name: "T"}, types.Var{Name: "U"}, types.Var{Name: "T"}),
	)
	t["rot"] = effect(
		push(row("a"), types.Var{Name: "T"}, types.Var{Name: "U"}, types.Var{Name: "V"}),
		push(row("a"), types.Var{Name: "U"}, types.Var{Name: "V"}, types.Var{Name: "T"}),
	)
	t["nip"] = effect(
		push(row("a"), types.Var{Name: "T"}, types.Var{Name: "U"}),
		push(row("a"), types.Var{Name: "U"}),
	)
	t["tuck"] = effect(
		push(row("a"), types.Var{Name: "T"}, types.Var{Name: "U"}),
		push(row("a"), types.Var{Name: "U"}, types.Var{Name: "T"}, types.Var{Name: "U"}),
	)
	t["2dup"] = effect(
		push(row("a"), types.Var{Name: "T"}, types.Var{Name: "U"}),
		push(row("a"), types.Var{Name: "T"}, types.Var{Name: "U"}, types.Var{Name: "T"}, types.Var{Name: "U"}),
	)
	t["3drop"] = effect(
		push(row("a"), types.Var{Name: "T"}, types.Var{Name: "U"}, types.Var{Name: "V"}),
		row("a"),
	)
	// pick/roll: ( ..a ... n:Int -- ..a ... x ) / ( ..a ... n:Int -- ..a ...' )
	// The general, non-peephole case permits the row variable to
	// unify with a fresh element; the peephole in the analyzer
	// resolves constant n directly against the concrete stack shape.
	t["pick"] = effect(push(row("a"), tInt), push(row("a"), types.Var{Name: "X"}))
	t["roll"] = effect(push(row("a"), tInt), row("a"))

	// --- arithmetic ---
	for _, op := range []string{"i.+", "i.-", "i.*"} {
		t[op] = effect(push(row("a"), tInt, tInt), push(row("a"), tInt))
	}
	for _, op := range []string{"i./", "i.%"} {
		t[op] = effect(push(row("a"), tInt, tInt), push(row("a"), tInt, tBool))
	}
	for _, op := range []string{"i.<", "i.>", "i.<=", "i.>=", "i.="} {
		t[op] = effect(push(row("a"), tInt, tInt), push(row("a"), tBool))
	}
	for _, op := range []string{"f.+", "f.-", "f.*", "f./"} {
		t[op] = effect(push(row("a"), tFloat, tFloat), push(row("a"), tFloat))
	}
	for _, op := range []string{"f.<", "f.>", "f.<=", "f.>=", "f.="} {
		t[op] = effect(push(row("a"), tFloat, tFloat), push(row("a"), tBool))
	}

	// --- bitwise / shifts (Int only) ---
	for _, op := range []string{"i.and", "i.or", "i.xor", "i.shl", "i.shr"} {
		t[op] = effect(push(row("a"), tInt, tInt), push(row("a"), tInt))
	}
	t["i.not"] = effect(push(row("a"), tInt), push(row("a"), tInt))

	// --- boolean ---
	t["not"] = effect(push(row("a"), tBool), push(row("a"), tBool))
	t["and"] = effect(push(row("a"), tBool, tBool), push(row("a"), tBool))
	t["or"] = effect(push(row("a"), tBool, tBool), push(row("a"), tBool))

	// --- auxiliary stack (supplemented feature, see SPEC_FULL.md) ---
	t[">aux"] = effect(push(row("a"), types.Var{Name: "T"}), row("a"))
	t["aux>"] = effect(row("a"), push(row("a"), types.Var{Name: "T"}))

	// --- quotation invocation ---
	t["call"] = effect(
		push(row("a"), types.Quotation{Effect: effect(row("a"), row("b"))}),
		row("b"),
	)

	// --- opaque, runtime-declared effects: declared only, not
	// type-specified beyond a maximally row-polymorphic shape, since
	// their concrete behavior lives in the runtime collaborator
	// (spec.md §1, §6). ---
	t["io.write-line"] = effect(push(row("a"), tString), row("a"))
	t["io.write"] = effect(push(row("a"), tString), row("a"))
	t["io.read-line"] = effectYield(row("a"), push(row("a"), tString, tBool), tString)

	t["chan.make"] = effect(row("a"), push(row("a"), types.Var{Name: "Chan"}))
	t["chan.send"] = effectYield(push(row("a"), types.Var{Name: "Chan"}, types.Var{Name: "T"}), row("a"), types.Var{Name: "T"})
	t["chan.receive"] = effectYield(push(row("a"), types.Var{Name: "Chan"}), push(row("a"), types.Var{Name: "T"}, tBool), types.Var{Name: "T"})
	t["chan.close"] = effect(push(row("a"), types.Var{Name: "Chan"}), row("a"))

	t["spawn"] = effect(push(row("a"), types.Quotation{Effect: effect(types.EmptyStack{}, types.EmptyStack{})}), row("a"))
	t["yield"] = effectYield(row("a"), row("a"), tBool)

	t["str.len"] = effect(push(row("a"), tString), push(row("a"), tInt))
	t["str.concat"] = effect(push(row("a"), tString, tString), push(row("a"), tString))
	t["str.split"] = effect(push(row("a"), tString, tString), push(row("a"), types.Var{Name: "StringList"}))

	t["crypto.sha256"] = effect(push(row("a"), tString), push(row("a"), tString))
	t["regex.match"] = effect(push(row("a"), tString, tString), push(row("a"), tBool))
	t["gzip.compress"] = effect(push(row("a"), tString), push(row("a"), tString))
	t["net.connect"] = effectYield(push(row("a"), tString), push(row("a"), types.Var{Name: "Chan"}, tBool), tString)
	t["time.now"] = effect(row("a"), push(row("a"), tInt))
	t["test.assert"] = effect(push(row("a"), tBool, tString), row("a"))

	return t
}

// OpaqueEffect is the effect the analyzer gives external builtins
// registered from a CompilerConfig: those get a single fixed
// "ptr -> ptr" effect, expressed at the stack-shape level as
// ( ..ext_in -- ..ext_out ) with two unrelated row variables, since
// the config does not express a typed signature for them (spec.md §6).
func OpaqueEffect() types.Effect {
	return effect(row("ext_in"), row("ext_out"))
}
