// Package emitter generates a textual LLVM IR module from a checked
// program (spec.md §4.8): a tagged-value stack abstraction, guaranteed
// tail calls via `tailcc`/`musttail`, a virtual-register window for
// primitive fast paths, and a fixed runtime-ABI declaration table.
//
// Grounded on the teacher's internal/backend/vmbackend.go as the
// "lower a checked program into a concrete target" staging idiom
// (one package, one exported entry point, internal helper files per
// concern), generalized from funxy's bytecode target to LLVM IR text,
// with the concrete instruction choices grounded directly on
// original_source/crates/compiler/src/codegen/{mod,runtime,specialization}.rs.
package emitter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/seqc/seqc/internal/analyzer"
	"github.com/seqc/seqc/internal/ast"
	"github.com/seqc/seqc/internal/config"
	"github.com/seqc/seqc/internal/diagnostics"
	"github.com/seqc/seqc/internal/token"
)

// valueTypeDecl is the 40-byte tagged value record every stack slot
// holds (spec.md §4.8 "Value representation").
const valueTypeDecl = "%Value = type { i64, i64, i64, i64, i64 }"

// Emitter owns the module-level state (string/symbol pools, emitted
// quotation ids) shared across all per-word code generation.
type Emitter struct {
	prog        *ast.Program
	res         *analyzer.Result
	spec        map[string]analyzer.Specialization
	target      string
	ffiBindings map[string]config.FFIBinding

	out strings.Builder

	strPool  map[string]int
	strOrder []string
	symPool  map[string]int
	symOrder []string

	quotations map[uint64]*ast.Quotation // collected while walking word bodies
}

// Emit lowers prog (already checked by analyzer.Checker) to an LLVM IR
// text module targeting target (an LLVM target triple, spec.md §4.8).
// ffiBindings is the optional table of source-visible words bound
// directly to a C symbol (spec.md §6 "FFI bindings object"); nil or
// empty emits no FFI wrapper functions.
func Emit(prog *ast.Program, res *analyzer.Result, spec map[string]analyzer.Specialization, target string, ffiBindings map[string]config.FFIBinding) (string, error) {
	e := &Emitter{
		prog:        prog,
		res:         res,
		spec:        spec,
		target:      target,
		ffiBindings: ffiBindings,
		strPool:     map[string]int{},
		symPool:     map[string]int{},
		quotations:  map[uint64]*ast.Quotation{},
	}
	e.collectQuotations(prog)
	e.collectPools(prog)

	e.emitPreamble()
	e.emitStringAndSymbolPool()
	e.emitRuntimeDeclarations()
	e.emitFFIDeclarations()
	if err := e.emitFFIBindingWrappers(); err != nil {
		return "", err
	}

	if err := e.emitQuotations(); err != nil {
		return "", err
	}
	for _, w := range prog.Words {
		if err := e.emitWord(w); err != nil {
			return "", err
		}
	}
	if err := e.emitFastPaths(); err != nil {
		return "", err
	}
	e.emitMain()

	return e.out.String(), nil
}

func (e *Emitter) line(format string, args ...interface{}) {
	fmt.Fprintf(&e.out, format+"\n", args...)
}

func (e *Emitter) emitPreamble() {
	e.line("; seqc compiled module")
	e.line("target triple = %q", e.target)
	e.line("")
	e.line(valueTypeDecl)
	e.line("")
}

// collectQuotations walks every word body (recursively through
// if/match) gathering quotation literals so their impl/wrapper pair
// can be emitted before any word that constructs or calls them.
func (e *Emitter) collectQuotations(prog *ast.Program) {
	for _, w := range prog.Words {
		e.collectQuotationsIn(w.Body)
	}
}

func (e *Emitter) collectQuotationsIn(body []ast.Statement) {
	for _, stmt := range body {
		switch s := stmt.(type) {
		case *ast.Quotation:
			e.quotations[s.ID] = s
			e.collectQuotationsIn(s.Body)
		case *ast.If:
			e.collectQuotationsIn(s.Then)
			e.collectQuotationsIn(s.Else)
		case *ast.Match:
			for _, arm := range s.Arms {
				e.collectQuotationsIn(arm.Body)
			}
		}
	}
}

// collectPools walks every literal in the program, deduplicating
// string and symbol text into the pool tables (spec.md §4.8 "String
// and symbol pool").
func (e *Emitter) collectPools(prog *ast.Program) {
	var walk func(body []ast.Statement)
	walk = func(body []ast.Statement) {
		for _, stmt := range body {
			switch s := stmt.(type) {
			case *ast.StringLiteral:
				e.internString(s.Value)
			case *ast.SymbolLiteral:
				e.internSymbol(s.Value)
			case *ast.Quotation:
				walk(s.Body)
			case *ast.If:
				walk(s.Then)
				walk(s.Else)
			case *ast.Match:
				for _, arm := range s.Arms {
					walk(arm.Body)
				}
			}
		}
	}
	for _, w := range prog.Words {
		walk(w.Body)
	}
}

func (e *Emitter) internString(s string) int {
	if idx, ok := e.strPool[s]; ok {
		return idx
	}
	idx := len(e.strOrder)
	e.strPool[s] = idx
	e.strOrder = append(e.strOrder, s)
	return idx
}

func (e *Emitter) internSymbol(s string) int {
	if idx, ok := e.symPool[s]; ok {
		return idx
	}
	idx := len(e.symOrder)
	e.symPool[s] = idx
	e.symOrder = append(e.symOrder, s)
	return idx
}

// escapeStringBytes applies spec.md §4.8's escape rules in LLVM
// constant-string form: `\`, `"`, newline, carriage return and tab
// become the hex escapes \5C, \22, \0A, \0D and \09, and every other
// non-printable byte is hex-escaped as \XX.
func escapeStringBytes(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			b.WriteString(`\5C`)
		case '"':
			b.WriteString(`\22`)
		case '\n':
			b.WriteString(`\0A`)
		case '\r':
			b.WriteString(`\0D`)
		case '\t':
			b.WriteString(`\09`)
		default:
			if c >= 0x20 && c < 0x7f {
				b.WriteByte(c)
			} else {
				fmt.Fprintf(&b, `\%02X`, c)
			}
		}
	}
	return b.String()
}

func (e *Emitter) emitStringAndSymbolPool() {
	for i, s := range e.strOrder {
		body := escapeStringBytes(s)
		e.line(`@.str.%d = private unnamed_addr constant [%d x i8] c"%s\00"`, i, len(s)+1, body)
	}
	for i, s := range e.symOrder {
		body := escapeStringBytes(s)
		e.line(`@.sym.%d.data = private unnamed_addr constant [%d x i8] c"%s\00"`, i, len(s)+1, body)
		e.line(`@.sym.%d = private global { i64, i64, ptr } { i64 0, i64 %d, ptr @.sym.%d.data }`, i, len(s), i)
	}
	e.line("")
}

// runtimeDecls is the fixed table of ABI functions the emitter relies
// on (spec.md §4.8 "a complete set of declare statements for runtime
// functions ... including math, I/O, channels, scheduler, file, net,
// time, crypto, regex, compression, variant, closure, and test
// helpers"). Declared unconditionally, never generated on demand.
var runtimeDecls = []string{
	"declare ptr @seq_rt_push(ptr, %Value)",
	"declare { ptr, %Value } @seq_rt_pop(ptr)",
	"declare %Value @seq_rt_clone(%Value)",
	"declare i1 @seq_rt_truthy(%Value)",

	"declare ptr @seq_rt_make_quotation(ptr, ptr)",
	"declare ptr @seq_rt_make_closure(ptr, ptr, i64)",
	"declare ptr @seq_rt_call(ptr, %Value)",
	"declare %Value @seq_rt_make_string(ptr, i64)",
	"declare %Value @seq_rt_make_symbol(ptr)",

	"declare ptr @seq_rt_variant_make(i64, ptr, i64)",
	"declare i64 @seq_rt_variant_tag(ptr)",
	"declare %Value @seq_rt_variant_field(ptr, i64)",
	"declare ptr @seq_rt_quotation_impl(ptr)",

	"declare void @seq_rt_main_init(i64, ptr)",
	"declare ptr @seq_rt_scheduler_run(ptr)",
	"declare void @seq_rt_scheduler_wait_all()",
	"declare ptr @seq_rt_stack_base()",

	"declare ptr @seq_rt_aux_base()",
	"declare %Value @seq_rt_pick(ptr, i64)",
	"declare ptr @seq_rt_roll(ptr, i64)",
}

// opaqueBuiltins names every builtin whose behavior the runtime
// implements directly rather than the emitter inlining it (spec.md §1,
// §6 "the concrete behavior lives in the runtime collaborator"). Each
// shares the ordinary word calling convention: the runtime unpacks its
// own typed arguments off the stack and pushes its own typed result.
var opaqueBuiltins = []string{
	"spawn", "yield",
	"chan.make", "chan.send", "chan.receive", "chan.close",
	"io.write", "io.write-line", "io.read-line",
	"str.len", "str.concat", "str.split",
	"crypto.sha256", "regex.match", "gzip.compress", "net.connect", "time.now",
	"test.assert",
}

func (e *Emitter) emitRuntimeDeclarations() {
	for _, d := range runtimeDecls {
		e.line("%s", d)
	}
	for _, name := range opaqueBuiltins {
		e.line("declare ptr @%s(ptr)", opaqueBuiltinSymbol(name))
	}
	e.line("")
}

// emitFFIDeclarations emits one `declare` per FFI binding named in the
// program's includes (spec.md §6, §4.8's "FFI declare statements
// generated from the FFI binding table"). Concrete argument/return
// types are not known from the surface grammar alone, so the binding
// is declared with the most permissive opaque-pointer shape; a richer
// FFI signature language is out of scope (spec.md §1 Non-goals).
func (e *Emitter) emitFFIDeclarations() {
	var libs []string
	for _, inc := range e.prog.Includes {
		if strings.HasPrefix(inc.Path, "ffi:") {
			libs = append(libs, strings.TrimPrefix(inc.Path, "ffi:"))
		}
	}
	sort.Strings(libs)
	for _, lib := range libs {
		e.line("declare ptr @%s(ptr) ; ffi:%s", mangleName(lib), lib)
	}
	if len(libs) > 0 {
		e.line("")
	}
}

// ffiLLVMType maps one of this language's FFI-representable primitive
// kinds to its LLVM register type (spec.md §6, reusing §4.7's
// register-kind convention).
func ffiLLVMType(kind string) string {
	switch kind {
	case "float":
		return "double"
	case "bool":
		return "i1"
	default:
		return "i64"
	}
}

// emitFFIBindingWrappers emits, for each configured FFI binding, a
// `declare` for the raw C symbol and a stack-pointer-convention
// wrapper word that pops its arguments in declared order, marshals
// them to the C ABI, calls the symbol, and pushes the marshaled
// result back as a tagged %Value (spec.md §6 "FFI bindings object").
func (e *Emitter) emitFFIBindingWrappers() error {
	names := make([]string, 0, len(e.ffiBindings))
	for name := range e.ffiBindings {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		b := e.ffiBindings[name]
		cSym := mangleName(b.Symbol)
		retType := ffiLLVMType(b.Returns)

		argTypes := make([]string, len(b.Args))
		for i, a := range b.Args {
			argTypes[i] = ffiLLVMType(a)
		}
		e.line("declare %s @%s(%s) ; ffi %s -> %s@%s", retType, cSym, strings.Join(argTypes, ", "), name, b.Symbol, b.Lib)

		sym := userWordSymbol(name)
		fb := newFuncBuilder(e, sym, "%sp0")
		fb.emit("define tailcc ptr @%s(ptr %%sp0) {", sym)
		fb.emitLabel("entry")

		operands := make([]string, len(b.Args))
		for i := len(b.Args) - 1; i >= 0; i-- {
			v := fb.popToValue()
			operands[i] = fb.memOperand(v, argTypes[i])
		}
		callArgs := make([]string, len(b.Args))
		for i, op := range operands {
			callArgs[i] = fmt.Sprintf("%s %s", argTypes[i], op)
		}
		result := fb.newSSA()
		fb.emit("  %s = call %s @%s(%s)", result, retType, cSym, strings.Join(callArgs, ", "))
		val := fb.buildValue(regEntry{kind: retType, operand: result})
		fb.pushValue(val)
		fb.emit("  ret ptr %s", fb.sp)
		fb.terminated = true
		e.flushFunc(fb)
	}
	if len(names) > 0 {
		e.line("")
	}
	return nil
}

// emitMain emits seq_main's caller: either the concurrent runtime
// bootstrap or, in pure-inline-test mode, a direct synchronous call
// (spec.md §4.8 "main").
func (e *Emitter) emitMain() {
	e.line("define i32 @main(i64 %%argc, ptr %%argv) {")
	e.line("entry:")
	e.line("  call void @seq_rt_main_init(i64 %%argc, ptr %%argv)")
	if config.IsTestMode {
		// Pure-inline-test mode skips the scheduler entirely and
		// returns the integer top of the resulting stack as the
		// process exit code, so the arithmetic core can be exercised
		// with nothing but clang + this text (spec.md §4.8 "main").
		e.line("  %%sp0 = call ptr @seq_rt_stack_base()")
		e.line("  %%sp1 = call ptr @%s(ptr %%sp0)", userWordSymbol("main"))
		e.line("  %%result_pair = call { ptr, %%Value } @seq_rt_pop(ptr %%sp1)")
		e.line("  %%result = extractvalue { ptr, %%Value } %%result_pair, 1")
		e.line("  %%result_i64 = extractvalue %%Value %%result, 1")
		e.line("  %%result_i32 = trunc i64 %%result_i64 to i32")
		e.line("  ret i32 %%result_i32")
	} else {
		e.line("  %%strand = call ptr @seq_rt_scheduler_run(ptr @%s)", userWordSymbol("main"))
		e.line("  call void @seq_rt_scheduler_wait_all()")
		e.line("  ret i32 0")
	}
	e.line("}")
}

func unhandledStatement(tok token.Token, stmt ast.Statement) error {
	return diagnostics.New(diagnostics.CodeUnsupportedBuiltin, tok.Pos(),
		"emitter: unhandled statement type %T", stmt)
}
