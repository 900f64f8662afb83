package pipeline

import (
	"runtime"

	"github.com/seqc/seqc/internal/analyzer"
	"github.com/seqc/seqc/internal/ast"
	"github.com/seqc/seqc/internal/config"
	"github.com/seqc/seqc/internal/emitter"
	"github.com/seqc/seqc/internal/lexer"
	"github.com/seqc/seqc/internal/parser"
	"github.com/seqc/seqc/internal/token"
)

// PipelineContext carries one compilation's state across the four
// stages (spec.md §7). Each stage reads the fields the prior stage
// published and, on success, publishes its own; on failure it sets
// Err and leaves every later field as its zero value.
type PipelineContext struct {
	File   string
	Source string
	Config *config.CompilerConfig

	Tokens  []token.Token
	Program *ast.Program

	Analysis       *analyzer.Result
	Specialization map[string]analyzer.Specialization

	IR string

	Err error
}

// NewPipelineContext seeds a context for one source file.
func NewPipelineContext(file, source string, cfg *config.CompilerConfig) *PipelineContext {
	return &PipelineContext{File: file, Source: source, Config: cfg}
}

// LexProcessor tokenizes ctx.Source (spec.md §4.1). Tokenizing never
// itself fails — a malformed string literal comes back as a token with
// its Illegal description set, which the parser reports positionally —
// so this stage only ever publishes.
type LexProcessor struct{}

func (LexProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Err != nil {
		return ctx
	}
	ctx.Tokens = lexer.TokenizeAll(ctx.Source)
	return ctx
}

// ParseProcessor builds the AST from ctx.Tokens (spec.md §4.2-§4.4).
type ParseProcessor struct{}

func (ParseProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Err != nil {
		return ctx
	}
	prog, err := parser.New(ctx.Tokens, ctx.File).ParseProgram()
	if err != nil {
		ctx.Err = err
		return ctx
	}
	ctx.Program = prog
	return ctx
}

// CheckProcessor runs the type checker and the specialization scanner
// over ctx.Program (spec.md §4.5-§4.7), registering any external
// words named in ctx.Config first (spec.md §6).
type CheckProcessor struct{}

func (CheckProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Err != nil {
		return ctx
	}
	c := analyzer.NewChecker()
	if ctx.Config != nil {
		c.RegisterExternalWords(ctx.Config.ExternalWords)
		sigs := make(map[string]analyzer.FFISignature, len(ctx.Config.FFIBindings))
		for name, b := range ctx.Config.FFIBindings {
			sigs[name] = analyzer.FFISignature{Args: b.Args, Returns: b.Returns}
		}
		if err := c.RegisterFFIBindings(sigs); err != nil {
			ctx.Err = err
			return ctx
		}
	}
	res, err := c.Check(ctx.Program)
	if err != nil {
		ctx.Err = err
		return ctx
	}
	ctx.Analysis = res
	ctx.Specialization = analyzer.ComputeSpecialization(ctx.Program, res)
	return ctx
}

// EmitProcessor lowers the checked program to LLVM IR text (spec.md
// §4.8), resolving the target triple from ctx.Config or the host pair
// when no override was given.
type EmitProcessor struct{}

func (EmitProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Err != nil {
		return ctx
	}
	target := ctx.Config.ResolveTarget(runtime.GOOS, runtime.GOARCH)
	var ffi map[string]config.FFIBinding
	if ctx.Config != nil {
		ffi = ctx.Config.FFIBindings
	}
	ir, err := emitter.Emit(ctx.Program, ctx.Analysis, ctx.Specialization, target, ffi)
	if err != nil {
		ctx.Err = err
		return ctx
	}
	ctx.IR = ir
	return ctx
}

// Standard returns the fixed four-stage pipeline every compilation
// runs (spec.md §7).
func Standard() *Pipeline {
	return New(LexProcessor{}, ParseProcessor{}, CheckProcessor{}, EmitProcessor{})
}
