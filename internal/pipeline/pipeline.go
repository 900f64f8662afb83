// Package pipeline sequences compilation as a list of independent
// stages over a shared context (spec.md §7 "the compiler runs as a
// fixed pipeline: lex, parse, check, emit").
//
// Grounded on the teacher's internal/pipeline/pipeline.go: a Pipeline
// holding an ordered []Processor, run by folding a *PipelineContext
// through each stage in turn. The teacher's own PipelineContext and
// Processor types live in its parser/analyzer/backend packages, which
// would import pipeline for the interface while pipeline would need
// to import them for the concrete field types — an import cycle this
// module's narrower stage set doesn't need to court. PipelineContext
// and the stage Processors are therefore defined directly in this
// package instead of being scattered across internal/lexer,
// internal/parser, internal/analyzer and internal/emitter; documented
// as a deliberate deviation from the teacher's layout.
package pipeline

// Processor is one stage of the pipeline. Each implementation (see
// stages.go) checks ctx.Err first and returns ctx unchanged if an
// earlier stage already failed, so the first diagnostic raised wins
// and later stages never run against a context they can't trust.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

// Pipeline is a fixed, ordered list of stages.
type Pipeline struct {
	processors []Processor
}

// New builds a pipeline from stages in execution order.
func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run folds initialCtx through every stage in order. Run itself does
// not inspect ctx.Err; each stage's own no-op-on-error check is what
// keeps a failed compilation from doing further work.
func (p *Pipeline) Run(initialCtx *PipelineContext) *PipelineContext {
	ctx := initialCtx
	for _, proc := range p.processors {
		ctx = proc.Process(ctx)
	}
	return ctx
}
