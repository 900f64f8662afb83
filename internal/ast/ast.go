// Package ast defines the typed AST produced by internal/parser and
// consumed by internal/analyzer and internal/emitter.
//
// Grounded on the teacher's internal/ast/ast_core.go Node/Statement
// split (TokenLiteral/GetToken for error reporting), generalized from
// its expression-tree grammar to this language's word/quotation/match
// grammar (spec.md §3 AST).
package ast

import (
	"github.com/seqc/seqc/internal/token"
	"github.com/seqc/seqc/internal/types"
)

// Node is the base interface every AST node implements.
type Node interface {
	TokenLiteral() string
	GetToken() token.Token
}

// Statement is one element of a word body.
type Statement interface {
	Node
	statementNode()
}

// Include names a dependency of the program. The form is syntactic and
// kept in Path: `std:name` names a standard module, `ffi:lib` names a
// foreign library, and a quoted path (relative to the source file) or
// a bare identifier is kept as written. Resolution of any of these is
// external to the core (spec.md §4.2).
type Include struct {
	Token token.Token
	Path  string
}

func (i *Include) TokenLiteral() string { return i.Token.Lexeme }
func (i *Include) GetToken() token.Token { return i.Token }

// Field is one named, typed field of a union variant declaration.
type Field struct {
	Name     string
	TypeName string
}

// Variant is one tagged alternative of a union declaration.
type Variant struct {
	Name   string
	Fields []Field
}

// UnionDef declares a tagged union type.
type UnionDef struct {
	Token    token.Token
	Name     string
	Variants []Variant
}

func (u *UnionDef) TokenLiteral() string { return u.Token.Lexeme }
func (u *UnionDef) GetToken() token.Token { return u.Token }

// WordDef is a named, compiled procedure over the operand stack.
// Effect is nil when the source omitted the `( inputs -- outputs )`
// declaration (spec.md §4.5 pass 2 assigns it a placeholder).
type WordDef struct {
	Token token.Token
	Name  string
	Effect *types.Effect
	Body  []Statement
}

func (w *WordDef) TokenLiteral() string { return w.Token.Lexeme }
func (w *WordDef) GetToken() token.Token { return w.Token }

// Program is the root AST node.
type Program struct {
	File     string
	Includes []*Include
	Unions   []*UnionDef
	Words    []*WordDef
}

func (p *Program) TokenLiteral() string { return "" }
func (p *Program) GetToken() token.Token { return token.Token{} }

// --- statements ---

type IntLiteral struct {
	Token token.Token
	Value int64
}

type FloatLiteral struct {
	Token token.Token
	Value float64
}

type BoolLiteral struct {
	Token token.Token
	Value bool
}

type StringLiteral struct {
	Token token.Token
	Value string
}

// SymbolLiteral is a bare `:name`-style interned symbol literal,
// interned at runtime (spec.md §3).
type SymbolLiteral struct {
	Token token.Token
	Value string
}

// WordCall references a builtin or user-defined word by name.
type WordCall struct {
	Token token.Token
	Name  string
}

// If is a conditional with an optional else clause.
type If struct {
	Token       token.Token
	Then        []Statement
	Else        []Statement // nil when no else clause
}

// Quotation is an inline code block. ID is assigned at parse time and
// is the key into the type checker's quotation-id -> type map.
type Quotation struct {
	Token token.Token
	ID    uint64
	StableID string // UUIDv5 derived from source span; see ast.StableID
	Body  []Statement
}

// Binding is one `>fieldname` match-arm binding.
type Binding struct {
	FieldName string
}

// MatchArm is one `Name ('{' '>field'... '}')? -> body` alternative.
// Bound is nil for a bare-variant pattern (all fields pushed in
// declaration order); non-nil gives only the named fields, which are
// also pushed in declaration order, whatever order they are written in.
type MatchArm struct {
	Variant string
	Bound   []Binding
	Body    []Statement
}

// Match pattern-matches a union value popped off the stack.
type Match struct {
	Token token.Token
	Arms  []MatchArm
}

func (*IntLiteral) statementNode()    {}
func (*FloatLiteral) statementNode()  {}
func (*BoolLiteral) statementNode()   {}
func (*StringLiteral) statementNode() {}
func (*SymbolLiteral) statementNode() {}
func (*WordCall) statementNode()      {}
func (*If) statementNode()            {}
func (*Quotation) statementNode()     {}
func (*Match) statementNode()         {}

func (n *IntLiteral) TokenLiteral() string    { return n.Token.Lexeme }
func (n *FloatLiteral) TokenLiteral() string  { return n.Token.Lexeme }
func (n *BoolLiteral) TokenLiteral() string   { return n.Token.Lexeme }
func (n *StringLiteral) TokenLiteral() string { return n.Token.Lexeme }
func (n *SymbolLiteral) TokenLiteral() string { return n.Token.Lexeme }
func (n *WordCall) TokenLiteral() string      { return n.Token.Lexeme }
func (n *If) TokenLiteral() string            { return n.Token.Lexeme }
func (n *Quotation) TokenLiteral() string     { return n.Token.Lexeme }
func (n *Match) TokenLiteral() string         { return n.Token.Lexeme }

func (n *IntLiteral) GetToken() token.Token    { return n.Token }
func (n *FloatLiteral) GetToken() token.Token  { return n.Token }
func (n *BoolLiteral) GetToken() token.Token   { return n.Token }
func (n *StringLiteral) GetToken() token.Token { return n.Token }
func (n *SymbolLiteral) GetToken() token.Token { return n.Token }
func (n *WordCall) GetToken() token.Token      { return n.Token }
func (n *If) GetToken() token.Token            { return n.Token }
func (n *Quotation) GetToken() token.Token      { return n.Token }
func (n *Match) GetToken() token.Token          { return n.Token }
