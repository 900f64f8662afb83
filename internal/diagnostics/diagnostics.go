// Package diagnostics defines the single-line error type returned by
// every fallible stage of the compiler core.
package diagnostics

import (
	"fmt"

	"github.com/seqc/seqc/internal/token"
)

// Stable diagnostic codes. Families follow the stage that raises them:
// lexical (L1xx), syntactic (P2xx), semantic (T3xx), emission (E4xx).
const (
	CodeUnterminatedString = "L101"
	CodeUnknownEscape      = "L102"
	CodeMalformedNumber    = "L103"

	CodeExpectedToken     = "P201"
	CodeUnexpectedEOF     = "P202"
	CodeMalformedRowVar    = "P203"
	CodeNestingTooDeep     = "P204"
	CodeBadMatchBinding    = "P205"
	CodeDuplicateRowVar    = "P206"

	CodeUnknownWord          = "T301"
	CodeUnknownType          = "T302"
	CodeUnknownVariant       = "T303"
	CodeNonExhaustiveMatch   = "T304"
	CodeStackMismatch        = "T305"
	CodeBranchMismatch       = "T306"
	CodeRowUnderflow         = "T307"
	CodeInvalidCapture       = "T308"
	CodeDeclarationMismatch  = "T309"
	CodeAmbiguousVariant     = "T310"
	CodeUnifyFailure         = "T311"
	CodeUnknownExternalBuiltin = "T312"

	CodeMissingQuotationType = "E401"
	CodeTooManyCaptures      = "E402"
	CodeUnsupportedBuiltin   = "E403"
	CodeUnsupportedFFI       = "E404"
)

// Diagnostic is the single-line human-readable error returned by every
// stage. It satisfies the standard error interface.
type Diagnostic struct {
	Code    string
	Pos     token.Position
	Message string
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s at %s: %s", d.Code, d.Pos, d.Message)
}

// CodeOf and Position return the diagnostic's stable code and source
// position, so a consumer holding a *Diagnostic need not parse the
// text of Error().
func (d *Diagnostic) CodeOf() string            { return d.Code }
func (d *Diagnostic) Position() token.Position { return d.Pos }

func New(code string, pos token.Position, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{Code: code, Pos: pos, Message: fmt.Sprintf(format, args...)}
}

// FromToken builds a Diagnostic positioned at tok.
func FromToken(code string, tok token.Token, format string, args ...interface{}) *Diagnostic {
	return New(code, tok.Pos(), format, args...)
}
