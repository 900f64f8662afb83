package emitter

import (
	"fmt"
	"strings"
)

// punctEscapes gives descriptive underscored escapes for the source
// punctuation allowed in word/builtin names (spec.md §4.8 "Name
// mangling"). Anything not covered here or in the verbatim set is
// hex-escaped by mangleRune.
var punctEscapes = map[rune]string{
	'?': "_Q_",
	'>': "_GT_",
	'<': "_LT_",
	'!': "_BANG_",
	'*': "_STAR_",
	'/': "_SLASH_",
	'+': "_PLUS_",
	'=': "_EQ_",
}

func isVerbatim(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_' || r == '.' || r == '$':
		return true
	}
	return false
}

// mangleName maps a source identifier to a valid LLVM identifier
// fragment, per spec.md §4.8's exact character table.
func mangleName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case isVerbatim(r):
			b.WriteRune(r)
		case r == '-':
			b.WriteByte('_')
		default:
			if esc, ok := punctEscapes[r]; ok {
				b.WriteString(esc)
			} else {
				fmt.Fprintf(&b, "_x%02X_", r)
			}
		}
	}
	return b.String()
}

// userWordSymbol is the LLVM function name for a user-defined word:
// all user words are prefixed with "seq_" (spec.md §4.8).
func userWordSymbol(name string) string {
	return "seq_" + mangleName(name)
}

// quotationImplSymbol and quotationWrapperSymbol name the tailcc impl
// and the thin C-convention wrapper generated for one quotation
// (spec.md §4.8 "Quotations are generated as pairs of functions").
func quotationImplSymbol(id uint64) string {
	return fmt.Sprintf("seq_q_%d_impl", id)
}

func quotationWrapperSymbol(id uint64) string {
	return fmt.Sprintf("seq_q_%d", id)
}

// opaqueBuiltinSymbol names the runtime-owned ABI function backing a
// builtin whose behavior the runtime implements directly (spawn,
// channels, I/O, string, crypto, regex, compression, net, time, test).
func opaqueBuiltinSymbol(name string) string {
	return "seq_rt_b_" + mangleName(name)
}

// fastPathSuffix encodes a register-convention specialization's
// argument/return shape into its name suffix (spec.md §4.8 "Fast-path
// specialization"), e.g. "_i64", "_f64", "_i64_to_f64".
func fastPathSuffix(argKinds []string, retKind string) string {
	short := func(kind string) string {
		if kind == "double" {
			return "f64"
		}
		return kind
	}
	if len(argKinds) == 1 && argKinds[0] == retKind {
		return "_" + short(retKind)
	}
	parts := make([]string, len(argKinds))
	for i, k := range argKinds {
		parts[i] = short(k)
	}
	return "_" + strings.Join(parts, "_") + "_to_" + short(retKind)
}
