package ast

import (
	"fmt"

	"github.com/google/uuid"
)

// quotationNamespace roots the UUIDv5 space used to give each
// quotation a stable identity across repeated compile_with_config
// calls over the same source, independent from the monotonic counter
// (which only needs to be unique within one compilation). Adapted
// from the teacher's use of uuid for stable object/session identity.
var quotationNamespace = uuid.MustParse("2f5f21f0-6b8d-4e8a-9c9a-7a6f2d9c8b10")

// StableID derives a deterministic identity for a quotation or word
// from its source span, so two compilations of byte-identical source
// produce the same UUID even though the monotonic counter restarts.
func StableID(file string, line, column int) uuid.UUID {
	name := fmt.Sprintf("%s:%d:%d", file, line, column)
	return uuid.NewSHA1(quotationNamespace, []byte(name))
}
