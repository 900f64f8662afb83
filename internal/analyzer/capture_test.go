package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqc/seqc/internal/types"
)

func TestRepresentableCaptureAcceptsPrimitivesAndQuotation(t *testing.T) {
	for _, typ := range []types.Type{
		types.Int{}, types.Float{}, types.Bool{}, types.String{},
		types.Quotation{Effect: types.Effect{Inputs: types.EmptyStack{}, Outputs: types.EmptyStack{}}},
	} {
		assert.True(t, representableCapture(typ), "expected %s to be representable", typ)
	}
}

func TestRepresentableCaptureRejectsClosureAndUnion(t *testing.T) {
	closure := types.Closure{Effect: types.Effect{Inputs: types.EmptyStack{}, Outputs: types.EmptyStack{}}}
	assert.False(t, representableCapture(closure), "spec.md §4.6 rejects closure-of-closure captures")
	assert.False(t, representableCapture(types.Union{Name: "Opt"}), "spec.md §4.6 rejects variant captures")
}

func TestComputeCaptureRejectsClosureCapture(t *testing.T) {
	bodyEffect := types.Effect{
		Inputs:  types.Push(types.RowVar{Name: "r"}, types.Closure{Effect: types.Effect{Inputs: types.EmptyStack{}, Outputs: types.EmptyStack{}}}),
		Outputs: types.RowVar{Name: "r"},
	}
	_, _, err := computeCapture(bodyEffect)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be captured")
}

func TestComputeCaptureRejectsUnionCapture(t *testing.T) {
	bodyEffect := types.Effect{
		Inputs:  types.Push(types.RowVar{Name: "r"}, types.Union{Name: "Opt"}),
		Outputs: types.RowVar{Name: "r"},
	}
	_, _, err := computeCapture(bodyEffect)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be captured")
}

func TestComputeCaptureAcceptsPrimitiveCapture(t *testing.T) {
	bodyEffect := types.Effect{
		Inputs:  types.Push(types.RowVar{Name: "r"}, types.Int{}),
		Outputs: types.RowVar{Name: "r"},
	}
	value, captured, err := computeCapture(bodyEffect)
	require.NoError(t, err)
	require.Len(t, captured, 1)
	assert.Equal(t, types.Int{}, captured[0])
	closure, ok := value.(types.Closure)
	require.True(t, ok, "expected a Closure value when a concrete input is captured")
	assert.Equal(t, []types.Type{types.Int{}}, closure.Captures)
}

func TestCheckQuotationRejectsClosureCaptureViaSpawn(t *testing.T) {
	_, err := check(t, `
: call-closure ( Closure[ -- ] -- )
  drop
;

: outer ( Closure[ -- ] -- )
  [ call-closure ] spawn
;
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be captured")
}
