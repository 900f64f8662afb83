package unify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqc/seqc/internal/types"
)

func TestUnifyTypesPrimitives(t *testing.T) {
	_, err := UnifyTypes(types.Int{}, types.Int{})
	assert.NoError(t, err)

	_, err = UnifyTypes(types.Int{}, types.String{})
	assert.Error(t, err)
}

func TestUnifyTypesVarBindsToConcreteType(t *testing.T) {
	s, err := UnifyTypes(types.Var{Name: "a"}, types.Int{})
	require.NoError(t, err)
	assert.Equal(t, types.Int{}, ApplyType(s, types.Var{Name: "a"}))
}

func TestUnifyTypesOccursCheckRejectsSelfReference(t *testing.T) {
	self := types.Quotation{Effect: types.Effect{
		Inputs:  types.RowVar{Name: "r"},
		Outputs: types.Push(types.RowVar{Name: "r"}, types.Var{Name: "a"}),
	}}
	_, err := UnifyTypes(types.Var{Name: "a"}, self)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "occurs check")
}

func TestUnifyTypesUnionsByName(t *testing.T) {
	_, err := UnifyTypes(types.Union{Name: "Result"}, types.Union{Name: "Result"})
	assert.NoError(t, err)

	_, err = UnifyTypes(types.Union{Name: "Result"}, types.Union{Name: "Option"})
	assert.Error(t, err)
}

func TestUnifyTypesQuotationAcceptsClosureOfSameEffect(t *testing.T) {
	row := types.RowVar{Name: "r"}
	effect := types.Effect{Inputs: row, Outputs: row}
	quot := types.Quotation{Effect: effect}
	clos := types.Closure{Effect: effect, Captures: []types.Type{types.Int{}}}

	_, err := UnifyTypes(quot, clos)
	assert.NoError(t, err, "a bare Quotation parameter should accept a Closure of matching effect")
}

func TestUnifyTypesClosureCaptureCountMismatch(t *testing.T) {
	row := types.RowVar{Name: "r"}
	effect := types.Effect{Inputs: row, Outputs: row}
	a := types.Closure{Effect: effect, Captures: []types.Type{types.Int{}}}
	b := types.Closure{Effect: effect, Captures: []types.Type{types.Int{}, types.String{}}}

	_, err := UnifyTypes(a, b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "capture count mismatch")
}

func TestUnifyTypesClosureCapturesUnifyPointwise(t *testing.T) {
	row := types.RowVar{Name: "r"}
	effect := types.Effect{Inputs: row, Outputs: row}
	a := types.Closure{Effect: effect, Captures: []types.Type{types.Var{Name: "x"}}}
	b := types.Closure{Effect: effect, Captures: []types.Type{types.Bool{}}}

	s, err := UnifyTypes(a, b)
	require.NoError(t, err)
	assert.Equal(t, types.Bool{}, ApplyType(s, types.Var{Name: "x"}))
}

func TestUnifyStacksPeelsMatchingTops(t *testing.T) {
	row := types.RowVar{Name: "r"}
	a := types.Push(types.Push(row, types.Int{}), types.Var{Name: "x"})
	b := types.Push(types.Push(row, types.Int{}), types.String{})

	s, err := UnifyStacks(a, b)
	require.NoError(t, err)
	assert.Equal(t, types.String{}, ApplyType(s, types.Var{Name: "x"}))
}

func TestUnifyStacksRowVarBindsToTail(t *testing.T) {
	row := types.RowVar{Name: "r"}
	tail := types.Push(types.EmptyStack{}, types.Int{})

	s, err := UnifyStacks(row, tail)
	require.NoError(t, err)
	assert.Equal(t, tail, ApplyStack(s, row))
}

func TestUnifyStacksEmptyVsNonEmptyIsUnderflow(t *testing.T) {
	_, err := UnifyStacks(types.EmptyStack{}, types.Push(types.EmptyStack{}, types.Int{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "underflow")
}

func TestUnifyStacksRowOccursCheck(t *testing.T) {
	row := types.RowVar{Name: "r"}
	nested := types.Push(row, types.Int{})
	_, err := UnifyStacks(row, nested)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "occurs check")
}

func TestComposeAppliesRightSubstitutionFirst(t *testing.T) {
	inner := bindType("a", types.Var{Name: "b"})
	outer := bindType("b", types.Int{})

	composed := Compose(outer, inner)
	assert.Equal(t, types.Int{}, ApplyType(composed, types.Var{Name: "a"}))
}

func TestApplyStackSplicesRowVariableBinding(t *testing.T) {
	s := bindRow("r", types.Push(types.EmptyStack{}, types.Int{}))
	st := types.Push(types.RowVar{Name: "r"}, types.String{})

	got := ApplyStack(s, st)
	want := types.Push(types.Push(types.EmptyStack{}, types.Int{}), types.String{})
	assert.Equal(t, want, got)
}

func TestFreeRowVarsCollectsAlongCons(t *testing.T) {
	st := types.Push(types.Push(types.RowVar{Name: "r"}, types.Int{}), types.Bool{})
	free := FreeRowVars(st)
	assert.True(t, free["r"])
	assert.Len(t, free, 1)
}
