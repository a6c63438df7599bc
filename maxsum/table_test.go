package maxsum

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterVariable(t *testing.T) {
	ResetRegistry()
	require.NoError(t, RegisterVariable(1, 3))

	// Same size again is a no-op.
	require.NoError(t, RegisterVariable(1, 3))

	// Changing the size of a live variable is refused.
	assert.Error(t, RegisterVariable(1, 4))

	size, err := DomainSize(1)
	require.NoError(t, err)
	assert.Equal(t, 3, size)

	_, err = DomainSize(99)
	assert.ErrorIs(t, err, ErrUnknownVariable)

	assert.ErrorIs(t, RegisterVariable(2, 0), ErrBadDomainSize)
	assert.ErrorIs(t, RegisterVariable(2, -1), ErrBadDomainSize)
}

func TestTableIndexing(t *testing.T) {
	ResetRegistry()
	require.NoError(t, RegisterVariable(1, 2))
	require.NoError(t, RegisterVariable(2, 3))

	tbl, err := NewTable([]Var{2, 1}, 0)
	require.NoError(t, err)

	// Variable order is normalized to ascending regardless of input order.
	assert.Equal(t, []Var{1, 2}, tbl.Vars())
	assert.Equal(t, 6, tbl.Len())

	// Last variable varies fastest.
	i, err := tbl.IndexOf(map[Var]int{1: 1, 2: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, i)
	i, err = tbl.IndexOf(map[Var]int{1: 1, 2: 0})
	require.NoError(t, err)
	assert.Equal(t, 3, i)

	// Extra keys are ignored, missing keys are an error.
	i, err = tbl.IndexOf(map[Var]int{1: 0, 2: 1, 77: 5})
	require.NoError(t, err)
	assert.Equal(t, 1, i)
	_, err = tbl.IndexOf(map[Var]int{1: 0})
	assert.Error(t, err)
	_, err = tbl.IndexOf(map[Var]int{1: 0, 2: 3})
	assert.Error(t, err)

	// Assignment round-trips through IndexOf.
	for i := 0; i < tbl.Len(); i++ {
		assign := tbl.Assignment(i, nil)
		j, err := tbl.IndexOf(assign)
		require.NoError(t, err)
		assert.Equal(t, i, j)
	}
}

func TestTableScalar(t *testing.T) {
	ResetRegistry()
	tbl, err := NewTable(nil, 7.5)
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Len())
	assert.Equal(t, 7.5, tbl.At(0))

	i, err := tbl.IndexOf(map[Var]int{})
	require.NoError(t, err)
	assert.Equal(t, 0, i)
}

func TestTableCondition(t *testing.T) {
	ResetRegistry()
	require.NoError(t, RegisterVariable(1, 2))
	require.NoError(t, RegisterVariable(2, 3))
	require.NoError(t, RegisterVariable(3, 2))

	tbl, err := NewTable([]Var{1, 2, 3}, 0)
	require.NoError(t, err)
	for i := 0; i < tbl.Len(); i++ {
		tbl.Set(i, float64(i))
	}

	cond, err := tbl.Condition(map[Var]int{2: 1})
	require.NoError(t, err)
	assert.Equal(t, []Var{1, 3}, cond.Vars())
	assert.Equal(t, 4, cond.Len())
	for i := 0; i < cond.Len(); i++ {
		assign := cond.Assignment(i, nil)
		assign[2] = 1
		want, err := tbl.AtAssignment(assign)
		require.NoError(t, err)
		assert.Equal(t, want, cond.At(i))
	}

	// Extra keys in given are ignored; conditioning on everything leaves a
	// scalar.
	full, err := tbl.Condition(map[Var]int{1: 1, 2: 2, 3: 0, 99: 3})
	require.NoError(t, err)
	assert.Equal(t, 1, full.Len())
	want, err := tbl.AtAssignment(map[Var]int{1: 1, 2: 2, 3: 0})
	require.NoError(t, err)
	assert.Equal(t, want, full.At(0))
}

func TestTableAdd(t *testing.T) {
	ResetRegistry()
	require.NoError(t, RegisterVariable(1, 2))
	require.NoError(t, RegisterVariable(2, 2))

	a, err := NewTable([]Var{1, 2}, 1)
	require.NoError(t, err)
	b, err := NewTable([]Var{1, 2}, 0)
	require.NoError(t, err)
	for i := 0; i < b.Len(); i++ {
		b.Set(i, float64(i))
	}
	require.NoError(t, a.Add(b))
	for i := 0; i < a.Len(); i++ {
		assert.Equal(t, 1+float64(i), a.At(i))
	}

	c, err := NewTable([]Var{1}, 0)
	require.NoError(t, err)
	assert.Error(t, a.Add(c))
}

func TestTableMaxPair(t *testing.T) {
	ResetRegistry()
	require.NoError(t, RegisterVariable(1, 4))

	tbl, err := NewTable([]Var{1}, 0)
	require.NoError(t, err)
	tbl.Set(0, 1)
	tbl.Set(1, 5)
	tbl.Set(2, 3)
	tbl.Set(3, 5)

	argmax, max := tbl.Max()
	assert.Equal(t, 1, argmax) // ties resolve to the lowest index
	assert.Equal(t, 5.0, max)

	max1, max2, arg := tbl.MaxPair()
	assert.Equal(t, 5.0, max1)
	assert.Equal(t, 5.0, max2)
	assert.Equal(t, 1, arg)

	tbl.Set(3, 2)
	max1, max2, arg = tbl.MaxPair()
	assert.Equal(t, 5.0, max1)
	assert.Equal(t, 3.0, max2)
	assert.Equal(t, 1, arg)

	// Single entry: second-best collapses to best.
	scalar, err := NewTable(nil, 0)
	require.NoError(t, err)
	scalar.Set(0, -2)
	max1, max2, _ = scalar.MaxPair()
	assert.Equal(t, -2.0, max1)
	assert.Equal(t, -2.0, max2)
	assert.False(t, math.IsInf(max2, -1))
}

func TestTableClone(t *testing.T) {
	ResetRegistry()
	require.NoError(t, RegisterVariable(1, 3))

	tbl, err := NewTable([]Var{1}, 2)
	require.NoError(t, err)
	c := tbl.Clone()
	c.Set(0, 42)
	assert.Equal(t, 2.0, tbl.At(0))
	assert.Equal(t, 42.0, c.At(0))
}
