package dist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func TestDirichlet(t *testing.T) {
	_, err := NewDirichlet(0, 1)
	assert.Error(t, err)
	_, err = NewDirichlet(3, 0)
	assert.Error(t, err)

	d, err := NewDirichlet(3, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1}, d.Alpha)

	mean := d.Mean()
	for _, p := range mean {
		assert.InDelta(t, 1.0/3.0, p, 1e-12)
	}

	require.NoError(t, d.Observe(2))
	require.NoError(t, d.Observe(2))
	require.NoError(t, d.Observe(0))
	assert.Error(t, d.Observe(3))
	assert.Error(t, d.Observe(-1))

	mean = d.Mean()
	assert.InDelta(t, 2.0/6.0, mean[0], 1e-12)
	assert.InDelta(t, 1.0/6.0, mean[1], 1e-12)
	assert.InDelta(t, 3.0/6.0, mean[2], 1e-12)

	sum := 0.0
	for _, p := range mean {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
}

func TestDirichletObserveCounts(t *testing.T) {
	d, err := NewDirichlet(2, 0.5)
	require.NoError(t, err)
	assert.Error(t, d.ObserveCounts([]float64{1, 2, 3}))
	require.NoError(t, d.ObserveCounts([]float64{3, 1}))
	assert.Equal(t, []float64{3.5, 1.5}, d.Alpha)
}

func TestDirichletSample(t *testing.T) {
	d, err := NewDirichlet(4, 2)
	require.NoError(t, err)
	p := d.Sample(rand.NewSource(7))
	require.Len(t, p, 4)
	sum := 0.0
	for _, x := range p {
		assert.GreaterOrEqual(t, x, 0.0)
		sum += x
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestDirichletClone(t *testing.T) {
	d, err := NewDirichlet(2, 1)
	require.NoError(t, err)
	c := d.Clone()
	require.NoError(t, c.Observe(0))
	assert.Equal(t, []float64{1, 1}, d.Alpha)
	assert.Equal(t, []float64{2, 1}, c.Alpha)
}
