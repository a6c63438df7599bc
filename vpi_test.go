package decbrl

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"github.com/lteacy/decbrl/dist"
	"github.com/lteacy/decbrl/maxsum"
)

// informedBelief returns a belief that has seen a handful of observations
// around 2, so its hyperparameters are all well defined.
func informedBelief() dist.NormalGamma {
	d := dist.NewNormalGamma()
	for _, x := range []float64{2.0, 2.4, 1.6, 2.2, 1.8} {
		d.Observe(x)
	}
	return d
}

func TestTruncationBias(t *testing.T) {
	d := informedBelief()

	// Symmetric about m, positive, and decaying away from m.
	atM := TruncationBias(d, d.M)
	assert.Positive(t, atM)
	for _, off := range []float64{0.5, 1, 2, 5} {
		lo := TruncationBias(d, d.M-off)
		hi := TruncationBias(d, d.M+off)
		assert.InDelta(t, lo, hi, 1e-12*math.Max(lo, 1))
		assert.Less(t, hi, atM)
	}
	assert.Less(t, TruncationBias(d, d.M+3), TruncationBias(d, d.M+1))

	// Undefined below half a degree of freedom.
	young := dist.NewNormalGamma()
	assert.True(t, math.IsInf(TruncationBias(young, 0), 1))
}

func TestExactVPIProperties(t *testing.T) {
	d := informedBelief()

	// Non-negative everywhere on a wide grid of incumbent values.
	for v := -10.0; v <= 10.0; v += 0.25 {
		assert.GreaterOrEqual(t, ExactVPI(true, v+1, v, d), -1e-12)
		assert.GreaterOrEqual(t, ExactVPI(false, v, v-1, d), -1e-12)
	}

	// For the best action the gain grows with the runner-up value; for a
	// non-best action it shrinks as the incumbent improves.
	prevBest, prevOther := -1.0, math.Inf(1)
	for v := -10.0; v <= 10.0; v += 0.25 {
		gBest := ExactVPI(true, v+1, v, d)
		gOther := ExactVPI(false, v, v-1, d)
		assert.GreaterOrEqual(t, gBest, prevBest-1e-12)
		assert.LessOrEqual(t, gOther, prevOther+1e-12)
		prevBest, prevOther = gBest, gOther
	}

	// Unbounded information gain for a near-prior belief.
	young := dist.NewNormalGamma()
	assert.True(t, math.IsInf(ExactVPI(true, 1, 0, young), 1))
	assert.True(t, math.IsInf(ExactVPI(false, 1, 0, young), 1))
}

func TestExactVPIMatchesSampled(t *testing.T) {
	d := informedBelief()
	marginal := dist.MeanMarginal(d)

	const nSamples = 20000
	src := rand.NewSource(42)
	for v := -10.0; v <= 10.0; v += 0.25 {
		draw := marginal.Sampler(src)

		exact := ExactVPI(true, v+1, v, d)
		mc := SampledVPI(true, v+1, v, draw, nSamples)
		assert.InDelta(t, exact, mc, 0.05+0.01*math.Abs(exact), "best action, bestVal2=%g", v)

		exact = ExactVPI(false, v, v-1, d)
		mc = SampledVPI(false, v, v-1, draw, nSamples)
		assert.InDelta(t, exact, mc, 0.05+0.01*math.Abs(exact), "non-best action, bestVal1=%g", v)
	}
}

func TestVPIShrinksWithEvidence(t *testing.T) {
	// More evidence about the same value means less left to learn.
	few := dist.NewNormalGamma()
	lots := dist.NewNormalGamma()
	obs := []float64{2.0, 2.4, 1.6, 2.2, 1.8, 2.1, 1.9, 2.3, 1.7, 2.0}
	for i, x := range obs {
		if i < 3 {
			few.Observe(x)
		}
		lots.Observe(x)
	}
	for _, off := range []float64{0.2, 0.5, 1.0} {
		assert.Less(t, ExactVPI(false, lots.M+off, lots.M, lots),
			ExactVPI(false, few.M+off, few.M, few))
	}
}

func TestSampledVPIDefaults(t *testing.T) {
	calls := 0
	draw := func() float64 { calls++; return 0 }
	SampledVPI(true, 1, 0.5, draw, 0)
	assert.Equal(t, DefaultVPISamples, calls)
}

func TestExactVPITable(t *testing.T) {
	require.NoError(t, maxsum.RegisterVariable(601, 3))

	belief, err := dist.NewNormalGammaTable([]maxsum.Var{601})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		belief.SetAt(i, informedBelief())
	}
	// Distinct totals: entry 1 is the incumbent best.
	belief.M.Set(0, 1.0)
	belief.M.Set(1, 3.0)
	belief.M.Set(2, 2.0)

	bonus, err := ExactVPITable(belief)
	require.NoError(t, err)
	require.Equal(t, 3, bonus.Len())

	d := informedBelief()
	assert.InDelta(t, ExactVPI(false, 3, 2, mWith(d, 1.0)), bonus.At(0), 1e-12)
	assert.InDelta(t, ExactVPI(true, 3, 2, mWith(d, 3.0)), bonus.At(1), 1e-12)
	assert.InDelta(t, ExactVPI(false, 3, 2, mWith(d, 2.0)), bonus.At(2), 1e-12)
}

func mWith(d dist.NormalGamma, m float64) dist.NormalGamma {
	d.M = m
	return d
}
