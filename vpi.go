package decbrl

import (
	"math"

	"github.com/lteacy/decbrl/dist"
	"github.com/lteacy/decbrl/maxsum"
)

// DefaultVPISamples is the sample count used by SampledVPI when none is
// given.
const DefaultVPISamples = 50

// TruncationBias returns the truncation bias
//
//	B(x) = Γ(α−½)·√β·(1 + λ(x−m)²/(2β))^(½−α) / (Γ(α)·Γ(½)·√(2λ))
//
// for the belief d evaluated at x. The result is +Inf when α < 0.5, where
// the expression is undefined and the information gain is unbounded.
// Evaluation runs in the log domain so that large α or large |x−m| cannot
// overflow the Gamma terms.
func TruncationBias(d dist.NormalGamma, x float64) float64 {
	if d.Alpha < 0.5 {
		return math.Inf(1)
	}
	lgHalf, _ := math.Lgamma(d.Alpha - 0.5)
	lgFull, _ := math.Lgamma(d.Alpha)
	t := d.Lambda * (x - d.M) * (x - d.M) / (2 * d.Beta)
	logB := lgHalf - lgFull +
		0.5*math.Log(d.Beta) +
		(0.5-d.Alpha)*math.Log1p(t) -
		0.5*math.Log(2*d.Lambda) -
		0.5*math.Log(math.Pi)
	return math.Exp(logB)
}

// ExactVPI returns the value of perfect information for an action whose
// unknown value is distributed according to d. bestVal1 and bestVal2 are
// the best and second-best expected values over all actions; isBestAction
// says whether d belongs to the best one. The result is the expected policy
// improvement from learning the action's true value before committing, and
// is always non-negative. It is +Inf when α < 0.5 (unbounded gain).
func ExactVPI(isBestAction bool, bestVal1, bestVal2 float64, d dist.NormalGamma) float64 {
	if d.Alpha < 0.5 {
		return math.Inf(1)
	}
	marginal := dist.MeanMarginal(d)
	if isBestAction {
		// Gain realized when the best action turns out worse than the
		// runner-up: E[max(0, bestVal2 − μ)].
		return TruncationBias(d, bestVal2) + (bestVal2-d.M)*marginal.CDF(bestVal2)
	}
	// Gain realized when this action turns out better than the incumbent:
	// E[max(0, μ − bestVal1)].
	return TruncationBias(d, bestVal1) + (d.M-bestVal1)*(1-marginal.CDF(bestVal1))
}

// SampledVPI estimates the value of perfect information by Monte-Carlo
// sampling from the marginal value distribution. sample draws one value per
// call; nSamples <= 0 falls back to DefaultVPISamples. Intended as a
// validation cross-check for ExactVPI, not for the decision path.
func SampledVPI(isBestAction bool, bestVal1, bestVal2 float64, sample func() float64, nSamples int) float64 {
	if nSamples <= 0 {
		nSamples = DefaultVPISamples
	}
	total := 0.0
	for i := 0; i < nSamples; i++ {
		x := sample()
		if isBestAction {
			if x < bestVal2 {
				total += bestVal2 - x
			}
		} else {
			if x > bestVal1 {
				total += x - bestVal1
			}
		}
	}
	return total / float64(nSamples)
}

// ExactVPITable computes the per-assignment exploration bonus for a factor
// whose combined local value and uncertainty are described by belief: the M
// table holds the factor's total local value (own value plus coordination
// messages) and Alpha, Beta, Lambda the conditioned hyperparameters. The
// assignment with the highest total value is treated as the incumbent best;
// every entry gets its VPI against the best and second-best totals.
func ExactVPITable(belief *dist.NormalGammaTable) (*maxsum.Table, error) {
	out, err := maxsum.NewTable(belief.Vars(), 0)
	if err != nil {
		return nil, err
	}
	best1, best2, argmax := belief.M.MaxPair()
	for i := 0; i < out.Len(); i++ {
		out.Set(i, ExactVPI(i == argmax, best1, best2, belief.At(i)))
	}
	return out, nil
}
