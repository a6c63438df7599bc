// Package special provides the special functions needed for variational
// updates of Gamma shape parameters: the trigamma function and Dearden's g
// function together with its numerical inverse f. The digamma function is
// re-exported from gonum so callers have one import for the polygamma
// family.
package special

import (
	"math"

	"gonum.org/v1/gonum/mathext"
)

// Bounds on ln f(x). Values of the Gamma shape below e^MinLogDeardenF give
// improper posteriors, and above e^MaxLogDeardenF the Gamma shape barely
// changes, so the root search is confined to this interval.
const (
	MinLogDeardenF = 0.0001
	MaxLogDeardenF = 6.0
)

// Digamma returns the logarithmic derivative of the Gamma function.
func Digamma(x float64) float64 {
	return mathext.Digamma(x)
}

// Trigamma returns the second derivative of the log Gamma function.
// Ported from the AS 121 algorithm of B.E. Schneider: small arguments use
// the leading 1/x² term, moderate ones are shifted up by the recurrence
// ψ′(x) = ψ′(x+1) + 1/x², and the tail uses the asymptotic Bernoulli
// expansion.
func Trigamma(x float64) float64 {
	const (
		small = 1e-4
		large = 5.0
		b2    = 1.0 / 6.0
		b4    = -1.0 / 30.0
		b6    = 1.0 / 42.0
		b8    = -1.0 / 30.0
	)
	if math.IsNaN(x) || x <= 0 {
		return math.NaN()
	}
	if x <= small {
		return 1 / (x * x)
	}
	z := x
	value := 0.0
	for z < large {
		value += 1 / (z * z)
		z++
	}
	y := 1 / (z * z)
	value += 0.5*y + (1+y*(b2+y*(b4+y*(b6+y*b8))))/z
	return value
}

// DeardenG evaluates g(ln y) = ln y − ψ(y) together with its derivative
// with respect to ln y, which is 1 − y·ψ′(y). Working in the log domain
// keeps the derivative stable for the root finding done by DeardenF.
func DeardenG(ly float64) (g, dg float64) {
	y := math.Exp(ly)
	g = ly - Digamma(y)
	dg = 1 - y*Trigamma(y)
	return g, dg
}

// DeardenF returns y such that x = ln y − ψ(y): the inverse of DeardenG.
// No closed form exists, so the root is found by a bounded Newton
// iteration on ln y. g is strictly decreasing (y·ψ′(y) > 1 for y > 0), so
// the iteration is clamped to [MinLogDeardenF, MaxLogDeardenF] and cannot
// escape the bracket.
func DeardenF(x float64) float64 {
	const (
		maxIter = 10
		tol     = 1.0 / (1 << 8)
	)
	ly := 2.0
	for i := 0; i < maxIter; i++ {
		g, dg := DeardenG(ly)
		diff := g - x
		if math.Abs(diff) < tol*math.Abs(dg) {
			break
		}
		ly -= diff / dg
		if ly < MinLogDeardenF {
			ly = MinLogDeardenF
		} else if ly > MaxLogDeardenF {
			ly = MaxLogDeardenF
		}
	}
	return math.Exp(ly)
}
