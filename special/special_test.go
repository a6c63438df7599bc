package special

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDigamma(t *testing.T) {
	// psi(1) = -gamma (Euler-Mascheroni).
	assert.InDelta(t, -0.5772156649015329, Digamma(1), 1e-10)
	// Recurrence psi(x+1) = psi(x) + 1/x.
	for _, x := range []float64{0.3, 1.0, 2.5, 7.0} {
		assert.InDelta(t, Digamma(x)+1/x, Digamma(x+1), 1e-10)
	}
}

func TestTrigamma(t *testing.T) {
	// psi'(1) = pi^2/6, psi'(1/2) = pi^2/2.
	assert.InDelta(t, math.Pi*math.Pi/6, Trigamma(1), 1e-8)
	assert.InDelta(t, math.Pi*math.Pi/2, Trigamma(0.5), 1e-8)

	// Recurrence psi'(x+1) = psi'(x) - 1/x^2.
	for _, x := range []float64{0.4, 1.3, 3.0, 10.0} {
		assert.InDelta(t, Trigamma(x)-1/(x*x), Trigamma(x+1), 1e-8)
	}

	assert.True(t, math.IsNaN(Trigamma(0)))
	assert.True(t, math.IsNaN(Trigamma(-2)))
	assert.True(t, math.IsNaN(Trigamma(math.NaN())))
}

func TestDeardenG(t *testing.T) {
	// g is strictly decreasing in ln y.
	prev := math.Inf(1)
	for ly := MinLogDeardenF; ly <= MaxLogDeardenF; ly += 0.25 {
		g, dg := DeardenG(ly)
		assert.Less(t, g, prev)
		assert.Negative(t, dg)
		assert.Positive(t, g) // ln y - psi(y) > 0 for y > 0
		prev = g
	}
}

func TestDeardenFInvertsG(t *testing.T) {
	for _, ly := range []float64{0.1, 0.5, 1.0, 2.0, 3.5, 5.0} {
		g, _ := DeardenG(ly)
		y := DeardenF(g)
		assert.InDelta(t, math.Exp(ly), y, 0.02*math.Exp(ly),
			"inverting g at ln y = %g", ly)
	}
}

func TestDeardenFClamps(t *testing.T) {
	// Targets outside g's range over the bracket pin the result to a bound.
	gLo, _ := DeardenG(MaxLogDeardenF)
	gHi, _ := DeardenG(MinLogDeardenF)

	assert.InDelta(t, math.Exp(MaxLogDeardenF), DeardenF(gLo/2), 0.05*math.Exp(MaxLogDeardenF))
	assert.LessOrEqual(t, DeardenF(gHi*2), math.Exp(MinLogDeardenF)*1.05)
}
