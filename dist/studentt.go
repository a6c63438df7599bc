package dist

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// StudentT is a location-scale Student's t distribution. For a Normal-Gamma
// belief it is the marginal distribution of the unknown mean with the
// precision integrated out. Quantile and CDF machinery comes from gonum by
// composition; only the operations the learner needs are exposed.
type StudentT struct {
	df    float64
	loc   float64
	scale float64
}

// NewStudentT returns the location-scale t distribution with the given
// degrees of freedom, location and scale.
func NewStudentT(df, loc, scale float64) StudentT {
	return StudentT{df: df, loc: loc, scale: scale}
}

// MeanMarginal returns the marginal distribution of the unknown mean under
// belief d: df=2α, location m, scale sqrt(β/(λα)). The scale degenerates
// when λ or α is zero; callers must only use the marginal for beliefs with
// strictly positive hyperparameters.
func MeanMarginal(d NormalGamma) StudentT {
	return StudentT{
		df:    2 * d.Alpha,
		loc:   d.M,
		scale: math.Sqrt(d.Beta / d.Lambda / d.Alpha),
	}
}

// DegreesOfFreedom returns the df parameter.
func (t StudentT) DegreesOfFreedom() float64 { return t.df }

// Location returns the location parameter (the mode and mean).
func (t StudentT) Location() float64 { return t.loc }

// Scale returns the scale parameter.
func (t StudentT) Scale() float64 { return t.scale }

// Mean returns the distribution mean, equal to the location.
func (t StudentT) Mean() float64 { return t.loc }

// HasFiniteVariance reports whether the variance is defined, which requires
// df > 2 (α > 1 for a mean marginal).
func (t StudentT) HasFiniteVariance() bool { return t.df > 2 }

// StdDev returns the standard deviation, or +Inf when the variance is
// undefined.
func (t StudentT) StdDev() float64 {
	if !t.HasFiniteVariance() {
		return math.Inf(1)
	}
	return t.scale * math.Sqrt(t.df/(t.df-2))
}

// CDF returns P(X <= x).
func (t StudentT) CDF(x float64) float64 {
	return distuv.StudentsT{Mu: t.loc, Sigma: t.scale, Nu: t.df}.CDF(x)
}

// Quantile returns the value x such that P(X <= x) = p.
func (t StudentT) Quantile(p float64) float64 {
	return distuv.StudentsT{Mu: t.loc, Sigma: t.scale, Nu: t.df}.Quantile(p)
}

// Sampler returns a draw function backed by the given random source. The
// source is injected rather than global so that seeded runs and cloned
// learners stay reproducible.
func (t StudentT) Sampler(src rand.Source) func() float64 {
	d := distuv.StudentsT{Mu: t.loc, Sigma: t.scale, Nu: t.df, Src: src}
	return d.Rand
}
