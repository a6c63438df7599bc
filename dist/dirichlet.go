package dist

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distmv"
)

// Dirichlet is the conjugate prior for multinomial outcome probabilities.
// Alpha holds one pseudo-count per outcome.
type Dirichlet struct {
	Alpha []float64
}

// NewDirichlet returns a Dirichlet over size outcomes with every
// pseudo-count set to prior.
func NewDirichlet(size int, prior float64) (*Dirichlet, error) {
	if size < 1 {
		return nil, fmt.Errorf("dist: dirichlet needs at least one outcome, got %d", size)
	}
	if prior <= 0 {
		return nil, fmt.Errorf("dist: dirichlet prior must be positive, got %g", prior)
	}
	alpha := make([]float64, size)
	for i := range alpha {
		alpha[i] = prior
	}
	return &Dirichlet{Alpha: alpha}, nil
}

// Observe increments the pseudo-count of a single observed outcome.
func (d *Dirichlet) Observe(outcome int) error {
	if outcome < 0 || outcome >= len(d.Alpha) {
		return fmt.Errorf("dist: outcome %d out of range [0,%d)", outcome, len(d.Alpha))
	}
	d.Alpha[outcome]++
	return nil
}

// ObserveCounts adds a full vector of outcome counts.
func (d *Dirichlet) ObserveCounts(counts []float64) error {
	if len(counts) != len(d.Alpha) {
		return fmt.Errorf("dist: got %d counts for %d outcomes", len(counts), len(d.Alpha))
	}
	for i, c := range counts {
		d.Alpha[i] += c
	}
	return nil
}

// Mean returns the expected outcome probabilities.
func (d *Dirichlet) Mean() []float64 {
	total := 0.0
	for _, a := range d.Alpha {
		total += a
	}
	mean := make([]float64, len(d.Alpha))
	for i, a := range d.Alpha {
		mean[i] = a / total
	}
	return mean
}

// Sample draws one probability vector from the posterior.
func (d *Dirichlet) Sample(src rand.Source) []float64 {
	g := distmv.NewDirichlet(d.Alpha, src)
	return g.Rand(nil)
}

// Clone deep-copies the distribution.
func (d *Dirichlet) Clone() *Dirichlet {
	return &Dirichlet{Alpha: append([]float64(nil), d.Alpha...)}
}
