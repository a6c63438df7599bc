package mdp

import (
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/lteacy/decbrl/dist"
	"github.com/lteacy/decbrl/maxsum"
)

// DefaultTransPrior is the symmetric Dirichlet pseudo-count given to every
// outcome of a fresh transition belief.
const DefaultTransPrior = 1.0

// TransBelief is a Bayesian belief over an unknown transition CPT: one
// Dirichlet per condition row, conjugate to the multinomial next-state
// outcome.
type TransBelief struct {
	condVars   []maxsum.Var
	domainVars []maxsum.Var
	condSize   int
	domainSize int
	rows       []*dist.Dirichlet
}

// NewTransBelief builds a belief over a CPT with the given condition and
// domain variables, every pseudo-count at prior. Variable lists must be
// ascending, as for TransProb.
func NewTransBelief(cond, domain []maxsum.Var, prior float64) (*TransBelief, error) {
	if err := checkAscending(cond); err != nil {
		return nil, fmt.Errorf("mdp: condition variables: %w", err)
	}
	if err := checkAscending(domain); err != nil {
		return nil, fmt.Errorf("mdp: domain variables: %w", err)
	}
	condSize, err := jointSize(cond)
	if err != nil {
		return nil, err
	}
	domainSize, err := jointSize(domain)
	if err != nil {
		return nil, err
	}
	b := &TransBelief{
		condVars:   append([]maxsum.Var(nil), cond...),
		domainVars: append([]maxsum.Var(nil), domain...),
		condSize:   condSize,
		domainSize: domainSize,
		rows:       make([]*dist.Dirichlet, condSize),
	}
	for c := range b.rows {
		row, err := dist.NewDirichlet(domainSize, prior)
		if err != nil {
			return nil, err
		}
		b.rows[c] = row
	}
	return b, nil
}

// SetAlpha resets every pseudo-count to the same scalar.
func (b *TransBelief) SetAlpha(scalar float64) {
	for _, row := range b.rows {
		for i := range row.Alpha {
			row.Alpha[i] = scalar
		}
	}
}

// Alpha returns the pseudo-count for (condition row c, domain index d).
func (b *TransBelief) Alpha(c, d int) float64 {
	return b.rows[c].Alpha[d]
}

// ObserveByIndex counts one observed transition given by linear indices.
func (b *TransBelief) ObserveByIndex(condInd, domainInd int) error {
	if condInd < 0 || condInd >= b.condSize {
		return fmt.Errorf("mdp: condition index %d out of range [0,%d)", condInd, b.condSize)
	}
	return b.rows[condInd].Observe(domainInd)
}

// ObserveByMap counts one observed transition given by assignments over the
// condition and domain variables. Extra keys are ignored.
func (b *TransBelief) ObserveByMap(condAssign, domainAssign map[maxsum.Var]int) error {
	c, err := jointIndex(b.condVars, condAssign)
	if err != nil {
		return err
	}
	d, err := jointIndex(b.domainVars, domainAssign)
	if err != nil {
		return err
	}
	return b.ObserveByIndex(c, d)
}

// MeanCPT returns the expected transition probabilities as a CPT.
func (b *TransBelief) MeanCPT() (*TransProb, error) {
	p, err := NewTransProb(b.condVars, b.domainVars)
	if err != nil {
		return nil, err
	}
	values := make([]float64, 0, b.condSize*b.domainSize)
	for _, row := range b.rows {
		values = append(values, row.Mean()...)
	}
	if err := p.SetCPT(values); err != nil {
		return nil, err
	}
	return p, nil
}

// SampleCPT draws one CPT from the posterior.
func (b *TransBelief) SampleCPT(src rand.Source) (*TransProb, error) {
	p, err := NewTransProb(b.condVars, b.domainVars)
	if err != nil {
		return nil, err
	}
	values := make([]float64, 0, b.condSize*b.domainSize)
	for _, row := range b.rows {
		values = append(values, row.Sample(src)...)
	}
	if err := p.SetCPT(values); err != nil {
		return nil, err
	}
	return p, nil
}

// Clone deep-copies the belief.
func (b *TransBelief) Clone() *TransBelief {
	out := &TransBelief{
		condVars:   b.condVars,
		domainVars: b.domainVars,
		condSize:   b.condSize,
		domainSize: b.domainSize,
		rows:       make([]*dist.Dirichlet, len(b.rows)),
	}
	for i, row := range b.rows {
		out.rows[i] = row.Clone()
	}
	return out
}
