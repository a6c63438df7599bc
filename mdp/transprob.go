// Package mdp simulates factored Markov decision processes: factored
// Normal rewards, per-state transition CPTs, and Dirichlet conjugate
// beliefs over unknown transition probabilities. Problem instances are
// described by YAML specs.
package mdp

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"github.com/lteacy/decbrl/maxsum"
)

// TransProb is a conditional probability table: the distribution of a set
// of domain variables given a set of condition variables. Probabilities are
// stored per condition row, domain joint index varying fastest.
type TransProb struct {
	condVars   []maxsum.Var
	domainVars []maxsum.Var
	condSize   int
	domainSize int
	cpt        []float64
}

// NewTransProb builds an empty CPT over registered variables. Both variable
// lists must be in ascending order, matching the layout of the values that
// SetCPT will receive.
func NewTransProb(cond, domain []maxsum.Var) (*TransProb, error) {
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
	return &TransProb{
		condVars:   append([]maxsum.Var(nil), cond...),
		domainVars: append([]maxsum.Var(nil), domain...),
		condSize:   condSize,
		domainSize: domainSize,
		cpt:        make([]float64, condSize*domainSize),
	}, nil
}

// CondVars returns the condition variables.
func (p *TransProb) CondVars() []maxsum.Var { return p.condVars }

// DomainVars returns the domain variables.
func (p *TransProb) DomainVars() []maxsum.Var { return p.domainVars }

// SetCPT loads the probability values, one block of domainSize entries per
// condition row. Each row must be a probability distribution.
func (p *TransProb) SetCPT(values []float64) error {
	if len(values) != len(p.cpt) {
		return fmt.Errorf("mdp: CPT needs %dx%d=%d values but %d are specified",
			p.domainSize, p.condSize, len(p.cpt), len(values))
	}
	for c := 0; c < p.condSize; c++ {
		sum := 0.0
		for d := 0; d < p.domainSize; d++ {
			x := values[c*p.domainSize+d]
			if x < 0 {
				return fmt.Errorf("mdp: negative probability %g in CPT row %d", x, c)
			}
			sum += x
		}
		if math.Abs(sum-1) > 1e-9 {
			return fmt.Errorf("mdp: CPT row %d sums to %g, want 1", c, sum)
		}
	}
	copy(p.cpt, values)
	return nil
}

// Prob returns P(domain joint index d | condition joint index c).
func (p *TransProb) Prob(c, d int) float64 {
	return p.cpt[c*p.domainSize+d]
}

// DrawNext samples the next values of the domain variables given the
// condition assignment in prev, writing them into out.
func (p *TransProb) DrawNext(rng *rand.Rand, prev, out map[maxsum.Var]int) error {
	c, err := jointIndex(p.condVars, prev)
	if err != nil {
		return err
	}
	u := rng.Float64()
	cum := 0.0
	d := p.domainSize - 1
	for i := 0; i < p.domainSize; i++ {
		cum += p.cpt[c*p.domainSize+i]
		if u < cum {
			d = i
			break
		}
	}
	return decodeJoint(p.domainVars, d, out)
}

// checkAscending rejects unsorted or duplicate variable lists: the value
// layouts in specs and CPTs are defined against ascending variable order,
// and silently reordering would scramble them.
func checkAscending(vars []maxsum.Var) error {
	for i := 1; i < len(vars); i++ {
		if vars[i] <= vars[i-1] {
			return fmt.Errorf("variables must be listed in ascending order, got %v", vars)
		}
	}
	return nil
}

// jointSize returns the product of the registered domain sizes.
func jointSize(vars []maxsum.Var) (int, error) {
	n := 1
	for _, v := range vars {
		size, err := maxsum.DomainSize(v)
		if err != nil {
			return 0, err
		}
		n *= size
	}
	return n, nil
}

// jointIndex maps an assignment to a linear index over vars, last variable
// fastest. Extra keys in assign are ignored.
func jointIndex(vars []maxsum.Var, assign map[maxsum.Var]int) (int, error) {
	idx := 0
	for _, v := range vars {
		size, err := maxsum.DomainSize(v)
		if err != nil {
			return 0, err
		}
		val, ok := assign[v]
		if !ok {
			return 0, fmt.Errorf("mdp: assignment missing variable %d", v)
		}
		if val < 0 || val >= size {
			return 0, fmt.Errorf("mdp: value %d out of range for variable %d (size %d)", val, v, size)
		}
		idx = idx*size + val
	}
	return idx, nil
}

// decodeJoint writes the assignment encoded by linear index i into out.
func decodeJoint(vars []maxsum.Var, i int, out map[maxsum.Var]int) error {
	for k := len(vars) - 1; k >= 0; k-- {
		size, err := maxsum.DomainSize(vars[k])
		if err != nil {
			return err
		}
		out[vars[k]] = i % size
		i /= size
	}
	return nil
}
