package dist

import (
	"fmt"

	"github.com/lteacy/decbrl/maxsum"
)

// NormalGammaTable holds one independent Normal-Gamma belief per element of
// a joint discrete variable domain: four parallel tables, one per
// hyperparameter, all over the same variables. Every entry starts at the
// default prior. The scalar NormalGamma carries the update math; the table
// reads a quadruple out, applies the scalar update, and writes it back, so
// the two forms cannot drift apart.
type NormalGammaTable struct {
	Alpha  *maxsum.Table
	Beta   *maxsum.Table
	Lambda *maxsum.Table
	M      *maxsum.Table
}

// NewNormalGammaTable builds a vectorized belief over the joint domain of
// the given registered variables.
func NewNormalGammaTable(vars []maxsum.Var) (*NormalGammaTable, error) {
	alpha, err := maxsum.NewTable(vars, DefaultAlpha)
	if err != nil {
		return nil, fmt.Errorf("dist: building belief domain: %w", err)
	}
	beta, _ := maxsum.NewTable(vars, DefaultBeta)
	lambda, _ := maxsum.NewTable(vars, DefaultLambda)
	m, _ := maxsum.NewTable(vars, DefaultM)
	return &NormalGammaTable{Alpha: alpha, Beta: beta, Lambda: lambda, M: m}, nil
}

// Vars returns the variables of the belief's joint domain.
func (t *NormalGammaTable) Vars() []maxsum.Var { return t.Alpha.Vars() }

// Len returns the joint domain size.
func (t *NormalGammaTable) Len() int { return t.Alpha.Len() }

// At returns the belief quadruple stored at linear index i.
func (t *NormalGammaTable) At(i int) NormalGamma {
	return NormalGamma{
		Alpha:  t.Alpha.At(i),
		Beta:   t.Beta.At(i),
		Lambda: t.Lambda.At(i),
		M:      t.M.At(i),
	}
}

// SetAt stores a belief quadruple at linear index i.
func (t *NormalGammaTable) SetAt(i int, d NormalGamma) {
	t.Alpha.Set(i, d.Alpha)
	t.Beta.Set(i, d.Beta)
	t.Lambda.Set(i, d.Lambda)
	t.M.Set(i, d.M)
}

// AtAssignment returns the quadruple for a joint assignment. Keys covering
// variables outside the belief domain are ignored.
func (t *NormalGammaTable) AtAssignment(assign map[maxsum.Var]int) (NormalGamma, error) {
	i, err := t.Alpha.IndexOf(assign)
	if err != nil {
		return NormalGamma{}, err
	}
	return t.At(i), nil
}

// ObserveAt updates only the belief at linear index i with observation x.
// All other entries are untouched.
func (t *NormalGammaTable) ObserveAt(i int, x float64) {
	d := t.At(i)
	d.Observe(x)
	t.SetAt(i, d)
}

// ObserveMomentsAt updates only the belief at linear index i with the
// sufficient statistics of n observations.
func (t *NormalGammaTable) ObserveMomentsAt(i int, sm, s2 float64, n int) {
	d := t.At(i)
	d.ObserveMoments(sm, s2, n)
	t.SetAt(i, d)
}

// Observe updates every belief in the domain with observation x.
func (t *NormalGammaTable) Observe(x float64) {
	for i := 0; i < t.Len(); i++ {
		t.ObserveAt(i, x)
	}
}

// ObserveMoments updates every belief in the domain with the same
// sufficient statistics.
func (t *NormalGammaTable) ObserveMoments(sm, s2 float64, n int) {
	for i := 0; i < t.Len(); i++ {
		t.ObserveMomentsAt(i, sm, s2, n)
	}
}

// Condition fixes the given variables and returns the belief over the
// remaining sub-domain. The result shares no storage with the receiver.
func (t *NormalGammaTable) Condition(given map[maxsum.Var]int) (*NormalGammaTable, error) {
	alpha, err := t.Alpha.Condition(given)
	if err != nil {
		return nil, err
	}
	beta, err := t.Beta.Condition(given)
	if err != nil {
		return nil, err
	}
	lambda, err := t.Lambda.Condition(given)
	if err != nil {
		return nil, err
	}
	m, err := t.M.Condition(given)
	if err != nil {
		return nil, err
	}
	return &NormalGammaTable{Alpha: alpha, Beta: beta, Lambda: lambda, M: m}, nil
}

// Clone deep-copies the belief.
func (t *NormalGammaTable) Clone() *NormalGammaTable {
	return &NormalGammaTable{
		Alpha:  t.Alpha.Clone(),
		Beta:   t.Beta.Clone(),
		Lambda: t.Lambda.Clone(),
		M:      t.M.Clone(),
	}
}
