package decbrl

import (
	"fmt"
	"sort"

	"golang.org/x/exp/rand"

	"github.com/lteacy/decbrl/maxsum"
)

// RandomPolicy assigns every action variable a uniform random value. It
// learns nothing and exists as an experiment baseline.
type RandomPolicy struct {
	domains     map[maxsum.FactorID][]maxsum.Var
	actionSet   []maxsum.Var
	initialised bool
	rng         *rand.Rand
}

// NewRandomPolicy returns a random policy driven by the given source.
func NewRandomPolicy(rng *rand.Rand) *RandomPolicy {
	return &RandomPolicy{domains: make(map[maxsum.FactorID][]maxsum.Var), rng: rng}
}

// AddFactor records the factor's variables so the action set can be
// derived on the first Act call.
func (p *RandomPolicy) AddFactor(id maxsum.FactorID, vars []maxsum.Var) error {
	if _, ok := p.domains[id]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateFactor, id)
	}
	p.domains[id] = append([]maxsum.Var(nil), vars...)
	return nil
}

// Act returns uniform random values for every action variable. The
// iteration count is always zero.
func (p *RandomPolicy) Act(states VarMap) (VarMap, int, error) {
	if len(p.domains) == 0 {
		return nil, 0, ErrNoFactors
	}
	if !p.initialised {
		seen := make(map[maxsum.Var]bool)
		var all []maxsum.Var
		for _, vars := range p.domains {
			for _, v := range vars {
				if !seen[v] {
					seen[v] = true
					all = append(all, v)
				}
			}
		}
		sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
		stateVars := make([]maxsum.Var, 0, len(states))
		for v := range states {
			stateVars = append(stateVars, v)
		}
		p.actionSet = actionComplement(all, stateVars)
		p.initialised = true
	}
	actions := make(VarMap, len(p.actionSet))
	for _, v := range p.actionSet {
		size, err := maxsum.DomainSize(v)
		if err != nil {
			return nil, 0, err
		}
		actions[v] = p.rng.Intn(size)
	}
	return actions, 0, nil
}

// ActGreedy is identical to Act; a random policy has no greedy mode.
func (p *RandomPolicy) ActGreedy(states VarMap) (VarMap, int, error) {
	return p.Act(states)
}

// Observe does nothing.
func (p *RandomPolicy) Observe(priorStates, actions, postStates VarMap, rewards RewardMap) error {
	return nil
}
