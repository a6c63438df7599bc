package decbrl

import (
	"fmt"
	"sort"

	"github.com/lteacy/decbrl/dist"
	"github.com/lteacy/decbrl/maxsum"
)

// BeliefStore maps reward factors to their vectorized Normal-Gamma beliefs
// and owns the Bayesian update applied after each observed transition. A
// factor's domain is fixed at registration and never resized.
type BeliefStore struct {
	beliefs map[maxsum.FactorID]*dist.NormalGammaTable
}

// NewBeliefStore returns an empty store.
func NewBeliefStore() *BeliefStore {
	return &BeliefStore{beliefs: make(map[maxsum.FactorID]*dist.NormalGammaTable)}
}

// AddFactor registers a belief over the joint domain of the given
// variables, all entries at the default prior. The variables must already
// be registered; registering the same factor twice is an error.
func (s *BeliefStore) AddFactor(id maxsum.FactorID, vars []maxsum.Var) error {
	if _, ok := s.beliefs[id]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateFactor, id)
	}
	b, err := dist.NewNormalGammaTable(vars)
	if err != nil {
		return err
	}
	s.beliefs[id] = b
	return nil
}

// Belief returns the belief for a factor.
func (s *BeliefStore) Belief(id maxsum.FactorID) (*dist.NormalGammaTable, bool) {
	b, ok := s.beliefs[id]
	return b, ok
}

// Factors returns the registered factor ids in ascending order, so that
// iteration over the store is deterministic.
func (s *BeliefStore) Factors() []maxsum.FactorID {
	ids := make([]maxsum.FactorID, 0, len(s.beliefs))
	for id := range s.beliefs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of registered factors.
func (s *BeliefStore) Len() int { return len(s.beliefs) }

// ObserveReward applies the moment-matched Bayes-Q update for one observed
// factor reward r. The bootstrap target distribution is read at postVars
// (the greedy successor state-action) and the update lands on the belief at
// priorVars (the state-action actually taken), per Dearden's moment
// matching: one pseudo-observation with mean E[Q] = r + γm′ and central
// second moment E[Q²] − E[Q]², which requires the successor variance
// β′/(α′−1) and is therefore only available when α′ > 1. Younger beliefs
// fall back to a plain single-observation update with E[Q].
//
// Rewards for unregistered factor ids are ignored.
func (s *BeliefStore) ObserveReward(id maxsum.FactorID, priorVars, postVars VarMap, r, gamma float64) error {
	b, ok := s.beliefs[id]
	if !ok {
		return nil
	}
	post, err := b.AtAssignment(map[maxsum.Var]int(postVars))
	if err != nil {
		return fmt.Errorf("decbrl: factor %d successor lookup: %w", id, err)
	}
	idx, err := b.Alpha.IndexOf(map[maxsum.Var]int(priorVars))
	if err != nil {
		return fmt.Errorf("decbrl: factor %d prior lookup: %w", id, err)
	}

	expQ := r + gamma*post.M
	if post.Alpha > 1 {
		expSigma2 := post.Beta / (post.Alpha - 1)
		expR2 := post.M*post.M + (1+1/post.Lambda)*expSigma2
		expQ2 := r*r + 2*gamma*r*post.M + gamma*gamma*expR2
		s2 := expQ2 - expQ*expQ
		if s2 < 0 {
			s2 = 0
		}
		b.ObserveMomentsAt(idx, expQ, s2, 1)
	} else {
		b.ObserveAt(idx, expQ)
	}
	return nil
}

// Clone deep-copies the store so that independent episodes cannot leak
// beliefs into each other.
func (s *BeliefStore) Clone() *BeliefStore {
	out := NewBeliefStore()
	for id, b := range s.beliefs {
		out.beliefs[id] = b.Clone()
	}
	return out
}
