package decbrl

import (
	"math"
	"sort"

	"github.com/lteacy/decbrl/maxsum"
)

// vpiBonusCap replaces the +Inf sentinel when an exploration bonus is added
// to a coordination factor. Unbounded gains must still dominate every
// finite value difference, but raw infinities break max-sum message
// normalization, so they are clamped to a large finite bonus.
const vpiBonusCap = 1e9

// DecBayesLearner is a decentralized model-based Bayesian reinforcement
// learner. Expected factor values are the M hyperparameters of Normal-Gamma
// reward beliefs; each decision runs two coordination passes, first greedy
// on expected values, then again after adding each factor's value of
// perfect information, so that actions with uncertain values are explored
// in proportion to what learning their true value is worth.
//
// A learner is not safe for concurrent use; act and observe for one
// instance form a strict sequence.
type DecBayesLearner struct {
	gamma       float64
	ms          *maxsum.MaxSumController
	store       *BeliefStore
	actionSet   []maxsum.Var
	initialised bool
}

// NewDecBayesLearner returns a learner with the given discount factor and
// coordination limits. Non-positive arguments fall back to defaults.
func NewDecBayesLearner(gamma float64, maxIters int, maxnorm float64) *DecBayesLearner {
	if gamma <= 0 {
		gamma = DefaultGamma
	}
	return &DecBayesLearner{
		gamma: gamma,
		ms:    maxsum.NewMaxSumController(maxIters, maxnorm),
		store: NewBeliefStore(),
	}
}

// Store exposes the learner's belief store for inspection.
func (l *DecBayesLearner) Store() *BeliefStore { return l.store }

// AddFactor registers a reward belief over the given variables. State and
// action variables are not distinguished here: states are whatever is
// passed to Act, actions are the rest.
func (l *DecBayesLearner) AddFactor(id maxsum.FactorID, vars []maxsum.Var) error {
	return l.store.AddFactor(id, vars)
}

// SetStates fixes the state-variable set ahead of the first Act call. The
// action set becomes every factor variable not listed. Calling this after
// initialization has no effect.
func (l *DecBayesLearner) SetStates(states []maxsum.Var) {
	if l.initialised {
		return
	}
	l.actionSet = actionComplement(l.store.allVars(), states)
	l.initialised = true
}

// ActionSet returns the cached action variables, nil before the first Act.
func (l *DecBayesLearner) ActionSet() []maxsum.Var {
	return append([]maxsum.Var(nil), l.actionSet...)
}

func (l *DecBayesLearner) initFromStates(states VarMap) {
	if l.initialised {
		return
	}
	keys := make([]maxsum.Var, 0, len(states))
	for v := range states {
		keys = append(keys, v)
	}
	l.SetStates(keys)
}

// ActGreedy chooses the joint action maximizing the sum of expected factor
// values for the given states, with no exploration bonus. It returns the
// action assignment and the number of coordination iterations used.
func (l *DecBayesLearner) ActGreedy(states VarMap) (VarMap, int, error) {
	if l.store.Len() == 0 {
		return nil, 0, ErrNoFactors
	}
	l.initFromStates(states)
	if err := l.conditionFactors(states); err != nil {
		return nil, 0, err
	}
	iters := l.ms.Optimise()
	return VarMap(l.ms.Values()), iters, nil
}

// Act chooses the next joint action with VPI exploration: a greedy
// coordination pass establishes each factor's total local value and the
// best and second-best alternatives, each factor's VPI is added to its
// value table, and a second pass re-optimizes over the augmented values.
// The returned iteration count covers both passes.
func (l *DecBayesLearner) Act(states VarMap) (VarMap, int, error) {
	if l.store.Len() == 0 {
		return nil, 0, ErrNoFactors
	}
	l.initFromStates(states)
	if err := l.conditionFactors(states); err != nil {
		return nil, 0, err
	}
	iters := l.ms.Optimise()

	given := map[maxsum.Var]int(states)
	for _, id := range l.store.Factors() {
		belief, _ := l.store.Belief(id)
		cond, err := belief.Condition(given)
		if err != nil {
			return nil, iters, err
		}
		total, err := l.ms.TotalValue(id)
		if err != nil {
			return nil, iters, err
		}
		// The combined local value belief: total value as the location,
		// uncertainty from the conditioned hyperparameters.
		cond.M = total
		bonus, err := ExactVPITable(cond)
		if err != nil {
			return nil, iters, err
		}
		capTable(bonus, vpiBonusCap)
		handle := l.ms.FactorHandle(id)
		if err := handle.Add(bonus); err != nil {
			return nil, iters, err
		}
		l.ms.NotifyFactor(id)
	}

	iters += l.ms.Optimise()
	return VarMap(l.ms.Values()), iters, nil
}

// Observe updates the reward beliefs from one observed transition. The
// bootstrap successor assignment is the greedy action for postStates
// bundled with postStates itself; rewards for unregistered factors are
// ignored.
func (l *DecBayesLearner) Observe(priorStates, actions, postStates VarMap, rewards RewardMap) error {
	postActions, _, err := l.ActGreedy(postStates)
	if err != nil {
		return err
	}
	postVars := merged(postActions, postStates)
	priorVars := merged(priorStates, actions)
	for id, r := range rewards {
		if err := l.store.ObserveReward(id, priorVars, postVars, r, l.gamma); err != nil {
			return err
		}
	}
	return nil
}

// Clone deep-copies the learner, including beliefs and coordination state,
// so independent episodes stay independent.
func (l *DecBayesLearner) Clone() *DecBayesLearner {
	return &DecBayesLearner{
		gamma:       l.gamma,
		ms:          l.ms.Clone(),
		store:       l.store.Clone(),
		actionSet:   append([]maxsum.Var(nil), l.actionSet...),
		initialised: l.initialised,
	}
}

// conditionFactors loads each belief's expected values, conditioned on the
// current states, into the coordinator.
func (l *DecBayesLearner) conditionFactors(states VarMap) error {
	given := map[maxsum.Var]int(states)
	for _, id := range l.store.Factors() {
		belief, _ := l.store.Belief(id)
		cond, err := belief.M.Condition(given)
		if err != nil {
			return err
		}
		l.ms.SetFactor(id, cond)
	}
	return nil
}

// allVars returns the sorted union of every factor's variables.
func (s *BeliefStore) allVars() []maxsum.Var {
	seen := make(map[maxsum.Var]bool)
	var all []maxsum.Var
	for _, id := range s.Factors() {
		b := s.beliefs[id]
		for _, v := range b.Vars() {
			if !seen[v] {
				seen[v] = true
				all = append(all, v)
			}
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	return all
}

// actionComplement returns allVars minus the given states, sorted.
func actionComplement(allVars, states []maxsum.Var) []maxsum.Var {
	isState := make(map[maxsum.Var]bool, len(states))
	for _, v := range states {
		isState[v] = true
	}
	var actions []maxsum.Var
	for _, v := range allVars {
		if !isState[v] {
			actions = append(actions, v)
		}
	}
	return actions
}

// capTable clamps every entry of t to at most limit, mapping +Inf
// sentinels to a finite bonus.
func capTable(t *maxsum.Table, limit float64) {
	for i := 0; i < t.Len(); i++ {
		if x := t.At(i); x > limit || math.IsInf(x, 1) {
			t.Set(i, limit)
		}
	}
}
