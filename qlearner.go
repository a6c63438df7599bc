package decbrl

import (
	"fmt"
	"sort"

	"golang.org/x/exp/rand"

	"github.com/lteacy/decbrl/maxsum"
)

// Default learning parameters for DecQLearner.
const (
	DefaultQAlpha   = 0.1
	DefaultQEpsilon = 0.1
)

// DecQLearner is a factored Q-learning policy with epsilon-greedy
// exploration: exploitation delegates the joint argmax to max-sum
// coordination over the factored Q tables, exploration picks uniform random
// actions. It shares the Learner surface with DecBayesLearner so
// experiments can swap policies.
type DecQLearner struct {
	alpha   float64
	gamma   float64
	epsilon float64

	ms          *maxsum.MaxSumController
	qValues     map[maxsum.FactorID]*maxsum.Table
	actionSet   []maxsum.Var
	initialised bool
	rng         *rand.Rand
}

// NewDecQLearner returns a Q-learner with the given step size, discount and
// exploration rate. Non-positive alpha or gamma fall back to defaults; the
// random source drives exploratory moves and must not be nil.
func NewDecQLearner(alpha, gamma, epsilon float64, maxIters int, maxnorm float64, rng *rand.Rand) *DecQLearner {
	if alpha <= 0 {
		alpha = DefaultQAlpha
	}
	if gamma <= 0 {
		gamma = DefaultGamma
	}
	return &DecQLearner{
		alpha:   alpha,
		gamma:   gamma,
		epsilon: epsilon,
		ms:      maxsum.NewMaxSumController(maxIters, maxnorm),
		qValues: make(map[maxsum.FactorID]*maxsum.Table),
		rng:     rng,
	}
}

// AddFactor registers a factored Q table over the given variables with all
// values zero.
func (l *DecQLearner) AddFactor(id maxsum.FactorID, vars []maxsum.Var) error {
	if _, ok := l.qValues[id]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateFactor, id)
	}
	q, err := maxsum.NewTable(vars, 0)
	if err != nil {
		return err
	}
	l.qValues[id] = q
	return nil
}

// QValue returns the Q table registered for a factor.
func (l *DecQLearner) QValue(id maxsum.FactorID) (*maxsum.Table, bool) {
	q, ok := l.qValues[id]
	return q, ok
}

func (l *DecQLearner) factors() []maxsum.FactorID {
	ids := make([]maxsum.FactorID, 0, len(l.qValues))
	for id := range l.qValues {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (l *DecQLearner) initFromStates(states VarMap) {
	if l.initialised {
		return
	}
	seen := make(map[maxsum.Var]bool)
	var all []maxsum.Var
	for _, id := range l.factors() {
		for _, v := range l.qValues[id].Vars() {
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
	l.actionSet = actionComplement(all, stateVars)
	l.initialised = true
}

// ActGreedy picks the joint action maximizing the sum of factored Q values
// in the given states.
func (l *DecQLearner) ActGreedy(states VarMap) (VarMap, int, error) {
	if len(l.qValues) == 0 {
		return nil, 0, ErrNoFactors
	}
	l.initFromStates(states)
	given := map[maxsum.Var]int(states)
	for _, id := range l.factors() {
		cond, err := l.qValues[id].Condition(given)
		if err != nil {
			return nil, 0, err
		}
		l.ms.SetFactor(id, cond)
	}
	iters := l.ms.Optimise()
	return VarMap(l.ms.Values()), iters, nil
}

// Act flips a coin: with probability epsilon every action variable gets a
// uniform random value and the iteration count is zero, otherwise the move
// is greedy.
func (l *DecQLearner) Act(states VarMap) (VarMap, int, error) {
	if len(l.qValues) == 0 {
		return nil, 0, ErrNoFactors
	}
	l.initFromStates(states)
	if l.rng.Float64() <= l.epsilon {
		actions := make(VarMap, len(l.actionSet))
		for _, v := range l.actionSet {
			size, err := maxsum.DomainSize(v)
			if err != nil {
				return nil, 0, err
			}
			actions[v] = l.rng.Intn(size)
		}
		return actions, 0, nil
	}
	return l.ActGreedy(states)
}

// Observe applies the Q-learning update
//
//	Q(s,a) ← (1−α)·Q(s,a) + α·(r + γ·Q(s′,a′))
//
// for each observed factor reward, with a′ the greedy joint action for
// postStates. Rewards for unregistered factors are ignored.
func (l *DecQLearner) Observe(priorStates, actions, postStates VarMap, rewards RewardMap) error {
	postActions, _, err := l.ActGreedy(postStates)
	if err != nil {
		return err
	}
	postVars := map[maxsum.Var]int(merged(postActions, postStates))
	priorVars := map[maxsum.Var]int(merged(priorStates, actions))

	for id, r := range rewards {
		q, ok := l.qValues[id]
		if !ok {
			continue
		}
		priorQ, err := q.AtAssignment(priorVars)
		if err != nil {
			return fmt.Errorf("decbrl: factor %d prior lookup: %w", id, err)
		}
		postQ, err := q.AtAssignment(postVars)
		if err != nil {
			return fmt.Errorf("decbrl: factor %d successor lookup: %w", id, err)
		}
		target := r + l.gamma*postQ
		if err := q.SetAssignment(priorVars, (1-l.alpha)*priorQ+l.alpha*target); err != nil {
			return err
		}
	}
	return nil
}

// Clone deep-copies the learner's Q tables and coordination state. The
// random source is shared; pass a fresh seeded source to the copy via
// SetRand when reproducibility across clones matters.
func (l *DecQLearner) Clone() *DecQLearner {
	out := &DecQLearner{
		alpha:       l.alpha,
		gamma:       l.gamma,
		epsilon:     l.epsilon,
		ms:          l.ms.Clone(),
		qValues:     make(map[maxsum.FactorID]*maxsum.Table, len(l.qValues)),
		actionSet:   append([]maxsum.Var(nil), l.actionSet...),
		initialised: l.initialised,
		rng:         l.rng,
	}
	for id, q := range l.qValues {
		out.qValues[id] = q.Clone()
	}
	return out
}

// SetRand replaces the learner's random source.
func (l *DecQLearner) SetRand(rng *rand.Rand) { l.rng = rng }
