// Package decbrl implements decentralized Bayesian reinforcement learning
// over factored Markov decision processes. Joint actions are chosen by
// max-sum coordination over per-factor value estimates; residual
// uncertainty about those estimates is carried as Normal-Gamma conjugate
// beliefs and converted into exploration bonuses through the value of
// perfect information (VPI).
//
// The package provides three policies with a common surface: DecBayesLearner
// (Bayesian model learning with VPI exploration), DecQLearner (factored
// Q-learning with epsilon-greedy exploration) and RandomPolicy (uniform
// baseline).
package decbrl

import (
	"errors"

	"github.com/lteacy/decbrl/maxsum"
)

// DefaultGamma is the default discount factor for future rewards.
const DefaultGamma = 0.95

var (
	// ErrDuplicateFactor is returned when a factor id is registered twice.
	ErrDuplicateFactor = errors.New("decbrl: factor already registered")
	// ErrNoFactors is returned when a policy is asked to act before any
	// factor has been registered.
	ErrNoFactors = errors.New("decbrl: no factors registered")
)

// VarMap assigns a value index to each variable of a joint state or action.
type VarMap map[maxsum.Var]int

// RewardMap carries one observed reward per factor.
type RewardMap map[maxsum.FactorID]float64

// Clone returns a copy of the map.
func (m VarMap) Clone() VarMap {
	out := make(VarMap, len(m))
	for v, x := range m {
		out[v] = x
	}
	return out
}

// merged returns the union of the given maps; later maps win on key clashes.
func merged(maps ...VarMap) VarMap {
	out := make(VarMap)
	for _, m := range maps {
		for v, x := range m {
			out[v] = x
		}
	}
	return out
}

// Learner is the common surface of every policy in this package: register
// value factors, choose joint actions for a given joint state, and learn
// from observed transitions. Act and ActGreedy also report the number of
// coordination iterations spent; zero signals a move chosen without
// optimization (for example an exploratory move).
type Learner interface {
	AddFactor(id maxsum.FactorID, vars []maxsum.Var) error
	Act(states VarMap) (VarMap, int, error)
	ActGreedy(states VarMap) (VarMap, int, error)
	Observe(priorStates, actions, postStates VarMap, rewards RewardMap) error
}
