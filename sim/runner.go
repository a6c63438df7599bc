package sim

import (
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/exp/rand"

	"github.com/lteacy/decbrl"
	"github.com/lteacy/decbrl/mdp"
)

// Runner drives the act/observe loop between a learner and a simulated MDP.
type Runner struct {
	learner  decbrl.Learner
	env      *mdp.FactoredMDP
	rng      *rand.Rand
	log      *zap.Logger
	recorder Recorder
}

// NewRunner wires a learner to a simulator. The learner is registered with
// one factor per simulator reward, over the same variables. A nil logger
// disables logging; a nil recorder disables recording.
func NewRunner(learner decbrl.Learner, env *mdp.FactoredMDP, rng *rand.Rand, log *zap.Logger, rec Recorder) (*Runner, error) {
	if log == nil {
		log = zap.NewNop()
	}
	for id, vars := range env.RewardDomains() {
		if err := learner.AddFactor(id, vars); err != nil {
			return nil, fmt.Errorf("sim: registering reward factor %d: %w", id, err)
		}
	}
	return &Runner{learner: learner, env: env, rng: rng, log: log, recorder: rec}, nil
}

// Run executes steps timesteps and returns the total accumulated reward.
func (r *Runner) Run(steps int) (float64, error) {
	total := 0.0
	for t := 0; t < steps; t++ {
		stepR, err := r.step(t)
		if err != nil {
			return total, fmt.Errorf("sim: timestep %d: %w", t, err)
		}
		total += stepR
	}
	r.log.Info("run finished", zap.Int("steps", steps), zap.Float64("totalReward", total))
	return total, nil
}

func (r *Runner) step(t int) (float64, error) {
	priorState := r.env.CurState()
	actions, iters, err := r.learner.Act(priorState)
	if err != nil {
		return 0, fmt.Errorf("choosing action: %w", err)
	}
	if err := r.env.Act(r.rng, actions); err != nil {
		return 0, fmt.Errorf("simulating action: %w", err)
	}
	postState := r.env.CurState()
	rewards := r.env.LastRewards()
	stepR := 0.0
	for _, x := range rewards {
		stepR += x
	}
	if err := r.learner.Observe(priorState, actions, postState, rewards); err != nil {
		return 0, fmt.Errorf("observing: %w", err)
	}

	r.log.Debug("step",
		zap.Int("timestep", t),
		zap.Int("iterations", iters),
		zap.Float64("reward", stepR))

	if r.recorder != nil {
		err := r.recorder.Record(Step{
			Timestep:   t,
			Iterations: iters,
			PriorState: priorState,
			Actions:    actions,
			PostState:  postState,
			Rewards:    rewards,
			TotalR:     stepR,
		})
		if err != nil {
			return 0, fmt.Errorf("recording: %w", err)
		}
	}
	return stepR, nil
}
