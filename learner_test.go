package decbrl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lteacy/decbrl/dist"
	"github.com/lteacy/decbrl/maxsum"
)

// Test fixture: state 501, actions 502 and 503, all binary.
func registerLearnerVars(t *testing.T) {
	t.Helper()
	require.NoError(t, maxsum.RegisterVariable(501, 2))
	require.NoError(t, maxsum.RegisterVariable(502, 2))
	require.NoError(t, maxsum.RegisterVariable(503, 2))
}

func TestLearnerAddFactor(t *testing.T) {
	registerLearnerVars(t)
	l := NewDecBayesLearner(0, 0, 0)

	_, _, err := l.Act(VarMap{501: 0})
	assert.ErrorIs(t, err, ErrNoFactors)
	_, _, err = l.ActGreedy(VarMap{501: 0})
	assert.ErrorIs(t, err, ErrNoFactors)

	require.NoError(t, l.AddFactor(1, []maxsum.Var{501, 502}))
	assert.ErrorIs(t, l.AddFactor(1, []maxsum.Var{501, 502}), ErrDuplicateFactor)

	b, ok := l.Store().Belief(1)
	require.True(t, ok)
	assert.Equal(t, 4, b.Len())
}

func TestActGreedyConditionsOnState(t *testing.T) {
	registerLearnerVars(t)
	l := NewDecBayesLearner(0, 0, 0)
	require.NoError(t, l.AddFactor(1, []maxsum.Var{501, 502}))

	b, _ := l.Store().Belief(1)
	// Rows over (state, action), action fastest: state 0 prefers action 1,
	// state 1 prefers action 0.
	b.M.Set(0, 1)
	b.M.Set(1, 5)
	b.M.Set(2, 7)
	b.M.Set(3, 2)

	actions, iters, err := l.ActGreedy(VarMap{501: 0})
	require.NoError(t, err)
	assert.Greater(t, iters, 0)
	assert.Equal(t, VarMap{502: 1}, actions)

	actions, _, err = l.ActGreedy(VarMap{501: 1})
	require.NoError(t, err)
	assert.Equal(t, VarMap{502: 0}, actions)
}

func TestActExploresWithBonus(t *testing.T) {
	registerLearnerVars(t)
	l := NewDecBayesLearner(0, 0, 0)
	require.NoError(t, l.AddFactor(1, []maxsum.Var{501, 502}))

	// Confident beliefs with a wide value gap: the exploration bonus must
	// not overturn the greedy choice.
	b, _ := l.Store().Belief(1)
	confident := dist.NewNormalGamma()
	for i := 0; i < 20; i++ {
		confident.Observe(2.0)
	}
	for i := 0; i < b.Len(); i++ {
		b.SetAt(i, confident)
	}
	b.M.Set(0, 0)
	b.M.Set(1, 100)
	b.M.Set(2, 100)
	b.M.Set(3, 0)

	actions, iters, err := l.Act(VarMap{501: 0})
	require.NoError(t, err)
	assert.Greater(t, iters, 0)
	assert.Equal(t, VarMap{502: 1}, actions)
}

func TestActWithPriorBeliefs(t *testing.T) {
	registerLearnerVars(t)
	l := NewDecBayesLearner(0, 0, 0)
	require.NoError(t, l.AddFactor(1, []maxsum.Var{501, 502}))

	// Near-prior beliefs have unbounded information gain; the bonus is
	// clamped rather than fed to the coordinator as an infinity, so acting
	// must still produce a well-defined assignment.
	actions, _, err := l.Act(VarMap{501: 0})
	require.NoError(t, err)
	require.Len(t, actions, 1)
	v, ok := actions[502]
	require.True(t, ok)
	assert.Contains(t, []int{0, 1}, v)
}

func TestObserveUpdatesPriorAssignment(t *testing.T) {
	registerLearnerVars(t)
	l := NewDecBayesLearner(0.95, 0, 0)
	require.NoError(t, l.AddFactor(1, []maxsum.Var{501, 502}))

	prior := VarMap{501: 0}
	actions := VarMap{502: 1}
	post := VarMap{501: 1}
	require.NoError(t, l.Observe(prior, actions, post, RewardMap{1: 2.0}))

	// The successor belief is still at the prior (m = 0), so the pseudo
	// observation is just the reward, landed on the taken state-action.
	b, _ := l.Store().Belief(1)
	d, err := b.AtAssignment(map[maxsum.Var]int{501: 0, 502: 1})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, d.M, 1e-9)
	assert.InDelta(t, 0.5, d.Alpha, 1e-7)

	// Untouched entries keep the prior.
	d, err = b.AtAssignment(map[maxsum.Var]int{501: 0, 502: 0})
	require.NoError(t, err)
	assert.Equal(t, dist.DefaultM, d.M)
}

func TestObserveIgnoresUnknownFactor(t *testing.T) {
	registerLearnerVars(t)
	l := NewDecBayesLearner(0, 0, 0)
	require.NoError(t, l.AddFactor(1, []maxsum.Var{501, 502}))

	require.NoError(t, l.Observe(VarMap{501: 0}, VarMap{502: 0}, VarMap{501: 0}, RewardMap{99: 5}))

	b, _ := l.Store().Belief(1)
	for i := 0; i < b.Len(); i++ {
		assert.Equal(t, dist.DefaultM, b.At(i).M)
	}
}

func TestObserveMomentMatchedTarget(t *testing.T) {
	registerLearnerVars(t)
	s := NewBeliefStore()
	require.NoError(t, s.AddFactor(1, []maxsum.Var{501, 502}))

	// Mature successor belief (alpha > 1): the update carries the
	// successor's spread as a second moment, not just its mean.
	b, _ := s.Belief(1)
	postIdx, err := b.Alpha.IndexOf(map[maxsum.Var]int{501: 1, 502: 0})
	require.NoError(t, err)
	for _, x := range []float64{1.0, 3.0, 2.0, 2.5, 1.5} {
		b.ObserveAt(postIdx, x)
	}
	post := b.At(postIdx)
	require.Greater(t, post.Alpha, 1.0)

	priorVars := VarMap{501: 0, 502: 1}
	postVars := VarMap{501: 1, 502: 0}
	require.NoError(t, s.ObserveReward(1, priorVars, postVars, 1.0, 0.95))

	d, err := b.AtAssignment(map[maxsum.Var]int{501: 0, 502: 1})
	require.NoError(t, err)
	// One pseudo observation of r + gamma*m'.
	assert.InDelta(t, 1.0+0.95*post.M, d.M, 1e-9)
	assert.InDelta(t, 0.5, d.Alpha, 1e-7)
	assert.InDelta(t, 1.0, d.Lambda, 1e-9)
	// The successor's uncertainty flowed into beta.
	assert.Greater(t, d.Beta, 0.01)
}

func TestSetStates(t *testing.T) {
	registerLearnerVars(t)
	l := NewDecBayesLearner(0, 0, 0)
	require.NoError(t, l.AddFactor(1, []maxsum.Var{501, 502}))
	require.NoError(t, l.AddFactor(2, []maxsum.Var{502, 503}))

	l.SetStates([]maxsum.Var{501})
	assert.Equal(t, []maxsum.Var{502, 503}, l.ActionSet())

	// Already initialised: later calls have no effect.
	l.SetStates([]maxsum.Var{503})
	assert.Equal(t, []maxsum.Var{502, 503}, l.ActionSet())
}

func TestLearnerClone(t *testing.T) {
	registerLearnerVars(t)
	l := NewDecBayesLearner(0.9, 0, 0)
	require.NoError(t, l.AddFactor(1, []maxsum.Var{501, 502}))

	c := l.Clone()
	require.NoError(t, l.Observe(VarMap{501: 0}, VarMap{502: 0}, VarMap{501: 0}, RewardMap{1: 4}))

	orig, _ := l.Store().Belief(1)
	cloned, _ := c.Store().Belief(1)
	d, err := orig.AtAssignment(map[maxsum.Var]int{501: 0, 502: 0})
	require.NoError(t, err)
	assert.InDelta(t, 4.0, d.M, 1e-9)
	d, err = cloned.AtAssignment(map[maxsum.Var]int{501: 0, 502: 0})
	require.NoError(t, err)
	assert.Equal(t, dist.DefaultM, d.M)
}
