// Package dist implements the probability distributions used for Bayesian
// reinforcement learning: Normal-Gamma conjugate beliefs over an unknown
// Normal mean and precision (scalar and vectorized over a joint discrete
// domain), the Student-t marginal of the unknown mean, and Dirichlet
// conjugate beliefs over multinomial outcomes.
package dist

// Default hyperparameters for a fresh Normal-Gamma belief: a near-improper
// prior that is overwhelmed by the first observation.
const (
	DefaultAlpha  = 0.00000001
	DefaultBeta   = 0.00000000000000001
	DefaultLambda = 0.00000000000000000000001
	DefaultM      = 0.0
)

// NormalGamma is the conjugate parameter distribution for a Normal
// distribution with unknown mean and precision. Alpha and Beta shape the
// Gamma over the precision; M and Lambda locate the mean given the
// precision. All of Alpha, Beta and Lambda must stay positive.
type NormalGamma struct {
	Alpha  float64
	Beta   float64
	Lambda float64
	M      float64
}

// NewNormalGamma returns a belief with the default prior hyperparameters.
func NewNormalGamma() NormalGamma {
	return NormalGamma{Alpha: DefaultAlpha, Beta: DefaultBeta, Lambda: DefaultLambda, M: DefaultM}
}

// Observe updates the belief with a single observation x drawn from the
// target distribution. Update equations follow DeGroot & Schervish,
// Probability & Statistics, 3rd ed., section 7.6. The Beta update uses the
// prior M, so the ordering here is load-bearing.
func (d *NormalGamma) Observe(x float64) {
	oldLambda := d.Lambda
	oldM := d.M
	newLambda := oldLambda + 1

	d.Alpha += 0.5
	d.Beta += oldLambda * (oldM - x) * (oldM - x) / 2 / newLambda
	d.M = (oldLambda*oldM + x) / newLambda
	d.Lambda = newLambda
}

// ObserveMoments updates the belief with the sufficient statistics of n
// observations: their sample mean sm and their sum of squared deviations
// from that mean, s2. A single call is equivalent to n sequential Observe
// calls on the underlying sample.
func (d *NormalGamma) ObserveMoments(sm, s2 float64, n int) {
	fn := float64(n)
	oldLambda := d.Lambda
	oldM := d.M
	newLambda := oldLambda + fn

	d.Alpha += fn / 2
	d.Beta += s2/2 + fn*oldLambda*(sm-oldM)*(sm-oldM)/2/newLambda
	d.M = (oldLambda*oldM + fn*sm) / newLambda
	d.Lambda = newLambda
}
