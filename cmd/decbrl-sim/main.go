// Command decbrl-sim runs a learning experiment on a factored MDP described
// by a YAML problem file and writes per-step results as CSV.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"

	"github.com/lteacy/decbrl"
	"github.com/lteacy/decbrl/maxsum"
	"github.com/lteacy/decbrl/mdp"
	"github.com/lteacy/decbrl/sim"
)

func main() {
	var (
		mdpFile     = pflag.StringP("mdp", "m", "", "YAML problem file (required)")
		learnerName = pflag.StringP("learner", "l", "bayes", "policy: bayes, q or random")
		steps       = pflag.IntP("steps", "n", 1000, "number of timesteps to run")
		seed        = pflag.Uint64P("seed", "s", 1, "random seed")
		outFile     = pflag.StringP("output", "o", "", "CSV output file (default stdout)")
		epsilon     = pflag.Float64("epsilon", decbrl.DefaultQEpsilon, "exploration rate for the q learner")
		alpha       = pflag.Float64("alpha", decbrl.DefaultQAlpha, "step size for the q learner")
		maxIters    = pflag.Int("max-iterations", maxsum.DefaultMaxIterations, "coordination iteration cap")
		verbose     = pflag.BoolP("verbose", "v", false, "log every step")
	)
	pflag.Parse()

	if err := run(*mdpFile, *learnerName, *steps, *seed, *outFile, *epsilon, *alpha, *maxIters, *verbose); err != nil {
		fmt.Fprintln(os.Stderr, "decbrl-sim:", err)
		os.Exit(1)
	}
}

func run(mdpFile, learnerName string, steps int, seed uint64, outFile string,
	epsilon, alpha float64, maxIters int, verbose bool) error {

	if mdpFile == "" {
		return fmt.Errorf("an MDP problem file must be given with --mdp")
	}

	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	}
	log, err := cfg.Build()
	if err != nil {
		return err
	}
	defer log.Sync()

	spec, err := mdp.LoadSpec(mdpFile)
	if err != nil {
		return err
	}
	env, err := mdp.New(spec)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(seed))
	var learner decbrl.Learner
	switch learnerName {
	case "bayes":
		learner = decbrl.NewDecBayesLearner(env.Gamma(), maxIters, maxsum.DefaultMaxNormThreshold)
	case "q":
		learner = decbrl.NewDecQLearner(alpha, env.Gamma(), epsilon, maxIters, maxsum.DefaultMaxNormThreshold, rng)
	case "random":
		learner = decbrl.NewRandomPolicy(rng)
	default:
		return fmt.Errorf("unknown learner %q (want bayes, q or random)", learnerName)
	}

	out := os.Stdout
	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	rec := sim.NewCSVRecorder(out)

	runner, err := sim.NewRunner(learner, env, rng, log, rec)
	if err != nil {
		return err
	}

	log.Info("starting run",
		zap.String("mdp", mdpFile),
		zap.String("learner", learnerName),
		zap.Int("steps", steps),
		zap.Uint64("seed", seed))

	total, err := runner.Run(steps)
	if err != nil {
		return err
	}
	if err := rec.Flush(); err != nil {
		return err
	}
	log.Info("total reward", zap.Float64("reward", total))
	return nil
}
