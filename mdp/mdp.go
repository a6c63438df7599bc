package mdp

import (
	"fmt"
	"os"
	"sort"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
	"gopkg.in/yaml.v3"

	"github.com/lteacy/decbrl"
	"github.com/lteacy/decbrl/maxsum"
)

// VarSpec declares one state or action variable and its cardinality.
type VarSpec struct {
	ID   int `yaml:"id"`
	Size int `yaml:"size"`
}

// RewardSpec declares one factored reward: its expected values over the
// joint domain (ascending variable order, last variable fastest) and an
// optional per-assignment standard deviation. An empty stddev list means
// the reward is deterministic.
type RewardSpec struct {
	ID     int       `yaml:"id"`
	Domain []int     `yaml:"domain"`
	Values []float64 `yaml:"values"`
	StdDev []float64 `yaml:"stddev,omitempty"`
}

// TransSpec declares one factored transition CPT: probabilities of the
// domain variables' next values given the condition variables, one block of
// domain-joint values per condition row.
type TransSpec struct {
	Conditions []int     `yaml:"conditions"`
	Domain     []int     `yaml:"domain"`
	Values     []float64 `yaml:"values"`
}

// Spec is a complete factored-MDP problem description.
type Spec struct {
	Gamma       float64      `yaml:"gamma"`
	States      []VarSpec    `yaml:"states"`
	Actions     []VarSpec    `yaml:"actions"`
	Rewards     []RewardSpec `yaml:"rewards"`
	Transitions []TransSpec  `yaml:"transitions"`
}

// ParseSpec decodes a YAML problem description.
func ParseSpec(data []byte) (*Spec, error) {
	var s Spec
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("mdp: parsing spec: %w", err)
	}
	return &s, nil
}

// LoadSpec reads and decodes a YAML problem description from a file.
func LoadSpec(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mdp: reading spec: %w", err)
	}
	return ParseSpec(data)
}

// FactoredMDP simulates a factored Markov decision process: given joint
// actions it draws factored next states from the transition CPTs and
// factored rewards from Normal distributions around the expected reward
// tables.
type FactoredMDP struct {
	gamma      float64
	stateVars  []maxsum.Var
	actionVars []maxsum.Var

	rewardMean map[maxsum.FactorID]*maxsum.Table
	rewardStd  map[maxsum.FactorID]*maxsum.Table
	transProbs []*TransProb

	prevVars    decbrl.VarMap
	prevState   decbrl.VarMap
	curState    decbrl.VarMap
	lastRewards decbrl.RewardMap
}

// New builds a simulator from a problem spec, registering every declared
// variable with the shared registry. The spec must give at least one state,
// action, reward and transition, and every state variable must be produced
// by exactly one transition CPT.
func New(spec *Spec) (*FactoredMDP, error) {
	if spec.Gamma <= 0 || spec.Gamma >= 1 {
		return nil, fmt.Errorf("mdp: gamma must lie in (0,1), got %g", spec.Gamma)
	}
	if len(spec.States) == 0 {
		return nil, fmt.Errorf("mdp: at least one state must be specified")
	}
	if len(spec.Actions) == 0 {
		return nil, fmt.Errorf("mdp: at least one action must be specified")
	}
	if len(spec.Rewards) == 0 {
		return nil, fmt.Errorf("mdp: at least one reward function must be specified")
	}
	if len(spec.Transitions) == 0 {
		return nil, fmt.Errorf("mdp: at least one transition CPT must be specified")
	}

	m := &FactoredMDP{
		gamma:       spec.Gamma,
		rewardMean:  make(map[maxsum.FactorID]*maxsum.Table),
		rewardStd:   make(map[maxsum.FactorID]*maxsum.Table),
		prevVars:    make(decbrl.VarMap),
		prevState:   make(decbrl.VarMap),
		curState:    make(decbrl.VarMap),
		lastRewards: make(decbrl.RewardMap),
	}

	for _, vs := range spec.States {
		if err := maxsum.RegisterVariable(maxsum.Var(vs.ID), vs.Size); err != nil {
			return nil, err
		}
		m.stateVars = append(m.stateVars, maxsum.Var(vs.ID))
		m.curState[maxsum.Var(vs.ID)] = 0
	}
	for _, vs := range spec.Actions {
		if err := maxsum.RegisterVariable(maxsum.Var(vs.ID), vs.Size); err != nil {
			return nil, err
		}
		m.actionVars = append(m.actionVars, maxsum.Var(vs.ID))
	}
	sort.Slice(m.stateVars, func(i, j int) bool { return m.stateVars[i] < m.stateVars[j] })
	sort.Slice(m.actionVars, func(i, j int) bool { return m.actionVars[i] < m.actionVars[j] })

	for _, rs := range spec.Rewards {
		if err := m.addReward(rs); err != nil {
			return nil, err
		}
	}
	for _, ts := range spec.Transitions {
		if err := m.addTransition(ts); err != nil {
			return nil, err
		}
	}
	if err := m.validateCPTCoverage(); err != nil {
		return nil, err
	}

	m.prevState = m.curState.Clone()
	return m, nil
}

func (m *FactoredMDP) addReward(rs RewardSpec) error {
	id := maxsum.FactorID(rs.ID)
	if _, ok := m.rewardMean[id]; ok {
		return fmt.Errorf("mdp: duplicate reward factor %d", rs.ID)
	}
	domain := toVars(rs.Domain)
	if err := checkAscending(domain); err != nil {
		return fmt.Errorf("mdp: reward factor %d: %w", rs.ID, err)
	}
	mean, err := maxsum.NewTable(domain, 0)
	if err != nil {
		return fmt.Errorf("mdp: reward factor %d: %w", rs.ID, err)
	}
	if len(rs.Values) != mean.Len() {
		return fmt.Errorf("mdp: reward factor %d needs %d values but %d are specified",
			rs.ID, mean.Len(), len(rs.Values))
	}
	for i, x := range rs.Values {
		mean.Set(i, x)
	}

	std, _ := maxsum.NewTable(domain, 0)
	if len(rs.StdDev) > 0 {
		if len(rs.StdDev) != std.Len() {
			return fmt.Errorf("mdp: reward factor %d has %d values but %d standard deviations",
				rs.ID, mean.Len(), len(rs.StdDev))
		}
		for i, x := range rs.StdDev {
			if x < 0 {
				return fmt.Errorf("mdp: reward factor %d has negative stddev %g", rs.ID, x)
			}
			std.Set(i, x)
		}
	}

	m.rewardMean[id] = mean
	m.rewardStd[id] = std
	m.lastRewards[id] = 0
	return nil
}

func (m *FactoredMDP) addTransition(ts TransSpec) error {
	p, err := NewTransProb(toVars(ts.Conditions), toVars(ts.Domain))
	if err != nil {
		return err
	}
	if err := p.SetCPT(ts.Values); err != nil {
		return err
	}
	m.transProbs = append(m.transProbs, p)
	return nil
}

// validateCPTCoverage checks that each state variable is generated by
// exactly one transition CPT; anything else would leave states stale or
// have two CPTs fighting over one variable.
func (m *FactoredMDP) validateCPTCoverage() error {
	count := make(map[maxsum.Var]int)
	for _, p := range m.transProbs {
		for _, v := range p.DomainVars() {
			count[v]++
		}
	}
	for _, v := range m.stateVars {
		if count[v] != 1 {
			return fmt.Errorf("mdp: state %d occurs in CPT domain %d times, but should occur exactly once",
				v, count[v])
		}
	}
	return nil
}

// Gamma returns the discount factor.
func (m *FactoredMDP) Gamma() float64 { return m.gamma }

// StateVars returns the state variables in ascending order.
func (m *FactoredMDP) StateVars() []maxsum.Var {
	return append([]maxsum.Var(nil), m.stateVars...)
}

// ActionVars returns the action variables in ascending order.
func (m *FactoredMDP) ActionVars() []maxsum.Var {
	return append([]maxsum.Var(nil), m.actionVars...)
}

// RewardDomains returns each reward factor's variables, for registering the
// same structure with a learner.
func (m *FactoredMDP) RewardDomains() map[maxsum.FactorID][]maxsum.Var {
	out := make(map[maxsum.FactorID][]maxsum.Var, len(m.rewardMean))
	for id, t := range m.rewardMean {
		out[id] = append([]maxsum.Var(nil), t.Vars()...)
	}
	return out
}

// ExpectedReward returns the mean reward of a factor for a joint
// state-action assignment.
func (m *FactoredMDP) ExpectedReward(id maxsum.FactorID, vars decbrl.VarMap) (float64, error) {
	t, ok := m.rewardMean[id]
	if !ok {
		return 0, fmt.Errorf("mdp: unknown reward factor %d", id)
	}
	return t.AtAssignment(map[maxsum.Var]int(vars))
}

// CurState returns a copy of the current joint state.
func (m *FactoredMDP) CurState() decbrl.VarMap { return m.curState.Clone() }

// PrevState returns a copy of the joint state before the last Act.
func (m *FactoredMDP) PrevState() decbrl.VarMap { return m.prevState.Clone() }

// PrevVars returns a copy of the previous joint state plus the last
// actions.
func (m *FactoredMDP) PrevVars() decbrl.VarMap { return m.prevVars.Clone() }

// LastRewards returns a copy of the factored rewards from the last Act.
func (m *FactoredMDP) LastRewards() decbrl.RewardMap {
	out := make(decbrl.RewardMap, len(m.lastRewards))
	for id, r := range m.lastRewards {
		out[id] = r
	}
	return out
}

// Act performs the given joint actions: next states are drawn from the
// transition CPTs and factored rewards from Normal distributions around
// their expected values. The actions map must assign every action variable.
func (m *FactoredMDP) Act(rng *rand.Rand, actions decbrl.VarMap) error {
	m.prevState = m.curState.Clone()
	m.prevVars = merged(m.prevState, actions)

	next := make(map[maxsum.Var]int, len(m.stateVars))
	for _, p := range m.transProbs {
		if err := p.DrawNext(rng, map[maxsum.Var]int(m.prevVars), next); err != nil {
			return err
		}
	}
	for v, x := range next {
		m.curState[v] = x
	}

	for id, mean := range m.rewardMean {
		r, err := mean.AtAssignment(map[maxsum.Var]int(m.prevVars))
		if err != nil {
			return err
		}
		std, err := m.rewardStd[id].AtAssignment(map[maxsum.Var]int(m.prevVars))
		if err != nil {
			return err
		}
		if std > 1e-10 {
			r = distuv.Normal{Mu: r, Sigma: std, Src: rng}.Rand()
		}
		m.lastRewards[id] = r
	}
	return nil
}

func toVars(ids []int) []maxsum.Var {
	vars := make([]maxsum.Var, len(ids))
	for i, id := range ids {
		vars[i] = maxsum.Var(id)
	}
	return vars
}

func merged(maps ...decbrl.VarMap) decbrl.VarMap {
	out := make(decbrl.VarMap)
	for _, m := range maps {
		for v, x := range m {
			out[v] = x
		}
	}
	return out
}
