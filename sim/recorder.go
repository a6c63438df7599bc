// Package sim runs reinforcement learning experiments: it wires a learner to
// a factored MDP simulator, drives the act/observe loop, and records
// per-step results.
package sim

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/lteacy/decbrl"
	"github.com/lteacy/decbrl/maxsum"
)

// Step is one recorded timestep of an experiment run.
type Step struct {
	Timestep   int
	Iterations int
	PriorState decbrl.VarMap
	Actions    decbrl.VarMap
	PostState  decbrl.VarMap
	Rewards    decbrl.RewardMap
	TotalR     float64
}

// Recorder receives each step of a run.
type Recorder interface {
	Record(Step) error
}

// CSVRecorder writes one row per step: timestep, coordination iterations,
// total reward, then per-factor rewards, prior states, actions and post
// states in ascending id order. Column order is fixed by the first recorded
// step.
type CSVRecorder struct {
	w       *csv.Writer
	factors []maxsum.FactorID
	states  []maxsum.Var
	actions []maxsum.Var
	started bool
}

// NewCSVRecorder writes CSV rows to w.
func NewCSVRecorder(w io.Writer) *CSVRecorder {
	return &CSVRecorder{w: csv.NewWriter(w)}
}

func (r *CSVRecorder) writeHeader(s Step) error {
	for id := range s.Rewards {
		r.factors = append(r.factors, id)
	}
	sort.Slice(r.factors, func(i, j int) bool { return r.factors[i] < r.factors[j] })
	for v := range s.PriorState {
		r.states = append(r.states, v)
	}
	sort.Slice(r.states, func(i, j int) bool { return r.states[i] < r.states[j] })
	for v := range s.Actions {
		r.actions = append(r.actions, v)
	}
	sort.Slice(r.actions, func(i, j int) bool { return r.actions[i] < r.actions[j] })

	header := []string{"timestep", "iterations", "total_reward"}
	for _, id := range r.factors {
		header = append(header, fmt.Sprintf("r%d", id))
	}
	for _, v := range r.states {
		header = append(header, fmt.Sprintf("s%d", v))
	}
	for _, v := range r.actions {
		header = append(header, fmt.Sprintf("a%d", v))
	}
	for _, v := range r.states {
		header = append(header, fmt.Sprintf("s%d_next", v))
	}
	return r.w.Write(header)
}

// Record appends one row.
func (r *CSVRecorder) Record(s Step) error {
	if !r.started {
		if err := r.writeHeader(s); err != nil {
			return err
		}
		r.started = true
	}
	row := []string{
		strconv.Itoa(s.Timestep),
		strconv.Itoa(s.Iterations),
		strconv.FormatFloat(s.TotalR, 'g', -1, 64),
	}
	for _, id := range r.factors {
		row = append(row, strconv.FormatFloat(s.Rewards[id], 'g', -1, 64))
	}
	for _, v := range r.states {
		row = append(row, strconv.Itoa(s.PriorState[v]))
	}
	for _, v := range r.actions {
		row = append(row, strconv.Itoa(s.Actions[v]))
	}
	for _, v := range r.states {
		row = append(row, strconv.Itoa(s.PostState[v]))
	}
	return r.w.Write(row)
}

// Flush writes any buffered rows to the underlying writer.
func (r *CSVRecorder) Flush() error {
	r.w.Flush()
	return r.w.Error()
}
