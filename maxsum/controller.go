package maxsum

import (
	"fmt"
	"math"
)

// Default iteration cap and message convergence threshold for a controller.
const (
	DefaultMaxIterations    = 100
	DefaultMaxNormThreshold = 1e-6
)

// MaxSumController selects a joint assignment over the variables of its
// registered factors by max-sum message passing on the factor graph. The
// algorithm is exact when the graph is a tree and a bounded-iteration
// approximation otherwise.
//
// Factors may be mutated in place through FactorHandle between Optimise
// calls; NotifyFactor must be called afterwards so the controller knows its
// cached solution is stale. Messages are retained between calls, so
// re-optimizing after a small factor change is cheap.
type MaxSumController struct {
	maxIters  int
	threshold float64

	factors map[FactorID]*Table

	// facToVar[f][v] and varToFac[f][v] are the messages flowing along the
	// edge between factor f and variable v, indexed by the value of v.
	facToVar map[FactorID]map[Var][]float64
	varToFac map[FactorID]map[Var][]float64

	values    map[Var]int
	converged bool
}

// NewMaxSumController returns a controller with the given iteration cap and
// max-norm convergence threshold. Non-positive arguments fall back to the
// package defaults.
func NewMaxSumController(maxIters int, threshold float64) *MaxSumController {
	if maxIters <= 0 {
		maxIters = DefaultMaxIterations
	}
	if threshold <= 0 {
		threshold = DefaultMaxNormThreshold
	}
	return &MaxSumController{
		maxIters:  maxIters,
		threshold: threshold,
		factors:   make(map[FactorID]*Table),
		facToVar:  make(map[FactorID]map[Var][]float64),
		varToFac:  make(map[FactorID]map[Var][]float64),
		values:    make(map[Var]int),
	}
}

// SetFactor registers or replaces the local value table for a factor. The
// table is stored by reference; use FactorHandle to mutate it later.
func (c *MaxSumController) SetFactor(id FactorID, t *Table) {
	c.factors[id] = t
	// Domain may have changed, so stale messages for this factor are dropped.
	delete(c.facToVar, id)
	delete(c.varToFac, id)
	c.converged = false
}

// FactorHandle returns the writable value table for a factor, or nil if the
// factor is unknown. Callers mutating the table must call NotifyFactor, and
// must not hold the handle across SetFactor calls for the same id.
func (c *MaxSumController) FactorHandle(id FactorID) *Table {
	return c.factors[id]
}

// NotifyFactor marks a factor's values as changed in place.
func (c *MaxSumController) NotifyFactor(id FactorID) {
	if _, ok := c.factors[id]; ok {
		c.converged = false
	}
}

// HasFactor reports whether a factor is registered.
func (c *MaxSumController) HasFactor(id FactorID) bool {
	_, ok := c.factors[id]
	return ok
}

// Optimise runs max-sum until the messages converge in max-norm or the
// iteration cap is reached, then caches the resulting joint assignment and
// per-factor totals. It returns the number of iterations performed; zero
// means the previous solution was still valid.
func (c *MaxSumController) Optimise() int {
	if c.converged {
		return 0
	}
	c.ensureMessages()

	iters := 0
	for iters < c.maxIters {
		iters++
		delta := c.updateVarToFac()
		delta = math.Max(delta, c.updateFacToVar())
		if delta < c.threshold {
			break
		}
	}
	c.selectValues()
	c.converged = true
	return iters
}

// TotalValue returns a factor's local value plus every incoming message:
// the factor's view of the global objective over its own sub-domain.
func (c *MaxSumController) TotalValue(id FactorID) (*Table, error) {
	fac, ok := c.factors[id]
	if !ok {
		return nil, fmt.Errorf("maxsum: unknown factor %d", id)
	}
	total := fac.Clone()
	in := c.varToFac[id]
	assign := make(map[Var]int, len(fac.Vars()))
	for i := 0; i < total.Len(); i++ {
		total.Assignment(i, assign)
		sum := total.At(i)
		for _, v := range fac.Vars() {
			sum += in[v][assign[v]]
		}
		total.Set(i, sum)
	}
	return total, nil
}

// Values returns the joint assignment chosen by the last Optimise call.
// The returned map is a copy.
func (c *MaxSumController) Values() map[Var]int {
	out := make(map[Var]int, len(c.values))
	for v, x := range c.values {
		out[v] = x
	}
	return out
}

// Clone deep-copies the controller, including factor tables and message
// state, so that cloned learners do not share optimizer state.
func (c *MaxSumController) Clone() *MaxSumController {
	n := NewMaxSumController(c.maxIters, c.threshold)
	for id, t := range c.factors {
		n.factors[id] = t.Clone()
	}
	n.facToVar = cloneMessages(c.facToVar)
	n.varToFac = cloneMessages(c.varToFac)
	for v, x := range c.values {
		n.values[v] = x
	}
	n.converged = c.converged
	return n
}

func cloneMessages(src map[FactorID]map[Var][]float64) map[FactorID]map[Var][]float64 {
	dst := make(map[FactorID]map[Var][]float64, len(src))
	for id, byVar := range src {
		m := make(map[Var][]float64, len(byVar))
		for v, msg := range byVar {
			m[v] = append([]float64(nil), msg...)
		}
		dst[id] = m
	}
	return dst
}

// ensureMessages allocates zeroed message vectors for every factor-variable
// edge that does not have them yet.
func (c *MaxSumController) ensureMessages() {
	for id, fac := range c.factors {
		if c.facToVar[id] == nil {
			c.facToVar[id] = make(map[Var][]float64)
			c.varToFac[id] = make(map[Var][]float64)
		}
		for _, v := range fac.Vars() {
			if c.facToVar[id][v] == nil {
				size, _ := DomainSize(v)
				c.facToVar[id][v] = make([]float64, size)
				c.varToFac[id][v] = make([]float64, size)
			}
		}
	}
}

// updateVarToFac recomputes every variable-to-factor message and returns the
// max-norm change. The message from v to f is the sum of v's incoming
// factor messages with f's own contribution removed, normalized to zero
// mean to keep the fixed point well defined on cyclic graphs.
func (c *MaxSumController) updateVarToFac() float64 {
	agg := make(map[Var][]float64)
	for _, byVar := range c.facToVar {
		for v, msg := range byVar {
			m := agg[v]
			if m == nil {
				m = make([]float64, len(msg))
				agg[v] = m
			}
			for x, val := range msg {
				m[x] += val
			}
		}
	}

	delta := 0.0
	for id, fac := range c.factors {
		for _, v := range fac.Vars() {
			old := c.varToFac[id][v]
			own := c.facToVar[id][v]
			msg := make([]float64, len(old))
			for x := range msg {
				msg[x] = agg[v][x] - own[x]
			}
			normalize(msg)
			for x := range msg {
				delta = math.Max(delta, math.Abs(msg[x]-old[x]))
			}
			c.varToFac[id][v] = msg
		}
	}
	return delta
}

// updateFacToVar recomputes every factor-to-variable message and returns the
// max-norm change. For each entry of the factor one pass accumulates the
// factor value plus all incoming messages, then each outgoing message takes
// the running maximum with its own incoming contribution removed.
func (c *MaxSumController) updateFacToVar() float64 {
	delta := 0.0
	assign := make(map[Var]int)
	for id, fac := range c.factors {
		vars := fac.Vars()
		if len(vars) == 0 {
			continue
		}
		in := c.varToFac[id]
		out := make(map[Var][]float64, len(vars))
		for _, v := range vars {
			buf := make([]float64, len(c.facToVar[id][v]))
			for x := range buf {
				buf[x] = math.Inf(-1)
			}
			out[v] = buf
		}
		for i := 0; i < fac.Len(); i++ {
			fac.Assignment(i, assign)
			sum := fac.At(i)
			for _, v := range vars {
				sum += in[v][assign[v]]
			}
			for _, v := range vars {
				cand := sum - in[v][assign[v]]
				if cand > out[v][assign[v]] {
					out[v][assign[v]] = cand
				}
			}
		}
		for _, v := range vars {
			old := c.facToVar[id][v]
			for x := range old {
				delta = math.Max(delta, math.Abs(out[v][x]-old[x]))
			}
			c.facToVar[id][v] = out[v]
		}
	}
	return delta
}

// selectValues picks, for every variable, the value maximizing the sum of
// its incoming factor messages. Ties resolve to the lowest value.
func (c *MaxSumController) selectValues() {
	c.values = make(map[Var]int)
	marginals := make(map[Var][]float64)
	for _, byVar := range c.facToVar {
		for v, msg := range byVar {
			m := marginals[v]
			if m == nil {
				m = make([]float64, len(msg))
				marginals[v] = m
			}
			for x, val := range msg {
				m[x] += val
			}
		}
	}
	for v, m := range marginals {
		best, bestVal := 0, math.Inf(-1)
		for x, val := range m {
			if val > bestVal {
				best, bestVal = x, val
			}
		}
		c.values[v] = best
	}
}

// normalize shifts a message to zero mean.
func normalize(msg []float64) {
	if len(msg) == 0 {
		return
	}
	mean := 0.0
	for _, x := range msg {
		mean += x
	}
	mean /= float64(len(msg))
	for i := range msg {
		msg[i] -= mean
	}
}
