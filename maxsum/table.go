package maxsum

import (
	"fmt"
	"math"
	"sort"
)

// Table is a real-valued function over the joint domain of a sorted list of
// registered variables. A table with no variables is a scalar. Values are
// stored in row-major order with the last variable varying fastest.
type Table struct {
	vars  []Var
	sizes []int
	data  []float64
}

// NewTable builds a table over the given variables with every entry set to
// init. Duplicate variables are collapsed; the variable order is normalized
// to ascending so that tables over the same variable set are index-compatible.
func NewTable(vars []Var, init float64) (*Table, error) {
	uniq := make([]Var, 0, len(vars))
	seen := make(map[Var]bool, len(vars))
	for _, v := range vars {
		if !seen[v] {
			seen[v] = true
			uniq = append(uniq, v)
		}
	}
	sort.Slice(uniq, func(i, j int) bool { return uniq[i] < uniq[j] })

	t := &Table{vars: uniq, sizes: make([]int, len(uniq))}
	n := 1
	for i, v := range uniq {
		size, err := DomainSize(v)
		if err != nil {
			return nil, err
		}
		t.sizes[i] = size
		n *= size
	}
	t.data = make([]float64, n)
	if init != 0 {
		for i := range t.data {
			t.data[i] = init
		}
	}
	return t, nil
}

// Vars returns the table's variables in ascending order. The returned slice
// is shared; callers must not modify it.
func (t *Table) Vars() []Var { return t.vars }

// HasVar reports whether v is part of the table's domain.
func (t *Table) HasVar(v Var) bool {
	for _, w := range t.vars {
		if w == v {
			return true
		}
	}
	return false
}

// Len returns the number of entries (the joint domain size).
func (t *Table) Len() int { return len(t.data) }

// At returns the value at linear index i.
func (t *Table) At(i int) float64 { return t.data[i] }

// Set stores x at linear index i.
func (t *Table) Set(i int, x float64) { t.data[i] = x }

// Fill sets every entry to x.
func (t *Table) Fill(x float64) {
	for i := range t.data {
		t.data[i] = x
	}
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	c := &Table{vars: t.vars, sizes: t.sizes, data: make([]float64, len(t.data))}
	copy(c.data, t.data)
	return c
}

// IndexOf maps an assignment to the linear index of the matching entry.
// The assignment must cover every table variable; keys for other variables
// are ignored, so a joint state-action map can index any factor directly.
func (t *Table) IndexOf(assign map[Var]int) (int, error) {
	idx := 0
	for i, v := range t.vars {
		val, ok := assign[v]
		if !ok {
			return 0, fmt.Errorf("maxsum: assignment missing variable %d", v)
		}
		if val < 0 || val >= t.sizes[i] {
			return 0, fmt.Errorf("maxsum: value %d out of range for variable %d (size %d)",
				val, v, t.sizes[i])
		}
		idx = idx*t.sizes[i] + val
	}
	return idx, nil
}

// Assignment decodes linear index i into dst, allocating a map when dst is
// nil, and returns it.
func (t *Table) Assignment(i int, dst map[Var]int) map[Var]int {
	if dst == nil {
		dst = make(map[Var]int, len(t.vars))
	}
	for k := len(t.vars) - 1; k >= 0; k-- {
		dst[t.vars[k]] = i % t.sizes[k]
		i /= t.sizes[k]
	}
	return dst
}

// AtAssignment returns the value stored for the given assignment.
func (t *Table) AtAssignment(assign map[Var]int) (float64, error) {
	i, err := t.IndexOf(assign)
	if err != nil {
		return 0, err
	}
	return t.data[i], nil
}

// SetAssignment stores x for the given assignment.
func (t *Table) SetAssignment(assign map[Var]int, x float64) error {
	i, err := t.IndexOf(assign)
	if err != nil {
		return err
	}
	t.data[i] = x
	return nil
}

// Condition fixes the variables present in given and returns the table over
// the remaining variables. Variables absent from given survive unchanged;
// extra keys in given that are not table variables are ignored.
func (t *Table) Condition(given map[Var]int) (*Table, error) {
	var free []Var
	for _, v := range t.vars {
		if _, ok := given[v]; !ok {
			free = append(free, v)
		}
	}
	out, err := NewTable(free, 0)
	if err != nil {
		return nil, err
	}
	assign := make(map[Var]int, len(t.vars))
	for v, val := range given {
		if t.HasVar(v) {
			assign[v] = val
		}
	}
	for i := 0; i < out.Len(); i++ {
		out.Assignment(i, assign)
		src, err := t.IndexOf(assign)
		if err != nil {
			return nil, err
		}
		out.data[i] = t.data[src]
	}
	return out, nil
}

// Add accumulates o into t elementwise. Both tables must share the same
// variable list.
func (t *Table) Add(o *Table) error {
	if len(t.vars) != len(o.vars) {
		return fmt.Errorf("maxsum: mismatched domains %v and %v", t.vars, o.vars)
	}
	for i, v := range t.vars {
		if o.vars[i] != v {
			return fmt.Errorf("maxsum: mismatched domains %v and %v", t.vars, o.vars)
		}
	}
	for i := range t.data {
		t.data[i] += o.data[i]
	}
	return nil
}

// Max returns the linear index and value of the largest entry. Ties resolve
// to the lowest index so results are deterministic.
func (t *Table) Max() (int, float64) {
	argmax, max := 0, math.Inf(-1)
	for i, x := range t.data {
		if x > max {
			argmax, max = i, x
		}
	}
	return argmax, max
}

// MaxPair returns the best and second-best values together with the index of
// the best. For a single-entry table the second-best equals the best.
func (t *Table) MaxPair() (max1, max2 float64, argmax int) {
	max1, max2 = math.Inf(-1), math.Inf(-1)
	for i, x := range t.data {
		if x > max1 {
			max2 = max1
			max1, argmax = x, i
		} else if x > max2 {
			max2 = x
		}
	}
	if math.IsInf(max2, -1) {
		max2 = max1
	}
	return max1, max2, argmax
}
