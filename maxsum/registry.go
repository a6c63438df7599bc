// Package maxsum provides the coordination layer for decentralized
// optimization over factored value functions: a process-wide variable
// registry, discrete value tables defined over joint variable domains, and
// a max-sum message-passing controller that selects a joint assignment
// maximizing the sum of registered factors.
package maxsum

import (
	"errors"
	"fmt"
	"sync"
)

// Var identifies a discrete decision or state variable.
type Var int

// FactorID identifies a value factor registered with a controller.
type FactorID int

var (
	ErrUnknownVariable = errors.New("maxsum: variable not registered")
	ErrBadDomainSize   = errors.New("maxsum: domain size must be positive")
)

// The registry is shared by every table and controller in the process.
// Variables must be registered before any factor referencing them is built.
var registry = struct {
	sync.RWMutex
	sizes map[Var]int
}{sizes: make(map[Var]int)}

// RegisterVariable records the domain cardinality of v. Registering the same
// variable again with the same size is a no-op; changing the size of an
// existing variable is an error, since tables built against the old size
// would silently corrupt.
func RegisterVariable(v Var, size int) error {
	if size < 1 {
		return fmt.Errorf("%w: variable %d size %d", ErrBadDomainSize, v, size)
	}
	registry.Lock()
	defer registry.Unlock()
	if old, ok := registry.sizes[v]; ok && old != size {
		return fmt.Errorf("maxsum: variable %d already registered with size %d", v, old)
	}
	registry.sizes[v] = size
	return nil
}

// DomainSize returns the registered cardinality of v.
func DomainSize(v Var) (int, error) {
	registry.RLock()
	defer registry.RUnlock()
	size, ok := registry.sizes[v]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownVariable, v)
	}
	return size, nil
}

// ResetRegistry removes all registered variables. Intended for tests, which
// otherwise leak registrations into each other through the shared registry.
func ResetRegistry() {
	registry.Lock()
	defer registry.Unlock()
	registry.sizes = make(map[Var]int)
}
