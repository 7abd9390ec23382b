package interp

import "github.com/javelinrt/javelin/pkg/timetravel"

// Environment is the single flat name-to-value map of a run. The
// dialect's supported subset needs no nested lexical scopes; method
// parameters bind into the same space. Insertion order is preserved
// for snapshots and display.
type Environment struct {
	names []string
	vals  map[string]Value
}

// NewEnvironment builds an empty environment.
func NewEnvironment() *Environment {
	return &Environment{vals: make(map[string]Value)}
}

// Bind sets name to v, appending the name on first binding. The
// previous value, if any, simply loses this reference; its heap object
// becomes collectable unless another binding still carries it.
func (e *Environment) Bind(name string, v Value) {
	if _, ok := e.vals[name]; !ok {
		e.names = append(e.names, name)
	}
	e.vals[name] = v
}

// Get returns the value bound to name.
func (e *Environment) Get(name string) (Value, bool) {
	v, ok := e.vals[name]
	return v, ok
}

// Has reports whether name is bound.
func (e *Environment) Has(name string) bool {
	_, ok := e.vals[name]
	return ok
}

// Len returns the number of bindings.
func (e *Environment) Len() int { return len(e.names) }

// LiveObjects returns the set of heap object IDs currently referenced
// by bindings. This is the collector's reachability root set.
func (e *Environment) LiveObjects() map[uint64]bool {
	live := make(map[uint64]bool)
	for _, v := range e.vals {
		if v.ObjID != 0 {
			live[v.ObjID] = true
		}
	}
	return live
}

// Bindings renders the environment in insertion order for snapshot
// capture.
func (e *Environment) Bindings() []timetravel.Binding {
	out := make([]timetravel.Binding, 0, len(e.names))
	for _, name := range e.names {
		out = append(out, timetravel.Binding{Name: name, Value: e.vals[name].String()})
	}
	return out
}

// Reset drops every binding.
func (e *Environment) Reset() {
	e.names = nil
	e.vals = make(map[string]Value)
}
