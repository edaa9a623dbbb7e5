// Package sim is the symbolic home environment: a state machine whose
// transitions are gated by preconditions. Environments are single-threaded;
// Clone produces a fully independent fork for trial execution.
package sim

import (
	"fmt"
	"strings"

	"homeplan/internal/actions"
	"homeplan/internal/logging"
	"homeplan/internal/world"
)

// Environment owns a current snapshot and the snapshot it resets to.
type Environment struct {
	state    *world.Snapshot
	initial  *world.Snapshot
	registry *world.Registry
}

// Option configures an Environment.
type Option func(*Environment)

// WithSnapshot starts the environment from a copy of s.
func WithSnapshot(s *world.Snapshot) Option {
	return func(e *Environment) {
		if s != nil {
			e.initial = s.Clone()
		}
	}
}

// WithRegistry sets the goal predicates used by CheckGoal.
func WithRegistry(r *world.Registry) Option {
	return func(e *Environment) {
		if r != nil {
			e.registry = r
		}
	}
}

// New creates an environment, by default the standard home with the
// built-in goal predicates.
func New(opts ...Option) *Environment {
	e := &Environment{}
	for _, opt := range opts {
		opt(e)
	}
	if e.initial == nil {
		e.initial = world.DefaultSnapshot()
	}
	if e.registry == nil {
		e.registry = world.DefaultRegistry()
	}
	e.state = e.initial.Clone()
	return e
}

// Reset restores the construction snapshot and returns a copy of it.
func (e *Environment) Reset() *world.Snapshot {
	e.state = e.initial.Clone()
	return e.state.Clone()
}

// Clone returns an independent environment. Both the current and the
// initial snapshot are copied; only the predicate registry, which is
// read-only, is shared.
func (e *Environment) Clone() *Environment {
	return &Environment{
		state:    e.state.Clone(),
		initial:  e.initial.Clone(),
		registry: e.registry,
	}
}

// Snapshot returns a copy of the current state.
func (e *Environment) Snapshot() *world.Snapshot {
	return e.state.Clone()
}

// Registry returns the goal predicates in use.
func (e *Environment) Registry() *world.Registry {
	return e.registry
}

// AgentLocation returns the agent's room.
func (e *Environment) AgentLocation() world.Room {
	return e.state.Agent.Location
}

// Holding returns the held object, or "" when hands are empty.
func (e *Environment) Holding() string {
	return e.state.Agent.Holding
}

// VisibleObjects lists objects in the agent's room, sorted by name. The held
// object is not included.
func (e *Environment) VisibleObjects() []string {
	return e.state.ObjectsIn(e.state.Agent.Location)
}

// ObjectsByRoom returns the contents of every room.
func (e *Environment) ObjectsByRoom() map[world.Room][]string {
	out := make(map[world.Room][]string, len(world.Rooms))
	for _, r := range world.Rooms {
		out[r] = e.state.ObjectsIn(r)
	}
	return out
}

// IsValid reports whether a can execute now. It never mutates state.
func (e *Environment) IsValid(a actions.Action) (bool, *PreconditionError) {
	if perr := checkPreconditions(e.state, a); perr != nil {
		perr.Action = a
		return false, perr
	}
	return true, nil
}

// Execute validates a and, when valid, applies its effects. A rejected action
// leaves the state untouched.
func (e *Environment) Execute(a actions.Action) (bool, *PreconditionError) {
	if ok, perr := e.IsValid(a); !ok {
		logging.SimDebug("rejected %q: %s", a, perr.Reason)
		return false, perr
	}
	applyEffects(e.state, a)
	logging.SimDebug("executed %q -> agent=%s holding=%q", a, e.state.Agent.Location, e.state.Agent.Holding)
	return true, nil
}

// CheckGoal evaluates goal predicates against the current state. Unknown
// names fail as "<name> (unknown predicate)". The result is total and pure.
func (e *Environment) CheckGoal(goals []string) (bool, []string) {
	var failed []string
	for _, name := range goals {
		pred, ok := e.registry.Lookup(name)
		if !ok {
			failed = append(failed, name+" (unknown predicate)")
			continue
		}
		if !pred(e.state.Clone()) {
			failed = append(failed, name)
		}
	}
	return len(failed) == 0, failed
}

// AvailableGoals returns the registered goal names.
func (e *Environment) AvailableGoals() []string {
	return e.registry.Names()
}

// Describe renders a short state description for prompts.
func (e *Environment) Describe() string {
	visible := e.VisibleObjects()
	seen := "none"
	if len(visible) > 0 {
		seen = strings.Join(visible, ", ")
	}
	holding := e.Holding()
	if holding == "" {
		holding = "nothing"
	}
	return fmt.Sprintf("Current location: %s\nVisible objects: [%s]\nHolding: %s",
		e.AgentLocation(), seen, holding)
}
