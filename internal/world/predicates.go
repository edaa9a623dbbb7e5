package world

import (
	"fmt"
	"sort"
	"sync"
)

// Predicate is a pure boolean test over a snapshot.
type Predicate func(s *Snapshot) bool

// Registry maps goal names to predicates. The registry is safe for
// concurrent readers; registration is expected at setup time.
type Registry struct {
	mu    sync.RWMutex
	preds map[string]Predicate
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{preds: make(map[string]Predicate)}
}

// Register adds or replaces a predicate.
func (r *Registry) Register(name string, p Predicate) error {
	if name == "" {
		return fmt.Errorf("predicate name required")
	}
	if p == nil {
		return fmt.Errorf("predicate %s: nil func", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.preds[name] = p
	return nil
}

// Lookup returns the predicate registered under name.
func (r *Registry) Lookup(name string) (Predicate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.preds[name]
	return p, ok
}

// Names returns all registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.preds))
	for name := range r.preds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered predicates.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.preds)
}

// Merge copies every predicate of other into r, overwriting duplicates.
func (r *Registry) Merge(other *Registry) {
	if other == nil || other == r {
		return
	}
	other.mu.RLock()
	defer other.mu.RUnlock()
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, p := range other.preds {
		r.preds[name] = p
	}
}

func stateIs(object, state string) Predicate {
	return func(s *Snapshot) bool { return s.StateOf(object) == state }
}

func objectIn(object string, room Room) Predicate {
	return func(s *Snapshot) bool { return s.LocationOf(object) == In(room) }
}

func agentIn(room Room) Predicate {
	return func(s *Snapshot) bool { return s.Agent.Location == room }
}

func holding(object string) Predicate {
	return func(s *Snapshot) bool { return s.Agent.Holding == object }
}

func all(ps ...Predicate) Predicate {
	return func(s *Snapshot) bool {
		for _, p := range ps {
			if !p(s) {
				return false
			}
		}
		return true
	}
}

// DefaultRegistry returns the built-in household goals.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	builtins := map[string]Predicate{
		"hands_washed":  all(stateIs("soap", StateUsed), stateIs("faucet", StateOn)),
		"teeth_brushed": stateIs("toothbrush", StateUsed),
		"coffee_made":   all(stateIs("coffee_maker", StateUsed), stateIs("cup", StateFilled)),
		"cup_filled":    stateIs("cup", StateFilled),
		"lights_on":     stateIs("light", StateOn),
		"lights_off":    stateIs("light", StateOff),
		"lamp_on":       stateIs("lamp", StateOn),

		"cup_in_kitchen":     objectIn("cup", Kitchen),
		"cup_in_living_room": objectIn("cup", LivingRoom),
		"phone_in_bedroom":   objectIn("phone", Bedroom),

		"agent_in_kitchen":     agentIn(Kitchen),
		"agent_in_bathroom":    agentIn(Bathroom),
		"agent_in_bedroom":     agentIn(Bedroom),
		"agent_in_living_room": agentIn(LivingRoom),

		"hands_empty":   func(s *Snapshot) bool { return s.Agent.HandsEmpty() },
		"holding_cup":   holding("cup"),
		"holding_phone": holding("phone"),
	}
	for name, p := range builtins {
		_ = r.Register(name, p)
	}
	return r
}
