package sim

import (
	"homeplan/internal/actions"
	"homeplan/internal/world"
)

// couplingRule is a side effect applied after an action's primary effect.
type couplingRule func(s *world.Snapshot)

type ruleKey struct {
	verb   actions.Verb
	object string
}

// couplings holds the cross-object effects of the home. Each rule runs after
// the verb's own effect on the target.
var couplings = map[ruleKey][]couplingRule{
	// brewing fills the cup when it sits in the same room as the agent
	{actions.Use, "coffee_maker"}: {func(s *world.Snapshot) {
		if s.CoLocated("cup") {
			s.SetState("cup", world.StateFilled)
		}
	}},
	{actions.Use, "faucet"}: {
		func(s *world.Snapshot) { s.SetState("faucet", world.StateOn) },
		func(s *world.Snapshot) {
			if s.Agent.Holding == "cup" {
				s.SetState("cup", world.StateFilled)
			}
		},
	},
	{actions.Use, "cup"}: {func(s *world.Snapshot) {
		if s.Agent.Location == world.Bathroom && s.StateOf("faucet") == world.StateOn {
			s.SetState("cup", world.StateFilled)
		}
	}},
}

// checkPreconditions returns nil when a can run against s.
func checkPreconditions(s *world.Snapshot, a actions.Action) *PreconditionError {
	here := s.Agent.Location

	switch a.Verb {
	case actions.Goto:
		if !world.IsRoom(a.Target) {
			return &PreconditionError{Category: CategoryInvalidTarget, Reason: "unknown room " + a.Target}
		}
		return nil
	}

	obj, ok := s.Object(a.Target)
	if !ok {
		return &PreconditionError{Category: CategoryInvalidTarget, Reason: "unknown object " + a.Target}
	}

	switch a.Verb {
	case actions.Pickup:
		if !s.Agent.HandsEmpty() {
			return handsFull()
		}
		if obj.Location != world.In(here) {
			return notHere(a.Target, here, "")
		}
	case actions.Drop:
		if s.Agent.Holding != a.Target {
			return notHolding(a.Target)
		}
	case actions.Toggle:
		if obj.Location != world.In(here) {
			return notHere(a.Target, here, obj.Location)
		}
	case actions.Use:
		if obj.Location != world.In(here) && s.Agent.Holding != a.Target {
			return notHere(a.Target, here, obj.Location)
		}
	default:
		return &PreconditionError{Category: CategoryExecutionError, Reason: "unhandled action " + string(a.Verb)}
	}
	return nil
}

// applyEffects mutates s for an action already known to be valid.
func applyEffects(s *world.Snapshot, a actions.Action) {
	switch a.Verb {
	case actions.Goto:
		s.Agent.Location = world.Room(a.Target)
	case actions.Pickup:
		s.SetLocation(a.Target, world.Held)
		s.Agent.Holding = a.Target
	case actions.Drop:
		s.SetLocation(a.Target, world.In(s.Agent.Location))
		s.Agent.Holding = ""
	case actions.Toggle:
		switch s.StateOf(a.Target) {
		case world.StateOn:
			s.SetState(a.Target, world.StateOff)
		default:
			s.SetState(a.Target, world.StateOn)
		}
	case actions.Use:
		s.SetState(a.Target, world.StateUsed)
	}

	for _, rule := range couplings[ruleKey{a.Verb, a.Target}] {
		rule(s)
	}
}
