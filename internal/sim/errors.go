package sim

import (
	"errors"
	"fmt"
	"strings"

	"homeplan/internal/actions"
	"homeplan/internal/world"
)

// Category classifies why an action was rejected.
type Category string

const (
	CategoryHandsFull      Category = "precondition_hands_full"
	CategoryNotHolding     Category = "precondition_not_holding"
	CategoryWrongLocation  Category = "precondition_wrong_location"
	CategoryInvalidTarget  Category = "invalid_target"
	CategoryExecutionError Category = "execution_error"
)

// PreconditionError is returned when an action cannot run in the current state.
type PreconditionError struct {
	Action   actions.Action
	Category Category
	Reason   string
}

func (e *PreconditionError) Error() string {
	return e.Reason
}

func handsFull() *PreconditionError {
	return &PreconditionError{Category: CategoryHandsFull, Reason: "hand not empty"}
}

func notHolding(target string) *PreconditionError {
	return &PreconditionError{Category: CategoryNotHolding, Reason: "not holding " + target}
}

func notHere(target string, room world.Room, actual world.Location) *PreconditionError {
	reason := fmt.Sprintf("%s not in %s", target, room)
	switch {
	case actual == world.Held:
		reason += " (it's being held)"
	case actual != "":
		reason += fmt.Sprintf(" (it's in %s)", actual)
	}
	return &PreconditionError{Category: CategoryWrongLocation, Reason: reason}
}

// Categorize maps an arbitrary failure reason onto a Category by its wording.
// It is used for errors that arrive as text, e.g. from a trace.
func Categorize(reason string) Category {
	lower := strings.ToLower(reason)
	switch {
	case strings.Contains(lower, "hand not empty"):
		return CategoryHandsFull
	case strings.Contains(lower, "not holding"):
		return CategoryNotHolding
	case strings.Contains(lower, "not in"):
		return CategoryWrongLocation
	case strings.Contains(lower, "unknown"), strings.Contains(lower, "invalid"):
		return CategoryInvalidTarget
	default:
		return CategoryExecutionError
	}
}

// CategoryOf returns the category of err. Typed errors report their own;
// anything else is categorized by its message.
func CategoryOf(err error) Category {
	if err == nil {
		return ""
	}
	var pe *PreconditionError
	if errors.As(err, &pe) {
		return pe.Category
	}
	var parseErr *actions.ParseError
	if errors.As(err, &parseErr) {
		return CategoryInvalidTarget
	}
	return Categorize(err.Error())
}
