// Package actions defines the action grammar "<verb> <target>" and parses
// free text into typed actions.
package actions

import (
	"fmt"
	"sort"
	"strings"

	"homeplan/internal/world"
)

// Verb is an action type.
type Verb string

const (
	Goto   Verb = "goto"
	Pickup Verb = "pickup"
	Drop   Verb = "drop"
	Toggle Verb = "toggle"
	Use    Verb = "use"
)

// TargetKind is the kind of argument a verb takes.
type TargetKind string

const (
	TargetRoom   TargetKind = "room"
	TargetObject TargetKind = "object"
)

type requirement struct {
	kind    TargetKind
	targets []string
}

var requirements = map[Verb]requirement{
	Goto:   {kind: TargetRoom, targets: roomNames()},
	Pickup: {kind: TargetObject, targets: world.Objects},
	Drop:   {kind: TargetObject, targets: world.Objects},
	Toggle: {kind: TargetObject, targets: world.Objects},
	Use:    {kind: TargetObject, targets: world.Objects},
}

func roomNames() []string {
	out := make([]string, len(world.Rooms))
	for i, r := range world.Rooms {
		out[i] = string(r)
	}
	return out
}

// Verbs returns the valid verbs, sorted.
func Verbs() []Verb {
	out := make([]Verb, 0, len(requirements))
	for v := range requirements {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func verbList() string {
	vs := Verbs()
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

// IsVerb reports whether s names a valid verb.
func IsVerb(s string) bool {
	_, ok := requirements[Verb(s)]
	return ok
}

// KindOf returns the argument kind for a verb.
func KindOf(v Verb) TargetKind {
	return requirements[v].kind
}

// TargetsFor returns the valid targets of a verb in declaration order.
func TargetsFor(v Verb) []string {
	req, ok := requirements[v]
	if !ok {
		return nil
	}
	return append([]string(nil), req.targets...)
}

// AcceptsTarget reports whether target is a valid argument for v.
func AcceptsTarget(v Verb, target string) bool {
	req, ok := requirements[v]
	if !ok {
		return false
	}
	for _, t := range req.targets {
		if t == target {
			return true
		}
	}
	return false
}

// Action is a verb applied to a target.
type Action struct {
	Verb   Verb   `json:"verb" yaml:"verb"`
	Target string `json:"target" yaml:"target"`
}

// String renders the canonical text form.
func (a Action) String() string {
	return string(a.Verb) + " " + a.Target
}

// IsZero reports whether a is the zero action.
func (a Action) IsZero() bool {
	return a.Verb == "" && a.Target == ""
}

// New builds an action and checks it against the grammar.
func New(v Verb, target string) (Action, error) {
	return Parse(string(v) + " " + target)
}

// Reason classifies a parse failure.
type Reason string

const (
	ReasonEmpty         Reason = "empty"
	ReasonMalformed     Reason = "malformed"
	ReasonUnknownVerb   Reason = "unknown_verb"
	ReasonInvalidTarget Reason = "invalid_target"
)

// ParseError is returned when text does not match the grammar.
type ParseError struct {
	Input  string
	Reason Reason
	Verb   string
	Target string
}

func (e *ParseError) Error() string {
	switch e.Reason {
	case ReasonEmpty:
		return "Empty action string"
	case ReasonMalformed:
		return fmt.Sprintf("Malformed action '%s'. Expected format: 'action argument' (e.g., 'goto kitchen')", e.Input)
	case ReasonUnknownVerb:
		return fmt.Sprintf("Unknown action '%s'. Valid actions: %s", e.Verb, verbList())
	case ReasonInvalidTarget:
		req := requirements[Verb(e.Verb)]
		return fmt.Sprintf("Invalid target '%s' for '%s'. Valid %ss: %s",
			e.Target, e.Verb, req.kind, strings.Join(req.targets, ", "))
	default:
		return fmt.Sprintf("invalid action '%s'", e.Input)
	}
}

// Parse converts text into an Action. Input is lower-cased and trimmed; more
// than two tokens are joined with underscores so "goto living room" names
// living_room.
func Parse(text string) (Action, error) {
	clean := strings.ToLower(strings.TrimSpace(text))
	if clean == "" {
		return Action{}, &ParseError{Input: text, Reason: ReasonEmpty}
	}

	tokens := strings.Fields(clean)
	if len(tokens) < 2 {
		return Action{}, &ParseError{Input: clean, Reason: ReasonMalformed}
	}

	verb := tokens[0]
	target := strings.Join(tokens[1:], "_")

	if !IsVerb(verb) {
		return Action{}, &ParseError{Input: clean, Reason: ReasonUnknownVerb, Verb: verb, Target: target}
	}
	if !AcceptsTarget(Verb(verb), target) {
		return Action{}, &ParseError{Input: clean, Reason: ReasonInvalidTarget, Verb: verb, Target: target}
	}
	return Action{Verb: Verb(verb), Target: target}, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(text string) Action {
	a, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return a
}

// IsValid reports whether text parses.
func IsValid(text string) bool {
	_, err := Parse(text)
	return err == nil
}

// Strings renders a sequence in canonical form.
func Strings(seq []Action) []string {
	out := make([]string, len(seq))
	for i, a := range seq {
		out[i] = a.String()
	}
	return out
}

// Help describes every verb and a few of its targets.
func Help() string {
	var b strings.Builder
	b.WriteString("Available Actions:\n")
	b.WriteString(strings.Repeat("=", 40))
	for _, v := range Verbs() {
		req := requirements[v]
		targets := req.targets
		suffix := ""
		if len(targets) > 5 {
			targets = targets[:5]
			suffix = ", ..."
		}
		fmt.Fprintf(&b, "\n  %s <%s>\n    Valid targets: %s%s", v, req.kind, strings.Join(targets, ", "), suffix)
	}
	return b.String()
}
