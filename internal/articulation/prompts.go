// Package articulation renders the prompts sent to the text generator: plan
// proposals in three styles and single-step repairs.
package articulation

import (
	"fmt"
	"strings"

	"homeplan/internal/world"
)

// Style selects how much world state a proposal prompt carries.
type Style int

const (
	// ZeroShot carries the task only.
	ZeroShot Style = iota
	// Contextual adds the agent's view and every room's contents.
	Contextual
	// Grounded is Contextual plus explicit precondition rules. Used by the
	// repair-first planner.
	Grounded
)

func (s Style) String() string {
	switch s {
	case ZeroShot:
		return "zero_shot"
	case Contextual:
		return "contextual"
	case Grounded:
		return "grounded"
	default:
		return fmt.Sprintf("style(%d)", int(s))
	}
}

func orDefault(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, ", ")
}

func holdingText(s *world.Snapshot) string {
	if s.Agent.Holding == "" {
		return "nothing"
	}
	return s.Agent.Holding
}

func roomContents(s *world.Snapshot) string {
	lines := make([]string, len(world.Rooms))
	for i, r := range world.Rooms {
		lines[i] = fmt.Sprintf("  %s: %s", r, orDefault(s.ObjectsIn(r), "empty"))
	}
	return strings.Join(lines, "\n")
}

// StateContext renders the state block a proposal prompt embeds. ZeroShot
// carries no state and yields "".
func StateContext(style Style, s *world.Snapshot) string {
	if s == nil {
		return ""
	}
	visible := orDefault(s.ObjectsIn(s.Agent.Location), "none")
	switch style {
	case Contextual:
		return fmt.Sprintf(`Current State:
- You are in: %s
- Holding: %s
- Objects visible here: %s

Room Contents:
%s`, s.Agent.Location, holdingText(s), visible, roomContents(s))
	case Grounded:
		return fmt.Sprintf(`Current State:
- Location: %s
- Holding: %s
- Visible here: %s

All Objects:
%s`, s.Agent.Location, holdingText(s), visible, roomContents(s))
	default:
		return ""
	}
}

// PlanPrompt builds the proposal prompt for instruction.
func PlanPrompt(style Style, instruction, stateContext string) string {
	var b strings.Builder
	if stateContext != "" && style != ZeroShot {
		b.WriteString(stateContext)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Task: %s\n\n", instruction)

	switch style {
	case ZeroShot:
		b.WriteString(`Generate a step-by-step plan to complete this task in a home environment.

Available actions:
- goto <room>: Move to a room (kitchen, bedroom, bathroom, living_room)
- pickup <object>: Pick up an object
- drop <object>: Put down an object you're holding
- toggle <object>: Turn something on/off
- use <object>: Use an object

Requirements:
- One action per line
- Use simple language (e.g., "goto kitchen", "pickup cup")
- Do not include explanations or numbering
- Be concise
`)
	case Contextual:
		b.WriteString(`Generate a step-by-step plan. You must navigate to objects before using them.

Available actions:
- goto <room>: Move to kitchen, bathroom, bedroom, or living_room
- pickup <object>: Pick up (must be in same room, hands empty)
- drop <object>: Put down (must be holding it)
- toggle <object>: Turn on/off (must be in same room)
- use <object>: Use object (must be in same room)

Requirements:
- One action per line
- Be precise: "goto bathroom" not "go to the bathroom"
- No explanations or numbering
`)
	default:
		b.WriteString(`IMPORTANT RULES:
1. You must "goto <room>" before you can interact with objects in that room
2. You must have empty hands to "pickup" (drop first if holding something)
3. Objects can only be used/toggled when you're in the same room

Actions: goto, pickup, drop, toggle, use
Format: One simple action per line (e.g., "goto bathroom")
`)
	}
	b.WriteString("\nPlan:")
	return b.String()
}

// RepairContext describes one rejected step.
type RepairContext struct {
	Instruction string
	Failed      string
	Error       string
	// Prefix holds the steps that validated before the failure.
	Prefix []string
	// State is the trial world after Prefix.
	State *world.Snapshot
}

// RepairPrompt asks for a single corrected action.
func RepairPrompt(rc RepairContext) string {
	prefix := "  (none)"
	if len(rc.Prefix) > 0 {
		lines := make([]string, len(rc.Prefix))
		for i, s := range rc.Prefix {
			lines[i] = fmt.Sprintf("  %d. %s", i+1, s)
		}
		prefix = strings.Join(lines, "\n")
	}

	location, holding, visible := "unknown", "nothing", "none"
	if rc.State != nil {
		location = string(rc.State.Agent.Location)
		holding = holdingText(rc.State)
		visible = orDefault(rc.State.ObjectsIn(rc.State.Agent.Location), "none")
	}

	return fmt.Sprintf(`A step in your plan failed. Fix ONLY this step.

Original task: %s

Steps executed successfully:
%s

Current state after those steps:
- Location: %s
- Holding: %s
- Visible objects: %s

FAILED STEP: %s
ERROR: %s

Rules reminder:
- "goto <room>" to move (kitchen, bathroom, bedroom, living_room)
- "pickup <object>" requires: empty hands AND object in current room
- "drop <object>" requires: holding that object
- "toggle/use <object>" requires: object in current room

Output ONLY the corrected action (e.g., "goto bathroom" or "drop cup"):`,
		rc.Instruction, prefix, location, holding, visible, rc.Failed, rc.Error)
}
