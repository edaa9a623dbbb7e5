package planner

import (
	"context"
	"fmt"

	"homeplan/internal/actions"
	"homeplan/internal/articulation"
	"homeplan/internal/perception"
)

// LLMProposer asks a text generator for a plan.
type LLMProposer struct {
	Client perception.LLMClient
	Style  articulation.Style
}

// Propose implements Proposer.
func (p *LLMProposer) Propose(ctx context.Context, instruction, stateContext string) (string, error) {
	out, err := p.Client.Complete(ctx, articulation.PlanPrompt(p.Style, instruction, stateContext))
	if err != nil {
		return "", fmt.Errorf("propose plan: %w", err)
	}
	return out, nil
}

// LLMRepairer asks a text generator for a single corrected step.
type LLMRepairer struct {
	Client perception.LLMClient
}

// Repair implements Repairer.
func (r *LLMRepairer) Repair(ctx context.Context, req RepairRequest) (string, error) {
	prompt := articulation.RepairPrompt(articulation.RepairContext{
		Instruction: req.Instruction,
		Failed:      req.Failed.String(),
		Error:       req.Error,
		Prefix:      actions.Strings(req.Prefix),
		State:       req.State,
	})
	out, err := r.Client.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("repair step: %w", err)
	}
	return out, nil
}

// MethodName resolves a strategy name or alias to its method constant.
func MethodName(name string) (string, error) {
	switch name {
	case MethodRepairFirst:
		return MethodRepairFirst, nil
	case "contextual", MethodContextual:
		return MethodContextual, nil
	case MethodOpenLoop, "open_loop":
		return MethodOpenLoop, nil
	default:
		return "", fmt.Errorf("unknown strategy: %s", name)
	}
}

// NewStrategy builds the named strategy over one client. Every strategy
// proposes with the prompt style it was designed for.
func NewStrategy(name string, client perception.LLMClient, tr Translator) (Strategy, error) {
	method, err := MethodName(name)
	if err != nil {
		return nil, err
	}
	switch method {
	case MethodRepairFirst:
		return NewRepairFirst(&LLMProposer{Client: client, Style: articulation.Grounded}, tr, &LLMRepairer{Client: client}), nil
	case MethodContextual:
		return NewContextual(&LLMProposer{Client: client, Style: articulation.Contextual}, tr), nil
	default:
		return NewOpenLoop(&LLMProposer{Client: client, Style: articulation.ZeroShot}, tr), nil
	}
}

var _ Translator = (*perception.Translator)(nil)
