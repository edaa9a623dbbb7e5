// Package planner turns a natural-language instruction into an executed
// action sequence. RepairFirst validates the proposed plan on a clone of the
// environment and repairs failing steps before committing; OpenLoop and
// Contextual are the single-shot baselines it is measured against.
package planner

import (
	"context"
	"time"

	"homeplan/internal/actions"
	"homeplan/internal/sim"
	"homeplan/internal/world"
)

// Strategy names.
const (
	MethodRepairFirst = "repair_first"
	MethodContextual  = "contextual_open_loop"
	MethodOpenLoop    = "huang"
)

// Proposer produces a free-form multi-line plan. stateContext is empty for
// strategies that do not show the model the world.
type Proposer interface {
	Propose(ctx context.Context, instruction, stateContext string) (string, error)
}

// Translator maps one free-form step to an action.
type Translator interface {
	Translate(ctx context.Context, line string) (actions.Action, bool)
}

// RepairRequest describes the step the validator rejected.
type RepairRequest struct {
	Instruction string
	Failed      actions.Action
	Error       string
	Prefix      []actions.Action
	// State is the trial world after Prefix.
	State *world.Snapshot
}

// Repairer proposes a single replacement step.
type Repairer interface {
	Repair(ctx context.Context, req RepairRequest) (string, error)
}

// Strategy solves one instruction against env.
type Strategy interface {
	Name() string
	Solve(ctx context.Context, instruction string, env *sim.Environment, goals []string, maxRepairs int) *Result
}

// Phase is a stage of a session.
type Phase string

const (
	PhaseDraft           Phase = "draft"
	PhaseValidating      Phase = "validating"
	PhaseRepairRequested Phase = "repair_requested"
	PhaseCommitted       Phase = "committed"
	PhaseAbandoned       Phase = "abandoned"
	PhaseExecuting       Phase = "executing"
	PhaseDone            Phase = "done"
)

// TranslationFailure is a proposed step no action could be found for.
type TranslationFailure struct {
	StepIndex int    `json:"step_index"`
	Text      string `json:"text"`
}

// RepairRecord logs one repair attempt.
type RepairRecord struct {
	Attempt   int            `json:"attempt"`
	StepIndex int            `json:"step_index"`
	Original  actions.Action `json:"original"`
	Error     string         `json:"error"`
	// Response is the raw repairer reply; nil when no call was made.
	Response *string `json:"response,omitempty"`
	// Replacement is the translated reply; nil when translation failed.
	Replacement *actions.Action `json:"replacement,omitempty"`
	Accepted    bool            `json:"accepted"`
	// Inserted is set when the replacement went in ahead of the original
	// step instead of over it.
	Inserted bool `json:"inserted,omitempty"`
}

// TraceEntry is one step attempted on the live environment.
type TraceEntry struct {
	StepIndex int            `json:"step_index"`
	Action    actions.Action `json:"action"`
	Success   bool           `json:"success"`
	Error     string         `json:"error,omitempty"`
}

// Result is the outcome of one session.
type Result struct {
	SessionID   string   `json:"session_id"`
	Method      string   `json:"method"`
	Instruction string   `json:"instruction"`
	Goals       []string `json:"goals,omitempty"`

	Success      bool     `json:"success"`
	GoalAchieved bool     `json:"goal_achieved"`
	FailedGoals  []string `json:"failed_goals,omitempty"`

	StepsExecuted int `json:"steps_executed"`
	TotalSteps    int `json:"total_steps"`
	ExternalCalls int `json:"external_calls"`

	RawPlan             string               `json:"raw_plan"`
	ParsedSteps         []string             `json:"parsed_steps"`
	OriginalSteps       []actions.Action     `json:"original_steps"`
	WorkingSteps        []actions.Action     `json:"working_steps"`
	TranslationFailures []TranslationFailure `json:"translation_failures,omitempty"`

	FailureReason   string       `json:"failure_reason,omitempty"`
	FailingStep     int          `json:"failing_step"`
	FailingCategory sim.Category `json:"failing_category,omitempty"`
	Trace           []TraceEntry `json:"trace"`

	RepairHistory      []RepairRecord `json:"repair_history,omitempty"`
	ValidationAttempts int            `json:"validation_attempts"`
	// Validated is true when a clone-and-walk pass accepted the whole
	// working sequence before it ran live.
	Validated bool `json:"validated"`

	Phases   []Phase       `json:"phases"`
	Duration time.Duration `json:"duration"`
}

// RepairCount returns the number of accepted repairs.
func (r *Result) RepairCount() int {
	n := 0
	for _, rec := range r.RepairHistory {
		if rec.Accepted {
			n++
		}
	}
	return n
}

func (r *Result) enter(p Phase) {
	r.Phases = append(r.Phases, p)
}
