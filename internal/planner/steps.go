package planner

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"homeplan/internal/actions"
	"homeplan/internal/logging"
	"homeplan/internal/sim"
)

// leadingMarker matches list numbering and bullets: "1.", "2)", "-", "*", "•".
var leadingMarker = regexp.MustCompile(`^[\d.\-*•)]+[\s.)]*`)

// SplitSteps breaks a raw plan into step lines. List markers are stripped;
// blank lines and lines of two characters or fewer are dropped.
func SplitSteps(raw string) []string {
	var steps []string
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = strings.TrimSpace(leadingMarker.ReplaceAllString(line, ""))
		if len([]rune(line)) > 2 {
			steps = append(steps, line)
		}
	}
	return steps
}

func newResult(method, instruction string, goals []string) *Result {
	return &Result{
		SessionID:   uuid.NewString(),
		Method:      method,
		Instruction: instruction,
		Goals:       append([]string(nil), goals...),
		FailingStep: -1,
		Trace:       []TraceEntry{},
	}
}

// translateSteps maps each parsed line, recording the ones that fail.
func translateSteps(ctx context.Context, tr Translator, res *Result) []actions.Action {
	var out []actions.Action
	for i, line := range res.ParsedSteps {
		a, ok := tr.Translate(ctx, line)
		if !ok {
			res.TranslationFailures = append(res.TranslationFailures, TranslationFailure{StepIndex: i, Text: line})
			logging.PlannerDebug("[%s] step %d untranslatable: %q", res.SessionID, i, line)
			continue
		}
		out = append(out, a)
	}
	return out
}

// propose runs the single proposal call and fills the draft fields.
// It returns false when the session cannot continue.
func propose(ctx context.Context, p Proposer, tr Translator, res *Result, stateContext string) bool {
	res.enter(PhaseDraft)
	raw, err := p.Propose(ctx, res.Instruction, stateContext)
	res.ExternalCalls++
	if err != nil {
		res.FailureReason = fmt.Sprintf("proposal failed: %v", err)
		res.FailingCategory = sim.CategoryExecutionError
		res.enter(PhaseDone)
		logging.PlannerWarn("[%s] proposal failed: %v", res.SessionID, err)
		return false
	}
	res.RawPlan = raw
	res.ParsedSteps = SplitSteps(raw)
	res.OriginalSteps = translateSteps(ctx, tr, res)
	res.WorkingSteps = append([]actions.Action(nil), res.OriginalSteps...)
	return true
}

// executeLive runs the working sequence on env, stopping at the first
// rejected step, then checks goals when nothing failed.
func executeLive(env *sim.Environment, res *Result) {
	res.enter(PhaseExecuting)
	res.TotalSteps = len(res.WorkingSteps)

	for i, a := range res.WorkingSteps {
		ok, perr := env.Execute(a)
		entry := TraceEntry{StepIndex: i, Action: a, Success: ok}
		if !ok {
			entry.Error = perr.Reason
			res.Trace = append(res.Trace, entry)
			res.FailingStep = i
			res.FailingCategory = perr.Category
			res.FailureReason = fmt.Sprintf("Step %d failed: %s", i, perr.Reason)
			break
		}
		res.Trace = append(res.Trace, entry)
		res.StepsExecuted++
	}

	if res.FailureReason == "" {
		if len(res.Goals) > 0 {
			res.GoalAchieved, res.FailedGoals = env.CheckGoal(res.Goals)
		} else {
			res.GoalAchieved = true
		}
	}
	res.Success = res.GoalAchieved
	res.enter(PhaseDone)
}

func finish(res *Result, start time.Time) *Result {
	res.Duration = time.Since(start)
	logging.Planner("[%s] %s: success=%v steps=%d/%d calls=%d repairs=%d in %v",
		res.SessionID, res.Method, res.Success, res.StepsExecuted, res.TotalSteps,
		res.ExternalCalls, res.RepairCount(), res.Duration)
	return res
}
