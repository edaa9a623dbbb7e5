package planner

import (
	"context"
	"strings"
	"time"

	"homeplan/internal/actions"
	"homeplan/internal/articulation"
	"homeplan/internal/logging"
	"homeplan/internal/sim"
)

// RepairFirst proposes a plan once, then walks it on a clone of the
// environment. At the first rejected step it asks the Repairer for one
// replacement, splices it in and walks again from the start. At most
// maxRepairs repair calls are made per session.
type RepairFirst struct {
	proposer   Proposer
	translator Translator
	repairer   Repairer
}

// NewRepairFirst creates the repair-first strategy.
func NewRepairFirst(p Proposer, t Translator, r Repairer) *RepairFirst {
	return &RepairFirst{proposer: p, translator: t, repairer: r}
}

// Name implements Strategy.
func (s *RepairFirst) Name() string { return MethodRepairFirst }

// Solve implements Strategy.
func (s *RepairFirst) Solve(ctx context.Context, instruction string, env *sim.Environment, goals []string, maxRepairs int) *Result {
	start := time.Now()
	if maxRepairs < 0 {
		maxRepairs = 0
	}
	res := newResult(MethodRepairFirst, instruction, goals)
	logging.Planner("[%s] repair-first: %q (max repairs %d)", res.SessionID, instruction, maxRepairs)

	snap := env.Reset()
	if !propose(ctx, s.proposer, s.translator, res, articulation.StateContext(articulation.Grounded, snap)) {
		return finish(res, start)
	}

	s.validate(ctx, env, res, maxRepairs)
	if !res.Validated {
		logging.PlannerWarn("[%s] executing unvalidated plan after %d attempts", res.SessionID, res.ValidationAttempts)
	}

	executeLive(env, res)
	return finish(res, start)
}

// walk runs seq on trial until a step is rejected. It returns the index of
// that step, or -1 when every step ran.
func walk(trial *sim.Environment, seq []actions.Action) (int, *sim.PreconditionError) {
	for i, a := range seq {
		if ok, perr := trial.IsValid(a); !ok {
			return i, perr
		}
		trial.Execute(a)
	}
	return -1, nil
}

func (s *RepairFirst) validate(ctx context.Context, env *sim.Environment, res *Result, maxRepairs int) {
	for attempt := 0; attempt <= maxRepairs; attempt++ {
		if err := ctx.Err(); err != nil {
			logging.RepairWarn("[%s] validation interrupted: %v", res.SessionID, err)
			break
		}
		res.ValidationAttempts++
		res.enter(PhaseValidating)

		trial := env.Clone()
		idx, perr := walk(trial, res.WorkingSteps)
		if idx < 0 {
			res.Validated = true
			res.enter(PhaseCommitted)
			logging.RepairDebug("[%s] attempt %d: plan validated (%d steps)", res.SessionID, attempt, len(res.WorkingSteps))
			return
		}

		failed := res.WorkingSteps[idx]
		rec := RepairRecord{Attempt: attempt, StepIndex: idx, Original: failed, Error: perr.Reason}
		logging.Repair("[%s] attempt %d: step %d %q rejected: %s", res.SessionID, attempt, idx, failed, perr.Reason)

		if attempt == maxRepairs {
			res.RepairHistory = append(res.RepairHistory, rec)
			break
		}

		res.enter(PhaseRepairRequested)
		reply, err := s.repairer.Repair(ctx, RepairRequest{
			Instruction: res.Instruction,
			Failed:      failed,
			Error:       perr.Reason,
			Prefix:      append([]actions.Action(nil), res.WorkingSteps[:idx]...),
			State:       trial.Snapshot(),
		})
		res.ExternalCalls++
		if err != nil {
			text := err.Error()
			rec.Response = &text
			res.RepairHistory = append(res.RepairHistory, rec)
			logging.RepairWarn("[%s] repairer failed: %v", res.SessionID, err)
			continue
		}

		reply = strings.TrimSpace(reply)
		rec.Response = &reply
		replacement, ok := s.translator.Translate(ctx, firstStep(reply))
		if !ok {
			res.RepairHistory = append(res.RepairHistory, rec)
			logging.RepairDebug("[%s] repair reply untranslatable: %q", res.SessionID, reply)
			continue
		}

		rec.Replacement = &replacement
		rec.Accepted = true
		rec.Inserted = splice(trial, res, idx, replacement)
		res.RepairHistory = append(res.RepairHistory, rec)
		logging.Repair("[%s] step %d: %q -> %q (inserted=%v)", res.SessionID, idx, failed, replacement, rec.Inserted)
	}
	res.enter(PhaseAbandoned)
}

// splice puts replacement at idx. When the replacement is a different action
// that makes the rejected step valid, the rejected step is kept right after
// it; splice reports whether that happened. trial is the world just before
// idx and is not modified.
func splice(trial *sim.Environment, res *Result, idx int, replacement actions.Action) bool {
	failed := res.WorkingSteps[idx]
	if replacement != failed {
		scratch := trial.Clone()
		if ok, _ := scratch.Execute(replacement); ok {
			if ok, _ := scratch.IsValid(failed); ok {
				seq := make([]actions.Action, 0, len(res.WorkingSteps)+1)
				seq = append(seq, res.WorkingSteps[:idx]...)
				seq = append(seq, replacement)
				seq = append(seq, res.WorkingSteps[idx:]...)
				res.WorkingSteps = seq
				return true
			}
		}
	}
	res.WorkingSteps[idx] = replacement
	return false
}

// firstStep returns the first step line of a repair reply.
func firstStep(reply string) string {
	if steps := SplitSteps(reply); len(steps) > 0 {
		return steps[0]
	}
	return reply
}
