package planner

import (
	"context"
	"time"

	"homeplan/internal/articulation"
	"homeplan/internal/logging"
	"homeplan/internal/sim"
)

// OpenLoop is the zero-shot baseline: one proposal with no world state,
// executed as translated with no validation. It makes exactly one call.
type OpenLoop struct {
	proposer   Proposer
	translator Translator
}

// NewOpenLoop creates the zero-shot baseline.
func NewOpenLoop(p Proposer, t Translator) *OpenLoop {
	return &OpenLoop{proposer: p, translator: t}
}

// Name implements Strategy.
func (s *OpenLoop) Name() string { return MethodOpenLoop }

// Solve implements Strategy. maxRepairs is ignored.
func (s *OpenLoop) Solve(ctx context.Context, instruction string, env *sim.Environment, goals []string, _ int) *Result {
	return solveOpenLoop(ctx, MethodOpenLoop, s.proposer, s.translator, instruction, env, goals, "")
}

// Contextual is OpenLoop with the world state in the prompt.
type Contextual struct {
	proposer   Proposer
	translator Translator
}

// NewContextual creates the contextual baseline.
func NewContextual(p Proposer, t Translator) *Contextual {
	return &Contextual{proposer: p, translator: t}
}

// Name implements Strategy.
func (s *Contextual) Name() string { return MethodContextual }

// Solve implements Strategy. maxRepairs is ignored.
func (s *Contextual) Solve(ctx context.Context, instruction string, env *sim.Environment, goals []string, _ int) *Result {
	snap := env.Reset()
	return solveOpenLoop(ctx, MethodContextual, s.proposer, s.translator, instruction, env, goals,
		articulation.StateContext(articulation.Contextual, snap))
}

func solveOpenLoop(ctx context.Context, method string, p Proposer, tr Translator, instruction string, env *sim.Environment, goals []string, stateContext string) *Result {
	start := time.Now()
	res := newResult(method, instruction, goals)
	logging.Planner("[%s] %s: %q", res.SessionID, method, instruction)

	env.Reset()
	if !propose(ctx, p, tr, res, stateContext) {
		return finish(res, start)
	}
	res.enter(PhaseCommitted)
	executeLive(env, res)
	return finish(res, start)
}
