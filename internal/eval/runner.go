package eval

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"homeplan/internal/logging"
	"homeplan/internal/planner"
	"homeplan/internal/sim"
)

// Recorder persists session results. *store.Journal implements it.
type Recorder interface {
	Record(ctx context.Context, batchID, task string, res *planner.Result) error
}

// Outcome is one strategy's result on one task.
type Outcome struct {
	TaskID     string
	Difficulty string
	Strategy   string
	Result     *planner.Result
}

// Report is the result of one batch.
type Report struct {
	BatchID   string
	Suite     string
	Outcomes  []Outcome
	Summaries []Summary
	// RecordErrors counts results the Recorder failed to store.
	RecordErrors int
	Duration     time.Duration
}

// Runner evaluates strategies over a suite. Every session gets its own
// Environment, so sessions run concurrently without sharing state.
type Runner struct {
	Strategies  []planner.Strategy
	MaxRepairs  int
	Concurrency int
	TaskTimeout time.Duration
	// NewEnv builds a fresh environment per session; nil means sim.New.
	NewEnv func() *sim.Environment
	// Recorder is optional.
	Recorder Recorder
}

func (r *Runner) newEnv() *sim.Environment {
	if r.NewEnv != nil {
		return r.NewEnv()
	}
	return sim.New()
}

// Run executes every (task, strategy) pair. Outcomes are ordered by task,
// then by strategy, regardless of completion order. It fails only when ctx
// is cancelled before the batch finishes.
func (r *Runner) Run(ctx context.Context, suite *Suite) (*Report, error) {
	if len(r.Strategies) == 0 {
		return nil, fmt.Errorf("no strategies to evaluate")
	}
	if err := suite.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	report := &Report{
		BatchID:  uuid.NewString(),
		Suite:    suite.Name,
		Outcomes: make([]Outcome, len(suite.Tasks)*len(r.Strategies)),
	}
	logging.Eval("batch %s: %d tasks x %d strategies (concurrency %d)",
		report.BatchID, len(suite.Tasks), len(r.Strategies), r.Concurrency)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	if r.Concurrency > 0 {
		g.SetLimit(r.Concurrency)
	}

	for ti, task := range suite.Tasks {
		for si, strat := range r.Strategies {
			slot := ti*len(r.Strategies) + si
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				res := r.runOne(gctx, task, strat)
				report.Outcomes[slot] = Outcome{
					TaskID:     task.ID,
					Difficulty: task.Difficulty,
					Strategy:   strat.Name(),
					Result:     res,
				}
				if r.Recorder != nil {
					if err := r.Recorder.Record(gctx, report.BatchID, task.ID, res); err != nil {
						logging.EvalError("failed to record %s/%s: %v", task.ID, strat.Name(), err)
						mu.Lock()
						report.RecordErrors++
						mu.Unlock()
					}
				}
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch interrupted: %w", err)
	}

	report.Summaries = Summarize(report.Outcomes)
	report.Duration = time.Since(start)
	logging.Eval("batch %s finished in %v", report.BatchID, report.Duration)
	return report, nil
}

func (r *Runner) runOne(ctx context.Context, task Task, strat planner.Strategy) *planner.Result {
	if r.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.TaskTimeout)
		defer cancel()
	}
	res := strat.Solve(ctx, task.Instruction, r.newEnv(), task.Goals, r.MaxRepairs)
	logging.EvalDebug("%s/%s: success=%v calls=%d", task.ID, strat.Name(), res.Success, res.ExternalCalls)
	return res
}
