package eval

import (
	"sort"

	"homeplan/internal/sim"
)

// Summary aggregates one strategy's outcomes.
type Summary struct {
	Method      string
	Tasks       int
	Successes   int
	MeanCalls   float64
	MeanRepairs float64
	MeanSteps   float64
	// Failures counts failing categories of sessions that stopped on a
	// rejected step. Goal-only failures are counted as "goal_not_met".
	Failures map[string]int
}

// SuccessRate is Successes/Tasks.
func (s Summary) SuccessRate() float64 {
	if s.Tasks == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Tasks)
}

const goalNotMet = "goal_not_met"

// Summarize groups outcomes by strategy, ordered by strategy name.
func Summarize(outcomes []Outcome) []Summary {
	byMethod := make(map[string]*Summary)
	var order []string
	for _, o := range outcomes {
		if o.Result == nil {
			continue
		}
		s, ok := byMethod[o.Strategy]
		if !ok {
			s = &Summary{Method: o.Strategy, Failures: make(map[string]int)}
			byMethod[o.Strategy] = s
			order = append(order, o.Strategy)
		}
		res := o.Result
		s.Tasks++
		s.MeanCalls += float64(res.ExternalCalls)
		s.MeanRepairs += float64(res.RepairCount())
		s.MeanSteps += float64(res.StepsExecuted)
		switch {
		case res.Success:
			s.Successes++
		case res.FailingCategory != "":
			s.Failures[string(res.FailingCategory)]++
		default:
			s.Failures[goalNotMet]++
		}
	}

	sort.Strings(order)
	out := make([]Summary, 0, len(order))
	for _, m := range order {
		s := byMethod[m]
		n := float64(s.Tasks)
		s.MeanCalls /= n
		s.MeanRepairs /= n
		s.MeanSteps /= n
		out = append(out, *s)
	}
	return out
}

// Divergence is a task one strategy solved and another did not.
type Divergence struct {
	TaskID   string
	Winner   string
	Loser    string
	Reason   string
	Category sim.Category
}

// Compare lists tasks where a succeeded and b failed, in task order.
func (r *Report) Compare(a, b string) []Divergence {
	type pair struct{ a, b *Outcome }
	byTask := make(map[string]*pair)
	var order []string
	for i := range r.Outcomes {
		o := &r.Outcomes[i]
		if o.Result == nil || (o.Strategy != a && o.Strategy != b) {
			continue
		}
		p, ok := byTask[o.TaskID]
		if !ok {
			p = &pair{}
			byTask[o.TaskID] = p
			order = append(order, o.TaskID)
		}
		if o.Strategy == a {
			p.a = o
		} else {
			p.b = o
		}
	}

	var out []Divergence
	for _, id := range order {
		p := byTask[id]
		if p.a == nil || p.b == nil || !p.a.Result.Success || p.b.Result.Success {
			continue
		}
		reason := p.b.Result.FailureReason
		if reason == "" {
			reason = "goal not achieved"
		}
		out = append(out, Divergence{
			TaskID:   id,
			Winner:   a,
			Loser:    b,
			Reason:   reason,
			Category: p.b.Result.FailingCategory,
		})
	}
	return out
}
