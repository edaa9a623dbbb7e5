package main

import (
	"fmt"
	"sort"
	"strings"

	"homeplan/cmd/homeplan/ui"
	"homeplan/internal/actions"
	"homeplan/internal/diff"
	"homeplan/internal/eval"
	"homeplan/internal/planner"
	"homeplan/internal/store"
	"homeplan/internal/world"
)

func renderResult(s ui.Styles, res *planner.Result) string {
	var sb strings.Builder

	header := s.Status(res.Success, "SUCCESS", "FAILED")
	fmt.Fprintf(&sb, "%s %s", s.Badge.Render(res.Method), header)
	if res.Instruction != "" {
		fmt.Fprintf(&sb, "  %q", res.Instruction)
	}
	sb.WriteString("\n")

	if res.Method == planner.MethodRepairFirst {
		validated := s.Status(res.Validated, "validated", "not validated")
		fmt.Fprintf(&sb, "%s after %d attempt(s), %d repair(s)\n", validated, res.ValidationAttempts, res.RepairCount())
	}
	if len(res.WorkingSteps) > 0 {
		fmt.Fprintf(&sb, "plan: %s\n", planText(res.WorkingSteps))
	}
	for _, tf := range res.TranslationFailures {
		fmt.Fprintf(&sb, "%s step %d: %q\n", s.Warning.Render("untranslated"), tf.StepIndex, tf.Text)
	}

	trace := ui.NewTable("Trace", "#", "action", "result")
	for _, e := range res.Trace {
		result := s.Success.Render("ok")
		if !e.Success {
			result = s.Error.Render(e.Error)
		}
		trace.AddRow(fmt.Sprint(e.StepIndex), e.Action.String(), result)
	}
	sb.WriteString(trace.View(s))

	if len(res.RepairHistory) > 0 {
		repairs := ui.NewTable("Repairs", "attempt", "step", "error", "replacement", "")
		for _, r := range res.RepairHistory {
			replacement := "-"
			if r.Replacement != nil {
				replacement = r.Replacement.String()
			} else if r.Response != nil {
				replacement = s.Muted.Render(fmt.Sprintf("%q", *r.Response))
			}
			mode := ""
			switch {
			case r.Accepted && r.Inserted:
				mode = "inserted"
			case r.Accepted:
				mode = "replaced"
			}
			repairs.AddRow(fmt.Sprint(r.Attempt), r.Original.String(), r.Error, replacement, mode)
		}
		sb.WriteString(repairs.View(s))
	}
	if changes := diff.DefaultEngine.Plans(res.OriginalSteps, res.WorkingSteps); len(res.OriginalSteps) > 0 && diff.Changed(changes) {
		sb.WriteString(s.Title.Render("Plan changes"))
		sb.WriteString("\n")
		sb.WriteString(diff.Format(changes))
	}

	if res.FailureReason != "" {
		fmt.Fprintf(&sb, "%s %s\n", s.Error.Render("reason:"), res.FailureReason)
	}
	if len(res.Goals) > 0 {
		fmt.Fprintf(&sb, "goals %s: %s", s.Status(res.GoalAchieved, "met", "not met"), strings.Join(res.Goals, ", "))
		if len(res.FailedGoals) > 0 {
			fmt.Fprintf(&sb, " (failed: %s)", strings.Join(res.FailedGoals, ", "))
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "%s\n", s.Muted.Render(fmt.Sprintf("%d/%d steps, %d external call(s)",
		res.StepsExecuted, res.TotalSteps, res.ExternalCalls)))
	return sb.String()
}

func renderState(s ui.Styles, snap *world.Snapshot) string {
	holding := snap.Agent.Holding
	if holding == "" {
		holding = "nothing"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s in %s, holding %s\n", s.Title.Render("Agent"), snap.Agent.Location, holding)

	table := ui.NewTable("", "room", "objects")
	for _, room := range world.Rooms {
		objs := snap.ObjectsIn(room)
		cells := make([]string, len(objs))
		for i, name := range objs {
			cells[i] = fmt.Sprintf("%s (%s)", name, snap.StateOf(name))
		}
		row := strings.Join(cells, ", ")
		if row == "" {
			row = s.Muted.Render("empty")
		}
		table.AddRow(string(room), row)
	}
	sb.WriteString(table.View(s))
	return sb.String()
}

func renderReport(s ui.Styles, report *eval.Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s  %s\n", s.Badge.Render("batch"), report.Suite, s.Muted.Render(report.BatchID))

	table := ui.NewTable("Summary", "strategy", "success", "calls", "repairs", "steps", "failures")
	for _, sum := range report.Summaries {
		table.AddRow(
			sum.Method,
			fmt.Sprintf("%d/%d (%.0f%%)", sum.Successes, sum.Tasks, 100*sum.SuccessRate()),
			fmt.Sprintf("%.2f", sum.MeanCalls),
			fmt.Sprintf("%.2f", sum.MeanRepairs),
			fmt.Sprintf("%.2f", sum.MeanSteps),
			failureList(sum.Failures),
		)
	}
	sb.WriteString(table.View(s))

	if report.RecordErrors > 0 {
		fmt.Fprintf(&sb, "%s %d run(s) were not recorded\n", s.Warning.Render("warning:"), report.RecordErrors)
	}
	fmt.Fprintf(&sb, "%s\n", s.Muted.Render(fmt.Sprintf("%d sessions in %v", len(report.Outcomes), report.Duration)))
	return sb.String()
}

func failureList(failures map[string]int) string {
	if len(failures) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(failures))
	for k := range failures {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, failures[k])
	}
	return strings.Join(parts, " ")
}

func renderDivergences(s ui.Styles, divs []eval.Divergence) string {
	if len(divs) == 0 {
		return s.Muted.Render("no divergent tasks") + "\n"
	}
	table := ui.NewTable(fmt.Sprintf("Solved by %s, failed by %s", divs[0].Winner, divs[0].Loser), "task", "category", "reason")
	for _, d := range divs {
		table.AddRow(d.TaskID, string(d.Category), d.Reason)
	}
	return table.View(s)
}

func renderRuns(s ui.Styles, runs []store.Run) string {
	if len(runs) == 0 {
		return s.Muted.Render("no runs recorded") + "\n"
	}
	table := ui.NewTable(fmt.Sprintf("Runs (%d)", len(runs)), "id", "when", "task", "strategy", "result", "calls")
	for _, r := range runs {
		table.AddRow(
			shortID(r.ID),
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.Task,
			r.Method,
			s.Status(r.Success, "ok", "fail"),
			fmt.Sprint(r.ExternalCalls),
		)
	}
	return table.View(s)
}

func renderRun(s ui.Styles, r *store.Run) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s %s  %q\n", s.Badge.Render(r.Method), s.Status(r.Success, "SUCCESS", "FAILED"), r.ID, r.Instruction)
	fmt.Fprintf(&sb, "plan: %s\n", strings.Join(r.WorkingSteps, " -> "))

	trace := ui.NewTable("Trace", "#", "action", "result")
	for _, e := range r.Trace {
		result := "ok"
		if !e.Success {
			result = s.Error.Render(e.Error)
		}
		trace.AddRow(fmt.Sprint(e.StepIndex), e.Action.String(), result)
	}
	sb.WriteString(trace.View(s))

	if len(r.RepairHistory) > 0 {
		repairs := ui.NewTable("Repairs", "attempt", "step", "error", "replacement")
		for _, rr := range r.RepairHistory {
			replacement := "-"
			if rr.Replacement != nil {
				replacement = *rr.Replacement
			}
			repairs.AddRow(fmt.Sprint(rr.Attempt), rr.Original, rr.Error, replacement)
		}
		sb.WriteString(repairs.View(s))
	}
	if r.FailureReason != "" {
		fmt.Fprintf(&sb, "%s %s\n", s.Error.Render("reason:"), r.FailureReason)
	}
	return sb.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// planText is the plan in one line, for compact output.
func planText(steps []actions.Action) string {
	return strings.Join(actions.Strings(steps), " -> ")
}
