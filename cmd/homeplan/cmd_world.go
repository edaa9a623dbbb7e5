package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"homeplan/cmd/homeplan/ui"
	"homeplan/internal/perception"
	"homeplan/internal/planner"
)

func newExecCmd(a *app) *cobra.Command {
	var goals []string

	cmd := &cobra.Command{
		Use:   "exec [step]...",
		Short: "Execute steps by hand in a fresh home",
		Long: `Executes each argument as one step, translating free-form steps onto the
action grammar. Execution stops at the first rejected step.

Example:
  homeplan exec "goto bathroom" "turn on the faucet" "use soap" --goal hands_washed`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context()
			defer cancel()

			reg, err := a.registry()
			if err != nil {
				return err
			}
			env := envFactory(reg)()
			tr := a.translator(nil)

			out := cmd.OutOrStdout()
			res := &planner.Result{Method: "manual", Goals: goals, FailingStep: -1}
			for i, t := range tr.TranslateAll(ctx, args) {
				if !t.OK() {
					res.TranslationFailures = append(res.TranslationFailures, planner.TranslationFailure{StepIndex: i, Text: t.Input})
					continue
				}
				if t.Method != perception.MethodExact {
					fmt.Fprintf(out, "%s %q -> %s %s\n", a.styles.Muted.Render("translated"), t.Input, t.Action,
						a.styles.Muted.Render(fmt.Sprintf("(%s, %.2f)", t.Method, t.Confidence)))
				}
				res.WorkingSteps = append(res.WorkingSteps, t.Action)
			}
			res.TotalSteps = len(res.WorkingSteps)

			for i, act := range res.WorkingSteps {
				ok, perr := env.Execute(act)
				entry := planner.TraceEntry{StepIndex: i, Action: act, Success: ok}
				if !ok {
					entry.Error = perr.Error()
					res.Trace = append(res.Trace, entry)
					res.FailingStep = i
					res.FailingCategory = perr.Category
					res.FailureReason = fmt.Sprintf("Step %d failed: %s", i, perr.Error())
					break
				}
				res.Trace = append(res.Trace, entry)
				res.StepsExecuted++
			}
			if res.FailingStep < 0 {
				res.GoalAchieved, res.FailedGoals = env.CheckGoal(goals)
				res.Success = res.GoalAchieved
			}

			fmt.Fprint(out, renderResult(a.styles, res))
			fmt.Fprint(out, renderState(a.styles, env.Snapshot()))
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&goals, "goal", "g", nil, "Goal predicate to check (repeatable)")
	return cmd
}

func newStateCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Show the default home",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registry()
			if err != nil {
				return err
			}
			snap := envFactory(reg)().Snapshot()
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderState(a.styles, snap))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the snapshot as JSON")
	return cmd
}

func newGoalsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "goals",
		Short: "List goal predicates and whether the default home satisfies them",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registry()
			if err != nil {
				return err
			}
			env := envFactory(reg)()

			table := ui.NewTable(fmt.Sprintf("Goals (%d)", reg.Len()), "goal", "holds now")
			for _, name := range reg.Names() {
				ok, _ := env.CheckGoal([]string{name})
				table.AddRow(name, a.styles.Status(ok, "yes", "no"))
			}
			fmt.Fprint(cmd.OutOrStdout(), table.View(a.styles))
			return nil
		},
	}
}

func newTranslateCmd(a *app) *cobra.Command {
	var useLLM bool
	cmd := &cobra.Command{
		Use:   "translate [text]",
		Short: "Show how free-form text maps onto an action",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context()
			defer cancel()

			tr := a.translator(nil)
			if useLLM {
				client, err := a.client(ctx)
				if err != nil {
					return err
				}
				tr = a.translator(client)
			}

			t := tr.TranslateDetailed(ctx, joinArgs(args))
			out := cmd.OutOrStdout()
			if !t.OK() {
				fmt.Fprintf(out, "%s %q\n", a.styles.Error.Render("no action for"), t.Input)
				return nil
			}
			fmt.Fprintf(out, "%s  %s\n", a.styles.Bold.Render(t.Action.String()),
				a.styles.Muted.Render(fmt.Sprintf("(%s, confidence %.2f)", t.Method, t.Confidence)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&useLLM, "llm", false, "Allow the LLM fallback for unmatched text")
	return cmd
}
