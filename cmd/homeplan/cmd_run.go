package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"homeplan/internal/eval"
	"homeplan/internal/logging"
	"homeplan/internal/planner"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		strategy   string
		maxRepairs int
		goals      []string
		asJSON     bool
		noJournal  bool
	)

	cmd := &cobra.Command{
		Use:   "run [instruction]",
		Short: "Plan and execute a single instruction",
		Long: `Plans the instruction with the chosen strategy, executes it in a fresh
default home, and checks the given goals afterwards.

Example:
  homeplan run "wash your hands" --goal hands_washed
  homeplan run "make coffee" --strategy huang --goal coffee_made`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context()
			defer cancel()

			if strategy == "" {
				strategy = a.cfg.Planner.Strategy
			}
			if !cmd.Flags().Changed("max-repairs") {
				maxRepairs = a.cfg.Planner.MaxRepairs
			}

			reg, err := a.registry()
			if err != nil {
				return err
			}
			client, err := a.client(ctx)
			if err != nil {
				return err
			}
			strats, err := a.strategies([]string{strategy}, client)
			if err != nil {
				return err
			}

			instruction := joinArgs(args)
			res := strats[0].Solve(ctx, instruction, envFactory(reg)(), goals, maxRepairs)

			j, err := a.journal(noJournal)
			if err != nil {
				return err
			}
			if j != nil {
				defer j.Close()
				if err := j.Record(ctx, "", "adhoc", res); err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), a.styles.Warning.Render("warning: "+err.Error()))
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			fmt.Fprint(out, renderResult(a.styles, res))
			return nil
		},
	}

	cmd.Flags().StringVarP(&strategy, "strategy", "s", "", "Planning strategy (repair_first, contextual, huang)")
	cmd.Flags().IntVarP(&maxRepairs, "max-repairs", "n", 3, "Repair budget for repair_first")
	cmd.Flags().StringSliceVarP(&goals, "goal", "g", nil, "Goal predicate to check (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full session result as JSON")
	cmd.Flags().BoolVar(&noJournal, "no-journal", false, "Do not record the run")
	return cmd
}

func newBatchCmd(a *app) *cobra.Command {
	var (
		suitePath   string
		strategies  []string
		concurrency int
		maxRepairs  int
		noJournal   bool
		compare     []string
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Evaluate strategies over a task suite",
		Long: `Runs every task of the suite under every strategy, each in its own fresh
home, and prints per-strategy success rates and call counts.

Example:
  homeplan batch --strategies huang,repair_first
  homeplan batch --suite my_tasks.yaml --compare repair_first,huang`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context()
			defer cancel()

			if len(strategies) == 0 {
				strategies = a.cfg.Eval.Strategies
			}
			if !cmd.Flags().Changed("concurrency") {
				concurrency = a.cfg.Eval.Concurrency
			}
			if bounded := a.cfg.SessionConcurrency(concurrency); bounded != concurrency {
				logging.Eval("concurrency %d lowered to %d for provider %s", concurrency, bounded, a.cfg.LLM.Provider)
				concurrency = bounded
			}
			if !cmd.Flags().Changed("max-repairs") {
				maxRepairs = a.cfg.Planner.MaxRepairs
			}

			suite, err := eval.LoadSuite(suitePath)
			if err != nil {
				return err
			}
			reg, err := a.registry()
			if err != nil {
				return err
			}
			if unknown := suite.UnknownGoals(reg.Names()); len(unknown) > 0 {
				return fmt.Errorf("suite %s references unknown goals: %v", suite.Name, unknown)
			}
			client, err := a.client(ctx)
			if err != nil {
				return err
			}
			strats, err := a.strategies(strategies, client)
			if err != nil {
				return err
			}

			runner := &eval.Runner{
				Strategies:  strats,
				MaxRepairs:  maxRepairs,
				Concurrency: concurrency,
				TaskTimeout: a.cfg.GetTaskTimeout(),
				NewEnv:      envFactory(reg),
			}
			j, err := a.journal(noJournal)
			if err != nil {
				return err
			}
			if j != nil {
				defer j.Close()
				runner.Recorder = j
			}

			report, err := runner.Run(ctx, suite)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprint(out, renderReport(a.styles, report))
			if len(compare) == 2 {
				winner, err := planner.MethodName(compare[0])
				if err != nil {
					return err
				}
				loser, err := planner.MethodName(compare[1])
				if err != nil {
					return err
				}
				fmt.Fprint(out, renderDivergences(a.styles, report.Compare(winner, loser)))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&suitePath, "suite", "", "Task suite YAML (default: built-in household suite)")
	cmd.Flags().StringSliceVar(&strategies, "strategies", nil, "Strategies to evaluate (default: eval.strategies)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 2, "Sessions in flight at once")
	cmd.Flags().IntVarP(&maxRepairs, "max-repairs", "n", 3, "Repair budget for repair_first")
	cmd.Flags().BoolVar(&noJournal, "no-journal", false, "Do not record runs")
	cmd.Flags().StringSliceVar(&compare, "compare", nil, "Two strategies to diff: WINNER,LOSER")
	return cmd
}
