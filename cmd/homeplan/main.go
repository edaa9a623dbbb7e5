// Command homeplan plans and executes household instructions in a simulated
// home, validating plans against the simulator before acting.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"homeplan/cmd/homeplan/ui"
	"homeplan/internal/config"
	"homeplan/internal/logging"
)

const defaultConfigPath = ".homeplan/config.yaml"

// options are the global flags.
type options struct {
	configPath string
	verbose    bool
	timeout    time.Duration
	scriptPath string
	dbPath     string
}

// app carries state shared by every subcommand once the root has run.
type app struct {
	opts   options
	cfg    *config.Config
	styles ui.Styles
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "homeplan",
		Short: "Validate-then-repair household task planner",
		Long: `homeplan turns a natural language instruction into a plan of household
actions, checks every step against a simulated home before acting, and
asks the model to repair only the step that would fail.

Strategies:
  repair_first  validate on a scratch copy, repair failing steps, then execute
  contextual    one state-aware proposal, executed as written
  huang         one proposal without state, executed as written`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logging.Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.opts.configPath, "config", "c", defaultConfigPath, "Path to config file")
	flags.BoolVarP(&a.opts.verbose, "verbose", "v", false, "Enable debug logging for every category")
	flags.DurationVar(&a.opts.timeout, "timeout", 10*time.Minute, "Overall operation timeout")
	flags.StringVar(&a.opts.scriptPath, "script", "", "Use the scripted provider with this YAML script")
	flags.StringVar(&a.opts.dbPath, "db", "", "Run journal path (overrides store.database_path)")

	root.AddCommand(
		newRunCmd(a),
		newBatchCmd(a),
		newExecCmd(a),
		newStateCmd(a),
		newGoalsCmd(a),
		newTranslateCmd(a),
		newRunsCmd(a),
	)
	return root
}

// setup loads config, applies flag overrides, and configures logging.
func (a *app) setup() error {
	cfg, err := config.Load(a.opts.configPath)
	if err != nil {
		return err
	}
	if a.opts.scriptPath != "" {
		cfg.LLM.Provider = "scripted"
		cfg.LLM.ScriptPath = a.opts.scriptPath
		// replay at full speed
		cfg.LLM.MinDelay = "0s"
	}
	if a.opts.dbPath != "" {
		cfg.Store.DatabasePath = a.opts.dbPath
	}
	if a.opts.verbose {
		cfg.Logging.DebugMode = true
		cfg.Logging.Level = "debug"
	}

	if err := logging.Configure(cfg.Logging.Settings()); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logging.BootDebug("config loaded from %s (provider=%s strategy=%s)",
		a.opts.configPath, cfg.LLM.Provider, cfg.Planner.Strategy)

	a.cfg = cfg
	a.styles = ui.DefaultStyles()
	return nil
}

// context returns a context bounded by --timeout and cancelled on SIGINT or
// SIGTERM.
func (a *app) context() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, a.opts.timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
