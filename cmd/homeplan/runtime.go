package main

import (
	"context"
	"fmt"

	"homeplan/internal/logging"
	"homeplan/internal/mangle"
	"homeplan/internal/perception"
	"homeplan/internal/planner"
	"homeplan/internal/sim"
	"homeplan/internal/store"
	"homeplan/internal/world"
)

// registry returns the builtin goals plus the rule-defined ones when mangle is
// enabled. Rule goals never replace a builtin of the same name.
func (a *app) registry() (*world.Registry, error) {
	reg := world.DefaultRegistry()
	if !a.cfg.Mangle.Enabled {
		return reg, nil
	}

	mcfg := mangle.DefaultConfig()
	if a.cfg.Mangle.FactLimit > 0 {
		mcfg.FactLimit = a.cfg.Mangle.FactLimit
	}
	rules, err := mangle.LoadGoalRules(mcfg, a.cfg.Mangle.RulesPath)
	if err != nil {
		return nil, err
	}
	added := rules.Register(reg, false)
	logging.WorldDebug("registered %d rule goals: %v", len(added), added)
	return reg, nil
}

// envFactory builds fresh default homes sharing reg.
func envFactory(reg *world.Registry) func() *sim.Environment {
	return func() *sim.Environment {
		return sim.New(sim.WithRegistry(reg))
	}
}

// client validates the LLM section and builds the configured client.
func (a *app) client(ctx context.Context) (perception.LLMClient, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	return perception.NewClientFromConfig(ctx, a.cfg)
}

func (a *app) translator(client perception.LLMClient) *perception.Translator {
	opts := []perception.TranslatorOption{perception.WithThreshold(a.cfg.Planner.FuzzyThreshold)}
	if a.cfg.Planner.LLMFallback && client != nil {
		opts = append(opts, perception.WithLLMFallback(client))
	}
	return perception.NewTranslator(opts...)
}

func (a *app) strategies(names []string, client perception.LLMClient) ([]planner.Strategy, error) {
	tr := a.translator(client)
	out := make([]planner.Strategy, 0, len(names))
	for _, name := range names {
		s, err := planner.NewStrategy(name, client, tr)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// journal opens the run journal, or returns nil when it is disabled.
func (a *app) journal(disabled bool) (*store.Journal, error) {
	if disabled || !a.cfg.Store.Enabled || a.cfg.Store.DatabasePath == "" {
		return nil, nil
	}
	j, err := store.Open(a.cfg.Store.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open run journal: %w", err)
	}
	return j, nil
}
