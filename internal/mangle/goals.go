package mangle

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/google/mangle/ast"
	"github.com/google/mangle/parse"

	"homeplan/internal/logging"
	"homeplan/internal/world"
)

//go:embed goals.mg
var defaultGoalRules string

// DefaultGoalRules returns the embedded household goal rules.
func DefaultGoalRules() string { return defaultGoalRules }

const (
	goalPredicate = "goal"
	nothing       = "nothing"
)

// GoalRules evaluates goal(/name) rules against snapshots. Each evaluation
// builds a fresh engine, so evaluation is pure and safe for concurrent use.
type GoalRules struct {
	cfg   Config
	unit  parse.SourceUnit
	names []string
}

// NewGoalRules parses and checks a rule source.
func NewGoalRules(cfg Config, source string) (*GoalRules, error) {
	unit, err := ParseSchema(source)
	if err != nil {
		return nil, err
	}

	// analyze once up front so broken rules fail here, not per evaluation
	probe := NewEngine(cfg)
	if err := probe.LoadUnit(unit); err != nil {
		return nil, err
	}
	if _, ok := probe.predicateIndex[goalPredicate]; !ok {
		return nil, fmt.Errorf("rules must declare %s(Name)", goalPredicate)
	}

	g := &GoalRules{cfg: cfg, unit: unit, names: goalNames(unit)}
	logging.MangleDebug("loaded %d goal rules (%d goals)", len(unit.Clauses), len(g.names))
	return g, nil
}

// LoadGoalRules reads rules from path, or the embedded rules when path is empty.
func LoadGoalRules(cfg Config, path string) (*GoalRules, error) {
	if path == "" {
		return NewGoalRules(cfg, defaultGoalRules)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read goal rules %s: %w", path, err)
	}
	return NewGoalRules(cfg, string(data))
}

// goalNames collects the constant heads of goal rules.
func goalNames(unit parse.SourceUnit) []string {
	seen := make(map[string]bool)
	for _, clause := range unit.Clauses {
		if clause.Head.Predicate.Symbol != goalPredicate || len(clause.Head.Args) != 1 {
			continue
		}
		c, ok := clause.Head.Args[0].(ast.Constant)
		if !ok || c.Type != ast.NameType {
			continue
		}
		seen[strings.TrimPrefix(c.Symbol, "/")] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Names returns the goal names the rules can derive.
func (g *GoalRules) Names() []string {
	return append([]string(nil), g.names...)
}

// SnapshotFacts converts a snapshot into the rule input facts. Rules may
// declare only the predicates they use; Satisfied drops the rest.
func SnapshotFacts(s *world.Snapshot) []Fact {
	held := s.Agent.Holding
	if held == "" {
		held = nothing
	}
	facts := []Fact{
		{Predicate: "agent_at", Args: []interface{}{string(s.Agent.Location)}},
		{Predicate: "holding", Args: []interface{}{held}},
	}
	for _, name := range s.Names() {
		obj := s.Objects[name]
		facts = append(facts,
			Fact{Predicate: "object_at", Args: []interface{}{name, string(obj.Location)}},
			Fact{Predicate: "object_state", Args: []interface{}{name, obj.State}},
		)
	}
	return facts
}

// Satisfied returns every goal derivable from the snapshot.
func (g *GoalRules) Satisfied(s *world.Snapshot) (map[string]bool, error) {
	engine := NewEngine(g.cfg)
	if err := engine.LoadUnit(g.unit); err != nil {
		return nil, err
	}
	var facts []Fact
	for _, f := range SnapshotFacts(s) {
		if engine.Declared(f.Predicate) {
			facts = append(facts, f)
		}
	}
	if err := engine.AddFacts(facts); err != nil {
		return nil, fmt.Errorf("assert snapshot: %w", err)
	}
	// AddFacts only evaluates when it asserted something
	if !g.cfg.AutoEval || len(facts) == 0 {
		if err := engine.Evaluate(); err != nil {
			return nil, fmt.Errorf("evaluate goal rules: %w", err)
		}
	}

	derived, err := engine.GetFacts(goalPredicate)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(derived))
	for _, f := range derived {
		if name, ok := f.Args[0].(string); ok {
			out[strings.TrimPrefix(name, "/")] = true
		}
	}
	logging.MangleDebug("evaluated goal rules over %d facts: %d goals hold", engine.FactCount(), len(out))
	return out, nil
}

// Holds reports whether a single goal is derivable.
func (g *GoalRules) Holds(s *world.Snapshot, name string) (bool, error) {
	sat, err := g.Satisfied(s)
	if err != nil {
		return false, err
	}
	return sat[name], nil
}

// Predicate adapts one goal to a world.Predicate. Evaluation errors count as
// unsatisfied and are logged.
func (g *GoalRules) Predicate(name string) world.Predicate {
	return func(s *world.Snapshot) bool {
		ok, err := g.Holds(s, name)
		if err != nil {
			logging.MangleWarn("goal %s: %v", name, err)
			return false
		}
		return ok
	}
}

// Register adds rule-backed predicates to reg. Names already present are
// kept unless override is set; it returns the names it registered.
func (g *GoalRules) Register(reg *world.Registry, override bool) []string {
	var added []string
	for _, name := range g.names {
		if _, exists := reg.Lookup(name); exists && !override {
			continue
		}
		if err := reg.Register(name, g.Predicate(name)); err == nil {
			added = append(added, name)
		}
	}
	return added
}
