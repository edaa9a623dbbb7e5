// Package eval runs planning strategies over a suite of household tasks and
// summarizes how each one did.
package eval

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed tasks.yaml
var defaultSuite []byte

// Task is one instruction with the goals that define success.
type Task struct {
	ID          string   `yaml:"id"`
	Instruction string   `yaml:"instruction"`
	Goals       []string `yaml:"goals"`
	Difficulty  string   `yaml:"difficulty,omitempty"`
}

// Suite is a named list of tasks.
type Suite struct {
	Name  string `yaml:"name"`
	Tasks []Task `yaml:"tasks"`
}

// ParseSuite decodes a YAML suite and checks it.
func ParseSuite(data []byte) (*Suite, error) {
	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse suite: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadSuite reads a suite file. An empty path loads the built-in suite.
func LoadSuite(path string) (*Suite, error) {
	if path == "" {
		return DefaultSuite(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite: %w", err)
	}
	return ParseSuite(data)
}

// DefaultSuite returns the built-in household suite.
func DefaultSuite() *Suite {
	s, err := ParseSuite(defaultSuite)
	if err != nil {
		panic(fmt.Sprintf("embedded suite: %v", err))
	}
	return s
}

// Validate checks that every task has a unique id and an instruction.
func (s *Suite) Validate() error {
	if len(s.Tasks) == 0 {
		return fmt.Errorf("suite %q has no tasks", s.Name)
	}
	seen := make(map[string]bool, len(s.Tasks))
	for i, t := range s.Tasks {
		if t.ID == "" {
			return fmt.Errorf("task %d has no id", i)
		}
		if t.Instruction == "" {
			return fmt.Errorf("task %s has no instruction", t.ID)
		}
		if seen[t.ID] {
			return fmt.Errorf("duplicate task id %s", t.ID)
		}
		seen[t.ID] = true
	}
	return nil
}

// UnknownGoals lists goals referenced by tasks that are not in known, in
// first-seen order.
func (s *Suite) UnknownGoals(known []string) []string {
	have := make(map[string]bool, len(known))
	for _, k := range known {
		have[k] = true
	}
	var out []string
	reported := make(map[string]bool)
	for _, t := range s.Tasks {
		for _, g := range t.Goals {
			if !have[g] && !reported[g] {
				reported[g] = true
				out = append(out, g)
			}
		}
	}
	return out
}
