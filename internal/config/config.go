package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all homeplan configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Planning strategy defaults
	Planner PlannerConfig `yaml:"planner"`

	// Text generation backend
	LLM LLMConfig `yaml:"llm"`

	// Declarative goal rules
	Mangle MangleConfig `yaml:"mangle"`

	// Batch evaluation
	Eval EvalConfig `yaml:"eval"`

	// Run journal
	Store StoreConfig `yaml:"store"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// PlannerConfig configures planning sessions.
type PlannerConfig struct {
	Strategy   string `yaml:"strategy"` // repair_first, contextual, huang
	MaxRepairs int    `yaml:"max_repairs"`
	// Ask the LLM to map steps the translator cannot match.
	LLMFallback    bool    `yaml:"llm_fallback"`
	FuzzyThreshold float64 `yaml:"fuzzy_threshold"`
}

// LLMConfig configures the text generator used as Proposer and Repairer.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // gemini, scripted
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	Timeout     string  `yaml:"timeout"`
	// Minimum spacing between consecutive requests.
	MinDelay string `yaml:"min_delay"`
	// Path to a YAML script of canned replies for the scripted provider.
	ScriptPath string `yaml:"script_path"`
}

// MangleConfig configures the goal rule engine.
type MangleConfig struct {
	Enabled   bool   `yaml:"enabled"`
	RulesPath string `yaml:"rules_path"` // empty = embedded rules
	FactLimit int    `yaml:"fact_limit"`
}

// EvalConfig configures batch runs.
type EvalConfig struct {
	Concurrency int      `yaml:"concurrency"`
	Strategies  []string `yaml:"strategies"`
	TaskTimeout string   `yaml:"task_timeout"`
}

// StoreConfig configures the run journal.
type StoreConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DatabasePath string `yaml:"database_path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "homeplan",
		Version: "0.3.0",

		Planner: PlannerConfig{
			Strategy:       "repair_first",
			MaxRepairs:     3,
			LLMFallback:    true,
			FuzzyThreshold: 0.6,
		},

		LLM: LLMConfig{
			Provider:    "gemini",
			Model:       "gemini-2.5-flash",
			Temperature: 0.2,
			MaxTokens:   300,
			Timeout:     "60s",
			MinDelay:    "3s",
		},

		Mangle: MangleConfig{
			Enabled:   true,
			FactLimit: 10000,
		},

		Eval: EvalConfig{
			Concurrency: 2,
			Strategies:  []string{"huang", "contextual", "repair_first"},
			TaskTimeout: "5m",
		},

		Store: StoreConfig{
			Enabled:      true,
			DatabasePath: ".homeplan/runs.db",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		if c.LLM.Provider == "" {
			c.LLM.Provider = "gemini"
		}
	}
	if model := os.Getenv("HOMEPLAN_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if script := os.Getenv("HOMEPLAN_SCRIPT"); script != "" {
		c.LLM.Provider = "scripted"
		c.LLM.ScriptPath = script
	}
	if path := os.Getenv("HOMEPLAN_DB"); path != "" {
		c.Store.DatabasePath = path
	}
	if raw := os.Getenv("HOMEPLAN_MAX_REPAIRS"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			c.Planner.MaxRepairs = n
		}
	}
}

// GetLLMTimeout returns the LLM timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// GetMinDelay returns the minimum spacing between LLM calls.
func (c *Config) GetMinDelay() time.Duration {
	d, err := time.ParseDuration(c.LLM.MinDelay)
	if err != nil || d < 0 {
		return 3 * time.Second
	}
	return d
}

// GetTaskTimeout returns the per-task timeout for batch runs.
func (c *Config) GetTaskTimeout() time.Duration {
	d, err := time.ParseDuration(c.Eval.TaskTimeout)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}

// SessionConcurrency bounds the batch sessions in flight. Scripted replies
// are consumed in prompt order, so scripted batches run one session at a time.
func (c *Config) SessionConcurrency(requested int) int {
	if c.LLM.Provider == "scripted" {
		return 1
	}
	if requested < 1 {
		return 1
	}
	return requested
}

// ValidProviders lists all supported text generation providers.
var ValidProviders = []string{"gemini", "scripted"}

// ValidStrategies lists the planning strategies.
var ValidStrategies = []string{"repair_first", "contextual", "huang"}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !contains(ValidProviders, c.LLM.Provider) {
		return fmt.Errorf("invalid LLM provider: %s (valid: %v)", c.LLM.Provider, ValidProviders)
	}
	switch c.LLM.Provider {
	case "gemini":
		if c.LLM.APIKey == "" {
			return fmt.Errorf("LLM API key not configured (set GEMINI_API_KEY)")
		}
	case "scripted":
		if c.LLM.ScriptPath == "" {
			return fmt.Errorf("scripted provider requires llm.script_path (or HOMEPLAN_SCRIPT)")
		}
	}

	if !contains(ValidStrategies, c.Planner.Strategy) {
		return fmt.Errorf("invalid strategy: %s (valid: %v)", c.Planner.Strategy, ValidStrategies)
	}
	for _, s := range c.Eval.Strategies {
		if !contains(ValidStrategies, s) {
			return fmt.Errorf("invalid eval strategy: %s (valid: %v)", s, ValidStrategies)
		}
	}
	if c.Planner.MaxRepairs < 0 {
		return fmt.Errorf("max_repairs must be >= 0, got %d", c.Planner.MaxRepairs)
	}
	if c.Planner.FuzzyThreshold < 0 || c.Planner.FuzzyThreshold > 1 {
		return fmt.Errorf("fuzzy_threshold must be within [0,1], got %v", c.Planner.FuzzyThreshold)
	}
	if c.Eval.Concurrency < 1 {
		return fmt.Errorf("eval concurrency must be >= 1, got %d", c.Eval.Concurrency)
	}

	return nil
}
