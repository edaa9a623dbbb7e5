package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// =============================================================================
// UNIFIED CONFIG TESTS
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Name != "homeplan" {
		t.Errorf("expected Name=homeplan, got %s", cfg.Name)
	}
	if cfg.Planner.Strategy != "repair_first" {
		t.Errorf("expected Strategy=repair_first, got %s", cfg.Planner.Strategy)
	}
	if cfg.Planner.MaxRepairs != 3 {
		t.Errorf("expected MaxRepairs=3, got %d", cfg.Planner.MaxRepairs)
	}
	if cfg.GetMinDelay() != 3*time.Second {
		t.Errorf("expected MinDelay=3s, got %v", cfg.GetMinDelay())
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	// Ensure no env vars interfere
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("HOMEPLAN_SCRIPT", "")
	t.Setenv("HOMEPLAN_MAX_REPAIRS", "")

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.LLM.APIKey = "test-key"
	cfg.Planner.MaxRepairs = 5
	cfg.Eval.Strategies = []string{"repair_first"}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.LLM.APIKey != "test-key" {
		t.Errorf("expected APIKey=test-key, got %s", loaded.LLM.APIKey)
	}
	if loaded.Planner.MaxRepairs != 5 {
		t.Errorf("expected MaxRepairs=5, got %d", loaded.Planner.MaxRepairs)
	}
	if len(loaded.Eval.Strategies) != 1 {
		t.Errorf("expected one strategy, got %v", loaded.Eval.Strategies)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("HOMEPLAN_MAX_REPAIRS", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Planner.MaxRepairs != DefaultConfig().Planner.MaxRepairs {
		t.Errorf("expected defaults, got %+v", cfg.Planner)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	t.Setenv("HOMEPLAN_MODEL", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("planner:\n  strategy: contextual\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Planner.Strategy != "contextual" {
		t.Errorf("expected contextual, got %s", cfg.Planner.Strategy)
	}
	if cfg.LLM.Model != DefaultConfig().LLM.Model {
		t.Errorf("expected default model, got %s", cfg.LLM.Model)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("planner: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestDurationFallbacks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.Timeout = "soon"
	cfg.LLM.MinDelay = "-1s"
	cfg.Eval.TaskTimeout = ""

	if got := cfg.GetLLMTimeout(); got != 60*time.Second {
		t.Errorf("GetLLMTimeout() = %v", got)
	}
	if got := cfg.GetMinDelay(); got != 3*time.Second {
		t.Errorf("GetMinDelay() = %v", got)
	}
	if got := cfg.GetTaskTimeout(); got != 5*time.Minute {
		t.Errorf("GetTaskTimeout() = %v", got)
	}

	cfg.LLM.MinDelay = "0s"
	if got := cfg.GetMinDelay(); got != 0 {
		t.Errorf("GetMinDelay() = %v, want 0", got)
	}
}

func TestSessionConcurrency(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.SessionConcurrency(4); got != 4 {
		t.Errorf("gemini SessionConcurrency(4) = %d, want 4", got)
	}
	if got := cfg.SessionConcurrency(0); got != 1 {
		t.Errorf("SessionConcurrency(0) = %d, want 1", got)
	}

	cfg.LLM.Provider = "scripted"
	if got := cfg.SessionConcurrency(4); got != 1 {
		t.Errorf("scripted SessionConcurrency(4) = %d, want 1", got)
	}
}

func TestLoggingCategories(t *testing.T) {
	lc := LoggingConfig{}
	if lc.IsCategoryEnabled("planner") {
		t.Error("categories must be off when debug_mode is false")
	}
	lc.DebugMode = true
	if !lc.IsCategoryEnabled("planner") {
		t.Error("all categories on by default in debug mode")
	}
	lc.Categories = map[string]bool{"planner": false}
	if lc.IsCategoryEnabled("planner") {
		t.Error("explicitly disabled category reported enabled")
	}
	if !lc.IsCategoryEnabled("store") {
		t.Error("unlisted category should be enabled")
	}
	if s := lc.Settings(); !s.DebugMode || s.Categories["planner"] {
		t.Errorf("Settings() = %+v", s)
	}
}
