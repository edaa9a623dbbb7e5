package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	UseLogger(zap.New(core))
	t.Cleanup(func() { _ = Configure(Settings{}) })
	return logs
}

func TestDisabledByDefault(t *testing.T) {
	if err := Configure(Settings{}); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	if IsDebugMode() {
		t.Error("Expected debug mode to be disabled")
	}
	if IsCategoryEnabled(CategoryPlanner) {
		t.Error("Expected planner category to be disabled")
	}
	// no-op loggers must be safe to call
	Get(CategoryPlanner).Info("dropped %d", 1)
	Get(CategoryPlanner).With("k", "v").Error("dropped")
}

func TestCategoryLoggersAreNamed(t *testing.T) {
	logs := observe(t)

	Planner("session %s started", "abc")
	RepairWarn("repair %d rejected", 2)
	Get(CategorySim).With("step", 3).Debug("executed")

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].LoggerName != "planner" || entries[0].Message != "session abc started" {
		t.Errorf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].Level != zapcore.WarnLevel || entries[1].LoggerName != "repair" {
		t.Errorf("unexpected second entry: %+v", entries[1])
	}
	if got := entries[2].ContextMap()["step"]; got != int64(3) {
		t.Errorf("step field = %v, want 3", got)
	}
}

func TestCategoryFilter(t *testing.T) {
	if err := Configure(Settings{DebugMode: true, Level: "error", Categories: map[string]bool{"eval": false}}); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	t.Cleanup(func() { _ = Configure(Settings{}) })

	if IsCategoryEnabled(CategoryEval) {
		t.Error("eval should be disabled")
	}
	if !IsCategoryEnabled(CategoryStore) {
		t.Error("unlisted categories should default to enabled")
	}
}

func TestConfigureFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "homeplan.log")
	if err := Configure(Settings{DebugMode: true, Level: "debug", Format: "json", File: path}); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	Eval("batch of %d tasks", 4)
	_ = Sync()
	_ = Configure(Settings{})

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "batch of 4 tasks") {
		t.Errorf("log file missing message:\n%s", data)
	}
}

func TestTimer(t *testing.T) {
	logs := observe(t)

	timer := StartTimer(CategoryPlanner, "solve")
	if d := timer.Stop(); d < 0 {
		t.Errorf("negative duration %v", d)
	}
	StartTimer(CategoryPlanner, "slow").StopWithThreshold(-time.Second)

	if logs.FilterMessageSnippet("solve completed").Len() != 1 {
		t.Error("expected completion log")
	}
	if logs.FilterLevelExact(zapcore.WarnLevel).Len() != 1 {
		t.Error("expected threshold warning")
	}
}
