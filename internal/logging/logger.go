// Package logging provides config-driven categorized logging for homeplan.
// Each category gets a named zap logger. Logging is controlled by DebugMode:
// when false every category is a no-op.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot       Category = "boot"       // Boot/initialization
	CategoryWorld      Category = "world"      // World model and goal registry
	CategorySim        Category = "sim"        // Environment transitions
	CategoryPlanner    Category = "planner"    // Strategy sessions
	CategoryRepair     Category = "repair"     // Speculative validation and repair
	CategoryPerception Category = "perception" // NL -> action translation
	CategoryAPI        Category = "api"        // LLM API calls
	CategoryEval       Category = "eval"       // Batch evaluation
	CategoryStore      Category = "store"      // Run journal
	CategoryMangle     Category = "mangle"     // Declarative goal rules
)

// Settings mirrors the relevant parts of config.LoggingConfig to avoid
// circular imports.
type Settings struct {
	DebugMode  bool
	Level      string // debug, info, warn, error
	Format     string // json, console
	File       string // empty = stderr
	Categories map[string]bool
}

// Logger wraps a sugared zap logger bound to one category.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex

	settings   Settings
	root       = zap.NewNop()
	settingsMu sync.RWMutex
)

// Configure installs the root logger. Call once at startup; calling again
// replaces the root and drops cached category loggers.
func Configure(s Settings) error {
	settingsMu.Lock()
	defer settingsMu.Unlock()

	settings = s
	resetLoggers()

	if !s.DebugMode {
		root = zap.NewNop()
		return nil
	}

	l, err := build(s)
	if err != nil {
		root = zap.NewNop()
		return err
	}
	root = l
	root.Named(string(CategoryBoot)).Sugar().Infof("logging initialized (level=%s format=%s)", levelName(s.Level), s.Format)
	return nil
}

// UseLogger installs an existing zap logger as the root with every category
// enabled. Tests use it with zaptest/observer cores.
func UseLogger(l *zap.Logger) {
	settingsMu.Lock()
	defer settingsMu.Unlock()
	settings = Settings{DebugMode: true, Level: "debug"}
	root = l
	resetLoggers()
}

// Root returns the root zap logger.
func Root() *zap.Logger {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return root
}

func build(s Settings) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if s.Format != "json" {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(s.Level))
	cfg.Sampling = nil

	if s.File != "" {
		if err := os.MkdirAll(filepath.Dir(s.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		cfg.OutputPaths = []string{s.File}
	} else {
		cfg.OutputPaths = []string{"stderr"}
	}

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func levelName(level string) string {
	return parseLevel(level).String()
}

func resetLoggers() {
	loggersMu.Lock()
	loggers = make(map[Category]*Logger)
	loggersMu.Unlock()
}

// IsDebugMode returns whether logging is enabled at all.
func IsDebugMode() bool {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return settings.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	settingsMu.RLock()
	defer settingsMu.RUnlock()

	if !settings.DebugMode {
		return false
	}
	if settings.Categories == nil {
		return true
	}
	enabled, exists := settings.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if the category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	base := Root()
	loggersMu.Lock()
	defer loggersMu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	l := &Logger{
		category: category,
		sugar:    base.Named(string(category)).Sugar(),
	}
	loggers[category] = l
	return l
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Debugf(format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Errorf(format, args...)
}

// With returns a logger carrying structured key-value context.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	if l.sugar == nil {
		return l
	}
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// Sync flushes the root logger.
func Sync() error {
	return Root().Sync()
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// These are no-ops if the category is disabled
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

// BootDebug logs debug to the boot category
func BootDebug(format string, args ...interface{}) {
	Get(CategoryBoot).Debug(format, args...)
}

// BootError logs error to the boot category
func BootError(format string, args ...interface{}) {
	Get(CategoryBoot).Error(format, args...)
}

// World logs to the world category
func World(format string, args ...interface{}) {
	Get(CategoryWorld).Info(format, args...)
}

// WorldDebug logs debug to the world category
func WorldDebug(format string, args ...interface{}) {
	Get(CategoryWorld).Debug(format, args...)
}

// SimDebug logs debug to the sim category
func SimDebug(format string, args ...interface{}) {
	Get(CategorySim).Debug(format, args...)
}

// Planner logs to the planner category
func Planner(format string, args ...interface{}) {
	Get(CategoryPlanner).Info(format, args...)
}

// PlannerDebug logs debug to the planner category
func PlannerDebug(format string, args ...interface{}) {
	Get(CategoryPlanner).Debug(format, args...)
}

// PlannerWarn logs warning to the planner category
func PlannerWarn(format string, args ...interface{}) {
	Get(CategoryPlanner).Warn(format, args...)
}

// Repair logs to the repair category
func Repair(format string, args ...interface{}) {
	Get(CategoryRepair).Info(format, args...)
}

// RepairDebug logs debug to the repair category
func RepairDebug(format string, args ...interface{}) {
	Get(CategoryRepair).Debug(format, args...)
}

// RepairWarn logs warning to the repair category
func RepairWarn(format string, args ...interface{}) {
	Get(CategoryRepair).Warn(format, args...)
}

// Perception logs to the perception category
func Perception(format string, args ...interface{}) {
	Get(CategoryPerception).Info(format, args...)
}

// PerceptionDebug logs debug to the perception category
func PerceptionDebug(format string, args ...interface{}) {
	Get(CategoryPerception).Debug(format, args...)
}

// API logs to the api category
func API(format string, args ...interface{}) {
	Get(CategoryAPI).Info(format, args...)
}

// APIDebug logs debug to the api category
func APIDebug(format string, args ...interface{}) {
	Get(CategoryAPI).Debug(format, args...)
}

// APIError logs error to the api category
func APIError(format string, args ...interface{}) {
	Get(CategoryAPI).Error(format, args...)
}

// Eval logs to the eval category
func Eval(format string, args ...interface{}) {
	Get(CategoryEval).Info(format, args...)
}

// EvalDebug logs debug to the eval category
func EvalDebug(format string, args ...interface{}) {
	Get(CategoryEval).Debug(format, args...)
}

// EvalError logs error to the eval category
func EvalError(format string, args ...interface{}) {
	Get(CategoryEval).Error(format, args...)
}

// Store logs to the store category
func Store(format string, args ...interface{}) {
	Get(CategoryStore).Info(format, args...)
}

// StoreDebug logs debug to the store category
func StoreDebug(format string, args ...interface{}) {
	Get(CategoryStore).Debug(format, args...)
}

// MangleDebug logs debug to the mangle category
func MangleDebug(format string, args ...interface{}) {
	Get(CategoryMangle).Debug(format, args...)
}

// MangleWarn logs warning to the mangle category
func MangleWarn(format string, args ...interface{}) {
	Get(CategoryMangle).Warn(format, args...)
}

// =============================================================================
// TIMING HELPERS - For performance logging
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
