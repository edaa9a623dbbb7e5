// Package diff computes line diffs between plans using the sergi/go-diff
// library, one action per line.
package diff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"homeplan/internal/actions"
)

// LineType represents the type of diff line
type LineType int

const (
	LineContext LineType = iota // Unchanged step
	LineAdded                   // Step the repair introduced
	LineRemoved                 // Step the repair replaced
)

// Line is one step of a plan diff.
type Line struct {
	Content string
	Type    LineType
}

// Prefix is the unified-diff marker for the line type.
func (t LineType) Prefix() string {
	switch t {
	case LineAdded:
		return "+"
	case LineRemoved:
		return "-"
	default:
		return " "
	}
}

// Engine diffs plans.
type Engine struct {
	dmp *diffmatchpatch.DiffMatchPatch
}

// NewEngine creates a diff engine. Plans are short, so the timeout is off.
func NewEngine() *Engine {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	return &Engine{dmp: dmp}
}

// DefaultEngine is a shared engine for general use.
var DefaultEngine = NewEngine()

// Plans diffs two action sequences step by step.
func (e *Engine) Plans(before, after []actions.Action) []Line {
	return e.Lines(actions.Strings(before), actions.Strings(after))
}

// Lines diffs two line lists.
func (e *Engine) Lines(before, after []string) []Line {
	a, b, lines := e.dmp.DiffLinesToChars(joinLines(before), joinLines(after))
	diffs := e.dmp.DiffCharsToLines(e.dmp.DiffMain(a, b, false), lines)

	var out []Line
	for _, d := range diffs {
		t := LineContext
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			t = LineAdded
		case diffmatchpatch.DiffDelete:
			t = LineRemoved
		}
		for _, text := range strings.SplitAfter(d.Text, "\n") {
			if text == "" {
				continue
			}
			out = append(out, Line{Content: strings.TrimSuffix(text, "\n"), Type: t})
		}
	}
	return out
}

// Changed reports whether any line was added or removed.
func Changed(lines []Line) bool {
	for _, l := range lines {
		if l.Type != LineContext {
			return true
		}
	}
	return false
}

// Format renders lines with unified-diff markers.
func Format(lines []Line) string {
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(l.Type.Prefix())
		sb.WriteString(" ")
		sb.WriteString(l.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}

// every line ends in "\n" so the last step diffs like the others
func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
