package diff

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"homeplan/internal/actions"
)

func plan(steps ...string) []actions.Action {
	out := make([]actions.Action, len(steps))
	for i, s := range steps {
		out[i] = actions.MustParse(s)
	}
	return out
}

func TestPlansInsert(t *testing.T) {
	got := DefaultEngine.Plans(
		plan("toggle faucet", "use soap"),
		plan("goto bathroom", "toggle faucet", "use soap"),
	)
	want := []Line{
		{Content: "goto bathroom", Type: LineAdded},
		{Content: "toggle faucet", Type: LineContext},
		{Content: "use soap", Type: LineContext},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Plans() mismatch (-want +got):\n%s", diff)
	}
	if !Changed(got) {
		t.Error("expected a change")
	}
}

func TestPlansReplace(t *testing.T) {
	got := NewEngine().Plans(plan("goto kitchen", "use soap"), plan("goto kitchen", "use cup"))
	want := []Line{
		{Content: "goto kitchen", Type: LineContext},
		{Content: "use soap", Type: LineRemoved},
		{Content: "use cup", Type: LineAdded},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Plans() mismatch (-want +got):\n%s", diff)
	}
	if out := Format(got); out != "  goto kitchen\n- use soap\n+ use cup\n" {
		t.Errorf("Format() = %q", out)
	}
}

func TestPlansUnchangedAndEmpty(t *testing.T) {
	same := DefaultEngine.Plans(plan("goto bedroom"), plan("goto bedroom"))
	if Changed(same) {
		t.Errorf("identical plans reported as changed: %v", same)
	}
	if got := DefaultEngine.Lines(nil, nil); len(got) != 0 {
		t.Errorf("expected no lines, got %v", got)
	}
	added := DefaultEngine.Lines(nil, []string{"goto bedroom"})
	if len(added) != 1 || added[0].Type != LineAdded {
		t.Errorf("expected one added line, got %v", added)
	}
}
