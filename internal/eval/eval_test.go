package eval

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"homeplan/internal/perception"
	"homeplan/internal/planner"
	"homeplan/internal/sim"
	"homeplan/internal/world"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

// stubStrategy succeeds on the instructions it knows.
type stubStrategy struct {
	name    string
	solves  map[string]bool
	delay   time.Duration
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Solve(ctx context.Context, instruction string, env *sim.Environment, goals []string, maxRepairs int) *planner.Result {
	n := s.active.Add(1)
	defer s.active.Add(-1)
	for {
		prev := s.maxSeen.Load()
		if n <= prev || s.maxSeen.CompareAndSwap(prev, n) {
			break
		}
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
		}
	}

	res := &planner.Result{SessionID: s.name + ":" + instruction, Method: s.name, Instruction: instruction, FailingStep: -1, ExternalCalls: 1}
	if s.solves[instruction] {
		res.Success = true
		res.GoalAchieved = true
	} else {
		res.FailingStep = 0
		res.FailingCategory = sim.CategoryWrongLocation
		res.FailureReason = "Step 0 failed: soap not in kitchen (it's in bathroom)"
	}
	return res
}

type memRecorder struct {
	mu   sync.Mutex
	runs map[string]string
	fail bool
}

func (m *memRecorder) Record(_ context.Context, batchID, task string, res *planner.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("disk full")
	}
	if m.runs == nil {
		m.runs = make(map[string]string)
	}
	m.runs[res.SessionID] = batchID + "/" + task
	return nil
}

func smallSuite() *Suite {
	return &Suite{Name: "small", Tasks: []Task{
		{ID: "wash", Instruction: "wash hands", Goals: []string{"hands_washed"}, Difficulty: "easy"},
		{ID: "lamp", Instruction: "lamp on", Goals: []string{"lamp_on"}, Difficulty: "easy"},
		{ID: "coffee", Instruction: "coffee", Goals: []string{"coffee_made"}, Difficulty: "medium"},
	}}
}

func TestRunner_OrderingSummaryAndRecording(t *testing.T) {
	good := &stubStrategy{name: "b_good", solves: map[string]bool{"wash hands": true, "lamp on": true, "coffee": true}}
	weak := &stubStrategy{name: "a_weak", solves: map[string]bool{"lamp on": true}}
	rec := &memRecorder{}

	r := &Runner{Strategies: []planner.Strategy{good, weak}, Concurrency: 4, Recorder: rec}
	report, err := r.Run(context.Background(), smallSuite())
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 6)
	assert.Equal(t, "wash", report.Outcomes[0].TaskID)
	assert.Equal(t, "b_good", report.Outcomes[0].Strategy)
	assert.Equal(t, "a_weak", report.Outcomes[1].Strategy)
	assert.Equal(t, "coffee", report.Outcomes[5].TaskID)
	assert.Equal(t, "medium", report.Outcomes[5].Difficulty)

	require.Len(t, report.Summaries, 2)
	assert.Equal(t, "a_weak", report.Summaries[0].Method)
	assert.Equal(t, 3, report.Summaries[0].Tasks)
	assert.Equal(t, 1, report.Summaries[0].Successes)
	assert.Equal(t, 2, report.Summaries[0].Failures[string(sim.CategoryWrongLocation)])
	assert.InDelta(t, 1.0, report.Summaries[1].SuccessRate(), 1e-9)
	assert.InDelta(t, 1.0, report.Summaries[1].MeanCalls, 1e-9)

	assert.Len(t, rec.runs, 6)
	assert.Equal(t, report.BatchID+"/wash", rec.runs["a_weak:wash hands"])
	assert.Zero(t, report.RecordErrors)

	div := report.Compare("b_good", "a_weak")
	require.Len(t, div, 2)
	assert.Equal(t, "wash", div[0].TaskID)
	assert.Equal(t, "coffee", div[1].TaskID)
	assert.Equal(t, sim.CategoryWrongLocation, div[0].Category)
	assert.Empty(t, report.Compare("a_weak", "b_good"))
}

func TestRunner_RespectsConcurrencyLimit(t *testing.T) {
	s := &stubStrategy{name: "slow", delay: 20 * time.Millisecond, solves: map[string]bool{}}
	suite := &Suite{Name: "many"}
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		suite.Tasks = append(suite.Tasks, Task{ID: id, Instruction: id})
	}

	r := &Runner{Strategies: []planner.Strategy{s}, Concurrency: 2}
	_, err := r.Run(context.Background(), suite)
	require.NoError(t, err)
	assert.LessOrEqual(t, s.maxSeen.Load(), int32(2))
}

func TestRunner_RecordErrorsAreCounted(t *testing.T) {
	s := &stubStrategy{name: "x", solves: map[string]bool{}}
	r := &Runner{Strategies: []planner.Strategy{s}, Recorder: &memRecorder{fail: true}}
	report, err := r.Run(context.Background(), smallSuite())
	require.NoError(t, err)
	assert.Equal(t, 3, report.RecordErrors)
}

func TestRunner_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &Runner{Strategies: []planner.Strategy{&stubStrategy{name: "x"}}, Concurrency: 1}
	_, err := r.Run(ctx, smallSuite())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunner_Rejects(t *testing.T) {
	r := &Runner{}
	_, err := r.Run(context.Background(), smallSuite())
	assert.Error(t, err)

	r.Strategies = []planner.Strategy{&stubStrategy{name: "x"}}
	_, err = r.Run(context.Background(), &Suite{Name: "empty"})
	assert.Error(t, err)
}

// Real strategies over a rule-scripted client: each session has its own
// environment, so parallel runs cannot see each other's moves.
func TestRunner_RealStrategiesIsolatedSessions(t *testing.T) {
	client := perception.NewScriptedClient(perception.Script{Rules: []perception.ScriptRule{
		{Contains: "FAILED STEP: toggle faucet", Reply: "goto bathroom"},
		{Contains: "FAILED STEP: toggle lamp", Reply: "goto bedroom"},
		{Contains: "Task: wash your hands", Reply: "toggle faucet\nuse soap"},
		{Contains: "Task: turn on the lamp", Reply: "toggle lamp"},
	}})
	tr := perception.NewTranslator()

	var strategies []planner.Strategy
	for _, name := range []string{"repair_first", "contextual"} {
		s, err := planner.NewStrategy(name, client, tr)
		require.NoError(t, err)
		strategies = append(strategies, s)
	}

	suite := &Suite{Name: "pair", Tasks: []Task{
		{ID: "wash", Instruction: "wash your hands", Goals: []string{"hands_washed"}},
		{ID: "lamp", Instruction: "turn on the lamp", Goals: []string{"lamp_on"}},
	}}
	r := &Runner{Strategies: strategies, MaxRepairs: 2, Concurrency: 4, TaskTimeout: time.Minute}
	report, err := r.Run(context.Background(), suite)
	require.NoError(t, err)

	for _, o := range report.Outcomes {
		switch o.Strategy {
		case planner.MethodRepairFirst:
			assert.True(t, o.Result.Success, "%s should be repaired", o.TaskID)
			assert.Equal(t, 2, o.Result.ExternalCalls)
		case planner.MethodContextual:
			assert.False(t, o.Result.Success, "%s has no repair", o.TaskID)
			assert.Equal(t, 1, o.Result.ExternalCalls)
		}
	}
	assert.Len(t, report.Compare(planner.MethodRepairFirst, planner.MethodContextual), 2)
}

func TestRunner_NewEnvIsUsed(t *testing.T) {
	client := perception.NewScriptedClient(perception.Script{Rules: []perception.ScriptRule{
		{Contains: "Task:", Reply: "pickup phone"},
	}})
	s, err := planner.NewStrategy("huang", client, perception.NewTranslator())
	require.NoError(t, err)

	start := world.DefaultSnapshot()
	start.Agent.Location = world.LivingRoom

	r := &Runner{
		Strategies: []planner.Strategy{s},
		NewEnv:     func() *sim.Environment { return sim.New(sim.WithSnapshot(start)) },
	}
	report, err := r.Run(context.Background(), &Suite{Name: "p", Tasks: []Task{
		{ID: "phone", Instruction: "grab the phone", Goals: []string{"holding_phone"}},
	}})
	require.NoError(t, err)
	assert.True(t, report.Outcomes[0].Result.Success)
}

func TestDefaultSuite(t *testing.T) {
	s := DefaultSuite()
	assert.Equal(t, "household", s.Name)
	assert.GreaterOrEqual(t, len(s.Tasks), 10)
	assert.Empty(t, s.UnknownGoals(world.DefaultRegistry().Names()))

	loaded, err := LoadSuite("")
	require.NoError(t, err)
	assert.Equal(t, s, loaded)
}

func TestLoadSuite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "suite.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`name: mine
tasks:
  - id: t1
    instruction: brush teeth
    goals: [teeth_brushed, flying]
`), 0o644))

	s, err := LoadSuite(path)
	require.NoError(t, err)
	require.Len(t, s.Tasks, 1)
	assert.Equal(t, []string{"teeth_brushed", "flying"}, s.Tasks[0].Goals)
	assert.Equal(t, []string{"flying"}, s.UnknownGoals(world.DefaultRegistry().Names()))

	_, err = LoadSuite(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestSuiteValidate(t *testing.T) {
	cases := map[string]string{
		"no tasks":       "name: x\n",
		"no id":          "tasks:\n  - instruction: a\n",
		"no instruction": "tasks:\n  - id: a\n",
		"duplicate":      "tasks:\n  - {id: a, instruction: x}\n  - {id: a, instruction: y}\n",
		"bad yaml":       "tasks: [",
	}
	for name, body := range cases {
		if _, err := ParseSuite([]byte(body)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestSummarize_GoalOnlyFailure(t *testing.T) {
	out := Summarize([]Outcome{
		{Strategy: "m", Result: &planner.Result{FailingStep: -1}},
		{Strategy: "m", Result: nil},
	})
	require.Len(t, out, 1)
	assert.Equal(t, 1, out[0].Tasks)
	assert.Equal(t, 1, out[0].Failures["goal_not_met"])
	assert.Zero(t, Summary{}.SuccessRate())
}
