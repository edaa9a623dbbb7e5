package planner

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"homeplan/internal/actions"
	"homeplan/internal/perception"
	"homeplan/internal/sim"
	"homeplan/internal/world"
)

type RepairFirstSuite struct {
	suite.Suite
	ctx        context.Context
	translator *perception.Translator
}

func TestRepairFirstSuite(t *testing.T) {
	suite.Run(t, new(RepairFirstSuite))
}

func (s *RepairFirstSuite) SetupTest() {
	s.ctx = context.Background()
	s.translator = perception.NewTranslator()
}

func (s *RepairFirstSuite) strategy(plan string, rep *fakeRepairer) (*RepairFirst, *fakeProposer) {
	p := &fakeProposer{plan: plan}
	return NewRepairFirst(p, s.translator, rep), p
}

func seq(texts ...string) []actions.Action {
	out := make([]actions.Action, len(texts))
	for i, t := range texts {
		out[i] = actions.MustParse(t)
	}
	return out
}

func (s *RepairFirstSuite) TestValidPlanNeedsNoRepair() {
	rep := &fakeRepairer{}
	strat, prop := s.strategy("1. goto bathroom\n2. toggle faucet\n3. use soap", rep)
	env := sim.New()

	res := strat.Solve(s.ctx, "wash hands", env, []string{"hands_washed"}, 3)

	s.True(res.Success)
	s.True(res.GoalAchieved)
	s.True(res.Validated)
	s.Equal(1, res.ExternalCalls)
	s.Equal(1, res.ValidationAttempts)
	s.Empty(res.RepairHistory)
	s.Equal(-1, res.FailingStep)
	s.Equal(3, res.StepsExecuted)
	s.Equal(3, res.TotalSteps)
	s.Len(res.Trace, 3)
	s.Zero(rep.calls())
	s.Equal(MethodRepairFirst, res.Method)
	s.NotEmpty(res.SessionID)

	s.Require().Len(prop.contexts, 1)
	s.Contains(prop.contexts[0], "- Location: kitchen")
	s.Contains(prop.contexts[0], "All Objects:")

	s.Equal([]Phase{PhaseDraft, PhaseValidating, PhaseCommitted, PhaseExecuting, PhaseDone}, res.Phases)
}

// Holding keys, "pickup cup" is rejected; "drop keys" goes in ahead of it.
func (s *RepairFirstSuite) TestDropBeforePickupIsInserted() {
	rep := &fakeRepairer{replies: []string{"drop keys"}}
	strat, _ := s.strategy("pickup cup", rep)
	env := sim.New(sim.WithSnapshot(holdingKeys()))

	res := strat.Solve(s.ctx, "pick up the cup", env, []string{"holding_cup"}, 3)

	s.Require().Len(res.RepairHistory, 1)
	rec := res.RepairHistory[0]
	s.True(rec.Accepted)
	s.True(rec.Inserted)
	s.Equal(0, rec.Attempt)
	s.Equal(0, rec.StepIndex)
	s.Equal(actions.MustParse("pickup cup"), rec.Original)
	s.Equal("hand not empty", rec.Error)
	s.Require().NotNil(rec.Response)
	s.Equal("drop keys", *rec.Response)
	s.Require().NotNil(rec.Replacement)
	s.Equal(actions.MustParse("drop keys"), *rec.Replacement)

	s.Equal(seq("pickup cup"), res.OriginalSteps)
	s.Equal(seq("drop keys", "pickup cup"), res.WorkingSteps)
	s.Len(res.WorkingSteps, len(res.OriginalSteps)+1)
	s.True(res.Validated)
	s.Equal(2, res.ValidationAttempts)
	s.Equal(2, res.ExternalCalls)
	s.True(res.Success)

	s.Equal("cup", env.Holding())
	s.Equal(world.In(world.Kitchen), env.Snapshot().LocationOf("keys"))

	s.Equal([]Phase{
		PhaseDraft, PhaseValidating, PhaseRepairRequested, PhaseValidating,
		PhaseCommitted, PhaseExecuting, PhaseDone,
	}, res.Phases)
}

func (s *RepairFirstSuite) TestReplacementOverwritesStep() {
	// "use cup" does not make "use soap" valid, so it replaces it.
	rep := &fakeRepairer{replies: []string{"use cup"}}
	strat, _ := s.strategy("use soap", rep)

	res := strat.Solve(s.ctx, "use something", sim.New(), nil, 3)

	s.Require().Len(res.RepairHistory, 1)
	s.False(res.RepairHistory[0].Inserted)
	s.Equal(seq("use cup"), res.WorkingSteps)
	s.True(res.Validated)
	s.True(res.Success)
}

func (s *RepairFirstSuite) TestRepairRequestCarriesPrefixAndTrialState() {
	rep := &fakeRepairer{replies: []string{"drop soap"}}
	strat, _ := s.strategy("goto bathroom\npickup soap\npickup towel", rep)
	env := sim.New()

	res := strat.Solve(s.ctx, "tidy up", env, nil, 3)

	s.Require().Equal(1, rep.calls())
	req := rep.requests[0]
	s.Equal("tidy up", req.Instruction)
	s.Equal(actions.MustParse("pickup towel"), req.Failed)
	s.Equal("hand not empty", req.Error)
	s.Equal(seq("goto bathroom", "pickup soap"), req.Prefix)
	s.Require().NotNil(req.State)
	s.Equal(world.Bathroom, req.State.Agent.Location)
	s.Equal("soap", req.State.Agent.Holding)

	s.Equal(seq("goto bathroom", "pickup soap", "drop soap", "pickup towel"), res.WorkingSteps)
	s.True(res.Success)
	s.Equal("towel", env.Holding())
}

func (s *RepairFirstSuite) TestBudgetExhaustedStillExecutes() {
	rep := &fakeRepairer{replies: []string{"use soap"}}
	strat, _ := s.strategy("use soap", rep)
	env := sim.New()

	res := strat.Solve(s.ctx, "wash hands", env, []string{"hands_washed"}, 2)

	s.Equal(3, res.ExternalCalls)
	s.Equal(3, res.ValidationAttempts)
	s.False(res.Validated)
	s.Require().Len(res.RepairHistory, 3)
	s.True(res.RepairHistory[0].Accepted)
	s.True(res.RepairHistory[1].Accepted)
	last := res.RepairHistory[2]
	s.False(last.Accepted)
	s.Equal(2, last.Attempt)
	s.Nil(last.Response)
	s.Nil(last.Replacement)

	// executed regardless of the verdict
	s.Require().Len(res.Trace, 1)
	s.False(res.Trace[0].Success)
	s.Equal(0, res.FailingStep)
	s.Equal(sim.CategoryWrongLocation, res.FailingCategory)
	s.Equal("Step 0 failed: soap not in kitchen (it's in bathroom)", res.FailureReason)
	s.False(res.Success)
	s.False(res.GoalAchieved)
	s.Empty(res.FailedGoals)
	s.Contains(res.Phases, PhaseAbandoned)
	s.Contains(res.Phases, PhaseExecuting)
}

func (s *RepairFirstSuite) TestZeroRepairsMakesNoRepairCall() {
	rep := &fakeRepairer{replies: []string{"goto bathroom"}}
	strat, _ := s.strategy("use soap", rep)

	res := strat.Solve(s.ctx, "wash hands", sim.New(), nil, 0)

	s.Zero(rep.calls())
	s.Equal(1, res.ExternalCalls)
	s.Equal(1, res.ValidationAttempts)
	s.Require().Len(res.RepairHistory, 1)
	s.False(res.RepairHistory[0].Accepted)
}

func (s *RepairFirstSuite) TestNegativeRepairsTreatedAsZero() {
	rep := &fakeRepairer{replies: []string{"goto bathroom"}}
	strat, _ := s.strategy("use soap", rep)

	res := strat.Solve(s.ctx, "wash hands", sim.New(), nil, -4)
	s.Zero(rep.calls())
	s.Equal(1, res.ValidationAttempts)
}

func (s *RepairFirstSuite) TestTransportErrorIsRecordedAndRetried() {
	rep := &fakeRepairer{errs: []error{errTransport}, replies: []string{"", "goto bathroom"}}
	strat, _ := s.strategy("use soap", rep)

	res := strat.Solve(s.ctx, "wash hands", sim.New(), nil, 3)

	s.Require().Len(res.RepairHistory, 2)
	first := res.RepairHistory[0]
	s.False(first.Accepted)
	s.Require().NotNil(first.Response)
	s.Equal(errTransport.Error(), *first.Response)
	s.True(res.RepairHistory[1].Accepted)
	s.Equal(1, res.RepairHistory[1].Attempt)

	s.Equal(3, res.ExternalCalls)
	s.Equal(3, res.ValidationAttempts)
	s.Equal(seq("goto bathroom", "use soap"), res.WorkingSteps)
	s.True(res.Success)
}

func (s *RepairFirstSuite) TestUntranslatableRepairIsRejected() {
	rep := &fakeRepairer{replies: []string{"xyzzy plugh"}}
	strat, _ := s.strategy("use soap", rep)

	res := strat.Solve(s.ctx, "wash hands", sim.New(), nil, 1)

	s.Require().Len(res.RepairHistory, 2)
	rec := res.RepairHistory[0]
	s.False(rec.Accepted)
	s.Require().NotNil(rec.Response)
	s.Equal("xyzzy plugh", *rec.Response)
	s.Nil(rec.Replacement)
	s.Equal(2, res.ExternalCalls)
	s.Equal(seq("use soap"), res.WorkingSteps)
}

func (s *RepairFirstSuite) TestRepairReplyWithNumbering() {
	rep := &fakeRepairer{replies: []string{"1. goto bathroom\n2. use soap"}}
	strat, _ := s.strategy("use soap", rep)

	res := strat.Solve(s.ctx, "wash hands", sim.New(), nil, 3)
	s.Equal(seq("goto bathroom", "use soap"), res.WorkingSteps)
	s.True(res.Validated)
}

func (s *RepairFirstSuite) TestProposalFailure() {
	p := &fakeProposer{err: fmt.Errorf("quota exceeded")}
	strat := NewRepairFirst(p, s.translator, &fakeRepairer{})

	res := strat.Solve(s.ctx, "wash hands", sim.New(), []string{"hands_washed"}, 3)

	s.False(res.Success)
	s.Contains(res.FailureReason, "quota exceeded")
	s.Equal(1, res.ExternalCalls)
	s.Zero(res.ValidationAttempts)
	s.Empty(res.Trace)
	s.Equal(-1, res.FailingStep)
}

func (s *RepairFirstSuite) TestTranslationFailuresAreRecorded() {
	strat, _ := s.strategy("goto bathroom\nxyzzy plugh\nuse soap", &fakeRepairer{})

	res := strat.Solve(s.ctx, "wash hands", sim.New(), nil, 3)

	s.Equal([]string{"goto bathroom", "xyzzy plugh", "use soap"}, res.ParsedSteps)
	s.Equal([]TranslationFailure{{StepIndex: 1, Text: "xyzzy plugh"}}, res.TranslationFailures)
	s.Equal(seq("goto bathroom", "use soap"), res.OriginalSteps)
	s.True(res.Success)
}

func (s *RepairFirstSuite) TestEmptyPlanSucceedsWithoutGoals() {
	strat, _ := s.strategy("", &fakeRepairer{})
	res := strat.Solve(s.ctx, "do nothing", sim.New(), nil, 3)
	s.True(res.Success)
	s.Zero(res.TotalSteps)

	strat, _ = s.strategy("", &fakeRepairer{})
	res = strat.Solve(s.ctx, "do nothing", sim.New(), []string{"lamp_on"}, 3)
	s.False(res.Success)
	s.Equal([]string{"lamp_on"}, res.FailedGoals)
}

func (s *RepairFirstSuite) TestSolveResetsTheEnvironment() {
	env := sim.New()
	env.Execute(actions.MustParse("goto bedroom"))

	strat, prop := s.strategy("pickup cup", &fakeRepairer{})
	res := strat.Solve(s.ctx, "grab cup", env, []string{"holding_cup"}, 3)

	s.True(res.Success)
	s.Contains(prop.contexts[0], "- Location: kitchen")
}

func (s *RepairFirstSuite) TestValidationLeavesLiveStateAlone() {
	// A plan that can never validate still only touches the live world
	// through the final execution.
	rep := &fakeRepairer{replies: []string{"xyzzy plugh"}}
	strat, _ := s.strategy("goto bathroom\npickup soap\npickup towel", rep)
	env := sim.New()

	res := strat.Solve(s.ctx, "tidy", env, nil, 2)

	s.False(res.Validated)
	s.Equal(2, res.FailingStep)
	s.Equal(sim.CategoryHandsFull, res.FailingCategory)
	s.Equal(world.Bathroom, env.AgentLocation())
	s.Equal("soap", env.Holding())
}

func TestRepairBound(t *testing.T) {
	ctx := context.Background()
	tr := perception.NewTranslator()

	for n := 0; n <= 4; n++ {
		rep := &fakeRepairer{replies: []string{"use soap"}}
		strat := NewRepairFirst(&fakeProposer{plan: "use soap"}, tr, rep)
		res := strat.Solve(ctx, "wash hands", sim.New(), nil, n)

		assert.LessOrEqual(t, res.ExternalCalls, 1+n, "n=%d", n)
		assert.LessOrEqual(t, res.ValidationAttempts, n+1, "n=%d", n)
		assert.Equal(t, n, rep.calls(), "n=%d", n)
		assert.Len(t, res.RepairHistory, n+1, "n=%d", n)
	}
}

func TestRepairFirst_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep := &fakeRepairer{replies: []string{"goto bathroom"}}
	strat := NewRepairFirst(&fakeProposer{plan: "use soap"}, perception.NewTranslator(), rep)
	res := strat.Solve(ctx, "wash hands", sim.New(), nil, 3)

	assert.Zero(t, res.ValidationAttempts)
	assert.Zero(t, rep.calls())
	assert.False(t, res.Validated)
}

func TestSplitSteps(t *testing.T) {
	raw := "\n1. goto bathroom\n2) toggle faucet\n- use soap\n* x\n\n• drop cup\n   3.   pickup towel  \nok\n"
	want := []string{"goto bathroom", "toggle faucet", "use soap", "drop cup", "pickup towel"}
	if diff := cmp.Diff(want, SplitSteps(raw)); diff != "" {
		t.Errorf("SplitSteps mismatch (-want +got):\n%s", diff)
	}
	if got := SplitSteps("   "); len(got) != 0 {
		t.Errorf("SplitSteps(blank) = %v, want empty", got)
	}
}

func TestResultRepairCount(t *testing.T) {
	r := &Result{RepairHistory: []RepairRecord{{Accepted: true}, {}, {Accepted: true}}}
	require.Equal(t, 2, r.RepairCount())
}
