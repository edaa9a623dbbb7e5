package planner

import (
	"context"
	"errors"
	"sync"

	"homeplan/internal/world"
)

// fakeProposer returns a fixed plan and records what it was shown.
type fakeProposer struct {
	plan string
	err  error

	mu       sync.Mutex
	contexts []string
}

func (f *fakeProposer) Propose(_ context.Context, _ string, stateContext string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contexts = append(f.contexts, stateContext)
	return f.plan, f.err
}

// fakeRepairer answers with replies in order; an empty reply slot with a
// non-nil error in errs returns that error instead.
type fakeRepairer struct {
	replies []string
	errs    []error

	mu       sync.Mutex
	requests []RepairRequest
}

var errTransport = errors.New("connection reset")

func (f *fakeRepairer) Repair(_ context.Context, req RepairRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.requests)
	f.requests = append(f.requests, req)
	if n < len(f.errs) && f.errs[n] != nil {
		return "", f.errs[n]
	}
	if n < len(f.replies) {
		return f.replies[n], nil
	}
	if len(f.replies) == 0 {
		return "", errTransport
	}
	return f.replies[len(f.replies)-1], nil
}

func (f *fakeRepairer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// holdingKeys is the default home with the keys in hand.
func holdingKeys() *world.Snapshot {
	s := world.DefaultSnapshot()
	s.SetLocation("keys", world.Held)
	s.Agent.Holding = "keys"
	return s
}
