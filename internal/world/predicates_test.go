package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryNames(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, 17, r.Len())

	names := r.Names()
	assert.IsIncreasing(t, names)
	assert.Contains(t, names, "hands_washed")
	assert.Contains(t, names, "agent_in_living_room")
}

func TestDefaultPredicates(t *testing.T) {
	r := DefaultRegistry()

	eval := func(t *testing.T, name string, s *Snapshot) bool {
		t.Helper()
		p, ok := r.Lookup(name)
		require.True(t, ok, "predicate %s not registered", name)
		return p(s)
	}

	s := DefaultSnapshot()
	assert.True(t, eval(t, "lights_off", s))
	assert.True(t, eval(t, "hands_empty", s))
	assert.True(t, eval(t, "cup_in_kitchen", s))
	assert.True(t, eval(t, "agent_in_kitchen", s))
	assert.False(t, eval(t, "hands_washed", s))
	assert.False(t, eval(t, "coffee_made", s))

	s.SetState("soap", StateUsed)
	assert.False(t, eval(t, "hands_washed", s), "faucet still off")
	s.SetState("faucet", StateOn)
	assert.True(t, eval(t, "hands_washed", s))

	s.SetState("coffee_maker", StateUsed)
	s.SetState("cup", StateFilled)
	assert.True(t, eval(t, "coffee_made", s))
	assert.True(t, eval(t, "cup_filled", s))

	s.SetLocation("phone", Held)
	s.Agent.Holding = "phone"
	assert.True(t, eval(t, "holding_phone", s))
	assert.False(t, eval(t, "hands_empty", s))
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Register("", func(*Snapshot) bool { return true }))
	assert.Error(t, r.Register("x", nil))
	require.NoError(t, r.Register("always", func(*Snapshot) bool { return true }))

	p, ok := r.Lookup("always")
	require.True(t, ok)
	assert.True(t, p(DefaultSnapshot()))

	_, ok = r.Lookup("never_registered")
	assert.False(t, ok)
}

func TestRegistryMerge(t *testing.T) {
	base := DefaultRegistry()
	extra := NewRegistry()
	require.NoError(t, extra.Register("book_open", stateIs("book", "open")))

	base.Merge(extra)
	base.Merge(base)
	base.Merge(nil)

	_, ok := base.Lookup("book_open")
	assert.True(t, ok)
	assert.Equal(t, 18, base.Len())
}
