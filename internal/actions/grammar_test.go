package actions

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValid(t *testing.T) {
	tests := []struct {
		in   string
		want Action
	}{
		{"goto kitchen", Action{Goto, "kitchen"}},
		{"pickup cup", Action{Pickup, "cup"}},
		{"drop plate", Action{Drop, "plate"}},
		{"toggle faucet", Action{Toggle, "faucet"}},
		{"use soap", Action{Use, "soap"}},
		{"goto living room", Action{Goto, "living_room"}},
		{"  USE   Coffee Maker ", Action{Use, "coffee_maker"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFailures(t *testing.T) {
	tests := []struct {
		in      string
		reason  Reason
		message string
	}{
		{"", ReasonEmpty, "Empty action string"},
		{"   ", ReasonEmpty, "Empty action string"},
		{"goto", ReasonMalformed, "Malformed action 'goto'"},
		{"fly away", ReasonUnknownVerb, "Unknown action 'fly'. Valid actions: drop, goto, pickup, toggle, use"},
		{"goto mars", ReasonInvalidTarget, "Invalid target 'mars' for 'goto'. Valid rooms:"},
		{"pickup dragon", ReasonInvalidTarget, "Invalid target 'dragon' for 'pickup'. Valid objects:"},
		{"pickup kitchen", ReasonInvalidTarget, "Invalid target 'kitchen'"},
		{"goto cup", ReasonInvalidTarget, "Invalid target 'cup'"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := Parse(tt.in)
			require.Error(t, err)

			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.reason, pe.Reason)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestActionString(t *testing.T) {
	a := MustParse("goto living room")
	assert.Equal(t, "goto living_room", a.String())

	again, err := Parse(a.String())
	require.NoError(t, err)
	assert.Equal(t, a, again)
}

func TestTargetsFor(t *testing.T) {
	assert.Equal(t, []string{"kitchen", "bedroom", "bathroom", "living_room"}, TargetsFor(Goto))
	assert.Len(t, TargetsFor(Use), 15)
	assert.Nil(t, TargetsFor("fly"))

	// callers cannot mutate the table
	ts := TargetsFor(Goto)
	ts[0] = "garage"
	assert.True(t, AcceptsTarget(Goto, "kitchen"))
	assert.False(t, AcceptsTarget(Goto, "garage"))
}

func TestMustParsePanics(t *testing.T) {
	assert.Panics(t, func() { MustParse("dance wildly") })
}

func TestHelp(t *testing.T) {
	h := Help()
	for _, v := range Verbs() {
		assert.True(t, strings.Contains(h, string(v)+" <"), "help missing %s", v)
	}
	assert.Contains(t, h, ", ...")
}

func TestStrings(t *testing.T) {
	seq := []Action{MustParse("goto bathroom"), MustParse("use soap")}
	assert.Equal(t, []string{"goto bathroom", "use soap"}, Strings(seq))
	assert.True(t, IsValid("toggle light"))
	assert.False(t, IsValid("toggle"))
}
