// Package world defines the symbolic home: rooms, objects, the agent, and the
// snapshot that captures all of them at an instant.
package world

import (
	"fmt"
	"sort"
)

// Room is a named area of the home.
type Room string

const (
	Kitchen    Room = "kitchen"
	Bedroom    Room = "bedroom"
	Bathroom   Room = "bathroom"
	LivingRoom Room = "living_room"
)

// Rooms lists every room in a stable order.
var Rooms = []Room{Kitchen, Bedroom, Bathroom, LivingRoom}

// IsRoom reports whether name is one of the known rooms.
func IsRoom(name string) bool {
	for _, r := range Rooms {
		if string(r) == name {
			return true
		}
	}
	return false
}

// Location is either a Room or Held.
type Location string

// Held is the location of the object the agent is carrying.
const Held Location = "held"

// In returns the Location of a room.
func In(r Room) Location { return Location(r) }

// Room returns the room for a location; ok is false for Held.
func (l Location) Room() (Room, bool) {
	if l == Held {
		return "", false
	}
	return Room(l), true
}

// Common object states. The state set is open; these are the tags the
// transition rules and predicates rely on.
const (
	StateOn     = "on"
	StateOff    = "off"
	StateUsed   = "used"
	StateFilled = "filled"
	StateEmpty  = "empty"
)

// Objects lists every interactable object name in the default home.
var Objects = []string{
	"cup", "plate", "soap", "towel", "faucet", "light", "coffee_maker",
	"remote", "book", "phone", "keys", "toothbrush", "lamp", "blanket", "pillow",
}

// Object is a single interactable item.
type Object struct {
	Location Location `json:"location" yaml:"location"`
	State    string   `json:"state" yaml:"state"`
}

// Agent is the single actor in the home. Holding is empty when the agent's
// hands are free.
type Agent struct {
	Location Room   `json:"location" yaml:"location"`
	Holding  string `json:"holding,omitempty" yaml:"holding,omitempty"`
}

// HandsEmpty reports whether the agent holds nothing.
func (a Agent) HandsEmpty() bool { return a.Holding == "" }

// Snapshot is the full world state. Snapshots are values owned by whoever
// holds them; use Clone before sharing.
type Snapshot struct {
	Agent   Agent             `json:"agent" yaml:"agent"`
	Objects map[string]Object `json:"objects" yaml:"objects"`
}

// Clone returns a deep copy sharing no mutable structure with s.
func (s *Snapshot) Clone() *Snapshot {
	out := &Snapshot{
		Agent:   s.Agent,
		Objects: make(map[string]Object, len(s.Objects)),
	}
	for name, obj := range s.Objects {
		out.Objects[name] = obj
	}
	return out
}

// Object returns the named object.
func (s *Snapshot) Object(name string) (Object, bool) {
	obj, ok := s.Objects[name]
	return obj, ok
}

// SetState replaces the state tag of an existing object.
func (s *Snapshot) SetState(name, state string) {
	if obj, ok := s.Objects[name]; ok {
		obj.State = state
		s.Objects[name] = obj
	}
}

// SetLocation moves an existing object.
func (s *Snapshot) SetLocation(name string, loc Location) {
	if obj, ok := s.Objects[name]; ok {
		obj.Location = loc
		s.Objects[name] = obj
	}
}

// StateOf returns the state of an object, or "" if it does not exist.
func (s *Snapshot) StateOf(name string) string {
	return s.Objects[name].State
}

// LocationOf returns the location of an object, or "" if it does not exist.
func (s *Snapshot) LocationOf(name string) Location {
	return s.Objects[name].Location
}

// CoLocated reports whether the named object sits in the agent's room.
// A held object is not co-located.
func (s *Snapshot) CoLocated(name string) bool {
	obj, ok := s.Objects[name]
	return ok && obj.Location == In(s.Agent.Location)
}

// ObjectsIn returns the names of objects in a room, sorted.
func (s *Snapshot) ObjectsIn(r Room) []string {
	var names []string
	for name, obj := range s.Objects {
		if obj.Location == In(r) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Names returns every object name, sorted.
func (s *Snapshot) Names() []string {
	names := make([]string, 0, len(s.Objects))
	for name := range s.Objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the structural invariants: every object has a location,
// Held is used by exactly the held object, and the agent is in a known room.
func (s *Snapshot) Validate() error {
	if !IsRoom(string(s.Agent.Location)) {
		return fmt.Errorf("agent in unknown room %q", s.Agent.Location)
	}
	held := 0
	for name, obj := range s.Objects {
		switch {
		case obj.Location == "":
			return fmt.Errorf("object %s has no location", name)
		case obj.Location == Held:
			held++
			if s.Agent.Holding != name {
				return fmt.Errorf("object %s is held but agent holds %q", name, s.Agent.Holding)
			}
		case !IsRoom(string(obj.Location)):
			return fmt.Errorf("object %s in unknown room %q", name, obj.Location)
		}
	}
	if s.Agent.Holding != "" {
		obj, ok := s.Objects[s.Agent.Holding]
		if !ok || obj.Location != Held {
			return fmt.Errorf("agent holds %s but it is not marked held", s.Agent.Holding)
		}
	}
	if held > 1 {
		return fmt.Errorf("%d objects held", held)
	}
	return nil
}

// DefaultSnapshot returns the starting home: the agent stands in the kitchen
// with empty hands.
func DefaultSnapshot() *Snapshot {
	return &Snapshot{
		Agent: Agent{Location: Kitchen},
		Objects: map[string]Object{
			"cup":          {Location: In(Kitchen), State: StateEmpty},
			"plate":        {Location: In(Kitchen), State: "clean"},
			"coffee_maker": {Location: In(Kitchen), State: StateOff},
			"keys":         {Location: In(Kitchen), State: "unused"},

			"soap":       {Location: In(Bathroom), State: "unused"},
			"towel":      {Location: In(Bathroom), State: "dry"},
			"faucet":     {Location: In(Bathroom), State: StateOff},
			"toothbrush": {Location: In(Bathroom), State: "unused"},

			"lamp":    {Location: In(Bedroom), State: StateOff},
			"blanket": {Location: In(Bedroom), State: "folded"},
			"pillow":  {Location: In(Bedroom), State: "on_bed"},

			"remote": {Location: In(LivingRoom), State: StateOff},
			"book":   {Location: In(LivingRoom), State: "closed"},
			"light":  {Location: In(LivingRoom), State: StateOff},
			"phone":  {Location: In(LivingRoom), State: StateOff},
		},
	}
}
