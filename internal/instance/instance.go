// Package instance holds one session's fully materialized event stream and
// its correlation index: the mapping from a triggering message's id to the
// ordered group of events causally attached to it.
package instance

import (
	"github.com/jmeyers/combatlog/internal/event"
)

// MessageGroup is a triggering message plus every later event that declared
// a correlation key equal to the message's id, in arrival order. The
// triggering message is always index 0.
type MessageGroup struct {
	Events []event.Event
}

// Message returns the group's triggering message.
func (g *MessageGroup) Message() *event.Message {
	return g.Events[0].(*event.Message)
}

// IsOnlyMessage reports whether no event ever correlated to the group's
// message: the message is a free-standing utterance.
func (g *MessageGroup) IsOnlyMessage() bool {
	return len(g.Events) == 1
}

// HasKind reports whether any event in the group has the given kind.
func (g *MessageGroup) HasKind(k event.Kind) bool {
	for _, e := range g.Events {
		if e.Kind() == k {
			return true
		}
	}
	return false
}

// OfKinds returns the group's events matching any of the given kinds, in
// group order.
func (g *MessageGroup) OfKinds(kinds ...event.Kind) []event.Event {
	var out []event.Event
	for _, e := range g.Events {
		for _, k := range kinds {
			if e.Kind() == k {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// Concat joins consecutive groups into one logical group. The first group's
// message becomes the merged group's trigger.
func Concat(groups []*MessageGroup) *MessageGroup {
	merged := &MessageGroup{}
	for _, g := range groups {
		merged.Events = append(merged.Events, g.Events...)
	}
	return merged
}

// Instance is the ordered event sequence for one session. The correlation
// index is built on first use and cached; the instance is read-only after
// construction.
type Instance struct {
	Events []event.Event

	groups []*MessageGroup
	byID   map[event.ID]*MessageGroup
	built  bool
}

// New stamps stream positions onto the events and wraps them in an Instance.
func New(events []event.Event) *Instance {
	for i, e := range events {
		e.SetPos(i)
	}
	return &Instance{Events: events}
}

// MessageGroups returns every group in triggering-message order.
func (in *Instance) MessageGroups() []*MessageGroup {
	in.build()
	return in.groups
}

// GroupByID returns the group owned by the message with the given id.
func (in *Instance) GroupByID(id event.ID) (*MessageGroup, bool) {
	in.build()
	g, ok := in.byID[id]
	return g, ok
}

// build runs the single correlation pass. A correlation that references a
// message id not yet seen is dropped: groups are never created retroactively,
// so truncated streams degrade to ungrouped events rather than errors.
func (in *Instance) build() {
	if in.built {
		return
	}
	in.byID = make(map[event.ID]*MessageGroup)
	for _, e := range in.Events {
		if m, ok := e.(*event.Message); ok {
			g := &MessageGroup{Events: []event.Event{m}}
			in.byID[m.MessageID] = g
			in.groups = append(in.groups, g)
			continue
		}
		id, ok := e.Correlation()
		if !ok {
			continue
		}
		if g, ok := in.byID[id]; ok {
			g.Events = append(g.Events, e)
		}
	}
	in.built = true
}

// Stats summarizes a session's stream for bookkeeping.
type Stats struct {
	Events         int
	Messages       int
	Commands       int
	AutomationRuns int
	StateUpdates   int
	Other          int
	Start          float64
	End            float64
}

// Stats computes per-kind counts and the stream's time bounds.
func (in *Instance) Stats() Stats {
	var s Stats
	s.Events = len(in.Events)
	for _, e := range in.Events {
		switch e.Kind() {
		case event.KindMessage:
			s.Messages++
		case event.KindCommand:
			s.Commands++
		case event.KindAutomationRun:
			s.AutomationRuns++
		case event.KindCombatStateUpdate:
			s.StateUpdates++
		default:
			s.Other++
		}
		if ts := e.Time(); ts != 0 {
			if s.Start == 0 || ts < s.Start {
				s.Start = ts
			}
			if ts > s.End {
				s.End = ts
			}
		}
	}
	return s
}
