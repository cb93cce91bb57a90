package instance

import (
	"testing"

	"github.com/jmeyers/combatlog/internal/event"
)

func msg(id event.ID, author event.UserID, ts float64, content string) *event.Message {
	return &event.Message{
		Meta:      event.Meta{Timestamp: ts, AuthorID: author},
		MessageID: id,
		Content:   content,
	}
}

func cmd(id event.ID, author event.UserID, ts float64) *event.Command {
	return &event.Command{
		Meta:      event.Meta{Timestamp: ts, AuthorID: author},
		MessageID: id,
		Content:   "!a longsword",
	}
}

func run(id event.ID, ts float64) *event.AutomationRun {
	return &event.AutomationRun{
		Meta:          event.Meta{Timestamp: ts},
		InteractionID: id,
	}
}

func TestCorrelation_GroupsInArrivalOrder(t *testing.T) {
	m := msg(1, "u1", 10, "attack the goblin now please")
	c := cmd(1, "u1", 11)
	r := run(1, 12)
	in := New([]event.Event{m, c, r})

	g, ok := in.GroupByID(1)
	if !ok {
		t.Fatal("expected a group for message 1")
	}
	if len(g.Events) != 3 {
		t.Fatalf("expected 3 events in group, got %d", len(g.Events))
	}
	if g.Events[0] != event.Event(m) {
		t.Error("triggering message must be index 0")
	}
	for i := 1; i < len(g.Events); i++ {
		if g.Events[i].Pos() <= g.Events[0].Pos() {
			t.Error("correlated events must come strictly after the trigger")
		}
	}
	if g.IsOnlyMessage() {
		t.Error("group with correlated events is not only-message")
	}
}

func TestCorrelation_DanglingReferenceDropped(t *testing.T) {
	// The run references message 99, which is never seen.
	in := New([]event.Event{
		msg(1, "u1", 10, "let us strike while we can"),
		run(99, 11),
	})

	if _, ok := in.GroupByID(99); ok {
		t.Error("a correlation with no prior message must not create a group")
	}
	g, _ := in.GroupByID(1)
	if !g.IsOnlyMessage() {
		t.Error("unrelated group must stay only-message")
	}
	// The dangling event is still reachable by stream iteration.
	if len(in.Events) != 2 {
		t.Errorf("expected 2 events in stream, got %d", len(in.Events))
	}
}

func TestCorrelation_LateMessageDoesNotAdoptEarlierEvents(t *testing.T) {
	// Correlation arrives before its owning message: never grouped
	// retroactively.
	in := New([]event.Event{
		run(5, 10),
		msg(5, "u1", 11, "the mighty blow lands true"),
	})
	g, ok := in.GroupByID(5)
	if !ok {
		t.Fatal("expected group for message 5")
	}
	if !g.IsOnlyMessage() {
		t.Error("events arriving before their message must not join its group")
	}
}

func TestMessageGroups_StreamOrder(t *testing.T) {
	in := New([]event.Event{
		msg(3, "u1", 10, "three"),
		msg(1, "u2", 11, "one"),
		msg(2, "u1", 12, "two"),
	})
	groups := in.MessageGroups()
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}
	want := []event.ID{3, 1, 2}
	for i, g := range groups {
		if g.Message().MessageID != want[i] {
			t.Errorf("group %d: expected message %d, got %d", i, want[i], g.Message().MessageID)
		}
	}
}

func TestPositionsStamped(t *testing.T) {
	events := []event.Event{msg(1, "u1", 1, "a"), cmd(1, "u1", 2), run(1, 3)}
	New(events)
	for i, e := range events {
		if e.Pos() != i {
			t.Errorf("event %d: expected position %d, got %d", i, i, e.Pos())
		}
	}
}

func TestGroupHelpers(t *testing.T) {
	m := msg(1, "u1", 10, "hold the line")
	c := cmd(1, "u1", 11)
	in := New([]event.Event{m, c})
	g, _ := in.GroupByID(1)

	if !g.HasKind(event.KindCommand) {
		t.Error("group should contain a command")
	}
	if g.HasKind(event.KindAutomationRun) {
		t.Error("group should not contain an automation run")
	}
	only := g.OfKinds(event.KindCommand)
	if len(only) != 1 || only[0] != event.Event(c) {
		t.Errorf("OfKinds: expected [command], got %v", only)
	}
}

func TestConcat(t *testing.T) {
	in := New([]event.Event{
		msg(1, "u1", 10, "first"),
		cmd(1, "u1", 11),
		msg(2, "u1", 12, "second"),
		cmd(2, "u1", 13),
	})
	groups := in.MessageGroups()
	merged := Concat(groups)
	if len(merged.Events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(merged.Events))
	}
	if merged.Message().MessageID != 1 {
		t.Errorf("merged trigger: expected message 1, got %d", merged.Message().MessageID)
	}
}

func TestStats(t *testing.T) {
	in := New([]event.Event{
		msg(1, "u1", 10, "a word"),
		cmd(1, "u1", 12),
		run(1, 14),
		&event.Unknown{EventType: "future_thing", Meta: event.Meta{Timestamp: 16}},
	})
	s := in.Stats()
	if s.Events != 4 || s.Messages != 1 || s.Commands != 1 || s.AutomationRuns != 1 || s.Other != 1 {
		t.Errorf("unexpected counts: %+v", s)
	}
	if s.Start != 10 || s.End != 16 {
		t.Errorf("time bounds: expected [10,16], got [%v,%v]", s.Start, s.End)
	}
}
