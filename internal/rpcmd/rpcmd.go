// Package rpcmd segments a session into per-author (chat, commands, chat)
// tuples: the utterances that likely motivated an author's commands and the
// chat that followed them. Each author gets an independent buffer that
// alternates between collecting chat and collecting commands; buffers flush
// when the author's turn comes up again and at end of stream.
package rpcmd

import (
	"strings"

	"github.com/jmeyers/combatlog/internal/event"
	"github.com/jmeyers/combatlog/internal/instance"
	"github.com/jmeyers/combatlog/internal/turn"
)

// Tuple is one flushed author buffer: chat before the first command, the
// commands themselves, and chat after.
type Tuple struct {
	Before   []event.Event `json:"before"`
	Commands []event.Event `json:"commands"`
	After    []event.Event `json:"after"`
}

// Options selects the segmentation variant.
type Options struct {
	// IncludeAutomation also attributes automation runs and state updates to
	// the author whose message triggered them, recording the preceding state
	// snapshot alongside each command-side event, and ignores one-word
	// messages entirely.
	IncludeAutomation bool
}

// buffer is one author's accumulator. Created on the author's first
// reference within a pass, destroyed on flush. The buffer is in
// command-collecting mode after a command arrives and switches back to
// utterance-collecting on the author's next chat message; chat collected
// before the mode first flips lands in before, the rest in after.
type buffer struct {
	collectingCommands      bool
	before, commands, after []event.Event
}

func (b *buffer) dirty() bool {
	return len(b.before) > 0 || len(b.commands) > 0 || len(b.after) > 0
}

func (b *buffer) utter(e event.Event) {
	b.collectingCommands = false
	if len(b.commands) == 0 {
		b.before = append(b.before, e)
	} else {
		b.after = append(b.after, e)
	}
}

func (b *buffer) command(events ...event.Event) {
	b.collectingCommands = true
	b.commands = append(b.commands, events...)
}

func (b *buffer) tuple() Tuple {
	return Tuple{Before: b.before, Commands: b.commands, After: b.after}
}

// Extract runs the segmentation over the whole session. Tuples missing
// either a chat side or a command side are dropped after the pass; emission
// order is buffer flush order, so the filter runs post-hoc.
func Extract(inst *instance.Instance, opts Options) []Tuple {
	var out []Tuple
	var prevState *event.CombatStateUpdate

	buffers := make(map[event.UserID]*buffer)
	var order []event.UserID

	get := func(id event.UserID) *buffer {
		b, ok := buffers[id]
		if !ok {
			b = &buffer{}
			buffers[id] = b
			order = append(order, id)
		}
		return b
	}
	flush := func(id event.UserID) {
		if b, ok := buffers[id]; ok && b.dirty() {
			out = append(out, b.tuple())
		}
		delete(buffers, id)
	}

	// Message ids that invoked commands; messages carrying them are command
	// invocations, not chat.
	commandIDs := make(map[event.ID]bool)
	for _, e := range inst.Events {
		if c, ok := e.(*event.Command); ok {
			commandIDs[c.MessageID] = true
		}
	}

	for _, e := range inst.Events {
		switch ev := e.(type) {
		case *event.CombatStateUpdate:
			changed := turn.Changed(stateOf(prevState), &ev.Data)
			prev := prevState
			prevState = ev

			if changed {
				// Restart every controller of the new turn-holder on chat.
				for _, id := range turn.Controllers(&ev.Data) {
					flush(id)
					get(id)
				}
			}

			if opts.IncludeAutomation {
				if author, ok := correlatedAuthor(inst, ev); ok {
					record(get(author), prev, ev)
				}
			}

		case *event.Command:
			if opts.IncludeAutomation {
				record(get(ev.AuthorID), prevState, ev)
			} else {
				get(ev.AuthorID).command(ev)
			}

		case *event.AutomationRun:
			if opts.IncludeAutomation {
				if author, ok := correlatedAuthor(inst, ev); ok {
					record(get(author), prevState, ev)
				}
			}

		case *event.Message:
			if opts.IncludeAutomation && len(strings.Fields(ev.Content)) < 2 {
				continue
			}
			if commandIDs[ev.MessageID] || event.IsCommandInvocation(ev.Content) {
				continue
			}
			get(ev.AuthorID).utter(ev)
		}
	}

	// End of stream: flush whatever is left, in buffer creation order.
	for _, id := range order {
		flush(id)
	}

	kept := out[:0]
	for _, t := range out {
		if len(t.Commands) > 0 && len(t.Before)+len(t.After) > 0 {
			kept = append(kept, t)
		}
	}
	return kept
}

// record appends a command-side event, preceded by the last seen state
// snapshot when one exists.
func record(b *buffer, prev *event.CombatStateUpdate, e event.Event) {
	if prev != nil {
		b.command(prev)
	}
	b.command(e)
}

// correlatedAuthor resolves an event to the author of the message that
// triggered it.
func correlatedAuthor(inst *instance.Instance, e event.Event) (event.UserID, bool) {
	id, ok := e.Correlation()
	if !ok {
		return "", false
	}
	g, ok := inst.GroupByID(id)
	if !ok {
		return "", false
	}
	return g.Message().AuthorID, true
}

func stateOf(u *event.CombatStateUpdate) *event.CombatState {
	if u == nil {
		return nil
	}
	return &u.Data
}
