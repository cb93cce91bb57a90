// Package narration extracts (state changes, narrating chat) tuples from a
// session. A single session-wide procedure cycles through three phases:
// searching for a complete (command, automation run, state update) unit,
// collecting further units from the same author, and collecting the chat that
// narrates the resulting state change.
package narration

import (
	"strings"

	"github.com/jmeyers/combatlog/internal/event"
	"github.com/jmeyers/combatlog/internal/instance"
	"github.com/jmeyers/combatlog/internal/turn"
)

// Tuple pairs recorded state-change events with the utterances that narrate
// them.
type Tuple struct {
	State      []event.Event `json:"state"`
	Utterances []event.Event `json:"utterances"`
}

type phase int

const (
	searching phase = iota
	recordingState
	recordingNarration
)

type segmenter struct {
	inst *instance.Instance

	lastState *event.CombatState
	dm        event.UserID
	author    event.UserID
	hasAuthor bool

	phase      phase
	state      []event.Event
	utterances []event.Event
	out        []Tuple
}

// Extract runs the segmentation over the whole session.
func Extract(inst *instance.Instance) []Tuple {
	s := &segmenter{inst: inst}
	for _, e := range inst.Events {
		s.onEvent(e)
	}
	s.flush()
	return s.out
}

func (s *segmenter) onEvent(e event.Event) {
	// One-word utterances carry no narration; they are invisible to every
	// phase.
	if m, ok := e.(*event.Message); ok && len(strings.Fields(m.Content)) < 2 {
		return
	}

	switch s.phase {
	case searching:
		s.onSearching(e)
	case recordingState:
		s.onRecordingState(e)
	case recordingNarration:
		s.onRecordingNarration(e)
	}

	// Track the DM and the last snapshot regardless of phase.
	if u, ok := e.(*event.CombatStateUpdate); ok {
		s.lastState = &u.Data
		s.dm = u.Data.DM
	}
}

func (s *segmenter) onSearching(e event.Event) {
	if run, ok := e.(*event.AutomationRun); ok && s.record(run) {
		s.author, s.hasAuthor = s.runAuthor(run)
		s.phase = recordingState
	}
}

func (s *segmenter) onRecordingState(e event.Event) {
	switch ev := e.(type) {
	case *event.AutomationRun:
		author, ok := s.runAuthor(ev)
		if !ok {
			return
		}
		if s.hasAuthor && author == s.author {
			s.record(ev)
			return
		}
		// Another author acted before this one narrated anything: the unit
		// in progress is incomplete. Start over with the new author.
		if s.eligible(ev) {
			s.clear()
			s.author, s.hasAuthor = author, true
			s.record(ev)
		}
	case *event.CombatStateUpdate:
		if turn.Changed(s.lastState, &ev.Data) {
			s.clear()
			s.phase = searching
		}
	case *event.Message:
		if s.isNarration(ev) {
			s.utterances = append(s.utterances, ev)
			s.phase = recordingNarration
		}
	}
}

func (s *segmenter) onRecordingNarration(e event.Event) {
	switch ev := e.(type) {
	case *event.AutomationRun:
		s.flush()
		if s.record(ev) {
			s.author, s.hasAuthor = s.runAuthor(ev)
			s.phase = recordingState
		}
	case *event.CombatStateUpdate:
		if turn.Changed(s.lastState, &ev.Data) {
			s.flush()
			s.phase = searching
		}
	case *event.Message:
		if s.isNarration(ev) {
			s.utterances = append(s.utterances, ev)
		}
	}
}

// eligible reports whether the run's message group contains all of command,
// automation run, and state update.
func (s *segmenter) eligible(run *event.AutomationRun) bool {
	g, ok := s.inst.GroupByID(run.InteractionID)
	if !ok {
		return false
	}
	return g.HasKind(event.KindCommand) &&
		g.HasKind(event.KindAutomationRun) &&
		g.HasKind(event.KindCombatStateUpdate)
}

// record appends an eligible run's (command, automation run, state update)
// events to the state buffer in group order. Ineligible runs record nothing.
func (s *segmenter) record(run *event.AutomationRun) bool {
	if !s.eligible(run) {
		return false
	}
	g, _ := s.inst.GroupByID(run.InteractionID)
	s.state = append(s.state, g.OfKinds(
		event.KindCommand,
		event.KindAutomationRun,
		event.KindCombatStateUpdate,
	)...)
	return true
}

// runAuthor resolves the author whose command caused the run. Runs triggered
// by button presses have no triggering message and no author.
func (s *segmenter) runAuthor(run *event.AutomationRun) (event.UserID, bool) {
	g, ok := s.inst.GroupByID(run.InteractionID)
	if !ok {
		return "", false
	}
	return g.Message().AuthorID, true
}

// isNarration reports whether a message is a free-standing utterance by the
// DM or the author in question.
func (s *segmenter) isNarration(m *event.Message) bool {
	g, ok := s.inst.GroupByID(m.MessageID)
	if !ok || !g.IsOnlyMessage() {
		return false
	}
	if m.AuthorID == "" {
		return false
	}
	if s.dm != "" && m.AuthorID == s.dm {
		return true
	}
	return s.hasAuthor && m.AuthorID == s.author
}

func (s *segmenter) clear() {
	s.state = nil
	s.utterances = nil
	s.author = ""
	s.hasAuthor = false
}

// flush emits the buffered pair when both sides are non-empty, then clears.
// A pair missing either side is a normal filtering outcome, not an error.
func (s *segmenter) flush() {
	if len(s.state) > 0 && len(s.utterances) > 0 {
		s.out = append(s.out, Tuple{State: s.state, Utterances: s.utterances})
	}
	s.clear()
}
