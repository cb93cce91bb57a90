// Package event models the records found in combat log shards as a tagged
// union discriminated by the event_type field. Each variant carries only the
// fields its kind guarantees; everything else stays in the raw record, which
// is preserved verbatim so emitted tuples round-trip byte-for-byte.
package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind discriminates event variants.
type Kind string

const (
	KindMessage           Kind = "message"
	KindCommand           Kind = "command"
	KindAutomationRun     Kind = "automation_run"
	KindCombatStateUpdate Kind = "combat_state_update"
	KindAliasResolution   Kind = "alias_resolution"
	KindSnippetResolution Kind = "snippet_resolution"
	KindButtonPress       Kind = "button_press"
)

// ID is a message or interaction identifier. Shards encode these both as
// JSON numbers and as digit strings; both forms unmarshal to the same value.
type ID int64

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(bytes.TrimSpace(b), `"`)
	if len(b) == 0 || string(b) == "null" {
		*id = 0
		return nil
	}
	v, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("parse id: %w", err)
	}
	*id = ID(v)
	return nil
}

// UserID is an author or controller identifier, canonicalized to its decimal
// string form regardless of how the shard encoded it.
type UserID string

func (u *UserID) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(bytes.TrimSpace(b), `"`)
	if string(b) == "null" {
		*u = ""
		return nil
	}
	*u = UserID(b)
	return nil
}

// Event is one record in a session's stream.
type Event interface {
	Kind() Kind
	// Pos is the event's position in the session stream, stamped at load time.
	Pos() int
	SetPos(int)
	// Time is the event's timestamp in seconds since the epoch.
	Time() float64
	Author() UserID
	// Correlation returns the id of the message this event attaches to, if any.
	Correlation() (ID, bool)
	json.Marshaler
}

// Meta holds the attributes common to every variant.
type Meta struct {
	Position  int     `json:"-"`
	Timestamp float64 `json:"timestamp"`
	AuthorID  UserID  `json:"author_id,omitempty"`

	raw json.RawMessage
}

func (m *Meta) Pos() int       { return m.Position }
func (m *Meta) SetPos(i int)   { m.Position = i }
func (m *Meta) Time() float64  { return m.Timestamp }
func (m *Meta) Author() UserID { return m.AuthorID }

// Message is a chat message. Its MessageID is the correlation key dependent
// events declare; the message itself owns its group rather than joining one.
type Message struct {
	Meta
	MessageID           ID     `json:"message_id"`
	Content             string `json:"content"`
	AuthorBot           bool   `json:"author_bot,omitempty"`
	ReferencedMessageID *ID    `json:"referenced_message_id,omitempty"`
}

func (*Message) Kind() Kind              { return KindMessage }
func (*Message) Correlation() (ID, bool) { return 0, false }

// IsBot reports whether the message is attributable to a bot or system
// author. botID is the log's privileged bot author; empty disables that check.
func (m *Message) IsBot(botID UserID) bool {
	return m.AuthorBot || (botID != "" && m.AuthorID == botID)
}

// Command is a bot command invocation parsed out of a message.
type Command struct {
	Meta
	MessageID   ID              `json:"message_id"`
	Content     string          `json:"content"`
	CommandName string          `json:"command_name"`
	Prefix      string          `json:"prefix"`
	Caster      json.RawMessage `json:"caster,omitempty"`
}

func (*Command) Kind() Kind                { return KindCommand }
func (c *Command) Correlation() (ID, bool) { return c.MessageID, true }

// AutomationRun records the result of command automation (an attack, a spell
// cast). InteractionID correlates it to the message that triggered it.
type AutomationRun struct {
	Meta
	InteractionID    ID              `json:"interaction_id"`
	Caster           json.RawMessage `json:"caster,omitempty"`
	Targets          json.RawMessage `json:"targets,omitempty"`
	AutomationResult json.RawMessage `json:"automation_result,omitempty"`
}

func (*AutomationRun) Kind() Kind                { return KindAutomationRun }
func (r *AutomationRun) Correlation() (ID, bool) { return r.InteractionID, true }

// CombatStateUpdate is a full snapshot of the combat state.
type CombatStateUpdate struct {
	Meta
	ProbableInteractionID *ID         `json:"probable_interaction_id"`
	Data                  CombatState `json:"data"`
}

func (*CombatStateUpdate) Kind() Kind { return KindCombatStateUpdate }

func (u *CombatStateUpdate) Correlation() (ID, bool) {
	if u.ProbableInteractionID == nil {
		return 0, false
	}
	return *u.ProbableInteractionID, true
}

// AliasResolution records an alias expanding into a command.
type AliasResolution struct {
	Meta
	MessageID ID     `json:"message_id"`
	AliasName string `json:"alias_name,omitempty"`
	AliasBody string `json:"alias_body,omitempty"`
}

func (*AliasResolution) Kind() Kind                { return KindAliasResolution }
func (a *AliasResolution) Correlation() (ID, bool) { return a.MessageID, true }

// SnippetResolution records a snippet expanding inside a command.
type SnippetResolution struct {
	Meta
	MessageID   ID     `json:"message_id"`
	SnippetName string `json:"snippet_name,omitempty"`
	SnippetBody string `json:"snippet_body,omitempty"`
}

func (*SnippetResolution) Kind() Kind                { return KindSnippetResolution }
func (s *SnippetResolution) Correlation() (ID, bool) { return s.MessageID, true }

// ButtonPress is automation triggered from a UI button. Button interactions
// have no triggering chat message, so the variant declares no correlation.
type ButtonPress struct {
	Meta
}

func (*ButtonPress) Kind() Kind              { return KindButtonPress }
func (*ButtonPress) Correlation() (ID, bool) { return 0, false }

// Unknown preserves records whose event_type this package does not model.
// They pass through the stream untouched and never join a message group.
type Unknown struct {
	Meta
	EventType string `json:"event_type"`
}

func (u *Unknown) Kind() Kind            { return Kind(u.EventType) }
func (*Unknown) Correlation() (ID, bool) { return 0, false }

// CombatState is the payload of a combat_state_update. The engine reads only
// identifiers and the turn-holder position; combatant attributes stay opaque.
type CombatState struct {
	Combatants []Combatant `json:"combatants"`
	Current    *int        `json:"current"`
	DM         UserID      `json:"dm"`
}

// Combatant is one entry in the combatant list. Group-type combatants nest
// their members under Combatants.
type Combatant struct {
	ID           string      `json:"id"`
	Type         string      `json:"type"`
	ControllerID UserID      `json:"controller_id"`
	Combatants   []Combatant `json:"combatants,omitempty"`
}
