package event

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Decode parses one shard record into its typed variant. The raw bytes are
// retained on the event so it can be re-emitted exactly as it arrived.
func Decode(data []byte) (Event, error) {
	var head struct {
		Kind Kind `json:"event_type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode event envelope: %w", err)
	}

	raw := make(json.RawMessage, len(data))
	copy(raw, data)

	var e Event
	var err error
	switch head.Kind {
	case KindMessage:
		v := &Message{}
		err = json.Unmarshal(data, v)
		v.raw = raw
		e = v
	case KindCommand:
		v := &Command{}
		err = json.Unmarshal(data, v)
		v.raw = raw
		e = v
	case KindAutomationRun:
		v := &AutomationRun{}
		err = json.Unmarshal(data, v)
		v.raw = raw
		e = v
	case KindCombatStateUpdate:
		v := &CombatStateUpdate{}
		err = json.Unmarshal(data, v)
		v.raw = raw
		e = v
	case KindAliasResolution:
		v := &AliasResolution{}
		err = json.Unmarshal(data, v)
		v.raw = raw
		e = v
	case KindSnippetResolution:
		v := &SnippetResolution{}
		err = json.Unmarshal(data, v)
		v.raw = raw
		e = v
	case KindButtonPress:
		v := &ButtonPress{}
		err = json.Unmarshal(data, v)
		v.raw = raw
		e = v
	default:
		v := &Unknown{EventType: string(head.Kind)}
		err = json.Unmarshal(data, v)
		v.raw = raw
		e = v
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s event: %w", head.Kind, err)
	}
	return e, nil
}

// marshal emits the raw record when present, otherwise the typed fields with
// the event_type discriminator injected. Constructed events (tests, callers
// synthesizing streams) marshal deterministically either way.
func marshal(kind Kind, raw json.RawMessage, v any) ([]byte, error) {
	if raw != nil {
		return raw, nil
	}
	typed, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	head, err := json.Marshal(struct {
		Kind Kind `json:"event_type"`
	}{kind})
	if err != nil {
		return nil, err
	}
	if string(typed) == "{}" {
		return head, nil
	}
	return append(append(head[:len(head)-1], ','), typed[1:]...), nil
}

func (m *Message) MarshalJSON() ([]byte, error) {
	type alias Message
	return marshal(KindMessage, m.raw, (*alias)(m))
}

func (c *Command) MarshalJSON() ([]byte, error) {
	type alias Command
	return marshal(KindCommand, c.raw, (*alias)(c))
}

func (r *AutomationRun) MarshalJSON() ([]byte, error) {
	type alias AutomationRun
	return marshal(KindAutomationRun, r.raw, (*alias)(r))
}

func (u *CombatStateUpdate) MarshalJSON() ([]byte, error) {
	type alias CombatStateUpdate
	return marshal(KindCombatStateUpdate, u.raw, (*alias)(u))
}

func (a *AliasResolution) MarshalJSON() ([]byte, error) {
	type alias AliasResolution
	return marshal(KindAliasResolution, a.raw, (*alias)(a))
}

func (s *SnippetResolution) MarshalJSON() ([]byte, error) {
	type alias SnippetResolution
	return marshal(KindSnippetResolution, s.raw, (*alias)(s))
}

func (b *ButtonPress) MarshalJSON() ([]byte, error) {
	type alias ButtonPress
	return marshal(KindButtonPress, b.raw, (*alias)(b))
}

func (u *Unknown) MarshalJSON() ([]byte, error) {
	if u.raw != nil {
		return u.raw, nil
	}
	return json.Marshal(struct {
		Kind      Kind    `json:"event_type"`
		Timestamp float64 `json:"timestamp"`
		AuthorID  UserID  `json:"author_id,omitempty"`
	}{Kind(u.EventType), u.Timestamp, u.AuthorID})
}

// commandPrefixes are the bot prefixes a chat message can invoke a command
// with.
var commandPrefixes = []string{"!", "$", "%", "^", "&", "/", "]", "a!", "<"}

// IsCommandInvocation reports whether message content looks like a command
// invocation rather than chat.
func IsCommandInvocation(content string) bool {
	for _, p := range commandPrefixes {
		if strings.HasPrefix(content, p) {
			return true
		}
	}
	return false
}

// DefaultBotAuthorID is the author id the hosted dice bot writes its own
// messages under.
const DefaultBotAuthorID UserID = "261302296103747584"
