package event

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestDecode_Message(t *testing.T) {
	raw := []byte(`{"event_type":"message","timestamp":1661.5,"message_id":42,"author_id":"100","content":"hello there","author_bot":false}`)
	e, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	m, ok := e.(*Message)
	if !ok {
		t.Fatalf("expected *Message, got %T", e)
	}
	if m.MessageID != 42 {
		t.Errorf("message_id: expected 42, got %d", m.MessageID)
	}
	if m.AuthorID != "100" {
		t.Errorf("author_id: expected 100, got %s", m.AuthorID)
	}
	if m.Time() != 1661.5 {
		t.Errorf("timestamp: expected 1661.5, got %v", m.Time())
	}
	if _, ok := m.Correlation(); ok {
		t.Error("a message owns its group; it must not declare a correlation")
	}
}

func TestDecode_NumericAndStringIDs(t *testing.T) {
	asNumber, err := Decode([]byte(`{"event_type":"command","message_id":42,"author_id":100,"content":"!a dagger"}`))
	if err != nil {
		t.Fatalf("decode number ids: %v", err)
	}
	asString, err := Decode([]byte(`{"event_type":"command","message_id":"42","author_id":"100","content":"!a dagger"}`))
	if err != nil {
		t.Fatalf("decode string ids: %v", err)
	}
	c1 := asNumber.(*Command)
	c2 := asString.(*Command)
	if c1.MessageID != c2.MessageID {
		t.Errorf("message ids differ: %d vs %d", c1.MessageID, c2.MessageID)
	}
	if c1.AuthorID != c2.AuthorID {
		t.Errorf("author ids differ: %s vs %s", c1.AuthorID, c2.AuthorID)
	}
}

func TestDecode_CorrelationFields(t *testing.T) {
	run, err := Decode([]byte(`{"event_type":"automation_run","interaction_id":7}`))
	if err != nil {
		t.Fatalf("decode run: %v", err)
	}
	if id, ok := run.Correlation(); !ok || id != 7 {
		t.Errorf("automation_run correlation: expected 7, got %d (ok=%v)", id, ok)
	}

	upd, err := Decode([]byte(`{"event_type":"combat_state_update","probable_interaction_id":7,"data":{"combatants":[],"current":null,"dm":1}}`))
	if err != nil {
		t.Fatalf("decode update: %v", err)
	}
	if id, ok := upd.Correlation(); !ok || id != 7 {
		t.Errorf("combat_state_update correlation: expected 7, got %d (ok=%v)", id, ok)
	}

	uncorrelated, err := Decode([]byte(`{"event_type":"combat_state_update","probable_interaction_id":null,"data":{"combatants":[],"current":null,"dm":1}}`))
	if err != nil {
		t.Fatalf("decode uncorrelated update: %v", err)
	}
	if _, ok := uncorrelated.Correlation(); ok {
		t.Error("null probable_interaction_id must not correlate")
	}
}

func TestDecode_CombatState(t *testing.T) {
	raw := []byte(`{"event_type":"combat_state_update","probable_interaction_id":1,"data":{"combatants":[{"id":"c1","type":"combatant","controller_id":100},{"id":"g1","type":"group","controller_id":0,"combatants":[{"id":"c2","type":"combatant","controller_id":101}]}],"current":1,"dm":999}}`)
	e, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	u := e.(*CombatStateUpdate)
	if len(u.Data.Combatants) != 2 {
		t.Fatalf("expected 2 combatants, got %d", len(u.Data.Combatants))
	}
	if u.Data.Current == nil || *u.Data.Current != 1 {
		t.Errorf("current: expected 1, got %v", u.Data.Current)
	}
	if u.Data.DM != "999" {
		t.Errorf("dm: expected 999, got %s", u.Data.DM)
	}
	grp := u.Data.Combatants[1]
	if grp.Type != "group" || len(grp.Combatants) != 1 || grp.Combatants[0].ControllerID != "101" {
		t.Errorf("group combatant did not decode: %+v", grp)
	}
}

func TestDecode_UnknownKindPassesThrough(t *testing.T) {
	raw := []byte(`{"event_type":"future_thing","timestamp":5,"payload":{"a":1}}`)
	e, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	u, ok := e.(*Unknown)
	if !ok {
		t.Fatalf("expected *Unknown, got %T", e)
	}
	if u.Kind() != "future_thing" {
		t.Errorf("kind: expected future_thing, got %s", u.Kind())
	}
	out, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Equal(out, raw) {
		t.Errorf("unknown event must re-emit its raw record\n got: %s\nwant: %s", out, raw)
	}
}

func TestMarshal_RawRoundTrip(t *testing.T) {
	raw := []byte(`{"event_type":"message","timestamp":1,"message_id":9,"author_id":"5","content":"hi there","extra_field":"kept"}`)
	e, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	out, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Equal(out, raw) {
		t.Errorf("decoded event must re-emit its raw record\n got: %s\nwant: %s", out, raw)
	}
}

func TestMarshal_ConstructedEvent(t *testing.T) {
	m := &Message{Meta: Meta{Timestamp: 2}, MessageID: 3, Content: "well met"}
	out, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["event_type"] != "message" {
		t.Errorf("expected event_type message, got %v", decoded["event_type"])
	}
	if decoded["content"] != "well met" {
		t.Errorf("expected content, got %v", decoded["content"])
	}
}

func TestIsBot(t *testing.T) {
	flagged := &Message{Meta: Meta{AuthorID: "5"}, AuthorBot: true}
	if !flagged.IsBot("") {
		t.Error("author_bot flag must mark the message as bot")
	}
	byID := &Message{Meta: Meta{AuthorID: DefaultBotAuthorID}}
	if !byID.IsBot(DefaultBotAuthorID) {
		t.Error("bot author id must mark the message as bot")
	}
	human := &Message{Meta: Meta{AuthorID: "5"}}
	if human.IsBot(DefaultBotAuthorID) {
		t.Error("ordinary author must not be marked as bot")
	}
}

func TestIsCommandInvocation(t *testing.T) {
	for _, content := range []string{"!init next", "/roll 1d20", "a!help", "$status"} {
		if !IsCommandInvocation(content) {
			t.Errorf("%q should be a command invocation", content)
		}
	}
	for _, content := range []string{"well met adventurer", "", "what now?"} {
		if IsCommandInvocation(content) {
			t.Errorf("%q should not be a command invocation", content)
		}
	}
}
