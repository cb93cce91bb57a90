// Package turn answers questions about turn ownership in combat state
// snapshots: whether the active turn moved between two snapshots, who
// controls the current combatant, and which author is the DM.
package turn

import "github.com/jmeyers/combatlog/internal/event"

// Changed reports whether the active turn moved between two consecutive
// snapshots. A nil prev is the start-of-session sentinel and never counts as
// a change. When either snapshot has no active turn, only a transition into
// or out of "no one's turn" counts. Otherwise the occupying combatants'
// identifiers are compared, not their indexes: the combatant ordering can
// shift between snapshots as combatants join or leave.
func Changed(prev, cur *event.CombatState) bool {
	if prev == nil {
		return false
	}
	prevID, prevOK := currentCombatantID(prev)
	curID, curOK := currentCombatantID(cur)
	if !prevOK || !curOK {
		return prevOK != curOK
	}
	return prevID != curID
}

func currentCombatantID(s *event.CombatState) (string, bool) {
	if s == nil || s.Current == nil {
		return "", false
	}
	i := *s.Current
	if i < 0 || i >= len(s.Combatants) {
		return "", false
	}
	return s.Combatants[i].ID, true
}

// Controllers returns the authors controlling the combatant whose turn is
// active, expanding group combatants into each member's controller. Nil when
// no turn is active.
func Controllers(s *event.CombatState) []event.UserID {
	if s == nil || s.Current == nil {
		return nil
	}
	i := *s.Current
	if i < 0 || i >= len(s.Combatants) {
		return nil
	}
	c := s.Combatants[i]
	if c.Type == "group" {
		ids := make([]event.UserID, 0, len(c.Combatants))
		for _, member := range c.Combatants {
			ids = append(ids, member.ControllerID)
		}
		return ids
	}
	return []event.UserID{c.ControllerID}
}

// DM returns the snapshot's DM author id, or empty when unknown.
func DM(s *event.CombatState) event.UserID {
	if s == nil {
		return ""
	}
	return s.DM
}
