// Package tagger assigns free-standing chat utterances to the automation run
// nearest to them in time, bucketing each as context before or reaction after
// the run.
package tagger

import (
	"math"
	"strings"

	"github.com/jmeyers/combatlog/internal/event"
	"github.com/jmeyers/combatlog/internal/instance"
)

// Tuple pairs the utterances surrounding an automation run with the run
// group's events.
type Tuple struct {
	Before   []event.Event `json:"before"`
	Commands []event.Event `json:"commands"`
	After    []event.Event `json:"after"`
}

// Options tunes utterance filtering.
type Options struct {
	// MinTokens drops utterances with fewer whitespace-separated tokens.
	// Zero means the default of 5.
	MinTokens int
	// BotID marks an author whose messages are never tagged, in addition to
	// messages carrying the bot flag.
	BotID event.UserID
}

// Extract tags every qualifying free-standing utterance onto its nearest
// automation run. Consecutive non-utterance groups by the same author are
// merged first so utterances land against the author's whole action, not an
// arbitrary sub-run. Output order is first-touch order, which makes repeated
// runs over the same session deterministic.
func Extract(inst *instance.Instance, opts Options) []Tuple {
	groups := inst.MessageGroups()
	if len(groups) == 0 {
		return nil
	}
	minTokens := opts.MinTokens
	if minTokens == 0 {
		minTokens = 5
	}

	merged := mergeConsecutive(groups)

	var runs []*instance.MessageGroup
	for _, g := range groups {
		if g.HasKind(event.KindAutomationRun) {
			runs = append(runs, g)
		}
	}

	type bucket struct {
		group         *instance.MessageGroup
		before, after []event.Event
	}
	var order []*bucket
	buckets := make(map[*instance.MessageGroup]*bucket)

	for _, g := range groups {
		if !g.IsOnlyMessage() {
			continue
		}
		msg := g.Message()
		if len(strings.Fields(msg.Content)) < minTokens {
			continue
		}
		if msg.IsBot(opts.BotID) {
			continue
		}

		nearest := nearestRun(runs, msg.Timestamp)
		if nearest == nil {
			continue
		}
		tagged := nearest
		if m, ok := merged[nearest]; ok {
			tagged = m
		}

		b := buckets[tagged]
		if b == nil {
			b = &bucket{group: tagged}
			buckets[tagged] = b
			order = append(order, b)
		}
		// Bucketing compares against the nearest sub-run's trigger, not the
		// merged group's, preserving which side of the action the chat fell on.
		if msg.Timestamp < nearest.Message().Timestamp {
			b.before = append(b.before, msg)
		} else {
			b.after = append(b.after, msg)
		}
	}

	tuples := make([]Tuple, 0, len(order))
	for _, b := range order {
		tuples = append(tuples, Tuple{
			Before:   b.before,
			Commands: b.group.Events,
			After:    b.after,
		})
	}
	return tuples
}

// mergeConsecutive joins contiguous runs of groups sharing the same
// (is-only-message, author) key. Only multi-group runs of non-utterance
// groups produce a merged group; the returned map points each member at it.
func mergeConsecutive(groups []*instance.MessageGroup) map[*instance.MessageGroup]*instance.MessageGroup {
	merged := make(map[*instance.MessageGroup]*instance.MessageGroup)
	for i := 0; i < len(groups); {
		onlyMsg := groups[i].IsOnlyMessage()
		author := groups[i].Message().AuthorID
		j := i + 1
		for j < len(groups) && groups[j].IsOnlyMessage() == onlyMsg && groups[j].Message().AuthorID == author {
			j++
		}
		if !onlyMsg && j-i > 1 {
			combined := instance.Concat(groups[i:j])
			for _, g := range groups[i:j] {
				merged[g] = combined
			}
		}
		i = j
	}
	return merged
}

// nearestRun returns the run whose triggering message is closest in time to
// ts. Equidistant runs resolve to the earliest in run-list order.
func nearestRun(runs []*instance.MessageGroup, ts float64) *instance.MessageGroup {
	var best *instance.MessageGroup
	bestDist := math.Inf(1)
	for _, r := range runs {
		if d := math.Abs(r.Message().Timestamp - ts); d < bestDist {
			best, bestDist = r, d
		}
	}
	return best
}
