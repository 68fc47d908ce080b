// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package coverage maintains the per-issue checklist of required topic
// areas and scores how well the retrieved passages cover it. Topic
// status only ever moves forward: missing to weak to covered.
package coverage

import (
	"strings"

	"github.com/pdiddy/statute-engine/pkg/types"
)

// Status is a topic's coverage state.
type Status string

const (
	StatusMissing Status = "missing"
	StatusWeak    Status = "weak"
	StatusCovered Status = "covered"
)

// Requirement names one required topic area on an issue's checklist.
type Requirement struct {
	// Topic is the checklist topic (lowercase, hyphenated).
	Topic string

	// Mandatory topics weigh double in the aggregate score.
	Mandatory bool
}

// Weight returns the topic's contribution to the aggregate denominator.
func (r Requirement) Weight() float64 {
	if r.Mandatory {
		return 2.0
	}
	return 1.0
}

type topicState struct {
	req     Requirement
	status  Status
	matches int
	best    float64
}

// Tracker holds the coverage map for one retrieval run.
type Tracker struct {
	order      []string
	topics     map[string]*topicState
	highCutoff float64
}

// NewTracker builds a tracker with every topic missing. highCutoff is
// the similarity at which a single match marks a topic covered.
func NewTracker(reqs []Requirement, highCutoff float64) *Tracker {
	t := &Tracker{
		topics:     make(map[string]*topicState, len(reqs)),
		highCutoff: highCutoff,
	}
	for _, r := range reqs {
		if _, ok := t.topics[r.Topic]; ok {
			continue
		}
		t.order = append(t.order, r.Topic)
		t.topics[r.Topic] = &topicState{req: r, status: StatusMissing}
	}
	return t
}

// Observe matches a retrieval batch against the checklist and upgrades
// topic statuses. Any match lifts missing to weak; a topic becomes
// covered once a match reaches the high-confidence cutoff or two
// independent matches accumulate. Status never regresses.
func (t *Tracker) Observe(passages []types.Passage) {
	for _, p := range passages {
		for _, topic := range t.order {
			if !topicMatches(topic, p) {
				continue
			}
			st := t.topics[topic]
			st.matches++
			if p.Similarity > st.best {
				st.best = p.Similarity
			}
			if st.status == StatusMissing {
				st.status = StatusWeak
			}
			if st.status == StatusWeak && (st.best >= t.highCutoff || st.matches >= 2) {
				st.status = StatusCovered
			}
		}
	}
}

// topicMatches reports whether a passage speaks to a topic: either the
// corpus tagged it with the topic, or every word of the topic appears in
// the passage text.
func topicMatches(topic string, p types.Passage) bool {
	for _, tag := range p.Topics {
		if tag == topic {
			return true
		}
	}

	text := strings.ToLower(p.Text + " " + p.AltText)
	for _, word := range strings.Split(topic, "-") {
		if !strings.Contains(text, word) {
			return false
		}
	}
	return true
}

// Score returns the aggregate coverage score: covered topics count their
// full weight, weak topics half, over the total required weight.
func (t *Tracker) Score() float64 {
	var total, got float64
	for _, topic := range t.order {
		st := t.topics[topic]
		w := st.req.Weight()
		total += w
		switch st.status {
		case StatusCovered:
			got += w
		case StatusWeak:
			got += 0.5 * w
		}
	}
	if total == 0 {
		return 1.0
	}
	return got / total
}

// Status returns a topic's current state, or missing for unknown topics.
func (t *Tracker) Status(topic string) Status {
	if st, ok := t.topics[topic]; ok {
		return st.status
	}
	return StatusMissing
}

// Snapshot returns topic statuses as plain strings for the trace.
func (t *Tracker) Snapshot() map[string]string {
	snap := make(map[string]string, len(t.order))
	for _, topic := range t.order {
		snap[topic] = string(t.topics[topic].status)
	}
	return snap
}

// Gap describes one under-covered topic worth a follow-up query.
type Gap struct {
	Topic     string
	Status    Status
	Mandatory bool
}

// Gaps returns missing and weak topics, worst first: missing before
// weak, mandatory before conditional, checklist order within ties.
func (t *Tracker) Gaps() []Gap {
	var gaps []Gap
	for _, wantStatus := range []Status{StatusMissing, StatusWeak} {
		for _, mandatory := range []bool{true, false} {
			for _, topic := range t.order {
				st := t.topics[topic]
				if st.status == wantStatus && st.req.Mandatory == mandatory {
					gaps = append(gaps, Gap{Topic: topic, Status: st.status, Mandatory: mandatory})
				}
			}
		}
	}
	return gaps
}

// WeakestTopic returns the highest-priority gap's topic, if any.
func (t *Tracker) WeakestTopic() (string, bool) {
	gaps := t.Gaps()
	if len(gaps) == 0 {
		return "", false
	}
	return gaps[0].Topic, true
}

// SuggestQuery proposes a follow-up query text for an under-covered
// topic. The reformulator turns it into a full query, possibly with a
// hypothetical passage.
func (t *Tracker) SuggestQuery(topic string) string {
	return strings.ReplaceAll(topic, "-", " ") + " requirements under applicable law"
}

// MandatoryWeakOrMissing reports whether any mandatory topic is still
// below covered. The verifier uses this to cap reported confidence.
func (t *Tracker) MandatoryWeakOrMissing() bool {
	for _, topic := range t.order {
		st := t.topics[topic]
		if st.req.Mandatory && st.status != StatusCovered {
			return true
		}
	}
	return false
}
