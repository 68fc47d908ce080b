package coverage

import (
	"testing"

	"github.com/pdiddy/statute-engine/pkg/types"
)

func testReqs() []Requirement {
	return []Requirement{
		{Topic: "capacity", Mandatory: true},
		{Topic: "scope-of-authority", Mandatory: true},
		{Topic: "revocation", Mandatory: false},
	}
}

func passage(id, topic string, sim float64) types.Passage {
	return types.Passage{
		SourceID:   id,
		Text:       "statutory text",
		Similarity: sim,
		Topics:     []string{topic},
	}
}

func TestTracker_StartsMissing(t *testing.T) {
	tr := NewTracker(testReqs(), 0.8)

	for _, topic := range []string{"capacity", "scope-of-authority", "revocation"} {
		if got := tr.Status(topic); got != StatusMissing {
			t.Errorf("Status(%q) = %q, want missing", topic, got)
		}
	}
	if got := tr.Score(); got != 0 {
		t.Errorf("Score() = %v, want 0", got)
	}
}

func TestTracker_UpgradePath(t *testing.T) {
	tr := NewTracker(testReqs(), 0.8)

	// One medium match lifts missing to weak.
	tr.Observe([]types.Passage{passage("p1", "capacity", 0.6)})
	if got := tr.Status("capacity"); got != StatusWeak {
		t.Fatalf("after one weak match: Status = %q, want weak", got)
	}

	// A second independent match lifts weak to covered.
	tr.Observe([]types.Passage{passage("p2", "capacity", 0.5)})
	if got := tr.Status("capacity"); got != StatusCovered {
		t.Fatalf("after two matches: Status = %q, want covered", got)
	}
}

func TestTracker_SingleStrongMatchCovers(t *testing.T) {
	tr := NewTracker(testReqs(), 0.8)

	tr.Observe([]types.Passage{passage("p1", "capacity", 0.85)})
	if got := tr.Status("capacity"); got != StatusCovered {
		t.Errorf("Status = %q, want covered from a single high-similarity match", got)
	}
}

func TestTracker_StatusNeverRegresses(t *testing.T) {
	tr := NewTracker(testReqs(), 0.8)

	tr.Observe([]types.Passage{passage("p1", "capacity", 0.9)})
	if got := tr.Status("capacity"); got != StatusCovered {
		t.Fatalf("setup: Status = %q, want covered", got)
	}

	// Later weak matches must not pull the status back down.
	tr.Observe([]types.Passage{passage("p2", "capacity", 0.1)})
	if got := tr.Status("capacity"); got != StatusCovered {
		t.Errorf("after weak follow-up match: Status = %q, want covered", got)
	}
}

func TestTracker_ScoreWeighting(t *testing.T) {
	// Mandatory topics weigh 2.0, conditional 1.0; weak counts half.
	tr := NewTracker(testReqs(), 0.8)

	tr.Observe([]types.Passage{
		passage("p1", "capacity", 0.9),   // covered: 2.0
		passage("p2", "revocation", 0.5), // weak: 0.5
	})

	want := (2.0 + 0.5) / 5.0
	if got := tr.Score(); got != want {
		t.Errorf("Score() = %v, want %v", got, want)
	}
}

func TestTracker_ScoreEmptyChecklist(t *testing.T) {
	tr := NewTracker(nil, 0.8)
	if got := tr.Score(); got != 1.0 {
		t.Errorf("Score() with empty checklist = %v, want 1.0", got)
	}
	if _, ok := tr.WeakestTopic(); ok {
		t.Error("WeakestTopic() reported a gap on an empty checklist")
	}
}

func TestTracker_KeywordMatching(t *testing.T) {
	tr := NewTracker([]Requirement{{Topic: "legal-capacity", Mandatory: true}}, 0.8)

	// No topic tag, but every topic word appears in the text.
	tr.Observe([]types.Passage{{
		SourceID:   "p1",
		Text:       "A person attains full legal capacity at the age of majority.",
		Similarity: 0.5,
	}})
	if got := tr.Status("legal-capacity"); got != StatusWeak {
		t.Errorf("Status = %q, want weak from keyword match", got)
	}

	// Partial word overlap does not match.
	tr2 := NewTracker([]Requirement{{Topic: "legal-capacity", Mandatory: true}}, 0.8)
	tr2.Observe([]types.Passage{{SourceID: "p2", Text: "capacity of vessels", Similarity: 0.5}})
	if got := tr2.Status("legal-capacity"); got != StatusMissing {
		t.Errorf("Status = %q, want missing when a topic word is absent", got)
	}
}

func TestTracker_GapsOrdering(t *testing.T) {
	reqs := []Requirement{
		{Topic: "capacity", Mandatory: true},
		{Topic: "scope-of-authority", Mandatory: true},
		{Topic: "revocation", Mandatory: false},
	}
	tr := NewTracker(reqs, 0.8)

	// capacity weak, the others missing.
	tr.Observe([]types.Passage{passage("p1", "capacity", 0.5)})

	gaps := tr.Gaps()
	wantOrder := []string{"scope-of-authority", "revocation", "capacity"}
	if len(gaps) != len(wantOrder) {
		t.Fatalf("Gaps() returned %d gaps, want %d", len(gaps), len(wantOrder))
	}
	for i, want := range wantOrder {
		if gaps[i].Topic != want {
			t.Errorf("gaps[%d].Topic = %q, want %q", i, gaps[i].Topic, want)
		}
	}

	topic, ok := tr.WeakestTopic()
	if !ok || topic != "scope-of-authority" {
		t.Errorf("WeakestTopic() = %q, %v; want scope-of-authority, true", topic, ok)
	}
}

func TestTracker_MandatoryWeakOrMissing(t *testing.T) {
	tr := NewTracker(testReqs(), 0.8)
	if !tr.MandatoryWeakOrMissing() {
		t.Error("expected mandatory gap on a fresh tracker")
	}

	tr.Observe([]types.Passage{
		passage("p1", "capacity", 0.9),
		passage("p2", "scope-of-authority", 0.9),
	})
	if tr.MandatoryWeakOrMissing() {
		t.Error("no mandatory gap expected once both mandatory topics are covered")
	}
}

func TestTracker_SuggestQuery(t *testing.T) {
	tr := NewTracker(testReqs(), 0.8)
	got := tr.SuggestQuery("scope-of-authority")
	want := "scope of authority requirements under applicable law"
	if got != want {
		t.Errorf("SuggestQuery() = %q, want %q", got, want)
	}
}
