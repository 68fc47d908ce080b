package reformulate

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/pdiddy/statute-engine/pkg/types"
)

// cannedGen returns a fixed response and records the prompts it saw.
type cannedGen struct {
	response string
	err      error
	prompts  []string
}

func (g *cannedGen) Generate(ctx context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.response, nil
}

func poaIssue() types.Issue {
	return types.Issue{
		ID:          "case-1/capacity",
		Category:    "capacity",
		Question:    "Does the principal have legal capacity to grant a power of attorney?",
		Topics:      []string{"capacity"},
		SeedQueries: []string{"legal capacity requirements", "age of majority"},
		Language:    types.LangEnglish,
	}
}

func TestForIssue_HypotheticalOnFirstSeed(t *testing.T) {
	gen := &cannedGen{response: `{"hypothetical": "A person of full legal capacity may appoint an agent."}`}
	r := New(gen)

	queries := r.ForIssue(context.Background(), poaIssue())
	if len(queries) != 2 {
		t.Fatalf("got %d queries, want one per seed", len(queries))
	}
	if queries[0].Text != "legal capacity requirements" {
		t.Errorf("first query text = %q", queries[0].Text)
	}
	if queries[0].Hypothetical == "" {
		t.Error("first query has no hypothetical draft")
	}
	if queries[1].Hypothetical != "" {
		t.Errorf("second query has a hypothetical draft: %q", queries[1].Hypothetical)
	}
	for i, q := range queries {
		if q.Language != types.LangEnglish {
			t.Errorf("query %d language = %q", i, q.Language)
		}
	}
}

func TestForIssue_NoSeedsFallsBackToQuestion(t *testing.T) {
	gen := &cannedGen{err: fmt.Errorf("generation unavailable")}
	issue := poaIssue()
	issue.SeedQueries = nil

	queries := New(gen).ForIssue(context.Background(), issue)
	if len(queries) != 1 {
		t.Fatalf("got %d queries, want 1", len(queries))
	}
	if queries[0].Text != issue.Question {
		t.Errorf("query text = %q, want the issue question", queries[0].Text)
	}
}

func TestForIssue_DraftFailureKeepsLiteralQueries(t *testing.T) {
	gen := &cannedGen{response: "not json at all"}
	queries := New(gen).ForIssue(context.Background(), poaIssue())

	if len(queries) != 2 {
		t.Fatalf("got %d queries, want 2", len(queries))
	}
	for i, q := range queries {
		if q.Hypothetical != "" {
			t.Errorf("query %d has a hypothetical after a failed draft", i)
		}
	}
}

func TestForGap(t *testing.T) {
	gen := &cannedGen{response: `{"hypothetical": "Revocation of an agency takes effect upon notice."}`}
	q := New(gen).ForGap(context.Background(), poaIssue(), "revocation", "power of attorney revocation")

	if q.Text != "power of attorney revocation" {
		t.Errorf("query text = %q", q.Text)
	}
	if q.Topic != "revocation" {
		t.Errorf("query topic = %q", q.Topic)
	}
	if q.Hypothetical == "" {
		t.Error("gap query has no hypothetical draft")
	}
	if len(gen.prompts) == 0 || !strings.Contains(gen.prompts[0], "Focus area: revocation") {
		t.Error("prompt does not name the focus topic")
	}
}

func TestForGap_EmptyDraftRejected(t *testing.T) {
	gen := &cannedGen{response: `{"hypothetical": ""}`}
	q := New(gen).ForGap(context.Background(), poaIssue(), "revocation", "power of attorney revocation")
	if q.Hypothetical != "" {
		t.Errorf("empty draft accepted: %q", q.Hypothetical)
	}
}

func TestPromptLanguage(t *testing.T) {
	gen := &cannedGen{response: `{"hypothetical": "x"}`}
	issue := poaIssue()
	issue.Language = types.LangArabic

	New(gen).ForIssue(context.Background(), issue)
	if len(gen.prompts) == 0 || !strings.Contains(gen.prompts[0], "in Arabic") {
		t.Error("prompt does not request Arabic output")
	}
}
