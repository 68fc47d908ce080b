// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package decompose splits the master question for a case into
// prioritized, researchable sub-issues, each with its own reformulated
// query seeds. Decomposition never fails a case: malformed generation
// output falls back to a deterministic decomposition built from the
// case type's mandatory checklist.
package decompose

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/statute-engine/internal/genai"
	"github.com/pdiddy/statute-engine/pkg/types"
)

// decompositionPromptTmpl instructs the model to decompose the case into
// sub-issues against the required topic checklist.
var decompositionPromptTmpl = template.Must(template.New("decompose").Parse(`You are a legal research planner. Decompose the validity review of the instrument below into researchable sub-issues.

Case type: {{.CaseType}}
Parties:
{{- range .Parties}}
- {{.Name}} ({{.Role}}{{if .ClaimedCapacity}}, acting as {{.ClaimedCapacity}}{{end}}{{if .IsEntity}}, juridical person{{end}})
{{- end}}
{{- if .Scope}}
Instrument scope: {{.Scope}}
{{- end}}
{{- if .Discrepancies}}
Reported discrepancies: {{.Discrepancies}}
{{- end}}

Required topic areas (every one must be covered by at least one issue):
{{- range .Topics}}
- {{.}}
{{- end}}

For each issue provide:
- category: the topic area it covers
- question: one precise legal question
- priority: "critical", "important", or "supplementary"
- topics: the topic areas the issue must cover
- queries: 2 to 5 short search query seeds for statute retrieval

Respond with a JSON object: {"issues": [{"category": ..., "question": ..., "priority": ..., "topics": [...], "queries": [...]}]}
Do not include any text outside the JSON object.`))

// decompositionResult is the typed response contract for decomposition.
type decompositionResult struct {
	Issues []decomposedIssue `json:"issues"`
}

// decomposedIssue is a single issue as returned by the model.
type decomposedIssue struct {
	Category string   `json:"category"`
	Question string   `json:"question"`
	Priority string   `json:"priority"`
	Topics   []string `json:"topics"`
	Queries  []string `json:"queries"`
}

// Validate enforces the decomposition output contract.
func (r *decompositionResult) Validate() error {
	if len(r.Issues) == 0 {
		return fmt.Errorf("decomposition returned no issues")
	}
	for i, issue := range r.Issues {
		if issue.Category == "" || issue.Question == "" {
			return fmt.Errorf("issue %d missing category or question", i)
		}
		switch types.Priority(issue.Priority) {
		case types.PriorityCritical, types.PriorityImportant, types.PrioritySupplementary:
		default:
			return fmt.Errorf("issue %d has unknown priority %q", i, issue.Priority)
		}
		if len(issue.Queries) == 0 {
			return fmt.Errorf("issue %d has no query seeds", i)
		}
	}
	return nil
}

// Decomposer produces the issue list for a case.
type Decomposer struct {
	gen genai.Generator
}

// New builds a decomposer over a generation backend.
func New(gen genai.Generator) *Decomposer {
	return &Decomposer{gen: gen}
}

// Decompose returns the ordered issue list for a brief. Issues covering
// mandatory topics are always present: any the model leaves out are
// appended deterministically. When generation output stays malformed
// after the strict retry, the whole decomposition falls back to the
// deterministic mandatory-only form.
func (d *Decomposer) Decompose(ctx context.Context, brief *types.CaseBrief) ([]types.Issue, error) {
	profile := ProfileFor(brief.CaseType)
	active := profile.ActiveTopics(brief)

	prompt, err := renderDecompositionPrompt(brief, active)
	if err != nil {
		return nil, fmt.Errorf("rendering prompt: %w", err)
	}

	var result decompositionResult
	if err := genai.GenerateJSON(ctx, d.gen, prompt, &result); err != nil {
		if errors.Is(err, genai.ErrInvalidOutput) {
			return Deterministic(brief), nil
		}
		return nil, err
	}

	issues := make([]types.Issue, 0, len(result.Issues))
	usedIDs := make(map[string]bool)
	coveredTopics := make(map[string]bool)

	for _, di := range result.Issues {
		queries := di.Queries
		if len(queries) > 5 {
			queries = queries[:5]
		}
		topics := di.Topics
		if len(topics) == 0 {
			topics = []string{di.Category}
		}
		for _, topic := range topics {
			coveredTopics[topic] = true
		}
		issues = append(issues, types.Issue{
			ID:          issueID(brief.CaseID, di.Category, usedIDs),
			Category:    di.Category,
			Question:    di.Question,
			Priority:    types.Priority(di.Priority),
			Topics:      topics,
			SeedQueries: queries,
			Language:    brief.Language,
		})
	}

	// Mandatory topics the model skipped still get their issue.
	for _, tr := range active {
		if !tr.Mandatory || coveredTopics[tr.Topic] {
			continue
		}
		issues = append(issues, deterministicIssue(brief, tr, usedIDs))
	}

	return issues, nil
}

// Deterministic builds the fallback decomposition from the case type's
// checklist alone: one issue per active topic, templated questions and
// query seeds, no generation involved.
func Deterministic(brief *types.CaseBrief) []types.Issue {
	profile := ProfileFor(brief.CaseType)
	usedIDs := make(map[string]bool)

	var issues []types.Issue
	for _, tr := range profile.ActiveTopics(brief) {
		issues = append(issues, deterministicIssue(brief, tr, usedIDs))
	}
	return issues
}

func deterministicIssue(brief *types.CaseBrief, tr TopicRequirement, usedIDs map[string]bool) types.Issue {
	topicWords := strings.ReplaceAll(tr.Topic, "-", " ")
	return types.Issue{
		ID:       issueID(brief.CaseID, tr.Topic, usedIDs),
		Category: tr.Topic,
		Question: fmt.Sprintf("What are the %s requirements for a %s instrument, and does this case satisfy them?",
			topicWords, brief.CaseType),
		Priority: tr.Priority,
		Topics:   []string{tr.Topic},
		SeedQueries: []string{
			topicWords,
			fmt.Sprintf("%s %s", brief.CaseType, topicWords),
			fmt.Sprintf("%s requirements", topicWords),
		},
		Language: brief.Language,
	}
}

// issueID derives a stable, deterministic issue id from the case and
// category, suffixing duplicates.
func issueID(caseID, category string, used map[string]bool) string {
	base := caseID + "/" + strings.ToLower(strings.ReplaceAll(category, " ", "-"))
	id := base
	for n := 2; used[id]; n++ {
		id = fmt.Sprintf("%s-%d", base, n)
	}
	used[id] = true
	return id
}

func renderDecompositionPrompt(brief *types.CaseBrief, active []TopicRequirement) (string, error) {
	topics := make([]string, len(active))
	for i, tr := range active {
		topics[i] = tr.Topic
	}

	var buf bytes.Buffer
	err := decompositionPromptTmpl.Execute(&buf, struct {
		CaseType      string
		Parties       []types.Party
		Scope         string
		Discrepancies string
		Topics        []string
	}{
		CaseType:      brief.CaseType,
		Parties:       brief.Parties,
		Scope:         strings.Join(brief.InstrumentScope, "; "),
		Discrepancies: strings.Join(brief.Discrepancies, "; "),
		Topics:        topics,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
