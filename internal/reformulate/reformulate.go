// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reformulate turns legal questions into search queries. Besides
// literal queries it drafts a hypothetical statute passage per question:
// short questions and dense statute prose embed far apart, and embedding
// a statute-shaped draft closes the gap. Hypothetical text is never a
// citable source; it only derives a search vector.
package reformulate

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/pdiddy/statute-engine/internal/genai"
	"github.com/pdiddy/statute-engine/pkg/types"
)

// hydePromptTmpl asks the model to draft a plausible statute passage
// answering the question, in the corpus partition's language.
var hydePromptTmpl = template.Must(template.New("hyde").Parse(`You are drafting a hypothetical statute passage for a legal retrieval system.

Write a short passage (2-4 sentences) in the style of statutory law that would plausibly answer the question below. Use formal legislative language. Write the passage in {{.LanguageName}}.

Question: {{.Question}}
{{if .Topic}}Focus area: {{.Topic}}{{end}}

Respond with a JSON object: {"hypothetical": "<the drafted passage>"}
Do not include any text outside the JSON object.`))

// hydeResult is the typed response contract for hypothetical drafting.
type hydeResult struct {
	Hypothetical string `json:"hypothetical"`
}

// Validate rejects empty drafts.
func (r *hydeResult) Validate() error {
	if r.Hypothetical == "" {
		return fmt.Errorf("hypothetical passage is empty")
	}
	return nil
}

// Reformulator drafts queries for issues and topic gaps.
type Reformulator struct {
	gen genai.Generator
}

// New builds a reformulator over a generation backend.
func New(gen genai.Generator) *Reformulator {
	return &Reformulator{gen: gen}
}

// ForIssue returns the issue's seed queries as literal queries, with the
// first seed augmented by a freshly drafted hypothetical passage. When
// drafting fails the literal queries still stand; retrieval degrades
// rather than stalls.
func (r *Reformulator) ForIssue(ctx context.Context, issue types.Issue) []types.Query {
	queries := make([]types.Query, 0, len(issue.SeedQueries))
	for _, seed := range issue.SeedQueries {
		queries = append(queries, types.Query{Text: seed, Language: issue.Language})
	}
	if len(queries) == 0 {
		queries = append(queries, types.Query{Text: issue.Question, Language: issue.Language})
	}

	if hyde, err := r.draft(ctx, issue.Question, "", issue.Language); err == nil {
		queries[0].Hypothetical = hyde
	}
	return queries
}

// ForGap returns one targeted query for an under-covered topic,
// drafted fresh for this issue and topic. suggestion is the coverage
// tracker's proposed query text.
func (r *Reformulator) ForGap(ctx context.Context, issue types.Issue, topic, suggestion string) types.Query {
	q := types.Query{
		Text:     suggestion,
		Language: issue.Language,
		Topic:    topic,
	}
	if hyde, err := r.draft(ctx, issue.Question, topic, issue.Language); err == nil {
		q.Hypothetical = hyde
	}
	return q
}

// draft generates a hypothetical passage. Drafts are generated per call,
// never cached across issues.
func (r *Reformulator) draft(ctx context.Context, question, topic string, lang types.Language) (string, error) {
	var buf bytes.Buffer
	err := hydePromptTmpl.Execute(&buf, struct {
		Question     string
		Topic        string
		LanguageName string
	}{
		Question:     question,
		Topic:        topic,
		LanguageName: languageName(lang),
	})
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}

	var result hydeResult
	if err := genai.GenerateJSON(ctx, r.gen, buf.String(), &result); err != nil {
		return "", err
	}
	return result.Hypothetical, nil
}

func languageName(lang types.Language) string {
	switch lang {
	case types.LangArabic:
		return "Arabic"
	case types.LangEnglish:
		return "English"
	default:
		return string(lang)
	}
}
