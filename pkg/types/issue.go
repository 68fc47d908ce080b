// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Priority tiers a researchable issue.
type Priority string

const (
	PriorityCritical      Priority = "critical"
	PriorityImportant     Priority = "important"
	PrioritySupplementary Priority = "supplementary"
)

// Verdict is the conclusion reached for one issue.
type Verdict string

const (
	VerdictSupported    Verdict = "supported"
	VerdictNotSupported Verdict = "not_supported"
	VerdictUnclear      Verdict = "unclear"
	VerdictNeedsMore    Verdict = "needs_more_info"
)

// Issue is one researchable legal sub-question. Follow-up issues carry
// an explicit ParentID and Depth instead of forming a recursive graph;
// the engine processes them through a work queue bounded by the
// configured maximum depth.
type Issue struct {
	// ID is a stable identifier, deterministic for a given brief
	// (e.g. "case-42/capacity").
	ID string `json:"id" yaml:"id"`

	// Category is the issue's topic category (usually the checklist topic).
	Category string `json:"category" yaml:"category"`

	// Question is the natural-language legal question to research.
	Question string `json:"question" yaml:"question"`

	// Priority tiers the issue: critical, important, or supplementary.
	Priority Priority `json:"priority" yaml:"priority"`

	// Topics lists the required topic areas this issue must cover.
	Topics []string `json:"topics" yaml:"topics"`

	// SeedQueries are 2-5 reformulated query seeds for broad retrieval.
	SeedQueries []string `json:"seed_queries" yaml:"seed_queries"`

	// Language is the corpus partition to research in.
	Language Language `json:"language" yaml:"language"`

	// ParentID links a follow-up issue to the finding that spawned it.
	// Empty for issues produced by initial decomposition.
	ParentID string `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`

	// Depth counts follow-up generations from the initial decomposition.
	Depth int `json:"depth" yaml:"depth"`
}

// Finding is the conclusion for one issue, produced once per issue after
// its retrieval run completes.
type Finding struct {
	// IssueID names the issue this finding concludes.
	IssueID string `json:"issue_id" yaml:"issue_id"`

	// Verdict is supported, not_supported, unclear, or needs_more_info.
	Verdict Verdict `json:"verdict" yaml:"verdict"`

	// Confidence is in [0,1].
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// CitedPassageIDs lists the source ids of passages supporting the
	// verdict. Every id must be present in the issue's retrieval state.
	CitedPassageIDs []string `json:"cited_passage_ids" yaml:"cited_passage_ids"`

	// Rationale explains the verdict in prose.
	Rationale string `json:"rationale" yaml:"rationale"`
}
