// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// DecisionBucket is the coarse-grained case disposition.
type DecisionBucket string

const (
	BucketValid          DecisionBucket = "valid"
	BucketValidWithConds DecisionBucket = "valid_with_conditions"
	BucketInvalid        DecisionBucket = "invalid"
	BucketNeedsReview    DecisionBucket = "needs_review"
)

// Opinion is the final synthesized verdict for a case. It is immutable
// once emitted; every cited passage must appear in the case's research
// trace.
type Opinion struct {
	// CaseID identifies the case the opinion decides.
	CaseID string `json:"case_id" yaml:"case_id"`

	// Verdict is the overall verdict aggregated from per-issue findings.
	Verdict Verdict `json:"verdict" yaml:"verdict"`

	// Confidence is the calibrated overall confidence in [0,1].
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// Bucket is the case disposition derived from findings and confidence.
	Bucket DecisionBucket `json:"bucket" yaml:"bucket"`

	// Findings lists the per-issue conclusions the opinion rests on.
	Findings []Finding `json:"findings" yaml:"findings"`

	// Citations lists the source ids of every passage cited by any finding.
	Citations []string `json:"citations" yaml:"citations"`

	// Concerns lists verification concerns: grounding violations,
	// contradictions between findings, weak mandatory coverage.
	Concerns []string `json:"concerns,omitempty" yaml:"concerns,omitempty"`

	// Recommendations lists suggested follow-up actions for the reviewer.
	Recommendations []string `json:"recommendations,omitempty" yaml:"recommendations,omitempty"`

	// GroundingScore is the fraction of findings whose citations all
	// resolve to passages present in the research trace.
	GroundingScore float64 `json:"grounding_score" yaml:"grounding_score"`

	// LimitedResearch is set when any retrieval run stopped on an
	// exhausted budget, so the opinion carries a limited-research
	// disclaimer and reduced confidence.
	LimitedResearch bool `json:"limited_research,omitempty" yaml:"limited_research,omitempty"`

	// CreatedAt is the emission time.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}
