// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// StopReason names the stop condition that ended an issue's retrieval
// run. The orchestrator records one per issue; the synthesizer reads
// them to decide whether research was budget-limited.
type StopReason string

const (
	StopCoverageMet        StopReason = "coverage_threshold_met"
	StopConfidenceMet      StopReason = "confidence_threshold_met"
	StopMaxIterations      StopReason = "max_iterations_reached"
	StopMaxPassages        StopReason = "max_passages_reached"
	StopBudgetExhausted    StopReason = "budget_exhausted"
	StopNoNewPassages      StopReason = "no_new_passages"
	StopDiminishingReturns StopReason = "diminishing_returns"
)

// TraceEntry records one retrieval iteration for one issue: the queries
// tried, the passages retrieved, and the coverage movement they caused.
type TraceEntry struct {
	// IssueID names the issue the iteration belongs to.
	IssueID string `json:"issue_id" yaml:"issue_id"`

	// Iteration is the 1-based iteration number within the issue's run.
	Iteration int `json:"iteration" yaml:"iteration"`

	// Phase is the orchestrator phase that produced the entry
	// (broad_retrieval, gap_filling, reference_expansion).
	Phase string `json:"phase" yaml:"phase"`

	// Queries lists the queries issued during the iteration.
	Queries []Query `json:"queries,omitempty" yaml:"queries,omitempty"`

	// PassageIDs lists the source ids retrieved during the iteration,
	// including duplicates of already-known passages.
	PassageIDs []string `json:"passage_ids,omitempty" yaml:"passage_ids,omitempty"`

	// NewPassages counts net-new passages added to the merged set.
	NewPassages int `json:"new_passages" yaml:"new_passages"`

	// CoverageBefore and CoverageAfter are the aggregate coverage scores
	// around the iteration.
	CoverageBefore float64 `json:"coverage_before" yaml:"coverage_before"`
	CoverageAfter  float64 `json:"coverage_after" yaml:"coverage_after"`

	// Topics snapshots each topic's status after the iteration.
	Topics map[string]string `json:"topics,omitempty" yaml:"topics,omitempty"`

	// Note records soft failures (e.g. a skipped query after a search
	// timeout) that did not fail the run.
	Note string `json:"note,omitempty" yaml:"note,omitempty"`

	// Timestamp is when the iteration completed.
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// ResearchTrace is the append-only audit record for one case run. It is
// written incrementally by per-issue recorders and read-only after the
// case completes. Replaying a decision requires only this document.
type ResearchTrace struct {
	// RunID uniquely identifies the research run.
	RunID string `json:"run_id" yaml:"run_id"`

	// CaseID identifies the case researched.
	CaseID string `json:"case_id" yaml:"case_id"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at" yaml:"started_at"`

	// Entries lists iterations ordered by issue id, then iteration number.
	Entries []TraceEntry `json:"entries" yaml:"entries"`

	// StopReasons maps each issue id to the stop condition that ended
	// its retrieval run.
	StopReasons map[string]string `json:"stop_reasons" yaml:"stop_reasons"`
}

// HasPassage reports whether any trace entry recorded the passage id.
// This backs the grounding invariant: every passage cited by the opinion
// must appear in the trace.
func (t *ResearchTrace) HasPassage(sourceID string) bool {
	for _, e := range t.Entries {
		for _, id := range e.PassageIDs {
			if id == sourceID {
				return true
			}
		}
	}
	return false
}
