// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rtrace builds the append-only research trace. Each issue's
// orchestrator writes through its own recorder (single writer, no
// locking); the recorders are assembled into one case-level trace after
// every orchestrator has finished, ordered deterministically.
package rtrace

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/statute-engine/pkg/types"
)

// Recorder collects trace entries for one issue's retrieval run.
type Recorder struct {
	issueID    string
	entries    []types.TraceEntry
	stopReason string
}

// NewRecorder builds a recorder for an issue.
func NewRecorder(issueID string) *Recorder {
	return &Recorder{issueID: issueID}
}

// Record appends one iteration entry. The recorder stamps the issue id
// and, when unset, the timestamp.
func (r *Recorder) Record(e types.TraceEntry) {
	e.IssueID = r.issueID
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	r.entries = append(r.entries, e)
}

// SetStopReason records the stop condition that ended the run.
func (r *Recorder) SetStopReason(reason string) {
	r.stopReason = reason
}

// StopReason returns the recorded stop condition, if any.
func (r *Recorder) StopReason() string {
	return r.stopReason
}

// Entries returns the recorded entries in append order.
func (r *Recorder) Entries() []types.TraceEntry {
	return r.entries
}

// Assemble merges per-issue recorders into the case trace, ordered by
// issue id, then iteration number, so exports are deterministic.
func Assemble(runID, caseID string, startedAt time.Time, recorders []*Recorder) *types.ResearchTrace {
	trace := &types.ResearchTrace{
		RunID:       runID,
		CaseID:      caseID,
		StartedAt:   startedAt,
		StopReasons: make(map[string]string, len(recorders)),
	}

	for _, r := range recorders {
		trace.Entries = append(trace.Entries, r.entries...)
		if r.stopReason != "" {
			trace.StopReasons[r.issueID] = r.stopReason
		}
	}

	sort.SliceStable(trace.Entries, func(i, j int) bool {
		a, b := trace.Entries[i], trace.Entries[j]
		if a.IssueID != b.IssueID {
			return a.IssueID < b.IssueID
		}
		return a.Iteration < b.Iteration
	})

	return trace
}

// ExportYAML writes the trace document to path.
func ExportYAML(trace *types.ResearchTrace, path string) error {
	data, err := yaml.Marshal(trace)
	if err != nil {
		return fmt.Errorf("marshaling trace YAML: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ExportJSON writes the trace document to path.
func ExportJSON(trace *types.ResearchTrace, path string) error {
	data, err := json.MarshalIndent(trace, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling trace JSON: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
