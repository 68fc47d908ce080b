// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package orchestrate drives retrieval for one issue through an explicit
// state machine: broad retrieval, gap filling, reference expansion,
// done. Every transition is recorded in the research trace, and hard
// caps on iterations, passages, and wall-clock time always dominate the
// soft coverage and confidence thresholds.
package orchestrate

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pdiddy/statute-engine/internal/coverage"
	"github.com/pdiddy/statute-engine/internal/crossref"
	"github.com/pdiddy/statute-engine/internal/reformulate"
	"github.com/pdiddy/statute-engine/internal/retrieval"
	"github.com/pdiddy/statute-engine/internal/rtrace"
	"github.com/pdiddy/statute-engine/pkg/types"
)

// Phase names an orchestrator state.
type Phase string

const (
	PhaseBroadRetrieval     Phase = "broad_retrieval"
	PhaseGapFilling         Phase = "gap_filling"
	PhaseReferenceExpansion Phase = "reference_expansion"
	PhaseDone               Phase = "done"
)

// RunState is the accumulated state of one orchestrator run. It is
// mutable during the run and immutable once the run reaches done; the
// synthesizer only reads completed states.
type RunState struct {
	Issue        types.Issue
	Iterations   int
	Passages     map[string]types.Passage
	Coverage     *coverage.Tracker
	QueriesTried []types.Query
	StartedAt    time.Time
	StopReason   types.StopReason
}

// PassageList returns the merged passages ordered by similarity
// descending, source id ascending for ties, so downstream consumers see
// a deterministic order.
func (s *RunState) PassageList() []types.Passage {
	list := make([]types.Passage, 0, len(s.Passages))
	for _, p := range s.Passages {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Similarity != list[j].Similarity {
			return list[i].Similarity > list[j].Similarity
		}
		return list[i].SourceID < list[j].SourceID
	})
	return list
}

// HasPassage reports whether the run retrieved the passage.
func (s *RunState) HasPassage(sourceID string) bool {
	_, ok := s.Passages[sourceID]
	return ok
}

// avgSimilarity returns the mean similarity over all passages and over
// the top-k passages.
func (s *RunState) avgSimilarity(topK int) (avg, topAvg float64) {
	list := s.PassageList()
	if len(list) == 0 {
		return 0, 0
	}
	var sum float64
	for _, p := range list {
		sum += p.Similarity
	}
	avg = sum / float64(len(list))

	if topK > len(list) {
		topK = len(list)
	}
	var topSum float64
	for _, p := range list[:topK] {
		topSum += p.Similarity
	}
	topAvg = topSum / float64(topK)
	return avg, topAvg
}

// Orchestrator runs the retrieval state machine for issues.
type Orchestrator struct {
	reformulator *reformulate.Reformulator
	client       *retrieval.Client
	lookup       retrieval.Lookup
	cfg          types.ResearchConfig
}

// New builds an orchestrator. The config is normalized once here and
// passed nowhere else.
func New(reformulator *reformulate.Reformulator, client *retrieval.Client, lookup retrieval.Lookup, cfg types.ResearchConfig) *Orchestrator {
	return &Orchestrator{
		reformulator: reformulator,
		client:       client,
		lookup:       lookup,
		cfg:          cfg.WithDefaults(),
	}
}

// Run drives the state machine for one issue until a stop condition
// fires, recording every iteration through the issue's recorder. It
// always returns a terminal state: external-service failures degrade
// single iterations, never the run.
func (o *Orchestrator) Run(ctx context.Context, issue types.Issue, reqs []coverage.Requirement, rec *rtrace.Recorder) *RunState {
	state := &RunState{
		Issue:     issue,
		Passages:  make(map[string]types.Passage),
		Coverage:  coverage.NewTracker(reqs, o.cfg.HighSimilarity),
		StartedAt: time.Now().UTC(),
	}

	ctx, cancel := context.WithDeadline(ctx, state.StartedAt.Add(o.cfg.MaxElapsed))
	defer cancel()

	// Broad retrieval: every seed query of the issue, merged into one set.
	o.runIteration(ctx, state, rec, PhaseBroadRetrieval, o.reformulator.ForIssue(ctx, issue))

	// Gap filling: target the weakest topic until a stop condition or
	// diminishing returns.
	diminished := false
	for state.StopReason == "" && !diminished {
		if reason, stopped := o.checkStop(ctx, state); stopped {
			state.StopReason = reason
			break
		}

		topic, ok := state.Coverage.WeakestTopic()
		if !ok {
			// Checklist fully covered; the coverage check will stop
			// the loop on the next pass.
			break
		}

		q := o.reformulator.ForGap(ctx, issue, topic, state.Coverage.SuggestQuery(topic))
		added := o.runIteration(ctx, state, rec, PhaseGapFilling, []types.Query{q})

		switch {
		case added == 0:
			state.StopReason = types.StopNoNewPassages
		case added == 1:
			diminished = true
		}
	}

	// Reference expansion: once, on the final passage set.
	o.expandReferences(ctx, state, rec)

	if state.StopReason == "" {
		if reason, stopped := o.checkStop(ctx, state); stopped {
			state.StopReason = reason
		} else if diminished {
			state.StopReason = types.StopDiminishingReturns
		} else {
			state.StopReason = types.StopNoNewPassages
		}
	}

	rec.SetStopReason(string(state.StopReason))
	return state
}

// runIteration performs one retrieval iteration: issue the queries,
// merge results, update coverage, and record the transition. It returns
// the number of net-new passages.
func (o *Orchestrator) runIteration(ctx context.Context, state *RunState, rec *rtrace.Recorder, phase Phase, queries []types.Query) int {
	state.Iterations++
	before := state.Coverage.Score()

	var (
		batch      []types.Passage
		passageIDs []string
		note       string
	)
	for _, q := range queries {
		state.QueriesTried = append(state.QueriesTried, q)
		passages, err := o.client.Retrieve(ctx, q)
		if err != nil {
			// Soft failure: skip this query for this iteration only.
			note = appendNote(note, fmt.Sprintf("query %q skipped: %v", q.Text, err))
			continue
		}
		for _, p := range passages {
			passageIDs = append(passageIDs, p.SourceID)
		}
		batch = append(batch, passages...)
	}

	added := retrieval.Merge(state.Passages, batch)
	state.Coverage.Observe(batch)

	rec.Record(types.TraceEntry{
		Iteration:      state.Iterations,
		Phase:          string(phase),
		Queries:        queries,
		PassageIDs:     passageIDs,
		NewPassages:    added,
		CoverageBefore: before,
		CoverageAfter:  state.Coverage.Score(),
		Topics:         state.Coverage.Snapshot(),
		Note:           note,
	})

	return added
}

// expandReferences resolves in-text article references in the final
// passage set, one hop, bounded by the configured expansion cap.
func (o *Orchestrator) expandReferences(ctx context.Context, state *RunState, rec *rtrace.Recorder) {
	before := state.Coverage.Score()

	resolved, err := crossref.Expand(ctx, o.lookup, state.Passages, o.cfg.MaxExpansions)
	var note string
	if err != nil {
		note = fmt.Sprintf("expansion aborted: %v", err)
	}
	if len(resolved) == 0 && note == "" {
		return
	}

	added := retrieval.Merge(state.Passages, resolved)
	state.Coverage.Observe(resolved)

	ids := make([]string, 0, len(resolved))
	for _, p := range resolved {
		ids = append(ids, p.SourceID)
	}

	rec.Record(types.TraceEntry{
		Iteration:      state.Iterations + 1,
		Phase:          string(PhaseReferenceExpansion),
		PassageIDs:     ids,
		NewPassages:    added,
		CoverageBefore: before,
		CoverageAfter:  state.Coverage.Score(),
		Topics:         state.Coverage.Snapshot(),
		Note:           note,
	})
}

// checkStop evaluates the stop conditions in order. Hard caps come
// after the soft thresholds in evaluation order but dominate in effect:
// they are checked on every pass and cannot be outlasted.
func (o *Orchestrator) checkStop(ctx context.Context, state *RunState) (types.StopReason, bool) {
	if state.Coverage.Score() >= o.cfg.CoverageThreshold {
		return types.StopCoverageMet, true
	}

	if len(state.Passages) > 0 {
		avg, top3 := state.avgSimilarity(3)
		if avg >= o.cfg.MediumSimilarity && top3 >= o.cfg.HighSimilarity {
			return types.StopConfidenceMet, true
		}
	}

	if state.Iterations >= o.cfg.MaxIterations {
		return types.StopMaxIterations, true
	}
	if len(state.Passages) >= o.cfg.MaxPassages {
		return types.StopMaxPassages, true
	}
	if ctx.Err() != nil || time.Since(state.StartedAt) >= o.cfg.MaxElapsed {
		return types.StopBudgetExhausted, true
	}
	return "", false
}

func appendNote(note, add string) string {
	if note == "" {
		return add
	}
	return note + "; " + add
}
