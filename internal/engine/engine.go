// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package engine runs a whole case: decompose the brief into issues,
// research each issue concurrently through the orchestrator, analyze
// the results into findings, process bounded follow-up issues, and
// synthesize the verified opinion with its research trace.
package engine

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/statute-engine/internal/coverage"
	"github.com/pdiddy/statute-engine/internal/decompose"
	"github.com/pdiddy/statute-engine/internal/genai"
	"github.com/pdiddy/statute-engine/internal/orchestrate"
	"github.com/pdiddy/statute-engine/internal/reformulate"
	"github.com/pdiddy/statute-engine/internal/retrieval"
	"github.com/pdiddy/statute-engine/internal/rtrace"
	"github.com/pdiddy/statute-engine/internal/synthesize"
	"github.com/pdiddy/statute-engine/pkg/types"
)

// Engine researches cases end to end.
type Engine struct {
	gen          genai.Generator
	decomposer   *decompose.Decomposer
	orchestrator *orchestrate.Orchestrator
	cfg          types.ResearchConfig
}

// New wires an engine from its collaborators. The same generator serves
// decomposition, query reformulation, and per-issue analysis.
func New(gen genai.Generator, client *retrieval.Client, lookup retrieval.Lookup, cfg types.ResearchConfig) *Engine {
	cfg = cfg.WithDefaults()
	return &Engine{
		gen:          gen,
		decomposer:   decompose.New(gen),
		orchestrator: orchestrate.New(reformulate.New(gen), client, lookup, cfg),
		cfg:          cfg,
	}
}

// CaseResult bundles the two artifacts a run produces.
type CaseResult struct {
	Opinion types.Opinion
	Trace   *types.ResearchTrace
}

// Run researches one case. The only caller-visible error is an invalid
// brief; every downstream failure degrades the opinion instead of
// failing the run. Progress lines go to w.
func (e *Engine) Run(ctx context.Context, brief *types.CaseBrief, w io.Writer) (*CaseResult, error) {
	if err := brief.Validate(); err != nil {
		return nil, fmt.Errorf("invalid case brief: %w", err)
	}

	runID := uuid.NewString()
	startedAt := time.Now().UTC()
	fmt.Fprintf(w, "Researching case %s (run %s)\n", brief.CaseID, runID)

	issues, err := e.decomposer.Decompose(ctx, brief)
	if err != nil {
		// Decomposition must not fail the case; fall back to the
		// checklist-derived issues.
		fmt.Fprintf(w, "  decomposition degraded (%v); using checklist issues\n", err)
		issues = decompose.Deterministic(brief)
	}
	fmt.Fprintf(w, "  %d issues to research\n", len(issues))

	profile := decompose.ProfileFor(brief.CaseType)
	mandatory := mandatoryTopics(profile, brief)

	var (
		mu        sync.Mutex
		recorders []*rtrace.Recorder
		results   []*synthesize.IssueResult
		queue     = issues
	)

	for len(queue) > 0 {
		batch := queue
		queue = nil

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.cfg.MaxConcurrentIssues)

		for _, issue := range batch {
			issue := issue
			g.Go(func() error {
				rec := rtrace.NewRecorder(issue.ID)
				state := e.orchestrator.Run(gctx, issue, requirementsFor(issue, mandatory), rec)

				res := &synthesize.IssueResult{
					Issue:         issue,
					Passages:      state.PassageList(),
					CoverageScore: state.Coverage.Score(),
					MandatoryGap:  state.Coverage.MandatoryWeakOrMissing(),
					StopReason:    state.StopReason,
				}
				res.Finding = synthesize.AnalyzeIssue(gctx, e.gen, res)

				mu.Lock()
				defer mu.Unlock()
				recorders = append(recorders, rec)
				results = append(results, res)
				if child, ok := followUp(issue, res, state.Coverage, e.cfg.MaxFollowUpDepth); ok {
					queue = append(queue, child)
				}
				return nil
			})
		}
		// Goroutines never return errors; degraded issues are carried
		// in their findings.
		_ = g.Wait()

		if len(queue) > 0 {
			fmt.Fprintf(w, "  %d follow-up issues queued\n", len(queue))
		}
	}

	trace := rtrace.Assemble(runID, brief.CaseID, startedAt, recorders)
	opinion := synthesize.Synthesize(brief, results, trace)

	fmt.Fprintf(w, "Verdict: %s (%s, confidence %.2f, grounding %.2f)\n",
		opinion.Verdict, opinion.Bucket, opinion.Confidence, opinion.GroundingScore)

	return &CaseResult{Opinion: opinion, Trace: trace}, nil
}

// mandatoryTopics flattens the profile's active checklist into a
// topic -> mandatory lookup.
func mandatoryTopics(profile decompose.Profile, brief *types.CaseBrief) map[string]bool {
	m := make(map[string]bool)
	for _, tr := range profile.ActiveTopics(brief) {
		m[tr.Topic] = tr.Mandatory
	}
	return m
}

// requirementsFor builds the per-issue coverage checklist from the
// issue's topics. Topics unknown to the profile inherit the issue's
// priority: critical issues treat every topic as mandatory.
func requirementsFor(issue types.Issue, mandatory map[string]bool) []coverage.Requirement {
	reqs := make([]coverage.Requirement, 0, len(issue.Topics))
	for _, topic := range issue.Topics {
		m, known := mandatory[topic]
		if !known {
			m = issue.Priority == types.PriorityCritical
		}
		reqs = append(reqs, coverage.Requirement{Topic: topic, Mandatory: m})
	}
	if len(reqs) == 0 {
		reqs = append(reqs, coverage.Requirement{Topic: issue.Category, Mandatory: true})
	}
	return reqs
}

// followUp spawns a child issue when a finding needs more information
// and the depth budget allows. The child narrows the question to the
// topics still weak or missing.
func followUp(issue types.Issue, res *synthesize.IssueResult, cov *coverage.Tracker, maxDepth int) (types.Issue, bool) {
	if res.Finding.Verdict != types.VerdictNeedsMore || issue.Depth >= maxDepth {
		return types.Issue{}, false
	}

	gaps := cov.Gaps()
	topics := make([]string, 0, len(gaps))
	seeds := make([]string, 0, len(gaps))
	for _, g := range gaps {
		topics = append(topics, g.Topic)
		seeds = append(seeds, cov.SuggestQuery(g.Topic))
	}
	if len(topics) == 0 {
		topics = issue.Topics
		seeds = issue.SeedQueries
	}
	sort.Strings(topics)

	return types.Issue{
		ID:          issue.ID + "/followup",
		Category:    issue.Category,
		Question:    fmt.Sprintf("%s (focus on: %s)", issue.Question, strings.Join(topics, ", ")),
		Priority:    issue.Priority,
		Topics:      topics,
		SeedQueries: seeds,
		Language:    issue.Language,
		ParentID:    issue.ID,
		Depth:       issue.Depth + 1,
	}, true
}
