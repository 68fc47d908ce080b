// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package synthesize turns per-issue retrieval results into findings
// and combines the findings into a single verified opinion. Per-issue
// analysis uses text generation with a deterministic fallback; opinion
// assembly and verification are pure rules so two runs over the same
// findings produce the same opinion.
package synthesize

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/pdiddy/statute-engine/internal/genai"
	"github.com/pdiddy/statute-engine/pkg/types"
)

// IssueResult carries everything the synthesizer needs about one
// completed issue: the finding plus the retrieval context it came from.
type IssueResult struct {
	Issue         types.Issue
	Finding       types.Finding
	Passages      []types.Passage
	CoverageScore float64
	MandatoryGap  bool
	StopReason    types.StopReason
}

const analysisPromptTmpl = `You are a legal analyst. Answer the research question below using ONLY the numbered statutory passages provided. Do not rely on outside knowledge.

Question: {{.Question}}

Passages:
{{range .Passages}}[{{.SourceID}}] (law {{.LawID}}, article {{.Article}}, relevance {{printf "%.2f" .Similarity}})
{{.Text}}

{{end}}Respond with a single JSON object and nothing else:
{"verdict": "supported" | "not_supported" | "unclear" | "needs_more_info", "confidence": <number 0..1>, "cited_passage_ids": ["..."], "rationale": "<one short paragraph>"}

Every claim in the rationale must be backed by a passage id listed in cited_passage_ids. If the passages do not answer the question, say so with verdict "needs_more_info" and cite nothing.`

// analysisPassageCap bounds the prompt size for passage-heavy issues.
const analysisPassageCap = 12

var analysisTmpl = template.Must(template.New("analysis").Parse(analysisPromptTmpl))

type analysisResult struct {
	Verdict         string   `json:"verdict"`
	Confidence      float64  `json:"confidence"`
	CitedPassageIDs []string `json:"cited_passage_ids"`
	Rationale       string   `json:"rationale"`
}

func (r *analysisResult) Validate() error {
	switch types.Verdict(r.Verdict) {
	case types.VerdictSupported, types.VerdictNotSupported, types.VerdictUnclear, types.VerdictNeedsMore:
	default:
		return fmt.Errorf("unknown verdict %q", r.Verdict)
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("confidence %v out of range", r.Confidence)
	}
	if r.Rationale == "" {
		return fmt.Errorf("missing rationale")
	}
	return nil
}

// AnalyzeIssue produces a finding for one issue from its retrieved
// passages. Citations pointing outside the retrieved set are dropped at
// this boundary; the verifier treats the drop as a concern later if it
// empties the citation list. Generation failures fall back to a
// deterministic heuristic so a case never fails on a single issue.
func AnalyzeIssue(ctx context.Context, gen genai.Generator, res *IssueResult) types.Finding {
	issue := res.Issue
	if len(res.Passages) == 0 {
		return types.Finding{
			IssueID:    issue.ID,
			Verdict:    types.VerdictNeedsMore,
			Confidence: 0.1,
			Rationale:  "no relevant statutory passages were retrieved for this question",
		}
	}

	passages := res.Passages
	if len(passages) > analysisPassageCap {
		passages = passages[:analysisPassageCap]
	}

	var buf bytes.Buffer
	err := analysisTmpl.Execute(&buf, struct {
		Question string
		Passages []types.Passage
	}{Question: issue.Question, Passages: passages})

	var parsed analysisResult
	if err == nil {
		err = genai.GenerateJSON(ctx, gen, buf.String(), &parsed)
	}
	if err != nil {
		return deterministicFinding(res)
	}

	known := make(map[string]bool, len(res.Passages))
	for _, p := range res.Passages {
		known[p.SourceID] = true
	}
	var cited []string
	for _, id := range parsed.CitedPassageIDs {
		if known[id] {
			cited = append(cited, id)
		}
	}

	return types.Finding{
		IssueID:         issue.ID,
		Verdict:         types.Verdict(parsed.Verdict),
		Confidence:      parsed.Confidence,
		CitedPassageIDs: cited,
		Rationale:       strings.TrimSpace(parsed.Rationale),
	}
}

// deterministicFinding grades an issue purely from retrieval signals.
// It never asserts validity: without generation the best it can say is
// that material was or was not found.
func deterministicFinding(res *IssueResult) types.Finding {
	var sum float64
	for _, p := range res.Passages {
		sum += p.Similarity
	}
	avg := sum / float64(len(res.Passages))

	verdict := types.VerdictUnclear
	if avg < 0.4 && res.CoverageScore < 0.4 {
		verdict = types.VerdictNeedsMore
	}

	cited := make([]string, 0, 3)
	for i, p := range res.Passages {
		if i == 3 {
			break
		}
		cited = append(cited, p.SourceID)
	}

	conf := avg * res.CoverageScore
	if conf < 0.1 {
		conf = 0.1
	}
	return types.Finding{
		IssueID:         res.Issue.ID,
		Verdict:         verdict,
		Confidence:      conf,
		CitedPassageIDs: cited,
		Rationale: fmt.Sprintf("automated assessment: %d passages retrieved, mean relevance %.2f, checklist coverage %.2f; manual review recommended",
			len(res.Passages), avg, res.CoverageScore),
	}
}

// priorityWeight orders findings by how much they move the case.
func priorityWeight(p types.Priority) float64 {
	switch p {
	case types.PriorityCritical:
		return 3
	case types.PriorityImportant:
		return 2
	default:
		return 1
	}
}

const (
	confidenceFloor    = 0.1
	mandatoryGapCap    = 0.6
	limitedResearchCap = 0.6
	groundingPenalty   = 0.2
)

// Synthesize combines per-issue results into one opinion and runs the
// verification pass over it. The mapping from findings to verdict and
// bucket is pure rules; no generation is involved at this level.
func Synthesize(brief *types.CaseBrief, results []*IssueResult, trace *types.ResearchTrace) types.Opinion {
	sorted := make([]*IssueResult, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Issue.ID < sorted[j].Issue.ID })

	op := types.Opinion{
		CaseID:    brief.CaseID,
		CreatedAt: time.Now().UTC(),
	}

	var (
		totalWeight, supportWeight, confSum float64
		criticalFail                        bool
		anyNotSupported                     bool
		anyUnresolved                       bool
		anyPassages                         bool
		grounded                            int
		citationSet                         = map[string]bool{}
		verdictsByCategory                  = map[string][]types.Verdict{}
	)

	for _, r := range sorted {
		op.Findings = append(op.Findings, r.Finding)
		if len(r.Passages) > 0 {
			anyPassages = true
		}

		w := priorityWeight(r.Issue.Priority)
		totalWeight += w
		confSum += w * r.Finding.Confidence

		switch r.Finding.Verdict {
		case types.VerdictSupported:
			supportWeight += w
		case types.VerdictNotSupported:
			anyNotSupported = true
			if r.Issue.Priority == types.PriorityCritical {
				criticalFail = true
			}
		default:
			anyUnresolved = true
		}

		verdictsByCategory[r.Issue.Category] = append(verdictsByCategory[r.Issue.Category], r.Finding.Verdict)

		if len(r.Finding.CitedPassageIDs) > 0 {
			allInTrace := true
			for _, id := range r.Finding.CitedPassageIDs {
				if trace != nil && !trace.HasPassage(id) {
					allInTrace = false
					op.Concerns = append(op.Concerns,
						fmt.Sprintf("finding for issue %s cites passage %s that does not appear in the research trace", r.Finding.IssueID, id))
					continue
				}
				citationSet[id] = true
			}
			if allInTrace {
				grounded++
			}
		}

		if r.StopReason == types.StopBudgetExhausted || r.StopReason == types.StopMaxIterations {
			op.LimitedResearch = true
		}
		if r.MandatoryGap {
			op.Concerns = append(op.Concerns,
				fmt.Sprintf("issue %s ended with mandatory checklist topics weak or missing", r.Issue.ID))
		}
	}

	if len(sorted) > 0 {
		op.GroundingScore = float64(grounded) / float64(len(sorted))
		op.Confidence = confSum / totalWeight
	}

	for id := range citationSet {
		op.Citations = append(op.Citations, id)
	}
	sort.Strings(op.Citations)

	// Contradiction check: the same category both supported and not
	// supported means the findings disagree with each other.
	for _, cat := range sortedKeys(verdictsByCategory) {
		var sup, not bool
		for _, v := range verdictsByCategory[cat] {
			sup = sup || v == types.VerdictSupported
			not = not || v == types.VerdictNotSupported
		}
		if sup && not {
			op.Concerns = append(op.Concerns, fmt.Sprintf("contradictory findings within category %s", cat))
			op.Confidence -= groundingPenalty
		}
	}

	switch {
	case criticalFail:
		op.Verdict = types.VerdictNotSupported
		op.Bucket = types.BucketInvalid
		op.Recommendations = append(op.Recommendations, "a critical legal requirement is not met; the instrument should be rejected or corrected before acceptance")
	case !anyPassages:
		op.Verdict = types.VerdictUnclear
		op.Bucket = types.BucketNeedsReview
		op.Confidence = confidenceFloor
		op.Concerns = append(op.Concerns, "no statutory passages were retrieved for any issue")
		op.Recommendations = append(op.Recommendations, "refer the case for manual legal review")
	case anyNotSupported:
		op.Verdict = types.VerdictUnclear
		op.Bucket = types.BucketNeedsReview
		op.Recommendations = append(op.Recommendations, "one or more requirements are not met; refer for manual legal review")
	case anyUnresolved && totalWeight > 0 && supportWeight/totalWeight >= 0.5:
		op.Verdict = types.VerdictSupported
		op.Bucket = types.BucketValidWithConds
		op.Recommendations = append(op.Recommendations, "resolve the open supplementary questions before relying on this opinion")
	case anyUnresolved:
		op.Verdict = types.VerdictUnclear
		op.Bucket = types.BucketNeedsReview
		op.Recommendations = append(op.Recommendations, "coverage of the legal checklist is incomplete; refer for manual legal review")
	default:
		op.Verdict = types.VerdictSupported
		op.Bucket = types.BucketValid
	}

	// Verification demotions. Grounding failures and incomplete
	// mandatory coverage cap how confident the opinion can claim to be.
	if op.GroundingScore < 1 && len(sorted) > 0 {
		op.Confidence -= groundingPenalty * (1 - op.GroundingScore)
	}
	hasMandatoryGap := false
	for _, r := range sorted {
		if r.MandatoryGap {
			hasMandatoryGap = true
		}
	}
	if hasMandatoryGap && op.Confidence > mandatoryGapCap {
		op.Confidence = mandatoryGapCap
	}
	if op.LimitedResearch {
		if op.Confidence > limitedResearchCap {
			op.Confidence = limitedResearchCap
		}
		op.Concerns = append(op.Concerns, "research ended on a hard budget; the checklist may be incompletely explored")
	}
	if op.Confidence < confidenceFloor {
		op.Confidence = confidenceFloor
	}

	return op
}

func sortedKeys(m map[string][]types.Verdict) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
