// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package crossref parses retrieved passage text for references to other
// articles and resolves them by direct lookup, giving the orchestrator
// one hop of citation-graph traversal without a full walk.
package crossref

import (
	"context"
	"regexp"
	"sort"

	"github.com/pdiddy/statute-engine/internal/retrieval"
	"github.com/pdiddy/statute-engine/pkg/types"
)

// Reference regex patterns. The corpus is bilingual, so both the Latin
// "Article N" conventions and the Arabic "المادة (N)" conventions are
// recognized.
var (
	// latinListRe matches "Article 5", "Art. 12", "Articles 5 and 7",
	// "articles (4), (6) and (9)".
	latinListRe = regexp.MustCompile(`(?i)\b(?:articles?|arts?\.)\s+(\(?\d+[a-z]?\)?(?:\s*(?:,|and|&)\s*\(?\d+[a-z]?\)?)*)`)

	// arabicListRe matches "المادة 5", "المادة (12)", "المادتين 4 و 7",
	// "المواد 3 و 5 و 9", including forms where a preposition attaches
	// to the definite article, such as "للمادتين 4 و 7" and "بالمادة 12".
	arabicListRe = regexp.MustCompile(`(?:ال|لل|بال|وال|فال|كال)(?:مادة|مادتين|مواد)\s*(\(?\d+\)?(?:\s*(?:,|و)\s*\(?\d+\)?)*)`)

	// articleNumberRe extracts the individual numbers from a matched list.
	articleNumberRe = regexp.MustCompile(`\d+[a-z]?`)
)

// ParseReferences scans text for article references and returns the
// distinct article numbers in order of first appearance.
func ParseReferences(text string) []string {
	seen := make(map[string]bool)
	var articles []string

	for _, listRe := range []*regexp.Regexp{latinListRe, arabicListRe} {
		for _, m := range listRe.FindAllStringSubmatch(text, -1) {
			for _, num := range articleNumberRe.FindAllString(m[1], -1) {
				if seen[num] {
					continue
				}
				seen[num] = true
				articles = append(articles, num)
			}
		}
	}
	return articles
}

// Expand resolves references found in the passage set that are not
// already present. References without an explicit law are resolved
// against the citing passage's own law, in the citing passage's
// language partition. Resolved passages carry a synthetic similarity of
// 1.0 and cross-reference provenance. Lookups that find nothing are
// ignored. At most maxExpansions passages are added.
func Expand(ctx context.Context, lookup retrieval.Lookup, set map[string]types.Passage, maxExpansions int) ([]types.Passage, error) {
	if maxExpansions <= 0 {
		return nil, nil
	}

	// Index what the set already holds so known articles are not
	// looked up again.
	type refKey struct {
		lawID   string
		article string
		lang    types.Language
	}
	known := make(map[refKey]bool, len(set))
	for _, p := range set {
		known[refKey{p.LawID, p.Article, p.Language}] = true
	}

	// Walk passages in sorted source-id order so expansion is
	// deterministic for a given passage set.
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var added []types.Passage
	for _, id := range ids {
		p := set[id]
		for _, article := range ParseReferences(p.Text + "\n" + p.AltText) {
			if len(added) >= maxExpansions {
				return added, nil
			}
			key := refKey{p.LawID, article, p.Language}
			if known[key] {
				continue
			}
			known[key] = true

			resolved, err := lookup.GetByReference(ctx, p.LawID, article, p.Language)
			if err != nil {
				return added, err
			}
			if resolved == nil {
				// Reference target not in the corpus: expected, skip.
				continue
			}

			resolved.Similarity = 1.0
			resolved.Provenance = types.ProvenanceCrossReference
			added = append(added, *resolved)
		}
	}
	return added, nil
}
