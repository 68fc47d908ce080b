// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/statute-engine/pkg/types"
)

// SearchOptions holds parameters for corpus keyword queries.
type SearchOptions struct {
	// Query is the keyword search string: FTS5 syntax when the index
	// is available, whitespace-separated substring terms otherwise.
	Query string

	// Language filters by corpus partition. Empty searches both.
	Language types.Language

	// LawID filters by law.
	LawID string

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// IsEmpty reports whether the query has no search terms or filters.
func (o SearchOptions) IsEmpty() bool {
	return o.Query == "" && o.Language == "" && o.LawID == ""
}

// Search runs a keyword query over the corpus. It uses the FTS5 index
// when the driver was built with it and degrades to substring matching
// otherwise. This backs the CLI corpus inspection command; research
// retrieval goes through the vector search service instead.
func (s *Store) Search(ctx context.Context, opts SearchOptions) ([]types.Passage, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb     strings.Builder
		args   []any
		useFTS = opts.Query != "" && s.ftsAvailable
	)

	switch {
	case useFTS:
		qb.WriteString(
			`SELECT p.source_id, p.law_id, p.article, p.language, p.text, p.alt_text, p.topics
			FROM passages_fts
			JOIN passages p ON p.rowid = passages_fts.rowid
			WHERE passages_fts MATCH ?`)
		args = append(args, opts.Query)
	case opts.Query != "":
		qb.WriteString(
			`SELECT p.source_id, p.law_id, p.article, p.language, p.text, p.alt_text, p.topics
			FROM passages p
			WHERE 1=1`)
		for _, term := range strings.Fields(opts.Query) {
			qb.WriteString(` AND (p.text LIKE ? OR p.alt_text LIKE ?)`)
			pattern := "%" + term + "%"
			args = append(args, pattern, pattern)
		}
	default:
		qb.WriteString(
			`SELECT p.source_id, p.law_id, p.article, p.language, p.text, p.alt_text, p.topics
			FROM passages p
			WHERE 1=1`)
	}

	if opts.Language != "" {
		qb.WriteString(` AND p.language = ?`)
		args = append(args, string(opts.Language))
	}

	if opts.LawID != "" {
		qb.WriteString(` AND p.law_id = ?`)
		args = append(args, opts.LawID)
	}

	if useFTS {
		qb.WriteString(` ORDER BY passages_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY p.law_id, p.article, p.language`)
	}

	qb.WriteString(` LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying corpus: %w", err)
	}
	defer rows.Close()

	var results []types.Passage
	for rows.Next() {
		p, err := scanPassage(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		results = append(results, *p)
	}

	return results, rows.Err()
}
