// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retrieval wraps the external embedding and vector search
// services behind a uniform query-to-ranked-passages contract, and owns
// the deterministic dedup merge of passage sets.
package retrieval

import (
	"context"
	"fmt"

	"github.com/pdiddy/statute-engine/pkg/types"
)

// Embedder turns text into a vector for the named corpus partition.
type Embedder interface {
	Embed(ctx context.Context, text string, lang types.Language) ([]float32, error)
}

// Searcher runs a nearest-neighbor search over one language partition
// and returns ranked passages with cosine similarities in [0,1].
type Searcher interface {
	Search(ctx context.Context, vector []float32, lang types.Language, threshold float64, limit int) ([]types.Passage, error)
}

// Lookup resolves a passage by law id and article number directly,
// without similarity search. A missing passage returns (nil, nil).
type Lookup interface {
	GetByReference(ctx context.Context, lawID, article string, lang types.Language) (*types.Passage, error)
}

// Client composes an Embedder and a Searcher into the retrieval step the
// orchestrator drives.
type Client struct {
	embedder Embedder
	searcher Searcher
	cfg      types.SearchConfig
}

// NewClient builds a retrieval client.
func NewClient(embedder Embedder, searcher Searcher, cfg types.SearchConfig) *Client {
	if cfg.Limit <= 0 {
		cfg.Limit = 10
	}
	return &Client{embedder: embedder, searcher: searcher, cfg: cfg}
}

// Retrieve embeds the query and searches the matching corpus partition.
// The hypothetical passage, when present, is what gets embedded; the
// literal text is kept for the trace only.
func (c *Client) Retrieve(ctx context.Context, q types.Query) ([]types.Passage, error) {
	if q.IsEmpty() {
		return nil, fmt.Errorf("query is empty")
	}

	vector, err := c.embedder.Embed(ctx, q.EmbeddingText(), q.Language)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	passages, err := c.searcher.Search(ctx, vector, q.Language, c.cfg.SimilarityThreshold, c.cfg.Limit)
	if err != nil {
		return nil, fmt.Errorf("searching %s partition: %w", q.Language, err)
	}

	for i := range passages {
		if passages[i].Provenance == "" {
			passages[i].Provenance = types.ProvenanceSearch
		}
	}
	return passages, nil
}

// Merge folds a retrieval batch into the accumulated passage set keyed
// by source id, keeping the highest similarity seen for duplicates, and
// returns the number of net-new passages. Merging the same batch twice
// is a no-op.
func Merge(set map[string]types.Passage, batch []types.Passage) int {
	added := 0
	for _, p := range batch {
		existing, ok := set[p.SourceID]
		if !ok {
			set[p.SourceID] = p
			added++
			continue
		}
		if p.Similarity > existing.Similarity {
			// Keep the original provenance: the first way a passage
			// entered the set is what the trace recorded.
			p.Provenance = existing.Provenance
			set[p.SourceID] = p
		}
	}
	return added
}
