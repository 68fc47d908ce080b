// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pdiddy/statute-engine/internal/httputil"
	"github.com/pdiddy/statute-engine/pkg/types"
)

// HTTPSearcher queries the external vector search service. The service
// is partitioned by language; every request names the partition.
type HTTPSearcher struct {
	Client *http.Client
	Config types.SearchConfig
}

// searchRequest is the request body for the vector search service.
type searchRequest struct {
	Vector    []float32 `json:"vector"`
	Language  string    `json:"language"`
	Threshold float64   `json:"similarity_threshold"`
	Limit     int       `json:"limit"`
}

// searchResponse is the response body from the vector search service.
type searchResponse struct {
	Results []searchHit `json:"results"`
}

// searchHit is one ranked passage in the service response.
type searchHit struct {
	SourceID   string   `json:"source_id"`
	LawID      string   `json:"law_id"`
	Article    string   `json:"article"`
	Text       string   `json:"text"`
	AltText    string   `json:"alt_text"`
	Similarity float64  `json:"similarity"`
	Topics     []string `json:"topics"`
}

// Search posts the vector to the service's search endpoint and maps the
// hits to passages. Similarities are calibrated with the per-language
// score scale and clamped into [0,1] so every downstream consumer sees
// one scale.
func (s *HTTPSearcher) Search(ctx context.Context, vector []float32, lang types.Language, threshold float64, limit int) ([]types.Passage, error) {
	if s.Config.Endpoint == "" {
		return nil, fmt.Errorf("vector search endpoint not configured")
	}

	body, err := json.Marshal(searchRequest{
		Vector:    vector,
		Language:  string(lang),
		Threshold: threshold,
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.Config.UserAgent != "" {
		req.Header.Set("User-Agent", s.Config.UserAgent)
	}

	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: s.Config.Timeout}
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("vector search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vector search returned HTTP %d", resp.StatusCode)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing vector search response: %w", err)
	}

	scale := 1.0
	if v, ok := s.Config.ScoreScale[lang]; ok && v > 0 {
		scale = v
	}

	results := make([]types.Passage, 0, len(sr.Results))
	for _, hit := range sr.Results {
		sim := hit.Similarity * scale
		if sim < 0 {
			sim = 0
		} else if sim > 1 {
			sim = 1
		}
		results = append(results, types.Passage{
			SourceID:   hit.SourceID,
			LawID:      hit.LawID,
			Article:    hit.Article,
			Language:   lang,
			Text:       hit.Text,
			AltText:    hit.AltText,
			Similarity: sim,
			Topics:     hit.Topics,
			Provenance: types.ProvenanceSearch,
		})
	}
	return results, nil
}
