package retrieval

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pdiddy/statute-engine/pkg/types"
)

func searchServer(t *testing.T, hits []searchHit, capture *searchRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if capture != nil {
			if err := json.NewDecoder(r.Body).Decode(capture); err != nil {
				t.Errorf("decoding search request: %v", err)
			}
		}
		json.NewEncoder(w).Encode(searchResponse{Results: hits})
	}))
}

func TestHTTPSearcher_Search(t *testing.T) {
	var captured searchRequest
	srv := searchServer(t, []searchHit{
		{SourceID: "civil-code/art-85/ar", LawID: "civil-code", Article: "85", Text: "text", Similarity: 0.72, Topics: []string{"capacity"}},
	}, &captured)
	defer srv.Close()

	s := &HTTPSearcher{Client: srv.Client(), Config: types.SearchConfig{Endpoint: srv.URL}}
	got, err := s.Search(context.Background(), []float32{0.1, 0.2}, types.LangArabic, 0.4, 7)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}

	if captured.Language != "ar" || captured.Threshold != 0.4 || captured.Limit != 7 {
		t.Errorf("request = %+v, want language ar, threshold 0.4, limit 7", captured)
	}
	if len(got) != 1 {
		t.Fatalf("Search() returned %d passages, want 1", len(got))
	}
	p := got[0]
	if p.Language != types.LangArabic {
		t.Errorf("passage language = %q, want ar", p.Language)
	}
	if p.Similarity != 0.72 {
		t.Errorf("similarity = %v, want 0.72", p.Similarity)
	}
	if p.Provenance != types.ProvenanceSearch {
		t.Errorf("provenance = %q, want %q", p.Provenance, types.ProvenanceSearch)
	}
}

func TestHTTPSearcher_ScoreScaleAndClamp(t *testing.T) {
	srv := searchServer(t, []searchHit{
		{SourceID: "a", Similarity: 0.5},
		{SourceID: "b", Similarity: 0.9},
	}, nil)
	defer srv.Close()

	s := &HTTPSearcher{Client: srv.Client(), Config: types.SearchConfig{
		Endpoint:   srv.URL,
		ScoreScale: map[types.Language]float64{types.LangArabic: 1.2},
	}}
	got, err := s.Search(context.Background(), []float32{0.1}, types.LangArabic, 0, 10)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}

	if got[0].Similarity != 0.6 {
		t.Errorf("scaled similarity = %v, want 0.6", got[0].Similarity)
	}
	// Scaling must never push similarity outside [0,1].
	if got[1].Similarity != 1.0 {
		t.Errorf("clamped similarity = %v, want 1.0", got[1].Similarity)
	}
}

func TestHTTPSearcher_NoEndpoint(t *testing.T) {
	s := &HTTPSearcher{Config: types.SearchConfig{}}
	if _, err := s.Search(context.Background(), []float32{0.1}, types.LangEnglish, 0, 10); err == nil {
		t.Error("Search() without an endpoint succeeded, want error")
	}
}

func TestHTTPSearcher_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	s := &HTTPSearcher{Client: srv.Client(), Config: types.SearchConfig{Endpoint: srv.URL}}
	if _, err := s.Search(context.Background(), []float32{0.1}, types.LangEnglish, 0, 10); err == nil {
		t.Error("Search() succeeded on HTTP 400, want error")
	}
}
