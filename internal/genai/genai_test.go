package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pdiddy/statute-engine/pkg/types"
)

type scriptedGen struct {
	responses []string
	calls     int
	prompts   []string
}

func (g *scriptedGen) Generate(ctx context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	i := g.calls
	if i >= len(g.responses) {
		i = len(g.responses) - 1
	}
	g.calls++
	return g.responses[i], nil
}

type testResult struct {
	Value string `json:"value"`
}

func (r *testResult) Validate() error {
	if r.Value == "" {
		return fmt.Errorf("missing value")
	}
	return nil
}

func TestGenerateJSON_FirstAttemptSucceeds(t *testing.T) {
	gen := &scriptedGen{responses: []string{`{"value": "ok"}`}}

	var out testResult
	if err := GenerateJSON(context.Background(), gen, "p", &out); err != nil {
		t.Fatalf("GenerateJSON() error: %v", err)
	}
	if out.Value != "ok" {
		t.Errorf("value = %q, want ok", out.Value)
	}
	if gen.calls != 1 {
		t.Errorf("generator called %d times, want 1", gen.calls)
	}
}

func TestGenerateJSON_StrictRetryRecovers(t *testing.T) {
	gen := &scriptedGen{responses: []string{
		"Sure! Here is the answer you asked for.",
		`{"value": "ok"}`,
	}}

	var out testResult
	if err := GenerateJSON(context.Background(), gen, "p", &out); err != nil {
		t.Fatalf("GenerateJSON() error: %v", err)
	}
	if gen.calls != 2 {
		t.Errorf("generator called %d times, want 2", gen.calls)
	}
	if len(gen.prompts) == 2 && gen.prompts[1] == gen.prompts[0] {
		t.Error("strict retry reused the original prompt without the stricter instruction")
	}
}

func TestGenerateJSON_TwoFailuresReturnErrInvalidOutput(t *testing.T) {
	gen := &scriptedGen{responses: []string{"not json"}}

	var out testResult
	err := GenerateJSON(context.Background(), gen, "p", &out)
	if !errors.Is(err, ErrInvalidOutput) {
		t.Errorf("error = %v, want ErrInvalidOutput", err)
	}
}

func TestGenerateJSON_ValidationFailureRetries(t *testing.T) {
	// Parses fine but fails the contract; the retry must still happen.
	gen := &scriptedGen{responses: []string{`{"value": ""}`, `{"value": "ok"}`}}

	var out testResult
	if err := GenerateJSON(context.Background(), gen, "p", &out); err != nil {
		t.Fatalf("GenerateJSON() error: %v", err)
	}
	if gen.calls != 2 {
		t.Errorf("generator called %d times, want 2", gen.calls)
	}
}

type failGen struct{}

func (failGen) Generate(ctx context.Context, prompt string) (string, error) {
	return "", fmt.Errorf("transport failure")
}

func TestGenerateJSON_TransportErrorPropagates(t *testing.T) {
	var out testResult
	err := GenerateJSON(context.Background(), failGen{}, "p", &out)
	if err == nil {
		t.Fatal("GenerateJSON() succeeded despite transport failure")
	}
	if errors.Is(err, ErrInvalidOutput) {
		t.Error("transport failure reported as invalid output")
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain json", `{"a": 1}`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"bare fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"surrounding whitespace", "  {\"a\": 1}\n", `{"a": 1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripFences(tt.in); got != tt.want {
				t.Errorf("StripFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestAnthropicBackend_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("x-api-key = %q, want test-key", got)
		}
		if got := r.Header.Get("anthropic-version"); got == "" {
			t.Error("anthropic-version header missing")
		}

		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if len(req.Messages) != 1 || req.Messages[0].Content != "the prompt" {
			t.Errorf("messages = %+v, want single user message with the prompt", req.Messages)
		}

		json.NewEncoder(w).Encode(anthropicResponse{Content: []anthropicContent{
			{Type: "text", Text: "the answer"},
		}})
	}))
	defer srv.Close()

	oldURL := anthropicAPIURL
	anthropicAPIURL = srv.URL
	defer func() { anthropicAPIURL = oldURL }()

	b := &AnthropicBackend{
		Config: types.GenAIConfig{Model: "claude-test", APIKey: "test-key"},
		Client: srv.Client(),
	}
	got, err := b.Generate(context.Background(), "the prompt")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if got != "the answer" {
		t.Errorf("Generate() = %q, want the answer", got)
	}
}

func TestAnthropicBackend_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "overloaded"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	oldURL := anthropicAPIURL
	anthropicAPIURL = srv.URL
	defer func() { anthropicAPIURL = oldURL }()

	b := &AnthropicBackend{Config: types.GenAIConfig{Model: "claude-test"}, Client: srv.Client()}
	if _, err := b.Generate(context.Background(), "p"); err == nil {
		t.Error("Generate() succeeded on HTTP 400, want error")
	}
}
