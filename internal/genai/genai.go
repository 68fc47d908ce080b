// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package genai abstracts the external text generation and embedding
// services. Each call site defines its own typed result struct and
// validates it at the boundary; malformed output is retried once with a
// stricter instruction before the caller falls back to a deterministic
// result.
package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Generator produces free-form text for a prompt. Implementations handle
// their own per-call timeout and transport retries; schema enforcement
// happens in GenerateJSON.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ErrInvalidOutput marks generation output that failed schema validation
// after the stricter retry. Callers match it with errors.Is and fall
// back to their deterministic minimal result.
var ErrInvalidOutput = errors.New("generation output failed validation")

// Validator is implemented by the typed result struct of each call site.
type Validator interface {
	Validate() error
}

// strictReminder is appended to the prompt on the second attempt when
// the first response failed to parse or validate.
const strictReminder = "\n\nYour previous response was not valid. Respond with ONLY a " +
	"single JSON object matching the requested schema. No prose, no markdown fences, " +
	"no text before or after the JSON object."

// GenerateJSON calls the generator, decodes the response into out, and
// validates it. On a parse or validation failure it retries once with a
// stricter instruction appended; a second failure returns an error
// wrapping ErrInvalidOutput.
func GenerateJSON(ctx context.Context, g Generator, prompt string, out Validator) error {
	if err := generateOnce(ctx, g, prompt, out); err == nil {
		return nil
	} else if !errors.Is(err, ErrInvalidOutput) {
		return err
	}

	if err := generateOnce(ctx, g, prompt+strictReminder, out); err != nil {
		if errors.Is(err, ErrInvalidOutput) {
			return fmt.Errorf("after strict retry: %w", err)
		}
		return err
	}
	return nil
}

func generateOnce(ctx context.Context, g Generator, prompt string, out Validator) error {
	text, err := g.Generate(ctx, prompt)
	if err != nil {
		return err
	}

	cleaned := StripFences(text)
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return fmt.Errorf("parsing response JSON: %w: %w", err, ErrInvalidOutput)
	}
	if err := out.Validate(); err != nil {
		return fmt.Errorf("%v: %w", err, ErrInvalidOutput)
	}
	return nil
}

// StripFences removes a surrounding Markdown code fence, which some
// models add around JSON despite instructions.
func StripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	if i := strings.LastIndex(trimmed, "```"); i >= 0 {
		trimmed = trimmed[:i]
	}
	return strings.TrimSpace(trimmed)
}
