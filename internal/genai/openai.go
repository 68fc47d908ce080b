// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package genai

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pdiddy/statute-engine/pkg/types"
)

// OpenAIBackend calls the OpenAI API for text generation and embeddings.
// It is the only backend that serves both roles; the Anthropic backend
// covers generation only.
type OpenAIBackend struct {
	cfg    types.GenAIConfig
	client *openai.Client
}

// NewOpenAIBackend builds a backend from the shared AI configuration.
func NewOpenAIBackend(cfg types.GenAIConfig) *OpenAIBackend {
	return &OpenAIBackend{cfg: cfg, client: openai.NewClient(cfg.APIKey)}
}

// Generate sends the prompt as a single user message and requests a
// JSON-object response, which suits the structured contracts every call
// site uses.
func (b *OpenAIBackend) Generate(ctx context.Context, prompt string) (string, error) {
	if b.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.CallTimeout)
		defer cancel()
	}

	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: b.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("calling OpenAI API: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI API returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Embed returns the embedding vector for the text. The language selects
// the partition downstream; the embedding model itself is multilingual,
// so one model serves both partitions.
func (b *OpenAIBackend) Embed(ctx context.Context, text string, _ types.Language) ([]float32, error) {
	if b.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.CallTimeout)
		defer cancel()
	}

	model := b.cfg.EmbeddingModel
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}

	resp, err := b.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(model),
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding API returned no data")
	}
	return resp.Data[0].Embedding, nil
}
