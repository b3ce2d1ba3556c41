// Package gemini adapts the Google Gemini API to the ADK model.LLM interface.
package gemini

import (
	"context"
	"fmt"
	"iter"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// Config for the Gemini model.
type Config struct {
	APIKey string
	Model  string
}

// Model wraps a genai client behind the ADK model.LLM interface.
type Model struct {
	name   string
	client *genai.Client
}

// NewModel creates a Gemini-backed model. The client is created eagerly so
// misconfiguration surfaces at startup rather than mid-conversation.
func NewModel(ctx context.Context, cfg Config) (*Model, error) {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Model{
		name:   cfg.Model,
		client: client,
	}, nil
}

func (m *Model) Name() string {
	return m.name
}

// GenerateContent forwards the ADK request to Gemini. The request config is
// already a genai config, so tools and system instructions pass through as-is.
func (m *Model) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	if stream {
		return func(yield func(*model.LLMResponse, error) bool) {
			for chunk, err := range m.client.Models.GenerateContentStream(ctx, m.name, req.Contents, req.Config) {
				if err != nil {
					yield(nil, err)
					return
				}
				resp, ok := toLLMResponse(chunk)
				if !ok {
					continue
				}
				if !yield(resp, nil) {
					return
				}
			}
		}
	}

	return func(yield func(*model.LLMResponse, error) bool) {
		result, err := m.client.Models.GenerateContent(ctx, m.name, req.Contents, req.Config)
		if err != nil {
			yield(nil, err)
			return
		}
		resp, ok := toLLMResponse(result)
		if !ok {
			yield(nil, fmt.Errorf("gemini returned no candidates"))
			return
		}
		yield(resp, nil)
	}
}

func toLLMResponse(result *genai.GenerateContentResponse) (*model.LLMResponse, bool) {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return nil, false
	}
	return &model.LLMResponse{
		Content: result.Candidates[0].Content,
	}, true
}

// Compile-time check that Model implements model.LLM
var _ model.LLM = (*Model)(nil)
