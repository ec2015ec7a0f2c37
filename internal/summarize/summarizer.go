// Package summarize rewrites extracted table text as prose using an
// OpenAI-compatible chat model.
package summarize

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Config holds summarizer configuration.
type Config struct {
	APIKey  string
	Model   string // defaults to gpt-3.5-turbo
	BaseURL string // optional override for OpenAI-compatible endpoints
}

// Summarizer turns a table's raw text into a natural-language description
// that preserves the values and their row/column relationships.
type Summarizer struct {
	client *openai.Client
	model  string
}

// New creates a new table summarizer.
func New(cfg Config) (*Summarizer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-3.5-turbo"
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Summarizer{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}, nil
}

const tablePrompt = `Adapt the following table to a concise natural language description of its contents. Keep every value and its relationship to the row and column it belongs to. Return only the description.

%s`

// SummarizeTable sends the table text to the model and returns the summary.
func (s *Summarizer) SummarizeTable(ctx context.Context, table string) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(tablePrompt, table)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
