// Package assist wraps a text generation backend with prompts for match
// explanations and learning roadmaps.
package assist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = openai.GPT4oMini

// ErrNoChoices is returned when the backend answers with nothing.
var ErrNoChoices = errors.New("generator returned no choices")

// Options tunes one generation call.
type Options struct {
	// JSON asks the backend for a JSON object response.
	JSON      bool
	MaxTokens int
}

// Generator produces text for a prompt.
type Generator interface {
	GenerateText(ctx context.Context, prompt string, opts Options) (string, error)
}

// OpenAIGenerator is a Generator backed by the chat completions API.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator returns a generator for apiKey. baseURL selects an
// OpenAI compatible endpoint and may be empty.
func NewOpenAIGenerator(apiKey, model, baseURL string) (*OpenAIGenerator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &OpenAIGenerator{client: openai.NewClientWithConfig(cfg), model: model}, nil
}

// GenerateText implements Generator.
func (g *OpenAIGenerator) GenerateText(ctx context.Context, prompt string, opts Options) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens: opts.MaxTokens,
	}
	if opts.JSON {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}

const systemPrompt = "You help people swap skills in short one-to-one learning sessions. Be concise and concrete."
