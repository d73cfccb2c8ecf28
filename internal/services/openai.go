package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAICompleter talks to any OpenAI-compatible chat endpoint.
type OpenAICompleter struct {
	llm    llms.Model
	bucket tokenBucket
}

func NewOpenAICompleter(baseURL, token, model string, concurrentReqs int) (*OpenAICompleter, error) {
	// Local OpenAI-compatible servers ignore the token but the client requires one.
	if token == "" {
		token = "unused"
	}
	opts := []openai.Option{openai.WithToken(token)}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	if model != "" {
		opts = append(opts, openai.WithModel(model))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai model: %w", err)
	}
	return &OpenAICompleter{llm: llm, bucket: newTokenBucket(concurrentReqs)}, nil
}

func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if err := c.bucket.acquire(ctx); err != nil {
		return "", err
	}
	defer c.bucket.release()

	text, err := llms.GenerateFromSinglePrompt(ctx, c.llm, prompt,
		llms.WithTemperature(DecodingTemperature),
		llms.WithTopK(DecodingTopK),
		llms.WithTopP(DecodingTopP),
		llms.WithMaxTokens(DecodingMaxOutputTokens),
	)
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
