package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiCompleter calls a Gemini model with the fixed decoding parameters.
type GeminiCompleter struct {
	client *genai.Client
	model  *genai.GenerativeModel
	bucket tokenBucket
}

func NewGeminiCompleter(ctx context.Context, apiKey, modelName string, concurrentReqs int) (*GeminiCompleter, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(DecodingTemperature)
	model.SetTopK(DecodingTopK)
	model.SetTopP(DecodingTopP)
	model.SetMaxOutputTokens(DecodingMaxOutputTokens)

	return &GeminiCompleter{
		client: client,
		model:  model,
		bucket: newTokenBucket(concurrentReqs),
	}, nil
}

func (c *GeminiCompleter) Close() error {
	return c.client.Close()
}

func (c *GeminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if err := c.bucket.acquire(ctx); err != nil {
		return "", err
	}
	defer c.bucket.release()

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	text := extractText(resp)
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
