package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"modelchat-backend/internal/metrics"
)

// Decoding parameters for the designated model.
const (
	DecodingTemperature     = 0.7
	DecodingTopK            = 40
	DecodingTopP            = 0.95
	DecodingMaxOutputTokens = 1024
)

// Markers embedded in generated text so clients can tell canned replies apart.
const (
	FallbackMarker  = "Fallback Response"
	SimulatedMarker = "Simulated Response"
)

// ErrEmptyCompletion is returned by completers that got no text back.
var ErrEmptyCompletion = errors.New("model returned empty text")

// Completer runs one single-turn completion against a remote model.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ResponseGenerator produces assistant text for a model tag. Only realTag is
// sent to the completer; every other tag gets a simulated reply. Generate never
// fails: remote errors become a labeled fallback reply.
type ResponseGenerator struct {
	realTag   string
	provider  string
	completer Completer
	timeout   time.Duration
	metrics   *metrics.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewResponseGenerator builds a generator. A nil completer means no
// credentials are configured and realTag is simulated like any other tag.
func NewResponseGenerator(realTag, provider string, completer Completer, timeout time.Duration, m *metrics.Metrics, logger *slog.Logger) *ResponseGenerator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ResponseGenerator{
		realTag:   realTag,
		provider:  provider,
		completer: completer,
		timeout:   timeout,
		metrics:   m,
		logger:    logger,
		tracer:    otel.Tracer("modelchat-backend/services"),
	}
}

// RealTag is the tag served by remote inference.
func (g *ResponseGenerator) RealTag() string { return g.realTag }

func (g *ResponseGenerator) Generate(ctx context.Context, tag, prompt, modelName string) string {
	if tag != g.realTag || g.completer == nil {
		g.metrics.ObserveResponse(metrics.InferenceSimulated)
		return SimulatedReply(tag, modelName, prompt)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	ctx, span := g.tracer.Start(ctx, "inference.complete",
		trace.WithAttributes(attribute.String("model.tag", tag), attribute.String("inference.provider", g.provider)))
	defer span.End()

	g.logger.Info("calling remote model", "model_tag", tag, "provider", g.provider)
	start := time.Now()
	text, err := g.completer.Complete(ctx, prompt)
	g.metrics.ObserveInference(time.Since(start))
	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrEmptyCompletion
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.logger.Warn("remote model failed, using fallback", "model_tag", tag, "error", err)
		g.metrics.ObserveResponse(metrics.InferenceFallback)
		return FallbackReply(g.provider, modelName, prompt, err)
	}

	g.logger.Info("remote model responded", "model_tag", tag, "chars", len(text))
	g.metrics.ObserveResponse(metrics.InferenceSuccess)
	return text
}

// FallbackReply is the reply stored when the remote model could not answer.
func FallbackReply(provider, modelName, prompt string, cause error) string {
	if provider == "" {
		provider = "Inference"
	}
	if modelName == "" {
		modelName = "the model"
	}
	return fmt.Sprintf(
		"[%s API Error - %s] I apologize, but I encountered an issue connecting to the %s API (%v). "+
			"Here's a simulated response: You said \"%s\". This would normally be processed by %s for an intelligent response.",
		provider, FallbackMarker, provider, cause, prompt, modelName)
}

// IsFallback reports whether text was produced by FallbackReply.
func IsFallback(text string) bool {
	end := strings.Index(text, "]")
	return strings.HasPrefix(text, "[") && end > 0 && strings.Contains(text[:end], FallbackMarker)
}

// SimulatedReply is the deterministic reply for tags without remote inference.
func SimulatedReply(tag, modelName, prompt string) string {
	if modelName == "" {
		modelName = tag
	}
	vendor := vendorOf(tag)
	if vendor == "" {
		return fmt.Sprintf("[%s %s] You said: \"%s\". This is a simulated response from %s.",
			modelName, SimulatedMarker, prompt, modelName)
	}
	reply := fmt.Sprintf("[%s %s] You said: \"%s\". This is a simulated response from %s's %s model.",
		modelName, SimulatedMarker, prompt, vendor, modelName)
	if strings.ToLower(tag) == "gpt-4o" {
		reply += " In a real implementation, this would call the OpenAI API for intelligent responses."
	}
	return reply
}

func vendorOf(tag string) string {
	t := strings.ToLower(tag)
	switch {
	case strings.HasPrefix(t, "gpt-"), strings.HasPrefix(t, "o1"), strings.HasPrefix(t, "o3"):
		return "OpenAI"
	case strings.HasPrefix(t, "claude-"):
		return "Anthropic"
	case strings.HasPrefix(t, "gemini-"):
		return "Google"
	default:
		return ""
	}
}
