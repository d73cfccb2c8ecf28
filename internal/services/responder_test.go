package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerate_DesignatedTagReturnsVerbatim(t *testing.T) {
	c := &stubCompleter{text: "  exactly this\n"}
	g := NewResponseGenerator("gemini-2.0-flash-exp", "Gemini", c, time.Second, nil, discardLogger())

	got := g.Generate(context.Background(), "gemini-2.0-flash-exp", "Hello", "Gemini 2.0 Flash")
	assert.Equal(t, "  exactly this\n", got)
	assert.Equal(t, 1, c.calls)
}

func TestGenerate_FailureBecomesFallback(t *testing.T) {
	tests := []struct {
		name    string
		c       *stubCompleter
		wantErr string
	}{
		{"transport error", &stubCompleter{err: errors.New("connection reset")}, "connection reset"},
		{"empty output", &stubCompleter{text: "   "}, ErrEmptyCompletion.Error()},
		{"timeout", &stubCompleter{block: true}, context.DeadlineExceeded.Error()},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := NewResponseGenerator("gemini-2.0-flash-exp", "Gemini", tc.c, 20*time.Millisecond, nil, discardLogger())

			got := g.Generate(context.Background(), "gemini-2.0-flash-exp", "Hello", "Gemini 2.0 Flash")
			assert.True(t, IsFallback(got), got)
			assert.Contains(t, got, "[Gemini API Error - Fallback Response]")
			assert.Contains(t, got, tc.wantErr)
			assert.Contains(t, got, `You said "Hello"`)
		})
	}
}

func TestGenerate_OtherTagsAreSimulated(t *testing.T) {
	c := &stubCompleter{text: "remote"}
	g := NewResponseGenerator("gemini-2.0-flash-exp", "Gemini", c, time.Second, nil, discardLogger())

	got := g.Generate(context.Background(), "claude-3-haiku", "Explain recursion", "Claude 3 Haiku")
	assert.Equal(t, SimulatedReply("claude-3-haiku", "Claude 3 Haiku", "Explain recursion"), got)
	assert.Contains(t, got, "Claude 3 Haiku")
	assert.Contains(t, got, "Explain recursion")
	assert.Contains(t, got, "Anthropic")
	assert.False(t, IsFallback(got))
	assert.Equal(t, 0, c.calls)

	// Deterministic.
	assert.Equal(t, got, g.Generate(context.Background(), "claude-3-haiku", "Explain recursion", "Claude 3 Haiku"))
}

func TestGenerate_NoCompleterSimulatesDesignatedTag(t *testing.T) {
	g := NewResponseGenerator("gemini-2.0-flash-exp", "Gemini", nil, time.Second, nil, discardLogger())

	got := g.Generate(context.Background(), "gemini-2.0-flash-exp", "Hello", "Gemini 2.0 Flash")
	assert.Contains(t, got, SimulatedMarker)
	assert.Contains(t, got, "Gemini 2.0 Flash")
	assert.Contains(t, got, "Hello")
}

func TestSimulatedReply(t *testing.T) {
	assert.Equal(t,
		`[Mistral Large Simulated Response] You said: "hi". This is a simulated response from Mistral Large.`,
		SimulatedReply("mistral-large", "Mistral Large", "hi"))

	assert.Equal(t, `[GPT-4o Mini Simulated Response] You said: "hi". This is a simulated response from OpenAI's GPT-4o Mini model.`,
		SimulatedReply("gpt-4o-mini", "GPT-4o Mini", "hi"))
	assert.Equal(t, `[Claude 3 Sonnet Simulated Response] You said: "hi". This is a simulated response from Anthropic's Claude 3 Sonnet model.`,
		SimulatedReply("claude-3-sonnet", "Claude 3 Sonnet", "hi"))
	assert.Equal(t, `[GPT-4o Simulated Response] You said: "hi". This is a simulated response from OpenAI's GPT-4o model. `+
		`In a real implementation, this would call the OpenAI API for intelligent responses.`,
		SimulatedReply("gpt-4o", "GPT-4o", "hi"))
	assert.Contains(t, SimulatedReply("custom", "", "hi"), "[custom Simulated Response]")
}

func TestIsFallback(t *testing.T) {
	assert.True(t, IsFallback(FallbackReply("OpenAI", "GPT", "p", errors.New("x"))))
	assert.False(t, IsFallback("Fallback Response"))
	assert.False(t, IsFallback("[GPT-4o Simulated Response] Fallback Response"))
}

func TestTokenBucket(t *testing.T) {
	b := newTokenBucket(1)
	assert.NoError(t, b.acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, b.acquire(ctx), context.DeadlineExceeded)

	b.release()
	assert.NoError(t, b.acquire(context.Background()))
}
