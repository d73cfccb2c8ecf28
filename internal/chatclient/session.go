package chatclient

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"modelchat-backend/internal/models"
)

// MaxPromptLength mirrors the server's limit so the client can refuse early.
const MaxPromptLength = 1000

var (
	ErrNoModelSelected = errors.New("select a model first")
	ErrEmptyPrompt     = errors.New("prompt is empty")
	ErrPromptTooLong   = fmt.Errorf("prompt is longer than %d characters", MaxPromptLength)
	ErrSendInFlight    = errors.New("a message is already being sent")
)

type api interface {
	History(ctx context.Context) ([]*models.Message, error)
	Send(ctx context.Context, modelTag, prompt string) error
}

// Session holds one user's view of the conversation. Only one send runs at a
// time; a successful send re-reads history rather than trusting the reply.
type Session struct {
	api api

	mu      sync.Mutex
	model   string
	sending bool
	history []*models.Message
	lastErr error
}

func NewSession(c api) *Session {
	return &Session{api: c}
}

func (s *Session) SelectModel(tag string) {
	s.mu.Lock()
	s.model = strings.TrimSpace(tag)
	s.mu.Unlock()
}

func (s *Session) Model() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

// Sending reports whether input should be disabled.
func (s *Session) Sending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sending
}

// Send submits prompt to the selected model and refreshes history. It
// refuses to call the server without a model, with an empty prompt, or while
// another send is running.
func (s *Session) Send(ctx context.Context, prompt string) error {
	prompt = strings.TrimSpace(prompt)

	s.mu.Lock()
	switch {
	case s.sending:
		s.mu.Unlock()
		return ErrSendInFlight
	case s.model == "":
		s.mu.Unlock()
		return ErrNoModelSelected
	case prompt == "":
		s.mu.Unlock()
		return ErrEmptyPrompt
	case utf8.RuneCountInString(prompt) > MaxPromptLength:
		s.mu.Unlock()
		return ErrPromptTooLong
	}
	s.sending = true
	model := s.model
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.sending = false
		s.mu.Unlock()
	}()

	if err := s.api.Send(ctx, model, prompt); err != nil {
		s.setErr(err)
		if StoredBeforeFailure(err) {
			s.refresh(ctx, false)
		}
		return err
	}
	return s.Refresh(ctx)
}

// StoredBeforeFailure reports whether a failed send may still have stored the
// user turn, leaving it in history without a reply.
func StoredBeforeFailure(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == "PERSISTENCE_FAILED"
}

// Refresh re-reads history from the server and clears LastError.
func (s *Session) Refresh(ctx context.Context) error {
	return s.refresh(ctx, true)
}

// refresh keeps the recorded error when clearErr is false, so a send failure
// stays visible after the follow-up read.
func (s *Session) refresh(ctx context.Context, clearErr bool) error {
	history, err := s.api.History(ctx)
	if err != nil {
		if clearErr {
			s.setErr(err)
		}
		return err
	}
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].CreatedAt.Before(history[j].CreatedAt)
	})

	s.mu.Lock()
	s.history = history
	if clearErr {
		s.lastErr = nil
	}
	s.mu.Unlock()
	return nil
}

// History returns the last fetched messages, oldest first.
func (s *Session) History() []*models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Message, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Session) setErr(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

// DescribeError turns any send or load error into a line for the user.
func DescribeError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoModelSelected):
		return "Pick a model before sending."
	case errors.Is(err, ErrEmptyPrompt):
		return "Type a message first."
	case errors.Is(err, ErrPromptTooLong):
		return fmt.Sprintf("Messages are limited to %d characters.", MaxPromptLength)
	case errors.Is(err, ErrSendInFlight):
		return "Still waiting for the previous reply."
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return "Could not reach the server: " + err.Error()
	}
	switch apiErr.Code {
	case "MODEL_NOT_FOUND":
		return "That model is not available any more. Pick another one."
	case "PERSISTENCE_FAILED":
		return "Saving failed. Your message may show without a reply; try sending again."
	case "STORE_UNAVAILABLE":
		return "Chat storage is unavailable. Retry in a moment."
	case "RATE_LIMITED":
		return "You are sending too fast. Wait a moment."
	case "UNAUTHORIZED", "TOKEN_EXPIRED":
		return "Your session has expired. Sign in again."
	case "FORBIDDEN":
		return "You cannot access that conversation."
	case "VALIDATION_ERROR":
		var parts []string
		for field, msg := range apiErr.Fields {
			parts = append(parts, field+": "+msg)
		}
		sort.Strings(parts)
		if len(parts) == 0 {
			return "The request was rejected: " + apiErr.Message
		}
		return "The request was rejected: " + strings.Join(parts, "; ")
	default:
		return "Something went wrong: " + apiErr.Error()
	}
}
