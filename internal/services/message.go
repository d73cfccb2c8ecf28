package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"modelchat-backend/internal/metrics"
	"modelchat-backend/internal/models"
	"modelchat-backend/internal/repository"
)

// MaxPromptLength is the longest prompt accepted, in characters.
const MaxPromptLength = 1000

// defaultNotifyTimeout bounds how long a send waits on one history notification.
const defaultNotifyTimeout = 2 * time.Second

// SendState tracks one run of the send pipeline.
type SendState string

const (
	StateValidating    SendState = "validating"
	StateUserPersisted SendState = "user_persisted"
	StateResponding    SendState = "responding"
	StateCompleted     SendState = "completed"
	StateFailed        SendState = "failed"
)

type modelStore interface {
	ListOrderedByName(ctx context.Context) ([]*models.Model, error)
	GetByTag(ctx context.Context, tag string) (*models.Model, error)
}

type messageStore interface {
	Create(ctx context.Context, m *models.Message) error
	ListByUser(ctx context.Context, userID string) ([]*models.Message, error)
}

// Responder produces assistant text. It must not fail.
type Responder interface {
	Generate(ctx context.Context, tag, prompt, modelName string) string
}

// HistoryNotifier is told whenever a send changes a user's history.
type HistoryNotifier interface {
	NotifyHistory(ctx context.Context, update models.HistoryUpdate)
}

type noopNotifier struct{}

func (noopNotifier) NotifyHistory(context.Context, models.HistoryUpdate) {}

type MessageService struct {
	models    modelStore
	messages  messageStore
	responder Responder
	notifier  HistoryNotifier
	metrics   *metrics.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer

	notifyTimeout time.Duration
}

func NewMessageService(
	modelRepo modelStore,
	messageRepo messageStore,
	responder Responder,
	notifier HistoryNotifier,
	m *metrics.Metrics,
	logger *slog.Logger,
) *MessageService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &MessageService{
		models:    modelRepo,
		messages:  messageRepo,
		responder: responder,
		notifier:  notifier,
		metrics:   m,
		logger:    logger,
		tracer:    otel.Tracer("modelchat-backend/services"),

		notifyTimeout: defaultNotifyTimeout,
	}
}

// ListAvailableModels returns the catalog sorted by display name.
func (s *MessageService) ListAvailableModels(ctx context.Context) ([]*models.Model, error) {
	list, err := s.models.ListOrderedByName(ctx)
	if err != nil {
		s.logger.Error("failed to list models", "error", err)
		return nil, &StoreUnavailableError{Op: "list models", Err: err}
	}
	if list == nil {
		list = []*models.Model{}
	}
	return list, nil
}

// GetHistory returns the user's messages, oldest first.
func (s *MessageService) GetHistory(ctx context.Context, userID string) ([]*models.Message, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, &ValidationError{Fields: map[string]string{"user_id": "User ID is required"}}
	}

	history, err := s.messages.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to load history", "user_id", userID, "error", err)
		return nil, &StoreUnavailableError{Op: "load history", Err: err}
	}
	if history == nil {
		history = []*models.Message{}
	}
	return history, nil
}

// sendRun carries the state of one pipeline run.
type sendRun struct {
	userID   string
	modelTag string
	state    SendState
}

// SendMessage validates the model, stores the user turn, generates a reply and
// stores it. Once the user turn insert begins the run ignores cancellation of
// ctx. A failed assistant insert leaves the user turn in place.
func (s *MessageService) SendMessage(ctx context.Context, userID, modelTag, prompt string) (*models.SendResult, error) {
	userID = strings.TrimSpace(userID)
	modelTag = strings.TrimSpace(modelTag)
	prompt = strings.TrimSpace(prompt)

	run := &sendRun{userID: userID, modelTag: modelTag, state: StateValidating}

	ctx, span := s.tracer.Start(ctx, "message.send",
		trace.WithAttributes(attribute.String("user.id", userID), attribute.String("model.tag", modelTag)))
	defer span.End()

	fail := func(err error) (*models.SendResult, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		prev := run.state
		run.state = StateFailed
		s.metrics.ObserveSend(string(KindOf(err)))
		s.logger.Warn("send failed", "user_id", userID, "model_tag", modelTag, "after", prev, "kind", KindOf(err), "error", err)
		if prev != StateValidating {
			s.notify(ctx, run)
		}
		return nil, err
	}

	if err := validateSend(userID, modelTag, prompt); err != nil {
		return fail(err)
	}

	s.logger.Info("sending message", "user_id", userID, "model_tag", modelTag)

	// Step 1: the tag must be in the catalog before anything is written.
	model, err := s.models.GetByTag(ctx, modelTag)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(&ModelNotFoundError{Tag: modelTag})
		}
		return fail(&StoreUnavailableError{Op: "lookup model", Err: err})
	}

	ctx = context.WithoutCancel(ctx)

	// Step 2
	userMsg := &models.Message{UserID: userID, ModelTag: modelTag, Role: models.RoleUser, Content: prompt}
	if err := s.messages.Create(ctx, userMsg); err != nil {
		return fail(&PersistenceError{Stage: StageUserMessage, Err: err})
	}
	s.metrics.ObservePersisted(string(models.RoleUser))
	s.advance(ctx, run, StateUserPersisted)
	s.logger.Info("user message saved", "user_id", userID, "message_id", userMsg.ID)

	// Step 3
	s.advance(ctx, run, StateResponding)
	reply := s.responder.Generate(ctx, modelTag, prompt, model.Name)

	// Step 4
	assistantMsg := &models.Message{UserID: userID, ModelTag: modelTag, Role: models.RoleAssistant, Content: reply}
	if err := s.messages.Create(ctx, assistantMsg); err != nil {
		return fail(&PersistenceError{Stage: StageAssistantMessage, Err: err})
	}
	s.metrics.ObservePersisted(string(models.RoleAssistant))
	s.logger.Info("assistant message saved", "user_id", userID, "message_id", assistantMsg.ID)

	s.advance(ctx, run, StateCompleted)
	s.metrics.ObserveSend(string(StateCompleted))
	return &models.SendResult{Success: true}, nil
}

// advance moves the run forward and notifies subscribers of durable changes.
func (s *MessageService) advance(ctx context.Context, run *sendRun, next SendState) {
	run.state = next
	s.logger.Debug("send state", "user_id", run.userID, "model_tag", run.modelTag, "state", next)
	if next == StateUserPersisted || next == StateCompleted {
		s.notify(ctx, run)
	}
}

// notify waits at most notifyTimeout for the notifier. A notifier that
// overruns keeps running in the background while the send moves on.
func (s *MessageService) notify(ctx context.Context, run *sendRun) {
	update := models.HistoryUpdate{
		UserID:   run.userID,
		ModelTag: run.modelTag,
		State:    string(run.state),
	}

	nctx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.notifier.NotifyHistory(nctx, update)
	}()

	select {
	case <-done:
	case <-nctx.Done():
		s.logger.Warn("history notification timed out", "user_id", run.userID, "state", run.state)
	}
}

func validateSend(userID, modelTag, prompt string) error {
	fields := map[string]string{}
	if userID == "" {
		fields["user_id"] = "User ID is required"
	}
	if modelTag == "" {
		fields["model_tag"] = "Select a model"
	}
	if prompt == "" {
		fields["prompt"] = "Prompt is required"
	} else if utf8.RuneCountInString(prompt) > MaxPromptLength {
		fields["prompt"] = "Prompt must be at most 1000 characters"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
