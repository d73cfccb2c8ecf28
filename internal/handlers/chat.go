package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"modelchat-backend/internal/middleware"
	"modelchat-backend/internal/models"
	"modelchat-backend/internal/services"
)

const maxSendBody = 64 << 10

type chatService interface {
	ListAvailableModels(ctx context.Context) ([]*models.Model, error)
	GetHistory(ctx context.Context, userID string) ([]*models.Message, error)
	SendMessage(ctx context.Context, userID, modelTag, prompt string) (*models.SendResult, error)
}

type sendLimiter interface {
	Allow(key string) bool
	RetryAfter() time.Duration
}

type ChatHandler struct {
	service chatService
	limiter sendLimiter
}

// NewChatHandler builds the chat endpoints. limiter may be nil.
func NewChatHandler(service chatService, limiter sendLimiter) *ChatHandler {
	return &ChatHandler{service: service, limiter: limiter}
}

func (h *ChatHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListAvailableModels(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.ModelsResponse{Models: list})
}

func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, err := resolveUserID(r, r.URL.Query().Get("user_id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	history, err := h.service.GetHistory(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.HistoryResponse{Messages: history})
}

func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req models.SendMessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSendBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp(string(services.KindValidation), "Invalid request body", r))
		return
	}

	userID, err := resolveUserID(r, req.UserID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if h.limiter != nil && !h.limiter.Allow(userID) {
		handleServiceError(w, r, &services.RateLimitError{
			Message:    "Too many messages. Please wait a moment.",
			RetryAfter: h.limiter.RetryAfter(),
		})
		return
	}

	result, err := h.service.SendMessage(r.Context(), userID, req.ModelTag, req.Prompt)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// resolveUserID returns the authenticated user. A caller-supplied id must
// match it.
func resolveUserID(r *http.Request, requested string) (string, error) {
	userID := middleware.GetUserID(r.Context())
	if requested != "" && requested != userID {
		return "", &services.ForbiddenError{Message: "Access denied"}
	}
	return userID, nil
}
