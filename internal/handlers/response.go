package handlers

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"modelchat-backend/internal/models"
	"modelchat-backend/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return errorRespWithFields(code, message, nil, r)
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			Fields:    fields,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch e := err.(type) {
	case *services.ValidationError:
		writeJSON(w, http.StatusBadRequest, errorRespWithFields(string(services.KindValidation), "Validation failed", e.Fields, r))
	case *services.ModelNotFoundError:
		writeJSON(w, http.StatusNotFound, errorResp(string(services.KindModelNotFound), "The selected model is not available", r))
	case *services.PersistenceError:
		msg := "Failed to save your message"
		if e.Stage == services.StageAssistantMessage {
			msg = "Your message was saved but the reply could not be stored"
		}
		writeJSON(w, http.StatusInternalServerError, errorResp(string(services.KindPersistence), msg, r))
	case *services.StoreUnavailableError:
		writeJSON(w, http.StatusServiceUnavailable, errorResp(string(services.KindStoreUnavailable), "Chat storage is unavailable, please retry", r))
	case *services.ForbiddenError:
		writeJSON(w, http.StatusForbidden, errorResp(string(services.KindForbidden), e.Message, r))
	case *services.RateLimitError:
		if e.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(e.RetryAfter.Seconds()))))
		}
		writeJSON(w, http.StatusTooManyRequests, errorResp(string(services.KindRateLimited), e.Message, r))
	default:
		writeJSON(w, http.StatusInternalServerError, errorResp(string(services.KindInternal), "An unexpected error occurred", r))
	}
}
