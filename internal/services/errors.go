package services

import (
	"errors"
	"fmt"
	"time"
)

// Kind names an error class as it appears on the wire.
type Kind string

const (
	KindValidation       Kind = "VALIDATION_ERROR"
	KindModelNotFound    Kind = "MODEL_NOT_FOUND"
	KindPersistence      Kind = "PERSISTENCE_FAILED"
	KindStoreUnavailable Kind = "STORE_UNAVAILABLE"
	KindForbidden        Kind = "FORBIDDEN"
	KindRateLimited      Kind = "RATE_LIMITED"
	KindInternal         Kind = "INTERNAL_ERROR"
)

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

type ModelNotFoundError struct{ Tag string }

func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("model %q is not in the catalog", e.Tag)
}

// PersistenceError reports a failed store write. Stage names the insert that
// failed; a failure at StageAssistantMessage leaves the user turn behind.
type PersistenceError struct {
	Stage string
	Err   error
}

const (
	StageUserMessage      = "user_message"
	StageAssistantMessage = "assistant_message"
)

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist %s: %v", e.Stage, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }

type ForbiddenError struct{ Message string }

func (e *ForbiddenError) Error() string { return e.Message }

type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string { return e.Message }

// KindOf classifies err. Unknown errors are KindInternal.
func KindOf(err error) Kind {
	var (
		validation  *ValidationError
		notFound    *ModelNotFoundError
		persistence *PersistenceError
		unavailable *StoreUnavailableError
		forbidden   *ForbiddenError
		rateLimited *RateLimitError
	)
	switch {
	case errors.As(err, &validation):
		return KindValidation
	case errors.As(err, &notFound):
		return KindModelNotFound
	case errors.As(err, &persistence):
		return KindPersistence
	case errors.As(err, &unavailable):
		return KindStoreUnavailable
	case errors.As(err, &forbidden):
		return KindForbidden
	case errors.As(err, &rateLimited):
		return KindRateLimited
	default:
		return KindInternal
	}
}
