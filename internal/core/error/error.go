package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// PostgresErrorMessage describes Postgres related failures.
	PostgresErrorMessage = "postgres operation failed"
	// ThreadNotFoundMessage is returned when no checkpoint exists for a thread.
	ThreadNotFoundMessage = "thread not found"
	// SerializationErrorMessage is shown when tool results cannot be prepared for the answer.
	// Never reused for an empty-result answer.
	SerializationErrorMessage = "failed to prepare tool results for synthesis"
	// InvalidStateMessage is returned when a session state fails a stage boundary check.
	InvalidStateMessage = "invalid session state"
)

var (
	ErrThreadNotFound   = errors.New("thread not found")
	ErrNoPendingTurn    = errors.New("no pending turn to resume")
	ErrTransitionBudget = errors.New("workflow exceeded its transition budget")
	ErrThreadBusy       = errors.New("thread is locked by another run")
)

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// Validation reports a rejected inbound request.
func Validation(format string, args ...any) *AppError {
	msg := fmt.Sprintf(format, args...)
	return New(errors.New(msg), http.StatusBadRequest, msg)
}

// Serialization marks a failure to encode tool results for the synthesizer.
func Serialization(err error) *AppError {
	return New(err, http.StatusInternalServerError, SerializationErrorMessage)
}

// NotFound wraps ErrThreadNotFound for the given thread.
func NotFound(threadID string) *AppError {
	return New(fmt.Errorf("%w: %s", ErrThreadNotFound, threadID), http.StatusNotFound, ThreadNotFoundMessage)
}

// WrapPostgres wraps a database/sql error with a consistent status code and message.
func WrapPostgres(err error) error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusBadGateway, PostgresErrorMessage)
}

// Is reports whether the target matches the underlying error or the AppError itself.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if errors.As(e.Err, target) {
		return true
	}
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return false
}

// StatusOf returns the HTTP status carried by err, or 500 when err is not an AppError.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// MessageOf returns the user-facing message carried by err.
func MessageOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return SystemErrorMessage
}
