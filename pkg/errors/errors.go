package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidRequest   = errors.New("invalid request")
	ErrDocumentNotFound = errors.New("document not found")
	ErrPayloadTooLarge  = errors.New("payload too large")
	ErrExtraction       = errors.New("text extraction failed")
	ErrStorage          = errors.New("storage failure")
	ErrBroker           = errors.New("message broker failure")
	ErrTimeout          = errors.New("operation timed out")
	ErrInternal         = errors.New("internal error")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// Wrap tags cause with a sentinel so that errors.Is matches both the sentinel
// and the original cause.
func Wrap(sentinel error, cause error) error {
	if cause == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrBroker):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
