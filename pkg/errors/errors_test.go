package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error wins", New(ErrStorage, http.StatusTeapot, "x"), http.StatusTeapot},
		{"invalid request", fmt.Errorf("ctx: %w", ErrInvalidRequest), http.StatusBadRequest},
		{"not found", ErrDocumentNotFound, http.StatusNotFound},
		{"too large", ErrPayloadTooLarge, http.StatusRequestEntityTooLarge},
		{"timeout", Wrap(ErrTimeout, context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"broker", Wrap(ErrBroker, errors.New("dial tcp")), http.StatusBadGateway},
		{"storage", Wrap(ErrStorage, errors.New("disk full")), http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusCode(tt.err))
		})
	}
}

func TestWrap_KeepsBothChains(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(ErrBroker, cause)

	assert.ErrorIs(t, err, ErrBroker)
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, Wrap(ErrBroker, nil))
}

func TestAppError_Unwrap(t *testing.T) {
	err := Newf(ErrInvalidRequest, http.StatusBadRequest, "field %s is required", "query")
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Equal(t, "invalid request: field query is required", err.Error())
}
