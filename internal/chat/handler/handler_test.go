package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/errors"
)

type MockAsker struct {
	mock.Mock
}

func (m *MockAsker) Ask(ctx context.Context, query string) (string, error) {
	args := m.Called(ctx, query)
	return args.String(0), args.Error(1)
}

func post(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chatbot/", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.Ask(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestAsk_Success(t *testing.T) {
	asker := new(MockAsker)
	asker.On("Ask", mock.Anything, "What is in the report?").Return("Quarterly numbers.", nil)

	w := post(t, New(asker), `{"query":"What is in the report?"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Quarterly numbers.", decode(t, w)["answer"])
	asker.AssertExpectations(t)
}

func TestAsk_MissingQuery(t *testing.T) {
	asker := new(MockAsker)
	asker.On("Ask", mock.Anything, "").
		Return("", apperrors.New(apperrors.ErrInvalidRequest, http.StatusBadRequest, "Query is required"))

	w := post(t, New(asker), `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Query is required", decode(t, w)["error"])
}

func TestAsk_InvalidJSON(t *testing.T) {
	asker := new(MockAsker)

	w := post(t, New(asker), `{"query":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	asker.AssertNotCalled(t, "Ask", mock.Anything, mock.Anything)
}

func TestAsk_Errors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{"timeout", apperrors.New(apperrors.ErrTimeout, http.StatusGatewayTimeout, "no answer within 1m0s"), http.StatusGatewayTimeout, "no answer received in time"},
		{"broker", apperrors.Wrap(apperrors.ErrBroker, errors.New("dial tcp: refused")), http.StatusBadGateway, "could not reach the answering service"},
		{"internal", apperrors.Wrap(apperrors.ErrInternal, errors.New("bad json")), http.StatusInternalServerError, "chatbot query failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asker := new(MockAsker)
			asker.On("Ask", mock.Anything, "q").Return("", tt.err)

			w := post(t, New(asker), `{"query":"q"}`)

			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, tt.message, decode(t, w)["error"])
		})
	}
}
