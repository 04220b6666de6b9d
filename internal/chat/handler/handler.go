// Package handler serves the chatbot endpoint.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/internal/chat"
	apperrors "github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/logger"
)

// maxQueryBody bounds the JSON body of a chatbot request.
const maxQueryBody = 1 << 20

// Asker publishes a question and waits for its answer.
type Asker interface {
	Ask(ctx context.Context, query string) (string, error)
}

// Handler serves POST /chatbot/.
type Handler struct {
	asker  Asker
	logger *slog.Logger
}

// New creates a Handler that answers questions through asker.
func New(asker Asker) *Handler {
	return &Handler{
		asker:  asker,
		logger: slog.Default().With("component", "chat-handler"),
	}
}

// Ask handles POST /chatbot/.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req chat.AskRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQueryBody)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	answer, err := h.asker.Ask(ctx, req.Query)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("caller went away before an answer arrived")
			return
		}
		statusCode := apperrors.HTTPStatusCode(err)
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && statusCode < http.StatusInternalServerError {
			h.writeError(w, statusCode, appErr.Message)
			return
		}
		log.Error("chatbot query failed",
			"error", err,
			"status_code", statusCode,
		)
		h.writeError(w, statusCode, errorMessage(statusCode))
		return
	}
	h.writeJSON(w, http.StatusOK, chat.AskResponse{Answer: answer})
}

func errorMessage(status int) string {
	switch status {
	case http.StatusGatewayTimeout:
		return "no answer received in time"
	case http.StatusBadGateway:
		return "could not reach the answering service"
	default:
		return "chatbot query failed"
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
