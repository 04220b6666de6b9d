// Package correlator pairs a published question with the answer that comes
// back on the answers topic.
//
// Keyed tags every question with a correlation id and only delivers answers
// that echo it. FirstAnswer returns whatever message it reads first from the
// start of the answers topic, which is how uncorrelated answering services
// are consumed; concurrent callers may receive each other's answers and
// stale answers are returned before fresh ones.
package correlator

import (
	"context"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/internal/chat"
	apperrors "github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/metrics"
)

// Outcomes recorded on the chatbot_questions_total counter.
const (
	outcomeAnswered  = "answered"
	outcomeTimeout   = "timeout"
	outcomeCancelled = "cancelled"
	outcomeError     = "error"
)

// Publisher writes a question and waits for the broker to acknowledge it.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// errEmptyQuery rejects a missing or empty query. Whitespace-only queries are
// passed through unchanged.
var errEmptyQuery = apperrors.New(apperrors.ErrInvalidRequest, http.StatusBadRequest, "Query is required")

func publishQuestion(ctx context.Context, pub Publisher, m *metrics.Metrics, key string, q chat.QuestionEvent) error {
	if err := pub.Publish(ctx, kafka.Event{Key: key, Value: q}); err != nil {
		m.QuestionsTotal.WithLabelValues(outcomeError).Inc()
		return apperrors.Wrap(apperrors.ErrBroker, err)
	}
	return nil
}
