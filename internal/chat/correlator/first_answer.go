package correlator

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/internal/chat"
	apperrors "github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/metrics"
)

// Subscription yields message values from the answers topic.
type Subscription interface {
	Next(ctx context.Context) ([]byte, error)
	Close() error
}

// SubscribeFunc opens a new subscription positioned at the earliest retained
// answer.
type SubscribeFunc func() Subscription

// FirstAnswer returns the first answer read after publishing a question.
type FirstAnswer struct {
	publisher Publisher
	subscribe SubscribeFunc
	timeout   time.Duration
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewFirstAnswer creates a FirstAnswer correlator. A timeout of zero waits
// until the caller's context ends.
func NewFirstAnswer(pub Publisher, subscribe SubscribeFunc, timeout time.Duration, m *metrics.Metrics) *FirstAnswer {
	return &FirstAnswer{
		publisher: pub,
		subscribe: subscribe,
		timeout:   timeout,
		metrics:   m,
		logger:    logger.WithComponent("first-answer-correlator"),
	}
}

// Ask publishes {"query": query}, opens a fresh subscription and returns the
// answer field of the first message it reads.
func (f *FirstAnswer) Ask(ctx context.Context, query string) (string, error) {
	if query == "" {
		return "", errEmptyQuery
	}
	log := logger.FromContext(ctx)

	start := time.Now()
	if err := publishQuestion(ctx, f.publisher, f.metrics, "", chat.QuestionEvent{Query: query}); err != nil {
		log.Error("failed to publish question", "error", err)
		return "", err
	}

	sub := f.subscribe()
	defer func() {
		if err := sub.Close(); err != nil {
			f.logger.Warn("failed to close answer subscription", "error", err)
		}
	}()

	waitCtx := ctx
	if f.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	value, err := sub.Next(waitCtx)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		f.metrics.QuestionsTotal.WithLabelValues(outcomeCancelled).Inc()
		return "", ctx.Err()
	case errors.Is(waitCtx.Err(), context.DeadlineExceeded):
		f.metrics.QuestionsTotal.WithLabelValues(outcomeTimeout).Inc()
		log.Warn("no answer before timeout", "timeout", f.timeout)
		return "", apperrors.Newf(apperrors.ErrTimeout, http.StatusGatewayTimeout, "no answer within %s", f.timeout)
	default:
		f.metrics.QuestionsTotal.WithLabelValues(outcomeError).Inc()
		log.Error("failed to read answer", "error", err)
		return "", apperrors.Wrap(apperrors.ErrBroker, err)
	}

	ev, err := kafka.DecodeJSON[chat.AnswerEvent](value)
	if err != nil {
		f.metrics.QuestionsTotal.WithLabelValues(outcomeError).Inc()
		log.Error("malformed answer", "error", err)
		return "", apperrors.Wrap(apperrors.ErrInternal, err)
	}
	f.metrics.QuestionsTotal.WithLabelValues(outcomeAnswered).Inc()
	f.metrics.AnswerLatency.Observe(time.Since(start).Seconds())
	return ev.Answer, nil
}
