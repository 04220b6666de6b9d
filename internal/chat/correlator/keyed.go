package correlator

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/internal/chat"
	apperrors "github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/metrics"
)

// Keyed matches answers to questions by correlation id. HandleAnswer must be
// fed every message from the answers topic, typically by a kafka.Consumer.
type Keyed struct {
	publisher Publisher
	timeout   time.Duration
	metrics   *metrics.Metrics
	newID     func() string
	logger    *slog.Logger

	mu      sync.Mutex
	pending map[string]chan string
}

// NewKeyed creates a Keyed correlator. A timeout of zero waits until the
// caller's context ends.
func NewKeyed(pub Publisher, timeout time.Duration, m *metrics.Metrics) *Keyed {
	return &Keyed{
		publisher: pub,
		timeout:   timeout,
		metrics:   m,
		newID:     uuid.NewString,
		logger:    logger.WithComponent("keyed-correlator"),
		pending:   make(map[string]chan string),
	}
}

// Ask publishes query under a fresh correlation id and waits for the answer
// carrying the same id.
func (k *Keyed) Ask(ctx context.Context, query string) (string, error) {
	if query == "" {
		return "", errEmptyQuery
	}
	id := k.newID()
	log := logger.FromContext(ctx).With("correlation_id", id)

	answerCh := k.register(id)
	defer k.unregister(id)

	start := time.Now()
	q := chat.QuestionEvent{Query: query, CorrelationID: id}
	if err := publishQuestion(ctx, k.publisher, k.metrics, id, q); err != nil {
		log.Error("failed to publish question", "error", err)
		return "", err
	}
	log.Debug("question published")

	var expired <-chan time.Time
	if k.timeout > 0 {
		timer := time.NewTimer(k.timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case answer := <-answerCh:
		k.metrics.QuestionsTotal.WithLabelValues(outcomeAnswered).Inc()
		k.metrics.AnswerLatency.Observe(time.Since(start).Seconds())
		return answer, nil
	case <-expired:
		k.metrics.QuestionsTotal.WithLabelValues(outcomeTimeout).Inc()
		log.Warn("no answer before timeout", "timeout", k.timeout)
		return "", apperrors.Newf(apperrors.ErrTimeout, http.StatusGatewayTimeout, "no answer within %s", k.timeout)
	case <-ctx.Done():
		k.metrics.QuestionsTotal.WithLabelValues(outcomeCancelled).Inc()
		return "", ctx.Err()
	}
}

// HandleAnswer routes one answers-topic message to its waiting caller. The
// correlation id is taken from the payload, falling back to the message key.
// Malformed and unmatched answers are dropped.
func (k *Keyed) HandleAnswer(_ context.Context, key []byte, value []byte) error {
	ev, err := kafka.DecodeJSON[chat.AnswerEvent](value)
	if err != nil {
		k.metrics.UnmatchedAnswersTotal.Inc()
		k.logger.Warn("dropping malformed answer", "error", err)
		return nil
	}
	id := ev.CorrelationID
	if id == "" {
		id = string(key)
	}

	k.mu.Lock()
	answerCh, ok := k.pending[id]
	if ok {
		delete(k.pending, id)
		k.metrics.PendingQuestions.Set(float64(len(k.pending)))
	}
	k.mu.Unlock()

	if !ok {
		k.metrics.UnmatchedAnswersTotal.Inc()
		k.logger.Debug("dropping unmatched answer", "correlation_id", id)
		return nil
	}
	answerCh <- ev.Answer
	return nil
}

func (k *Keyed) register(id string) chan string {
	answerCh := make(chan string, 1)
	k.mu.Lock()
	k.pending[id] = answerCh
	k.metrics.PendingQuestions.Set(float64(len(k.pending)))
	k.mu.Unlock()
	return answerCh
}

func (k *Keyed) unregister(id string) {
	k.mu.Lock()
	delete(k.pending, id)
	k.metrics.PendingQuestions.Set(float64(len(k.pending)))
	k.mu.Unlock()
}

// Pending reports how many questions are waiting for an answer.
func (k *Keyed) Pending() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.pending)
}
