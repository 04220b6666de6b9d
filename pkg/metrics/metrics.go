// Package metrics defines the Prometheus metric collectors used by the
// gateway and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the gateway.
type Metrics struct {
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
	UploadsTotal          *prometheus.CounterVec
	IngestionStepFailures *prometheus.CounterVec
	UploadBytes           prometheus.Histogram
	QuestionsTotal        *prometheus.CounterVec
	AnswerLatency         prometheus.Histogram
	PendingQuestions      prometheus.Gauge
	UnmatchedAnswersTotal prometheus.Counter
	JournalReplaysTotal   *prometheus.CounterVec
	DocumentCacheLookups  *prometheus.CounterVec
}

// New creates all gateway metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		UploadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pdf_uploads_total",
				Help: "Completed PDF uploads by extraction status (extracted, empty, failed).",
			},
			[]string{"extraction_status"},
		),
		IngestionStepFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingestion_step_failures_total",
				Help: "Upload pipeline failures by step (store, publish, persist).",
			},
			[]string{"step"},
		),
		UploadBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pdf_upload_bytes",
				Help:    "Size of accepted PDF uploads in bytes.",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 9),
			},
		),
		QuestionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatbot_questions_total",
				Help: "Chatbot questions by outcome (answered, timeout, cancelled, error).",
			},
			[]string{"outcome"},
		),
		AnswerLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "chatbot_answer_latency_seconds",
				Help:    "Time from publishing a question to receiving its answer.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),
		PendingQuestions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "chatbot_pending_questions",
				Help: "Questions currently waiting for an answer.",
			},
		),
		UnmatchedAnswersTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "chatbot_unmatched_answers_total",
				Help: "Answers received with no waiting question.",
			},
		),
		JournalReplaysTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingestion_journal_replays_total",
				Help: "Journal records replayed by result (completed, failed, abandoned).",
			},
			[]string{"result"},
		),
		DocumentCacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "document_cache_lookups_total",
				Help: "Document cache lookups by result (hit, miss).",
			},
			[]string{"result"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.UploadsTotal,
		m.IngestionStepFailures,
		m.UploadBytes,
		m.QuestionsTotal,
		m.AnswerLatency,
		m.PendingQuestions,
		m.UnmatchedAnswersTotal,
		m.JournalReplaysTotal,
		m.DocumentCacheLookups,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
