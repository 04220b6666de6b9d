// Package health probes the gateway's backing services and serves the
// result on /health/live and /health/ready.
//
// PostgreSQL and Kafka are required: the upload and chatbot paths cannot run
// without them. Redis only carries the ingestion journal and the document
// cache, so it is registered as optional and a failure degrades the report
// instead of taking it down.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Dependency names used in reports.
const (
	Postgres = "postgres"
	Kafka    = "kafka"
	Redis    = "redis"
)

// DefaultProbeTimeout bounds each probe when the checker is built with zero.
const DefaultProbeTimeout = 2 * time.Second

// Status is the state of one dependency or of the gateway as a whole.
type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

// Ping reports whether a dependency answers.
type Ping func(ctx context.Context) error

// ComponentHealth is the outcome of one probe.
type ComponentHealth struct {
	Status   Status `json:"status"`
	Optional bool   `json:"optional,omitempty"`
	Message  string `json:"message,omitempty"`
	Latency  string `json:"latency,omitempty"`
}

// Report is served by the readiness endpoint.
type Report struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	Timestamp  string                     `json:"timestamp"`
}

type dependency struct {
	ping     Ping
	optional bool
}

// Checker probes every registered dependency in parallel.
type Checker struct {
	mu           sync.RWMutex
	deps         map[string]dependency
	probeTimeout time.Duration
	logger       *slog.Logger
}

// NewChecker creates a Checker whose probes each get probeTimeout.
func NewChecker(probeTimeout time.Duration) *Checker {
	if probeTimeout <= 0 {
		probeTimeout = DefaultProbeTimeout
	}
	return &Checker{
		deps:         make(map[string]dependency),
		probeTimeout: probeTimeout,
		logger:       slog.Default().With("component", "health"),
	}
}

// Require registers a dependency the gateway cannot serve without.
func (c *Checker) Require(name string, ping Ping) {
	c.add(name, dependency{ping: ping})
}

// Optional registers a dependency whose failure only degrades the gateway.
func (c *Checker) Optional(name string, ping Ping) {
	c.add(name, dependency{ping: ping, optional: true})
}

func (c *Checker) add(name string, dep dependency) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deps[name] = dep
}

// Run probes all dependencies. A required failure makes the report down, an
// optional one makes it degraded.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	deps := make(map[string]dependency, len(c.deps))
	for name, dep := range c.deps {
		deps[name] = dep
	}
	c.mu.RUnlock()

	var (
		mu      sync.Mutex
		results = make(map[string]ComponentHealth, len(deps))
		g       errgroup.Group
	)
	for name, dep := range deps {
		g.Go(func() error {
			result := c.probe(ctx, name, dep)
			mu.Lock()
			results[name] = result
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	report := Report{
		Status:     StatusUp,
		Components: results,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	for _, comp := range results {
		switch {
		case comp.Status == StatusDown:
			report.Status = StatusDown
		case comp.Status == StatusDegraded && report.Status == StatusUp:
			report.Status = StatusDegraded
		}
	}
	return report
}

func (c *Checker) probe(ctx context.Context, name string, dep dependency) ComponentHealth {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	start := time.Now()
	err := dep.ping(ctx)
	result := ComponentHealth{
		Status:   StatusUp,
		Optional: dep.optional,
		Latency:  time.Since(start).Round(time.Millisecond).String(),
	}
	if err != nil {
		result.Status = StatusDown
		if dep.optional {
			result.Status = StatusDegraded
		}
		result.Message = err.Error()
		c.logger.Warn("dependency probe failed", "dependency", name, "optional", dep.optional, "error", err)
	}
	return result
}

// LiveHandler answers as long as the process can serve HTTP.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
	}
}

// ReadyHandler answers 503 when a required dependency is down and 200
// otherwise, including while degraded.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.Run(r.Context())
		status := http.StatusOK
		if report.Status == StatusDown {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, report)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
