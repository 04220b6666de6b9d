// Package router wires up all gateway routes and applies the middleware
// chain (RequestID → CORS → Metrics).
package router

import (
	"net/http"
	"time"

	chathandler "github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/internal/chat/handler"
	gwmw "github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/internal/gateway/middleware"
	ingesthandler "github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/metrics"
	pkgmw "github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/middleware"
)

// Handlers groups the endpoint handlers served by the gateway.
type Handlers struct {
	Ingestion *ingesthandler.Handler
	Chat      *chathandler.Handler
	Health    *health.Checker
}

// Options tunes the middleware chain.
type Options struct {
	UploadTimeout time.Duration
	CORSOrigins   []string
	Metrics       *metrics.Metrics
}

// New builds the full gateway HTTP handler with all routes and middleware.
//
// Route table:
//
//	POST   /upload_pdf/        → store, extract, publish, persist
//	POST   /chatbot/           → publish question, wait for answer
//	GET    /documents          → list documents
//	GET    /documents/{id}     → get document with text
//	GET    /health             → dependency report
//	GET    /health/live        → liveness probe
//	GET    /health/ready       → readiness probe
//
// Middleware chain (outermost first):
//
//	RequestID → CORS → Metrics → handler
//
// Only uploads are bounded by UploadTimeout. Chatbot requests wait as long as
// the correlator allows.
func New(h Handlers, opts Options) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST /upload_pdf/{$}", pkgmw.Timeout(opts.UploadTimeout)(http.HandlerFunc(h.Ingestion.Upload)))
	mux.HandleFunc("POST /chatbot/{$}", h.Chat.Ask)

	mux.HandleFunc("GET /documents", h.Ingestion.List)
	mux.HandleFunc("GET /documents/{id}", h.Ingestion.Get)

	mux.HandleFunc("GET /health", h.Health.ReadyHandler())
	mux.HandleFunc("GET /health/live", h.Health.LiveHandler())
	mux.HandleFunc("GET /health/ready", h.Health.ReadyHandler())

	var chain http.Handler = mux
	chain = pkgmw.Metrics(opts.Metrics)(chain)
	chain = gwmw.CORS(gwmw.NewCORSConfig(opts.CORSOrigins))(chain)
	chain = pkgmw.RequestID(chain)

	return chain
}
