// Package handler serves the upload and document endpoints.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/logger"
)

// multipartMemory is how much of a multipart body is held in memory before
// spilling to temporary files.
const multipartMemory = 8 << 20

// Ingester runs an uploaded file through storage, extraction, publishing
// and persistence.
type Ingester interface {
	Ingest(ctx context.Context, fileName string, data []byte) (*ingestion.UploadResponse, error)
}

// DocumentReader reads stored document metadata.
type DocumentReader interface {
	Get(ctx context.Context, id int64) (*ingestion.UploadedDocument, error)
	List(ctx context.Context, limit, offset int) ([]ingestion.DocumentSummary, error)
}

// Handler serves POST /upload_pdf/, GET /documents and GET /documents/{id}.
type Handler struct {
	ingester Ingester
	docs     DocumentReader
	maxBytes int64
	logger   *slog.Logger
}

// New creates a Handler. Upload bodies larger than maxBytes are rejected
// with 413; zero disables the limit.
func New(ingester Ingester, docs DocumentReader, maxBytes int64) *Handler {
	return &Handler{
		ingester: ingester,
		docs:     docs,
		maxBytes: maxBytes,
		logger:   slog.Default().With("component", "ingestion-handler"),
	}
}

// Upload handles POST /upload_pdf/ with the file in multipart field "file".
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	if h.maxBytes > 0 {
		if r.ContentLength > h.maxBytes {
			h.writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		h.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	if err := validator.ValidateUpload(header.Filename); err != nil {
		var validationErr *validator.ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		log.Error("failed to read uploaded file", "error", err)
		h.writeError(w, http.StatusBadRequest, "could not read uploaded file")
		return
	}

	resp, err := h.ingester.Ingest(ctx, header.Filename, data)
	if err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("ingestion failed",
			"file_name", header.Filename,
			"error", err,
			"status_code", statusCode,
		)
		h.writeError(w, statusCode, "ingestion failed")
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// List handles GET /documents.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := validator.ParsePage(q.Get("limit"), q.Get("offset"))
	if err != nil {
		var validationErr *validator.ValidationError
		errors.As(err, &validationErr)
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": validationErr.Fields,
		})
		return
	}

	docs, err := h.docs.List(r.Context(), page.Limit, page.Offset)
	if err != nil {
		logger.FromContext(r.Context()).Error("listing documents failed", "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), "listing documents failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"limit":     page.Limit,
		"offset":    page.Offset,
	})
}

// Get handles GET /documents/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		h.writeError(w, http.StatusBadRequest, "document id must be a positive integer")
		return
	}

	doc, err := h.docs.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperrors.ErrDocumentNotFound) {
			h.writeError(w, http.StatusNotFound, "document not found")
			return
		}
		logger.FromContext(r.Context()).Error("loading document failed", "doc_id", id, "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), "loading document failed")
		return
	}
	h.writeJSON(w, http.StatusOK, doc)
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
