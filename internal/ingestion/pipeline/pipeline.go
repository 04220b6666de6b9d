// Package pipeline runs an upload through its four side effects in order:
// store the file, extract its text, publish an IngestionEvent, insert the
// metadata row. Nothing is rolled back. When a journal is configured every
// completed step is checkpointed so that Reconcile can finish uploads that
// stopped part way after their file was stored.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/internal/ingestion/extractor"
	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/internal/ingestion/journal"
	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/internal/ingestion/storage"
	apperrors "github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/metrics"
)

// Extractor turns PDF bytes into text.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// EventPublisher writes an event and waits for the broker to acknowledge it.
type EventPublisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// DocumentStore inserts metadata rows. Insert must be idempotent per upload id.
type DocumentStore interface {
	Insert(ctx context.Context, doc *ingestion.UploadedDocument) (int64, error)
}

// Journal checkpoints upload progress.
type Journal interface {
	Save(ctx context.Context, rec journal.Record) error
	Complete(ctx context.Context, uploadID string) error
	Pending(ctx context.Context) ([]journal.Record, error)
}

// Pipeline coordinates file storage, extraction, event publishing and
// metadata persistence for uploads.
type Pipeline struct {
	files     storage.FileStore
	extractor Extractor
	publisher EventPublisher
	store     DocumentStore
	journal   Journal
	metrics   *metrics.Metrics
	now       func() time.Time
	newID     func() string
	logger    *slog.Logger
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithJournal enables write-ahead journaling of uploads.
func WithJournal(j Journal) Option {
	return func(p *Pipeline) { p.journal = j }
}

// WithClock overrides the wall clock used for upload dates.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithIDGenerator overrides upload id generation.
func WithIDGenerator(newID func() string) Option {
	return func(p *Pipeline) { p.newID = newID }
}

// New creates a Pipeline. Without WithJournal uploads are not journaled and
// Reconcile has nothing to do.
func New(files storage.FileStore, extractor Extractor, publisher EventPublisher, store DocumentStore, m *metrics.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		files:     files,
		extractor: extractor,
		publisher: publisher,
		store:     store,
		journal:   nopJournal{},
		metrics:   m,
		now:       time.Now,
		newID:     uuid.NewString,
		logger:    slog.Default().With("component", "ingestion-pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest stores, extracts, publishes and persists one uploaded file.
func (p *Pipeline) Ingest(ctx context.Context, fileName string, data []byte) (*ingestion.UploadResponse, error) {
	name, err := storage.CleanName(fileName)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrInvalidRequest, http.StatusBadRequest, "a file name is required")
	}
	p.metrics.UploadBytes.Observe(float64(len(data)))

	rec := journal.Record{
		UploadID:   p.newID(),
		FileName:   name,
		UploadDate: p.now().Format(ingestion.TimestampLayout),
		Checksum:   checksum(data),
		Stage:      journal.StageAccepted,
	}
	if err := p.journal.Save(ctx, rec); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}
	if err := p.advance(ctx, rec, data); err != nil {
		return nil, err
	}
	return &ingestion.UploadResponse{
		Status:   ingestion.UploadedStatus,
		FileName: name,
	}, nil
}

// advance runs every step after rec.Stage. data is only read while the
// upload is at the accepted or stored stage.
func (p *Pipeline) advance(ctx context.Context, rec journal.Record, data []byte) error {
	log := logger.FromContext(ctx).With("upload_id", rec.UploadID, "file_name", rec.FileName)

	if rec.Stage == journal.StageAccepted {
		location, err := p.files.Save(ctx, rec.FileName, data)
		if err != nil {
			p.metrics.IngestionStepFailures.WithLabelValues("store").Inc()
			p.forget(ctx, rec.UploadID)
			return apperrors.Wrap(apperrors.ErrStorage, err)
		}
		log.Debug("file stored", "location", location, "size", len(data))
		rec.Stage = journal.StageStored
		p.checkpoint(ctx, rec)
	}

	if rec.Stage == journal.StageStored {
		rec.Context, rec.ExtractionStatus = p.extract(ctx, log, data)
		rec.Stage = journal.StageExtracted
		p.checkpoint(ctx, rec)
	}

	if rec.Stage == journal.StageExtracted {
		event := kafka.Event{
			Key: rec.UploadID,
			Value: ingestion.IngestionEvent{
				UploadID:         rec.UploadID,
				FileName:         rec.FileName,
				UploadDate:       rec.UploadDate,
				Context:          rec.Context,
				ExtractionStatus: rec.ExtractionStatus,
			},
		}
		if err := p.publisher.Publish(ctx, event); err != nil {
			p.metrics.IngestionStepFailures.WithLabelValues("publish").Inc()
			log.Error("failed to publish ingestion event, file stored without record", "error", err)
			return apperrors.Wrap(apperrors.ErrBroker, err)
		}
		rec.Stage = journal.StagePublished
		p.checkpoint(ctx, rec)
	}

	id, err := p.store.Insert(ctx, &ingestion.UploadedDocument{
		UploadID:         rec.UploadID,
		FileName:         rec.FileName,
		UploadDate:       rec.UploadDate,
		Context:          rec.Context,
		ExtractionStatus: rec.ExtractionStatus,
	})
	if err != nil {
		p.metrics.IngestionStepFailures.WithLabelValues("persist").Inc()
		log.Error("failed to persist metadata, event already published", "error", err)
		return apperrors.Wrap(apperrors.ErrStorage, err)
	}
	if err := p.journal.Complete(ctx, rec.UploadID); err != nil {
		log.Warn("failed to clear journal record", "error", err)
	}
	p.metrics.UploadsTotal.WithLabelValues(string(rec.ExtractionStatus)).Inc()
	log.Info("document ingested",
		"doc_id", id,
		"extraction_status", rec.ExtractionStatus,
	)
	return nil
}

// extract never fails the upload. A parse error is logged and recorded as a
// NULL context with status failed.
func (p *Pipeline) extract(ctx context.Context, log *slog.Logger, data []byte) (*string, ingestion.ExtractionStatus) {
	text, err := p.extractor.Extract(ctx, data)
	if err != nil {
		log.Warn("text extraction failed", "error", err)
		return nil, ingestion.ExtractionFailed
	}
	text = extractor.CleanText(text)
	if text == "" {
		return &text, ingestion.ExtractionEmpty
	}
	return &text, ingestion.ExtractionExtracted
}

// forget drops the journal record of an upload that will not be resumed.
func (p *Pipeline) forget(ctx context.Context, uploadID string) {
	if err := p.journal.Complete(ctx, uploadID); err != nil {
		p.logger.Warn("failed to clear journal record", "upload_id", uploadID, "error", err)
	}
}

// checkpoint records progress. A failed checkpoint only means a replay
// would repeat the step, so the upload carries on.
func (p *Pipeline) checkpoint(ctx context.Context, rec journal.Record) {
	if err := p.journal.Save(ctx, rec); err != nil {
		p.logger.Warn("failed to checkpoint upload",
			"upload_id", rec.UploadID,
			"stage", rec.Stage,
			"error", err,
		)
	}
}

// Reconcile resumes every journaled upload older than minAge from its last
// completed step. Uploads whose file was never stored are abandoned, since
// their caller already saw the failure. A stored file is only reused when
// its checksum still matches the upload; files with the same name overwrite
// each other, so a mismatch also abandons the upload. It returns how many
// uploads were completed and how many failed or were abandoned.
func (p *Pipeline) Reconcile(ctx context.Context, minAge time.Duration) (completed, failed int, err error) {
	records, err := p.journal.Pending(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("loading pending uploads: %w", err)
	}
	cutoff := p.now().Add(-minAge)
	for _, rec := range records {
		if ctx.Err() != nil {
			return completed, failed, ctx.Err()
		}
		if started, perr := time.ParseInLocation(ingestion.TimestampLayout, rec.UploadDate, time.Local); perr == nil && started.After(cutoff) {
			continue
		}
		log := p.logger.With("upload_id", rec.UploadID, "file_name", rec.FileName, "stage", rec.Stage)

		var data []byte
		switch rec.Stage {
		case journal.StageAccepted:
			log.Warn("abandoning upload that never reached storage")
			p.abandon(ctx, rec.UploadID)
			failed++
			continue
		case journal.StageStored:
			data, err = p.files.Load(ctx, rec.FileName)
			if err != nil {
				log.Error("abandoning upload whose file cannot be read", "error", err)
				p.abandon(ctx, rec.UploadID)
				failed++
				continue
			}
			if rec.Checksum == "" || checksum(data) != rec.Checksum {
				log.Error("abandoning upload whose file was replaced by a later upload")
				p.abandon(ctx, rec.UploadID)
				failed++
				continue
			}
		}

		if err := p.advance(ctx, rec, data); err != nil {
			log.Error("replay failed", "error", err)
			p.metrics.JournalReplaysTotal.WithLabelValues("failed").Inc()
			failed++
			continue
		}
		log.Info("replayed upload")
		p.metrics.JournalReplaysTotal.WithLabelValues("completed").Inc()
		completed++
	}
	return completed, failed, nil
}

func (p *Pipeline) abandon(ctx context.Context, uploadID string) {
	p.forget(ctx, uploadID)
	p.metrics.JournalReplaysTotal.WithLabelValues("abandoned").Inc()
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

type nopJournal struct{}

func (nopJournal) Save(context.Context, journal.Record) error        { return nil }
func (nopJournal) Complete(context.Context, string) error            { return nil }
func (nopJournal) Pending(context.Context) ([]journal.Record, error) { return nil, nil }
