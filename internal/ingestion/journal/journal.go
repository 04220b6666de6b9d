// Package journal keeps a write-ahead record of every upload in Redis until
// the upload's database row exists. Records left behind by a crash or a
// failed step are replayed by the pipeline's reconciler.
package journal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/internal/ingestion"
)

const keyPrefix = "ingest:journal:"

// Stage is the last pipeline step an upload completed.
type Stage string

const (
	StageAccepted  Stage = "accepted"
	StageStored    Stage = "stored"
	StageExtracted Stage = "extracted"
	StagePublished Stage = "published"
)

// Record is the journaled state of one upload. Checksum is the hex SHA-256
// of the uploaded bytes, used to tell whether the stored file still belongs
// to this upload.
type Record struct {
	UploadID         string
	FileName         string
	UploadDate       string
	Checksum         string
	Stage            Stage
	Context          *string
	ExtractionStatus ingestion.ExtractionStatus
}

// hashStore is the subset of pkg/redis.Client the journal needs.
type hashStore interface {
	HSetWithTTL(ctx context.Context, key string, fields map[string]any, ttl time.Duration) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, keys ...string) error
	ScanKeys(ctx context.Context, pattern string) ([]string, error)
}

// Redis stores one hash per upload under ingest:journal:<upload id>.
type Redis struct {
	store  hashStore
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedis creates a journal whose records expire after ttl.
func NewRedis(store hashStore, ttl time.Duration) *Redis {
	return &Redis{
		store:  store,
		ttl:    ttl,
		logger: slog.Default().With("component", "ingestion-journal"),
	}
}

// Save writes the full record, replacing any previous state.
func (j *Redis) Save(ctx context.Context, rec Record) error {
	fields := map[string]any{
		"upload_id":         rec.UploadID,
		"file_name":         rec.FileName,
		"upload_date":       rec.UploadDate,
		"checksum":          rec.Checksum,
		"stage":             string(rec.Stage),
		"extraction_status": string(rec.ExtractionStatus),
		"has_context":       "0",
		"context":           "",
	}
	if rec.Context != nil {
		fields["has_context"] = "1"
		fields["context"] = *rec.Context
	}
	if err := j.store.HSetWithTTL(ctx, keyPrefix+rec.UploadID, fields, j.ttl); err != nil {
		return fmt.Errorf("journaling upload %s at stage %s: %w", rec.UploadID, rec.Stage, err)
	}
	return nil
}

// Complete removes the record of a finished upload.
func (j *Redis) Complete(ctx context.Context, uploadID string) error {
	if err := j.store.Del(ctx, keyPrefix+uploadID); err != nil {
		return fmt.Errorf("completing journal record %s: %w", uploadID, err)
	}
	return nil
}

// Pending returns every record still in the journal. Records that vanish or
// fail to parse between scan and read are skipped.
func (j *Redis) Pending(ctx context.Context) ([]Record, error) {
	keys, err := j.store.ScanKeys(ctx, keyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("listing journal records: %w", err)
	}
	records := make([]Record, 0, len(keys))
	for _, key := range keys {
		fields, err := j.store.HGetAll(ctx, key)
		if err != nil {
			return records, fmt.Errorf("reading journal record %s: %w", key, err)
		}
		rec, ok := parseRecord(fields)
		if !ok {
			j.logger.Warn("skipping malformed journal record", "key", key)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRecord(fields map[string]string) (Record, bool) {
	rec := Record{
		UploadID:         fields["upload_id"],
		FileName:         fields["file_name"],
		UploadDate:       fields["upload_date"],
		Checksum:         fields["checksum"],
		Stage:            Stage(fields["stage"]),
		ExtractionStatus: ingestion.ExtractionStatus(fields["extraction_status"]),
	}
	if rec.UploadID == "" || rec.FileName == "" {
		return Record{}, false
	}
	switch rec.Stage {
	case StageAccepted, StageStored, StageExtracted, StagePublished:
	default:
		return Record{}, false
	}
	if fields["has_context"] == "1" {
		text := fields["context"]
		rec.Context = &text
	}
	return rec, true
}
