// Package store persists upload metadata and extracted text in the pdf_files
// table.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/postgres"
)

// Store is the PostgreSQL-backed document store.
type Store struct {
	db *postgres.Client
}

// New creates a Store on an open client.
func New(db *postgres.Client) *Store {
	return &Store{db: db}
}

// Insert writes a metadata row and returns its id. Inserting the same upload
// id twice is a no-op that returns the existing row's id.
func (s *Store) Insert(ctx context.Context, doc *ingestion.UploadedDocument) (int64, error) {
	var id int64
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO pdf_files (upload_id, file_name, upload_date, context, extraction_status)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (upload_id) DO NOTHING
			RETURNING id`,
			doc.UploadID, doc.FileName, doc.UploadDate, nullableString(doc.Context), string(doc.ExtractionStatus),
		).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return tx.QueryRowContext(ctx,
				`SELECT id FROM pdf_files WHERE upload_id = $1`, doc.UploadID,
			).Scan(&id)
		}
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("inserting pdf_files row for %s: %w", doc.FileName, err)
	}
	return id, nil
}

// Get returns one document with its text.
func (s *Store) Get(ctx context.Context, id int64) (*ingestion.UploadedDocument, error) {
	var (
		doc    ingestion.UploadedDocument
		text   sql.NullString
		status string
	)
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT id, upload_id, file_name, upload_date, context, extraction_status
		FROM pdf_files WHERE id = $1`, id,
	).Scan(&doc.ID, &doc.UploadID, &doc.FileName, &doc.UploadDate, &text, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying document %d: %w", id, err)
	}
	if text.Valid {
		doc.Context = &text.String
	}
	doc.ExtractionStatus = ingestion.ExtractionStatus(status)
	return &doc, nil
}

// List returns document summaries, newest first.
func (s *Store) List(ctx context.Context, limit, offset int) ([]ingestion.DocumentSummary, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT id, file_name, upload_date, extraction_status
		FROM pdf_files ORDER BY id DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	docs := make([]ingestion.DocumentSummary, 0)
	for rows.Next() {
		var (
			d      ingestion.DocumentSummary
			status string
		)
		if err := rows.Scan(&d.ID, &d.FileName, &d.UploadDate, &status); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		d.ExtractionStatus = ingestion.ExtractionStatus(status)
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating document rows: %w", err)
	}
	return docs, nil
}

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
