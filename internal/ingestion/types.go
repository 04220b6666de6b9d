// Package ingestion defines the document records, HTTP response shapes and
// Kafka event schema used by the PDF upload pipeline.
package ingestion

// TimestampLayout is the wall-clock format of upload dates
// ("YYYY-MM-DD HH:MM:SS").
const TimestampLayout = "2006-01-02 15:04:05"

// UploadedStatus is the status string returned for every accepted upload.
const UploadedStatus = "File uploaded successfully"

// ExtractionStatus distinguishes "no text in the document" from "could not
// parse the document". An empty document stores an empty context, a failed
// one stores NULL.
type ExtractionStatus string

const (
	ExtractionExtracted ExtractionStatus = "extracted"
	ExtractionEmpty     ExtractionStatus = "empty"
	ExtractionFailed    ExtractionStatus = "failed"
)

// UploadedDocument is one row of pdf_files.
type UploadedDocument struct {
	ID               int64            `json:"id"`
	UploadID         string           `json:"upload_id"`
	FileName         string           `json:"file_name"`
	UploadDate       string           `json:"upload_date"`
	Context          *string          `json:"context"`
	ExtractionStatus ExtractionStatus `json:"extraction_status"`
}

// DocumentSummary is the list view of a document, without its text.
type DocumentSummary struct {
	ID               int64            `json:"id"`
	FileName         string           `json:"file_name"`
	UploadDate       string           `json:"upload_date"`
	ExtractionStatus ExtractionStatus `json:"extraction_status"`
}

// UploadResponse is returned to the caller after a file is ingested.
type UploadResponse struct {
	Status   string `json:"status"`
	FileName string `json:"file_name"`
}

// IngestionEvent is the Kafka message published once per upload. Consumers
// may see it more than once after a journal replay and should dedupe on
// UploadID.
type IngestionEvent struct {
	UploadID         string           `json:"upload_id"`
	FileName         string           `json:"file_name"`
	UploadDate       string           `json:"upload_date"`
	Context          *string          `json:"context"`
	ExtractionStatus ExtractionStatus `json:"extraction_status"`
}
