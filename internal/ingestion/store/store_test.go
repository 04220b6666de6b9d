package store

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/postgres"
)

func TestNullableString(t *testing.T) {
	assert.False(t, nullableString(nil).Valid)
	empty := ""
	assert.True(t, nullableString(&empty).Valid)
}

// setupStore starts PostgreSQL in a container, applies migrations and
// returns a Store. Set TEST_INTEGRATION to run.
func setupStore(t *testing.T) *Store {
	t.Helper()
	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("skipping integration test: TEST_INTEGRATION not set")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		tcpostgres.WithDatabase("pdf_rag_app_test"),
		tcpostgres.WithUsername("pdf_rag_app"),
		tcpostgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminating postgres container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	portNum, err := strconv.Atoi(port.Port())
	require.NoError(t, err)

	db, err := postgres.New(ctx, config.PostgresConfig{
		Host:            host,
		Port:            portNum,
		Database:        "pdf_rag_app_test",
		User:            "pdf_rag_app",
		Password:        "test-password",
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.MigrateUp())

	return New(db)
}

func TestStore_InsertGet(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	text := "Hello World"

	id, err := s.Insert(ctx, &ingestion.UploadedDocument{
		UploadID:         uuid.NewString(),
		FileName:         "hello.pdf",
		UploadDate:       "2024-01-02 03:04:05",
		Context:          &text,
		ExtractionStatus: ingestion.ExtractionExtracted,
	})
	require.NoError(t, err)

	doc, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "hello.pdf", doc.FileName)
	assert.Equal(t, "2024-01-02 03:04:05", doc.UploadDate)
	require.NotNil(t, doc.Context)
	assert.Equal(t, text, *doc.Context)
	assert.Equal(t, ingestion.ExtractionExtracted, doc.ExtractionStatus)
}

func TestStore_NullContext(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	id, err := s.Insert(ctx, &ingestion.UploadedDocument{
		UploadID:         uuid.NewString(),
		FileName:         "broken.pdf",
		UploadDate:       "2024-01-02 03:04:05",
		ExtractionStatus: ingestion.ExtractionFailed,
	})
	require.NoError(t, err)

	doc, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, doc.Context)
	assert.Equal(t, ingestion.ExtractionFailed, doc.ExtractionStatus)
}

func TestStore_InsertIsIdempotentPerUpload(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	doc := &ingestion.UploadedDocument{
		UploadID:         uuid.NewString(),
		FileName:         "twice.pdf",
		UploadDate:       "2024-01-02 03:04:05",
		ExtractionStatus: ingestion.ExtractionEmpty,
	}

	first, err := s.Insert(ctx, doc)
	require.NoError(t, err)
	second, err := s.Insert(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	docs, err := s.List(ctx, 100, 0)
	require.NoError(t, err)
	count := 0
	for _, d := range docs {
		if d.FileName == "twice.pdf" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestStore_SameFileNameTwiceKeepsBothRows(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := s.Insert(ctx, &ingestion.UploadedDocument{
			UploadID:         uuid.NewString(),
			FileName:         "same.pdf",
			UploadDate:       "2024-01-02 03:04:05",
			ExtractionStatus: ingestion.ExtractionEmpty,
		})
		require.NoError(t, err)
	}

	docs, err := s.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
	assert.Greater(t, docs[0].ID, docs[1].ID)
}

func TestStore_GetMissing(t *testing.T) {
	s := setupStore(t)
	_, err := s.Get(context.Background(), 999999)
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
}
