package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "pdf-upload", cfg.Kafka.Topics.PDFUpload)
	assert.Equal(t, "user-questions", cfg.Kafka.Topics.UserQuestions)
	assert.Equal(t, "llm-responses", cfg.Kafka.Topics.LLMResponses)
	assert.Equal(t, StorageLocal, cfg.Storage.Backend)
	assert.Equal(t, "uploads", cfg.Storage.LocalDir)
	assert.Equal(t, ModeKeyed, cfg.Correlation.Mode)
	assert.Equal(t, 60*time.Second, cfg.Correlation.Timeout)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  port: 9001
kafka:
  brokers: ["kafka-1:9092", "kafka-2:9092"]
  topics:
    llmResponses: answers
correlation:
  mode: first-answer
  timeout: 0s
storage:
  backend: s3
  s3:
    bucket: uploads-bucket
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Server.Port)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "answers", cfg.Kafka.Topics.LLMResponses)
	assert.Equal(t, "user-questions", cfg.Kafka.Topics.UserQuestions)
	assert.Equal(t, ModeFirstAnswer, cfg.Correlation.Mode)
	assert.Zero(t, cfg.Correlation.Timeout)
	assert.Equal(t, "uploads-bucket", cfg.Storage.S3.Bucket)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DQ_SERVER_PORT", "8123")
	t.Setenv("DQ_KAFKA_BROKERS", "a:1,b:2")
	t.Setenv("DQ_REDIS_ENABLED", "true")
	t.Setenv("DQ_CORRELATION_TIMEOUT", "5s")
	t.Setenv("DQ_STORAGE_LOCAL_DIR", "/var/lib/uploads")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8123, cfg.Server.Port)
	assert.Equal(t, []string{"a:1", "b:2"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 5*time.Second, cfg.Correlation.Timeout)
	assert.Equal(t, "/var/lib/uploads", cfg.Storage.LocalDir)
}

func TestLoad_TopicAndLimitOverrides(t *testing.T) {
	t.Setenv("DQ_KAFKA_TOPIC_PDF_UPLOAD", "pdfs")
	t.Setenv("DQ_KAFKA_TOPIC_USER_QUESTIONS", "questions")
	t.Setenv("DQ_KAFKA_TOPIC_LLM_RESPONSES", "answers")
	t.Setenv("DQ_UPLOAD_MAX_BYTES", "1048576")
	t.Setenv("DQ_UPLOAD_TIMEOUT", "45s")
	t.Setenv("DQ_REDIS_JOURNAL_TTL", "24h")
	t.Setenv("DQ_REDIS_CACHE_TTL", "30s")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, KafkaTopics{PDFUpload: "pdfs", UserQuestions: "questions", LLMResponses: "answers"}, cfg.Kafka.Topics)
	assert.Equal(t, int64(1<<20), cfg.Upload.MaxBytes)
	assert.Equal(t, 45*time.Second, cfg.Upload.Timeout)
	assert.Equal(t, 24*time.Hour, cfg.Redis.JournalTTL)
	assert.Equal(t, 30*time.Second, cfg.Redis.CacheTTL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults are valid", func(*Config) {}, ""},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "ftp" }, `unknown storage backend "ftp"`},
		{"s3 without bucket", func(c *Config) { c.Storage.Backend = StorageS3 }, "storage.s3.bucket is required"},
		{"unknown mode", func(c *Config) { c.Correlation.Mode = "random" }, `unknown correlation mode "random"`},
		{"negative timeout", func(c *Config) { c.Correlation.Timeout = -time.Second }, "must not be negative"},
		{"no brokers", func(c *Config) { c.Kafka.Brokers = nil }, "kafka.brokers must not be empty"},
		{"zero upload limit", func(c *Config) { c.Upload.MaxBytes = 0 }, "upload.maxBytes must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "d", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=d sslmode=disable", p.DSN())
}
