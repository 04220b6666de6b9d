// Package config loads and validates gateway configuration from YAML files
// with environment-variable overrides. A .env file in the working directory,
// if present, is loaded into the process environment before overrides are
// applied.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Correlation modes for the chatbot endpoint.
const (
	// ModeKeyed matches answers to questions by correlation id.
	ModeKeyed = "keyed"
	// ModeFirstAnswer returns the first answer read from the earliest offset.
	ModeFirstAnswer = "first-answer"
)

// Config is the top-level application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Postgres    PostgresConfig    `yaml:"postgres"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Redis       RedisConfig       `yaml:"redis"`
	Storage     StorageConfig     `yaml:"storage"`
	Upload      UploadConfig      `yaml:"upload"`
	Correlation CorrelationConfig `yaml:"correlation"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// CORSOrigins lists browser origins allowed to call the API. Empty
	// disables CORS headers.
	CORSOrigins []string `yaml:"corsOrigins"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	PDFUpload     string `yaml:"pdfUpload"`
	UserQuestions string `yaml:"userQuestions"`
	LLMResponses  string `yaml:"llmResponses"`
}

// RedisConfig holds Redis connection parameters for the ingestion journal
// and the document cache. When Enabled is false uploads run without a
// write-ahead journal and document reads go straight to PostgreSQL.
type RedisConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Addr       string        `yaml:"addr"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	PoolSize   int           `yaml:"poolSize"`
	JournalTTL time.Duration `yaml:"journalTTL"`
	CacheTTL   time.Duration `yaml:"cacheTTL"`
}

// StorageConfig selects where uploaded files are written.
type StorageConfig struct {
	Backend  string   `yaml:"backend"`
	LocalDir string   `yaml:"localDir"`
	S3       S3Config `yaml:"s3"`
}

// S3Config holds settings for an S3-compatible object store.
type S3Config struct {
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"accessKeyId"`
	SecretAccessKey string `yaml:"secretAccessKey"`
	UsePathStyle    bool   `yaml:"usePathStyle"`
}

// UploadConfig bounds accepted uploads.
type UploadConfig struct {
	MaxBytes int64         `yaml:"maxBytes"`
	Timeout  time.Duration `yaml:"timeout"`
}

// CorrelationConfig controls how chatbot answers are matched to questions.
// A zero Timeout waits until the caller goes away.
type CorrelationConfig struct {
	Mode    string        `yaml:"mode"`
	Timeout time.Duration `yaml:"timeout"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides on top of the defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports configuration values the gateway cannot run with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Backend {
	case StorageLocal:
		if c.Storage.LocalDir == "" {
			errs = append(errs, errors.New("storage.localDir is required for the local backend"))
		}
	case StorageS3:
		if c.Storage.S3.Bucket == "" {
			errs = append(errs, errors.New("storage.s3.bucket is required for the s3 backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.Storage.Backend))
	}
	switch c.Correlation.Mode {
	case ModeKeyed, ModeFirstAnswer:
	default:
		errs = append(errs, fmt.Errorf("unknown correlation mode %q", c.Correlation.Mode))
	}
	if c.Correlation.Timeout < 0 {
		errs = append(errs, errors.New("correlation.timeout must not be negative"))
	}
	if len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka.brokers must not be empty"))
	}
	if c.Upload.MaxBytes <= 0 {
		errs = append(errs, errors.New("upload.maxBytes must be positive"))
	}
	return errors.Join(errs...)
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8000,
			ReadTimeout:     30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "pdf_rag_app",
			User:            "pdf_rag_app",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "pdf-qa-gateway",
			Topics: KafkaTopics{
				PDFUpload:     "pdf-upload",
				UserQuestions: "user-questions",
				LLMResponses:  "llm-responses",
			},
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			PoolSize:   10,
			JournalTTL: 7 * 24 * time.Hour,
			CacheTTL:   10 * time.Minute,
		},
		Storage: StorageConfig{
			Backend:  StorageLocal,
			LocalDir: "uploads",
			S3: S3Config{
				Region: "us-east-1",
			},
		},
		Upload: UploadConfig{
			MaxBytes: 32 << 20,
			Timeout:  2 * time.Minute,
		},
		Correlation: CorrelationConfig{
			Mode:    ModeKeyed,
			Timeout: 60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads DQ_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DQ_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DQ_SERVER_CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("DQ_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("DQ_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("DQ_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("DQ_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("DQ_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("DQ_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("DQ_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("DQ_KAFKA_CONSUMER_GROUP"); v != "" {
		cfg.Kafka.ConsumerGroup = v
	}
	if v := os.Getenv("DQ_KAFKA_TOPIC_PDF_UPLOAD"); v != "" {
		cfg.Kafka.Topics.PDFUpload = v
	}
	if v := os.Getenv("DQ_KAFKA_TOPIC_USER_QUESTIONS"); v != "" {
		cfg.Kafka.Topics.UserQuestions = v
	}
	if v := os.Getenv("DQ_KAFKA_TOPIC_LLM_RESPONSES"); v != "" {
		cfg.Kafka.Topics.LLMResponses = v
	}
	if v := os.Getenv("DQ_REDIS_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Redis.Enabled = enabled
		}
	}
	if v := os.Getenv("DQ_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("DQ_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("DQ_REDIS_JOURNAL_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Redis.JournalTTL = d
		}
	}
	if v := os.Getenv("DQ_REDIS_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Redis.CacheTTL = d
		}
	}
	if v := os.Getenv("DQ_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("DQ_STORAGE_LOCAL_DIR"); v != "" {
		cfg.Storage.LocalDir = v
	}
	if v := os.Getenv("DQ_S3_ENDPOINT"); v != "" {
		cfg.Storage.S3.Endpoint = v
	}
	if v := os.Getenv("DQ_S3_BUCKET"); v != "" {
		cfg.Storage.S3.Bucket = v
	}
	if v := os.Getenv("DQ_S3_ACCESS_KEY_ID"); v != "" {
		cfg.Storage.S3.AccessKeyID = v
	}
	if v := os.Getenv("DQ_S3_SECRET_ACCESS_KEY"); v != "" {
		cfg.Storage.S3.SecretAccessKey = v
	}
	if v := os.Getenv("DQ_UPLOAD_MAX_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Upload.MaxBytes = n
		}
	}
	if v := os.Getenv("DQ_UPLOAD_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Upload.Timeout = d
		}
	}
	if v := os.Getenv("DQ_CORRELATION_MODE"); v != "" {
		cfg.Correlation.Mode = v
	}
	if v := os.Getenv("DQ_CORRELATION_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Correlation.Timeout = d
		}
	}
	if v := os.Getenv("DQ_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DQ_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
