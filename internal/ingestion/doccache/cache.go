// Package doccache serves document reads through Redis. Rows in pdf_files
// are never updated after insert, so cached entries are only dropped by TTL.
// Concurrent misses for the same document share one database query.
package doccache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/redis"
)

const keyPrefix = "doc:"

// Reader is the document source behind the cache.
type Reader interface {
	Get(ctx context.Context, id int64) (*ingestion.UploadedDocument, error)
	List(ctx context.Context, limit, offset int) ([]ingestion.DocumentSummary, error)
}

type kvStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Cache implements Reader. List always reads through.
type Cache struct {
	reader  Reader
	kv      kvStore
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func New(reader Reader, kv kvStore, ttl time.Duration, m *metrics.Metrics) *Cache {
	return &Cache{
		reader:  reader,
		kv:      kv,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "document-cache"),
	}
}

func (c *Cache) Get(ctx context.Context, id int64) (*ingestion.UploadedDocument, error) {
	if doc, ok := c.lookup(ctx, id); ok {
		return doc, nil
	}
	key := c.key(id)
	val, err, _ := c.group.Do(key, func() (any, error) {
		// The load serves every waiter for this id, not only ctx's caller.
		shared := context.WithoutCancel(ctx)
		doc, err := c.reader.Get(shared, id)
		if err != nil {
			return nil, err
		}
		c.store(shared, doc)
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	return val.(*ingestion.UploadedDocument), nil
}

func (c *Cache) List(ctx context.Context, limit, offset int) ([]ingestion.DocumentSummary, error) {
	return c.reader.List(ctx, limit, offset)
}

func (c *Cache) lookup(ctx context.Context, id int64) (*ingestion.UploadedDocument, bool) {
	key := c.key(id)
	data, err := c.kv.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.metrics.DocumentCacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	var doc ingestion.UploadedDocument
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.metrics.DocumentCacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	c.metrics.DocumentCacheLookups.WithLabelValues("hit").Inc()
	return &doc, true
}

func (c *Cache) store(ctx context.Context, doc *ingestion.UploadedDocument) {
	key := c.key(doc.ID)
	data, err := json.Marshal(doc)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.kv.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

func (c *Cache) key(id int64) string {
	return keyPrefix + strconv.FormatInt(id, 10)
}
