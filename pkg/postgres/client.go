// Package postgres opens the lib/pq connection pool behind the pdf_files
// document store and applies the embedded schema migrations.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/config"
)

// connectTimeout bounds the first ping made by New.
const connectTimeout = 5 * time.Second

// Client wraps the document store's connection pool.
type Client struct {
	DB  *sql.DB
	dsn string
}

// New opens the pool described by cfg and waits for the database to answer.
// A database that is still starting up surfaces as an error here rather
// than on the first upload.
func New(ctx context.Context, cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening pool for %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Database, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("reaching %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Database, err)
	}
	return &Client{DB: db, dsn: cfg.DSN()}, nil
}

// Close releases every pooled connection.
func (c *Client) Close() error {
	return c.DB.Close()
}

// Ping is the readiness probe for the document store.
func (c *Client) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// InTx runs fn in a transaction, committing when fn returns nil. A rollback
// failure is joined to fn's error.
func (c *Client) InTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			err = errors.Join(err, fmt.Errorf("rolling back: %w", rbErr))
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
