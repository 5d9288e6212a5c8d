package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"medcert-apply/internal/common/config"

	_ "github.com/lib/pq"
)

// PostgresClient wraps the SQL database connection
type PostgresClient struct {
	DB *sql.DB
}

// NewPostgres creates a new PostgreSQL client
func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// schema holds the tables written by the record and payment workers.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS certificate_applications (
		id                 UUID PRIMARY KEY,
		session_id         TEXT NOT NULL UNIQUE,
		certificate_type   TEXT NOT NULL,
		applicant_name     TEXT NOT NULL,
		email              TEXT NOT NULL,
		phone              TEXT NOT NULL,
		payment_option     TEXT NOT NULL,
		special_format     BOOLEAN NOT NULL DEFAULT FALSE,
		total_amount       INTEGER NOT NULL,
		currency           TEXT NOT NULL,
		submission         JSONB NOT NULL,
		status             TEXT NOT NULL,
		payment_intent_id  TEXT,
		submitted_at       TIMESTAMPTZ NOT NULL,
		created_at         TIMESTAMPTZ NOT NULL,
		updated_at         TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS audit_log (
		id             BIGSERIAL PRIMARY KEY,
		event_type     TEXT NOT NULL,
		resource_type  TEXT NOT NULL,
		resource_id    TEXT NOT NULL,
		details        JSONB,
		created_at     TIMESTAMPTZ NOT NULL
	)`,
}

// EnsureSchema creates the application tables when they are missing.
func (c *PostgresClient) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := c.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
