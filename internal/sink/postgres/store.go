// Package postgres mirrors scan results into a Postgres table.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/domainscan/internal/metrics"
	"github.com/JakeFAU/domainscan/internal/scanner"
)

// DefaultTable receives rows when no table is configured.
const DefaultTable = "scan_results"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// Sink inserts one row per finished candidate. It implements scanner.ResultSink.
type Sink struct {
	pool  execCloser
	table string
	runID string
	query string
}

// New connects to Postgres.
func New(ctx context.Context, cfg Config, runID string) (*Sink, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sink, err := NewWithPool(pool, cfg.Table, runID)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return sink, nil
}

// NewWithPool constructs a sink from an existing pool (primarily for testing).
func NewWithPool(pool execCloser, table, runID string) (*Sink, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = DefaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Sink{pool: pool, table: table, runID: runID, query: insertQuery(table)}, nil
}

// Table returns the destination table.
func (s *Sink) Table() string { return s.table }

// Close releases the pool.
func (s *Sink) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Consume inserts the result row.
func (s *Sink) Consume(ctx context.Context, result scanner.ScanResult) error {
	args := []any{
		s.runID,
		result.N,
		result.Domain,
		result.URL,
		string(result.Outcome()),
		result.StatusCode,
		result.Attempts,
		result.Price,
		result.ErrorText(),
		result.ContentHash,
		result.CheckedAt,
	}
	if _, err := s.pool.Exec(ctx, s.query, args...); err != nil {
		metrics.ObserveSinkFailure("postgres")
		return fmt.Errorf("insert scan result %d: %w", result.N, err)
	}
	return nil
}

// Schema returns DDL for the destination table.
func (s *Sink) Schema() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	run_id      UUID        NOT NULL,
	n           BIGINT      NOT NULL,
	domain      TEXT        NOT NULL,
	url         TEXT        NOT NULL,
	outcome     TEXT        NOT NULL,
	status_code INT         NOT NULL,
	attempts    INT         NOT NULL,
	price       TEXT        NOT NULL DEFAULT '',
	error       TEXT        NOT NULL DEFAULT '',
	body_sha256 TEXT        NOT NULL DEFAULT '',
	checked_at  TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (run_id, n)
)`, s.table)
}

// EnsureSchema creates the destination table if it does not exist.
func (s *Sink) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, s.Schema()); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

func insertQuery(table string) string {
	return fmt.Sprintf(`
INSERT INTO %s (
	run_id,
	n,
	domain,
	url,
	outcome,
	status_code,
	attempts,
	price,
	error,
	body_sha256,
	checked_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
) ON CONFLICT (run_id, n) DO NOTHING`, table)
}
