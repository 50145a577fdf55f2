package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/autopeer-io/fleetpeer/internal/monitor/core"
	"github.com/autopeer-io/fleetpeer/internal/monitor/core/model"
	"github.com/autopeer-io/fleetpeer/pkg/options"
)

var _ Backend = (*PostgresStore)(nil)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS fleetpeer_snapshots (
	name     TEXT PRIMARY KEY,
	body     JSONB NOT NULL,
	saved_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore keeps the snapshot in a postgres JSONB column.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to postgres and ensures the schema exists.
func NewPostgresStore(ctx context.Context, opts *options.PostgresOptions) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Name() string { return "postgres" }

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, snapshot model.Snapshot) error {
	data, err := encode(snapshot)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO fleetpeer_snapshots (name, body, saved_at) VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET body = EXCLUDED.body, saved_at = EXCLUDED.saved_at`,
		snapshotName, data)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) (model.Snapshot, error) {
	var body []byte
	err := s.pool.QueryRow(ctx, `SELECT body FROM fleetpeer_snapshots WHERE name = $1`, snapshotName).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return decode(body)
}
