// Package storage holds the vehicle snapshot backends.
package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/autopeer-io/fleetpeer/internal/monitor/core"
	"github.com/autopeer-io/fleetpeer/internal/monitor/core/model"
	"github.com/autopeer-io/fleetpeer/pkg/options"
)

// Backend is a snapshot store that owns external resources.
type Backend interface {
	core.SnapshotStore

	// Name identifies the backend in logs and metrics.
	Name() string

	// Close releases connections held by the backend.
	Close() error
}

// Options selects and configures a snapshot backend.
type Options struct {
	Snapshot *options.SnapshotOptions
	SQLite   *options.SQLiteOptions
	Postgres *options.PostgresOptions
	Redis    *options.RedisOptions
	S3       *options.S3Options
}

// New opens the backend named by opts.Snapshot.Backend.
func New(ctx context.Context, opts Options) (Backend, error) {
	switch opts.Snapshot.Backend {
	case options.SnapshotBackendFile, "":
		return NewFileStore(opts.Snapshot.Path), nil
	case options.SnapshotBackendSQLite:
		return NewSQLiteStore(ctx, opts.SQLite.Path)
	case options.SnapshotBackendPostgres:
		return NewPostgresStore(ctx, opts.Postgres)
	case options.SnapshotBackendRedis:
		return NewRedisStore(ctx, opts.Redis)
	case options.SnapshotBackendS3:
		return NewMinIOStore(ctx, opts.S3)
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", opts.Snapshot.Backend)
	}
}

func encode(snapshot model.Snapshot) ([]byte, error) {
	if snapshot == nil {
		snapshot = model.Snapshot{}
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

func decode(data []byte) (model.Snapshot, error) {
	snapshot := model.Snapshot{}
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snapshot, nil
}
