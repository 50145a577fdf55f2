package core

import (
	"context"
	"errors"

	"github.com/autopeer-io/fleetpeer/internal/monitor/core/model"
)

// ErrSnapshotNotFound is returned by SnapshotStore.Load when nothing was saved yet.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotStore persists the vehicle state snapshot for warm starts.
// Implemented by the adapters in internal/monitor/storage.
type SnapshotStore interface {
	// Save replaces the stored snapshot.
	Save(ctx context.Context, snapshot model.Snapshot) error

	// Load returns the last saved snapshot or ErrSnapshotNotFound.
	Load(ctx context.Context) (model.Snapshot, error)
}
