package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/autopeer-io/fleetpeer/internal/monitor/core"
	"github.com/autopeer-io/fleetpeer/internal/monitor/core/model"
)

var _ Backend = (*FileStore)(nil)

// FileStore keeps the snapshot in a local JSON file. Writes go through a
// temporary file and a rename so a crash never leaves a torn snapshot.
type FileStore struct {
	path string
}

// NewFileStore creates a file backed snapshot store.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Name() string { return "file" }

func (s *FileStore) Close() error { return nil }

// Save writes the snapshot atomically.
func (s *FileStore) Save(_ context.Context, snapshot model.Snapshot) error {
	data, err := encode(snapshot)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// Load reads the snapshot file.
func (s *FileStore) Load(_ context.Context) (model.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, core.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, err
	}
	return decode(data)
}
