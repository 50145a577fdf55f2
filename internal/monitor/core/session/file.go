package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/autopeer-io/fleetpeer/internal/monitor/core/model"
	"github.com/autopeer-io/fleetpeer/pkg/log"
)

// credentialFile stores the credentials as a JSON document readable only by the owner.
type credentialFile struct {
	path string
}

func (f *credentialFile) load() (model.Credentials, error) {
	var creds model.Credentials
	if f.path == "" {
		return creds, nil
	}

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return creds, nil
	}
	if err != nil {
		return creds, err
	}
	if len(data) == 0 {
		return creds, nil
	}
	if err := json.Unmarshal(data, &creds); err != nil {
		return model.Credentials{}, fmt.Errorf("failed to decode %s: %w", f.path, err)
	}
	return creds, nil
}

func (f *credentialFile) save(creds model.Credentials) error {
	if f.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".credentials-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

func (f *credentialFile) remove() error {
	if f.path == "" {
		return nil
	}
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// watch calls onChange whenever the credentials file is written, replaced or
// removed. The parent directory is watched so that atomic renames are seen.
// done is closed when the watcher stops.
func (f *credentialFile) watch(ctx context.Context, done chan<- struct{}, onChange func()) error {
	if f.path == "" {
		close(done)
		return nil
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return err
	}

	target := filepath.Clean(f.path)
	go func() {
		defer close(done)
		defer w.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
					log.Debug("Credentials file changed", "op", ev.Op.String())
					onChange()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Error(err, "Credentials watcher error")
			}
		}
	}()

	return nil
}
