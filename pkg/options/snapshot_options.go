package options

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*SnapshotOptions)(nil)

// Snapshot backends.
const (
	SnapshotBackendFile     = "file"
	SnapshotBackendSQLite   = "sqlite"
	SnapshotBackendPostgres = "postgres"
	SnapshotBackendRedis    = "redis"
	SnapshotBackendS3       = "s3"
)

// SnapshotOptions selects where the vehicle state snapshot is persisted.
type SnapshotOptions struct {
	// Backend is one of file, sqlite, postgres, redis, s3.
	Backend string `json:"backend" mapstructure:"backend" validate:"oneof=file sqlite postgres redis s3"`

	// Path of the snapshot file for the "file" backend.
	Path string `json:"path" mapstructure:"path" validate:"required_if=Backend file"`

	// FlushInterval is how often pending snapshots are written. Each batch produces at most one write.
	FlushInterval time.Duration `json:"flush-interval" mapstructure:"flush-interval" validate:"gt=0"`
}

// NewSnapshotOptions creates a SnapshotOptions object with default parameters.
func NewSnapshotOptions() *SnapshotOptions {
	dir, err := os.UserHomeDir()
	if err != nil {
		dir = os.TempDir()
	}

	return &SnapshotOptions{
		Backend:       SnapshotBackendFile,
		Path:          filepath.Join(dir, ".fleetpeer", "vehicles.json"),
		FlushInterval: 500 * time.Millisecond,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *SnapshotOptions) Validate() []error {
	return ValidateStruct(o)
}

// AddFlags adds flags for SnapshotOptions to the specified FlagSet.
func (o *SnapshotOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Backend, "snapshot.backend", o.Backend, "Snapshot backend: file, sqlite, postgres, redis or s3.")
	fs.StringVar(&o.Path, "snapshot.path", o.Path, "Snapshot file path for the file backend.")
	fs.DurationVar(&o.FlushInterval, "snapshot.flush-interval", o.FlushInterval, "How often pending snapshots are written.")
}
