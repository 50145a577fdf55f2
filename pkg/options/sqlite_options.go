package options

import (
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
)

var _ IOptions = (*SQLiteOptions)(nil)

// SQLiteOptions configures the sqlite snapshot backend.
type SQLiteOptions struct {
	// Path of the database file.
	Path string `json:"path" mapstructure:"path" validate:"required"`
}

// NewSQLiteOptions creates a SQLiteOptions object with default parameters.
func NewSQLiteOptions() *SQLiteOptions {
	dir, err := os.UserHomeDir()
	if err != nil {
		dir = os.TempDir()
	}
	return &SQLiteOptions{
		Path: filepath.Join(dir, ".fleetpeer", "fleetpeer.db"),
	}
}

func (o *SQLiteOptions) Validate() []error {
	return ValidateStruct(o)
}

func (o *SQLiteOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Path, "sqlite.path", o.Path, "Path of the sqlite database file.")
}
