package options

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*SessionOptions)(nil)

// SessionOptions configures credential storage and the operator session lifetime.
type SessionOptions struct {
	// CredentialsFile stores the access and refresh credentials between restarts.
	CredentialsFile string `json:"credentials-file" mapstructure:"credentials-file" validate:"required"`

	// AutoLogout ends the session this long after a successful login. Zero disables it.
	AutoLogout time.Duration `json:"auto-logout" mapstructure:"auto-logout" validate:"gte=0"`

	// WatchCredentials reloads credentials when the file is rewritten by another process.
	WatchCredentials bool `json:"watch-credentials" mapstructure:"watch-credentials"`
}

// NewSessionOptions creates a SessionOptions object with default parameters.
func NewSessionOptions() *SessionOptions {
	dir, err := os.UserHomeDir()
	if err != nil {
		dir = os.TempDir()
	}

	return &SessionOptions{
		CredentialsFile:  filepath.Join(dir, ".fleetpeer", "credentials.json"),
		AutoLogout:       10 * time.Minute,
		WatchCredentials: true,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *SessionOptions) Validate() []error {
	return ValidateStruct(o)
}

// AddFlags adds flags for SessionOptions to the specified FlagSet.
func (o *SessionOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.CredentialsFile, "session.credentials-file", o.CredentialsFile, "File that stores the access and refresh credentials.")
	fs.DurationVar(&o.AutoLogout, "session.auto-logout", o.AutoLogout, "Log out automatically this long after login (0 disables).")
	fs.BoolVar(&o.WatchCredentials, "session.watch-credentials", o.WatchCredentials, "Reload credentials when the credentials file changes.")
}
