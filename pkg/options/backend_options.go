package options

import (
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*BackendOptions)(nil)

// BackendOptions configures the monitoring REST backend (vehicle list, dispatch history, login).
type BackendOptions struct {
	// URL is the base URL of the monitoring backend.
	URL string `json:"url" mapstructure:"url" validate:"required,url"`

	// Timeout bounds every backend request.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout" validate:"gt=0"`
}

// NewBackendOptions creates a BackendOptions object with default parameters.
func NewBackendOptions() *BackendOptions {
	return &BackendOptions{
		URL:     "http://104.197.230.228:8000",
		Timeout: 10 * time.Second,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *BackendOptions) Validate() []error {
	return ValidateStruct(o)
}

// AddFlags adds flags for BackendOptions to the specified FlagSet.
func (o *BackendOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.URL, "backend.url", o.URL, "Base URL of the monitoring backend.")
	fs.DurationVar(&o.Timeout, "backend.timeout", o.Timeout, "Timeout for backend requests.")
}
