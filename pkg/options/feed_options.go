package options

import (
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*FeedOptions)(nil)

// FeedOptions configures the websocket telemetry feed.
type FeedOptions struct {
	// URL of the streaming telemetry endpoint (ws:// or wss://).
	URL string `json:"url" mapstructure:"url" validate:"required,url"`

	// TokenParam is the query parameter carrying the bearer credential.
	TokenParam string `json:"token-param" mapstructure:"token-param" validate:"required"`

	// HandshakeTimeout bounds the websocket opening handshake.
	HandshakeTimeout time.Duration `json:"handshake-timeout" mapstructure:"handshake-timeout" validate:"gt=0"`

	// ReconnectInterval is the minimum delay between two connection attempts.
	ReconnectInterval time.Duration `json:"reconnect-interval" mapstructure:"reconnect-interval" validate:"gt=0"`

	// ReadLimit caps the size of a single inbound frame in bytes.
	ReadLimit int64 `json:"read-limit" mapstructure:"read-limit" validate:"gt=0"`
}

// NewFeedOptions creates a FeedOptions object with default parameters.
func NewFeedOptions() *FeedOptions {
	return &FeedOptions{
		URL:               "ws://104.197.230.228:8000/ws/monitoring/vehicle",
		TokenParam:        "token",
		HandshakeTimeout:  10 * time.Second,
		ReconnectInterval: 3 * time.Second,
		ReadLimit:         1 << 20,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *FeedOptions) Validate() []error {
	return ValidateStruct(o)
}

// AddFlags adds flags for FeedOptions to the specified FlagSet.
func (o *FeedOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.URL, "feed.url", o.URL, "Websocket URL of the vehicle telemetry feed.")
	fs.StringVar(&o.TokenParam, "feed.token-param", o.TokenParam, "Query parameter carrying the access token.")
	fs.DurationVar(&o.HandshakeTimeout, "feed.handshake-timeout", o.HandshakeTimeout, "Timeout for the websocket handshake.")
	fs.DurationVar(&o.ReconnectInterval, "feed.reconnect-interval", o.ReconnectInterval, "Minimum delay between feed connection attempts.")
	fs.Int64Var(&o.ReadLimit, "feed.read-limit", o.ReadLimit, "Maximum size in bytes of a single feed frame.")
}
