package options

import (
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*RedisOptions)(nil)

// RedisOptions configures the redis snapshot backend and the status notifier.
type RedisOptions struct {
	// URL in the form redis://[user:password@]host:port/db.
	URL string `json:"url" mapstructure:"url" validate:"required"`

	// SnapshotKey holds the serialized vehicle snapshot.
	SnapshotKey string `json:"snapshot-key" mapstructure:"snapshot-key" validate:"required"`

	// Notify publishes vehicle status transitions on Channel.
	Notify bool `json:"notify" mapstructure:"notify"`

	// Channel is the pub/sub channel for status transitions.
	Channel string `json:"channel" mapstructure:"channel" validate:"required"`

	// Timeout bounds each redis command.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout" validate:"gt=0"`
}

// NewRedisOptions creates a RedisOptions object with default parameters.
func NewRedisOptions() *RedisOptions {
	return &RedisOptions{
		URL:         "redis://localhost:6379/0",
		SnapshotKey: "fleetpeer:snapshot:vehicles",
		Channel:     "fleetpeer:vehicle-status",
		Timeout:     2 * time.Second,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *RedisOptions) Validate() []error {
	return ValidateStruct(o)
}

// AddFlags adds flags for RedisOptions to the specified FlagSet.
func (o *RedisOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.URL, "redis.url", o.URL, "Redis connection URL.")
	fs.StringVar(&o.SnapshotKey, "redis.snapshot-key", o.SnapshotKey, "Key holding the vehicle snapshot.")
	fs.BoolVar(&o.Notify, "redis.notify", o.Notify, "Publish vehicle status transitions over redis pub/sub.")
	fs.StringVar(&o.Channel, "redis.channel", o.Channel, "Pub/sub channel for vehicle status transitions.")
	fs.DurationVar(&o.Timeout, "redis.timeout", o.Timeout, "Timeout for redis commands.")
}
