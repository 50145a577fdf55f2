package options

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*MonitorOptions)(nil)

// MonitorOptions tunes the live vehicle state reconciliation.
type MonitorOptions struct {
	// StalenessThreshold is how long a vehicle may stay silent before it is marked inactive.
	StalenessThreshold time.Duration `json:"staleness-threshold" mapstructure:"staleness-threshold" validate:"gt=0"`

	// StalenessInterval is the cadence of the staleness evaluator.
	StalenessInterval time.Duration `json:"staleness-interval" mapstructure:"staleness-interval" validate:"gt=0"`

	// MapCenter is the default map center as "latitude,longitude".
	MapCenter string `json:"map-center" mapstructure:"map-center" validate:"required"`
}

// NewMonitorOptions creates a MonitorOptions object with default parameters.
func NewMonitorOptions() *MonitorOptions {
	return &MonitorOptions{
		StalenessThreshold: 5 * time.Second,
		StalenessInterval:  2 * time.Second,
		MapCenter:          "37.5651,126.9784",
	}
}

// Center parses MapCenter.
func (o *MonitorOptions) Center() (lat, lng float64, err error) {
	parts := strings.Split(o.MapCenter, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid map center %q, want latitude,longitude", o.MapCenter)
	}
	if lat, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64); err != nil || lat < -90 || lat > 90 {
		return 0, 0, fmt.Errorf("invalid map center latitude %q", parts[0])
	}
	if lng, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64); err != nil || lng < -180 || lng > 180 {
		return 0, 0, fmt.Errorf("invalid map center longitude %q", parts[1])
	}
	return lat, lng, nil
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *MonitorOptions) Validate() []error {
	errs := ValidateStruct(o)
	if o.MapCenter != "" {
		if _, _, err := o.Center(); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// AddFlags adds flags for MonitorOptions to the specified FlagSet.
func (o *MonitorOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.DurationVar(&o.StalenessThreshold, "monitor.staleness-threshold", o.StalenessThreshold, "Silence after which a vehicle is marked inactive.")
	fs.DurationVar(&o.StalenessInterval, "monitor.staleness-interval", o.StalenessInterval, "How often vehicle staleness is evaluated.")
	fs.StringVar(&o.MapCenter, "monitor.map-center", o.MapCenter, "Default map center as latitude,longitude.")
}
