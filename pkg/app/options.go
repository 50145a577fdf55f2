package app

import (
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/fleetpeer/pkg/log"
)

// NamedFlagSetOptions is implemented by the option aggregate of a command.
type NamedFlagSetOptions interface {
	// Flags returns the option flags grouped by section for usage output.
	Flags() cliflag.NamedFlagSets

	// Complete fills in fields derived from other fields.
	Complete() error

	// Validate reports every invalid option at once.
	Validate() error
}

// LoggerOptions is implemented by option aggregates that configure the
// global logger. The logger is initialized right after validation.
type LoggerOptions interface {
	LogOptions() *log.Options
}
