package server

import (
	"github.com/autopeer-io/fleetpeer/pkg/options"
)

// Config holds the options of the outer surfaces.
type Config struct {
	HttpOptions *options.HttpOptions
	GrpcOptions *options.GrpcOptions
	MqttOptions *options.MqttOptions
}
