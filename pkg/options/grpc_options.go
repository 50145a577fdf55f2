package options

import (
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*GrpcOptions)(nil)

// GrpcOptions configures the fleet query gRPC server.
type GrpcOptions struct {
	// Network with server network.
	Network string `json:"network" mapstructure:"network"`

	// Address with server address.
	Addr string `json:"addr" mapstructure:"addr"`

	// Timeout with server timeout. Applied to unary calls without a deadline.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout" validate:"gt=0"`

	// EnableReflection registers the gRPC reflection service (grpcurl, grpc_cli).
	EnableReflection bool `json:"enable-reflection" mapstructure:"enable-reflection"`
}

// NewGrpcOptions creates a GrpcOptions object with default parameters.
func NewGrpcOptions() *GrpcOptions {
	return &GrpcOptions{
		Network:          "tcp",
		Addr:             "0.0.0.0:8091",
		Timeout:          10 * time.Second,
		EnableReflection: true,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *GrpcOptions) Validate() []error {
	errors := ValidateStruct(o)

	if err := ValidateAddress(o.Addr); err != nil {
		errors = append(errors, err)
	}

	return errors
}

// AddFlags adds flags related to the gRPC server to the specified FlagSet.
func (o *GrpcOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Network, "grpc.network", o.Network, "Specify the network for the gRPC server.")
	fs.StringVar(&o.Addr, "grpc.addr", o.Addr, "Specify the gRPC server bind address and port.")
	fs.DurationVar(&o.Timeout, "grpc.timeout", o.Timeout, "Default timeout for unary calls.")
	fs.BoolVar(&o.EnableReflection, "grpc.enable-reflection", o.EnableReflection, "Register the gRPC reflection service.")
}
