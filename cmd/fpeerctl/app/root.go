package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	pb "github.com/autopeer-io/fleetpeer/api/fleet/v1"
	middleware "github.com/autopeer-io/fleetpeer/internal/pkg/middleware/grpc"
	"github.com/autopeer-io/fleetpeer/pkg/log"
)

type rootOptions struct {
	server  string
	output  string
	timeout time.Duration
	log     *log.Options
}

// NewFpeerctlCommand returns the fpeerctl command tree writing results to out.
func NewFpeerctlCommand(out io.Writer) *cobra.Command {
	o := &rootOptions{
		server: "localhost:8091",
		output: "table",
		log:    log.NewOptions(),
	}
	o.log.Level = "warn"

	cmd := &cobra.Command{
		Use:          "fpeerctl",
		Short:        "Query a running fleetpeer monitor",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := newPrinter(o.output); err != nil {
				return err
			}
			log.Init(o.log)
			return nil
		},
	}
	cmd.SetOut(out)

	fs := cmd.PersistentFlags()
	fs.StringVarP(&o.server, "server", "s", o.server, "The gRPC address of fpeer-monitor.")
	fs.StringVarP(&o.output, "output", "o", o.output, "Output format: table, json or yaml.")
	fs.DurationVar(&o.timeout, "timeout", o.timeout, "Per-call timeout. Zero uses the default of 10s.")
	o.log.AddFlags(fs)

	cmd.AddCommand(newVehiclesCommand(o), newVehicleCommand(o))
	return cmd
}

// dial opens a client connection to the monitor.
func (o *rootOptions) dial() (pb.FleetServiceClient, func(), error) {
	conn, err := grpc.NewClient(o.server,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithChainUnaryInterceptor(middleware.UnaryTimeoutInterceptor),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to %s: %w", o.server, err)
	}
	return pb.NewFleetServiceClient(conn), func() { conn.Close() }, nil
}

// callContext applies --timeout when set. Without it the client interceptor
// applies its default.
func (o *rootOptions) callContext(parent context.Context) (context.Context, context.CancelFunc) {
	if o.timeout > 0 {
		return context.WithTimeout(parent, o.timeout)
	}
	return context.WithCancel(parent)
}
