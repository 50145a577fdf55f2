package app

import (
	"fmt"

	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/autopeer-io/fleetpeer/cmd/fpeer-monitor/app/options"
	"github.com/autopeer-io/fleetpeer/pkg/app"
)

const (
	commandName = "fpeer-monitor"
	commandDesc = `The fleetpeer monitor keeps the live state of a bus fleet. It consumes the
telemetry feed of the monitoring backend, marks buses that stop reporting as
inactive, persists snapshots for warm restarts and serves the dashboard API,
a gRPC query service and optional MQTT/redis status notifications.`
)

func NewApp() *app.App {
	opts := options.NewMonitorOptions()
	application := app.NewApp(
		commandName,
		"Launch the fleetpeer monitor",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts)),
	)
	return application
}

func run(opts *options.MonitorOptions) app.RunFunc {
	return func() error {
		ctx := genericapiserver.SetupSignalContext()

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		server, err := cfg.NewMonitorServer(ctx)
		if err != nil {
			return fmt.Errorf("failed to create monitor server: %w", err)
		}

		return server.Run(ctx)
	}
}
