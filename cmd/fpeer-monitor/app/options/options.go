package options

import (
	"fmt"
	"os"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/fleetpeer/internal/monitor"
	"github.com/autopeer-io/fleetpeer/pkg/app"
	"github.com/autopeer-io/fleetpeer/pkg/log"
	genericoptions "github.com/autopeer-io/fleetpeer/pkg/options"
)

// MonitorOptions aggregates every option group of fpeer-monitor.
type MonitorOptions struct {
	Monitor  *genericoptions.MonitorOptions  `json:"monitor" mapstructure:"monitor"`
	Feed     *genericoptions.FeedOptions     `json:"feed" mapstructure:"feed"`
	Backend  *genericoptions.BackendOptions  `json:"backend" mapstructure:"backend"`
	Session  *genericoptions.SessionOptions  `json:"session" mapstructure:"session"`
	Snapshot *genericoptions.SnapshotOptions `json:"snapshot" mapstructure:"snapshot"`
	SQLite   *genericoptions.SQLiteOptions   `json:"sqlite" mapstructure:"sqlite"`
	Postgres *genericoptions.PostgresOptions `json:"postgres" mapstructure:"postgres"`
	Redis    *genericoptions.RedisOptions    `json:"redis" mapstructure:"redis"`
	S3       *genericoptions.S3Options       `json:"s3" mapstructure:"s3"`
	Http     *genericoptions.HttpOptions     `json:"http" mapstructure:"http"`
	Grpc     *genericoptions.GrpcOptions     `json:"grpc" mapstructure:"grpc"`
	Mqtt     *genericoptions.MqttOptions     `json:"mqtt" mapstructure:"mqtt"`
	Log      *log.Options                    `json:"log" mapstructure:"log"`
}

var (
	_ app.NamedFlagSetOptions = (*MonitorOptions)(nil)
	_ app.LoggerOptions       = (*MonitorOptions)(nil)
)

func NewMonitorOptions() *MonitorOptions {
	return &MonitorOptions{
		Monitor:  genericoptions.NewMonitorOptions(),
		Feed:     genericoptions.NewFeedOptions(),
		Backend:  genericoptions.NewBackendOptions(),
		Session:  genericoptions.NewSessionOptions(),
		Snapshot: genericoptions.NewSnapshotOptions(),
		SQLite:   genericoptions.NewSQLiteOptions(),
		Postgres: genericoptions.NewPostgresOptions(),
		Redis:    genericoptions.NewRedisOptions(),
		S3:       genericoptions.NewS3Options(),
		Http:     genericoptions.NewHttpOptions(),
		Grpc:     genericoptions.NewGrpcOptions(),
		Mqtt:     genericoptions.NewMqttOptions(),
		Log:      log.NewOptions(),
	}
}

func (o *MonitorOptions) Flags() (fss cliflag.NamedFlagSets) {
	o.Monitor.AddFlags(fss.FlagSet("Monitor"))
	o.Feed.AddFlags(fss.FlagSet("Feed"))
	o.Backend.AddFlags(fss.FlagSet("Backend"))
	o.Session.AddFlags(fss.FlagSet("Session"))
	o.Snapshot.AddFlags(fss.FlagSet("Snapshot"))
	o.SQLite.AddFlags(fss.FlagSet("SQLite"))
	o.Postgres.AddFlags(fss.FlagSet("Postgres"))
	o.Redis.AddFlags(fss.FlagSet("Redis"))
	o.S3.AddFlags(fss.FlagSet("S3"))
	o.Http.AddFlags(fss.FlagSet("HTTP"))
	o.Grpc.AddFlags(fss.FlagSet("gRPC"))
	o.Mqtt.AddFlags(fss.FlagSet("MQTT"))
	o.Log.AddFlags(fss.FlagSet("Log"))
	return fss
}

// Complete derives the MQTT client id from the host name when unset.
func (o *MonitorOptions) Complete() error {
	if o.Mqtt.ClientID == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return fmt.Errorf("failed to derive mqtt client id: %w", err)
		}
		o.Mqtt.ClientID = fmt.Sprintf("fpeer-monitor-%s", hostname)
	}
	return nil
}

// Validate checks the option groups in use. Storage groups are validated only
// for the selected snapshot backend, redis also when it carries notifications.
func (o *MonitorOptions) Validate() error {
	errs := []error{}

	errs = append(errs, o.Monitor.Validate()...)
	errs = append(errs, o.Feed.Validate()...)
	errs = append(errs, o.Backend.Validate()...)
	errs = append(errs, o.Session.Validate()...)
	errs = append(errs, o.Snapshot.Validate()...)
	errs = append(errs, o.Http.Validate()...)
	errs = append(errs, o.Grpc.Validate()...)
	errs = append(errs, o.Mqtt.Validate()...)
	errs = append(errs, o.Log.Validate()...)

	switch o.Snapshot.Backend {
	case "sqlite":
		errs = append(errs, o.SQLite.Validate()...)
	case "postgres":
		errs = append(errs, o.Postgres.Validate()...)
	case "s3":
		errs = append(errs, o.S3.Validate()...)
	case "redis":
		errs = append(errs, o.Redis.Validate()...)
	}
	if o.Redis.Notify && o.Snapshot.Backend != "redis" {
		errs = append(errs, o.Redis.Validate()...)
	}

	return utilerrors.NewAggregate(errs)
}

func (o *MonitorOptions) LogOptions() *log.Options {
	return o.Log
}

func (o *MonitorOptions) Config() (*monitor.Config, error) {
	return &monitor.Config{
		HttpOptions:     o.Http,
		GrpcOptions:     o.Grpc,
		MqttOptions:     o.Mqtt,
		FeedOptions:     o.Feed,
		BackendOptions:  o.Backend,
		SessionOptions:  o.Session,
		MonitorOptions:  o.Monitor,
		SnapshotOptions: o.Snapshot,
		SQLiteOptions:   o.SQLite,
		PostgresOptions: o.Postgres,
		RedisOptions:    o.Redis,
		S3Options:       o.S3,
	}, nil
}
