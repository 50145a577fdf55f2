package monitor

import (
	"context"
	"fmt"
	"time"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/fleetpeer/internal/monitor/backend"
	"github.com/autopeer-io/fleetpeer/internal/monitor/core/model"
	"github.com/autopeer-io/fleetpeer/internal/monitor/core/selection"
	"github.com/autopeer-io/fleetpeer/internal/monitor/core/service"
	"github.com/autopeer-io/fleetpeer/internal/monitor/core/session"
	"github.com/autopeer-io/fleetpeer/internal/monitor/core/store"
	"github.com/autopeer-io/fleetpeer/internal/monitor/feed"
	"github.com/autopeer-io/fleetpeer/internal/monitor/notifier"
	"github.com/autopeer-io/fleetpeer/internal/monitor/server"
	"github.com/autopeer-io/fleetpeer/internal/monitor/storage"
	"github.com/autopeer-io/fleetpeer/pkg/log"
	"github.com/autopeer-io/fleetpeer/pkg/options"
)

type Config struct {
	HttpOptions     *options.HttpOptions
	GrpcOptions     *options.GrpcOptions
	MqttOptions     *options.MqttOptions
	FeedOptions     *options.FeedOptions
	BackendOptions  *options.BackendOptions
	SessionOptions  *options.SessionOptions
	MonitorOptions  *options.MonitorOptions
	SnapshotOptions *options.SnapshotOptions
	SQLiteOptions   *options.SQLiteOptions
	PostgresOptions *options.PostgresOptions
	RedisOptions    *options.RedisOptions
	S3Options       *options.S3Options
}

func (cfg *Config) NewMonitorServer(ctx context.Context) (*MonitorServer, error) {
	m := &MonitorServer{}
	ok := false
	defer func() {
		if !ok {
			m.close()
		}
	}()

	clk := clock.RealClock{}

	// 1. Core: the live vehicle state
	vehicles := store.New(clk, cfg.MonitorOptions.StalenessThreshold)

	// 2. Infrastructure: monitoring backend and the operator session.
	// The backend reads the bearer credential from the session it serves.
	var sess *session.Session
	backendClient, err := backend.NewClient(cfg.BackendOptions.URL, cfg.BackendOptions.Timeout,
		backend.TokenFunc(func() string { return sess.AccessToken() }))
	if err != nil {
		return nil, fmt.Errorf("failed to init backend client: %w", err)
	}
	sess = session.New(backendClient, clk, session.Config{
		CredentialsFile: cfg.SessionOptions.CredentialsFile,
		AutoLogout:      cfg.SessionOptions.AutoLogout,
		Watch:           cfg.SessionOptions.WatchCredentials,
	})
	m.session = sess

	// 3. Infrastructure: snapshot storage behind the write-behind pipeline
	snapshotBackend, err := storage.New(ctx, storage.Options{
		Snapshot: cfg.SnapshotOptions,
		SQLite:   cfg.SQLiteOptions,
		Postgres: cfg.PostgresOptions,
		Redis:    cfg.RedisOptions,
		S3:       cfg.S3Options,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init snapshot storage: %w", err)
	}
	m.pipeline = storage.NewPipeline(snapshotBackend, cfg.SnapshotOptions.FlushInterval)

	// 4. Infrastructure: status notifiers
	notifiers, err := m.initNotifiers(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// 5. Core Domain Service
	lat, lng, err := cfg.MonitorOptions.Center()
	if err != nil {
		return nil, err
	}
	svcOpts := []service.Option{service.WithMapCenter(model.Position{Latitude: lat, Longitude: lng})}
	if len(notifiers) > 0 {
		svcOpts = append(svcOpts, service.WithNotifier(notifiers))
	}
	svc := service.New(vehicles, m.pipeline, backendClient, selection.New(), sess, svcOpts...)
	m.svc = svc

	// 6. Live feed: the client feeds the service, the supervisor follows the session
	feedClient := feed.NewClient(feed.Config{
		URL:              cfg.FeedOptions.URL,
		TokenParam:       cfg.FeedOptions.TokenParam,
		HandshakeTimeout: cfg.FeedOptions.HandshakeTimeout,
		ReadLimit:        cfg.FeedOptions.ReadLimit,
	}, svc.Ingest)
	svc.AttachFeed(feedClient)
	supervisor := feed.NewSupervisor(feedClient, sess, cfg.FeedOptions.ReconnectInterval)
	evaluator := store.NewEvaluator(vehicles, clk, cfg.MonitorOptions.StalenessInterval, svc.Expire)

	// 7. Ingress Servers, with the background workers run beside them
	serverConfig := &server.Config{
		HttpOptions: cfg.HttpOptions,
		GrpcOptions: cfg.GrpcOptions,
		MqttOptions: cfg.MqttOptions,
	}
	// svc itself runs the status notification worker.
	srvManager, err := server.NewManager(serverConfig, svc, svc, m.pipeline, supervisor, evaluator)
	if err != nil {
		return nil, fmt.Errorf("failed to init server manager: %w", err)
	}
	m.serverManager = srvManager

	ok = true
	return m, nil
}

func (m *MonitorServer) initNotifiers(ctx context.Context, cfg *Config) (notifier.Multi, error) {
	var notifiers notifier.Multi

	if cfg.MqttOptions != nil && cfg.MqttOptions.Enabled {
		n, err := notifier.NewMQTTNotifier(ctx, cfg.MqttOptions)
		if err != nil {
			return nil, fmt.Errorf("failed to init mqtt notifier: %w", err)
		}
		m.closers = append(m.closers, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			n.Close(closeCtx)
		})
		notifiers = append(notifiers, n)
	}

	if cfg.RedisOptions != nil && cfg.RedisOptions.Notify {
		rdb, err := storage.NewRedisClient(ctx, cfg.RedisOptions)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis notifier: %w", err)
		}
		m.closers = append(m.closers, func() {
			if err := rdb.Close(); err != nil {
				log.Error(err, "Failed to close redis notifier client")
			}
		})
		notifiers = append(notifiers, notifier.NewRedisNotifier(rdb, cfg.RedisOptions.Channel, cfg.RedisOptions.Timeout))
	}

	return notifiers, nil
}
