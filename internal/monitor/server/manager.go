package server

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/autopeer-io/fleetpeer/internal/monitor/core/service"
	"github.com/autopeer-io/fleetpeer/internal/monitor/server/grpc"
	"github.com/autopeer-io/fleetpeer/internal/monitor/server/http"
	"github.com/autopeer-io/fleetpeer/internal/monitor/server/mqtt"
	"github.com/autopeer-io/fleetpeer/internal/pkg/metrics"
	"github.com/autopeer-io/fleetpeer/pkg/log"
	pkgmqtt "github.com/autopeer-io/fleetpeer/pkg/mqtt"
	"github.com/autopeer-io/fleetpeer/pkg/mqtt/topic"
)

// Server is anything the manager runs until its context is cancelled:
// protocol servers as well as background workers.
type Server interface {
	Start(ctx context.Context) error
}

// Manager manages the lifecycle of all protocol servers and workers.
type Manager struct {
	servers []Server
}

// NewManager creates the protocol servers and appends the given workers.
func NewManager(cfg *Config, svc *service.Service, workers ...Server) (*Manager, error) {
	var servers []Server

	// 1. HTTP API, change stream, health and metrics
	servers = append(servers, http.NewServer(cfg.HttpOptions, svc))

	// 2. gRPC query service for fpeerctl
	grpcSrv, err := grpc.NewServer(cfg.GrpcOptions, svc)
	if err != nil {
		return nil, fmt.Errorf("failed to init grpc server: %w", err)
	}
	servers = append(servers, grpcSrv)

	// 3. Optional MQTT telemetry ingress
	if cfg.MqttOptions != nil && cfg.MqttOptions.Enabled {
		clientCfg := cfg.MqttOptions.ToClientConfig()
		clientCfg.OnConnectionChange = metrics.ObserveMQTTConnection("ingress")
		client, err := pkgmqtt.NewClient(clientCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to init mqtt client: %w", err)
		}
		topics := topic.NewBuilder(cfg.MqttOptions.TopicRoot)
		servers = append(servers, mqtt.NewServer(client, topics, cfg.MqttOptions.QoS, svc))
	}

	servers = append(servers, workers...)

	return &Manager{
		servers: servers,
	}, nil
}

// Start launches all servers in parallel and waits for termination.
// The first server to fail cancels the others.
func (m *Manager) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, srv := range m.servers {
		g.Go(func() error {
			return srv.Start(ctx)
		})
	}

	log.Info("All servers starting...", "count", len(m.servers))
	return g.Wait()
}
