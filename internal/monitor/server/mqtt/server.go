package mqtt

import (
	"context"
	"fmt"
	"time"

	"github.com/autopeer-io/fleetpeer/internal/monitor/core/model"
	"github.com/autopeer-io/fleetpeer/internal/monitor/feed"
	"github.com/autopeer-io/fleetpeer/internal/pkg/metrics"
	"github.com/autopeer-io/fleetpeer/pkg/log"
	pkgmqtt "github.com/autopeer-io/fleetpeer/pkg/mqtt"
	"github.com/autopeer-io/fleetpeer/pkg/mqtt/topic"
)

// sharedGroup lets several monitor replicas split one telemetry stream.
const sharedGroup = "fpeer-monitor"

// Ingester applies decoded telemetry.
type Ingester interface {
	Ingest(ctx context.Context, updates []model.VehicleUpdate)
}

// Server implements the MQTT telemetry ingress. Messages on
// {root}/telemetry/{busID} use the same JSON format as the websocket feed.
type Server struct {
	client pkgmqtt.Client
	topics *topic.Builder
	qos    int
	svc    Ingester
}

// NewServer creates a new MQTT ingress server.
func NewServer(client pkgmqtt.Client, builder *topic.Builder, qos int, svc Ingester) *Server {
	return &Server{
		client: client,
		topics: builder,
		qos:    qos,
		svc:    svc,
	}
}

// Start connects to the broker and subscribes to the telemetry topics.
func (s *Server) Start(ctx context.Context) error {
	// 1. Start the connection manager (Non-blocking)
	if err := s.client.Start(ctx); err != nil {
		return err
	}

	defer func() {
		log.Info("Disconnecting MQTT client...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.client.Disconnect(shutdownCtx)
		log.Info("MQTT client disconnected")
	}()

	// 2. Wait for the initial connection to be established
	log.Info("Waiting for MQTT connection...")
	if err := s.client.AwaitConnection(ctx); err != nil {
		return err
	}
	log.Info("MQTT Connected")

	filter := s.topics.Shared(sharedGroup).BuildWildcard(topic.SegmentTelemetry)
	if err := s.client.Subscribe(ctx, filter, s.qos, s.handleTelemetry); err != nil {
		return fmt.Errorf("failed to subscribe to topic: %s, err: %w", filter, err)
	}
	log.Info("Subscribed to telemetry", "topic", filter)

	<-ctx.Done()

	return nil
}

func (s *Server) handleTelemetry(ctx context.Context, t string, payload []byte) {
	updates, discarded, err := feed.Decode(payload)
	if err != nil {
		metrics.FeedFramesTotal.WithLabelValues("mqtt", "malformed").Inc()
		log.Warn("Dropping malformed telemetry message", "topic", t, "error", err)
		return
	}
	metrics.FeedFramesTotal.WithLabelValues("mqtt", "ok").Inc()
	if discarded > 0 {
		metrics.FeedRecordsDiscardedTotal.WithLabelValues("mqtt").Add(float64(discarded))
		log.Debug("Discarded telemetry records", "topic", t, "count", discarded)
	}
	if len(updates) == 0 {
		return
	}

	s.svc.Ingest(ctx, updates)
}
