package mqtt_test

import (
	"context"
	"fmt"
	"time"

	"github.com/autopeer-io/fleetpeer/pkg/log"
	"github.com/autopeer-io/fleetpeer/pkg/mqtt"
	"github.com/autopeer-io/fleetpeer/pkg/mqtt/topic"
)

// ExampleClient shows how the monitor consumes bus telemetry over MQTT and
// publishes status transitions back to the broker.
func ExampleClient() {
	// 1. Values normally come from pkg/options.MqttOptions.ToClientConfig().
	cfg := &mqtt.ClientConfig{
		BrokerURL:      "tcp://localhost:1883",
		ClientID:       "fpeer-monitor-example",
		KeepAlive:      60,
		ConnectTimeout: 5 * time.Second,
		CleanStart:     true,
	}

	client, err := mqtt.NewClient(cfg)
	if err != nil {
		log.Error(err, "Failed to create MQTT client")
		return
	}

	// 2. Start is non-blocking; the connection (and every reconnect) happens in the background.
	ctx := context.Background()
	if err := client.Start(ctx); err != nil {
		log.Error(err, "Failed to start MQTT client")
		return
	}

	topics := topic.NewBuilder("fleet/v1")

	// 3. Handlers run in their own goroutine. Subscriptions survive reconnects.
	onTelemetry := func(ctx context.Context, t string, payload []byte) {
		fmt.Printf("telemetry on %s: %s\n", t, string(payload))
	}
	if err := client.Subscribe(ctx, topics.BuildWildcard(topic.SegmentTelemetry), 1, onTelemetry); err != nil {
		log.Error(err, "Failed to subscribe")
	}

	if err := client.AwaitConnection(ctx); err != nil {
		log.Error(err, "Connection timed out")
		return
	}

	// 4. Publish a retained status so late subscribers see the last known value.
	payload := []byte(`{"bus_id": 7, "from": "active", "to": "inactive"}`)
	if err := client.Publish(ctx, topics.Build(topic.SegmentStatus, "7"), 1, true, payload); err != nil {
		log.Error(err, "Failed to publish status")
	}

	client.Disconnect(ctx)
}
