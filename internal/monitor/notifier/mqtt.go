package notifier

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/autopeer-io/fleetpeer/internal/monitor/core"
	"github.com/autopeer-io/fleetpeer/internal/monitor/core/model"
	"github.com/autopeer-io/fleetpeer/internal/pkg/metrics"
	pkgmqtt "github.com/autopeer-io/fleetpeer/pkg/mqtt"
	"github.com/autopeer-io/fleetpeer/pkg/mqtt/topic"
	"github.com/autopeer-io/fleetpeer/pkg/options"
)

var _ core.StatusNotifier = (*MQTTNotifier)(nil)

// MQTTNotifier publishes retained status messages to {root}/status/{busID}.
type MQTTNotifier struct {
	client pkgmqtt.Client
	topics *topic.Builder
	qos    int
}

// NewMQTTNotifier creates a dedicated egress client and starts it.
func NewMQTTNotifier(ctx context.Context, opts *options.MqttOptions) (*MQTTNotifier, error) {
	cfg := opts.ToClientConfig()
	cfg.ClientID = opts.ClientID + "-notifier"
	cfg.OnConnectionChange = metrics.ObserveMQTTConnection("notifier")

	client, err := pkgmqtt.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if err := client.Start(ctx); err != nil {
		return nil, err
	}

	return NewMQTTNotifierWithClient(client, topic.NewBuilder(opts.TopicRoot), opts.QoS), nil
}

// NewMQTTNotifierWithClient wraps an already started client.
func NewMQTTNotifierWithClient(client pkgmqtt.Client, topics *topic.Builder, qos int) *MQTTNotifier {
	return &MQTTNotifier{client: client, topics: topics, qos: qos}
}

func (n *MQTTNotifier) NotifyStatus(ctx context.Context, change model.StatusChange, state model.VehicleState) error {
	payload, err := json.Marshal(NewStatusMessage(change, state))
	if err != nil {
		return err
	}

	t := n.topics.Build(topic.SegmentStatus, strconv.FormatInt(change.BusID, 10))
	if err := n.client.Publish(ctx, t, n.qos, true, payload); err != nil {
		metrics.StatusNotificationsTotal.WithLabelValues("mqtt", "failed").Inc()
		return err
	}
	metrics.StatusNotificationsTotal.WithLabelValues("mqtt", "success").Inc()
	return nil
}

// Close disconnects the egress client.
func (n *MQTTNotifier) Close(ctx context.Context) {
	n.client.Disconnect(ctx)
}
