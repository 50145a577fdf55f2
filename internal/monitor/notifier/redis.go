package notifier

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/autopeer-io/fleetpeer/internal/monitor/core"
	"github.com/autopeer-io/fleetpeer/internal/monitor/core/model"
	"github.com/autopeer-io/fleetpeer/internal/pkg/metrics"
)

var _ core.StatusNotifier = (*RedisNotifier)(nil)

// RedisNotifier publishes status messages on a redis pub/sub channel.
type RedisNotifier struct {
	rdb     *redis.Client
	channel string
	timeout time.Duration
}

// NewRedisNotifier wraps a redis client.
func NewRedisNotifier(rdb *redis.Client, channel string, timeout time.Duration) *RedisNotifier {
	return &RedisNotifier{rdb: rdb, channel: channel, timeout: timeout}
}

func (n *RedisNotifier) NotifyStatus(ctx context.Context, change model.StatusChange, state model.VehicleState) error {
	data, err := json.Marshal(NewStatusMessage(change, state))
	if err != nil {
		return err
	}

	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	if err := n.rdb.Publish(ctx, n.channel, data).Err(); err != nil {
		metrics.StatusNotificationsTotal.WithLabelValues("redis", "failed").Inc()
		return err
	}
	metrics.StatusNotificationsTotal.WithLabelValues("redis", "success").Inc()
	return nil
}
