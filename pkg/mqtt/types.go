// Package mqtt wraps autopaho with a small interface used by the telemetry
// ingress and the status notifier.
package mqtt

import "context"

// MessageHandler processes one received message.
type MessageHandler func(ctx context.Context, topic string, payload []byte)

// Client is a reconnecting MQTT v5 client.
type Client interface {
	// Start begins connecting in the background and returns immediately.
	Start(ctx context.Context) error

	Disconnect(ctx context.Context)

	Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error

	// Subscribe registers handler for a filter, which may carry a
	// $share/{group}/ prefix. Subscriptions are restored after reconnects.
	Subscribe(ctx context.Context, topic string, qos int, handler MessageHandler) error

	Unsubscribe(ctx context.Context, topic string) error

	// AwaitConnection blocks until connected or ctx is done.
	AwaitConnection(ctx context.Context) error

	IsConnected() bool
}
