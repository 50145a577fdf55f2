package mqtt

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/autopeer-io/fleetpeer/pkg/log"
)

var errNotStarted = errors.New("mqtt client not started")

type pahoClient struct {
	cfg *ClientConfig
	cm  *autopaho.ConnectionManager

	mu            sync.RWMutex
	subscriptions map[string]subscription // keyed by filter as sent to the broker

	inflight  chan struct{}
	connected atomic.Bool
}

type subscription struct {
	qos     byte
	match   string // filter without any $share/{group}/ prefix
	handler MessageHandler
}

// NewClient validates cfg and returns a client that has not yet connected.
func NewClient(cfg *ClientConfig) (Client, error) {
	if cfg == nil {
		return nil, errors.New("mqtt config is required")
	}
	setDefaultConfig(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mqtt config: %w", err)
	}

	return &pahoClient{
		cfg:           cfg,
		subscriptions: make(map[string]subscription),
		inflight:      make(chan struct{}, cfg.MaxInflight),
	}, nil
}

func (c *pahoClient) Start(ctx context.Context) error {
	brokerURL, _ := url.Parse(c.cfg.BrokerURL)

	pahoCfg := autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{brokerURL},
		KeepAlive:                     c.cfg.KeepAlive,
		CleanStartOnInitialConnection: c.cfg.CleanStart,
		SessionExpiryInterval:         c.cfg.SessionExpiry,
		ReconnectBackoff:              autopaho.NewConstantBackoff(c.cfg.ReconnectBackoff),
		ConnectTimeout:                c.cfg.ConnectTimeout,
		ConnectUsername:               c.cfg.Username,
		ConnectPassword:               []byte(c.cfg.Password),
		TlsCfg:                        &tls.Config{InsecureSkipVerify: c.cfg.InsecureSkipVerify},
		WillMessage:                   c.willMessage(),
		ClientConfig: paho.ClientConfig{
			ClientID: c.cfg.ClientID,
			OnClientError: func(err error) {
				c.setConnected(false)
				log.Error(err, "MQTT client error", "clientID", c.cfg.ClientID)
			},
			OnServerDisconnect: c.onServerDisconnect,
			OnPublishReceived:  []func(paho.PublishReceived) (bool, error){c.route},
		},
		OnConnectionUp: c.onConnectionUp,
		OnConnectError: func(err error) {
			c.setConnected(false)
			log.Warn("MQTT connect attempt failed", "broker", c.cfg.BrokerURL, "error", err)
		},
	}

	log.Info("Starting MQTT client", "broker", c.cfg.BrokerURL, "clientID", c.cfg.ClientID)

	cm, err := autopaho.NewConnection(ctx, pahoCfg)
	if err != nil {
		return err
	}
	c.cm = cm
	return nil
}

func (c *pahoClient) Disconnect(ctx context.Context) {
	if c.cm == nil {
		return
	}
	_ = c.cm.Disconnect(ctx)
	c.setConnected(false)
	log.Info("MQTT client disconnected", "clientID", c.cfg.ClientID)
}

func (c *pahoClient) Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error {
	if c.cm == nil {
		return errNotStarted
	}
	_, err := c.cm.Publish(ctx, &paho.Publish{
		Topic:   topic,
		QoS:     byte(qos),
		Retain:  retain,
		Payload: payload,
	})
	return err
}

// Subscribe records the handler before sending SUBSCRIBE, so a connection
// that comes up concurrently re-subscribes it as well.
func (c *pahoClient) Subscribe(ctx context.Context, topic string, qos int, handler MessageHandler) error {
	if c.cm == nil {
		return errNotStarted
	}

	c.mu.Lock()
	c.subscriptions[topic] = subscription{qos: byte(qos), match: stripShare(topic), handler: handler}
	c.mu.Unlock()

	if _, err := c.cm.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{{Topic: topic, QoS: byte(qos)}},
	}); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	log.Info("Subscribed to topic", "topic", topic, "qos", qos)
	return nil
}

func (c *pahoClient) Unsubscribe(ctx context.Context, topic string) error {
	if c.cm == nil {
		return errNotStarted
	}

	c.mu.Lock()
	delete(c.subscriptions, topic)
	c.mu.Unlock()

	_, err := c.cm.Unsubscribe(ctx, &paho.Unsubscribe{Topics: []string{topic}})
	return err
}

func (c *pahoClient) AwaitConnection(ctx context.Context) error {
	if c.cm == nil {
		return errNotStarted
	}
	return c.cm.AwaitConnection(ctx)
}

func (c *pahoClient) IsConnected() bool {
	return c.connected.Load()
}

func (c *pahoClient) setConnected(up bool) {
	if c.connected.Swap(up) == up {
		return
	}
	if c.cfg.OnConnectionChange != nil {
		c.cfg.OnConnectionChange(up)
	}
}

// onConnectionUp restores every registered subscription in a single packet.
func (c *pahoClient) onConnectionUp(cm *autopaho.ConnectionManager, _ *paho.Connack) {
	c.setConnected(true)

	c.mu.RLock()
	opts := make([]paho.SubscribeOptions, 0, len(c.subscriptions))
	for filter, sub := range c.subscriptions {
		opts = append(opts, paho.SubscribeOptions{Topic: filter, QoS: sub.qos})
	}
	c.mu.RUnlock()

	log.Info("MQTT connection established", "clientID", c.cfg.ClientID, "subscriptions", len(opts))
	if len(opts) == 0 {
		return
	}
	if _, err := cm.Subscribe(context.Background(), &paho.Subscribe{Subscriptions: opts}); err != nil {
		log.Error(err, "Failed to restore subscriptions", "count", len(opts))
	}
}

func (c *pahoClient) onServerDisconnect(d *paho.Disconnect) {
	c.setConnected(false)
	reason := ""
	if d.Properties != nil {
		reason = d.Properties.ReasonString
	}
	log.Warn("MQTT broker requested disconnect", "reason", reason, "code", d.ReasonCode)
}

// route hands a message to every matching handler. Handlers run on their
// own goroutines, so ordering across messages is not preserved.
func (c *pahoClient) route(p paho.PublishReceived) (bool, error) {
	topic := p.Packet.Topic

	c.mu.RLock()
	var handlers []MessageHandler
	for _, sub := range c.subscriptions {
		if topicsMatch(sub.match, topic) {
			handlers = append(handlers, sub.handler)
		}
	}
	c.mu.RUnlock()

	if len(handlers) == 0 {
		log.Debug("Received message on unhandled topic", "topic", topic)
		return true, nil
	}

	payload := p.Packet.Payload
	for _, h := range handlers {
		c.inflight <- struct{}{}
		go func() {
			defer func() { <-c.inflight }()
			h(context.Background(), topic, payload)
		}()
	}
	return true, nil
}

func (c *pahoClient) willMessage() *paho.WillMessage {
	if c.cfg.WillTopic == "" {
		return nil
	}
	return &paho.WillMessage{
		Topic:   c.cfg.WillTopic,
		Payload: c.cfg.WillPayload,
		QoS:     c.cfg.WillQoS,
		Retain:  c.cfg.WillRetain,
	}
}

// topicsMatch reports whether topic matches filter, honouring + and #.
func topicsMatch(filter, topic string) bool {
	if filter == topic {
		return true
	}
	if !strings.ContainsAny(filter, "+#") {
		return false
	}

	fp := strings.Split(filter, "/")
	tp := strings.Split(topic, "/")
	for i, part := range fp {
		if part == "#" {
			return true
		}
		if i >= len(tp) || (part != "+" && part != tp[i]) {
			return false
		}
	}
	return len(fp) == len(tp)
}

// stripShare removes a $share/{group}/ prefix. Brokers deliver shared
// subscription messages on the plain topic.
func stripShare(filter string) string {
	if rest, ok := strings.CutPrefix(filter, "$share/"); ok {
		if _, t, ok := strings.Cut(rest, "/"); ok {
			return t
		}
	}
	return filter
}
