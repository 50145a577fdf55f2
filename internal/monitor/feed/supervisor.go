package feed

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/autopeer-io/fleetpeer/internal/monitor/core/model"
	"github.com/autopeer-io/fleetpeer/internal/pkg/metrics"
	"github.com/autopeer-io/fleetpeer/pkg/log"
)

// DefaultReconnectInterval is the minimum delay between two connection attempts.
const DefaultReconnectInterval = 3 * time.Second

// CredentialSource provides the access credential used to open the feed.
// It is implemented by session.Session.
type CredentialSource interface {
	AccessToken() string
	OnChange(func(model.Credentials)) (cancel func())
}

// Supervisor owns the feed connection: it connects while a credential is
// available, reconnects after a disconnect and reopens the connection when the
// credential changes.
// It implements the server.Server interface to run in the background.
type Supervisor struct {
	client   *Client
	creds    CredentialSource
	interval time.Duration
}

// NewSupervisor creates a supervisor for client.
func NewSupervisor(client *Client, creds CredentialSource, interval time.Duration) *Supervisor {
	if interval <= 0 {
		interval = DefaultReconnectInterval
	}
	return &Supervisor{client: client, creds: creds, interval: interval}
}

// Start runs the connection loop. It blocks until the context is cancelled.
func (s *Supervisor) Start(ctx context.Context) error {
	log.Info("Starting feed supervisor", "reconnectInterval", s.interval)

	changed := make(chan struct{}, 1)
	cancel := s.creds.OnChange(func(model.Credentials) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer cancel()
	defer s.client.Close()

	limiter := rate.NewLimiter(rate.Every(s.interval), 1)

	for {
		var done <-chan struct{}

		if token := s.creds.AccessToken(); token != "" {
			if err := limiter.Wait(ctx); err != nil {
				log.Info("Stopping feed supervisor")
				return nil
			}

			d, err := s.client.Connect(ctx, token)
			if err != nil {
				metrics.FeedReconnectsTotal.WithLabelValues("failed").Inc()
				log.Error(err, "Feed connection attempt failed", "retryIn", s.interval)
				retry := make(chan struct{})
				close(retry)
				d = retry
			} else {
				metrics.FeedReconnectsTotal.WithLabelValues("success").Inc()
			}
			done = d
		} else if s.client.Connected() {
			log.Info("No credential, closing telemetry feed")
			s.client.Close()
		}

		select {
		case <-ctx.Done():
			log.Info("Stopping feed supervisor")
			return nil
		case <-changed:
			log.Debug("Credential changed, reconnecting telemetry feed")
		case <-done:
		}
	}
}
