package monitor

import (
	"context"

	"github.com/autopeer-io/fleetpeer/internal/monitor/core/service"
	"github.com/autopeer-io/fleetpeer/internal/monitor/core/session"
	"github.com/autopeer-io/fleetpeer/internal/monitor/server"
	"github.com/autopeer-io/fleetpeer/internal/monitor/storage"
	"github.com/autopeer-io/fleetpeer/pkg/log"
)

// MonitorServer is the main application struct of fpeer-monitor.
type MonitorServer struct {
	serverManager *server.Manager
	svc           *service.Service
	session       *session.Session
	pipeline      *storage.Pipeline
	closers       []func()
}

// Run restores the last snapshot, resumes the saved session and serves until
// ctx is cancelled.
func (m *MonitorServer) Run(ctx context.Context) error {
	log.Info("Starting fleetpeer monitor...")
	defer m.close()

	// 1. Warm start: every restored vehicle stays inactive until it reports again
	m.svc.Restore(ctx)

	// 2. A saved session connects the feed as soon as the supervisor starts
	if err := m.session.Init(ctx); err != nil {
		return err
	}
	defer m.session.Teardown()

	// 3. Servers and workers (blocking). The pipeline flushes on the way out.
	return m.serverManager.Start(ctx)
}

func (m *MonitorServer) close() {
	for i := len(m.closers) - 1; i >= 0; i-- {
		m.closers[i]()
	}
	if m.pipeline != nil {
		if err := m.pipeline.Close(); err != nil {
			log.Error(err, "Failed to close snapshot storage")
		}
	}
}
