package http

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/autopeer-io/fleetpeer/internal/monitor/core/service"
	"github.com/autopeer-io/fleetpeer/internal/pkg/metrics"
	"github.com/autopeer-io/fleetpeer/pkg/log"
)

const (
	streamBuffer     = 64
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = streamPongWait * 9 / 10
)

// handleStream pushes change events to a dashboard over a websocket. The
// first message is the full vehicle list; later ones are deltas. Clients
// that fall behind miss events and should refetch.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	logger := log.FromContext(r.Context())

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("Change stream upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sub := s.svc.Events().Subscribe(streamBuffer)
	defer sub.Cancel()

	metrics.StreamSubscribers.Inc()
	defer metrics.StreamSubscribers.Dec()
	logger.Info("Change stream opened", "subscriber", sub.ID)
	defer logger.Info("Change stream closed", "subscriber", sub.ID)

	closed := make(chan struct{})
	go readPump(conn, closed)

	connected := s.svc.FeedConnected()
	initial := []service.Event{
		{Type: service.EventVehicles, Vehicles: s.svc.Vehicles()},
		{Type: service.EventFeed, Connected: &connected},
	}
	for _, evt := range initial {
		if err := writeEvent(conn, evt); err != nil {
			return
		}
	}

	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()

	for {
		select {
		case evt, ok := <-sub.C:
			if !ok {
				return
			}
			if err := writeEvent(conn, evt); err != nil {
				logger.Debug("Change stream write failed", "error", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func writeEvent(conn *websocket.Conn, evt service.Event) error {
	if err := conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(evt)
}

// readPump discards client messages and closes done when the peer goes away.
func readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
