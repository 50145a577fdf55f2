package http

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/autopeer-io/fleetpeer/internal/monitor/core/service"
	"github.com/autopeer-io/fleetpeer/internal/pkg/metrics"
	"github.com/autopeer-io/fleetpeer/pkg/log"
	"github.com/autopeer-io/fleetpeer/pkg/options"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

type Server struct {
	server   *http.Server
	options  *options.HttpOptions
	svc      *service.Service
	upgrader websocket.Upgrader
}

func NewServer(opts *options.HttpOptions, svc *service.Service) *Server {
	s := &Server{
		options: opts,
		svc:     svc,
	}
	s.upgrader = websocket.Upgrader{
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin:      s.checkOrigin,
	}

	// No WriteTimeout: the change stream is long-lived and sets its own
	// write deadlines.
	s.server = &http.Server{
		Addr:        opts.Addr,
		Handler:     s.routes(),
		ReadTimeout: opts.Timeout,
		IdleTimeout: 2 * opts.Timeout,
	}
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(requestID)

	// Basic Liveness Probe
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	// Readiness: an authenticated session with a connected feed.
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/session", s.handleSession).Methods(http.MethodGet)
	api.HandleFunc("/session/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/session/logout", s.handleLogout).Methods(http.MethodPost)
	api.HandleFunc("/feed", s.handleFeed).Methods(http.MethodGet)
	api.HandleFunc("/vehicles", s.handleVehicleList).Methods(http.MethodGet)
	api.HandleFunc("/vehicles/{id:[0-9]+}", s.handleVehicleDetail).Methods(http.MethodGet)
	api.HandleFunc("/vehicles/{id:[0-9]+}/dispatches", s.handleDispatches).Methods(http.MethodGet)
	api.HandleFunc("/vehicles/{id:[0-9]+}/dispatch-days", s.handleDispatchDays).Methods(http.MethodGet)
	api.HandleFunc("/map", s.handleMap).Methods(http.MethodGet)
	api.HandleFunc("/selection", s.handleSelection).Methods(http.MethodGet)
	api.HandleFunc("/selection", s.handleSelect).Methods(http.MethodPut)
	api.HandleFunc("/selection", s.handleCloseDetail).Methods(http.MethodDelete)
	api.HandleFunc("/selection/route", s.handleSelectDispatch).Methods(http.MethodPut)
	api.HandleFunc("/selection/route", s.handleClearRoute).Methods(http.MethodDelete)
	api.HandleFunc("/stream", s.handleStream).Methods(http.MethodGet)

	return cors.Handler(cors.Options{
		AllowedOrigins:   s.options.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{RequestIDHeader},
		AllowCredentials: true,
	})(r)
}

func (s *Server) Start(ctx context.Context) error {
	lis, err := net.Listen(s.options.Network, s.options.Addr)
	if err != nil {
		return err
	}

	log.Info("Starting HTTP Server", "addr", s.server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(lis); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}

// requestID tags every request with an id and a logger carrying it.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		logger := log.WithValues("requestID", id, "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r.WithContext(log.WithContext(r.Context(), logger)))
	})
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.options.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
