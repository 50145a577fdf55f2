package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds every fleetpeer metric and is served on /metrics.
var Registry = prometheus.NewRegistry()

var (
	// FeedConnected reports the telemetry feed connection.
	// 1 = Connected, 0 = Disconnected
	FeedConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleetpeer_feed_connected",
			Help: "Whether the live telemetry feed is connected (1=Connected, 0=Disconnected).",
		},
	)

	// FeedFramesTotal counts inbound feed frames by outcome.
	FeedFramesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetpeer_feed_frames_total",
			Help: "Total number of telemetry frames received.",
		},
		[]string{"source", "result"}, // source: websocket/mqtt, result: ok/malformed
	)

	// FeedRecordsDiscardedTotal counts records dropped from otherwise valid frames.
	FeedRecordsDiscardedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetpeer_feed_records_discarded_total",
			Help: "Total number of telemetry records discarded because they could not be decoded or lacked bus_id.",
		},
		[]string{"source"},
	)

	// FeedReconnectsTotal counts connection attempts made by the supervisor.
	FeedReconnectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetpeer_feed_connect_attempts_total",
			Help: "Total number of feed connection attempts.",
		},
		[]string{"result"},
	)

	// UpsertedRecordsTotal counts records merged into the vehicle store.
	UpsertedRecordsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fleetpeer_store_upserted_records_total",
			Help: "Total number of telemetry records merged into the vehicle store.",
		},
	)

	// VehiclesByStatus reports how many vehicles are in each operational status.
	VehiclesByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fleetpeer_vehicles",
			Help: "Number of tracked vehicles by operational status.",
		},
		[]string{"status"},
	)

	// StatusTransitionsTotal counts operational status changes.
	StatusTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetpeer_status_transitions_total",
			Help: "Total number of vehicle operational status transitions.",
		},
		[]string{"from", "to"},
	)

	// SnapshotSavesTotal counts snapshot writes by backend and outcome.
	SnapshotSavesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetpeer_snapshot_saves_total",
			Help: "Total number of vehicle snapshot saves.",
		},
		[]string{"backend", "status"}, // status: success/failed
	)

	// SnapshotSaveLatency records how long a snapshot save takes.
	SnapshotSaveLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleetpeer_snapshot_save_latency_seconds",
			Help:    "Latency of vehicle snapshot saves.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend"},
	)

	// BackendRequestLatency records monitoring backend request latency.
	BackendRequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleetpeer_backend_request_latency_seconds",
			Help:    "Latency of monitoring backend requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // operation: login/vehicles/dispatches/dispatch_days
	)

	// BackendRequestErrorsTotal counts failed monitoring backend requests.
	BackendRequestErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetpeer_backend_request_errors_total",
			Help: "Total number of failed monitoring backend requests.",
		},
		[]string{"operation"},
	)

	// StatusNotificationsTotal counts status transitions published to external subscribers.
	StatusNotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetpeer_status_notifications_total",
			Help: "Total number of status transitions published.",
		},
		[]string{"sink", "status"}, // sink: mqtt/redis
	)

	// StreamSubscribers reports the open websocket change streams.
	StreamSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleetpeer_stream_subscribers",
			Help: "Number of connected change stream subscribers.",
		},
	)

	// MQTTConnected reports the broker connection of each MQTT client.
	MQTTConnected = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fleetpeer_mqtt_connected",
			Help: "Whether the MQTT client is connected to the broker (1) or not (0).",
		},
		[]string{"client"}, // client: ingress/notifier
	)
)

// ObserveMQTTConnection returns a connection callback feeding MQTTConnected.
func ObserveMQTTConnection(client string) func(up bool) {
	g := MQTTConnected.WithLabelValues(client)
	return func(up bool) {
		if up {
			g.Set(1)
		} else {
			g.Set(0)
		}
	}
}

func init() {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	Registry.MustRegister(FeedConnected)
	Registry.MustRegister(FeedFramesTotal)
	Registry.MustRegister(FeedRecordsDiscardedTotal)
	Registry.MustRegister(FeedReconnectsTotal)
	Registry.MustRegister(UpsertedRecordsTotal)
	Registry.MustRegister(VehiclesByStatus)
	Registry.MustRegister(StatusTransitionsTotal)
	Registry.MustRegister(SnapshotSavesTotal)
	Registry.MustRegister(SnapshotSaveLatency)
	Registry.MustRegister(BackendRequestLatency)
	Registry.MustRegister(BackendRequestErrorsTotal)
	Registry.MustRegister(StatusNotificationsTotal)
	Registry.MustRegister(StreamSubscribers)
	Registry.MustRegister(MQTTConnected)
}
