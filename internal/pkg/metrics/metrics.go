package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds every groundlink collector. It is served on /metrics.
var Registry = prometheus.NewRegistry()

var (
	// LiveVehicles is the size of the live vehicle collection.
	LiveVehicles = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "groundlink_live_vehicles",
			Help: "Number of live vehicles.",
		},
	)

	// PendingDeletions is the number of vehicles waiting for finalization.
	PendingDeletions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "groundlink_pending_deletions",
			Help: "Number of removed vehicles not yet finalized.",
		},
	)

	// ActiveVehicleID is the id of the active vehicle, 0 for the offline vehicle.
	ActiveVehicleID = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "groundlink_active_vehicle_id",
			Help: "ID of the active vehicle (0 = offline).",
		},
	)

	// AdmissionsTotal counts vehicle arrivals by outcome.
	AdmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groundlink_admissions_total",
			Help: "Vehicle arrivals by result.",
		},
		[]string{"result"}, // admitted, duplicate, ignored, rejected
	)

	// HeartbeatsSentTotal counts ground station heartbeats by outcome.
	HeartbeatsSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groundlink_heartbeats_sent_total",
			Help: "Ground station heartbeats sent, by result.",
		},
		[]string{"result"}, // success, failed
	)

	// LinkPublishLatency records how long a link publish took.
	LinkPublishLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "groundlink_link_publish_latency_seconds",
			Help:    "Latency of publishing frames to a link.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"}, // heartbeat, event
	)

	// BrokerConnectivityStatus is 1 while the MQTT session is up.
	BrokerConnectivityStatus = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "groundlink_broker_connectivity_status",
			Help: "The connectivity status to the MQTT broker (1=Connected, 0=Disconnected).",
		},
	)
)

const (
	ResultAdmitted  = "admitted"
	ResultDuplicate = "duplicate"
	ResultIgnored   = "ignored"
	ResultRejected  = "rejected"

	ResultSuccess = "success"
	ResultFailed  = "failed"
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		LiveVehicles,
		PendingDeletions,
		ActiveVehicleID,
		AdmissionsTotal,
		HeartbeatsSentTotal,
		LinkPublishLatency,
		BrokerConnectivityStatus,
	)
}
