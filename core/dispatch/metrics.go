package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestsByStatus          *prometheus.GaugeVec
	driversAvailable          prometheus.Gauge
	snapshotsPublished        prometheus.Counter
	reservationExpiryObserved prometheus.Counter
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.GaugeVec, prometheus.Gauge, prometheus.Counter, prometheus.Counter) {
	byStatus := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dispatch_requests",
			Help: "Number of requests currently in each status",
		},
		[]string{"status"},
	)
	avail := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dispatch_drivers_available",
			Help: "Number of drivers currently available",
		},
	)
	snaps := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_snapshots_published_total",
			Help: "Number of derived view snapshots published to observers",
		},
	)
	expiry := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_reservation_expiries_observed_total",
			Help: "Number of reservation expiries observed by the coordinator",
		},
	)
	return byStatus, avail, snaps, expiry
}

func init() {
	requestsByStatus, driversAvailable, snapshotsPublished, reservationExpiryObserved = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers coordinator metrics on the provided
// registry. If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(requestsByStatus, driversAvailable, snapshotsPublished, reservationExpiryObserved)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	requestsByStatus, driversAvailable, snapshotsPublished, reservationExpiryObserved = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
