package pool

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	reservationsGranted   *prometheus.CounterVec
	reservationsReleased  *prometheus.CounterVec
	reservationsExpired   *prometheus.CounterVec
	reservationsExhausted *prometheus.CounterVec
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, *prometheus.CounterVec, *prometheus.CounterVec, *prometheus.CounterVec) {
	granted := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservations_granted_total",
			Help: "Number of vehicle reservations granted",
		},
		[]string{"vehicle_type"},
	)
	released := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservations_released_total",
			Help: "Number of vehicle reservations explicitly released",
		},
		[]string{"vehicle_type"},
	)
	expired := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservations_expired_total",
			Help: "Number of vehicle reservations freed by TTL expiry",
		},
		[]string{"vehicle_type"},
	)
	exhausted := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservations_exhausted_total",
			Help: "Number of reserve attempts that found no free unit",
		},
		[]string{"vehicle_type"},
	)
	return granted, released, expired, exhausted
}

func init() {
	reservationsGranted, reservationsReleased, reservationsExpired, reservationsExhausted = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers pool metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(reservationsGranted, reservationsReleased, reservationsExpired, reservationsExhausted)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	reservationsGranted, reservationsReleased, reservationsExpired, reservationsExhausted = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
