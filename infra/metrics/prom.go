package metrics

import (
	coremetrics "github.com/openrescue/dispatch/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records lifecycle events in Prometheus metrics.
type PromSink struct {
	events   *prometheus.CounterVec
	presence *prometheus.CounterVec
	free     *prometheus.GaugeVec
}

// NewPromSink registers sink metrics on the default Prometheus registerer.
// The Prometheus server should be started separately via StartPromServer.
func NewPromSink() (coremetrics.Sink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (coremetrics.Sink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "request_events_total",
		Help: "Total number of request lifecycle events",
	}, []string{"action", "vehicle_type"})
	presence := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "driver_presence_updates_total",
		Help: "Total number of driver position updates",
	}, []string{"driver_id"})
	free := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pool_free_units",
		Help: "Free vehicle units per type",
	}, []string{"vehicle_type"})

	if err := reg.Register(events); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			events = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(presence); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			presence = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(free); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			free = are.ExistingCollector.(*prometheus.GaugeVec)
		} else {
			return nil, err
		}
	}

	return &PromSink{events: events, presence: presence, free: free}, nil
}

// RecordRequestEvent increments the event counter for each lifecycle event.
func (s *PromSink) RecordRequestEvent(events []coremetrics.RequestEvent) error {
	for _, ev := range events {
		s.events.WithLabelValues(ev.Action, ev.VehicleType.String()).Inc()
	}
	return nil
}

// RecordPresence counts driver position updates.
func (s *PromSink) RecordPresence(ev coremetrics.PresenceEvent) error {
	s.presence.WithLabelValues(ev.DriverID).Inc()
	return nil
}

// RecordPoolState sets the free-unit gauges.
func (s *PromSink) RecordPoolState(evs []coremetrics.PoolStateEvent) error {
	for _, ev := range evs {
		s.free.WithLabelValues(ev.VehicleType.String()).Set(float64(ev.FreeUnits))
	}
	return nil
}
