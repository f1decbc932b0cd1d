package metrics

import coremetrics "github.com/openrescue/dispatch/core/metrics"

// MultiSink fans lifecycle events out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordRequestEvent forwards the events to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordRequestEvent(events []coremetrics.RequestEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordRequestEvent(events); err != nil {
			return err
		}
	}
	return nil
}

// RecordPresence forwards presence updates to sinks that support them.
func (m *MultiSink) RecordPresence(ev coremetrics.PresenceEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.PresenceRecorder); ok {
			if err := rec.RecordPresence(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordPoolState forwards pool snapshots to sinks that support them.
func (m *MultiSink) RecordPoolState(evs []coremetrics.PoolStateEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.PoolStateRecorder); ok {
			if err := rec.RecordPoolState(evs); err != nil {
				return err
			}
		}
	}
	return nil
}
