package metrics

import (
	"time"

	"github.com/openrescue/dispatch/core/model"
)

// RequestEvent is a per-request lifecycle event to be recorded for
// observability purposes.
type RequestEvent struct {
	RequestID   string
	Action      string // submitted, accepted, rejected, driver_assigned, reservation_expired
	VehicleType model.ResourceType
	UnitID      string
	DriverID    string
	Time        time.Time
}

// Sink records lifecycle events.
type Sink interface {
	RecordRequestEvent(events []RequestEvent) error
}

// PresenceEvent captures a driver position update.
type PresenceEvent struct {
	DriverID    string
	Coordinates model.Coordinates
	Time        time.Time
}

// PresenceRecorder is implemented by sinks able to record presence updates.
type PresenceRecorder interface {
	RecordPresence(ev PresenceEvent) error
}

// PoolStateEvent is a snapshot of free units per type.
type PoolStateEvent struct {
	VehicleType model.ResourceType
	FreeUnits   int
	Time        time.Time
}

// PoolStateRecorder records pool occupancy snapshots.
type PoolStateRecorder interface {
	RecordPoolState(evs []PoolStateEvent) error
}

// NopSink implements every recorder interface with no-op methods.
type NopSink struct{}

func (NopSink) RecordRequestEvent([]RequestEvent) error { return nil }
func (NopSink) RecordPresence(PresenceEvent) error      { return nil }
func (NopSink) RecordPoolState([]PoolStateEvent) error  { return nil }
