// Package registry tracks driver availability, capability and presence.
// Each driver record is an independent lock domain; presence lives behind
// its own lock so location updates never contend with assignment mutations.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/openrescue/dispatch/core/logger"
	"github.com/openrescue/dispatch/core/model"
	"github.com/openrescue/dispatch/core/store"
)

var (
	// ErrUnknownDriver is returned for IDs never registered.
	ErrUnknownDriver = errors.New("registry: unknown driver")
	// ErrNotEligible is returned when the driver is unavailable.
	ErrNotEligible = errors.New("registry: driver not available")
	// ErrAlreadyAssigned is returned when the driver already holds an
	// assignment. Lost assignment races surface as this error.
	ErrAlreadyAssigned = errors.New("registry: driver already assigned")
)

type entry struct {
	mu sync.Mutex
	d  model.Driver

	presenceMu sync.Mutex
	location   *model.Coordinates
	sharedAt   *time.Time
}

// Registry is the in-process driver index, mirrored to the external store.
type Registry struct {
	mu      sync.RWMutex
	drivers map[string]*entry

	store store.DriverStore
	log   logger.Logger
}

// New creates an empty registry mirroring mutations to st. st may be nil in
// tests.
func New(st store.DriverStore, log logger.Logger) *Registry {
	return &Registry{drivers: make(map[string]*entry), store: st, log: log}
}

// Register adds or replaces a driver record.
func (r *Registry) Register(ctx context.Context, d model.Driver) error {
	if d.ID == "" {
		return fmt.Errorf("registry: driver id is required")
	}
	r.mu.Lock()
	e, ok := r.drivers[d.ID]
	if !ok {
		e = &entry{}
		r.drivers[d.ID] = e
	}
	r.mu.Unlock()

	e.mu.Lock()
	e.d = d
	e.mu.Unlock()
	if d.LastKnownLocation != nil {
		e.presenceMu.Lock()
		loc := *d.LastKnownLocation
		e.location = &loc
		e.sharedAt = d.LastSharedAt
		e.presenceMu.Unlock()
	}
	return r.sync(ctx, d.ID)
}

func (r *Registry) lookup(id string) (*entry, error) {
	r.mu.RLock()
	e, ok := r.drivers[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, id)
	}
	return e, nil
}

// EligibleDrivers returns available drivers whose capability matches the
// type, in no particular order.
func (r *Registry) EligibleDrivers(t model.ResourceType) []model.Driver {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.drivers))
	for _, e := range r.drivers {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	var out []model.Driver
	for _, e := range entries {
		e.mu.Lock()
		d := e.d
		e.mu.Unlock()
		if d.Eligible(t) {
			out = append(out, r.withPresence(e, d))
		}
	}
	return out
}

// Assign pairs the driver with the request and marks the driver busy.
// The capability check against the request's resolved type belongs to the
// lifecycle; Assign only guards availability and single assignment.
func (r *Registry) Assign(ctx context.Context, driverID, requestID string) error {
	e, err := r.lookup(driverID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	switch {
	case e.d.AssignedRequestID != "":
		e.mu.Unlock()
		return ErrAlreadyAssigned
	case !e.d.Available:
		e.mu.Unlock()
		return ErrNotEligible
	}
	e.d.Available = false
	e.d.AssignedRequestID = requestID
	e.mu.Unlock()
	if r.log != nil {
		r.log.Infof("driver %s assigned to request %s", driverID, requestID)
	}
	return r.sync(ctx, driverID)
}

// Release marks the driver available again. Presence data is untouched.
// Releasing an unassigned driver is a no-op.
func (r *Registry) Release(ctx context.Context, driverID string) error {
	e, err := r.lookup(driverID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	if e.d.Available && e.d.AssignedRequestID == "" {
		e.mu.Unlock()
		return nil
	}
	e.d.Available = true
	e.d.AssignedRequestID = ""
	e.mu.Unlock()
	return r.sync(ctx, driverID)
}

// UpdatePresence records the driver's last known position. Last write wins;
// the registry does not retry store failures (callers do).
func (r *Registry) UpdatePresence(ctx context.Context, driverID string, c model.Coordinates) error {
	e, err := r.lookup(driverID)
	if err != nil {
		return err
	}
	now := time.Now()
	e.presenceMu.Lock()
	e.location = &c
	e.sharedAt = &now
	e.presenceMu.Unlock()
	return r.sync(ctx, driverID)
}

// Get returns the current record for one driver.
func (r *Registry) Get(driverID string) (model.Driver, error) {
	e, err := r.lookup(driverID)
	if err != nil {
		return model.Driver{}, err
	}
	e.mu.Lock()
	d := e.d
	e.mu.Unlock()
	return r.withPresence(e, d), nil
}

// List returns every driver record.
func (r *Registry) List() []model.Driver {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.drivers))
	for _, e := range r.drivers {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	out := make([]model.Driver, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		d := e.d
		e.mu.Unlock()
		out = append(out, r.withPresence(e, d))
	}
	return out
}

func (r *Registry) withPresence(e *entry, d model.Driver) model.Driver {
	e.presenceMu.Lock()
	if e.location != nil {
		loc := *e.location
		d.LastKnownLocation = &loc
		d.LastSharedAt = e.sharedAt
	}
	e.presenceMu.Unlock()
	return d
}

// sync mirrors the merged record to the external store.
func (r *Registry) sync(ctx context.Context, driverID string) error {
	if r.store == nil {
		return nil
	}
	d, err := r.Get(driverID)
	if err != nil {
		return err
	}
	if err := r.store.Update(ctx, d); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return r.store.Create(ctx, d)
		}
		return err
	}
	return nil
}
