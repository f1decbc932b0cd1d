// Package dispatch contains the coordinator that ties the engine together:
// it feeds intake submissions into the lifecycle, watches the store's
// change streams, and republishes derived views to every observer.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/openrescue/dispatch/core/classify"
	"github.com/openrescue/dispatch/core/geo"
	"github.com/openrescue/dispatch/core/lifecycle"
	"github.com/openrescue/dispatch/core/logger"
	"github.com/openrescue/dispatch/core/metrics"
	"github.com/openrescue/dispatch/core/model"
	"github.com/openrescue/dispatch/core/pool"
	"github.com/openrescue/dispatch/core/registry"
	"github.com/openrescue/dispatch/core/store"
	"github.com/openrescue/dispatch/internal/eventbus"
)

// AssignmentNotifier pushes a new assignment to the driver-facing channel.
type AssignmentNotifier interface {
	NotifyAssignment(driverID string, req model.Request) error
}

// Coordinator is the single logical dispatcher of a deployment. Running
// several coordinators against one pool without external mutual exclusion
// can double-reserve; that mode is out of scope.
type Coordinator struct {
	lifecycle *lifecycle.Manager
	pool      *pool.Pool
	registry  *registry.Registry
	store     store.Store
	notifier  AssignmentNotifier
	sink      metrics.Sink
	bus       *eventbus.Bus[Snapshot]
	log       logger.Logger
	tick      time.Duration

	mu       sync.RWMutex
	requests []model.Request
	drivers  []model.Driver
	view     Snapshot
}

// NewCoordinator creates a coordinator. notifier and sink may be nil.
func NewCoordinator(lc *lifecycle.Manager, p *pool.Pool, reg *registry.Registry, st store.Store, notifier AssignmentNotifier, sink metrics.Sink, log logger.Logger) (*Coordinator, error) {
	if lc == nil || p == nil || reg == nil || st == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to NewCoordinator")
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	c := &Coordinator{
		lifecycle: lc,
		pool:      p,
		registry:  reg,
		store:     st,
		notifier:  notifier,
		sink:      sink,
		bus:       eventbus.New[Snapshot](),
		log:       log,
		tick:      time.Second,
	}
	p.SetOnExpire(c.onReservationExpired)
	return c, nil
}

// SetNotifier installs the assignment notifier. The broker client is built
// after the coordinator (it needs the coordinator as its engine), so the
// notifier arrives late.
func (c *Coordinator) SetNotifier(n AssignmentNotifier) {
	c.mu.Lock()
	c.notifier = n
	c.mu.Unlock()
}

// Subscribe registers an observer for derived view snapshots.
func (c *Coordinator) Subscribe() <-chan Snapshot { return c.bus.Subscribe() }

// Unsubscribe removes an observer.
func (c *Coordinator) Unsubscribe(sub <-chan Snapshot) { c.bus.Unsubscribe(sub) }

// Close shuts the observer bus down.
func (c *Coordinator) Close() { c.bus.Close() }

// Run consumes both change streams until the context is cancelled. The
// periodic tick only refreshes the reservation countdowns; it never mutates
// engine state.
func (c *Coordinator) Run(ctx context.Context) {
	reqCh := c.store.Requests().Subscribe(ctx)
	drvCh := c.store.Drivers().Subscribe(ctx)
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	for {
		select {
		case snap, ok := <-reqCh:
			if !ok {
				reqCh = nil
				break
			}
			c.mu.Lock()
			c.requests = snap
			c.mu.Unlock()
			c.republish()
		case snap, ok := <-drvCh:
			if !ok {
				drvCh = nil
				break
			}
			c.mu.Lock()
			c.drivers = snap
			c.mu.Unlock()
			c.republish()
		case <-ticker.C:
			c.republish()
		case <-ctx.Done():
			return
		}
	}
}

// republish recomputes the derived views and fans them out.
func (c *Coordinator) republish() {
	c.mu.Lock()
	view := deriveViews(c.requests, c.drivers, c.lifecycle.TTL(), time.Now())
	c.view = view
	c.mu.Unlock()

	byStatus := map[string]int{}
	for _, r := range view.Requests {
		byStatus[r.Status.String()]++
	}
	for _, status := range []model.RequestStatus{model.StatusPending, model.StatusAccepted, model.StatusRejected, model.StatusAssigned} {
		requestsByStatus.WithLabelValues(status.String()).Set(float64(byStatus[status.String()]))
	}
	available := 0
	for _, d := range view.Drivers {
		if d.Available {
			available++
		}
	}
	driversAvailable.Set(float64(available))
	snapshotsPublished.Inc()

	c.bus.Publish(view)
}

// View returns the latest derived snapshot.
func (c *Coordinator) View() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.view
}

// HandleSubmission turns an intake payload into a Pending request.
func (c *Coordinator) HandleSubmission(ctx context.Context, sub lifecycle.Submission) (model.Request, error) {
	req, err := c.lifecycle.Submit(ctx, sub)
	if err != nil {
		return model.Request{}, err
	}
	c.record(metrics.RequestEvent{RequestID: req.ID, Action: "submitted", Time: time.Now()})
	return req, nil
}

// Accept applies the accept transition and records the outcome.
func (c *Coordinator) Accept(ctx context.Context, requestID string) (model.Request, error) {
	req, err := c.lifecycle.Accept(ctx, requestID)
	if err != nil {
		return req, err
	}
	c.record(metrics.RequestEvent{
		RequestID:   req.ID,
		Action:      "accepted",
		VehicleType: req.AssignedVehicleType,
		UnitID:      req.AssignedVehicleID,
		Time:        time.Now(),
	})
	c.recordPoolState()
	return req, nil
}

// Reject applies the reject transition.
func (c *Coordinator) Reject(ctx context.Context, requestID string) (model.Request, error) {
	req, err := c.lifecycle.Reject(ctx, requestID)
	if err != nil {
		return req, err
	}
	c.record(metrics.RequestEvent{RequestID: req.ID, Action: "rejected", Time: time.Now()})
	return req, nil
}

// AssignDriver pairs a driver with the request and notifies the driver.
func (c *Coordinator) AssignDriver(ctx context.Context, requestID, driverID string) (model.Request, error) {
	req, err := c.lifecycle.AssignDriver(ctx, requestID, driverID)
	if err != nil {
		return req, err
	}
	c.record(metrics.RequestEvent{
		RequestID:   req.ID,
		Action:      "driver_assigned",
		VehicleType: req.AssignedVehicleType,
		UnitID:      req.AssignedVehicleID,
		DriverID:    driverID,
		Time:        time.Now(),
	})
	c.mu.RLock()
	notifier := c.notifier
	c.mu.RUnlock()
	if notifier != nil {
		if err := notifier.NotifyAssignment(driverID, req); err != nil && c.log != nil {
			c.log.Errorf("assignment notify for %s failed: %v", driverID, err)
		}
	}
	return req, nil
}

// UpdatePresence forwards a driver position update to the registry.
func (c *Coordinator) UpdatePresence(ctx context.Context, driverID string, coords model.Coordinates) error {
	if err := c.registry.UpdatePresence(ctx, driverID, coords); err != nil {
		return err
	}
	if pr, ok := c.sink.(metrics.PresenceRecorder); ok {
		if err := pr.RecordPresence(metrics.PresenceEvent{DriverID: driverID, Coordinates: coords, Time: time.Now()}); err != nil && c.log != nil {
			c.log.Errorf("presence metrics error: %v", err)
		}
	}
	return nil
}

// RankedDrivers returns drivers for the request's resolved type ordered by
// distance to the request. Drivers without a known position, or an empty
// eligible set, fall back to the full eligible list unranked; requests
// without coordinates get the eligible list as-is. The fallback policy
// lives here, not in geo.
func (c *Coordinator) RankedDrivers(ctx context.Context, requestID string) ([]model.Driver, error) {
	req, err := c.store.Requests().Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	typ := req.AssignedVehicleType
	if req.Status != model.StatusAssigned {
		typ = classify.Resolve(req)
	}
	eligible := c.registry.EligibleDrivers(typ)
	if req.Coordinates == nil || len(eligible) == 0 {
		return eligible, nil
	}

	var points []geo.Point
	located := make(map[string]model.Driver, len(eligible))
	var unlocated []model.Driver
	for _, d := range eligible {
		if d.LastKnownLocation == nil {
			unlocated = append(unlocated, d)
			continue
		}
		points = append(points, geo.Point{ID: d.ID, Coord: *d.LastKnownLocation})
		located[d.ID] = d
	}
	if len(points) == 0 {
		return eligible, nil
	}
	ranked := geo.Rank(points, *req.Coordinates)
	out := make([]model.Driver, 0, len(eligible))
	for _, p := range ranked {
		out = append(out, located[p.ID])
	}
	return append(out, unlocated...), nil
}

func (c *Coordinator) onReservationExpired(res pool.Reservation) {
	reservationExpiryObserved.Inc()
	c.record(metrics.RequestEvent{
		RequestID: res.RequestID,
		Action:    "reservation_expired",
		UnitID:    res.UnitID,
		Time:      time.Now(),
	})
	c.recordPoolState()
}

// recordPoolState pushes free-unit counts to sinks that track occupancy.
// Called on the paths that change the pool, not on the render tick.
func (c *Coordinator) recordPoolState() {
	pr, ok := c.sink.(metrics.PoolStateRecorder)
	if !ok {
		return
	}
	now := time.Now()
	types := []model.ResourceType{model.ResourceAmbulance, model.ResourceFireEngine, model.ResourcePoliceVan}
	evs := make([]metrics.PoolStateEvent, 0, len(types))
	for _, t := range types {
		evs = append(evs, metrics.PoolStateEvent{VehicleType: t, FreeUnits: c.pool.FreeCount(t), Time: now})
	}
	if err := pr.RecordPoolState(evs); err != nil && c.log != nil {
		c.log.Errorf("pool state metrics error: %v", err)
	}
}

func (c *Coordinator) record(ev metrics.RequestEvent) {
	if err := c.sink.RecordRequestEvent([]metrics.RequestEvent{ev}); err != nil && c.log != nil {
		c.log.Errorf("metrics error: %v", err)
	}
}
