// Package lifecycle drives a request from intake to resolution:
// Pending -> Accepted|Rejected, Accepted -> Assigned. Rejected and Assigned
// are terminal; a vehicle may later be auto-released by the pool without
// ever reverting an Assigned status.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openrescue/dispatch/core/classify"
	"github.com/openrescue/dispatch/core/logger"
	"github.com/openrescue/dispatch/core/model"
	"github.com/openrescue/dispatch/core/pool"
	"github.com/openrescue/dispatch/core/registry"
	"github.com/openrescue/dispatch/core/store"
)

// Submission is the inbound payload from the intake collaborator.
type Submission struct {
	Name        string              `json:"name"`
	Phone       string              `json:"phone"`
	Situation   string              `json:"situation,omitempty"`
	DesiredType *model.ResourceType `json:"desired_type,omitempty"`
	Coordinates *model.Coordinates  `json:"coordinates,omitempty"`
}

// Manager applies lifecycle transitions, orchestrating the reservation pool
// and the driver registry. Transitions on one request are serialized;
// different requests proceed concurrently.
type Manager struct {
	requests store.RequestStore
	pool     *pool.Pool
	registry *registry.Registry
	ttl      time.Duration
	log      logger.Logger

	locks sync.Map // request id -> *sync.Mutex
}

// NewManager creates a lifecycle manager. ttl is the reservation
// time-to-live passed to the pool; non-positive falls back to the pool
// default.
func NewManager(requests store.RequestStore, p *pool.Pool, reg *registry.Registry, ttl time.Duration, log logger.Logger) (*Manager, error) {
	if requests == nil || p == nil || reg == nil {
		return nil, fmt.Errorf("lifecycle: nil parameter provided to NewManager")
	}
	if ttl <= 0 {
		ttl = pool.DefaultTTL
	}
	return &Manager{requests: requests, pool: p, registry: reg, ttl: ttl, log: log}, nil
}

// TTL returns the reservation time-to-live used by Accept.
func (m *Manager) TTL() time.Duration { return m.ttl }

func (m *Manager) lock(requestID string) func() {
	muIface, _ := m.locks.LoadOrStore(requestID, &sync.Mutex{})
	mu := muIface.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Submit creates a Pending request from the intake payload.
func (m *Manager) Submit(ctx context.Context, sub Submission) (model.Request, error) {
	req := model.Request{
		ID:            uuid.NewString(),
		RequesterName: sub.Name,
		Phone:         sub.Phone,
		Situation:     sub.Situation,
		DesiredType:   sub.DesiredType,
		Coordinates:   sub.Coordinates,
		Status:        model.StatusPending,
		CreatedAt:     time.Now(),
	}
	if err := req.Validate(); err != nil {
		return model.Request{}, err
	}
	if err := m.requests.Create(ctx, req); err != nil {
		return model.Request{}, fmt.Errorf("create request: %w", err)
	}
	if m.log != nil {
		m.log.Infof("request %s submitted by %s", req.ID, req.RequesterName)
	}
	return req, nil
}

// Accept resolves the request's resource type, reserves a unit and moves the
// request to Assigned. On an exhausted pool it returns ErrNoVehicleAvailable
// and leaves the request Pending. Accepting an already Assigned request is a
// no-op returning the existing assignment — no second unit is consumed.
func (m *Manager) Accept(ctx context.Context, requestID string) (model.Request, error) {
	defer m.lock(requestID)()

	req, err := m.requests.Get(ctx, requestID)
	if err != nil {
		return model.Request{}, err
	}
	switch req.Status {
	case model.StatusAssigned:
		return req, nil
	case model.StatusRejected:
		return req, fmt.Errorf("%w: accept on rejected request %s", ErrInvalidTransition, requestID)
	}

	typ := classify.Resolve(req)
	res, err := m.pool.Reserve(typ, req.ID, m.ttl)
	if err != nil {
		if errors.Is(err, pool.ErrExhausted) {
			if m.log != nil {
				m.log.Warnf("no %s free for request %s", typ, requestID)
			}
			return req, fmt.Errorf("%w: %s", ErrNoVehicleAvailable, typ)
		}
		return req, err
	}

	req.Status = model.StatusAssigned
	req.AssignedVehicleID = res.UnitID
	req.AssignedVehicleType = typ
	granted := res.GrantedAt
	req.VehicleAssignedAt = &granted
	if err := m.requests.Update(ctx, req); err != nil {
		// No partial state: give the unit back if the store rejected the
		// transition.
		if rerr := m.pool.Release(res.UnitID); rerr != nil && m.log != nil {
			m.log.Errorf("rollback release %s failed: %v", res.UnitID, rerr)
		}
		return model.Request{}, fmt.Errorf("update request: %w", err)
	}
	if m.log != nil {
		m.log.Infof("request %s assigned %s (%s)", req.ID, res.UnitID, typ)
	}
	return req, nil
}

// Reject moves a Pending request to Rejected. Rejecting an already Rejected
// request is a no-op. There are no reservation side effects.
func (m *Manager) Reject(ctx context.Context, requestID string) (model.Request, error) {
	defer m.lock(requestID)()

	req, err := m.requests.Get(ctx, requestID)
	if err != nil {
		return model.Request{}, err
	}
	switch req.Status {
	case model.StatusRejected:
		return req, nil
	case model.StatusAssigned:
		return req, fmt.Errorf("%w: reject on assigned request %s", ErrInvalidTransition, requestID)
	}
	req.Status = model.StatusRejected
	if err := m.requests.Update(ctx, req); err != nil {
		return model.Request{}, fmt.Errorf("update request: %w", err)
	}
	if m.log != nil {
		m.log.Infof("request %s rejected", requestID)
	}
	return req, nil
}

// AssignDriver pairs an eligible driver with an Assigned request. The
// driver's capability must match the request's assigned vehicle type.
func (m *Manager) AssignDriver(ctx context.Context, requestID, driverID string) (model.Request, error) {
	defer m.lock(requestID)()

	req, err := m.requests.Get(ctx, requestID)
	if err != nil {
		return model.Request{}, err
	}
	if req.Status != model.StatusAssigned {
		return req, fmt.Errorf("%w: driver assignment requires an assigned request", ErrInvalidTransition)
	}
	d, err := m.registry.Get(driverID)
	if err != nil {
		return req, err
	}
	if d.VehicleType != req.AssignedVehicleType {
		return req, fmt.Errorf("%w: driver %s drives %s, request needs %s",
			ErrDriverNotEligible, driverID, d.VehicleType, req.AssignedVehicleType)
	}
	if err := m.registry.Assign(ctx, driverID, requestID); err != nil {
		return req, err
	}
	req.AssignedDriverID = driverID
	if err := m.requests.Update(ctx, req); err != nil {
		if rerr := m.registry.Release(ctx, driverID); rerr != nil && m.log != nil {
			m.log.Errorf("rollback driver release %s failed: %v", driverID, rerr)
		}
		return model.Request{}, fmt.Errorf("update request: %w", err)
	}
	if m.log != nil {
		m.log.Infof("driver %s paired with request %s", driverID, requestID)
	}
	return req, nil
}
