package dispatch

import (
	"sort"
	"time"

	"github.com/openrescue/dispatch/core/classify"
	"github.com/openrescue/dispatch/core/model"
)

// RequestView is a request enriched with the derived fields shown on the
// admin table. The countdown is presentation-only and never written back.
type RequestView struct {
	model.Request
	ResolvedVehicleType        model.ResourceType `json:"resolved_vehicle_type"`
	RemainingReservationMillis int64              `json:"remaining_reservation_ms"`
	AssignedDriverName         string             `json:"assigned_driver_name,omitempty"`
}

// DriverView is a driver enriched with the current-vs-history split of its
// assignments.
type DriverView struct {
	model.Driver
	CurrentAssignment *model.Request  `json:"current_assignment,omitempty"`
	History           []model.Request `json:"history,omitempty"`
}

// Snapshot is the full derived state published to observers.
type Snapshot struct {
	Requests    []RequestView `json:"requests"`
	Drivers     []DriverView  `json:"drivers"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// remaining computes the reservation countdown for a request at time now.
func remaining(req model.Request, ttl time.Duration, now time.Time) int64 {
	if req.Status != model.StatusAssigned || req.VehicleAssignedAt == nil {
		return 0
	}
	left := req.VehicleAssignedAt.Add(ttl).Sub(now)
	if left < 0 {
		return 0
	}
	return left.Milliseconds()
}

// deriveViews computes the published views from raw store snapshots. It is
// a pure derivation over request history: the same split is served to every
// observer instead of being recomputed per view.
func deriveViews(requests []model.Request, drivers []model.Driver, ttl time.Duration, now time.Time) Snapshot {
	names := make(map[string]string, len(drivers))
	for _, d := range drivers {
		names[d.ID] = d.Name
	}

	reqViews := make([]RequestView, 0, len(requests))
	byDriver := make(map[string][]model.Request)
	for _, r := range requests {
		reqViews = append(reqViews, RequestView{
			Request:                    r,
			ResolvedVehicleType:        classify.Resolve(r),
			RemainingReservationMillis: remaining(r, ttl, now),
			AssignedDriverName:         names[r.AssignedDriverID],
		})
		if r.AssignedDriverID != "" {
			byDriver[r.AssignedDriverID] = append(byDriver[r.AssignedDriverID], r)
		}
	}

	drvViews := make([]DriverView, 0, len(drivers))
	for _, d := range drivers {
		view := DriverView{Driver: d}
		for _, r := range byDriver[d.ID] {
			r := r
			if view.CurrentAssignment == nil && activeAssignment(r, ttl, now) {
				view.CurrentAssignment = &r
				continue
			}
			view.History = append(view.History, r)
		}
		sort.Slice(view.History, func(i, j int) bool {
			return assignedAt(view.History[i]).After(assignedAt(view.History[j]))
		})
		drvViews = append(drvViews, view)
	}
	return Snapshot{Requests: reqViews, Drivers: drvViews, GeneratedAt: now}
}

// activeAssignment reports whether the request still counts as the driver's
// current job: assigned and within the reservation window. Older ones are
// history even though their status never reverts.
func activeAssignment(r model.Request, ttl time.Duration, now time.Time) bool {
	if r.Status != model.StatusAssigned || r.VehicleAssignedAt == nil {
		return false
	}
	return now.Sub(*r.VehicleAssignedAt) < ttl
}

func assignedAt(r model.Request) time.Time {
	if r.VehicleAssignedAt != nil {
		return *r.VehicleAssignedAt
	}
	return r.CreatedAt
}
