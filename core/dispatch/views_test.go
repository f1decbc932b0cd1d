package dispatch

import (
	"testing"
	"time"

	"github.com/openrescue/dispatch/core/model"
)

func ts(t time.Time) *time.Time { return &t }

func TestDeriveViewsCountdown(t *testing.T) {
	now := time.Now()
	ttl := 10 * time.Minute
	assigned := now.Add(-4 * time.Minute)
	reqs := []model.Request{
		{ID: "r1", Status: model.StatusAssigned, VehicleAssignedAt: ts(assigned), AssignedVehicleType: model.ResourceAmbulance},
		{ID: "r2", Status: model.StatusPending},
	}
	snap := deriveViews(reqs, nil, ttl, now)
	if len(snap.Requests) != 2 {
		t.Fatalf("expected 2 views, got %d", len(snap.Requests))
	}
	left := snap.Requests[0].RemainingReservationMillis
	if left <= 5*time.Minute.Milliseconds() || left > 6*time.Minute.Milliseconds() {
		t.Fatalf("countdown wrong: %d", left)
	}
	if snap.Requests[1].RemainingReservationMillis != 0 {
		t.Fatalf("pending request must have no countdown")
	}
}

func TestDeriveViewsCountdownNeverNegative(t *testing.T) {
	now := time.Now()
	reqs := []model.Request{{
		ID: "r1", Status: model.StatusAssigned,
		VehicleAssignedAt: ts(now.Add(-time.Hour)),
	}}
	snap := deriveViews(reqs, nil, 10*time.Minute, now)
	if snap.Requests[0].RemainingReservationMillis != 0 {
		t.Fatalf("expired countdown must clamp to zero")
	}
}

func TestDeriveViewsResolvedType(t *testing.T) {
	reqs := []model.Request{{ID: "r1", Status: model.StatusPending, Situation: "police chase"}}
	snap := deriveViews(reqs, nil, time.Minute, time.Now())
	if snap.Requests[0].ResolvedVehicleType != model.ResourcePoliceVan {
		t.Fatalf("resolved type wrong: %s", snap.Requests[0].ResolvedVehicleType)
	}
}

func TestDeriveViewsDriverNameJoin(t *testing.T) {
	now := time.Now()
	reqs := []model.Request{{
		ID: "r1", Status: model.StatusAssigned, AssignedDriverID: "d1",
		VehicleAssignedAt: ts(now),
	}}
	drivers := []model.Driver{{ID: "d1", Name: "Bob"}}
	snap := deriveViews(reqs, drivers, time.Minute, now)
	if snap.Requests[0].AssignedDriverName != "Bob" {
		t.Fatalf("driver name not joined: %#v", snap.Requests[0])
	}
}

func TestDeriveViewsCurrentVsHistory(t *testing.T) {
	now := time.Now()
	ttl := 10 * time.Minute
	reqs := []model.Request{
		// old assignment, outside the window -> history
		{ID: "old", Status: model.StatusAssigned, AssignedDriverID: "d1",
			VehicleAssignedAt: ts(now.Add(-2 * time.Hour))},
		// fresh assignment -> current
		{ID: "fresh", Status: model.StatusAssigned, AssignedDriverID: "d1",
			VehicleAssignedAt: ts(now.Add(-time.Minute))},
		// rejected ones never count as current
		{ID: "rej", Status: model.StatusRejected, AssignedDriverID: "d1"},
	}
	drivers := []model.Driver{{ID: "d1", Name: "Bob"}}
	snap := deriveViews(reqs, drivers, ttl, now)
	dv := snap.Drivers[0]
	if dv.CurrentAssignment == nil || dv.CurrentAssignment.ID != "fresh" {
		t.Fatalf("current assignment wrong: %#v", dv.CurrentAssignment)
	}
	if len(dv.History) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(dv.History))
	}
	if dv.History[0].ID != "old" {
		t.Fatalf("history not newest-first: %#v", dv.History)
	}
}

func TestDeriveViewsAtMostOneCurrent(t *testing.T) {
	now := time.Now()
	reqs := []model.Request{
		{ID: "a", Status: model.StatusAssigned, AssignedDriverID: "d1", VehicleAssignedAt: ts(now)},
		{ID: "b", Status: model.StatusAssigned, AssignedDriverID: "d1", VehicleAssignedAt: ts(now)},
	}
	drivers := []model.Driver{{ID: "d1"}}
	snap := deriveViews(reqs, drivers, 10*time.Minute, now)
	dv := snap.Drivers[0]
	if dv.CurrentAssignment == nil || len(dv.History) != 1 {
		t.Fatalf("exactly one current expected: cur=%v hist=%d", dv.CurrentAssignment, len(dv.History))
	}
}
