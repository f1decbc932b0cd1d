// Package reports computes operational KPIs over the request history:
// volume per status and type, time-to-assign statistics and dispatch
// distances. Everything is derived; reports never mutate engine state.
package reports

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/openrescue/dispatch/core/classify"
	"github.com/openrescue/dispatch/core/geo"
	"github.com/openrescue/dispatch/core/model"
)

// Stats summarizes a sample of float values.
type Stats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	P90    float64 `json:"p90"`
}

// Summary is the aggregated report served on the admin surface.
type Summary struct {
	TotalRequests      int            `json:"total_requests"`
	ByStatus           map[string]int `json:"by_status"`
	ByVehicleType      map[string]int `json:"by_vehicle_type"`
	TimeToAssignSecs   Stats          `json:"time_to_assign_seconds"`
	DispatchDistanceKm Stats          `json:"dispatch_distance_km"`
	GeneratedAt        time.Time      `json:"generated_at"`
}

func summarize(sample []float64) Stats {
	if len(sample) == 0 {
		return Stats{}
	}
	sorted := append([]float64(nil), sample...)
	sort.Float64s(sorted)
	s := Stats{
		Count: len(sorted),
		Mean:  stat.Mean(sorted, nil),
		P90:   stat.Quantile(0.9, stat.Empirical, sorted, nil),
	}
	if len(sorted) > 1 {
		s.StdDev = stat.StdDev(sorted, nil)
	}
	return s
}

// Build computes the summary for the given request and driver snapshots.
// Distance is measured between the request and the assigned driver's last
// known position; pairs missing either coordinate are skipped.
func Build(requests []model.Request, drivers []model.Driver, now time.Time) Summary {
	locations := make(map[string]*model.Coordinates, len(drivers))
	for _, d := range drivers {
		locations[d.ID] = d.LastKnownLocation
	}

	sum := Summary{
		TotalRequests: len(requests),
		ByStatus:      make(map[string]int),
		ByVehicleType: make(map[string]int),
		GeneratedAt:   now,
	}
	var assignTimes, distances []float64
	for _, r := range requests {
		sum.ByStatus[r.Status.String()]++
		sum.ByVehicleType[classify.Resolve(r).String()]++

		if r.VehicleAssignedAt != nil {
			assignTimes = append(assignTimes, r.VehicleAssignedAt.Sub(r.CreatedAt).Seconds())
		}
		if r.AssignedDriverID == "" || r.Coordinates == nil {
			continue
		}
		if loc := locations[r.AssignedDriverID]; loc != nil {
			distances = append(distances, geo.Distance(*r.Coordinates, *loc))
		}
	}
	sum.TimeToAssignSecs = summarize(assignTimes)
	sum.DispatchDistanceKm = summarize(distances)
	return sum
}
