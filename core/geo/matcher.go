package geo

import (
	"errors"
	"math"
	"sort"

	"github.com/openrescue/dispatch/core/model"
)

// EarthRadiusKm is the mean Earth radius used for the great-circle
// distance approximation (kilometres). No road routing is attempted.
const EarthRadiusKm = 6371.0

// ErrNoCandidates is returned when a ranking is requested over an empty
// candidate set. Given the pool invariants this indicates a programming
// error in the caller.
var ErrNoCandidates = errors.New("geo: no candidates")

// Point is a ranked candidate: an identifier with a known position.
type Point struct {
	ID    string
	Coord model.Coordinates
}

// Distance returns the haversine great-circle distance between a and b in
// kilometres.
func Distance(a, b model.Coordinates) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Nearest returns the candidate closest to origin. Ties are broken by input
// order: the first candidate at the minimum distance wins.
func Nearest(candidates []Point, origin model.Coordinates) (Point, error) {
	if len(candidates) == 0 {
		return Point{}, ErrNoCandidates
	}
	best := candidates[0]
	bestDist := Distance(best.Coord, origin)
	for _, c := range candidates[1:] {
		if d := Distance(c.Coord, origin); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, nil
}

// Rank returns a copy of candidates sorted by ascending distance from
// origin. The sort is stable so equidistant candidates keep input order.
func Rank(candidates []Point, origin model.Coordinates) []Point {
	out := append([]Point(nil), candidates...)
	sort.SliceStable(out, func(i, j int) bool {
		return Distance(out[i].Coord, origin) < Distance(out[j].Coord, origin)
	})
	return out
}
