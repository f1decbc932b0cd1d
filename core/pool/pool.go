// Package pool owns the finite per-type inventory of vehicle units and the
// reservations placed on them. Each unit is an independent lock domain:
// reserve and release on the same unit are serialized, operations on
// different units proceed concurrently, and there is no global lock.
package pool

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/openrescue/dispatch/core/logger"
	"github.com/openrescue/dispatch/core/model"
)

// ErrExhausted is returned by Reserve when no unit of the requested type is
// free. Callers may retry or surface the condition to the user.
var ErrExhausted = errors.New("pool: no free unit of requested type")

// DefaultTTL is the reservation time-to-live applied when callers pass a
// non-positive duration.
const DefaultTTL = 10 * time.Minute

// Reservation is a time-bounded exclusive claim on one unit by one request.
type Reservation struct {
	UnitID    string    `json:"unit_id"`
	RequestID string    `json:"request_id"`
	GrantedAt time.Time `json:"granted_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type unit struct {
	id  string
	typ model.ResourceType

	mu    sync.Mutex
	res   *Reservation
	timer *time.Timer
}

// Config defines the pool inventory and reservation timing.
type Config struct {
	// UnitsPerType is the fixed number of units created for each vehicle
	// category.
	UnitsPerType int `json:"units_per_type"`
	// TTLMinutes is the reservation time-to-live before auto-release.
	TTLMinutes int `json:"ttl_minutes"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.UnitsPerType <= 0 {
		c.UnitsPerType = 10
	}
	if c.TTLMinutes <= 0 {
		c.TTLMinutes = 10
	}
}

// TTL returns the configured reservation time-to-live.
func (c Config) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// Pool grants and releases reservations over a fixed inventory.
type Pool struct {
	units map[model.ResourceType][]*unit
	byID  map[string]*unit
	log   logger.Logger

	mu       sync.Mutex
	onExpire func(Reservation)
}

var pooledTypes = []model.ResourceType{
	model.ResourceAmbulance,
	model.ResourceFireEngine,
	model.ResourcePoliceVan,
}

func unitName(t model.ResourceType, i int) string {
	switch t {
	case model.ResourceAmbulance:
		return fmt.Sprintf("Ambulance-%d", i+1)
	case model.ResourceFireEngine:
		return fmt.Sprintf("FireEngine-%d", i+1)
	default:
		return fmt.Sprintf("PoliceVan-%d", i+1)
	}
}

// New creates a pool with cfg.UnitsPerType units for each pooled category.
// The inventory is immutable afterwards.
func New(cfg Config, log logger.Logger) *Pool {
	cfg.SetDefaults()
	p := &Pool{
		units: make(map[model.ResourceType][]*unit, len(pooledTypes)),
		byID:  make(map[string]*unit, cfg.UnitsPerType*len(pooledTypes)),
		log:   log,
	}
	for _, t := range pooledTypes {
		for i := 0; i < cfg.UnitsPerType; i++ {
			u := &unit{id: unitName(t, i), typ: t}
			p.units[t] = append(p.units[t], u)
			p.byID[u.id] = u
		}
	}
	return p
}

// SetOnExpire registers a callback invoked after a reservation auto-expires.
// The callback runs outside the unit lock.
func (p *Pool) SetOnExpire(fn func(Reservation)) {
	p.mu.Lock()
	p.onExpire = fn
	p.mu.Unlock()
}

// Reserve claims the first free unit of the given type in stable index
// order and schedules its auto-release after ttl. It returns ErrExhausted
// when every unit of the type is held. Units of one type are
// interchangeable, so no geo ranking happens here.
func (p *Pool) Reserve(t model.ResourceType, requestID string, ttl time.Duration) (Reservation, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	for _, u := range p.units[t] {
		u.mu.Lock()
		if u.res != nil {
			u.mu.Unlock()
			continue
		}
		now := time.Now()
		res := &Reservation{
			UnitID:    u.id,
			RequestID: requestID,
			GrantedAt: now,
			ExpiresAt: now.Add(ttl),
		}
		u.res = res
		u.timer = time.AfterFunc(ttl, func() { p.expire(u, res) })
		u.mu.Unlock()
		reservationsGranted.WithLabelValues(t.String()).Inc()
		if p.log != nil {
			p.log.Infof("reserved %s for request %s until %s", u.id, requestID, res.ExpiresAt.Format(time.RFC3339))
		}
		return *res, nil
	}
	reservationsExhausted.WithLabelValues(t.String()).Inc()
	return Reservation{}, ErrExhausted
}

// expire frees the unit when its timer fires, unless the reservation was
// already replaced or released. Racing with an explicit Release is safe:
// whichever runs second sees a different (or nil) reservation and backs off.
func (p *Pool) expire(u *unit, res *Reservation) {
	u.mu.Lock()
	if u.res != res {
		u.mu.Unlock()
		return
	}
	u.res = nil
	u.timer = nil
	u.mu.Unlock()

	reservationsExpired.WithLabelValues(u.typ.String()).Inc()
	if p.log != nil {
		p.log.Infof("reservation on %s expired, unit free again", u.id)
	}
	p.mu.Lock()
	fn := p.onExpire
	p.mu.Unlock()
	if fn != nil {
		fn(*res)
	}
}

// Release frees the unit immediately and cancels any pending auto-release
// timer. It is idempotent: releasing a free unit is a no-op. Unknown unit
// IDs are reported as a defect.
func (p *Pool) Release(unitID string) error {
	u, ok := p.byID[unitID]
	if !ok {
		return fmt.Errorf("pool: unknown unit %q", unitID)
	}
	u.mu.Lock()
	if u.res == nil {
		u.mu.Unlock()
		return nil
	}
	if u.timer != nil {
		u.timer.Stop()
		u.timer = nil
	}
	u.res = nil
	u.mu.Unlock()
	reservationsReleased.WithLabelValues(u.typ.String()).Inc()
	if p.log != nil {
		p.log.Infof("released %s", unitID)
	}
	return nil
}

// FreeCount returns the number of currently unreserved units of the type.
func (p *Pool) FreeCount(t model.ResourceType) int {
	n := 0
	for _, u := range p.units[t] {
		u.mu.Lock()
		if u.res == nil {
			n++
		}
		u.mu.Unlock()
	}
	return n
}

// ActiveReservation returns the reservation currently held on the unit.
func (p *Pool) ActiveReservation(unitID string) (Reservation, bool) {
	u, ok := p.byID[unitID]
	if !ok {
		return Reservation{}, false
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.res == nil {
		return Reservation{}, false
	}
	return *u.res, true
}

// Snapshot reports the availability of every unit, in stable index order.
func (p *Pool) Snapshot() []model.VehicleUnit {
	var out []model.VehicleUnit
	for _, t := range pooledTypes {
		for _, u := range p.units[t] {
			u.mu.Lock()
			out = append(out, model.VehicleUnit{ID: u.id, Type: t, Available: u.res == nil})
			u.mu.Unlock()
		}
	}
	return out
}
