package config

import (
	"fmt"

	"github.com/openrescue/dispatch/core/model"
)

// SeedDriver is a driver record provisioned at startup.
type SeedDriver struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	VehicleType string `json:"vehicle_type"`
	Available   *bool  `json:"available"`
}

// SeedConfig lists drivers registered before the engine starts serving.
type SeedConfig struct {
	Drivers []SeedDriver `json:"drivers"`
}

// SetDefaults marks seeded drivers available unless stated otherwise.
func (c *SeedConfig) SetDefaults() {
	for i := range c.Drivers {
		if c.Drivers[i].Available == nil {
			avail := true
			c.Drivers[i].Available = &avail
		}
	}
}

// Validate checks every seed entry is complete.
func (c SeedConfig) Validate() error {
	for i, d := range c.Drivers {
		if d.ID == "" {
			return fmt.Errorf("seed driver %d: id is required", i)
		}
		if _, err := model.ParseResourceType(d.VehicleType); err != nil {
			return fmt.Errorf("seed driver %s: %w", d.ID, err)
		}
	}
	return nil
}

// ModelDrivers converts the seed entries into driver records.
func (c SeedConfig) ModelDrivers() []model.Driver {
	out := make([]model.Driver, 0, len(c.Drivers))
	for _, d := range c.Drivers {
		typ, _ := model.ParseResourceType(d.VehicleType)
		out = append(out, model.Driver{
			ID:          d.ID,
			Name:        d.Name,
			Email:       d.Email,
			Phone:       d.Phone,
			VehicleType: typ,
			Available:   d.Available != nil && *d.Available,
		})
	}
	return out
}
