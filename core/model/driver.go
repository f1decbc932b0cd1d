package model

import "time"

// Driver represents a responder able to operate one category of vehicle.
type Driver struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Email       string       `json:"email"`
	Phone       string       `json:"phone"`
	VehicleType ResourceType `json:"vehicle_type"` // capability, not a concrete unit
	Available   bool         `json:"available"`

	// Presence data, updated by the driver independently of availability.
	LastKnownLocation *Coordinates `json:"last_known_location,omitempty"`
	LastSharedAt      *time.Time   `json:"last_shared_at,omitempty"`

	// AssignedRequestID is set while the driver holds an assignment.
	AssignedRequestID string `json:"assigned_request_id,omitempty"`
}

// Eligible reports whether the driver can be assigned for the given type.
func (d Driver) Eligible(t ResourceType) bool {
	return d.Available && d.VehicleType == t
}
