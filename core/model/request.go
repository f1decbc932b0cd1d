package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// ResourceType identifies the category of emergency vehicle a request needs.
type ResourceType int

const (
	ResourceAmbulance ResourceType = iota
	ResourceFireEngine
	ResourcePoliceVan
	ResourceOther
)

// String returns a human-readable representation of the resource type.
func (t ResourceType) String() string {
	switch t {
	case ResourceAmbulance:
		return "ambulance"
	case ResourceFireEngine:
		return "fireengine"
	case ResourcePoliceVan:
		return "policevan"
	case ResourceOther:
		return "other"
	default:
		return "unknown"
	}
}

// ParseResourceType converts a stored string back into a ResourceType.
func ParseResourceType(s string) (ResourceType, error) {
	switch s {
	case "ambulance":
		return ResourceAmbulance, nil
	case "fireengine":
		return ResourceFireEngine, nil
	case "policevan":
		return ResourcePoliceVan, nil
	case "other":
		return ResourceOther, nil
	default:
		return ResourceOther, fmt.Errorf("unknown resource type %q", s)
	}
}

// MarshalJSON encodes the type as its string form so stored documents and
// wire payloads stay readable.
func (t ResourceType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts the string form produced by MarshalJSON.
func (t *ResourceType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseResourceType(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// RequestStatus is the externally visible state of a request.
type RequestStatus int

const (
	StatusPending RequestStatus = iota
	StatusAccepted
	StatusRejected
	StatusAssigned
)

// String returns a human-readable representation of the status.
func (s RequestStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusAccepted:
		return "accepted"
	case StatusRejected:
		return "rejected"
	case StatusAssigned:
		return "assigned"
	default:
		return "unknown"
	}
}

// ParseRequestStatus converts a stored string back into a RequestStatus.
func ParseRequestStatus(s string) (RequestStatus, error) {
	switch s {
	case "pending":
		return StatusPending, nil
	case "accepted":
		return StatusAccepted, nil
	case "rejected":
		return StatusRejected, nil
	case "assigned":
		return StatusAssigned, nil
	default:
		return StatusPending, fmt.Errorf("unknown request status %q", s)
	}
}

// MarshalJSON encodes the status as its string form.
func (s RequestStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts the string form produced by MarshalJSON.
func (s *RequestStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	v, err := ParseRequestStatus(raw)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Terminal reports whether no further lifecycle transitions are allowed.
// Assigned is terminal for the state machine even though the physical unit
// may be auto-released afterwards.
func (s RequestStatus) Terminal() bool {
	return s == StatusRejected || s == StatusAssigned
}

// Coordinates is a WGS84 position.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Request is an emergency request tracked from submission to resolution.
// Requests are never deleted; resolved ones are retained as history.
type Request struct {
	ID            string        `json:"id"`
	RequesterName string        `json:"requester_name"`
	Phone         string        `json:"phone"`
	Situation     string        `json:"situation,omitempty"` // free-text description, used for type inference
	DesiredType   *ResourceType `json:"desired_type,omitempty"`
	Coordinates   *Coordinates  `json:"coordinates,omitempty"`
	Status        RequestStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`

	// Assignment fields. AssignedVehicleID is non-empty iff Status is
	// Assigned; VehicleAssignedAt is stamped exactly once, when the
	// vehicle is first attached.
	AssignedVehicleID   string       `json:"assigned_vehicle_id,omitempty"`
	AssignedVehicleType ResourceType `json:"assigned_vehicle_type,omitempty"`
	VehicleAssignedAt   *time.Time   `json:"vehicle_assigned_at,omitempty"`
	AssignedDriverID    string       `json:"assigned_driver_id,omitempty"`
}

// Validate checks that the submission carries the mandatory contact fields.
func (r Request) Validate() error {
	if r.RequesterName == "" {
		return fmt.Errorf("requester name is required")
	}
	if r.Phone == "" {
		return fmt.Errorf("phone is required")
	}
	return nil
}
