package model

// VehicleUnit is one physical unit of the finite per-type inventory.
// Units exist only inside the reservation pool; externally only their
// availability and current holder (via Request.AssignedVehicleID) are
// observable.
type VehicleUnit struct {
	ID        string       `json:"id"`
	Type      ResourceType `json:"type"`
	Available bool         `json:"available"`
}
