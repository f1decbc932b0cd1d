package lifecycle

import "errors"

var (
	// ErrNoVehicleAvailable is surfaced by Accept when the matching pool
	// is exhausted. The request stays Pending; callers may retry.
	ErrNoVehicleAvailable = errors.New("lifecycle: no vehicle available")
	// ErrDriverNotEligible means the driver's capability does not match
	// the request's assigned vehicle type.
	ErrDriverNotEligible = errors.New("lifecycle: driver capability does not match")
	// ErrInvalidTransition is returned for operations not allowed from
	// the request's current status.
	ErrInvalidTransition = errors.New("lifecycle: invalid status transition")
)
