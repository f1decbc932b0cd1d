// Package classify resolves the vehicle category for a request, either from
// an explicit desired type or by keyword inference over free-text situation
// fields. The policy is deliberately isolated here so it can be tested and
// changed without touching the lifecycle.
package classify

import (
	"strings"

	"github.com/openrescue/dispatch/core/model"
)

// Resolve determines the resource type for a request. An explicit desired
// type always wins. Otherwise the situation text is matched on keywords:
// "fire" selects a fire engine, "police" or "crime" a police van, and
// anything else falls back to an ambulance.
func Resolve(req model.Request) model.ResourceType {
	if req.DesiredType != nil && *req.DesiredType != model.ResourceOther {
		return *req.DesiredType
	}
	return FromText(req.Situation)
}

// FromText infers a resource type from free text. The fallback default is
// ambulance.
func FromText(text string) model.ResourceType {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "fire"):
		return model.ResourceFireEngine
	case strings.Contains(t, "police"), strings.Contains(t, "crime"):
		return model.ResourcePoliceVan
	default:
		return model.ResourceAmbulance
	}
}
