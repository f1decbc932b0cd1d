// Package drivers exposes the driver roster and presence endpoints.
package drivers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/openrescue/dispatch/core/dispatch"
	"github.com/openrescue/dispatch/core/model"
	"github.com/openrescue/dispatch/core/registry"
)

// Engine is the coordinator subset the driver handlers need.
type Engine interface {
	UpdatePresence(ctx context.Context, driverID string, coords model.Coordinates) error
	View() dispatch.Snapshot
}

// NewHandler returns the /api/drivers routes. reg handles registration;
// engine serves the derived views and presence updates.
func NewHandler(engine Engine, reg *registry.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/drivers", func(w http.ResponseWriter, r *http.Request) {
		views := engine.View().Drivers
		if views == nil {
			views = []dispatch.DriverView{}
		}
		writeJSON(w, http.StatusOK, views)
	})
	mux.HandleFunc("POST /api/drivers", func(w http.ResponseWriter, r *http.Request) {
		var d model.Driver
		if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := reg.Register(r.Context(), d); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusCreated, d)
	})
	mux.HandleFunc("POST /api/drivers/{id}/presence", func(w http.ResponseWriter, r *http.Request) {
		var coords model.Coordinates
		if err := json.NewDecoder(r.Body).Decode(&coords); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := engine.UpdatePresence(r.Context(), r.PathValue("id"), coords); err != nil {
			if errors.Is(err, registry.ErrUnknownDriver) {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
