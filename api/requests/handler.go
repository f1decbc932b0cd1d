// Package requests exposes the admin surface for request intake and
// lifecycle actions.
package requests

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/openrescue/dispatch/core/dispatch"
	"github.com/openrescue/dispatch/core/lifecycle"
	"github.com/openrescue/dispatch/core/model"
	"github.com/openrescue/dispatch/core/registry"
	"github.com/openrescue/dispatch/core/store"
)

// Engine is the coordinator subset the request handlers need.
type Engine interface {
	HandleSubmission(ctx context.Context, sub lifecycle.Submission) (model.Request, error)
	Accept(ctx context.Context, requestID string) (model.Request, error)
	Reject(ctx context.Context, requestID string) (model.Request, error)
	AssignDriver(ctx context.Context, requestID, driverID string) (model.Request, error)
	RankedDrivers(ctx context.Context, requestID string) ([]model.Driver, error)
	View() dispatch.Snapshot
}

// NewHandler returns the /api/requests routes.
func NewHandler(engine Engine) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/requests", func(w http.ResponseWriter, r *http.Request) {
		views := engine.View().Requests
		if status := r.URL.Query().Get("status"); status != "" {
			filtered := make([]dispatch.RequestView, 0, len(views))
			for _, v := range views {
				if v.Status.String() == status {
					filtered = append(filtered, v)
				}
			}
			views = filtered
		}
		if views == nil {
			views = []dispatch.RequestView{}
		}
		writeJSON(w, http.StatusOK, views)
	})
	mux.HandleFunc("POST /api/requests", func(w http.ResponseWriter, r *http.Request) {
		var sub lifecycle.Submission
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		req, err := engine.HandleSubmission(r.Context(), sub)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusCreated, req)
	})
	mux.HandleFunc("POST /api/requests/{id}/accept", func(w http.ResponseWriter, r *http.Request) {
		req, err := engine.Accept(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, req)
	})
	mux.HandleFunc("POST /api/requests/{id}/reject", func(w http.ResponseWriter, r *http.Request) {
		req, err := engine.Reject(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, req)
	})
	mux.HandleFunc("POST /api/requests/{id}/assign-driver", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			DriverID string `json:"driver_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.DriverID == "" {
			http.Error(w, "driver_id is required", http.StatusBadRequest)
			return
		}
		req, err := engine.AssignDriver(r.Context(), r.PathValue("id"), body.DriverID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, req)
	})
	mux.HandleFunc("GET /api/requests/{id}/ranked-drivers", func(w http.ResponseWriter, r *http.Request) {
		drivers, err := engine.RankedDrivers(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		if drivers == nil {
			drivers = []model.Driver{}
		}
		writeJSON(w, http.StatusOK, drivers)
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

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, registry.ErrUnknownDriver):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.Is(err, lifecycle.ErrNoVehicleAvailable),
		errors.Is(err, lifecycle.ErrDriverNotEligible),
		errors.Is(err, registry.ErrAlreadyAssigned),
		errors.Is(err, registry.ErrNotEligible):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
