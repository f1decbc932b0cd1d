// Package store defines the boundary to the external persistent document
// store. The engine relies on it for durability and for change
// notifications; it never assumes more than CRUD plus full-snapshot
// subscriptions (no delta contract — consumers diff themselves if needed).
package store

import (
	"context"
	"errors"

	"github.com/openrescue/dispatch/core/model"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("store: not found")

// RequestStore is the Requests collection.
type RequestStore interface {
	Create(ctx context.Context, req model.Request) error
	Get(ctx context.Context, id string) (model.Request, error)
	Update(ctx context.Context, req model.Request) error
	List(ctx context.Context) ([]model.Request, error)
	// Subscribe delivers the full current snapshot after every mutation.
	// The channel is closed when ctx is cancelled.
	Subscribe(ctx context.Context) <-chan []model.Request
}

// DriverStore is the Drivers collection.
type DriverStore interface {
	Create(ctx context.Context, d model.Driver) error
	Get(ctx context.Context, id string) (model.Driver, error)
	Update(ctx context.Context, d model.Driver) error
	List(ctx context.Context) ([]model.Driver, error)
	Subscribe(ctx context.Context) <-chan []model.Driver
}

// Store bundles both collections.
type Store interface {
	Requests() RequestStore
	Drivers() DriverStore
}
