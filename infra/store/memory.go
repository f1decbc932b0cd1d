// Package store provides the in-memory reference implementation of the
// external document store: CRUD over two collections plus full-snapshot
// change notifications, mirroring the subscribe semantics the engine expects
// from the real backend.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/openrescue/dispatch/core/model"
	corestore "github.com/openrescue/dispatch/core/store"
)

type collection[T any] struct {
	mu    sync.RWMutex
	docs  map[string]T
	order []string
	subs  []chan []T
	id    func(T) string
}

func newCollection[T any](id func(T) string) *collection[T] {
	return &collection[T]{docs: make(map[string]T), id: id}
}

func (c *collection[T]) create(doc T) error {
	id := c.id(doc)
	if id == "" {
		return fmt.Errorf("store: document id is required")
	}
	c.mu.Lock()
	if _, exists := c.docs[id]; exists {
		c.mu.Unlock()
		return fmt.Errorf("store: document %q already exists", id)
	}
	c.docs[id] = doc
	c.order = append(c.order, id)
	c.mu.Unlock()
	c.notify()
	return nil
}

func (c *collection[T]) get(id string) (T, error) {
	c.mu.RLock()
	doc, ok := c.docs[id]
	c.mu.RUnlock()
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s", corestore.ErrNotFound, id)
	}
	return doc, nil
}

func (c *collection[T]) update(doc T) error {
	id := c.id(doc)
	c.mu.Lock()
	if _, ok := c.docs[id]; !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", corestore.ErrNotFound, id)
	}
	c.docs[id] = doc
	c.mu.Unlock()
	c.notify()
	return nil
}

// list returns documents in insertion order.
func (c *collection[T]) list() []T {
	c.mu.RLock()
	out := make([]T, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.docs[id])
	}
	c.mu.RUnlock()
	return out
}

// notify fans the full snapshot out to every subscriber. Delivery keeps the
// latest snapshot: a full buffer drops the stale one rather than blocking
// the mutating caller.
func (c *collection[T]) notify() {
	snap := c.list()
	c.mu.RLock()
	for _, ch := range c.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
	c.mu.RUnlock()
}

func (c *collection[T]) subscribe(ctx context.Context) <-chan []T {
	ch := make(chan []T, 1)
	c.mu.Lock()
	c.subs = append(c.subs, ch)
	c.mu.Unlock()
	// Deliver the current snapshot right away so subscribers never start
	// from nothing.
	ch <- c.list()

	go func() {
		<-ctx.Done()
		c.mu.Lock()
		for i, sub := range c.subs {
			if sub == ch {
				c.subs = append(c.subs[:i], c.subs[i+1:]...)
				break
			}
		}
		c.mu.Unlock()
		close(ch)
	}()
	return ch
}

// Memory implements core/store.Store.
type Memory struct {
	requests *collection[model.Request]
	drivers  *collection[model.Driver]
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{
		requests: newCollection(func(r model.Request) string { return r.ID }),
		drivers:  newCollection(func(d model.Driver) string { return d.ID }),
	}
}

// Requests returns the Requests collection.
func (m *Memory) Requests() corestore.RequestStore { return requestCollection{m.requests} }

// Drivers returns the Drivers collection.
func (m *Memory) Drivers() corestore.DriverStore { return driverCollection{m.drivers} }

type requestCollection struct{ c *collection[model.Request] }

func (r requestCollection) Create(_ context.Context, req model.Request) error { return r.c.create(req) }
func (r requestCollection) Get(_ context.Context, id string) (model.Request, error) {
	return r.c.get(id)
}
func (r requestCollection) Update(_ context.Context, req model.Request) error { return r.c.update(req) }
func (r requestCollection) List(_ context.Context) ([]model.Request, error)  { return r.c.list(), nil }
func (r requestCollection) Subscribe(ctx context.Context) <-chan []model.Request {
	return r.c.subscribe(ctx)
}

type driverCollection struct{ c *collection[model.Driver] }

func (d driverCollection) Create(_ context.Context, drv model.Driver) error { return d.c.create(drv) }
func (d driverCollection) Get(_ context.Context, id string) (model.Driver, error) {
	return d.c.get(id)
}
func (d driverCollection) Update(_ context.Context, drv model.Driver) error { return d.c.update(drv) }
func (d driverCollection) List(_ context.Context) ([]model.Driver, error)   { return d.c.list(), nil }
func (d driverCollection) Subscribe(ctx context.Context) <-chan []model.Driver {
	return d.c.subscribe(ctx)
}
