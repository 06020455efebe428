// Package notify fans repository change events out to registered listeners.
package notify

import (
	"log/slog"
	"sort"
	"sync"
)

// Listener receives committed changes. Every callback gets the fully remapped entities.
type Listener[M any] interface {
	OnAdded(models []M)
	OnUpdated(models []M)
	OnDeleted(models []M)
	OnUpserted(models []M)
}

// Funcs adapts plain functions to Listener. Nil fields are skipped.
type Funcs[M any] struct {
	Added    func(models []M)
	Updated  func(models []M)
	Deleted  func(models []M)
	Upserted func(models []M)
}

func (f Funcs[M]) OnAdded(models []M) {
	if f.Added != nil {
		f.Added(models)
	}
}

func (f Funcs[M]) OnUpdated(models []M) {
	if f.Updated != nil {
		f.Updated(models)
	}
}

func (f Funcs[M]) OnDeleted(models []M) {
	if f.Deleted != nil {
		f.Deleted(models)
	}
}

func (f Funcs[M]) OnUpserted(models []M) {
	if f.Upserted != nil {
		f.Upserted(models)
	}
}

// Event names a listener callback.
type Event string

const (
	EventAdded    Event = "added"
	EventUpdated  Event = "updated"
	EventDeleted  Event = "deleted"
	EventUpserted Event = "upserted"
)

// Registry holds the listeners of one entity type.
type Registry[M any] struct {
	name       string
	dispatcher Dispatcher
	logger     *slog.Logger

	mu        sync.RWMutex
	nextID    int
	listeners map[int]Listener[M]
}

// NewRegistry returns an empty registry delivering through dispatcher. A nil dispatcher
// delivers inline and a nil logger discards panic reports.
func NewRegistry[M any](name string, dispatcher Dispatcher, logger *slog.Logger) *Registry[M] {
	if dispatcher == nil {
		dispatcher = Inline{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry[M]{name: name, dispatcher: dispatcher, logger: logger, listeners: map[int]Listener[M]{}}
}

// Subscribe registers l and returns a func that removes it again.
func (r *Registry[M]) Subscribe(l Listener[M]) (unsubscribe func()) {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = l
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.listeners, id)
			r.mu.Unlock()
		})
	}
}

// Len returns the number of subscribed listeners.
func (r *Registry[M]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners)
}

// Notify delivers models to every listener in subscription order. Empty batches are dropped.
func (r *Registry[M]) Notify(event Event, models []M) {
	if len(models) == 0 {
		return
	}
	listeners := r.snapshot()
	if len(listeners) == 0 {
		return
	}
	r.dispatcher.Dispatch(func() {
		for _, l := range listeners {
			r.deliver(l, event, models)
		}
	})
}

func (r *Registry[M]) snapshot() []Listener[M] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]int, 0, len(r.listeners))
	for id := range r.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]Listener[M], len(ids))
	for i, id := range ids {
		out[i] = r.listeners[id]
	}
	return out
}

// deliver isolates listeners from each other: a panic is logged and the fan-out continues.
func (r *Registry[M]) deliver(l Listener[M], event Event, models []M) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("listener panicked",
				slog.String("entity", r.name),
				slog.String("event", string(event)),
				slog.Any("panic", rec))
		}
	}()
	switch event {
	case EventAdded:
		l.OnAdded(models)
	case EventUpdated:
		l.OnUpdated(models)
	case EventDeleted:
		l.OnDeleted(models)
	case EventUpserted:
		l.OnUpserted(models)
	}
}
