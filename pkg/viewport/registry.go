// Package viewport tracks which result cards a client currently shows and
// notifies observers when an item enters or leaves the visible set.
package viewport

import (
	"sort"
	"sync"
)

// Callback is invoked with the new visibility of an observed item.
type Callback func(id string, visible bool)

type observer struct {
	id uint64
	fn Callback
}

// Registry holds per-item visibility and observers. The zero value is not
// usable; create one with NewRegistry. A Registry is safe for concurrent use.
type Registry struct {
	mu        sync.Mutex
	nextID    uint64
	visible   map[string]bool
	observers map[string][]observer
}

func NewRegistry() *Registry {
	return &Registry{
		visible:   make(map[string]bool),
		observers: make(map[string][]observer),
	}
}

// Observe registers fn for changes of item id. If the item is already visible
// fn is called once immediately. The returned function removes the observer;
// calling it more than once is harmless.
func (r *Registry) Observe(id string, fn Callback) (cancel func()) {
	r.mu.Lock()
	r.nextID++
	obsID := r.nextID
	r.observers[id] = append(r.observers[id], observer{id: obsID, fn: fn})
	visible := r.visible[id]
	r.mu.Unlock()

	if visible {
		fn(id, true)
	}

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(id, obsID) })
	}
}

func (r *Registry) remove(id string, obsID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.observers[id]
	for i, o := range list {
		if o.id == obsID {
			list = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(r.observers, id)
		return
	}
	r.observers[id] = list
}

// Set records the visibility of item id. Observers are called, outside the
// lock, only when the value changes.
func (r *Registry) Set(id string, visible bool) {
	r.mu.Lock()
	if r.visible[id] == visible {
		r.mu.Unlock()
		return
	}
	if visible {
		r.visible[id] = true
	} else {
		delete(r.visible, id)
	}
	callbacks := make([]Callback, 0, len(r.observers[id]))
	for _, o := range r.observers[id] {
		callbacks = append(callbacks, o.fn)
	}
	r.mu.Unlock()

	for _, fn := range callbacks {
		fn(id, visible)
	}
}

// Replace makes ids the complete visible set, hiding every other item.
func (r *Registry) Replace(ids []string) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for _, id := range r.Visible() {
		if !want[id] {
			r.Set(id, false)
		}
	}
	for _, id := range ids {
		r.Set(id, true)
	}
}

// Visible returns the visible item IDs in sorted order.
func (r *Registry) Visible() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.visible))
	for id := range r.visible {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IsVisible reports whether item id is visible.
func (r *Registry) IsVisible(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.visible[id]
}
