// Package registry maps native window keys to the logical objects that own them.
package registry

import (
	"sort"
	"sync"
)

// Registry is a read-mostly map guarded by a RWMutex. Lookups happen on the
// event translation hot path and only take the read lock.
type Registry[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
}

// New creates an empty registry.
func New[K comparable, V any]() *Registry[K, V] {
	return &Registry[K, V]{entries: make(map[K]V)}
}

// Insert adds or replaces the entry for key.
func (r *Registry[K, V]) Insert(key K, value V) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key] = value
}

// Lookup returns the entry for key. A miss is not an error: the object may have
// been destroyed between the native event being generated and being delivered.
func (r *Registry[K, V]) Lookup(key K) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[key]
	return v, ok
}

// Remove deletes the entry for key and returns what was stored there.
func (r *Registry[K, V]) Remove(key K) (V, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.entries[key]
	if ok {
		delete(r.entries, key)
	}
	return v, ok
}

// Len returns the number of entries.
func (r *Registry[K, V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Values returns a snapshot of all values. less, if non-nil, orders the result.
func (r *Registry[K, V]) Values(less func(a, b V) bool) []V {
	r.mu.RLock()
	out := make([]V, 0, len(r.entries))
	for _, v := range r.entries {
		out = append(out, v)
	}
	r.mu.RUnlock()

	if less != nil {
		sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	}
	return out
}

// Range calls fn for each entry on a snapshot taken under the read lock, so fn
// may mutate the registry.
func (r *Registry[K, V]) Range(fn func(key K, value V) bool) {
	r.mu.RLock()
	keys := make([]K, 0, len(r.entries))
	values := make([]V, 0, len(r.entries))
	for k, v := range r.entries {
		keys = append(keys, k)
		values = append(values, v)
	}
	r.mu.RUnlock()

	for i := range keys {
		if !fn(keys[i], values[i]) {
			return
		}
	}
}
