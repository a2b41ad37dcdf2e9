package genstore

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Registry tracks the open stores of a session, keyed by a caller-chosen
// identity such as a world or area name.
//
// There is no global registry: create one per session and pass it to
// whatever coordinates concurrent generation areas. Stores are never evicted;
// Remove or Close releases them.
//
// Example:
//
//	reg := genstore.NewRegistry()
//	defer reg.Close()
//
//	store, err := reg.Acquire("overworld", func() (*genstore.Store, error) {
//	    return mgr.Prepare(genDir, sourcePath)
//	})
type Registry struct {
	stores  map[string]*registryEntry
	loading map[string]*sync.WaitGroup
	hits    int
	misses  int
	mu      sync.Mutex
}

// registryEntry tracks a registered store and its usage.
type registryEntry struct {
	store       *Store
	accessCount int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		stores:  make(map[string]*registryEntry),
		loading: make(map[string]*sync.WaitGroup),
	}
}

// Get returns the store registered under key.
func (r *Registry) Get(key string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.stores[key]
	if !ok {
		r.misses++
		return nil, false
	}
	r.hits++
	e.accessCount++
	return e.store, true
}

// Acquire returns the store registered under key, or calls loader and
// registers its result. Concurrent Acquire calls for one key run loader once.
func (r *Registry) Acquire(key string, loader func() (*Store, error)) (*Store, error) {
	for {
		r.mu.Lock()
		if e, ok := r.stores[key]; ok {
			r.hits++
			e.accessCount++
			r.mu.Unlock()
			return e.store, nil
		}
		wg, busy := r.loading[key]
		if !busy {
			break // lock still held
		}
		r.mu.Unlock()
		wg.Wait()
	}

	r.misses++
	wg := &sync.WaitGroup{}
	wg.Add(1)
	r.loading[key] = wg
	r.mu.Unlock()

	store, err := loader()

	r.mu.Lock()
	delete(r.loading, key)
	if err == nil {
		r.stores[key] = &registryEntry{store: store, accessCount: 1}
	}
	r.mu.Unlock()
	wg.Done()

	if err != nil {
		return nil, fmt.Errorf("load store %q: %w", key, err)
	}
	return store, nil
}

// Put registers store under key. A store already registered under key is
// closed and replaced.
func (r *Registry) Put(key string, store *Store) error {
	r.mu.Lock()
	old := r.stores[key]
	r.stores[key] = &registryEntry{store: store}
	r.mu.Unlock()

	if old != nil && old.store != store {
		return old.store.Close()
	}
	return nil
}

// Remove unregisters and closes the store under key. Removing an unknown key
// is a no-op.
func (r *Registry) Remove(key string) error {
	r.mu.Lock()
	e, ok := r.stores[key]
	delete(r.stores, key)
	r.mu.Unlock()

	if !ok {
		return nil
	}
	return e.store.Close()
}

// Keys returns the registered keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.stores))
	for k := range r.stores {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of registered stores.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// Close closes and unregisters every store.
func (r *Registry) Close() error {
	r.mu.Lock()
	stores := r.stores
	r.stores = make(map[string]*registryEntry)
	r.mu.Unlock()

	var errs []error
	for _, e := range stores {
		errs = append(errs, e.store.Close())
	}
	return errors.Join(errs...)
}

// Stats returns registry statistics.
func (r *Registry) Stats() RegistryStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := 0
	for _, e := range r.stores {
		total += e.accessCount
	}
	return RegistryStats{
		Stores:      len(r.stores),
		Hits:        r.hits,
		Misses:      r.misses,
		TotalAccess: total,
	}
}

// RegistryStats holds registry usage counters.
type RegistryStats struct {
	Stores      int // Stores currently registered
	Hits        int // Lookups that found a store
	Misses      int // Lookups that did not
	TotalAccess int // Accesses across registered stores
}
