package grid

import "sync"

// Registry hands out one Store per dataset, created lazily. Stores survive
// for the life of the process; Drop releases the view when a dataset is
// deleted.
type Registry struct {
	mu           sync.Mutex
	stores       map[int64]*Store
	pageCapacity int
}

// NewRegistry creates a registry whose stores use the given page capacity.
func NewRegistry(pageCapacity int) *Registry {
	return &Registry{
		stores:       make(map[int64]*Store),
		pageCapacity: pageCapacity,
	}
}

// Get returns the store for datasetID, creating it on first use.
func (r *Registry) Get(datasetID int64) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	store, ok := r.stores[datasetID]
	if !ok {
		store = NewStore(datasetID, r.pageCapacity)
		r.stores[datasetID] = store
	}
	return store
}

// Drop removes the store for datasetID.
func (r *Registry) Drop(datasetID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stores, datasetID)
}
