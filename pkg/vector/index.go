package vector

import "sync"

// Index holds the parameters a backend was initialized with. One Store is
// shared by the ingestion and retrieval pipelines, so Initialize may run
// while other goroutines search or insert.
type Index struct {
	mu     sync.RWMutex
	params IndexParams
	ready  bool
}

// Set records params and marks the index ready.
func (i *Index) Set(params IndexParams) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.params = params
	i.ready = true
}

// Params returns the current parameters, or ErrNotInitialized before Set.
func (i *Index) Params() (IndexParams, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if !i.ready {
		return IndexParams{}, ErrNotInitialized
	}
	return i.params, nil
}
