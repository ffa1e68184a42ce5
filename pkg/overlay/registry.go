package overlay

import (
	"sort"
	"sync"
)

// Registry holds cancellable tasks by key. Registering a key that already
// has a task cancels the old one first.
type Registry struct {
	mu    sync.Mutex
	seq   uint64
	tasks map[string]task
}

type task struct {
	cancel Cancel
	gen    uint64
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]task)}
}

// Register stores cancel under key and returns its generation, which
// Release uses to tell this registration from a later one.
func (r *Registry) Register(key string, cancel Cancel) uint64 {
	r.mu.Lock()
	old, ok := r.tasks[key]
	r.seq++
	gen := r.seq
	r.tasks[key] = task{cancel: cancel, gen: gen}
	r.mu.Unlock()

	if ok && old.cancel != nil {
		old.cancel()
	}
	return gen
}

// Cancel stops and forgets the task under key
func (r *Registry) Cancel(key string) bool {
	r.mu.Lock()
	t, ok := r.tasks[key]
	delete(r.tasks, key)
	r.mu.Unlock()

	if ok && t.cancel != nil {
		t.cancel()
	}
	return ok
}

// Release drops key without cancelling, for one-shot tasks that have
// fired. It reports false and leaves the entry alone when key now holds a
// newer registration than gen.
func (r *Registry) Release(key string, gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[key]
	if !ok || t.gen != gen {
		return false
	}
	delete(r.tasks, key)
	return true
}

// CancelAll stops every task
func (r *Registry) CancelAll() {
	r.mu.Lock()
	tasks := r.tasks
	r.tasks = make(map[string]task)
	r.mu.Unlock()

	for _, t := range tasks {
		if t.cancel != nil {
			t.cancel()
		}
	}
}

// Has reports whether key holds a task
func (r *Registry) Has(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tasks[key]
	return ok
}

// Len returns the number of registered tasks
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// Keys returns the registered keys, sorted
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.tasks))
	for k := range r.tasks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
