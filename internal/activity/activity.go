// Package activity tracks what each worker is currently doing: a concurrent
// worker_id -> current leaf-event mapping. A worker may hold up to three
// independent activity slots (step, test-summary, test-status-message),
// each represented by its own Map instance.
package activity

import "sync"

// Leaf describes the innermost current activity of a worker: a build step,
// cache/compression op, test summary, or test-status message. Any of these
// renders the same way, so callers (the thread-state renderer, §4.J) don't
// need to know which kind produced it.
type Leaf struct {
	StartedMS int64
	Label     string // full description, e.g. "//foo:bar (ABI check)"
	Short     string // compact token for the compressed overflow line
}

// Map is a concurrent worker_id -> Option<Leaf> mapping. Start sets Some,
// Finish sets None for that worker.
type Map struct {
	mu sync.RWMutex
	m  map[int]Leaf
}

// New returns an empty Map. hint sizes the initial bucket allocation
// (conventionally the CPU core count) to avoid rehashing during the first
// burst of worker activity.
func New(hint int) *Map {
	if hint < 0 {
		hint = 0
	}
	return &Map{m: make(map[int]Leaf, hint)}
}

// Start records leaf as the current activity of workerID.
func (a *Map) Start(workerID int, leaf Leaf) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.m[workerID] = leaf
}

// Finish clears the current activity of workerID.
func (a *Map) Finish(workerID int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.m, workerID)
}

// Get returns the current activity of workerID, if any.
func (a *Map) Get(workerID int) (Leaf, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	l, ok := a.m[workerID]
	return l, ok
}

// Snapshot returns a point-in-time copy of the whole map. Readers may
// observe a slightly stale view; the next frame corrects it.
func (a *Map) Snapshot() map[int]Leaf {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[int]Leaf, len(a.m))
	for k, v := range a.m {
		out[k] = v
	}
	return out
}

// Len reports the number of workers with a current activity.
func (a *Map) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.m)
}
