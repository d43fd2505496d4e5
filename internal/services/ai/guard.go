package ai

import "sync"

// InflightGuard admits at most one pending request per key.
// A second caller is rejected rather than queued.
type InflightGuard struct {
	mu      sync.Mutex
	pending map[string]struct{}
}

// NewInflightGuard creates an empty guard
func NewInflightGuard() *InflightGuard {
	return &InflightGuard{pending: make(map[string]struct{})}
}

// Acquire claims the slot for key. It returns a release func, or false if the slot is taken.
func (g *InflightGuard) Acquire(key string) (func(), bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.pending[key]; busy {
		return nil, false
	}
	g.pending[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.pending, key)
			g.mu.Unlock()
		})
	}, true
}

// Pending reports whether key currently holds the slot
func (g *InflightGuard) Pending(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.pending[key]
	return busy
}
