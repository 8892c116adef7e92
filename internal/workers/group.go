package workers

import (
	"sync"

	"photo-wallet/internal/logging"
)

// Worker is a long-running background task.
type Worker interface {
	Name() string
	Start()
	Stop()
}

// Group owns the background workers of one application instance. Workers
// are started in registration order and stopped in reverse.
type Group struct {
	mu      sync.Mutex
	workers []Worker
	running bool
}

// Add registers w. If the group is already running, w is started at once.
func (g *Group) Add(w Worker) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.workers = append(g.workers, w)
	if g.running {
		logging.Debug("Starting worker %s", w.Name())
		w.Start()
	}
}

// Start starts every registered worker.
func (g *Group) Start() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.running {
		return
	}
	for _, w := range g.workers {
		logging.Debug("Starting worker %s", w.Name())
		w.Start()
	}
	g.running = true
}

// Stop stops every worker and forgets them. It returns the names of the
// stopped workers.
func (g *Group) Stop() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	names := make([]string, 0, len(g.workers))
	for i := len(g.workers) - 1; i >= 0; i-- {
		w := g.workers[i]
		w.Stop()
		logging.Debug("Stopped worker %s", w.Name())
		names = append(names, w.Name())
	}
	g.workers = nil
	g.running = false
	return names
}

// Names lists the registered workers.
func (g *Group) Names() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	names := make([]string, len(g.workers))
	for i, w := range g.workers {
		names[i] = w.Name()
	}
	return names
}
