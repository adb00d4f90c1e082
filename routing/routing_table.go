package routing

import (
	"sync"

	"github.com/Returtless/http-server/model"
)

// Table maps an exact (method, path) pair to a handler. It is safe for
// concurrent registration and lookup.
type Table struct {
	handlers map[string]map[string]model.Handler
	rtMutex  sync.RWMutex
}

func New() *Table {

	return &Table{
		handlers: make(map[string]map[string]model.Handler),
	}
}

// Register inserts or replaces the handler for method and path.
func (rt *Table) Register(method, path string, handler model.Handler) {

	rt.rtMutex.Lock()
	defer rt.rtMutex.Unlock()

	paths, ok := rt.handlers[method]
	if !ok {
		paths = make(map[string]model.Handler)
		rt.handlers[method] = paths
	}
	paths[path] = handler
}

// Resolve returns the handler registered for method and path. Matching is
// exact: no trailing-slash normalization, no wildcards.
func (rt *Table) Resolve(method, path string) (model.Handler, bool) {

	rt.rtMutex.RLock()
	defer rt.rtMutex.RUnlock()

	paths, ok := rt.handlers[method]
	if !ok {
		return nil, false
	}
	handler, ok := paths[path]

	return handler, ok
}

// Len returns the number of registered routes.
func (rt *Table) Len() int {

	rt.rtMutex.RLock()
	defer rt.rtMutex.RUnlock()

	n := 0
	for _, paths := range rt.handlers {
		n += len(paths)
	}

	return n
}
