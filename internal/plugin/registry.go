// Package plugin is the format registry type: the CLI and daemon keep one
// keyed by top-level format, and the inline script/style pipeline consults
// another to find the minifier for a given content type. Minifiers are
// pure functions with nothing to initialize or tear down, so the registry
// only ever needs a name-to-function mapping.
package plugin

import (
	"fmt"
	"sync"

	"github.com/minifyco/minify/internal/diag"
)

// Func is the shape every minifier entry point shares.
type Func func(input []byte) ([]byte, *diag.Report)

// Registry maps a format name (such as css, js, javascript, json) to the Func that
// minifies it. The zero value is not usable; construct with New.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

// Register associates format with fn, overwriting any prior entry.
func (r *Registry) Register(format string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[format] = fn
}

// Lookup returns the Func registered for format, if any.
func (r *Registry) Lookup(format string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[format]
	return fn, ok
}

// Formats returns the set of registered format names, for diagnostics.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		out = append(out, name)
	}
	return out
}

// ErrUnknownFormat is returned by callers (not the registry itself) when
// a requested format has no registered minifier.
type ErrUnknownFormat struct {
	Format string
}

func (e *ErrUnknownFormat) Error() string {
	return fmt.Sprintf("no minifier registered for format %q", e.Format)
}
