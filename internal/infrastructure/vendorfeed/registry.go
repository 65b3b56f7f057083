// Package vendorfeed contains the protocol adapters that retrieve vendor
// feeds (FTP, REST, SOAP) and the registry that binds vendor codes to them.
// Adapters implement the vendor.Handler port; registration happens once while
// the process wires itself up, after which the registry is read-only.
package vendorfeed

import (
	"fmt"
	"sync"

	"github.com/catsync/backend/internal/domain/vendor"
)

// Registry is the in-memory vendor.HandlerRegistry implementation.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]vendor.Handler
}

// NewRegistry creates an empty handler registry
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]vendor.Handler),
	}
}

// Register binds a handler to a vendor code. Re-registering a code replaces
// the previous handler.
func (r *Registry) Register(vendorCode string, h vendor.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[vendorCode] = h
}

// Get returns the handler for a vendor code
func (r *Registry) Get(vendorCode string) (vendor.Handler, error) {
	r.mu.RLock()
	h, ok := r.handlers[vendorCode]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", vendor.ErrUnknownVendor, vendorCode)
	}
	return h, nil
}

// Codes returns the registered vendor codes, for startup logging
func (r *Registry) Codes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]string, 0, len(r.handlers))
	for code := range r.handlers {
		codes = append(codes, code)
	}
	return codes
}
