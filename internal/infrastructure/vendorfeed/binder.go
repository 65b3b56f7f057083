package vendorfeed

import (
	"fmt"

	"github.com/catsync/backend/internal/domain/vendor"
)

// ProtocolBinder registers vendor codes against the shared handler for their
// protocol. The three protocol handlers are stateless per vendor, so one
// instance of each serves every vendor using that protocol.
type ProtocolBinder struct {
	registry vendor.HandlerRegistry
	handlers map[vendor.FeedProtocol]vendor.Handler
}

// NewProtocolBinder creates a binder over the given registry and handlers
func NewProtocolBinder(registry vendor.HandlerRegistry, handlers ...vendor.Handler) *ProtocolBinder {
	byProtocol := make(map[vendor.FeedProtocol]vendor.Handler, len(handlers))
	for _, h := range handlers {
		byProtocol[h.Protocol()] = h
	}
	return &ProtocolBinder{registry: registry, handlers: byProtocol}
}

// Bind registers the vendor code against its protocol's handler
func (b *ProtocolBinder) Bind(vendorCode string, protocol vendor.FeedProtocol) error {
	h, ok := b.handlers[protocol]
	if !ok {
		return fmt.Errorf("no handler available for protocol %q", protocol)
	}
	b.registry.Register(vendorCode, h)
	return nil
}
