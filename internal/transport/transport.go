// Package transport defines the capability surface of the wire-protocol
// provider backing one messaging session. The gateway treats the provider
// as a black box: it constructs one transport per session, consumes its
// lifecycle event stream and hands it outbound actions. Pairing
// cryptography, frame encoding and credential blob formats all live behind
// this interface.
package transport

import (
	"context"

	"github.com/lewisedginton/wa_gateway/internal/storage_manager"
)

// Transport is one live connection attempt to the messaging network.
// A transport is single-use: after it reports a close it is dead, and a
// reconnect means constructing a brand-new transport from the same
// credential store.
type Transport interface {
	// Events returns the lifecycle event stream. The channel is closed
	// when the transport is finished, after a DisconnectedEvent.
	Events() <-chan Event

	// Send executes an outbound action against the network.
	Send(ctx context.Context, action Action) error

	// CheckRecipient reports whether a recipient address is registered
	// on the network.
	CheckRecipient(ctx context.Context, recipient string) (bool, error)

	// Close terminates the connection. The event stream still delivers
	// its final DisconnectedEvent before closing.
	Close(ctx context.Context) error
}

// Factory constructs transports. The creds provider is scoped to the
// session's credential directory; its contents are owned by the transport
// implementation and opaque to the gateway.
type Factory interface {
	Dial(ctx context.Context, creds storage_manager.FileProvider) (Transport, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(ctx context.Context, creds storage_manager.FileProvider) (Transport, error)

// Dial implements Factory.
func (f FactoryFunc) Dial(ctx context.Context, creds storage_manager.FileProvider) (Transport, error) {
	return f(ctx, creds)
}
