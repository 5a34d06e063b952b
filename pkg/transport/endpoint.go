// Package transport defines the abstract datagram endpoint the node
// runtime depends on, plus a concrete UDP implementation and an
// in-memory stand-in for tests.
package transport

import (
	"errors"
	"fmt"

	"github.com/gruberchris/gossnet/pkg/peer"
)

// ErrClosed is returned by Receive when the endpoint has been closed,
// including when a blocked Receive is unblocked by a concurrent Close.
var ErrClosed = errors.New("transport: endpoint closed")

// SendError wraps a failure to send a datagram to a specific destination.
type SendError struct {
	Dest  peer.Identity
	Cause error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("transport: send to %s: %v", e.Dest, e.Cause)
}

func (e *SendError) Unwrap() error { return e.Cause }

// ReceiveError wraps a failure to receive a datagram that is not a normal
// Close. Receive returns ErrClosed directly (not wrapped) for the closed
// case so callers can use errors.Is(err, ErrClosed) without unwrapping.
type ReceiveError struct {
	Cause error
}

func (e *ReceiveError) Error() string {
	return fmt.Sprintf("transport: receive: %v", e.Cause)
}

func (e *ReceiveError) Unwrap() error { return e.Cause }

// Endpoint is an unreliable, message-oriented datagram channel: one send
// produces zero or one delivery, with no ordering guarantee between
// distinct sends. Implementations must be safe for Send to be called
// concurrently with Receive; Send itself is serialized internally so two
// concurrent Send calls cannot interleave partial datagrams.
type Endpoint interface {
	// Send transmits data to host:port, returning the number of bytes
	// the endpoint accepted for send. It does not guarantee delivery.
	Send(data []byte, host string, port uint16) (int, error)

	// Receive blocks until a datagram is available or the endpoint is
	// closed, in which case it returns ErrClosed. There is a single
	// logical consumer of Receive per endpoint (the node's worker).
	Receive() ([]byte, peer.Identity, error)

	// Close is idempotent. A blocked Receive must be unblocked by Close.
	Close() error
}
