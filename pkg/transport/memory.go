package transport

import (
	"sync"

	"github.com/gruberchris/gossnet/pkg/peer"
)

// MemoryNetwork is an in-process stand-in for the IP network, used so
// tests can wire several nodes together without binding real sockets.
// Endpoints obtained from the same MemoryNetwork can reach each other by
// PeerIdentity; a Send to an address with no registered endpoint is
// silently dropped, emulating an unreachable or offline peer — delivery
// over a datagram endpoint was never guaranteed in the first place.
type MemoryNetwork struct {
	mu    sync.Mutex
	nodes map[peer.Identity]*MemoryEndpoint

	// QueueSize bounds each endpoint's inbound queue. A full queue drops
	// the datagram rather than blocking the sender, matching UDP's
	// non-blocking best-effort send semantics.
	QueueSize int
}

// NewMemoryNetwork creates an empty network with a default queue size.
func NewMemoryNetwork() *MemoryNetwork {
	return &MemoryNetwork{
		nodes:     make(map[peer.Identity]*MemoryEndpoint),
		QueueSize: 64,
	}
}

// NewEndpoint registers and returns an Endpoint bound to self within this
// network. Registering the same identity twice replaces the prior
// endpoint's registration (the old one keeps working but can no longer be
// reached under that identity).
func (n *MemoryNetwork) NewEndpoint(self peer.Identity) *MemoryEndpoint {
	n.mu.Lock()
	defer n.mu.Unlock()

	size := n.QueueSize
	if size <= 0 {
		size = 64
	}

	ep := &MemoryEndpoint{
		network: n,
		self:    self,
		queue:   make(chan memoryDatagram, size),
		closed:  make(chan struct{}),
	}
	n.nodes[self] = ep
	return ep
}

func (n *MemoryNetwork) lookup(host string, port uint16) (*MemoryEndpoint, bool) {
	dest, err := peer.New(host, port)
	if err != nil {
		return nil, false
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	ep, ok := n.nodes[dest]
	return ep, ok
}

func (n *MemoryNetwork) unregister(self peer.Identity, ep *MemoryEndpoint) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.nodes[self] == ep {
		delete(n.nodes, self)
	}
}

type memoryDatagram struct {
	data []byte
	from peer.Identity
}

// MemoryEndpoint is an Endpoint backed by an in-process channel queue.
type MemoryEndpoint struct {
	network *MemoryNetwork
	self    peer.Identity
	queue   chan memoryDatagram

	closeOnce sync.Once
	closed    chan struct{}
}

func (e *MemoryEndpoint) Send(data []byte, host string, port uint16) (int, error) {
	dest, err := peer.New(host, port)
	if err != nil {
		return 0, &SendError{Dest: dest, Cause: err}
	}

	cp := make([]byte, len(data))
	copy(cp, data)

	target, ok := e.network.lookup(host, port)
	if !ok {
		// No listener at this address: the datagram is accepted for
		// send but never delivered, same as real UDP to a dead peer.
		return len(data), nil
	}

	select {
	case target.queue <- memoryDatagram{data: cp, from: e.self}:
	default:
		// Destination queue full: drop, as an unreliable channel would
		// under loss or a slow receiver.
	}
	return len(data), nil
}

func (e *MemoryEndpoint) Receive() ([]byte, peer.Identity, error) {
	select {
	case dg := <-e.queue:
		return dg.data, dg.from, nil
	case <-e.closed:
		return nil, peer.Identity{}, ErrClosed
	}
}

func (e *MemoryEndpoint) Close() error {
	e.closeOnce.Do(func() {
		close(e.closed)
		e.network.unregister(e.self, e)
	})
	return nil
}
