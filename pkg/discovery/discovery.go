// Package discovery resolves the current set of candidate peers for a
// gossip node. It is stateless and pure: every call re-evaluates the
// peer set from scratch, with no persistent membership table.
package discovery

import (
	"context"
	"fmt"

	"github.com/gruberchris/gossnet/pkg/peer"
)

// Error wraps a discovery failure. The node's forward path treats a
// failed enumerate as "empty neighbour set this cycle" and logs; Error is
// only returned to a caller that explicitly requests a discovery
// snapshot (Node.Discover).
type Error struct {
	Mode  Mode
	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("discovery: %s: %v", e.Mode, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// Mode selects a discovery backend.
type Mode string

const (
	ModeStatic Mode = "static"
	ModeDNS    Mode = "dns"
	ModeDHT    Mode = "dht"
	ModeRedis  Mode = "redis"
)

// Enumerator resolves the current candidate peer set given configuration.
type Enumerator interface {
	// Enumerate returns the current set of candidate peers. A returned
	// error is always a *Error.
	Enumerate(ctx context.Context) ([]peer.Identity, error)
}

// Options configures every backend; a given Mode only consults the
// fields relevant to it.
type Options struct {
	// SelfHost is both this node's bind name and, absent RendezvousID,
	// the cluster rendezvous name for dns/dht/redis modes — conflating
	// the two is the legacy default documented in DESIGN.md.
	SelfHost string
	SelfPort uint16

	// StaticPeers is consulted by ModeStatic only.
	StaticPeers []peer.Identity

	// Resolver is consulted by ModeDNS only; nil selects net.LookupHost.
	Resolver Resolver

	// RendezvousID seeds the dht/redis backends' namespace. Defaults to
	// SelfHost when empty.
	RendezvousID string

	// RedisAddr is consulted by ModeRedis only.
	RedisAddr string
}

// New constructs the Enumerator for mode from opts.
func New(mode Mode, opts Options) (Enumerator, error) {
	switch mode {
	case ModeStatic:
		return NewStatic(opts.StaticPeers), nil
	case ModeDNS:
		return NewDNS(opts), nil
	case ModeDHT:
		return NewDHT(opts)
	case ModeRedis:
		return NewRedis(opts)
	default:
		return nil, fmt.Errorf("discovery: unknown mode %q", mode)
	}
}

// Static returns the configured peer set verbatim. It is infallible.
type Static struct {
	peers []peer.Identity
}

// NewStatic constructs a Static enumerator over peers.
func NewStatic(peers []peer.Identity) *Static {
	cp := make([]peer.Identity, len(peers))
	copy(cp, peers)
	return &Static{peers: cp}
}

func (s *Static) Enumerate(ctx context.Context) ([]peer.Identity, error) {
	out := make([]peer.Identity, len(s.peers))
	copy(out, s.peers)
	return out, nil
}
