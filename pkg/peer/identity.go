// Package peer defines the identity of a gossip participant.
package peer

import (
	"fmt"
	"net"

	"github.com/cespare/xxhash/v2"
)

// Identity is the address of a single gossip participant: a host
// (hostname or numeric address literal) and a port. Zero value is not a
// valid Identity — use New.
//
// Equality and ordering are lexicographic on Host then numeric on Port.
// Host is compared byte-for-byte as supplied; gossipnet does not
// canonicalize hostnames or resolve them before comparing, so operators
// must configure peers consistently (see DESIGN.md open question).
type Identity struct {
	host string
	port uint16
}

// New constructs an Identity. Port 0 is reserved as invalid.
func New(host string, port uint16) (Identity, error) {
	if host == "" {
		return Identity{}, fmt.Errorf("peer: host must not be empty")
	}
	if port == 0 {
		return Identity{}, fmt.Errorf("peer: port 0 is reserved as invalid")
	}
	return Identity{host: host, port: port}, nil
}

// MustNew is New but panics on error. Intended for tests and static
// configuration literals where the inputs are known-valid.
func MustNew(host string, port uint16) Identity {
	id, err := New(host, port)
	if err != nil {
		panic(err)
	}
	return id
}

// Host returns the configured host.
func (i Identity) Host() string { return i.host }

// Port returns the configured port.
func (i Identity) Port() uint16 { return i.port }

// IsZero reports whether i is the zero value (never produced by New).
func (i Identity) IsZero() bool { return i.host == "" && i.port == 0 }

// String renders the identity as "host:port".
func (i Identity) String() string {
	return net.JoinHostPort(i.host, fmt.Sprintf("%d", i.port))
}

// Equal reports whether i and other refer to the same peer.
func (i Identity) Equal(other Identity) bool {
	return i.host == other.host && i.port == other.port
}

// Less defines a total order: lexicographic on Host, then numeric on Port.
// Notified-sets do not use it; they keep insertion order.
func (i Identity) Less(other Identity) bool {
	if i.host != other.host {
		return i.host < other.host
	}
	return i.port < other.port
}

// Hash returns a hash consistent with Equal, suitable for use as a map
// key surrogate or in content-addressed indexes. Backed by xxhash over
// the canonical "host:port" rendering.
func (i Identity) Hash() uint64 {
	return xxhash.Sum64String(i.String())
}
