// Package envelope defines the attributes carried by every gossiped
// message, independent of the application payload type.
package envelope

import (
	"time"

	"github.com/google/uuid"

	"github.com/gruberchris/gossnet/pkg/peer"
)

// Envelope carries the identity, origination time, and propagation state
// of a gossiped message. It is immutable: every mutation produces a new
// value rather than changing one in place, so a path's history (and its
// monotonically-growing notified-set) can never be observed to shrink.
//
// Construction (New) and notified-set mutation (WithNotified) are runtime
// operations; application code should treat a received Envelope as a
// read-only view — ID, Timestamp, and NotifiedSet never need to be set by
// anything but the node that originates or forwards the message.
type Envelope struct {
	id       uuid.UUID
	ts       time.Time
	notified []peer.Identity
}

// New creates an Envelope with a fresh random id and the current UTC time.
// The notified-set starts empty.
func New() Envelope {
	return Envelope{
		id: uuid.New(),
		ts: time.Now().UTC(),
	}
}

// ID returns the message's unique identifier.
func (e Envelope) ID() uuid.UUID { return e.id }

// Timestamp returns the instant of origination, in UTC.
func (e Envelope) Timestamp() time.Time { return e.ts }

// NotifiedSet returns a defensive copy of the peers known to have already
// handled this message, in insertion order.
func (e Envelope) NotifiedSet() []peer.Identity {
	out := make([]peer.Identity, len(e.notified))
	copy(out, e.notified)
	return out
}

// Contains reports whether id already appears in the notified-set.
func (e Envelope) Contains(id peer.Identity) bool {
	for _, p := range e.notified {
		if p.Equal(id) {
			return true
		}
	}
	return false
}

// WithNotified returns a new Envelope with id appended to the notified-set
// if it is not already present. If id is already present, e is returned
// unchanged (no duplicate is ever inserted, and a path's notified-set only
// ever grows — spec invariants (b) and (c)).
func (e Envelope) WithNotified(id peer.Identity) Envelope {
	if e.Contains(id) {
		return e
	}
	grown := make([]peer.Identity, len(e.notified), len(e.notified)+1)
	copy(grown, e.notified)
	grown = append(grown, id)
	return Envelope{id: e.id, ts: e.ts, notified: grown}
}

// withFields reconstructs an Envelope from raw decoded fields. Used only
// by codec implementations; application code has no use for it since it
// bypasses New's fresh-id guarantee.
func withFields(id uuid.UUID, ts time.Time, notified []peer.Identity) Envelope {
	return Envelope{id: id, ts: ts, notified: notified}
}
