package discovery

import (
	"context"
	"net"

	"github.com/gruberchris/gossnet/pkg/peer"
)

// Resolver abstracts DNS lookups so tests can inject a stub, grounded on
// the same seam the teacher uses for its own DNS verification.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// netResolver is the production Resolver using the standard library.
type netResolver struct{}

func (netResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	var r net.Resolver
	return r.LookupHost(ctx, host)
}

// DNS resolves SelfHost to all A/AAAA records and pairs each with
// SelfPort. A lookup failure is returned as a *Error; the node's forward
// path absorbs this into an empty neighbour set for that cycle.
type DNS struct {
	host     string
	port     uint16
	resolver Resolver
}

// NewDNS constructs a DNS enumerator from opts. If opts.Resolver is nil,
// net.Resolver is used.
func NewDNS(opts Options) *DNS {
	resolver := opts.Resolver
	if resolver == nil {
		resolver = netResolver{}
	}
	return &DNS{host: opts.SelfHost, port: opts.SelfPort, resolver: resolver}
}

func (d *DNS) Enumerate(ctx context.Context) ([]peer.Identity, error) {
	addrs, err := d.resolver.LookupHost(ctx, d.host)
	if err != nil {
		return nil, &Error{Mode: ModeDNS, Cause: err}
	}

	out := make([]peer.Identity, 0, len(addrs))
	for _, addr := range addrs {
		id, err := peer.New(addr, d.port)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}
