package discovery

import (
	"context"
	"crypto/sha1"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/anacrolix/dht/v2"

	"github.com/gruberchris/gossnet/pkg/peer"
)

const (
	// enumerateTimeout bounds a single DHT announce/query round trip.
	// On timeout, Enumerate returns whatever peers were found so far
	// (possibly none) rather than failing, mirroring dns mode's
	// empty-set-on-failure policy.
	enumerateTimeout = 5 * time.Second
)

// bootstrapNodes are well-known BitTorrent mainline DHT bootstrap nodes,
// used only to join the public DHT swarm; gossipnet reuses the DHT
// purely as a rendezvous mechanism, not as BitTorrent traffic.
var bootstrapNodes = []string{
	"router.bittorrent.com:6881",
	"router.utorrent.com:6881",
	"dht.transmissionbt.com:6881",
}

// DHT discovers peers via the BitTorrent mainline DHT, using a
// rendezvous identifier hashed into a 20-byte infohash. Every Enumerate
// call both announces this node's own port and queries for peers
// previously announced under the same infohash.
type DHT struct {
	infohash [20]byte
	port     int

	mu     sync.Mutex
	server *dht.Server
}

// NewDHT constructs a DHT enumerator from opts. The rendezvous identifier
// is opts.RendezvousID if set, else opts.SelfHost.
func NewDHT(opts Options) (*DHT, error) {
	rendezvous := opts.RendezvousID
	if rendezvous == "" {
		rendezvous = opts.SelfHost
	}
	if rendezvous == "" {
		return nil, fmt.Errorf("discovery: dht mode requires SelfHost or RendezvousID")
	}

	return &DHT{
		infohash: sha1.Sum([]byte("gossipnet:" + rendezvous)),
		port:     int(opts.SelfPort),
	}, nil
}

func (d *DHT) ensureServer() (*dht.Server, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.server != nil {
		return d.server, nil
	}

	cfg := dht.NewDefaultServerConfig()

	var bootstrapAddrs []dht.Addr
	for _, node := range bootstrapNodes {
		addr, err := net.ResolveUDPAddr("udp", node)
		if err != nil {
			continue
		}
		bootstrapAddrs = append(bootstrapAddrs, dht.NewAddr(addr))
	}
	cfg.StartingNodes = func() ([]dht.Addr, error) {
		return bootstrapAddrs, nil
	}

	server, err := dht.NewServer(cfg)
	if err != nil {
		return nil, err
	}
	d.server = server
	return server, nil
}

func (d *DHT) Enumerate(ctx context.Context) ([]peer.Identity, error) {
	server, err := d.ensureServer()
	if err != nil {
		return nil, &Error{Mode: ModeDHT, Cause: err}
	}

	announce, err := server.Announce(d.infohash, d.port, false)
	if err != nil {
		return nil, &Error{Mode: ModeDHT, Cause: err}
	}
	defer announce.Close()

	ctx, cancel := context.WithTimeout(ctx, enumerateTimeout)
	defer cancel()

	var out []peer.Identity
	for {
		select {
		case <-ctx.Done():
			return out, nil
		case values, ok := <-announce.Peers:
			if !ok {
				return out, nil
			}
			for _, addr := range values.Peers {
				id, err := peer.New(addr.IP.String(), uint16(addr.Port))
				if err != nil {
					continue
				}
				out = append(out, id)
			}
		}
	}
}

// Close releases the underlying DHT server, if one was created.
func (d *DHT) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.server != nil {
		d.server.Close()
		d.server = nil
	}
	return nil
}
