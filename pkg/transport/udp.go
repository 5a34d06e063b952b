package transport

import (
	"context"
	"fmt"
	"net"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/gruberchris/gossnet/pkg/peer"
	"github.com/gruberchris/gossnet/pkg/ratelimit"
)

const (
	// soBroadcast is the Linux SO_BROADCAST socket option, enabling
	// the endpoint to send to broadcast addresses.
	soBroadcast = 6
	// soBroadcastBSD is the same option's value on darwin and freebsd.
	soBroadcastBSD = 0x20

	// readDeadline bounds each ReadFromUDP call so the receive loop can
	// periodically check whether the endpoint has been closed, the same
	// polling idiom the teacher's Sync.listenLoop uses.
	readDeadline = time.Second

	// MaxDatagramSize truncates oversized receives at the OS level; the
	// codec treats the resulting malformed datagram as a DecodeError.
	// Large enough for the spec's recommended sub-1200-byte datagrams
	// with generous headroom for pathological payloads.
	MaxDatagramSize = 65536
)

// UDPEndpoint is the production Endpoint, binding a UDP socket to a local
// port on all interfaces with broadcast permitted (SO_BROADCAST).
// Concurrent Send calls are serialized so datagrams are never interleaved;
// Receive has a single intended caller (the node's worker).
type UDPEndpoint struct {
	conn *net.UDPConn

	limiter *ratelimit.IPRateLimiter

	sendMu sync.Mutex

	closeOnce sync.Once
	closed    chan struct{}
}

// NewUDPEndpoint binds a UDP socket to selfPort on all local interfaces.
func NewUDPEndpoint(selfPort uint16) (*UDPEndpoint, error) {
	return newUDPEndpoint(selfPort, ratelimit.NewDefault())
}

// NewUDPEndpointWithLimiter is NewUDPEndpoint with an explicit rate
// limiter, for callers that want non-default rate/burst/capacity.
func NewUDPEndpointWithLimiter(selfPort uint16, limiter *ratelimit.IPRateLimiter) (*UDPEndpoint, error) {
	return newUDPEndpoint(selfPort, limiter)
}

func newUDPEndpoint(selfPort uint16, limiter *ratelimit.IPRateLimiter) (*UDPEndpoint, error) {
	lc := net.ListenConfig{Control: enableBroadcast}

	conn, err := lc.ListenPacket(context.Background(), "udp", fmt.Sprintf(":%d", selfPort))
	if err != nil {
		return nil, fmt.Errorf("transport: bind udp port %d: %w", selfPort, err)
	}

	udpConn, ok := conn.(*net.UDPConn)
	if !ok {
		conn.Close()
		return nil, fmt.Errorf("transport: unexpected listener type %T", conn)
	}

	return &UDPEndpoint{
		conn:    udpConn,
		limiter: limiter,
		closed:  make(chan struct{}),
	}, nil
}

// enableBroadcast sets SO_BROADCAST on the underlying socket so the
// endpoint may send to broadcast addresses. Best-effort: failure to set
// the option does not prevent the socket from binding, since unicast
// gossip still works without it.
func enableBroadcast(network, address string, c syscall.RawConn) error {
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" && runtime.GOOS != "freebsd" {
		return nil
	}
	opt := soBroadcast
	if runtime.GOOS != "linux" {
		opt = soBroadcastBSD
	}
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, opt, 1)
	})
	if err != nil {
		return nil
	}
	_ = sockErr
	return nil
}

// LocalPort returns the actual bound port (useful when 0 was requested).
func (e *UDPEndpoint) LocalPort() uint16 {
	return uint16(e.conn.LocalAddr().(*net.UDPAddr).Port)
}

func (e *UDPEndpoint) Send(data []byte, host string, port uint16) (int, error) {
	dest, err := peer.New(host, port)
	if err != nil {
		return 0, &SendError{Dest: dest, Cause: err}
	}

	addr, err := net.ResolveUDPAddr("udp", dest.String())
	if err != nil {
		return 0, &SendError{Dest: dest, Cause: err}
	}

	e.sendMu.Lock()
	defer e.sendMu.Unlock()

	n, err := e.conn.WriteToUDP(data, addr)
	if err != nil {
		return n, &SendError{Dest: dest, Cause: err}
	}
	return n, nil
}

func (e *UDPEndpoint) Receive() ([]byte, peer.Identity, error) {
	buf := make([]byte, MaxDatagramSize)

	for {
		select {
		case <-e.closed:
			return nil, peer.Identity{}, ErrClosed
		default:
		}

		e.conn.SetReadDeadline(time.Now().Add(readDeadline))
		n, addr, err := e.conn.ReadFromUDP(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			select {
			case <-e.closed:
				return nil, peer.Identity{}, ErrClosed
			default:
			}
			return nil, peer.Identity{}, &ReceiveError{Cause: err}
		}

		if e.limiter != nil && !e.limiter.Allow(addr.IP.String()) {
			continue
		}

		remote, err := peer.New(addr.IP.String(), uint16(addr.Port))
		if err != nil {
			return nil, peer.Identity{}, &ReceiveError{Cause: err}
		}

		out := make([]byte, n)
		copy(out, buf[:n])
		return out, remote, nil
	}
}

func (e *UDPEndpoint) Close() error {
	e.closeOnce.Do(func() {
		close(e.closed)
		e.conn.Close()
	})
	return nil
}
