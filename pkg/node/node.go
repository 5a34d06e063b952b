// Package node wires the leaf components — transport, cache, hub, and
// discovery — into a running gossip participant: it owns the datagram
// endpoint, runs the receive/admit/publish/forward loop, and exposes the
// lifecycle and operations an embedding application drives directly.
package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gruberchris/gossnet/pkg/cache"
	"github.com/gruberchris/gossnet/pkg/discovery"
	"github.com/gruberchris/gossnet/pkg/envelope"
	"github.com/gruberchris/gossnet/pkg/hub"
	"github.com/gruberchris/gossnet/pkg/peer"
	"github.com/gruberchris/gossnet/pkg/transport"
)

// State is a node's position in its lifecycle state machine.
type State int32

const (
	// Created is the state immediately after NewNode, before Start.
	Created State = iota
	// Running is the state after Start, while the worker loop is active.
	Running
	// Stopping is the state while Stop is unwinding the worker loop.
	Stopping
	// Stopped is the state after Stop completes; Start cannot be called
	// again (a node is started at most once per lifetime).
	Stopped
	// Closed is the terminal sink state, reachable from any other state.
	// Start, Stop, Close, Originate and Discover return a LifecycleError
	// from it.
	Closed
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// maxConsecutiveReceiveFailures bounds how many non-fatal Receive errors
// the worker loop tolerates in a row before giving up and returning, on
// the theory that a persistently failing endpoint will not recover on
// its own without intervention.
const maxConsecutiveReceiveFailures = 20

// Node is a running gossip participant parameterized over the
// application payload type T. The zero value is not usable; construct
// with NewNode.
type Node[T any] struct {
	cfg      *Config
	self     peer.Identity
	codec    envelope.Codec[T]
	endpoint transport.Endpoint
	cache    *cache.Cache
	hub      *hub.Hub[T]
	enum     discovery.Enumerator

	mu         sync.Mutex
	state      State
	cancel     context.CancelFunc
	workerDone chan struct{}
}

// NewNode constructs a Node in the Created state. If endpoint is nil, a
// UDPEndpoint bound to cfg.SelfPort is created; tests typically pass a
// transport.MemoryNetwork-backed endpoint instead.
func NewNode[T any](cfg *Config, codec envelope.Codec[T], endpoint transport.Endpoint) (*Node[T], error) {
	if cfg == nil {
		return nil, fmt.Errorf("node: cfg must not be nil")
	}
	if codec == nil {
		return nil, fmt.Errorf("node: codec must not be nil")
	}

	self, err := peer.New(cfg.SelfHost, cfg.SelfPort)
	if err != nil {
		return nil, fmt.Errorf("node: invalid self identity: %w", err)
	}

	enum, err := discovery.New(cfg.DiscoveryMode, discovery.Options{
		SelfHost:     cfg.SelfHost,
		SelfPort:     cfg.SelfPort,
		StaticPeers:  cfg.StaticPeers,
		RendezvousID: cfg.RendezvousID,
		RedisAddr:    cfg.RedisAddr,
	})
	if err != nil {
		return nil, fmt.Errorf("node: discovery setup: %w", err)
	}

	if endpoint == nil {
		endpoint, err = transport.NewUDPEndpoint(cfg.SelfPort)
		if err != nil {
			return nil, fmt.Errorf("node: bind endpoint: %w", err)
		}
	}

	msgCache, err := cache.New(cfg.MessageTTL)
	if err != nil {
		return nil, fmt.Errorf("node: cache setup: %w", err)
	}

	return &Node[T]{
		cfg:      cfg,
		self:     self,
		codec:    codec,
		endpoint: endpoint,
		cache:    msgCache,
		hub:      hub.New[T](),
		enum:     enum,
		state:    Created,
	}, nil
}

// Self returns this node's own identity.
func (n *Node[T]) Self() peer.Identity { return n.self }

// State returns the node's current lifecycle state.
func (n *Node[T]) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// CacheSize returns the number of live (non-expired) entries in the
// duplicate-suppression cache. Intended for observability and tests.
func (n *Node[T]) CacheSize() int {
	return n.cache.Size()
}

// Start transitions Created -> Running and launches the receive loop.
// Calling Start from any other state is an error: a node starts at most
// once per lifetime.
func (n *Node[T]) Start() error {
	n.mu.Lock()
	if n.state != Created {
		n.mu.Unlock()
		return &LifecycleError{Op: "start", State: n.state}
	}
	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel
	n.workerDone = make(chan struct{})
	n.state = Running
	done := n.workerDone
	n.mu.Unlock()

	go n.runLoop(ctx, done)
	return nil
}

// Stop cancels the receive loop, waits (bounded by cfg.GracePeriod) for
// the worker to acknowledge, forcibly closes the endpoint on timeout to
// unblock a still-blocked Receive, then completes every subscriber's
// sequence. Calling Stop when already Stopped is a no-op; calling it
// from Created or Closed is an error.
func (n *Node[T]) Stop() error {
	n.mu.Lock()
	switch n.state {
	case Stopped:
		n.mu.Unlock()
		return nil
	case Running:
		n.state = Stopping
	case Stopping:
		// A concurrent Stop is already unwinding; fall through and wait
		// alongside it.
	default:
		n.mu.Unlock()
		return &LifecycleError{Op: "stop", State: n.state}
	}
	cancel := n.cancel
	done := n.workerDone
	n.mu.Unlock()

	cancel()

	select {
	case <-done:
	case <-time.After(n.cfg.GracePeriod):
		slog.Warn("node: stop grace period elapsed, forcing endpoint closed")
		_ = n.endpoint.Close()
		<-done
	}

	n.hub.Close()

	n.mu.Lock()
	n.state = Stopped
	n.mu.Unlock()
	return nil
}

// Close releases the endpoint and cache. If the node is Running or
// Stopping, Close first calls Stop. Close is not idempotent: a node is
// closed exactly once, and Start, Stop, Originate, Discover and a second
// Close after Close return a LifecycleError. Subscribe and Unsubscribe
// have no error result and do not report the Closed state.
func (n *Node[T]) Close() error {
	n.mu.Lock()
	switch n.state {
	case Closed:
		n.mu.Unlock()
		return &LifecycleError{Op: "close", State: Closed}
	case Running, Stopping:
		n.mu.Unlock()
		if err := n.Stop(); err != nil {
			return err
		}
		n.mu.Lock()
	}
	n.state = Closed
	n.mu.Unlock()

	_ = n.cache.Close()
	return n.endpoint.Close()
}

func (n *Node[T]) checkNotClosed() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state == Closed {
		return &LifecycleError{Op: "operate", State: Closed}
	}
	return nil
}

// Originate creates a fresh message from payload, admits it to the local
// dedup cache, marks self as notified, and forwards it to every
// discovered peer. It does not publish to local subscribers — origination
// is not reception. It returns the number of peers the message was
// handed to the endpoint for, which may be zero if discovery returned no
// candidates or every send failed.
func (n *Node[T]) Originate(ctx context.Context, payload T) (int, error) {
	if err := n.checkNotClosed(); err != nil {
		return 0, err
	}

	env := envelope.New()
	n.cache.TryAdmit(env)
	env = env.WithNotified(n.self)

	sent := n.forward(ctx, env, payload)
	metricMessagesOriginated.Add(ctx, 1)
	return sent, nil
}

// Discover runs an explicit discovery snapshot and returns it directly to
// the caller, including any *discovery.Error.
func (n *Node[T]) Discover(ctx context.Context) ([]peer.Identity, error) {
	if err := n.checkNotClosed(); err != nil {
		return nil, err
	}
	return n.enum.Enumerate(ctx)
}

// Subscribe registers a new subscriber, receiving every message admitted
// from this point forward.
func (n *Node[T]) Subscribe() *hub.Subscription[T] {
	return n.hub.Subscribe()
}

// Unsubscribe removes s. Items already queued for s remain deliverable.
func (n *Node[T]) Unsubscribe(s *hub.Subscription[T]) {
	n.hub.Unsubscribe(s)
}

// forward enumerates candidate peers and sends the encoded message to
// every one not already in env's notified-set, self excluded. Discovery
// failures and individual send failures are logged and otherwise
// tolerated — forwarding is best-effort by design, never a cause for the
// worker loop to stop.
func (n *Node[T]) forward(ctx context.Context, env envelope.Envelope, payload T) int {
	peers, err := n.enum.Enumerate(ctx)
	if err != nil {
		slog.Warn("node: discovery enumerate failed, forwarding to empty set this round", "error", err)
		peers = nil
	}

	data, err := n.codec.Encode(env, payload)
	if err != nil {
		slog.Error("node: encode failed, message not forwarded", "error", err)
		return 0
	}

	sent := 0
	for _, p := range peers {
		if p.Equal(n.self) || env.Contains(p) {
			continue
		}
		if _, err := n.endpoint.Send(data, p.Host(), p.Port()); err != nil {
			slog.Warn("node: send failed", "peer", p.String(), "error", err)
			metricSendErrors.Add(ctx, 1)
			continue
		}
		sent++
	}
	return sent
}

// runLoop is the worker goroutine started by Start. It receives, decodes,
// admits, publishes, and forwards, until ctx is cancelled or the endpoint
// reports ErrClosed.
func (n *Node[T]) runLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	consecutiveFailures := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		data, _, err := n.endpoint.Receive()
		if err != nil {
			if errors.Is(err, transport.ErrClosed) {
				return
			}
			consecutiveFailures++
			slog.Warn("node: receive error", "error", err, "consecutiveFailures", consecutiveFailures)
			metricReceiveErrors.Add(ctx, 1)
			if consecutiveFailures >= maxConsecutiveReceiveFailures {
				slog.Error("node: too many consecutive receive failures, stopping worker")
				return
			}
			continue
		}
		consecutiveFailures = 0

		env, payload, err := n.codec.Decode(data)
		if err != nil {
			slog.Debug("node: decode error, dropping datagram", "error", err)
			metricDecodeErrors.Add(ctx, 1)
			continue
		}

		if !n.cache.TryAdmit(env) {
			metricMessagesDuplicate.Add(ctx, 1)
			continue
		}

		env = env.WithNotified(n.self)
		n.hub.Publish(hub.Item[T]{Envelope: env, Payload: payload})
		metricMessagesAdmitted.Add(ctx, 1)

		sent := n.forward(ctx, env, payload)
		metricForwardedPeers.Record(ctx, int64(sent))
	}
}
