// gossipd is a minimal example daemon built on top of the node runtime:
// it joins a gossip network over UDP, prints every distinct message it
// sees, and originates a message for every line read from stdin.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gruberchris/gossnet/pkg/discovery"
	"github.com/gruberchris/gossnet/pkg/envelope"
	"github.com/gruberchris/gossnet/pkg/node"
	"github.com/gruberchris/gossnet/pkg/peer"
	"github.com/gruberchris/gossnet/pkg/telemetry"
)

func main() {
	var (
		host          = flag.String("host", "", "This node's bind/advertise host (required)")
		port          = flag.Uint("port", node.DefaultPort, "This node's UDP port")
		peersFlag     = flag.String("peers", "", "Comma-separated host:port static peer list (discovery-mode=static)")
		discoveryMode = flag.String("discovery-mode", "static", "Discovery backend: static, dns, dht, redis")
		rendezvous    = flag.String("rendezvous", "", "Rendezvous id for dht/redis discovery (defaults to -host)")
		redisAddr     = flag.String("redis-addr", "", "Redis address for discovery-mode=redis")
		ttlSeconds    = flag.Int("ttl-seconds", int(node.DefaultMessageTTL.Seconds()), "Duplicate-suppression TTL in seconds")
		logLevel      = flag.String("log-level", "info", "Log level: debug, info, warn, error")
		otel          = flag.Bool("otel", false, "Export telemetry via OTLP/HTTP instead of local logging only")
	)
	flag.Parse()

	telemetry.ConfigureLogging(*logLevel)

	if *otel {
		shutdown, err := telemetry.Setup(context.Background(), "gossipd")
		if err != nil {
			slog.Warn("telemetry setup failed, continuing without OTel export", "error", err)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					slog.Warn("telemetry shutdown", "error", err)
				}
			}()
		}
	}

	if *host == "" {
		fmt.Fprintln(os.Stderr, "Error: -host is required")
		flag.Usage()
		os.Exit(1)
	}

	staticPeers, err := parsePeers(*peersFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	mode := discovery.Mode(*discoveryMode)
	cfg, err := node.NewConfig(node.Options{
		SelfHost:          *host,
		SelfPort:          uint16(*port),
		DiscoveryMode:     mode,
		StaticPeers:       staticPeers,
		MessageTTLSeconds: *ttlSeconds,
		RendezvousID:      *rendezvous,
		RedisAddr:         *redisAddr,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	n, err := node.NewNode[string](cfg, envelope.NewJSONCodec[string](), nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to construct node: %v\n", err)
		os.Exit(1)
	}

	sub := n.Subscribe()
	go func() {
		for item := range sub.C() {
			fmt.Printf("[%s] %s: %s\n", item.Envelope.Timestamp().Format(time.RFC3339), item.Envelope.ID(), item.Payload)
		}
	}()

	if err := n.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to start node: %v\n", err)
		os.Exit(1)
	}
	slog.Info("gossipd started", "self", n.Self().String(), "discoveryMode", mode)

	go readAndOriginate(n)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	<-sigCh

	slog.Info("gossipd shutting down")
	n.Unsubscribe(sub)
	if err := n.Close(); err != nil {
		slog.Warn("close", "error", err)
	}
}

func readAndOriginate(n *node.Node[string]) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		sent, err := n.Originate(context.Background(), line)
		if err != nil {
			slog.Warn("originate failed", "error", err)
			continue
		}
		slog.Debug("originated message", "sentTo", sent)
	}
}

func parsePeers(csv string) ([]peer.Identity, error) {
	csv = strings.TrimSpace(csv)
	if csv == "" {
		return nil, nil
	}
	parts := strings.Split(csv, ",")
	out := make([]peer.Identity, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		idx := strings.LastIndex(p, ":")
		if idx < 0 {
			return nil, fmt.Errorf("invalid peer %q: expected host:port", p)
		}
		host, portStr := p[:idx], p[idx+1:]
		portNum, err := strconv.ParseUint(portStr, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid peer %q: %w", p, err)
		}
		id, err := peer.New(host, uint16(portNum))
		if err != nil {
			return nil, fmt.Errorf("invalid peer %q: %w", p, err)
		}
		out = append(out, id)
	}
	return out, nil
}
