package node

import (
	"fmt"
	"time"

	"github.com/gruberchris/gossnet/pkg/discovery"
	"github.com/gruberchris/gossnet/pkg/peer"
)

const (
	// DefaultPort is used when Options.SelfPort is left at zero.
	DefaultPort = 9055
	// DefaultMessageTTL is used when Options.MessageTTLSeconds is left at zero.
	DefaultMessageTTL = 600 * time.Second
	// DefaultGracePeriod bounds how long Stop waits for the worker to
	// acknowledge cancellation before forcibly closing the endpoint.
	DefaultGracePeriod = 5 * time.Second
)

// ConfigError reports invalid configuration at construction.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("node: config: %s: %s", e.Field, e.Msg)
}

// Options is the programmatic configuration surface a caller supplies to
// NewConfig. Field names and defaults match spec.md section 6 exactly,
// plus the two additive discovery fields from SPEC_FULL.md section 3.
type Options struct {
	SelfHost string
	SelfPort uint16 // default 9055

	DiscoveryMode     discovery.Mode // default static
	StaticPeers       []peer.Identity
	MessageTTLSeconds int // default 600, must be > 0

	// RendezvousID seeds the dht/redis discovery backends' namespace.
	// Defaults to SelfHost when empty (legacy single-field behavior).
	RendezvousID string
	// RedisAddr is required when DiscoveryMode is discovery.ModeRedis.
	RedisAddr string

	// GracePeriod bounds Stop's wait for the worker before forcibly
	// closing the endpoint. Defaults to DefaultGracePeriod.
	GracePeriod time.Duration
}

// Config is validated, defaulted configuration held immutable for a
// node's life.
type Config struct {
	SelfHost string
	SelfPort uint16

	DiscoveryMode discovery.Mode
	StaticPeers   []peer.Identity

	MessageTTL time.Duration

	RendezvousID string
	RedisAddr    string

	GracePeriod time.Duration
}

// NewConfig validates opts and applies defaults, mirroring the teacher's
// own NewConfig shape: take an options struct, default missing fields,
// validate, return (*Config, error).
func NewConfig(opts Options) (*Config, error) {
	if opts.SelfHost == "" {
		return nil, &ConfigError{Field: "selfHost", Msg: "required"}
	}

	port := opts.SelfPort
	if port == 0 {
		port = DefaultPort
	}

	mode := opts.DiscoveryMode
	if mode == "" {
		mode = discovery.ModeStatic
	}
	switch mode {
	case discovery.ModeStatic, discovery.ModeDNS, discovery.ModeDHT, discovery.ModeRedis:
	default:
		return nil, &ConfigError{Field: "discoveryMode", Msg: fmt.Sprintf("unknown mode %q", mode)}
	}
	if mode == discovery.ModeRedis && opts.RedisAddr == "" {
		return nil, &ConfigError{Field: "redisAddr", Msg: "required when discoveryMode is redis"}
	}

	ttlSeconds := opts.MessageTTLSeconds
	if ttlSeconds == 0 {
		ttlSeconds = int(DefaultMessageTTL / time.Second)
	}
	if ttlSeconds <= 0 {
		return nil, &ConfigError{Field: "messageTtlSeconds", Msg: "must be > 0"}
	}

	grace := opts.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}

	staticPeers := make([]peer.Identity, len(opts.StaticPeers))
	copy(staticPeers, opts.StaticPeers)

	return &Config{
		SelfHost:      opts.SelfHost,
		SelfPort:      port,
		DiscoveryMode: mode,
		StaticPeers:   staticPeers,
		MessageTTL:    time.Duration(ttlSeconds) * time.Second,
		RendezvousID:  opts.RendezvousID,
		RedisAddr:     opts.RedisAddr,
		GracePeriod:   grace,
	}, nil
}
