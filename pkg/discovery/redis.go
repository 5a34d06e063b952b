package discovery

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"

	"github.com/gruberchris/gossnet/pkg/peer"
)

const (
	// memberTTL bounds how stale a registered member may be before it is
	// no longer returned by Enumerate — a peer that stops calling
	// Enumerate (and so stops refreshing its own entry) eventually drops
	// out of the registry on its own, the same lazy-expiry idiom the
	// message cache uses.
	memberTTL = 30 * time.Second

	redisKeyPrefix = "gossipnet:peers:"
)

// Redis discovers peers via a shared Redis/Dragonfly registry: every
// Enumerate call refreshes this node's own membership entry (a sorted
// set scored by last-seen time) and reads back the full, non-stale
// membership — grounded on the same key-prefix and TTL-via-score
// conventions the teacher's lighthouse store uses for its indices.
type Redis struct {
	client *redis.Client
	key    string
	self   peer.Identity
}

// NewRedis constructs a Redis enumerator from opts.
func NewRedis(opts Options) (*Redis, error) {
	if opts.RedisAddr == "" {
		return nil, fmt.Errorf("discovery: redis mode requires RedisAddr")
	}
	self, err := peer.New(opts.SelfHost, opts.SelfPort)
	if err != nil {
		return nil, fmt.Errorf("discovery: redis mode requires a valid self identity: %w", err)
	}

	rendezvous := opts.RendezvousID
	if rendezvous == "" {
		rendezvous = opts.SelfHost
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.RedisAddr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  200 * time.Millisecond,
		WriteTimeout: 200 * time.Millisecond,
	})

	return &Redis{
		client: client,
		key:    redisKeyPrefix + rendezvous,
		self:   self,
	}, nil
}

func (r *Redis) Enumerate(ctx context.Context) ([]peer.Identity, error) {
	if err := r.registerSelf(ctx); err != nil {
		return nil, &Error{Mode: ModeRedis, Cause: err}
	}

	members, err := r.readMembers(ctx)
	if err != nil {
		return nil, &Error{Mode: ModeRedis, Cause: err}
	}
	return members, nil
}

func (r *Redis) registerSelf(ctx context.Context) error {
	op := func() error {
		return r.client.ZAdd(ctx, r.key, redis.Z{
			Score:  float64(time.Now().Unix()),
			Member: r.self.String(),
		}).Err()
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 1)
	return backoff.Retry(op, backoff.WithContext(policy, ctx))
}

func (r *Redis) readMembers(ctx context.Context) ([]peer.Identity, error) {
	cutoff := time.Now().Add(-memberTTL).Unix()
	members, err := r.client.ZRangeByScore(ctx, r.key, &redis.ZRangeBy{
		Min: fmt.Sprintf("%d", cutoff),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, err
	}

	out := make([]peer.Identity, 0, len(members))
	for _, m := range members {
		host, portStr, err := net.SplitHostPort(m)
		if err != nil {
			continue
		}
		var port uint16
		if _, err := fmt.Sscanf(portStr, "%d", &port); err != nil {
			continue
		}
		id, err := peer.New(host, port)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

// Close releases the underlying Redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}
