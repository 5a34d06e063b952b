package discovery

import (
	"context"
	"errors"
	"testing"
)

type stubResolver struct {
	addrs []string
	err   error
}

func (s stubResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.addrs, nil
}

func TestDNSResolvesToPeersWithSelfPort(t *testing.T) {
	d := NewDNS(Options{
		SelfHost: "cluster.example.com",
		SelfPort: 9055,
		Resolver: stubResolver{addrs: []string{"10.0.0.1", "10.0.0.2"}},
	})

	got, err := d.Enumerate(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 peers, got %v", got)
	}
	for _, id := range got {
		if id.Port() != 9055 {
			t.Errorf("expected port 9055, got %d", id.Port())
		}
	}
}

func TestDNSLookupFailureIsDiscoveryError(t *testing.T) {
	d := NewDNS(Options{
		SelfHost: "cluster.example.com",
		SelfPort: 9055,
		Resolver: stubResolver{err: errors.New("no such host")},
	})

	_, err := d.Enumerate(context.Background())
	if err == nil {
		t.Fatal("expected an error")
	}
	var de *Error
	if !errors.As(err, &de) {
		t.Fatalf("expected a *discovery.Error, got %T", err)
	}
	if de.Mode != ModeDNS {
		t.Errorf("expected ModeDNS, got %v", de.Mode)
	}
}
