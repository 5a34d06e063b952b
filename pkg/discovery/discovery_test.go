package discovery

import (
	"context"
	"testing"

	"github.com/gruberchris/gossnet/pkg/peer"
)

func TestStaticReturnsConfiguredSetVerbatim(t *testing.T) {
	peers := []peer.Identity{
		peer.MustNew("a.example.com", 1),
		peer.MustNew("b.example.com", 2),
	}
	s := NewStatic(peers)

	got, err := s.Enumerate(context.Background())
	if err != nil {
		t.Fatalf("static enumerate is infallible, got %v", err)
	}
	if len(got) != 2 || !got[0].Equal(peers[0]) || !got[1].Equal(peers[1]) {
		t.Fatalf("got %v, want %v", got, peers)
	}
}

func TestStaticEnumerateIsDefensiveCopy(t *testing.T) {
	peers := []peer.Identity{peer.MustNew("a.example.com", 1)}
	s := NewStatic(peers)
	got, _ := s.Enumerate(context.Background())
	got[0] = peer.MustNew("tampered", 2)

	got2, _ := s.Enumerate(context.Background())
	if got2[0].Host() == "tampered" {
		t.Fatal("mutating a returned slice must not affect subsequent enumerate calls")
	}
}

func TestNewUnknownModeErrors(t *testing.T) {
	if _, err := New(Mode("bogus"), Options{}); err == nil {
		t.Fatal("expected an error for an unknown discovery mode")
	}
}

func TestNewStaticViaFactory(t *testing.T) {
	peers := []peer.Identity{peer.MustNew("a.example.com", 1)}
	e, err := New(ModeStatic, Options{StaticPeers: peers})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := e.Enumerate(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || !got[0].Equal(peers[0]) {
		t.Fatalf("got %v, want %v", got, peers)
	}
}
