package transport

import (
	"testing"
	"time"

	"github.com/gruberchris/gossnet/pkg/peer"
)

func TestMemoryEndpointSendReceive(t *testing.T) {
	net := NewMemoryNetwork()
	a := net.NewEndpoint(peer.MustNew("a", 1))
	b := net.NewEndpoint(peer.MustNew("b", 2))

	if _, err := a.Send([]byte("hello"), "b", 2); err != nil {
		t.Fatalf("send: %v", err)
	}

	data, from, err := b.Receive()
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("got %q, want %q", data, "hello")
	}
	if !from.Equal(peer.MustNew("a", 1)) {
		t.Fatalf("got from=%v, want a:1", from)
	}
}

func TestMemoryEndpointSendToUnknownDrops(t *testing.T) {
	net := NewMemoryNetwork()
	a := net.NewEndpoint(peer.MustNew("a", 1))

	n, err := a.Send([]byte("hello"), "nobody", 9)
	if err != nil {
		t.Fatalf("send to unreachable peer should not error: %v", err)
	}
	if n != len("hello") {
		t.Fatalf("expected accepted byte count, got %d", n)
	}
}

func TestMemoryEndpointCloseUnblocksReceive(t *testing.T) {
	net := NewMemoryNetwork()
	a := net.NewEndpoint(peer.MustNew("a", 1))

	done := make(chan error, 1)
	go func() {
		_, _, err := a.Receive()
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	select {
	case err := <-done:
		if err != ErrClosed {
			t.Fatalf("expected ErrClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Receive did not unblock after Close")
	}
}

func TestMemoryEndpointCloseIsIdempotent(t *testing.T) {
	net := NewMemoryNetwork()
	a := net.NewEndpoint(peer.MustNew("a", 1))
	if err := a.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second close should also succeed: %v", err)
	}
}
