package transport

import (
	"testing"
	"time"
)

func TestUDPEndpointSendReceiveLoopback(t *testing.T) {
	a, err := NewUDPEndpoint(0)
	if err != nil {
		t.Fatalf("bind a: %v", err)
	}
	defer a.Close()

	b, err := NewUDPEndpoint(0)
	if err != nil {
		t.Fatalf("bind b: %v", err)
	}
	defer b.Close()

	if _, err := a.Send([]byte("hello"), "127.0.0.1", b.LocalPort()); err != nil {
		t.Fatalf("send: %v", err)
	}

	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		data, _, err := b.Receive()
		done <- result{data, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("receive: %v", r.err)
		}
		if string(r.data) != "hello" {
			t.Fatalf("got %q, want %q", r.data, "hello")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for datagram")
	}
}

func TestUDPEndpointCloseUnblocksReceive(t *testing.T) {
	a, err := NewUDPEndpoint(0)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, _, err := a.Receive()
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	select {
	case err := <-done:
		if err != ErrClosed {
			t.Fatalf("expected ErrClosed, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Receive did not unblock after Close")
	}
}

func TestUDPEndpointCloseIsIdempotent(t *testing.T) {
	a, err := NewUDPEndpoint(0)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
