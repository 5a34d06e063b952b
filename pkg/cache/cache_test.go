package cache

import (
	"testing"
	"time"

	"github.com/gruberchris/gossnet/pkg/envelope"
)

func TestNewRejectsZeroTTL(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Fatal("expected error for zero TTL")
	}
}

func TestNewRejectsNegativeTTL(t *testing.T) {
	if _, err := New(-time.Second); err == nil {
		t.Fatal("expected error for negative TTL")
	}
}

func TestTryAdmitFirstTimeSucceeds(t *testing.T) {
	c, err := New(time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	env := envelope.New()
	if !c.TryAdmit(env) {
		t.Fatal("first admission of a fresh id should succeed")
	}
}

func TestTryAdmitDuplicateFails(t *testing.T) {
	c, err := New(time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	env := envelope.New()
	if !c.TryAdmit(env) {
		t.Fatal("first admission should succeed")
	}
	if c.TryAdmit(env) {
		t.Fatal("second admission of the same id should fail")
	}
	if c.Size() != 1 {
		t.Fatalf("expected size 1 after duplicate admit attempt, got %d", c.Size())
	}
}

func TestContainsAndLookup(t *testing.T) {
	c, err := New(time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	env := envelope.New()
	if c.Contains(env.ID()) {
		t.Fatal("should not contain an id before admission")
	}
	c.TryAdmit(env)
	if !c.Contains(env.ID()) {
		t.Fatal("should contain the id after admission")
	}
	got, ok := c.Lookup(env.ID())
	if !ok {
		t.Fatal("lookup should find the admitted envelope")
	}
	if got.ID() != env.ID() {
		t.Fatalf("looked up wrong envelope: got %v want %v", got.ID(), env.ID())
	}
}

func TestEntryExpiresAfterTTL(t *testing.T) {
	c, err := New(20 * time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	env := envelope.New()
	c.TryAdmit(env)
	if !c.Contains(env.ID()) {
		t.Fatal("should be live immediately after admission")
	}

	time.Sleep(40 * time.Millisecond)

	if c.Contains(env.ID()) {
		t.Fatal("entry should have expired")
	}
	if _, ok := c.Lookup(env.ID()); ok {
		t.Fatal("lookup should not return an expired entry")
	}
}

func TestReAdmitAfterExpiry(t *testing.T) {
	c, err := New(20 * time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	env := envelope.New()
	c.TryAdmit(env)
	time.Sleep(40 * time.Millisecond)

	if !c.TryAdmit(env) {
		t.Fatal("re-admitting an id after its entry expired should succeed")
	}
}

func TestSizeCountsOnlyLiveEntries(t *testing.T) {
	c, err := New(20 * time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	c.TryAdmit(envelope.New())
	c.TryAdmit(envelope.New())
	if c.Size() != 2 {
		t.Fatalf("expected size 2, got %d", c.Size())
	}

	time.Sleep(40 * time.Millisecond)
	if c.Size() != 0 {
		t.Fatalf("expected size 0 after expiry, got %d", c.Size())
	}
}

func TestConcurrentTryAdmitIsLinearizable(t *testing.T) {
	c, err := New(time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	env := envelope.New()
	const n = 50
	results := make(chan bool, n)
	for i := 0; i < n; i++ {
		go func() {
			results <- c.TryAdmit(env)
		}()
	}

	successes := 0
	for i := 0; i < n; i++ {
		if <-results {
			successes++
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly one winner out of %d concurrent admits, got %d", n, successes)
	}
}
