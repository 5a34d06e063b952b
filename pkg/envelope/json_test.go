package envelope

import (
	"strings"
	"testing"

	"github.com/gruberchris/gossnet/pkg/peer"
)

type testPayload struct {
	Body string `json:"body"`
}

func TestJSONCodecRoundTrip(t *testing.T) {
	codec := NewJSONCodec[testPayload]()

	env := New().
		WithNotified(peer.MustNew("a.example.com", 1)).
		WithNotified(peer.MustNew("b.example.com", 2))
	payload := testPayload{Body: "hello"}

	data, err := codec.Encode(env, payload)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	gotEnv, gotPayload, err := codec.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if gotEnv.ID() != env.ID() {
		t.Errorf("id mismatch: got %v want %v", gotEnv.ID(), env.ID())
	}
	if !gotEnv.Timestamp().Equal(env.Timestamp()) {
		t.Errorf("timestamp mismatch: got %v want %v", gotEnv.Timestamp(), env.Timestamp())
	}
	wantSet := env.NotifiedSet()
	gotSet := gotEnv.NotifiedSet()
	if len(gotSet) != len(wantSet) {
		t.Fatalf("notified set length mismatch: got %d want %d", len(gotSet), len(wantSet))
	}
	for i := range wantSet {
		if !gotSet[i].Equal(wantSet[i]) {
			t.Errorf("notified[%d] = %v, want %v", i, gotSet[i], wantSet[i])
		}
	}
	if gotPayload != payload {
		t.Errorf("payload mismatch: got %v want %v", gotPayload, payload)
	}
}

func TestJSONCodecFieldNamesCaseInsensitive(t *testing.T) {
	codec := NewJSONCodec[testPayload]()
	raw := []byte(`{"ID":"3fa85f64-5717-4562-b3fc-2c963f66afa6","TIMESTAMP":"2024-01-01T00:00:00Z","NotifiedNodes":[{"HOSTNAME":"a","PORT":1}],"payload":{"body":"x"}}`)

	env, payload, err := codec.Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.ID().String() != "3fa85f64-5717-4562-b3fc-2c963f66afa6" {
		t.Errorf("unexpected id: %v", env.ID())
	}
	if len(env.NotifiedSet()) != 1 {
		t.Fatalf("expected one notified peer, got %v", env.NotifiedSet())
	}
	if payload.Body != "x" {
		t.Errorf("unexpected payload: %+v", payload)
	}
}

func TestJSONCodecMalformedIsDecodeError(t *testing.T) {
	codec := NewJSONCodec[testPayload]()
	_, _, err := codec.Decode([]byte(`{not json`))
	if err == nil {
		t.Fatal("expected an error decoding malformed input")
	}
	var de *DecodeError
	if !isDecodeError(err, &de) {
		t.Fatalf("expected *DecodeError, got %T: %v", err, err)
	}
}

func TestJSONCodecTruncatedIsDecodeError(t *testing.T) {
	codec := NewJSONCodec[testPayload]()
	full, err := codec.Encode(New(), testPayload{Body: "hello world"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	truncated := full[:len(full)/2]
	_, _, err = codec.Decode(truncated)
	if err == nil {
		t.Fatal("expected an error decoding a truncated datagram")
	}
	if !strings.Contains(err.Error(), "decode error") {
		t.Errorf("expected a decode error message, got: %v", err)
	}
}

func isDecodeError(err error, target **DecodeError) bool {
	de, ok := err.(*DecodeError)
	if ok {
		*target = de
	}
	return ok
}
