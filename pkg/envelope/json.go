package envelope

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gruberchris/gossnet/pkg/peer"
)

// wirePeer is the on-the-wire shape of a single notified-set entry.
type wirePeer struct {
	Hostname string `json:"hostname"`
	Port     uint16 `json:"port"`
}

// wireMessage is the on-the-wire shape of an envelope plus payload. Field
// names are matched case-insensitively on decode, which encoding/json
// already does by default — "ID", "Id", and "id" all unmarshal into the
// same field.
type wireMessage[T any] struct {
	ID            string     `json:"id"`
	Timestamp     time.Time  `json:"timestamp"`
	NotifiedNodes []wirePeer `json:"notifiedNodes"`
	Payload       T          `json:"payload"`
}

// JSONCodec is the reference Codec implementation. It is required to
// interoperate with any other conforming JSON codec: the same three
// envelope field names, the same nesting, and RFC3339 timestamps with
// sub-second precision preserved.
type JSONCodec[T any] struct{}

// NewJSONCodec constructs a JSONCodec for payload type T.
func NewJSONCodec[T any]() JSONCodec[T] { return JSONCodec[T]{} }

func (JSONCodec[T]) Encode(env Envelope, payload T) ([]byte, error) {
	wire := wireMessage[T]{
		ID:        env.ID().String(),
		Timestamp: env.Timestamp(),
		Payload:   payload,
	}
	for _, p := range env.NotifiedSet() {
		wire.NotifiedNodes = append(wire.NotifiedNodes, wirePeer{
			Hostname: p.Host(),
			Port:     p.Port(),
		})
	}
	data, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("envelope: encode: %w", err)
	}
	return data, nil
}

func (JSONCodec[T]) Decode(data []byte) (Envelope, T, error) {
	var wire wireMessage[T]
	var zero T

	if err := json.Unmarshal(data, &wire); err != nil {
		return Envelope{}, zero, NewDecodeError(err)
	}

	id, err := uuid.Parse(wire.ID)
	if err != nil {
		return Envelope{}, zero, NewDecodeError(fmt.Errorf("invalid id %q: %w", wire.ID, err))
	}

	notified := make([]peer.Identity, 0, len(wire.NotifiedNodes))
	for _, wp := range wire.NotifiedNodes {
		id, err := peer.New(wp.Hostname, wp.Port)
		if err != nil {
			return Envelope{}, zero, NewDecodeError(fmt.Errorf("invalid notified peer %+v: %w", wp, err))
		}
		notified = append(notified, id)
	}

	env := withFields(id, wire.Timestamp.UTC(), notified)
	return env, wire.Payload, nil
}
