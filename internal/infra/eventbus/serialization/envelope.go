package serialization

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cfpulse/cfpulse/internal/domain/events"
)

// universalEnvelope is the wire framing shared by every event on the bus. It
// carries the event type alongside the payload so consumers can pick the right
// deserializer without out-of-band topic knowledge.
type universalEnvelope struct {
	Type       events.EventType `json:"type"`
	OccurredAt time.Time        `json:"occurred_at"`
	Payload    json.RawMessage  `json:"payload"`
}

// SerializeEventEnvelope encodes a payload inside the universal envelope.
func SerializeEventEnvelope(eventType events.EventType, payload any) ([]byte, error) {
	payloadBytes, err := SerializePayload(eventType, payload)
	if err != nil {
		return nil, err
	}

	env := universalEnvelope{
		Type:       eventType,
		OccurredAt: time.Now(),
		Payload:    payloadBytes,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope for %s: %w", eventType, err)
	}
	return data, nil
}

// UnmarshalUniversalEnvelope decodes the envelope framing and returns the
// event type together with the still-encoded payload bytes.
func UnmarshalUniversalEnvelope(data []byte) (events.EventType, []byte, error) {
	var env universalEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Type == "" {
		return "", nil, fmt.Errorf("envelope missing event type")
	}
	return env.Type, env.Payload, nil
}
