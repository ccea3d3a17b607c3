// Package serialization provides a registry-based system for serializing and deserializing
// domain events in the event bus infrastructure. It acts as a translation layer between
// domain objects and their JSON wire format representations.
//
// The package implements a registry pattern where serialization/deserialization functions
// are registered for each event type. This approach:
//   - Maintains a clean separation between domain models and their wire formats
//   - Centralizes all serialization logic in one place
//   - Allows for type-safe conversion between domain objects and their wire form
//   - Enables easy addition of new event types without modifying existing code
package serialization

import (
	"encoding/json"
	"fmt"

	"github.com/cfpulse/cfpulse/internal/domain/events"
	"github.com/cfpulse/cfpulse/internal/domain/notification"
)

// SerializeFunc converts a domain object into a serialized byte slice.
type SerializeFunc func(payload any) ([]byte, error)

// DeserializeFunc converts a serialized byte slice back into a domain object.
type DeserializeFunc func(data []byte) (any, error)

// Global registries map event types to their serialization functions.
// This allows for dynamic dispatch based on event type at runtime.
var (
	serializerRegistry   = map[events.EventType]SerializeFunc{}
	deserializerRegistry = map[events.EventType]DeserializeFunc{}
)

// RegisterSerializeFunc registers a serialization function for a given event type.
// This enables the system to properly encode domain objects when publishing events.
func RegisterSerializeFunc(eventType events.EventType, fn SerializeFunc) {
	serializerRegistry[eventType] = fn
}

// RegisterDeserializeFunc registers a deserialization function for a given event type.
// This enables the system to properly decode events back into domain objects when consuming them.
func RegisterDeserializeFunc(eventType events.EventType, fn DeserializeFunc) {
	deserializerRegistry[eventType] = fn
}

// SerializePayload converts a domain object into bytes using the registered serializer for its event type.
// Returns an error if no serializer is registered for the given event type.
func SerializePayload(eventType events.EventType, payload any) ([]byte, error) {
	fn, ok := serializerRegistry[eventType]
	if !ok {
		return nil, fmt.Errorf("no serializer registered for eventType=%s", eventType)
	}
	return fn(payload)
}

// DeserializePayload converts bytes back into a domain object using the registered deserializer for its event type.
// Returns an error if no deserializer is registered for the given event type.
func DeserializePayload(eventType events.EventType, data []byte) (any, error) {
	fn, ok := deserializerRegistry[eventType]
	if !ok {
		return nil, fmt.Errorf("no deserializer registered for eventType=%s", eventType)
	}
	return fn(data)
}

func init() { RegisterEventSerializers() }

// RegisterEventSerializers initializes the serialization system by registering
// handlers for all supported event types. It runs at package init so any
// component importing this package can encode and decode events.
func RegisterEventSerializers() {
	registerJSON[notification.ContestReminderEvent](notification.EventTypeContestReminder)
	registerJSON[notification.TaskAssignedEvent](notification.EventTypeTaskAssigned)
	registerJSON[notification.TaskBatchAssignedEvent](notification.EventTypeTaskBatchAssigned)
	registerJSON[notification.TaskOfDayAssignedEvent](notification.EventTypeTaskOfDayAssigned)
}

// registerJSON wires a JSON codec for one payload type. Deserialization
// returns the concrete value, not a pointer, so consumers can type-switch on
// payload values the same way producers constructed them.
func registerJSON[T any](eventType events.EventType) {
	RegisterSerializeFunc(eventType, func(payload any) ([]byte, error) {
		evt, ok := payload.(T)
		if !ok {
			return nil, fmt.Errorf("serialize %s: payload is %T", eventType, payload)
		}
		return json.Marshal(evt)
	})
	RegisterDeserializeFunc(eventType, func(data []byte) (any, error) {
		var evt T
		if err := json.Unmarshal(data, &evt); err != nil {
			return nil, fmt.Errorf("deserialize %s: %w", eventType, err)
		}
		return evt, nil
	})
}
