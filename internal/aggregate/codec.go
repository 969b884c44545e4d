package aggregate

import "encoding/json"

// Codec translates between an aggregate's concrete Event values and the
// (event_type, payload) pair an EventEnvelope stores. Each aggregate
// package (internal/order, internal/saga) supplies one, grounded in the
// teacher's own BaseEvent/type-switch marshaling idiom rather than a
// generic reflection-based encoder.
type Codec interface {
	// Encode returns the JSON payload for a concrete event. EventType()
	// on the event itself supplies the discriminator.
	Encode(event Event) (json.RawMessage, error)

	// Decode rebuilds a concrete Event from its stored type string and
	// payload. Returns an error for an unrecognized event type so replay
	// fails loudly rather than silently dropping history.
	Decode(eventType string, payload json.RawMessage) (Event, error)
}

// UnknownEventTypeError is returned by a Codec.Decode for an event type it
// doesn't recognize.
type UnknownEventTypeError struct {
	EventType string
}

func (e *UnknownEventTypeError) Error() string {
	return "unknown event type: " + e.EventType
}
