package order

import (
	"encoding/json"
	"fmt"

	"github.com/maumercado/orderflow/internal/aggregate"
)

// eventCodec implements aggregate.Codec for the nine OrderEvent variants.
// Each payload is a tagged union: "type" holds the variant name (the same
// string as the envelope's event_type) and "data" the event's own JSON
// fields.
type eventCodec struct{}

// Codec is the shared aggregate.Codec for the Order aggregate.
var Codec aggregate.Codec = eventCodec{}

// taggedPayload is the at-rest shape of an Order event payload.
type taggedPayload struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (eventCodec) Encode(event aggregate.Event) (json.RawMessage, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return json.Marshal(taggedPayload{Type: event.EventType(), Data: data})
}

func (eventCodec) Decode(eventType string, payload json.RawMessage) (aggregate.Event, error) {
	var event aggregate.Event
	switch eventType {
	case "OrderCreated":
		event = &OrderCreated{}
	case "ItemAdded":
		event = &ItemAdded{}
	case "ItemRemoved":
		event = &ItemRemoved{}
	case "ItemQuantityUpdated":
		event = &ItemQuantityUpdated{}
	case "OrderSubmitted":
		event = &OrderSubmitted{}
	case "OrderReserved":
		event = &OrderReserved{}
	case "OrderProcessing":
		event = &OrderProcessing{}
	case "OrderCompleted":
		event = &OrderCompleted{}
	case "OrderCancelled":
		event = &OrderCancelled{}
	default:
		return nil, &aggregate.UnknownEventTypeError{EventType: eventType}
	}
	var tagged taggedPayload
	if err := json.Unmarshal(payload, &tagged); err != nil {
		return nil, fmt.Errorf("unmarshal %s payload: %w", eventType, err)
	}
	if err := json.Unmarshal(tagged.Data, event); err != nil {
		return nil, fmt.Errorf("unmarshal %s payload: %w", eventType, err)
	}
	return derefEvent(event), nil
}

// derefEvent unwraps the pointer Decode unmarshals into back to the value
// type, so Apply's type switch can match the same value types Encode
// receives from decide functions.
func derefEvent(event aggregate.Event) aggregate.Event {
	switch e := event.(type) {
	case *OrderCreated:
		return *e
	case *ItemAdded:
		return *e
	case *ItemRemoved:
		return *e
	case *ItemQuantityUpdated:
		return *e
	case *OrderSubmitted:
		return *e
	case *OrderReserved:
		return *e
	case *OrderProcessing:
		return *e
	case *OrderCompleted:
		return *e
	case *OrderCancelled:
		return *e
	default:
		return event
	}
}
