package saga

import (
	"encoding/json"
	"fmt"

	"github.com/maumercado/orderflow/internal/aggregate"
)

// eventCodec implements aggregate.Codec for the nine SagaEvent variants.
// Each payload is a tagged union: "type" holds the variant name and
// "data" the event's own JSON fields.
type eventCodec struct{}

// Codec is the shared aggregate.Codec for saga instance streams.
var Codec aggregate.Codec = eventCodec{}

// taggedPayload is the at-rest shape of a saga event payload.
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
	case "SagaStarted":
		event = &SagaStarted{}
	case "StepStarted":
		event = &StepStarted{}
	case "StepCompleted":
		event = &StepCompleted{}
	case "StepFailed":
		event = &StepFailed{}
	case "CompensationStarted":
		event = &CompensationStarted{}
	case "CompensationStepCompleted":
		event = &CompensationStepCompleted{}
	case "CompensationStepFailed":
		event = &CompensationStepFailed{}
	case "SagaCompleted":
		event = &SagaCompleted{}
	case "SagaFailed":
		event = &SagaFailed{}
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

func derefEvent(event aggregate.Event) aggregate.Event {
	switch e := event.(type) {
	case *SagaStarted:
		return *e
	case *StepStarted:
		return *e
	case *StepCompleted:
		return *e
	case *StepFailed:
		return *e
	case *CompensationStarted:
		return *e
	case *CompensationStepCompleted:
		return *e
	case *CompensationStepFailed:
		return *e
	case *SagaCompleted:
		return *e
	case *SagaFailed:
		return *e
	default:
		return event
	}
}
