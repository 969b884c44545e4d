package eventstore

import (
	"encoding/json"
	"time"

	"github.com/maumercado/orderflow/internal/eventid"
)

// EventEnvelope is the immutable, stored representation of one domain
// event. Payload carries the tagged-union-encoded event body (see the
// order and saga event packages); the envelope itself never interprets it.
type EventEnvelope struct {
	EventID       eventid.EventID
	EventType     string
	AggregateID   eventid.AggregateID
	AggregateType string
	Version       eventid.Version
	Timestamp     time.Time
	Payload       json.RawMessage
	Metadata      map[string]any
}

// Snapshot is a serialized aggregate state at a given version, used to
// avoid replaying a stream from the beginning.
type Snapshot struct {
	AggregateID   eventid.AggregateID
	AggregateType string
	Version       eventid.Version
	Timestamp     time.Time
	State         json.RawMessage
}
