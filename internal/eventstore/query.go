package eventstore

import (
	"time"

	"github.com/maumercado/orderflow/internal/eventid"
)

// EventQuery describes a filtered, paginated read over the event store.
// All provided filters combine with logical AND. Results are always
// ordered (timestamp asc, version asc); Offset skips before Limit applies.
type EventQuery struct {
	AggregateID     *eventid.AggregateID
	AggregateType   *string
	EventTypes      []string // membership filter: event type must be in this set
	VersionFrom     *eventid.Version
	VersionTo       *eventid.Version
	TimestampFrom   *time.Time
	TimestampTo     *time.Time
	Limit           int
	Offset          int
}

// NewEventQuery returns an empty, unfiltered query builder.
func NewEventQuery() EventQuery { return EventQuery{} }

func (q EventQuery) WithAggregateID(id eventid.AggregateID) EventQuery {
	q.AggregateID = &id
	return q
}

func (q EventQuery) WithAggregateType(t string) EventQuery {
	q.AggregateType = &t
	return q
}

func (q EventQuery) WithEventTypes(types ...string) EventQuery {
	q.EventTypes = types
	return q
}

func (q EventQuery) WithVersionRange(from, to eventid.Version) EventQuery {
	q.VersionFrom = &from
	q.VersionTo = &to
	return q
}

func (q EventQuery) WithTimestampRange(from, to time.Time) EventQuery {
	q.TimestampFrom = &from
	q.TimestampTo = &to
	return q
}

func (q EventQuery) WithLimit(limit int) EventQuery {
	q.Limit = limit
	return q
}

func (q EventQuery) WithOffset(offset int) EventQuery {
	q.Offset = offset
	return q
}

// matches reports whether an envelope satisfies every filter set on q. Used
// by MemoryStore; SQLStore translates the same fields into SQL predicates.
func (q EventQuery) matches(e EventEnvelope) bool {
	if q.AggregateID != nil && e.AggregateID != *q.AggregateID {
		return false
	}
	if q.AggregateType != nil && e.AggregateType != *q.AggregateType {
		return false
	}
	if len(q.EventTypes) > 0 {
		found := false
		for _, t := range q.EventTypes {
			if t == e.EventType {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q.VersionFrom != nil && e.Version < *q.VersionFrom {
		return false
	}
	if q.VersionTo != nil && e.Version > *q.VersionTo {
		return false
	}
	if q.TimestampFrom != nil && e.Timestamp.Before(*q.TimestampFrom) {
		return false
	}
	if q.TimestampTo != nil && e.Timestamp.After(*q.TimestampTo) {
		return false
	}
	return true
}
