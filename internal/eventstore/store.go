package eventstore

import (
	"context"

	"github.com/maumercado/orderflow/internal/eventid"
)

// AppendOptions controls the optimistic-concurrency check performed by
// Append.
type AppendOptions struct {
	// ExpectedVersion is the version the caller believes the aggregate's
	// tail is currently at. If it doesn't match the actual tail, Append
	// fails with ConcurrencyConflictError. A nil ExpectedVersion skips
	// this check; ExpectNew sets it to 0 for a stream that must not exist.
	ExpectedVersion *eventid.Version
}

// ExpectVersion builds AppendOptions expecting the given current version.
func ExpectVersion(v eventid.Version) AppendOptions {
	return AppendOptions{ExpectedVersion: &v}
}

// ExpectNew builds AppendOptions for a stream that must not yet exist.
func ExpectNew() AppendOptions {
	zero := eventid.VersionInitial
	return AppendOptions{ExpectedVersion: &zero}
}

// EventStore persists event envelopes and snapshots, enforces optimistic
// concurrency on append, and answers historical and global-order queries.
// Implementations (MemoryStore, SQLStore) must agree on every invariant
// documented in SPEC_FULL.md §4.1.
type EventStore interface {
	// Append writes events atomically: either every envelope is
	// persisted or none are. All envelopes must share one AggregateID
	// and AggregateType and carry strictly consecutive versions starting
	// at the aggregate's current tail version + 1.
	Append(ctx context.Context, events []EventEnvelope, opts AppendOptions) (eventid.Version, error)

	// GetEventsForAggregate returns every event for id in ascending
	// version order.
	GetEventsForAggregate(ctx context.Context, id eventid.AggregateID) ([]EventEnvelope, error)

	// GetEventsForAggregateFromVersion returns events with version >= from,
	// ascending.
	GetEventsForAggregateFromVersion(ctx context.Context, id eventid.AggregateID, from eventid.Version) ([]EventEnvelope, error)

	// QueryEvents returns events matching every filter set on q, ordered
	// by (timestamp, version), with offset applied before limit.
	QueryEvents(ctx context.Context, q EventQuery) ([]EventEnvelope, error)

	// GetEventsByType returns every event of the given type, ordered by
	// timestamp.
	GetEventsByType(ctx context.Context, eventType string) ([]EventEnvelope, error)

	// StreamAllEvents visits every event in the store in global order
	// (timestamp, event_id), calling yield for each. Iteration stops
	// early if yield returns false. The sequence is finite and meant to
	// be consumed once per call.
	StreamAllEvents(ctx context.Context, yield func(EventEnvelope) bool) error

	// GetAggregateVersion returns the current tail version for id, and
	// false if the aggregate has no events.
	GetAggregateVersion(ctx context.Context, id eventid.AggregateID) (eventid.Version, bool, error)

	// SaveSnapshot replaces any prior snapshot for s.AggregateID.
	SaveSnapshot(ctx context.Context, s Snapshot) error

	// GetSnapshot returns the most recent snapshot for id, and false if
	// none exists.
	GetSnapshot(ctx context.Context, id eventid.AggregateID) (Snapshot, bool, error)
}

// AppendEvent is a convenience wrapper for appending a single event.
func AppendEvent(ctx context.Context, store EventStore, event EventEnvelope, opts AppendOptions) (eventid.Version, error) {
	return store.Append(ctx, []EventEnvelope{event}, opts)
}

// AggregateExists reports whether id has at least one persisted event.
func AggregateExists(ctx context.Context, store EventStore, id eventid.AggregateID) (bool, error) {
	_, ok, err := store.GetAggregateVersion(ctx, id)
	return ok, err
}

// LoadAggregateEvents returns the most recent snapshot for id (if any) and
// the events that followed it — or, absent a snapshot, every event for id.
// This is the derived `load_aggregate` operation from SPEC_FULL.md §4.1.
func LoadAggregateEvents(ctx context.Context, store EventStore, id eventid.AggregateID) (*Snapshot, []EventEnvelope, error) {
	snap, ok, err := store.GetSnapshot(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		events, err := store.GetEventsForAggregate(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		return nil, events, nil
	}
	events, err := store.GetEventsForAggregateFromVersion(ctx, id, snap.Version+1)
	if err != nil {
		return nil, nil, err
	}
	return &snap, events, nil
}

// ValidateEventsForAppend applies the pre-storage validation rules: the
// batch must be non-empty, share one aggregate id/type, and carry strictly
// consecutive versions.
func ValidateEventsForAppend(events []EventEnvelope) error {
	if len(events) == 0 {
		return &ValidationError{Reason: "event batch must not be empty"}
	}
	first := events[0]
	for i, e := range events {
		if e.AggregateID != first.AggregateID {
			return &ValidationError{Reason: "all events in a batch must share one aggregate id"}
		}
		if e.AggregateType != first.AggregateType {
			return &ValidationError{Reason: "all events in a batch must share one aggregate type"}
		}
		wantVersion := first.Version + eventid.Version(i)
		if e.Version != wantVersion {
			return &ValidationError{Reason: "event versions in a batch must be strictly consecutive"}
		}
	}
	return nil
}
