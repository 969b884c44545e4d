package eventstore

import (
	"context"
	"sort"

	"github.com/maumercado/orderflow/internal/eventid"
	"github.com/maumercado/orderflow/internal/syncutil"
)

// MemoryStore is the in-memory EventStore implementation: a process-wide
// event slice plus a per-aggregate version index, guarded by a single
// reader-preferring mutex. It is used by tests and as the default backend
// when DATABASE_URL is not configured.
type MemoryStore struct {
	mu        *syncutil.RWMutex
	events    []EventEnvelope
	versions  map[eventid.AggregateID]eventid.Version
	snapshots map[eventid.AggregateID]Snapshot
}

// NewMemoryStore returns an empty in-memory event store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mu:        syncutil.NewRWMutex(),
		versions:  make(map[eventid.AggregateID]eventid.Version),
		snapshots: make(map[eventid.AggregateID]Snapshot),
	}
}

func (s *MemoryStore) Append(ctx context.Context, events []EventEnvelope, opts AppendOptions) (eventid.Version, error) {
	if err := ValidateEventsForAppend(events); err != nil {
		return 0, err
	}

	aggregateID := events[0].AggregateID

	s.mu.Lock()
	defer s.mu.Unlock()

	actual := s.versions[aggregateID] // zero value if absent, which is VersionInitial

	if opts.ExpectedVersion != nil && *opts.ExpectedVersion != actual {
		return 0, &ConcurrencyConflictError{Expected: *opts.ExpectedVersion, Actual: actual}
	}

	if events[0].Version != actual+1 {
		return 0, &ConcurrencyConflictError{Expected: actual, Actual: events[0].Version - 1}
	}

	// Reject duplicate (aggregate_id, version) pairs the same way a SQL
	// unique constraint would, keeping in-memory and SQL-backed behavior
	// identical.
	for _, e := range events {
		if e.Version <= actual {
			return 0, &ConcurrencyConflictError{Expected: actual, Actual: actual}
		}
	}

	s.events = append(s.events, events...)
	newVersion := events[len(events)-1].Version
	s.versions[aggregateID] = newVersion

	return newVersion, nil
}

func (s *MemoryStore) GetEventsForAggregate(ctx context.Context, id eventid.AggregateID) ([]EventEnvelope, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []EventEnvelope
	for _, e := range s.events {
		if e.AggregateID == id {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func (s *MemoryStore) GetEventsForAggregateFromVersion(ctx context.Context, id eventid.AggregateID, from eventid.Version) ([]EventEnvelope, error) {
	all, err := s.GetEventsForAggregate(ctx, id)
	if err != nil {
		return nil, err
	}
	var out []EventEnvelope
	for _, e := range all {
		if e.Version >= from {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryStore) QueryEvents(ctx context.Context, q EventQuery) ([]EventEnvelope, error) {
	s.mu.RLock()
	matched := make([]EventEnvelope, 0, len(s.events))
	for _, e := range s.events {
		if q.matches(e) {
			matched = append(matched, e)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].Timestamp.Before(matched[j].Timestamp)
		}
		return matched[i].Version < matched[j].Version
	})

	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			return []EventEnvelope{}, nil
		}
		matched = matched[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}
	return matched, nil
}

func (s *MemoryStore) GetEventsByType(ctx context.Context, eventType string) ([]EventEnvelope, error) {
	s.mu.RLock()
	var out []EventEnvelope
	for _, e := range s.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (s *MemoryStore) StreamAllEvents(ctx context.Context, yield func(EventEnvelope) bool) error {
	s.mu.RLock()
	all := make([]EventEnvelope, len(s.events))
	copy(all, s.events)
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].Timestamp.Equal(all[j].Timestamp) {
			return all[i].Timestamp.Before(all[j].Timestamp)
		}
		return all[i].EventID.String() < all[j].EventID.String()
	})

	for _, e := range all {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !yield(e) {
			return nil
		}
	}
	return nil
}

func (s *MemoryStore) GetAggregateVersion(ctx context.Context, id eventid.AggregateID) (eventid.Version, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.versions[id]
	return v, ok, nil
}

func (s *MemoryStore) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots[snap.AggregateID] = snap
	return nil
}

func (s *MemoryStore) GetSnapshot(ctx context.Context, id eventid.AggregateID) (Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[id]
	return snap, ok, nil
}
