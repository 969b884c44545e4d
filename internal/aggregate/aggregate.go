// Package aggregate provides the generic load-decide-append command
// pipeline shared by every event-sourced aggregate in this module.
package aggregate

import "github.com/maumercado/orderflow/internal/eventid"

// Aggregate is satisfied by any event-sourced entity whose state is fully
// derived by replaying events from an empty zero value. Implementations
// must be pointer-receiver types so Apply can mutate in place.
type Aggregate interface {
	// AggregateType is a stable string identifying the stream family
	// ("Order", "OrderFulfillment", ...).
	AggregateType() string

	// Version returns the version of the last event applied, or
	// eventid.VersionInitial for a never-persisted aggregate.
	Version() eventid.Version

	// SetVersion overwrites the aggregate's version, used by the command
	// handler after replay and after a successful append.
	SetVersion(v eventid.Version)

	// Apply mutates the aggregate's state to reflect one event. It never
	// fails: by the time an event reaches Apply it has already been
	// produced by this aggregate's own decide logic (or, on replay, by a
	// prior run of that same logic), so it is always well-formed.
	Apply(event Event)
}

// Event is anything a decide function can return and Apply can consume.
// Concrete packages (internal/order, internal/saga) define their own
// tagged-union event type satisfying this interface.
type Event interface {
	// EventType is the discriminator stored alongside the event's
	// envelope and used to rebuild the concrete type on load.
	EventType() string
}

// SnapshotCapable is implemented by aggregates that want periodic
// snapshotting instead of the default once-every-100-events interval.
type SnapshotCapable interface {
	Aggregate
	SnapshotInterval() int
}

// DefaultSnapshotInterval is used for any Aggregate that does not
// implement SnapshotCapable.
const DefaultSnapshotInterval = 100

// ShouldSnapshot reports whether version warrants a new snapshot: it must
// be positive and an exact multiple of the aggregate's snapshot interval.
func ShouldSnapshot(a Aggregate, version eventid.Version) bool {
	interval := DefaultSnapshotInterval
	if sc, ok := a.(SnapshotCapable); ok {
		interval = sc.SnapshotInterval()
	}
	if interval <= 0 || version <= 0 {
		return false
	}
	return int64(version)%int64(interval) == 0
}

// ApplyEvents applies each event to a in order, advancing version to match
// each event's own version as it goes.
func ApplyEvents(a Aggregate, events []EnvelopedEvent) {
	for _, e := range events {
		a.Apply(e.Event)
		a.SetVersion(e.Version)
	}
}

// EnvelopedEvent pairs a decoded domain event with the version it was
// persisted at, the shape CommandHandler needs to replay in order without
// re-deriving version numbers from position in the slice (which would
// break if a caller ever filtered the slice).
type EnvelopedEvent struct {
	Event   Event
	Version eventid.Version
}
