// Package projection drives denormalized read models off the event
// store's global event order.
package projection

import (
	"context"

	"github.com/maumercado/orderflow/internal/eventstore"
)

// ProjectionPosition tracks how many events a projection has consumed so
// far. The processor compares this against each event's ordinal to
// guarantee at-most-once delivery.
type ProjectionPosition struct {
	EventsProcessed uint64
}

// Advance returns the position after consuming one more event.
func (p ProjectionPosition) Advance() ProjectionPosition {
	return ProjectionPosition{EventsProcessed: p.EventsProcessed + 1}
}

// Projection maintains one denormalized read model by consuming events in
// global order. Handle must be safe to call from the processor's single
// catch-up goroutine; a projection's own read-side queries lock
// independently (see internal/projection/views).
type Projection interface {
	// Name identifies the projection for logging and reset targeting.
	Name() string

	// Handle applies one event to the read model. It must advance the
	// projection's position exactly once per call, including for events
	// it otherwise ignores.
	Handle(ctx context.Context, event eventstore.EventEnvelope) error

	// Position reports how many events this projection has consumed.
	Position(ctx context.Context) ProjectionPosition

	// Reset clears the read model and position back to zero, used before
	// a full rebuild.
	Reset(ctx context.Context) error
}

// ReadModel is implemented by a projection's queryable view, kept separate
// from Projection so read-side code can depend on just the query surface.
type ReadModel interface {
	Name() string
	Count(ctx context.Context) int
}
