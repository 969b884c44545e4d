// Package views holds the four read models driven off the Order event
// stream: current orders, completed history, per-customer rollups, and
// per-product inventory demand.
package views

import (
	"context"

	"github.com/maumercado/orderflow/internal/eventstore"
	"github.com/maumercado/orderflow/internal/order"
	"github.com/maumercado/orderflow/internal/projection"
	"github.com/maumercado/orderflow/internal/syncutil"
)

// decodeOrderEvent decodes an envelope's payload into one of the nine
// Order event variants, or (nil, false) for an event from a different
// aggregate type — which every view still counts toward its position, per
// SPEC_FULL.md §4.3 ("non-Order events are no-ops but still advance
// position").
func decodeOrderEvent(envelope eventstore.EventEnvelope) (any, bool) {
	if envelope.AggregateType != order.AggregateTypeName {
		return nil, false
	}
	event, err := order.Codec.Decode(envelope.EventType, envelope.Payload)
	if err != nil {
		return nil, false
	}
	return event, true
}

// positionTracker is embedded by every view to supply the
// Projection.Position/Reset plumbing around a reader-preferring mutex,
// matching SPEC_FULL.md §5's "each read model owns one
// internal/syncutil.RWMutex" requirement.
type positionTracker struct {
	mu       *syncutil.RWMutex
	position projection.ProjectionPosition
}

func newPositionTracker() positionTracker {
	return positionTracker{mu: syncutil.NewRWMutex()}
}

func (t *positionTracker) advance() {
	t.position = t.position.Advance()
}

func (t *positionTracker) Position(ctx context.Context) projection.ProjectionPosition {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.position
}

// saturatingSub clamps a - b at zero, per the saturating-counter rule
// shared by CustomerOrdersView and InventoryView.
func saturatingSub(a, b uint64) uint64 {
	if b >= a {
		return 0
	}
	return a - b
}

func saturatingSubInt(a, b int) int {
	if b >= a {
		return 0
	}
	return a - b
}
