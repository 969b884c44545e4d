package projection_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maumercado/orderflow/internal/eventid"
	"github.com/maumercado/orderflow/internal/eventstore"
	"github.com/maumercado/orderflow/internal/projection"
)

// countingProjection records how many events it has seen and never
// ignores one, used to exercise Processor's ordinal/position bookkeeping
// in isolation from any real read model.
type countingProjection struct {
	name     string
	seen     int
	position projection.ProjectionPosition
}

func (p *countingProjection) Name() string { return p.name }

func (p *countingProjection) Handle(ctx context.Context, event eventstore.EventEnvelope) error {
	p.seen++
	p.position = p.position.Advance()
	return nil
}

func (p *countingProjection) Position(ctx context.Context) projection.ProjectionPosition {
	return p.position
}

func (p *countingProjection) Reset(ctx context.Context) error {
	p.seen = 0
	p.position = projection.ProjectionPosition{}
	return nil
}

func appendTestEvent(t *testing.T, store eventstore.EventStore, aggID eventid.AggregateID, version eventid.Version) {
	t.Helper()
	envelope := eventstore.EventEnvelope{
		EventID:       eventid.NewEventID(),
		EventType:     "TestEvent",
		AggregateID:   aggID,
		AggregateType: "Order",
		Version:       version,
		Timestamp:     time.Now(),
		Payload:       json.RawMessage(`{}`),
	}
	opts := eventstore.ExpectNew()
	if version > 1 {
		opts = eventstore.ExpectVersion(version - 1)
	}
	_, err := store.Append(context.Background(), []eventstore.EventEnvelope{envelope}, opts)
	require.NoError(t, err)
}

func TestRunCatchUp_DeliversEveryEventOnce(t *testing.T) {
	store := eventstore.NewMemoryStore()
	ctx := context.Background()
	aggID := eventid.NewAggregateID()
	for v := eventid.Version(1); v <= 3; v++ {
		appendTestEvent(t, store, aggID, v)
	}

	proc := projection.NewProcessor(store)
	p := &countingProjection{name: "counter"}
	proc.Register(p)

	require.NoError(t, proc.RunCatchUp(ctx))
	assert.Equal(t, 3, p.seen)
	assert.Equal(t, uint64(3), p.Position(ctx).EventsProcessed)
}

func TestRunCatchUp_SkipsAlreadyProcessedEvents(t *testing.T) {
	store := eventstore.NewMemoryStore()
	ctx := context.Background()
	aggID := eventid.NewAggregateID()
	for v := eventid.Version(1); v <= 2; v++ {
		appendTestEvent(t, store, aggID, v)
	}

	proc := projection.NewProcessor(store)
	p := &countingProjection{name: "counter"}
	proc.Register(p)
	require.NoError(t, proc.RunCatchUp(ctx))
	assert.Equal(t, 2, p.seen)

	appendTestEvent(t, store, aggID, 3)
	require.NoError(t, proc.RunCatchUp(ctx))
	assert.Equal(t, 3, p.seen, "only the new event should have been delivered on the second pass")
}

func TestRebuildAll_ResetsThenReplaysEverything(t *testing.T) {
	store := eventstore.NewMemoryStore()
	ctx := context.Background()
	aggID := eventid.NewAggregateID()
	for v := eventid.Version(1); v <= 4; v++ {
		appendTestEvent(t, store, aggID, v)
	}

	proc := projection.NewProcessor(store)
	p := &countingProjection{name: "counter"}
	proc.Register(p)
	require.NoError(t, proc.RunCatchUp(ctx))
	assert.Equal(t, 4, p.seen)

	require.NoError(t, proc.RebuildAll(ctx))
	assert.Equal(t, 4, p.seen, "rebuild replays from zero, landing back at the same count")
}
