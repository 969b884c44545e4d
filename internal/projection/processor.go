package projection

import (
	"context"
	"log"

	"github.com/maumercado/orderflow/internal/eventstore"
)

// Processor fans events from an EventStore out to every registered
// Projection, assigning each a global ordinal during catch-up and
// delivering only to projections that haven't seen it yet.
type Processor struct {
	store       eventstore.EventStore
	projections []Projection
}

// NewProcessor builds a processor reading from store.
func NewProcessor(store eventstore.EventStore) *Processor {
	return &Processor{store: store}
}

// Register adds a projection to the fan-out set. Not safe to call
// concurrently with RunCatchUp/ProcessEvent.
func (p *Processor) Register(proj Projection) {
	p.projections = append(p.projections, proj)
}

// RunCatchUp streams every event in the store's global order, assigning
// each an increasing ordinal starting at 1, and delivers it to any
// projection whose position is behind that ordinal.
func (p *Processor) RunCatchUp(ctx context.Context) error {
	var ordinal uint64
	var streamErr error

	err := p.store.StreamAllEvents(ctx, func(event eventstore.EventEnvelope) bool {
		ordinal++
		for _, proj := range p.projections {
			if proj.Position(ctx).EventsProcessed >= ordinal {
				continue
			}
			if err := proj.Handle(ctx, event); err != nil {
				log.Printf("❌ projection %s failed on event %s: %v", proj.Name(), event.EventID, err)
				streamErr = err
				return false
			}
		}
		return true
	})
	if err != nil {
		return err
	}
	return streamErr
}

// ProcessEvent delivers a single event to every registered projection,
// bypassing the ordinal/position gate — used for direct, synchronous
// projection updates outside a catch-up pass.
func (p *Processor) ProcessEvent(ctx context.Context, event eventstore.EventEnvelope) error {
	for _, proj := range p.projections {
		if err := proj.Handle(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// RebuildAll resets every projection and replays the full event history
// into them.
func (p *Processor) RebuildAll(ctx context.Context) error {
	for _, proj := range p.projections {
		if err := proj.Reset(ctx); err != nil {
			return err
		}
	}
	log.Printf("🔄 rebuilding %d projections from scratch", len(p.projections))
	if err := p.RunCatchUp(ctx); err != nil {
		return err
	}
	log.Printf("✅ projection rebuild complete")
	return nil
}
