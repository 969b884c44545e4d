package aggregate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/maumercado/orderflow/internal/eventid"
	"github.com/maumercado/orderflow/internal/eventstore"
)

// CommandHandler drives the load-decide-append pipeline for one aggregate
// type A. A is expected to be a pointer type (e.g. *order.Order) so that
// New() returns a usable, independently-mutable zero value each call.
type CommandHandler[A Aggregate] struct {
	store         eventstore.EventStore
	aggregateType string
	codec         Codec
	new           func() A
}

// NewCommandHandler builds a handler for aggregateType, using codec to
// translate between envelopes and concrete events and newFn to produce a
// fresh zero-value aggregate for Load to replay into.
func NewCommandHandler[A Aggregate](store eventstore.EventStore, aggregateType string, codec Codec, newFn func() A) *CommandHandler[A] {
	return &CommandHandler[A]{store: store, aggregateType: aggregateType, codec: codec, new: newFn}
}

// CommandResult is returned by Execute/ExecuteWithSnapshot: the aggregate's
// state after the command, the events the command produced (empty if the
// command was a no-op), and the new tail version.
type CommandResult[A Aggregate] struct {
	Aggregate  A
	Events     []Event
	NewVersion eventid.Version
}

// Load replays every persisted event for id (from the latest snapshot, if
// any) into a fresh aggregate and returns it. An id with no events returns
// a fresh, version-0 aggregate — callers distinguish "new" from "existing"
// via LoadExisting when that matters.
func (h *CommandHandler[A]) Load(ctx context.Context, id eventid.AggregateID) (A, error) {
	agg, _, err := h.load(ctx, id)
	return agg, err
}

// LoadExisting is Load, but reports false (with a fresh zero-value
// aggregate) when id has no persisted events at all.
func (h *CommandHandler[A]) LoadExisting(ctx context.Context, id eventid.AggregateID) (A, bool, error) {
	return h.load(ctx, id)
}

func (h *CommandHandler[A]) load(ctx context.Context, id eventid.AggregateID) (A, bool, error) {
	agg := h.new()

	snap, events, err := eventstore.LoadAggregateEvents(ctx, h.store, id)
	if err != nil {
		return agg, false, fmt.Errorf("load aggregate events: %w", err)
	}

	existed := snap != nil || len(events) > 0

	if snap != nil {
		if err := json.Unmarshal(snap.State, agg); err != nil {
			return agg, false, fmt.Errorf("unmarshal snapshot state: %w", err)
		}
		agg.SetVersion(snap.Version)
	}

	decoded := make([]EnvelopedEvent, 0, len(events))
	for _, envelope := range events {
		event, err := h.codec.Decode(envelope.EventType, envelope.Payload)
		if err != nil {
			return agg, false, fmt.Errorf("decode event %s: %w", envelope.EventID, err)
		}
		decoded = append(decoded, EnvelopedEvent{Event: event, Version: envelope.Version})
	}
	ApplyEvents(agg, decoded)

	return agg, existed, nil
}

// Decide is the pure decision function a command passes to Execute: given
// the current aggregate state, return the events to append (or none, for
// a no-op command).
type Decide[A Aggregate] func(A) ([]Event, error)

// Execute loads id, calls decide, and — if decide produced any events —
// appends them with an optimistic-concurrency check against the loaded
// version, then applies them to the in-memory aggregate so the caller sees
// post-command state without a second round trip.
func (h *CommandHandler[A]) Execute(ctx context.Context, id eventid.AggregateID, decide Decide[A]) (CommandResult[A], error) {
	agg, existed, err := h.load(ctx, id)
	if err != nil {
		return CommandResult[A]{}, err
	}

	events, err := decide(agg)
	if err != nil {
		return CommandResult[A]{}, err
	}
	if len(events) == 0 {
		return CommandResult[A]{Aggregate: agg, NewVersion: agg.Version()}, nil
	}

	currentVersion := agg.Version()
	envelopes := make([]eventstore.EventEnvelope, 0, len(events))
	now := time.Now().UTC()
	for i, event := range events {
		payload, err := h.codec.Encode(event)
		if err != nil {
			return CommandResult[A]{}, fmt.Errorf("encode event %s: %w", event.EventType(), err)
		}
		envelopes = append(envelopes, eventstore.EventEnvelope{
			EventID:       eventid.NewEventID(),
			EventType:     event.EventType(),
			AggregateID:   id,
			AggregateType: h.aggregateType,
			Version:       currentVersion + eventid.Version(i) + 1,
			Timestamp:     now,
			Payload:       payload,
		})
	}

	opts := eventstore.ExpectVersion(currentVersion)
	if !existed {
		opts = eventstore.ExpectNew()
	}

	newVersion, err := h.store.Append(ctx, envelopes, opts)
	if err != nil {
		return CommandResult[A]{}, err
	}

	enveloped := make([]EnvelopedEvent, len(events))
	for i, event := range events {
		enveloped[i] = EnvelopedEvent{Event: event, Version: envelopes[i].Version}
	}
	ApplyEvents(agg, enveloped)

	return CommandResult[A]{Aggregate: agg, Events: events, NewVersion: newVersion}, nil
}

// ExecuteWithSnapshot is Execute followed, when the command produced
// events, by a snapshot check: if the resulting version crosses a
// snapshot boundary, the aggregate's JSON-serialized state is saved.
func (h *CommandHandler[A]) ExecuteWithSnapshot(ctx context.Context, id eventid.AggregateID, decide Decide[A]) (CommandResult[A], error) {
	result, err := h.Execute(ctx, id, decide)
	if err != nil {
		return result, err
	}
	if len(result.Events) == 0 {
		return result, nil
	}
	if !ShouldSnapshot(result.Aggregate, result.NewVersion) {
		return result, nil
	}

	state, err := json.Marshal(result.Aggregate)
	if err != nil {
		return result, fmt.Errorf("marshal snapshot state: %w", err)
	}
	err = h.store.SaveSnapshot(ctx, eventstore.Snapshot{
		AggregateID:   id,
		AggregateType: h.aggregateType,
		Version:       result.NewVersion,
		Timestamp:     time.Now().UTC(),
		State:         state,
	})
	if err != nil {
		return result, fmt.Errorf("save snapshot: %w", err)
	}
	return result, nil
}
