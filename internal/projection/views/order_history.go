package views

import (
	"context"
	"time"

	"github.com/maumercado/orderflow/internal/eventid"
	"github.com/maumercado/orderflow/internal/eventstore"
	"github.com/maumercado/orderflow/internal/order"
	"github.com/maumercado/orderflow/internal/projection"
)

// OrderHistoryEntry is a completed or cancelled order's permanent record.
type OrderHistoryEntry struct {
	OrderID            eventid.AggregateID
	CustomerID         eventid.CustomerID
	Items              map[eventid.ProductID]order.OrderItem
	TotalAmount        eventid.Money
	CreatedAt          time.Time
	CompletedAt        *time.Time
	CancelledAt        *time.Time
	CancellationReason string
	TrackingNumber     *string
}

// OrderHistoryView stages an in-flight order's item state and, on a
// terminal event, moves it into the permanent history map. Staged (still
// in-flight) orders are not queryable through history.
type OrderHistoryView struct {
	positionTracker
	staging map[eventid.AggregateID]*OrderHistoryEntry
	history map[eventid.AggregateID]*OrderHistoryEntry
}

// NewOrderHistoryView returns an empty view.
func NewOrderHistoryView() *OrderHistoryView {
	return &OrderHistoryView{
		positionTracker: newPositionTracker(),
		staging:         make(map[eventid.AggregateID]*OrderHistoryEntry),
		history:         make(map[eventid.AggregateID]*OrderHistoryEntry),
	}
}

func (v *OrderHistoryView) Name() string { return "OrderHistoryView" }

func (v *OrderHistoryView) Count(ctx context.Context) int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.history)
}

// Get returns a copy of a completed/cancelled order's history entry.
func (v *OrderHistoryView) Get(ctx context.Context, orderID eventid.AggregateID) (OrderHistoryEntry, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	entry, ok := v.history[orderID]
	if !ok {
		return OrderHistoryEntry{}, false
	}
	return *entry, true
}

func (v *OrderHistoryView) Reset(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.staging = make(map[eventid.AggregateID]*OrderHistoryEntry)
	v.history = make(map[eventid.AggregateID]*OrderHistoryEntry)
	v.position = projection.ProjectionPosition{}
	return nil
}

func recalculateHistoryTotal(e *OrderHistoryEntry) {
	total := eventid.Zero()
	for _, item := range e.Items {
		total = total.Add(item.TotalPrice())
	}
	e.TotalAmount = total
}

func (v *OrderHistoryView) Handle(ctx context.Context, envelope eventstore.EventEnvelope) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	defer v.advance()

	event, ok := decodeOrderEvent(envelope)
	if !ok {
		return nil
	}

	switch e := event.(type) {
	case order.OrderCreated:
		v.staging[envelope.AggregateID] = &OrderHistoryEntry{
			OrderID:    envelope.AggregateID,
			CustomerID: e.CustomerID,
			Items:      make(map[eventid.ProductID]order.OrderItem),
			CreatedAt:  envelope.Timestamp,
		}
	case order.ItemAdded:
		if entry, ok := v.staging[envelope.AggregateID]; ok {
			entry.Items[e.Item.ProductID] = e.Item
			recalculateHistoryTotal(entry)
		}
	case order.ItemRemoved:
		if entry, ok := v.staging[envelope.AggregateID]; ok {
			delete(entry.Items, e.ProductID)
			recalculateHistoryTotal(entry)
		}
	case order.ItemQuantityUpdated:
		if entry, ok := v.staging[envelope.AggregateID]; ok {
			if item, ok := entry.Items[e.ProductID]; ok {
				item.Quantity = e.NewQuantity
				entry.Items[e.ProductID] = item
				recalculateHistoryTotal(entry)
			}
		}
	case order.OrderCompleted:
		if entry, ok := v.staging[envelope.AggregateID]; ok {
			completedAt := e.CompletedAt
			entry.CompletedAt = &completedAt
			entry.TrackingNumber = e.TrackingNumber
			v.history[envelope.AggregateID] = entry
			delete(v.staging, envelope.AggregateID)
		}
	case order.OrderCancelled:
		if entry, ok := v.staging[envelope.AggregateID]; ok {
			cancelledAt := e.CancelledAt
			entry.CancelledAt = &cancelledAt
			entry.CancellationReason = e.Reason
			v.history[envelope.AggregateID] = entry
			delete(v.staging, envelope.AggregateID)
		}
	}

	return nil
}
