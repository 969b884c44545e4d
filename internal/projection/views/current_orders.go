package views

import (
	"context"
	"time"

	"github.com/maumercado/orderflow/internal/eventid"
	"github.com/maumercado/orderflow/internal/eventstore"
	"github.com/maumercado/orderflow/internal/order"
	"github.com/maumercado/orderflow/internal/projection"
)

// CurrentOrderSummary is one row of CurrentOrdersView: everything needed
// to show an in-flight order without replaying its stream.
type CurrentOrderSummary struct {
	OrderID     eventid.AggregateID
	CustomerID  eventid.CustomerID
	State       order.State
	Items       map[eventid.ProductID]order.OrderItem
	TotalAmount eventid.Money
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (s *CurrentOrderSummary) recalculateTotal() {
	total := eventid.Zero()
	for _, item := range s.Items {
		total = total.Add(item.TotalPrice())
	}
	s.TotalAmount = total
}

// CurrentOrdersView tracks every order that hasn't yet reached a terminal
// state. Orders are removed the moment they complete or cancel.
type CurrentOrdersView struct {
	positionTracker
	orders map[eventid.AggregateID]*CurrentOrderSummary
}

// NewCurrentOrdersView returns an empty view.
func NewCurrentOrdersView() *CurrentOrdersView {
	return &CurrentOrdersView{
		positionTracker: newPositionTracker(),
		orders:          make(map[eventid.AggregateID]*CurrentOrderSummary),
	}
}

func (v *CurrentOrdersView) Name() string { return "CurrentOrdersView" }

func (v *CurrentOrdersView) Count(ctx context.Context) int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.orders)
}

// Get returns a copy of the summary for orderID, if it's still current.
func (v *CurrentOrdersView) Get(ctx context.Context, orderID eventid.AggregateID) (CurrentOrderSummary, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	summary, ok := v.orders[orderID]
	if !ok {
		return CurrentOrderSummary{}, false
	}
	cp := *summary
	cp.Items = make(map[eventid.ProductID]order.OrderItem, len(summary.Items))
	for productID, item := range summary.Items {
		cp.Items[productID] = item
	}
	return cp, true
}

func (v *CurrentOrdersView) Reset(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.orders = make(map[eventid.AggregateID]*CurrentOrderSummary)
	v.position = projection.ProjectionPosition{}
	return nil
}

func (v *CurrentOrdersView) Handle(ctx context.Context, envelope eventstore.EventEnvelope) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	defer v.advance()

	event, ok := decodeOrderEvent(envelope)
	if !ok {
		return nil
	}

	switch e := event.(type) {
	case order.OrderCreated:
		v.orders[envelope.AggregateID] = &CurrentOrderSummary{
			OrderID:    envelope.AggregateID,
			CustomerID: e.CustomerID,
			State:      order.StateDraft,
			Items:      make(map[eventid.ProductID]order.OrderItem),
			CreatedAt:  envelope.Timestamp,
			UpdatedAt:  envelope.Timestamp,
		}
	case order.ItemAdded:
		if summary, ok := v.orders[envelope.AggregateID]; ok {
			summary.Items[e.Item.ProductID] = e.Item
			summary.recalculateTotal()
			summary.UpdatedAt = envelope.Timestamp
		}
	case order.ItemRemoved:
		if summary, ok := v.orders[envelope.AggregateID]; ok {
			delete(summary.Items, e.ProductID)
			summary.recalculateTotal()
			summary.UpdatedAt = envelope.Timestamp
		}
	case order.ItemQuantityUpdated:
		if summary, ok := v.orders[envelope.AggregateID]; ok {
			if item, ok := summary.Items[e.ProductID]; ok {
				item.Quantity = e.NewQuantity
				summary.Items[e.ProductID] = item
				summary.recalculateTotal()
				summary.UpdatedAt = envelope.Timestamp
			}
		}
	case order.OrderReserved:
		if summary, ok := v.orders[envelope.AggregateID]; ok {
			summary.State = order.StateReserved
			summary.UpdatedAt = envelope.Timestamp
		}
	case order.OrderProcessing:
		if summary, ok := v.orders[envelope.AggregateID]; ok {
			summary.State = order.StateProcessing
			summary.UpdatedAt = envelope.Timestamp
		}
	case order.OrderCompleted, order.OrderCancelled:
		delete(v.orders, envelope.AggregateID)
	}

	return nil
}
