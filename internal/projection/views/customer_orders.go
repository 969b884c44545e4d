package views

import (
	"context"

	"github.com/maumercado/orderflow/internal/eventid"
	"github.com/maumercado/orderflow/internal/eventstore"
	"github.com/maumercado/orderflow/internal/order"
	"github.com/maumercado/orderflow/internal/projection"
)

// CustomerOrderStats is one customer's rollup across their order history.
type CustomerOrderStats struct {
	TotalOrders     uint64
	ActiveOrders    uint64
	CompletedOrders uint64
	CancelledOrders uint64
	TotalSpent      eventid.Money
	OrderIDs        []eventid.AggregateID
}

// CustomerOrdersView maintains per-customer order counters and lifetime
// spend. Counters use saturating subtraction — they never go negative,
// even if events arrive in an unexpected combination.
type CustomerOrdersView struct {
	positionTracker
	stats        map[eventid.CustomerID]*CustomerOrderStats
	orderOwner   map[eventid.AggregateID]eventid.CustomerID
	orderItems   map[eventid.AggregateID]map[eventid.ProductID]order.OrderItem
}

// NewCustomerOrdersView returns an empty view.
func NewCustomerOrdersView() *CustomerOrdersView {
	return &CustomerOrdersView{
		positionTracker: newPositionTracker(),
		stats:           make(map[eventid.CustomerID]*CustomerOrderStats),
		orderOwner:      make(map[eventid.AggregateID]eventid.CustomerID),
		orderItems:      make(map[eventid.AggregateID]map[eventid.ProductID]order.OrderItem),
	}
}

func (v *CustomerOrdersView) Name() string { return "CustomerOrdersView" }

func (v *CustomerOrdersView) Count(ctx context.Context) int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.stats)
}

// Get returns a copy of a customer's current rollup.
func (v *CustomerOrdersView) Get(ctx context.Context, customerID eventid.CustomerID) (CustomerOrderStats, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	s, ok := v.stats[customerID]
	if !ok {
		return CustomerOrderStats{}, false
	}
	cp := *s
	cp.OrderIDs = append([]eventid.AggregateID(nil), s.OrderIDs...)
	return cp, true
}

func (v *CustomerOrdersView) Reset(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stats = make(map[eventid.CustomerID]*CustomerOrderStats)
	v.orderOwner = make(map[eventid.AggregateID]eventid.CustomerID)
	v.orderItems = make(map[eventid.AggregateID]map[eventid.ProductID]order.OrderItem)
	v.position = projection.ProjectionPosition{}
	return nil
}

func (v *CustomerOrdersView) orderTotal(orderID eventid.AggregateID) eventid.Money {
	total := eventid.Zero()
	for _, item := range v.orderItems[orderID] {
		total = total.Add(item.TotalPrice())
	}
	return total
}

func (v *CustomerOrdersView) Handle(ctx context.Context, envelope eventstore.EventEnvelope) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	defer v.advance()

	event, ok := decodeOrderEvent(envelope)
	if !ok {
		return nil
	}

	switch e := event.(type) {
	case order.OrderCreated:
		v.orderOwner[envelope.AggregateID] = e.CustomerID
		v.orderItems[envelope.AggregateID] = make(map[eventid.ProductID]order.OrderItem)
		s, ok := v.stats[e.CustomerID]
		if !ok {
			s = &CustomerOrderStats{}
			v.stats[e.CustomerID] = s
		}
		s.TotalOrders++
		s.ActiveOrders++
		s.OrderIDs = append(s.OrderIDs, envelope.AggregateID)

	case order.ItemAdded:
		if items, ok := v.orderItems[envelope.AggregateID]; ok {
			items[e.Item.ProductID] = e.Item
		}
	case order.ItemRemoved:
		if items, ok := v.orderItems[envelope.AggregateID]; ok {
			delete(items, e.ProductID)
		}
	case order.ItemQuantityUpdated:
		if items, ok := v.orderItems[envelope.AggregateID]; ok {
			if item, ok := items[e.ProductID]; ok {
				item.Quantity = e.NewQuantity
				items[e.ProductID] = item
			}
		}

	case order.OrderCompleted:
		customerID, ok := v.orderOwner[envelope.AggregateID]
		if !ok {
			break
		}
		s := v.stats[customerID]
		s.ActiveOrders = uint64(saturatingSubInt(int(s.ActiveOrders), 1))
		s.CompletedOrders++
		s.TotalSpent = s.TotalSpent.Add(v.orderTotal(envelope.AggregateID))
		delete(v.orderItems, envelope.AggregateID)

	case order.OrderCancelled:
		customerID, ok := v.orderOwner[envelope.AggregateID]
		if !ok {
			break
		}
		s := v.stats[customerID]
		s.ActiveOrders = uint64(saturatingSubInt(int(s.ActiveOrders), 1))
		s.CancelledOrders++
		delete(v.orderItems, envelope.AggregateID)
	}

	return nil
}
