package views

import (
	"context"

	"github.com/maumercado/orderflow/internal/eventid"
	"github.com/maumercado/orderflow/internal/eventstore"
	"github.com/maumercado/orderflow/internal/order"
	"github.com/maumercado/orderflow/internal/projection"
)

// ProductDemand is one product's aggregate demand picture across every
// order that has ever referenced it.
type ProductDemand struct {
	TotalQuantityOrdered   uint64
	QuantityInActiveOrders uint64
	QuantityReserved       uint64
	QuantityCompleted      uint64
	TotalRevenue           eventid.Money
	OrderCount             uint64
}

// orderBucket tracks which demand counter an order's quantities currently
// sit in, so a later event (cancel, complete) knows which bucket to debit.
type orderBucket int

const (
	bucketActive orderBucket = iota
	bucketReserved
)

// InventoryView maintains per-product demand counters, driven by a
// per-order item snapshot and status bucket it keeps internally to know
// how to adjust counters as an order moves through its lifecycle.
type InventoryView struct {
	positionTracker
	demand      map[eventid.ProductID]*ProductDemand
	orderStatus map[eventid.AggregateID]orderBucket
	orderItems  map[eventid.AggregateID]map[eventid.ProductID]order.OrderItem
}

// NewInventoryView returns an empty view.
func NewInventoryView() *InventoryView {
	return &InventoryView{
		positionTracker: newPositionTracker(),
		demand:          make(map[eventid.ProductID]*ProductDemand),
		orderStatus:     make(map[eventid.AggregateID]orderBucket),
		orderItems:      make(map[eventid.AggregateID]map[eventid.ProductID]order.OrderItem),
	}
}

func (v *InventoryView) Name() string { return "InventoryView" }

func (v *InventoryView) Count(ctx context.Context) int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.demand)
}

// Get returns a copy of one product's demand counters.
func (v *InventoryView) Get(ctx context.Context, productID eventid.ProductID) (ProductDemand, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	d, ok := v.demand[productID]
	if !ok {
		return ProductDemand{}, false
	}
	return *d, true
}

func (v *InventoryView) Reset(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.demand = make(map[eventid.ProductID]*ProductDemand)
	v.orderStatus = make(map[eventid.AggregateID]orderBucket)
	v.orderItems = make(map[eventid.AggregateID]map[eventid.ProductID]order.OrderItem)
	v.position = projection.ProjectionPosition{}
	return nil
}

func (v *InventoryView) demandFor(productID eventid.ProductID) *ProductDemand {
	d, ok := v.demand[productID]
	if !ok {
		d = &ProductDemand{}
		v.demand[productID] = d
	}
	return d
}

func (v *InventoryView) cleanupOrder(orderID eventid.AggregateID) {
	delete(v.orderStatus, orderID)
	delete(v.orderItems, orderID)
}

func (v *InventoryView) Handle(ctx context.Context, envelope eventstore.EventEnvelope) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	defer v.advance()

	event, ok := decodeOrderEvent(envelope)
	if !ok {
		return nil
	}
	orderID := envelope.AggregateID

	switch e := event.(type) {
	case order.OrderCreated:
		v.orderStatus[orderID] = bucketActive
		v.orderItems[orderID] = make(map[eventid.ProductID]order.OrderItem)

	case order.ItemAdded:
		d := v.demandFor(e.Item.ProductID)
		d.TotalQuantityOrdered += uint64(e.Item.Quantity)
		d.QuantityInActiveOrders += uint64(e.Item.Quantity)
		d.OrderCount++
		if items := v.orderItems[orderID]; items != nil {
			items[e.Item.ProductID] = e.Item
		}

	case order.ItemRemoved:
		items := v.orderItems[orderID]
		item, ok := items[e.ProductID]
		if !ok {
			break
		}
		d := v.demandFor(e.ProductID)
		d.TotalQuantityOrdered = saturatingSub(d.TotalQuantityOrdered, uint64(item.Quantity))
		switch v.orderStatus[orderID] {
		case bucketReserved:
			d.QuantityReserved = saturatingSub(d.QuantityReserved, uint64(item.Quantity))
		default:
			d.QuantityInActiveOrders = saturatingSub(d.QuantityInActiveOrders, uint64(item.Quantity))
		}
		d.OrderCount = saturatingSub(d.OrderCount, 1)
		delete(items, e.ProductID)

	case order.ItemQuantityUpdated:
		items := v.orderItems[orderID]
		item, ok := items[e.ProductID]
		if !ok {
			break
		}
		d := v.demandFor(e.ProductID)
		delta := int64(e.NewQuantity) - int64(e.OldQuantity)
		d.TotalQuantityOrdered = applySignedDelta(d.TotalQuantityOrdered, delta)
		switch v.orderStatus[orderID] {
		case bucketReserved:
			d.QuantityReserved = applySignedDelta(d.QuantityReserved, delta)
		default:
			d.QuantityInActiveOrders = applySignedDelta(d.QuantityInActiveOrders, delta)
		}
		item.Quantity = e.NewQuantity
		items[e.ProductID] = item

	case order.OrderReserved:
		v.orderStatus[orderID] = bucketReserved
		for productID, item := range v.orderItems[orderID] {
			d := v.demandFor(productID)
			d.QuantityInActiveOrders = saturatingSub(d.QuantityInActiveOrders, uint64(item.Quantity))
			d.QuantityReserved += uint64(item.Quantity)
		}

	case order.OrderCompleted:
		bucket := v.orderStatus[orderID]
		for productID, item := range v.orderItems[orderID] {
			d := v.demandFor(productID)
			switch bucket {
			case bucketReserved:
				d.QuantityReserved = saturatingSub(d.QuantityReserved, uint64(item.Quantity))
			default:
				d.QuantityInActiveOrders = saturatingSub(d.QuantityInActiveOrders, uint64(item.Quantity))
			}
			d.QuantityCompleted += uint64(item.Quantity)
			d.TotalRevenue = d.TotalRevenue.Add(item.UnitPrice.Multiply(item.Quantity))
		}
		v.cleanupOrder(orderID)

	case order.OrderCancelled:
		bucket := v.orderStatus[orderID]
		for productID, item := range v.orderItems[orderID] {
			d := v.demandFor(productID)
			d.TotalQuantityOrdered = saturatingSub(d.TotalQuantityOrdered, uint64(item.Quantity))
			switch bucket {
			case bucketReserved:
				d.QuantityReserved = saturatingSub(d.QuantityReserved, uint64(item.Quantity))
			default:
				d.QuantityInActiveOrders = saturatingSub(d.QuantityInActiveOrders, uint64(item.Quantity))
			}
			d.OrderCount = saturatingSub(d.OrderCount, 1)
		}
		v.cleanupOrder(orderID)
	}

	return nil
}

// applySignedDelta adds delta to base, saturating at zero rather than
// wrapping if delta would drive it negative.
func applySignedDelta(base uint64, delta int64) uint64 {
	if delta >= 0 {
		return base + uint64(delta)
	}
	dec := uint64(-delta)
	return saturatingSub(base, dec)
}
