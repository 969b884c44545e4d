package order

import (
	"time"

	"github.com/maumercado/orderflow/internal/aggregate"
	"github.com/maumercado/orderflow/internal/eventid"
)

// Create returns a decide function that starts a new order for a customer.
// It must run against a never-persisted Order (no id yet); running it
// against an existing order is rejected.
func Create(customerID eventid.CustomerID) aggregate.Decide[*Order] {
	return func(o *Order) ([]aggregate.Event, error) {
		if !o.id.IsZero() {
			return nil, ErrAlreadyCreated
		}
		if customerID.IsZero() {
			return nil, ErrCustomerIDRequired
		}
		return []aggregate.Event{OrderCreated{
			OrderID:    eventid.NewAggregateID(),
			CustomerID: customerID,
		}}, nil
	}
}

// AddItem returns a decide function that adds a new line item, or — if the
// product is already on the order — folds the added quantity into the
// existing line via ItemQuantityUpdated instead of a second ItemAdded.
func AddItem(productID eventid.ProductID, productName string, quantity uint32, unitPrice eventid.Money) aggregate.Decide[*Order] {
	return func(o *Order) ([]aggregate.Event, error) {
		if !o.state.CanModifyItems() {
			return nil, &InvalidStateTransitionError{Current: o.state, Action: "add item to"}
		}
		if quantity == 0 {
			return nil, ErrInvalidQuantity
		}
		if !unitPrice.IsPositive() {
			return nil, ErrInvalidPrice
		}

		if existing, ok := o.items[productID]; ok {
			return []aggregate.Event{ItemQuantityUpdated{
				ProductID:   productID,
				OldQuantity: existing.Quantity,
				NewQuantity: existing.Quantity + quantity,
			}}, nil
		}

		return []aggregate.Event{ItemAdded{Item: OrderItem{
			ProductID:   productID,
			ProductName: productName,
			Quantity:    quantity,
			UnitPrice:   unitPrice,
		}}}, nil
	}
}

// RemoveItem returns a decide function that removes a line item entirely.
func RemoveItem(productID eventid.ProductID) aggregate.Decide[*Order] {
	return func(o *Order) ([]aggregate.Event, error) {
		if !o.state.CanModifyItems() {
			return nil, &InvalidStateTransitionError{Current: o.state, Action: "remove item from"}
		}
		if _, ok := o.items[productID]; !ok {
			return nil, ErrItemNotFound
		}
		return []aggregate.Event{ItemRemoved{ProductID: productID}}, nil
	}
}

// UpdateItemQuantity returns a decide function that changes a line item's
// quantity: to zero removes it, to the existing value is a no-op, and
// anything else emits ItemQuantityUpdated.
func UpdateItemQuantity(productID eventid.ProductID, newQuantity uint32) aggregate.Decide[*Order] {
	return func(o *Order) ([]aggregate.Event, error) {
		if !o.state.CanModifyItems() {
			return nil, &InvalidStateTransitionError{Current: o.state, Action: "update item quantity on"}
		}
		existing, ok := o.items[productID]
		if !ok {
			return nil, ErrItemNotFound
		}
		if newQuantity == existing.Quantity {
			return nil, nil
		}
		if newQuantity == 0 {
			return []aggregate.Event{ItemRemoved{ProductID: productID}}, nil
		}
		return []aggregate.Event{ItemQuantityUpdated{
			ProductID:   productID,
			OldQuantity: existing.Quantity,
			NewQuantity: newQuantity,
		}}, nil
	}
}

// Submit returns a decide function recording submission intent. It is a
// soft event: the order stays in Draft and the fulfillment saga drives the
// subsequent state transitions.
func Submit() aggregate.Decide[*Order] {
	return func(o *Order) ([]aggregate.Event, error) {
		if !o.state.CanSubmit() {
			return nil, &InvalidStateTransitionError{Current: o.state, Action: "submit"}
		}
		if len(o.items) == 0 {
			return nil, ErrNoItems
		}
		return []aggregate.Event{OrderSubmitted{
			TotalAmount: o.totalAmount,
			ItemCount:   len(o.items),
		}}, nil
	}
}

// MarkReserved returns a decide function transitioning Draft → Reserved.
func MarkReserved(reservationID string) aggregate.Decide[*Order] {
	return func(o *Order) ([]aggregate.Event, error) {
		if !o.state.CanReserve() {
			return nil, &InvalidStateTransitionError{Current: o.state, Action: "reserve"}
		}
		return []aggregate.Event{OrderReserved{ReservationID: reservationID}}, nil
	}
}

// StartProcessing returns a decide function transitioning Reserved → Processing.
func StartProcessing(paymentID string) aggregate.Decide[*Order] {
	return func(o *Order) ([]aggregate.Event, error) {
		if !o.state.CanStartProcessing() {
			return nil, &InvalidStateTransitionError{Current: o.state, Action: "start processing"}
		}
		return []aggregate.Event{OrderProcessing{PaymentID: paymentID}}, nil
	}
}

// Complete returns a decide function transitioning Processing → Completed.
func Complete(trackingNumber *string) aggregate.Decide[*Order] {
	return func(o *Order) ([]aggregate.Event, error) {
		if !o.state.CanComplete() {
			return nil, &InvalidStateTransitionError{Current: o.state, Action: "complete"}
		}
		return []aggregate.Event{OrderCompleted{
			TrackingNumber: trackingNumber,
			CompletedAt:    time.Now().UTC(),
		}}, nil
	}
}

// Cancel returns a decide function transitioning any non-terminal state to
// Cancelled.
func Cancel(reason string, actor *string) aggregate.Decide[*Order] {
	return func(o *Order) ([]aggregate.Event, error) {
		if !o.state.CanCancel() {
			return nil, &InvalidStateTransitionError{Current: o.state, Action: "cancel"}
		}
		return []aggregate.Event{OrderCancelled{
			Reason:      reason,
			Actor:       actor,
			CancelledAt: time.Now().UTC(),
		}}, nil
	}
}
