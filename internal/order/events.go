package order

import (
	"time"

	"github.com/maumercado/orderflow/internal/eventid"
)

// OrderItem is one line item on an order: a product, its display name, the
// ordered quantity, and the unit price captured at the time it was added.
type OrderItem struct {
	ProductID   eventid.ProductID `json:"product_id"`
	ProductName string            `json:"product_name"`
	Quantity    uint32            `json:"quantity"`
	UnitPrice   eventid.Money     `json:"unit_price"`
}

// TotalPrice is this line's contribution to the order total.
func (i OrderItem) TotalPrice() eventid.Money {
	return i.UnitPrice.Multiply(i.Quantity)
}

// OrderCreated starts a new order for a customer, empty and in Draft.
type OrderCreated struct {
	OrderID    eventid.AggregateID `json:"order_id"`
	CustomerID eventid.CustomerID  `json:"customer_id"`
}

func (OrderCreated) EventType() string { return "OrderCreated" }

// ItemAdded records a new line item on a Draft order.
type ItemAdded struct {
	Item OrderItem `json:"item"`
}

func (ItemAdded) EventType() string { return "ItemAdded" }

// ItemRemoved records a line item taken off a Draft order.
type ItemRemoved struct {
	ProductID eventid.ProductID `json:"product_id"`
}

func (ItemRemoved) EventType() string { return "ItemRemoved" }

// ItemQuantityUpdated records a quantity change on an existing line item.
type ItemQuantityUpdated struct {
	ProductID   eventid.ProductID `json:"product_id"`
	OldQuantity uint32            `json:"old_quantity"`
	NewQuantity uint32            `json:"new_quantity"`
}

func (ItemQuantityUpdated) EventType() string { return "ItemQuantityUpdated" }

// OrderSubmitted records submission intent. It is state-neutral: the order
// stays in Draft until the fulfillment saga reserves it.
type OrderSubmitted struct {
	TotalAmount eventid.Money `json:"total_amount"`
	ItemCount   int           `json:"item_count"`
}

func (OrderSubmitted) EventType() string { return "OrderSubmitted" }

// OrderReserved moves the order from Draft to Reserved.
type OrderReserved struct {
	ReservationID string `json:"reservation_id"`
}

func (OrderReserved) EventType() string { return "OrderReserved" }

// OrderProcessing moves the order from Reserved to Processing.
type OrderProcessing struct {
	PaymentID string `json:"payment_id"`
}

func (OrderProcessing) EventType() string { return "OrderProcessing" }

// OrderCompleted moves the order from Processing to Completed.
type OrderCompleted struct {
	TrackingNumber *string   `json:"tracking_number,omitempty"`
	CompletedAt    time.Time `json:"completed_at"`
}

func (OrderCompleted) EventType() string { return "OrderCompleted" }

// OrderCancelled moves the order to Cancelled from any non-terminal state.
type OrderCancelled struct {
	Reason      string    `json:"reason"`
	Actor       *string   `json:"actor,omitempty"`
	CancelledAt time.Time `json:"cancelled_at"`
}

func (OrderCancelled) EventType() string { return "OrderCancelled" }
