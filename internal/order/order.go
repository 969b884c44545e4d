package order

import (
	"encoding/json"

	"github.com/maumercado/orderflow/internal/aggregate"
	"github.com/maumercado/orderflow/internal/eventid"
)

// AggregateTypeName is the stable aggregate_type stored on every Order
// event envelope.
const AggregateTypeName = "Order"

// SnapshotIntervalOrder overrides the default CommandHandler snapshot
// cadence: orders accumulate many small item-level events, so a tighter
// interval keeps replay cheap.
const SnapshotIntervalOrder = 50

// Order is the event-sourced order aggregate: a customer's draft or
// submitted order through reservation, processing, and completion or
// cancellation.
type Order struct {
	id          eventid.AggregateID
	version     eventid.Version
	customerID  eventid.CustomerID
	hasCustomer bool
	state       State
	items       map[eventid.ProductID]OrderItem
	totalAmount eventid.Money
}

// New returns an empty, unpersisted Order ready for Load to replay into or
// for Create to initialize.
func New() *Order {
	return &Order{items: make(map[eventid.ProductID]OrderItem)}
}

func (o *Order) AggregateType() string           { return AggregateTypeName }
func (o *Order) ID() eventid.AggregateID          { return o.id }
func (o *Order) Version() eventid.Version         { return o.version }
func (o *Order) SetVersion(v eventid.Version)     { o.version = v }
func (o *Order) SnapshotInterval() int            { return SnapshotIntervalOrder }
func (o *Order) State() State                     { return o.state }
func (o *Order) TotalAmount() eventid.Money       { return o.totalAmount }
func (o *Order) ItemCount() int                   { return len(o.items) }
func (o *Order) CustomerID() (eventid.CustomerID, bool) {
	return o.customerID, o.hasCustomer
}

// Items returns a defensive copy of the current line items, keyed by
// product.
func (o *Order) Items() map[eventid.ProductID]OrderItem {
	out := make(map[eventid.ProductID]OrderItem, len(o.items))
	for k, v := range o.items {
		out[k] = v
	}
	return out
}

// Apply mutates Order state from one decoded event. It never fails: by
// construction every event reaching here was produced by this aggregate's
// own decide logic (here or on a prior run).
func (o *Order) Apply(event aggregate.Event) {
	if o.items == nil {
		o.items = make(map[eventid.ProductID]OrderItem)
	}
	switch e := event.(type) {
	case OrderCreated:
		o.id = e.OrderID
		o.customerID = e.CustomerID
		o.hasCustomer = true
		o.state = StateDraft
	case ItemAdded:
		o.items[e.Item.ProductID] = e.Item
		o.totalAmount = o.totalAmount.Add(e.Item.TotalPrice())
	case ItemRemoved:
		if item, ok := o.items[e.ProductID]; ok {
			o.totalAmount = o.totalAmount.Subtract(item.TotalPrice())
			delete(o.items, e.ProductID)
		}
	case ItemQuantityUpdated:
		item, ok := o.items[e.ProductID]
		if !ok {
			return
		}
		o.totalAmount = o.totalAmount.Subtract(item.TotalPrice())
		item.Quantity = e.NewQuantity
		o.items[e.ProductID] = item
		o.totalAmount = o.totalAmount.Add(item.TotalPrice())
	case OrderSubmitted:
		// state-neutral: recorded intent only.
	case OrderReserved:
		o.state = StateReserved
	case OrderProcessing:
		o.state = StateProcessing
	case OrderCompleted:
		o.state = StateCompleted
	case OrderCancelled:
		o.state = StateCancelled
	}
}

// orderSnapshot is the JSON shape Order serializes to/from for snapshots,
// since Order's own fields are unexported to keep Version()/State()
// as methods rather than colliding field names.
type orderSnapshot struct {
	ID          eventid.AggregateID          `json:"id"`
	Version     eventid.Version              `json:"version"`
	CustomerID  eventid.CustomerID           `json:"customer_id,omitempty"`
	HasCustomer bool                         `json:"has_customer"`
	State       State                        `json:"state"`
	Items       map[eventid.ProductID]OrderItem `json:"items"`
	TotalAmount eventid.Money                `json:"total_amount"`
}

func (o *Order) MarshalJSON() ([]byte, error) {
	return json.Marshal(orderSnapshot{
		ID:          o.id,
		Version:     o.version,
		CustomerID:  o.customerID,
		HasCustomer: o.hasCustomer,
		State:       o.state,
		Items:       o.items,
		TotalAmount: o.totalAmount,
	})
}

func (o *Order) UnmarshalJSON(data []byte) error {
	var snap orderSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	o.id = snap.ID
	o.version = snap.Version
	o.customerID = snap.CustomerID
	o.hasCustomer = snap.HasCustomer
	o.state = snap.State
	o.items = snap.Items
	if o.items == nil {
		o.items = make(map[eventid.ProductID]OrderItem)
	}
	o.totalAmount = snap.TotalAmount
	return nil
}
