package saga

// OrderFulfillment is the saga type name for the one saga this service
// runs: reserve inventory, charge payment, create a shipment, in that
// order, compensating in reverse on the first failure.
const OrderFulfillment = "OrderFulfillment"

// Step names, used both as the StepName carried on saga events and as the
// case labels compensate walks in reverse.
const (
	StepReserveInventory = "reserve_inventory"
	StepProcessPayment   = "process_payment"
	StepCreateShipment   = "create_shipment"
)
