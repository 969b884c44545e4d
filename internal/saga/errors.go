package saga

import "fmt"

// ErrOrderNotFound is returned by ExecuteSaga when no order exists with
// the given id.
var ErrOrderNotFound = fmt.Errorf("order not found")

// ErrAlreadyStarted reports a saga instance that has already recorded a
// SagaStarted event. ExecuteSaga always starts a new saga instance and
// does not return it.
var ErrAlreadyStarted = fmt.Errorf("saga has already been started")

// OrderNotReadyError is returned when an order fails the preconditions
// ExecuteSaga checks before starting: must be Draft, must have items,
// must carry a customer id.
type OrderNotReadyError struct {
	Reason string
}

func (e *OrderNotReadyError) Error() string {
	return fmt.Sprintf("order not ready: %s", e.Reason)
}

// InventoryServiceError wraps a failure from the inventory service's
// Reserve call.
type InventoryServiceError struct {
	Reason string
}

func (e *InventoryServiceError) Error() string {
	return fmt.Sprintf("inventory service error: %s", e.Reason)
}

// PaymentServiceError wraps a failure from the payment service's Charge
// call.
type PaymentServiceError struct {
	Reason string
}

func (e *PaymentServiceError) Error() string {
	return fmt.Sprintf("payment service error: %s", e.Reason)
}

// ShippingServiceError wraps a failure from the shipping service's
// CreateShipment call.
type ShippingServiceError struct {
	Reason string
}

func (e *ShippingServiceError) Error() string {
	return fmt.Sprintf("shipping service error: %s", e.Reason)
}
