package saga

import (
	"context"
	"fmt"
	"sync"

	"github.com/maumercado/orderflow/internal/eventid"
)

// ReservationItem is one line item the coordinator asks InventoryService
// to reserve stock for.
type ReservationItem struct {
	ProductID   eventid.ProductID
	ProductName string
	Quantity    uint32
}

// InventoryService reserves and releases stock on the coordinator's
// behalf. A real implementation would call out to a warehouse system;
// InMemoryInventoryService stands in for tests and local runs.
type InventoryService interface {
	Reserve(ctx context.Context, orderID eventid.AggregateID, items []ReservationItem) (reservationID string, err error)
	Release(ctx context.Context, reservationID string) error
}

// PaymentService charges and refunds a customer on the coordinator's
// behalf.
type PaymentService interface {
	Charge(ctx context.Context, orderID eventid.AggregateID, customerID eventid.CustomerID, amount eventid.Money) (paymentID string, err error)
	Refund(ctx context.Context, paymentID string) error
}

// ShippingService creates and cancels shipments on the coordinator's
// behalf.
type ShippingService interface {
	CreateShipment(ctx context.Context, orderID eventid.AggregateID) (trackingNumber string, err error)
	CancelShipment(ctx context.Context, trackingNumber string) error
}

// InMemoryInventoryService is a fake InventoryService for tests and local
// runs: it hands out sequential RES-nnnn ids, and while SetFailOnReserve
// is on, every Reserve call fails.
type InMemoryInventoryService struct {
	mu            sync.Mutex
	reservations  map[string][]ReservationItem
	nextID        uint32
	failOnReserve bool
}

func NewInMemoryInventoryService() *InMemoryInventoryService {
	return &InMemoryInventoryService{reservations: make(map[string][]ReservationItem)}
}

func (s *InMemoryInventoryService) SetFailOnReserve(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOnReserve = fail
}

func (s *InMemoryInventoryService) ReservationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reservations)
}

func (s *InMemoryInventoryService) HasReservation(reservationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.reservations[reservationID]
	return ok
}

func (s *InMemoryInventoryService) Reserve(ctx context.Context, orderID eventid.AggregateID, items []ReservationItem) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOnReserve {
		return "", &InventoryServiceError{Reason: "insufficient stock"}
	}
	s.nextID++
	reservationID := fmt.Sprintf("RES-%04d", s.nextID)
	s.reservations[reservationID] = items
	return reservationID, nil
}

func (s *InMemoryInventoryService) Release(ctx context.Context, reservationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reservations, reservationID)
	return nil
}

// InMemoryPaymentService is a fake PaymentService for tests and local
// runs.
type InMemoryPaymentService struct {
	mu           sync.Mutex
	payments     map[string]eventid.Money
	nextID       uint32
	failOnCharge bool
}

func NewInMemoryPaymentService() *InMemoryPaymentService {
	return &InMemoryPaymentService{payments: make(map[string]eventid.Money)}
}

func (s *InMemoryPaymentService) SetFailOnCharge(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOnCharge = fail
}

func (s *InMemoryPaymentService) PaymentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payments)
}

func (s *InMemoryPaymentService) HasPayment(paymentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.payments[paymentID]
	return ok
}

func (s *InMemoryPaymentService) Charge(ctx context.Context, orderID eventid.AggregateID, customerID eventid.CustomerID, amount eventid.Money) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOnCharge {
		return "", &PaymentServiceError{Reason: "payment declined"}
	}
	s.nextID++
	paymentID := fmt.Sprintf("PAY-%04d", s.nextID)
	s.payments[paymentID] = amount
	return paymentID, nil
}

func (s *InMemoryPaymentService) Refund(ctx context.Context, paymentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.payments, paymentID)
	return nil
}

// InMemoryShippingService is a fake ShippingService for tests and local
// runs.
type InMemoryShippingService struct {
	mu           sync.Mutex
	shipments    map[string]eventid.AggregateID
	nextID       uint32
	failOnCreate bool
}

func NewInMemoryShippingService() *InMemoryShippingService {
	return &InMemoryShippingService{shipments: make(map[string]eventid.AggregateID)}
}

func (s *InMemoryShippingService) SetFailOnCreate(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOnCreate = fail
}

func (s *InMemoryShippingService) ShipmentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.shipments)
}

func (s *InMemoryShippingService) HasShipment(trackingNumber string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.shipments[trackingNumber]
	return ok
}

func (s *InMemoryShippingService) CreateShipment(ctx context.Context, orderID eventid.AggregateID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOnCreate {
		return "", &ShippingServiceError{Reason: "shipping unavailable"}
	}
	s.nextID++
	trackingNumber := fmt.Sprintf("TRACK-%04d", s.nextID)
	s.shipments[trackingNumber] = orderID
	return trackingNumber, nil
}

func (s *InMemoryShippingService) CancelShipment(ctx context.Context, trackingNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.shipments, trackingNumber)
	return nil
}
