package saga_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maumercado/orderflow/internal/aggregate"
	"github.com/maumercado/orderflow/internal/eventid"
	"github.com/maumercado/orderflow/internal/eventstore"
	"github.com/maumercado/orderflow/internal/order"
	"github.com/maumercado/orderflow/internal/saga"
)

type coordinatorFixture struct {
	ctx         context.Context
	store       eventstore.EventStore
	orders      *aggregate.CommandHandler[*order.Order]
	inventory   *saga.InMemoryInventoryService
	payment     *saga.InMemoryPaymentService
	shipping    *saga.InMemoryShippingService
	coordinator *saga.Coordinator
}

func newCoordinatorFixture() *coordinatorFixture {
	store := eventstore.NewMemoryStore()
	inventory := saga.NewInMemoryInventoryService()
	payment := saga.NewInMemoryPaymentService()
	shipping := saga.NewInMemoryShippingService()
	return &coordinatorFixture{
		ctx:         context.Background(),
		store:       store,
		orders:      aggregate.NewCommandHandler(store, order.AggregateTypeName, order.Codec, order.New),
		inventory:   inventory,
		payment:     payment,
		shipping:    shipping,
		coordinator: saga.NewCoordinator(store, inventory, payment, shipping),
	}
}

func (f *coordinatorFixture) createOrderWithItems(t *testing.T) eventid.AggregateID {
	t.Helper()
	customerID := eventid.NewCustomerID()
	orderID := eventid.NewAggregateID()

	_, err := f.orders.Execute(f.ctx, orderID, order.Create(customerID))
	require.NoError(t, err)
	_, err = f.orders.Execute(f.ctx, orderID, order.AddItem(eventid.NewProductID("SKU-001"), "Widget", 2, eventid.MoneyFromDollars(10)))
	require.NoError(t, err)
	_, err = f.orders.Execute(f.ctx, orderID, order.AddItem(eventid.NewProductID("SKU-002"), "Gadget", 1, eventid.MoneyFromDollars(25)))
	require.NoError(t, err)
	return orderID
}

func TestExecuteSaga_HappyPath(t *testing.T) {
	f := newCoordinatorFixture()
	orderID := f.createOrderWithItems(t)

	sagaID, err := f.coordinator.ExecuteSaga(f.ctx, orderID)
	require.NoError(t, err)

	instance, ok, err := f.coordinator.GetSaga(f.ctx, sagaID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, saga.StateCompleted, instance.State())
	assert.Len(t, instance.CompletedSteps(), 3)
	assert.NotNil(t, instance.ReservationID())
	assert.NotNil(t, instance.PaymentID())
	assert.NotNil(t, instance.TrackingNumber())

	ord, err := f.orders.Load(f.ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, order.StateCompleted, ord.State())

	assert.Equal(t, 1, f.inventory.ReservationCount())
	assert.Equal(t, 1, f.payment.PaymentCount())
	assert.Equal(t, 1, f.shipping.ShipmentCount())
}

func TestExecuteSaga_InventoryFailureCompensatesNothing(t *testing.T) {
	f := newCoordinatorFixture()
	orderID := f.createOrderWithItems(t)
	f.inventory.SetFailOnReserve(true)

	sagaID, err := f.coordinator.ExecuteSaga(f.ctx, orderID)
	require.NoError(t, err)

	instance, ok, err := f.coordinator.GetSaga(f.ctx, sagaID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, saga.StateFailed, instance.State())
	assert.Empty(t, instance.CompletedSteps())

	ord, err := f.orders.Load(f.ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, order.StateCancelled, ord.State())

	assert.Equal(t, 0, f.inventory.ReservationCount())
	assert.Equal(t, 0, f.payment.PaymentCount())
	assert.Equal(t, 0, f.shipping.ShipmentCount())
}

func TestExecuteSaga_PaymentFailureReleasesReservation(t *testing.T) {
	f := newCoordinatorFixture()
	orderID := f.createOrderWithItems(t)
	f.payment.SetFailOnCharge(true)

	sagaID, err := f.coordinator.ExecuteSaga(f.ctx, orderID)
	require.NoError(t, err)

	instance, ok, err := f.coordinator.GetSaga(f.ctx, sagaID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, saga.StateFailed, instance.State())
	assert.Equal(t, []string{saga.StepReserveInventory}, instance.CompletedSteps())

	ord, err := f.orders.Load(f.ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, order.StateCancelled, ord.State())

	assert.Equal(t, 0, f.inventory.ReservationCount(), "reservation released during compensation")
	assert.Equal(t, 0, f.payment.PaymentCount())
	assert.Equal(t, 0, f.shipping.ShipmentCount())
}

func TestExecuteSaga_ShippingFailureCompensatesInventoryAndPayment(t *testing.T) {
	f := newCoordinatorFixture()
	orderID := f.createOrderWithItems(t)
	f.shipping.SetFailOnCreate(true)

	sagaID, err := f.coordinator.ExecuteSaga(f.ctx, orderID)
	require.NoError(t, err)

	instance, ok, err := f.coordinator.GetSaga(f.ctx, sagaID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, saga.StateFailed, instance.State())
	assert.Equal(t, []string{saga.StepReserveInventory, saga.StepProcessPayment}, instance.CompletedSteps())

	ord, err := f.orders.Load(f.ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, order.StateCancelled, ord.State())

	assert.Equal(t, 0, f.inventory.ReservationCount())
	assert.Equal(t, 0, f.payment.PaymentCount())
	assert.Equal(t, 0, f.shipping.ShipmentCount())
}

func TestExecuteSaga_OrderNotFound(t *testing.T) {
	f := newCoordinatorFixture()
	_, err := f.coordinator.ExecuteSaga(f.ctx, eventid.NewAggregateID())
	assert.ErrorIs(t, err, saga.ErrOrderNotFound)
}

func TestExecuteSaga_OrderWithoutItems(t *testing.T) {
	f := newCoordinatorFixture()
	orderID := eventid.NewAggregateID()
	_, err := f.orders.Execute(f.ctx, orderID, order.Create(eventid.NewCustomerID()))
	require.NoError(t, err)

	_, err = f.coordinator.ExecuteSaga(f.ctx, orderID)
	require.Error(t, err)
	var notReady *saga.OrderNotReadyError
	assert.ErrorAs(t, err, &notReady)
}

func TestGetSaga_Nonexistent(t *testing.T) {
	f := newCoordinatorFixture()
	_, ok, err := f.coordinator.GetSaga(f.ctx, eventid.NewAggregateID())
	require.NoError(t, err)
	assert.False(t, ok)
}
