package saga_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maumercado/orderflow/internal/eventid"
	"github.com/maumercado/orderflow/internal/saga"
)

func TestInMemoryInventoryService_ReserveAndRelease(t *testing.T) {
	svc := saga.NewInMemoryInventoryService()
	orderID := eventid.NewAggregateID()
	items := []saga.ReservationItem{{ProductID: eventid.NewProductID("sku-1"), ProductName: "Widget", Quantity: 2}}

	reservationID, err := svc.Reserve(context.Background(), orderID, items)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(reservationID, "RES-"))
	assert.Equal(t, 1, svc.ReservationCount())
	assert.True(t, svc.HasReservation(reservationID))

	require.NoError(t, svc.Release(context.Background(), reservationID))
	assert.Equal(t, 0, svc.ReservationCount())
}

func TestInMemoryInventoryService_FailOnReserve(t *testing.T) {
	svc := saga.NewInMemoryInventoryService()
	svc.SetFailOnReserve(true)

	_, err := svc.Reserve(context.Background(), eventid.NewAggregateID(), nil)
	assert.Error(t, err)
	assert.Equal(t, 0, svc.ReservationCount())
}

func TestInMemoryInventoryService_SequentialIDs(t *testing.T) {
	svc := saga.NewInMemoryInventoryService()
	r1, err := svc.Reserve(context.Background(), eventid.NewAggregateID(), nil)
	require.NoError(t, err)
	r2, err := svc.Reserve(context.Background(), eventid.NewAggregateID(), nil)
	require.NoError(t, err)
	assert.Equal(t, "RES-0001", r1)
	assert.Equal(t, "RES-0002", r2)
}

func TestInMemoryPaymentService_ChargeAndRefund(t *testing.T) {
	svc := saga.NewInMemoryPaymentService()
	paymentID, err := svc.Charge(context.Background(), eventid.NewAggregateID(), eventid.NewCustomerID(), eventid.MoneyFromDollars(50))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(paymentID, "PAY-"))
	assert.Equal(t, 1, svc.PaymentCount())

	require.NoError(t, svc.Refund(context.Background(), paymentID))
	assert.Equal(t, 0, svc.PaymentCount())
}

func TestInMemoryPaymentService_FailOnCharge(t *testing.T) {
	svc := saga.NewInMemoryPaymentService()
	svc.SetFailOnCharge(true)
	_, err := svc.Charge(context.Background(), eventid.NewAggregateID(), eventid.NewCustomerID(), eventid.MoneyFromDollars(10))
	assert.Error(t, err)
	assert.Equal(t, 0, svc.PaymentCount())
}

func TestInMemoryShippingService_CreateAndCancel(t *testing.T) {
	svc := saga.NewInMemoryShippingService()
	trackingNumber, err := svc.CreateShipment(context.Background(), eventid.NewAggregateID())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(trackingNumber, "TRACK-"))
	assert.Equal(t, 1, svc.ShipmentCount())

	require.NoError(t, svc.CancelShipment(context.Background(), trackingNumber))
	assert.Equal(t, 0, svc.ShipmentCount())
}

func TestInMemoryShippingService_FailOnCreate(t *testing.T) {
	svc := saga.NewInMemoryShippingService()
	svc.SetFailOnCreate(true)
	_, err := svc.CreateShipment(context.Background(), eventid.NewAggregateID())
	assert.Error(t, err)
	assert.Equal(t, 0, svc.ShipmentCount())
}
