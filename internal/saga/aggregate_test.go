package saga_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maumercado/orderflow/internal/eventid"
	"github.com/maumercado/orderflow/internal/saga"
)

func TestInstance_DefaultIsNotStarted(t *testing.T) {
	instance := saga.New()
	assert.Equal(t, saga.StateNotStarted, instance.State())
	assert.Empty(t, instance.CompletedSteps())
}

func TestInstance_ApplySagaStarted(t *testing.T) {
	instance := saga.New()
	sagaID := eventid.NewAggregateID()
	orderID := eventid.NewAggregateID()

	instance.Apply(saga.SagaStarted{SagaID: sagaID, OrderID: orderID, SagaType: saga.OrderFulfillment})

	assert.Equal(t, orderID, instance.OrderID())
	assert.Equal(t, saga.OrderFulfillment, instance.SagaType())
	assert.Equal(t, saga.StateRunning, instance.State())
}

func TestInstance_StepLifecycle(t *testing.T) {
	instance := saga.New()
	instance.Apply(saga.SagaStarted{SagaID: eventid.NewAggregateID(), OrderID: eventid.NewAggregateID(), SagaType: saga.OrderFulfillment})

	res := "RES-123"
	instance.Apply(saga.StepStarted{StepName: saga.StepReserveInventory})
	instance.Apply(saga.StepCompleted{StepName: saga.StepReserveInventory, ReservationID: &res})
	assert.Equal(t, []string{saga.StepReserveInventory}, instance.CompletedSteps())
	require.NotNil(t, instance.ReservationID())
	assert.Equal(t, "RES-123", *instance.ReservationID())

	pay := "PAY-456"
	instance.Apply(saga.StepStarted{StepName: saga.StepProcessPayment})
	instance.Apply(saga.StepCompleted{StepName: saga.StepProcessPayment, PaymentID: &pay})
	assert.Len(t, instance.CompletedSteps(), 2)

	track := "TRACK-789"
	instance.Apply(saga.StepStarted{StepName: saga.StepCreateShipment})
	instance.Apply(saga.StepCompleted{StepName: saga.StepCreateShipment, TrackingNumber: &track})
	assert.Len(t, instance.CompletedSteps(), 3)

	instance.Apply(saga.SagaCompleted{})
	assert.Equal(t, saga.StateCompleted, instance.State())
	assert.True(t, instance.State().IsTerminal())
}

func TestInstance_StepFailureAndCompensation(t *testing.T) {
	instance := saga.New()
	instance.Apply(saga.SagaStarted{SagaID: eventid.NewAggregateID(), OrderID: eventid.NewAggregateID(), SagaType: saga.OrderFulfillment})

	res := "RES-123"
	instance.Apply(saga.StepStarted{StepName: saga.StepReserveInventory})
	instance.Apply(saga.StepCompleted{StepName: saga.StepReserveInventory, ReservationID: &res})

	instance.Apply(saga.StepStarted{StepName: saga.StepProcessPayment})
	instance.Apply(saga.StepFailed{StepName: saga.StepProcessPayment, Error: "insufficient funds"})
	require.NotNil(t, instance.FailureReason())
	assert.Equal(t, "insufficient funds", *instance.FailureReason())

	instance.Apply(saga.CompensationStarted{FromStep: saga.StepProcessPayment})
	assert.Equal(t, saga.StateCompensating, instance.State())

	instance.Apply(saga.CompensationStepCompleted{StepName: saga.StepReserveInventory})

	instance.Apply(saga.SagaFailed{Reason: "Payment failed: insufficient funds"})
	assert.Equal(t, saga.StateFailed, instance.State())
	assert.True(t, instance.State().IsTerminal())
	assert.Equal(t, "Payment failed: insufficient funds", *instance.FailureReason())
}

func TestInstance_CompensationStepFailureDoesNotChangeState(t *testing.T) {
	instance := saga.New()
	instance.Apply(saga.SagaStarted{SagaID: eventid.NewAggregateID(), OrderID: eventid.NewAggregateID(), SagaType: saga.OrderFulfillment})
	instance.Apply(saga.StepStarted{StepName: saga.StepReserveInventory})
	instance.Apply(saga.StepFailed{StepName: saga.StepReserveInventory, Error: "error"})
	instance.Apply(saga.CompensationStarted{FromStep: saga.StepReserveInventory})
	assert.Equal(t, saga.StateCompensating, instance.State())

	instance.Apply(saga.CompensationStepFailed{StepName: saga.StepReserveInventory, Error: "service unavailable"})
	assert.Equal(t, saga.StateCompensating, instance.State(), "compensation failures don't stop the chain")
}
