package saga

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/maumercado/orderflow/internal/aggregate"
	"github.com/maumercado/orderflow/internal/eventid"
	"github.com/maumercado/orderflow/internal/eventstore"
	"github.com/maumercado/orderflow/internal/order"
)

// Coordinator orchestrates the OrderFulfillment saga: reserve inventory,
// charge payment, create a shipment, advancing the order's own state
// alongside each step, and compensating in reverse order the first time a
// step fails. The saga instance itself is event-sourced, so a crash
// mid-run can be replayed from GetSaga instead of re-derived from guesses.
type Coordinator struct {
	store    eventstore.EventStore
	orders   *aggregate.CommandHandler[*order.Order]
	inventory InventoryService
	payment   PaymentService
	shipping  ShippingService
}

// NewCoordinator wires a Coordinator against a shared event store and the
// three external services a fulfillment run depends on.
func NewCoordinator(store eventstore.EventStore, inventory InventoryService, payment PaymentService, shipping ShippingService) *Coordinator {
	return &Coordinator{
		store:     store,
		orders:    aggregate.NewCommandHandler(store, order.AggregateTypeName, order.Codec, order.New),
		inventory: inventory,
		payment:   payment,
		shipping:  shipping,
	}
}

// ExecuteSaga runs an OrderFulfillment saga for orderID to completion, one
// way or the other: it returns the new saga's id whether the run ends in
// SagaCompleted or SagaFailed-after-compensation. An error return means
// the order wasn't found or wasn't ready (no saga was started), or an
// event store write or order command failed, which can leave a started
// saga stream without a terminal event.
func (c *Coordinator) ExecuteSaga(ctx context.Context, orderID eventid.AggregateID) (eventid.AggregateID, error) {
	ord, existed, err := c.orders.LoadExisting(ctx, orderID)
	if err != nil {
		return eventid.AggregateID{}, fmt.Errorf("load order: %w", err)
	}
	if !existed {
		return eventid.AggregateID{}, ErrOrderNotFound
	}
	if ord.State() != order.StateDraft {
		return eventid.AggregateID{}, &OrderNotReadyError{Reason: fmt.Sprintf("order is in %s state, expected Draft", ord.State())}
	}
	if ord.ItemCount() == 0 {
		return eventid.AggregateID{}, &OrderNotReadyError{Reason: "order has no items"}
	}
	customerID, ok := ord.CustomerID()
	if !ok {
		return eventid.AggregateID{}, &OrderNotReadyError{Reason: "order has no customer id"}
	}
	totalAmount := ord.TotalAmount()

	items := make([]ReservationItem, 0, ord.ItemCount())
	for productID, item := range ord.Items() {
		items = append(items, ReservationItem{ProductID: productID, ProductName: item.ProductName, Quantity: item.Quantity})
	}

	if _, err := c.orders.Execute(ctx, orderID, order.Submit()); err != nil {
		return eventid.AggregateID{}, fmt.Errorf("submit order: %w", err)
	}

	sagaID := eventid.NewAggregateID()
	version := eventid.VersionInitial
	instance := New()

	started := SagaStarted{SagaID: sagaID, OrderID: orderID, SagaType: OrderFulfillment, StartedAt: time.Now().UTC()}
	version, err = c.appendSagaEvent(ctx, sagaID, version, started)
	if err != nil {
		return eventid.AggregateID{}, err
	}
	instance.Apply(started)

	// Step 1: reserve inventory.
	log.Printf("🔄 saga %s: step started: %s", sagaID, StepReserveInventory)
	step1Started := StepStarted{StepName: StepReserveInventory}
	if version, err = c.appendSagaEvent(ctx, sagaID, version, step1Started); err != nil {
		return eventid.AggregateID{}, err
	}
	instance.Apply(step1Started)

	reservationID, reserveErr := c.inventory.Reserve(ctx, orderID, items)
	if reserveErr != nil {
		step1Failed := StepFailed{StepName: StepReserveInventory, Error: reserveErr.Error()}
		if version, err = c.appendSagaEvent(ctx, sagaID, version, step1Failed); err != nil {
			return eventid.AggregateID{}, err
		}
		instance.Apply(step1Failed)
		log.Printf("❌ saga %s: step failed: %s: %v", sagaID, StepReserveInventory, reserveErr)
		if err := c.compensate(ctx, instance, sagaID, &version, orderID, StepReserveInventory); err != nil {
			return eventid.AggregateID{}, err
		}
		return sagaID, nil
	}
	step1Completed := StepCompleted{StepName: StepReserveInventory, ReservationID: &reservationID}
	if version, err = c.appendSagaEvent(ctx, sagaID, version, step1Completed); err != nil {
		return eventid.AggregateID{}, err
	}
	instance.Apply(step1Completed)
	if _, err := c.orders.Execute(ctx, orderID, order.MarkReserved(reservationID)); err != nil {
		return eventid.AggregateID{}, fmt.Errorf("mark order reserved: %w", err)
	}

	// Step 2: process payment.
	log.Printf("🔄 saga %s: step started: %s", sagaID, StepProcessPayment)
	step2Started := StepStarted{StepName: StepProcessPayment}
	if version, err = c.appendSagaEvent(ctx, sagaID, version, step2Started); err != nil {
		return eventid.AggregateID{}, err
	}
	instance.Apply(step2Started)

	paymentID, chargeErr := c.payment.Charge(ctx, orderID, customerID, totalAmount)
	if chargeErr != nil {
		step2Failed := StepFailed{StepName: StepProcessPayment, Error: chargeErr.Error()}
		if version, err = c.appendSagaEvent(ctx, sagaID, version, step2Failed); err != nil {
			return eventid.AggregateID{}, err
		}
		instance.Apply(step2Failed)
		log.Printf("❌ saga %s: step failed: %s: %v", sagaID, StepProcessPayment, chargeErr)
		if err := c.compensate(ctx, instance, sagaID, &version, orderID, StepProcessPayment); err != nil {
			return eventid.AggregateID{}, err
		}
		return sagaID, nil
	}
	step2Completed := StepCompleted{StepName: StepProcessPayment, PaymentID: &paymentID}
	if version, err = c.appendSagaEvent(ctx, sagaID, version, step2Completed); err != nil {
		return eventid.AggregateID{}, err
	}
	instance.Apply(step2Completed)
	if _, err := c.orders.Execute(ctx, orderID, order.StartProcessing(paymentID)); err != nil {
		return eventid.AggregateID{}, fmt.Errorf("start order processing: %w", err)
	}

	// Step 3: create shipment.
	log.Printf("🔄 saga %s: step started: %s", sagaID, StepCreateShipment)
	step3Started := StepStarted{StepName: StepCreateShipment}
	if version, err = c.appendSagaEvent(ctx, sagaID, version, step3Started); err != nil {
		return eventid.AggregateID{}, err
	}
	instance.Apply(step3Started)

	trackingNumber, shipErr := c.shipping.CreateShipment(ctx, orderID)
	if shipErr != nil {
		step3Failed := StepFailed{StepName: StepCreateShipment, Error: shipErr.Error()}
		if version, err = c.appendSagaEvent(ctx, sagaID, version, step3Failed); err != nil {
			return eventid.AggregateID{}, err
		}
		instance.Apply(step3Failed)
		log.Printf("❌ saga %s: step failed: %s: %v", sagaID, StepCreateShipment, shipErr)
		if err := c.compensate(ctx, instance, sagaID, &version, orderID, StepCreateShipment); err != nil {
			return eventid.AggregateID{}, err
		}
		return sagaID, nil
	}
	step3Completed := StepCompleted{StepName: StepCreateShipment, TrackingNumber: &trackingNumber}
	if version, err = c.appendSagaEvent(ctx, sagaID, version, step3Completed); err != nil {
		return eventid.AggregateID{}, err
	}
	instance.Apply(step3Completed)
	if _, err := c.orders.Execute(ctx, orderID, order.Complete(&trackingNumber)); err != nil {
		return eventid.AggregateID{}, fmt.Errorf("complete order: %w", err)
	}

	completed := SagaCompleted{CompletedAt: time.Now().UTC()}
	if _, err = c.appendSagaEvent(ctx, sagaID, version, completed); err != nil {
		return eventid.AggregateID{}, err
	}
	log.Printf("✅ saga %s: completed", sagaID)

	return sagaID, nil
}

// compensate runs compensating actions over every step instance has
// already completed, in reverse order, then cancels the order and records
// SagaFailed. A compensating action failing is itself recorded but never
// stops the chain — the remaining steps still get a chance to undo their
// work. failedStep names the step whose failure triggered compensation.
func (c *Coordinator) compensate(ctx context.Context, instance *Instance, sagaID eventid.AggregateID, version *eventid.Version, orderID eventid.AggregateID, failedStep string) error {
	reason := "unknown"
	if instance.FailureReason() != nil {
		reason = *instance.FailureReason()
	}

	compStarted := CompensationStarted{FromStep: failedStep}
	v, err := c.appendSagaEvent(ctx, sagaID, *version, compStarted)
	if err != nil {
		return err
	}
	*version = v
	instance.Apply(compStarted)

	completedSteps := instance.CompletedSteps()
	for i := len(completedSteps) - 1; i >= 0; i-- {
		step := completedSteps[i]
		var compErr error
		switch step {
		case StepCreateShipment:
			if tn := instance.TrackingNumber(); tn != nil {
				compErr = c.shipping.CancelShipment(ctx, *tn)
			}
		case StepProcessPayment:
			if pid := instance.PaymentID(); pid != nil {
				compErr = c.payment.Refund(ctx, *pid)
			}
		case StepReserveInventory:
			if rid := instance.ReservationID(); rid != nil {
				compErr = c.inventory.Release(ctx, *rid)
			}
		default:
			continue
		}

		var event aggregate.Event
		if compErr != nil {
			log.Printf("❌ saga %s: compensation step failed: %s: %v", sagaID, step, compErr)
			event = CompensationStepFailed{StepName: step, Error: compErr.Error()}
		} else {
			event = CompensationStepCompleted{StepName: step}
		}
		v, err := c.appendSagaEvent(ctx, sagaID, *version, event)
		if err != nil {
			return err
		}
		*version = v
		instance.Apply(event)
	}

	actor := "saga_coordinator"
	if _, err := c.orders.Execute(ctx, orderID, order.Cancel(fmt.Sprintf("Saga failed: %s", failedStep), &actor)); err != nil {
		return fmt.Errorf("cancel order during compensation: %w", err)
	}

	failed := SagaFailed{Reason: fmt.Sprintf("Step failed: %s", reason), FailedAt: time.Now().UTC()}
	if _, err := c.appendSagaEvent(ctx, sagaID, *version, failed); err != nil {
		return err
	}
	instance.Apply(failed)

	log.Printf("🔙 saga %s: failed, order %s cancelled, reason: %s", sagaID, orderID, reason)
	return nil
}

// GetSaga replays a saga instance's full event stream. It returns false
// if sagaID has no events.
func (c *Coordinator) GetSaga(ctx context.Context, sagaID eventid.AggregateID) (*Instance, bool, error) {
	events, err := c.store.GetEventsForAggregate(ctx, sagaID)
	if err != nil {
		return nil, false, err
	}
	if len(events) == 0 {
		return nil, false, nil
	}
	instance := New()
	for _, envelope := range events {
		event, err := Codec.Decode(envelope.EventType, envelope.Payload)
		if err != nil {
			return nil, false, fmt.Errorf("decode saga event: %w", err)
		}
		instance.Apply(event)
		instance.SetVersion(envelope.Version)
	}
	return instance, true, nil
}

// appendSagaEvent appends one saga event and returns the resulting tail
// version. Saga streams are written one event at a time, interleaved with
// the external service calls each step makes, rather than in one batch
// the way CommandHandler.Execute appends an aggregate command's events.
func (c *Coordinator) appendSagaEvent(ctx context.Context, sagaID eventid.AggregateID, currentVersion eventid.Version, event aggregate.Event) (eventid.Version, error) {
	payload, err := Codec.Encode(event)
	if err != nil {
		return currentVersion, fmt.Errorf("encode %s: %w", event.EventType(), err)
	}
	envelope := eventstore.EventEnvelope{
		EventID:       eventid.NewEventID(),
		EventType:     event.EventType(),
		AggregateID:   sagaID,
		AggregateType: AggregateTypeName,
		Version:       currentVersion + 1,
		Timestamp:     time.Now().UTC(),
		Payload:       payload,
	}
	return c.store.Append(ctx, []eventstore.EventEnvelope{envelope}, eventstore.ExpectVersion(currentVersion))
}
