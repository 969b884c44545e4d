package saga

import (
	"encoding/json"

	"github.com/maumercado/orderflow/internal/aggregate"
	"github.com/maumercado/orderflow/internal/eventid"
)

// AggregateTypeName is the event store's aggregate_type for every saga
// instance stream, regardless of which saga (today just OrderFulfillment)
// is running.
const AggregateTypeName = "OrderFulfillment"

// Instance is an event-sourced saga run. It tracks completed steps and
// the context accumulated while running them (reservation id, payment id,
// tracking number) so compensation knows what to undo.
type Instance struct {
	id             eventid.AggregateID
	version        eventid.Version
	sagaType       string
	orderID        eventid.AggregateID
	state          State
	currentStep    int
	completedSteps []string
	reservationID  *string
	paymentID      *string
	trackingNumber *string
	failureReason  *string
}

// New returns a fresh, unstarted saga instance for CommandHandler-style
// replay.
func New() *Instance { return &Instance{} }

func (i *Instance) AggregateType() string       { return AggregateTypeName }
func (i *Instance) ID() eventid.AggregateID     { return i.id }
func (i *Instance) Version() eventid.Version    { return i.version }
func (i *Instance) SetVersion(v eventid.Version) { i.version = v }

func (i *Instance) State() State              { return i.state }
func (i *Instance) OrderID() eventid.AggregateID { return i.orderID }
func (i *Instance) SagaType() string          { return i.sagaType }
func (i *Instance) CompletedSteps() []string  { return append([]string(nil), i.completedSteps...) }
func (i *Instance) ReservationID() *string    { return i.reservationID }
func (i *Instance) PaymentID() *string        { return i.paymentID }
func (i *Instance) TrackingNumber() *string   { return i.trackingNumber }
func (i *Instance) FailureReason() *string    { return i.failureReason }

// Apply folds one saga event into the instance. It never rejects an
// event — by the time an event reaches Apply it has already been
// persisted. Once the instance is terminal (Completed or Failed), further
// events are ignored.
func (i *Instance) Apply(event aggregate.Event) {
	if i.state.IsTerminal() {
		return
	}
	switch e := event.(type) {
	case SagaStarted:
		i.id = e.SagaID
		i.orderID = e.OrderID
		i.sagaType = e.SagaType
		i.state = StateRunning

	case StepStarted:
		i.currentStep++

	case StepCompleted:
		i.completedSteps = append(i.completedSteps, e.StepName)
		if e.ReservationID != nil {
			i.reservationID = e.ReservationID
		}
		if e.PaymentID != nil {
			i.paymentID = e.PaymentID
		}
		if e.TrackingNumber != nil {
			i.trackingNumber = e.TrackingNumber
		}

	case StepFailed:
		reason := e.Error
		i.failureReason = &reason

	case CompensationStarted:
		i.state = StateCompensating

	case CompensationStepCompleted:
		// Compensation step tracked on the stream but no state change.

	case CompensationStepFailed:
		// Compensation failures are recorded but never stop the chain.

	case SagaCompleted:
		i.state = StateCompleted

	case SagaFailed:
		i.state = StateFailed
		reason := e.Reason
		i.failureReason = &reason
	}
}

// snapshotState is Instance's JSON wire shape for MarshalJSON and
// UnmarshalJSON. Instance does not implement SnapshotCapable, so saga
// streams are never snapshotted; GetSaga rebuilds an instance by replay.
type snapshotState struct {
	ID             eventid.AggregateID `json:"id"`
	Version        eventid.Version     `json:"version"`
	SagaType       string              `json:"saga_type"`
	OrderID        eventid.AggregateID `json:"order_id"`
	State          State               `json:"state"`
	CurrentStep    int                 `json:"current_step"`
	CompletedSteps []string            `json:"completed_steps"`
	ReservationID  *string             `json:"reservation_id,omitempty"`
	PaymentID      *string             `json:"payment_id,omitempty"`
	TrackingNumber *string             `json:"tracking_number,omitempty"`
	FailureReason  *string             `json:"failure_reason,omitempty"`
}

func (i *Instance) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshotState{
		ID:             i.id,
		Version:        i.version,
		SagaType:       i.sagaType,
		OrderID:        i.orderID,
		State:          i.state,
		CurrentStep:    i.currentStep,
		CompletedSteps: i.completedSteps,
		ReservationID:  i.reservationID,
		PaymentID:      i.paymentID,
		TrackingNumber: i.trackingNumber,
		FailureReason:  i.failureReason,
	})
}

func (i *Instance) UnmarshalJSON(data []byte) error {
	var s snapshotState
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	i.id = s.ID
	i.version = s.Version
	i.sagaType = s.SagaType
	i.orderID = s.OrderID
	i.state = s.State
	i.currentStep = s.CurrentStep
	i.completedSteps = s.CompletedSteps
	i.reservationID = s.ReservationID
	i.paymentID = s.PaymentID
	i.trackingNumber = s.TrackingNumber
	i.failureReason = s.FailureReason
	return nil
}
