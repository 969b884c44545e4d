package saga

import (
	"time"

	"github.com/maumercado/orderflow/internal/eventid"
)

// SagaStarted records that a new saga instance has begun running against
// an order.
type SagaStarted struct {
	SagaID    eventid.AggregateID
	OrderID   eventid.AggregateID
	SagaType  string
	StartedAt time.Time
}

func (SagaStarted) EventType() string { return "SagaStarted" }

// StepStarted records that the coordinator is about to invoke the named
// step's external service call.
type StepStarted struct {
	StepName string
}

func (StepStarted) EventType() string { return "StepStarted" }

// StepCompleted records a step's external call succeeding. Exactly one of
// ReservationID, PaymentID, TrackingNumber is set, matching the step that
// produced it.
type StepCompleted struct {
	StepName       string
	ReservationID  *string
	PaymentID      *string
	TrackingNumber *string
}

func (StepCompleted) EventType() string { return "StepCompleted" }

// StepFailed records a step's external call returning an error, which
// triggers compensation.
type StepFailed struct {
	StepName string
	Error    string
}

func (StepFailed) EventType() string { return "StepFailed" }

// CompensationStarted records the beginning of the compensation chain,
// naming the step whose failure triggered it.
type CompensationStarted struct {
	FromStep string
}

func (CompensationStarted) EventType() string { return "CompensationStarted" }

// CompensationStepCompleted records one compensating action (release,
// refund, cancel shipment) succeeding.
type CompensationStepCompleted struct {
	StepName string
}

func (CompensationStepCompleted) EventType() string { return "CompensationStepCompleted" }

// CompensationStepFailed records one compensating action failing. This
// does not halt the compensation chain — the remaining steps still run.
type CompensationStepFailed struct {
	StepName string
	Error    string
}

func (CompensationStepFailed) EventType() string { return "CompensationStepFailed" }

// SagaCompleted is the terminal success event: every step ran and
// succeeded.
type SagaCompleted struct {
	CompletedAt time.Time
}

func (SagaCompleted) EventType() string { return "SagaCompleted" }

// SagaFailed is the terminal failure event: a step failed and compensation
// has finished running (regardless of whether every compensating action
// itself succeeded).
type SagaFailed struct {
	Reason   string
	FailedAt time.Time
}

func (SagaFailed) EventType() string { return "SagaFailed" }
