// Package eventid defines the opaque identifier and monetary value types
// shared across the event store, aggregates, and projections.
package eventid

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// AggregateID uniquely identifies one aggregate instance (an order, a saga
// run, ...). It wraps a UUID so aggregate IDs can't be mixed up with other
// UUID-based identifiers at compile time.
type AggregateID struct {
	id uuid.UUID
}

// NewAggregateID creates a new random aggregate ID.
func NewAggregateID() AggregateID {
	return AggregateID{id: uuid.New()}
}

// AggregateIDFromUUID wraps an existing UUID as an aggregate ID.
func AggregateIDFromUUID(id uuid.UUID) AggregateID {
	return AggregateID{id: id}
}

// ParseAggregateID parses a string form into an AggregateID.
func ParseAggregateID(s string) (AggregateID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return AggregateID{}, fmt.Errorf("parse aggregate id: %w", err)
	}
	return AggregateID{id: id}, nil
}

func (a AggregateID) UUID() uuid.UUID { return a.id }
func (a AggregateID) String() string  { return a.id.String() }
func (a AggregateID) IsZero() bool    { return a.id == uuid.Nil }

func (a AggregateID) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.id.String())
}

func (a *AggregateID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	a.id = id
	return nil
}

// EventID uniquely identifies one event envelope.
type EventID struct {
	id uuid.UUID
}

// NewEventID creates a new random event ID.
func NewEventID() EventID {
	return EventID{id: uuid.New()}
}

func ParseEventID(s string) (EventID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return EventID{}, fmt.Errorf("parse event id: %w", err)
	}
	return EventID{id: id}, nil
}

func (e EventID) UUID() uuid.UUID { return e.id }
func (e EventID) String() string  { return e.id.String() }
func (e EventID) IsZero() bool    { return e.id == uuid.Nil }

func (e EventID) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.id.String())
}

func (e *EventID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	e.id = id
	return nil
}

// CustomerID identifies a customer placing orders.
type CustomerID struct {
	id uuid.UUID
}

// NewCustomerID creates a new random customer ID.
func NewCustomerID() CustomerID {
	return CustomerID{id: uuid.New()}
}

func CustomerIDFromUUID(id uuid.UUID) CustomerID {
	return CustomerID{id: id}
}

func ParseCustomerID(s string) (CustomerID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return CustomerID{}, fmt.Errorf("parse customer id: %w", err)
	}
	return CustomerID{id: id}, nil
}

func (c CustomerID) UUID() uuid.UUID { return c.id }
func (c CustomerID) String() string  { return c.id.String() }
func (c CustomerID) IsZero() bool    { return c.id == uuid.Nil }

func (c CustomerID) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.id.String())
}

func (c *CustomerID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	c.id = id
	return nil
}

// ProductID is an opaque product SKU string.
type ProductID string

func NewProductID(id string) ProductID { return ProductID(id) }
func (p ProductID) String() string     { return string(p) }
