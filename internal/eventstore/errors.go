package eventstore

import (
	"errors"
	"fmt"

	"github.com/maumercado/orderflow/internal/eventid"
)

// ConcurrencyConflictError is returned by Append when the aggregate's
// actual tail version does not match the expected version supplied by the
// caller, or when a (aggregate_id, version) pair already exists.
type ConcurrencyConflictError struct {
	Expected eventid.Version
	Actual   eventid.Version
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("concurrency conflict: expected version %d, actual %d", e.Expected, e.Actual)
}

// ValidationError is returned by Append when a batch is malformed before
// any storage access is attempted: empty, mixed aggregates, or
// non-consecutive versions.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "event batch validation failed: " + e.Reason
}

// BackendError wraps an underlying storage/I-O failure that isn't itself a
// domain-meaningful error (connection drop, context deadline, etc).
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("event store backend error during %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// SerializationError wraps a failure decoding a stored row back into an
// EventEnvelope or Snapshot — a corrupt id or malformed metadata/state blob.
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("event store serialization error: %v", e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// ErrAggregateNotFound is returned by anything that requires an existing
// aggregate (a non-empty stream) and finds none.
var ErrAggregateNotFound = errors.New("aggregate not found")

// ErrSnapshotNotFound indicates no snapshot has been saved for an aggregate.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// IsConcurrencyConflict reports whether err is (or wraps) a
// ConcurrencyConflictError.
func IsConcurrencyConflict(err error) bool {
	var conflict *ConcurrencyConflictError
	return errors.As(err, &conflict)
}
