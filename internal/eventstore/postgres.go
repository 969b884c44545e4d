package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/maumercado/orderflow/internal/eventid"
)

// SQLStore is the Postgres-backed EventStore. One row per event lives in
// `events`, enforced unique on (aggregate_id, version) by the
// unique_aggregate_version index; one row per aggregate lives in
// `snapshots`, upserted on save. See SPEC_FULL.md §6 for the schema.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore wraps an already-connected *sql.DB. Connection retry and
// SetMaxOpenConns (DB_MAX_CONNECTIONS) are the bootstrap layer's job, not
// this constructor's.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

const uniqueAggregateVersionConstraint = "unique_aggregate_version"

func (s *SQLStore) Append(ctx context.Context, events []EventEnvelope, opts AppendOptions) (eventid.Version, error) {
	if err := ValidateEventsForAppend(events); err != nil {
		return 0, err
	}

	aggregateID := events[0].AggregateID

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &BackendError{Op: "begin append tx", Err: err}
	}
	defer tx.Rollback() //nolint:errcheck

	var actualRaw sql.NullInt64
	err = tx.QueryRowContext(ctx,
		`SELECT MAX(version) FROM events WHERE aggregate_id = $1`, aggregateID.String(),
	).Scan(&actualRaw)
	if err != nil {
		return 0, &BackendError{Op: "read tail version", Err: err}
	}
	actual := eventid.Version(0)
	if actualRaw.Valid {
		actual = eventid.Version(actualRaw.Int64)
	}

	if opts.ExpectedVersion != nil && *opts.ExpectedVersion != actual {
		return 0, &ConcurrencyConflictError{Expected: *opts.ExpectedVersion, Actual: actual}
	}
	if events[0].Version != actual+1 {
		return 0, &ConcurrencyConflictError{Expected: actual, Actual: actual}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (event_id, event_type, aggregate_id, aggregate_type, version, timestamp, payload, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`)
	if err != nil {
		return 0, &BackendError{Op: "prepare insert events", Err: err}
	}
	defer stmt.Close()

	for _, e := range events {
		metadata, err := json.Marshal(e.Metadata)
		if err != nil {
			return 0, fmt.Errorf("marshal event metadata: %w", err)
		}
		_, err = stmt.ExecContext(ctx,
			e.EventID.String(), e.EventType, e.AggregateID.String(), e.AggregateType,
			int64(e.Version), e.Timestamp, []byte(e.Payload), metadata,
		)
		if err != nil {
			if isUniqueViolation(err, uniqueAggregateVersionConstraint) {
				return 0, &ConcurrencyConflictError{Expected: actual, Actual: actual}
			}
			return 0, &BackendError{Op: "insert event", Err: err}
		}
	}

	if err := insertOutbox(ctx, tx, events); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, &BackendError{Op: "commit append tx", Err: err}
	}

	return events[len(events)-1].Version, nil
}

// insertOutbox writes each appended event into the transactional outbox in
// the same transaction as the event itself, so publication is never lost
// relative to the write that produced it. See internal/outbox.
func insertOutbox(ctx context.Context, tx *sql.Tx, events []EventEnvelope) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO outbox (event_id, aggregate_id, event_type, event_data)
		VALUES ($1, $2, $3, $4)
	`)
	if err != nil {
		return &BackendError{Op: "prepare insert outbox", Err: err}
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.ExecContext(ctx, e.EventID.String(), e.AggregateID.String(), e.EventType, []byte(e.Payload)); err != nil {
			return &BackendError{Op: "insert outbox row", Err: err}
		}
	}
	return nil
}

func (s *SQLStore) GetEventsForAggregate(ctx context.Context, id eventid.AggregateID) ([]EventEnvelope, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, event_type, aggregate_id, aggregate_type, version, timestamp, payload, metadata
		FROM events WHERE aggregate_id = $1 ORDER BY version ASC
	`, id.String())
	if err != nil {
		return nil, &BackendError{Op: "query events for aggregate", Err: err}
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *SQLStore) GetEventsForAggregateFromVersion(ctx context.Context, id eventid.AggregateID, from eventid.Version) ([]EventEnvelope, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, event_type, aggregate_id, aggregate_type, version, timestamp, payload, metadata
		FROM events WHERE aggregate_id = $1 AND version >= $2 ORDER BY version ASC
	`, id.String(), int64(from))
	if err != nil {
		return nil, &BackendError{Op: "query events from version", Err: err}
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *SQLStore) QueryEvents(ctx context.Context, q EventQuery) ([]EventEnvelope, error) {
	where := "WHERE 1=1"
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.AggregateID != nil {
		where += " AND aggregate_id = " + arg(q.AggregateID.String())
	}
	if q.AggregateType != nil {
		where += " AND aggregate_type = " + arg(*q.AggregateType)
	}
	if len(q.EventTypes) > 0 {
		where += " AND event_type = ANY(" + arg(pq.Array(q.EventTypes)) + ")"
	}
	if q.VersionFrom != nil {
		where += " AND version >= " + arg(int64(*q.VersionFrom))
	}
	if q.VersionTo != nil {
		where += " AND version <= " + arg(int64(*q.VersionTo))
	}
	if q.TimestampFrom != nil {
		where += " AND timestamp >= " + arg(*q.TimestampFrom)
	}
	if q.TimestampTo != nil {
		where += " AND timestamp <= " + arg(*q.TimestampTo)
	}

	query := fmt.Sprintf(`
		SELECT event_id, event_type, aggregate_id, aggregate_type, version, timestamp, payload, metadata
		FROM events %s ORDER BY timestamp ASC, version ASC
	`, where)
	if q.Limit > 0 {
		query += " LIMIT " + arg(q.Limit)
	}
	if q.Offset > 0 {
		query += " OFFSET " + arg(q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &BackendError{Op: "query events", Err: err}
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *SQLStore) GetEventsByType(ctx context.Context, eventType string) ([]EventEnvelope, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, event_type, aggregate_id, aggregate_type, version, timestamp, payload, metadata
		FROM events WHERE event_type = $1 ORDER BY timestamp ASC
	`, eventType)
	if err != nil {
		return nil, &BackendError{Op: "query events by type", Err: err}
	}
	defer rows.Close()
	return scanEvents(rows)
}

// StreamAllEvents fetches rows lazily via the driver cursor instead of
// buffering the whole table, so a full replay of a large store doesn't
// blow up process memory.
func (s *SQLStore) StreamAllEvents(ctx context.Context, yield func(EventEnvelope) bool) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, event_type, aggregate_id, aggregate_type, version, timestamp, payload, metadata
		FROM events ORDER BY timestamp ASC, event_id ASC
	`)
	if err != nil {
		return &BackendError{Op: "stream all events", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e, err := scanOneEvent(rows)
		if err != nil {
			return err
		}
		if !yield(e) {
			return nil
		}
	}
	return rows.Err()
}

func (s *SQLStore) GetAggregateVersion(ctx context.Context, id eventid.AggregateID) (eventid.Version, bool, error) {
	var raw sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(version) FROM events WHERE aggregate_id = $1`, id.String(),
	).Scan(&raw)
	if err != nil {
		return 0, false, &BackendError{Op: "get aggregate version", Err: err}
	}
	if !raw.Valid {
		return 0, false, nil
	}
	return eventid.Version(raw.Int64), true, nil
}

func (s *SQLStore) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (aggregate_id, aggregate_type, version, timestamp, state)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (aggregate_id) DO UPDATE SET
			aggregate_type = EXCLUDED.aggregate_type,
			version = EXCLUDED.version,
			timestamp = EXCLUDED.timestamp,
			state = EXCLUDED.state
	`, snap.AggregateID.String(), snap.AggregateType, int64(snap.Version), snap.Timestamp, []byte(snap.State))
	if err != nil {
		return &BackendError{Op: "save snapshot", Err: err}
	}
	return nil
}

func (s *SQLStore) GetSnapshot(ctx context.Context, id eventid.AggregateID) (Snapshot, bool, error) {
	var (
		aggregateType string
		version       int64
		ts            sql.NullTime
		state         []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT aggregate_type, version, timestamp, state FROM snapshots WHERE aggregate_id = $1
	`, id.String()).Scan(&aggregateType, &version, &ts, &state)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, &BackendError{Op: "get snapshot", Err: err}
	}
	return Snapshot{
		AggregateID:   id,
		AggregateType: aggregateType,
		Version:       eventid.Version(version),
		Timestamp:     ts.Time,
		State:         state,
	}, true, nil
}

func scanEvents(rows *sql.Rows) ([]EventEnvelope, error) {
	var out []EventEnvelope
	for rows.Next() {
		e, err := scanOneEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanOneEvent(rows *sql.Rows) (EventEnvelope, error) {
	var (
		eventIDStr, eventType, aggIDStr, aggType string
		version                                  int64
		payload, metadataRaw                     []byte
		ts                                       sql.NullTime
	)
	if err := rows.Scan(&eventIDStr, &eventType, &aggIDStr, &aggType, &version, &ts, &payload, &metadataRaw); err != nil {
		return EventEnvelope{}, &BackendError{Op: "scan event row", Err: err}
	}

	eid, err := eventid.ParseEventID(eventIDStr)
	if err != nil {
		return EventEnvelope{}, &SerializationError{Err: err}
	}
	aid, err := eventid.ParseAggregateID(aggIDStr)
	if err != nil {
		return EventEnvelope{}, &SerializationError{Err: err}
	}
	var metadata map[string]any
	if len(metadataRaw) > 0 {
		if err := json.Unmarshal(metadataRaw, &metadata); err != nil {
			return EventEnvelope{}, &SerializationError{Err: err}
		}
	}

	return EventEnvelope{
		EventID:       eid,
		EventType:     eventType,
		AggregateID:   aid,
		AggregateType: aggType,
		Version:       eventid.Version(version),
		Timestamp:     ts.Time,
		Payload:       payload,
		Metadata:      metadata,
	}, nil
}

// isUniqueViolation reports whether err is a Postgres unique-violation on
// the named constraint, inspecting the structured *pq.Error rather than
// string-matching the message the way the teacher's original
// infrastructure/eventstore/serializer.go did.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	const uniqueViolationCode = "23505"
	return string(pqErr.Code) == uniqueViolationCode && pqErr.Constraint == constraint
}
