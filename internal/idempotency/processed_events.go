// Package idempotency adapts the teacher's processed-events repository to
// guard saga-step handlers and projection catch-up consumers against
// redelivery from the message bus, rather than the teacher's own
// currency-swap notification idempotency.
package idempotency

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/maumercado/orderflow/internal/eventid"
)

// ProcessedEvent is one audit row: who processed which event, when.
type ProcessedEvent struct {
	EventID     eventid.EventID
	AggregateID eventid.AggregateID
	EventType   string
	ProcessedBy string
	ProcessedAt time.Time
}

// Repository tracks which events a given consumer has already handled, so
// a redelivered message (RabbitMQ requeue, a restarted catch-up) doesn't
// reapply a saga step or projection update twice.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// IsProcessed reports whether eventID has already been recorded, regardless
// of which consumer processed it.
func (r *Repository) IsProcessed(ctx context.Context, eventID eventid.EventID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)`,
		eventID.String(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check processed event: %w", err)
	}
	return exists, nil
}

// MarkAsProcessed records eventID as handled by processedBy. Safe to call
// more than once for the same event: the unique key on event_id makes this
// idempotent by design.
func (r *Repository) MarkAsProcessed(ctx context.Context, eventID eventid.EventID, aggregateID eventid.AggregateID, eventType, processedBy string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO processed_events (event_id, aggregate_id, event_type, processed_by, processed_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (event_id) DO NOTHING
	`, eventID.String(), aggregateID.String(), eventType, processedBy)
	if err != nil {
		return fmt.Errorf("mark event as processed: %w", err)
	}

	log.Printf("✅ marked event %s as processed by %s", eventID, processedBy)
	return nil
}

// GetProcessedEvents returns the processing audit trail for an aggregate,
// oldest first.
func (r *Repository) GetProcessedEvents(ctx context.Context, aggregateID eventid.AggregateID) ([]ProcessedEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT event_id, aggregate_id, event_type, processed_by, processed_at
		FROM processed_events
		WHERE aggregate_id = $1
		ORDER BY processed_at ASC
	`, aggregateID.String())
	if err != nil {
		return nil, fmt.Errorf("query processed events: %w", err)
	}
	defer rows.Close()

	var events []ProcessedEvent
	for rows.Next() {
		var eventIDStr, aggregateIDStr string
		var e ProcessedEvent
		if err := rows.Scan(&eventIDStr, &aggregateIDStr, &e.EventType, &e.ProcessedBy, &e.ProcessedAt); err != nil {
			return nil, fmt.Errorf("scan processed event: %w", err)
		}
		e.EventID, err = eventid.ParseEventID(eventIDStr)
		if err != nil {
			return nil, fmt.Errorf("parse processed event id: %w", err)
		}
		e.AggregateID, err = eventid.ParseAggregateID(aggregateIDStr)
		if err != nil {
			return nil, fmt.Errorf("parse processed aggregate id: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
