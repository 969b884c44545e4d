// Package outbox adapts the teacher's transactional outbox publisher: a
// ticker-driven worker that reads rows SQLStore.Append wrote inside the
// same transaction as the domain events themselves, and fans them out
// over the message bus.
package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"github.com/lib/pq"

	"github.com/maumercado/orderflow/internal/messaging"
)

// Message is the envelope published to the bus for one outbox row. Unlike
// the teacher's publisher, which forwards a currency-swap event's own
// raw payload (each such event already carries its order id as a field),
// this domain's events don't all repeat their aggregate id in the payload
// body, so the aggregate id travels alongside the payload instead.
type Message struct {
	EventID     string          `json:"event_id"`
	AggregateID string          `json:"aggregate_id"`
	EventType   string          `json:"event_type"`
	Data        json.RawMessage `json:"data"`
}

// Publisher polls the outbox table and publishes unpublished rows to a
// messaging.Bus, then marks the published rows so later polls skip them.
// A row published before a failed mark is published again on a later poll.
type Publisher struct {
	db       *sql.DB
	bus      messaging.Bus
	interval time.Duration
}

// NewPublisher builds a Publisher polling every 100ms, matching the
// teacher's interval.
func NewPublisher(db *sql.DB, bus messaging.Bus) *Publisher {
	return &Publisher{db: db, bus: bus, interval: 100 * time.Millisecond}
}

// Start runs the poll loop until ctx is cancelled.
func (p *Publisher) Start(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	log.Println("🔄 outbox publisher started")

	for {
		select {
		case <-ticker.C:
			if err := p.publishPendingEvents(ctx); err != nil {
				log.Printf("❌ failed to publish outbox events: %v", err)
			}
		case <-ctx.Done():
			log.Println("outbox publisher stopped")
			return nil
		}
	}
}

func (p *Publisher) publishPendingEvents(ctx context.Context) error {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, event_id, aggregate_id, event_type, event_data
		FROM outbox
		WHERE published = false
		ORDER BY created_at ASC
		LIMIT 100
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	var publishedIDs []int64

	for rows.Next() {
		var (
			id          int64
			eventID     string
			aggregateID string
			eventType   string
			eventData   []byte
		)

		if err := rows.Scan(&id, &eventID, &aggregateID, &eventType, &eventData); err != nil {
			log.Printf("❌ failed to scan outbox row: %v", err)
			continue
		}

		msg, err := json.Marshal(Message{EventID: eventID, AggregateID: aggregateID, EventType: eventType, Data: eventData})
		if err != nil {
			log.Printf("❌ failed to marshal outbox message %s: %v", eventID, err)
			continue
		}

		if err := p.bus.Publish(eventType, msg); err != nil {
			log.Printf("❌ failed to publish event %s: %v", eventID, err)
			continue
		}

		publishedIDs = append(publishedIDs, id)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if len(publishedIDs) > 0 {
		if err := p.markAsPublished(ctx, publishedIDs); err != nil {
			return err
		}
		log.Printf("📤 published %d outbox events", len(publishedIDs))
	}

	return nil
}

func (p *Publisher) markAsPublished(ctx context.Context, ids []int64) error {
	_, err := p.db.ExecContext(ctx, `
		UPDATE outbox SET published = true, published_at = NOW() WHERE id = ANY($1)
	`, pq.Array(ids))
	return err
}
