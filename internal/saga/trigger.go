package saga

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/maumercado/orderflow/internal/eventid"
	"github.com/maumercado/orderflow/internal/messaging"
	"github.com/maumercado/orderflow/internal/outbox"
)

// processedByTrigger tags rows this consumer marks in the idempotency
// table, distinguishing its bookkeeping from a projection's or another
// consumer's.
const processedByTrigger = "saga.trigger.OrderSubmitted"

// IdempotencyGuard is the subset of internal/idempotency.Repository the
// message-driven trigger needs: a redelivered OrderSubmitted must not
// start a second saga run for the same order.
type IdempotencyGuard interface {
	IsProcessed(ctx context.Context, eventID eventid.EventID) (bool, error)
	MarkAsProcessed(ctx context.Context, eventID eventid.EventID, aggregateID eventid.AggregateID, eventType, processedBy string) error
}

// SubscribeOrderSubmitted wires the saga's event-driven trigger path: in
// addition to being invoked directly (ExecuteSaga, e.g. from the API),
// a Coordinator can react to an OrderSubmitted message fanned out by the
// outbox publisher, so a crash between an order's submission and its
// direct ExecuteSaga call doesn't strand the order forever. guard may be
// nil (no Postgres-backed idempotency store configured), in which case
// every delivery is treated as unseen; a redelivery for an order already
// past Draft makes ExecuteSaga return OrderNotReadyError, which the
// handler returns, so no second saga run starts.
func SubscribeOrderSubmitted(bus messaging.Bus, coordinator *Coordinator, guard IdempotencyGuard) error {
	return bus.Subscribe("OrderSubmitted", func(ctx context.Context, data []byte) error {
		var msg outbox.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			return fmt.Errorf("decode outbox message: %w", err)
		}

		orderID, err := eventid.ParseAggregateID(msg.AggregateID)
		if err != nil {
			return fmt.Errorf("parse order id: %w", err)
		}
		eventID, err := eventid.ParseEventID(msg.EventID)
		if err != nil {
			return fmt.Errorf("parse event id: %w", err)
		}

		if guard != nil {
			seen, err := guard.IsProcessed(ctx, eventID)
			if err != nil {
				return fmt.Errorf("check processed: %w", err)
			}
			if seen {
				log.Printf("👂 ignoring redelivered OrderSubmitted for order %s", orderID)
				return nil
			}
		}

		if _, err := coordinator.ExecuteSaga(ctx, orderID); err != nil {
			log.Printf("❌ message-triggered saga failed to start for order %s: %v", orderID, err)
			return err
		}
		log.Printf("🔄 message-triggered saga started for order %s", orderID)

		if guard != nil {
			if err := guard.MarkAsProcessed(ctx, eventID, orderID, msg.EventType, processedByTrigger); err != nil {
				return fmt.Errorf("mark processed: %w", err)
			}
		}
		return nil
	})
}
