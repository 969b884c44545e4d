// Command orderd is the order-processing service's bootstrap: wires the
// event store, saga coordinator, outbox publisher, projections, and HTTP
// server, mirroring the teacher's cmd/main.go in shape.
package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/maumercado/orderflow/api"
	"github.com/maumercado/orderflow/internal/aggregate"
	"github.com/maumercado/orderflow/internal/config"
	"github.com/maumercado/orderflow/internal/eventstore"
	"github.com/maumercado/orderflow/internal/idempotency"
	"github.com/maumercado/orderflow/internal/logging"
	"github.com/maumercado/orderflow/internal/messaging"
	"github.com/maumercado/orderflow/internal/order"
	"github.com/maumercado/orderflow/internal/outbox"
	"github.com/maumercado/orderflow/internal/projection"
	"github.com/maumercado/orderflow/internal/projection/views"
	"github.com/maumercado/orderflow/internal/saga"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Infof("🚀 starting orderd...")

	// =====================================================
	// 1. Event Store (Postgres if DATABASE_URL is set, in-memory otherwise)
	// =====================================================
	var store eventstore.EventStore
	var db *sql.DB

	if cfg.DatabaseURL != "" {
		var err error
		for i := 0; i < 10; i++ {
			db, err = sql.Open("postgres", cfg.DatabaseURL)
			if err == nil {
				err = db.Ping()
			}
			if err == nil {
				break
			}
			logger.Warnf("⏳ attempt %d/10: database not ready: %v", i+1, err)
			if db != nil {
				db.Close()
			}
			time.Sleep(2 * time.Second)
		}
		if err != nil {
			logger.Errorf("❌ failed to connect to database after 10 attempts: %v", err)
			os.Exit(1)
		}
		db.SetMaxOpenConns(cfg.DBMaxConnections)
		defer db.Close()
		store = eventstore.NewSQLStore(db)
		logger.Infof("✅ connected to PostgreSQL, event store initialized")
	} else {
		store = eventstore.NewMemoryStore()
		logger.Infof("✅ event store initialized (in-memory, DATABASE_URL unset)")
	}

	// =====================================================
	// 2. Messaging (best-effort: absence of a broker never blocks startup)
	// =====================================================
	var bus messaging.Bus
	rmq := messaging.NewRabbitMQ(cfg.RabbitMQURL)
	connected := false
	for i := 0; i < 10; i++ {
		if err := rmq.Connect(); err == nil {
			connected = true
			break
		} else {
			logger.Warnf("⏳ attempt %d/10: failed to connect to RabbitMQ: %v", i+1, err)
		}
		time.Sleep(2 * time.Second)
	}
	if connected {
		bus = rmq
		defer rmq.Close()
	} else {
		logger.Warnf("⚠️ could not reach RabbitMQ, falling back to in-process messaging")
		bus = messaging.NoopBus{}
	}

	// =====================================================
	// 3. Idempotency (only meaningful against Postgres)
	// =====================================================
	var idempotencyRepo *idempotency.Repository
	if db != nil {
		idempotencyRepo = idempotency.NewRepository(db)
		logger.Infof("✅ idempotency repository initialized")
	}

	// =====================================================
	// 4. Aggregates and Saga Coordinator
	// =====================================================
	orders := aggregate.NewCommandHandler(store, order.AggregateTypeName, order.Codec, order.New)
	inventory := saga.NewInMemoryInventoryService()
	payment := saga.NewInMemoryPaymentService()
	shipping := saga.NewInMemoryShippingService()
	coordinator := saga.NewCoordinator(store, inventory, payment, shipping)
	logger.Infof("✅ saga coordinator initialized")

	if connected {
		var guard saga.IdempotencyGuard
		if idempotencyRepo != nil {
			guard = idempotencyRepo
		}
		if err := saga.SubscribeOrderSubmitted(bus, coordinator, guard); err != nil {
			logger.Errorf("❌ failed to subscribe saga trigger: %v", err)
		} else {
			logger.Infof("👂 saga event-driven trigger subscribed to OrderSubmitted")
		}
	}

	// =====================================================
	// 5. Projections
	// =====================================================
	processor := projection.NewProcessor(store)
	processor.Register(views.NewCurrentOrdersView())
	processor.Register(views.NewCustomerOrdersView())
	processor.Register(views.NewInventoryView())
	processor.Register(views.NewOrderHistoryView())
	logger.Infof("✅ projections registered")

	// =====================================================
	// 6. Outbox Publisher (only meaningful against Postgres)
	// =====================================================
	var outboxPub *outbox.Publisher
	if db != nil {
		outboxPub = outbox.NewPublisher(db, bus)
		logger.Infof("✅ outbox publisher initialized")
	}

	// =====================================================
	// 7. HTTP Server
	// =====================================================
	orderHandler := api.NewOrderHandler(orders, store, coordinator)
	mux := http.NewServeMux()
	mux.HandleFunc("/health", api.HealthCheck)
	mux.HandleFunc("/orders", orderHandler.OrdersRouter)
	mux.HandleFunc("/orders/", orderHandler.OrdersRouter)

	addr := cfg.Host + ":" + cfg.Port
	server := &http.Server{Addr: addr, Handler: mux}
	logger.Infof("✅ HTTP server configured on %s", addr)

	// =====================================================
	// 8. Start Background Workers
	// =====================================================
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if outboxPub != nil {
		go func() {
			logger.Infof("🔄 starting outbox publisher...")
			if err := outboxPub.Start(ctx); err != nil {
				logger.Errorf("❌ outbox publisher error: %v", err)
			}
		}()
	}

	go func() {
		logger.Infof("🔄 starting projection catch-up loop...")
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := processor.RunCatchUp(ctx); err != nil {
					logger.Errorf("❌ projection catch-up error: %v", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		logger.Infof("🌐 starting HTTP server on %s...", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("❌ HTTP server error: %v", err)
			os.Exit(1)
		}
	}()

	// =====================================================
	// 9. Graceful Shutdown
	// =====================================================
	logger.Infof("✅ all services started successfully!")
	logger.Infof("📡 listening for orders on http://%s/orders", addr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Infof("🛑 shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("❌ HTTP server shutdown error: %v", err)
	}

	cancel()
	logger.Infof("👋 goodbye!")
}
