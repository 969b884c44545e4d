// Package api is a thin net/http adapter over the order/saga core,
// translating domain errors to client-visible status codes per the
// teacher's own handwritten-ServeMux style (no router framework).
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/maumercado/orderflow/internal/aggregate"
	"github.com/maumercado/orderflow/internal/eventid"
	"github.com/maumercado/orderflow/internal/eventstore"
	"github.com/maumercado/orderflow/internal/order"
	"github.com/maumercado/orderflow/internal/saga"
)

// OrderHandler serves every /orders route, driving commands through the
// Order aggregate's CommandHandler and triggering saga execution.
type OrderHandler struct {
	orders      *aggregate.CommandHandler[*order.Order]
	store       eventstore.EventStore
	coordinator *saga.Coordinator
}

func NewOrderHandler(orders *aggregate.CommandHandler[*order.Order], store eventstore.EventStore, coordinator *saga.Coordinator) *OrderHandler {
	return &OrderHandler{orders: orders, store: store, coordinator: coordinator}
}

// HealthCheck handles GET /health.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// CreateOrderRequest is the HTTP request body for POST /orders.
type CreateOrderRequest struct {
	CustomerID string            `json:"customer_id"`
	Items      []CreateOrderItem `json:"items"`
}

type CreateOrderItem struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    uint32 `json:"quantity"`
	UnitPrice   int64  `json:"unit_price_cents"`
}

// CreateOrderResponse is the HTTP response for a successful order creation.
type CreateOrderResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// CreateOrder handles POST /orders: creates the order and appends each
// requested line item as a follow-up command.
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.CustomerID == "" {
		http.Error(w, "customer_id is required", http.StatusBadRequest)
		return
	}

	customerID, err := eventid.ParseCustomerID(req.CustomerID)
	if err != nil {
		http.Error(w, "customer_id must be a UUID", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	orderID := eventid.NewAggregateID()

	if _, err := h.orders.Execute(ctx, orderID, order.Create(customerID)); err != nil {
		writeError(w, err)
		return
	}

	for _, item := range req.Items {
		productID := eventid.NewProductID(item.ProductID)
		unitPrice := eventid.MoneyFromCents(item.UnitPrice)
		if _, err := h.orders.Execute(ctx, orderID, order.AddItem(productID, item.ProductName, item.Quantity, unitPrice)); err != nil {
			writeError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusCreated, CreateOrderResponse{OrderID: orderID.String(), Status: order.StateDraft.String()})
	log.Printf("✅ order created: %s", orderID)
}

// SubmitOrder handles POST /orders/{id}/submit.
func (h *OrderHandler) SubmitOrder(w http.ResponseWriter, r *http.Request, orderID eventid.AggregateID) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	result, err := h.orders.Execute(r.Context(), orderID, order.Submit())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"order_id": orderID.String(),
		"status":   result.Aggregate.State().String(),
	})
	log.Printf("✅ order submitted: %s", orderID)
}

// FulfillOrderResponse is the response for POST /orders/{id}/fulfill.
type FulfillOrderResponse struct {
	SagaID string `json:"saga_id"`
}

// FulfillOrder handles POST /orders/{id}/fulfill: kicks off the order
// fulfillment saga for a submitted order.
func (h *OrderHandler) FulfillOrder(w http.ResponseWriter, r *http.Request, orderID eventid.AggregateID) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sagaID, err := h.coordinator.ExecuteSaga(r.Context(), orderID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, FulfillOrderResponse{SagaID: sagaID.String()})
	log.Printf("🔄 saga triggered for order %s: saga %s", orderID, sagaID)
}

// OrderHistoryResponse is the response for GET /orders/{id}.
type OrderHistoryResponse struct {
	OrderID     string          `json:"order_id"`
	Status      string          `json:"status"`
	TotalAmount string          `json:"total_amount"`
	ItemCount   int             `json:"item_count"`
	Version     int64           `json:"version"`
	Timeline    []TimelineEntry `json:"timeline"`
}

// TimelineEntry is one event in an order's history, human-annotated.
type TimelineEntry struct {
	EventType   string `json:"event_type"`
	Version     int64  `json:"version"`
	Description string `json:"description"`
}

// GetOrder handles GET /orders/{id}: current state plus full event
// timeline with human-readable descriptions.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request, orderID eventid.AggregateID) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	ord, existed, err := h.orders.LoadExisting(ctx, orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !existed {
		http.Error(w, "order not found", http.StatusNotFound)
		return
	}

	events, err := h.store.GetEventsForAggregate(ctx, orderID)
	if err != nil {
		writeError(w, err)
		return
	}

	timeline := make([]TimelineEntry, 0, len(events))
	for _, evt := range events {
		timeline = append(timeline, TimelineEntry{
			EventType:   evt.EventType,
			Version:     int64(evt.Version),
			Description: describeEvent(evt.EventType),
		})
	}

	writeJSON(w, http.StatusOK, OrderHistoryResponse{
		OrderID:     orderID.String(),
		Status:      ord.State().String(),
		TotalAmount: ord.TotalAmount().String(),
		ItemCount:   ord.ItemCount(),
		Version:     int64(ord.Version()),
		Timeline:    timeline,
	})
	log.Printf("📊 order history retrieved: %s", orderID)
}

func describeEvent(eventType string) string {
	switch eventType {
	case "OrderCreated":
		return "order created"
	case "ItemAdded":
		return "item added"
	case "ItemRemoved":
		return "item removed"
	case "ItemQuantityUpdated":
		return "item quantity updated"
	case "OrderSubmitted":
		return "order submitted for fulfillment"
	case "OrderReserved":
		return "inventory reserved"
	case "OrderProcessing":
		return "payment processing started"
	case "OrderCompleted":
		return "order completed"
	case "OrderCancelled":
		return "order cancelled"
	default:
		return eventType
	}
}

// OrdersRouter dispatches /orders and /orders/{id}[/...] to the right
// handler method, matching the teacher's bare ServeMux style rather than
// introducing a routing library the corpus never imports.
func (h *OrderHandler) OrdersRouter(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/orders")
	path = strings.Trim(path, "/")

	if path == "" {
		h.CreateOrder(w, r)
		return
	}

	parts := strings.SplitN(path, "/", 2)
	orderID, err := eventid.ParseAggregateID(parts[0])
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return
	}

	if len(parts) == 1 {
		h.GetOrder(w, r, orderID)
		return
	}

	switch parts[1] {
	case "submit":
		h.SubmitOrder(w, r, orderID)
	case "fulfill":
		h.FulfillOrder(w, r, orderID)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body) //nolint:errcheck
}

// writeError maps a domain error to the client-visible status class
// described in SPEC_FULL.md §7: conflicts (state/concurrency) -> 409,
// not-found sentinels -> 404, validation -> 400, everything else -> 500.
func writeError(w http.ResponseWriter, err error) {
	var stateErr *order.InvalidStateTransitionError
	var conflictErr *eventstore.ConcurrencyConflictError
	var notReadyErr *saga.OrderNotReadyError

	switch {
	case errors.As(err, &stateErr), errors.As(err, &conflictErr):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, eventstore.ErrAggregateNotFound), errors.Is(err, saga.ErrOrderNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &notReadyErr),
		errors.Is(err, order.ErrItemNotFound),
		errors.Is(err, order.ErrInvalidQuantity),
		errors.Is(err, order.ErrInvalidPrice),
		errors.Is(err, order.ErrNoItems),
		errors.Is(err, order.ErrCustomerIDRequired),
		errors.Is(err, order.ErrAlreadyCreated):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.Printf("❌ internal error: %v", err)
		http.Error(w, fmt.Sprintf("internal error: %v", err), http.StatusInternalServerError)
	}
}
