package views_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maumercado/orderflow/internal/aggregate"
	"github.com/maumercado/orderflow/internal/eventid"
	"github.com/maumercado/orderflow/internal/eventstore"
	"github.com/maumercado/orderflow/internal/order"
	"github.com/maumercado/orderflow/internal/projection"
	"github.com/maumercado/orderflow/internal/projection/views"
)

// harness drives an Order command handler and a full set of projections
// off one shared in-memory store, the way cmd/orderd wires them in
// production.
type harness struct {
	ctx             context.Context
	handler         *aggregate.CommandHandler[*order.Order]
	processor       *projection.Processor
	currentOrders   *views.CurrentOrdersView
	orderHistory    *views.OrderHistoryView
	customerOrders  *views.CustomerOrdersView
	inventory       *views.InventoryView
}

func newHarness() *harness {
	store := eventstore.NewMemoryStore()
	h := &harness{
		ctx:            context.Background(),
		handler:        aggregate.NewCommandHandler(store, order.AggregateTypeName, order.Codec, order.New),
		processor:      projection.NewProcessor(store),
		currentOrders:  views.NewCurrentOrdersView(),
		orderHistory:   views.NewOrderHistoryView(),
		customerOrders: views.NewCustomerOrdersView(),
		inventory:      views.NewInventoryView(),
	}
	h.processor.Register(h.currentOrders)
	h.processor.Register(h.orderHistory)
	h.processor.Register(h.customerOrders)
	h.processor.Register(h.inventory)
	return h
}

func (h *harness) catchUp(t *testing.T) {
	t.Helper()
	require.NoError(t, h.processor.RunCatchUp(h.ctx))
}

func TestCurrentOrdersView_TracksDraftThenRemovesOnTerminal(t *testing.T) {
	h := newHarness()
	customerID := eventid.NewCustomerID()
	orderID := eventid.NewAggregateID()

	_, err := h.handler.Execute(h.ctx, orderID, order.Create(customerID))
	require.NoError(t, err)
	h.catchUp(t)

	summary, ok := h.currentOrders.Get(h.ctx, orderID)
	require.True(t, ok)
	assert.Equal(t, order.StateDraft, summary.State)

	productID := eventid.NewProductID("sku-1")
	_, err = h.handler.Execute(h.ctx, orderID, order.AddItem(productID, "Widget", 2, eventid.MoneyFromDollars(10)))
	require.NoError(t, err)
	h.catchUp(t)

	summary, ok = h.currentOrders.Get(h.ctx, orderID)
	require.True(t, ok)
	assert.Equal(t, eventid.MoneyFromDollars(20), summary.TotalAmount)

	_, err = h.handler.Execute(h.ctx, orderID, order.Cancel("changed mind", nil))
	require.NoError(t, err)
	h.catchUp(t)

	_, ok = h.currentOrders.Get(h.ctx, orderID)
	assert.False(t, ok, "cancelled orders are removed from CurrentOrdersView")
}

func TestOrderHistoryView_PopulatedOnlyAfterTerminalEvent(t *testing.T) {
	h := newHarness()
	customerID := eventid.NewCustomerID()
	orderID := eventid.NewAggregateID()

	_, err := h.handler.Execute(h.ctx, orderID, order.Create(customerID))
	require.NoError(t, err)
	_, err = h.handler.Execute(h.ctx, orderID, order.AddItem(eventid.NewProductID("sku-1"), "Widget", 1, eventid.MoneyFromDollars(5)))
	require.NoError(t, err)
	h.catchUp(t)

	_, ok := h.orderHistory.Get(h.ctx, orderID)
	assert.False(t, ok, "history only gains an entry on a terminal event")

	_, err = h.handler.Execute(h.ctx, orderID, order.Cancel("out of stock", nil))
	require.NoError(t, err)
	h.catchUp(t)

	entry, ok := h.orderHistory.Get(h.ctx, orderID)
	require.True(t, ok)
	assert.Equal(t, "out of stock", entry.CancellationReason)
	assert.NotNil(t, entry.CancelledAt)
}

func TestCustomerOrdersView_TracksCountersAndSpend(t *testing.T) {
	h := newHarness()
	customerID := eventid.NewCustomerID()

	orderA := eventid.NewAggregateID()
	_, err := h.handler.Execute(h.ctx, orderA, order.Create(customerID))
	require.NoError(t, err)
	_, err = h.handler.Execute(h.ctx, orderA, order.AddItem(eventid.NewProductID("sku-1"), "Widget", 2, eventid.MoneyFromDollars(10)))
	require.NoError(t, err)
	_, err = h.handler.Execute(h.ctx, orderA, order.Submit())
	require.NoError(t, err)
	_, err = h.handler.Execute(h.ctx, orderA, order.MarkReserved("RES-1"))
	require.NoError(t, err)
	_, err = h.handler.Execute(h.ctx, orderA, order.StartProcessing("PAY-1"))
	require.NoError(t, err)
	_, err = h.handler.Execute(h.ctx, orderA, order.Complete(nil))
	require.NoError(t, err)

	orderB := eventid.NewAggregateID()
	_, err = h.handler.Execute(h.ctx, orderB, order.Create(customerID))
	require.NoError(t, err)
	_, err = h.handler.Execute(h.ctx, orderB, order.Cancel("changed mind", nil))
	require.NoError(t, err)

	h.catchUp(t)

	stats, ok := h.customerOrders.Get(h.ctx, customerID)
	require.True(t, ok)
	assert.Equal(t, uint64(2), stats.TotalOrders)
	assert.Equal(t, uint64(0), stats.ActiveOrders)
	assert.Equal(t, uint64(1), stats.CompletedOrders)
	assert.Equal(t, uint64(1), stats.CancelledOrders)
	assert.Equal(t, eventid.MoneyFromDollars(20), stats.TotalSpent)
}

func TestInventoryView_TracksDemandThroughLifecycle(t *testing.T) {
	h := newHarness()
	customerID := eventid.NewCustomerID()
	productID := eventid.NewProductID("sku-1")

	orderID := eventid.NewAggregateID()
	_, err := h.handler.Execute(h.ctx, orderID, order.Create(customerID))
	require.NoError(t, err)
	_, err = h.handler.Execute(h.ctx, orderID, order.AddItem(productID, "Widget", 5, eventid.MoneyFromDollars(2)))
	require.NoError(t, err)
	h.catchUp(t)

	demand, ok := h.inventory.Get(h.ctx, productID)
	require.True(t, ok)
	assert.Equal(t, uint64(5), demand.TotalQuantityOrdered)
	assert.Equal(t, uint64(5), demand.QuantityInActiveOrders)
	assert.Equal(t, uint64(1), demand.OrderCount)

	_, err = h.handler.Execute(h.ctx, orderID, order.MarkReserved("RES-1"))
	require.NoError(t, err)
	h.catchUp(t)

	demand, ok = h.inventory.Get(h.ctx, productID)
	require.True(t, ok)
	assert.Equal(t, uint64(0), demand.QuantityInActiveOrders)
	assert.Equal(t, uint64(5), demand.QuantityReserved)

	_, err = h.handler.Execute(h.ctx, orderID, order.StartProcessing("PAY-1"))
	require.NoError(t, err)
	_, err = h.handler.Execute(h.ctx, orderID, order.Complete(nil))
	require.NoError(t, err)
	h.catchUp(t)

	demand, ok = h.inventory.Get(h.ctx, productID)
	require.True(t, ok)
	assert.Equal(t, uint64(0), demand.QuantityReserved)
	assert.Equal(t, uint64(5), demand.QuantityCompleted)
	assert.Equal(t, eventid.MoneyFromDollars(10), demand.TotalRevenue)
}

func TestInventoryView_CancelledOrderDecrementsCountersAndOrderCount(t *testing.T) {
	h := newHarness()
	customerID := eventid.NewCustomerID()
	productID := eventid.NewProductID("sku-1")

	orderID := eventid.NewAggregateID()
	_, err := h.handler.Execute(h.ctx, orderID, order.Create(customerID))
	require.NoError(t, err)
	_, err = h.handler.Execute(h.ctx, orderID, order.AddItem(productID, "Widget", 3, eventid.MoneyFromDollars(4)))
	require.NoError(t, err)
	_, err = h.handler.Execute(h.ctx, orderID, order.Cancel("changed mind", nil))
	require.NoError(t, err)
	h.catchUp(t)

	demand, ok := h.inventory.Get(h.ctx, productID)
	require.True(t, ok)
	assert.Equal(t, uint64(0), demand.TotalQuantityOrdered)
	assert.Equal(t, uint64(0), demand.QuantityInActiveOrders)
	assert.Equal(t, uint64(0), demand.OrderCount)
}

func TestRebuildAll_ReproducesSameViewState(t *testing.T) {
	h := newHarness()
	customerID := eventid.NewCustomerID()
	orderID := eventid.NewAggregateID()
	productID := eventid.NewProductID("sku-1")

	_, err := h.handler.Execute(h.ctx, orderID, order.Create(customerID))
	require.NoError(t, err)
	_, err = h.handler.Execute(h.ctx, orderID, order.AddItem(productID, "Widget", 1, eventid.MoneyFromDollars(3)))
	require.NoError(t, err)
	h.catchUp(t)

	before, ok := h.currentOrders.Get(h.ctx, orderID)
	require.True(t, ok)

	require.NoError(t, h.processor.RebuildAll(h.ctx))

	after, ok := h.currentOrders.Get(h.ctx, orderID)
	require.True(t, ok)
	assert.Equal(t, before.TotalAmount, after.TotalAmount)
	assert.Equal(t, before.State, after.State)
}
