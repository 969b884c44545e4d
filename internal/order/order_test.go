package order_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maumercado/orderflow/internal/aggregate"
	"github.com/maumercado/orderflow/internal/eventid"
	"github.com/maumercado/orderflow/internal/eventstore"
	"github.com/maumercado/orderflow/internal/order"
)

func newHandler() *aggregate.CommandHandler[*order.Order] {
	store := eventstore.NewMemoryStore()
	return aggregate.NewCommandHandler(store, order.AggregateTypeName, order.Codec, order.New)
}

func TestCreate_EmitsOrderCreatedAndAssignsID(t *testing.T) {
	h := newHandler()
	ctx := context.Background()
	customerID := eventid.NewCustomerID()

	result, err := h.Execute(ctx, eventid.NewAggregateID(), order.Create(customerID))
	require.NoError(t, err)
	assert.Equal(t, eventid.Version(1), result.NewVersion)
	assert.Equal(t, order.StateDraft, result.Aggregate.State())
	gotCustomer, ok := result.Aggregate.CustomerID()
	require.True(t, ok)
	assert.Equal(t, customerID, gotCustomer)
}

func TestAddItem_NewProductEmitsItemAdded(t *testing.T) {
	h := newHandler()
	ctx := context.Background()
	id := eventid.NewAggregateID()
	_, err := h.Execute(ctx, id, order.Create(eventid.NewCustomerID()))
	require.NoError(t, err)

	productID := eventid.NewProductID("sku-1")
	result, err := h.Execute(ctx, id, order.AddItem(productID, "Widget", 2, eventid.MoneyFromDollars(10)))
	require.NoError(t, err)
	assert.Equal(t, eventid.MoneyFromDollars(20), result.Aggregate.TotalAmount())
	assert.Equal(t, 1, result.Aggregate.ItemCount())
}

func TestAddItem_ExistingProductFoldsIntoQuantityUpdate(t *testing.T) {
	h := newHandler()
	ctx := context.Background()
	id := eventid.NewAggregateID()
	_, err := h.Execute(ctx, id, order.Create(eventid.NewCustomerID()))
	require.NoError(t, err)

	productID := eventid.NewProductID("sku-1")
	_, err = h.Execute(ctx, id, order.AddItem(productID, "Widget", 2, eventid.MoneyFromDollars(10)))
	require.NoError(t, err)

	result, err := h.Execute(ctx, id, order.AddItem(productID, "Widget", 3, eventid.MoneyFromDollars(10)))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Aggregate.ItemCount())
	assert.Equal(t, eventid.MoneyFromDollars(50), result.Aggregate.TotalAmount())
}

func TestAddItem_RejectsZeroQuantityAndNonPositivePrice(t *testing.T) {
	h := newHandler()
	ctx := context.Background()
	id := eventid.NewAggregateID()
	_, err := h.Execute(ctx, id, order.Create(eventid.NewCustomerID()))
	require.NoError(t, err)

	_, err = h.Execute(ctx, id, order.AddItem(eventid.NewProductID("sku-1"), "Widget", 0, eventid.MoneyFromDollars(10)))
	assert.ErrorIs(t, err, order.ErrInvalidQuantity)

	_, err = h.Execute(ctx, id, order.AddItem(eventid.NewProductID("sku-1"), "Widget", 1, eventid.MoneyFromCents(0)))
	assert.ErrorIs(t, err, order.ErrInvalidPrice)
}

func TestRemoveItem_UnknownProductFails(t *testing.T) {
	h := newHandler()
	ctx := context.Background()
	id := eventid.NewAggregateID()
	_, err := h.Execute(ctx, id, order.Create(eventid.NewCustomerID()))
	require.NoError(t, err)

	_, err = h.Execute(ctx, id, order.RemoveItem(eventid.NewProductID("missing")))
	assert.ErrorIs(t, err, order.ErrItemNotFound)
}

func TestUpdateItemQuantity_ToZeroRemoves(t *testing.T) {
	h := newHandler()
	ctx := context.Background()
	id := eventid.NewAggregateID()
	_, err := h.Execute(ctx, id, order.Create(eventid.NewCustomerID()))
	require.NoError(t, err)

	productID := eventid.NewProductID("sku-1")
	_, err = h.Execute(ctx, id, order.AddItem(productID, "Widget", 2, eventid.MoneyFromDollars(10)))
	require.NoError(t, err)

	result, err := h.Execute(ctx, id, order.UpdateItemQuantity(productID, 0))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Aggregate.ItemCount())
	assert.True(t, result.Aggregate.TotalAmount().IsZero())
}

func TestUpdateItemQuantity_SameValueIsNoOp(t *testing.T) {
	h := newHandler()
	ctx := context.Background()
	id := eventid.NewAggregateID()
	_, err := h.Execute(ctx, id, order.Create(eventid.NewCustomerID()))
	require.NoError(t, err)

	productID := eventid.NewProductID("sku-1")
	_, err = h.Execute(ctx, id, order.AddItem(productID, "Widget", 2, eventid.MoneyFromDollars(10)))
	require.NoError(t, err)

	existing, err := h.Load(ctx, id)
	require.NoError(t, err)
	before := existing.Version()

	result, err := h.Execute(ctx, id, order.UpdateItemQuantity(productID, 2))
	require.NoError(t, err)
	assert.Equal(t, before, result.NewVersion)
}

func TestSubmit_EmptyOrderFails(t *testing.T) {
	h := newHandler()
	ctx := context.Background()
	id := eventid.NewAggregateID()
	_, err := h.Execute(ctx, id, order.Create(eventid.NewCustomerID()))
	require.NoError(t, err)

	_, err = h.Execute(ctx, id, order.Submit())
	assert.ErrorIs(t, err, order.ErrNoItems)
}

func TestSubmit_StaysInDraft(t *testing.T) {
	h := newHandler()
	ctx := context.Background()
	id := eventid.NewAggregateID()
	_, err := h.Execute(ctx, id, order.Create(eventid.NewCustomerID()))
	require.NoError(t, err)
	_, err = h.Execute(ctx, id, order.AddItem(eventid.NewProductID("sku-1"), "Widget", 1, eventid.MoneyFromDollars(5)))
	require.NoError(t, err)

	result, err := h.Execute(ctx, id, order.Submit())
	require.NoError(t, err)
	assert.Equal(t, order.StateDraft, result.Aggregate.State())
}

func TestFullLifecycle_ReachesCompleted(t *testing.T) {
	h := newHandler()
	ctx := context.Background()
	id := eventid.NewAggregateID()

	_, err := h.Execute(ctx, id, order.Create(eventid.NewCustomerID()))
	require.NoError(t, err)
	_, err = h.Execute(ctx, id, order.AddItem(eventid.NewProductID("sku-1"), "Widget", 1, eventid.MoneyFromDollars(5)))
	require.NoError(t, err)
	_, err = h.Execute(ctx, id, order.Submit())
	require.NoError(t, err)
	_, err = h.Execute(ctx, id, order.MarkReserved("RES-0001"))
	require.NoError(t, err)
	_, err = h.Execute(ctx, id, order.StartProcessing("PAY-0001"))
	require.NoError(t, err)
	tracking := "TRACK-0001"
	result, err := h.Execute(ctx, id, order.Complete(&tracking))
	require.NoError(t, err)
	assert.Equal(t, order.StateCompleted, result.Aggregate.State())
}

func TestCancel_FromDraftSucceeds(t *testing.T) {
	h := newHandler()
	ctx := context.Background()
	id := eventid.NewAggregateID()
	_, err := h.Execute(ctx, id, order.Create(eventid.NewCustomerID()))
	require.NoError(t, err)

	reason := "customer request"
	result, err := h.Execute(ctx, id, order.Cancel(reason, nil))
	require.NoError(t, err)
	assert.Equal(t, order.StateCancelled, result.Aggregate.State())
}

func TestCancel_FromTerminalStateFails(t *testing.T) {
	h := newHandler()
	ctx := context.Background()
	id := eventid.NewAggregateID()
	_, err := h.Execute(ctx, id, order.Create(eventid.NewCustomerID()))
	require.NoError(t, err)
	_, err = h.Execute(ctx, id, order.Cancel("first cancel", nil))
	require.NoError(t, err)

	_, err = h.Execute(ctx, id, order.Cancel("second cancel", nil))
	var stateErr *order.InvalidStateTransitionError
	require.ErrorAs(t, err, &stateErr)
}

func TestAddItem_RejectedOutsideDraft(t *testing.T) {
	h := newHandler()
	ctx := context.Background()
	id := eventid.NewAggregateID()
	_, err := h.Execute(ctx, id, order.Create(eventid.NewCustomerID()))
	require.NoError(t, err)
	_, err = h.Execute(ctx, id, order.Cancel("gone", nil))
	require.NoError(t, err)

	_, err = h.Execute(ctx, id, order.AddItem(eventid.NewProductID("sku-1"), "Widget", 1, eventid.MoneyFromDollars(5)))
	var stateErr *order.InvalidStateTransitionError
	require.ErrorAs(t, err, &stateErr)
}

func TestSnapshot_CreatedAt50thVersionAndReloadMatches(t *testing.T) {
	store := eventstore.NewMemoryStore()
	h := aggregate.NewCommandHandler(store, order.AggregateTypeName, order.Codec, order.New)
	ctx := context.Background()
	id := eventid.NewAggregateID()

	_, err := h.ExecuteWithSnapshot(ctx, id, order.Create(eventid.NewCustomerID()))
	require.NoError(t, err)

	// 49 AddItem/RemoveItem pairs of events would be excessive; instead
	// drive a tight loop of single-event AddItem commands, each for a
	// distinct product, until the aggregate crosses version 50.
	for i := 0; i < 49; i++ {
		productID := eventid.NewProductID(fmt.Sprintf("sku-%d", i))
		_, err := h.ExecuteWithSnapshot(ctx, id, order.AddItem(productID, "Widget", 1, eventid.MoneyFromDollars(1)))
		require.NoError(t, err)
	}

	snap, ok, err := store.GetSnapshot(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, eventid.Version(50), snap.Version)

	reloaded, err := h.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, eventid.Version(50), reloaded.Version())
	assert.Equal(t, 49, reloaded.ItemCount())
}
