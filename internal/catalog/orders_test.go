package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkincode/stockpilot/internal/domain"
)

func TestSaveOrderAssignsID(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	saved, err := svc.SaveOrder(ctx, domain.Order{Code: "A1", Quantity: 0})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, 1, saved.Quantity)
	assert.False(t, saved.Timestamp.IsZero())
}

func TestSaveOrderEditInPlace(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	saved, err := svc.SaveOrder(ctx, domain.Order{Code: "A1", Quantity: 2})
	require.NoError(t, err)

	saved.Quantity = 5
	edited, err := svc.SaveOrder(ctx, saved)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, edited.ID)

	orders, err := svc.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, 5, orders[0].Quantity)
}

func TestDeleteOrder(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	saved, err := svc.SaveOrder(ctx, domain.Order{Code: "A1"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteOrder(ctx, saved.ID))
	orders, err := svc.ListOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)

	// absent id is a no-op
	assert.NoError(t, svc.DeleteOrder(ctx, "missing"))
}

func TestOrdersForDay(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	now := time.Now()
	yesterday := now.AddDate(0, 0, -1)

	_, err := svc.SaveOrder(ctx, domain.Order{Code: "A1", Timestamp: now})
	require.NoError(t, err)
	_, err = svc.SaveOrder(ctx, domain.Order{Code: "B2", Timestamp: yesterday})
	require.NoError(t, err)

	today, err := svc.OrdersForDay(ctx, "")
	require.NoError(t, err)
	require.Len(t, today, 1)
	assert.Equal(t, "A1", today[0].Code)

	prev, err := svc.OrdersForDay(ctx, yesterday.Format("2006-01-02"))
	require.NoError(t, err)
	require.Len(t, prev, 1)
	assert.Equal(t, "B2", prev[0].Code)
}

func TestClearOrdersForDay(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	now := time.Now()
	yesterday := now.AddDate(0, 0, -1)

	_, err := svc.SaveOrder(ctx, domain.Order{Code: "A1", Timestamp: now})
	require.NoError(t, err)
	_, err = svc.SaveOrder(ctx, domain.Order{Code: "B2", Timestamp: yesterday})
	require.NoError(t, err)

	removed, err := svc.ClearOrdersForDay(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	orders, err := svc.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "B2", orders[0].Code)
}

func TestOrdersForDayBadInput(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.OrdersForDay(context.Background(), "not a date")
	assert.Error(t, err)
}

func TestUpdateOrderField(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	saved, err := svc.SaveOrder(ctx, domain.Order{Code: "A1", Quantity: 1})
	require.NoError(t, err)

	order, err := svc.UpdateOrderField(ctx, saved.ID, "quantity", "7")
	require.NoError(t, err)
	assert.Equal(t, 7, order.Quantity)

	// garbage quantity re-normalizes to one
	order, err = svc.UpdateOrderField(ctx, saved.ID, "quantity", "xyz")
	require.NoError(t, err)
	assert.Equal(t, 1, order.Quantity)

	order, err = svc.UpdateOrderField(ctx, saved.ID, "customer", "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", order.Customer)

	_, err = svc.UpdateOrderField(ctx, saved.ID, "bogus", "x")
	assert.Error(t, err)

	_, err = svc.UpdateOrderField(ctx, "missing", "customer", "x")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGridColumns(t *testing.T) {
	svc := newTestService(t)

	assert.Equal(t, DefaultGridColumns, svc.GridColumns())

	require.NoError(t, svc.SetGridColumns(9))
	assert.Equal(t, 9, svc.GridColumns())

	// out-of-range input clamps
	require.NoError(t, svc.SetGridColumns(99))
	assert.Equal(t, maxGridColumns, svc.GridColumns())
	require.NoError(t, svc.SetGridColumns(0))
	assert.Equal(t, minGridColumns, svc.GridColumns())
}

func TestHidePriceCustomers(t *testing.T) {
	svc := newTestService(t)

	assert.Empty(t, svc.HidePriceCustomers())
	require.NoError(t, svc.SetHidePriceCustomers([]string{"alice", "bob"}))
	assert.Equal(t, []string{"alice", "bob"}, svc.HidePriceCustomers())
}
