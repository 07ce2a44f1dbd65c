package journal

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(t *testing.T, m *Memory, typ EventType, user, asset string) Event {
	t.Helper()
	e := NewEvent(typ)
	e.User = user
	e.Asset = asset
	e.Amount = decimal.NewFromInt(1)
	require.NoError(t, m.Record(context.Background(), e))
	return e
}

func TestListNewestFirstWithFilters(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	record(t, m, EventSupply, "0xalice", "ETH")
	record(t, m, EventBorrow, "0xalice", "USDC")
	record(t, m, EventSupply, "0xbob", "ETH")

	all, err := m.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "0xbob", all[0].User)
	assert.Equal(t, EventSupply, all[2].Type)

	byUser, err := m.List(ctx, Filter{User: "0xalice"})
	require.NoError(t, err)
	assert.Len(t, byUser, 2)

	byType, err := m.List(ctx, Filter{Type: EventBorrow})
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, "USDC", byType[0].Asset)

	limited, err := m.List(ctx, Filter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "0xbob", limited[0].User)
}

func TestPendingDeliveryLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	e := NewEvent(EventPendingDelivery)
	e.User = "0xalice"
	e.Asset = "ETH"
	e.Status = DeliveryPending
	e.Detail = "gateway unreachable"
	require.NoError(t, m.Record(ctx, e))

	pending, err := m.PendingDeliveries(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, e.ID, pending[0].ID)

	require.NoError(t, m.ResolveDelivery(ctx, e.ID))

	pending, err = m.PendingDeliveries(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestResolveUnknownDelivery(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	assert.ErrorIs(t, m.ResolveDelivery(ctx, "no-such-id"), ErrNotFound)

	// Non-delivery events are not resolvable even with a matching id.
	e := record(t, m, EventSupply, "0xalice", "ETH")
	assert.ErrorIs(t, m.ResolveDelivery(ctx, e.ID), ErrNotFound)
}
