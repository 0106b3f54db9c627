package aggregation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xiebiao/stockhub/internal/domain/central"
)

func seeded(t *testing.T) (*ingestFixture, *QueryUseCase) {
	t.Helper()
	f := newIngestFixture()
	f.handle(t, newEvent("e1", "store-1", 1, 90, 10))
	f.handle(t, newEvent("e2", "store-2", 1, 3, 0))

	low := newEvent("e3", "store-1", 1, 2, 0)
	low.SKU = "SKU-2"
	f.handle(t, low)

	empty := newEvent("e4", "store-2", 1, 0, 1)
	empty.SKU = "SKU-3"
	f.handle(t, empty)

	return f, NewQueryUseCase(f.stores, f.globals)
}

func TestQuery_GetBySKU(t *testing.T) {
	_, q := seeded(t)

	view, err := q.GetBySKU(context.Background(), "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, 93, view.Global.Available)
	require.Len(t, view.Stores, 2)
	assert.Equal(t, "store-1", view.Stores[0].StoreID)
	assert.Equal(t, "store-2", view.Stores[1].StoreID)

	_, err = q.GetBySKU(context.Background(), "SKU-404")
	assert.ErrorIs(t, err, central.ErrInventoryNotFound)
}

func TestQuery_Lists(t *testing.T) {
	_, q := seeded(t)
	ctx := context.Background()

	t.Run("门店库存", func(t *testing.T) {
		items, total, err := q.ListByStore(ctx, "store-1", central.Page{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Equal(t, "SKU-1", items[0].SKU)
	})

	t.Run("有可售库存", func(t *testing.T) {
		items, total, err := q.ListWithAvailableStock(ctx, central.Page{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Equal(t, "SKU-1", items[0].SKU)
		assert.Equal(t, "SKU-2", items[1].SKU)
	})

	t.Run("低库存", func(t *testing.T) {
		items, total, err := q.ListLowStock(ctx, 2, central.Page{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Equal(t, "SKU-2", items[0].SKU)
		assert.Equal(t, "SKU-3", items[1].SKU)

		_, _, err = q.ListLowStock(ctx, -1, central.Page{})
		assert.ErrorIs(t, err, central.ErrInvalidThreshold)
	})

	t.Run("分页", func(t *testing.T) {
		items, total, err := q.ListLowStock(ctx, 1000, central.Page{Page: 2, PageSize: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, items, 1)
		assert.Equal(t, "SKU-3", items[0].SKU)
	})
}

func TestQuery_StoreStats(t *testing.T) {
	f, q := seeded(t)
	require.NoError(t, f.stores.MarkUnsynchronized(context.Background(), "SKU-2", "store-1"))

	stats, err := q.StoreStats(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 2)

	s1 := stats[0]
	assert.Equal(t, "store-1", s1.StoreID)
	assert.Equal(t, int64(2), s1.SKUCount)
	assert.Equal(t, int64(92), s1.TotalAvailable)
	assert.Equal(t, int64(10), s1.TotalReserved)
	assert.Equal(t, int64(102), s1.TotalQuantity)
	assert.Equal(t, int64(1), s1.UnsynchronizedCount)

	items, total, err := q.ListUnsynchronized(context.Background(), central.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "SKU-2", items[0].SKU)
}

func TestAdmin_ListAndPurgeEvents(t *testing.T) {
	f, _ := seeded(t)
	now := t0
	admin := NewAdminUseCase(f.ledger, zap.NewNop(), func() time.Time { return now })
	ctx := context.Background()

	items, total, err := admin.ListEvents(ctx, central.EventFilter{StoreID: "store-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, "e3", items[0].EventID, "按接收顺序倒序")

	_, total, err = admin.ListEvents(ctx, central.EventFilter{Status: central.ProcessingProcessed, SKU: "SKU-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	_, _, err = admin.ListEvents(ctx, central.EventFilter{Status: "DONE"})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = admin.PurgeEvents(ctx, 0)
	assert.ErrorIs(t, err, central.ErrInvalidRetention)

	n, err := admin.PurgeEvents(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	now = t0.AddDate(0, 0, 8)
	n, err = admin.PurgeEvents(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}
