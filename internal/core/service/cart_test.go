package service_test

import (
	"context"
	"testing"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestCartStore(t *testing.T) {
	t.Run("AddItemAppendsInInsertionOrder", func(t *testing.T) {
		s := service.NewCartStore(t.Context(), "k", newMemPersister())

		s.AddItem(t.Context(), product("a", 1))
		s.AddItem(t.Context(), product("b", 2))
		s.AddItem(t.Context(), product("a", 1))

		items := s.GroupedItems()
		require.Len(t, items, 2)
		assert.Equal(t, "a", items[0].Product.ID)
		assert.Equal(t, 2, items[0].Quantity)
		assert.Equal(t, "b", items[1].Product.ID)
		assert.Equal(t, 1, items[1].Quantity)
	})

	t.Run("ConcurrentAddItemKeepsEveryIncrement", func(t *testing.T) {
		s := service.NewCartStore(t.Context(), "k", newMemPersister())

		const N = 100
		var g errgroup.Group
		for range N {
			g.Go(func() error {
				s.AddItem(context.Background(), product("a", 1))
				return nil
			})
		}
		require.NoError(t, g.Wait())

		assert.Equal(t, N, s.ItemCount("a"))
	})

	t.Run("UpdateQuantityByMinusCurrentRemovesLine", func(t *testing.T) {
		s := service.NewCartStore(t.Context(), "k", newMemPersister())
		for range 3 {
			s.AddItem(t.Context(), product("a", 1))
		}
		s.AddItem(t.Context(), product("b", 1))

		s.UpdateQuantity(t.Context(), "a", -s.ItemCount("a"))

		assert.Equal(t, 0, s.ItemCount("a"))
		items := s.GroupedItems()
		require.Len(t, items, 1)
		assert.Equal(t, "b", items[0].Product.ID)
	})

	t.Run("UpdateQuantityBelowZeroRemovesLine", func(t *testing.T) {
		s := service.NewCartStore(t.Context(), "k", newMemPersister())
		s.AddItem(t.Context(), product("a", 1))

		s.UpdateQuantity(t.Context(), "a", -5)

		assert.Empty(t, s.GroupedItems())
	})

	t.Run("UpdateQuantityIncrements", func(t *testing.T) {
		s := service.NewCartStore(t.Context(), "k", newMemPersister())
		s.AddItem(t.Context(), product("a", 1))

		s.UpdateQuantity(t.Context(), "a", 4)

		assert.Equal(t, 5, s.ItemCount("a"))
	})

	t.Run("UnknownProductIsNoop", func(t *testing.T) {
		p := newMemPersister()
		s := service.NewCartStore(t.Context(), "k", p)
		s.AddItem(t.Context(), product("a", 1))
		saves := p.saves

		s.UpdateQuantity(t.Context(), "missing", 3)
		s.RemoveItem(t.Context(), "missing")

		assert.Equal(t, 1, s.ItemCount("a"))
		assert.Equal(t, 0, s.ItemCount("missing"))
		assert.Equal(t, saves, p.saves)
	})

	t.Run("RemoveItem", func(t *testing.T) {
		s := service.NewCartStore(t.Context(), "k", newMemPersister())
		s.AddItem(t.Context(), product("a", 1))
		s.AddItem(t.Context(), product("b", 1))

		s.RemoveItem(t.Context(), "a")
		s.RemoveItem(t.Context(), "a")

		items := s.GroupedItems()
		require.Len(t, items, 1)
		assert.Equal(t, "b", items[0].Product.ID)
	})

	t.Run("ResetEmptiesAnyCart", func(t *testing.T) {
		s := service.NewCartStore(t.Context(), "k", newMemPersister())
		s.AddItem(t.Context(), product("a", 1))
		s.AddItem(t.Context(), discounted("b", 3, 2))

		s.Reset(t.Context())
		s.Reset(t.Context())

		assert.Empty(t, s.GroupedItems())
		assert.Zero(t, s.TotalPrice())
	})

	t.Run("Totals", func(t *testing.T) {
		s := service.NewCartStore(t.Context(), "k", newMemPersister())
		s.AddItem(t.Context(), product("a", 10))
		s.AddItem(t.Context(), product("a", 10))
		s.AddItem(t.Context(), product("b", 5))

		assert.InDelta(t, 25.0, s.SubTotalPrice(), 1e-9)
		assert.InDelta(t, 25.0, s.TotalPrice(), 1e-9)

		s.RemoveItem(t.Context(), "b")
		s.AddItem(t.Context(), discounted("b", 5, 3))

		assert.InDelta(t, 25.0, s.SubTotalPrice(), 1e-9)
		assert.InDelta(t, 23.0, s.TotalPrice(), 1e-9)
		assert.InDelta(t, 2.0, s.Discount(), 1e-9)
	})

	t.Run("DiscountIsNeverNegativeForValidSnapshots", func(t *testing.T) {
		s := service.NewCartStore(t.Context(), "k", newMemPersister())
		s.AddItem(t.Context(), discounted("a", 9.99, 4.5))
		s.AddItem(t.Context(), discounted("b", 3, 3))
		s.AddItem(t.Context(), product("c", 1.25))
		s.UpdateQuantity(t.Context(), "a", 6)

		assert.GreaterOrEqual(t, s.SubTotalPrice()-s.TotalPrice(), 0.0)
	})

	t.Run("NegativeDiscountIsNotClamped", func(t *testing.T) {
		s := service.NewCartStore(t.Context(), "k", newMemPersister())
		s.AddItem(t.Context(), discounted("a", 2, 3))

		assert.InDelta(t, -1.0, s.Discount(), 1e-9)
	})

	t.Run("MissingPriceCountsAsZero", func(t *testing.T) {
		s := service.NewCartStore(t.Context(), "k", newMemPersister())
		s.AddItem(t.Context(), domain.ProductSnapshot{ID: "a"})
		s.AddItem(t.Context(), product("b", 4))

		assert.InDelta(t, 4.0, s.SubTotalPrice(), 1e-9)
	})

	t.Run("GroupedItemsIsACopy", func(t *testing.T) {
		s := service.NewCartStore(t.Context(), "k", newMemPersister())
		s.AddItem(t.Context(), product("a", 10))

		items := s.GroupedItems()
		items[0].Quantity = 42
		*items[0].Product.Price = 0

		assert.Equal(t, 1, s.ItemCount("a"))
		assert.InDelta(t, 10.0, s.SubTotalPrice(), 1e-9)
	})

	t.Run("ProductWithoutIDIgnored", func(t *testing.T) {
		s := service.NewCartStore(t.Context(), "k", newMemPersister())
		s.AddItem(t.Context(), domain.ProductSnapshot{Name: "nameless"})

		assert.Empty(t, s.GroupedItems())
	})
}

func TestCartStorePersistence(t *testing.T) {
	t.Run("SavesEveryMutation", func(t *testing.T) {
		p := newMemPersister()
		s := service.NewCartStore(t.Context(), "k", p)

		s.AddItem(t.Context(), product("a", 1))
		s.AddItem(t.Context(), product("a", 1))
		s.UpdateQuantity(t.Context(), "a", -1)
		s.AddItem(t.Context(), product("b", 1))
		s.RemoveItem(t.Context(), "b")

		assert.Equal(t, 5, p.saves)
		saved := p.saved("k")
		require.Len(t, saved.Lines, 1)
		assert.Equal(t, "a", saved.Lines[0].ProductID)
		assert.Equal(t, 1, saved.Lines[0].Quantity)
	})

	t.Run("HydratesOnInit", func(t *testing.T) {
		p := newMemPersister()
		first := service.NewCartStore(t.Context(), "k", p)
		first.AddItem(t.Context(), product("a", 1))
		first.AddItem(t.Context(), product("b", 1))
		first.AddItem(t.Context(), product("b", 1))

		second := service.NewCartStore(t.Context(), "k", p)

		assert.Equal(t, first.GroupedItems(), second.GroupedItems())
	})

	t.Run("HydrationNormalizesState", func(t *testing.T) {
		p := newMemPersister()
		p.carts["k"] = domain.CartState{Lines: []domain.CartLine{
			{ProductID: "a", Product: product("a", 1), Quantity: 2},
			{ProductID: "zero", Product: product("zero", 1), Quantity: 0},
			{ProductID: "a", Product: product("a", 1), Quantity: 1},
		}}

		s := service.NewCartStore(t.Context(), "k", p)

		items := s.GroupedItems()
		require.Len(t, items, 1)
		assert.Equal(t, 3, items[0].Quantity)
	})

	t.Run("LoadFailureStartsEmpty", func(t *testing.T) {
		p := newMemPersister()
		p.loadErr = errBoom

		s := service.NewCartStore(t.Context(), "k", p)

		assert.Empty(t, s.GroupedItems())
	})

	t.Run("TransientLoadFailureKeepsStoredCart", func(t *testing.T) {
		p := newMemPersister()
		p.carts["k"] = seededCart()
		p.failLoads = 1

		s := service.NewCartStore(t.Context(), "k", p)
		s.AddItem(t.Context(), product("c", 1))

		saved := p.saved("k")
		require.Len(t, saved.Lines, 3)
		assert.Equal(t, 2, saved.Lines[0].Quantity)
		assert.Equal(t, "c", saved.Lines[2].ProductID)
	})

	t.Run("UnloadedCartIsNeverOverwritten", func(t *testing.T) {
		p := newMemPersister()
		p.carts["k"] = seededCart()
		p.loadErr = errBoom

		s := service.NewCartStore(t.Context(), "k", p)
		s.AddItem(t.Context(), product("c", 1))

		assert.Zero(t, p.saves)
		assert.Len(t, p.saved("k").Lines, 2)

		p.mu.Lock()
		p.loadErr = nil
		p.mu.Unlock()

		s.AddItem(t.Context(), product("c", 1))
		assert.Len(t, p.saved("k").Lines, 3)
	})

	t.Run("SaveOutlivesCancelledRequest", func(t *testing.T) {
		p := newMemPersister()
		s := service.NewCartStore(t.Context(), "k", p)

		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		s.AddItem(ctx, product("a", 1))

		saved := p.saved("k")
		require.Len(t, saved.Lines, 1)
		assert.Equal(t, "a", saved.Lines[0].ProductID)
	})

	t.Run("SaveFailureKeepsMutation", func(t *testing.T) {
		p := newMemPersister()
		p.saveErr = errBoom
		s := service.NewCartStore(t.Context(), "k", p)

		s.AddItem(t.Context(), product("a", 1))

		assert.Equal(t, 1, s.ItemCount("a"))
	})

	t.Run("NilPersisterPanics", func(t *testing.T) {
		assert.Panics(t, func() {
			service.NewCartStore(t.Context(), "k", nil)
		})
	})
}
