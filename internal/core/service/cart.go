package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

var _ port.CartStore = (*CartStore)(nil)

const loadTimeout = 5 * time.Second

// A CartStore holds the contents of one cart session.
//
// Mutations are applied one at a time and each one is persisted
// through the [port.CartPersister]. Mutations never fail: a save
// error is logged and the in-memory state stays authoritative.
//
// A store that could not load its state keeps retrying the load
// and never saves before it succeeds, so the stored cart is not
// overwritten with an empty one.
type CartStore struct {
	key       string
	persister port.CartPersister
	retired   atomic.Bool

	mu       sync.Mutex
	hydrated bool
	state    domain.CartState
}

// NewCartStore creates the store and hydrates it from the persister.
func NewCartStore(
	ctx context.Context, key string, persister port.CartPersister,
) *CartStore {
	const op = "NewCartStore"

	if persister == nil {
		panic(op + ": persister is nil") // develop mistake
	}

	s := &CartStore{key: key, persister: persister}
	s.hydrate(ctx, op)
	return s
}

// hydrate loads the state unless it is already loaded.
// A retired store reloads every time. Must be called with mu held.
func (s *CartStore) hydrate(ctx context.Context, op string) bool {
	if s.hydrated && !s.retired.Load() {
		return true
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
	defer cancel()

	state, err := s.persister.LoadCart(ctx, s.key)
	if err != nil {
		slog.Warn(
			"failed to load cart",
			"op", op, "cartKey", s.key, "err", err,
		)
		return false
	}
	s.state = normalizeState(state)
	s.hydrated = true
	return true
}

// retire marks a store dropped from its registry. A caller still
// holding it reloads the persisted state before every mutation.
func (s *CartStore) retire() {
	s.retired.Store(true)
}

func (s *CartStore) AddItem(ctx context.Context, p domain.ProductSnapshot) {
	const op = "CartStore.AddItem"

	if p.ID == "" {
		slog.Warn("product without id ignored", "op", op, "cartKey", s.key)
		return
	}

	s.mutate(ctx, op, func(st domain.CartState) (domain.CartState, bool) {
		return addProduct(st, p)
	})
}

func (s *CartStore) RemoveItem(ctx context.Context, productID string) {
	const op = "CartStore.RemoveItem"

	s.mutate(ctx, op, func(st domain.CartState) (domain.CartState, bool) {
		return removeProduct(st, productID)
	})
}

func (s *CartStore) UpdateQuantity(
	ctx context.Context, productID string, delta int,
) {
	const op = "CartStore.UpdateQuantity"

	s.mutate(ctx, op, func(st domain.CartState) (domain.CartState, bool) {
		return changeQuantity(st, productID, delta)
	})
}

func (s *CartStore) Reset(ctx context.Context) {
	const op = "CartStore.Reset"

	s.mutate(ctx, op, func(st domain.CartState) (domain.CartState, bool) {
		return domain.CartState{}, len(st.Lines) != 0
	})
}

func (s *CartStore) ItemCount(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hydrate(context.Background(), "CartStore.ItemCount")

	if i := lineIndex(s.state, productID); i >= 0 {
		return s.state.Lines[i].Quantity
	}
	return 0
}

// GroupedItems returns one entry per product in insertion order.
func (s *CartStore) GroupedItems() []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hydrate(context.Background(), "CartStore.GroupedItems")
	return groupItems(s.state)
}

// SubTotalPrice sums list prices.
func (s *CartStore) SubTotalPrice() float64 {
	return subTotalOf(s.GroupedItems())
}

// TotalPrice sums effective prices, falling back to list prices.
func (s *CartStore) TotalPrice() float64 {
	return totalOf(s.GroupedItems())
}

// Discount is the difference between subtotal and total.
// It is negative when some effective price exceeds the list price.
func (s *CartStore) Discount() float64 {
	items := s.GroupedItems()
	return subTotalOf(items) - totalOf(items)
}

func (s *CartStore) mutate(
	ctx context.Context,
	op string,
	next func(domain.CartState) (domain.CartState, bool),
) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hydrate(ctx, op) {
		slog.Error(
			"cart is not loaded, mutation dropped",
			"op", op, "cartKey", s.key,
		)
		return
	}

	state, changed := next(s.state)
	if !changed {
		return
	}
	s.state = state

	// the change is already applied, a cancelled request must not lose it
	ctx = context.WithoutCancel(ctx)
	if err := s.persister.SaveCart(ctx, s.key, state.Clone()); err != nil {
		slog.Error(
			"failed to persist cart",
			"op", op, "cartKey", s.key, "err", err,
		)
	}
}
