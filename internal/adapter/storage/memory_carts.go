package storage

import (
	"context"
	"sync"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

var _ port.CartPersister = (*MemoryCarts)(nil)

// A MemoryCarts keeps cart states in process memory.
type MemoryCarts struct {
	mu    sync.RWMutex
	carts map[string]domain.CartState
}

func NewMemoryCarts() *MemoryCarts {
	return &MemoryCarts{carts: make(map[string]domain.CartState)}
}

func (m *MemoryCarts) LoadCart(
	ctx context.Context, key string,
) (domain.CartState, error) {
	if err := ctx.Err(); err != nil {
		return domain.CartState{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.carts[key].Clone(), nil
}

func (m *MemoryCarts) SaveCart(
	ctx context.Context, key string, s domain.CartState,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(s.Lines) == 0 {
		delete(m.carts, key)
		return nil
	}
	m.carts[key] = s.Clone()
	return nil
}
