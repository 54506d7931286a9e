package service_test

import (
	"context"
	"errors"
	"sync"

	"github.com/niksmo/storefront/internal/core/domain"
)

type memPersister struct {
	mu      sync.Mutex
	carts   map[string]domain.CartState
	saves     int
	loadErr   error
	failLoads int
	saveErr   error
}

func newMemPersister() *memPersister {
	return &memPersister{carts: make(map[string]domain.CartState)}
}

func (p *memPersister) LoadCart(
	ctx context.Context, key string,
) (domain.CartState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return domain.CartState{}, err
	}
	if p.failLoads > 0 {
		p.failLoads--
		return domain.CartState{}, errBoom
	}
	if p.loadErr != nil {
		return domain.CartState{}, p.loadErr
	}
	return p.carts[key].Clone(), nil
}

func (p *memPersister) SaveCart(
	ctx context.Context, key string, s domain.CartState,
) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	p.saves++
	if p.saveErr != nil {
		return p.saveErr
	}
	p.carts[key] = s.Clone()
	return nil
}

func (p *memPersister) saved(key string) domain.CartState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.carts[key].Clone()
}

var errBoom = errors.New("boom")

func price(v float64) *float64 {
	return &v
}

func product(id string, list float64) domain.ProductSnapshot {
	return domain.ProductSnapshot{ID: id, Name: "product " + id, Price: price(list)}
}

func discounted(id string, list, effective float64) domain.ProductSnapshot {
	p := product(id, list)
	p.EffectivePrice = price(effective)
	return p
}

// seededCart holds a x2 and b x1.
func seededCart() domain.CartState {
	return domain.CartState{Lines: []domain.CartLine{
		{ProductID: "a", Product: product("a", 1), Quantity: 2},
		{ProductID: "b", Product: product("b", 1), Quantity: 1},
	}}
}
