package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/niksmo/storefront/internal/core/port"
)

var _ port.CartSessions = (*CartRegistry)(nil)

type cartSession struct {
	store       *CartStore
	checkingOut atomic.Bool
	lastUsed    atomic.Int64
}

// A CartRegistry owns one [CartStore] per cart session key.
//
// Stores are created on first use and hydrated from the persister,
// so dropping an idle one loses nothing.
type CartRegistry struct {
	persister port.CartPersister
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*cartSession
}

func NewCartRegistry(persister port.CartPersister) *CartRegistry {
	if persister == nil {
		panic("NewCartRegistry: persister is nil") // develop mistake
	}
	return &CartRegistry{
		persister: persister,
		now:       time.Now,
		sessions:  make(map[string]*cartSession),
	}
}

func (r *CartRegistry) Cart(ctx context.Context, key string) port.CartStore {
	return r.session(ctx, key).store
}

// BeginCheckout marks the session as submitting a checkout.
// It reports false if another submission is still in flight.
// The returned func releases the mark.
func (r *CartRegistry) BeginCheckout(key string) (func(), bool) {
	r.mu.Lock()
	cs, ok := r.sessions[key]
	r.mu.Unlock()
	if !ok {
		cs = r.session(context.Background(), key)
	}

	if !cs.checkingOut.CompareAndSwap(false, true) {
		return func() {}, false
	}
	var once sync.Once
	return func() {
		once.Do(func() { cs.checkingOut.Store(false) })
	}, true
}

// Sweep drops sessions unused for longer than idle.
// Sessions in the middle of a checkout are kept.
//
// A dropped store is retired: a request still holding it reloads the
// persisted state before each mutation. The store created for the next
// request does not see such a late write until its own next load.
func (r *CartRegistry) Sweep(idle time.Duration) int {
	deadline := r.now().Add(-idle).UnixNano()

	r.mu.Lock()
	defer r.mu.Unlock()

	var n int
	for key, cs := range r.sessions {
		if cs.checkingOut.Load() || cs.lastUsed.Load() > deadline {
			continue
		}
		delete(r.sessions, key)
		cs.store.retire()
		n++
	}
	return n
}

// Run sweeps idle sessions every interval until ctx is done.
func (r *CartRegistry) Run(ctx context.Context, interval, idle time.Duration) {
	const op = "CartRegistry.Run"
	log := slog.With("op", op)

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := r.Sweep(idle); n != 0 {
				log.Debug("idle cart sessions dropped", "n", n)
			}
		}
	}
}

func (r *CartRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *CartRegistry) session(ctx context.Context, key string) *cartSession {
	if cs := r.lookup(key); cs != nil {
		return cs
	}

	// loading happens outside the lock, a concurrent loser is discarded
	loaded := &cartSession{store: NewCartStore(ctx, key, r.persister)}

	r.mu.Lock()
	defer r.mu.Unlock()
	cs, ok := r.sessions[key]
	if !ok {
		cs = loaded
		r.sessions[key] = cs
	}
	cs.lastUsed.Store(r.now().UnixNano())
	return cs
}

func (r *CartRegistry) lookup(key string) *cartSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	cs, ok := r.sessions[key]
	if !ok {
		return nil
	}
	cs.lastUsed.Store(r.now().UnixNano())
	return cs
}
