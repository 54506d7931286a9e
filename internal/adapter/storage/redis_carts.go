package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
	goredis "github.com/redis/go-redis/v9"
)

var _ port.CartPersister = RedisCarts{}

const redisCartPrefix = "storefront:cart:"

type redisKV interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(
		ctx context.Context, key string, value any, expiration time.Duration,
	) *goredis.StatusCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
}

// NewRedisClient connects and pings the server.
func NewRedisClient(
	ctx context.Context, addr, password string, db int,
) (*goredis.Client, error) {
	const op = "NewRedisClient"

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: redis is unavailable: %w", op, err)
	}
	slog.Info("redis is available", "op", op)
	return rdb, nil
}

// A RedisCarts keeps cart states as expiring json values.
//
// Every save refreshes the expiration.
type RedisCarts struct {
	kv  redisKV
	ttl time.Duration
}

func NewRedisCarts(kv redisKV, ttl time.Duration) RedisCarts {
	if kv == nil {
		panic("NewRedisCarts: redis client is nil") // develop mistake
	}
	return RedisCarts{kv: kv, ttl: ttl}
}

func (r RedisCarts) LoadCart(
	ctx context.Context, key string,
) (domain.CartState, error) {
	const op = "RedisCarts.LoadCart"

	data, err := r.kv.Get(ctx, redisCartPrefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.CartState{}, nil
	}
	if err != nil {
		return domain.CartState{}, fmt.Errorf("%s: %w", op, err)
	}

	s, err := decodeCart(data)
	if err != nil {
		return domain.CartState{}, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}

func (r RedisCarts) SaveCart(
	ctx context.Context, key string, s domain.CartState,
) error {
	const op = "RedisCarts.SaveCart"

	if len(s.Lines) == 0 {
		if err := r.kv.Del(ctx, redisCartPrefix+key).Err(); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}

	data, err := encodeCart(s)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := r.kv.Set(ctx, redisCartPrefix+key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
