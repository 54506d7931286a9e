package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

var _ port.CartPersister = CartsRepository{}

// A CartsRepository keeps cart states in the carts table.
type CartsRepository struct {
	sqldb sqldb
}

func NewCartsRepository(sqldb sqldb) CartsRepository {
	if sqldb == nil {
		panic("NewCartsRepository: sqldb is nil") // develop mistake
	}
	return CartsRepository{sqldb}
}

// LoadCart returns an empty state for an unknown key.
func (r CartsRepository) LoadCart(
	ctx context.Context, key string,
) (domain.CartState, error) {
	const op = "CartsRepository.LoadCart"

	if err := ctx.Err(); err != nil {
		return domain.CartState{}, fmt.Errorf("%s: %w", op, err)
	}

	query := `SELECT state FROM carts WHERE cart_key = $1;`

	var data []byte
	err := r.sqldb.QueryRowContext(ctx, query, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
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

// SaveCart upserts the state, an empty cart deletes the row.
func (r CartsRepository) SaveCart(
	ctx context.Context, key string, s domain.CartState,
) (saveErr error) {
	const op = "CartsRepository.SaveCart"
	log := slog.With("op", op)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if len(s.Lines) == 0 {
		query := `DELETE FROM carts WHERE cart_key = $1;`
		if _, err := r.sqldb.ExecContext(ctx, query, key); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}

	data, err := encodeCart(s)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tx, err := r.sqldb.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: failed to begin tx: %w", op, err)
	}

	defer func() {
		if saveErr == nil {
			if err := tx.Commit(); err != nil {
				saveErr = fmt.Errorf("%s: failed to commit %w", op, err)
			}
			return
		}

		err := tx.Rollback()
		if err != nil {
			log.Error("failed to rollback tx", "err", err)
		}
	}()

	query := `
		INSERT INTO carts (cart_key, state, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (cart_key) DO UPDATE SET
			state = EXCLUDED.state,
			updated_at = EXCLUDED.updated_at;
	`

	if _, err := tx.ExecContext(ctx, query, key, data); err != nil {
		return fmt.Errorf("%s: failed to upsert: %w", op, err)
	}
	return nil
}
