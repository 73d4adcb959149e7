package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"coffeeshop-be/internal/logger"
	"coffeeshop-be/internal/product"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PriceFunc computes an order total against a catalog bound to the
// transaction that inserts the order.
type PriceFunc func(ctx context.Context, catalog product.Repository) (decimal.Decimal, error)

type Repository interface {
	CreateOrderTx(ctx context.Context, o *Order, price PriceFunc) error
	FindByIDForUser(ctx context.Context, id, userID int64) (*Order, error)
	ListByUser(ctx context.Context, userID int64) ([]Order, error)
	UpdateStatusTx(ctx context.Context, id int64, apply func(*Order) error) (*Order, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const orderColumns = `id, user_id, items, total_price, status, created_at, updated_at`

// CreateOrderTx prices and inserts o in one transaction. o.ID and
// o.TotalPrice are set from the stored row on success; nothing is written
// if pricing fails.
func (r *repository) CreateOrderTx(ctx context.Context, o *Order, price PriceFunc) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateOrderTx"),
	)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	total, err := price(ctx, product.NewRepository(tx))
	if err != nil {
		return err
	}

	var (
		id     int64
		stored decimal.Decimal
	)
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO orders (user_id, items, total_price, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, total_price
	`,
		o.UserID,
		o.Items,
		total,
		o.Status,
		o.CreatedAt,
		o.UpdatedAt,
	).Scan(&id, &stored)
	if err != nil {
		log.Error("insert order failed", zap.Int64("user_id", o.UserID), zap.Error(err))
		return fmt.Errorf("insert order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order: %w", err)
	}

	o.ID = id
	o.TotalPrice = stored
	return nil
}

func (r *repository) FindByIDForUser(ctx context.Context, id, userID int64) (*Order, error) {
	var o Order
	err := r.db.GetContext(ctx, &o,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("find order %d: %w", id, err)
	}
	return &o, nil
}

func (r *repository) ListByUser(ctx context.Context, userID int64) ([]Order, error) {
	orders := []Order{}
	err := r.db.SelectContext(ctx, &orders,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// UpdateStatusTx locks the row, lets apply mutate it, then writes status and
// updated_at back. If apply fails the row is left untouched.
func (r *repository) UpdateStatusTx(ctx context.Context, id int64, apply func(*Order) error) (*Order, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var o Order
	err = tx.GetContext(ctx, &o,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("lock order %d: %w", id, err)
	}

	if err := apply(&o); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3`,
		o.Status, o.UpdatedAt, o.ID)
	if err != nil {
		return nil, fmt.Errorf("update order %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit order %d: %w", id, err)
	}
	return &o, nil
}
