package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"coffeeshop-be/internal/pricing"
	"coffeeshop-be/internal/product"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

var (
	orderCols   = []string{"id", "user_id", "items", "total_price", "status", "created_at", "updated_at"}
	productCols = []string{"id", "name", "category", "prices", "is_available"}
)

func priceWithEngine(items []pricing.Item) PriceFunc {
	return func(ctx context.Context, catalog product.Repository) (decimal.Decimal, error) {
		q, err := pricing.PriceOrder(ctx, catalog, items)
		if err != nil {
			return decimal.Zero, err
		}
		return q.Total, nil
	}
}

func TestRepository_CreateOrderTx(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	newOrder := func() *Order {
		return &Order{
			UserID:    7,
			Items:     Items{{ProductID: 1, Size: "Large (16oz)", Quantity: 2, Customizations: []string{"oat milk"}}},
			Status:    StatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	priceItems := []pricing.Item{{ProductID: 1, Size: "Large (16oz)", Quantity: 2}}

	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .* FROM coffee_products WHERE id = \$1`).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows(productCols).
				AddRow(1, "Latte", "hot", []byte(`{"large": 5.50}`), true))
		mock.ExpectQuery(`(?s)INSERT INTO orders \(user_id, items, total_price, status, created_at, updated_at\).*RETURNING id, total_price`).
			WithArgs(int64(7), sqlmock.AnyArg(), "11", "pending", now, now).
			WillReturnRows(sqlmock.NewRows([]string{"id", "total_price"}).AddRow(101, "11.00"))
		mock.ExpectCommit()

		o := newOrder()
		err := repo.CreateOrderTx(ctx, o, priceWithEngine(priceItems))
		require.NoError(t, err)
		assert.Equal(t, int64(101), o.ID)
		assert.Equal(t, "11.00", o.TotalPrice.StringFixed(2))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("SubCentTotalIsStoredAndEchoedUnrounded", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .* FROM coffee_products WHERE id = \$1`).
			WithArgs(int64(2)).
			WillReturnRows(sqlmock.NewRows(productCols).
				AddRow(2, "Shot", "espresso", []byte(`{"single": 0.33333}`), true))
		mock.ExpectQuery(`(?s)INSERT INTO orders.*RETURNING id, total_price`).
			WithArgs(int64(7), sqlmock.AnyArg(), "0.99999", "pending", now, now).
			WillReturnRows(sqlmock.NewRows([]string{"id", "total_price"}).AddRow(9, "0.99999"))
		mock.ExpectCommit()

		o := newOrder()
		o.Items = Items{{ProductID: 2, Size: "single", Quantity: 3}}
		err := repo.CreateOrderTx(ctx, o, priceWithEngine([]pricing.Item{{ProductID: 2, Size: "single", Quantity: 3}}))
		require.NoError(t, err)
		assert.Equal(t, int64(9), o.ID)
		assert.Equal(t, "0.99999", o.TotalPrice.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("PricingFailureWritesNothing", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .* FROM coffee_products WHERE id = \$1`).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows(productCols))
		mock.ExpectRollback()

		o := newOrder()
		err := repo.CreateOrderTx(ctx, o, priceWithEngine(priceItems))
		assert.ErrorIs(t, err, pricing.ErrProductNotFound)
		assert.Zero(t, o.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("InsertFailureRollsBack", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .* FROM coffee_products`).
			WillReturnRows(sqlmock.NewRows(productCols).
				AddRow(1, "Latte", "hot", []byte(`{"large": 5.50}`), true))
		mock.ExpectQuery(`(?s)INSERT INTO orders`).
			WillReturnError(errors.New("insert failed"))
		mock.ExpectRollback()

		err := repo.CreateOrderTx(ctx, newOrder(), priceWithEngine(priceItems))
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("CommitFailure", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .* FROM coffee_products`).
			WillReturnRows(sqlmock.NewRows(productCols).
				AddRow(1, "Latte", "hot", []byte(`{"large": 5.50}`), true))
		mock.ExpectQuery(`(?s)INSERT INTO orders`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "total_price"}).AddRow(5, "11.00"))
		mock.ExpectCommit().WillReturnError(errors.New("connection reset"))

		o := newOrder()
		err := repo.CreateOrderTx(ctx, o, priceWithEngine(priceItems))
		assert.Error(t, err)
		assert.True(t, o.TotalPrice.IsZero())
	})

	t.Run("BeginFailure", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewRepository(db)

		mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

		err := repo.CreateOrderTx(ctx, newOrder(), priceWithEngine(priceItems))
		assert.Error(t, err)
	})
}

func TestRepository_FindByIDForUser(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewRepository(db)

		mock.ExpectQuery(`SELECT .* FROM orders WHERE id = \$1 AND user_id = \$2`).
			WithArgs(int64(3), int64(7)).
			WillReturnRows(sqlmock.NewRows(orderCols).AddRow(
				3, 7, []byte(`[{"product_id":1,"size":"Large (16oz)","quantity":2}]`),
				"11.00", "pending", created, created,
			))

		o, err := repo.FindByIDForUser(ctx, 3, 7)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, o.Status)
		require.Len(t, o.Items, 1)
		assert.Equal(t, "Large (16oz)", o.Items[0].Size)
		assert.Equal(t, 2, o.Items[0].Quantity)
		assert.Equal(t, "11.00", o.TotalPrice.StringFixed(2))
	})

	t.Run("OtherUsersOrderIsNotFound", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewRepository(db)

		mock.ExpectQuery(`SELECT .* FROM orders WHERE id = \$1 AND user_id = \$2`).
			WithArgs(int64(3), int64(8)).
			WillReturnRows(sqlmock.NewRows(orderCols))

		_, err := repo.FindByIDForUser(ctx, 3, 8)
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})
}

func TestRepository_ListByUser(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewRepository(db)

		mock.ExpectQuery(`SELECT .* FROM orders WHERE user_id = \$1 ORDER BY created_at DESC`).
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows(orderCols).
				AddRow(2, 7, []byte(`[]`), "3.25", "ready", created, created).
				AddRow(1, 7, []byte(`[]`), "11.00", "completed", created, created))

		orders, err := repo.ListByUser(ctx, 7)
		require.NoError(t, err)
		require.Len(t, orders, 2)
		assert.Equal(t, StatusReady, orders[0].Status)
	})

	t.Run("Empty", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewRepository(db)

		mock.ExpectQuery(`SELECT .* FROM orders`).
			WillReturnRows(sqlmock.NewRows(orderCols))

		orders, err := repo.ListByUser(ctx, 7)
		require.NoError(t, err)
		assert.NotNil(t, orders)
		assert.Empty(t, orders)
	})

	t.Run("DBError", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewRepository(db)

		mock.ExpectQuery(`SELECT .* FROM orders`).WillReturnError(errors.New("db error"))

		_, err := repo.ListByUser(ctx, 7)
		assert.Error(t, err)
	})
}

func TestRepository_UpdateStatusTx(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	later := created.Add(time.Hour)

	lockedRow := func() *sqlmock.Rows {
		return sqlmock.NewRows(orderCols).
			AddRow(5, 7, []byte(`[]`), "11.00", "pending", created, created)
	}

	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .* FROM orders WHERE id = \$1 FOR UPDATE`).
			WithArgs(int64(5)).
			WillReturnRows(lockedRow())
		mock.ExpectExec(`UPDATE orders SET status = \$1, updated_at = \$2 WHERE id = \$3`).
			WithArgs("preparing", later, int64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		o, err := repo.UpdateStatusTx(ctx, 5, func(o *Order) error {
			o.Status = StatusPreparing
			o.UpdatedAt = later
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, StatusPreparing, o.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ApplyErrorLeavesRowUnchanged", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .* FROM orders WHERE id = \$1 FOR UPDATE`).
			WithArgs(int64(5)).
			WillReturnRows(lockedRow())
		mock.ExpectRollback()

		_, err := repo.UpdateStatusTx(ctx, 5, func(o *Order) error {
			return ErrInvalidStatus
		})
		assert.ErrorIs(t, err, ErrInvalidStatus)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .* FROM orders WHERE id = \$1 FOR UPDATE`).
			WithArgs(int64(404)).
			WillReturnRows(sqlmock.NewRows(orderCols))
		mock.ExpectRollback()

		called := false
		_, err := repo.UpdateStatusTx(ctx, 404, func(o *Order) error {
			called = true
			return nil
		})
		assert.ErrorIs(t, err, ErrOrderNotFound)
		assert.False(t, called)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UpdateFailure", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .* FROM orders WHERE id = \$1 FOR UPDATE`).
			WillReturnRows(lockedRow())
		mock.ExpectExec(`UPDATE orders`).WillReturnError(errors.New("write failed"))
		mock.ExpectRollback()

		_, err := repo.UpdateStatusTx(ctx, 5, func(o *Order) error {
			o.Status = StatusCancelled
			return nil
		})
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
