package product

import (
	"context"
	"errors"
	"testing"

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

var productCols = []string{"id", "name", "category", "prices", "is_available"}

func TestRepository_FindByID(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewRepository(db)

		mock.ExpectQuery(`SELECT id, name, category, prices, is_available FROM coffee_products WHERE id = \$1`).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows(productCols).
				AddRow(1, "Latte", "hot", []byte(`{"small": 3.25, "large": "5.50"}`), true))

		p, err := repo.FindByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), p.ID)
		assert.Equal(t, "Latte", p.Name)
		assert.True(t, p.IsAvailable)

		large, ok := p.Prices.Price("large")
		assert.True(t, ok)
		assert.True(t, decimal.RequireFromString("5.50").Equal(large))

		_, ok = p.Prices.Price("medium")
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewRepository(db)

		mock.ExpectQuery(`SELECT .* FROM coffee_products WHERE id = \$1`).
			WithArgs(int64(99)).
			WillReturnRows(sqlmock.NewRows(productCols))

		_, err := repo.FindByID(ctx, 99)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("DBError", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewRepository(db)

		mock.ExpectQuery(`SELECT .* FROM coffee_products`).
			WillReturnError(errors.New("db down"))

		_, err := repo.FindByID(ctx, 1)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
	})

	t.Run("WithinTransaction", func(t *testing.T) {
		db, mock := newMockDB(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .* FROM coffee_products WHERE id = \$1`).
			WithArgs(int64(2)).
			WillReturnRows(sqlmock.NewRows(productCols).
				AddRow(2, "Espresso", "hot", `{"single": 2.00, "double": 3.00}`, true))
		mock.ExpectRollback()

		tx, err := db.BeginTxx(ctx, nil)
		require.NoError(t, err)

		p, err := NewRepository(tx).FindByID(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, p.Prices, 2)

		require.NoError(t, tx.Rollback())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_Search(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewRepository(db)

		mock.ExpectQuery(`(?s)SELECT .* FROM coffee_products\s+WHERE name ILIKE \$1 OR category ILIKE \$1.*LIMIT \$2`).
			WithArgs("%latte%", 20).
			WillReturnRows(sqlmock.NewRows(productCols).
				AddRow(1, "Latte", "hot", []byte(`{"small": 3.25}`), true).
				AddRow(5, "Iced Latte", "iced", []byte(`{"large": 4.75}`), false))

		res, err := repo.Search(ctx, "latte", 20)
		require.NoError(t, err)
		require.Len(t, res, 2)
		assert.Equal(t, "Iced Latte", res[1].Name)
		assert.False(t, res[1].IsAvailable)
	})

	t.Run("EscapesWildcards", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewRepository(db)

		mock.ExpectQuery(`(?s)SELECT .* FROM coffee_products`).
			WithArgs(`%100\%%`, 10).
			WillReturnRows(sqlmock.NewRows(productCols))

		res, err := repo.Search(ctx, "100%", 10)
		require.NoError(t, err)
		assert.Empty(t, res)
		assert.NotNil(t, res)
	})

	t.Run("QueryError", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewRepository(db)

		mock.ExpectQuery(`(?s)SELECT .*`).WillReturnError(errors.New("db error"))

		_, err := repo.Search(ctx, "x", 10)
		assert.Error(t, err)
	})
}

func TestPrices_Scan(t *testing.T) {
	var p Prices
	require.NoError(t, p.Scan(nil))
	assert.Empty(t, p)

	require.NoError(t, p.Scan(`{"medium": 4.10}`))
	v, ok := p.Price("medium")
	assert.True(t, ok)
	assert.Equal(t, "4.1", v.String())

	assert.Error(t, p.Scan(42))
	assert.Error(t, p.Scan([]byte(`not json`)))
}
