package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Repository is the read-only product catalog.
type Repository interface {
	FindByID(ctx context.Context, id int64) (*Product, error)
	Search(ctx context.Context, query string, limit int) ([]Product, error)
}

type repository struct {
	q sqlx.QueryerContext
}

// NewRepository accepts either a *sqlx.DB or a *sqlx.Tx, so the catalog can be
// read inside the transaction that persists an order.
func NewRepository(q sqlx.QueryerContext) Repository {
	return &repository{q: q}
}

const productColumns = `id, name, category, prices, is_available`

func (r *repository) FindByID(ctx context.Context, id int64) (*Product, error) {
	var p Product
	err := sqlx.GetContext(ctx, r.q, &p,
		`SELECT `+productColumns+` FROM coffee_products WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find product %d: %w", id, err)
	}
	return &p, nil
}

func (r *repository) Search(ctx context.Context, query string, limit int) ([]Product, error) {
	pattern := "%" + escapeLike(query) + "%"

	products := []Product{}
	err := sqlx.SelectContext(ctx, r.q, &products,
		`SELECT `+productColumns+` FROM coffee_products
		WHERE name ILIKE $1 OR category ILIKE $1
		ORDER BY id
		LIMIT $2`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	return products, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
