// Package pricing turns a cart into unit prices, line subtotals and a total
// using the product catalog.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"coffeeshop-be/internal/logger"
	"coffeeshop-be/internal/product"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrProductNotFound = errors.New("product not found")

// Tier is a canonical price key in a product's price map.
type Tier string

const (
	TierSmall  Tier = "small"
	TierMedium Tier = "medium"
	TierLarge  Tier = "large"
	TierSingle Tier = "single"
	TierDouble Tier = "double"
)

// Catalog is the read-only product lookup pricing depends on.
type Catalog interface {
	FindByID(ctx context.Context, id int64) (*product.Product, error)
}

type Item struct {
	ProductID int64
	Size      string
	Quantity  int
}

type Line struct {
	Item      Item
	Tier      Tier
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}

type Quote struct {
	Lines []Line
	Total decimal.Decimal
}

var sizeCleaner = strings.NewReplacer(" ", "_", "(", "", ")", "")

// tierMatchers are checked in order; the first substring hit wins.
var tierMatchers = []struct {
	tier   Tier
	tokens []string
}{
	{TierSmall, []string{"small", "8oz"}},
	{TierMedium, []string{"medium", "12oz"}},
	{TierLarge, []string{"large", "16oz"}},
	{TierSingle, []string{"single"}},
	{TierDouble, []string{"double"}},
}

// NormalizeSize maps a free-text size label such as "Large (16oz)" to a
// tier. Labels that match nothing fall back to TierSmall.
func NormalizeSize(label string) Tier {
	key := sizeCleaner.Replace(strings.ToLower(strings.TrimSpace(label)))

	for _, m := range tierMatchers {
		for _, tok := range m.tokens {
			if strings.Contains(key, tok) {
				return m.tier
			}
		}
	}
	return TierSmall
}

// PriceItem returns the unit price of item. A tier missing from the product's
// price map prices at zero.
func PriceItem(ctx context.Context, catalog Catalog, item Item) (decimal.Decimal, Tier, error) {
	p, err := catalog.FindByID(ctx, item.ProductID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return decimal.Zero, "", fmt.Errorf("%w: product %d", ErrProductNotFound, item.ProductID)
		}
		return decimal.Zero, "", fmt.Errorf("lookup product %d: %w", item.ProductID, err)
	}

	tier := NormalizeSize(item.Size)
	price, ok := p.Prices.Price(string(tier))
	if !ok {
		logger.FromCtx(ctx).Warn("product has no price for tier",
			zap.Int64("product_id", p.ID),
			zap.String("size", item.Size),
			zap.String("tier", string(tier)),
		)
		return decimal.Zero, tier, nil
	}
	return price, tier, nil
}

// PriceOrder prices every item in input order. Any failure aborts the whole
// quote.
func PriceOrder(ctx context.Context, catalog Catalog, items []Item) (Quote, error) {
	q := Quote{
		Lines: make([]Line, 0, len(items)),
		Total: decimal.Zero,
	}

	for _, item := range items {
		unit, tier, err := PriceItem(ctx, catalog, item)
		if err != nil {
			return Quote{}, err
		}

		subtotal := unit.Mul(decimal.NewFromInt(int64(item.Quantity)))
		q.Lines = append(q.Lines, Line{
			Item:      item,
			Tier:      tier,
			UnitPrice: unit,
			Subtotal:  subtotal,
		})
		q.Total = q.Total.Add(subtotal)
	}

	return q, nil
}
