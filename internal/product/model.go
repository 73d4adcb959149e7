package product

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Prices maps a canonical size tier (small, medium, large, single, double) to
// its unit price. Stored as a JSON object.
type Prices map[string]decimal.Decimal

func (p *Prices) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*p = Prices{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("prices: unsupported type %T", src)
	}

	out := Prices{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("prices: %w", err)
	}
	*p = out
	return nil
}

func (p Prices) Value() (driver.Value, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}

// Price returns the price for tier and whether the tier is listed.
func (p Prices) Price(tier string) (decimal.Decimal, bool) {
	v, ok := p[tier]
	return v, ok
}

type Product struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Category    string `json:"category" db:"category"`
	Prices      Prices `json:"prices" db:"prices"`
	IsAvailable bool   `json:"is_available" db:"is_available"`
}

var ErrNotFound = errors.New("product not found")

const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
)
