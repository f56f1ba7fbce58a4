package catalog

import (
	"context"

	"github.com/shopspring/decimal"
)

// Product is the authoritative catalog record. Price is the live unit
// price; the cart captures its own copy at add time and does not follow
// later changes here.
type Product struct {
	ID        int64           `json:"id"`
	Title     string          `json:"title"`
	Slug      string          `json:"slug"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
	Available bool            `json:"available"`
}

type Store interface {
	Ping(ctx context.Context) error
	Get(ctx context.Context, id int64) (Product, bool, error)

	// FindByIDs resolves a batch of product ids in one call. Unknown ids
	// are simply absent from the result, not an error.
	FindByIDs(ctx context.Context, ids []int64) ([]Product, error)

	// ListAvailable returns available products, optionally narrowed to one
	// category slug. Empty category means all categories.
	ListAvailable(ctx context.Context, category string) ([]Product, error)

	Categories(ctx context.Context) ([]string, error)
}
