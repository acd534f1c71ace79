package marketdata

import (
	"context"
	"errors"
	"time"
)

// Marketplace identifies a supported e-commerce site.
type Marketplace string

const (
	Wildberries Marketplace = "wb"
	Ozon        Marketplace = "ozon"
)

// UnknownProductID marks an Ozon reference whose numeric id could not
// be extracted from the link. Such references are still trackable by
// URL.
const UnknownProductID = "unknown"

// Ref is a resolved product reference: which marketplace, which
// product, and the canonical page URL. Immutable once built.
type Ref struct {
	Marketplace Marketplace `json:"marketplace"`
	ProductID   string      `json:"product_id"`
	URL         string      `json:"url"`
}

// Snapshot is the result of one successful fetch. Price is in whole
// rubles (kopeck amounts are floored away by the fetchers).
type Snapshot struct {
	Title     string    `json:"title"`
	Price     int64     `json:"price"`
	URL       string    `json:"url"`
	Strategy  string    `json:"strategy,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

var (
	// ErrNotFound means the marketplace answered but has no such product.
	ErrNotFound = errors.New("product not found")
	// ErrPriceUnavailable means the page or payload was retrieved but no
	// price could be extracted. A snapshot without a price is not
	// actionable, so this is a failure.
	ErrPriceUnavailable = errors.New("price unavailable")
)

// Fetcher retrieves the current title and price for a reference.
// Implementations own their transport details; callers depend on this
// contract only, so marketplaces can be added without touching the
// scheduler or the chat engine.
type Fetcher interface {
	Fetch(ctx context.Context, ref Ref) (*Snapshot, error)
}
