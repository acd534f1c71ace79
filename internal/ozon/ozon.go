// Package ozon scrapes product pages on ozon.ru. There is no public
// card API, so extraction is best-effort: a static HTML pass first,
// then an optional headless render for pages that only materialize
// their price from JavaScript.
package ozon

import (
	"context"
	"fmt"
	"net/http"

	"github.com/lukman83/pricehound/internal/marketdata"
)

// Strategy is one way of turning a product page into a snapshot.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, ref marketdata.Ref) (*marketdata.Snapshot, error)
}

// Fetcher implements marketdata.Fetcher for Ozon by trying its
// strategies in order and returning the first snapshot.
type Fetcher struct {
	strategies []Strategy
}

// NewFetcher builds the strategy chain. The headless strategy is
// appended only when enabled; it needs a local browser binary.
func NewFetcher(client *http.Client, headless bool) *Fetcher {
	strategies := []Strategy{NewStaticStrategy(client)}
	if headless {
		strategies = append(strategies, NewHeadlessStrategy())
	}
	return &Fetcher{strategies: strategies}
}

func (f *Fetcher) Fetch(ctx context.Context, ref marketdata.Ref) (*marketdata.Snapshot, error) {
	var lastErr error
	for _, s := range f.strategies {
		snap, err := s.Fetch(ctx, ref)
		if err == nil {
			return snap, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("ozon: all strategies failed: %w", lastErr)
}
