// Package wildberries fetches product cards from the Wildberries
// basket mirrors. Card metadata is spread across ~20 numbered hosts
// and the right one is not derivable from the article number, so the
// fetcher walks the mirror list lowest-first and takes the first 200.
package wildberries

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/lukman83/pricehound/internal/httputil"
	"github.com/lukman83/pricehound/internal/marketdata"
)

const (
	defaultMirrorCount    = 20
	defaultAttemptTimeout = 12 * time.Second
)

// Fetcher implements marketdata.Fetcher for Wildberries.
type Fetcher struct {
	client         *http.Client
	hosts          []string
	attemptTimeout time.Duration
}

type Option func(*Fetcher)

// WithHosts overrides the mirror host list (base URLs without a
// trailing slash). Used by tests.
func WithHosts(hosts []string) Option {
	return func(f *Fetcher) { f.hosts = hosts }
}

// WithAttemptTimeout overrides the per-mirror timeout.
func WithAttemptTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.attemptTimeout = d }
}

func NewFetcher(client *http.Client, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:         client,
		attemptTimeout: defaultAttemptTimeout,
	}
	for _, o := range opts {
		o(f)
	}
	if f.hosts == nil {
		f.hosts = defaultHosts()
	}
	return f
}

func defaultHosts() []string {
	hosts := make([]string, 0, defaultMirrorCount)
	for i := 1; i <= defaultMirrorCount; i++ {
		hosts = append(hosts, fmt.Sprintf("https://basket-%02d.wbbasket.ru", i))
	}
	return hosts
}

// Fetch tries the mirrors in order and returns the first card that
// decodes. All mirrors failing yields an error wrapping the most
// recent one.
func (f *Fetcher) Fetch(ctx context.Context, ref marketdata.Ref) (*marketdata.Snapshot, error) {
	id, err := strconv.ParseInt(ref.ProductID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("wb: bad article %q: %w", ref.ProductID, err)
	}

	path := cardPath(id)
	snap, err := httputil.FirstSuccess(ctx, f.hosts, f.attemptTimeout,
		func(ctx context.Context, host string) (*marketdata.Snapshot, error) {
			return f.fetchMirror(ctx, host+path, ref)
		})
	if err != nil {
		return nil, fmt.Errorf("wb: all %d mirrors failed for %s: %w", len(f.hosts), ref.ProductID, err)
	}
	return snap, nil
}

// cardPath builds the sharded card location. The vol/part buckets are
// the marketplace's storage convention; get them wrong and every
// lookup 404s.
func cardPath(id int64) string {
	return fmt.Sprintf("/vol%d/part%d/%d/info/ru/card.json", id/1_000_000, id/1_000, id)
}

func (f *Fetcher) fetchMirror(ctx context.Context, url string, ref marketdata.Ref) (*marketdata.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range httputil.JSONHeaders() {
		req.Header[k] = v
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d from %s", resp.StatusCode, url)
	}

	body, err := httputil.ReadBody(resp)
	if err != nil {
		return nil, err
	}

	var c card
	if err := json.Unmarshal(body, &c); err != nil {
		return nil, fmt.Errorf("decode card: %w", err)
	}

	return c.snapshot(ref)
}

// card is the subset of the mirror payload we consume. Fields come
// and go between payload revisions, hence the named fallbacks.
type card struct {
	Name       string `json:"name"`
	ImtName    string `json:"imt_name"`
	SalePriceU *int64 `json:"salePriceU"`
	PriceU     *int64 `json:"priceU"`
}

func (c *card) snapshot(ref marketdata.Ref) (*marketdata.Snapshot, error) {
	title := c.Name
	if title == "" {
		title = c.ImtName
	}
	if title == "" {
		title = "WB " + ref.ProductID
	}

	var kopecks *int64
	switch {
	case c.SalePriceU != nil:
		kopecks = c.SalePriceU
	case c.PriceU != nil:
		kopecks = c.PriceU
	default:
		return nil, fmt.Errorf("wb %s: %w", ref.ProductID, marketdata.ErrPriceUnavailable)
	}

	return &marketdata.Snapshot{
		Title: title,
		// Kopecks to whole rubles; fractional kopecks are truncated,
		// never rounded up.
		Price:     *kopecks / 100,
		URL:       ref.URL,
		Strategy:  "mirror",
		FetchedAt: time.Now(),
	}, nil
}
