package ozon

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/lukman83/pricehound/internal/httputil"
	"github.com/lukman83/pricehound/internal/marketdata"
)

// StaticStrategy fetches the raw page and extracts meta tags plus
// embedded-JSON price keys.
type StaticStrategy struct {
	client *http.Client
}

func NewStaticStrategy(client *http.Client) *StaticStrategy {
	return &StaticStrategy{client: client}
}

func (s *StaticStrategy) Name() string { return "static" }

func (s *StaticStrategy) Fetch(ctx context.Context, ref marketdata.Ref) (*marketdata.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.URL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range httputil.BrowserHeaders() {
		req.Header[k] = v
	}

	resp, err := httputil.DoWithRetry(s.client, req, 2)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d from %s", resp.StatusCode, ref.URL)
	}

	body, err := httputil.ReadBody(resp)
	if err != nil {
		return nil, err
	}

	snap, err := extractSnapshot(string(body), ref)
	if err != nil {
		return nil, err
	}
	snap.Strategy = s.Name()
	return snap, nil
}

var (
	finalPriceRe = regexp.MustCompile(`"finalPrice"\s*:\s*\{"value"\s*:\s*(\d+)`)
	plainPriceRe = regexp.MustCompile(`"price"\s*:\s*\{"value"\s*:\s*(\d+)`)
)

// extractSnapshot pulls title and price out of a rendered or static
// page. A missing title degrades to a placeholder; a missing price is
// marketdata.ErrPriceUnavailable since a watch needs a number to
// compare against.
func extractSnapshot(page string, ref marketdata.Ref) (*marketdata.Snapshot, error) {
	title, priceAttr := metaContent(page)

	var price *int64
	if priceAttr != "" {
		if p, err := parsePriceAttr(priceAttr); err == nil {
			price = &p
		}
	}
	if price == nil {
		if m := finalPriceRe.FindStringSubmatch(page); m != nil {
			p, _ := strconv.ParseInt(m[1], 10, 64)
			price = &p
		} else if m := plainPriceRe.FindStringSubmatch(page); m != nil {
			p, _ := strconv.ParseInt(m[1], 10, 64)
			price = &p
		}
	}
	if price == nil {
		return nil, fmt.Errorf("ozon %s: %w", ref.URL, marketdata.ErrPriceUnavailable)
	}

	if title == "" {
		title = "Ozon"
		if ref.ProductID != marketdata.UnknownProductID {
			title = "Ozon " + ref.ProductID
		}
	}

	return &marketdata.Snapshot{
		Title:     title,
		Price:     *price,
		URL:       ref.URL,
		FetchedAt: time.Now(),
	}, nil
}

// metaContent walks the document for the og:title and
// product:price:amount meta tags.
func metaContent(page string) (title, price string) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return "", ""
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "meta" {
			var property, content string
			for _, attr := range n.Attr {
				switch attr.Key {
				case "property":
					property = attr.Val
				case "content":
					content = attr.Val
				}
			}
			switch property {
			case "og:title":
				if title == "" {
					title = strings.TrimSpace(content)
				}
			case "product:price:amount":
				if price == "" {
					price = strings.TrimSpace(content)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title, price
}

// parsePriceAttr normalizes "12 990,00" style amounts to whole rubles.
func parsePriceAttr(raw string) (int64, error) {
	raw = strings.NewReplacer(" ", "", " ", "", ",", ".").Replace(raw)
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}
