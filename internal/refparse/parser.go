package refparse

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/lukman83/pricehound/internal/marketdata"
)

// ErrUnrecognized means the text is neither a known marketplace link
// nor an article form. Callers surface a retry prompt; this is never
// an internal error.
var ErrUnrecognized = errors.New("unrecognized product reference")

var (
	wbCatalogRe = regexp.MustCompile(`wildberries\.ru/catalog/(\d+)`)
	wbQueryRe   = regexp.MustCompile(`[?&]nm=(\d+)`)
	bareIDRe    = regexp.MustCompile(`^\d{6,12}$`)
	ozonTailRe  = regexp.MustCompile(`-(\d{6,12})/?(?:\?|$)`)
	prefixRe    = regexp.MustCompile(`(?i)^(ozon|wb)\s+(\d{6,12})$`)
)

// Disambiguator decides which marketplace a bare digit run belongs
// to. Article numbers carry no marketplace marker, so the choice is a
// product policy rather than something parseable from the input.
type Disambiguator interface {
	BareDigits(id string) marketdata.Ref
}

// DefaultDisambiguator treats bare digits as a Wildberries article.
// Ozon by number requires the explicit "ozon <id>" form. Deliberately
// lossy: WB is where users paste bare articles in practice.
type DefaultDisambiguator struct{}

func (DefaultDisambiguator) BareDigits(id string) marketdata.Ref {
	return marketdata.Ref{
		Marketplace: marketdata.Wildberries,
		ProductID:   id,
		URL:         WildberriesURL(id),
	}
}

// Parser turns free-form user input into a typed marketplace
// reference.
type Parser struct {
	disambiguate Disambiguator
}

func New(d Disambiguator) *Parser {
	if d == nil {
		d = DefaultDisambiguator{}
	}
	return &Parser{disambiguate: d}
}

// Parse applies the recognition rules in priority order:
//
//  1. Wildberries catalog link (also the nm= query form)
//  2. bare 6-12 digit article, routed by the Disambiguator
//  3. Ozon link, with best-effort id extraction
//  4. explicit "ozon <id>" / "wb <id>" prefix form
//
// Anything else is ErrUnrecognized.
func (p *Parser) Parse(text string) (marketdata.Ref, error) {
	t := strings.TrimSpace(text)

	if strings.Contains(t, "wildberries.ru") {
		if m := wbCatalogRe.FindStringSubmatch(t); m != nil {
			return marketdata.Ref{Marketplace: marketdata.Wildberries, ProductID: m[1], URL: t}, nil
		}
		if m := wbQueryRe.FindStringSubmatch(t); m != nil {
			return marketdata.Ref{Marketplace: marketdata.Wildberries, ProductID: m[1], URL: t}, nil
		}
	}

	if bareIDRe.MatchString(t) {
		return p.disambiguate.BareDigits(t), nil
	}

	if strings.Contains(t, "ozon.ru") {
		if m := ozonTailRe.FindStringSubmatch(t); m != nil {
			return marketdata.Ref{Marketplace: marketdata.Ozon, ProductID: m[1], URL: t}, nil
		}
		// No extractable sku; the link itself is still enough to track.
		return marketdata.Ref{Marketplace: marketdata.Ozon, ProductID: marketdata.UnknownProductID, URL: t}, nil
	}

	if m := prefixRe.FindStringSubmatch(t); m != nil {
		id := m[2]
		switch strings.ToLower(m[1]) {
		case "ozon":
			return marketdata.Ref{Marketplace: marketdata.Ozon, ProductID: id, URL: OzonURL(id)}, nil
		default:
			return marketdata.Ref{Marketplace: marketdata.Wildberries, ProductID: id, URL: WildberriesURL(id)}, nil
		}
	}

	return marketdata.Ref{}, ErrUnrecognized
}

// WildberriesURL synthesizes the canonical product page URL for a WB
// article number.
func WildberriesURL(id string) string {
	return fmt.Sprintf("https://www.wildberries.ru/catalog/%s/detail.aspx", id)
}

// OzonURL synthesizes the canonical product page URL for an Ozon sku.
func OzonURL(id string) string {
	return fmt.Sprintf("https://www.ozon.ru/product/%s/", id)
}
