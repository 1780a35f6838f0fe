// Package ebay implements the eBay Browse API marketplace adapter.
package ebay

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/spreadscan/spreadscan/internal/sources"
	"github.com/spreadscan/spreadscan/internal/transport"
	"github.com/spreadscan/spreadscan/pkg/constants"
	"github.com/spreadscan/spreadscan/pkg/errors"
	"github.com/spreadscan/spreadscan/pkg/listings"
	"github.com/spreadscan/spreadscan/pkg/logging"
)

const (
	defaultBaseURL = "https://api.ebay.com/buy/browse/v1"

	// Browse API category IDs.
	categoryTradingCards = "183454"
	categoryWatches      = "260324"

	// Only Buy It Now items; auctions have no stable all-in cost.
	fixedPriceFilter = "buyingOptions:{FIXED_PRICE}"
)

// searchResponse is the item_summary/search payload.
type searchResponse struct {
	ItemSummaries []itemSummary `json:"itemSummaries"`
}

type itemSummary struct {
	ItemID          string           `json:"itemId"`
	Title           string           `json:"title"`
	Price           money            `json:"price"`
	Condition       string           `json:"condition"`
	ItemWebURL      string           `json:"itemWebUrl"`
	ItemHref        string           `json:"itemHref"`
	Image           image            `json:"image"`
	ShippingOptions []shippingOption `json:"shippingOptions"`
}

// money is the Browse API price shape. Value arrives as a string.
type money struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type shippingOption struct {
	ShippingCost money `json:"shippingCost"`
}

type image struct {
	ImageURL string `json:"imageUrl"`
}

// itemDetail is the item endpoint payload, fetched per listing to get
// aspects and condition descriptors the summary omits.
type itemDetail struct {
	LocalizedAspects     []aspect              `json:"localizedAspects"`
	ConditionDescriptors []conditionDescriptor `json:"conditionDescriptors"`
	Condition            string                `json:"condition"`
	Seller               seller                `json:"seller"`
	Image                image                 `json:"image"`
}

// aspect values arrive as either a string or a list of strings.
type aspect struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

type conditionDescriptor struct {
	Name   string            `json:"name"`
	Values []descriptorValue `json:"values"`
}

type descriptorValue struct {
	Content string `json:"content"`
}

type seller struct {
	Username string `json:"username"`
}

// Client is the eBay marketplace adapter.
type Client struct {
	http    *transport.Client
	baseURL string
}

// New creates an eBay adapter over the given transport.
func New(http *transport.Client, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{http: http, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// Source implements the sources.Searcher interface.
func (c *Client) Source() listings.Source { return listings.SourceEbay }

// SearchListings implements the sources.Searcher interface. Trading
// card searches additionally fetch per-item details to recover grading
// certificate numbers; a failed detail fetch degrades to summary data.
func (c *Client) SearchListings(ctx context.Context, q sources.Query) ([]listings.Listing, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = constants.DefaultMaxResultsPerSource
	}

	params := url.Values{}
	params.Set("q", q.Text)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("filter", buildFilter(q))
	switch q.Class {
	case listings.ClassTradingCard:
		params.Set("category_ids", categoryTradingCards)
	case listings.ClassWatch:
		params.Set("category_ids", categoryWatches)
	}

	var resp searchResponse
	searchURL := c.baseURL + "/item_summary/search?" + params.Encode()
	if err := c.http.GetJSON(ctx, searchURL, &resp); err != nil {
		if errors.IsNoData(err) {
			return nil, nil
		}
		return nil, err
	}

	log := logging.FromContext(ctx)

	out := make([]listings.Listing, 0, len(resp.ItemSummaries))
	seen := make(map[string]bool)
	for _, summary := range resp.ItemSummaries {
		if summary.ItemID == "" || seen[summary.ItemID] {
			continue
		}
		seen[summary.ItemID] = true

		if summary.Price.Currency != "USD" {
			continue
		}

		l := listings.Listing{
			Source:     listings.SourceEbay,
			ExternalID: summary.ItemID,
			Title:      summary.Title,
			Price:      sources.PriceField(ctx, listings.SourceEbay, "price.value", summary.Price.Value),
			Currency:   "USD",
			Condition:  summary.Condition,
			URL:        summary.ItemWebURL,
			ImageURL:   summary.Image.ImageURL,
			Attributes: map[string]string{},
		}
		if len(summary.ShippingOptions) > 0 {
			l.Shipping = sources.PriceField(ctx, listings.SourceEbay, "shippingCost.value", summary.ShippingOptions[0].ShippingCost.Value)
		}

		switch q.Class {
		case listings.ClassTradingCard:
			if err := c.enrichCard(ctx, &l, summary.ItemHref); err != nil {
				log.Debug().
					Str("item_id", summary.ItemID).
					Err(err).
					Msg("item detail fetch failed, using summary data")
			}
			// The title is the fallback cert carrier when the detail
			// fetch produced nothing.
			if l.Attr(listings.AttrCertNumber) == "" {
				if cert := sources.CertNumber(l.Title, nil); cert != "" {
					l.Attributes[listings.AttrCertNumber] = cert
				}
			}
			if l.Attr(listings.AttrYear) == "" {
				if year := sources.Year(l.Title); year != "" {
					l.Attributes[listings.AttrYear] = year
				}
			}
		case listings.ClassWatch:
			if brand := sources.WatchBrand(l.Title); brand != "" {
				l.Attributes[listings.AttrBrand] = brand
				if model := sources.WatchModel(l.Title, brand); model != "" {
					l.Attributes[listings.AttrModel] = model
				}
			}
		case listings.ClassLuxury:
			if brand := sources.LuxuryBrand(l.Title); brand != "" {
				l.Attributes[listings.AttrBrand] = brand
			}
			if size := sources.Size(l.Title); size != "" {
				l.Attributes[listings.AttrSize] = size
			}
		}

		out = append(out, l)
	}
	return out, nil
}

// enrichCard fetches the full item record and extracts card metadata
// from its aspects and condition descriptors.
func (c *Client) enrichCard(ctx context.Context, l *listings.Listing, itemHref string) error {
	if itemHref == "" {
		return nil
	}

	var detail itemDetail
	if err := c.http.GetJSON(ctx, itemHref, &detail); err != nil {
		return err
	}

	aspects := make(map[string]string, len(detail.LocalizedAspects))
	for _, a := range detail.LocalizedAspects {
		value := aspectValue(a.Value)
		if value == "" {
			continue
		}
		aspects[a.Name] = value

		lower := strings.ToLower(a.Name)
		switch {
		case strings.Contains(lower, "card name"):
			l.Attributes[listings.AttrCardName] = value
		case strings.Contains(lower, "year"):
			l.Attributes[listings.AttrYear] = value
		case strings.Contains(lower, "set"):
			l.Attributes[listings.AttrSetName] = value
		}
	}

	if cert := sources.CertNumber(l.Title, aspects); cert != "" {
		l.Attributes[listings.AttrCertNumber] = cert
	} else {
		// Condition descriptors are the other place graders put the
		// cert number.
		for _, d := range detail.ConditionDescriptors {
			lower := strings.ToLower(d.Name)
			if !strings.Contains(lower, "cert") {
				continue
			}
			if len(d.Values) > 0 {
				if cert := sources.CertNumber("cert "+d.Values[0].Content, nil); cert != "" {
					l.Attributes[listings.AttrCertNumber] = cert
					break
				}
			}
		}
	}

	if detail.Seller.Username != "" {
		l.Seller = detail.Seller.Username
	}
	if detail.Condition != "" {
		l.Condition = detail.Condition
	}
	if detail.Image.ImageURL != "" {
		l.ImageURL = detail.Image.ImageURL
	}
	return nil
}

// MarketStats summarizes current fixed-price listings for a query,
// serving as a proxy for sold prices.
type MarketStats struct {
	Average float64
	Min     float64
	Max     float64
	Median  float64
	Count   int
}

// SearchMarketStats computes all-in price statistics across active
// fixed-price listings matching the query. Returns nil when nothing
// priced in USD matched.
func (c *Client) SearchMarketStats(ctx context.Context, query string, class listings.ItemClass, limit int) (*MarketStats, error) {
	found, err := c.SearchListings(ctx, sources.Query{Text: query, Class: class, Limit: limit})
	if err != nil {
		return nil, err
	}

	totals := make([]float64, 0, len(found))
	for _, l := range found {
		if l.Price <= 0 {
			continue
		}
		totals = append(totals, l.AllIn())
	}
	if len(totals) == 0 {
		return nil, nil
	}

	sort.Float64s(totals)
	var sum float64
	for _, v := range totals {
		sum += v
	}

	n := len(totals)
	stats := &MarketStats{
		Average: sum / float64(n),
		Min:     totals[0],
		Max:     totals[n-1],
		Count:   n,
	}
	if n%2 == 0 {
		stats.Median = (totals[n/2-1] + totals[n/2]) / 2
	} else {
		stats.Median = totals[n/2]
	}
	return stats, nil
}

func buildFilter(q sources.Query) string {
	filter := fixedPriceFilter
	if q.MinPrice > 0 || q.MaxPrice > 0 {
		lo, hi := "", ""
		if q.MinPrice > 0 {
			lo = fmt.Sprintf("%.0f", q.MinPrice)
		}
		if q.MaxPrice > 0 {
			hi = fmt.Sprintf("%.0f", q.MaxPrice)
		}
		filter += fmt.Sprintf(",price:[%s..%s],priceCurrency:USD", lo, hi)
	}
	return filter
}

// aspectValue coerces string-or-list aspect values to a single string.
func aspectValue(v any) string {
	switch value := v.(type) {
	case string:
		return strings.TrimSpace(value)
	case []any:
		if len(value) == 0 {
			return ""
		}
		if s, ok := value[0].(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
