// Package amazon implements the Amazon product search adapter over the
// real-time-amazon-data RapidAPI service.
package amazon

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/spreadscan/spreadscan/internal/sources"
	"github.com/spreadscan/spreadscan/internal/transport"
	"github.com/spreadscan/spreadscan/pkg/constants"
	"github.com/spreadscan/spreadscan/pkg/errors"
	"github.com/spreadscan/spreadscan/pkg/listings"
)

const defaultBaseURL = "https://real-time-amazon-data.p.rapidapi.com"

// rawProduct is one product row. The v3 API uses snake_case product_*
// names; older payloads used camelCase, so alternates are coalesced.
type rawProduct struct {
	ASIN         string `json:"asin"`
	ID           string `json:"id"`
	ProductTitle string `json:"product_title"`
	Title        string `json:"title"`
	Name         string `json:"name"`

	// product_price arrives as text like "$99.95".
	ProductPrice    json.RawMessage `json:"product_price"`
	MinimumOffer    json.RawMessage `json:"product_minimum_offer_price"`
	Price           json.RawMessage `json:"price"`
	Currency        string          `json:"currency"`
	ProductURL      string          `json:"product_url"`
	URL             string          `json:"url"`
	Condition       string          `json:"condition"`
	Brand           string          `json:"brand"`
	Manufacturer    string          `json:"manufacturer"`
	ProductPhoto    string          `json:"product_photo"`
	ProductImage    string          `json:"product_image"`
	IsPrime         bool            `json:"is_prime"`
	DeliveryMessage string          `json:"delivery"`
}

// searchResponse is the v3 envelope: {"status":"OK","data":{"products":[...]}}.
// Older shapes put the array at data, products, results, or items.
type searchResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`

	Products []rawProduct `json:"products"`
	Results  []rawProduct `json:"results"`
	Items    []rawProduct `json:"items"`
}

func (r *searchResponse) products() []rawProduct {
	if len(r.Data) > 0 {
		switch r.Data[0] {
		case '{':
			var inner struct {
				Products []rawProduct `json:"products"`
			}
			if err := json.Unmarshal(r.Data, &inner); err == nil && len(inner.Products) > 0 {
				return inner.Products
			}
		case '[':
			var list []rawProduct
			if err := json.Unmarshal(r.Data, &list); err == nil {
				return list
			}
		}
	}
	switch {
	case len(r.Products) > 0:
		return r.Products
	case len(r.Results) > 0:
		return r.Results
	default:
		return r.Items
	}
}

// Client is the Amazon adapter.
type Client struct {
	http    *transport.Client
	baseURL string
}

// New creates an Amazon adapter over the given transport.
func New(http *transport.Client, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{http: http, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// Source implements the sources.Searcher interface.
func (c *Client) Source() listings.Source { return listings.SourceAmazon }

// SearchListings implements the sources.Searcher interface.
func (c *Client) SearchListings(ctx context.Context, q sources.Query) ([]listings.Listing, error) {
	params := url.Values{}
	params.Set("query", q.Text)
	params.Set("country", "US")
	params.Set("page", "1")
	params.Set("sort_by", "RELEVANCE")

	var resp searchResponse
	searchURL := c.baseURL + "/search?" + params.Encode()
	if err := c.http.GetJSON(ctx, searchURL, &resp); err != nil {
		if errors.IsNoData(err) {
			return nil, nil
		}
		return nil, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = constants.DefaultMaxResultsPerSource
	}

	products := resp.products()
	out := make([]listings.Listing, 0, len(products))
	for _, p := range products {
		if len(out) >= limit {
			break
		}

		l := normalize(ctx, p, q.Class)
		if l.ExternalID == "" || l.Title == "" {
			continue
		}
		if l.Currency != "USD" {
			continue
		}
		if q.MinPrice > 0 && l.Price < q.MinPrice {
			continue
		}
		if q.MaxPrice > 0 && l.Price > q.MaxPrice {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func normalize(ctx context.Context, p rawProduct, class listings.ItemClass) listings.Listing {
	currency := p.Currency
	if currency == "" {
		currency = "USD"
	}

	condition := p.Condition
	if condition == "" {
		condition = "New"
	}

	l := listings.Listing{
		Source:     listings.SourceAmazon,
		ExternalID: coalesce(p.ASIN, p.ID),
		Title:      coalesce(p.ProductTitle, p.Title, p.Name),
		Price:      price(ctx, p),
		Currency:   currency,
		Condition:  condition,
		URL:        coalesce(p.ProductURL, p.URL),
		ImageURL:   coalesce(p.ProductPhoto, p.ProductImage),
		Attributes: map[string]string{},
	}
	if l.URL == "" && l.ExternalID != "" {
		l.URL = "https://www.amazon.com/dp/" + l.ExternalID
	}

	brand := coalesce(p.Brand, p.Manufacturer)
	switch class {
	case listings.ClassLuxury:
		if brand == "" {
			brand = sources.LuxuryBrand(l.Title)
		}
		if brand != "" {
			l.Attributes[listings.AttrBrand] = brand
		}
		if size := sources.Size(l.Title); size != "" {
			l.Attributes[listings.AttrSize] = size
		}
	case listings.ClassWatch:
		if brand == "" {
			brand = sources.WatchBrand(l.Title)
		}
		if brand != "" {
			l.Attributes[listings.AttrBrand] = brand
			if model := sources.WatchModel(l.Title, brand); model != "" {
				l.Attributes[listings.AttrModel] = model
			}
		}
	case listings.ClassTradingCard:
		if cert := sources.CertNumber(l.Title, nil); cert != "" {
			l.Attributes[listings.AttrCertNumber] = cert
		}
		if year := sources.Year(l.Title); year != "" {
			l.Attributes[listings.AttrYear] = year
		}
	}
	return l
}

// price tries the price fields in order of reliability. A product that
// carries price fields none of which parse is a malformed row worth a
// log line; a product with no price fields at all is not.
func price(ctx context.Context, p rawProduct) float64 {
	var present any
	for _, raw := range []json.RawMessage{p.ProductPrice, p.MinimumOffer, p.Price} {
		if len(raw) == 0 {
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil || v == nil {
			continue
		}
		present = v
		if out := sources.ParsePrice(v); out > 0 {
			return out
		}
	}
	if present != nil {
		return sources.PriceField(ctx, listings.SourceAmazon, "product_price", present)
	}
	return 0
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
