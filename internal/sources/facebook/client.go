// Package facebook implements the Facebook Marketplace adapter over
// RapidAPI. The free tier allows 30 requests a month, so every call is
// metered through the quota guard.
package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spreadscan/spreadscan/internal/sources"
	"github.com/spreadscan/spreadscan/internal/transport"
	"github.com/spreadscan/spreadscan/pkg/constants"
	"github.com/spreadscan/spreadscan/pkg/errors"
	"github.com/spreadscan/spreadscan/pkg/listings"
)

const (
	defaultBaseURL  = "https://facebook-marketplace1.p.rapidapi.com"
	defaultLocation = "Los Angeles, CA"
)

// rawItem is one marketplace listing as RapidAPI returns it. Field
// names vary between payload versions, so alternates are declared and
// coalesced during normalization.
type rawItem struct {
	ID                      string          `json:"id"`
	ItemID                  string          `json:"item_id"`
	ListingID               string          `json:"listing_id"`
	MarketplaceListingID    json.RawMessage `json:"marketplace_listing_id"`
	MarketplaceListingTitle string          `json:"marketplace_listing_title"`
	Title                   string          `json:"title"`
	Name                    string          `json:"name"`
	ListingPrice            map[string]any  `json:"listing_price"`
	URL                     string          `json:"url"`
	ItemURL                 string          `json:"item_url"`
	ListingURL              string          `json:"listing_url"`
	Description             string          `json:"description"`
	Seller                  json.RawMessage `json:"marketplace_listing_seller"`
	IsSold                  bool            `json:"is_sold"`
	IsLive                  bool            `json:"is_live"`
	PrimaryListingPhoto     struct {
		Image struct {
			URI string `json:"uri"`
		} `json:"image"`
	} `json:"primary_listing_photo"`
}

// searchEnvelope covers the wrapper shapes the API has been seen to
// use: a bare array, or an object keyed by data/results/items.
type searchEnvelope struct {
	items []rawItem
}

func (e *searchEnvelope) UnmarshalJSON(data []byte) error {
	data = []byte(strings.TrimSpace(string(data)))
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, &e.items)
	}

	var wrapped struct {
		Data                json.RawMessage `json:"data"`
		Results             []rawItem       `json:"results"`
		Items               []rawItem       `json:"items"`
		MarketplaceListings []rawItem       `json:"marketplace_listings"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	switch {
	case len(wrapped.Data) > 0 && wrapped.Data[0] == '[':
		return json.Unmarshal(wrapped.Data, &e.items)
	case len(wrapped.Results) > 0:
		e.items = wrapped.Results
	case len(wrapped.Items) > 0:
		e.items = wrapped.Items
	case len(wrapped.MarketplaceListings) > 0:
		e.items = wrapped.MarketplaceListings
	}
	return nil
}

// Client is the Facebook Marketplace adapter.
type Client struct {
	http     *transport.Client
	baseURL  string
	location string
}

// New creates a Facebook Marketplace adapter. The location defaults to
// Los Angeles when empty, matching the app's home market.
func New(http *transport.Client, baseURL, location string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if location == "" {
		location = defaultLocation
	}
	return &Client{
		http:     http,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		location: location,
	}
}

// Source implements the sources.Searcher interface.
func (c *Client) Source() listings.Source { return listings.SourceFacebook }

// SearchListings implements the sources.Searcher interface.
func (c *Client) SearchListings(ctx context.Context, q sources.Query) ([]listings.Listing, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = constants.DefaultMaxResultsPerSource
	}

	params := url.Values{}
	params.Set("query", q.Text)
	params.Set("city", city(c.location))
	params.Set("sort", "newest")
	params.Set("limit", strconv.Itoa(limit))
	if q.MinPrice > 0 {
		params.Set("minPrice", strconv.Itoa(int(q.MinPrice)))
	}
	if q.MaxPrice > 0 {
		params.Set("maxPrice", strconv.Itoa(int(q.MaxPrice)))
	}

	var envelope searchEnvelope
	searchURL := c.baseURL + "/search?" + params.Encode()
	if err := c.http.GetJSON(ctx, searchURL, &envelope); err != nil {
		if errors.IsNoData(err) {
			return nil, nil
		}
		return nil, err
	}

	out := make([]listings.Listing, 0, len(envelope.items))
	for i, item := range envelope.items {
		l := normalize(ctx, item, q.Class)
		if l.Title == "" {
			continue
		}
		if l.ExternalID == "" {
			// Synthetic ID keeps dedupe and reporting working for
			// payloads that omit one.
			l.ExternalID = fmt.Sprintf("fb_%d", i)
		} else if l.URL == "" {
			l.URL = "https://www.facebook.com/marketplace/item/" + l.ExternalID
		}
		out = append(out, l)
	}
	return out, nil
}

// normalize maps one raw item to the canonical listing form. Shipping
// is zero; Marketplace does not quote it upfront.
func normalize(ctx context.Context, item rawItem, class listings.ItemClass) listings.Listing {
	l := listings.Listing{
		Source:     listings.SourceFacebook,
		ExternalID: coalesce(item.ID, item.ItemID, item.ListingID, rawString(item.MarketplaceListingID)),
		Title:      coalesce(item.MarketplaceListingTitle, item.Title, item.Name),
		Price:      sources.PriceField(ctx, listings.SourceFacebook, "listing_price", item.ListingPrice),
		Currency:   "USD",
		URL:        coalesce(item.URL, item.ItemURL, item.ListingURL),
		Seller:     sellerName(item.Seller),
		ImageURL:   item.PrimaryListingPhoto.Image.URI,
		Attributes: map[string]string{},
	}

	switch {
	case item.IsSold:
		l.Condition = "Sold"
	case item.IsLive:
		l.Condition = "Available"
	}

	text := l.Title + " " + item.Description
	switch class {
	case listings.ClassTradingCard:
		if cert := sources.CertNumber(text, nil); cert != "" {
			l.Attributes[listings.AttrCertNumber] = cert
		}
		if year := sources.Year(l.Title); year != "" {
			l.Attributes[listings.AttrYear] = year
		}
	case listings.ClassLuxury:
		if brand := sources.LuxuryBrand(l.Title); brand != "" {
			l.Attributes[listings.AttrBrand] = brand
		}
		if size := sources.Size(l.Title); size != "" {
			l.Attributes[listings.AttrSize] = size
		}
	case listings.ClassWatch:
		if brand := sources.WatchBrand(l.Title); brand != "" {
			l.Attributes[listings.AttrBrand] = brand
			if model := sources.WatchModel(l.Title, brand); model != "" {
				l.Attributes[listings.AttrModel] = model
			}
		}
	}
	return l
}

// city reduces "Los Angeles, CA" to "Los Angeles", the form the API
// expects.
func city(location string) string {
	if i := strings.Index(location, ","); i >= 0 {
		return strings.TrimSpace(location[:i])
	}
	return strings.TrimSpace(location)
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// rawString renders a raw JSON scalar (string or number) as a string.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// sellerName handles the seller field arriving as an object or a bare
// string.
func sellerName(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var obj struct {
		Name     string `json:"name"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return coalesce(obj.Name, obj.Username)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}
