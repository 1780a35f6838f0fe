package watchindex

import (
	"context"
	"net/url"
	"strings"

	"github.com/spreadscan/spreadscan/internal/transport"
	"github.com/spreadscan/spreadscan/pkg/errors"
	"github.com/spreadscan/spreadscan/pkg/listings"
)

const defaultAPIBaseURL = "https://api.watchcharts.com/v3"

type apiSearchResponse struct {
	Success bool `json:"success"`
	Results []struct {
		UUID string `json:"uuid"`
	} `json:"results"`
}

type apiInfoResponse struct {
	MarketPrice *float64 `json:"market_price"`
}

// APIClient queries the paid price-index API. Construct it only when a
// subscription key is configured; the free tier has no API access.
type APIClient struct {
	http    *transport.Client
	baseURL string
}

// NewAPIClient creates an index API adapter over the given transport.
// The transport's authenticator must send the X-Api-Key header.
func NewAPIClient(http *transport.Client, baseURL string) *APIClient {
	if baseURL == "" {
		baseURL = defaultAPIBaseURL
	}
	return &APIClient{http: http, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// Source implements the sources.ReferenceFetcher interface.
func (c *APIClient) Source() listings.Source { return listings.SourceWatchIndex }

// FetchReferencePrice implements the sources.ReferenceFetcher
// interface: a watch search resolves the index's UUID for the
// reference, then the info endpoint reports its market price.
func (c *APIClient) FetchReferencePrice(ctx context.Context, id listings.Identity) (*listings.ReferencePrice, error) {
	reference := id.ModelNumber
	if reference == "" {
		reference = id.Model
	}
	if id.Brand == "" || reference == "" {
		return nil, nil
	}

	params := url.Values{}
	params.Set("brand_name", id.Brand)
	params.Set("reference", reference)
	params.Set("exact_match", "false")

	var search apiSearchResponse
	searchURL := c.baseURL + "/search/watch?" + params.Encode()
	if err := c.http.GetJSON(ctx, searchURL, &search); err != nil {
		if errors.IsNoData(err) {
			return nil, nil
		}
		return nil, err
	}
	if !search.Success || len(search.Results) == 0 || search.Results[0].UUID == "" {
		return nil, nil
	}

	params = url.Values{}
	params.Set("uuid", search.Results[0].UUID)
	params.Set("currency", "USD")

	var info apiInfoResponse
	infoURL := c.baseURL + "/watch/info?" + params.Encode()
	if err := c.http.GetJSON(ctx, infoURL, &info); err != nil {
		if errors.IsNoData(err) {
			return nil, nil
		}
		return nil, err
	}
	if info.MarketPrice == nil || *info.MarketPrice <= 0 {
		return nil, nil
	}

	value := *info.MarketPrice
	return &listings.ReferencePrice{
		Value:        &value,
		Currency:     "USD",
		SourceMethod: "price_index_api",
		Identity:     id,
	}, nil
}
