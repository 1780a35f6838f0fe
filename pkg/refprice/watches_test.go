package refprice

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spreadscan/spreadscan/internal/sources/ebay"
	"github.com/spreadscan/spreadscan/internal/transport"
	"github.com/spreadscan/spreadscan/pkg/listings"
)

func watchIdentity(brand, model string) listings.Identity {
	return listings.Identity{Class: listings.ClassWatch, Brand: brand, ModelNumber: model}
}

func soldListingsServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/item_summary/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"itemSummaries": [
				{
					"itemId": "v1|1|0",
					"title": "Rolex Submariner 126610LN full set",
					"price": {"value": "12000.00", "currency": "USD"},
					"shippingOptions": [{"shippingCost": {"value": "0.00", "currency": "USD"}}]
				},
				{
					"itemId": "v1|2|0",
					"title": "Rolex Submariner 126610LN 2023",
					"price": {"value": "13000.00", "currency": "USD"}
				}
			]
		}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestSoldListingsProviderAverages(t *testing.T) {
	srv := soldListingsServer(t)
	tc := transport.New(listings.SourceEbay, &transport.BearerAuth{}, "token")
	p := NewSoldListingsProvider(ebay.New(tc, srv.URL))

	ref, err := p.Resolve(t.Context(), watchIdentity("Rolex", "126610LN"))
	require.NoError(t, err)
	require.True(t, ref.Resolved())
	assert.InDelta(t, 12500.0, *ref.Value, 0.01)
	assert.Equal(t, "sold_listings_average", ref.SourceMethod)
}

func TestSoldListingsProviderNoResults(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/item_summary/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"itemSummaries": []}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	tc := transport.New(listings.SourceEbay, &transport.BearerAuth{}, "token")
	p := NewSoldListingsProvider(ebay.New(tc, srv.URL))

	ref, err := p.Resolve(t.Context(), watchIdentity("Rolex", "126610LN"))
	require.NoError(t, err)
	assert.Nil(t, ref)
}

func TestSoldQuery(t *testing.T) {
	tests := []struct {
		name string
		id   listings.Identity
		want string
	}{
		{"watch with reference", watchIdentity("Rolex", "126610LN"), "Rolex 126610LN"},
		{"watch model name only", listings.Identity{Class: listings.ClassWatch, Brand: "Omega", Model: "Speedmaster"}, "Omega Speedmaster"},
		{"watch missing brand", listings.Identity{Class: listings.ClassWatch, ModelNumber: "126610LN"}, ""},
		{"luxury brand only", listings.Identity{Class: listings.ClassLuxury, Brand: "Gucci"}, "Gucci"},
		{"card cert", cardIdentity("12345678"), "PSA 12345678"},
		{"card without cert", listings.Identity{Class: listings.ClassTradingCard}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, soldQuery(tt.id))
		})
	}
}

type fixedFetcher struct {
	source listings.Source
	value  float64
	calls  int
}

func (f *fixedFetcher) Source() listings.Source { return f.source }

func (f *fixedFetcher) FetchReferencePrice(_ context.Context, id listings.Identity) (*listings.ReferencePrice, error) {
	f.calls++
	if f.value <= 0 {
		return nil, nil
	}
	v := f.value
	return &listings.ReferencePrice{
		Value:        &v,
		Currency:     "USD",
		SourceMethod: "price_index_scrape",
		Identity:     id,
	}, nil
}

func TestFromFetcherAdapts(t *testing.T) {
	fetcher := &fixedFetcher{source: listings.SourceWatchIndex, value: 9800}
	p := FromFetcher("price_index", fetcher)

	assert.Equal(t, "price_index", p.Name())

	ref, err := p.Resolve(t.Context(), watchIdentity("Rolex", "126610LN"))
	require.NoError(t, err)
	require.True(t, ref.Resolved())
	assert.Equal(t, 9800.0, *ref.Value)
	assert.Equal(t, 1, fetcher.calls)
}
