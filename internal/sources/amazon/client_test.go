package amazon

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spreadscan/spreadscan/internal/sources"
	"github.com/spreadscan/spreadscan/internal/transport"
	"github.com/spreadscan/spreadscan/pkg/listings"
)

func newTestClient(srv *httptest.Server) *Client {
	tc := transport.New(listings.SourceAmazon, &transport.HeaderAuth{Header: "X-RapidAPI-Key"}, "key")
	return New(tc, srv.URL)
}

func TestSearchListingsV3Envelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "US", r.URL.Query().Get("country"))
		assert.Equal(t, "RELEVANCE", r.URL.Query().Get("sort_by"))
		fmt.Fprint(w, `{
			"status": "OK",
			"data": {
				"products": [
					{
						"asin": "B0TESTASIN1",
						"product_title": "Gucci Horsebit loafers size 9",
						"product_price": "$650.00",
						"product_photo": "https://img.example/1.jpg",
						"brand": "Gucci"
					},
					{
						"asin": "B0TESTASIN2",
						"product_title": "Generic loafers",
						"product_price": {"amount": 39.99, "currency": "USD"}
					},
					{
						"product_title": "row without asin is dropped",
						"product_price": "$10.00"
					}
				]
			}
		}`)
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(srv)
	got, err := c.SearchListings(t.Context(), sources.Query{
		Text:  "gucci loafers",
		Class: listings.ClassLuxury,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, "B0TESTASIN1", first.ExternalID)
	assert.InDelta(t, 650.00, first.Price, 1e-9)
	assert.Equal(t, "New", first.Condition)
	assert.Equal(t, "https://www.amazon.com/dp/B0TESTASIN1", first.URL)
	assert.Equal(t, "Gucci", first.Attr(listings.AttrBrand))
	assert.Equal(t, "9", first.Attr(listings.AttrSize))

	assert.InDelta(t, 39.99, got[1].Price, 1e-9)
}

func TestSearchListingsBareListEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{
			"data": [
				{"asin": "B0WATCH0001", "title": "Seiko SKX007 dive watch", "price": "250"}
			]
		}`)
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(srv)
	got, err := c.SearchListings(t.Context(), sources.Query{
		Text:  "seiko skx007",
		Class: listings.ClassWatch,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Seiko", got[0].Attr(listings.AttrBrand))
	assert.Equal(t, "SKX007", got[0].Attr(listings.AttrModel))
}

func TestSearchListingsPriceFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{
			"data": {"products": [
				{"asin": "A", "product_title": "cheap", "product_price": "$10.00"},
				{"asin": "B", "product_title": "mid", "product_price": "$100.00"},
				{"asin": "C", "product_title": "pricey", "product_price": "$1000.00"}
			]}
		}`)
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(srv)
	got, err := c.SearchListings(t.Context(), sources.Query{
		Text:     "anything",
		MinPrice: 50,
		MaxPrice: 500,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "B", got[0].ExternalID)
}

func TestSearchListingsNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(srv)
	got, err := c.SearchListings(t.Context(), sources.Query{Text: "nothing"})
	require.NoError(t, err)
	assert.Empty(t, got)
}
