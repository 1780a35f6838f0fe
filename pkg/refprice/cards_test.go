package refprice

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spreadscan/spreadscan/internal/transport"
	"github.com/spreadscan/spreadscan/pkg/listings"
)

func scrapeTransport() *transport.Client {
	return transport.New(listings.SourcePSA, &transport.NoAuth{}, "",
		transport.WithBackoffBase(1))
}

func TestListingPageProviderExtractsEstimate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body>
			<h1>1999 Pokemon Base Set Charizard PSA 10</h1>
			<div class="value">PSA Estimate: $1,250.00</div>
		</body></html>`))
	}))
	defer server.Close()

	p := NewListingPageProvider(scrapeTransport())
	id := cardIdentity("45678901")
	id.ListingURL = server.URL + "/itm/123"

	ref, err := p.Resolve(t.Context(), id)
	require.NoError(t, err)
	require.True(t, ref.Resolved())
	assert.Equal(t, 1250.0, *ref.Value)
	assert.Equal(t, "listing_page_estimate", ref.SourceMethod)
	assert.Equal(t, "USD", ref.Currency)
}

func TestListingPageProviderScriptFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body>
			<p>No visible figure here.</p>
			<script>window.__DATA__ = {"item":{"estimatedValue": "875.50"}};</script>
		</body></html>`))
	}))
	defer server.Close()

	p := NewListingPageProvider(scrapeTransport())
	id := cardIdentity("45678901")
	id.ListingURL = server.URL + "/itm/123"

	ref, err := p.Resolve(t.Context(), id)
	require.NoError(t, err)
	require.True(t, ref.Resolved())
	assert.Equal(t, 875.50, *ref.Value)
}

func TestListingPageProviderNoURL(t *testing.T) {
	p := NewListingPageProvider(scrapeTransport())

	ref, err := p.Resolve(t.Context(), cardIdentity("45678901"))
	require.NoError(t, err)
	assert.Nil(t, ref)
}

func TestListingPageProviderNoFigure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><p>Nothing useful at all.</p></body></html>`))
	}))
	defer server.Close()

	p := NewListingPageProvider(scrapeTransport())
	id := cardIdentity("45678901")
	id.ListingURL = server.URL

	ref, err := p.Resolve(t.Context(), id)
	require.NoError(t, err)
	assert.Nil(t, ref)
}

func TestCertPageProviderExtractsEstimate(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body>
			<div>Certification #45678901</div>
			<div>$2,400 (PSA Estimate)</div>
		</body></html>`))
	}))
	defer server.Close()

	p := NewCertPageProvider(scrapeTransport(), server.URL)

	ref, err := p.Resolve(t.Context(), cardIdentity("45678901"))
	require.NoError(t, err)
	require.True(t, ref.Resolved())
	assert.Equal(t, 2400.0, *ref.Value)
	assert.Equal(t, "cert_page_estimate", ref.SourceMethod)
	assert.Equal(t, "/cert/45678901/psa", gotPath)
}

func TestCertPageProviderPageMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	p := NewCertPageProvider(scrapeTransport(), server.URL)

	ref, err := p.Resolve(t.Context(), cardIdentity("99999999"))
	require.NoError(t, err)
	assert.Nil(t, ref)
}

func TestCertPageProviderNoCert(t *testing.T) {
	p := NewCertPageProvider(scrapeTransport(), "")

	ref, err := p.Resolve(t.Context(), listings.Identity{Class: listings.ClassTradingCard})
	require.NoError(t, err)
	assert.Nil(t, ref)
}

func TestMatchEstimateRejectsImplausible(t *testing.T) {
	assert.Zero(t, matchEstimate(estimatePatterns[0], "PSA Estimate: $0.50"))
	assert.Zero(t, matchEstimate(estimatePatterns[0], "PSA Estimate: $99,000,000"))
	assert.Equal(t, 150.0, matchEstimate(estimatePatterns[0], "PSA Estimate: $150"))
}
