package refprice

import (
	"context"

	"github.com/spreadscan/spreadscan/internal/sources"
	"github.com/spreadscan/spreadscan/internal/sources/ebay"
	"github.com/spreadscan/spreadscan/pkg/constants"
	"github.com/spreadscan/spreadscan/pkg/listings"
)

// SoldListingsProvider values an identity from marketplace prices:
// the average all-in cost of current fixed-price listings matching the
// brand and model serves as a proxy for recent sale prices.
type SoldListingsProvider struct {
	client *ebay.Client
	limit  int
}

// NewSoldListingsProvider creates a sold-listings proxy over the given
// marketplace adapter.
func NewSoldListingsProvider(client *ebay.Client) *SoldListingsProvider {
	return &SoldListingsProvider{client: client, limit: constants.DefaultMaxResultsPerSource}
}

// Name implements the Provider interface.
func (p *SoldListingsProvider) Name() string { return "sold_listings" }

// Resolve implements the Provider interface. It searches the
// marketplace for the identity's brand and model and averages the
// all-in costs of priced results.
func (p *SoldListingsProvider) Resolve(ctx context.Context, id listings.Identity) (*listings.ReferencePrice, error) {
	query := soldQuery(id)
	if query == "" {
		return nil, nil
	}

	stats, err := p.client.SearchMarketStats(ctx, query, id.Class, p.limit)
	if err != nil {
		return nil, err
	}
	if stats == nil || stats.Average <= 0 {
		return nil, nil
	}

	value := stats.Average
	return &listings.ReferencePrice{
		Value:        &value,
		Currency:     "USD",
		SourceMethod: "sold_listings_average",
		Identity:     id,
	}, nil
}

func soldQuery(id listings.Identity) string {
	switch id.Class {
	case listings.ClassWatch, listings.ClassLuxury:
		if id.Brand == "" {
			return ""
		}
		model := id.ModelNumber
		if model == "" {
			model = id.Model
		}
		if model == "" {
			return id.Brand
		}
		return id.Brand + " " + model
	case listings.ClassTradingCard:
		if id.CertNumber == "" {
			return ""
		}
		return "PSA " + id.CertNumber
	}
	return ""
}

// fetcherProvider adapts a sources.ReferenceFetcher into a chain
// Provider.
type fetcherProvider struct {
	name    string
	fetcher sources.ReferenceFetcher
}

// FromFetcher wraps a reference fetcher as a chain provider under the
// given name.
func FromFetcher(name string, fetcher sources.ReferenceFetcher) Provider {
	return &fetcherProvider{name: name, fetcher: fetcher}
}

func (p *fetcherProvider) Name() string { return p.name }

func (p *fetcherProvider) Resolve(ctx context.Context, id listings.Identity) (*listings.ReferencePrice, error) {
	return p.fetcher.FetchReferencePrice(ctx, id)
}
