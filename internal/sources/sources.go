// Package sources defines the adapter contracts for marketplace and
// reference-price sources, plus the shared normalization helpers that
// turn messy upstream payloads into canonical listings.
package sources

import (
	"context"

	"github.com/spreadscan/spreadscan/pkg/listings"
)

// Query describes one marketplace search.
type Query struct {
	// Text is the free-text search string, e.g. "charizard psa 10".
	Text string

	// Class selects category-specific query shaping (eBay card
	// category filters, luxury brand extraction).
	Class listings.ItemClass

	// Limit caps the number of listings returned. Zero means the
	// adapter default.
	Limit int

	// MinPrice and MaxPrice are optional price filters. Zero means
	// unbounded.
	MinPrice float64
	MaxPrice float64
}

// Searcher is a marketplace adapter. Implementations normalize their
// upstream payloads defensively: missing or renamed fields become zero
// values, non-USD rows are dropped, and a row that cannot be normalized
// is skipped rather than failing the search.
type Searcher interface {
	// Source identifies the marketplace this adapter serves.
	Source() listings.Source

	// SearchListings runs one search and returns canonical listings.
	SearchListings(ctx context.Context, q Query) ([]listings.Listing, error)
}

// ReferenceFetcher is a source that can value one identity directly,
// e.g. a price-index site or a grading authority's cert database.
type ReferenceFetcher interface {
	// Source identifies the reference source.
	Source() listings.Source

	// FetchReferencePrice values the identity, returning nil (not an
	// error) when the source has no figure for it.
	FetchReferencePrice(ctx context.Context, id listings.Identity) (*listings.ReferencePrice, error)
}

// Config is one source definition from the embedded sources catalog.
type Config struct {
	ID      listings.Source `yaml:"id"`
	Name    string          `yaml:"name"`
	BaseURL string          `yaml:"base_url"`

	// Auth selects the transport authenticator: "none", "bearer",
	// "header", or "query".
	Auth string `yaml:"auth"`

	// AuthHeader is the header name for header auth, e.g.
	// X-RapidAPI-Key.
	AuthHeader string `yaml:"auth_header,omitempty"`

	// APIKey names the environment variable holding the credential.
	APIKey         string `yaml:"api_key,omitempty"`
	APIKeyRequired bool   `yaml:"api_key_required,omitempty"`

	// Host is sent as X-RapidAPI-Host for RapidAPI sources.
	Host string `yaml:"host,omitempty"`

	// Metered sources count against the quota guard and run with
	// search concurrency 1.
	Metered bool `yaml:"metered,omitempty"`

	// RateLimit is the per-second request budget. Zero means the
	// dispatcher default.
	RateLimit float64 `yaml:"rate_limit,omitempty"`

	// Classes lists the item classes this source serves. Empty means
	// all.
	Classes []string `yaml:"classes,omitempty"`
}

// ServesClass reports whether the source handles the given item class.
func (c Config) ServesClass(class listings.ItemClass) bool {
	if len(c.Classes) == 0 {
		return true
	}
	for _, s := range c.Classes {
		if listings.ItemClass(s) == class {
			return true
		}
	}
	return false
}
