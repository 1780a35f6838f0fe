// Package listings defines the canonical data model shared by every part
// of the spreadscan engine: marketplace listings, cross-platform match
// candidates, reference prices, and arbitrage opportunities. All records
// here are plain serializable values; adapters construct them, nothing
// mutates them afterward, and report renderers can consume them without
// depending on engine internals.
package listings

import (
	"fmt"
	"time"
)

// Source identifies a marketplace or reference-price source.
type Source string

// Known sources.
const (
	SourceEbay       Source = "ebay"
	SourceFacebook   Source = "facebook"
	SourceAmazon     Source = "amazon"
	SourceWatchIndex Source = "watchindex"
	SourcePSA        Source = "psa"
	SourceLLM        Source = "llm"
)

// sourcePriority orders marketplaces for tie-breaking when all-in costs
// are equal. The order is arbitrary but stable.
var sourcePriority = map[Source]int{
	SourceEbay:     0,
	SourceFacebook: 1,
	SourceAmazon:   2,
}

// Priority returns the tie-break rank of a marketplace source. Lower wins.
// Unknown sources sort last.
func (s Source) Priority() int {
	if p, ok := sourcePriority[s]; ok {
		return p
	}
	return len(sourcePriority)
}

// String returns the source identifier.
func (s Source) String() string { return string(s) }

// ItemClass selects the matching strategy and price-resolution chain for
// a scan.
type ItemClass string

// Supported item classes.
const (
	ClassTradingCard ItemClass = "trading_card"
	ClassLuxury      ItemClass = "luxury"
	ClassWatch       ItemClass = "watch"
)

// ParseItemClass validates an item class selector.
func ParseItemClass(s string) (ItemClass, error) {
	switch ItemClass(s) {
	case ClassTradingCard, ClassLuxury, ClassWatch:
		return ItemClass(s), nil
	}
	return "", fmt.Errorf("unknown item class %q", s)
}

// Category attribute keys. Which keys a listing carries depends on its
// item class.
const (
	AttrCertNumber  = "certNumber"
	AttrCardName    = "cardName"
	AttrYear        = "year"
	AttrSetName     = "setName"
	AttrBrand       = "brand"
	AttrModel       = "model"
	AttrModelNumber = "modelNumber"
	AttrSize        = "size"
)

// Listing is one marketplace listing in canonical form. Created by a
// source adapter, never mutated. Price and Shipping are non-negative;
// a zero Price means "unknown", not a free item.
type Listing struct {
	Source     Source            `json:"source"`
	ExternalID string            `json:"external_id"`
	Title      string            `json:"title"`
	Price      float64           `json:"price"`
	Shipping   float64           `json:"shipping"`
	Currency   string            `json:"currency"`
	Condition  string            `json:"condition,omitempty"`
	Seller     string            `json:"seller,omitempty"`
	URL        string            `json:"url,omitempty"`
	ImageURL   string            `json:"image_url,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Attr returns a category attribute value or "".
func (l Listing) Attr(key string) string {
	if l.Attributes == nil {
		return ""
	}
	return l.Attributes[key]
}

// AllIn returns price plus shipping, the cross-platform comparison cost.
// Tax is a tunable and applied by the arbitrage calculator, not here.
func (l Listing) AllIn() float64 {
	return l.Price + l.Shipping
}

// Identity returns the strong key identifying the physical item behind
// this listing for the given class, or a zero Identity when the listing
// carries no usable key.
func (l Listing) Identity(class ItemClass) Identity {
	id := Identity{Class: class, Title: l.Title, ListingURL: l.URL}
	switch class {
	case ClassTradingCard:
		id.CertNumber = l.Attr(AttrCertNumber)
	case ClassWatch:
		id.Brand = l.Attr(AttrBrand)
		id.Model = l.Attr(AttrModel)
		id.ModelNumber = l.Attr(AttrModelNumber)
	case ClassLuxury:
		id.Brand = l.Attr(AttrBrand)
	}
	return id
}

// Identity is the strong key for one physical item across sources: a
// grading certificate number for cards, brand plus model for watches and
// luxury goods. Title and ListingURL ride along as lookup context for
// providers that scrape or prompt with them.
type Identity struct {
	Class       ItemClass `json:"class"`
	CertNumber  string    `json:"cert_number,omitempty"`
	Brand       string    `json:"brand,omitempty"`
	Model       string    `json:"model,omitempty"`
	ModelNumber string    `json:"model_number,omitempty"`
	Title       string    `json:"title,omitempty"`
	ListingURL  string    `json:"listing_url,omitempty"`
}

// IsZero reports whether the identity carries no usable key.
func (id Identity) IsZero() bool {
	switch id.Class {
	case ClassTradingCard:
		return id.CertNumber == ""
	case ClassWatch:
		return id.Brand == "" || (id.Model == "" && id.ModelNumber == "")
	case ClassLuxury:
		return id.Brand == ""
	}
	return true
}

// Key returns a stable string form of the identity, usable as a map key.
func (id Identity) Key() string {
	switch id.Class {
	case ClassTradingCard:
		return "cert:" + id.CertNumber
	case ClassWatch:
		if id.ModelNumber != "" {
			return "watch:" + id.Brand + ":" + id.ModelNumber
		}
		return "watch:" + id.Brand + ":" + id.Model
	case ClassLuxury:
		return "luxury:" + id.Brand
	}
	return ""
}

// MatchCandidate pairs two listings from different sources with a
// confidence score in [0,1] and a human-readable reason. The engine emits
// best-effort pairs and does not enforce one-to-one matching; callers
// wanting a single best match sort by confidence descending and take the
// first.
type MatchCandidate struct {
	A          Listing `json:"a"`
	B          Listing `json:"b"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// ReferencePrice is an independently sourced valuation for one identity.
// Value is nil when no provider in the fallback chain produced a usable
// figure. One ReferencePrice is created per lookup; nothing caches them
// across runs except the quota guard's request log.
type ReferencePrice struct {
	Value        *float64 `json:"value"`
	Currency     string   `json:"currency"`
	SourceMethod string   `json:"source_method"`
	Identity     Identity `json:"identity"`
}

// Resolved reports whether the lookup produced a positive value.
func (r *ReferencePrice) Resolved() bool {
	return r != nil && r.Value != nil && *r.Value > 0
}

// ArbitrageOpportunity combines a listing with its resolved reference
// price and cost spread. Derived and recomputed on demand, never the
// source of truth.
type ArbitrageOpportunity struct {
	Listing        Listing         `json:"listing"`
	AllInCost      float64         `json:"all_in_cost"`
	ReferencePrice *ReferencePrice `json:"reference_price,omitempty"`
	Spread         *float64        `json:"spread,omitempty"`
	SpreadPct      float64         `json:"spread_pct"`
	IsArbitrage    bool            `json:"is_arbitrage"`
	BestPlatform   Source          `json:"best_platform,omitempty"`
}

// QuotaState tracks call counts against one source's quota window.
// Mutated only by the quota guard, under its lock.
type QuotaState struct {
	SourceID    Source    `json:"source_id"`
	WindowStart time.Time `json:"window_start"`
	Count       int       `json:"count"`
	Limit       int       `json:"limit"`
}

// Remaining returns the calls left in the current window, never negative.
func (q QuotaState) Remaining() int {
	if q.Limit <= 0 {
		return 0
	}
	if r := q.Limit - q.Count; r > 0 {
		return r
	}
	return 0
}
