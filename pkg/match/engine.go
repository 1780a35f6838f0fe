// Package match pairs listings across marketplaces into match candidates
// with confidence scores. Two family-specific strategies exist, selected
// by item class: trading cards (certificate-first, weighted title scoring
// otherwise) and luxury goods (brand-gated weighted scoring). Watches
// match only on exact brand-and-reference identity.
//
// The engine does not deduplicate: one listing may appear in several
// candidates, and callers choosing a single best match sort by
// confidence descending and take the first.
package match

import (
	"fmt"
	"sort"

	"github.com/spreadscan/spreadscan/pkg/listings"
)

// Config carries the scoring weights and cutoffs. The thresholds and the
// price-divergence constants are empirical, not derived; they are
// configuration rather than invariants.
type Config struct {
	// TitleWeight scales the token-set title similarity.
	TitleWeight float64
	// KeywordWeight scales the keyword overlap ratio.
	KeywordWeight float64
	// BonusWeight is added per shared card signal (grading service,
	// grade value, first-edition mention).
	BonusWeight float64
	// CardThreshold is the minimum confidence for a card candidate.
	CardThreshold float64
	// LuxuryThreshold is the minimum confidence for a luxury candidate.
	LuxuryThreshold float64
	// PriceDivergencePct is the all-in cost divergence (as a fraction of
	// the larger cost) beyond which the penalty applies.
	PriceDivergencePct float64
	// PriceDivergencePenalty multiplies the confidence on divergence.
	PriceDivergencePenalty float64
	// SizeBonus and SizePenalty adjust luxury scores on size evidence.
	SizeBonus   float64
	SizePenalty float64
	// ConditionBonus rewards agreement on new-vs-used condition.
	ConditionBonus float64
}

// DefaultConfig returns the default scoring configuration.
func DefaultConfig() Config {
	return Config{
		TitleWeight:            0.4,
		KeywordWeight:          0.3,
		BonusWeight:            0.1,
		CardThreshold:          0.6,
		LuxuryThreshold:        0.5,
		PriceDivergencePct:     0.30,
		PriceDivergencePenalty: 0.5,
		SizeBonus:              0.2,
		SizePenalty:            0.1,
		ConditionBonus:         0.1,
	}
}

// Engine pairs listings across sources for one item class.
type Engine struct {
	cfg Config
}

// New creates a matching engine with the given configuration.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// NewDefault creates a matching engine with the default configuration.
func NewDefault() *Engine {
	return New(DefaultConfig())
}

// Pair scores a single cross-source pair. It returns nil when the
// listings share a source or score below the class threshold.
func (e *Engine) Pair(class listings.ItemClass, a, b listings.Listing) *listings.MatchCandidate {
	if a.Source == b.Source {
		return nil
	}
	switch class {
	case listings.ClassTradingCard:
		return e.matchTradingCards(a, b)
	case listings.ClassLuxury:
		return e.matchLuxury(a, b)
	case listings.ClassWatch:
		return e.matchWatch(a, b)
	}
	return nil
}

// MatchAll scores every cross-source pair in the joined result set and
// returns the candidates sorted by confidence descending. De-duplication
// is left to the caller.
func (e *Engine) MatchAll(class listings.ItemClass, all []listings.Listing) []listings.MatchCandidate {
	var candidates []listings.MatchCandidate
	for i := range all {
		for j := i + 1; j < len(all); j++ {
			if c := e.Pair(class, all[i], all[j]); c != nil {
				candidates = append(candidates, *c)
			}
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	return candidates
}

// matchWatch pairs watch listings only on an exact brand plus reference
// number identity; fuzzy title matching is too unreliable for watch
// references to be worth a weighted score.
func (e *Engine) matchWatch(a, b listings.Listing) *listings.MatchCandidate {
	idA := a.Identity(listings.ClassWatch)
	idB := b.Identity(listings.ClassWatch)
	if idA.IsZero() || idB.IsZero() {
		return nil
	}
	if idA.Key() != idB.Key() {
		return nil
	}
	model := idA.ModelNumber
	if model == "" {
		model = idA.Model
	}
	return &listings.MatchCandidate{
		A:          a,
		B:          b,
		Confidence: 1.0,
		Reason:     fmt.Sprintf("exact identity match: %s %s", idA.Brand, model),
	}
}

// CheapestPlatform returns the source with the lowest all-in cost
// (price plus shipping) across the joined listing set. Ties break by the
// stable source priority order. ok is false for an empty set.
func CheapestPlatform(all []listings.Listing) (best listings.Source, ok bool) {
	if len(all) == 0 {
		return "", false
	}
	bestIdx := 0
	for i := 1; i < len(all); i++ {
		ci, cb := all[i].AllIn(), all[bestIdx].AllIn()
		if ci < cb || (ci == cb && all[i].Source.Priority() < all[bestIdx].Source.Priority()) {
			bestIdx = i
		}
	}
	return all[bestIdx].Source, true
}
