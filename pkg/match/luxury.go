package match

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spreadscan/spreadscan/pkg/listings"
)

// luxuryBrands are the brand strings recognized when listing metadata
// carries no brand. Multi-word names come first so "saint laurent" wins
// over a bare "laurent" token.
var luxuryBrands = []string{
	"saint laurent", "louis vuitton", "gucci", "ysl", "prada", "chanel", "dior",
}

// sizePattern captures a numeric size following a "size"/"sz" marker.
var sizePattern = regexp.MustCompile(`(?i)\b(?:size|sz)[\s:]*([0-9]+(?:\.[0-9]+)?)`)

// matchLuxury scores a pair of luxury-good listings. The brands must
// match or there is no candidate at all; beyond that the score combines
// title similarity, keyword overlap, a size bonus, and condition
// agreement.
func (e *Engine) matchLuxury(a, b listings.Listing) *listings.MatchCandidate {
	brandA := luxuryBrand(a)
	brandB := luxuryBrand(b)
	if brandA == "" || brandB == "" || brandA != brandB {
		return nil
	}

	titleSim := titleSimilarity(a.Title, b.Title)
	overlap := keywordOverlap(keywords(a.Title), keywords(b.Title))
	confidence := titleSim*e.cfg.TitleWeight + overlap*e.cfg.KeywordWeight

	sizeA := luxurySize(a)
	sizeB := luxurySize(b)
	switch {
	case sizeA != "" && sizeA == sizeB:
		confidence += e.cfg.SizeBonus
	case (sizeA == "") != (sizeB == ""):
		// One side parsed a size and the other did not; weak evidence
		// they are different items.
		confidence -= e.cfg.SizePenalty
	}

	if isNewCondition(a) == isNewCondition(b) {
		confidence += e.cfg.ConditionBonus
	}
	confidence = clamp(confidence)

	if confidence < e.cfg.LuxuryThreshold {
		return nil
	}
	return &listings.MatchCandidate{
		A:          a,
		B:          b,
		Confidence: confidence,
		Reason:     fmt.Sprintf("brand match (%s), title similarity: %.2f", brandA, titleSim),
	}
}

// luxuryBrand returns the listing's brand in folded form: metadata when
// present, otherwise the first known brand string found in the title.
func luxuryBrand(l listings.Listing) string {
	if b := l.Attr(listings.AttrBrand); b != "" {
		return fold(b)
	}
	title := fold(l.Title)
	for _, brand := range luxuryBrands {
		if strings.Contains(title, brand) {
			return brand
		}
	}
	return ""
}

// luxurySize returns the listing's parsed size: metadata when present,
// otherwise a "size N" marker in the title.
func luxurySize(l listings.Listing) string {
	if s := l.Attr(listings.AttrSize); s != "" {
		return s
	}
	if m := sizePattern.FindStringSubmatch(l.Title); m != nil {
		return m[1]
	}
	return ""
}

// isNewCondition reports whether a listing presents as new rather than
// pre-owned.
func isNewCondition(l listings.Listing) bool {
	return strings.Contains(fold(l.Condition), "new") || strings.Contains(fold(l.Title), "new")
}
