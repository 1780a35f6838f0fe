package match

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spreadscan/spreadscan/pkg/listings"
)

// gradingServices are the grading authorities whose mention in both
// titles earns a scoring bonus.
var gradingServices = []string{"psa", "bgs", "cgc", "sgc"}

// gradePattern captures the numeric grade following a grading service
// mention, e.g. "PSA 10" or "BGS 9.5".
var gradePattern = regexp.MustCompile(`(?i)\b(?:psa|bgs|cgc|sgc)\s*#?\s*(10|[1-9](?:\.5)?)\b`)

// matchTradingCards scores a pair of card listings. An identical
// non-empty certificate number is authoritative: confidence 1.0 and no
// weighted scoring. Otherwise the score combines title similarity,
// keyword overlap, and grading bonuses, with a penalty when the two
// all-in costs diverge sharply.
func (e *Engine) matchTradingCards(a, b listings.Listing) *listings.MatchCandidate {
	certA := a.Attr(listings.AttrCertNumber)
	certB := b.Attr(listings.AttrCertNumber)
	if certA != "" && certA == certB {
		return &listings.MatchCandidate{
			A:          a,
			B:          b,
			Confidence: 1.0,
			Reason:     fmt.Sprintf("exact identity match: cert %s", certA),
		}
	}

	titleSim := titleSimilarity(a.Title, b.Title)
	overlap := keywordOverlap(keywords(a.Title), keywords(b.Title))

	confidence := titleSim*e.cfg.TitleWeight + overlap*e.cfg.KeywordWeight
	if sharedGradingService(a.Title, b.Title) {
		confidence += e.cfg.BonusWeight
	}
	if g1, g2 := extractGrade(a.Title), extractGrade(b.Title); g1 != "" && g1 == g2 {
		confidence += e.cfg.BonusWeight
	}
	if firstEdition(a.Title) && firstEdition(b.Title) {
		confidence += e.cfg.BonusWeight
	}
	confidence = clamp(confidence)

	// Sharply different all-in costs usually mean different items even
	// when the titles read alike.
	if priceDiverges(a.AllIn(), b.AllIn(), e.cfg.PriceDivergencePct) {
		confidence *= e.cfg.PriceDivergencePenalty
	}

	if confidence < e.cfg.CardThreshold {
		return nil
	}
	return &listings.MatchCandidate{
		A:          a,
		B:          b,
		Confidence: confidence,
		Reason:     fmt.Sprintf("title similarity: %.2f, keyword overlap: %.2f", titleSim, overlap),
	}
}

// sharedGradingService reports whether the same grading authority is
// mentioned in both titles.
func sharedGradingService(titleA, titleB string) bool {
	la, lb := fold(titleA), fold(titleB)
	for _, svc := range gradingServices {
		if strings.Contains(la, svc) && strings.Contains(lb, svc) {
			return true
		}
	}
	return false
}

// extractGrade returns the numeric grade mentioned alongside a grading
// service in a title, or "".
func extractGrade(title string) string {
	m := gradePattern.FindStringSubmatch(title)
	if m == nil {
		return ""
	}
	return m[1]
}

// firstEdition reports whether a title mentions a first edition printing.
func firstEdition(title string) bool {
	l := fold(title)
	return strings.Contains(l, "1st") || strings.Contains(l, "first")
}

// priceDiverges reports whether two all-in costs differ by more than the
// given fraction of the larger one. Unknown (zero) prices never diverge.
func priceDiverges(a, b, pct float64) bool {
	if a <= 0 || b <= 0 {
		return false
	}
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo/hi < 1-pct
}
