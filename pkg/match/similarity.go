package match

import (
	"regexp"

	"golang.org/x/text/cases"
)

// wordPattern extracts alphanumeric tokens of at least three characters.
var wordPattern = regexp.MustCompile(`[a-z0-9]{3,}`)

// tokenPattern extracts every alphanumeric token.
var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// stopWords are dropped from keyword sets before overlap scoring. The
// grading vocabulary (psa, grade, edition) is excluded because it appears
// in nearly every graded-card title and would inflate overlap.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {},
	"with": {}, "by": {}, "psa": {}, "grade": {}, "edition": {},
}

var foldCaser = cases.Fold()

// fold lowercases a string with Unicode case folding so titles with
// non-ASCII brand names compare consistently.
func fold(s string) string {
	return foldCaser.String(s)
}

// keywords extracts the set of meaningful tokens from a title.
func keywords(text string) map[string]struct{} {
	set := make(map[string]struct{})
	if text == "" {
		return set
	}
	for _, w := range wordPattern.FindAllString(fold(text), -1) {
		if _, stop := stopWords[w]; stop {
			continue
		}
		set[w] = struct{}{}
	}
	return set
}

// titleSimilarity is a token-set similarity in [0,1]: the Dice
// coefficient of the two titles' token sets. Empty titles score 0.
func titleSimilarity(a, b string) float64 {
	ta := tokens(a)
	tb := tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	inter := 0
	for w := range ta {
		if _, ok := tb[w]; ok {
			inter++
		}
	}
	return 2 * float64(inter) / float64(len(ta)+len(tb))
}

// tokens splits a title into its full token set (no length or stop-word
// filtering; that is what distinguishes title similarity from keyword
// overlap).
func tokens(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range tokenPattern.FindAllString(fold(text), -1) {
		set[w] = struct{}{}
	}
	return set
}

// keywordOverlap is the Jaccard ratio of the two keyword sets.
func keywordOverlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// clamp bounds a confidence score to [0,1].
func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
