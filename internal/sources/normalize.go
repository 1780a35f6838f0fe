package sources

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/spreadscan/spreadscan/pkg/errors"
	"github.com/spreadscan/spreadscan/pkg/listings"
	"github.com/spreadscan/spreadscan/pkg/logging"
)

// moneyPattern matches the first numeric token in free-text prices like
// "$1,234.56" or "USD 99".
var moneyPattern = regexp.MustCompile(`[\d,]+\.?\d*`)

// certPattern matches a bare grading certificate number: 6 to 9 digits,
// nothing else.
var certPattern = regexp.MustCompile(`^\d{6,9}$`)

// titleCertPattern pulls a certificate number out of listing title text,
// anchored to a certification keyword so random digit runs (years, zip
// codes) are not mistaken for certs.
var titleCertPattern = regexp.MustCompile(`(?i)\b(?:psa|bgs|cgc|sgc|certification|cert|serial|s#)[\s#:.]*(\d{6,9})`)

// yearPattern matches a plausible release year.
var yearPattern = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)

// sizePattern matches clothing/shoe sizes written as "size 9.5" or "sz 40".
var sizePattern = regexp.MustCompile(`(?i)\b(?:size|sz)[\s:]*(\d+(?:\.\d+)?)`)

// watchModelPatterns match reference numbers and model names in watch
// titles, tried in order of specificity.
var watchModelPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b([A-Z]{2,}\d{3,}[A-Z]?\d*)\b`),
	regexp.MustCompile(`\b(\d{3,}[A-Z]?\d*(?:\.\d+){3,})\b`),
	regexp.MustCompile(`\b(\d{5,6}[A-Z]{0,3})\b`),
	regexp.MustCompile(`\b([A-Z][a-z]{3,}(?:\s+[A-Z][a-z]+)*)\b`),
}

// watchNoiseWords are stripped from titles before model extraction.
var watchNoiseWords = regexp.MustCompile(`(?i)\b(watch|mens|womens|vintage|pre-owned|authentic|genuine)\b`)

// watchBrands is the known-brand table scanned against titles when the
// upstream payload carries no brand field. Order matters only for
// multi-word brands, which must come before their fragments.
var watchBrands = []string{
	"Audemars Piguet", "Patek Philippe", "Vacheron Constantin",
	"Jaeger-LeCoultre", "Tag Heuer", "Michael Kors",
	"Rolex", "Omega", "Seiko", "Citizen", "Casio", "Timex", "Bulova",
	"Tissot", "Breitling", "IWC", "Panerai", "Cartier", "Blancpain",
	"Breguet", "Zenith", "Tudor", "Longines", "Hamilton", "Movado",
	"Fossil", "Invicta", "Orient", "Swatch",
}

// luxuryBrands is scanned against titles for luxury-goods listings.
// Multi-word brands first.
var luxuryBrands = []string{
	"saint laurent", "louis vuitton",
	"gucci", "ysl", "prada", "chanel", "dior",
}

// ParseMoney extracts a dollar amount from free text like "$1,234.56".
// Returns 0 when no numeric token is present, meaning "unknown".
func ParseMoney(s string) float64 {
	s = strings.ReplaceAll(s, ",", "")
	token := moneyPattern.FindString(s)
	if token == "" {
		return 0
	}
	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0
	}
	return v
}

// ParsePrice normalizes the price shapes seen across upstream APIs:
// bare numbers, {"amount": ..., "currency": ...} objects (amount itself
// numeric or text), and free-text strings. Unknown shapes yield 0.
func ParsePrice(v any) float64 {
	out, _ := parsePrice(v)
	return out
}

// parsePrice reports whether a numeric token was actually found, so
// callers can tell a parsed zero from a malformed value.
func parsePrice(v any) (float64, bool) {
	switch p := v.(type) {
	case float64:
		return p, true
	case int:
		return float64(p), true
	case string:
		token := moneyPattern.FindString(strings.ReplaceAll(p, ",", ""))
		if token == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(token, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case map[string]any:
		for _, key := range []string{"amount", "value"} {
			if inner, ok := p[key]; ok {
				if out, found := parsePrice(inner); found && out > 0 {
					return out, true
				}
			}
		}
		if inner, ok := p["formatted_amount"]; ok {
			return parsePrice(inner)
		}
		return 0, false
	default:
		return 0, false
	}
}

// PriceField parses a price-bearing field from an upstream payload. A
// field that is present but unparseable is logged as a ParseError and
// defaults to zero; processing continues. Absent fields stay silent.
func PriceField(ctx context.Context, source listings.Source, field string, raw any) float64 {
	v, found := parsePrice(raw)
	if !found && rawPresent(raw) {
		err := errors.NewParseError(string(source), field,
			fmt.Sprintf("unparseable value %v", raw), nil)
		logging.FromContext(ctx).Warn().
			Err(err).
			Str("source", string(source)).
			Str("field", field).
			Msg("malformed field, defaulting to zero")
	}
	return v
}

// rawPresent reports whether an upstream field carried any value at all.
func rawPresent(v any) bool {
	switch p := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(p) != ""
	case map[string]any:
		return len(p) > 0
	default:
		return true
	}
}

// CertNumber extracts a grading certificate number, preferring
// certification-named aspect fields over title text. Returns "" rather
// than guessing.
func CertNumber(title string, aspects map[string]string) string {
	for name, value := range aspects {
		lower := strings.ToLower(name)
		if !strings.Contains(lower, "cert") && !strings.Contains(lower, "psa") {
			continue
		}
		if v := strings.TrimSpace(value); certPattern.MatchString(v) {
			return v
		}
	}
	if m := titleCertPattern.FindStringSubmatch(title); m != nil {
		return m[1]
	}
	return ""
}

// Year extracts a release year from title text, "" when absent.
func Year(title string) string {
	return yearPattern.FindString(title)
}

// Size extracts a clothing or shoe size from title text, "" when absent.
func Size(title string) string {
	if m := sizePattern.FindStringSubmatch(title); m != nil {
		return m[1]
	}
	return ""
}

// WatchBrand scans a title against the known-brand table. Returns the
// canonical brand spelling or "".
func WatchBrand(title string) string {
	upper := strings.ToUpper(title)
	for _, brand := range watchBrands {
		if strings.Contains(upper, strings.ToUpper(brand)) {
			return brand
		}
	}
	return ""
}

// WatchModel extracts a model reference or name from a watch title. The
// brand, when known, is removed first so it is not mistaken for a model
// name.
func WatchModel(title, brand string) string {
	clean := watchNoiseWords.ReplaceAllString(title, "")
	if brand != "" {
		brandPattern, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(brand))
		if err == nil {
			clean = brandPattern.ReplaceAllString(clean, "")
		}
	}
	for _, pattern := range watchModelPatterns {
		if m := pattern.FindStringSubmatch(clean); m != nil {
			model := strings.TrimSpace(m[1])
			if len(model) > 2 {
				return model
			}
		}
	}
	return ""
}

// LuxuryBrand scans a title for a known luxury brand. Returns the brand
// in title case or "".
func LuxuryBrand(title string) string {
	lower := strings.ToLower(title)
	for _, brand := range luxuryBrands {
		if strings.Contains(lower, brand) {
			return titleCase(brand)
		}
	}
	return ""
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if w == "ysl" {
			words[i] = "YSL"
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
