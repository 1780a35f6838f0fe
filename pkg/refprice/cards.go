package refprice

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/spreadscan/spreadscan/internal/sources"
	"github.com/spreadscan/spreadscan/internal/transport"
	"github.com/spreadscan/spreadscan/pkg/errors"
	"github.com/spreadscan/spreadscan/pkg/listings"
)

const defaultCertBaseURL = "https://www.psacard.com"

// Plausible bounds for a graded-card valuation.
const (
	minPlausibleEstimate = 1
	maxPlausibleEstimate = 10000000
)

// estimatePatterns match grading-service valuation figures in page
// text, tried in order.
var estimatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)PSA\s+Estimate[:\s]*\$?([\d,]+\.?\d*)`),
	regexp.MustCompile(`(?i)Estimated\s+Value[:\s]*\$?([\d,]+\.?\d*)`),
	regexp.MustCompile(`(?i)Est\.\s+Value[:\s]*\$?([\d,]+\.?\d*)`),
	regexp.MustCompile(`(?i)\$([\d,]+\.?\d*)\s*\(PSA\s+Estimate\)`),
}

// estimateScriptPatterns match valuation keys embedded in page scripts.
var estimateScriptPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)"estimatedValue"\s*:\s*"?\$?([\d,]+\.?\d*)"?`),
	regexp.MustCompile(`(?i)"estimated_value"\s*:\s*"?\$?([\d,]+\.?\d*)"?`),
	regexp.MustCompile(`(?i)"psaEstimate"\s*:\s*"?\$?([\d,]+\.?\d*)"?`),
	regexp.MustCompile(`(?i)"estimate"\s*:\s*"?\$?([\d,]+\.?\d*)"?`),
}

// ListingPageProvider scrapes the listing's own page for a
// grading-service estimate. Marketplace item pages for certified cards
// often surface the grader's valuation inline, which makes the page the
// cheapest lookup in the chain.
type ListingPageProvider struct {
	http *transport.Client
}

// NewListingPageProvider creates a listing-page scraper over the given
// transport.
func NewListingPageProvider(http *transport.Client) *ListingPageProvider {
	return &ListingPageProvider{http: http}
}

// Name implements the Provider interface.
func (p *ListingPageProvider) Name() string { return "listing_page" }

// Resolve implements the Provider interface. It fetches the identity's
// listing page and scans it for an estimate figure. An identity without
// a listing URL, or a page without a figure, yields (nil, nil).
func (p *ListingPageProvider) Resolve(ctx context.Context, id listings.Identity) (*listings.ReferencePrice, error) {
	if id.ListingURL == "" {
		return nil, nil
	}

	value, err := scrapeEstimate(ctx, p.http, id.ListingURL)
	if err != nil || value == 0 {
		return nil, err
	}
	return estimateRef(value, "listing_page_estimate", id), nil
}

// CertPageProvider looks the certificate up on the grading service's
// public verification site and scrapes the estimate from the cert page.
type CertPageProvider struct {
	http    *transport.Client
	baseURL string
}

// NewCertPageProvider creates a cert-page scraper. An empty baseURL
// selects the grading service's production site.
func NewCertPageProvider(http *transport.Client, baseURL string) *CertPageProvider {
	if baseURL == "" {
		baseURL = defaultCertBaseURL
	}
	return &CertPageProvider{http: http, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// Name implements the Provider interface.
func (p *CertPageProvider) Name() string { return "cert_page" }

// Resolve implements the Provider interface.
func (p *CertPageProvider) Resolve(ctx context.Context, id listings.Identity) (*listings.ReferencePrice, error) {
	if id.CertNumber == "" {
		return nil, nil
	}

	pageURL := fmt.Sprintf("%s/cert/%s/psa", p.baseURL, id.CertNumber)
	value, err := scrapeEstimate(ctx, p.http, pageURL)
	if err != nil || value == 0 {
		return nil, err
	}
	return estimateRef(value, "cert_page_estimate", id), nil
}

// scrapeEstimate fetches a page and extracts the first plausible
// estimate figure from its text, falling back to script-embedded JSON
// keys. A page that cannot be fetched as data yields 0, nil.
func scrapeEstimate(ctx context.Context, client *transport.Client, pageURL string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := client.Do(ctx, req)
	if err != nil {
		if errors.IsNoData(err) {
			return 0, nil
		}
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return 0, err
	}

	text := doc.Text()
	for _, pattern := range estimatePatterns {
		if v := matchEstimate(pattern, text); v > 0 {
			return v, nil
		}
	}

	var fromScript float64
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		script := s.Text()
		for _, pattern := range estimateScriptPatterns {
			if v := matchEstimate(pattern, script); v > 0 {
				fromScript = v
				return false
			}
		}
		return true
	})
	return fromScript, nil
}

func matchEstimate(pattern *regexp.Regexp, text string) float64 {
	m := pattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return 0
	}
	v := sources.ParseMoney(m[1])
	if v < minPlausibleEstimate || v > maxPlausibleEstimate {
		return 0
	}
	return v
}

func estimateRef(value float64, method string, id listings.Identity) *listings.ReferencePrice {
	return &listings.ReferencePrice{
		Value:        &value,
		Currency:     "USD",
		SourceMethod: method,
		Identity:     id,
	}
}
