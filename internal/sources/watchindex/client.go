// Package watchindex implements the watch price-index site adapter. It
// scrapes the public search and model pages for market and retail
// prices, and can query the paid index API when credentials are
// configured.
package watchindex

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/spreadscan/spreadscan/internal/sources"
	"github.com/spreadscan/spreadscan/internal/transport"
	"github.com/spreadscan/spreadscan/pkg/errors"
	"github.com/spreadscan/spreadscan/pkg/listings"
	"github.com/spreadscan/spreadscan/pkg/logging"
)

const defaultBaseURL = "https://watchcharts.com"

// Plausible bounds for a watch valuation; figures outside are scrape
// artifacts.
const (
	minPlausiblePrice = 100
	maxPlausiblePrice = 1000000
)

// pricePatterns match valuation figures in page text, tried in order.
var pricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Market\s+Price[:\s]*\$?([\d,]+\.?\d*)`),
	regexp.MustCompile(`(?i)Retail\s+Price[:\s]*\$?([\d,]+\.?\d*)`),
	regexp.MustCompile(`(?i)MSRP[:\s]*\$?([\d,]+\.?\d*)`),
	regexp.MustCompile(`(?i)List\s+Price[:\s]*\$?([\d,]+\.?\d*)`),
}

// jsonPricePatterns match valuation keys embedded in page scripts.
var jsonPricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)"market_price"\s*:\s*([\d,]+\.?\d*)`),
	regexp.MustCompile(`(?i)"retail_price"\s*:\s*([\d,]+\.?\d*)`),
	regexp.MustCompile(`(?i)"retailPrice"\s*:\s*([\d,]+\.?\d*)`),
	regexp.MustCompile(`(?i)"msrp"\s*:\s*([\d,]+\.?\d*)`),
}

// Client is the price-index site adapter.
type Client struct {
	http    *transport.Client
	baseURL string
}

// New creates a price-index adapter over the given transport.
func New(http *transport.Client, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{http: http, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// Source implements the sources.ReferenceFetcher interface.
func (c *Client) Source() listings.Source { return listings.SourceWatchIndex }

// FetchReferencePrice implements the sources.ReferenceFetcher
// interface. It searches the index for the identity's brand and model,
// requires both to appear in a result link before trusting it, then
// scrapes the model page for a valuation. A watch the index does not
// carry yields nil, not an error.
func (c *Client) FetchReferencePrice(ctx context.Context, id listings.Identity) (*listings.ReferencePrice, error) {
	model := id.ModelNumber
	if model == "" {
		model = id.Model
	}
	if id.Brand == "" || model == "" {
		return nil, nil
	}

	pageURL, err := c.findModelPage(ctx, id.Brand, model)
	if err != nil || pageURL == "" {
		return nil, err
	}

	value, err := c.scrapePrice(ctx, pageURL)
	if err != nil || value == 0 {
		return nil, err
	}

	logging.FromContext(ctx).Debug().
		Str("brand", id.Brand).
		Str("model", model).
		Float64("value", value).
		Msg("price index match")

	return &listings.ReferencePrice{
		Value:        &value,
		Currency:     "USD",
		SourceMethod: "price_index_scrape",
		Identity:     id,
	}, nil
}

// findModelPage searches the index and returns the model page URL, or
// "" when no link matches both brand and model.
func (c *Client) findModelPage(ctx context.Context, brand, model string) (string, error) {
	searchURL := c.baseURL + "/watches?search=" + url.QueryEscape(brand+" "+model)

	doc, err := c.fetchDocument(ctx, searchURL)
	if err != nil {
		if errors.IsNoData(err) {
			return "", nil
		}
		return "", err
	}
	if doc == nil {
		return "", nil
	}

	brandLower := strings.ToLower(brand)
	modelLower := strings.ToLower(model)
	modelCompact := strings.NewReplacer(" ", "", "-", "", ".", "").Replace(modelLower)

	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if !strings.Contains(href, "/watch_model/") {
			return true
		}

		hrefLower := strings.ToLower(href)
		hrefCompact := strings.NewReplacer("-", "", "_", "", ".", "").Replace(hrefLower)
		if !strings.Contains(hrefLower, brandLower) {
			return true
		}
		if !strings.Contains(hrefLower, modelLower) && !strings.Contains(hrefCompact, modelCompact) {
			return true
		}

		if strings.HasPrefix(href, "/") {
			found = c.baseURL + href
		} else {
			found = href
		}
		if !strings.Contains(found, "/overview") {
			found += "/overview"
		}
		return false
	})
	return found, nil
}

// scrapePrice extracts the first plausible valuation from a model page.
func (c *Client) scrapePrice(ctx context.Context, pageURL string) (float64, error) {
	doc, err := c.fetchDocument(ctx, pageURL)
	if err != nil {
		if errors.IsNoData(err) {
			return 0, nil
		}
		return 0, err
	}
	if doc == nil {
		return 0, nil
	}

	text := doc.Text()
	for _, pattern := range pricePatterns {
		if v := matchPrice(pattern, text); v > 0 {
			return v, nil
		}
	}

	var fromScript float64
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		script := s.Text()
		for _, pattern := range jsonPricePatterns {
			if v := matchPrice(pattern, script); v > 0 {
				fromScript = v
				return false
			}
		}
		return true
	})
	return fromScript, nil
}

func (c *Client) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	return goquery.NewDocumentFromReader(resp.Body)
}

func matchPrice(pattern *regexp.Regexp, text string) float64 {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	v := sources.ParseMoney(m[1])
	if v < minPlausiblePrice || v > maxPlausiblePrice {
		return 0
	}
	return v
}
