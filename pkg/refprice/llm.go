package refprice

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"google.golang.org/genai"

	"github.com/spreadscan/spreadscan/internal/sources"
	"github.com/spreadscan/spreadscan/pkg/errors"
	"github.com/spreadscan/spreadscan/pkg/listings"
)

const defaultLLMModel = "gemini-2.0-flash"

// dollarPattern extracts the first dollar figure from model output.
var dollarPattern = regexp.MustCompile(`\$?([\d,]+(?:\.\d{1,2})?)`)

// generator is the slice of the Gemini API the provider needs;
// satisfied by *genai.Models and by test fakes.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// LLMProvider estimates a value by asking a language model. It sits
// last in every chain: the answer is a research aid, not a quote, so
// any structured source takes precedence.
type LLMProvider struct {
	models generator
	model  string
}

// NewLLMProvider creates a Gemini-backed estimator. The API key comes
// from the GEMINI_API_KEY environment variable via config lookup; an
// empty key is an error so callers can drop the provider from the
// chain instead of carrying a dead link.
func NewLLMProvider(ctx context.Context, apiKey string) (*LLMProvider, error) {
	if apiKey == "" {
		return nil, &errors.AuthenticationError{
			Source:  "gemini",
			Method:  "api_key",
			Message: "environment variable GEMINI_API_KEY not set",
			Err:     errors.ErrAPIKeyRequired,
		}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
		APIKey:  apiKey,
	})
	if err != nil {
		return nil, errors.WrapAPI("gemini", 0, err)
	}
	return &LLMProvider{models: client.Models, model: defaultLLMModel}, nil
}

// Name implements the Provider interface.
func (p *LLMProvider) Name() string { return "llm_estimate" }

// Resolve implements the Provider interface. It prompts the model for
// a single dollar figure and parses the first one out of the reply. A
// reply without a plausible figure yields (nil, nil).
func (p *LLMProvider) Resolve(ctx context.Context, id listings.Identity) (*listings.ReferencePrice, error) {
	prompt := estimatePrompt(id)
	if prompt == "" {
		return nil, nil
	}

	resp, err := p.models.GenerateContent(ctx, p.model, genai.Text(prompt), nil)
	if err != nil {
		return nil, errors.WrapAPI("gemini", 0, err)
	}

	value := parseDollar(resp.Text())
	if value <= 0 {
		return nil, nil
	}
	return &listings.ReferencePrice{
		Value:        &value,
		Currency:     "USD",
		SourceMethod: "llm_estimate",
		Identity:     id,
	}, nil
}

// estimatePrompt builds a class-specific valuation question. The
// instructions pin the reply to one number so parseDollar stays simple.
func estimatePrompt(id listings.Identity) string {
	var subject string
	switch id.Class {
	case listings.ClassTradingCard:
		if id.CertNumber == "" {
			return ""
		}
		subject = fmt.Sprintf("the PSA-graded trading card with certification number %s", id.CertNumber)
		if id.Title != "" {
			subject += fmt.Sprintf(" (listed as %q)", id.Title)
		}
	case listings.ClassWatch:
		model := id.ModelNumber
		if model == "" {
			model = id.Model
		}
		if id.Brand == "" || model == "" {
			return ""
		}
		subject = fmt.Sprintf("a %s %s watch in good pre-owned condition", id.Brand, model)
	case listings.ClassLuxury:
		if id.Brand == "" {
			return ""
		}
		subject = fmt.Sprintf("a pre-owned %s item", id.Brand)
		if id.Title != "" {
			subject = fmt.Sprintf("a pre-owned %s item (listed as %q)", id.Brand, id.Title)
		}
	default:
		return ""
	}

	return fmt.Sprintf(
		"What is the current fair market value in US dollars of %s? "+
			"Reply with a single dollar amount like $1,234.56 and nothing else.",
		subject)
}

// parseDollar extracts the first dollar figure from model output.
func parseDollar(text string) float64 {
	for _, line := range strings.Split(text, "\n") {
		m := dollarPattern.FindStringSubmatch(line)
		if len(m) < 2 {
			continue
		}
		if v := sources.ParseMoney(m[1]); v > 0 {
			return v
		}
	}
	return 0
}
