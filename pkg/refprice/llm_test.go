package refprice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"google.golang.org/genai"

	"github.com/spreadscan/spreadscan/pkg/errors"
	"github.com/spreadscan/spreadscan/pkg/listings"
)

type fakeGenerator struct {
	reply  string
	prompt string
	calls  int
}

func (f *fakeGenerator) GenerateContent(_ context.Context, _ string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompt = contents[0].Parts[0].Text
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{{Text: f.reply}}}},
		},
	}, nil
}

func TestLLMProviderParsesDollarFigure(t *testing.T) {
	gen := &fakeGenerator{reply: "$1,850.00"}
	p := &LLMProvider{models: gen, model: defaultLLMModel}

	ref, err := p.Resolve(t.Context(), watchIdentity("Rolex", "126610LN"))
	require.NoError(t, err)
	require.True(t, ref.Resolved())
	assert.Equal(t, 1850.0, *ref.Value)
	assert.Equal(t, "llm_estimate", ref.SourceMethod)
	assert.Contains(t, gen.prompt, "Rolex 126610LN")
}

func TestLLMProviderVerboseReply(t *testing.T) {
	gen := &fakeGenerator{reply: "Based on recent sales, the fair market value is\n$425.50 as of today."}
	p := &LLMProvider{models: gen, model: defaultLLMModel}

	id := cardIdentity("45678901")
	ref, err := p.Resolve(t.Context(), id)
	require.NoError(t, err)
	require.True(t, ref.Resolved())
	assert.Equal(t, 425.50, *ref.Value)
	assert.Contains(t, gen.prompt, "45678901")
}

func TestLLMProviderNoFigure(t *testing.T) {
	gen := &fakeGenerator{reply: "I cannot determine a value for this item."}
	p := &LLMProvider{models: gen, model: defaultLLMModel}

	ref, err := p.Resolve(t.Context(), cardIdentity("45678901"))
	require.NoError(t, err)
	assert.Nil(t, ref)
}

func TestLLMProviderUnusableIdentity(t *testing.T) {
	gen := &fakeGenerator{reply: "$100"}
	p := &LLMProvider{models: gen, model: defaultLLMModel}

	ref, err := p.Resolve(t.Context(), listings.Identity{Class: listings.ClassWatch, Brand: "Rolex"})
	require.NoError(t, err)
	assert.Nil(t, ref)
	assert.Zero(t, gen.calls)
}

func TestNewLLMProviderRequiresKey(t *testing.T) {
	_, err := NewLLMProvider(t.Context(), "")
	require.Error(t, err)
	assert.True(t, errors.IsAuth(err))
}

func TestEstimatePrompt(t *testing.T) {
	assert.Contains(t, estimatePrompt(cardIdentity("12345678")), "certification number 12345678")
	assert.Contains(t, estimatePrompt(watchIdentity("Omega", "311.30.42.30.01.005")), "Omega 311.30.42.30.01.005")
	assert.Empty(t, estimatePrompt(listings.Identity{Class: listings.ClassLuxury}))

	lux := listings.Identity{Class: listings.ClassLuxury, Brand: "Gucci", Title: "Gucci Marmont bag"}
	assert.Contains(t, estimatePrompt(lux), "Gucci Marmont bag")
}

func TestParseDollar(t *testing.T) {
	assert.Equal(t, 1234.56, parseDollar("$1,234.56"))
	assert.Equal(t, 99.0, parseDollar("around 99 dollars"))
	assert.Zero(t, parseDollar("no idea"))
	assert.Equal(t, 500.0, parseDollar("line one has nothing\n$500"))
}
