package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spreadscan/spreadscan/pkg/listings"
)

func card(source listings.Source, title, cert string, price float64) listings.Listing {
	l := listings.Listing{
		Source:   source,
		Title:    title,
		Price:    price,
		Currency: "USD",
	}
	if cert != "" {
		l.Attributes = map[string]string{listings.AttrCertNumber: cert}
	}
	return l
}

func TestExactCertMatchIsAuthoritative(t *testing.T) {
	e := NewDefault()
	a := card(listings.SourceEbay, "Blue-Eyes White Dragon PSA 10", "12345678", 500)
	// Wildly different price and title: the cert still wins outright.
	b := card(listings.SourceFacebook, "BEWD graded", "12345678", 50)

	c := e.Pair(listings.ClassTradingCard, a, b)
	require.NotNil(t, c)
	assert.Equal(t, 1.0, c.Confidence)
	assert.Contains(t, c.Reason, "exact identity match")
}

func TestBlueEyesScenario(t *testing.T) {
	e := NewDefault()
	a := card(listings.SourceEbay, "Blue-Eyes White Dragon PSA 10", "12345678", 500)
	b := card(listings.SourceFacebook, "Blue-Eyes White Dragon PSA 10", "12345678", 480)

	cands := e.MatchAll(listings.ClassTradingCard, []listings.Listing{a, b})
	require.Len(t, cands, 1)
	assert.Equal(t, 1.0, cands[0].Confidence)
}

func TestSameSourcePairsNeverMatch(t *testing.T) {
	e := NewDefault()
	a := card(listings.SourceEbay, "Blue-Eyes White Dragon PSA 10", "12345678", 500)
	b := card(listings.SourceEbay, "Blue-Eyes White Dragon PSA 10", "12345678", 480)

	assert.Nil(t, e.Pair(listings.ClassTradingCard, a, b))
	assert.Empty(t, e.MatchAll(listings.ClassTradingCard, []listings.Listing{a, b}))
}

func TestWeightedCardScoring(t *testing.T) {
	e := NewDefault()
	a := card(listings.SourceEbay, "Charizard Base Set PSA 10 1st Edition Holo", "", 900)
	b := card(listings.SourceFacebook, "Charizard Base Set PSA 10 1st Edition Holo", "", 920)

	c := e.Pair(listings.ClassTradingCard, a, b)
	require.NotNil(t, c)
	// Identical titles: similarity 1.0, overlap 1.0, all three bonuses.
	assert.InDelta(t, 1.0, c.Confidence, 1e-9)
	assert.GreaterOrEqual(t, c.Confidence, 0.0)
	assert.LessOrEqual(t, c.Confidence, 1.0)
}

func TestPriceDivergencePenalty(t *testing.T) {
	e := NewDefault()
	a := card(listings.SourceEbay, "Charizard Base Set PSA 10 1st Edition Holo", "", 1000)
	b := card(listings.SourceFacebook, "Charizard Base Set PSA 10 1st Edition Holo", "", 100)

	// Identical titles would score 1.0 but the 10x price gap halves it,
	// landing below the 0.6 threshold times two... still 0.5 < 0.6.
	c := e.Pair(listings.ClassTradingCard, a, b)
	assert.Nil(t, c)
}

func TestSubThresholdCardsNotEmitted(t *testing.T) {
	e := NewDefault()
	a := card(listings.SourceEbay, "Charizard Base Set PSA 10", "", 900)
	b := card(listings.SourceFacebook, "Dark Magician BGS 9.5 2002", "", 890)

	cands := e.MatchAll(listings.ClassTradingCard, []listings.Listing{a, b})
	for _, c := range cands {
		assert.GreaterOrEqual(t, c.Confidence, 0.6)
	}
	assert.Empty(t, cands, "dissimilar cards should not pair")
}

func TestConfidenceAlwaysInRange(t *testing.T) {
	e := NewDefault()
	titles := []string{
		"Blue-Eyes White Dragon PSA 10 1st Edition",
		"Blue Eyes White Dragon LOB-001 PSA 10",
		"Charizard Base Set Shadowless PSA 9",
		"Pikachu Illustrator",
		"",
	}
	var all []listings.Listing
	sources := []listings.Source{listings.SourceEbay, listings.SourceFacebook, listings.SourceAmazon}
	for i, title := range titles {
		all = append(all, card(sources[i%len(sources)], title, "", float64(100+i*50)))
	}

	for _, class := range []listings.ItemClass{listings.ClassTradingCard, listings.ClassLuxury} {
		for _, c := range e.MatchAll(class, all) {
			assert.GreaterOrEqual(t, c.Confidence, 0.0)
			assert.LessOrEqual(t, c.Confidence, 1.0)
		}
	}
}

func TestLuxuryBrandRequired(t *testing.T) {
	e := NewDefault()
	a := listings.Listing{Source: listings.SourceEbay, Title: "Leather handbag, barely used", Price: 200}
	counterparts := []listings.Listing{
		{Source: listings.SourceFacebook, Title: "Gucci Marmont bag", Price: 210, Attributes: map[string]string{listings.AttrBrand: "Gucci"}},
		{Source: listings.SourceFacebook, Title: "Tote bag black leather", Price: 190},
		{Source: listings.SourceAmazon, Title: "Prada nylon tote", Price: 230},
	}

	// No brand metadata and no known brand string in the title: no
	// candidates against any counterpart.
	for _, b := range counterparts {
		assert.Nil(t, e.Pair(listings.ClassLuxury, a, b))
	}
}

func TestLuxuryBrandMismatchRejected(t *testing.T) {
	e := NewDefault()
	a := listings.Listing{Source: listings.SourceEbay, Title: "Gucci Marmont shoulder bag", Price: 800}
	b := listings.Listing{Source: listings.SourceFacebook, Title: "Prada Marmont shoulder bag", Price: 800}

	assert.Nil(t, e.Pair(listings.ClassLuxury, a, b))
}

func TestLuxurySizeScoring(t *testing.T) {
	e := NewDefault()
	a := listings.Listing{Source: listings.SourceEbay, Title: "Gucci Ace Sneakers size 9 new", Price: 400}
	b := listings.Listing{Source: listings.SourceFacebook, Title: "Gucci Ace Sneakers size 9 new", Price: 410}

	c := e.Pair(listings.ClassLuxury, a, b)
	require.NotNil(t, c)
	// 0.4 + 0.3 + size bonus 0.2 + condition bonus 0.1, clamped.
	assert.InDelta(t, 1.0, c.Confidence, 1e-9)

	// Remove the size from one side: bonus becomes a penalty, and the
	// score drops accordingly.
	b2 := listings.Listing{Source: listings.SourceFacebook, Title: "Gucci Ace Sneakers new", Price: 410}
	c2 := e.Pair(listings.ClassLuxury, a, b2)
	if c2 != nil {
		assert.Less(t, c2.Confidence, c.Confidence)
	}
}

func TestWatchExactIdentity(t *testing.T) {
	e := NewDefault()
	a := listings.Listing{
		Source: listings.SourceEbay, Title: "Rolex Submariner Date 116610LN", Price: 9000,
		Attributes: map[string]string{listings.AttrBrand: "Rolex", listings.AttrModelNumber: "116610LN"},
	}
	b := listings.Listing{
		Source: listings.SourceFacebook, Title: "Rolex Sub 116610LN full set", Price: 8600,
		Attributes: map[string]string{listings.AttrBrand: "Rolex", listings.AttrModelNumber: "116610LN"},
	}

	c := e.Pair(listings.ClassWatch, a, b)
	require.NotNil(t, c)
	assert.Equal(t, 1.0, c.Confidence)

	b.Attributes[listings.AttrModelNumber] = "126610LN"
	assert.Nil(t, e.Pair(listings.ClassWatch, a, b))
}

func TestMatchAllSortsByConfidence(t *testing.T) {
	e := NewDefault()
	exact1 := card(listings.SourceEbay, "Blue-Eyes White Dragon PSA 10", "11111111", 500)
	exact2 := card(listings.SourceFacebook, "Blue-Eyes White Dragon PSA 10", "11111111", 490)
	fuzzy1 := card(listings.SourceEbay, "Dark Magician PSA 9 1st Edition", "", 300)
	fuzzy2 := card(listings.SourceAmazon, "Dark Magician 1st Edition PSA 9 holo", "", 310)

	cands := e.MatchAll(listings.ClassTradingCard, []listings.Listing{exact1, exact2, fuzzy1, fuzzy2})
	require.NotEmpty(t, cands)
	for i := 1; i < len(cands); i++ {
		assert.GreaterOrEqual(t, cands[i-1].Confidence, cands[i].Confidence)
	}
	assert.Equal(t, 1.0, cands[0].Confidence)
}

func TestCheapestPlatform(t *testing.T) {
	all := []listings.Listing{
		{Source: listings.SourceAmazon, Price: 100, Shipping: 0},
		{Source: listings.SourceEbay, Price: 95, Shipping: 5},
		{Source: listings.SourceFacebook, Price: 90, Shipping: 15},
	}

	// Amazon and eBay tie at 100; eBay wins on priority order.
	best, ok := CheapestPlatform(all)
	require.True(t, ok)
	assert.Equal(t, listings.SourceEbay, best)

	_, ok = CheapestPlatform(nil)
	assert.False(t, ok)
}
