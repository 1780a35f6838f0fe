package arbitrage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spreadscan/spreadscan/pkg/listings"
)

func TestSessionSortAndStats(t *testing.T) {
	c := NewCalculator(0.09, 0)
	s := NewSession("blue-eyes", listings.ClassTradingCard)

	cheap := listings.Listing{Source: listings.SourceEbay, ExternalID: "1", Price: 400, Shipping: 5}
	rich := listings.Listing{Source: listings.SourceFacebook, ExternalID: "2", Price: 100, Shipping: 5}
	dud := listings.Listing{Source: listings.SourceAmazon, ExternalID: "3", Price: 900, Shipping: 0}

	s.AddListings(cheap, rich, dud)
	s.AddResult(c.Evaluate(cheap, refPrice(650))) // modest spread
	s.AddResult(c.Evaluate(rich, refPrice(650)))  // huge spread
	s.AddResult(c.Evaluate(dud, nil))             // unpriced
	s.Sort()

	assert.Equal(t, "2", s.Results[0].Listing.ExternalID, "largest spread pct first")
	assert.Equal(t, "1", s.Results[1].Listing.ExternalID)
	assert.Equal(t, "3", s.Results[2].Listing.ExternalID, "unpriced listings sort last")

	st := s.Stats()
	assert.Equal(t, 3, st.Count)
	assert.Equal(t, 2, st.ArbitrageCount)
	assert.Equal(t, 2, st.WithReferencePrice)
	assert.Greater(t, st.TotalPotentialProfit, 0.0)
}
