package listings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourcePriority(t *testing.T) {
	assert.Less(t, SourceEbay.Priority(), SourceFacebook.Priority())
	assert.Less(t, SourceFacebook.Priority(), SourceAmazon.Priority())
	assert.Greater(t, SourceWatchIndex.Priority(), SourceAmazon.Priority(), "non-marketplace sources sort last")
}

func TestParseItemClass(t *testing.T) {
	for _, valid := range []string{"trading_card", "luxury", "watch"} {
		got, err := ParseItemClass(valid)
		assert.NoError(t, err)
		assert.Equal(t, ItemClass(valid), got)
	}

	_, err := ParseItemClass("sneakers")
	assert.Error(t, err)
}

func TestListingIdentity(t *testing.T) {
	card := Listing{
		Source: SourceEbay,
		Title:  "Blue-Eyes White Dragon PSA 10",
		URL:    "https://example.com/item/1",
		Attributes: map[string]string{
			AttrCertNumber: "12345678",
		},
	}

	id := card.Identity(ClassTradingCard)
	assert.False(t, id.IsZero())
	assert.Equal(t, "cert:12345678", id.Key())
	assert.Equal(t, "https://example.com/item/1", id.ListingURL)

	bare := Listing{Source: SourceEbay, Title: "some card"}
	assert.True(t, bare.Identity(ClassTradingCard).IsZero())
}

func TestWatchIdentity(t *testing.T) {
	w := Listing{
		Source: SourceEbay,
		Title:  "Rolex Submariner 116610",
		Attributes: map[string]string{
			AttrBrand:       "Rolex",
			AttrModelNumber: "116610",
		},
	}

	id := w.Identity(ClassWatch)
	assert.False(t, id.IsZero())
	assert.Equal(t, "watch:Rolex:116610", id.Key())

	// Brand without model is not a usable watch identity.
	brandOnly := Listing{Attributes: map[string]string{AttrBrand: "Rolex"}}
	assert.True(t, brandOnly.Identity(ClassWatch).IsZero())
}

func TestReferencePriceResolved(t *testing.T) {
	var nilPrice *ReferencePrice
	assert.False(t, nilPrice.Resolved())
	assert.False(t, (&ReferencePrice{}).Resolved())

	zero := 0.0
	assert.False(t, (&ReferencePrice{Value: &zero}).Resolved())

	v := 650.0
	assert.True(t, (&ReferencePrice{Value: &v}).Resolved())
}

func TestQuotaStateRemaining(t *testing.T) {
	assert.Equal(t, 2, QuotaState{Count: 28, Limit: 30}.Remaining())
	assert.Equal(t, 0, QuotaState{Count: 31, Limit: 30}.Remaining())
	assert.Equal(t, 0, QuotaState{Count: 0, Limit: 0}.Remaining())
}

func TestAllIn(t *testing.T) {
	l := Listing{Price: 500, Shipping: 5.99}
	assert.InDelta(t, 505.99, l.AllIn(), 1e-9)
}
