package dispatch

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spreadscan/spreadscan/internal/sources"
	"github.com/spreadscan/spreadscan/pkg/constants"
	"github.com/spreadscan/spreadscan/pkg/errors"
	"github.com/spreadscan/spreadscan/pkg/listings"
)

type fakeSearcher struct {
	source listings.Source
	found  []listings.Listing
	err    error
	calls  atomic.Int32
}

func (f *fakeSearcher) Source() listings.Source { return f.source }

func (f *fakeSearcher) SearchListings(_ context.Context, _ sources.Query) ([]listings.Listing, error) {
	f.calls.Add(1)
	return f.found, f.err
}

func TestSearchJoinsAllSources(t *testing.T) {
	ebay := &fakeSearcher{
		source: listings.SourceEbay,
		found: []listings.Listing{
			{Source: listings.SourceEbay, Title: "a", Price: 10},
			{Source: listings.SourceEbay, Title: "b", Price: 20},
		},
	}
	fb := &fakeSearcher{
		source: listings.SourceFacebook,
		found:  []listings.Listing{{Source: listings.SourceFacebook, Title: "c", Price: 30}},
	}

	d := New()
	got, err := d.Search(t.Context(), []sources.Searcher{ebay, fb}, sources.Query{Text: "q"})
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, int32(1), ebay.calls.Load())
	assert.Equal(t, int32(1), fb.calls.Load())
}

func TestSearchFailingSourceContributesNothing(t *testing.T) {
	ok := &fakeSearcher{
		source: listings.SourceEbay,
		found:  []listings.Listing{{Source: listings.SourceEbay, Title: "a"}},
	}
	broken := &fakeSearcher{
		source: listings.SourceFacebook,
		err:    errors.ErrSourceUnavailable,
	}

	d := New()
	got, err := d.Search(t.Context(), []sources.Searcher{ok, broken}, sources.Query{Text: "q"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, listings.SourceEbay, got[0].Source)
}

func TestSearchCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	slow := &fakeSearcher{source: listings.SourceEbay}
	d := New()
	_, err := d.Search(ctx, []sources.Searcher{slow}, sources.Query{Text: "q"})
	assert.ErrorIs(t, err, errors.ErrCanceled)
}

func TestSearchNoAdapters(t *testing.T) {
	d := New()
	got, err := d.Search(t.Context(), nil, sources.Query{Text: "q"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResolveValuesEveryIdentity(t *testing.T) {
	ids := []listings.Identity{
		{Class: listings.ClassTradingCard, CertNumber: "11111111"},
		{Class: listings.ClassTradingCard, CertNumber: "22222222"},
		{Class: listings.ClassTradingCard, CertNumber: "33333333"},
	}

	var calls atomic.Int32
	d := New()
	got := d.Resolve(t.Context(), ids, func(_ context.Context, id listings.Identity) *listings.ReferencePrice {
		calls.Add(1)
		v := 100.0
		return &listings.ReferencePrice{Value: &v, Identity: id}
	})

	assert.Len(t, got, 3)
	assert.Equal(t, int32(3), calls.Load())

	keys := map[string]bool{}
	for _, r := range got {
		require.NotNil(t, r.Price)
		keys[r.Key] = true
	}
	assert.True(t, keys["cert:11111111"])
	assert.True(t, keys["cert:33333333"])
}

func TestResolveCancelledStopsNewWork(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	ids := make([]listings.Identity, 50)
	for i := range ids {
		ids[i] = listings.Identity{Class: listings.ClassTradingCard, CertNumber: "12345678"}
	}

	var calls atomic.Int32
	d := New()
	d.Resolve(ctx, ids, func(_ context.Context, id listings.Identity) *listings.ReferencePrice {
		calls.Add(1)
		return nil
	})

	// Identities not yet fed to a worker are skipped after cancel.
	assert.Less(t, calls.Load(), int32(50))
}

func TestLimiterUsesCatalogRate(t *testing.T) {
	d := New(WithRateFunc(func(s listings.Source) float64 {
		if s == listings.SourceFacebook {
			return 1
		}
		return 0
	}))

	fb := d.limiter(listings.SourceFacebook)
	assert.InDelta(t, 1.0, float64(fb.Limit()), 1e-9)

	// Same limiter instance on repeat lookups.
	assert.Same(t, fb, d.limiter(listings.SourceFacebook))

	// Unknown sources fall back to the default budget.
	other := d.limiter(listings.SourceEbay)
	assert.InDelta(t, constants.DefaultSourceRateLimit, float64(other.Limit()), 1e-9)
}
