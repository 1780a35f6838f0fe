package refprice

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spreadscan/spreadscan/pkg/listings"
)

// stubProvider counts how often the chain consults it.
type stubProvider struct {
	name  string
	value float64
	err   error
	calls int
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Resolve(_ context.Context, id listings.Identity) (*listings.ReferencePrice, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	if p.value <= 0 {
		return nil, nil
	}
	v := p.value
	return &listings.ReferencePrice{
		Value:        &v,
		Currency:     "USD",
		SourceMethod: p.name,
		Identity:     id,
	}, nil
}

func cardIdentity(cert string) listings.Identity {
	return listings.Identity{Class: listings.ClassTradingCard, CertNumber: cert}
}

func TestChainShortCircuitsOnFirstValue(t *testing.T) {
	first := &stubProvider{name: "first", value: 1250}
	second := &stubProvider{name: "second", value: 900}

	chain := NewChain(first, second)
	ref := chain.Resolve(t.Context(), cardIdentity("12345678"))

	require.True(t, ref.Resolved())
	assert.Equal(t, 1250.0, *ref.Value)
	assert.Equal(t, "first", ref.SourceMethod)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls, "later providers must not be consulted")
}

func TestChainFallsThroughOnEmptyAndError(t *testing.T) {
	empty := &stubProvider{name: "empty"}
	failing := &stubProvider{name: "failing", err: errors.New("upstream down")}
	last := &stubProvider{name: "last", value: 42.50}

	chain := NewChain(empty, failing, last)
	ref := chain.Resolve(t.Context(), cardIdentity("12345678"))

	require.True(t, ref.Resolved())
	assert.Equal(t, 42.50, *ref.Value)
	assert.Equal(t, "last", ref.SourceMethod)
	assert.Equal(t, 1, empty.calls)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, last.calls)
}

func TestChainExhaustedReturnsNil(t *testing.T) {
	a := &stubProvider{name: "a"}
	b := &stubProvider{name: "b", err: errors.New("nope")}

	chain := NewChain(a, b)
	ref := chain.Resolve(t.Context(), cardIdentity("12345678"))

	assert.Nil(t, ref)
	assert.False(t, ref.Resolved())
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
}

func TestChainZeroIdentitySkipsProviders(t *testing.T) {
	p := &stubProvider{name: "p", value: 10}

	chain := NewChain(p)
	ref := chain.Resolve(t.Context(), listings.Identity{Class: listings.ClassTradingCard})

	assert.Nil(t, ref)
	assert.Equal(t, 0, p.calls)
}

func TestChainStopsOnCancellation(t *testing.T) {
	a := &stubProvider{name: "a"}
	b := &stubProvider{name: "b", value: 99}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	chain := NewChain(a, b)
	ref := chain.Resolve(ctx, cardIdentity("12345678"))

	assert.Nil(t, ref)
	assert.Equal(t, 0, a.calls)
	assert.Equal(t, 0, b.calls)
}

func TestChainProvidersPreservesOrder(t *testing.T) {
	a := &stubProvider{name: "a"}
	b := &stubProvider{name: "b"}

	chain := NewChain(a, b)
	providers := chain.Providers()

	require.Len(t, providers, 2)
	assert.Equal(t, "a", providers[0].Name())
	assert.Equal(t, "b", providers[1].Name())
}
