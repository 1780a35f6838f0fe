// Package refprice resolves independent reference valuations for
// matched items through ordered provider chains. Each item class has
// its own chain; the first provider returning a positive figure wins
// and later providers are never consulted.
package refprice

import (
	"context"

	"github.com/spreadscan/spreadscan/pkg/listings"
	"github.com/spreadscan/spreadscan/pkg/logging"
)

// Provider values one identity. A provider that has no figure returns
// (nil, nil); errors are treated the same way by the chain but logged.
type Provider interface {
	// Name identifies the provider in logs and SourceMethod fields.
	Name() string

	// Resolve values the identity or reports it cannot.
	Resolve(ctx context.Context, id listings.Identity) (*listings.ReferencePrice, error)
}

// Chain tries providers in order and short-circuits on the first
// positive value. Order is data: construct a chain per item class.
type Chain struct {
	providers []Provider
}

// NewChain creates a chain over the given providers, tried in order.
func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers}
}

// Resolve walks the chain. A provider error or empty result moves on to
// the next provider; an exhausted chain yields nil. Context
// cancellation stops new attempts.
func (c *Chain) Resolve(ctx context.Context, id listings.Identity) *listings.ReferencePrice {
	if id.IsZero() {
		return nil
	}

	log := logging.FromContext(ctx)
	for _, p := range c.providers {
		if ctx.Err() != nil {
			return nil
		}

		ref, err := p.Resolve(ctx, id)
		if err != nil {
			log.Debug().
				Str("provider", p.Name()).
				Str("identity", id.Key()).
				Err(err).
				Msg("provider failed, trying next")
			continue
		}
		if ref.Resolved() {
			log.Debug().
				Str("provider", p.Name()).
				Str("identity", id.Key()).
				Float64("value", *ref.Value).
				Msg("reference price resolved")
			return ref
		}
	}

	log.Debug().
		Str("identity", id.Key()).
		Msg("no provider produced a reference price")
	return nil
}

// Providers returns the chain's providers in resolution order.
func (c *Chain) Providers() []Provider {
	out := make([]Provider, len(c.providers))
	copy(out, c.providers)
	return out
}
