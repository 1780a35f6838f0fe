// Package spreadscan discovers price arbitrage for the same physical
// item across marketplaces. A Scanner fans a query out to every
// configured source, normalizes and cross-matches the listings, resolves
// an independent reference value per item through an ordered provider
// chain, and reports the cost spread on each listing.
package spreadscan

import (
	"context"
	"fmt"

	"github.com/spreadscan/spreadscan/internal/config"
	"github.com/spreadscan/spreadscan/internal/dispatch"
	"github.com/spreadscan/spreadscan/internal/quota"
	"github.com/spreadscan/spreadscan/internal/sources"
	"github.com/spreadscan/spreadscan/internal/sources/registry"
	"github.com/spreadscan/spreadscan/internal/transport"
	"github.com/spreadscan/spreadscan/pkg/arbitrage"
	"github.com/spreadscan/spreadscan/pkg/errors"
	"github.com/spreadscan/spreadscan/pkg/listings"
	"github.com/spreadscan/spreadscan/pkg/logging"
	"github.com/spreadscan/spreadscan/pkg/match"
	"github.com/spreadscan/spreadscan/pkg/refprice"
)

// Scanner runs arbitrage scans against the configured sources.
type Scanner interface {
	// Scan executes one query end to end and returns the session with
	// listings, cross-platform matches, and evaluated opportunities.
	Scan(ctx context.Context, req Request) (*arbitrage.Session, error)

	// Quota returns the current per-source quota states.
	Quota() []listings.QuotaState
}

// Request describes one scan.
type Request struct {
	Query        string
	Class        listings.ItemClass
	MaxResults   int
	TaxRate      float64
	MinSpreadPct float64
	MinPrice     float64
	MaxPrice     float64
}

// scanner is the internal implementation of the Scanner interface.
type scanner struct {
	config     *scanConfig
	registry   *registry.Registry
	guard      *quota.Guard
	dispatcher *dispatch.Dispatcher
	engine     *match.Engine
	chains     map[listings.ItemClass]*refprice.Chain
}

// New creates a Scanner with the given options. Sources whose
// credentials are missing are skipped with a warning; construction only
// fails when the source catalog itself is unusable.
func New(opts ...Option) (Scanner, error) {
	s := &scanner{config: defaultScanConfig()}
	if err := s.options(opts...); err != nil {
		return nil, fmt.Errorf("applying options: %w", err)
	}

	if s.guard == nil {
		s.guard = quota.New(quota.WithStore(quota.NewFileStore(s.config.quotaPath)))
	}

	if s.registry == nil {
		reg, err := registry.New(append(s.config.registryOpts,
			registry.WithNotifier(s.guard))...)
		if err != nil {
			return nil, fmt.Errorf("building source registry: %w", err)
		}
		s.registry = reg
	}

	s.dispatcher = dispatch.New(dispatch.WithRateFunc(func(src listings.Source) float64 {
		if cfg, ok := s.registry.Config(src); ok {
			return cfg.RateLimit
		}
		return 0
	}))

	s.engine = match.New(s.config.matchConfig)
	s.chains = s.config.chains
	if s.chains == nil {
		s.chains = defaultChains(s.registry)
	}

	return s, nil
}

// Scan implements the Scanner interface.
func (s *scanner) Scan(ctx context.Context, req Request) (*arbitrage.Session, error) {
	if req.Query == "" {
		return nil, &errors.ValidationError{Field: "query", Message: "query is required"}
	}
	if _, err := listings.ParseItemClass(string(req.Class)); err != nil {
		return nil, err
	}

	adapters := s.registry.Searchers(req.Class)
	if len(adapters) == 0 {
		return nil, &errors.AuthenticationError{
			Source:  "registry",
			Method:  "api_key",
			Message: "no sources configured for class " + string(req.Class),
			Err:     errors.ErrAPIKeyRequired,
		}
	}

	log := logging.FromContext(ctx)
	session := arbitrage.NewSession(req.Query, req.Class)

	found, err := s.dispatcher.Search(ctx, adapters, sources.Query{
		Text:     req.Query,
		Class:    req.Class,
		Limit:    req.MaxResults,
		MinPrice: req.MinPrice,
		MaxPrice: req.MaxPrice,
	})
	if err != nil {
		return session, err
	}
	session.AddListings(found...)

	session.SetMatches(s.engine.MatchAll(req.Class, session.Listings))
	log.Info().
		Str("query", req.Query).
		Int("listings", len(session.Listings)).
		Int("matches", len(session.Matches)).
		Msg("sources joined")

	refs := s.resolveAll(ctx, req.Class, session.Listings)

	taxRate := req.TaxRate
	if taxRate == 0 {
		taxRate = s.config.taxRate
	}
	calc := arbitrage.NewCalculator(taxRate, req.MinSpreadPct)
	best, haveBest := match.CheapestPlatform(session.Listings)

	for _, l := range session.Listings {
		opp := calc.Evaluate(l, refs[l.Identity(req.Class).Key()])
		if haveBest {
			opp.BestPlatform = best
		}
		session.AddResult(opp)
	}
	session.Sort()

	stats := session.Stats()
	log.Info().
		Int("evaluated", stats.Count).
		Int("arbitrage", stats.ArbitrageCount).
		Float64("potential_profit", stats.TotalPotentialProfit).
		Msg("scan complete")
	return session, ctx.Err()
}

// resolveAll values every distinct identity behind the listings
// concurrently and returns the results keyed by identity.
func (s *scanner) resolveAll(ctx context.Context, class listings.ItemClass, all []listings.Listing) map[string]*listings.ReferencePrice {
	chain := s.chains[class]
	if chain == nil {
		return nil
	}

	seen := make(map[string]bool)
	var ids []listings.Identity
	for _, l := range all {
		id := l.Identity(class)
		if id.IsZero() || seen[id.Key()] {
			continue
		}
		seen[id.Key()] = true
		ids = append(ids, id)
	}

	refs := make(map[string]*listings.ReferencePrice, len(ids))
	for _, res := range s.dispatcher.Resolve(ctx, ids, chain.Resolve) {
		if res.Price != nil {
			refs[res.Key] = res.Price
		}
	}
	return refs
}

// Quota implements the Scanner interface.
func (s *scanner) Quota() []listings.QuotaState {
	return s.guard.States()
}

// defaultChains wires the per-class provider chains from whatever the
// registry could construct. Chain order is the resolution policy:
// structured sources first, the LLM estimate always last.
func defaultChains(reg *registry.Registry) map[listings.ItemClass]*refprice.Chain {
	scrape := transport.New(listings.SourcePSA, &transport.NoAuth{}, "")

	var llm refprice.Provider
	if key := config.GetString("GEMINI_API_KEY"); key != "" {
		p, err := refprice.NewLLMProvider(context.Background(), key)
		if err == nil {
			llm = p
		} else {
			logging.Default().Warn().Err(err).Msg("llm provider unavailable")
		}
	}

	add := func(providers []refprice.Provider, p refprice.Provider) []refprice.Provider {
		if p != nil {
			return append(providers, p)
		}
		return providers
	}

	cards := []refprice.Provider{
		refprice.NewListingPageProvider(scrape),
		refprice.NewCertPageProvider(scrape, ""),
	}
	cards = add(cards, llm)

	var watches []refprice.Provider
	if reg.Ebay != nil {
		watches = append(watches, refprice.NewSoldListingsProvider(reg.Ebay))
	}
	if reg.WatchIndex != nil {
		watches = append(watches, refprice.FromFetcher("price_index", reg.WatchIndex))
	}
	if reg.WatchIndexAPI != nil {
		watches = append(watches, refprice.FromFetcher("price_index_api", reg.WatchIndexAPI))
	}
	watches = add(watches, llm)

	var luxury []refprice.Provider
	if reg.Ebay != nil {
		luxury = append(luxury, refprice.NewSoldListingsProvider(reg.Ebay))
	}
	luxury = add(luxury, llm)

	return map[listings.ItemClass]*refprice.Chain{
		listings.ClassTradingCard: refprice.NewChain(cards...),
		listings.ClassWatch:       refprice.NewChain(watches...),
		listings.ClassLuxury:      refprice.NewChain(luxury...),
	}
}
