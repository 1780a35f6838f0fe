// Package dispatch fans a scan out across source adapters and joins
// the results. A failing source contributes zero listings and a log
// line, never an aborted scan; only context cancellation stops work
// early.
package dispatch

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/spreadscan/spreadscan/internal/sources"
	"github.com/spreadscan/spreadscan/pkg/constants"
	"github.com/spreadscan/spreadscan/pkg/errors"
	"github.com/spreadscan/spreadscan/pkg/listings"
	"github.com/spreadscan/spreadscan/pkg/logging"
)

// Dispatcher runs searches across adapters with per-source rate
// limiting.
type Dispatcher struct {
	mu       sync.Mutex
	limiters map[listings.Source]*rate.Limiter

	// rateFor reports the per-second budget for a source. Nil means
	// the default for every source.
	rateFor func(listings.Source) float64
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRateFunc sets the per-source rate lookup, typically backed by the
// source catalog.
func WithRateFunc(f func(listings.Source) float64) Option {
	return func(d *Dispatcher) { d.rateFor = f }
}

// New creates a Dispatcher.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{limiters: make(map[listings.Source]*rate.Limiter)}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// result carries one adapter's outcome to the join.
type result struct {
	source   listings.Source
	listings []listings.Listing
	err      error
}

// Search runs the query against every adapter concurrently and joins
// the results. Adapter errors are logged and dropped; the returned
// error is non-nil only when the context was cancelled before the join
// completed.
func (d *Dispatcher) Search(ctx context.Context, adapters []sources.Searcher, q sources.Query) ([]listings.Listing, error) {
	if len(adapters) == 0 {
		return nil, nil
	}

	log := logging.FromContext(ctx)
	results := make(chan result, len(adapters))

	var wg sync.WaitGroup
	for _, adapter := range adapters {
		wg.Add(1)
		go func(a sources.Searcher) {
			defer wg.Done()

			if err := d.limiter(a.Source()).Wait(ctx); err != nil {
				results <- result{source: a.Source(), err: errors.ErrCanceled}
				return
			}
			found, err := a.SearchListings(ctx, q)
			results <- result{source: a.Source(), listings: found, err: err}
		}(adapter)
	}
	wg.Wait()
	close(results)

	var all []listings.Listing
	for r := range results {
		if r.err != nil {
			if errors.IsCanceled(r.err) {
				continue
			}
			log.Warn().
				Str("source", string(r.source)).
				Err(r.err).
				Msg("source search failed, continuing without it")
			continue
		}
		log.Debug().
			Str("source", string(r.source)).
			Int("count", len(r.listings)).
			Msg("source search complete")
		all = append(all, r.listings...)
	}

	if err := ctx.Err(); err != nil {
		return all, errors.ErrCanceled
	}
	return all, nil
}

// Resolution is one identity's resolved reference price.
type Resolution struct {
	Key   string
	Price *listings.ReferencePrice
}

// ResolveFunc values one identity.
type ResolveFunc func(ctx context.Context, id listings.Identity) *listings.ReferencePrice

// Resolve values independent identities concurrently through a bounded
// worker pool, preserving no particular order. Cancellation stops new
// work; in-flight lookups finish.
func (d *Dispatcher) Resolve(ctx context.Context, ids []listings.Identity, fn ResolveFunc) []Resolution {
	if len(ids) == 0 {
		return nil
	}

	workers := constants.MaxConcurrentResolutions
	if len(ids) < workers {
		workers = len(ids)
	}

	tasks := make(chan listings.Identity)
	out := make(chan Resolution, len(ids))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range tasks {
				out <- Resolution{Key: id.Key(), Price: fn(ctx, id)}
			}
		}()
	}

feed:
	for _, id := range ids {
		select {
		case tasks <- id:
		case <-ctx.Done():
			break feed
		}
	}
	close(tasks)
	wg.Wait()
	close(out)

	resolutions := make([]Resolution, 0, len(ids))
	for r := range out {
		resolutions = append(resolutions, r)
	}
	return resolutions
}

// limiter returns the source's rate limiter, creating it on first use.
func (d *Dispatcher) limiter(source listings.Source) *rate.Limiter {
	d.mu.Lock()
	defer d.mu.Unlock()

	if l, ok := d.limiters[source]; ok {
		return l
	}

	rps := 0.0
	if d.rateFor != nil {
		rps = d.rateFor(source)
	}
	if rps <= 0 {
		rps = constants.DefaultSourceRateLimit
	}
	l := rate.NewLimiter(rate.Limit(rps), 1)
	d.limiters[source] = l
	return l
}
