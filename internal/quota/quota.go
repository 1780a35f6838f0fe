// Package quota tracks per-source API usage against free-tier limits.
//
// The guard is advisory: it counts calls, persists a rolling request
// log, and warns when a source approaches its limit, but it never
// blocks a request on its own. Callers that want hard enforcement
// check the guard through a Policy before dispatching work.
package quota

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/spreadscan/spreadscan/pkg/constants"
	"github.com/spreadscan/spreadscan/pkg/errors"
	"github.com/spreadscan/spreadscan/pkg/listings"
	"github.com/spreadscan/spreadscan/pkg/logging"
)

// Request is one entry in the rolling usage log.
type Request struct {
	Timestamp time.Time       `json:"timestamp"`
	Source    listings.Source `json:"source"`
	Query     string          `json:"query,omitempty"`
}

// Guard tracks usage counts for metered sources. Safe for concurrent
// use; it is shared by every transport client in a scan.
type Guard struct {
	mu            sync.Mutex
	states        map[listings.Source]*listings.QuotaState
	requests      []Request
	totalRequests int

	limit         int
	warnThreshold int
	window        time.Duration
	store         Store
	logger        *zerolog.Logger
	now           func() time.Time
}

// Option configures a Guard.
type Option func(*Guard)

// WithLimit overrides the per-source window limit.
func WithLimit(n int) Option {
	return func(g *Guard) { g.limit = n }
}

// WithWarnThreshold overrides the remaining-call count at which the
// guard starts warning.
func WithWarnThreshold(n int) Option {
	return func(g *Guard) { g.warnThreshold = n }
}

// WithWindow overrides the usage window duration.
func WithWindow(d time.Duration) Option {
	return func(g *Guard) { g.window = d }
}

// WithStore sets the persistence backend.
func WithStore(s Store) Option {
	return func(g *Guard) { g.store = s }
}

// WithLogger sets the guard's logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(g *Guard) { g.logger = logger }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

// New creates a Guard, loading any previously persisted usage.
func New(opts ...Option) *Guard {
	g := &Guard{
		states:        make(map[listings.Source]*listings.QuotaState),
		limit:         constants.DefaultQuotaLimit,
		warnThreshold: constants.DefaultQuotaWarnThreshold,
		window:        constants.QuotaWindow,
		logger:        logging.Default(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.store != nil {
		if err := g.load(); err != nil {
			g.logger.Warn().Err(err).Msg("could not load quota usage, starting fresh")
		}
	}
	return g
}

// RecordCall implements the transport notifier hook. It counts one
// call against the source's window and warns when the source is
// running low.
func (g *Guard) RecordCall(source listings.Source) {
	g.Record(source, "")
}

// Record counts one call against the source's window, tagging the
// usage log entry with the query that triggered it.
func (g *Guard) Record(source listings.Source, query string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	state := g.state(source)
	state.Count++
	g.totalRequests++
	g.requests = append(g.requests, Request{
		Timestamp: g.now(),
		Source:    source,
		Query:     query,
	})
	if len(g.requests) > constants.QuotaLogKeep {
		g.requests = g.requests[len(g.requests)-constants.QuotaLogKeep:]
	}

	if remaining := state.Remaining(); remaining <= g.warnThreshold {
		g.logger.Warn().
			Str("source", string(source)).
			Int("count", state.Count).
			Int("limit", state.Limit).
			Int("remaining", remaining).
			Msg("approaching API quota limit")
	}

	g.persist()
}

// RateLimited implements the transport notifier hook for 429 responses.
func (g *Guard) RateLimited(source listings.Source) {
	g.mu.Lock()
	defer g.mu.Unlock()

	state := g.state(source)
	g.logger.Warn().
		Str("source", string(source)).
		Int("count", state.Count).
		Int("limit", state.Limit).
		Msg("source reported rate limit")
}

// Check applies the policy to the source's current state. The default
// Advisory policy never fails.
func (g *Guard) Check(source listings.Source, policy Policy) error {
	if policy == nil {
		policy = Advisory{}
	}
	return policy.Allow(g.State(source))
}

// State returns a snapshot of the source's quota state.
func (g *Guard) State(source listings.Source) listings.QuotaState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return *g.state(source)
}

// States returns snapshots for every tracked source.
func (g *Guard) States() []listings.QuotaState {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]listings.QuotaState, 0, len(g.states))
	for _, state := range g.states {
		out = append(out, *state)
	}
	return out
}

// TotalRequests returns the all-time call count across sources.
func (g *Guard) TotalRequests() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.totalRequests
}

// Requests returns a copy of the rolling usage log, newest last.
func (g *Guard) Requests() []Request {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]Request, len(g.requests))
	copy(out, g.requests)
	return out
}

// state returns the live state for a source, resetting the window when
// it has lapsed. Callers must hold the mutex.
func (g *Guard) state(source listings.Source) *listings.QuotaState {
	now := g.now()
	state, ok := g.states[source]
	if !ok {
		state = &listings.QuotaState{
			SourceID:    source,
			WindowStart: now,
			Limit:       g.limit,
		}
		g.states[source] = state
	}
	if now.Sub(state.WindowStart) > g.window {
		state.Count = 0
		state.WindowStart = now
	}
	return state
}

func (g *Guard) load() error {
	usage, err := g.store.Load()
	if err != nil {
		return err
	}
	if usage == nil {
		return nil
	}
	for i := range usage.Sources {
		state := usage.Sources[i]
		g.states[state.SourceID] = &state
	}
	g.requests = usage.Requests
	g.totalRequests = usage.TotalRequests
	return nil
}

// persist writes current usage through the store. Persistence errors
// are logged, never surfaced; losing the log is better than losing the
// scan. Callers must hold the mutex.
func (g *Guard) persist() {
	if g.store == nil {
		return
	}

	usage := &Usage{
		TotalRequests: g.totalRequests,
		Requests:      g.requests,
		Sources:       make([]listings.QuotaState, 0, len(g.states)),
	}
	for _, state := range g.states {
		usage.Sources = append(usage.Sources, *state)
	}
	if err := g.store.Save(usage); err != nil {
		g.logger.Warn().Err(err).Msg("could not persist quota usage")
	}
}

// Policy decides whether a source may be called given its quota state.
type Policy interface {
	Allow(state listings.QuotaState) error
}

// Advisory allows every call. Warnings still come from the guard.
type Advisory struct{}

// Allow implements the Policy interface for Advisory.
func (Advisory) Allow(listings.QuotaState) error { return nil }

// HardLimit refuses calls once the window limit is exhausted.
type HardLimit struct{}

// Allow implements the Policy interface for HardLimit.
func (HardLimit) Allow(state listings.QuotaState) error {
	if state.Limit > 0 && state.Count >= state.Limit {
		return &errors.QuotaError{
			Source:    string(state.SourceID),
			Count:     state.Count,
			Limit:     state.Limit,
			Remaining: state.Remaining(),
		}
	}
	return nil
}
