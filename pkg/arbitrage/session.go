package arbitrage

import (
	"sort"

	"github.com/spreadscan/spreadscan/pkg/listings"
)

// Session holds the results of one scan request. It replaces any notion
// of process-global "last results" state: the caller owns the session,
// passes it to report renderers, and throws it away. A session is not
// safe for concurrent mutation; the dispatcher joins all sources before
// results land here.
type Session struct {
	Query    string                          `json:"query"`
	Class    listings.ItemClass              `json:"class"`
	Listings []listings.Listing              `json:"listings"`
	Matches  []listings.MatchCandidate       `json:"matches"`
	Results  []listings.ArbitrageOpportunity `json:"results"`
}

// NewSession creates an empty session for one query.
func NewSession(query string, class listings.ItemClass) *Session {
	return &Session{Query: query, Class: class}
}

// AddListings appends joined source results.
func (s *Session) AddListings(ls ...listings.Listing) {
	s.Listings = append(s.Listings, ls...)
}

// SetMatches stores the cross-platform candidates.
func (s *Session) SetMatches(ms []listings.MatchCandidate) {
	s.Matches = ms
}

// AddResult appends an evaluated opportunity.
func (s *Session) AddResult(opp listings.ArbitrageOpportunity) {
	s.Results = append(s.Results, opp)
}

// Sort orders results for reporting: arbitrage opportunities first, then
// by spread percentage descending.
func (s *Session) Sort() {
	sort.SliceStable(s.Results, func(i, j int) bool {
		a, b := s.Results[i], s.Results[j]
		if a.IsArbitrage != b.IsArbitrage {
			return a.IsArbitrage
		}
		return a.SpreadPct > b.SpreadPct
	})
}

// Stats summarizes a session for reporting.
type Stats struct {
	Count                int     `json:"count"`
	ArbitrageCount       int     `json:"arbitrage_count"`
	WithReferencePrice   int     `json:"with_reference_price"`
	TotalPotentialProfit float64 `json:"total_potential_profit"`
}

// Stats computes summary statistics over the session's results.
func (s *Session) Stats() Stats {
	var st Stats
	st.Count = len(s.Results)
	for _, r := range s.Results {
		if r.ReferencePrice.Resolved() {
			st.WithReferencePrice++
		}
		if r.IsArbitrage && r.Spread != nil {
			st.ArbitrageCount++
			st.TotalPotentialProfit += *r.Spread
		}
	}
	return st
}
