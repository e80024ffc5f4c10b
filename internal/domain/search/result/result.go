// Package result carries ranked candidates through one engine call.
package result

import "github.com/signalrank/signalrank/internal/domain/record"

// Candidate is a store record plus the transient rank attached during
// scoring. The rank is owned by the ranking step for the duration of one
// call; it is never persisted.
type Candidate struct {
	rec    record.Record
	rank   float64
	ranked bool
}

// New wraps a record into an unranked candidate.
func New(rec record.Record) Candidate {
	return Candidate{rec: rec}
}

// Record returns the underlying store record.
func (c Candidate) Record() record.Record { return c.rec }

// Key returns the record identity used to merge rankings.
func (c Candidate) Key() string { return c.rec.Key() }

// Rank returns the computed rank, 0 when unranked.
func (c Candidate) Rank() float64 { return c.rank }

// Ranked reports whether the rank field is attached.
func (c Candidate) Ranked() bool { return c.ranked }

// WithRank returns a copy carrying the given rank.
func (c Candidate) WithRank(rank float64) Candidate {
	return Candidate{rec: c.rec, rank: rank, ranked: true}
}

// WithoutRank returns a copy with the transient rank stripped.
func (c Candidate) WithoutRank() Candidate {
	return Candidate{rec: c.rec}
}

// Set is a per-label mapping of ranked candidates, descending by rank.
type Set map[string][]Candidate

// Flat returns the single label's candidates when exactly one label is
// present, otherwise nil. Ergonomic convenience for single-label calls.
func (s Set) Flat() []Candidate {
	if len(s) != 1 {
		return nil
	}
	for _, candidates := range s {
		return candidates
	}
	return nil
}
