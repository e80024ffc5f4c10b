package recommend

import (
	"math"
	"sort"

	"github.com/signalrank/signalrank/internal/domain/record"
	"github.com/signalrank/signalrank/internal/domain/search/result"
	"github.com/signalrank/signalrank/internal/domain/search/term"
	"github.com/signalrank/signalrank/internal/domain/signal"
)

// rank scores candidates against the active terms with a fuzzy
// OR-integral: every matching resolved value folds its term probability in
// as rank = sqrt(p² + rank²), so corroborating evidence compounds
// Euclideanly instead of summing.
//
// The result is stable-sorted descending and truncated at the first
// zero-rank entry and at size, whichever comes first. size <= 0 lifts the
// count limit; zero-rank candidates are never returned.
func (s *Service) rank(
	items []record.Record, terms []term.Term, size int, dropRank bool,
) []result.Candidate {
	candidates := make([]result.Candidate, 0, len(items))
	for _, rec := range items {
		rank := 0.0
		for _, t := range terms {
			for _, value := range s.resolver.Values(rec, t.Field(), s.cfg.NullLiteral) {
				if s.compareForm(value) == t.Value() {
					rank = math.Hypot(t.Probability(), rank)
				}
			}
		}
		candidates = append(candidates, result.New(rec).WithRank(rank))
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Rank() > candidates[j].Rank()
	})

	if size > 0 && len(candidates) > size {
		candidates = candidates[:size]
	}
	for i, c := range candidates {
		if c.Rank() == 0 {
			candidates = candidates[:i]
			break
		}
	}

	if dropRank {
		for i := range candidates {
			candidates[i] = candidates[i].WithoutRank()
		}
	}
	return candidates
}

// compareForm renders a resolved value into the shape terms compare
// against: the salted digest when hashing is enabled, the raw canonical
// string otherwise. Plaintext never meets the service-provided value when
// hashing is on.
func (s *Service) compareForm(value any) string {
	if s.cfg.HashFields {
		return signal.Digest(value, s.cfg.Salt)
	}
	return signal.Canonical(value)
}
