package recommend

import (
	"context"
	"sort"
	"sync"

	"github.com/signalrank/signalrank/internal/domain/record"
	"github.com/signalrank/signalrank/internal/domain/search/result"
	"github.com/signalrank/signalrank/internal/domain/signal"
)

// SearchOptions tunes a search call.
type SearchOptions struct {
	// Labels scope the search; defaults to [signal.LabelSearchConversion].
	Labels []string
	// Geo is an opaque geographical payload.
	Geo *signal.Geo
	// Store overrides the service store for this call.
	Store Store
	// Size bounds each per-token ranking; 0 applies the search default.
	Size int
	// MaxPollingSize caps each store-side fetch; <= 0 means unbounded.
	MaxPollingSize int
	// SkipRank strips the transient rank after aggregation.
	SkipRank bool
	// APIKey overrides the client credential for this call.
	APIKey string
}

// Search tokenizes the query, runs one recommend cycle per token with the
// token as the identifying profile signal, and merges the per-token
// rankings additively by record identity.
func (s *Service) Search(
	ctx context.Context, query string, opts SearchOptions,
) (result.Set, []*signal.Response, error) {
	return s.SearchTokens(ctx, TokenizeQuery(query), opts)
}

// SearchTokens is Search over pre-tokenized input. Token cycles fan out
// concurrently; the merge reduces them in token order once all complete, so
// the aggregation stays deterministic.
func (s *Service) SearchTokens(
	ctx context.Context, tokens []string, opts SearchOptions,
) (result.Set, []*signal.Response, error) {
	labels := opts.Labels
	if len(labels) == 0 {
		labels = []string{signal.LabelSearchConversion}
	}
	size := opts.Size
	if size == 0 {
		size = s.cfg.SearchSize
	}

	sets := make([]result.Set, len(tokens))
	responses := make([]*signal.Response, len(tokens))
	errs := make([]error, len(tokens))

	var wg sync.WaitGroup
	for i, token := range tokens {
		wg.Add(1)
		go func(i int, token string) {
			defer wg.Done()
			sets[i], responses[i], errs[i] = s.Recommend(ctx, labels, Options{
				Profiles: []signal.Profile{
					signal.NewSecureProfile(s.cfg.TokenProfileField, token),
				},
				Geo:            opts.Geo,
				Store:          opts.Store,
				Size:           size,
				MaxPollingSize: opts.MaxPollingSize,
				APIKey:         opts.APIKey,
			})
		}(i, token)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, responses, err
		}
	}

	out := aggregate(sets)
	if opts.SkipRank {
		for label := range out {
			for i := range out[label] {
				out[label][i] = out[label][i].WithoutRank()
			}
		}
	}
	return out, responses, nil
}

// aggregate merges per-token rankings by record identity, summing ranks on
// collision. Cross-token corroboration is deliberately additive, unlike the
// fuzzy combination inside one ranking, to reward multi-token matches.
func aggregate(sets []result.Set) result.Set {
	type slot struct {
		candidate result.Candidate
		index     int
	}
	merged := map[string]map[string]*slot{}
	order := map[string]int{}

	for _, set := range sets {
		for label, candidates := range set {
			byKey, ok := merged[label]
			if !ok {
				byKey = map[string]*slot{}
				merged[label] = byKey
			}
			for _, c := range candidates {
				if existing, ok := byKey[c.Key()]; ok {
					existing.candidate = existing.candidate.WithRank(
						existing.candidate.Rank() + c.Rank())
					continue
				}
				byKey[c.Key()] = &slot{candidate: c, index: order[label]}
				order[label]++
			}
		}
	}

	out := result.Set{}
	for label, byKey := range merged {
		slots := make([]*slot, 0, len(byKey))
		for _, sl := range byKey {
			slots = append(slots, sl)
		}
		// First-seen order breaks rank ties.
		sort.Slice(slots, func(i, j int) bool {
			if slots[i].candidate.Rank() != slots[j].candidate.Rank() {
				return slots[i].candidate.Rank() > slots[j].candidate.Rank()
			}
			return slots[i].index < slots[j].index
		})
		candidates := make([]result.Candidate, len(slots))
		for i, sl := range slots {
			candidates[i] = sl.candidate
		}
		out[label] = candidates
	}
	return out
}

// SearchTrack tracks each token of a search query as an interaction, one
// track call per token.
func (s *Service) SearchTrack(
	ctx context.Context, rec record.Record, query string, label string,
	location *signal.Location, opts TrackOptions,
) ([]*signal.Response, error) {
	if label == "" {
		label = signal.LabelSearchConversion
	}

	tokens := TokenizeQuery(query)
	responses := make([]*signal.Response, 0, len(tokens))
	for _, token := range tokens {
		resp, err := s.Track(ctx, rec, label,
			[]signal.Profile{signal.NewSecureProfile(s.cfg.TokenProfileField, token)},
			location, opts)
		if err != nil {
			return responses, err
		}
		responses = append(responses, resp)
	}
	return responses, nil
}
