// Package recommend implements the translation-and-ranking engine between
// the recommendation signal service and the local record store.
package recommend

import (
	"context"
	"fmt"
	"strings"

	"github.com/signalrank/signalrank/internal/domain"
	"github.com/signalrank/signalrank/internal/domain/record"
	"github.com/signalrank/signalrank/internal/domain/search/filter"
	"github.com/signalrank/signalrank/internal/domain/search/result"
	"github.com/signalrank/signalrank/internal/domain/search/term"
	"github.com/signalrank/signalrank/internal/domain/signal"
)

// Service orchestrates recommend, track, search, and link flows for one
// record type. It holds no cross-call state.
type Service struct {
	cfg      Config
	client   signal.Client
	store    Store
	resolver record.Resolver

	// scopeFields are the store-native forms of every configured path,
	// the only fields a caller-supplied scope may constrain.
	scopeFields map[string]struct{}
}

// New creates an engine service for one record type.
func New(cfg Config, client signal.Client, store Store) (*Service, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	computed := map[string]func(record.Record) any{
		"key": func(rec record.Record) any { return rec.Key() },
	}
	for name, fn := range cfg.Computed {
		computed[name] = fn
	}

	scopeFields := map[string]struct{}{}
	for _, path := range cfg.Fields {
		scopeFields[strings.ReplaceAll(path, ".", "__")] = struct{}{}
	}
	for _, paths := range cfg.DataFields {
		for _, path := range paths {
			scopeFields[strings.ReplaceAll(path, ".", "__")] = struct{}{}
		}
	}

	return &Service{
		cfg:         cfg,
		client:      client,
		store:       store,
		resolver:    record.Resolver{Computed: computed},
		scopeFields: scopeFields,
	}, nil
}

// Options tunes a recommend call.
type Options struct {
	// Profiles identify the acting subject.
	Profiles []signal.Profile
	// Geo is an opaque geographical payload.
	Geo *signal.Geo
	// Scope ANDs extra clauses into every compiled predicate.
	Scope []filter.Clause
	// Store overrides the service store for this call.
	Store Store
	// Size bounds each label's result list; 0 applies the default, a
	// negative value lifts the bound.
	Size int
	// MaxPollingSize caps the store-side fetch; <= 0 means unbounded.
	MaxPollingSize int
	// SkipRank strips the transient rank from returned candidates.
	SkipRank bool
	// APIKey overrides the client credential for this call.
	APIKey string
}

// Recommend requests signals for the given labels and translates them into
// ranked candidate sets. A failed service response yields an empty set and
// the raw response, not an error.
func (s *Service) Recommend(
	ctx context.Context, labels []string, opts Options,
) (result.Set, *signal.Response, error) {
	if err := s.validateScope(opts.Scope); err != nil {
		return nil, nil, err
	}

	client := s.client
	if opts.APIKey != "" {
		client = client.WithCredential(opts.APIKey)
	}

	namespaced := make([]string, len(labels))
	for i, label := range labels {
		namespaced[i] = s.Labelify(label)
	}

	resp, err := client.Recommend(ctx, namespaced, opts.Profiles, opts.Geo)
	if err != nil {
		// Transport failure and service rejection share one path.
		return result.Set{}, failedResponse(err), nil
	}

	out := result.Set{}
	if !resp.Success {
		return out, resp, nil
	}

	for _, label := range labels {
		body, ok := resp.Body[s.Labelify(label)]
		if !ok {
			continue
		}

		paths, err := s.cfg.fieldsFor(label)
		if err != nil {
			return nil, resp, err
		}

		terms := term.Parse(paths, body)
		if len(terms) == 0 {
			continue
		}

		expr, err := filter.Compile(terms, s.cfg.HashFields)
		if err != nil {
			return nil, resp, err
		}
		expr = expr.WithScope(opts.Scope...)

		store := s.store
		if opts.Store != nil {
			store = opts.Store
		}
		items, err := store.Candidates(ctx, expr, opts.MaxPollingSize)
		if err != nil {
			return nil, resp, fmt.Errorf("fetch candidates for %q: %w", label, err)
		}

		size := opts.Size
		if size == 0 {
			size = s.cfg.DefaultSize
		}
		out[label] = s.rank(items, terms, size, opts.SkipRank)
	}

	return out, resp, nil
}

// Track pushes the record's configured attribute tags for label to the
// signal service and returns the raw response.
func (s *Service) Track(
	ctx context.Context, rec record.Record, label string,
	profiles []signal.Profile, location *signal.Location, opts TrackOptions,
) (*signal.Response, error) {
	tags, err := s.buildTags(rec, label, nil)
	if err != nil {
		return nil, err
	}

	client := s.client
	if opts.APIKey != "" {
		client = client.WithCredential(opts.APIKey)
	}

	resp, err := client.Track(ctx, s.Labelify(label), tags, profiles, location, opts.Geo)
	if err != nil {
		return failedResponse(err), nil
	}
	return resp, nil
}

// TrackOptions tunes a track call.
type TrackOptions struct {
	Geo    *signal.Geo
	APIKey string
}

// ProfileID derives the record's secure profile identity from the
// configured profile field paths.
func (s *Service) ProfileID(rec record.Record, label string) (signal.Profile, error) {
	tags, err := s.buildTags(rec, label, s.cfg.ProfileFields)
	if err != nil {
		return signal.Profile{}, err
	}

	parts := make([]string, len(tags))
	for i, tag := range tags {
		parts[i] = tag.JSON()
	}
	return signal.NewSecureProfile(s.cfg.Owner+"_link", strings.Join(parts, "|")), nil
}

// Link records an interaction between this service's record and a record of
// another type, using this record's derived identity as the profile.
func (s *Service) Link(
	ctx context.Context, rec record.Record, other *Service, otherRec record.Record,
	label string, location *signal.Location, opts TrackOptions,
) (*signal.Response, error) {
	profile, err := s.ProfileID(rec, label)
	if err != nil {
		return nil, err
	}
	return other.Track(ctx, otherRec, label, []signal.Profile{profile}, location, opts)
}

// RecommendLinks recommends records of another type for this record, one
// derived-identity profile per label.
func (s *Service) RecommendLinks(
	ctx context.Context, rec record.Record, other *Service,
	labels []string, opts Options,
) (result.Set, []*signal.Response, error) {
	out := result.Set{}
	responses := make([]*signal.Response, 0, len(labels))

	for _, label := range labels {
		profile, err := s.ProfileID(rec, label)
		if err != nil {
			return nil, responses, err
		}

		labelOpts := opts
		labelOpts.Profiles = []signal.Profile{profile}
		sub, resp, err := other.Recommend(ctx, []string{label}, labelOpts)
		if err != nil {
			return nil, responses, err
		}
		responses = append(responses, resp)
		for l, candidates := range sub {
			out[l] = candidates
		}
	}

	return out, responses, nil
}

// validateScope rejects scope clauses on fields this record type never
// projects; such a clause could not match any stored record.
func (s *Service) validateScope(scope []filter.Clause) error {
	for _, clause := range scope {
		if _, ok := s.scopeFields[clause.Field()]; !ok {
			return fmt.Errorf("%w: field %q is not configured for %s",
				domain.ErrUnsupportedScope, clause.Field(), s.cfg.Owner)
		}
	}
	return nil
}

// Labelify namespaces a label with the owner type.
func (s *Service) Labelify(label string) string {
	return s.cfg.Owner + "." + label
}

// Owner returns the configured record type name.
func (s *Service) Owner() string { return s.cfg.Owner }

func failedResponse(err error) *signal.Response {
	return &signal.Response{
		Success: false,
		Message: fmt.Sprintf("%v: %v", domain.ErrServiceUnavailable, err),
	}
}
