package signal

import "context"

// Client is the external recommendation signal service. One call per
// operation; the engine does not retry.
type Client interface {
	Recommend(
		ctx context.Context, labels []string,
		profiles []Profile, geo *Geo,
	) (*Response, error)

	Track(
		ctx context.Context, label string, tags []Tag,
		profiles []Profile, location *Location, geo *Geo,
	) (*Response, error)

	// WithCredential returns a client using the given API key, for
	// call-site overrides.
	WithCredential(key string) Client
}
