package recommend

import (
	"fmt"
	"unicode/utf8"

	"github.com/signalrank/signalrank/internal/domain"
	"github.com/signalrank/signalrank/internal/domain/record"
)

// Default engine settings.
const (
	DefaultNullLiteral       = "null"
	DefaultTokenProfileField = "search_token"
	DefaultRecommendSize     = 8
	DefaultSearchSize        = 24
)

// Config is the per-record-type engine configuration, passed explicitly to
// service construction. There is no shared type-level state.
type Config struct {
	// Owner is the record type name, e.g. "catalog.Product". It namespaces
	// labels and tag descriptions.
	Owner string

	// DataFields maps a label to the attribute paths tracked and searched
	// for it. When nil, Fields applies to every label.
	DataFields map[string][]string

	// Fields is the flat path list used when DataFields is nil.
	Fields []string

	// ProfileFields are the paths deriving a record's profile identity.
	// Defaults to ["key"], served by the built-in computed accessor.
	ProfileFields []string

	// Computed is the computed-signal registry: paths resolved against it
	// before any record traversal. "key" is registered by default.
	Computed map[string]func(record.Record) any

	// NullLiteral substitutes for missing or nil attribute values.
	NullLiteral string

	// TokenProfileField names the secure profile carrying search tokens.
	TokenProfileField string

	// DefaultSize and SearchSize bound recommend and search result lists
	// when the caller passes no size.
	DefaultSize int
	SearchSize  int

	// HashFields enables digest comparison for search terms and store
	// predicates. When off, raw canonical values are compared.
	HashFields bool

	// Salt feeds the value digests. Empty means unsalted.
	Salt string
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.ProfileFields == nil {
		c.ProfileFields = []string{"key"}
	}
	if c.NullLiteral == "" {
		c.NullLiteral = DefaultNullLiteral
	}
	if c.TokenProfileField == "" {
		c.TokenProfileField = DefaultTokenProfileField
	}
	if c.DefaultSize <= 0 {
		c.DefaultSize = DefaultRecommendSize
	}
	if c.SearchSize <= 0 {
		c.SearchSize = DefaultSearchSize
	}
}

// Validate checks the configuration for correctness.
func (c Config) Validate() error {
	if c.Owner == "" {
		return domain.NewConfigurationError("owner", "record type name is required")
	}
	for label, paths := range c.DataFields {
		for i, path := range paths {
			if path == "" {
				return domain.NewConfigurationError(
					fmt.Sprintf("data_fields[%s][%d]", label, i), "path must not be empty")
			}
		}
	}
	for i, path := range c.Fields {
		if path == "" {
			return domain.NewConfigurationError(
				fmt.Sprintf("fields[%d]", i), "path must not be empty")
		}
	}
	for i, path := range c.ProfileFields {
		if path == "" {
			return domain.NewConfigurationError(
				fmt.Sprintf("profile_fields[%d]", i), "path must not be empty")
		}
	}
	if !utf8.ValidString(c.Salt) {
		return fmt.Errorf("%w: salt must be valid UTF-8", domain.ErrValidation)
	}
	return nil
}

// fieldsFor returns the attribute paths configured for a label.
func (c Config) fieldsFor(label string) ([]string, error) {
	if c.DataFields != nil {
		paths, ok := c.DataFields[label]
		if !ok {
			return nil, domain.NewConfigurationError(
				fmt.Sprintf("%s.data_fields[%s]", c.Owner, label), "no field paths defined")
		}
		return paths, nil
	}
	if c.Fields == nil {
		return nil, domain.NewConfigurationError(
			c.Owner+".fields", "no field paths defined")
	}
	return c.Fields, nil
}
