package records

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/signalrank/signalrank/internal/domain/record"
	"github.com/signalrank/signalrank/internal/domain/search/filter"
	"github.com/signalrank/signalrank/internal/domain/signal"
)

// Tag separator inside multi-valued hash fields.
const tagSeparator = "|"

// keyField stores the record identity inside each hash.
const keyField = "__key"

// maxUnboundedFetch caps an unbounded FT.SEARCH page.
const maxUnboundedFetch = 10000

// digestSuffix marks the salted-digest projection of a field.
const digestSuffix = "_md5"

// RedisConfig holds connection and projection settings for a Redis store.
type RedisConfig struct {
	Addrs    []string
	Username string
	Password string
	DB       int

	// KeyPrefix prefixes record hash keys.
	KeyPrefix string
	// IndexName is the FT index over the record hashes.
	IndexName string
	// Paths are the searchable attribute paths in configuration form.
	// Each gets a raw TAG projection and a salted-digest TAG projection.
	Paths []string
	// Salt feeds the digest projections.
	Salt string
	// Null substitutes for missing values at projection time.
	Null string
}

func (c *RedisConfig) applyDefaults() {
	if c.KeyPrefix == "" {
		c.KeyPrefix = "signalrank:record:"
	}
	if c.IndexName == "" {
		c.IndexName = "signalrank-records"
	}
	if c.Null == "" {
		c.Null = "null"
	}
}

// Redis is a record store over Redis hashes with FT.SEARCH predicates.
// Records are written as flat projections: one raw TAG field and one
// salted-digest TAG field per searchable path, so hash-equality clauses run
// server-side without materializing full result sets.
type Redis struct {
	client   rueidis.Client
	cfg      RedisConfig
	resolver record.Resolver
}

// NewRedis creates a Redis record store via rueidis.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}
	cfg.applyDefaults()

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
		AlwaysRESP2:  true, // FT.SEARCH result parsing expects RESP2 array format
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Redis{client: client, cfg: cfg}, nil
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	cmd := r.client.B().Ping().Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (r *Redis) Close() {
	r.client.Close()
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (r *Redis) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for store: %w", ctx.Err())
		case <-ticker.C:
			if err := r.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// EnsureIndex creates the FT index over the record hashes. An already
// existing index is not an error.
func (r *Redis) EnsureIndex(ctx context.Context) error {
	args := []string{
		r.cfg.IndexName, "ON", "HASH",
		"PREFIX", "1", r.cfg.KeyPrefix,
		"SCHEMA", keyField, "TAG",
	}
	for _, path := range r.cfg.Paths {
		name := storeField(path)
		args = append(args,
			name, "TAG", "SEPARATOR", tagSeparator,
			name+digestSuffix, "TAG", "SEPARATOR", tagSeparator,
		)
	}

	cmd := r.client.B().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return nil
		}
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// Upsert writes a record's projection: raw canonical values and their
// salted digests for every searchable path, joined by the tag separator
// when a path resolves to many values.
func (r *Redis) Upsert(ctx context.Context, rec record.Record) error {
	fields := map[string]string{keyField: rec.Key()}
	for _, path := range r.cfg.Paths {
		values := r.resolver.Values(rec, storeField(path), r.cfg.Null)

		raws := make([]string, len(values))
		digests := make([]string, len(values))
		for i, value := range values {
			raws[i] = signal.Canonical(value)
			digests[i] = signal.Digest(value, r.cfg.Salt)
		}

		name := storeField(path)
		fields[name] = strings.Join(raws, tagSeparator)
		fields[name+digestSuffix] = strings.Join(digests, tagSeparator)
	}

	cmd := r.client.B().Hset().Key(r.cfg.KeyPrefix + rec.Key()).FieldValue()
	for name, value := range fields {
		cmd = cmd.FieldValue(name, value)
	}
	if err := r.client.Do(ctx, cmd.Build()).Error(); err != nil {
		return fmt.Errorf("upsert %q: %w", rec.Key(), err)
	}
	return nil
}

// Delete removes a record's projection.
func (r *Redis) Delete(ctx context.Context, key string) error {
	cmd := r.client.B().Del().Key(r.cfg.KeyPrefix + key).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// Candidates runs the expression as an FT.SEARCH query and materializes
// matching projections as flat records. limit <= 0 fetches up to the
// unbounded page cap.
func (r *Redis) Candidates(
	ctx context.Context, expr filter.Expression, limit int,
) ([]record.Record, error) {
	query := buildQuery(expr)

	fetch := limit
	if fetch <= 0 {
		fetch = maxUnboundedFetch
	}

	cmd := r.client.B().Arbitrary("FT.SEARCH").
		Args(r.cfg.IndexName, query, "LIMIT", "0", strconv.Itoa(fetch)).
		Build()
	raw, err := r.client.Do(ctx, cmd).ToArray()
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	return r.parseEntries(raw)
}

// buildQuery renders must clauses as conjuncts and should clauses as one
// OR group, in FT.SEARCH TAG syntax.
func buildQuery(expr filter.Expression) string {
	if expr.IsEmpty() {
		return "*"
	}

	var parts []string
	for _, clause := range expr.Must() {
		parts = append(parts, clauseQuery(clause))
	}
	if should := expr.Should(); len(should) > 0 {
		group := make([]string, len(should))
		for i, clause := range should {
			group[i] = clauseQuery(clause)
		}
		parts = append(parts, "("+strings.Join(group, "|")+")")
	}
	return strings.Join(parts, " ")
}

func clauseQuery(clause filter.Clause) string {
	name := clause.Field()
	if clause.Hashed() {
		name += digestSuffix
	}
	return fmt.Sprintf("@%s:{%s}", name, escapeTag(clause.Value()))
}

// parseEntries decodes the RESP2 FT.SEARCH reply.
// 2-stride: [total, key1, fields1, key2, fields2, ...]
func (r *Redis) parseEntries(raw []rueidis.RedisMessage) ([]record.Record, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return nil, nil
	}

	out := make([]record.Record, 0, total)
	for i := 1; i+1 < len(raw); i += 2 {
		redisKey, err := raw[i].ToString()
		if err != nil {
			continue
		}
		pairs, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		key := strings.TrimPrefix(redisKey, r.cfg.KeyPrefix)
		fields := map[string]any{}
		for j := 0; j+1 < len(pairs); j += 2 {
			name, err := pairs[j].ToString()
			if err != nil {
				continue
			}
			value, err := pairs[j+1].ToString()
			if err != nil {
				continue
			}
			if name == keyField {
				key = value
				continue
			}
			if strings.HasSuffix(name, digestSuffix) {
				continue
			}
			fields[name] = splitValues(value)
		}
		out = append(out, record.NewMap(key, fields))
	}
	return out, nil
}

func splitValues(joined string) any {
	parts := strings.Split(joined, tagSeparator)
	if len(parts) == 1 {
		return parts[0]
	}
	many := make([]any, len(parts))
	for i, part := range parts {
		many[i] = part
	}
	return many
}

// storeField normalizes a configuration path into the store-native field
// name, the same form search terms carry.
func storeField(path string) string {
	return strings.ReplaceAll(path, ".", "__")
}

// escapeTag escapes FT.SEARCH TAG special characters.
func escapeTag(value string) string {
	var b strings.Builder
	for _, r := range value {
		if strings.ContainsRune(` ,.<>{}[]"':;!@#$%^&*()-+=~|/\`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
