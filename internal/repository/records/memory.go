// Package records provides record store implementations for the engine:
// an in-memory store evaluating predicates through the attribute resolver,
// and a Redis store searching salted-digest TAG projections server-side.
package records

import (
	"context"
	"sync"

	"github.com/signalrank/signalrank/internal/domain/record"
	"github.com/signalrank/signalrank/internal/domain/search/filter"
	"github.com/signalrank/signalrank/internal/domain/signal"
)

// Memory is an in-memory record store. Iteration follows insertion order,
// which is the store-native ordering rank ties preserve.
type Memory struct {
	mu    sync.RWMutex
	items []record.Record

	resolver record.Resolver
	null     string
	salt     string
}

// NewMemory creates an in-memory store. null is the literal substituted for
// missing values during clause evaluation; salt feeds digest comparisons.
func NewMemory(null, salt string) *Memory {
	return &Memory{null: null, salt: salt}
}

// Add appends records to the store.
func (m *Memory) Add(recs ...record.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, recs...)
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Candidates returns records matching the expression in insertion order.
// An empty expression matches everything; limit <= 0 means unbounded.
func (m *Memory) Candidates(
	_ context.Context, expr filter.Expression, limit int,
) ([]record.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []record.Record
	for _, rec := range m.items {
		if !m.matches(rec, expr) {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) matches(rec record.Record, expr filter.Expression) bool {
	for _, clause := range expr.Must() {
		if !m.matchClause(rec, clause) {
			return false
		}
	}
	if len(expr.Should()) == 0 {
		return true
	}
	for _, clause := range expr.Should() {
		if m.matchClause(rec, clause) {
			return true
		}
	}
	return false
}

func (m *Memory) matchClause(rec record.Record, clause filter.Clause) bool {
	for _, value := range m.resolver.Values(rec, clause.Field(), m.null) {
		form := signal.Canonical(value)
		if clause.Hashed() {
			form = signal.Digest(value, m.salt)
		}
		if form == clause.Value() {
			return true
		}
	}
	return false
}
