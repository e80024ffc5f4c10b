// Package filter compiles search terms into store-level predicates.
package filter

import (
	"fmt"

	"github.com/signalrank/signalrank/internal/domain/search/term"
)

// Expression is a structured filter with must/should boolean semantics:
// should clauses OR together, must clauses AND with the should group.
type Expression struct {
	must   []Clause
	should []Clause
}

// Must returns the conjunctive clauses.
func (e Expression) Must() []Clause { return e.must }

// Should returns the disjunctive clauses.
func (e Expression) Should() []Clause { return e.should }

// IsEmpty reports whether the expression has no clauses.
func (e Expression) IsEmpty() bool {
	return len(e.must) == 0 && len(e.should) == 0
}

// WithScope returns a copy of the expression with extra must clauses, the
// AND-composition point for a caller-supplied queryset scope.
func (e Expression) WithScope(scope ...Clause) Expression {
	out := Expression{should: e.should}
	out.must = append(append(out.must, e.must...), scope...)
	return out
}

// Clause is a single equality or hash-equality condition on an attribute.
type Clause struct {
	field  string
	value  string
	hashed bool
}

// NewClause creates an equality clause. When hashed is set the comparison
// runs against the salted-digest projection of the attribute, never the
// plaintext.
func NewClause(field, value string, hashed bool) (Clause, error) {
	if field == "" {
		return Clause{}, fmt.Errorf("clause field is required")
	}
	if value == "" {
		return Clause{}, fmt.Errorf("clause value is required for field %q", field)
	}
	return Clause{field: field, value: value, hashed: hashed}, nil
}

// Field returns the attribute path in store-native form.
func (c Clause) Field() string { return c.field }

// Value returns the comparison value.
func (c Clause) Value() string { return c.value }

// Hashed reports whether the comparison targets the digest projection.
func (c Clause) Hashed() bool { return c.hashed }

// Compile turns a term list into a disjunction of per-term clauses.
// An empty term list compiles to an empty expression; callers short-circuit
// on IsEmpty and skip the label.
func Compile(terms []term.Term, hashed bool) (Expression, error) {
	var expr Expression
	for _, t := range terms {
		clause, err := NewClause(t.Field(), t.Value(), hashed)
		if err != nil {
			return Expression{}, fmt.Errorf("compile term %s: %w", t, err)
		}
		expr.should = append(expr.should, clause)
	}
	return expr, nil
}
