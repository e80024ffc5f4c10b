// Package term converts signal service response bodies into typed search
// terms.
package term

import (
	"fmt"
	"sort"
	"strings"
)

// Term is one probability-weighted (field, value) signal returned by the
// service. Field uses the store's relation separator ("__"); Value is the
// raw or digested form the service observed. Terms live for one recommend
// call.
type Term struct {
	field string
	value string
	prob  float64
}

// New creates a search term.
func New(field, value string, prob float64) Term {
	return Term{field: field, value: value, prob: prob}
}

// Field returns the attribute path in store-native form.
func (t Term) Field() string { return t.field }

// Value returns the observed value.
func (t Term) Value() string { return t.value }

// Probability returns the service confidence in [0, 1].
func (t Term) Probability() float64 { return t.prob }

func (t Term) String() string {
	return fmt.Sprintf("{field: %s, value: %s, prob: %g}", t.field, t.value, t.prob)
}

// Parse scans a label's response body for composite keys prefixed by each
// configured field path and emits one term per hit. Dots in the configured
// path are normalized to the relation separator so terms match the store's
// filter syntax. Keys for unconfigured fields are ignored.
func Parse(fieldPaths []string, body map[string]float64) []Term {
	keys := make([]string, 0, len(body))
	for key := range body {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var terms []Term
	for _, path := range fieldPaths {
		prefix := path + ":"
		for _, key := range keys {
			if !strings.HasPrefix(key, prefix) {
				continue
			}
			terms = append(terms, New(
				strings.ReplaceAll(path, ".", "__"),
				key[len(prefix):],
				body[key],
			))
		}
	}
	return terms
}
