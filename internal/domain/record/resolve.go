package record

import "strings"

// Resolver resolves dotted attribute paths against a record graph.
//
// A path is split on "."; a segment containing "__" crosses a relation
// boundary first ("orders__total" looks up the "orders" relation, then
// resolves "total" on each related record). Missing attributes or relations
// resolve to the caller-supplied default, never to an error.
type Resolver struct {
	// Computed is the computed-signal registry, consulted with the full
	// path before any traversal. A nil result falls back to the default.
	Computed map[string]func(Record) any
}

// Resolve returns the value at path, or def when any step is missing.
// Crossing a one-to-many relation yields a list with one entry per related
// record; nested to-many hops yield nested lists.
func (r Resolver) Resolve(rec Record, path string, def any) any {
	if path == "" {
		return def
	}
	if fn, ok := r.Computed[path]; ok {
		if v := fn(rec); v != nil {
			return v
		}
		return def
	}
	return resolveParts(rec, strings.Split(path, "."), def)
}

// Values resolves path and flattens the result into scalars. Nil scalars
// are replaced with def.
func (r Resolver) Values(rec Record, path string, def any) []any {
	return flatten(r.Resolve(rec, path, def), def, nil)
}

func resolveParts(rec Record, parts []string, def any) any {
	if len(parts) == 0 || rec == nil {
		return def
	}

	head := parts[0]
	if name, rest, crossed := strings.Cut(head, "__"); crossed {
		next := append([]string{rest}, parts[1:]...)
		if rel, ok := rec.Relation(name); ok {
			if rel.ToMany() {
				out := make([]any, 0, len(rel.Records()))
				for _, related := range rel.Records() {
					out = append(out, resolveParts(related, next, def))
				}
				return out
			}
			if len(rel.Records()) == 0 {
				return def
			}
			return resolveParts(rel.Records()[0], next, def)
		}
		// A nested record reached through the separator form.
		if v, ok := rec.Attribute(name); ok {
			if sub, ok := v.(Record); ok {
				return resolveParts(sub, next, def)
			}
		}
		// Flat projections store the whole separator-form path as one field.
		if v, ok := rec.Attribute(head); ok && len(parts) == 1 {
			return v
		}
		return def
	}

	v, ok := rec.Attribute(head)
	if !ok {
		return def
	}

	if len(parts) == 1 {
		if computed, ok := v.(Computed); ok {
			return computed()
		}
		return v
	}

	sub, ok := v.(Record)
	if !ok {
		return def
	}
	return resolveParts(sub, parts[1:], def)
}

func flatten(v, def any, out []any) []any {
	switch vv := v.(type) {
	case nil:
		return append(out, def)
	case []any:
		for _, item := range vv {
			out = flatten(item, def, out)
		}
		return out
	default:
		return append(out, v)
	}
}
