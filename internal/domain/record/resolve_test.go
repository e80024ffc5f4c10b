package record

import (
	"reflect"
	"testing"
)

func product(name string) *MapRecord {
	return NewMap(name, map[string]any{"name": name})
}

func TestResolve_DirectAttribute(t *testing.T) {
	r := Resolver{}
	rec := NewMap("p1", map[string]any{"name": "Laptop", "price": 42})

	if got := r.Resolve(rec, "name", "null"); got != "Laptop" {
		t.Errorf("Resolve(name) = %v, want Laptop", got)
	}
	if got := r.Resolve(rec, "price", "null"); got != 42 {
		t.Errorf("Resolve(price) = %v, want 42", got)
	}
}

func TestResolve_MissingReturnsDefault(t *testing.T) {
	r := Resolver{}
	rec := NewMap("p1", map[string]any{"name": "Laptop"})

	if got := r.Resolve(rec, "color", "null"); got != "null" {
		t.Errorf("Resolve(color) = %v, want null", got)
	}
	if got := r.Resolve(rec, "", "null"); got != "null" {
		t.Errorf("Resolve(empty path) = %v, want null", got)
	}
	if got := r.Resolve(rec, "vendor.name", "null"); got != "null" {
		t.Errorf("Resolve(vendor.name) = %v, want null", got)
	}
}

func TestResolve_NestedDotPath(t *testing.T) {
	r := Resolver{}
	vendor := NewMap("v1", map[string]any{"name": "Acme"})
	rec := NewMap("p1", map[string]any{"vendor": vendor})

	if got := r.Resolve(rec, "vendor.name", "null"); got != "Acme" {
		t.Errorf("Resolve(vendor.name) = %v, want Acme", got)
	}
}

func TestResolve_ComputedAccessor(t *testing.T) {
	r := Resolver{}
	rec := NewMap("p1", map[string]any{
		"display": Computed(func() any { return "Laptop 13\"" }),
	})

	if got := r.Resolve(rec, "display", "null"); got != "Laptop 13\"" {
		t.Errorf("Resolve(display) = %v", got)
	}
}

func TestResolve_ComputedRegistryWinsOverTraversal(t *testing.T) {
	r := Resolver{
		Computed: map[string]func(Record) any{
			"key":  func(rec Record) any { return rec.Key() },
			"name": func(Record) any { return "computed" },
			"gone": func(Record) any { return nil },
		},
	}
	rec := NewMap("p1", map[string]any{"name": "stored"})

	if got := r.Resolve(rec, "key", "null"); got != "p1" {
		t.Errorf("Resolve(key) = %v, want p1", got)
	}
	if got := r.Resolve(rec, "name", "null"); got != "computed" {
		t.Errorf("Resolve(name) = %v, want computed", got)
	}
	if got := r.Resolve(rec, "gone", "null"); got != "null" {
		t.Errorf("Resolve(gone) = %v, want null", got)
	}
}

func TestResolve_ToManyRelation(t *testing.T) {
	r := Resolver{}
	rec := NewMap("c1", map[string]any{}).
		WithRelation("products", ToMany(product("Laptop"), product("Phone")))

	got := r.Resolve(rec, "products__name", "null")
	want := []any{"Laptop", "Phone"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Resolve(products__name) = %v, want %v", got, want)
	}
}

func TestResolve_ToOneRelation(t *testing.T) {
	r := Resolver{}
	rec := NewMap("p1", map[string]any{}).
		WithRelation("category", ToOne(NewMap("c1", map[string]any{"name": "Electronics"})))

	if got := r.Resolve(rec, "category__name", "null"); got != "Electronics" {
		t.Errorf("Resolve(category__name) = %v, want Electronics", got)
	}
}

func TestResolve_SeparatorFormNestedRecord(t *testing.T) {
	// A nested record attribute is reachable through the separator form,
	// mirroring to-one relation traversal.
	r := Resolver{}
	rec := NewMap("p1", map[string]any{
		"vendor": NewMap("v1", map[string]any{"name": "Acme"}),
	})

	if got := r.Resolve(rec, "vendor__name", "null"); got != "Acme" {
		t.Errorf("Resolve(vendor__name) = %v, want Acme", got)
	}
}

func TestResolve_FlatProjectionField(t *testing.T) {
	// Store projections keep the whole separator-form path as one field.
	r := Resolver{}
	rec := NewMap("p1", map[string]any{"category__name": "Electronics"})

	if got := r.Resolve(rec, "category__name", "null"); got != "Electronics" {
		t.Errorf("Resolve(category__name) = %v, want Electronics", got)
	}
}

func TestValues_FlattensNestedRelations(t *testing.T) {
	r := Resolver{}
	order := func(key string, items ...Record) *MapRecord {
		return NewMap(key, map[string]any{}).WithRelation("items", ToMany(items...))
	}
	rec := NewMap("u1", map[string]any{}).WithRelation("orders", ToMany(
		order("o1", product("Laptop"), product("Phone")),
		order("o2", product("Watch")),
	))

	got := r.Values(rec, "orders__items__name", "null")
	want := []any{"Laptop", "Phone", "Watch"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Values(orders__items__name) = %v, want %v", got, want)
	}
}

func TestValues_NilScalarBecomesDefault(t *testing.T) {
	r := Resolver{}
	rec := NewMap("p1", map[string]any{"color": nil})

	got := r.Values(rec, "color", "null")
	if !reflect.DeepEqual(got, []any{"null"}) {
		t.Errorf("Values(color) = %v, want [null]", got)
	}
}

func TestValues_ScalarWrapped(t *testing.T) {
	r := Resolver{}
	rec := NewMap("p1", map[string]any{"name": "Laptop"})

	got := r.Values(rec, "name", "null")
	if !reflect.DeepEqual(got, []any{"Laptop"}) {
		t.Errorf("Values(name) = %v, want [Laptop]", got)
	}
}
