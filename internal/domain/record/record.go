// Package record defines the capability a stored item must expose for
// attribute-path resolution, plus a map-backed implementation used by the
// repositories and tests.
package record

// Record is the traversal capability of a stored item. Types implement it
// explicitly; the engine never reflects over record shapes.
type Record interface {
	// Key identifies the record within its type, used to merge rankings.
	Key() string
	// Attribute returns a stored value by name. The value may be a scalar,
	// a nested Record, or a Computed accessor.
	Attribute(name string) (any, bool)
	// Relation returns a named relation, one-to-one or one-to-many.
	Relation(name string) (Relation, bool)
}

// Computed is a zero-argument accessor invoked when it terminates a path.
type Computed func() any

// Relation holds the records reachable through a named relation.
type Relation struct {
	toMany  bool
	records []Record
}

// ToOne builds a one-to-one relation.
func ToOne(r Record) Relation {
	return Relation{records: []Record{r}}
}

// ToMany builds a one-to-many relation.
func ToMany(rs ...Record) Relation {
	return Relation{toMany: true, records: rs}
}

// ToMany reports whether the relation is one-to-many.
func (r Relation) ToMany() bool { return r.toMany }

// Records returns the related records.
func (r Relation) Records() []Record { return r.records }

// MapRecord is a Record backed by plain maps.
type MapRecord struct {
	key       string
	fields    map[string]any
	relations map[string]Relation
}

// NewMap creates a map-backed record. The fields map is referenced, not
// copied.
func NewMap(key string, fields map[string]any) *MapRecord {
	if fields == nil {
		fields = map[string]any{}
	}
	return &MapRecord{key: key, fields: fields}
}

// WithRelation attaches a named relation and returns the record.
func (m *MapRecord) WithRelation(name string, rel Relation) *MapRecord {
	if m.relations == nil {
		m.relations = map[string]Relation{}
	}
	m.relations[name] = rel
	return m
}

// Key implements Record.
func (m *MapRecord) Key() string { return m.key }

// Attribute implements Record.
func (m *MapRecord) Attribute(name string) (any, bool) {
	v, ok := m.fields[name]
	return v, ok
}

// Relation implements Record.
func (m *MapRecord) Relation(name string) (Relation, bool) {
	rel, ok := m.relations[name]
	return rel, ok
}

// Fields returns the underlying field map.
func (m *MapRecord) Fields() map[string]any { return m.fields }
