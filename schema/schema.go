// Package schema provides the relation-metadata registry consumed by the
// Sift compiler.
//
// The compiler never inspects model structs itself; it asks the registry
// "is this condition key a plain field or a relation, and if a relation,
// which entity and table does it target?". Entities can be registered
// explicitly or reflected from grove-style tagged model structs.
package schema

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"
)

// Relation describes a traversal from one entity to a related entity.
type Relation struct {
	// Name is the field name used in condition maps (e.g. "comments").
	Name string `json:"name"`

	// Entity is the related entity name (e.g. "Comment").
	Entity string `json:"entity"`

	// Table is the related entity's storage identifier (e.g. "comments").
	Table string `json:"table"`
}

// Entity describes one registered model: its table and the fields and
// relations that may appear as condition keys.
type Entity struct {
	Name      string              `json:"name"`
	Table     string              `json:"table"`
	Fields    map[string]struct{} `json:"-"`
	Relations map[string]Relation `json:"-"`
}

// Registry is a thread-safe entity catalog. It is a pure lookup at
// compilation time: the compiler only ever reads it.
type Registry struct {
	mu       sync.RWMutex
	entities map[string]*Entity
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entities: make(map[string]*Entity)}
}

// Register adds an entity definition. Registering the same name twice
// replaces the earlier definition.
func (r *Registry) Register(e *Entity) error {
	if e == nil || e.Name == "" {
		return fmt.Errorf("schema: entity name is required")
	}
	if e.Table == "" {
		return fmt.Errorf("schema: entity %q: table is required", e.Name)
	}
	if e.Fields == nil {
		e.Fields = make(map[string]struct{})
	}
	if e.Relations == nil {
		e.Relations = make(map[string]Relation)
	}

	r.mu.Lock()
	r.entities[e.Name] = e
	r.mu.Unlock()
	return nil
}

// MustRegister is like Register but panics on error. Use at init time.
func (r *Registry) MustRegister(e *Entity) {
	if err := r.Register(e); err != nil {
		panic(err)
	}
}

// RegisterModel reflects a grove-style tagged model struct into an entity
// definition and registers it. Columns are read from `grove:"col,…"` or
// `db:"col"` struct tags, falling back to the snake_cased field name.
// Relations cannot be inferred from tags and are passed explicitly.
func (r *Registry) RegisterModel(name, table string, model any, relations ...Relation) error {
	e, err := FromModel(name, table, model, relations...)
	if err != nil {
		return err
	}
	return r.Register(e)
}

// Table returns the storage identifier for an entity.
func (r *Registry) Table(entity string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entities[entity]
	if !ok {
		return "", false
	}
	return e.Table, true
}

// Relation resolves a condition key as a relation on the given entity.
func (r *Registry) Relation(entity, field string) (Relation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entities[entity]
	if !ok {
		return Relation{}, false
	}
	rel, ok := e.Relations[field]
	return rel, ok
}

// HasField reports whether the entity has a plain (non-relation) field
// with the given name.
func (r *Registry) HasField(entity, field string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entities[entity]
	if !ok {
		return false
	}
	_, ok = e.Fields[field]
	return ok
}

// FromModel reflects a model struct into an entity definition without
// registering it.
func FromModel(name, table string, model any, relations ...Relation) (*Entity, error) {
	t := reflect.TypeOf(model)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("schema: entity %q: model must be a struct, got %T", name, model)
	}

	e := &Entity{
		Name:      name,
		Table:     table,
		Fields:    make(map[string]struct{}),
		Relations: make(map[string]Relation),
	}
	collectFields(t, e.Fields)

	for _, rel := range relations {
		if rel.Name == "" || rel.Entity == "" || rel.Table == "" {
			return nil, fmt.Errorf("schema: entity %q: relation requires name, entity and table", name)
		}
		e.Relations[rel.Name] = rel
	}
	return e, nil
}

func collectFields(t reflect.Type, fields map[string]struct{}) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			// Embedded structs (e.g. grove.BaseModel) contribute their own
			// tagged fields, not a column of their own.
			if ft.Kind() == reflect.Struct {
				collectFields(ft, fields)
			}
			continue
		}
		if !f.IsExported() {
			continue
		}
		col := columnName(f)
		if col == "" || col == "-" {
			continue
		}
		fields[col] = struct{}{}
	}
}

// columnName extracts the column from a grove or db struct tag, falling
// back to the snake_cased field name.
func columnName(f reflect.StructField) string {
	if tag, ok := f.Tag.Lookup("grove"); ok {
		col, _, _ := strings.Cut(tag, ",")
		if strings.Contains(col, ":") {
			// Option-style tag segment (e.g. "table:posts"), not a column.
			return ""
		}
		return col
	}
	if tag, ok := f.Tag.Lookup("db"); ok {
		col, _, _ := strings.Cut(tag, ",")
		return col
	}
	return snakeCase(f.Name)
}

func snakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			boundary := i > 0 && (unicode.IsLower(runes[i-1]) ||
				unicode.IsDigit(runes[i-1]) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1])))
			if boundary {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
