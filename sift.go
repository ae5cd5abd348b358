// Package sift compiles ordered authorization rules into query scopes.
//
// A ruleset declares grants and denials (Can / Cannot) for actions on
// subject types, each optionally narrowed by a nested condition map, a
// raw predicate fragment, or a pre-built query scope. The compiler folds
// the rules that match a requested action and subject into a single
// boolean predicate tree plus a relation join plan, which renderers
// (render/sql, render/mongo) translate into engine-native filters.
//
// Rules are declaration-ordered and later rules win: a denial subtracts
// from every grant declared before it, a grant re-opens access a prior
// denial closed. An empty matching set compiles to a predicate that
// matches nothing.
package sift

import (
	"github.com/xraph/sift/rule"
	"github.com/xraph/sift/schema"
)

// Qualified is a normalized condition map. Keys are either plain field
// names on the root entity, or storage identifiers (table names) of
// related entities, in which case the value is a map[string]any of
// field conditions on that entity. All relation traversal has been
// resolved against the schema; renderers consume it without further
// lookups.
type Qualified map[string]any

// Clone returns a deep copy of the qualified map.
func (q Qualified) Clone() Qualified {
	if q == nil {
		return nil
	}
	out := make(Qualified, len(q))
	for k, v := range q {
		if m, ok := v.(map[string]any); ok {
			cp := make(map[string]any, len(m))
			for mk, mv := range m {
				cp[mk] = mv
			}
			out[k] = cp
			continue
		}
		out[k] = v
	}
	return out
}

// Schema is the relation-metadata lookup the compiler consults to
// distinguish plain fields from relations. *schema.Registry satisfies it.
type Schema interface {
	// Table returns the storage identifier for an entity type.
	Table(entity string) (string, bool)

	// Relation resolves a condition key as a relation on the entity.
	Relation(entity, field string) (schema.Relation, bool)

	// HasField reports whether the entity has a plain field by that name.
	HasField(entity, field string) bool
}

// Sanitizer renders a qualified condition map into a sanitized
// engine-native fragment. The unmergeable compilation path uses it to
// turn every condition-map rule into a fragment leaf so it can be
// combined with raw fragments at the boolean level. render/sql
// implements it.
type Sanitizer interface {
	Sanitize(rootTable string, conds Qualified) (*rule.Fragment, error)
}

// Join is one relation traversal in a join plan. Nested traversals are
// recorded in declaration-independent sorted order.
type Join struct {
	// Relation is the relation name on the parent entity.
	Relation string `json:"relation"`

	// Table is the related entity's storage identifier.
	Table string `json:"table"`

	// Nested holds traversals continuing from the related entity.
	Nested []Join `json:"nested,omitempty"`
}

// ScopeRequest describes one compilation: which action on which subject
// type, against which ordered rule snapshot.
type ScopeRequest struct {
	// Action is the requested operation (e.g. "read").
	Action string `json:"action"`

	// Subject is the entity type being queried (e.g. "Post"). It must be
	// registered in the schema.
	Subject string `json:"subject"`

	// Rules is the candidate rule snapshot, ordered by declaration
	// position, oldest first. The compiler filters it down to the rules
	// matching Action and Subject.
	Rules []*rule.Rule `json:"-"`

	// Revision distinguishes rule snapshots for caching. Rulesets bump it
	// on every mutation.
	Revision uint64 `json:"revision,omitempty"`

	// SkipCache bypasses the scope cache for this request.
	SkipCache bool `json:"skip_cache,omitempty"`
}

// Scope is the compiled result: a predicate tree plus the join plan
// needed to evaluate it.
type Scope struct {
	Subject string `json:"subject"`
	Action  string `json:"action"`

	// Predicate is the folded boolean predicate. Never nil.
	Predicate *Predicate `json:"predicate"`

	// Joins is the deep-merged relation join plan for every relation any
	// matching rule traversed.
	Joins []Join `json:"joins,omitempty"`

	// Excluded lists the dotted relation paths whose conditions could not
	// be flattened into the parent's inline condition map, sorted. Their
	// conditions appear table-qualified at the top level of leaf maps.
	Excluded []string `json:"excluded,omitempty"`

	// Scoped carries a pre-built query scope when the compilation reduced
	// to exactly one. The predicate is a scope leaf in that case and
	// renderers refuse it; apply Scoped directly instead.
	Scoped any `json:"-"`

	// CompileTimeNs is how long the compilation took, in nanoseconds.
	CompileTimeNs int64 `json:"compile_time_ns"`

	// Cached indicates the scope was served from cache.
	Cached bool `json:"cached,omitempty"`
}

// MatchesNothing reports whether the scope can never match a record.
func (s *Scope) MatchesNothing() bool {
	return s.Predicate != nil && s.Predicate.Kind == PredicateFalse
}

// MatchesEverything reports whether the scope matches all records.
func (s *Scope) MatchesEverything() bool {
	if s.Predicate == nil {
		return false
	}
	if s.Predicate.Kind == PredicateTrue {
		return true
	}
	// A single grant compiles to a bare leaf even when unconditional.
	return s.Predicate.Kind == PredicateLeaf &&
		s.Predicate.Scoped == nil &&
		s.Predicate.Frag == nil &&
		len(s.Predicate.Conds) == 0
}
