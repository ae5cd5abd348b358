// Package rule defines the authorization Rule entity and its condition types.
package rule

import (
	"strings"
	"time"

	"github.com/xraph/sift/id"
)

// Effect is the rule outcome — grant or deny.
type Effect string

const (
	// EffectGrant permits the action on matching records.
	EffectGrant Effect = "grant"

	// EffectDeny blocks the action on matching records.
	EffectDeny Effect = "deny"
)

// Wildcards accepted in rule declarations.
const (
	// AnyAction matches every action ("manage" in the declaration DSL).
	AnyAction = "manage"

	// AnySubject matches every subject type.
	AnySubject = "all"
)

// Conditions is a nested condition map scoping a rule to matching records.
//
// A key maps to one of:
//   - a scalar (equality comparison against a column),
//   - a slice (membership test),
//   - nil (IS NULL),
//   - another Conditions map, meaning the key names a relation on the
//     current entity and the nested map constrains the related entity.
type Conditions map[string]any

// Empty reports whether the condition map contributes no predicate.
func (c Conditions) Empty() bool { return len(c) == 0 }

// Clone returns a deep copy. Nested Conditions maps are copied recursively;
// scalar and slice values are shared (they are treated as immutable).
func (c Conditions) Clone() Conditions {
	if c == nil {
		return nil
	}
	out := make(Conditions, len(c))
	for k, v := range c {
		if nested, ok := v.(Conditions); ok {
			out[k] = nested.Clone()
			continue
		}
		out[k] = v
	}
	return out
}

// Fragment is a raw, engine-native predicate fragment supplied in place of
// a condition map. The compiler treats it as opaque: it is never merged
// field-by-field, only combined at the boolean level.
type Fragment struct {
	Expr string `json:"expr"`
	Args []any  `json:"args,omitempty"`
}

// Rule is one declared grant or denial of an action on a subject type,
// optionally scoped by conditions. Rules are immutable once declared and
// read-only for the lifetime of a compilation request.
type Rule struct {
	ID       id.RuleID `json:"id" db:"id"`
	TenantID string    `json:"tenant_id" db:"tenant_id"`
	AppID    string    `json:"app_id" db:"app_id"`

	// Effect is grant or deny.
	Effect Effect `json:"effect" db:"effect"`

	// Position is the declaration order within the ruleset, oldest first.
	// Later rules override earlier ones.
	Position int `json:"position" db:"position"`

	// Subject is the entity type the rule applies to (e.g. "Post"),
	// or AnySubject.
	Subject string `json:"subject" db:"subject"`

	// Action is the operation the rule grants or denies (e.g. "read"),
	// or AnyAction.
	Action string `json:"action" db:"action"`

	// Conditions scope the rule to matching records. Nil or empty means
	// the rule applies unconditionally.
	Conditions Conditions `json:"conditions,omitempty" db:"-"`

	// Fragment is an optional raw predicate replacing Conditions.
	Fragment *Fragment `json:"fragment,omitempty" db:"-"`

	// Scoped is an optional pre-built query scope (e.g. a grove query)
	// replacing Conditions. It cannot be merged with other non-empty
	// conditions.
	Scoped any `json:"-" db:"-"`

	Metadata  map[string]any `json:"metadata,omitempty" db:"metadata"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}

// Grant reports whether the rule is a grant.
func (r *Rule) Grant() bool { return r.Effect == EffectGrant }

// Unmergeable reports whether the rule's condition cannot be expressed as
// a plain condition map and forces per-rule fragment compilation.
func (r *Rule) Unmergeable() bool { return r.Fragment != nil || r.Scoped != nil }

// Unconditional reports whether the rule carries no scoping at all.
func (r *Rule) Unconditional() bool {
	return r.Conditions.Empty() && r.Fragment == nil && r.Scoped == nil
}

// Matches reports whether the rule applies to the given action and subject
// type, honoring the AnyAction/AnySubject wildcards and trailing globs
// (e.g. a subject of "Admin*" matches "AdminReport").
func (r *Rule) Matches(action, subject string) bool {
	return matchToken(r.Action, action, AnyAction) && matchToken(r.Subject, subject, AnySubject)
}

func matchToken(declared, requested, wildcard string) bool {
	if declared == wildcard || declared == "*" || declared == requested {
		return true
	}
	if strings.HasSuffix(declared, "*") {
		return strings.HasPrefix(requested, strings.TrimSuffix(declared, "*"))
	}
	return false
}

// ListFilter contains filters for listing rules.
type ListFilter struct {
	TenantID string `json:"tenant_id,omitempty"`
	Subject  string `json:"subject,omitempty"`
	Action   string `json:"action,omitempty"`
	Effect   Effect `json:"effect,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}
