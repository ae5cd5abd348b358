package sift

import (
	"context"
	"sync"
	"time"

	"github.com/xraph/sift/id"
	"github.com/xraph/sift/rule"
)

// Ruleset collects rules in declaration order. Later rules win: a Cannot
// subtracts from every Can declared before it, a Can re-opens access a
// prior Cannot closed.
//
// A ruleset is typically built per actor (load the actor's rules, declare
// them oldest first) and then compiled for each action/subject pair the
// actor queries. It is safe for concurrent use; mutations bump an
// internal revision that keys the scope cache.
type Ruleset struct {
	mu       sync.RWMutex
	tenantID string
	rules    []*rule.Rule
	revision uint64
}

// NewRuleset creates an empty ruleset.
func NewRuleset() *Ruleset { return &Ruleset{} }

// NewTenantRuleset creates an empty ruleset stamped with a tenant ID.
func NewTenantRuleset(tenantID string) *Ruleset {
	return &Ruleset{tenantID: tenantID}
}

// LoadRuleset builds a ruleset from a store's rule snapshot for a tenant.
// The store returns rules ordered by position, so declaration order is
// preserved.
func LoadRuleset(ctx context.Context, s rule.Store, tenantID string) (*Ruleset, error) {
	rules, err := s.ListRules(ctx, &rule.ListFilter{TenantID: tenantID})
	if err != nil {
		return nil, err
	}
	rs := NewTenantRuleset(tenantID)
	for _, r := range rules {
		rs.AddRule(r)
	}
	return rs, nil
}

// Can declares a grant. The optional condition map narrows it to
// matching records; omitted, the grant is unconditional.
func (rs *Ruleset) Can(action, subject string, conds ...rule.Conditions) *rule.Rule {
	return rs.add(rule.EffectGrant, action, subject, firstConditions(conds), nil, nil)
}

// Cannot declares a denial, subtracting from prior grants.
func (rs *Ruleset) Cannot(action, subject string, conds ...rule.Conditions) *rule.Rule {
	return rs.add(rule.EffectDeny, action, subject, firstConditions(conds), nil, nil)
}

// CanFragment declares a grant scoped by a raw predicate fragment. The
// fragment is opaque to the compiler and forces fragment compilation for
// every rule matching the same action and subject.
func (rs *Ruleset) CanFragment(action, subject, expr string, args ...any) *rule.Rule {
	return rs.add(rule.EffectGrant, action, subject, nil, &rule.Fragment{Expr: expr, Args: args}, nil)
}

// CannotFragment declares a denial scoped by a raw predicate fragment.
func (rs *Ruleset) CannotFragment(action, subject, expr string, args ...any) *rule.Rule {
	return rs.add(rule.EffectDeny, action, subject, nil, &rule.Fragment{Expr: expr, Args: args}, nil)
}

// CanScoped declares a grant backed by a pre-built query scope (e.g. a
// grove query). A scoped grant must stand alone for its action/subject:
// compilation fails with ErrConflictingScopes if it would have to merge
// with another non-empty condition.
func (rs *Ruleset) CanScoped(action, subject string, scoped any) *rule.Rule {
	return rs.add(rule.EffectGrant, action, subject, nil, nil, scoped)
}

func (rs *Ruleset) add(effect rule.Effect, action, subject string, conds rule.Conditions, frag *rule.Fragment, scoped any) *rule.Rule {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	now := time.Now().UTC()
	r := &rule.Rule{
		ID:         id.NewRuleID(),
		TenantID:   rs.tenantID,
		Effect:     effect,
		Position:   len(rs.rules),
		Subject:    subject,
		Action:     action,
		Conditions: conds,
		Fragment:   frag,
		Scoped:     scoped,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	rs.rules = append(rs.rules, r)
	rs.revision++
	return r
}

// AddRule appends an already-built rule, e.g. one loaded from a store.
// Position is rewritten to preserve declaration order.
func (rs *Ruleset) AddRule(r *rule.Rule) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	r.Position = len(rs.rules)
	rs.rules = append(rs.rules, r)
	rs.revision++
}

// RemoveRule deletes a rule by ID. It reports whether a rule was removed.
func (rs *Ruleset) RemoveRule(ruleID id.RuleID) bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	for i, r := range rs.rules {
		if r.ID.String() == ruleID.String() {
			rs.rules = append(rs.rules[:i], rs.rules[i+1:]...)
			for j := i; j < len(rs.rules); j++ {
				rs.rules[j].Position = j
			}
			rs.revision++
			return true
		}
	}
	return false
}

// Rules returns a copy of the snapshot, ordered oldest first.
func (rs *Ruleset) Rules() []*rule.Rule {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	out := make([]*rule.Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// RulesFor returns the rules matching an action and subject, ordered
// oldest first.
func (rs *Ruleset) RulesFor(action, subject string) []*rule.Rule {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	var out []*rule.Rule
	for _, r := range rs.rules {
		if r.Matches(action, subject) {
			out = append(out, r)
		}
	}
	return out
}

// Revision returns the mutation counter. It changes on every Can/Cannot
// declaration and keys cached scopes.
func (rs *Ruleset) Revision() uint64 {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return rs.revision
}

// Len returns the number of declared rules.
func (rs *Ruleset) Len() int {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return len(rs.rules)
}

// TenantID returns the tenant the ruleset was built for, if any.
func (rs *Ruleset) TenantID() string { return rs.tenantID }

func firstConditions(conds []rule.Conditions) rule.Conditions {
	if len(conds) == 0 {
		return nil
	}
	return conds[0]
}
