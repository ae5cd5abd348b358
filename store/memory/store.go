// Package memory provides an in-memory implementation of the Sift rule
// store. It is intended for testing and development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/xraph/sift/id"
	"github.com/xraph/sift/rule"
	"github.com/xraph/sift/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// errNotFound is the sentinel for missing entities.
var errNotFound = fmt.Errorf("not found")

// Store is a thread-safe in-memory rule store.
type Store struct {
	mu    sync.RWMutex
	rules map[string]*rule.Rule
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{rules: make(map[string]*rule.Rule)}
}

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping is a no-op for the memory store.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }

func (s *Store) CreateRule(_ context.Context, r *rule.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[r.ID.String()] = copyRule(r)
	return nil
}

func (s *Store) GetRule(_ context.Context, ruleID id.RuleID) (*rule.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rules[ruleID.String()]
	if !ok {
		return nil, fmt.Errorf("rule %s: %w", ruleID, errNotFound)
	}
	return copyRule(r), nil
}

func (s *Store) UpdateRule(_ context.Context, r *rule.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[r.ID.String()]; !ok {
		return fmt.Errorf("rule %s: %w", r.ID, errNotFound)
	}
	s.rules[r.ID.String()] = copyRule(r)
	return nil
}

func (s *Store) DeleteRule(_ context.Context, ruleID id.RuleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rules, ruleID.String())
	return nil
}

func (s *Store) ListRules(_ context.Context, filter *rule.ListFilter) ([]*rule.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*rule.Rule, 0, len(s.rules))
	for _, r := range s.rules {
		if !matchesFilter(r, filter) {
			continue
		}
		result = append(result, copyRule(r))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Position < result[j].Position })
	return applyPagination(result, filter), nil
}

func (s *Store) CountRules(ctx context.Context, filter *rule.ListFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, r := range s.rules {
		if matchesFilter(r, filter) {
			n++
		}
	}
	return n, nil
}

func (s *Store) NextPosition(_ context.Context, tenantID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	next := 0
	for _, r := range s.rules {
		if r.TenantID == tenantID && r.Position >= next {
			next = r.Position + 1
		}
	}
	return next, nil
}

func (s *Store) DeleteRulesByTenant(_ context.Context, tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, r := range s.rules {
		if r.TenantID == tenantID {
			delete(s.rules, k)
		}
	}
	return nil
}

func matchesFilter(r *rule.Rule, filter *rule.ListFilter) bool {
	if filter == nil {
		return true
	}
	if filter.TenantID != "" && r.TenantID != filter.TenantID {
		return false
	}
	if filter.Subject != "" && r.Subject != filter.Subject {
		return false
	}
	if filter.Action != "" && r.Action != filter.Action {
		return false
	}
	if filter.Effect != "" && r.Effect != filter.Effect {
		return false
	}
	return true
}

func applyPagination(items []*rule.Rule, f *rule.ListFilter) []*rule.Rule {
	if f == nil {
		return items
	}
	if f.Offset > 0 {
		if f.Offset >= len(items) {
			return nil
		}
		items = items[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(items) {
		items = items[:f.Limit]
	}
	return items
}

func copyRule(r *rule.Rule) *rule.Rule {
	cp := *r
	cp.Conditions = r.Conditions.Clone()
	if r.Fragment != nil {
		frag := *r.Fragment
		cp.Fragment = &frag
	}
	if r.Metadata != nil {
		md := make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			md[k] = v
		}
		cp.Metadata = md
	}
	return &cp
}
