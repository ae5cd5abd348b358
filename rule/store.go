package rule

import (
	"context"

	"github.com/xraph/sift/id"
)

// Store defines persistence operations for authorization rules.
// Listings are always ordered by declaration position, oldest first,
// so a loaded snapshot can be compiled without re-sorting.
type Store interface {
	// CreateRule persists a new rule.
	CreateRule(ctx context.Context, r *Rule) error

	// GetRule retrieves a rule by ID.
	GetRule(ctx context.Context, ruleID id.RuleID) (*Rule, error)

	// UpdateRule persists changes to a rule.
	UpdateRule(ctx context.Context, r *Rule) error

	// DeleteRule removes a rule by ID.
	DeleteRule(ctx context.Context, ruleID id.RuleID) error

	// ListRules returns rules matching the filter, ordered by position.
	ListRules(ctx context.Context, filter *ListFilter) ([]*Rule, error)

	// CountRules returns the number of rules matching the filter.
	CountRules(ctx context.Context, filter *ListFilter) (int64, error)

	// NextPosition returns the next declaration position for a tenant.
	NextPosition(ctx context.Context, tenantID string) (int, error)

	// DeleteRulesByTenant removes all rules for a tenant.
	DeleteRulesByTenant(ctx context.Context, tenantID string) error
}
