// Package plugin defines the plugin system for Sift.
// Plugins are notified of lifecycle events (scope compiled, rule created,
// rule deleted, etc.) and can react — logging, metrics, tracing, etc.
//
// Each lifecycle hook is a separate interface so plugins opt in only
// to the events they care about.
package plugin

import (
	"context"

	"github.com/xraph/sift/id"
	"github.com/xraph/sift/rule"
)

// Plugin is the base interface all plugins must implement.
type Plugin interface {
	// Name returns a unique human-readable name for the plugin.
	Name() string
}

// ──────────────────────────────────────────────────
// Compile lifecycle hooks
// ──────────────────────────────────────────────────

// BeforeCompile is called before a scope compilation runs.
// The req parameter is *sift.ScopeRequest (passed as any to avoid import cycle).
type BeforeCompile interface {
	OnBeforeCompile(ctx context.Context, req any) error
}

// AfterCompile is called after a scope compilation completes.
// The req parameter is *sift.ScopeRequest; scope is *sift.Scope.
type AfterCompile interface {
	OnAfterCompile(ctx context.Context, req, scope any) error
}

// ──────────────────────────────────────────────────
// Rule lifecycle hooks
// ──────────────────────────────────────────────────

// RuleCreated is called after a rule is persisted.
type RuleCreated interface {
	OnRuleCreated(ctx context.Context, r *rule.Rule) error
}

// RuleUpdated is called after a rule is updated.
type RuleUpdated interface {
	OnRuleUpdated(ctx context.Context, r *rule.Rule) error
}

// RuleDeleted is called after a rule is deleted.
type RuleDeleted interface {
	OnRuleDeleted(ctx context.Context, ruleID id.RuleID) error
}

// ──────────────────────────────────────────────────
// Shutdown hook
// ──────────────────────────────────────────────────

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
