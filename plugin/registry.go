package plugin

import (
	"context"
	"log/slog"

	"github.com/xraph/sift/id"
	"github.com/xraph/sift/rule"
)

// Named entry types pair a hook with the plugin name for logging.

type beforeCompileEntry struct {
	name string
	hook BeforeCompile
}
type afterCompileEntry struct {
	name string
	hook AfterCompile
}
type ruleCreatedEntry struct {
	name string
	hook RuleCreated
}
type ruleUpdatedEntry struct {
	name string
	hook RuleUpdated
}
type ruleDeletedEntry struct {
	name string
	hook RuleDeleted
}
type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered plugins and dispatches lifecycle events.
// It type-caches plugins at registration time so emit calls iterate
// only over plugins implementing the relevant hook.
type Registry struct {
	plugins []Plugin
	logger  *slog.Logger

	beforeCompile []beforeCompileEntry
	afterCompile  []afterCompileEntry
	ruleCreated   []ruleCreatedEntry
	ruleUpdated   []ruleUpdatedEntry
	ruleDeleted   []ruleDeletedEntry
	shutdown      []shutdownEntry
}

// NewRegistry creates a plugin registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds a plugin and type-asserts it into all applicable
// hook caches. Plugins are notified in registration order.
func (r *Registry) Register(p Plugin) {
	r.plugins = append(r.plugins, p)
	name := p.Name()

	if h, ok := p.(BeforeCompile); ok {
		r.beforeCompile = append(r.beforeCompile, beforeCompileEntry{name, h})
	}
	if h, ok := p.(AfterCompile); ok {
		r.afterCompile = append(r.afterCompile, afterCompileEntry{name, h})
	}
	if h, ok := p.(RuleCreated); ok {
		r.ruleCreated = append(r.ruleCreated, ruleCreatedEntry{name, h})
	}
	if h, ok := p.(RuleUpdated); ok {
		r.ruleUpdated = append(r.ruleUpdated, ruleUpdatedEntry{name, h})
	}
	if h, ok := p.(RuleDeleted); ok {
		r.ruleDeleted = append(r.ruleDeleted, ruleDeletedEntry{name, h})
	}
	if h, ok := p.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Plugins returns all registered plugins.
func (r *Registry) Plugins() []Plugin { return r.plugins }

// ──────────────────────────────────────────────────
// Compile event emitters
// ──────────────────────────────────────────────────

// EmitBeforeCompile notifies all plugins that implement BeforeCompile.
func (r *Registry) EmitBeforeCompile(ctx context.Context, req any) {
	for _, e := range r.beforeCompile {
		if err := e.hook.OnBeforeCompile(ctx, req); err != nil {
			r.logHookError("OnBeforeCompile", e.name, err)
		}
	}
}

// EmitAfterCompile notifies all plugins that implement AfterCompile.
func (r *Registry) EmitAfterCompile(ctx context.Context, req, scope any) {
	for _, e := range r.afterCompile {
		if err := e.hook.OnAfterCompile(ctx, req, scope); err != nil {
			r.logHookError("OnAfterCompile", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Rule event emitters
// ──────────────────────────────────────────────────

// EmitRuleCreated notifies all plugins that implement RuleCreated.
func (r *Registry) EmitRuleCreated(ctx context.Context, rl *rule.Rule) {
	for _, e := range r.ruleCreated {
		if err := e.hook.OnRuleCreated(ctx, rl); err != nil {
			r.logHookError("OnRuleCreated", e.name, err)
		}
	}
}

// EmitRuleUpdated notifies all plugins that implement RuleUpdated.
func (r *Registry) EmitRuleUpdated(ctx context.Context, rl *rule.Rule) {
	for _, e := range r.ruleUpdated {
		if err := e.hook.OnRuleUpdated(ctx, rl); err != nil {
			r.logHookError("OnRuleUpdated", e.name, err)
		}
	}
}

// EmitRuleDeleted notifies all plugins that implement RuleDeleted.
func (r *Registry) EmitRuleDeleted(ctx context.Context, ruleID id.RuleID) {
	for _, e := range r.ruleDeleted {
		if err := e.hook.OnRuleDeleted(ctx, ruleID); err != nil {
			r.logHookError("OnRuleDeleted", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Shutdown emitter
// ──────────────────────────────────────────────────

// EmitShutdown notifies all plugins that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated — they must not block the pipeline.
func (r *Registry) logHookError(hook, pluginName string, err error) {
	r.logger.Warn("plugin hook error",
		slog.String("hook", hook),
		slog.String("plugin", pluginName),
		slog.String("error", err.Error()),
	)
}
