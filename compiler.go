package sift

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/sift/plugin"
	"github.com/xraph/sift/rule"
)

// Compiler turns an ordered rule snapshot into a compiled query scope.
// It coordinates join planning, condition normalization and the
// predicate fold, manages the scope cache, and fires extension hooks.
type Compiler struct {
	schema    Schema
	sanitizer Sanitizer
	cache     Cache
	plugins   *plugin.Registry
	logger    *slog.Logger
	config    Config
}

// NewCompiler creates a new Sift compiler with the given options.
func NewCompiler(opts ...Option) (*Compiler, error) {
	c := &Compiler{
		logger: slog.Default(),
		config: DefaultConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.schema == nil {
		return nil, errors.New("sift: schema is required")
	}
	if c.config.MaxConditionDepth <= 0 {
		c.config.MaxConditionDepth = DefaultConfig().MaxConditionDepth
	}
	return c, nil
}

// Schema returns the relation-metadata lookup.
func (c *Compiler) Schema() Schema { return c.schema }

// Plugins returns the plugin registry (may be nil).
func (c *Compiler) Plugins() *plugin.Registry { return c.plugins }

// Stop performs graceful shutdown.
func (c *Compiler) Stop(ctx context.Context) error {
	if c.plugins != nil {
		c.plugins.EmitShutdown(ctx)
	}
	return nil
}

// Compile builds the query scope for one action on one subject type.
// This is the hot path.
func (c *Compiler) Compile(ctx context.Context, req *ScopeRequest) (*Scope, error) {
	start := time.Now()
	tenant := scopeFromContext(ctx)

	if req == nil || req.Action == "" || req.Subject == "" {
		return nil, errors.New("sift: action and subject are required")
	}

	// 1. Cache hit?
	if c.cache != nil && !req.SkipCache {
		if cached, ok := c.cache.Get(ctx, tenant.tenantID, req); ok {
			cached.Cached = true
			return cached, nil
		}
	}

	// 1b. Extension hook: before compile.
	if c.plugins != nil {
		c.plugins.EmitBeforeCompile(ctx, req)
	}

	// 2. Filter the snapshot down to the matching rules, keeping order.
	matching := make([]*rule.Rule, 0, len(req.Rules))
	for _, r := range req.Rules {
		if r.Matches(req.Action, req.Subject) {
			matching = append(matching, r)
		}
	}

	// 3. Plan joins, normalize conditions, fold the predicate.
	scope, err := c.compile(req.Action, req.Subject, matching)
	if err != nil {
		return nil, err
	}
	scope.CompileTimeNs = time.Since(start).Nanoseconds()

	// 4. Cache the result.
	if c.cache != nil && !req.SkipCache {
		c.cache.Set(ctx, tenant.tenantID, req, scope)
	}

	// 5. Extension hook: after compile.
	if c.plugins != nil {
		c.plugins.EmitAfterCompile(ctx, req, scope)
	}

	c.logger.Debug("scope compiled",
		slog.String("action", req.Action),
		slog.String("subject", req.Subject),
		slog.Int("rules", len(matching)),
		slog.String("predicate", scope.Predicate.String()),
	)
	return scope, nil
}

// CompileRuleset is a shorthand that compiles against a ruleset's
// current snapshot.
func (c *Compiler) CompileRuleset(ctx context.Context, rs *Ruleset, action, subject string) (*Scope, error) {
	return c.Compile(ctx, &ScopeRequest{
		Action:   action,
		Subject:  subject,
		Rules:    rs.Rules(),
		Revision: rs.Revision(),
	})
}

// compile runs the compilation pipeline over the matching rules.
func (c *Compiler) compile(action, subject string, rules []*rule.Rule) (*Scope, error) {
	out := &Scope{Subject: subject, Action: action}

	// No matching grant means no access: the scope matches nothing.
	if len(rules) == 0 {
		out.Predicate = False()
		return out, nil
	}

	rootTable, ok := c.schema.Table(subject)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, subject)
	}

	// 1. Join plan first. Its exclusion set drives normalization, so the
	// result depends only on the snapshot, not on declaration order.
	strict := c.config.strictFields()
	joins, excluded, err := planJoins(c.schema, subject, rules, c.config.MaxConditionDepth, strict)
	if err != nil {
		return nil, fmt.Errorf("sift: planning joins for %s %s: %w", action, subject, err)
	}
	out.Joins = joins
	out.Excluded = sortedExcluded(excluded)

	// 2. Any raw fragment forces the unmergeable path: every condition
	// map is sanitized into a fragment so all leaves combine uniformly.
	// The sanitizer is only required when there is a condition map to
	// sanitize alongside the fragments.
	unmergeable := false
	hasConds := false
	for _, r := range rules {
		if r.Fragment != nil {
			unmergeable = true
		}
		if r.Fragment == nil && r.Scoped == nil && !r.Conditions.Empty() {
			hasConds = true
		}
	}
	if unmergeable && hasConds && c.sanitizer == nil {
		return nil, fmt.Errorf("%w (action %q, subject %q)", ErrSanitizerRequired, action, subject)
	}

	// 3. Build one leaf per rule.
	leaves := make([]*Predicate, len(rules))
	for i, r := range rules {
		leaf, err := c.ruleLeaf(subject, rootTable, r, excluded, unmergeable, strict)
		if err != nil {
			return nil, err
		}
		leaves[i] = leaf
	}

	// 4. Single grant compiles to its bare leaf, even when unconditional.
	if len(rules) == 1 && rules[0].Grant() {
		out.Predicate = leaves[0]
		if leaves[0].scopeLeaf() {
			out.Scoped = leaves[0].Scoped
		}
		return out, nil
	}

	// 5. Fold oldest first, seeded with FALSE, so later rules override
	// earlier ones.
	acc := False()
	for i, r := range rules {
		acc, err = merge(acc, leaves[i], r.Grant())
		if err != nil {
			return nil, fmt.Errorf("%w (action %q, subject %q)", err, action, subject)
		}
	}
	out.Predicate = acc
	if acc.scopeLeaf() {
		out.Scoped = acc.Scoped
	}
	return out, nil
}

// ruleLeaf builds the predicate leaf for one rule.
func (c *Compiler) ruleLeaf(subject, rootTable string, r *rule.Rule, excluded map[string]bool, unmergeable, strict bool) (*Predicate, error) {
	if r.Scoped != nil {
		if !r.Conditions.Empty() || r.Fragment != nil {
			return nil, fmt.Errorf("%w: rule %s carries both a scope and other conditions",
				ErrConflictingScopes, r.ID)
		}
		return ScopeLeaf(r.Scoped), nil
	}
	if r.Fragment != nil {
		return FragmentLeaf(r.Fragment), nil
	}
	if r.Conditions.Empty() {
		return Leaf(Qualified{}), nil
	}

	q, err := normalizeConditions(c.schema, subject, r.Conditions, excluded, strict)
	if err != nil {
		return nil, fmt.Errorf("sift: rule %s: %w", r.ID, err)
	}
	if unmergeable {
		frag, err := c.sanitizer.Sanitize(rootTable, q)
		if err != nil {
			return nil, fmt.Errorf("sift: sanitizing rule %s: %w", r.ID, err)
		}
		return FragmentLeaf(frag), nil
	}
	return Leaf(q), nil
}
