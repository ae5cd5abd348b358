package sift

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/sift/id"
	"github.com/xraph/sift/rule"
)

// Manager mediates rule mutations against a store. It stamps IDs and
// declaration positions, invalidates cached scopes for the affected
// tenant, and fires the rule lifecycle hooks.
//
// Compilation reads rules through Ruleset snapshots; the manager is the
// write side.
type Manager struct {
	compiler *Compiler
	store    rule.Store
}

// Manager returns a rule manager backed by the given store, sharing the
// compiler's cache and plugin registry.
func (c *Compiler) Manager(s rule.Store) *Manager {
	return &Manager{compiler: c, store: s}
}

// CreateRule persists a rule. A zero ID is stamped, a negative position
// is assigned the tenant's next declaration slot.
func (m *Manager) CreateRule(ctx context.Context, r *rule.Rule) error {
	if r == nil || r.Action == "" || r.Subject == "" {
		return errors.New("sift: rule action and subject are required")
	}
	if r.ID.IsNil() {
		r.ID = id.NewRuleID()
	}
	if r.Position < 0 {
		pos, err := m.store.NextPosition(ctx, r.TenantID)
		if err != nil {
			return fmt.Errorf("sift: assigning rule position: %w", err)
		}
		r.Position = pos
	}
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now

	if err := m.store.CreateRule(ctx, r); err != nil {
		return err
	}
	m.invalidate(ctx, r.TenantID)
	if p := m.compiler.plugins; p != nil {
		p.EmitRuleCreated(ctx, r)
	}
	return nil
}

// UpdateRule persists changes to an existing rule.
func (m *Manager) UpdateRule(ctx context.Context, r *rule.Rule) error {
	r.UpdatedAt = time.Now().UTC()
	if err := m.store.UpdateRule(ctx, r); err != nil {
		return err
	}
	m.invalidate(ctx, r.TenantID)
	if p := m.compiler.plugins; p != nil {
		p.EmitRuleUpdated(ctx, r)
	}
	return nil
}

// DeleteRule removes a rule by ID.
func (m *Manager) DeleteRule(ctx context.Context, ruleID id.RuleID) error {
	r, err := m.store.GetRule(ctx, ruleID)
	if err != nil {
		return err
	}
	if err := m.store.DeleteRule(ctx, ruleID); err != nil {
		return err
	}
	m.invalidate(ctx, r.TenantID)
	if p := m.compiler.plugins; p != nil {
		p.EmitRuleDeleted(ctx, ruleID)
	}
	return nil
}

// Ruleset loads the tenant's current rule snapshot.
func (m *Manager) Ruleset(ctx context.Context, tenantID string) (*Ruleset, error) {
	return LoadRuleset(ctx, m.store, tenantID)
}

func (m *Manager) invalidate(ctx context.Context, tenantID string) {
	if m.compiler.cache != nil {
		m.compiler.cache.InvalidateTenant(ctx, tenantID)
	}
}
