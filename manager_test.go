package sift

import (
	"context"
	"testing"

	"github.com/xraph/sift/id"
	"github.com/xraph/sift/rule"
	"github.com/xraph/sift/store/memory"
)

// lifecyclePlugin records rule lifecycle notifications.
type lifecyclePlugin struct {
	created, updated, deleted int
}

func (lifecyclePlugin) Name() string { return "lifecycle" }

func (p *lifecyclePlugin) OnRuleCreated(_ context.Context, _ *rule.Rule) error {
	p.created++
	return nil
}

func (p *lifecyclePlugin) OnRuleUpdated(_ context.Context, _ *rule.Rule) error {
	p.updated++
	return nil
}

func (p *lifecyclePlugin) OnRuleDeleted(_ context.Context, _ id.RuleID) error {
	p.deleted++
	return nil
}

func TestManager_Lifecycle(t *testing.T) {
	ctx := context.Background()
	lp := &lifecyclePlugin{}
	cc := &captureCache{}
	c := newTestCompiler(t, WithPlugin(lp), WithCache(cc))
	m := c.Manager(memory.New())

	r := &rule.Rule{
		TenantID: "tenant-1",
		Effect:   rule.EffectGrant,
		Position: -1,
		Action:   "read",
		Subject:  "Post",
	}
	if err := m.CreateRule(ctx, r); err != nil {
		t.Fatal(err)
	}
	if r.ID.IsNil() {
		t.Fatal("CreateRule must stamp an ID")
	}
	if r.Position != 0 {
		t.Fatalf("first rule position = %d, want 0", r.Position)
	}

	second := &rule.Rule{
		TenantID: "tenant-1",
		Effect:   rule.EffectDeny,
		Position: -1,
		Action:   "read",
		Subject:  "Post",
	}
	if err := m.CreateRule(ctx, second); err != nil {
		t.Fatal(err)
	}
	if second.Position != 1 {
		t.Fatalf("second rule position = %d, want 1", second.Position)
	}

	r.Action = "update"
	if err := m.UpdateRule(ctx, r); err != nil {
		t.Fatal(err)
	}
	if err := m.DeleteRule(ctx, second.ID); err != nil {
		t.Fatal(err)
	}

	if lp.created != 2 || lp.updated != 1 || lp.deleted != 1 {
		t.Fatalf("lifecycle hooks = %+v", lp)
	}

	rs, err := m.Ruleset(ctx, "tenant-1")
	if err != nil {
		t.Fatal(err)
	}
	if rs.Len() != 1 {
		t.Fatalf("loaded %d rules, want 1", rs.Len())
	}
}

func TestManager_InvalidatesCache(t *testing.T) {
	ctx := context.Background()
	cc := &captureCache{}
	c := newTestCompiler(t, WithCache(cc))
	m := c.Manager(memory.New())

	rs := NewTenantRuleset("tenant-1")
	rs.Can("read", "Post")
	compile(t, c, rs, "read", "Post")
	if cc.scope == nil {
		t.Fatal("compile should populate the cache")
	}

	err := m.CreateRule(ctx, &rule.Rule{
		TenantID: "tenant-1",
		Effect:   rule.EffectDeny,
		Action:   "read",
		Subject:  "Post",
	})
	if err != nil {
		t.Fatal(err)
	}
	if cc.scope != nil {
		t.Fatal("rule mutation must invalidate cached scopes")
	}
}

func TestManager_CreateRuleValidates(t *testing.T) {
	c := newTestCompiler(t)
	m := c.Manager(memory.New())

	if err := m.CreateRule(context.Background(), &rule.Rule{Action: "read"}); err == nil {
		t.Fatal("expected error for rule without subject")
	}
}
