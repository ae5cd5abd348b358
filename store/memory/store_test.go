package memory

import (
	"context"
	"testing"
	"time"

	"github.com/xraph/sift/id"
	"github.com/xraph/sift/rule"
)

func newRule(tenantID, action, subject string, position int, effect rule.Effect) *rule.Rule {
	now := time.Now().UTC()
	return &rule.Rule{
		ID:        id.NewRuleID(),
		TenantID:  tenantID,
		Effect:    effect,
		Position:  position,
		Subject:   subject,
		Action:    action,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestRuleCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	r := newRule("tenant-1", "read", "Post", 0, rule.EffectGrant)
	r.Conditions = rule.Conditions{"published": true}
	if err := s.CreateRule(ctx, r); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetRule(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Action != "read" || got.Subject != "Post" {
		t.Fatalf("got %s %s", got.Action, got.Subject)
	}
	if got.Conditions["published"] != true {
		t.Fatalf("conditions lost: %v", got.Conditions)
	}

	// Stored rules are copies: mutating the returned rule must not leak
	// back into the store.
	got.Conditions["published"] = false
	again, err := s.GetRule(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if again.Conditions["published"] != true {
		t.Fatal("store shares condition maps with callers")
	}

	r.Action = "update"
	if err := s.UpdateRule(ctx, r); err != nil {
		t.Fatal(err)
	}
	got, err = s.GetRule(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Action != "update" {
		t.Fatalf("update not applied: %s", got.Action)
	}

	if err := s.DeleteRule(ctx, r.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetRule(ctx, r.ID); err == nil {
		t.Fatal("expected error after delete")
	}
}

func TestUpdateMissingRule(t *testing.T) {
	ctx := context.Background()
	s := New()

	r := newRule("tenant-1", "read", "Post", 0, rule.EffectGrant)
	if err := s.UpdateRule(ctx, r); err == nil {
		t.Fatal("expected error updating a missing rule")
	}
}

func TestListRulesOrderAndFilter(t *testing.T) {
	ctx := context.Background()
	s := New()

	// Insert out of order; listing must come back by position.
	rules := []*rule.Rule{
		newRule("tenant-1", "update", "Post", 2, rule.EffectDeny),
		newRule("tenant-1", "read", "Post", 0, rule.EffectGrant),
		newRule("tenant-1", "read", "Comment", 1, rule.EffectGrant),
		newRule("tenant-2", "read", "Post", 0, rule.EffectGrant),
	}
	for _, r := range rules {
		if err := s.CreateRule(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	listed, err := s.ListRules(ctx, &rule.ListFilter{TenantID: "tenant-1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(listed) != 3 {
		t.Fatalf("listed %d rules, want 3", len(listed))
	}
	for i, r := range listed {
		if r.Position != i {
			t.Fatalf("rule %d has position %d", i, r.Position)
		}
	}

	grants, err := s.ListRules(ctx, &rule.ListFilter{TenantID: "tenant-1", Effect: rule.EffectGrant})
	if err != nil {
		t.Fatal(err)
	}
	if len(grants) != 2 {
		t.Fatalf("listed %d grants, want 2", len(grants))
	}

	posts, err := s.ListRules(ctx, &rule.ListFilter{TenantID: "tenant-1", Subject: "Post", Action: "read"})
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 1 {
		t.Fatalf("listed %d read-Post rules, want 1", len(posts))
	}

	n, err := s.CountRules(ctx, &rule.ListFilter{TenantID: "tenant-1"})
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("count = %d, want 3", n)
	}
}

func TestListRulesPagination(t *testing.T) {
	ctx := context.Background()
	s := New()
	for i := 0; i < 5; i++ {
		if err := s.CreateRule(ctx, newRule("tenant-1", "read", "Post", i, rule.EffectGrant)); err != nil {
			t.Fatal(err)
		}
	}

	page, err := s.ListRules(ctx, &rule.ListFilter{TenantID: "tenant-1", Offset: 2, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 || page[0].Position != 2 || page[1].Position != 3 {
		t.Fatalf("unexpected page: %v", page)
	}

	empty, err := s.ListRules(ctx, &rule.ListFilter{TenantID: "tenant-1", Offset: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty page, got %d", len(empty))
	}
}

func TestNextPosition(t *testing.T) {
	ctx := context.Background()
	s := New()

	next, err := s.NextPosition(ctx, "tenant-1")
	if err != nil {
		t.Fatal(err)
	}
	if next != 0 {
		t.Fatalf("empty store next position = %d", next)
	}

	if err := s.CreateRule(ctx, newRule("tenant-1", "read", "Post", 4, rule.EffectGrant)); err != nil {
		t.Fatal(err)
	}
	next, err = s.NextPosition(ctx, "tenant-1")
	if err != nil {
		t.Fatal(err)
	}
	if next != 5 {
		t.Fatalf("next position = %d, want 5", next)
	}
}

func TestDeleteRulesByTenant(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.CreateRule(ctx, newRule("tenant-1", "read", "Post", 0, rule.EffectGrant)); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateRule(ctx, newRule("tenant-2", "read", "Post", 0, rule.EffectGrant)); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteRulesByTenant(ctx, "tenant-1"); err != nil {
		t.Fatal(err)
	}
	n, err := s.CountRules(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("count after tenant delete = %d, want 1", n)
	}
}
