package postgres

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/sift/id"
	"github.com/xraph/sift/rule"
)

// ──────────────────────────────────────────────────
// Rule model
// ──────────────────────────────────────────────────

type ruleModel struct {
	grove.BaseModel `grove:"table:sift_rules"`
	ID              string         `grove:"id,pk"`
	TenantID        string         `grove:"tenant_id,notnull"`
	AppID           string         `grove:"app_id,notnull"`
	Effect          string         `grove:"effect,notnull"`
	Position        int            `grove:"position,notnull"`
	Subject         string         `grove:"subject,notnull"`
	Action          string         `grove:"action,notnull"`
	Conditions      map[string]any `grove:"conditions,type:jsonb"`
	FragmentExpr    *string        `grove:"fragment_expr"`
	FragmentArgs    []any          `grove:"fragment_args,type:jsonb"`
	Metadata        map[string]any `grove:"metadata,type:jsonb"`
	CreatedAt       time.Time      `grove:"created_at,notnull"`
	UpdatedAt       time.Time      `grove:"updated_at,notnull"`
}

func ruleToModel(r *rule.Rule) *ruleModel {
	m := &ruleModel{
		ID:         r.ID.String(),
		TenantID:   r.TenantID,
		AppID:      r.AppID,
		Effect:     string(r.Effect),
		Position:   r.Position,
		Subject:    r.Subject,
		Action:     r.Action,
		Conditions: r.Conditions,
		Metadata:   r.Metadata,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.Fragment != nil {
		expr := r.Fragment.Expr
		m.FragmentExpr = &expr
		m.FragmentArgs = r.Fragment.Args
	}
	return m
}

func ruleFromModel(m *ruleModel) *rule.Rule {
	rid, _ := id.ParseRuleID(m.ID) //nolint:errcheck // stored IDs are always valid
	r := &rule.Rule{
		ID:         rid,
		TenantID:   m.TenantID,
		AppID:      m.AppID,
		Effect:     rule.Effect(m.Effect),
		Position:   m.Position,
		Subject:    m.Subject,
		Action:     m.Action,
		Conditions: reviveConditions(m.Conditions),
		Metadata:   m.Metadata,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
	if m.FragmentExpr != nil {
		r.Fragment = &rule.Fragment{Expr: *m.FragmentExpr, Args: m.FragmentArgs}
	}
	return r
}

// reviveConditions restores nested maps decoded from JSON to the
// rule.Conditions type, recursively.
func reviveConditions(m map[string]any) rule.Conditions {
	if m == nil {
		return nil
	}
	out := make(rule.Conditions, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			out[k] = reviveConditions(nested)
			continue
		}
		out[k] = v
	}
	return out
}
