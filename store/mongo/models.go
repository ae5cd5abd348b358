package mongo

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
	ID              string         `grove:"id,pk"          bson:"_id"`
	TenantID        string         `grove:"tenant_id"      bson:"tenant_id"`
	AppID           string         `grove:"app_id"         bson:"app_id"`
	Effect          string         `grove:"effect"         bson:"effect"`
	Position        int            `grove:"position"       bson:"position"`
	Subject         string         `grove:"subject"        bson:"subject"`
	Action          string         `grove:"action"         bson:"action"`
	Conditions      map[string]any `grove:"conditions"     bson:"conditions,omitempty"`
	Fragment        *fragmentDoc   `grove:"fragment"       bson:"fragment,omitempty"`
	Metadata        map[string]any `grove:"metadata"       bson:"metadata,omitempty"`
	CreatedAt       time.Time      `grove:"created_at"     bson:"created_at"`
	UpdatedAt       time.Time      `grove:"updated_at"     bson:"updated_at"`
}

type fragmentDoc struct {
	Expr string `bson:"expr"`
	Args []any  `bson:"args,omitempty"`
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
		m.Fragment = &fragmentDoc{Expr: r.Fragment.Expr, Args: r.Fragment.Args}
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
	if m.Fragment != nil {
		r.Fragment = &rule.Fragment{Expr: m.Fragment.Expr, Args: m.Fragment.Args}
	}
	return r
}

// reviveConditions restores nested maps decoded from BSON to the
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
