package sqlite

import (
	"encoding/json"
	"fmt"
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
	ID              string    `grove:"id,pk"`
	TenantID        string    `grove:"tenant_id,notnull"`
	AppID           string    `grove:"app_id,notnull"`
	Effect          string    `grove:"effect,notnull"`
	Position        int       `grove:"position,notnull"`
	Subject         string    `grove:"subject,notnull"`
	Action          string    `grove:"action,notnull"`
	Conditions      string    `grove:"conditions"` // JSON text
	Fragment        string    `grove:"fragment"`   // JSON text
	Metadata        string    `grove:"metadata"`   // JSON text
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func ruleToModel(r *rule.Rule) (*ruleModel, error) {
	m := &ruleModel{
		ID:        r.ID.String(),
		TenantID:  r.TenantID,
		AppID:     r.AppID,
		Effect:    string(r.Effect),
		Position:  r.Position,
		Subject:   r.Subject,
		Action:    r.Action,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if !r.Conditions.Empty() {
		conds, err := json.Marshal(r.Conditions)
		if err != nil {
			return nil, fmt.Errorf("marshal rule conditions: %w", err)
		}
		m.Conditions = string(conds)
	}
	if r.Fragment != nil {
		frag, err := json.Marshal(r.Fragment)
		if err != nil {
			return nil, fmt.Errorf("marshal rule fragment: %w", err)
		}
		m.Fragment = string(frag)
	}
	if r.Metadata != nil {
		metadata, err := json.Marshal(r.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal rule metadata: %w", err)
		}
		m.Metadata = string(metadata)
	}
	return m, nil
}

func ruleFromModel(m *ruleModel) (*rule.Rule, error) {
	rid, _ := id.ParseRuleID(m.ID) //nolint:errcheck // stored IDs are always valid
	r := &rule.Rule{
		ID:        rid,
		TenantID:  m.TenantID,
		AppID:     m.AppID,
		Effect:    rule.Effect(m.Effect),
		Position:  m.Position,
		Subject:   m.Subject,
		Action:    m.Action,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.Conditions != "" {
		var conds map[string]any
		if err := json.Unmarshal([]byte(m.Conditions), &conds); err != nil {
			return nil, fmt.Errorf("unmarshal rule conditions: %w", err)
		}
		r.Conditions = reviveConditions(conds)
	}
	if m.Fragment != "" {
		var frag rule.Fragment
		if err := json.Unmarshal([]byte(m.Fragment), &frag); err != nil {
			return nil, fmt.Errorf("unmarshal rule fragment: %w", err)
		}
		r.Fragment = &frag
	}
	if m.Metadata != "" {
		if err := json.Unmarshal([]byte(m.Metadata), &r.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal rule metadata: %w", err)
		}
	}
	return r, nil
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
