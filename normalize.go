package sift

import (
	"fmt"

	"github.com/xraph/sift/rule"
)

// normalizeConditions rewrites one rule's nested condition map into a
// qualified map the renderers can consume directly.
//
// Plain-field keys stay as-is and refer to the root entity. Relation
// keys are resolved against the schema and their subtrees re-keyed by
// the related entity's storage identifier. Excluded paths (relations
// that carry sub-relations, and everything beneath them) are hoisted to
// the top level of the result as sibling entries, so every entry of the
// final map is at most one table deep.
//
// Unknown keys are a configuration error and fail the compilation with
// ErrUnknownField. A relation key mapping to a non-map value fails with
// ErrInvalidCondition.
func normalizeConditions(s Schema, entity string, conds rule.Conditions, excluded map[string]bool, strict bool) (Qualified, error) {
	root := Qualified{}
	if err := normalizeInto(s, entity, conds, "", excluded, strict, root, root); err != nil {
		return nil, err
	}
	return root, nil
}

func normalizeInto(s Schema, entity string, conds rule.Conditions, path string, excluded map[string]bool, strict bool, root, local Qualified) error {
	for _, key := range sortedConditionKeys(conds) {
		val := conds[key]

		nested, isMap := nestedConditions(val)
		if !isMap {
			if _, isRel := s.Relation(entity, key); isRel {
				return fmt.Errorf("%w: relation %q on %s requires a condition map, got %T",
					ErrInvalidCondition, key, entity, val)
			}
			if strict && !s.HasField(entity, key) {
				return fmt.Errorf("%w: %s has no field or relation %q", ErrUnknownField, entity, key)
			}
			local[key] = val
			continue
		}

		rel, ok := s.Relation(entity, key)
		if !ok {
			if s.HasField(entity, key) {
				return fmt.Errorf("%w: field %q on %s cannot take a condition map",
					ErrInvalidCondition, key, entity)
			}
			return fmt.Errorf("%w: %s has no relation %q", ErrUnknownField, entity, key)
		}
		childPath := joinPath(path, key)

		child := Qualified{}
		if err := normalizeInto(s, rel.Entity, nested, childPath, excluded, strict, root, child); err != nil {
			return err
		}
		if len(child) == 0 {
			// An empty subtree constrains nothing.
			continue
		}

		target := local
		if excluded[childPath] {
			target = root
		}
		installQualified(target, rel.Table, child)
	}
	return nil
}

// installQualified merges a related entity's field conditions into the
// target map under its table identifier. Two references to the same
// table within one rule merge field-by-field, matching deep-merge
// semantics of the join plan.
func installQualified(target Qualified, table string, child Qualified) {
	existing, ok := target[table].(map[string]any)
	if !ok {
		existing = make(map[string]any, len(child))
		target[table] = existing
	}
	for k, v := range child {
		existing[k] = v
	}
}
