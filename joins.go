package sift

import (
	"fmt"
	"sort"

	"github.com/xraph/sift/rule"
)

// joinNode is the mutable aggregation tree the planner builds before
// flattening, keyed by relation name.
type joinNode map[string]joinNode

// planJoins deep-merges the relation traversals of every matching rule
// into a single join plan.
//
// The returned exclusion set is keyed by dotted relation path (e.g.
// "comments", "comments.author"). A path is excluded when its conditions
// cannot be folded into the parent's inline condition map: either the
// relation carries nested sub-relations of its own, or it sits beneath
// one that does. The normalizer hoists excluded subtrees to the top
// level of the qualified map; renderers qualify them by table there.
func planJoins(s Schema, entity string, rules []*rule.Rule, maxDepth int, strict bool) ([]Join, map[string]bool, error) {
	agg := joinNode{}
	for _, r := range rules {
		if err := collectJoins(s, entity, r.Conditions, agg, 1, maxDepth, strict); err != nil {
			return nil, nil, err
		}
	}
	if len(agg) == 0 {
		return nil, nil, nil
	}

	excluded := make(map[string]bool)
	joins, err := flattenJoins(s, entity, agg, "", false, excluded)
	if err != nil {
		return nil, nil, err
	}
	return joins, excluded, nil
}

// collectJoins records every relation key of one rule's condition map
// into the aggregation tree. Plain-field keys are skipped; the
// normalizer validates them later.
func collectJoins(s Schema, entity string, conds rule.Conditions, node joinNode, depth, maxDepth int, strict bool) error {
	for _, key := range sortedConditionKeys(conds) {
		nested, ok := nestedConditions(conds[key])
		if !ok {
			continue
		}
		rel, ok := s.Relation(entity, key)
		if !ok {
			// Not a relation; the normalizer rejects it with a precise error.
			continue
		}
		if depth > maxDepth {
			return fmt.Errorf("%w: relation %q nests deeper than %d levels", ErrDepthExceeded, key, maxDepth)
		}
		child := node[key]
		if child == nil {
			child = joinNode{}
			node[key] = child
		}
		if err := collectJoins(s, rel.Entity, nested, child, depth+1, maxDepth, strict); err != nil {
			return err
		}
	}
	return nil
}

// flattenJoins turns the aggregation tree into a sorted join plan and
// fills the exclusion set. Sorting makes the plan independent of rule
// declaration order, so recompiling the same snapshot yields an
// identical plan.
func flattenJoins(s Schema, entity string, node joinNode, path string, parentExcluded bool, excluded map[string]bool) ([]Join, error) {
	names := make([]string, 0, len(node))
	for name := range node {
		names = append(names, name)
	}
	sort.Strings(names)

	joins := make([]Join, 0, len(names))
	for _, name := range names {
		rel, ok := s.Relation(entity, name)
		if !ok {
			return nil, fmt.Errorf("%w: %s has no relation %q", ErrUnknownField, entity, name)
		}
		childPath := joinPath(path, name)
		child := node[name]
		if len(child) > 0 || parentExcluded {
			excluded[childPath] = true
		}

		j := Join{Relation: name, Table: rel.Table}
		if len(child) > 0 {
			nested, err := flattenJoins(s, rel.Entity, child, childPath, true, excluded)
			if err != nil {
				return nil, err
			}
			j.Nested = nested
		}
		joins = append(joins, j)
	}
	return joins, nil
}

// joinPath appends a relation name to a dotted path.
func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

// sortedExcluded returns the exclusion set as a sorted slice for the
// public Scope struct.
func sortedExcluded(excluded map[string]bool) []string {
	if len(excluded) == 0 {
		return nil
	}
	out := make([]string, 0, len(excluded))
	for p := range excluded {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// nestedConditions reports whether a condition value is a nested
// condition map, accepting both the named type and a bare map literal.
func nestedConditions(v any) (rule.Conditions, bool) {
	switch m := v.(type) {
	case rule.Conditions:
		return m, true
	case map[string]any:
		return rule.Conditions(m), true
	default:
		return nil, false
	}
}

func sortedConditionKeys(conds rule.Conditions) []string {
	keys := make([]string, 0, len(conds))
	for k := range conds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
