// Package mongo renders compiled Sift scopes into MongoDB filters.
//
// Table identifiers in qualified condition maps are treated as embedded
// document paths, so conditions on related entities become dotted field
// queries. Raw SQL fragments and pre-built scopes cannot be expressed as
// filters and fail with ErrUnrenderable.
package mongo

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xraph/sift"
)

// ErrUnrenderable is returned for predicates that cannot be expressed as
// a MongoDB filter.
var ErrUnrenderable = errors.New("mongo: predicate cannot be rendered")

// Render translates a compiled scope into a filter document.
func Render(scope *sift.Scope) (bson.M, error) {
	return renderNode(scope.Predicate)
}

// LookupPaths flattens the scope's join plan into dotted relation paths,
// for hosts that resolve relations with $lookup stages.
func LookupPaths(scope *sift.Scope) []string {
	return lookupPaths(scope.Joins, "")
}

func renderNode(p *sift.Predicate) (bson.M, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil predicate", ErrUnrenderable)
	}
	switch p.Kind {
	case sift.PredicateTrue:
		return bson.M{}, nil
	case sift.PredicateFalse:
		// Canonical match-nothing filter.
		return bson.M{"_id": bson.M{"$exists": false}}, nil
	case sift.PredicateLeaf:
		switch {
		case p.Scoped != nil:
			return nil, fmt.Errorf("%w: pre-built scope leaf", ErrUnrenderable)
		case p.Frag != nil:
			return nil, fmt.Errorf("%w: raw fragment %q", ErrUnrenderable, p.Frag.Expr)
		case len(p.Conds) == 0:
			return bson.M{}, nil
		default:
			return renderLeaf(p.Conds), nil
		}
	case sift.PredicateNot:
		inner, err := renderNode(p.Left)
		if err != nil {
			return nil, err
		}
		return bson.M{"$nor": bson.A{inner}}, nil
	case sift.PredicateAnd:
		return renderBinary(p, "$and")
	case sift.PredicateOr:
		return renderBinary(p, "$or")
	default:
		return nil, fmt.Errorf("%w: unknown node kind %d", ErrUnrenderable, p.Kind)
	}
}

func renderBinary(p *sift.Predicate, op string) (bson.M, error) {
	left, err := renderNode(p.Left)
	if err != nil {
		return nil, err
	}
	right, err := renderNode(p.Right)
	if err != nil {
		return nil, err
	}
	return bson.M{op: bson.A{left, right}}, nil
}

// renderLeaf renders a qualified map as one filter document. Root-entity
// fields keep their names; related-entity entries become dotted paths.
func renderLeaf(conds sift.Qualified) bson.M {
	out := bson.M{}
	for _, key := range sortedKeys(conds) {
		val := conds[key]
		if fields, ok := val.(map[string]any); ok {
			cols := make([]string, 0, len(fields))
			for col := range fields {
				cols = append(cols, col)
			}
			sort.Strings(cols)
			for _, col := range cols {
				out[key+"."+col] = renderValue(fields[col])
			}
			continue
		}
		out[key] = renderValue(val)
	}
	return out
}

func renderValue(val any) any {
	if val == nil {
		return nil
	}
	rv := reflect.ValueOf(val)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		members := make(bson.A, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			members[i] = rv.Index(i).Interface()
		}
		return bson.M{"$in": members}
	}
	return val
}

func lookupPaths(joins []sift.Join, prefix string) []string {
	var out []string
	for _, j := range joins {
		path := j.Relation
		if prefix != "" {
			path = prefix + "." + j.Relation
		}
		out = append(out, path)
		out = append(out, lookupPaths(j.Nested, path)...)
	}
	return out
}

func sortedKeys(conds sift.Qualified) []string {
	keys := make([]string, 0, len(conds))
	for k := range conds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
