// Package sql renders compiled Sift scopes into SQL WHERE clauses.
//
// The renderer walks the predicate tree and produces a single
// parameterized clause plus its argument list. It also implements
// sift.Sanitizer, so a compiler configured with it can fold raw
// fragments and condition maps into one predicate.
package sql

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/xraph/sift"
	"github.com/xraph/sift/rule"
)

// Compile-time interface check.
var _ sift.Sanitizer = (*Renderer)(nil)

// ErrUnrenderable is returned for predicates that cannot be expressed as
// SQL, i.e. pre-built scope leaves. Apply the scope object directly.
var ErrUnrenderable = errors.New("sql: predicate cannot be rendered")

// Dialect selects the placeholder style of the generated SQL.
type Dialect int

const (
	// DialectGeneric emits ? placeholders (SQLite, MySQL).
	DialectGeneric Dialect = iota

	// DialectPostgres emits $1..$n placeholders.
	DialectPostgres
)

// Query is a rendered scope: the WHERE clause, its arguments, and the
// relation paths the host query must join.
type Query struct {
	// Where is the parameterized WHERE clause, without the keyword.
	Where string `json:"where"`

	// Args are the clause arguments in placeholder order.
	Args []any `json:"args,omitempty"`

	// JoinPaths lists the dotted relation paths to join, sorted.
	JoinPaths []string `json:"join_paths,omitempty"`
}

// Renderer renders predicate trees for one SQL dialect.
type Renderer struct {
	dialect Dialect
}

// New creates a renderer for the given dialect.
func New(dialect Dialect) *Renderer {
	return &Renderer{dialect: dialect}
}

// Render translates a compiled scope into a query against the root
// entity's table.
func (r *Renderer) Render(scope *sift.Scope, rootTable string) (*Query, error) {
	where, args, err := renderNode(scope.Predicate, rootTable)
	if err != nil {
		return nil, err
	}
	if r.dialect == DialectPostgres {
		where = rebind(where)
	}
	return &Query{
		Where:     where,
		Args:      args,
		JoinPaths: joinPaths(scope.Joins, ""),
	}, nil
}

// Sanitize renders a qualified condition map into a parameterized
// fragment with ? placeholders. Placeholders are rebound per dialect
// when the final clause is rendered.
func (r *Renderer) Sanitize(rootTable string, conds sift.Qualified) (*rule.Fragment, error) {
	expr, args, err := renderLeaf(conds, rootTable)
	if err != nil {
		return nil, err
	}
	return &rule.Fragment{Expr: expr, Args: args}, nil
}

func renderNode(p *sift.Predicate, rootTable string) (string, []any, error) {
	if p == nil {
		return "", nil, fmt.Errorf("%w: nil predicate", ErrUnrenderable)
	}
	switch p.Kind {
	case sift.PredicateTrue:
		return "1=1", nil, nil
	case sift.PredicateFalse:
		return "1=0", nil, nil
	case sift.PredicateLeaf:
		switch {
		case p.Scoped != nil:
			return "", nil, fmt.Errorf("%w: pre-built scope leaf; apply the scope object directly", ErrUnrenderable)
		case p.Frag != nil:
			return "(" + p.Frag.Expr + ")", p.Frag.Args, nil
		case len(p.Conds) == 0:
			// An unconditional grant leaf constrains nothing.
			return "1=1", nil, nil
		default:
			return renderLeaf(p.Conds, rootTable)
		}
	case sift.PredicateNot:
		inner, args, err := renderNode(p.Left, rootTable)
		if err != nil {
			return "", nil, err
		}
		return "NOT (" + inner + ")", args, nil
	case sift.PredicateAnd:
		return renderBinary(p, rootTable, " AND ")
	case sift.PredicateOr:
		return renderBinary(p, rootTable, " OR ")
	default:
		return "", nil, fmt.Errorf("%w: unknown node kind %d", ErrUnrenderable, p.Kind)
	}
}

func renderBinary(p *sift.Predicate, rootTable, op string) (string, []any, error) {
	left, largs, err := renderNode(p.Left, rootTable)
	if err != nil {
		return "", nil, err
	}
	right, rargs, err := renderNode(p.Right, rootTable)
	if err != nil {
		return "", nil, err
	}
	args := make([]any, 0, len(largs)+len(rargs))
	args = append(args, largs...)
	args = append(args, rargs...)
	return "(" + left + ")" + op + "(" + right + ")", args, nil
}

// renderLeaf renders one qualified condition map as a conjunction of
// column comparisons, in sorted key order so output is deterministic.
func renderLeaf(conds sift.Qualified, rootTable string) (string, []any, error) {
	keys := make([]string, 0, len(conds))
	for k := range conds {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	var args []any
	for _, key := range keys {
		val := conds[key]
		if fields, ok := val.(map[string]any); ok {
			// Table-qualified entry for a joined relation.
			cols := make([]string, 0, len(fields))
			for col := range fields {
				cols = append(cols, col)
			}
			sort.Strings(cols)
			for _, col := range cols {
				expr, a := renderComparison(key, col, fields[col])
				parts = append(parts, expr)
				args = append(args, a...)
			}
			continue
		}
		expr, a := renderComparison(rootTable, key, val)
		parts = append(parts, expr)
		args = append(args, a...)
	}
	return strings.Join(parts, " AND "), args, nil
}

func renderComparison(table, col string, val any) (string, []any) {
	qualified := table + "." + col
	if val == nil {
		return qualified + " IS NULL", nil
	}

	rv := reflect.ValueOf(val)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		n := rv.Len()
		if n == 0 {
			// Membership in the empty set matches nothing.
			return "1=0", nil
		}
		args := make([]any, n)
		for i := 0; i < n; i++ {
			args[i] = rv.Index(i).Interface()
		}
		return qualified + " IN (" + placeholders(n) + ")", args
	}
	return qualified + " = ?", []any{val}
}

func placeholders(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("?")
	}
	return b.String()
}

// rebind rewrites ? placeholders into $1..$n for Postgres.
func rebind(clause string) string {
	var b strings.Builder
	b.Grow(len(clause) + 8)
	n := 0
	for i := 0; i < len(clause); i++ {
		if clause[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(clause[i])
	}
	return b.String()
}

// joinPaths flattens a join plan into its dotted relation paths, one per
// node, depth first in plan order.
func joinPaths(joins []sift.Join, prefix string) []string {
	var out []string
	for _, j := range joins {
		path := j.Relation
		if prefix != "" {
			path = prefix + "." + j.Relation
		}
		out = append(out, path)
		out = append(out, joinPaths(j.Nested, path)...)
	}
	return out
}
