package sift

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xraph/sift/rule"
)

// PredicateKind enumerates predicate tree node types.
type PredicateKind uint8

const (
	// PredicateFalse matches no record.
	PredicateFalse PredicateKind = iota

	// PredicateTrue matches every record.
	PredicateTrue

	// PredicateLeaf is a single rule's condition: a qualified condition
	// map, a sanitized fragment, or a pre-built scope.
	PredicateLeaf

	// PredicateNot negates its sole operand.
	PredicateNot

	// PredicateAnd conjoins Left and Right.
	PredicateAnd

	// PredicateOr disjoins Left and Right.
	PredicateOr
)

// String returns the node type name.
func (k PredicateKind) String() string {
	switch k {
	case PredicateFalse:
		return "FALSE"
	case PredicateTrue:
		return "TRUE"
	case PredicateLeaf:
		return "LEAF"
	case PredicateNot:
		return "NOT"
	case PredicateAnd:
		return "AND"
	case PredicateOr:
		return "OR"
	default:
		return "UNKNOWN"
	}
}

// Predicate is one node of a compiled predicate tree. Trees are built
// once per compilation and never mutated afterwards; cached scopes share
// them across goroutines.
type Predicate struct {
	Kind PredicateKind `json:"kind"`

	// Conds holds the qualified condition map of a plain leaf.
	Conds Qualified `json:"conds,omitempty"`

	// Frag holds the sanitized fragment of an unmergeable leaf.
	Frag *rule.Fragment `json:"frag,omitempty"`

	// Scoped holds a pre-built query scope leaf. It never survives under
	// a NOT/AND/OR node; the fold rejects that with ErrConflictingScopes.
	Scoped any `json:"-"`

	// Left is the sole operand of NOT and the left operand of AND/OR.
	Left *Predicate `json:"left,omitempty"`

	// Right is the right operand of AND/OR.
	Right *Predicate `json:"right,omitempty"`
}

// True returns a predicate matching everything.
func True() *Predicate { return &Predicate{Kind: PredicateTrue} }

// False returns a predicate matching nothing.
func False() *Predicate { return &Predicate{Kind: PredicateFalse} }

// Leaf returns a condition-map leaf.
func Leaf(conds Qualified) *Predicate {
	return &Predicate{Kind: PredicateLeaf, Conds: conds}
}

// FragmentLeaf returns a sanitized-fragment leaf.
func FragmentLeaf(f *rule.Fragment) *Predicate {
	return &Predicate{Kind: PredicateLeaf, Frag: f}
}

// ScopeLeaf returns a pre-built scope leaf.
func ScopeLeaf(scoped any) *Predicate {
	return &Predicate{Kind: PredicateLeaf, Scoped: scoped}
}

// Not returns the negation of p.
func Not(p *Predicate) *Predicate {
	return &Predicate{Kind: PredicateNot, Left: p}
}

// And returns the conjunction of a and b.
func And(a, b *Predicate) *Predicate {
	return &Predicate{Kind: PredicateAnd, Left: a, Right: b}
}

// Or returns the disjunction of a and b.
func Or(a, b *Predicate) *Predicate {
	return &Predicate{Kind: PredicateOr, Left: a, Right: b}
}

// empty reports whether the leaf carries no condition at all, i.e. the
// rule it came from was unconditional.
func (p *Predicate) empty() bool {
	return p == nil ||
		(p.Kind == PredicateLeaf && p.Frag == nil && p.Scoped == nil && len(p.Conds) == 0)
}

// scopeLeaf reports whether p is a pre-built scope leaf.
func (p *Predicate) scopeLeaf() bool {
	return p != nil && p.Kind == PredicateLeaf && p.Scoped != nil
}

// merge folds one rule's condition leaf into the accumulated predicate.
//
// The fold runs over the matching rules oldest first, seeded with FALSE,
// so that later declarations override earlier ones: a grant widens the
// accumulator, a denial subtracts from it.
//
//	acc      grant                  deny
//	-----    -----                  ----
//	(empty)  TRUE                   FALSE
//	TRUE     TRUE                   NOT cond
//	FALSE    cond                   FALSE
//	other    cond OR acc            (NOT cond) AND acc
//
// Pre-built scope leaves cannot be wrapped in NOT/AND/OR; any fold step
// that would do so returns ErrConflictingScopes.
func merge(acc, cond *Predicate, grant bool) (*Predicate, error) {
	if cond.empty() {
		if grant {
			return True(), nil
		}
		return False(), nil
	}

	switch acc.Kind {
	case PredicateTrue:
		if grant {
			return acc, nil
		}
		if cond.scopeLeaf() {
			return nil, ErrConflictingScopes
		}
		return Not(cond), nil
	case PredicateFalse:
		if grant {
			return cond, nil
		}
		return acc, nil
	default:
		if cond.scopeLeaf() || acc.scopeLeaf() {
			return nil, ErrConflictingScopes
		}
		if grant {
			return Or(cond, acc), nil
		}
		return And(Not(cond), acc), nil
	}
}

// String renders the tree as a compact s-expression, mainly for logs and
// test failure messages.
func (p *Predicate) String() string {
	if p == nil {
		return "<nil>"
	}
	switch p.Kind {
	case PredicateTrue:
		return "TRUE"
	case PredicateFalse:
		return "FALSE"
	case PredicateLeaf:
		switch {
		case p.Scoped != nil:
			return "(scope)"
		case p.Frag != nil:
			return fmt.Sprintf("(frag %s)", p.Frag.Expr)
		default:
			return "(leaf " + formatConds(p.Conds) + ")"
		}
	case PredicateNot:
		return "(not " + p.Left.String() + ")"
	case PredicateAnd:
		return "(and " + p.Left.String() + " " + p.Right.String() + ")"
	case PredicateOr:
		return "(or " + p.Left.String() + " " + p.Right.String() + ")"
	default:
		return "(?)"
	}
}

func formatConds(q Qualified) string {
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%v", k, q[k])
	}
	return b.String()
}
