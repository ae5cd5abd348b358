package sift

import (
	"errors"
	"testing"

	"github.com/xraph/sift/rule"
)

func mustMerge(t *testing.T, acc, cond *Predicate, grant bool) *Predicate {
	t.Helper()
	out, err := merge(acc, cond, grant)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestMerge_UnconditionalRules(t *testing.T) {
	leaf := Leaf(Qualified{"a": 1})

	// An unconditional grant overrides any accumulator with TRUE.
	for _, acc := range []*Predicate{False(), True(), leaf} {
		if out := mustMerge(t, acc, Leaf(Qualified{}), true); out.Kind != PredicateTrue {
			t.Fatalf("grant over %s = %s, want TRUE", acc, out)
		}
	}

	// An unconditional deny overrides any accumulator with FALSE.
	for _, acc := range []*Predicate{False(), True(), leaf} {
		if out := mustMerge(t, acc, Leaf(Qualified{}), false); out.Kind != PredicateFalse {
			t.Fatalf("deny over %s = %s, want FALSE", acc, out)
		}
	}
}

func TestMerge_OverTrue(t *testing.T) {
	leaf := Leaf(Qualified{"a": 1})

	if out := mustMerge(t, True(), leaf, true); out.Kind != PredicateTrue {
		t.Fatalf("grant over TRUE = %s, want TRUE", out)
	}

	out := mustMerge(t, True(), leaf, false)
	if out.Kind != PredicateNot || out.Left != leaf {
		t.Fatalf("deny over TRUE = %s, want NOT leaf", out)
	}
}

func TestMerge_OverFalse(t *testing.T) {
	leaf := Leaf(Qualified{"a": 1})

	if out := mustMerge(t, False(), leaf, true); out != leaf {
		t.Fatalf("grant over FALSE = %s, want the bare leaf", out)
	}
	if out := mustMerge(t, False(), leaf, false); out.Kind != PredicateFalse {
		t.Fatalf("deny over FALSE = %s, want FALSE", out)
	}
}

func TestMerge_OverPredicate(t *testing.T) {
	acc := Leaf(Qualified{"a": 1})
	leaf := Leaf(Qualified{"b": 2})

	out := mustMerge(t, acc, leaf, true)
	if out.Kind != PredicateOr || out.Left != leaf || out.Right != acc {
		t.Fatalf("grant over leaf = %s, want (or cond acc)", out)
	}

	out = mustMerge(t, acc, leaf, false)
	if out.Kind != PredicateAnd || out.Left.Kind != PredicateNot {
		t.Fatalf("deny over leaf = %s, want (and (not cond) acc)", out)
	}
	if out.Left.Left != leaf || out.Right != acc {
		t.Fatalf("deny over leaf misplaced operands: %s", out)
	}
}

func TestMerge_ScopeLeafCannotBeWrapped(t *testing.T) {
	scoped := ScopeLeaf("prebuilt")
	leaf := Leaf(Qualified{"a": 1})

	// Denying a scope over TRUE would need NOT(scope).
	if _, err := merge(True(), scoped, false); !errors.Is(err, ErrConflictingScopes) {
		t.Fatalf("expected ErrConflictingScopes, got %v", err)
	}
	// Combining a scope with an existing predicate would need OR/AND.
	if _, err := merge(leaf, scoped, true); !errors.Is(err, ErrConflictingScopes) {
		t.Fatalf("expected ErrConflictingScopes, got %v", err)
	}
	if _, err := merge(scoped, leaf, true); !errors.Is(err, ErrConflictingScopes) {
		t.Fatalf("expected ErrConflictingScopes, got %v", err)
	}

	// A scope over FALSE is the plain "first grant" step and is fine.
	if out := mustMerge(t, False(), scoped, true); out != scoped {
		t.Fatalf("grant scope over FALSE = %s, want the scope leaf", out)
	}
}

func TestPredicateString(t *testing.T) {
	p := And(
		Not(Leaf(Qualified{"published": false})),
		Or(
			FragmentLeaf(&rule.Fragment{Expr: "title ILIKE ?"}),
			Leaf(Qualified{"author_id": 1, "comments": map[string]any{"hidden": false}}),
		),
	)

	want := "(and (not (leaf published=false)) (or (frag title ILIKE ?) (leaf author_id=1 comments=map[hidden:false])))"
	if got := p.String(); got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestPredicateEmpty(t *testing.T) {
	if !Leaf(Qualified{}).empty() {
		t.Fatal("empty condition leaf should be empty")
	}
	if Leaf(Qualified{"a": 1}).empty() {
		t.Fatal("condition leaf is not empty")
	}
	if FragmentLeaf(&rule.Fragment{Expr: "1=1"}).empty() {
		t.Fatal("fragment leaf is not empty")
	}
	if ScopeLeaf("prebuilt").empty() {
		t.Fatal("scope leaf is not empty")
	}
}
