package mongo

import (
	"errors"
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xraph/sift"
	"github.com/xraph/sift/rule"
)

func render(t *testing.T, p *sift.Predicate) bson.M {
	t.Helper()
	filter, err := Render(&sift.Scope{Predicate: p})
	if err != nil {
		t.Fatal(err)
	}
	return filter
}

func TestRender_Constants(t *testing.T) {
	if got := render(t, sift.True()); len(got) != 0 {
		t.Fatalf("TRUE = %v, want empty filter", got)
	}
	if got := render(t, sift.Leaf(sift.Qualified{})); len(got) != 0 {
		t.Fatalf("empty leaf = %v, want empty filter", got)
	}

	got := render(t, sift.False())
	want := bson.M{"_id": bson.M{"$exists": false}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FALSE = %v, want %v", got, want)
	}
}

func TestRender_LeafDottedPaths(t *testing.T) {
	got := render(t, sift.Leaf(sift.Qualified{
		"published": true,
		"comments":  map[string]any{"hidden": false, "spam": false},
	}))

	want := bson.M{
		"published":       true,
		"comments.hidden": false,
		"comments.spam":   false,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestRender_Membership(t *testing.T) {
	got := render(t, sift.Leaf(sift.Qualified{"author_id": []int{1, 2}}))
	want := bson.M{"author_id": bson.M{"$in": bson.A{1, 2}}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestRender_BooleanOperators(t *testing.T) {
	p := sift.And(
		sift.Not(sift.Leaf(sift.Qualified{"published": false})),
		sift.Or(
			sift.Leaf(sift.Qualified{"author_id": 1}),
			sift.Leaf(sift.Qualified{"featured": true}),
		),
	)

	got := render(t, p)
	want := bson.M{"$and": bson.A{
		bson.M{"$nor": bson.A{bson.M{"published": false}}},
		bson.M{"$or": bson.A{
			bson.M{"author_id": 1},
			bson.M{"featured": true},
		}},
	}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestRender_Unrenderable(t *testing.T) {
	_, err := Render(&sift.Scope{Predicate: sift.FragmentLeaf(&rule.Fragment{Expr: "x = ?"})})
	if !errors.Is(err, ErrUnrenderable) {
		t.Fatalf("expected ErrUnrenderable for fragment, got %v", err)
	}

	_, err = Render(&sift.Scope{Predicate: sift.ScopeLeaf("prebuilt")})
	if !errors.Is(err, ErrUnrenderable) {
		t.Fatalf("expected ErrUnrenderable for scope leaf, got %v", err)
	}
}

func TestLookupPaths(t *testing.T) {
	scope := &sift.Scope{
		Predicate: sift.True(),
		Joins: []sift.Join{
			{Relation: "author", Table: "users"},
			{Relation: "comments", Table: "comments",
				Nested: []sift.Join{{Relation: "author", Table: "users"}}},
		},
	}

	want := []string{"author", "comments", "comments.author"}
	if got := LookupPaths(scope); !reflect.DeepEqual(got, want) {
		t.Fatalf("LookupPaths = %v, want %v", got, want)
	}
}
