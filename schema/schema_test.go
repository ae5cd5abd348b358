package schema_test

import (
	"testing"

	"github.com/xraph/sift/schema"
)

type postModel struct {
	ID        string `grove:"id,pk"`
	Title     string `grove:"title,notnull"`
	AuthorID  int64  `grove:"author_id"`
	Published bool   `db:"published"`
	ViewCount int
}

func newTestRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg := schema.NewRegistry()
	err := reg.RegisterModel("Post", "posts", postModel{},
		schema.Relation{Name: "comments", Entity: "Comment", Table: "comments"},
		schema.Relation{Name: "author", Entity: "User", Table: "users"},
	)
	if err != nil {
		t.Fatal(err)
	}
	reg.MustRegister(&schema.Entity{
		Name:   "Comment",
		Table:  "comments",
		Fields: map[string]struct{}{"id": {}, "hidden": {}, "spam": {}},
		Relations: map[string]schema.Relation{
			"author": {Name: "author", Entity: "User", Table: "users"},
		},
	})
	reg.MustRegister(&schema.Entity{
		Name:   "User",
		Table:  "users",
		Fields: map[string]struct{}{"id": {}, "name": {}},
	})
	return reg
}

func TestRegisterModelFields(t *testing.T) {
	reg := newTestRegistry(t)

	for _, field := range []string{"id", "title", "author_id", "published", "view_count"} {
		if !reg.HasField("Post", field) {
			t.Errorf("expected field %q on Post", field)
		}
	}
	if reg.HasField("Post", "comments") {
		t.Error("relations must not show up as plain fields")
	}
	if reg.HasField("Post", "nope") {
		t.Error("unexpected field nope")
	}
}

func TestRelationLookup(t *testing.T) {
	reg := newTestRegistry(t)

	rel, ok := reg.Relation("Post", "comments")
	if !ok {
		t.Fatal("expected comments relation on Post")
	}
	if rel.Entity != "Comment" || rel.Table != "comments" {
		t.Fatalf("unexpected relation: %+v", rel)
	}

	if _, ok := reg.Relation("Post", "title"); ok {
		t.Error("plain field resolved as relation")
	}
	if _, ok := reg.Relation("Ghost", "comments"); ok {
		t.Error("unknown entity resolved a relation")
	}
}

func TestTableLookup(t *testing.T) {
	reg := newTestRegistry(t)

	table, ok := reg.Table("Post")
	if !ok || table != "posts" {
		t.Fatalf("expected posts, got %q (ok=%v)", table, ok)
	}
	if _, ok := reg.Table("Ghost"); ok {
		t.Error("unknown entity resolved a table")
	}
}

func TestRegisterValidation(t *testing.T) {
	reg := schema.NewRegistry()

	if err := reg.Register(&schema.Entity{Table: "posts"}); err == nil {
		t.Error("expected error for missing name")
	}
	if err := reg.Register(&schema.Entity{Name: "Post"}); err == nil {
		t.Error("expected error for missing table")
	}
	if err := reg.RegisterModel("Post", "posts", 42); err == nil {
		t.Error("expected error for non-struct model")
	}
	err := reg.RegisterModel("Post", "posts", postModel{}, schema.Relation{Name: "comments"})
	if err == nil {
		t.Error("expected error for incomplete relation")
	}
}
