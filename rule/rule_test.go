package rule

import "testing"

func TestMatches(t *testing.T) {
	cases := []struct {
		declaredAction, declaredSubject string
		action, subject                 string
		want                            bool
	}{
		{"read", "Post", "read", "Post", true},
		{"read", "Post", "update", "Post", false},
		{"read", "Post", "read", "Comment", false},
		{AnyAction, "Post", "destroy", "Post", true},
		{"read", AnySubject, "read", "Invoice", true},
		{AnyAction, AnySubject, "anything", "Anything", true},
		{"*", "*", "anything", "Anything", true},
		{"read", "Admin*", "read", "AdminReport", true},
		{"read", "Admin*", "read", "Report", false},
		{"re*", "Post", "read", "Post", true},
	}
	for _, tc := range cases {
		r := &Rule{Action: tc.declaredAction, Subject: tc.declaredSubject}
		if got := r.Matches(tc.action, tc.subject); got != tc.want {
			t.Errorf("(%s %s).Matches(%s, %s) = %v, want %v",
				tc.declaredAction, tc.declaredSubject, tc.action, tc.subject, got, tc.want)
		}
	}
}

func TestConditionsClone(t *testing.T) {
	c := Conditions{
		"author_id": 1,
		"comments":  Conditions{"hidden": false},
	}
	cp := c.Clone()
	cp["author_id"] = 2
	cp["comments"].(Conditions)["hidden"] = true

	if c["author_id"] != 1 {
		t.Fatal("clone shares top-level entries")
	}
	if c["comments"].(Conditions)["hidden"] != false {
		t.Fatal("clone shares nested maps")
	}
}

func TestRulePredicates(t *testing.T) {
	grant := &Rule{Effect: EffectGrant}
	if !grant.Grant() || !grant.Unconditional() || grant.Unmergeable() {
		t.Fatalf("bare grant misclassified: %+v", grant)
	}

	deny := &Rule{Effect: EffectDeny, Conditions: Conditions{"a": 1}}
	if deny.Grant() || deny.Unconditional() {
		t.Fatalf("conditioned deny misclassified: %+v", deny)
	}

	frag := &Rule{Effect: EffectGrant, Fragment: &Fragment{Expr: "1=1"}}
	if !frag.Unmergeable() || frag.Unconditional() {
		t.Fatalf("fragment rule misclassified: %+v", frag)
	}
}
