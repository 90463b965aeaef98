package dom

import (
	"testing"
)

const sample = `<html><body>
<div class="grid">
  <div class="card product--12"><span class="h4">  Alpha
     App </span><div><span class="h4">nested</span></div></div>
  <div class="card"><a href="/x">  View Website </a><a href="/y">View Website now</a></div>
</div>
</body></html>`

func TestChildrenAreDirectOnly(t *testing.T) {
	root, err := Parse(sample)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	grid, ok := root.Find("div.grid")
	if !ok {
		t.Fatalf("grid not found")
	}
	if got := len(grid.Children()); got != 2 {
		t.Fatalf("children = %d, want 2", got)
	}
	if got := len(grid.FindAll("span.h4")); got != 2 {
		t.Fatalf("descendant spans = %d, want 2", got)
	}
}

func TestTextIsNormalised(t *testing.T) {
	root, err := Parse(sample)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	name, ok := root.Find("span.h4")
	if !ok {
		t.Fatalf("name not found")
	}
	if got := name.Text(); got != "Alpha App" {
		t.Fatalf("text = %q, want %q", got, "Alpha App")
	}
}

func TestFindByText(t *testing.T) {
	root, err := Parse(sample)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	tests := []struct {
		name     string
		match    TextMatch
		wantHref string
	}{
		{name: "exact", match: ExactText("View Website"), wantHref: "/x"},
		{name: "contains", match: ContainsText("now"), wantHref: "/y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, ok := root.FindByText("a", tt.match)
			if !ok {
				t.Fatalf("anchor not found")
			}
			if href, _ := a.Attr("href"); href != tt.wantHref {
				t.Fatalf("href = %q, want %q", href, tt.wantHref)
			}
		})
	}

	if _, ok := root.FindByText("a", ExactText("Missing")); ok {
		t.Fatalf("expected no match")
	}
}

func TestClasses(t *testing.T) {
	root, err := Parse(sample)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	card, ok := root.Find("div.card")
	if !ok {
		t.Fatalf("card not found")
	}
	classes := card.Classes()
	if len(classes) != 2 || classes[1] != "product--12" {
		t.Fatalf("classes = %v", classes)
	}
}

func TestInvalidSelector(t *testing.T) {
	root, err := Parse(sample)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, ok := root.Find("div[["); ok {
		t.Fatalf("malformed selector should match nothing")
	}
	if err := Compile("div[["); err == nil {
		t.Fatalf("expected compile error")
	}
	if err := Compile("div.products__grid > div"); err != nil {
		t.Fatalf("compile: %v", err)
	}
}
