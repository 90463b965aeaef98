package parser

import (
	"strings"
	"testing"

	"github.com/aluiziolira/go-scrape-certs/dom"
	"github.com/aluiziolira/go-scrape-certs/models"
)

func TestValidateRecord(t *testing.T) {
	tests := []struct {
		name    string
		record  *models.ProductRecord
		wantErr bool
	}{
		{
			name: "valid record",
			record: &models.ProductRecord{
				Name:           "Test App",
				Company:        "Test Co",
				Website:        "https://example.com",
				Certifications: models.NewCertificationSet(),
			},
			wantErr: false,
		},
		{
			name:    "nil record",
			record:  nil,
			wantErr: true,
		},
		{
			name: "missing name",
			record: &models.ProductRecord{
				Company:        "Test Co",
				Certifications: models.NewCertificationSet(),
			},
			wantErr: true,
		},
		{
			name: "incomplete certifications",
			record: &models.ProductRecord{
				Name:           "Test App",
				Certifications: models.CertificationSet{models.FERPA: true},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRecord(tt.record)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRecord() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeWebsite(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "with whitespace", input: "  https://example.com  ", expected: "https://example.com"},
		{name: "hash placeholder", input: "#", expected: ""},
		{name: "javascript placeholder", input: "javascript:void(0)", expected: ""},
		{name: "empty string", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeWebsite(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizeWebsite(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		name    string
		classes []string
		wantID  int
		wantOK  bool
	}{
		{name: "present", classes: []string{"product", "product--4521"}, wantID: 4521, wantOK: true},
		{name: "absent", classes: []string{"product", "card"}, wantOK: false},
		{name: "no digits", classes: []string{"product--"}, wantOK: false},
		{name: "modifier token", classes: []string{"product--featured"}, wantOK: false},
		{name: "signed", classes: []string{"product--+12"}, wantOK: false},
		{name: "nil", classes: nil, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := ParseID(tt.classes, "product--")
			if ok != tt.wantOK || (ok && id != tt.wantID) {
				t.Errorf("ParseID(%v) = %d, %v; want %d, %v", tt.classes, id, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}

func TestVocabularyLookup(t *testing.T) {
	v := DefaultVocabulary()

	tests := []struct {
		label  string
		want   models.Certification
		wantOK bool
	}{
		{label: "FERPA", want: models.FERPA, wantOK: true},
		{label: "  coppa   badge ", want: models.COPPA, wantOK: true},
		{label: "California Student Privacy Certified", want: models.CSPC, wantOK: true},
		{label: "ATLIS Certified", want: models.ATLIS, wantOK: true},
		{label: "Unknown Badge", wantOK: false},
		{label: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, ok := v.Lookup(tt.label)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Lookup(%q) = %q, %v; want %q, %v", tt.label, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseSubProductIDPolicy(t *testing.T) {
	if p, err := ParseSubProductIDPolicy("inherit"); err != nil || p != InheritParentID {
		t.Fatalf("inherit: %v, %v", p, err)
	}
	if p, err := ParseSubProductIDPolicy("none"); err != nil || p != NoSubProductID {
		t.Fatalf("none: %v, %v", p, err)
	}
	if _, err := ParseSubProductIDPolicy("parent"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}

func TestDefaultLayoutValid(t *testing.T) {
	if err := DefaultLayout().Validate(); err != nil {
		t.Fatalf("default layout should validate, got %v", err)
	}

	broken := DefaultLayout()
	broken.Grid = "div[["
	if err := broken.Validate(); err == nil {
		t.Fatalf("expected malformed grid selector to fail validation")
	}
}

func TestLayoutValidateReportsFirstFailureInFieldOrder(t *testing.T) {
	broken := DefaultLayout()
	broken.Grid = "div[["
	broken.CompanyName = ""
	broken.NextPage = "a::"

	for i := 0; i < 20; i++ {
		err := broken.Validate()
		if err == nil || !strings.HasPrefix(err.Error(), "grid selector") {
			t.Fatalf("run %d: error = %v, want grid selector failure", i, err)
		}
	}

	broken.Grid = DefaultLayout().Grid
	if err := broken.Validate(); err == nil || err.Error() != "company name selector cannot be empty" {
		t.Fatalf("error = %v, want company name failure", err)
	}
}

func TestDefaultLayoutPaginationSelectors(t *testing.T) {
	markup := `<nav class="products__pagination">
<a class="products__pagination__item product__pagination__item--nav" href="?page=1"><i class="fa fa-arrow-left"></i></a>
<a class="products__pagination__item">1</a>
<a class="products__pagination__item is-active">2</a>
<a class="products__pagination__item product__pagination__item--nav" href="?page=3"><i class="fa fa-arrow-right"></i></a>
</nav>`
	root, err := dom.Parse(markup)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	layout := DefaultLayout()

	next, ok := root.Find(layout.NextPage)
	if !ok {
		t.Fatalf("next page selector %q matched nothing", layout.NextPage)
	}
	if href, _ := next.Attr("href"); href != "?page=3" {
		t.Fatalf("next page href = %q, want the right-arrow control", href)
	}

	active, ok := root.Find(layout.ActivePage)
	if !ok || active.Text() != "2" {
		t.Fatalf("active page = %v %v, want label 2", active, ok)
	}
}
