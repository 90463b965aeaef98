package parser

import (
	"errors"
	"testing"

	"github.com/aluiziolira/go-scrape-certs/internal/fixture"
	"github.com/aluiziolira/go-scrape-certs/models"
)

func TestExtractPlainProducts(t *testing.T) {
	page := fixture.Page{
		Label: "1",
		Products: []fixture.Product{
			{ID: 101, Name: "Alpha", Company: "Alpha Inc", Badges: []string{"FERPA Badge", "COPPA Badge"}, Website: "https://alpha.test"},
			{Name: "Beta", Company: "Beta LLC", Badges: nil, Website: "https://beta.test"},
		},
	}

	result, err := NewExtractor().Extract(page.HTML())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if result.Count != 2 || len(result.Records) != 2 {
		t.Fatalf("count=%d records=%d, want 2", result.Count, len(result.Records))
	}

	alpha := result.Records[0]
	if alpha.ID == nil || *alpha.ID != 101 {
		t.Fatalf("alpha id = %v, want 101", alpha.ID)
	}
	if alpha.Company != "Alpha Inc" || alpha.Website != "https://alpha.test" {
		t.Fatalf("alpha = %+v", alpha)
	}
	if !alpha.Certifications[models.FERPA] || !alpha.Certifications[models.COPPA] || alpha.Certifications[models.CSPC] {
		t.Fatalf("alpha certifications = %v", alpha.Certifications)
	}

	beta := result.Records[1]
	if beta.ID != nil {
		t.Fatalf("beta id = %d, want nil", *beta.ID)
	}
	if len(result.SubProductParents) != 0 {
		t.Fatalf("unexpected sub-product parents %v", result.SubProductParents)
	}
}

func TestExtractCertificationKeysComplete(t *testing.T) {
	page := fixture.Page{
		Products: []fixture.Product{
			{Name: "A", Badges: []string{"ATLIS"}, Website: "https://a.test"},
			{Name: "B", Badges: []string{"FERPA", "CSPC"}, CompanyWebsite: "https://b.test", Subs: []fixture.Sub{{Name: "B1"}, {Name: "B2"}}},
		},
	}

	result, err := NewExtractor().Extract(page.HTML())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if result.Count != len(result.Records) {
		t.Fatalf("count=%d, records=%d", result.Count, len(result.Records))
	}
	for _, r := range result.Records {
		if !r.Certifications.Complete() {
			t.Fatalf("record %q certifications incomplete: %v", r.Name, r.Certifications)
		}
	}

	// Sub-products must not share the parent's map.
	result.Records[1].Certifications[models.ATLIS] = true
	if result.Records[3].Certifications[models.ATLIS] {
		t.Fatalf("sub-product certification map aliases parent")
	}
}

func TestExtractSubProducts(t *testing.T) {
	page := fixture.Page{
		Products: []fixture.Product{
			{
				ID:             7,
				Name:           "Suite",
				Company:        "Suite Corp",
				Badges:         []string{"COPPA Badge"},
				CompanyWebsite: "https://suite.test",
				Subs: []fixture.Sub{
					{Name: "Suite Reader"},
					{Name: "Suite Writer", Website: "https://writer.suite.test"},
					{Name: "Suite Grader"},
				},
			},
		},
	}

	result, err := NewExtractor().Extract(page.HTML())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got := len(result.Records); got != 4 {
		t.Fatalf("records = %d, want 4 (3 sub-products + parent)", got)
	}

	wantSites := []string{"https://suite.test", "https://writer.suite.test", "https://suite.test", "https://suite.test"}
	wantNames := []string{"Suite Reader", "Suite Writer", "Suite Grader", "Suite"}
	for i, r := range result.Records {
		if r.Name != wantNames[i] {
			t.Errorf("record %d name = %q, want %q", i, r.Name, wantNames[i])
		}
		if r.Website != wantSites[i] {
			t.Errorf("record %d website = %q, want %q", i, r.Website, wantSites[i])
		}
		if r.Company != "Suite Corp" {
			t.Errorf("record %d company = %q", i, r.Company)
		}
		if !r.Certifications[models.COPPA] {
			t.Errorf("record %d lost parent certifications", i)
		}
		if r.ID == nil || *r.ID != 7 {
			t.Errorf("record %d id = %v, want inherited 7", i, r.ID)
		}
	}

	if len(result.SubProductParents) != 1 || result.SubProductParents[0] != "Suite" {
		t.Fatalf("sub-product parents = %v", result.SubProductParents)
	}
}

func TestExtractParentRecordUsesOwnLink(t *testing.T) {
	page := fixture.Page{
		Products: []fixture.Product{
			{
				Name:           "Parent",
				CompanyWebsite: "https://parent.test",
				Subs:           []fixture.Sub{{Name: "Child", Website: "https://child.test"}},
			},
		},
	}

	result, err := NewExtractor().Extract(page.HTML())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	last := result.Records[len(result.Records)-1]
	if last.Name != "Parent" || last.Website != "https://parent.test" {
		t.Fatalf("last record = %+v, want parent with own link", last)
	}
}

func TestExtractSubProductIDPolicyNone(t *testing.T) {
	page := fixture.Page{
		Products: []fixture.Product{
			{ID: 9, Name: "P", CompanyWebsite: "https://p.test", Subs: []fixture.Sub{{Name: "S"}}},
		},
	}

	result, err := NewExtractor(WithSubProductIDPolicy(NoSubProductID)).Extract(page.HTML())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if result.Records[0].ID != nil {
		t.Fatalf("sub-product id = %d, want nil", *result.Records[0].ID)
	}
	if result.Records[1].ID == nil || *result.Records[1].ID != 9 {
		t.Fatalf("parent id = %v, want 9", result.Records[1].ID)
	}
}

func TestExtractSkipsNonProductChildren(t *testing.T) {
	page := fixture.Page{
		Products: []fixture.Product{
			{NoCerts: true, NoFooter: true},
			{Name: "Real", Website: "https://real.test"},
		},
	}

	result, err := NewExtractor().Extract(page.HTML())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if result.Count != 1 || result.Records[0].Name != "Real" {
		t.Fatalf("records = %+v", result.Records)
	}
}

func TestExtractErrors(t *testing.T) {
	tests := []struct {
		name string
		page fixture.Page
		want error
	}{
		{
			name: "missing grid",
			page: fixture.Page{NoGrid: true},
			want: ErrNoProductsFound,
		},
		{
			name: "empty grid",
			page: fixture.Page{},
			want: ErrNoProductsFound,
		},
		{
			name: "company without name",
			page: fixture.Page{Products: []fixture.Product{{Company: "Orphan Co", Website: "https://o.test"}}},
			want: ErrMissingProductName,
		},
		{
			name: "missing certifications container",
			page: fixture.Page{Products: []fixture.Product{{Name: "NoCerts", NoCerts: true, Website: "https://n.test"}}},
			want: ErrMissingCertifications,
		},
		{
			name: "unknown certification label",
			page: fixture.Page{Products: []fixture.Product{{Name: "Odd", Badges: []string{"FERPA", "Unknown Badge"}, Website: "https://o.test"}}},
			want: ErrUnknownCertification,
		},
		{
			name: "missing footer",
			page: fixture.Page{Products: []fixture.Product{{Name: "NoFooter", NoFooter: true}}},
			want: ErrMissingFooter,
		},
		{
			name: "missing company footer",
			page: fixture.Page{Products: []fixture.Product{{Name: "Suite", NoFooter: true, Subs: []fixture.Sub{{Name: "S"}}}}},
			want: ErrMissingFooter,
		},
		{
			name: "missing sub-product name",
			page: fixture.Page{Products: []fixture.Product{{Name: "Suite", CompanyWebsite: "https://s.test", Subs: []fixture.Sub{{Name: "S"}, {Website: "https://x.test"}}}}},
			want: ErrMissingSubProductName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := NewExtractor().Extract(tt.page.HTML())
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if result != nil {
				t.Fatalf("expected no partial result, got %+v", result)
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("error %T is not a *ParseError", err)
			}
		})
	}
}

func TestErrorTypeLabel(t *testing.T) {
	err := parseErr(ErrUnknownCertification, "x", "label")
	if got := ErrorTypeLabel(err); got != "unknown_certification" {
		t.Fatalf("label = %q", got)
	}
	if got := ErrorTypeLabel(errors.New("boom")); got != "other" {
		t.Fatalf("label = %q", got)
	}
}
