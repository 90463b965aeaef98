package parser

import (
	"fmt"

	"github.com/aluiziolira/go-scrape-certs/dom"
)

// Layout names the selectors of the product-card grid family.
type Layout struct {
	Grid           string
	ProductName    string
	CompanyName    string
	Certifications string
	Badge          string
	BadgeLabelAttr string
	SubProducts    string
	SubProductItem string
	SubProductName string
	Footer         string
	CompanyFooter  string
	WebsiteAnchor  string
	WebsiteText    string
	IDClassPrefix  string

	// Pagination controls, used by the driver rather than the extractor.
	ActivePage    string
	NextPage      string
	DisabledClass string
}

// DefaultLayout matches the iKeepSafe product listing.
func DefaultLayout() Layout {
	return Layout{
		Grid:           "div.products__grid",
		ProductName:    "span.h4",
		CompanyName:    "span.h6",
		Certifications: "div.product__certifications",
		Badge:          "img",
		BadgeLabelAttr: "alt",
		SubProducts:    "ul.product__subproducts",
		SubProductItem: "li",
		SubProductName: "span.h5",
		Footer:         "div.product__footer",
		CompanyFooter:  "div.company__footer",
		WebsiteAnchor:  "a",
		WebsiteText:    "View Website",
		IDClassPrefix:  "product--",
		ActivePage:     "a.products__pagination__item.is-active",
		NextPage:       "a.products__pagination__item.product__pagination__item--nav:has(i.fa-arrow-right)",
		DisabledClass:  "is-disabled",
	}
}

// Validate checks that every selector compiles, reporting the first failure
// in field order.
func (l Layout) Validate() error {
	selectors := []struct{ name, sel string }{
		{"grid", l.Grid},
		{"product name", l.ProductName},
		{"company name", l.CompanyName},
		{"certifications", l.Certifications},
		{"badge", l.Badge},
		{"sub-products", l.SubProducts},
		{"sub-product item", l.SubProductItem},
		{"sub-product name", l.SubProductName},
		{"footer", l.Footer},
		{"company footer", l.CompanyFooter},
		{"website anchor", l.WebsiteAnchor},
		{"active page", l.ActivePage},
		{"next page", l.NextPage},
	}
	for _, s := range selectors {
		if s.sel == "" {
			return fmt.Errorf("%s selector cannot be empty", s.name)
		}
		if err := dom.Compile(s.sel); err != nil {
			return fmt.Errorf("%s selector: %w", s.name, err)
		}
	}
	if l.BadgeLabelAttr == "" {
		return fmt.Errorf("badge label attribute cannot be empty")
	}
	if l.WebsiteText == "" {
		return fmt.Errorf("website anchor text cannot be empty")
	}
	if l.IDClassPrefix == "" {
		return fmt.Errorf("id class prefix cannot be empty")
	}
	return nil
}
