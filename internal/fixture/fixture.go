// Package fixture renders listing pages in the default layout for tests.
package fixture

import (
	"fmt"
	"html"
	"strings"
)

// NextState describes the next-page control on a fixture page.
type NextState int

const (
	NextNone NextState = iota
	NextEnabled
	NextDisabled
)

// Sub is a nested sub-product entry.
type Sub struct {
	Name    string
	Website string
}

// Product is one card in the grid.
type Product struct {
	ID             int
	Name           string
	Company        string
	Badges         []string
	Website        string
	CompanyWebsite string
	Subs           []Sub
	NoFooter       bool
	NoCerts        bool
}

// Page is one rendered listing page.
type Page struct {
	Label    string
	Products []Product
	Next     NextState
	NextHref string
	NoGrid   bool
}

// HTML renders the page.
func (p Page) HTML() string {
	var b strings.Builder
	b.WriteString("<html><body>")

	b.WriteString(`<nav class="products__pagination">`)
	b.WriteString(`<a class="products__pagination__item product__pagination__item--nav" href="#prev"><i class="fa fa-arrow-left"></i></a>`)
	if p.Label != "" {
		fmt.Fprintf(&b, `<a class="products__pagination__item is-active">%s</a>`, html.EscapeString(p.Label))
	}
	if p.Next != NextNone {
		class := "products__pagination__item product__pagination__item--nav"
		if p.Next == NextDisabled {
			class += " is-disabled"
		}
		href := p.NextHref
		if href == "" {
			href = "#"
		}
		fmt.Fprintf(&b, `<a class="%s" href="%s"><i class="fa fa-arrow-right"></i></a>`, class, html.EscapeString(href))
	}
	b.WriteString("</nav>")

	if !p.NoGrid {
		b.WriteString(`<div class="products__grid">`)
		for _, product := range p.Products {
			writeProduct(&b, product)
		}
		b.WriteString("</div>")
	}

	b.WriteString("</body></html>")
	return b.String()
}

func writeProduct(b *strings.Builder, p Product) {
	class := "product"
	if p.ID > 0 {
		class = fmt.Sprintf("product product--%d", p.ID)
	}
	fmt.Fprintf(b, `<div class="%s">`, class)
	if p.Name != "" {
		fmt.Fprintf(b, `<span class="h4">%s</span>`, html.EscapeString(p.Name))
	}
	if p.Company != "" {
		fmt.Fprintf(b, `<span class="h6">%s</span>`, html.EscapeString(p.Company))
	}
	if !p.NoCerts {
		b.WriteString(`<div class="product__certifications">`)
		for _, badge := range p.Badges {
			fmt.Fprintf(b, `<img src="/badge.png" alt="%s">`, html.EscapeString(badge))
		}
		b.WriteString("</div>")
	}

	if p.Subs != nil {
		b.WriteString(`<ul class="product__subproducts">`)
		for _, sub := range p.Subs {
			b.WriteString("<li>")
			if sub.Name != "" {
				fmt.Fprintf(b, `<span class="h5">%s</span>`, html.EscapeString(sub.Name))
			}
			if sub.Website != "" {
				fmt.Fprintf(b, `<a href="%s">View Website &rarr;</a>`, html.EscapeString(sub.Website))
			}
			b.WriteString("</li>")
		}
		b.WriteString("</ul>")
		if !p.NoFooter {
			fmt.Fprintf(b, `<div class="company__footer"><a href="%s">View Website</a></div>`, html.EscapeString(p.CompanyWebsite))
		}
	} else if !p.NoFooter {
		fmt.Fprintf(b, `<div class="product__footer"><a href="/details">Details</a><a href="%s">View Website</a></div>`, html.EscapeString(p.Website))
	}

	b.WriteString("</div>")
}
