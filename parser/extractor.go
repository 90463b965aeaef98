package parser

import (
	"fmt"
	"log/slog"

	"github.com/aluiziolira/go-scrape-certs/dom"
	"github.com/aluiziolira/go-scrape-certs/models"
)

// SubProductIDPolicy decides which identifier sub-product records carry.
type SubProductIDPolicy string

const (
	// InheritParentID gives each sub-product its parent card's identifier.
	InheritParentID SubProductIDPolicy = "inherit"
	// NoSubProductID leaves sub-product identifiers empty.
	NoSubProductID SubProductIDPolicy = "none"
)

// ParseSubProductIDPolicy validates a policy name.
func ParseSubProductIDPolicy(s string) (SubProductIDPolicy, error) {
	switch p := SubProductIDPolicy(s); p {
	case InheritParentID, NoSubProductID:
		return p, nil
	}
	return "", fmt.Errorf("sub-product id policy must be %q or %q", InheritParentID, NoSubProductID)
}

// PageResult is the batch of records extracted from one rendered page.
type PageResult struct {
	Records           []models.ProductRecord
	Count             int
	SubProductParents []string
}

// Extractor turns one rendered listing page into flat product records.
type Extractor struct {
	layout       Layout
	vocabulary   Vocabulary
	subProductID SubProductIDPolicy
	logger       *slog.Logger
}

// Option customises an Extractor.
type Option func(*Extractor)

// WithLayout overrides the default selectors.
func WithLayout(l Layout) Option {
	return func(e *Extractor) { e.layout = l }
}

// WithVocabulary overrides the badge vocabulary.
func WithVocabulary(v Vocabulary) Option {
	return func(e *Extractor) { e.vocabulary = v }
}

// WithSubProductIDPolicy sets how sub-product identifiers are assigned.
func WithSubProductIDPolicy(p SubProductIDPolicy) Option {
	return func(e *Extractor) { e.subProductID = p }
}

// WithLogger sets the logger used for skipped cards.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// NewExtractor builds an extractor for the default listing layout.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		layout:       DefaultLayout(),
		vocabulary:   DefaultVocabulary(),
		subProductID: InheritParentID,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Layout returns the selectors in use.
func (e *Extractor) Layout() Layout {
	return e.layout
}

// Extract parses rendered markup.
func (e *Extractor) Extract(markup string) (*PageResult, error) {
	root, err := dom.Parse(markup)
	if err != nil {
		return nil, err
	}
	return e.ExtractNode(root)
}

// ExtractNode walks the product grid under root. Only the grid's direct
// children are product cards; nested elements belong to sub-product lists.
func (e *Extractor) ExtractNode(root dom.Node) (*PageResult, error) {
	grid, ok := root.Find(e.layout.Grid)
	if !ok {
		return nil, parseErr(ErrNoProductsFound, "", "grid container "+e.layout.Grid+" not found")
	}

	result := &PageResult{}
	for i, card := range grid.Children() {
		records, hasSubs, err := e.extractCard(card)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			e.logger.Debug("skipping grid child without product name or company", slog.Int("index", i))
			continue
		}
		if hasSubs {
			result.SubProductParents = append(result.SubProductParents, records[len(records)-1].Name)
		}
		result.Records = append(result.Records, records...)
	}

	if len(result.Records) == 0 {
		return nil, parseErr(ErrNoProductsFound, "", "grid container holds no product cards")
	}
	result.Count = len(result.Records)
	return result, nil
}

func (e *Extractor) extractCard(card dom.Node) ([]models.ProductRecord, bool, error) {
	name := e.text(card, e.layout.ProductName)
	company := e.text(card, e.layout.CompanyName)
	if name == "" {
		if company != "" {
			return nil, false, parseErr(ErrMissingProductName, "", "company "+company+" has no product name")
		}
		return nil, false, nil
	}

	var id *int
	if v, ok := ParseID(card.Classes(), e.layout.IDClassPrefix); ok {
		id = &v
	}

	certs, err := e.certifications(card, name)
	if err != nil {
		return nil, false, err
	}

	parent := models.ProductRecord{
		ID:             id,
		Name:           name,
		Company:        company,
		Certifications: certs,
	}

	subList, hasSubs := card.Find(e.layout.SubProducts)
	if !hasSubs {
		footer, ok := card.Find(e.layout.Footer)
		if !ok {
			return nil, false, parseErr(ErrMissingFooter, name, "footer "+e.layout.Footer+" not found")
		}
		parent.Website = e.website(footer, dom.ExactText(e.layout.WebsiteText))
		return []models.ProductRecord{parent}, false, nil
	}

	companyFooter, ok := card.Find(e.layout.CompanyFooter)
	if !ok {
		return nil, false, parseErr(ErrMissingFooter, name, "company footer "+e.layout.CompanyFooter+" not found")
	}
	parent.Website = e.website(companyFooter, dom.ExactText(e.layout.WebsiteText))

	items := subList.FindAll(e.layout.SubProductItem)
	records := make([]models.ProductRecord, 0, len(items)+1)
	for i, item := range items {
		subName := e.text(item, e.layout.SubProductName)
		if subName == "" {
			return nil, false, parseErr(ErrMissingSubProductName, name, fmt.Sprintf("sub-product %d", i+1))
		}

		link := e.website(item, dom.ContainsText(e.layout.WebsiteText))
		if link == "" {
			link = parent.Website
		}

		sub := parent.Clone()
		sub.Name = subName
		sub.Website = link
		if e.subProductID == NoSubProductID {
			sub.ID = nil
		}
		records = append(records, sub)
	}
	records = append(records, parent)
	return records, true, nil
}

func (e *Extractor) certifications(card dom.Node, product string) (models.CertificationSet, error) {
	set := models.NewCertificationSet()
	container, ok := card.Find(e.layout.Certifications)
	if !ok {
		return nil, parseErr(ErrMissingCertifications, product, "")
	}
	for _, badge := range container.FindAll(e.layout.Badge) {
		label, _ := badge.Attr(e.layout.BadgeLabelAttr)
		code, ok := e.vocabulary.Lookup(label)
		if !ok {
			return nil, parseErr(ErrUnknownCertification, product, fmt.Sprintf("label %q", label))
		}
		set[code] = true
	}
	return set, nil
}

func (e *Extractor) text(n dom.Node, selector string) string {
	found, ok := n.Find(selector)
	if !ok {
		return ""
	}
	return found.Text()
}

func (e *Extractor) website(n dom.Node, match dom.TextMatch) string {
	anchor, ok := n.FindByText(e.layout.WebsiteAnchor, match)
	if !ok {
		return ""
	}
	href, _ := anchor.Attr("href")
	return NormalizeWebsite(href)
}
