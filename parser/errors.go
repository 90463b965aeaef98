package parser

import (
	"errors"
	"fmt"
)

// Structural parse failures. Every error returned by the extractor is a
// *ParseError unwrapping to one of these.
var (
	ErrNoProductsFound       = errors.New("no products found")
	ErrMissingProductName    = errors.New("missing product name")
	ErrMissingCertifications = errors.New("missing certifications container")
	ErrUnknownCertification  = errors.New("unknown certification label")
	ErrMissingFooter         = errors.New("missing website footer")
	ErrMissingSubProductName = errors.New("missing sub-product name")
)

// ParseError reports where on the page a structural rule was broken.
type ParseError struct {
	Kind    error
	Product string
	Detail  string
}

func (e *ParseError) Error() string {
	msg := e.Kind.Error()
	if e.Product != "" {
		msg = fmt.Sprintf("%s (product %q)", msg, e.Product)
	}
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Kind
}

func parseErr(kind error, product, detail string) error {
	return &ParseError{Kind: kind, Product: product, Detail: detail}
}

// ErrorTypeLabel maps a parse error to a short metric label.
func ErrorTypeLabel(err error) string {
	switch {
	case err == nil:
		return "unknown"
	case errors.Is(err, ErrNoProductsFound):
		return "no_products"
	case errors.Is(err, ErrMissingProductName):
		return "missing_name"
	case errors.Is(err, ErrMissingCertifications):
		return "missing_certifications"
	case errors.Is(err, ErrUnknownCertification):
		return "unknown_certification"
	case errors.Is(err, ErrMissingFooter):
		return "missing_footer"
	case errors.Is(err, ErrMissingSubProductName):
		return "missing_sub_product_name"
	}
	return "other"
}
