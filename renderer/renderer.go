// Package renderer drives the page the crawler reads. The crawl core only
// uses the Renderer interface; Chrome and Static are its implementations.
package renderer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var (
	// ErrElementTimeout is returned when a waited-for element never appears.
	ErrElementTimeout = errors.New("renderer: element wait timed out")
	// ErrNotClickable is returned when an element cannot be activated.
	ErrNotClickable = errors.New("renderer: element not clickable")
	// ErrClosed is returned by every call after Close.
	ErrClosed = errors.New("renderer: closed")
)

// Element is a snapshot of one matched element plus the handle the owning
// renderer needs to act on it.
type Element struct {
	Text  string
	Attrs map[string]string
	ref   any
}

// NewElement builds an element; ref is opaque to callers.
func NewElement(text string, attrs map[string]string, ref any) Element {
	if attrs == nil {
		attrs = map[string]string{}
	}
	return Element{Text: text, Attrs: attrs, ref: ref}
}

// Ref returns the renderer-specific handle.
func (e Element) Ref() any {
	return e.ref
}

// Attr returns an attribute value.
func (e Element) Attr(name string) (string, bool) {
	v, ok := e.Attrs[name]
	return v, ok
}

// HasClass reports whether the element's class list contains class.
func (e Element) HasClass(class string) bool {
	for _, c := range strings.Fields(e.Attrs["class"]) {
		if c == class {
			return true
		}
	}
	return false
}

// Renderer loads a listing and exposes its rendered markup and controls.
type Renderer interface {
	Navigate(ctx context.Context, url string) error
	CurrentMarkup(ctx context.Context) (string, error)
	WaitForElement(ctx context.Context, selector string, timeout time.Duration) (Element, error)
	FindElements(ctx context.Context, selector string) ([]Element, error)
	Click(ctx context.Context, el Element) error
	Close() error
}

// Opener acquires a fresh renderer for one crawl.
type Opener func(ctx context.Context) (Renderer, error)

// QueryMarkup matches selector against static markup. The element ref is the
// match index, which is enough for renderers that re-resolve on click.
func QueryMarkup(markup, selector string) ([]Element, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}
	var out []Element
	doc.Find(selector).Each(func(i int, s *goquery.Selection) {
		attrs := make(map[string]string, len(s.Nodes[0].Attr))
		for _, a := range s.Nodes[0].Attr {
			attrs[a.Key] = a.Val
		}
		out = append(out, NewElement(strings.Join(strings.Fields(s.Text()), " "), attrs, i))
	})
	return out, nil
}
