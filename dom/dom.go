// Package dom exposes the small query capability the extractor needs from a
// parsed document, independent of the parsing library behind it.
package dom

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Node is one element of a parsed document.
type Node interface {
	// Find returns the first descendant matching selector.
	Find(selector string) (Node, bool)
	// FindAll returns every descendant matching selector in document order.
	FindAll(selector string) []Node
	// FindByText returns the first descendant matching selector whose text satisfies match.
	FindByText(selector string, match TextMatch) (Node, bool)
	// Children returns direct element children only.
	Children() []Node
	Text() string
	Attr(name string) (string, bool)
	Classes() []string
}

// TextMatch decides whether an element's whitespace-normalised text qualifies.
type TextMatch func(text string) bool

// ExactText matches text equal to want after whitespace normalisation.
func ExactText(want string) TextMatch {
	return func(text string) bool {
		return text == want
	}
}

// ContainsText matches text containing want.
func ContainsText(want string) TextMatch {
	return func(text string) bool {
		return strings.Contains(text, want)
	}
}

// Compile validates a CSS selector.
func Compile(selector string) error {
	if _, err := cascadia.Compile(selector); err != nil {
		return fmt.Errorf("selector %q: %w", selector, err)
	}
	return nil
}

// Parse builds a document from rendered markup.
func Parse(markup string) (Node, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}
	return node{sel: doc.Selection}, nil
}

// FromSelection wraps an existing goquery selection.
func FromSelection(sel *goquery.Selection) Node {
	return node{sel: sel.First()}
}

type node struct {
	sel *goquery.Selection
}

func (n node) Find(selector string) (Node, bool) {
	found := n.find(selector).First()
	if found.Length() == 0 {
		return nil, false
	}
	return node{sel: found}, true
}

func (n node) FindAll(selector string) []Node {
	return wrap(n.find(selector))
}

func (n node) FindByText(selector string, match TextMatch) (Node, bool) {
	var out Node
	n.find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if match(normalize(s.Text())) {
			out = node{sel: s}
			return false
		}
		return true
	})
	return out, out != nil
}

func (n node) Children() []Node {
	return wrap(n.sel.Children())
}

func (n node) Text() string {
	return normalize(n.sel.Text())
}

func (n node) Attr(name string) (string, bool) {
	return n.sel.Attr(name)
}

func (n node) Classes() []string {
	class, ok := n.sel.Attr("class")
	if !ok {
		return nil
	}
	return strings.Fields(class)
}

// find goes through cascadia directly so a malformed selector matches
// nothing instead of panicking inside goquery.
func (n node) find(selector string) *goquery.Selection {
	matcher, err := cascadia.Compile(selector)
	if err != nil {
		return n.sel.Slice(0, 0)
	}
	return n.sel.FindMatcher(matcher)
}

func wrap(sel *goquery.Selection) []Node {
	out := make([]Node, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, node{sel: s})
	})
	return out
}

func normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
