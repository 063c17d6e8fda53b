// internal/dom/document.go
package dom

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Node is a handle on one element within a Context.
type Node struct {
	sel *goquery.Selection
}

// HasClass reports whether the node carries the given class.
func (n *Node) HasClass(class string) bool {
	if n == nil || n.sel == nil {
		return false
	}
	return n.sel.HasClass(class)
}

// Is reports whether the node matches the given selector.
func (n *Node) Is(selector string) bool {
	if n == nil || n.sel == nil {
		return false
	}
	return n.sel.Is(selector)
}

// Document is a goquery-backed Context over a static HTML snapshot.
// goquery documents are immutable once parsed, so a Document is safe for
// concurrent readers.
type Document struct {
	doc  *goquery.Document
	base *url.URL
}

// NewDocument parses HTML into a queryable document. baseURL may be empty
// when the origin is unknown; URL fields then resolve relative references
// as-is.
func NewDocument(html, baseURL string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var base *url.URL
	if baseURL != "" {
		base, err = url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
		}
	}

	return &Document{doc: doc, base: base}, nil
}

// Query returns the nodes matching selector, document-wide for a nil
// scope, otherwise relative to scope.
func (d *Document) Query(scope *Node, selector string) []*Node {
	var sel *goquery.Selection
	if scope == nil || scope.sel == nil {
		sel = d.doc.Find(selector)
	} else {
		sel = scope.sel.Find(selector)
	}

	nodes := make([]*Node, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, &Node{sel: s})
	})
	return nodes
}

// Text returns the node's inner text.
func (d *Document) Text(n *Node) string {
	if n == nil || n.sel == nil {
		return ""
	}
	return n.sel.Text()
}

// HTML returns the node's serialized outer markup.
func (d *Document) HTML(n *Node) (string, error) {
	if n == nil || n.sel == nil {
		return "", fmt.Errorf("nil node")
	}
	return goquery.OuterHtml(n.sel)
}

// InnerHTML returns the node's serialized inner markup.
func (d *Document) InnerHTML(n *Node) (string, error) {
	if n == nil || n.sel == nil {
		return "", fmt.Errorf("nil node")
	}
	return n.sel.Html()
}

// Attribute returns the named attribute and whether it exists.
func (d *Document) Attribute(n *Node, name string) (string, bool) {
	if n == nil || n.sel == nil {
		return "", false
	}
	return n.sel.Attr(name)
}

// BaseURL returns the document's base URL, or nil.
func (d *Document) BaseURL() *url.URL {
	return d.base
}
