// internal/dom/dom.go

// Package dom abstracts the rendered document a schema is interpreted
// against. A Context is the read side: one snapshot of a page, queryable
// by CSS selector and safe for concurrent readers. A Browser is the
// navigation side: it drives a live session and hands out fresh Context
// snapshots after each navigation, click, submit, or scroll.
package dom

import (
	"context"
	"net/url"
	"time"
)

// Context is one rendered document. Implementations must allow concurrent
// read access; no method mutates the document.
type Context interface {
	// Query returns the nodes matching selector. A nil scope queries the
	// whole document; otherwise the query is relative to scope.
	Query(scope *Node, selector string) []*Node

	// Text returns the inner text of a node, untrimmed.
	Text(n *Node) string

	// HTML returns the serialized outer markup of a node.
	HTML(n *Node) (string, error)

	// InnerHTML returns the serialized inner markup of a node.
	InnerHTML(n *Node) (string, error)

	// Attribute returns the named attribute value and whether it exists.
	Attribute(n *Node, name string) (string, bool)

	// BaseURL returns the document's base URL, or nil when unknown.
	BaseURL() *url.URL
}

// Browser drives one sequential browsing session. Implementations are not
// required to be safe for concurrent use; the pagination controller is the
// only caller and processes one page at a time.
type Browser interface {
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, selector string) error
	SubmitForm(ctx context.Context, selector string, fields map[string]string) error

	// ScrollTo scrolls the element matched by selector to the given
	// fraction of its scrollable height.
	ScrollTo(ctx context.Context, selector string, fraction float64) error

	CurrentURL(ctx context.Context) (string, error)
	WaitReady(ctx context.Context, timeout time.Duration) error

	// Snapshot captures the current DOM as a queryable Context.
	Snapshot(ctx context.Context) (Context, error)

	Close() error
}

// AsyncReporter is implemented by browsers that can report in-flight
// asynchronous work (pending XHR/fetch). The controller polls it before
// judging pagination state so the DOM is not inspected mid-update.
type AsyncReporter interface {
	PendingWork(ctx context.Context) (bool, error)
}
