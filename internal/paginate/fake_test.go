// internal/paginate/fake_test.go
package paginate

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jungyu/DataScout-sub003/internal/dom"
)

// fakeBrowser serves an in-memory site: a map of URL to HTML, plus
// optional click and submit handlers that move the current URL.
type fakeBrowser struct {
	pages      map[string]string
	currentURL string

	// onClick maps a selector to the URL it navigates to.
	onClick map[string]string
	// onSubmit is invoked for form submissions and returns the next URL.
	onSubmit func(selector string, fields map[string]string) (string, error)
	// onScroll appends content for infinite scroll simulations.
	onScroll func() error

	navigateErr  error
	navigations  int
	clicks       int
	snapshots    int
	closed       bool
	failNextNavs int
}

func newFakeBrowser(pages map[string]string) *fakeBrowser {
	return &fakeBrowser{pages: pages, onClick: map[string]string{}}
}

func (b *fakeBrowser) Navigate(ctx context.Context, url string) error {
	b.navigations++
	if b.failNextNavs > 0 {
		b.failNextNavs--
		return fmt.Errorf("connection reset")
	}
	if b.navigateErr != nil {
		return b.navigateErr
	}
	if _, ok := b.pages[url]; !ok {
		return fmt.Errorf("no route for %s", url)
	}
	b.currentURL = url
	return nil
}

func (b *fakeBrowser) Click(ctx context.Context, selector string) error {
	b.clicks++
	next, ok := b.onClick[selector]
	if !ok {
		return fmt.Errorf("nothing to click for %s", selector)
	}
	b.currentURL = next
	return nil
}

func (b *fakeBrowser) SubmitForm(ctx context.Context, selector string, fields map[string]string) error {
	if b.onSubmit == nil {
		return fmt.Errorf("no form handler")
	}
	next, err := b.onSubmit(selector, fields)
	if err != nil {
		return err
	}
	b.currentURL = next
	return nil
}

func (b *fakeBrowser) ScrollTo(ctx context.Context, selector string, fraction float64) error {
	if b.onScroll != nil {
		return b.onScroll()
	}
	return nil
}

func (b *fakeBrowser) CurrentURL(ctx context.Context) (string, error) {
	return b.currentURL, nil
}

func (b *fakeBrowser) WaitReady(ctx context.Context, timeout time.Duration) error {
	return nil
}

func (b *fakeBrowser) Snapshot(ctx context.Context) (dom.Context, error) {
	b.snapshots++
	html, ok := b.pages[b.currentURL]
	if !ok {
		return nil, fmt.Errorf("no page at %s", b.currentURL)
	}
	return dom.NewDocument(html, b.currentURL)
}

func (b *fakeBrowser) Close() error {
	b.closed = true
	return nil
}

func mustSnapshot(t *testing.T, b *fakeBrowser) dom.Context {
	t.Helper()
	page, err := b.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	return page
}
