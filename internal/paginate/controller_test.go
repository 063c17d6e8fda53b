// internal/paginate/controller_test.go
package paginate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jungyu/DataScout-sub003/internal/dom"
	"github.com/jungyu/DataScout-sub003/internal/extract"
	"github.com/jungyu/DataScout-sub003/internal/schema"
)

func testItemSpec() schema.ItemSpec {
	return schema.ItemSpec{
		ContainerSelector: "#list",
		ItemSelector:      ".item",
		Fields: map[string]schema.FieldSpec{
			"title": {Selector: "h3 a", Type: schema.TypeText, Required: true},
			"url":   {Selector: "h3 a", Type: schema.TypeURL},
		},
	}
}

// sitePage renders a listing page with the given item ids and an optional
// next link. An empty next renders a disabled button.
func sitePage(ids []int, next string) string {
	var b strings.Builder
	b.WriteString(`<div id="list">`)
	for _, id := range ids {
		fmt.Fprintf(&b, `<div class="item"><h3><a href="/article/%d">Article %d</a></h3></div>`, id, id)
	}
	b.WriteString(`</div>`)
	if next != "" {
		fmt.Fprintf(&b, `<a class="next" href="%s">next</a>`, next)
	} else {
		b.WriteString(`<a class="next disabled" href="#">next</a>`)
	}
	return b.String()
}

func fastOptions() Options {
	return Options{
		MaxPages:          10,
		MaxRetries:        2,
		RetryBackoff:      time.Millisecond,
		AjaxSettleTimeout: time.Millisecond,
	}
}

func newTestController(t *testing.T, spec schema.NavigationSpec, opts Options) *Controller {
	t.Helper()
	strategy, err := NewStrategy(spec)
	if err != nil {
		t.Fatalf("strategy: %v", err)
	}
	list := extract.NewListExtractor(nil, nil)
	return NewController(strategy, list, testItemSpec(), opts, nil)
}

func TestControllerRunNextButton(t *testing.T) {
	pages := map[string]string{
		"https://x.test/list?page=1": sitePage([]int{1, 2, 3}, "/list?page=2"),
		"https://x.test/list?page=2": sitePage([]int{4, 5, 6}, "/list?page=3"),
		"https://x.test/list?page=3": sitePage([]int{7, 8}, ""),
	}
	b := newFakeBrowser(pages)
	c := newTestController(t, schema.NavigationSpec{
		Type: schema.NavNextButton, NextButtonSelector: "a.next",
	}, fastOptions())

	records, stats, err := c.Run(context.Background(), b, "https://x.test/list?page=1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.PagesVisited != 3 {
		t.Errorf("pages visited = %d, want 3", stats.PagesVisited)
	}
	if len(records) != 8 {
		t.Fatalf("got %d records, want 8", len(records))
	}
	if stats.Cancelled || stats.Aborted {
		t.Errorf("unexpected markers: %+v", stats)
	}
	if records[0]["title"] != "Article 1" || records[7]["title"] != "Article 8" {
		t.Errorf("record order broken: first = %v, last = %v", records[0]["title"], records[7]["title"])
	}
	if stats.StrategyName != "next_button" {
		t.Errorf("strategy name = %q", stats.StrategyName)
	}
}

func TestControllerRunFormSubmit(t *testing.T) {
	form := `<form id="search"><input name="page"></form>`
	pages := map[string]string{
		"https://x.test/results?page=1": sitePage([]int{1, 2}, "") + form,
		"https://x.test/results?page=2": sitePage([]int{3}, "") + form,
		"https://x.test/results?page=3": sitePage([]int{4}, ""),
	}
	b := newFakeBrowser(pages)
	b.onSubmit = func(selector string, fields map[string]string) (string, error) {
		if selector != "#search" {
			return "", fmt.Errorf("unexpected form %s", selector)
		}
		return "https://x.test/results?page=" + fields["page"], nil
	}

	c := newTestController(t, schema.NavigationSpec{
		Type:         schema.NavFormSubmit,
		FormSelector: "#search",
		FormFields:   map[string]string{"page": "{page}", "sort": "new"},
	}, fastOptions())

	records, stats, err := c.Run(context.Background(), b, "https://x.test/results?page=1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// page 3 serves no form, so the strategy reports exhaustion there
	if stats.PagesVisited != 3 {
		t.Errorf("pages visited = %d, want 3", stats.PagesVisited)
	}
	if len(records) != 4 {
		t.Fatalf("got %d records, want 4", len(records))
	}
	if records[3]["title"] != "Article 4" {
		t.Errorf("last record = %v", records[3]["title"])
	}
	if stats.StrategyName != "form_submit" {
		t.Errorf("strategy name = %q", stats.StrategyName)
	}
}

func TestControllerDeduplicatesAcrossPages(t *testing.T) {
	// page 2 re-serves items 2 and 3 alongside new ones
	pages := map[string]string{
		"https://x.test/p1": sitePage([]int{1, 2, 3}, "/p2"),
		"https://x.test/p2": sitePage([]int{2, 3, 4, 5}, ""),
	}
	b := newFakeBrowser(pages)
	c := newTestController(t, schema.NavigationSpec{
		Type: schema.NavNextButton, NextButtonSelector: "a.next",
	}, fastOptions())

	records, stats, err := c.Run(context.Background(), b, "https://x.test/p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 5 {
		t.Errorf("got %d records, want 5 unique", len(records))
	}
	if stats.DuplicatesDropped != 2 {
		t.Errorf("duplicates dropped = %d, want 2", stats.DuplicatesDropped)
	}
}

func TestControllerMaxPagesBound(t *testing.T) {
	pages := map[string]string{
		"https://x.test/list?page=1": sitePage([]int{1}, ""),
		"https://x.test/list?page=2": sitePage([]int{2}, ""),
		"https://x.test/list?page=3": sitePage([]int{3}, ""),
		"https://x.test/list?page=4": sitePage([]int{4}, ""),
	}
	b := newFakeBrowser(pages)

	opts := fastOptions()
	opts.MaxPages = 3
	c := newTestController(t, schema.NavigationSpec{
		Type: schema.NavURLParameter, PageParam: "page",
	}, opts)

	records, stats, err := c.Run(context.Background(), b, "https://x.test/list?page=1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.PagesVisited != 3 {
		t.Errorf("pages visited = %d, want 3 (hard bound)", stats.PagesVisited)
	}
	if len(records) != 3 {
		t.Errorf("got %d records", len(records))
	}
}

func TestControllerInitFailureIsFatal(t *testing.T) {
	b := newFakeBrowser(map[string]string{})
	b.failNextNavs = 10

	opts := fastOptions()
	opts.MaxRetries = 1
	c := newTestController(t, schema.NavigationSpec{
		Type: schema.NavURLParameter, PageParam: "page",
	}, opts)

	_, _, err := c.Run(context.Background(), b, "https://x.test/gone")
	var nav *NavigationError
	if !errors.As(err, &nav) {
		t.Fatalf("got %v, want NavigationError", err)
	}
}

func TestControllerInitRetriesThenSucceeds(t *testing.T) {
	pages := map[string]string{"https://x.test/p1": sitePage([]int{1}, "")}
	b := newFakeBrowser(pages)
	b.failNextNavs = 1

	c := newTestController(t, schema.NavigationSpec{
		Type: schema.NavNextButton, NextButtonSelector: "a.next",
	}, fastOptions())

	records, _, err := c.Run(context.Background(), b, "https://x.test/p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("got %d records", len(records))
	}
	if b.navigations < 2 {
		t.Errorf("navigations = %d, want retry", b.navigations)
	}
}

func TestControllerCancellationIsMarkerNotError(t *testing.T) {
	pages := map[string]string{
		"https://x.test/p1": sitePage([]int{1, 2}, "/p2"),
		"https://x.test/p2": sitePage([]int{3}, ""),
	}
	b := newFakeBrowser(pages)

	opts := fastOptions()
	opts.PageDelay = 5 * time.Second
	c := newTestController(t, schema.NavigationSpec{
		Type: schema.NavNextButton, NextButtonSelector: "a.next",
	}, opts)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	records, stats, err := c.Run(ctx, b, "https://x.test/p1")
	if err != nil {
		t.Fatalf("cancellation must not be an error, got %v", err)
	}
	if !stats.Cancelled {
		t.Error("expected cancelled marker")
	}
	if len(records) != 2 {
		t.Errorf("got %d partial records, want 2", len(records))
	}
}

func TestControllerVisitedLoopProtection(t *testing.T) {
	// page 2 links back to page 1
	pages := map[string]string{
		"https://x.test/p1": sitePage([]int{1}, "/p2"),
		"https://x.test/p2": sitePage([]int{2}, "/p1"),
	}
	b := newFakeBrowser(pages)
	c := newTestController(t, schema.NavigationSpec{
		Type: schema.NavNextButton, NextButtonSelector: "a.next",
	}, fastOptions())

	records, stats, err := c.Run(context.Background(), b, "https://x.test/p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.PagesVisited != 2 {
		t.Errorf("pages visited = %d, want 2 (loop detected)", stats.PagesVisited)
	}
	if len(records) != 2 {
		t.Errorf("got %d records", len(records))
	}
}

func TestControllerNavigationFailureAborts(t *testing.T) {
	pages := map[string]string{
		"https://x.test/p1": sitePage([]int{1}, "/missing"),
	}
	b := newFakeBrowser(pages)
	c := newTestController(t, schema.NavigationSpec{
		Type: schema.NavNextButton, NextButtonSelector: "a.next",
	}, fastOptions())

	records, stats, err := c.Run(context.Background(), b, "https://x.test/p1")
	if err != nil {
		t.Fatalf("post-init failures must not be errors, got %v", err)
	}
	if !stats.Aborted {
		t.Error("expected aborted marker")
	}
	if stats.FailedPages != 1 {
		t.Errorf("failed pages = %d, want 1", stats.FailedPages)
	}
	if len(records) != 1 {
		t.Errorf("page 1 records must survive, got %d", len(records))
	}
}

type blockingGate struct {
	selector string
	resolve  bool
	onAwait  func()
	awaits   int
}

func (g *blockingGate) Blocked(page dom.Context) bool {
	return len(page.Query(nil, g.selector)) > 0
}

func (g *blockingGate) AwaitResolution(ctx context.Context, sess *Session, timeout time.Duration) bool {
	g.awaits++
	if g.onAwait != nil {
		g.onAwait()
	}
	return g.resolve
}

func TestControllerUnresolvedCaptchaFailsPageAndContinues(t *testing.T) {
	pages := map[string]string{
		"https://x.test/p1": sitePage([]int{1}, "/p2") + `<div class="captcha"></div>`,
		"https://x.test/p2": sitePage([]int{2, 3}, ""),
	}
	b := newFakeBrowser(pages)

	opts := fastOptions()
	opts.Gate = &blockingGate{selector: ".captcha", resolve: false}
	opts.GateTimeout = time.Millisecond
	c := newTestController(t, schema.NavigationSpec{
		Type: schema.NavNextButton, NextButtonSelector: "a.next",
	}, opts)

	records, stats, err := c.Run(context.Background(), b, "https://x.test/p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Aborted || stats.Cancelled {
		t.Errorf("unresolved captcha must not end the run: %+v", stats)
	}
	if stats.FailedPages != 1 {
		t.Errorf("failed pages = %d, want 1", stats.FailedPages)
	}
	if stats.PagesVisited != 2 {
		t.Errorf("pages visited = %d, want 2", stats.PagesVisited)
	}
	if len(records) != 3 {
		t.Errorf("got %d records, want 3", len(records))
	}
}

func TestControllerResolvedCaptchaRescansWithoutRecounting(t *testing.T) {
	const url = "https://x.test/p1"
	pages := map[string]string{
		url: sitePage([]int{1}, "") + `<div class="captcha"></div>`,
	}
	b := newFakeBrowser(pages)

	gate := &blockingGate{selector: ".captcha", resolve: true}
	gate.onAwait = func() {
		b.pages[url] = sitePage([]int{1, 2}, "")
	}

	opts := fastOptions()
	opts.Gate = gate
	observed := 0
	opts.PageObserver = func(time.Duration) { observed++ }
	c := newTestController(t, schema.NavigationSpec{
		Type: schema.NavNextButton, NextButtonSelector: "a.next",
	}, opts)

	records, stats, err := c.Run(context.Background(), b, url)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gate.awaits != 1 {
		t.Errorf("awaits = %d, want 1", gate.awaits)
	}
	if stats.PagesVisited != 1 {
		t.Errorf("pages visited = %d, want 1 for a single rescanned page", stats.PagesVisited)
	}
	if observed != 1 {
		t.Errorf("page observer fired %d times, want 1", observed)
	}
	if stats.FailedPages != 0 {
		t.Errorf("failed pages = %d, want 0", stats.FailedPages)
	}
	if len(records) != 2 {
		t.Errorf("got %d records after rescan, want 2", len(records))
	}
}

func TestControllerInfiniteScroll(t *testing.T) {
	const url = "https://x.test/feed"
	feed := func(n int) string { return sitePage(seq(n), "") }

	b := newFakeBrowser(map[string]string{url: feed(3)})
	grown := false
	b.onScroll = func() error {
		if !grown {
			b.pages[url] = feed(6)
			grown = true
		}
		return nil
	}

	spec := schema.NavigationSpec{
		Type:                    schema.NavInfiniteScroll,
		ScrollContainerSelector: "#list",
		NewItemSelector:         ".item",
		ScrollThreshold:         0.9,
	}
	strategy, err := NewStrategy(spec)
	if err != nil {
		t.Fatalf("strategy: %v", err)
	}
	strategy.(*InfiniteScrollStrategy).SettleDelay = time.Millisecond

	list := extract.NewListExtractor(nil, nil)
	c := NewController(strategy, list, testItemSpec(), fastOptions(), nil)

	records, stats, err := c.Run(context.Background(), b, url)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 6 {
		t.Errorf("got %d unique records, want 6", len(records))
	}
	if stats.DuplicatesDropped != 3 {
		t.Errorf("duplicates dropped = %d, want 3 (rescanned items)", stats.DuplicatesDropped)
	}
	if stats.PagesVisited != 2 {
		t.Errorf("pages visited = %d, want 2 scroll steps", stats.PagesVisited)
	}
}

func seq(n int) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i + 1
	}
	return ids
}
