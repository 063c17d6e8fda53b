// internal/paginate/strategies.go
package paginate

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// URLParameterStrategy paginates by rewriting a page number into the URL,
// either through a template placeholder or a query parameter. It cannot
// see the last page ahead of time, so HasNext is optimistic and the run
// is bounded by maxPages and deduplication.
type URLParameterStrategy struct {
	// Template is a URL with a {page} placeholder. When empty, Param is
	// rewritten on the current URL instead.
	Template string
	Param    string
}

func (s *URLParameterStrategy) Name() string { return "url_parameter" }

func (s *URLParameterStrategy) HasNext(ctx context.Context, sess *Session, state *State) bool {
	return true
}

func (s *URLParameterStrategy) NextTarget(ctx context.Context, sess *Session, state *State) (Target, bool) {
	next := state.CurrentPage + 1

	if s.Template != "" {
		page := strings.ReplaceAll(s.Template, "{page}", strconv.Itoa(next))
		return Target{Kind: TargetURL, URL: page}, true
	}

	u, err := url.Parse(sess.CurrentURL)
	if err != nil {
		return Target{}, false
	}
	param := s.Param
	if param == "" {
		param = "page"
	}
	query := u.Query()
	query.Set(param, strconv.Itoa(next))
	u.RawQuery = query.Encode()
	return Target{Kind: TargetURL, URL: u.String()}, true
}

// NextButtonStrategy follows a dedicated next link or button. The button
// must exist, look enabled, and not be hidden.
type NextButtonStrategy struct {
	Selector string
}

func (s *NextButtonStrategy) Name() string { return "next_button" }

func (s *NextButtonStrategy) HasNext(ctx context.Context, sess *Session, state *State) bool {
	nodes := sess.Page.Query(nil, s.Selector)
	if len(nodes) == 0 {
		return false
	}
	button := nodes[0]

	if _, disabled := sess.Page.Attribute(button, "disabled"); disabled {
		return false
	}
	if aria, _ := sess.Page.Attribute(button, "aria-disabled"); aria == "true" {
		return false
	}
	if button.HasClass("disabled") {
		return false
	}
	if style, _ := sess.Page.Attribute(button, "style"); strings.Contains(strings.ReplaceAll(style, " ", ""), "display:none") {
		return false
	}
	return true
}

func (s *NextButtonStrategy) NextTarget(ctx context.Context, sess *Session, state *State) (Target, bool) {
	nodes := sess.Page.Query(nil, s.Selector)
	if len(nodes) == 0 {
		return Target{}, false
	}

	href, ok := sess.Page.Attribute(nodes[0], "href")
	if ok && href != "" && href != "#" {
		return Target{Kind: TargetURL, URL: absoluteURL(sess.CurrentURL, href)}, true
	}
	// no usable href: click and wait for the resulting navigation
	return Target{Kind: TargetClick, Selector: s.Selector}, true
}

// PageNumberStrategy locates the page link whose label or data-page
// attribute equals the next page number. Absence of the link means the
// last page has been reached.
type PageNumberStrategy struct {
	LinkSelector string
}

func (s *PageNumberStrategy) Name() string { return "page_number" }

func (s *PageNumberStrategy) HasNext(ctx context.Context, sess *Session, state *State) bool {
	_, _, ok := s.findLink(sess, state.CurrentPage+1)
	return ok
}

func (s *PageNumberStrategy) NextTarget(ctx context.Context, sess *Session, state *State) (Target, bool) {
	next := state.CurrentPage + 1
	href, byAttr, ok := s.findLink(sess, next)
	if !ok {
		return Target{}, false
	}
	if href != "" {
		return Target{Kind: TargetURL, URL: absoluteURL(sess.CurrentURL, href)}, true
	}
	selector := s.LinkSelector
	if byAttr {
		selector = s.LinkSelector + `[data-page="` + strconv.Itoa(next) + `"]`
	}
	return Target{Kind: TargetClick, Selector: selector}, true
}

// findLink returns the link's href (possibly empty), whether it was
// matched through data-page, and whether a link for page n exists.
func (s *PageNumberStrategy) findLink(sess *Session, n int) (href string, byAttr, ok bool) {
	label := strconv.Itoa(n)
	for _, node := range sess.Page.Query(nil, s.LinkSelector) {
		if attr, has := sess.Page.Attribute(node, "data-page"); has && attr == label {
			h, _ := sess.Page.Attribute(node, "href")
			return h, true, true
		}
		if strings.TrimSpace(sess.Page.Text(node)) == label {
			h, _ := sess.Page.Attribute(node, "href")
			return h, false, true
		}
	}
	return "", false, false
}

// FormSubmitStrategy advances by submitting a form with configured field
// values. HasNext is optimistic on form presence; field values may carry
// a {page} placeholder substituted with the next page number.
type FormSubmitStrategy struct {
	FormSelector string
	Fields       map[string]string
}

func (s *FormSubmitStrategy) Name() string { return "form_submit" }

func (s *FormSubmitStrategy) HasNext(ctx context.Context, sess *Session, state *State) bool {
	return len(sess.Page.Query(nil, s.FormSelector)) > 0
}

func (s *FormSubmitStrategy) NextTarget(ctx context.Context, sess *Session, state *State) (Target, bool) {
	next := strconv.Itoa(state.CurrentPage + 1)
	fields := make(map[string]string, len(s.Fields))
	for name, value := range s.Fields {
		fields[name] = strings.ReplaceAll(value, "{page}", next)
	}
	return Target{Kind: TargetSubmit, Selector: s.FormSelector, Fields: fields}, true
}

// InfiniteScrollStrategy loads more content by scrolling the tracked
// container and comparing the matched item count before and after. No
// growth means the stream is exhausted. There is no discrete page, so
// each scroll step is treated as one page by the controller.
type InfiniteScrollStrategy struct {
	ContainerSelector string
	NewItemSelector   string
	Threshold         float64

	// SettleDelay is the pause between scrolling and re-counting.
	SettleDelay time.Duration
}

func (s *InfiniteScrollStrategy) Name() string { return "infinite_scroll" }

func (s *InfiniteScrollStrategy) HasNext(ctx context.Context, sess *Session, state *State) bool {
	before := len(sess.Page.Query(nil, s.NewItemSelector))

	if err := sess.Browser.ScrollTo(ctx, s.ContainerSelector, s.Threshold); err != nil {
		return false
	}

	delay := s.SettleDelay
	if delay <= 0 {
		delay = 750 * time.Millisecond
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
	}

	page, err := sess.Browser.Snapshot(ctx)
	if err != nil {
		return false
	}
	after := len(page.Query(nil, s.NewItemSelector))
	if after <= before {
		return false
	}

	// the new content is already rendered; publish the fresh snapshot
	sess.Page = page
	return true
}

func (s *InfiniteScrollStrategy) NextTarget(ctx context.Context, sess *Session, state *State) (Target, bool) {
	return Target{Kind: TargetNone}, true
}

// absoluteURL resolves href against the current page URL.
func absoluteURL(current, href string) string {
	base, err := url.Parse(current)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
