// internal/paginate/strategy.go

// Package paginate drives repeated extraction across pages. A Strategy
// encapsulates one navigation paradigm behind a common contract; the
// Controller orchestrates extraction, deduplication, captcha gating, and
// termination over any strategy.
package paginate

import (
	"context"
	"fmt"

	"github.com/jungyu/DataScout-sub003/internal/dom"
	"github.com/jungyu/DataScout-sub003/internal/schema"
)

// TargetKind discriminates the action needed to reach the next page.
type TargetKind int

const (
	// TargetNone means the next content is already present (scroll
	// strategies load in place); the controller only refreshes its
	// snapshot.
	TargetNone TargetKind = iota
	TargetURL
	TargetClick
	TargetSubmit
)

// Target describes how to reach the next page.
type Target struct {
	Kind     TargetKind
	URL      string
	Selector string
	Fields   map[string]string
}

// State is the controller-owned pagination state. Strategies read it but
// never mutate it.
type State struct {
	CurrentPage    int
	ProcessedCount int
	FailedPages    int
	Visited        map[string]struct{}
}

// Session bundles the live browser with the current page snapshot.
// Strategies that load content in place (infinite scroll) may replace
// Page with a fresher snapshot.
type Session struct {
	Browser    dom.Browser
	Page       dom.Context
	CurrentURL string
}

// Strategy is the common contract over the five navigation paradigms.
type Strategy interface {
	// Name returns the strategy identifier used in logs and stats.
	Name() string

	// HasNext reports whether another page is reachable from the current
	// session state.
	HasNext(ctx context.Context, sess *Session, state *State) bool

	// NextTarget computes how to reach the next page. ok is false when no
	// further target exists.
	NextTarget(ctx context.Context, sess *Session, state *State) (target Target, ok bool)
}

// NewStrategy builds the strategy for a navigation spec.
func NewStrategy(spec schema.NavigationSpec) (Strategy, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid navigation spec: %w", err)
	}

	switch spec.Type {
	case schema.NavURLParameter:
		param := spec.PageParam
		if param == "" && spec.URLTemplate == "" {
			param = "page"
		}
		return &URLParameterStrategy{Template: spec.URLTemplate, Param: param}, nil

	case schema.NavNextButton:
		return &NextButtonStrategy{Selector: spec.NextButtonSelector}, nil

	case schema.NavPageNumber:
		return &PageNumberStrategy{LinkSelector: spec.PageLinkSelector}, nil

	case schema.NavFormSubmit:
		return &FormSubmitStrategy{FormSelector: spec.FormSelector, Fields: spec.FormFields}, nil

	case schema.NavInfiniteScroll:
		threshold := spec.ScrollThreshold
		if threshold == 0 {
			threshold = 0.9
		}
		return &InfiniteScrollStrategy{
			ContainerSelector: spec.ScrollContainerSelector,
			NewItemSelector:   spec.NewItemSelector,
			Threshold:         threshold,
		}, nil
	}

	return nil, fmt.Errorf("unknown navigation type: %q", spec.Type)
}
