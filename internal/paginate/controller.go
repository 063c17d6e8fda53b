// internal/paginate/controller.go
package paginate

import (
	"context"
	"errors"
	"time"

	"github.com/jungyu/DataScout-sub003/internal/dom"
	"github.com/jungyu/DataScout-sub003/internal/extract"
	"github.com/jungyu/DataScout-sub003/internal/schema"
	"github.com/jungyu/DataScout-sub003/internal/utils"
)

// CaptchaGate lets a run pause when a page presents a human challenge.
// Blocked inspects the current snapshot; AwaitResolution blocks until the
// challenge clears, the timeout elapses, or the context is cancelled.
type CaptchaGate interface {
	Blocked(page dom.Context) bool
	AwaitResolution(ctx context.Context, sess *Session, timeout time.Duration) bool
}

// Options configures a pagination run. Zero values select the defaults
// noted per field.
type Options struct {
	MaxPages          int           // hard page bound, default 50
	MaxRetries        int           // per-transition retries, default 3
	RetryBackoff      time.Duration // initial backoff, doubles per retry, default 1s
	PageDelay         time.Duration // fixed pause between pages
	AjaxSettleTimeout time.Duration // wait for pending async work, default 5s
	RateLimit         float64       // pages per second, 0 disables
	IdentityField     string        // dedup key field, empty uses title+url hash
	GateTimeout       time.Duration // captcha resolution wait, default 2m
	Gate              CaptchaGate   // nil disables gating

	// PageObserver, when set, receives the extraction duration of every
	// counted page as the run progresses.
	PageObserver func(duration time.Duration)
}

func (o *Options) applyDefaults() {
	if o.MaxPages <= 0 {
		o.MaxPages = 50
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = time.Second
	}
	if o.AjaxSettleTimeout <= 0 {
		o.AjaxSettleTimeout = 5 * time.Second
	}
	if o.GateTimeout <= 0 {
		o.GateTimeout = 2 * time.Minute
	}
}

// RunStats summarizes one pagination run. Cancelled and Aborted are
// outcome markers, not errors: a partial result with a marker set is a
// normal return.
type RunStats struct {
	StrategyName      string
	PagesVisited      int
	ItemsExtracted    int
	ItemsDropped      int
	DuplicatesDropped int
	FailedPages       int
	Cancelled         bool
	Aborted           bool
	AbortReason       string
	StartedAt         time.Time
	Duration          time.Duration
}

type phase int

const (
	phaseLoading phase = iota
	phaseExtracting
	phaseGating
	phaseDeciding
	phaseAdvancing
	phaseDone
)

// Controller runs the extract-decide-advance cycle over one strategy
// until the strategy is exhausted, the page bound is hit, or the run is
// cancelled or aborted.
type Controller struct {
	strategy Strategy
	list     *extract.ListExtractor
	itemSpec schema.ItemSpec
	opts     Options
	tracker  *Tracker
	limiter  *utils.RateLimiter
	log      utils.Logger
}

// NewController creates a controller over the given strategy and item
// spec.
func NewController(strategy Strategy, list *extract.ListExtractor, itemSpec schema.ItemSpec, opts Options, log utils.Logger) *Controller {
	opts.applyDefaults()
	if log == nil {
		log = utils.NewComponentLogger("paginate")
	}
	c := &Controller{
		strategy: strategy,
		list:     list,
		itemSpec: itemSpec,
		opts:     opts,
		tracker:  NewTracker(opts.IdentityField),
		log:      log.WithField("strategy", strategy.Name()),
	}
	if opts.RateLimit > 0 {
		c.limiter = utils.NewRateLimiter(opts.RateLimit)
	}
	return c
}

// SeedSeen marks identity keys as already collected, for resumed runs.
func (c *Controller) SeedSeen(keys []string) {
	c.tracker.Seed(keys)
}

// Run paginates from startURL and returns every unique record collected.
// The error is non-nil only when the initial page cannot be loaded at
// all; every later failure degrades into stats markers and a partial
// result.
func (c *Controller) Run(ctx context.Context, browser dom.Browser, startURL string) ([]extract.Record, RunStats, error) {
	stats := RunStats{StrategyName: c.strategy.Name(), StartedAt: time.Now()}
	state := &State{CurrentPage: 1, Visited: map[string]struct{}{startURL: {}}}
	sess := &Session{Browser: browser, CurrentURL: startURL}

	if err := c.loadInitial(ctx, sess, startURL); err != nil {
		stats.Duration = time.Since(stats.StartedAt)
		return nil, stats, err
	}

	var collected []extract.Record
	var pending Target
	countedPage := 0
	ph := phaseExtracting

	for ph != phaseDone {
		if ctx.Err() != nil {
			stats.Cancelled = true
			break
		}

		switch ph {
		case phaseLoading:
			if err := c.advance(ctx, sess, state, pending); err != nil {
				if ctx.Err() != nil {
					stats.Cancelled = true
					ph = phaseDone
					break
				}
				state.FailedPages++
				stats.FailedPages++
				stats.Aborted = true
				stats.AbortReason = err.Error()
				c.log.Errorf("advance failed: %v", err)
				ph = phaseDone
				break
			}
			state.CurrentPage++
			ph = phaseExtracting

		case phaseExtracting:
			// Re-extraction after a captcha resolves must not count the
			// same physical page twice.
			firstPass := state.CurrentPage != countedPage
			if firstPass {
				stats.PagesVisited++
				countedPage = state.CurrentPage
			}
			begin := time.Now()
			records, dropped, err := c.list.Extract(ctx, sess.Page, c.itemSpec, state.CurrentPage)
			if firstPass && c.opts.PageObserver != nil {
				c.opts.PageObserver(time.Since(begin))
			}
			stats.ItemsDropped += dropped
			if err != nil {
				var nf *extract.ElementNotFoundError
				if errors.As(err, &nf) {
					c.log.Warnf("page %d: %v", state.CurrentPage, err)
					state.FailedPages++
					stats.FailedPages++
					ph = phaseDeciding
					break
				}
				if ctx.Err() != nil {
					stats.Cancelled = true
					ph = phaseDone
					break
				}
				c.log.Errorf("page %d extraction failed: %v", state.CurrentPage, err)
				state.FailedPages++
				stats.FailedPages++
				ph = phaseDeciding
				break
			}

			kept, dups := c.tracker.Filter(records)
			stats.ItemsExtracted += len(kept)
			stats.DuplicatesDropped += dups
			collected = append(collected, kept...)
			state.ProcessedCount = len(collected)
			c.log.Infof("page %d: %d records (%d duplicates, %d invalid)",
				state.CurrentPage, len(kept), dups, dropped)
			ph = phaseGating

		case phaseGating:
			if c.opts.Gate == nil || !c.opts.Gate.Blocked(sess.Page) {
				ph = phaseDeciding
				break
			}
			c.log.Warnf("captcha detected on page %d, awaiting resolution", state.CurrentPage)
			if !c.opts.Gate.AwaitResolution(ctx, sess, c.opts.GateTimeout) {
				if ctx.Err() != nil {
					stats.Cancelled = true
					ph = phaseDone
					break
				}
				c.log.Warnf("%v", &CaptchaBlockedError{Page: state.CurrentPage})
				state.FailedPages++
				stats.FailedPages++
				ph = phaseDeciding
				break
			}
			if err := c.refreshSnapshot(ctx, sess); err != nil {
				c.log.Errorf("page %d: snapshot after captcha failed: %v", state.CurrentPage, err)
				state.FailedPages++
				stats.FailedPages++
				ph = phaseDeciding
				break
			}
			ph = phaseExtracting

		case phaseDeciding:
			if state.CurrentPage >= c.opts.MaxPages {
				c.log.Infof("page bound %d reached", c.opts.MaxPages)
				ph = phaseDone
				break
			}
			c.settleAsync(ctx, sess)
			if !c.strategy.HasNext(ctx, sess, state) {
				c.log.Debugf("no next page after page %d", state.CurrentPage)
				ph = phaseDone
				break
			}
			ph = phaseAdvancing

		case phaseAdvancing:
			target, ok := c.strategy.NextTarget(ctx, sess, state)
			if !ok {
				ph = phaseDone
				break
			}
			if target.Kind == TargetURL {
				if _, seen := state.Visited[target.URL]; seen {
					c.log.Warnf("pagination loop at %s", target.URL)
					ph = phaseDone
					break
				}
				state.Visited[target.URL] = struct{}{}
			}
			if err := c.pace(ctx); err != nil {
				stats.Cancelled = true
				ph = phaseDone
				break
			}
			pending = target
			ph = phaseLoading
		}
	}

	if ctx.Err() != nil {
		stats.Cancelled = true
	}
	stats.Duration = time.Since(stats.StartedAt)
	return collected, stats, nil
}

// loadInitial navigates to the start URL with retries. Exhausting the
// retries here is the one fatal outcome of a run.
func (c *Controller) loadInitial(ctx context.Context, sess *Session, startURL string) error {
	var lastErr error
	backoff := c.opts.RetryBackoff
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, backoff); err != nil {
				return err
			}
			backoff *= 2
		}
		if err := sess.Browser.Navigate(ctx, startURL); err != nil {
			lastErr = err
			c.log.Warnf("initial load attempt %d failed: %v", attempt+1, err)
			continue
		}
		if err := c.refreshSnapshot(ctx, sess); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return &NavigationError{Page: 1, URL: startURL, Err: lastErr}
}

// advance performs the pending target with retry and refreshes the
// session snapshot. A TargetNone transition is snapshot-only: the
// strategy already loaded the content in place.
func (c *Controller) advance(ctx context.Context, sess *Session, state *State, target Target) error {
	if target.Kind == TargetNone {
		if sess.Page != nil {
			return nil
		}
		return c.refreshSnapshot(ctx, sess)
	}

	var lastErr error
	backoff := c.opts.RetryBackoff
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, backoff); err != nil {
				return err
			}
			backoff *= 2
		}
		if err := c.performTarget(ctx, sess, target); err != nil {
			lastErr = err
			c.log.Warnf("transition attempt %d failed: %v", attempt+1, err)
			continue
		}
		if err := c.refreshSnapshot(ctx, sess); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return &NavigationError{Page: state.CurrentPage + 1, URL: target.URL, Err: lastErr}
}

func (c *Controller) performTarget(ctx context.Context, sess *Session, target Target) error {
	switch target.Kind {
	case TargetURL:
		return sess.Browser.Navigate(ctx, target.URL)
	case TargetClick:
		return sess.Browser.Click(ctx, target.Selector)
	case TargetSubmit:
		return sess.Browser.SubmitForm(ctx, target.Selector, target.Fields)
	}
	return nil
}

// refreshSnapshot captures a fresh page snapshot and the current URL.
func (c *Controller) refreshSnapshot(ctx context.Context, sess *Session) error {
	page, err := sess.Browser.Snapshot(ctx)
	if err != nil {
		return err
	}
	sess.Page = page
	if u, err := sess.Browser.CurrentURL(ctx); err == nil && u != "" {
		sess.CurrentURL = u
	}
	return nil
}

// settleAsync waits for pending asynchronous work to drain before the
// page is judged for pagination state. Browsers that cannot report
// in-flight work are not polled.
func (c *Controller) settleAsync(ctx context.Context, sess *Session) {
	reporter, ok := sess.Browser.(dom.AsyncReporter)
	if !ok {
		return
	}
	deadline := time.Now().Add(c.opts.AjaxSettleTimeout)
	for time.Now().Before(deadline) {
		pending, err := reporter.PendingWork(ctx)
		if err != nil || !pending {
			return
		}
		if sleepCtx(ctx, 100*time.Millisecond) != nil {
			return
		}
	}
	c.log.Debugf("async work still pending after %s", c.opts.AjaxSettleTimeout)
}

// pace applies the optional rate limit and fixed inter-page delay.
func (c *Controller) pace(ctx context.Context) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if c.opts.PageDelay > 0 {
		return sleepCtx(ctx, c.opts.PageDelay)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
