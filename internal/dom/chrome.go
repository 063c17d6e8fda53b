// internal/dom/chrome.go
package dom

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// ChromeConfig configures a Chrome-backed browsing session.
type ChromeConfig struct {
	Headless       bool          `yaml:"headless" json:"headless"`
	UserAgent      string        `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`
	UserDataDir    string        `yaml:"user_data_dir,omitempty" json:"user_data_dir,omitempty"`
	Timeout        time.Duration `yaml:"timeout" json:"timeout"`
	ViewportWidth  int           `yaml:"viewport_width" json:"viewport_width"`
	ViewportHeight int           `yaml:"viewport_height" json:"viewport_height"`
	WaitForElement string        `yaml:"wait_for_element,omitempty" json:"wait_for_element,omitempty"`
	WaitDelay      time.Duration `yaml:"wait_delay,omitempty" json:"wait_delay,omitempty"`
	DisableImages  bool          `yaml:"disable_images" json:"disable_images"`
}

// DefaultChromeConfig returns a headless configuration suitable for
// unattended runs.
func DefaultChromeConfig() *ChromeConfig {
	return &ChromeConfig{
		Headless:       true,
		Timeout:        60 * time.Second,
		ViewportWidth:  1366,
		ViewportHeight: 768,
	}
}

// Chrome implements Browser on top of chromedp.
type Chrome struct {
	ctx         context.Context
	cancelCtx   context.CancelFunc
	cancelAlloc context.CancelFunc
	config      *ChromeConfig

	pagesLoaded int
	errors      int
}

// NewChrome starts a Chrome session with the given configuration.
func NewChrome(config *ChromeConfig) (*Chrome, error) {
	if config == nil {
		config = DefaultChromeConfig()
	}

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.NoSandbox,
	}
	if config.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if config.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(config.UserDataDir))
	}
	if config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(config.UserAgent))
	}
	if config.DisableImages {
		opts = append(opts, chromedp.Flag("blink-settings", "imagesEnabled=false"))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancelCtx := chromedp.NewContext(allocCtx)

	c := &Chrome{
		ctx:         ctx,
		cancelCtx:   cancelCtx,
		cancelAlloc: cancelAlloc,
		config:      config,
	}

	if err := chromedp.Run(ctx, chromedp.EmulateViewport(
		int64(config.ViewportWidth), int64(config.ViewportHeight))); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize browser: %w", err)
	}

	return c, nil
}

// Navigate loads a URL and waits for the page to settle.
func (c *Chrome) Navigate(ctx context.Context, url string) error {
	tasks := []chromedp.Action{
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	}
	if c.config.WaitForElement != "" {
		tasks = append(tasks, chromedp.WaitVisible(c.config.WaitForElement))
	}
	if c.config.WaitDelay > 0 {
		tasks = append(tasks, chromedp.Sleep(c.config.WaitDelay))
	}

	if err := c.run(ctx, tasks...); err != nil {
		c.errors++
		return fmt.Errorf("navigation failed: %w", err)
	}
	c.pagesLoaded++
	return nil
}

// Click clicks the first visible element matching selector and waits for
// the document to become ready again, covering click-then-navigate flows.
func (c *Chrome) Click(ctx context.Context, selector string) error {
	tasks := []chromedp.Action{
		chromedp.Click(selector, chromedp.NodeVisible),
		chromedp.WaitReady("body"),
	}
	if c.config.WaitDelay > 0 {
		tasks = append(tasks, chromedp.Sleep(c.config.WaitDelay))
	}

	if err := c.run(ctx, tasks...); err != nil {
		c.errors++
		return fmt.Errorf("click failed for %q: %w", selector, err)
	}
	c.pagesLoaded++
	return nil
}

// SubmitForm fills the named inputs of the form matching selector and
// submits it.
func (c *Chrome) SubmitForm(ctx context.Context, selector string, fields map[string]string) error {
	var tasks []chromedp.Action
	for name, value := range fields {
		input := fmt.Sprintf(`%s [name=%q]`, selector, name)
		tasks = append(tasks, chromedp.SetValue(input, value, chromedp.ByQuery))
	}
	tasks = append(tasks, chromedp.Submit(selector), chromedp.WaitReady("body"))
	if c.config.WaitDelay > 0 {
		tasks = append(tasks, chromedp.Sleep(c.config.WaitDelay))
	}

	if err := c.run(ctx, tasks...); err != nil {
		c.errors++
		return fmt.Errorf("form submit failed for %q: %w", selector, err)
	}
	c.pagesLoaded++
	return nil
}

// ScrollTo scrolls the matched container to the given fraction of its
// scrollable height. The document element is used when selector matches
// body or html.
func (c *Chrome) ScrollTo(ctx context.Context, selector string, fraction float64) error {
	script := fmt.Sprintf(`(function() {
		var el = document.querySelector(%q);
		if (!el) { return false; }
		if (el === document.body || el === document.documentElement) {
			window.scrollTo(0, document.documentElement.scrollHeight * %f);
		} else {
			el.scrollTop = el.scrollHeight * %f;
		}
		return true;
	})()`, selector, fraction, fraction)

	var found bool
	if err := c.run(ctx, chromedp.Evaluate(script, &found)); err != nil {
		c.errors++
		return fmt.Errorf("scroll failed for %q: %w", selector, err)
	}
	if !found {
		return fmt.Errorf("scroll container %q not found", selector)
	}
	return nil
}

// CurrentURL returns the location of the current page.
func (c *Chrome) CurrentURL(ctx context.Context) (string, error) {
	var loc string
	if err := c.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return loc, nil
}

// WaitReady blocks until the document body is ready or the timeout expires.
func (c *Chrome) WaitReady(ctx context.Context, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(c.ctx, timeout)
	defer cancel()
	if err := chromedp.Run(waitCtx, chromedp.WaitReady("body")); err != nil {
		return fmt.Errorf("ready wait timed out: %w", err)
	}
	return nil
}

// Snapshot serializes the current DOM into a static queryable document.
func (c *Chrome) Snapshot(ctx context.Context) (Context, error) {
	var html string
	if err := c.run(ctx, chromedp.OuterHTML("html", &html)); err != nil {
		c.errors++
		return nil, fmt.Errorf("failed to capture DOM: %w", err)
	}

	loc, err := c.CurrentURL(ctx)
	if err != nil {
		loc = ""
	}
	return NewDocument(html, loc)
}

// PendingWork reports whether the page still has asynchronous work in
// flight. The check is a heuristic over document readiness and jQuery's
// active request counter when present.
func (c *Chrome) PendingWork(ctx context.Context) (bool, error) {
	script := `(function() {
		if (document.readyState !== 'complete') { return true; }
		if (window.jQuery && window.jQuery.active > 0) { return true; }
		return false;
	})()`

	var pending bool
	if err := c.run(ctx, chromedp.Evaluate(script, &pending)); err != nil {
		return false, fmt.Errorf("pending-work probe failed: %w", err)
	}
	return pending, nil
}

// PagesLoaded returns the number of successful page loads in this session.
func (c *Chrome) PagesLoaded() int {
	return c.pagesLoaded
}

// Errors returns the number of failed browser operations in this session.
func (c *Chrome) Errors() int {
	return c.errors
}

// Close shuts down the browser session.
func (c *Chrome) Close() error {
	if c.cancelCtx != nil {
		c.cancelCtx()
	}
	if c.cancelAlloc != nil {
		c.cancelAlloc()
	}
	return nil
}

// run executes chromedp actions under both the session context and the
// caller's cancellation, honoring the configured session timeout.
func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx := c.ctx
	var cancel context.CancelFunc
	if c.config.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, c.config.Timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() { done <- chromedp.Run(runCtx, actions...) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
