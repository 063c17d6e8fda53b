// internal/paginate/errors.go
package paginate

import "fmt"

// NavigationError reports a failed page transition. The controller retries
// these up to its configured limit before marking the page failed.
type NavigationError struct {
	Page int
	URL  string
	Err  error
}

func (e *NavigationError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("navigation to page %d (%s) failed: %v", e.Page, e.URL, e.Err)
	}
	return fmt.Sprintf("navigation to page %d failed: %v", e.Page, e.Err)
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}

// CaptchaBlockedError reports that a captcha gate stayed unresolved past
// its timeout. The page is counted failed and the run moves on; it is
// never retried.
type CaptchaBlockedError struct {
	Page int
}

func (e *CaptchaBlockedError) Error() string {
	return fmt.Sprintf("captcha unresolved on page %d", e.Page)
}
