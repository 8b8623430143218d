// Package browser holds the Playwright plumbing shared by page objects:
// timeouts, navigation, best-effort waits, field-locator chains, and the
// fallback option-selection policy.
package browser

import (
	"context"
	"errors"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/lcm-e2e/internal/errs"
	"github.com/kuitang/lcm-e2e/internal/logutil"
	"github.com/kuitang/lcm-e2e/internal/obs"
)

const (
	// Never introduce a larger timeout than these in page objects.
	DefaultTimeoutMS    = 5000
	NavigationTimeoutMS = 10000
	DefaultTimeout      = DefaultTimeoutMS * time.Millisecond
	NavigationTimeout   = NavigationTimeoutMS * time.Millisecond

	// MenuSettleMS is the pause after hovering a flyout menu.
	MenuSettleMS = 300

	contentPreviewChars = 500
)

// Timeouts are the per-wait budgets a page object applies.
type Timeouts struct {
	Default    float64
	Navigation float64
}

// DefaultTimeouts returns the suite-wide wait budgets.
func DefaultTimeouts() Timeouts {
	return Timeouts{Default: DefaultTimeoutMS, Navigation: NavigationTimeoutMS}
}

// OrDefault fills unset budgets.
func (t Timeouts) OrDefault() Timeouts {
	if t.Default <= 0 {
		t.Default = DefaultTimeoutMS
	}
	if t.Navigation <= 0 {
		t.Navigation = NavigationTimeoutMS
	}
	return t
}

// Navigate loads baseURL+path and waits for DOMContentLoaded.
func Navigate(ctx context.Context, page playwright.Page, baseURL, path string, timeoutMS float64) error {
	obs.From(ctx).Debug("navigate", "path", path)
	_, err := page.Goto(baseURL+path, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(timeoutMS),
	})
	if err != nil {
		return Interaction(ctx, page, "navigate to "+path, err)
	}
	return nil
}

// WaitVisible waits for the first match of loc to become visible.
func WaitVisible(loc playwright.Locator, timeoutMS float64) error {
	return loc.First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(timeoutMS),
	})
}

// WaitAttached waits for selector to be present in the DOM, visible or not.
func WaitAttached(page playwright.Page, selector string, timeoutMS float64) error {
	_, err := page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(timeoutMS),
	})
	return err
}

// BestEffort swallows the error from an opportunistic settle wait. Timeouts
// are expected and dropped silently; anything else is logged at debug.
func BestEffort(ctx context.Context, what string, err error) {
	if err == nil || errors.Is(err, playwright.ErrTimeout) {
		return
	}
	obs.From(ctx).Debug("best-effort wait failed", "wait", what, "error", err)
}

// IsTimeout reports whether err is a Playwright timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, playwright.ErrTimeout)
}

// Interaction wraps a failed UI action as a coded interaction error and logs
// where the page was when it happened. page may be nil.
func Interaction(ctx context.Context, page playwright.Page, what string, err error) error {
	if err == nil {
		return nil
	}
	if errs.CodeOf(err) != errs.Internal {
		return err
	}
	l := obs.From(ctx)
	if page != nil {
		title, _ := page.Title()
		content, _ := page.Content()
		l = l.With(
			"url", page.URL(),
			"title", title,
			"content_preview", logutil.TruncateForLog(content, contentPreviewChars),
		)
	}
	l.Warn("ui interaction failed", "action", what, "timeout", IsTimeout(err), "error", err)
	return errs.Wrap(errs.Interaction, what, err)
}
