package pagination

import (
	"context"
	"regexp"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/lcm-e2e/internal/browser"
)

const (
	DefaultRowSelector = "table tbody tr"

	disabledClassJS = `el => el.classList.contains("disabled") ||
	(el.parentElement !== null && el.parentElement.classList.contains("disabled"))`
)

// DefaultNextName matches the "Next" pagination link.
var DefaultNextName = regexp.MustCompile(`(?i)Next`)

// PageTable is a Table over the first HTML table of a Playwright page.
type PageTable struct {
	page        playwright.Page
	rowSelector string
	nextName    *regexp.Regexp
	timeouts    browser.Timeouts
}

// NewPageTable returns a PageTable using the default row selector and Next link name.
func NewPageTable(page playwright.Page, timeouts browser.Timeouts) *PageTable {
	return &PageTable{
		page:        page,
		rowSelector: DefaultRowSelector,
		nextName:    DefaultNextName,
		timeouts:    timeouts.OrDefault(),
	}
}

// RowsContaining returns the rows with a cell containing text.
func (t *PageTable) RowsContaining(text string) playwright.Locator {
	return t.page.Locator(t.rowSelector).Filter(playwright.LocatorFilterOptions{
		Has: t.page.Locator("td", playwright.PageLocatorOptions{HasText: text}),
	})
}

func (t *PageTable) WaitForRows(ctx context.Context) error {
	return browser.WaitAttached(t.page, t.rowSelector, t.timeouts.Default)
}

func (t *PageTable) Contains(ctx context.Context, text string) (bool, error) {
	n, err := t.RowsContaining(text).Count()
	if err != nil {
		return false, browser.Interaction(ctx, t.page, "count matching rows", err)
	}
	return n > 0, nil
}

func (t *PageTable) next() playwright.Locator {
	return t.page.GetByRole(*playwright.AriaRoleLink, playwright.PageGetByRoleOptions{Name: t.nextName})
}

// HasNext checks two independent disabled signals: the element's disabled
// state, and a "disabled" class on the link or its parent. Errors from either
// check count as "not disabled".
func (t *PageTable) HasNext(ctx context.Context) (bool, error) {
	next := t.next()
	n, err := next.Count()
	if err != nil {
		return false, browser.Interaction(ctx, t.page, "count next links", err)
	}
	if n == 0 {
		return false, nil
	}
	first := next.First()
	if disabled, err := first.IsDisabled(); err == nil && disabled {
		return false, nil
	}
	if raw, err := first.Evaluate(disabledClassJS, nil); err == nil {
		if disabled, _ := raw.(bool); disabled {
			return false, nil
		}
	}
	return true, nil
}

func (t *PageTable) Advance(ctx context.Context) error {
	if err := t.next().First().Click(); err != nil {
		return browser.Interaction(ctx, t.page, "click next page", err)
	}
	err := t.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(t.timeouts.Navigation),
	})
	if err != nil {
		return browser.Interaction(ctx, t.page, "wait for next page", err)
	}
	return nil
}
