// Package pages holds page objects for the legal case management application.
// Each page object hides one screen's markup behind semantic operations;
// scenarios never touch selectors directly.
package pages

import (
	"context"
	"regexp"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/lcm-e2e/internal/browser"
	"github.com/kuitang/lcm-e2e/internal/errs"
)

// Application paths.
const (
	PathRoot         = "/"
	PathLogin        = "/login.php"
	PathRegister     = "/register.php"
	PathDashboard    = "/dashboard.php"
	PathCasesList    = "/cases/list.php"
	PathCasesCreate  = "/cases/create.php"
	PathBillingList  = "/billing/list.php"
	PathBillingNew   = "/billing/create.php"
	PathClientsList  = "/clients/list.php"
	PathClientsNew   = "/clients/create.php"
	PathUsersList    = "/users/list.php"
	formSelector     = "form"
	rowSelector      = "table tbody tr"
	submitOutcomeSel = "table, .alert, .success"
)

// base is embedded by every page object.
type base struct {
	page     playwright.Page
	baseURL  string
	timeouts browser.Timeouts
}

func newBase(page playwright.Page, baseURL string, timeouts browser.Timeouts) base {
	return base{
		page:     page,
		baseURL:  strings.TrimRight(baseURL, "/"),
		timeouts: timeouts.OrDefault(),
	}
}

// Page returns the underlying Playwright page.
func (b base) Page() playwright.Page { return b.page }

func (b base) goTo(ctx context.Context, path string) error {
	return browser.Navigate(ctx, b.page, b.baseURL, path, b.timeouts.Navigation)
}

func (b base) form() playwright.Locator {
	return b.page.Locator(formSelector).First()
}

func (b base) waitForm(ctx context.Context) error {
	if err := browser.WaitVisible(b.page.Locator(formSelector), b.timeouts.Default); err != nil {
		return browser.Interaction(ctx, b.page, "wait for form", err)
	}
	return nil
}

func (b base) link(name *regexp.Regexp) playwright.Locator {
	return b.page.GetByRole(*playwright.AriaRoleLink, playwright.PageGetByRoleOptions{Name: name}).First()
}

// clickLink waits for the named link to be visible, then clicks it.
func (b base) clickLink(ctx context.Context, name *regexp.Regexp, timeoutMS float64) error {
	link := b.link(name)
	if err := browser.WaitVisible(link, timeoutMS); err != nil {
		return browser.Interaction(ctx, b.page, "wait for link "+name.String(), err)
	}
	if err := link.Click(); err != nil {
		return browser.Interaction(ctx, b.page, "click link "+name.String(), err)
	}
	return nil
}

func (b base) settle(ctx context.Context) {
	browser.BestEffort(ctx, "network idle", b.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(b.timeouts.Navigation),
	}))
}

// cellTexts returns the trimmed text of each td in row.
func cellTexts(row playwright.Locator) ([]string, error) {
	cells, err := row.Locator("td").All()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(cells))
	for i, cell := range cells {
		text, err := cell.TextContent()
		if err != nil {
			return nil, err
		}
		out[i] = strings.TrimSpace(text)
	}
	return out, nil
}

func cellAt(cells []string, i int) string {
	if i < len(cells) {
		return cells[i]
	}
	return ""
}


// errNoOption is the failed precondition for a required select offering no
// real option.
func errNoOption(field string) error {
	return errs.New(errs.FailedPrecondition, "no selectable "+field)
}
