package pages

import (
	"context"
	"regexp"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/lcm-e2e/internal/browser"
	"github.com/kuitang/lcm-e2e/internal/errs"
	"github.com/kuitang/lcm-e2e/internal/obs"
)

// MenuText is the text of the hover-triggered navigation flyout.
const MenuText = "Navigation Dashboard Clients"

// Section is a destination reachable from the navigation menu.
type Section struct {
	Link *regexp.Regexp
	URL  *regexp.Regexp
}

var (
	SectionDashboard = Section{Link: regexp.MustCompile(`(?i)Dashboard`), URL: regexp.MustCompile(`(?i)dashboard`)}
	SectionClients   = Section{Link: regexp.MustCompile(`(?i)Clients`), URL: regexp.MustCompile(`(?i)clients`)}
	SectionUsers     = Section{Link: regexp.MustCompile(`(?i)Users`), URL: regexp.MustCompile(`(?i)users`)}
	SectionCases     = Section{Link: regexp.MustCompile(`(?i)Cases`), URL: regexp.MustCompile(`(?i)cases`)}
	SectionBilling   = Section{Link: regexp.MustCompile(`(?i)Billing`), URL: regexp.MustCompile(`(?i)billing`)}
)

// Navigator moves between sections through the application's menu.
type Navigator struct {
	base
	expect playwright.PlaywrightAssertions
}

func NewNavigator(page playwright.Page, baseURL string, timeouts browser.Timeouts) *Navigator {
	b := newBase(page, baseURL, timeouts)
	return &Navigator{
		base:   b,
		expect: playwright.NewPlaywrightAssertions(b.timeouts.Navigation),
	}
}

// EnsureMenuOpen hovers the navigation flyout when the environment renders
// one. It is a no-op when the menu is absent or hidden.
func (n *Navigator) EnsureMenuOpen(ctx context.Context) error {
	menu := n.page.GetByText(MenuText).First()
	visible, err := menu.IsVisible()
	if err != nil {
		return browser.Interaction(ctx, n.page, "check navigation menu", err)
	}
	if !visible {
		return nil
	}
	if err := menu.Hover(); err != nil {
		return browser.Interaction(ctx, n.page, "hover navigation menu", err)
	}
	n.page.WaitForTimeout(browser.MenuSettleMS)
	return nil
}

// NavigateTo opens the menu if needed, clicks the section's first visible
// link, waits for the network to settle, and checks the resulting URL.
func (n *Navigator) NavigateTo(ctx context.Context, section Section) error {
	if err := n.EnsureMenuOpen(ctx); err != nil {
		return err
	}
	if err := n.clickLink(ctx, section.Link, n.timeouts.Navigation); err != nil {
		return err
	}
	n.settle(ctx)
	if err := n.expect.Page(n.page).ToHaveURL(section.URL); err != nil {
		return errs.Wrap(errs.Interaction, "expected URL matching "+section.URL.String()+", at "+n.page.URL(), err)
	}
	obs.From(ctx).Debug("navigated", "url", n.page.URL())
	return nil
}

// NavigateToBilling reaches the billing list through the menu.
func (n *Navigator) NavigateToBilling(ctx context.Context) error {
	return n.NavigateTo(ctx, SectionBilling)
}

// Open loads path directly.
func (n *Navigator) Open(ctx context.Context, path string) error {
	return n.goTo(ctx, path)
}
