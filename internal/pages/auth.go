package pages

import (
	"context"
	"regexp"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/lcm-e2e/internal/browser"
	"github.com/kuitang/lcm-e2e/internal/logutil"
	"github.com/kuitang/lcm-e2e/internal/obs"
)

var (
	loginButtonName   = regexp.MustCompile(`(?i)Login`)
	createAccountName = regexp.MustCompile(`^Create Account$`)
)

const (
	alertDangerSel     = ".alert-danger"
	roleBadgeSelector  = "span.badge-role"
	userDisplaySel     = ".user-name"
	emailFieldSelector = `input[name="email"]`
	nameFieldSelector  = `input[name="name"]`
	passwordSelector   = `input[name="password"]`
)

// AuthPage drives the login and registration forms.
type AuthPage struct {
	base
}

func NewAuthPage(page playwright.Page, baseURL string, timeouts browser.Timeouts) *AuthPage {
	return &AuthPage{base: newBase(page, baseURL, timeouts)}
}

func (p *AuthPage) OpenLogin(ctx context.Context) error {
	return p.goTo(ctx, PathLogin)
}

func (p *AuthPage) OpenRegister(ctx context.Context) error {
	return p.goTo(ctx, PathRegister)
}

func (p *AuthPage) fill(ctx context.Context, fields map[string]string, order []string) error {
	obs.From(ctx).Debug("fill auth form", "fields", logutil.FormatFieldsForLog(fields))
	for _, sel := range order {
		if err := p.page.Locator(sel).Fill(fields[sel]); err != nil {
			return browser.Interaction(ctx, p.page, "fill "+sel, err)
		}
	}
	return nil
}

// Login submits the login form on the current page.
func (p *AuthPage) Login(ctx context.Context, email, password string) error {
	fields := map[string]string{emailFieldSelector: email, passwordSelector: password}
	if err := p.fill(ctx, fields, []string{emailFieldSelector, passwordSelector}); err != nil {
		return err
	}
	btn := p.page.GetByRole(*playwright.AriaRoleButton, playwright.PageGetByRoleOptions{Name: loginButtonName}).First()
	if err := btn.Click(); err != nil {
		return browser.Interaction(ctx, p.page, "click Login Now", err)
	}
	p.settle(ctx)
	return nil
}

// Register submits the registration form on the current page.
func (p *AuthPage) Register(ctx context.Context, name, email, password string) error {
	fields := map[string]string{nameFieldSelector: name, emailFieldSelector: email, passwordSelector: password}
	if err := p.fill(ctx, fields, []string{nameFieldSelector, emailFieldSelector, passwordSelector}); err != nil {
		return err
	}
	if err := p.CreateAccountButton().Click(); err != nil {
		return browser.Interaction(ctx, p.page, "click Create Account", err)
	}
	p.settle(ctx)
	return nil
}

// CreateAccountButton is the registration form's submit button.
func (p *AuthPage) CreateAccountButton() playwright.Locator {
	return p.page.GetByRole(*playwright.AriaRoleButton, playwright.PageGetByRoleOptions{Name: createAccountName})
}

// FollowCreateAccount clicks the "Create Account" link on the login page.
func (p *AuthPage) FollowCreateAccount(ctx context.Context) error {
	return p.clickLink(ctx, createAccountName, p.timeouts.Default)
}

// Alert is the danger alert shown on failed submissions.
func (p *AuthPage) Alert() playwright.Locator {
	return p.page.Locator(alertDangerSel)
}

// AlertText returns the trimmed danger alert text, waiting for it to appear.
func (p *AuthPage) AlertText(ctx context.Context) (string, error) {
	alert := p.Alert().First()
	if err := browser.WaitVisible(alert, p.timeouts.Default); err != nil {
		return "", browser.Interaction(ctx, p.page, "wait for alert", err)
	}
	text, err := alert.TextContent()
	if err != nil {
		return "", browser.Interaction(ctx, p.page, "read alert", err)
	}
	return strings.TrimSpace(text), nil
}

// DashboardPage is the landing page after login.
type DashboardPage struct {
	base
}

func NewDashboardPage(page playwright.Page, baseURL string, timeouts browser.Timeouts) *DashboardPage {
	return &DashboardPage{base: newBase(page, baseURL, timeouts)}
}

func (p *DashboardPage) Open(ctx context.Context) error {
	return p.goTo(ctx, PathDashboard)
}

// RoleBadge is the badge naming the signed-in user's role.
func (p *DashboardPage) RoleBadge() playwright.Locator {
	return p.page.Locator(roleBadgeSelector)
}

// DisplayName returns the signed-in user's display name from the header.
func (p *DashboardPage) DisplayName(ctx context.Context) (string, error) {
	el := p.page.Locator(userDisplaySel).First()
	if err := browser.WaitVisible(el, p.timeouts.Default); err != nil {
		return "", browser.Interaction(ctx, p.page, "wait for user name", err)
	}
	text, err := el.TextContent()
	if err != nil {
		return "", browser.Interaction(ctx, p.page, "read user name", err)
	}
	return strings.TrimSpace(text), nil
}
