// Package authstate logs each seeded role in once per process and persists
// the browser storage state, so scenarios start already authenticated.
package authstate

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/playwright-community/playwright-go"
	"golang.org/x/sync/errgroup"

	"github.com/kuitang/lcm-e2e/internal/browser"
	"github.com/kuitang/lcm-e2e/internal/config"
	"github.com/kuitang/lcm-e2e/internal/errs"
	"github.com/kuitang/lcm-e2e/internal/obs"
	"github.com/kuitang/lcm-e2e/internal/pages"
)

var dashboardURL = regexp.MustCompile(`dashboard`)

// Provisioner produces and hands out per-role storage states.
type Provisioner struct {
	browser playwright.Browser
	cfg     *config.Config
	login   func(ctx context.Context, role config.Role) error

	once sync.Once
	err  error
}

// New creates a provisioner that logs in through b against cfg.BaseURL.
func New(b playwright.Browser, cfg *config.Config) *Provisioner {
	p := &Provisioner{browser: b, cfg: cfg}
	p.login = p.loginRole
	return p
}

// Path is where role's storage state is written.
func (p *Provisioner) Path(role config.Role) string {
	return filepath.Join(p.cfg.AuthStateDir, string(role)+".json")
}

// EnsureAll logs every role in concurrently, once per provisioner. Later
// calls return the first outcome. A failed login is a failed precondition.
func (p *Provisioner) EnsureAll(ctx context.Context) error {
	p.once.Do(func() {
		p.err = p.provision(ctx)
	})
	return p.err
}

func (p *Provisioner) provision(ctx context.Context) error {
	if err := os.MkdirAll(p.cfg.AuthStateDir, 0o750); err != nil {
		return errs.Wrap(errs.FailedPrecondition, "create auth state dir", err)
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, role := range config.Roles {
		g.Go(func() error {
			roleCtx := obs.WithScenario(gctx, obs.Scenario{Name: "auth-setup", Role: string(role)})
			if err := p.login(roleCtx, role); err != nil {
				return errs.Wrap(errs.FailedPrecondition, "log in as "+string(role), err)
			}
			obs.From(roleCtx).Info("storage state saved", "path", p.Path(role))
			return nil
		})
	}
	return g.Wait()
}

func (p *Provisioner) loginRole(ctx context.Context, role config.Role) error {
	creds, err := p.cfg.Credentials(role)
	if err != nil {
		return errs.Wrap(errs.InvalidArgument, "credentials", err)
	}
	bctx, err := p.browser.NewContext()
	if err != nil {
		return errs.Wrap(errs.Unavailable, "new browser context", err)
	}
	defer bctx.Close()
	bctx.SetDefaultTimeout(p.cfg.DefaultTimeoutMS())
	bctx.SetDefaultNavigationTimeout(p.cfg.NavigationTimeoutMS())

	page, err := bctx.NewPage()
	if err != nil {
		return errs.Wrap(errs.Unavailable, "new page", err)
	}
	timeouts := browser.Timeouts{Default: p.cfg.DefaultTimeoutMS(), Navigation: p.cfg.NavigationTimeoutMS()}
	authPage := pages.NewAuthPage(page, p.cfg.BaseURL, timeouts)
	if err := authPage.OpenLogin(ctx); err != nil {
		return err
	}
	if err := authPage.Login(ctx, creds.Email, creds.Password); err != nil {
		return err
	}
	expect := playwright.NewPlaywrightAssertions(timeouts.Navigation)
	if err := expect.Page(page).ToHaveURL(dashboardURL); err != nil {
		return browser.Interaction(ctx, page, "reach dashboard after login", err)
	}
	if _, err := bctx.StorageState(p.Path(role)); err != nil {
		return errs.Wrap(errs.Internal, "save storage state", err)
	}
	return nil
}

// NewContext opens a browser context authenticated as role, on top of opts.
// EnsureAll must have succeeded first.
func (p *Provisioner) NewContext(role config.Role, opts playwright.BrowserNewContextOptions) (playwright.BrowserContext, error) {
	path := p.Path(role)
	if _, err := os.Stat(path); err != nil {
		return nil, errs.Wrap(errs.FailedPrecondition, "no storage state for "+string(role), err)
	}
	opts.StorageStatePath = playwright.String(path)
	bctx, err := p.browser.NewContext(opts)
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "new browser context", err)
	}
	bctx.SetDefaultTimeout(p.cfg.DefaultTimeoutMS())
	bctx.SetDefaultNavigationTimeout(p.cfg.NavigationTimeoutMS())
	return bctx, nil
}
