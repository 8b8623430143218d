// Package browser holds the Playwright scenarios for the legal case
// management application. Every scenario goes through SuiteEnv.Scenario,
// which hands it an isolated browser context for one role.
package browser

import (
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/lcm-e2e/internal/artifacts"
	"github.com/kuitang/lcm-e2e/internal/auth"
	"github.com/kuitang/lcm-e2e/internal/authstate"
	uibrowser "github.com/kuitang/lcm-e2e/internal/browser"
	"github.com/kuitang/lcm-e2e/internal/config"
	"github.com/kuitang/lcm-e2e/internal/errs"
	"github.com/kuitang/lcm-e2e/internal/lcmstub"
	"github.com/kuitang/lcm-e2e/internal/obs"
	"github.com/kuitang/lcm-e2e/internal/ratelimit"
	"github.com/kuitang/lcm-e2e/internal/report"
)

const (
	// Enough invoices that new ones land past the first list page.
	stubFillerBillings = 25

	reportTitle = "LCM UI suite"
)

// Anonymous is the role of a scenario that starts logged out.
const Anonymous config.Role = ""

// SuiteEnv is shared by every scenario in the process.
type SuiteEnv struct {
	Config    *config.Config
	App       *lcmstub.App
	Server    *httptest.Server
	Artifacts *artifacts.Collector
	Report    *report.Report

	tempDir string

	browserMu sync.Mutex
	pw        *playwright.Playwright
	browser   playwright.Browser
	auth      *authstate.Provisioner
}

// newSuiteEnv targets BASE_URL when it is set and otherwise starts the
// stand-in app on a local port. A deployed target must supply every required
// variable; MustLoad panics with the full list otherwise.
func newSuiteEnv(ctx context.Context) (*SuiteEnv, error) {
	env := &SuiteEnv{Report: report.New(reportTitle, time.Now())}

	if !config.StubRequested() {
		env.Config = config.MustLoad()
	} else if err := env.startStub(ctx); err != nil {
		env.Close()
		return nil, err
	}

	collector, err := artifacts.FromConfig(ctx, env.Config)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Artifacts = collector
	return env, nil
}

func (env *SuiteEnv) startStub(ctx context.Context) error {
	tempDir, err := os.MkdirTemp("", "lcm-e2e-*")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	env.tempDir = tempDir

	app, err := lcmstub.New(ctx, lcmstub.Options{
		Hasher: auth.FakeInsecureHasher{},
		Throttle: ratelimit.Config{
			RPS:             10000,
			Burst:           100000,
			CleanupInterval: time.Hour,
		},
		Accounts:       lcmstub.DefaultAccounts(),
		FillerBillings: stubFillerBillings,
	})
	if err != nil {
		return fmt.Errorf("start stand-in app: %w", err)
	}
	env.App = app
	env.Server = httptest.NewServer(app.Handler())

	cfg, err := lcmstub.SuiteConfig(env.Server.URL)
	if err != nil {
		return err
	}
	cfg.AuthStateDir = filepath.Join(tempDir, "auth")
	env.Config = cfg
	return nil
}

// Close writes the run report and releases the browser and stand-in app.
func (env *SuiteEnv) Close() {
	if env.Report != nil && env.Config != nil && env.Report.Counts().Total() > 0 {
		if err := env.Report.WriteDir(env.Config.ReportDir); err != nil {
			obs.Pkg("e2e").Warn("write report", "error", err)
		}
	}

	env.browserMu.Lock()
	if env.browser != nil {
		_ = env.browser.Close()
		env.browser = nil
	}
	if env.pw != nil {
		_ = env.pw.Stop()
		env.pw = nil
	}
	env.browserMu.Unlock()

	if env.Server != nil {
		env.Server.Close()
	}
	if env.App != nil {
		_ = env.App.Close()
	}
	if env.tempDir != "" {
		_ = os.RemoveAll(env.tempDir)
	}
}

// Timeouts are the configured wait budgets.
func (env *SuiteEnv) Timeouts() uibrowser.Timeouts {
	return uibrowser.Timeouts{
		Default:    env.Config.DefaultTimeoutMS(),
		Navigation: env.Config.NavigationTimeoutMS(),
	}
}

// InitBrowser starts Playwright and launches Chromium once. It skips the test
// in -short mode or when Playwright is not installed.
func (env *SuiteEnv) InitBrowser(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}

	env.browserMu.Lock()
	defer env.browserMu.Unlock()
	if env.browser != nil {
		return
	}

	pw, err := playwright.Run()
	if err != nil {
		t.Skip("Playwright not available:", err)
	}
	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(env.Config.Headless),
	})
	if err != nil {
		_ = pw.Stop()
		t.Skip("Could not launch browser:", err)
	}
	env.pw = pw
	env.browser = b
	env.auth = authstate.New(b, env.Config)
}

func (env *SuiteEnv) contextOptions(t *testing.T) playwright.BrowserNewContextOptions {
	return playwright.BrowserNewContextOptions{
		ExtraHttpHeaders: map[string]string{obs.ScenarioHeader: t.Name()},
	}
}

// newContext opens a context for role. Storage states are produced on first
// use; if that fails the role is unusable and the error is a failed
// precondition.
func (env *SuiteEnv) newContext(ctx context.Context, t *testing.T, role config.Role) (playwright.BrowserContext, error) {
	opts := env.contextOptions(t)
	if role == Anonymous {
		bctx, err := env.browser.NewContext(opts)
		if err != nil {
			return nil, errs.Wrap(errs.Unavailable, "new browser context", err)
		}
		bctx.SetDefaultTimeout(env.Config.DefaultTimeoutMS())
		bctx.SetDefaultNavigationTimeout(env.Config.NavigationTimeoutMS())
		return bctx, nil
	}
	if err := env.auth.EnsureAll(ctx); err != nil {
		return nil, err
	}
	return env.auth.NewContext(role, opts)
}

// Scenario is one test's browser session plus its log context.
type Scenario struct {
	T        *testing.T
	Ctx      context.Context
	Role     config.Role
	Context  playwright.BrowserContext
	Page     playwright.Page
	BaseURL  string
	Timeouts uibrowser.Timeouts

	env *SuiteEnv
}

// Scenario opens an isolated context for role and registers cleanup that
// records the outcome, captures artifacts on failure, and closes the context.
func (env *SuiteEnv) Scenario(t *testing.T, role config.Role) *Scenario {
	t.Helper()
	env.InitBrowser(t)

	sc := &Scenario{
		T:        t,
		Ctx:      obs.WithScenario(context.Background(), obs.Scenario{Name: t.Name(), Role: string(role)}),
		Role:     role,
		BaseURL:  env.Config.BaseURL,
		Timeouts: env.Timeouts(),
		env:      env,
	}
	start := time.Now()

	bctx, err := env.newContext(sc.Ctx, t, role)
	if err != nil {
		env.Report.Record(report.Result{Name: t.Name(), Outcome: report.Skipped, Reason: err.Error(), Duration: time.Since(start)})
		t.Skipf("session for %q unavailable: %v", role, err)
	}
	t.Cleanup(func() { _ = bctx.Close() })
	sc.Context = bctx

	page, err := bctx.NewPage()
	if err != nil {
		t.Fatalf("could not create page: %v", err)
	}
	sc.Page = page
	t.Cleanup(func() { env.finish(sc, start) })
	return sc
}

func (env *SuiteEnv) finish(sc *Scenario, start time.Time) {
	t := sc.T
	res := report.Result{Name: t.Name(), Outcome: report.Passed, Duration: time.Since(start)}
	switch {
	case t.Skipped():
		res.Outcome = report.Skipped
	case t.Failed():
		res.Outcome = report.Failed
		locs, err := env.Artifacts.Capture(sc.Ctx, t.Name(), sc.Page)
		if err != nil {
			t.Logf("artifact capture: %v", err)
		}
		res.Artifacts = locs
		for _, loc := range locs {
			t.Logf("artifact: %s", loc)
		}
	}
	env.Report.Record(res)
}

// Skip marks the scenario skipped, keeping reason for the run report.
func (sc *Scenario) Skip(reason string) {
	sc.T.Helper()
	sc.env.Report.NoteSkip(sc.T.Name(), reason)
	sc.T.Skip(reason)
}

// Precondition skips the scenario when a setup step failed. Setup failures
// are environmental, so they never fail the scenario.
func (sc *Scenario) Precondition(err error, step string) {
	sc.T.Helper()
	if err != nil {
		sc.Skip(fmt.Sprintf("precondition %q not met: %v", step, err))
	}
}

// Must fails the scenario on err, except that failed preconditions reported
// by page objects skip it.
func (sc *Scenario) Must(err error, step string) {
	sc.T.Helper()
	if err == nil {
		return
	}
	if errs.Is(err, errs.FailedPrecondition) {
		sc.Skip(fmt.Sprintf("%s: %v", step, err))
	}
	sc.T.Fatalf("%s: %v", step, err)
}

// OpenSession opens a second isolated session for role, for setup steps that
// need another user's view. Callers close the returned context with defer.
func (sc *Scenario) OpenSession(role config.Role) (playwright.BrowserContext, playwright.Page, error) {
	bctx, err := sc.env.newContext(sc.Ctx, sc.T, role)
	if err != nil {
		return nil, nil, err
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, nil, errs.Wrap(errs.Unavailable, "new page", err)
	}
	return bctx, page, nil
}

// Expect returns assertions bounded by the navigation timeout.
func (sc *Scenario) Expect() playwright.PlaywrightAssertions {
	return playwright.NewPlaywrightAssertions(sc.Timeouts.Navigation)
}

// Credentials returns the configured login for role.
func (sc *Scenario) Credentials(role config.Role) config.Credentials {
	sc.T.Helper()
	creds, err := sc.env.Config.Credentials(role)
	if err != nil {
		sc.T.Fatalf("credentials: %v", err)
	}
	return creds
}

// Config is the suite configuration.
func (sc *Scenario) Config() *config.Config {
	return sc.env.Config
}
