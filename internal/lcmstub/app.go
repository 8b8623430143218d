// Package lcmstub assembles the stand-in legal case management application
// from the store, auth, throttle, and page packages, and seeds the accounts
// the browser suite logs in with.
package lcmstub

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/kuitang/lcm-e2e/internal/auth"
	"github.com/kuitang/lcm-e2e/internal/config"
	"github.com/kuitang/lcm-e2e/internal/db"
	"github.com/kuitang/lcm-e2e/internal/errs"
	"github.com/kuitang/lcm-e2e/internal/obs"
	"github.com/kuitang/lcm-e2e/internal/ratelimit"
	"github.com/kuitang/lcm-e2e/internal/web"
)

// Account is a seeded login.
type Account struct {
	Name     string
	Email    string
	Password string
	Role     db.Role
}

// Options configures an App. The zero value is an unencrypted in-memory app
// with Argon2id hashing and the default throttle.
type Options struct {
	// DBPath is the SQLite file; empty means a private in-memory database.
	DBPath string
	// DBKey encrypts DBPath with SQLCipher when set.
	DBKey    []byte
	Hasher   auth.PasswordHasher
	Throttle ratelimit.Config
	Accounts []Account
	// FillerBillings invoices are created up front so lists span pages.
	FillerBillings int
}

// App is a running stand-in application.
type App struct {
	store   *db.Store
	users   *auth.UserService
	limiter *ratelimit.RateLimiter
	handler http.Handler
}

var memSeq atomic.Int64

// New opens storage, seeds opts.Accounts, and builds the HTTP handler.
func New(ctx context.Context, opts Options) (*App, error) {
	var (
		store *db.Store
		err   error
	)
	if opts.DBPath == "" {
		store, err = db.OpenInMemory(fmt.Sprintf("lcmstub-%d", memSeq.Add(1)))
	} else {
		store, err = db.Open(opts.DBPath, opts.DBKey)
	}
	if err != nil {
		return nil, err
	}

	renderer, err := web.NewRenderer()
	if err != nil {
		store.Close()
		return nil, err
	}

	throttle := opts.Throttle
	if throttle.RPS <= 0 || throttle.Burst <= 0 {
		throttle = ratelimit.DefaultConfig
	}

	users := auth.NewUserService(store, opts.Hasher)
	sessions := auth.NewSessionService(store)
	limiter := ratelimit.NewRateLimiter(throttle)

	mux := http.NewServeMux()
	web.NewHandler(renderer, store, users, sessions).RegisterRoutes(mux, auth.NewMiddleware(sessions))

	app := &App{
		store:   store,
		users:   users,
		limiter: limiter,
		handler: obs.AccessLogMiddleware("lcmstub", ratelimit.ThrottlePosts(limiter, ratelimit.ClientIP)(mux)),
	}

	if err := app.Seed(ctx, opts.Accounts...); err != nil {
		app.Close()
		return nil, err
	}
	if opts.FillerBillings > 0 {
		if err := app.SeedBillings(ctx, opts.FillerBillings); err != nil {
			app.Close()
			return nil, err
		}
	}
	return app, nil
}

// Handler serves the application.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Store exposes the database for fixtures that bypass the UI.
func (a *App) Store() *db.Store {
	return a.store
}

// Close stops the throttle and closes storage.
func (a *App) Close() error {
	a.limiter.Stop()
	return a.store.Close()
}

// Seed registers accounts, skipping any whose name or email already exists.
func (a *App) Seed(ctx context.Context, accounts ...Account) error {
	for _, acct := range accounts {
		_, err := a.users.Register(ctx, auth.Registration{
			Name:     acct.Name,
			Email:    acct.Email,
			Password: acct.Password,
		}, acct.Role)
		if errs.Is(err, errs.FailedPrecondition) {
			obs.Pkg("lcmstub").Debug("seed account exists", "email", acct.Email)
			continue
		}
		if err != nil {
			return fmt.Errorf("seed %s account %s: %w", acct.Role, acct.Email, err)
		}
	}
	return nil
}

// SeedBillings creates n filler invoices on a filler case owned by the
// first client account.
func (a *App) SeedBillings(ctx context.Context, n int) error {
	clients, err := a.store.UsersByRole(ctx, db.RoleClient)
	if err != nil {
		return err
	}
	if len(clients) == 0 {
		return errs.New(errs.FailedPrecondition, "seed billings: no client account")
	}
	c, err := a.store.CreateCase(ctx, db.NewCase{
		Title:       "Retainer (seeded)",
		Description: "Filler case for **pagination** fixtures.",
		ClientID:    clients[0].ID,
	})
	if err != nil {
		return fmt.Errorf("seed filler case: %w", err)
	}
	for i := 1; i <= n; i++ {
		_, err := a.store.CreateBilling(ctx, db.NewBilling{
			CaseID:      c.ID,
			AmountCents: int64(i) * 10000,
			Description: fmt.Sprintf("Seeded retainer installment %03d", i),
		})
		if err != nil {
			return fmt.Errorf("seed billing %d: %w", i, err)
		}
	}
	return nil
}

// DefaultAccounts are the seeded logins of a hermetic run: one per role plus
// the general test user, who registers as a client.
func DefaultAccounts() []Account {
	return []Account{
		{Name: "Ada Admin", Email: "admin@lcm.test", Password: "AdminPass123!", Role: db.RoleAdmin},
		{Name: "Larry Lawyer", Email: "lawyer@lcm.test", Password: "LawyerPass123!", Role: db.RoleLawyer},
		{Name: "Cleo Client", Email: "client@lcm.test", Password: "ClientPass123!", Role: db.RoleClient},
		{Name: "Terry Tester", Email: "tester@lcm.test", Password: "TesterPass123!", Role: db.RoleClient},
	}
}

// SuiteConfig builds the suite configuration for an app serving baseURL with
// the DefaultAccounts seeded.
func SuiteConfig(baseURL string) (*config.Config, error) {
	accts := DefaultAccounts()
	cred := func(a Account) config.Credentials {
		return config.Credentials{Email: a.Email, Password: a.Password}
	}
	user := accts[3]
	return config.ForStub(baseURL, cred(accts[0]), cred(accts[1]), cred(accts[2]),
		config.TestUser{Name: user.Name, Email: user.Email, Password: user.Password})
}
