package browser

import (
	"regexp"
	"strings"
	"testing"

	"github.com/kuitang/lcm-e2e/internal/config"
	"github.com/kuitang/lcm-e2e/internal/fixtures"
	"github.com/kuitang/lcm-e2e/internal/pages"
)

var (
	loginURL     = regexp.MustCompile(`login`)
	dashboardURL = regexp.MustCompile(`dashboard`)
)

func TestRegistration_UniqueUserIsSentToLogin(t *testing.T) {
	t.Parallel()
	sc := env.Scenario(t, Anonymous)
	user := fixtures.UniqueUser("E2E")

	authPage := pages.NewAuthPage(sc.Page, sc.BaseURL, sc.Timeouts)
	sc.Must(authPage.OpenRegister(sc.Ctx), "open register")
	sc.Must(authPage.Register(sc.Ctx, user.Name, user.Email, user.Password), "register")

	if err := sc.Expect().Page(sc.Page).ToHaveURL(loginURL); err != nil {
		t.Fatalf("expected redirect to login after registering %s: %v", user.Email, err)
	}

	sc.Must(authPage.Login(sc.Ctx, user.Email, user.Password), "log in as new user")
	if err := sc.Expect().Page(sc.Page).ToHaveURL(dashboardURL); err != nil {
		t.Fatalf("new user could not log in: %v", err)
	}
}

func TestRegistration_DuplicatesAreRejected(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		account func(existing config.TestUser) fixtures.User
		message string
	}{
		{
			name: "name",
			account: func(existing config.TestUser) fixtures.User {
				u := fixtures.UniqueUser("Dup")
				u.Name = existing.Name
				return u
			},
			message: "name is already used",
		},
		{
			name: "email",
			account: func(existing config.TestUser) fixtures.User {
				u := fixtures.UniqueUser("Dup")
				u.Email = existing.Email
				return u
			},
			message: "email is already used",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sc := env.Scenario(t, Anonymous)
			u := tt.account(sc.Config().User)

			authPage := pages.NewAuthPage(sc.Page, sc.BaseURL, sc.Timeouts)
			sc.Must(authPage.OpenRegister(sc.Ctx), "open register")
			sc.Must(authPage.Register(sc.Ctx, u.Name, u.Email, u.Password), "submit duplicate")

			text, err := authPage.AlertText(sc.Ctx)
			sc.Must(err, "read alert")
			if text == "" {
				t.Fatal("duplicate registration showed an empty alert")
			}
			// Exact wording is only known for the stand-in app.
			if env.App != nil && !strings.Contains(strings.ToLower(text), tt.message) {
				t.Fatalf("alert = %q, want it to mention %q", text, tt.message)
			}
		})
	}
}

func TestLogin_EachRoleReachesDashboard(t *testing.T) {
	t.Parallel()
	for _, role := range config.Roles {
		t.Run(string(role), func(t *testing.T) {
			t.Parallel()
			sc := env.Scenario(t, Anonymous)
			creds := sc.Credentials(role)

			authPage := pages.NewAuthPage(sc.Page, sc.BaseURL, sc.Timeouts)
			sc.Must(authPage.OpenLogin(sc.Ctx), "open login")
			sc.Must(authPage.Login(sc.Ctx, creds.Email, creds.Password), "log in")

			if err := sc.Expect().Page(sc.Page).ToHaveURL(dashboardURL); err != nil {
				t.Fatalf("%s did not reach the dashboard: %v", role, err)
			}
		})
	}
}

func TestLogin_WrongPasswordStaysOnLogin(t *testing.T) {
	t.Parallel()
	sc := env.Scenario(t, Anonymous)
	creds := sc.Credentials(config.RoleLawyer)

	authPage := pages.NewAuthPage(sc.Page, sc.BaseURL, sc.Timeouts)
	sc.Must(authPage.OpenLogin(sc.Ctx), "open login")
	sc.Must(authPage.Login(sc.Ctx, creds.Email, creds.Password+"-wrong"), "submit bad login")

	if err := sc.Expect().Locator(authPage.Alert()).ToBeVisible(); err != nil {
		t.Fatalf("no error alert after bad password: %v", err)
	}
	if err := sc.Expect().Page(sc.Page).ToHaveURL(loginURL); err != nil {
		t.Fatalf("left the login page after bad password: %v", err)
	}
}
