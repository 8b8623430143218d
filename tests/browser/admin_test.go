package browser

import (
	"strings"
	"testing"

	"github.com/kuitang/lcm-e2e/internal/config"
	"github.com/kuitang/lcm-e2e/internal/errs"
	"github.com/kuitang/lcm-e2e/internal/fixtures"
	"github.com/kuitang/lcm-e2e/internal/pages"
	"github.com/kuitang/lcm-e2e/internal/pagination"
)

// registerThrowaway registers a fresh account in a separate anonymous
// session so admin scenarios never edit or delete a seeded login.
func registerThrowaway(sc *Scenario, prefix string) fixtures.User {
	sc.T.Helper()
	user := fixtures.UniqueUser(prefix)

	bctx, page, err := sc.OpenSession(Anonymous)
	sc.Precondition(err, "open registration session")
	defer bctx.Close()

	authPage := pages.NewAuthPage(page, sc.BaseURL, sc.Timeouts)
	sc.Precondition(authPage.OpenRegister(sc.Ctx), "open register")
	sc.Precondition(authPage.Register(sc.Ctx, user.Name, user.Email, user.Password), "register "+user.Email)
	if !loginURL.MatchString(page.URL()) {
		sc.Skip("registration of " + user.Email + " did not reach the login page, at " + page.URL())
	}
	return user
}

// findUser pages through the user list until the row for email is shown.
func findUser(sc *Scenario, users *pages.UsersPage, email string) {
	sc.T.Helper()
	sc.Must(users.NavigateToList(sc.Ctx), "open user list")
	res, err := pagination.NewScanner(users.Table()).Search(sc.Ctx, email, sc.Config().MaxPaginationPages)
	sc.Must(err, "search user list")
	if !res.Found {
		sc.Precondition(errs.New(errs.NotFound, email+" not listed: "+res.String()), "find registered user")
	}
}

func TestAdmin_AddsClient(t *testing.T) {
	t.Parallel()
	sc := env.Scenario(t, config.RoleAdmin)
	user := registerThrowaway(sc, "Client")

	nav := pages.NewNavigator(sc.Page, sc.BaseURL, sc.Timeouts)
	sc.Must(nav.Open(sc.Ctx, pages.PathDashboard), "open dashboard")
	sc.Must(nav.NavigateTo(sc.Ctx, pages.SectionClients), "navigate to clients")

	clients := pages.NewClientsPage(sc.Page, sc.BaseURL, sc.Timeouts)
	sc.Must(clients.NavigateToCreate(sc.Ctx), "open add client")
	submitted, err := clients.FillForm(sc.Ctx, fixtures.NewClientBuilder().WithClient(user.Name).MustBuild())
	sc.Must(err, "fill client form")
	sc.Must(clients.Save(sc.Ctx), "save client")

	if err := sc.Expect().Locator(clients.Message(pages.ClientAdded)).ToBeVisible(); err != nil {
		t.Fatalf("no %q notice: %v", pages.ClientAdded, err)
	}
	if submitted.Client != user.Name {
		// The application did not offer the new account; another client was used.
		t.Logf("client %q not offered, added %q", user.Name, submitted.Client)
		return
	}

	sc.Must(clients.NavigateToList(sc.Ctx), "open client list")
	res, err := pagination.NewScanner(clients.Table()).Search(sc.Ctx, user.Email, sc.Config().MaxPaginationPages)
	sc.Must(err, "search client list")
	if !res.Found {
		t.Fatalf("client %s not listed: %s", user.Email, res)
	}
	row, err := clients.RowData(sc.Ctx, clients.FindRow(user.Email))
	sc.Must(err, "read client row")
	if row.Phone != submitted.Phone {
		t.Errorf("phone = %q, want %q", row.Phone, submitted.Phone)
	}
	if row.Address != submitted.Address {
		t.Errorf("address = %q, want %q", row.Address, submitted.Address)
	}
	if submitted.Lawyer != "" && row.Lawyer != submitted.Lawyer {
		t.Errorf("lawyer = %q, want %q", row.Lawyer, submitted.Lawyer)
	}
}

func TestAdmin_EditsUser(t *testing.T) {
	t.Parallel()
	sc := env.Scenario(t, config.RoleAdmin)
	user := registerThrowaway(sc, "Edit")

	users := pages.NewUsersPage(sc.Page, sc.BaseURL, sc.Timeouts)
	findUser(sc, users, user.Email)
	sc.Must(users.OpenEdit(sc.Ctx, users.FindRow(user.Email)), "open edit form")

	edit := pages.UserEdit{
		FirstName: "Eddie",
		LastName:  "Cheesecake-" + fixtures.UniqueSuffix(6),
		Role:      "lawyer",
	}
	roleLabel, err := users.FillEdit(sc.Ctx, edit)
	sc.Must(err, "fill edit form")
	sc.Must(users.SaveChanges(sc.Ctx), "save changes")

	if err := sc.Expect().Locator(users.Message(pages.UserUpdated)).ToBeVisible(); err != nil {
		t.Fatalf("no %q notice: %v", pages.UserUpdated, err)
	}

	findUser(sc, users, user.Email)
	row, err := users.RowData(sc.Ctx, users.FindRow(user.Email))
	sc.Must(err, "read user row")
	if want := edit.FirstName + " " + edit.LastName; row.Name != want {
		t.Errorf("name = %q, want %q", row.Name, want)
	}
	if roleLabel != "" && !strings.EqualFold(row.Role, roleLabel) {
		t.Errorf("role = %q, want %q", row.Role, roleLabel)
	}
}

func TestAdmin_DeletesUser(t *testing.T) {
	t.Parallel()
	sc := env.Scenario(t, config.RoleAdmin)
	user := registerThrowaway(sc, "Delete")

	users := pages.NewUsersPage(sc.Page, sc.BaseURL, sc.Timeouts)
	findUser(sc, users, user.Email)
	sc.Must(users.Delete(sc.Ctx, users.FindRow(user.Email)), "delete user")

	if err := sc.Expect().Locator(users.Message(pages.UserDeleted)).ToBeVisible(); err != nil {
		t.Fatalf("no %q notice: %v", pages.UserDeleted, err)
	}

	sc.Must(users.NavigateToList(sc.Ctx), "reopen user list")
	res, err := pagination.NewScanner(users.Table()).Search(sc.Ctx, user.Email, sc.Config().MaxPaginationPages)
	sc.Must(err, "search user list")
	if res.Found {
		t.Fatalf("%s still listed after delete: %s", user.Email, res)
	}
}
