package browser

import (
	"testing"

	"github.com/kuitang/lcm-e2e/internal/config"
	"github.com/kuitang/lcm-e2e/internal/fixtures"
	"github.com/kuitang/lcm-e2e/internal/pages"
	"github.com/kuitang/lcm-e2e/internal/pagination"
)

// clientDisplayName reads the signed-in client's name in its own session.
func clientDisplayName(sc *Scenario) string {
	sc.T.Helper()
	bctx, page, err := sc.OpenSession(config.RoleClient)
	sc.Precondition(err, "open client session")
	defer bctx.Close()

	dash := pages.NewDashboardPage(page, sc.BaseURL, sc.Timeouts)
	sc.Precondition(dash.Open(sc.Ctx), "open client dashboard")
	name, err := dash.DisplayName(sc.Ctx)
	sc.Precondition(err, "read client name")
	return name
}

// asLawyer runs fn in a separate lawyer session that is closed afterwards.
func asLawyer(sc *Scenario, fn func(s *Scenario)) {
	sc.T.Helper()
	bctx, page, err := sc.OpenSession(config.RoleLawyer)
	sc.Precondition(err, "open lawyer session")
	defer bctx.Close()

	lawyer := *sc
	lawyer.Context = bctx
	lawyer.Page = page
	lawyer.Role = config.RoleLawyer
	fn(&lawyer)
}

func TestCrossRole_ClientSeesCaseCreatedForThem(t *testing.T) {
	t.Parallel()
	sc := env.Scenario(t, config.RoleClient)

	clientName := clientDisplayName(sc)
	record := fixtures.NewCaseBuilder().WithClient(clientName).MustBuild()
	asLawyer(sc, func(lawyer *Scenario) {
		ensureCase(lawyer, lawyer.Page, record)
	})

	cases := pages.NewCasesPage(sc.Page, sc.BaseURL, sc.Timeouts)
	sc.Must(cases.NavigateToList(sc.Ctx), "open case list")
	res, err := pagination.NewScanner(cases.Table()).Search(sc.Ctx, record.Title, sc.Config().MaxPaginationPages)
	sc.Must(err, "search case list")
	if !res.Found {
		t.Fatalf("client does not see case %q: %s", record.Title, res)
	}
	row, err := cases.RowData(sc.Ctx, cases.FindRow(record.Title))
	sc.Must(err, "read case row")
	if row.Client != clientName {
		t.Fatalf("client column = %q, want %q", row.Client, clientName)
	}
}

func TestCrossRole_ClientCannotEditInvoiceStatus(t *testing.T) {
	t.Parallel()
	sc := env.Scenario(t, config.RoleClient)

	clientName := clientDisplayName(sc)
	var invoice fixtures.BillingRecord
	asLawyer(sc, func(lawyer *Scenario) {
		kase := ensureCase(lawyer, lawyer.Page, fixtures.NewCaseBuilder().WithClient(clientName).MustBuild())
		invoice, _ = createInvoice(lawyer, lawyer.Page, kase.Title, fixtures.NewBillingBuilder())
	})

	row := findInvoice(sc, sc.Page, invoice.Description)
	if row.Client != clientName {
		t.Errorf("client column = %q, want %q", row.Client, clientName)
	}
	if err := sc.Expect().Locator(row.Status).ToBeDisabled(); err != nil {
		t.Fatalf("client can edit invoice status: %v", err)
	}
}
