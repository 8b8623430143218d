package browser

import (
	"testing"

	"github.com/kuitang/lcm-e2e/internal/config"
	"github.com/kuitang/lcm-e2e/internal/fixtures"
	"github.com/kuitang/lcm-e2e/internal/pages"
	"github.com/kuitang/lcm-e2e/internal/pagination"
)

func TestCases_LawyerCreatesCase(t *testing.T) {
	t.Parallel()
	sc := env.Scenario(t, config.RoleLawyer)
	record := fixtures.NewCaseBuilder().MustBuild()

	cases := pages.NewCasesPage(sc.Page, sc.BaseURL, sc.Timeouts)
	created, err := cases.Ensure(sc.Ctx, record, sc.Config().MaxPaginationPages)
	sc.Must(err, "create case")
	if !created {
		t.Fatalf("case %q already existed before this scenario created it", record.Title)
	}

	sc.Must(cases.NavigateToList(sc.Ctx), "open case list")
	res, err := pagination.NewScanner(cases.Table()).Search(sc.Ctx, record.Title, sc.Config().MaxPaginationPages)
	sc.Must(err, "search case list")
	if !res.Found {
		t.Fatalf("case %q not listed: %s", record.Title, res)
	}

	row, err := cases.RowData(sc.Ctx, cases.FindRow(record.Title))
	sc.Must(err, "read case row")
	if row.Title != record.Title {
		t.Errorf("title = %q, want %q", row.Title, record.Title)
	}
	if row.Status != string(record.Status) {
		t.Errorf("status = %q, want %q", row.Status, record.Status)
	}
	if row.Client == "" {
		t.Error("case row has no client")
	}
}

func TestCases_EnsureIsIdempotent(t *testing.T) {
	t.Parallel()
	sc := env.Scenario(t, config.RoleAdmin)
	record := fixtures.NewCaseBuilder().WithStatus(fixtures.CasePending).MustBuild()

	cases := pages.NewCasesPage(sc.Page, sc.BaseURL, sc.Timeouts)
	created, err := cases.Ensure(sc.Ctx, record, sc.Config().MaxPaginationPages)
	sc.Must(err, "first ensure")
	if !created {
		t.Fatalf("first Ensure did not create %q", record.Title)
	}

	created, err = cases.Ensure(sc.Ctx, record, sc.Config().MaxPaginationPages)
	sc.Must(err, "second ensure")
	if created {
		t.Fatalf("second Ensure created %q again", record.Title)
	}
	sc.Must(cases.NavigateToList(sc.Ctx), "open case list")
	res, err := pagination.NewScanner(cases.Table()).Search(sc.Ctx, record.Title, sc.Config().MaxPaginationPages)
	sc.Must(err, "search case list")
	if !res.Found {
		t.Fatalf("case %q not listed: %s", record.Title, res)
	}
	n, err := cases.FindRow(record.Title).Count()
	sc.Must(err, "count rows")
	if n != 1 {
		t.Fatalf("%d rows titled %q, want 1", n, record.Title)
	}
}
