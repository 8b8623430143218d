package browser

import (
	"strings"
	"testing"

	"github.com/kuitang/lcm-e2e/internal/errs"
	"github.com/kuitang/lcm-e2e/internal/pages"
	"github.com/kuitang/lcm-e2e/internal/report"
)

// These scenarios load fixed markup with SetContent, so they do not depend on
// what the application under test happens to hold.

const billingFormWithoutCases = `<!doctype html>
<html><body>
<form>
  <label for="case_id">Select Case</label>
  <select id="case_id" name="case_id">
    <option value="">-- Select Case --</option>
  </select>
  <label for="amount">Amount</label>
  <input id="amount" name="amount" type="number">
  <button type="submit">Create Billing</button>
</form>
</body></html>`

const caseListOnePage = `<!doctype html>
<html><body>
<table>
  <thead><tr><th>Title</th><th>Client</th><th>Lawyer</th><th>Status</th></tr></thead>
  <tbody>
    <tr><td>Estate of Marlow</td><td>Cleo Client</td><td>Larry Lawyer</td><td>open</td></tr>
    <tr><td>Harbor Lease Dispute</td><td>Cleo Client</td><td>Larry Lawyer</td><td>pending</td></tr>
  </tbody>
</table>
</body></html>`

func TestBilling_NoCasesSkipsInsteadOfFailing(t *testing.T) {
	env.InitBrowser(t)

	var (
		name      string
		selectErr error
	)
	t.Run("empty case select", func(t *testing.T) {
		name = t.Name()
		sc := env.Scenario(t, Anonymous)
		sc.Must(sc.Page.SetContent(billingFormWithoutCases), "load billing form")

		billing := pages.NewBillingPage(sc.Page, sc.BaseURL, sc.Timeouts)
		_, selectErr = billing.SelectFirstAvailableCase(sc.Ctx)
		sc.Must(selectErr, "select case")
		t.Error("scenario kept running after a failed precondition")
	})

	if !errs.Is(selectErr, errs.FailedPrecondition) {
		t.Fatalf("SelectFirstAvailableCase error = %v, want failed precondition", selectErr)
	}
	if !strings.Contains(selectErr.Error(), "no cases available") {
		t.Errorf("error %q does not say no cases are available", selectErr)
	}

	var got *report.Result
	for _, res := range env.Report.Results() {
		if res.Name == name {
			got = &res
			break
		}
	}
	if got == nil {
		t.Fatalf("no report entry for %s", name)
	}
	if got.Outcome != report.Skipped {
		t.Errorf("outcome = %s, want %s", got.Outcome, report.Skipped)
	}
	if !strings.Contains(got.Reason, "select case") || !strings.Contains(got.Reason, "no cases available") {
		t.Errorf("skip reason %q lost the step or the cause", got.Reason)
	}
}

func TestCases_ExistsChecksCurrentPageOnly(t *testing.T) {
	t.Parallel()
	sc := env.Scenario(t, Anonymous)
	sc.Must(sc.Page.SetContent(caseListOnePage), "load case list")

	cases := pages.NewCasesPage(sc.Page, sc.BaseURL, sc.Timeouts)
	for title, want := range map[string]bool{
		"Harbor Lease Dispute": true,
		"Estate of":            true,
		"Unlisted Matter":      false,
	} {
		got, err := cases.Exists(sc.Ctx, title)
		sc.Must(err, "check "+title)
		if got != want {
			t.Errorf("Exists(%q) = %v, want %v", title, got, want)
		}
	}
}
