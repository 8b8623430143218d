package pages

import (
	"context"
	"regexp"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/lcm-e2e/internal/browser"
	"github.com/kuitang/lcm-e2e/internal/fixtures"
	"github.com/kuitang/lcm-e2e/internal/obs"
	"github.com/kuitang/lcm-e2e/internal/pagination"
)

// Field strategies for the create-case form, tried in order.
var (
	caseTitleField = browser.CSSChain(
		`input[name="title"]`, `input[name="case_title"]`, `input#title`, `input#case_title`,
	)
	caseClientField = browser.CSSChain(
		`select[name*="client"]`, `select#client_id`, `[name="client_id"]`,
	)
	caseLawyerField = browser.CSSChain(
		`select[name*="lawyer"]`, `select#lawyer_id`, `select[name="assigned_lawyer"]`, `select#assigned_lawyer`,
	)
	caseDescriptionField = browser.CSSChain(`textarea[name*="description"]`, `#description`)
	caseTypeField        = browser.CSSChain(`select[name*="type"]`, `select#case_type`)
	caseStatusField      = browser.CSSChain(`select[name*="status"]`, `select#status`, `select#case_status`)

	addCaseLink   = regexp.MustCompile(`(?i)Add Case`)
	caseSubmitBtn = regexp.MustCompile(`(?i)Create|Submit|Save`)
)

// CaseRow is a case list row as rendered: title, client, lawyer, status.
type CaseRow struct {
	Title  string
	Client string
	Lawyer string
	Status string
}

// CasesPage drives the case list and create-case form.
type CasesPage struct {
	base
	table *pagination.PageTable
}

func NewCasesPage(page playwright.Page, baseURL string, timeouts browser.Timeouts) *CasesPage {
	return &CasesPage{
		base:  newBase(page, baseURL, timeouts),
		table: pagination.NewPageTable(page, timeouts),
	}
}

// NavigateToList opens the case list. An empty list is not an error.
func (p *CasesPage) NavigateToList(ctx context.Context) error {
	if err := p.goTo(ctx, PathCasesList); err != nil {
		return err
	}
	browser.BestEffort(ctx, "case rows", browser.WaitAttached(p.page, rowSelector, p.timeouts.Default))
	return nil
}

// Exists reports whether the current page lists a case containing title.
func (p *CasesPage) Exists(ctx context.Context, title string) (bool, error) {
	return p.table.Contains(ctx, title)
}

// NavigateToCreate follows the "Add Case" link and waits for the form.
func (p *CasesPage) NavigateToCreate(ctx context.Context) error {
	if err := p.clickLink(ctx, addCaseLink, p.timeouts.Default); err != nil {
		return err
	}
	return p.waitForm(ctx)
}

// FillForm fills the create-case form. Title is required to be present;
// every other control is optional and selects fall back to the first real
// option when the requested one is missing.
func (p *CasesPage) FillForm(ctx context.Context, record fixtures.CaseRecord) error {
	form := p.form()

	title, err := browser.Await(ctx, form, caseTitleField, p.timeouts.Default)
	if err != nil {
		return err
	}
	if err := title.Fill(record.Title); err != nil {
		return browser.Interaction(ctx, p.page, "fill case title", err)
	}

	if err := p.selectIn(ctx, form, caseClientField, record.Client, "client"); err != nil {
		return err
	}
	if err := p.selectIn(ctx, form, caseLawyerField, record.Lawyer, "lawyer"); err != nil {
		return err
	}

	if desc, ok, err := caseDescriptionField.Locate(form); err != nil {
		return browser.Interaction(ctx, p.page, "locate case description", err)
	} else if ok {
		if err := desc.Fill(record.Description); err != nil {
			return browser.Interaction(ctx, p.page, "fill case description", err)
		}
	}

	if err := p.selectIn(ctx, form, caseTypeField, "", "case type"); err != nil {
		return err
	}

	if record.Status != "" {
		status, ok, err := caseStatusField.Locate(form)
		if err != nil {
			return browser.Interaction(ctx, p.page, "locate case status", err)
		}
		if ok {
			if _, err := status.SelectOption(playwright.SelectOptionValues{Values: &[]string{string(record.Status)}}); err != nil {
				return browser.Interaction(ctx, p.page, "select case status", err)
			}
		}
	}
	return nil
}

func (p *CasesPage) selectIn(ctx context.Context, form playwright.Locator, field browser.FieldLocator, requested, name string) error {
	sel, ok, err := field.Locate(form)
	if err != nil {
		return browser.Interaction(ctx, p.page, "locate "+name, err)
	}
	if !ok {
		obs.From(ctx).Debug("optional select not present", "field", name)
		return nil
	}
	_, _, err = browser.SelectWithFallback(ctx, sel, requested, name)
	return err
}

// SubmitForm clicks the form's primary action. It does not verify the outcome.
func (p *CasesPage) SubmitForm(ctx context.Context) error {
	btn := p.form().GetByRole(*playwright.AriaRoleButton, playwright.LocatorGetByRoleOptions{Name: caseSubmitBtn}).First()
	if err := btn.Click(); err != nil {
		return browser.Interaction(ctx, p.page, "submit case form", err)
	}
	p.settle(ctx)
	return nil
}

// Ensure creates record unless a case with its title is listed within the
// first maxPages pages. It reports whether a case was created.
func (p *CasesPage) Ensure(ctx context.Context, record fixtures.CaseRecord, maxPages int) (bool, error) {
	if err := p.NavigateToList(ctx); err != nil {
		return false, err
	}
	res, err := pagination.NewScanner(p.table).Search(ctx, record.Title, maxPages)
	if err != nil {
		return false, err
	}
	if res.Found {
		return false, nil
	}
	if err := p.NavigateToList(ctx); err != nil {
		return false, err
	}
	if err := p.NavigateToCreate(ctx); err != nil {
		return false, err
	}
	if err := p.FillForm(ctx, record); err != nil {
		return false, err
	}
	if err := p.SubmitForm(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// FindRow returns the rows whose cells contain title.
func (p *CasesPage) FindRow(title string) playwright.Locator {
	return p.table.RowsContaining(title)
}

// Table exposes the list for paginated searches.
func (p *CasesPage) Table() *pagination.PageTable {
	return p.table
}

// RowData reads the first row matched by row.
func (p *CasesPage) RowData(ctx context.Context, row playwright.Locator) (CaseRow, error) {
	cells, err := cellTexts(row.First())
	if err != nil {
		return CaseRow{}, browser.Interaction(ctx, p.page, "read case row", err)
	}
	return CaseRow{
		Title:  cellAt(cells, 0),
		Client: cellAt(cells, 1),
		Lawyer: cellAt(cells, 2),
		Status: cellAt(cells, 3),
	}, nil
}
