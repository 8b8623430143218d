package pages

import (
	"context"
	"regexp"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/lcm-e2e/internal/browser"
	"github.com/kuitang/lcm-e2e/internal/errs"
	"github.com/kuitang/lcm-e2e/internal/fixtures"
	"github.com/kuitang/lcm-e2e/internal/obs"
	"github.com/kuitang/lcm-e2e/internal/pagination"
)

var (
	createBillingName = regexp.MustCompile(`(?i)Create Billing`)
	selectCaseLabel   = regexp.MustCompile(`(?i)Select Case`)
	amountLabel       = regexp.MustCompile(`(?i)Amount`)
	descriptionLabel  = regexp.MustCompile(`(?i)Description`)
	statusLabel       = regexp.MustCompile(`(?i)Status`)
	dueDateLabel      = regexp.MustCompile(`(?i)Due Date`)
)

const (
	statusDropdownSelector = "select.status-dropdown"
	setInputValueJS        = `(el, value) => { el.value = value; }`
)

// Billing list columns, in rendered order.
const (
	colCase = iota
	colClient
	colAmount
	colStatus
	colDueDate
	colDescription
)

// BillingRow is an invoice row as rendered. Status is a live control because
// the status is editable inline.
type BillingRow struct {
	Case        string
	Client      string
	Amount      string
	Status      playwright.Locator
	DueDate     string
	Description string
}

// StatusValue reads the current value of the row's inline status control.
func (r BillingRow) StatusValue() (string, error) {
	return r.Status.InputValue()
}

// CaseOption is a case entry of the create-billing form.
type CaseOption struct {
	Value string
	Name  string
}

// BillingPage drives the billing list and create-billing form.
type BillingPage struct {
	base
	table *pagination.PageTable
}

func NewBillingPage(page playwright.Page, baseURL string, timeouts browser.Timeouts) *BillingPage {
	return &BillingPage{
		base:  newBase(page, baseURL, timeouts),
		table: pagination.NewPageTable(page, timeouts),
	}
}

// NavigateToList opens the billing list.
func (p *BillingPage) NavigateToList(ctx context.Context) error {
	if err := p.goTo(ctx, PathBillingList); err != nil {
		return err
	}
	browser.BestEffort(ctx, "billing rows", browser.WaitAttached(p.page, rowSelector, p.timeouts.Default))
	return nil
}

// ClickCreate follows the "Create Billing" link and waits for the form.
func (p *BillingPage) ClickCreate(ctx context.Context) error {
	if err := p.clickLink(ctx, createBillingName, p.timeouts.Default); err != nil {
		return err
	}
	return p.waitForm(ctx)
}

func (p *BillingPage) caseSelect() playwright.Locator {
	return p.form().GetByLabel(selectCaseLabel).First()
}

// FillForm fills the create-billing form and returns the record as the
// application will receive it: the amount is read back from the input after
// filling, since the UI may normalize it.
func (p *BillingPage) FillForm(ctx context.Context, record fixtures.BillingRecord) (fixtures.BillingRecord, error) {
	form := p.form()
	submitted := record

	if record.CaseName != "" {
		if _, err := p.caseSelect().SelectOption(playwright.SelectOptionValues{Labels: &[]string{record.CaseName}}); err != nil {
			return submitted, browser.Interaction(ctx, p.page, "select case "+record.CaseName, err)
		}
	}

	amount := form.GetByLabel(amountLabel).First()
	if err := amount.Fill(record.Amount); err != nil {
		return submitted, browser.Interaction(ctx, p.page, "fill amount", err)
	}
	normalized, err := amount.InputValue()
	if err != nil {
		return submitted, browser.Interaction(ctx, p.page, "read back amount", err)
	}
	submitted.Amount = normalized

	if err := form.GetByLabel(descriptionLabel).First().Fill(record.Description); err != nil {
		return submitted, browser.Interaction(ctx, p.page, "fill description", err)
	}

	if record.Status != "" {
		status := form.GetByLabel(statusLabel).First()
		visible, err := status.IsVisible()
		if err != nil {
			return submitted, browser.Interaction(ctx, p.page, "check status visibility", err)
		}
		if visible {
			if _, err := status.SelectOption(playwright.SelectOptionValues{Values: &[]string{string(record.Status)}}); err != nil {
				return submitted, browser.Interaction(ctx, p.page, "select status", err)
			}
		}
	}

	if record.DueDate != "" {
		due := form.GetByLabel(dueDateLabel).First()
		visible, err := due.IsVisible()
		if err != nil {
			return submitted, browser.Interaction(ctx, p.page, "check due date visibility", err)
		}
		if visible {
			if _, err := due.Evaluate(setInputValueJS, record.DueDate); err != nil {
				return submitted, browser.Interaction(ctx, p.page, "set due date", err)
			}
		}
	}

	obs.From(ctx).Debug("billing form filled",
		"case", submitted.CaseName,
		"amount", submitted.Amount,
		"description", submitted.Description,
	)
	return submitted, nil
}

// SubmitForm clicks "Create Billing" and waits for a table or an alert.
func (p *BillingPage) SubmitForm(ctx context.Context) error {
	btn := p.form().GetByRole(*playwright.AriaRoleButton, playwright.LocatorGetByRoleOptions{Name: createBillingName}).First()
	if err := browser.WaitVisible(btn, p.timeouts.Default); err != nil {
		return browser.Interaction(ctx, p.page, "wait for Create Billing button", err)
	}
	if err := btn.Click(); err != nil {
		return browser.Interaction(ctx, p.page, "click Create Billing", err)
	}
	if err := browser.WaitAttached(p.page, submitOutcomeSel, p.timeouts.Navigation); err != nil {
		return browser.Interaction(ctx, p.page, "wait for billing submit outcome", err)
	}
	return nil
}

// Table exposes the list for paginated searches.
func (p *BillingPage) Table() *pagination.PageTable {
	return p.table
}

// FindRow returns the rows with a cell containing searchText. Pass a value
// unique to the invoice, such as its description.
func (p *BillingPage) FindRow(searchText string) playwright.Locator {
	return p.table.RowsContaining(searchText)
}

// RowData reads the first row matched by row.
func (p *BillingPage) RowData(ctx context.Context, row playwright.Locator) (BillingRow, error) {
	first := row.First()
	cells, err := cellTexts(first)
	if err != nil {
		return BillingRow{}, browser.Interaction(ctx, p.page, "read billing row", err)
	}
	return BillingRow{
		Case:        cellAt(cells, colCase),
		Client:      cellAt(cells, colClient),
		Amount:      cellAt(cells, colAmount),
		Status:      first.Locator(statusDropdownSelector),
		DueDate:     cellAt(cells, colDueDate),
		Description: cellAt(cells, colDescription),
	}, nil
}

// SelectFirstAvailableCase selects the first real case of the form. Fewer
// than two options (placeholder plus one case) is a failed precondition.
func (p *BillingPage) SelectFirstAvailableCase(ctx context.Context) (CaseOption, error) {
	sel := p.caseSelect()
	options, err := browser.ReadOptions(sel)
	if err != nil {
		return CaseOption{}, browser.Interaction(ctx, p.page, "read case options", err)
	}
	withValue := 0
	for _, opt := range options {
		if opt.HasValue {
			withValue++
		}
	}
	if withValue < 2 {
		return CaseOption{}, errs.New(errs.FailedPrecondition, "no cases available for billing; create at least one case")
	}
	opt, choice := browser.ChooseOption(options, "")
	if choice == browser.ChoiceNone {
		return CaseOption{}, errs.New(errs.FailedPrecondition, "no selectable case for billing")
	}
	if _, err := sel.SelectOption(playwright.SelectOptionValues{Values: &[]string{opt.Value}}); err != nil {
		return CaseOption{}, browser.Interaction(ctx, p.page, "select first case", err)
	}
	return CaseOption{Value: opt.Value, Name: opt.Label}, nil
}

// SelectCaseByTitle selects the case whose label contains title. ok is false
// when no such case is offered.
func (p *BillingPage) SelectCaseByTitle(ctx context.Context, title string) (CaseOption, bool, error) {
	sel := p.caseSelect()
	options, err := browser.ReadOptions(sel)
	if err != nil {
		return CaseOption{}, false, browser.Interaction(ctx, p.page, "read case options", err)
	}
	opt, choice := browser.ChooseOption(options, title)
	if choice != browser.ChoiceMatched {
		return CaseOption{}, false, nil
	}
	if _, err := sel.SelectOption(playwright.SelectOptionValues{Values: &[]string{opt.Value}}); err != nil {
		return CaseOption{}, false, browser.Interaction(ctx, p.page, "select case "+title, err)
	}
	return CaseOption{Value: opt.Value, Name: opt.Label}, true, nil
}

// SelectCase prefers the case titled title and falls back to the first
// available one.
func (p *BillingPage) SelectCase(ctx context.Context, title string) (CaseOption, error) {
	if title != "" {
		opt, ok, err := p.SelectCaseByTitle(ctx, title)
		if err != nil || ok {
			return opt, err
		}
		obs.From(ctx).Warn("case not offered, selecting first available", "title", title)
	}
	return p.SelectFirstAvailableCase(ctx)
}
