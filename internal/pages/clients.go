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

var (
	clientUserField = browser.FirstVisible(
		browser.Label(regexp.MustCompile(`(?i)Client Name`)),
		browser.CSSChain(`select[name*="client"]`, `select#client_id`),
	)
	clientLawyerField = browser.FirstVisible(
		browser.Label(regexp.MustCompile(`(?i)Assign to Lawyer`)),
		browser.CSSChain(`select[name*="lawyer"]`, `select#lawyer_id`),
	)
	clientPhoneField   = browser.CSSChain(`input[name*="phone"]`, `input[type="tel"]`, `#phone`)
	clientAddressField = browser.CSSChain(`textarea[name*="address"]`, `input[name*="address"]`, `#address`)

	addClientLink = regexp.MustCompile(`(?i)Add Client`)
	saveClientBtn = regexp.MustCompile(`(?i)Save Client`)
)

// ClientAdded is the notice shown after a client is saved.
const ClientAdded = "Client added successfully"

// ClientRow is a client list row: name, email, lawyer, phone, address.
type ClientRow struct {
	Name    string
	Email   string
	Lawyer  string
	Phone   string
	Address string
}

// ClientsPage drives the client list and the add-client form.
type ClientsPage struct {
	base
	table *pagination.PageTable
}

func NewClientsPage(page playwright.Page, baseURL string, timeouts browser.Timeouts) *ClientsPage {
	return &ClientsPage{
		base:  newBase(page, baseURL, timeouts),
		table: pagination.NewPageTable(page, timeouts),
	}
}

func (p *ClientsPage) NavigateToList(ctx context.Context) error {
	if err := p.goTo(ctx, PathClientsList); err != nil {
		return err
	}
	browser.BestEffort(ctx, "client rows", browser.WaitAttached(p.page, rowSelector, p.timeouts.Default))
	return nil
}

// NavigateToCreate follows the "Add Client" link and waits for the form.
func (p *ClientsPage) NavigateToCreate(ctx context.Context) error {
	if err := p.clickLink(ctx, addClientLink, p.timeouts.Default); err != nil {
		return err
	}
	return p.waitForm(ctx)
}

// FillForm fills the add-client form and returns the record with Client and
// Lawyer set to the labels actually selected.
func (p *ClientsPage) FillForm(ctx context.Context, record fixtures.ClientRecord) (fixtures.ClientRecord, error) {
	form := p.form()
	submitted := record

	client, err := browser.Await(ctx, form, clientUserField, p.timeouts.Default)
	if err != nil {
		return submitted, err
	}
	opt, choice, err := browser.SelectWithFallback(ctx, client, record.Client, "client")
	if err != nil {
		return submitted, err
	}
	if choice == browser.ChoiceNone {
		return submitted, errNoOption("client")
	}
	submitted.Client = opt.Label

	if lawyer, ok, err := clientLawyerField.Locate(form); err != nil {
		return submitted, browser.Interaction(ctx, p.page, "locate lawyer", err)
	} else if ok {
		opt, _, err := browser.SelectWithFallback(ctx, lawyer, record.Lawyer, "lawyer")
		if err != nil {
			return submitted, err
		}
		submitted.Lawyer = opt.Label
	}

	phone, err := browser.Await(ctx, form, clientPhoneField, p.timeouts.Default)
	if err != nil {
		return submitted, err
	}
	if err := phone.Fill(record.Phone); err != nil {
		return submitted, browser.Interaction(ctx, p.page, "fill phone", err)
	}
	address, err := browser.Await(ctx, form, clientAddressField, p.timeouts.Default)
	if err != nil {
		return submitted, err
	}
	if err := address.Fill(record.Address); err != nil {
		return submitted, browser.Interaction(ctx, p.page, "fill address", err)
	}

	obs.From(ctx).Debug("client form filled", "client", submitted.Client, "lawyer", submitted.Lawyer)
	return submitted, nil
}

// Save clicks "Save Client". It does not verify the outcome.
func (p *ClientsPage) Save(ctx context.Context) error {
	btn := p.form().GetByRole(*playwright.AriaRoleButton, playwright.LocatorGetByRoleOptions{Name: saveClientBtn}).First()
	if err := btn.Click(); err != nil {
		return browser.Interaction(ctx, p.page, "click Save Client", err)
	}
	p.settle(ctx)
	return nil
}

// Message is the element showing text, such as ClientAdded.
func (p *ClientsPage) Message(text string) playwright.Locator {
	return p.page.GetByText(text).First()
}

func (p *ClientsPage) Table() *pagination.PageTable {
	return p.table
}

func (p *ClientsPage) FindRow(text string) playwright.Locator {
	return p.table.RowsContaining(text)
}

func (p *ClientsPage) RowData(ctx context.Context, row playwright.Locator) (ClientRow, error) {
	cells, err := cellTexts(row.First())
	if err != nil {
		return ClientRow{}, browser.Interaction(ctx, p.page, "read client row", err)
	}
	return ClientRow{
		Name:    cellAt(cells, 0),
		Email:   cellAt(cells, 1),
		Lawyer:  cellAt(cells, 2),
		Phone:   cellAt(cells, 3),
		Address: cellAt(cells, 4),
	}, nil
}
