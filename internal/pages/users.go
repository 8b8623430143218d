package pages

import (
	"context"
	"regexp"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/lcm-e2e/internal/browser"
	"github.com/kuitang/lcm-e2e/internal/obs"
	"github.com/kuitang/lcm-e2e/internal/pagination"
)

var (
	firstNameField = browser.CSSChain(`input[name="first_name"]`, `input#first_name`, `input[name="firstname"]`)
	lastNameField  = browser.CSSChain(`input[name="last_name"]`, `input#last_name`, `input[name="lastname"]`)
	userRoleField  = browser.CSSChain(`select[name="role"]`, `select#role`, `select`)

	editUserBtn    = regexp.MustCompile(`(?i)Edit`)
	deleteUserBtn  = regexp.MustCompile(`(?i)Delete User`)
	confirmBtn     = regexp.MustCompile(`(?i)^OK$`)
	saveChangesBtn = regexp.MustCompile(`(?i)Save Changes`)
)

// Notices shown on the user list after an edit or a delete.
const (
	UserUpdated = "User updated successfully"
	UserDeleted = "User deleted successfully"
)

// UserEdit is the input of the edit-user form. An empty Role keeps the
// current selection.
type UserEdit struct {
	FirstName string
	LastName  string
	Role      string
}

// UserRow is a user list row: name, email, role.
type UserRow struct {
	Name  string
	Email string
	Role  string
}

// UsersPage drives the admin user list with its edit and delete actions.
type UsersPage struct {
	base
	table *pagination.PageTable
}

func NewUsersPage(page playwright.Page, baseURL string, timeouts browser.Timeouts) *UsersPage {
	return &UsersPage{
		base:  newBase(page, baseURL, timeouts),
		table: pagination.NewPageTable(page, timeouts),
	}
}

func (p *UsersPage) NavigateToList(ctx context.Context) error {
	if err := p.goTo(ctx, PathUsersList); err != nil {
		return err
	}
	browser.BestEffort(ctx, "user rows", browser.WaitAttached(p.page, rowSelector, p.timeouts.Default))
	return nil
}

func (p *UsersPage) Table() *pagination.PageTable {
	return p.table
}

// FindRow returns the rows containing text. Emails make the best key.
func (p *UsersPage) FindRow(text string) playwright.Locator {
	return p.table.RowsContaining(text)
}

func (p *UsersPage) RowData(ctx context.Context, row playwright.Locator) (UserRow, error) {
	cells, err := cellTexts(row.First())
	if err != nil {
		return UserRow{}, browser.Interaction(ctx, p.page, "read user row", err)
	}
	return UserRow{Name: cellAt(cells, 0), Email: cellAt(cells, 1), Role: cellAt(cells, 2)}, nil
}

func (p *UsersPage) clickRowButton(ctx context.Context, row playwright.Locator, name *regexp.Regexp, what string) error {
	btn := row.First().GetByRole(*playwright.AriaRoleButton, playwright.LocatorGetByRoleOptions{Name: name}).First()
	if err := browser.WaitVisible(btn, p.timeouts.Default); err != nil {
		return browser.Interaction(ctx, p.page, "wait for "+what, err)
	}
	if err := btn.Click(); err != nil {
		return browser.Interaction(ctx, p.page, "click "+what, err)
	}
	return nil
}

// OpenEdit clicks the row's edit action and waits for the form.
func (p *UsersPage) OpenEdit(ctx context.Context, row playwright.Locator) error {
	if err := p.clickRowButton(ctx, row, editUserBtn, "edit user"); err != nil {
		return err
	}
	return p.waitForm(ctx)
}

// FillEdit fills the edit form. The role select follows the fallback policy,
// so a role the application does not offer leaves a warning and the first
// real option. It returns the role label actually selected.
func (p *UsersPage) FillEdit(ctx context.Context, edit UserEdit) (string, error) {
	form := p.form()
	first, err := browser.Await(ctx, form, firstNameField, p.timeouts.Default)
	if err != nil {
		return "", err
	}
	if err := first.Fill(edit.FirstName); err != nil {
		return "", browser.Interaction(ctx, p.page, "fill first name", err)
	}
	last, err := browser.Await(ctx, form, lastNameField, p.timeouts.Default)
	if err != nil {
		return "", err
	}
	if err := last.Fill(edit.LastName); err != nil {
		return "", browser.Interaction(ctx, p.page, "fill last name", err)
	}
	if edit.Role == "" {
		return "", nil
	}
	role, ok, err := userRoleField.Locate(form)
	if err != nil {
		return "", browser.Interaction(ctx, p.page, "locate role", err)
	}
	if !ok {
		obs.From(ctx).Debug("role select not present")
		return "", nil
	}
	opt, _, err := browser.SelectWithFallback(ctx, role, edit.Role, "role")
	return opt.Label, err
}

// SaveChanges submits the edit form. It does not verify the outcome.
func (p *UsersPage) SaveChanges(ctx context.Context) error {
	btn := p.form().GetByRole(*playwright.AriaRoleButton, playwright.LocatorGetByRoleOptions{Name: saveChangesBtn}).First()
	if err := btn.Click(); err != nil {
		return browser.Interaction(ctx, p.page, "click Save Changes", err)
	}
	p.settle(ctx)
	return nil
}

// Delete clicks the row's "Delete User" action and confirms. A native
// confirm dialog is accepted; an in-page confirmation is answered with OK.
func (p *UsersPage) Delete(ctx context.Context, row playwright.Locator) error {
	p.page.OnDialog(func(d playwright.Dialog) {
		if err := d.Accept(); err != nil {
			obs.From(ctx).Debug("accept dialog", "error", err)
		}
	})
	if err := p.clickRowButton(ctx, row, deleteUserBtn, "delete user"); err != nil {
		return err
	}
	p.settle(ctx)

	ok := p.page.GetByRole(*playwright.AriaRoleButton, playwright.PageGetByRoleOptions{Name: confirmBtn}).First()
	if err := browser.WaitVisible(ok, p.timeouts.Default); err != nil {
		if browser.IsTimeout(err) {
			return nil
		}
		return browser.Interaction(ctx, p.page, "wait for delete confirmation", err)
	}
	if err := ok.Click(); err != nil {
		return browser.Interaction(ctx, p.page, "confirm delete", err)
	}
	p.settle(ctx)
	return nil
}

// Message is the element showing text, such as UserUpdated.
func (p *UsersPage) Message(text string) playwright.Locator {
	return p.page.GetByText(text).First()
}
