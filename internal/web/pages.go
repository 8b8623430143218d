package web

import (
	"github.com/kuitang/lcm-e2e/internal/db"
)

// PageData is what every template receives.
type PageData struct {
	Title  string
	User   *db.User
	Notice string
	Error  string
	Data   any
}

// Pager drives the shared pagination partial.
type Pager struct {
	Path    string
	Number  int
	Pages   int
	HasPrev bool
	HasNext bool
}

func pagerFor[T any](path string, p db.Page[T]) Pager {
	return Pager{
		Path:    path,
		Number:  p.Number,
		Pages:   p.Pages(),
		HasPrev: p.HasPrev(),
		HasNext: p.HasNext(),
	}
}

type loginData struct {
	Email string
}

type registerData struct {
	Name  string
	Email string
}

type dashboardData struct {
	RoleTitle   string
	CaseCount   int
	Outstanding string
}

type caseListData struct {
	Page      db.Page[db.Case]
	Pager     Pager
	CanCreate bool
}

type caseForm struct {
	Title       string
	Description string
}

type caseCreateData struct {
	Form      caseForm
	Clients   []db.User
	Lawyers   []db.User
	CaseTypes []string
	Statuses  []string
}

type billingListData struct {
	Page     db.Page[db.Billing]
	Pager    Pager
	Statuses []string
	CanEdit  bool
}

type billingForm struct {
	Amount      string
	Description string
	DueDate     string
}

type billingCreateData struct {
	Form     billingForm
	Cases    []db.Case
	Statuses []string
}

type userListData struct {
	Page  db.Page[db.User]
	Pager Pager
	Self  int64
}

type clientListData struct {
	Page      db.Page[db.Client]
	Pager     Pager
	CanCreate bool
}

type clientForm struct {
	Phone   string
	Address string
}

type clientCreateData struct {
	Form    clientForm
	Clients []db.User
	Lawyers []db.User
}

type userEditData struct {
	ID        int64
	Email     string
	FirstName string
	LastName  string
	Role      db.Role
	Roles     []db.Role
}

type userDeleteData struct {
	Target db.User
}
