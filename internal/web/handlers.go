package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/kuitang/lcm-e2e/internal/auth"
	"github.com/kuitang/lcm-e2e/internal/db"
	"github.com/kuitang/lcm-e2e/internal/errs"
	"github.com/kuitang/lcm-e2e/internal/obs"
)

// Handler serves the application's pages.
type Handler struct {
	renderer *Renderer
	store    *db.Store
	users    *auth.UserService
	sessions *auth.SessionService
}

// NewHandler creates the page handler.
func NewHandler(renderer *Renderer, store *db.Store, users *auth.UserService, sessions *auth.SessionService) *Handler {
	return &Handler{
		renderer: renderer,
		store:    store,
		users:    users,
		sessions: sessions,
	}
}

// RegisterRoutes registers every page on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux, mw *auth.Middleware) {
	staff := []db.Role{db.RoleAdmin, db.RoleLawyer}
	authed := func(fn http.HandlerFunc, roles ...db.Role) http.Handler {
		if len(roles) == 0 {
			return mw.RequireAuth(fn)
		}
		return mw.RequireAuth(auth.RequireRole(fn, roles...))
	}

	mux.Handle("GET /{$}", mw.OptionalAuth(http.HandlerFunc(h.HandleRoot)))
	mux.HandleFunc("GET /login.php", h.HandleLoginPage)
	mux.HandleFunc("POST /login.php", h.HandleLogin)
	mux.HandleFunc("GET /register.php", h.HandleRegisterPage)
	mux.HandleFunc("POST /register.php", h.HandleRegister)
	mux.HandleFunc("GET /logout.php", h.HandleLogout)

	mux.Handle("GET /dashboard.php", authed(h.HandleDashboard))
	mux.Handle("GET /cases/list.php", authed(h.HandleCasesList))
	mux.Handle("GET /cases/create.php", authed(h.HandleCaseCreatePage, staff...))
	mux.Handle("POST /cases/create.php", authed(h.HandleCaseCreate, staff...))
	mux.Handle("GET /billing/list.php", authed(h.HandleBillingList))
	mux.Handle("GET /billing/create.php", authed(h.HandleBillingCreatePage, staff...))
	mux.Handle("POST /billing/create.php", authed(h.HandleBillingCreate, staff...))
	mux.Handle("POST /billing/status.php", authed(h.HandleBillingStatus, staff...))
	mux.Handle("GET /clients/list.php", authed(h.HandleClientsList, staff...))
	mux.Handle("GET /clients/create.php", authed(h.HandleClientCreatePage, db.RoleAdmin))
	mux.Handle("POST /clients/create.php", authed(h.HandleClientCreate, db.RoleAdmin))
	mux.Handle("GET /users/list.php", authed(h.HandleUsersList, db.RoleAdmin))
	mux.Handle("GET /users/edit.php", authed(h.HandleUserEditPage, db.RoleAdmin))
	mux.Handle("POST /users/edit.php", authed(h.HandleUserEdit, db.RoleAdmin))
	mux.Handle("GET /users/delete.php", authed(h.HandleUserDeletePage, db.RoleAdmin))
	mux.Handle("POST /users/delete.php", authed(h.HandleUserDelete, db.RoleAdmin))
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, code int, name string, data PageData) {
	if user, ok := auth.UserFrom(r.Context()); ok {
		data.User = &user
	}
	if err := h.renderer.RenderStatus(w, code, name, data); err != nil {
		obs.From(r.Context()).Error("render failed", "template", name, "error", err)
		h.renderer.RenderError(w, http.StatusInternalServerError, "internal error")
	}
}

// fail renders page again with err's message and status.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, name string, data PageData, err error) {
	code := errs.HTTPStatus(errs.CodeOf(err))
	if code == http.StatusInternalServerError {
		obs.From(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
	}
	data.Error = errs.MessageOf(err)
	h.render(w, r, code, name, data)
}

func pageParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func idParam(r *http.Request, key string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(r.FormValue(key)), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func currentUser(r *http.Request) db.User {
	user, _ := auth.UserFrom(r.Context())
	return user
}

// visibleTo scopes case and billing queries: clients see only their own.
func visibleTo(user db.User) db.CaseFilter {
	if user.Role == db.RoleClient {
		return db.CaseFilter{ClientID: user.ID}
	}
	return db.CaseFilter{}
}

// HandleRoot sends visitors to the dashboard or the login page.
func (h *Handler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if auth.IsAuthenticated(r.Context()) {
		http.Redirect(w, r, "/dashboard.php", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
}

func (h *Handler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	data := PageData{Title: "Login", Data: loginData{}}
	if r.URL.Query().Get("registered") != "" {
		data.Notice = "Registration successful. Please log in."
	}
	h.render(w, r, http.StatusOK, "auth/login.html", data)
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	user, err := h.users.VerifyLogin(r.Context(), email, r.FormValue("password"))
	if err != nil {
		data := PageData{Title: "Login", Data: loginData{Email: email}}
		if errors.Is(err, auth.ErrInvalidCredentials) {
			data.Error = "Invalid credentials"
			h.render(w, r, http.StatusUnauthorized, "auth/login.html", data)
			return
		}
		h.fail(w, r, "auth/login.html", data, err)
		return
	}

	sessionID, err := h.sessions.Create(r.Context(), user.ID)
	if err != nil {
		h.renderer.RenderError(w, http.StatusInternalServerError, "could not start session")
		return
	}
	auth.SetCookie(w, sessionID)
	obs.From(r.Context()).Info("login", "user_id", user.ID, "role", string(user.Role))
	http.Redirect(w, r, "/dashboard.php", http.StatusSeeOther)
}

func (h *Handler) HandleRegisterPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "auth/register.html", PageData{Title: "Register", Data: registerData{}})
}

// HandleRegister creates a client account and sends the visitor to log in.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	in := auth.Registration{
		Name:     r.FormValue("name"),
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
	}
	if _, err := h.users.Register(r.Context(), in, db.RoleClient); err != nil {
		data := PageData{Title: "Register", Data: registerData{Name: in.Name, Email: in.Email}}
		h.fail(w, r, "auth/register.html", data, err)
		return
	}
	http.Redirect(w, r, auth.LoginPath+"?registered=1", http.StatusSeeOther)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if sessionID, err := auth.GetFromRequest(r); err == nil {
		if err := h.sessions.Delete(r.Context(), sessionID); err != nil {
			obs.From(r.Context()).Warn("logout: delete session failed", "error", err)
		}
	}
	auth.ClearCookie(w)
	http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
}

func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	filter := visibleTo(user)
	count, err := h.store.CountCases(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "error.html", PageData{Title: "Error"}, err)
		return
	}
	outstanding, err := h.store.OutstandingCents(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "error.html", PageData{Title: "Error"}, err)
		return
	}
	h.render(w, r, http.StatusOK, "dashboard.html", PageData{
		Title: "Dashboard",
		Data: dashboardData{
			RoleTitle:   user.Role.Title(),
			CaseCount:   count,
			Outstanding: db.FormatCents(outstanding),
		},
	})
}

func (h *Handler) HandleCasesList(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	page, err := h.store.ListCases(r.Context(), visibleTo(user), pageParam(r))
	if err != nil {
		h.fail(w, r, "error.html", PageData{Title: "Error"}, err)
		return
	}
	data := PageData{
		Title: "Cases",
		Data: caseListData{
			Page:      page,
			Pager:     pagerFor("/cases/list.php", page),
			CanCreate: user.Role != db.RoleClient,
		},
	}
	if r.URL.Query().Get("created") != "" {
		data.Notice = "Case created"
	}
	h.render(w, r, http.StatusOK, "cases/list.html", data)
}

func (h *Handler) caseCreateData(r *http.Request, form caseForm) (caseCreateData, error) {
	clients, err := h.store.UsersByRole(r.Context(), db.RoleClient)
	if err != nil {
		return caseCreateData{}, err
	}
	lawyers, err := h.store.UsersByRole(r.Context(), db.RoleLawyer)
	if err != nil {
		return caseCreateData{}, err
	}
	return caseCreateData{
		Form:      form,
		Clients:   clients,
		Lawyers:   lawyers,
		CaseTypes: db.CaseTypes,
		Statuses:  db.CaseStatuses,
	}, nil
}

func (h *Handler) HandleCaseCreatePage(w http.ResponseWriter, r *http.Request) {
	data, err := h.caseCreateData(r, caseForm{})
	if err != nil {
		h.fail(w, r, "error.html", PageData{Title: "Error"}, err)
		return
	}
	h.render(w, r, http.StatusOK, "cases/create.html", PageData{Title: "Add Case", Data: data})
}

// HandleCaseCreate opens a case. A lawyer who picks no lawyer is assigned.
func (h *Handler) HandleCaseCreate(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	in := db.NewCase{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: strings.TrimSpace(r.FormValue("description")),
		CaseType:    r.FormValue("case_type"),
		Status:      r.FormValue("status"),
		ClientID:    idParam(r, "client_id"),
		LawyerID:    idParam(r, "lawyer_id"),
	}
	if in.LawyerID == 0 && user.Role == db.RoleLawyer {
		in.LawyerID = user.ID
	}
	created, err := h.store.CreateCase(r.Context(), in)
	if err != nil {
		data, loadErr := h.caseCreateData(r, caseForm{Title: in.Title, Description: in.Description})
		if loadErr != nil {
			err = loadErr
		}
		h.fail(w, r, "cases/create.html", PageData{Title: "Add Case", Data: data}, err)
		return
	}
	obs.From(r.Context()).Info("case created", "case_id", created.ID, "by", user.ID)
	http.Redirect(w, r, "/cases/list.php?created=1", http.StatusSeeOther)
}

func (h *Handler) HandleBillingList(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	page, err := h.store.ListBillings(r.Context(), visibleTo(user), pageParam(r))
	if err != nil {
		h.fail(w, r, "error.html", PageData{Title: "Error"}, err)
		return
	}
	data := PageData{
		Title: "Billing",
		Data: billingListData{
			Page:     page,
			Pager:    pagerFor("/billing/list.php", page),
			Statuses: db.BillingStatuses,
			CanEdit:  user.Role != db.RoleClient,
		},
	}
	if r.URL.Query().Get("created") != "" {
		data.Notice = "Billing created"
	}
	h.render(w, r, http.StatusOK, "billing/list.html", data)
}

func (h *Handler) billingCreateData(r *http.Request, form billingForm) (billingCreateData, error) {
	cases, err := h.store.AllCases(r.Context(), db.CaseFilter{})
	if err != nil {
		return billingCreateData{}, err
	}
	return billingCreateData{Form: form, Cases: cases, Statuses: db.BillingStatuses}, nil
}

func (h *Handler) HandleBillingCreatePage(w http.ResponseWriter, r *http.Request) {
	data, err := h.billingCreateData(r, billingForm{})
	if err != nil {
		h.fail(w, r, "error.html", PageData{Title: "Error"}, err)
		return
	}
	h.render(w, r, http.StatusOK, "billing/create.html", PageData{Title: "Create Billing", Data: data})
}

func (h *Handler) HandleBillingCreate(w http.ResponseWriter, r *http.Request) {
	form := billingForm{
		Amount:      r.FormValue("amount"),
		Description: strings.TrimSpace(r.FormValue("description")),
		DueDate:     r.FormValue("due_date"),
	}
	created, err := h.createBilling(r, form)
	if err != nil {
		data, loadErr := h.billingCreateData(r, form)
		if loadErr != nil {
			err = loadErr
		}
		h.fail(w, r, "billing/create.html", PageData{Title: "Create Billing", Data: data}, err)
		return
	}
	obs.From(r.Context()).Info("billing created", "billing_id", created.ID, "case_id", created.CaseID)
	http.Redirect(w, r, "/billing/list.php?created=1", http.StatusSeeOther)
}

func (h *Handler) createBilling(r *http.Request, form billingForm) (db.Billing, error) {
	caseID := idParam(r, "case_id")
	if caseID == 0 {
		return db.Billing{}, errs.New(errs.InvalidArgument, "case is required")
	}
	cents, err := db.ParseCents(form.Amount)
	if err != nil {
		return db.Billing{}, err
	}
	return h.store.CreateBilling(r.Context(), db.NewBilling{
		CaseID:      caseID,
		AmountCents: cents,
		Description: form.Description,
		Status:      r.FormValue("status"),
		DueDate:     form.DueDate,
	})
}

// HandleBillingStatus updates one invoice's status from the inline dropdown.
func (h *Handler) HandleBillingStatus(w http.ResponseWriter, r *http.Request) {
	err := h.store.UpdateBillingStatus(r.Context(), idParam(r, "id"), r.FormValue("status"))
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(errs.HTTPStatus(errs.CodeOf(err)))
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": errs.MessageOf(err)})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
}

func (h *Handler) HandleClientsList(w http.ResponseWriter, r *http.Request) {
	page, err := h.store.ListClients(r.Context(), pageParam(r))
	if err != nil {
		h.fail(w, r, "error.html", PageData{Title: "Error"}, err)
		return
	}
	data := PageData{
		Title: "Clients",
		Data: clientListData{
			Page:      page,
			Pager:     pagerFor("/clients/list.php", page),
			CanCreate: currentUser(r).Role == db.RoleAdmin,
		},
	}
	if r.URL.Query().Get("created") != "" {
		data.Notice = "Client added successfully"
	}
	h.render(w, r, http.StatusOK, "clients/list.html", data)
}

func (h *Handler) clientCreateData(r *http.Request, form clientForm) (clientCreateData, error) {
	clients, err := h.store.ClientsWithoutProfile(r.Context())
	if err != nil {
		return clientCreateData{}, err
	}
	lawyers, err := h.store.UsersByRole(r.Context(), db.RoleLawyer)
	if err != nil {
		return clientCreateData{}, err
	}
	return clientCreateData{Form: form, Clients: clients, Lawyers: lawyers}, nil
}

func (h *Handler) HandleClientCreatePage(w http.ResponseWriter, r *http.Request) {
	data, err := h.clientCreateData(r, clientForm{})
	if err != nil {
		h.fail(w, r, "error.html", PageData{Title: "Error"}, err)
		return
	}
	h.render(w, r, http.StatusOK, "clients/create.html", PageData{Title: "Add Client", Data: data})
}

// HandleClientCreate adds contact details and a lawyer to a client account.
func (h *Handler) HandleClientCreate(w http.ResponseWriter, r *http.Request) {
	form := clientForm{
		Phone:   strings.TrimSpace(r.FormValue("phone")),
		Address: strings.TrimSpace(r.FormValue("address")),
	}
	created, err := h.store.CreateClientProfile(r.Context(), db.NewClientProfile{
		UserID:   idParam(r, "client_id"),
		LawyerID: idParam(r, "lawyer_id"),
		Phone:    form.Phone,
		Address:  form.Address,
	})
	if err != nil {
		data, loadErr := h.clientCreateData(r, form)
		if loadErr != nil {
			err = loadErr
		}
		h.fail(w, r, "clients/create.html", PageData{Title: "Add Client", Data: data}, err)
		return
	}
	obs.From(r.Context()).Info("client added", "user_id", created.ID, "by", currentUser(r).ID)
	http.Redirect(w, r, "/clients/list.php?created=1", http.StatusSeeOther)
}

func (h *Handler) HandleUsersList(w http.ResponseWriter, r *http.Request) {
	page, err := h.store.ListUsers(r.Context(), "", pageParam(r))
	if err != nil {
		h.fail(w, r, "error.html", PageData{Title: "Error"}, err)
		return
	}
	data := PageData{
		Title: "Users",
		Data:  userListData{Page: page, Pager: pagerFor("/users/list.php", page), Self: currentUser(r).ID},
	}
	switch {
	case r.URL.Query().Get("updated") != "":
		data.Notice = "User updated successfully"
	case r.URL.Query().Get("deleted") != "":
		data.Notice = "User deleted successfully"
	}
	h.render(w, r, http.StatusOK, "users/list.html", data)
}

// splitName breaks a display name into the edit form's first and last name.
func splitName(name string) (first, last string) {
	first, last, _ = strings.Cut(strings.TrimSpace(name), " ")
	return first, strings.TrimSpace(last)
}

func joinName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}

func editData(u db.User) userEditData {
	first, last := splitName(u.Name)
	return userEditData{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: first,
		LastName:  last,
		Role:      u.Role,
		Roles:     []db.Role{db.RoleAdmin, db.RoleLawyer, db.RoleClient},
	}
}

func (h *Handler) HandleUserEditPage(w http.ResponseWriter, r *http.Request) {
	u, err := h.store.UserByID(r.Context(), idParam(r, "id"))
	if err != nil {
		h.fail(w, r, "error.html", PageData{Title: "Error"}, err)
		return
	}
	h.render(w, r, http.StatusOK, "users/edit.html", PageData{Title: "Edit User", Data: editData(u)})
}

// HandleUserEdit saves an account's name and role. An admin cannot demote
// themselves.
func (h *Handler) HandleUserEdit(w http.ResponseWriter, r *http.Request) {
	id := idParam(r, "id")
	target, err := h.store.UserByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, "error.html", PageData{Title: "Error"}, err)
		return
	}
	in := db.UserUpdate{
		Name: joinName(r.FormValue("first_name"), r.FormValue("last_name")),
		Role: db.Role(r.FormValue("role")),
	}
	if id == currentUser(r).ID && in.Role != db.RoleAdmin {
		err = errs.New(errs.FailedPrecondition, "you cannot change your own role")
	} else {
		_, err = h.store.UpdateUser(r.Context(), id, in)
	}
	if err != nil {
		data := editData(target)
		data.FirstName, data.LastName = r.FormValue("first_name"), r.FormValue("last_name")
		h.fail(w, r, "users/edit.html", PageData{Title: "Edit User", Data: data}, err)
		return
	}
	obs.From(r.Context()).Info("user updated", "user_id", id, "role", in.Role, "by", currentUser(r).ID)
	http.Redirect(w, r, "/users/list.php?updated=1", http.StatusSeeOther)
}

// HandleUserDeletePage asks for confirmation before deleting.
func (h *Handler) HandleUserDeletePage(w http.ResponseWriter, r *http.Request) {
	u, err := h.store.UserByID(r.Context(), idParam(r, "id"))
	if err != nil {
		h.fail(w, r, "error.html", PageData{Title: "Error"}, err)
		return
	}
	h.render(w, r, http.StatusOK, "users/delete.html", PageData{Title: "Delete User", Data: userDeleteData{Target: u}})
}

func (h *Handler) HandleUserDelete(w http.ResponseWriter, r *http.Request) {
	id := idParam(r, "id")
	target, err := h.store.UserByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, "error.html", PageData{Title: "Error"}, err)
		return
	}
	if id == currentUser(r).ID {
		err = errs.New(errs.FailedPrecondition, "you cannot delete your own account")
	} else {
		err = h.store.DeleteUser(r.Context(), id)
	}
	if err != nil {
		h.fail(w, r, "users/delete.html", PageData{Title: "Delete User", Data: userDeleteData{Target: target}}, err)
		return
	}
	obs.From(r.Context()).Info("user deleted", "user_id", id, "by", currentUser(r).ID)
	http.Redirect(w, r, "/users/list.php?deleted=1", http.StatusSeeOther)
}
