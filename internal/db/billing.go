package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/kuitang/lcm-e2e/internal/errs"
)

// BillingStatuses are the invoice states, in dropdown order.
var BillingStatuses = []string{"unpaid", "paid", "overdue"}

// DueDateLayout is the stored and displayed due-date format.
const DueDateLayout = "2006-01-02"

// Billing is an invoice row with its case and client resolved.
type Billing struct {
	ID          int64
	CaseID      int64
	CaseTitle   string
	ClientID    int64
	ClientName  string
	AmountCents int64
	Amount      string
	Description string
	Status      string
	DueDate     string
}

// NewBilling holds the fields needed to create an invoice.
type NewBilling struct {
	CaseID      int64
	AmountCents int64
	Description string
	Status      string
	DueDate     string
}

// ParseCents reads a user-entered amount such as "1,250.50" into cents.
func ParseCents(amount string) (int64, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(amount), ",", "")
	f, err := strconv.ParseFloat(clean, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, errs.New(errs.InvalidArgument, "amount must be a positive number")
	}
	cents := int64(math.Round(f * 100))
	if cents <= 0 {
		return 0, errs.New(errs.InvalidArgument, "amount must be a positive number")
	}
	return cents, nil
}

func validBillingStatus(s string) bool {
	for _, v := range BillingStatuses {
		if v == s {
			return true
		}
	}
	return false
}

const billingSelect = `
	SELECT b.id, b.case_id, c.title, c.client_id, cl.name,
	       b.amount_cents, format_cents(b.amount_cents), b.description, b.status, b.due_date
	FROM billings b
	JOIN cases c ON c.id = b.case_id
	JOIN users cl ON cl.id = c.client_id`

// CreateBilling stores an invoice. An empty status defaults to unpaid and an
// empty due date to tomorrow.
func (s *Store) CreateBilling(ctx context.Context, in NewBilling) (Billing, error) {
	if in.AmountCents <= 0 {
		return Billing{}, errs.New(errs.InvalidArgument, "amount must be a positive number")
	}
	if in.Description == "" {
		return Billing{}, errs.New(errs.InvalidArgument, "description is required")
	}
	if in.Status == "" {
		in.Status = BillingStatuses[0]
	}
	if !validBillingStatus(in.Status) {
		return Billing{}, errs.New(errs.InvalidArgument, fmt.Sprintf("unknown status %q", in.Status))
	}
	if in.DueDate == "" {
		in.DueDate = s.now().Add(24 * time.Hour).Format(DueDateLayout)
	}
	if _, err := time.Parse(DueDateLayout, in.DueDate); err != nil {
		return Billing{}, errs.New(errs.InvalidArgument, "due date must be YYYY-MM-DD")
	}
	if _, err := s.CaseByID(ctx, in.CaseID); err != nil {
		return Billing{}, errs.New(errs.InvalidArgument, "case is required")
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO billings (case_id, amount_cents, description, status, due_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		in.CaseID, in.AmountCents, in.Description, in.Status, in.DueDate, s.now().Unix(),
	)
	if err != nil {
		return Billing{}, fmt.Errorf("insert billing: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Billing{}, fmt.Errorf("billing id: %w", err)
	}
	return s.BillingByID(ctx, id)
}

// BillingByID returns one invoice.
func (s *Store) BillingByID(ctx context.Context, id int64) (Billing, error) {
	return scanBilling(s.db.QueryRowContext(ctx, billingSelect+` WHERE b.id = ?`, id))
}

// ListBillings returns one page of invoices on cases visible under filter.
func (s *Store) ListBillings(ctx context.Context, filter CaseFilter, page int) (Page[Billing], error) {
	where, args := filter.where()
	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM billings b JOIN cases c ON c.id = b.case_id`+where, args...,
	).Scan(&total); err != nil {
		return Page[Billing]{}, fmt.Errorf("count billings: %w", err)
	}
	page = clampPage(page, total)
	rows, err := s.db.QueryContext(ctx, billingSelect+where+` ORDER BY b.id ASC LIMIT ? OFFSET ?`,
		append(args, PageSize, pageOffset(page))...)
	if err != nil {
		return Page[Billing]{}, fmt.Errorf("list billings: %w", err)
	}
	defer rows.Close()

	out := Page[Billing]{Number: page, Total: total}
	for rows.Next() {
		b, err := scanBilling(rows)
		if err != nil {
			return Page[Billing]{}, err
		}
		out.Items = append(out.Items, b)
	}
	if err := rows.Err(); err != nil {
		return Page[Billing]{}, fmt.Errorf("iterate billings: %w", err)
	}
	return out, nil
}

// UpdateBillingStatus changes an invoice's status.
func (s *Store) UpdateBillingStatus(ctx context.Context, id int64, status string) error {
	if !validBillingStatus(status) {
		return errs.New(errs.InvalidArgument, fmt.Sprintf("unknown status %q", status))
	}
	res, err := s.db.ExecContext(ctx, `UPDATE billings SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update billing status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.New(errs.NotFound, "billing not found")
	}
	return nil
}

// OutstandingCents sums unpaid and overdue invoices visible under filter.
func (s *Store) OutstandingCents(ctx context.Context, filter CaseFilter) (int64, error) {
	where, args := filter.where()
	cond := ` WHERE b.status != 'paid'`
	if where != "" {
		cond = where + ` AND b.status != 'paid'`
	}
	var cents int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(b.amount_cents), 0) FROM billings b JOIN cases c ON c.id = b.case_id`+cond, args...,
	).Scan(&cents)
	if err != nil {
		return 0, fmt.Errorf("sum outstanding: %w", err)
	}
	return cents, nil
}

func scanBilling(row rowScanner) (Billing, error) {
	var b Billing
	err := row.Scan(&b.ID, &b.CaseID, &b.CaseTitle, &b.ClientID, &b.ClientName,
		&b.AmountCents, &b.Amount, &b.Description, &b.Status, &b.DueDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Billing{}, errs.New(errs.NotFound, "billing not found")
		}
		return Billing{}, fmt.Errorf("scan billing: %w", err)
	}
	return b, nil
}
