package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kuitang/lcm-e2e/internal/errs"
)

// CaseTypes offered by the create-case form.
var CaseTypes = []string{"civil", "criminal", "family", "corporate"}

// CaseStatuses offered by the create-case form.
var CaseStatuses = []string{"open", "pending", "closed"}

// Case is a legal case with its parties' display names resolved.
type Case struct {
	ID          int64
	Title       string
	Description string
	CaseType    string
	Status      string
	ClientID    int64
	ClientName  string
	LawyerID    int64
	LawyerName  string
	CreatedAt   time.Time
}

// NewCase holds the fields needed to open a case. LawyerID may be zero.
type NewCase struct {
	Title       string
	Description string
	CaseType    string
	Status      string
	ClientID    int64
	LawyerID    int64
}

// CaseFilter scopes case queries. A non-zero ClientID restricts to that
// client's own cases.
type CaseFilter struct {
	ClientID int64
}

func (f CaseFilter) where() (string, []any) {
	if f.ClientID != 0 {
		return ` WHERE c.client_id = ?`, []any{f.ClientID}
	}
	return "", nil
}

const caseSelect = `
	SELECT c.id, c.title, c.description, c.case_type, c.status,
	       c.client_id, cl.name, COALESCE(c.lawyer_id, 0), COALESCE(lw.name, ''), c.created_at
	FROM cases c
	JOIN users cl ON cl.id = c.client_id
	LEFT JOIN users lw ON lw.id = c.lawyer_id`

// CreateCase opens a case. The client must be a client account and the
// lawyer, when given, a lawyer account.
func (s *Store) CreateCase(ctx context.Context, in NewCase) (Case, error) {
	if in.Title == "" {
		return Case{}, errs.New(errs.InvalidArgument, "title is required")
	}
	if in.CaseType == "" {
		in.CaseType = CaseTypes[0]
	}
	if in.Status == "" {
		in.Status = "open"
	}
	client, err := s.UserByID(ctx, in.ClientID)
	if err != nil || client.Role != RoleClient {
		return Case{}, errs.New(errs.InvalidArgument, "client is required")
	}
	var lawyerID any
	if in.LawyerID != 0 {
		lawyer, err := s.UserByID(ctx, in.LawyerID)
		if err != nil || lawyer.Role != RoleLawyer {
			return Case{}, errs.New(errs.InvalidArgument, "unknown lawyer")
		}
		lawyerID = in.LawyerID
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO cases (title, description, case_type, status, client_id, lawyer_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		in.Title, in.Description, in.CaseType, in.Status, in.ClientID, lawyerID, s.now().Unix(),
	)
	if err != nil {
		return Case{}, fmt.Errorf("insert case: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Case{}, fmt.Errorf("case id: %w", err)
	}
	return s.CaseByID(ctx, id)
}

// CaseByID returns one case.
func (s *Store) CaseByID(ctx context.Context, id int64) (Case, error) {
	return scanCase(s.db.QueryRowContext(ctx, caseSelect+` WHERE c.id = ?`, id))
}

// ListCases returns one page of cases visible under filter.
func (s *Store) ListCases(ctx context.Context, filter CaseFilter, page int) (Page[Case], error) {
	where, args := filter.where()
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cases c`+where, args...).Scan(&total); err != nil {
		return Page[Case]{}, fmt.Errorf("count cases: %w", err)
	}
	page = clampPage(page, total)
	items, err := s.queryCases(ctx, caseSelect+where+` ORDER BY c.id ASC LIMIT ? OFFSET ?`,
		append(args, PageSize, pageOffset(page))...)
	if err != nil {
		return Page[Case]{}, err
	}
	return Page[Case]{Items: items, Number: page, Total: total}, nil
}

// AllCases returns every case visible under filter, for form selects.
func (s *Store) AllCases(ctx context.Context, filter CaseFilter) ([]Case, error) {
	where, args := filter.where()
	return s.queryCases(ctx, caseSelect+where+` ORDER BY c.id ASC`, args...)
}

// CountCases counts the cases visible under filter.
func (s *Store) CountCases(ctx context.Context, filter CaseFilter) (int, error) {
	where, args := filter.where()
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cases c`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count cases: %w", err)
	}
	return n, nil
}

func (s *Store) queryCases(ctx context.Context, query string, args ...any) ([]Case, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()
	var out []Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cases: %w", err)
	}
	return out, nil
}

func scanCase(row rowScanner) (Case, error) {
	var (
		c       Case
		created int64
	)
	err := row.Scan(&c.ID, &c.Title, &c.Description, &c.CaseType, &c.Status,
		&c.ClientID, &c.ClientName, &c.LawyerID, &c.LawyerName, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Case{}, errs.New(errs.NotFound, "case not found")
		}
		return Case{}, fmt.Errorf("scan case: %w", err)
	}
	c.CreatedAt = time.Unix(created, 0)
	return c, nil
}
