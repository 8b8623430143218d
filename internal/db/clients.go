package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kuitang/lcm-e2e/internal/errs"
)

// Client is a client account joined with its profile. HasProfile is false
// until an admin adds the account as a client.
type Client struct {
	ID         int64
	Name       string
	Email      string
	LawyerName string
	Phone      string
	Address    string
	HasProfile bool
	CreatedAt  time.Time
}

// NewClientProfile holds the fields of the add-client form.
type NewClientProfile struct {
	UserID   int64
	LawyerID int64
	Phone    string
	Address  string
}

func validPhone(phone string) bool {
	digits := 0
	for _, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == ' ' || r == '+' || r == '-' || r == '(' || r == ')':
		default:
			return false
		}
	}
	return digits >= 7 && digits <= 15
}

// CreateClientProfile adds a client account's contact details. The user must
// be a client without a profile; the lawyer, when given, must be a lawyer.
func (s *Store) CreateClientProfile(ctx context.Context, in NewClientProfile) (Client, error) {
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = strings.TrimSpace(in.Address)

	if in.UserID == 0 {
		return Client{}, errs.New(errs.InvalidArgument, "client is required")
	}
	user, err := s.UserByID(ctx, in.UserID)
	if errs.Is(err, errs.NotFound) {
		return Client{}, errs.New(errs.InvalidArgument, "client is required")
	}
	if err != nil {
		return Client{}, err
	}
	if user.Role != RoleClient {
		return Client{}, errs.New(errs.InvalidArgument, "selected user is not a client")
	}
	var lawyerID sql.NullInt64
	if in.LawyerID != 0 {
		lawyer, err := s.UserByID(ctx, in.LawyerID)
		if err != nil || lawyer.Role != RoleLawyer {
			return Client{}, errs.New(errs.InvalidArgument, "selected lawyer is not a lawyer")
		}
		lawyerID = sql.NullInt64{Int64: in.LawyerID, Valid: true}
	}
	if in.Phone == "" {
		return Client{}, errs.New(errs.InvalidArgument, "phone number is required")
	}
	if !validPhone(in.Phone) {
		return Client{}, errs.New(errs.InvalidArgument, "phone number must have 7 to 15 digits")
	}
	if in.Address == "" {
		return Client{}, errs.New(errs.InvalidArgument, "address is required")
	}

	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM client_profiles WHERE user_id = ?`, in.UserID).Scan(&exists); err != nil {
		return Client{}, fmt.Errorf("check client profile: %w", err)
	}
	if exists > 0 {
		return Client{}, errs.New(errs.FailedPrecondition, "client already has a profile")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO client_profiles (user_id, lawyer_id, phone, address, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		in.UserID, lawyerID, in.Phone, in.Address, s.now().Unix(),
	)
	if err != nil {
		return Client{}, fmt.Errorf("insert client profile: %w", err)
	}
	return s.ClientByID(ctx, in.UserID)
}

const clientSelect = `
	SELECT u.id, u.name, u.email, COALESCE(l.name, ''), COALESCE(p.phone, ''),
	       COALESCE(p.address, ''), p.user_id IS NOT NULL, u.created_at
	FROM users u
	LEFT JOIN client_profiles p ON p.user_id = u.id
	LEFT JOIN users l ON l.id = p.lawyer_id
	WHERE u.role = 'client'`

// ClientByID returns a client account with its profile, if any.
func (s *Store) ClientByID(ctx context.Context, id int64) (Client, error) {
	c, err := scanClient(s.db.QueryRowContext(ctx, clientSelect+` AND u.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Client{}, errs.New(errs.NotFound, "client not found")
	}
	return c, err
}

// ListClients returns one page of client accounts.
func (s *Store) ListClients(ctx context.Context, page int) (Page[Client], error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role = 'client'`).Scan(&total); err != nil {
		return Page[Client]{}, fmt.Errorf("count clients: %w", err)
	}
	page = clampPage(page, total)
	rows, err := s.db.QueryContext(ctx, clientSelect+` ORDER BY u.id ASC LIMIT ? OFFSET ?`, PageSize, pageOffset(page))
	if err != nil {
		return Page[Client]{}, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	out := Page[Client]{Number: page, Total: total}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return Page[Client]{}, fmt.Errorf("scan client: %w", err)
		}
		out.Items = append(out.Items, c)
	}
	if err := rows.Err(); err != nil {
		return Page[Client]{}, fmt.Errorf("iterate clients: %w", err)
	}
	return out, nil
}

// ClientsWithoutProfile lists the client accounts an admin can still add.
func (s *Store) ClientsWithoutProfile(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users
		WHERE role = 'client' AND id NOT IN (SELECT user_id FROM client_profiles)
		ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list clients without profile: %w", err)
	}
	defer rows.Close()
	var out []User
	for rows.Next() {
		u, err := s.scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func scanClient(row rowScanner) (Client, error) {
	var (
		c       Client
		created int64
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.LawyerName, &c.Phone, &c.Address, &c.HasProfile, &created); err != nil {
		return Client{}, err
	}
	c.CreatedAt = time.Unix(created, 0)
	return c, nil
}
