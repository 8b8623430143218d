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

// Role is an application account role.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleLawyer Role = "lawyer"
	RoleClient Role = "client"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleLawyer, RoleClient:
		return true
	}
	return false
}

// Title is the role as the dashboard badge shows it.
func (r Role) Title() string {
	if r == "" {
		return ""
	}
	return strings.ToUpper(string(r[:1])) + string(r[1:])
}

// User is an application account.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// NewUser holds the fields needed to create an account.
type NewUser struct {
	Name         string
	Email        string
	PasswordHash string
	Role         Role
}

const userColumns = `id, name, email, password_hash, role, created_at`

// CreateUser inserts an account. A taken name or email is a failed
// precondition whose message names the conflict; the name is checked first.
func (s *Store) CreateUser(ctx context.Context, in NewUser) (User, error) {
	if !in.Role.Valid() {
		return User{}, errs.New(errs.InvalidArgument, fmt.Sprintf("unknown role %q", in.Role))
	}
	var taken int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE name = ?`, in.Name).Scan(&taken); err != nil {
		return User{}, fmt.Errorf("check name: %w", err)
	}
	if taken > 0 {
		return User{}, errs.New(errs.FailedPrecondition, "name is already used")
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE email = ?`, in.Email).Scan(&taken); err != nil {
		return User{}, fmt.Errorf("check email: %w", err)
	}
	if taken > 0 {
		return User{}, errs.New(errs.FailedPrecondition, "email is already used")
	}

	now := s.now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash, role, created_at) VALUES (?, ?, ?, ?, ?)`,
		in.Name, in.Email, in.PasswordHash, string(in.Role), now.Unix(),
	)
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return User{}, fmt.Errorf("user id: %w", err)
	}
	return User{
		ID:           id,
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		Role:         in.Role,
		CreatedAt:    time.Unix(now.Unix(), 0),
	}, nil
}

// UserByEmail looks an account up case-insensitively.
func (s *Store) UserByEmail(ctx context.Context, email string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

// UserByID looks an account up by id.
func (s *Store) UserByID(ctx context.Context, id int64) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

// ListUsers returns one page of accounts, optionally restricted to a role.
func (s *Store) ListUsers(ctx context.Context, role Role, page int) (Page[User], error) {
	where, args := "", []any{}
	if role != "" {
		where, args = ` WHERE role = ?`, append(args, string(role))
	}
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return Page[User]{}, fmt.Errorf("count users: %w", err)
	}
	page = clampPage(page, total)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users`+where+` ORDER BY id ASC LIMIT ? OFFSET ?`,
		append(args, PageSize, pageOffset(page))...,
	)
	if err != nil {
		return Page[User]{}, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := Page[User]{Number: page, Total: total}
	for rows.Next() {
		u, err := s.scanUser(rows)
		if err != nil {
			return Page[User]{}, err
		}
		out.Items = append(out.Items, u)
	}
	if err := rows.Err(); err != nil {
		return Page[User]{}, fmt.Errorf("iterate users: %w", err)
	}
	return out, nil
}

// UsersByRole returns every account with role, for form selects.
func (s *Store) UsersByRole(ctx context.Context, role Role) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE role = ? ORDER BY name ASC`, string(role))
	if err != nil {
		return nil, fmt.Errorf("list %s users: %w", role, err)
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

// UserUpdate is what an admin can change on an account.
type UserUpdate struct {
	Name string
	Role Role
}

// UpdateUser renames an account and sets its role. A name held by another
// account is a failed precondition. Leaving the client role drops the client
// profile.
func (s *Store) UpdateUser(ctx context.Context, id int64, in UserUpdate) (User, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return User{}, errs.New(errs.InvalidArgument, "name is required")
	}
	if !in.Role.Valid() {
		return User{}, errs.New(errs.InvalidArgument, fmt.Sprintf("unknown role %q", in.Role))
	}
	if _, err := s.UserByID(ctx, id); err != nil {
		return User{}, err
	}
	var taken int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE name = ? AND id <> ?`, in.Name, id).Scan(&taken); err != nil {
		return User{}, fmt.Errorf("check name: %w", err)
	}
	if taken > 0 {
		return User{}, errs.New(errs.FailedPrecondition, "name is already used")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return User{}, fmt.Errorf("begin update user: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `UPDATE users SET name = ?, role = ? WHERE id = ?`, in.Name, string(in.Role), id); err != nil {
		return User{}, fmt.Errorf("update user: %w", err)
	}
	if in.Role != RoleClient {
		if _, err := tx.ExecContext(ctx, `DELETE FROM client_profiles WHERE user_id = ?`, id); err != nil {
			return User{}, fmt.Errorf("drop client profile: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return User{}, fmt.Errorf("commit update user: %w", err)
	}
	return s.UserByID(ctx, id)
}

// DeleteUser removes an account with its sessions and client profile. An
// account that is a party to any case is kept.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	if _, err := s.UserByID(ctx, id); err != nil {
		return err
	}
	var cases int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cases WHERE client_id = ? OR lawyer_id = ?`, id, id,
	).Scan(&cases); err != nil {
		return fmt.Errorf("check user cases: %w", err)
	}
	if cases > 0 {
		return errs.New(errs.FailedPrecondition, "user is assigned to cases")
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanUser(row rowScanner) (User, error) {
	var (
		u       User
		role    string
		created int64
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, errs.New(errs.NotFound, "user not found")
		}
		return User{}, fmt.Errorf("scan user: %w", err)
	}
	u.Role = Role(role)
	u.CreatedAt = time.Unix(created, 0)
	return u, nil
}
