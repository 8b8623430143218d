package db

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/kuitang/lcm-e2e/internal/errs"
)

var storeCounter atomic.Int64

func newTestStore(t *testing.T) *Store {
	t.Helper()
	name := fmt.Sprintf("dbtest-%d-%s", storeCounter.Add(1), strings.NewReplacer("/", "-", " ", "-").Replace(t.Name()))
	s, err := OpenInMemory(name)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustUser(t *testing.T, s *Store, name string, role Role) User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), NewUser{
		Name:         name,
		Email:        strings.ToLower(name) + "@example.com",
		PasswordHash: "$fake$Password123!",
		Role:         role,
	})
	require.NoError(t, err)
	return u
}

func TestCreateUser_DuplicateNameCheckedBeforeEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustUser(t, s, "alice", RoleClient)

	_, err := s.CreateUser(ctx, NewUser{Name: "alice", Email: "alice@example.com", PasswordHash: "x", Role: RoleClient})
	require.True(t, errs.Is(err, errs.FailedPrecondition))
	require.Equal(t, "name is already used", errs.MessageOf(err))

	_, err = s.CreateUser(ctx, NewUser{Name: "alice2", Email: "ALICE@example.com", PasswordHash: "x", Role: RoleClient})
	require.True(t, errs.Is(err, errs.FailedPrecondition))
	require.Equal(t, "email is already used", errs.MessageOf(err))
}

func TestCreateUser_RejectsUnknownRole(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateUser(context.Background(), NewUser{Name: "x", Email: "x@example.com", Role: "paralegal"})
	require.True(t, errs.Is(err, errs.InvalidArgument))
}

func TestUserByEmail_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.UserByEmail(context.Background(), "nobody@example.com")
	require.True(t, errs.Is(err, errs.NotFound))
}

func TestSessions_ExpireAndDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return now })
	u := mustUser(t, s, "bob", RoleLawyer)

	require.NoError(t, s.CreateSession(ctx, "tok-1", u.ID, now.Add(time.Hour)))
	got, err := s.SessionUser(ctx, "tok-1")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.Equal(t, RoleLawyer, got.Role)

	var stored string
	require.NoError(t, s.DB().QueryRow(`SELECT token_hash FROM sessions`).Scan(&stored))
	require.NotEqual(t, "tok-1", stored)
	require.Len(t, stored, 64)

	now = now.Add(2 * time.Hour)
	_, err = s.SessionUser(ctx, "tok-1")
	require.True(t, errs.Is(err, errs.NotFound))
	n, err := s.DeleteExpiredSessions(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	require.NoError(t, s.CreateSession(ctx, "tok-2", u.ID, now.Add(time.Hour)))
	require.NoError(t, s.DeleteSession(ctx, "tok-2"))
	_, err = s.SessionUser(ctx, "tok-2")
	require.True(t, errs.Is(err, errs.NotFound))
}

func TestListCases_PaginatesAscendingAndScopesClients(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	clientA := mustUser(t, s, "clientA", RoleClient)
	clientB := mustUser(t, s, "clientB", RoleClient)
	lawyer := mustUser(t, s, "lawyer", RoleLawyer)

	for i := 1; i <= 25; i++ {
		client := clientA
		if i%5 == 0 {
			client = clientB
		}
		_, err := s.CreateCase(ctx, NewCase{Title: fmt.Sprintf("Case %02d", i), ClientID: client.ID, LawyerID: lawyer.ID})
		require.NoError(t, err)
	}

	first, err := s.ListCases(ctx, CaseFilter{}, 1)
	require.NoError(t, err)
	require.Equal(t, 3, first.Pages())
	require.True(t, first.HasNext())
	require.False(t, first.HasPrev())
	require.Len(t, first.Items, PageSize)
	require.Equal(t, "Case 01", first.Items[0].Title)
	require.Equal(t, "lawyer", first.Items[0].LawyerName)

	last, err := s.ListCases(ctx, CaseFilter{}, 99)
	require.NoError(t, err)
	require.Equal(t, 3, last.Number)
	require.False(t, last.HasNext())
	require.Len(t, last.Items, 5)
	require.Equal(t, "Case 25", last.Items[4].Title)

	own, err := s.ListCases(ctx, CaseFilter{ClientID: clientB.ID}, 1)
	require.NoError(t, err)
	require.Equal(t, 5, own.Total)
	for _, c := range own.Items {
		require.Equal(t, "clientB", c.ClientName)
	}
}

func TestCreateCase_RequiresClientAccount(t *testing.T) {
	s := newTestStore(t)
	lawyer := mustUser(t, s, "lawyer", RoleLawyer)
	_, err := s.CreateCase(context.Background(), NewCase{Title: "x", ClientID: lawyer.ID})
	require.True(t, errs.Is(err, errs.InvalidArgument))
}

func TestBilling_CreateDefaultsAndStatusUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.SetClock(func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) })
	client := mustUser(t, s, "carol", RoleClient)
	c, err := s.CreateCase(ctx, NewCase{Title: "Estate", ClientID: client.ID})
	require.NoError(t, err)

	b, err := s.CreateBilling(ctx, NewBilling{CaseID: c.ID, AmountCents: 125050, Description: "Consultation"})
	require.NoError(t, err)
	require.Equal(t, "1250.50", b.Amount)
	require.Equal(t, "unpaid", b.Status)
	require.Equal(t, "2026-10-20", b.DueDate)
	require.Equal(t, "Estate", b.CaseTitle)
	require.Equal(t, "carol", b.ClientName)

	out, err := s.OutstandingCents(ctx, CaseFilter{ClientID: client.ID})
	require.NoError(t, err)
	require.EqualValues(t, 125050, out)

	require.NoError(t, s.UpdateBillingStatus(ctx, b.ID, "paid"))
	out, err = s.OutstandingCents(ctx, CaseFilter{})
	require.NoError(t, err)
	require.Zero(t, out)

	require.True(t, errs.Is(s.UpdateBillingStatus(ctx, b.ID, "void"), errs.InvalidArgument))
	require.True(t, errs.Is(s.UpdateBillingStatus(ctx, b.ID+100, "paid"), errs.NotFound))
}

func TestCreateBilling_Validation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	client := mustUser(t, s, "dave", RoleClient)
	c, err := s.CreateCase(ctx, NewCase{Title: "Lease", ClientID: client.ID})
	require.NoError(t, err)

	tests := []struct {
		name string
		in   NewBilling
		msg  string
	}{
		{"zero amount", NewBilling{CaseID: c.ID, Description: "d"}, "amount must be a positive number"},
		{"no description", NewBilling{CaseID: c.ID, AmountCents: 100}, "description is required"},
		{"bad date", NewBilling{CaseID: c.ID, AmountCents: 100, Description: "d", DueDate: "10/20/2026"}, "due date must be YYYY-MM-DD"},
		{"no case", NewBilling{AmountCents: 100, Description: "d"}, "case is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateBilling(ctx, tt.in)
			require.True(t, errs.Is(err, errs.InvalidArgument))
			require.Equal(t, tt.msg, errs.MessageOf(err))
		})
	}
}

func testCentsRoundTrip(t *rapid.T) {
	cents := rapid.Int64Range(1, 1_000_000_000).Draw(t, "cents")
	got, err := ParseCents(FormatCents(cents))
	if err != nil {
		t.Fatalf("ParseCents(%q): %v", FormatCents(cents), err)
	}
	if got != cents {
		t.Fatalf("round trip %d -> %q -> %d", cents, FormatCents(cents), got)
	}
}

func TestCentsRoundTrip(t *testing.T) {
	rapid.Check(t, testCentsRoundTrip)
}

func TestParseCents(t *testing.T) {
	got, err := ParseCents(" 1,250.50 ")
	require.NoError(t, err)
	require.EqualValues(t, 125050, got)

	for _, bad := range []string{"", "abc", "0", "-5", "NaN", "0.001"} {
		_, err := ParseCents(bad)
		require.True(t, errs.Is(err, errs.InvalidArgument), bad)
	}
}

func testPageCount(t *rapid.T) {
	total := rapid.IntRange(0, 500).Draw(t, "total")
	p := Page[int]{Total: total}
	pages := p.Pages()
	if pages < 1 {
		t.Fatalf("pages = %d", pages)
	}
	if total > 0 && (pages-1)*PageSize >= total {
		t.Fatalf("last page empty: total=%d pages=%d", total, pages)
	}
	if pages*PageSize < total {
		t.Fatalf("rows lost: total=%d pages=%d", total, pages)
	}
}

func TestPageCount(t *testing.T) {
	rapid.Check(t, testPageCount)
}

func TestRoleTitle(t *testing.T) {
	require.Equal(t, "Lawyer", RoleLawyer.Title())
	require.Equal(t, "", Role("").Title())
}
