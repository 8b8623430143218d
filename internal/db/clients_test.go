package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/kuitang/lcm-e2e/internal/errs"
)

func TestCreateClientProfile(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	cleo := mustUser(t, s, "cleo", RoleClient)
	larry := mustUser(t, s, "larry", RoleLawyer)

	before, err := s.ClientsWithoutProfile(ctx)
	require.NoError(t, err)
	require.Len(t, before, 1)

	c, err := s.CreateClientProfile(ctx, NewClientProfile{
		UserID: cleo.ID, LawyerID: larry.ID, Phone: " 09761144420 ", Address: "Somewhere inside the Calipso",
	})
	require.NoError(t, err)
	require.True(t, c.HasProfile)
	require.Equal(t, "cleo", c.Name)
	require.Equal(t, "larry", c.LawyerName)
	require.Equal(t, "09761144420", c.Phone)

	after, err := s.ClientsWithoutProfile(ctx)
	require.NoError(t, err)
	require.Empty(t, after)

	_, err = s.CreateClientProfile(ctx, NewClientProfile{UserID: cleo.ID, Phone: "09761144420", Address: "Elsewhere"})
	require.True(t, errs.Is(err, errs.FailedPrecondition))
	require.Equal(t, "client already has a profile", errs.MessageOf(err))
}

func TestCreateClientProfile_Validation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	cleo := mustUser(t, s, "cleo", RoleClient)
	larry := mustUser(t, s, "larry", RoleLawyer)

	tests := []struct {
		name string
		in   NewClientProfile
		want string
	}{
		{"no client", NewClientProfile{Phone: "09761144420", Address: "a"}, "client is required"},
		{"unknown client", NewClientProfile{UserID: 9999, Phone: "09761144420", Address: "a"}, "client is required"},
		{"lawyer as client", NewClientProfile{UserID: larry.ID, Phone: "09761144420", Address: "a"}, "selected user is not a client"},
		{"client as lawyer", NewClientProfile{UserID: cleo.ID, LawyerID: cleo.ID, Phone: "09761144420", Address: "a"}, "selected lawyer is not a lawyer"},
		{"no phone", NewClientProfile{UserID: cleo.ID, Address: "a"}, "phone number is required"},
		{"letters in phone", NewClientProfile{UserID: cleo.ID, Phone: "call me", Address: "a"}, "phone number must have 7 to 15 digits"},
		{"short phone", NewClientProfile{UserID: cleo.ID, Phone: "12-34", Address: "a"}, "phone number must have 7 to 15 digits"},
		{"no address", NewClientProfile{UserID: cleo.ID, Phone: "+63 976 114 4420"}, "address is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateClientProfile(ctx, tt.in)
			require.True(t, errs.Is(err, errs.InvalidArgument), "%v", err)
			require.Equal(t, tt.want, errs.MessageOf(err))
		})
	}
}

func testValidPhone_DigitCount(t *rapid.T) {
	digits := rapid.StringMatching(`[0-9]{1,20}`).Draw(t, "digits")
	sep := rapid.SampledFrom([]string{"", " ", "-"}).Draw(t, "sep")
	phone := "+" + digits[:len(digits)/2] + sep + digits[len(digits)/2:]
	want := len(digits) >= 7 && len(digits) <= 15
	if got := validPhone(phone); got != want {
		t.Fatalf("validPhone(%q) = %v, want %v", phone, got, want)
	}
}

func TestValidPhone_DigitCount(t *testing.T) {
	rapid.Check(t, testValidPhone_DigitCount)
}

func TestListClients_IncludesClientsWithoutProfile(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := mustUser(t, s, "anna", RoleClient)
	mustUser(t, s, "bert", RoleClient)
	mustUser(t, s, "larry", RoleLawyer)
	_, err := s.CreateClientProfile(ctx, NewClientProfile{UserID: a.ID, Phone: "5551234567", Address: "1 Main St"})
	require.NoError(t, err)

	page, err := s.ListClients(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 2, page.Total)
	require.Equal(t, "anna", page.Items[0].Name)
	require.True(t, page.Items[0].HasProfile)
	require.Equal(t, "", page.Items[0].LawyerName)
	require.Equal(t, "bert", page.Items[1].Name)
	require.False(t, page.Items[1].HasProfile)
}

func TestUpdateUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	eddie := mustUser(t, s, "eddie", RoleClient)
	mustUser(t, s, "taken", RoleClient)
	_, err := s.CreateClientProfile(ctx, NewClientProfile{UserID: eddie.ID, Phone: "5551234567", Address: "1 Main St"})
	require.NoError(t, err)

	_, err = s.UpdateUser(ctx, eddie.ID, UserUpdate{Name: "taken", Role: RoleClient})
	require.True(t, errs.Is(err, errs.FailedPrecondition))
	require.Equal(t, "name is already used", errs.MessageOf(err))

	_, err = s.UpdateUser(ctx, eddie.ID, UserUpdate{Name: " ", Role: RoleClient})
	require.True(t, errs.Is(err, errs.InvalidArgument))

	_, err = s.UpdateUser(ctx, eddie.ID, UserUpdate{Name: "Eddie Cheesecake", Role: "partner"})
	require.True(t, errs.Is(err, errs.InvalidArgument))

	_, err = s.UpdateUser(ctx, 9999, UserUpdate{Name: "ghost", Role: RoleClient})
	require.True(t, errs.Is(err, errs.NotFound))

	kept, err := s.UpdateUser(ctx, eddie.ID, UserUpdate{Name: "eddie", Role: RoleClient})
	require.NoError(t, err, "keeping one's own name is not a conflict")
	require.Equal(t, "eddie", kept.Name)

	u, err := s.UpdateUser(ctx, eddie.ID, UserUpdate{Name: "Eddie Cheesecake", Role: RoleLawyer})
	require.NoError(t, err)
	require.Equal(t, "Eddie Cheesecake", u.Name)
	require.Equal(t, RoleLawyer, u.Role)
	require.Equal(t, eddie.Email, u.Email)

	_, err = s.ClientByID(ctx, eddie.ID)
	require.True(t, errs.Is(err, errs.NotFound), "a lawyer is no longer listed as a client")
	var profiles int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM client_profiles`).Scan(&profiles))
	require.Zero(t, profiles)
}

func TestDeleteUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	gone := mustUser(t, s, "gone", RoleClient)
	busy := mustUser(t, s, "busy", RoleClient)
	_, err := s.CreateClientProfile(ctx, NewClientProfile{UserID: gone.ID, Phone: "5551234567", Address: "1 Main St"})
	require.NoError(t, err)
	require.NoError(t, s.CreateSession(ctx, "tok-gone", gone.ID, time.Now().Add(time.Hour)))
	_, err = s.CreateCase(ctx, NewCase{Title: "Busy matter", ClientID: busy.ID})
	require.NoError(t, err)

	err = s.DeleteUser(ctx, busy.ID)
	require.True(t, errs.Is(err, errs.FailedPrecondition))
	require.Equal(t, "user is assigned to cases", errs.MessageOf(err))

	require.NoError(t, s.DeleteUser(ctx, gone.ID))
	_, err = s.UserByID(ctx, gone.ID)
	require.True(t, errs.Is(err, errs.NotFound))
	_, err = s.SessionUser(ctx, "tok-gone")
	require.Error(t, err)
	var profiles int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM client_profiles`).Scan(&profiles))
	require.Zero(t, profiles)

	require.True(t, errs.Is(s.DeleteUser(ctx, gone.ID), errs.NotFound))
}
