package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/kuitang/lcm-e2e/internal/db"
	"github.com/kuitang/lcm-e2e/internal/errs"
)

var storeSeq atomic.Int64

func newStore(t *testing.T) *db.Store {
	t.Helper()
	s, err := db.OpenInMemory(fmt.Sprintf("authtest-%d", storeSeq.Add(1)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// Uses FakeInsecureHasher to check the PasswordHasher contract without Argon2 overhead.
func testPasswordHashVerifyRoundtrip(t *rapid.T) {
	var hasher PasswordHasher = FakeInsecureHasher{}
	password := rapid.StringN(8, 100, 200).Draw(t, "password")
	other := rapid.StringN(8, 100, 200).Filter(func(s string) bool { return s != password }).Draw(t, "other")

	hash, err := hasher.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if !hasher.VerifyPassword(password, hash) {
		t.Fatalf("VerifyPassword failed for password %q", password)
	}
	if hasher.VerifyPassword(other, hash) {
		t.Fatalf("VerifyPassword accepted %q for %q", other, password)
	}
}

func TestPasswordHashVerifyRoundtrip(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testPasswordHashVerifyRoundtrip)
}

func TestArgon2id_RoundtripAndFormat(t *testing.T) {
	t.Parallel()
	hash, err := HashPassword("Password123!")
	require.NoError(t, err)
	require.Regexp(t, `^\$argon2id\$v=19\$m=\d+,t=\d+,p=\d+\$[^$]+\$[^$]+$`, hash)
	require.True(t, VerifyPassword("Password123!", hash))
	require.False(t, VerifyPassword("password123!", hash))
	require.False(t, VerifyPassword("Password123!", "$fake$Password123!"))
	require.False(t, VerifyPassword("Password123!", "$argon2id$v=19$m=x$salt$hash"))
}

func TestRegister_ValidatesAndReportsConflicts(t *testing.T) {
	store := newStore(t)
	svc := NewUserService(store, FakeInsecureHasher{})
	ctx := context.Background()

	user, err := svc.Register(ctx, Registration{Name: " Alice ", Email: "alice@example.com", Password: "Password123!"}, db.RoleClient)
	require.NoError(t, err)
	require.Equal(t, "Alice", user.Name)
	require.Equal(t, db.RoleClient, user.Role)

	_, err = svc.Register(ctx, Registration{Name: "Alice", Email: "other@example.com", Password: "Password123!"}, db.RoleClient)
	require.Equal(t, "name is already used", errs.MessageOf(err))
	_, err = svc.Register(ctx, Registration{Name: "Alicia", Email: "alice@example.com", Password: "Password123!"}, db.RoleClient)
	require.Equal(t, "email is already used", errs.MessageOf(err))

	_, err = svc.Register(ctx, Registration{Name: "Bob", Email: "bob@example.com", Password: "short"}, db.RoleClient)
	require.ErrorIs(t, err, ErrWeakPassword)
	require.True(t, errs.Is(err, errs.InvalidArgument))

	_, err = svc.Register(ctx, Registration{Name: "Bob", Email: "not-an-email", Password: "Password123!"}, db.RoleClient)
	require.True(t, errs.Is(err, errs.InvalidArgument))
}

func TestVerifyLogin(t *testing.T) {
	store := newStore(t)
	svc := NewUserService(store, FakeInsecureHasher{})
	ctx := context.Background()
	_, err := svc.Register(ctx, Registration{Name: "Lara", Email: "lara@example.com", Password: "Password123!"}, db.RoleLawyer)
	require.NoError(t, err)

	user, err := svc.VerifyLogin(ctx, "LARA@example.com", "Password123!")
	require.NoError(t, err)
	require.Equal(t, db.RoleLawyer, user.Role)

	_, err = svc.VerifyLogin(ctx, "lara@example.com", "wrong-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.VerifyLogin(ctx, "nobody@example.com", "Password123!")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSessionService_ExpiresWithClock(t *testing.T) {
	store := newStore(t)
	clock := NewFakeClock(time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC))
	store.SetClock(clock.Now)
	sessions := NewSessionService(store)
	sessions.SetClock(clock)
	ctx := context.Background()

	user, err := NewUserService(store, FakeInsecureHasher{}).Register(ctx,
		Registration{Name: "Cy", Email: "cy@example.com", Password: "Password123!"}, db.RoleClient)
	require.NoError(t, err)

	id, err := sessions.Create(ctx, user.ID)
	require.NoError(t, err)
	got, err := sessions.Validate(ctx, id)
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)

	clock.Advance(SessionDuration + time.Second)
	_, err = sessions.Validate(ctx, id)
	require.ErrorIs(t, err, ErrSessionNotFound)
	n, err := sessions.Cleanup(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestMiddleware_RedirectsAndEnforcesRoles(t *testing.T) {
	store := newStore(t)
	sessions := NewSessionService(store)
	mw := NewMiddleware(sessions)
	ctx := context.Background()
	users := NewUserService(store, FakeInsecureHasher{})
	client, err := users.Register(ctx, Registration{Name: "Cli", Email: "cli@example.com", Password: "Password123!"}, db.RoleClient)
	require.NoError(t, err)
	admin, err := users.Register(ctx, Registration{Name: "Adm", Email: "adm@example.com", Password: "Password123!"}, db.RoleAdmin)
	require.NoError(t, err)

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _ := UserFrom(r.Context())
		_, _ = w.Write([]byte(u.Name))
	})
	handler := mw.RequireAuth(RequireRole(ok, db.RoleAdmin))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/list.php", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, LoginPath, rec.Header().Get("Location"))

	request := func(userID int64) *httptest.ResponseRecorder {
		id, err := sessions.Create(ctx, userID)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/users/list.php", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: id})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}
	require.Equal(t, http.StatusForbidden, request(client.ID).Code)
	rec = request(admin.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Adm", rec.Body.String())
}
