package auth

import (
	"context"
	"net/http"

	"github.com/kuitang/lcm-e2e/internal/db"
)

type contextKey string

const userKey contextKey = "user"

// LoginPath is where unauthenticated page requests are sent.
const LoginPath = "/login.php"

// Middleware provides authentication middleware for HTTP handlers.
type Middleware struct {
	sessions *SessionService
}

// NewMiddleware creates a new auth middleware.
func NewMiddleware(sessions *SessionService) *Middleware {
	return &Middleware{sessions: sessions}
}

// RequireAuth redirects to the login page unless a valid session is present.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := m.lookup(r)
		if !ok {
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// OptionalAuth adds the user to the context when a valid session is present.
func (m *Middleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, ok := m.lookup(r); ok {
			r = r.WithContext(WithUser(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole answers 403 unless the authenticated user has one of roles.
// It must run inside RequireAuth.
func RequireRole(next http.Handler, roles ...db.Role) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFrom(r.Context())
		if !ok {
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}
		for _, role := range roles {
			if user.Role == role {
				next.ServeHTTP(w, r)
				return
			}
		}
		http.Error(w, "Forbidden", http.StatusForbidden)
	})
}

func (m *Middleware) lookup(r *http.Request) (db.User, bool) {
	sessionID, err := GetFromRequest(r)
	if err != nil {
		return db.User{}, false
	}
	user, err := m.sessions.Validate(r.Context(), sessionID)
	if err != nil {
		return db.User{}, false
	}
	return user, true
}

// WithUser stores the authenticated user in ctx.
func WithUser(ctx context.Context, user db.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFrom returns the authenticated user from ctx.
func UserFrom(ctx context.Context) (db.User, bool) {
	user, ok := ctx.Value(userKey).(db.User)
	return user, ok
}

// IsAuthenticated checks if the context has an authenticated user.
func IsAuthenticated(ctx context.Context) bool {
	_, ok := UserFrom(ctx)
	return ok
}
