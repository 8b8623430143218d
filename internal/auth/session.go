package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kuitang/lcm-e2e/internal/db"
	"github.com/kuitang/lcm-e2e/internal/errs"
)

// Session errors
var (
	ErrSessionNotFound = errors.New("session not found")
)

// Session configuration
const (
	SessionDuration   = 24 * time.Hour
	SessionIDLength   = 32 // 256 bits
	SessionCookieName = "PHPSESSID"
)

// SessionService handles session management.
type SessionService struct {
	store *db.Store
	clock Clock
}

// NewSessionService creates a new session service.
func NewSessionService(store *db.Store) *SessionService {
	return &SessionService{store: store, clock: realClock{}}
}

// SetClock overrides the expiry clock.
func (s *SessionService) SetClock(c Clock) {
	s.clock = c
}

// Create starts a session for userID and returns the cookie value.
func (s *SessionService) Create(ctx context.Context, userID int64) (string, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return "", fmt.Errorf("generate session ID: %w", err)
	}
	if err := s.store.CreateSession(ctx, sessionID, userID, s.clock.Now().Add(SessionDuration)); err != nil {
		return "", err
	}
	return sessionID, nil
}

// Validate returns the account owning an unexpired session.
func (s *SessionService) Validate(ctx context.Context, sessionID string) (db.User, error) {
	user, err := s.store.SessionUser(ctx, sessionID)
	if err != nil {
		if errs.Is(err, errs.NotFound) {
			return db.User{}, ErrSessionNotFound
		}
		return db.User{}, fmt.Errorf("get session: %w", err)
	}
	return user, nil
}

// Delete removes a session (logout).
func (s *SessionService) Delete(ctx context.Context, sessionID string) error {
	return s.store.DeleteSession(ctx, sessionID)
}

// Cleanup removes all expired sessions.
func (s *SessionService) Cleanup(ctx context.Context) (int64, error) {
	return s.store.DeleteExpiredSessions(ctx)
}

// SetCookie sets the session cookie on the response. The stand-in app is
// served over plain HTTP, so the cookie is not marked Secure.
func SetCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(SessionDuration.Seconds()),
	})
}

// ClearCookie removes the session cookie.
func ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// GetFromRequest retrieves the session ID from the request cookie.
func GetFromRequest(r *http.Request) (string, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return "", ErrSessionNotFound
		}
		return "", err
	}
	return cookie.Value, nil
}

func generateSessionID() (string, error) {
	bytes := make([]byte, SessionIDLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}
