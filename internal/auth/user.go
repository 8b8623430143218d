package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	stdtime "time"

	"golang.org/x/crypto/argon2"

	"github.com/kuitang/lcm-e2e/internal/db"
	"github.com/kuitang/lcm-e2e/internal/errs"
	"github.com/kuitang/lcm-e2e/internal/obs"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)

// Argon2id parameters
const (
	argon2Time    = 2
	argon2Memory  = 19 * 1024 // ~19 MiB
	argon2Threads = 1
	argon2KeyLen  = 32
	argon2SaltLen = 16
)

// PasswordHasher hashes and verifies account passwords.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	VerifyPassword(password, encodedHash string) bool
}

// Argon2idHasher is the production PasswordHasher.
type Argon2idHasher struct{}

func (Argon2idHasher) HashPassword(password string) (string, error) { return HashPassword(password) }

func (Argon2idHasher) VerifyPassword(password, encodedHash string) bool {
	return VerifyPassword(password, encodedHash)
}

// Clock abstracts time for session expiry.
type Clock interface {
	Now() stdtime.Time
}

type realClock struct{}

func (realClock) Now() stdtime.Time { return stdtime.Now() }

// Registration is what the register form submits.
type Registration struct {
	Name     string
	Email    string
	Password string
}

// UserService registers accounts and checks logins.
type UserService struct {
	store  *db.Store
	hasher PasswordHasher
}

// NewUserService creates a user service. A nil hasher means Argon2id.
func NewUserService(store *db.Store, hasher PasswordHasher) *UserService {
	if hasher == nil {
		hasher = Argon2idHasher{}
	}
	return &UserService{store: store, hasher: hasher}
}

// Register creates an account with role. Self-registration always passes
// db.RoleClient; seeding passes the other roles.
func (s *UserService) Register(ctx context.Context, in Registration, role db.Role) (db.User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	if name == "" {
		return db.User{}, errs.New(errs.InvalidArgument, "name is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return db.User{}, errs.New(errs.InvalidArgument, "a valid email is required")
	}
	if err := ValidatePasswordStrength(in.Password); err != nil {
		return db.User{}, errs.Wrap(errs.InvalidArgument, err.Error(), err)
	}

	hash, err := s.hasher.HashPassword(in.Password)
	if err != nil {
		return db.User{}, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.store.CreateUser(ctx, db.NewUser{Name: name, Email: email, PasswordHash: hash, Role: role})
	if err != nil {
		return db.User{}, err
	}
	obs.From(ctx).Info("account registered", "user_id", user.ID, "role", string(role))
	return user, nil
}

// VerifyLogin checks email and password.
// Returns ErrInvalidCredentials if the user doesn't exist or the password is wrong.
func (s *UserService) VerifyLogin(ctx context.Context, email, password string) (db.User, error) {
	user, err := s.store.UserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errs.Is(err, errs.NotFound) {
			return db.User{}, ErrInvalidCredentials
		}
		return db.User{}, fmt.Errorf("get account: %w", err)
	}
	if !s.hasher.VerifyPassword(password, user.PasswordHash) {
		return db.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// ValidatePasswordStrength enforces the minimum password length.
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return ErrWeakPassword
	}
	return nil
}

// HashPassword hashes a password using Argon2id.
func HashPassword(password string) (string, error) {
	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	// $argon2id$v=19$m=<KiB>,t=<iterations>,p=<threads>$<salt>$<hash>
	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		argon2Memory, argon2Time, argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash)), nil
}

// VerifyPassword checks a password against an encoded Argon2id hash.
func VerifyPassword(password, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" || parts[2] != "v=19" {
		return false
	}

	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false
	}

	saltBytes, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	hashBytes, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}
	hashLen := len(hashBytes)
	if hashLen <= 0 || hashLen > argon2KeyLen*2 {
		return false
	}

	computed := argon2.IDKey([]byte(password), saltBytes, time, memory, threads, uint32(hashLen))
	return subtle.ConstantTimeCompare(hashBytes, computed) == 1
}
