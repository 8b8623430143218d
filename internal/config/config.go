// Package config resolves the suite's process-wide configuration once, from
// environment variables, before any scenario runs.
//
// Seeded-account credentials are required: a missing key fails Load with a
// ValidationError that lists every missing variable, rather than letting a
// scenario fail confusingly halfway through a login form.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Role identifies one of the seeded application accounts.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleLawyer Role = "lawyer"
	RoleClient Role = "client"
)

// Roles lists every role that gets a persisted storage state.
var Roles = []Role{RoleAdmin, RoleLawyer, RoleClient}

// RequiredKeys is the enumerated list of variables that must be present.
var RequiredKeys = []string{
	"TEST_ADMIN_EMAIL",
	"TEST_ADMIN_PASSWORD",
	"TEST_LAWYER_EMAIL",
	"TEST_LAWYER_PASSWORD",
	"TEST_CLIENT_EMAIL",
	"TEST_CLIENT_PASSWORD",
	"TEST_USER_NAME",
	"TEST_USER_EMAIL",
	"TEST_USER_PASSWORD",
}

const (
	defaultTimeout           = 5 * time.Second
	defaultNavigationTimeout = 10 * time.Second
	defaultMaxPagesLocal     = 10
	defaultMaxPagesCI        = 20
	defaultAuthStateDir      = "playwright/.auth"
	defaultArtifactsDir      = "test-results"
	defaultReportDir         = "test-results"
)

// Credentials is an email/password pair for a seeded account.
type Credentials struct {
	Email    string
	Password string
}

// TestUser is the general-purpose account used by registration and login scenarios.
type TestUser struct {
	Name     string
	Email    string
	Password string
}

// Config holds all suite configuration.
type Config struct {
	// BaseURL of the application under test. Empty means the hermetic
	// stand-in app is started in-process.
	BaseURL string

	Admin  Credentials
	Lawyer Credentials
	Client Credentials
	User   TestUser

	// CI is true when running under continuous integration; it raises the
	// pagination ceiling because CI databases accumulate more rows.
	CI                 bool
	MaxPaginationPages int
	DefaultTimeout     time.Duration
	NavigationTimeout  time.Duration
	Headless           bool

	AuthStateDir string
	ReportDir    string

	// Failure artifacts: local directory, or S3 when ArtifactsBucket is set.
	ArtifactsDir       string
	ArtifactsBucket    string
	AWSEndpointS3      string
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
}

// ValidationError represents a configuration validation error with multiple issues.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("BASE_URL")), "/")

	cfg.Admin = Credentials{Email: env("TEST_ADMIN_EMAIL"), Password: env("TEST_ADMIN_PASSWORD")}
	cfg.Lawyer = Credentials{Email: env("TEST_LAWYER_EMAIL"), Password: env("TEST_LAWYER_PASSWORD")}
	cfg.Client = Credentials{Email: env("TEST_CLIENT_EMAIL"), Password: env("TEST_CLIENT_PASSWORD")}
	cfg.User = TestUser{
		Name:     env("TEST_USER_NAME"),
		Email:    env("TEST_USER_EMAIL"),
		Password: env("TEST_USER_PASSWORD"),
	}

	cfg.applyRuntimeDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ForStub builds a configuration for the in-process stand-in app, whose seeded
// accounts are known to the caller instead of read from the environment.
// Runtime knobs (CI, timeouts, directories) still come from the environment.
func ForStub(baseURL string, admin, lawyer, client Credentials, user TestUser) (*Config, error) {
	cfg := &Config{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Admin:   admin,
		Lawyer:  lawyer,
		Client:  client,
		User:    user,
	}
	cfg.applyRuntimeDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyRuntimeDefaults() {
	c.CI = parseBoolOrDefault("CI", false)

	maxPages := defaultMaxPagesLocal
	if c.CI {
		maxPages = defaultMaxPagesCI
	}
	c.MaxPaginationPages = parseIntOrDefault("MAX_PAGINATION_PAGES", maxPages)
	c.DefaultTimeout = parseDurationOrDefault("DEFAULT_TIMEOUT", defaultTimeout)
	c.NavigationTimeout = parseDurationOrDefault("NAVIGATION_TIMEOUT", defaultNavigationTimeout)
	c.Headless = parseBoolOrDefault("HEADLESS", true)

	c.AuthStateDir = getEnvOrDefault("AUTH_STATE_DIR", defaultAuthStateDir)
	c.ReportDir = getEnvOrDefault("REPORT_DIR", defaultReportDir)
	c.ArtifactsDir = getEnvOrDefault("ARTIFACTS_DIR", defaultArtifactsDir)
	c.ArtifactsBucket = env("ARTIFACTS_BUCKET")
	c.AWSEndpointS3 = env("AWS_ENDPOINT_URL_S3")
	c.AWSRegion = getEnvOrDefault("AWS_REGION", "us-east-1")
	c.AWSAccessKeyID = env("AWS_ACCESS_KEY_ID")
	c.AWSSecretAccessKey = env("AWS_SECRET_ACCESS_KEY")
}

// Validate checks that all required configuration is present and valid.
func (c *Config) Validate() error {
	var errs []string

	values := map[string]string{
		"TEST_ADMIN_EMAIL":     c.Admin.Email,
		"TEST_ADMIN_PASSWORD":  c.Admin.Password,
		"TEST_LAWYER_EMAIL":    c.Lawyer.Email,
		"TEST_LAWYER_PASSWORD": c.Lawyer.Password,
		"TEST_CLIENT_EMAIL":    c.Client.Email,
		"TEST_CLIENT_PASSWORD": c.Client.Password,
		"TEST_USER_NAME":       c.User.Name,
		"TEST_USER_EMAIL":      c.User.Email,
		"TEST_USER_PASSWORD":   c.User.Password,
	}
	for _, key := range RequiredKeys {
		if values[key] == "" {
			errs = append(errs, key+" is required")
		}
	}

	if c.BaseURL != "" && !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		errs = append(errs, "BASE_URL must start with http:// or https://")
	}
	if c.MaxPaginationPages <= 0 {
		errs = append(errs, "MAX_PAGINATION_PAGES must be positive")
	}
	if c.DefaultTimeout <= 0 {
		errs = append(errs, "DEFAULT_TIMEOUT must be positive")
	}
	if c.NavigationTimeout <= 0 {
		errs = append(errs, "NAVIGATION_TIMEOUT must be positive")
	}
	if c.ArtifactsBucket != "" && c.AWSEndpointS3 == "" && c.AWSAccessKeyID == "" {
		errs = append(errs, "ARTIFACTS_BUCKET needs AWS_ENDPOINT_URL_S3 or AWS credentials")
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// Credentials returns the seeded account for a role.
func (c *Config) Credentials(role Role) (Credentials, error) {
	switch role {
	case RoleAdmin:
		return c.Admin, nil
	case RoleLawyer:
		return c.Lawyer, nil
	case RoleClient:
		return c.Client, nil
	default:
		return Credentials{}, fmt.Errorf("unknown role %q", role)
	}
}

// StubRequested reports whether BASE_URL is unset, in which case the suite
// runs against the in-process stand-in app instead of a deployed one.
func StubRequested() bool {
	return strings.TrimSpace(os.Getenv("BASE_URL")) == ""
}

// DefaultTimeoutMS returns DefaultTimeout in the float milliseconds Playwright expects.
func (c *Config) DefaultTimeoutMS() float64 {
	return float64(c.DefaultTimeout.Milliseconds())
}

// NavigationTimeoutMS returns NavigationTimeout in the float milliseconds Playwright expects.
func (c *Config) NavigationTimeoutMS() float64 {
	return float64(c.NavigationTimeout.Milliseconds())
}

// Helper functions for parsing environment variables

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func getEnvOrDefault(key, defaultValue string) string {
	value := env(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func parseIntOrDefault(key string, defaultValue int) int {
	value := env(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	value := env(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		// CI systems commonly export CI=<provider name>; any non-boolean value counts as set.
		return true
	}
	return parsed
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := env(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// MustLoad loads configuration and panics if validation fails.
// Call it from TestMain so a misconfigured run stops before any scenario.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			panic(fmt.Sprintf("Configuration validation failed:\n  - %s", strings.Join(validationErr.Errors, "\n  - ")))
		}
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}
	return cfg
}
