package authstate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/require"

	"github.com/kuitang/lcm-e2e/internal/config"
	"github.com/kuitang/lcm-e2e/internal/errs"
)

func testProvisioner(t *testing.T, login func(ctx context.Context, role config.Role) error) *Provisioner {
	t.Helper()
	p := New(nil, &config.Config{AuthStateDir: filepath.Join(t.TempDir(), "playwright", ".auth")})
	p.login = login
	return p
}

func TestPath(t *testing.T) {
	p := New(nil, &config.Config{AuthStateDir: "playwright/.auth"})
	require.Equal(t, filepath.Join("playwright", ".auth", "lawyer.json"), p.Path(config.RoleLawyer))
}

func TestEnsureAll_LogsInEveryRoleConcurrently(t *testing.T) {
	var (
		mu       sync.Mutex
		seen     []config.Role
		inFlight atomic.Int32
		peak     atomic.Int32
		release  = make(chan struct{})
	)
	p := testProvisioner(t, func(ctx context.Context, role config.Role) error {
		n := inFlight.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		mu.Lock()
		seen = append(seen, role)
		if len(seen) == len(config.Roles) {
			close(release)
		}
		mu.Unlock()
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
		inFlight.Add(-1)
		return nil
	})

	require.NoError(t, p.EnsureAll(context.Background()))
	require.ElementsMatch(t, config.Roles, seen)
	require.EqualValues(t, len(config.Roles), peak.Load())

	info, err := os.Stat(p.cfg.AuthStateDir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestEnsureAll_RunsOnceAndKeepsFirstOutcome(t *testing.T) {
	var calls atomic.Int32
	p := testProvisioner(t, func(ctx context.Context, role config.Role) error {
		calls.Add(1)
		if role == config.RoleClient {
			return errors.New("login form never appeared")
		}
		return nil
	})

	first := p.EnsureAll(context.Background())
	require.True(t, errs.Is(first, errs.FailedPrecondition))
	require.ErrorContains(t, first, "log in as client")

	second := p.EnsureAll(context.Background())
	require.Same(t, first, second)
	require.EqualValues(t, len(config.Roles), calls.Load())
}

func TestNewContext_MissingStateIsFailedPrecondition(t *testing.T) {
	p := testProvisioner(t, nil)
	_, err := p.NewContext(config.RoleAdmin, playwright.BrowserNewContextOptions{})
	require.True(t, errs.Is(err, errs.FailedPrecondition))
}
