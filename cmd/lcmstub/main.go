// Command lcmstub runs the stand-in legal case management application so the
// browser suite can be pointed at it with BASE_URL during local development.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/kuitang/lcm-e2e/internal/auth"
	"github.com/kuitang/lcm-e2e/internal/lcmstub"
	"github.com/kuitang/lcm-e2e/internal/obs"
	"github.com/kuitang/lcm-e2e/internal/ratelimit"
)

const shutdownTimeout = 5 * time.Second

func main() {
	obs.Init()
	if err := newApp().Run(os.Args); err != nil {
		obs.Pkg("main").Error("lcmstub failed", "error", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "lcmstub",
		Usage: "Serve the stand-in legal case management application",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Usage:   "Listen address",
				Value:   "127.0.0.1:8080",
				EnvVars: []string{"LCM_STUB_ADDR"},
			},
			&cli.StringFlag{
				Name:    "db",
				Usage:   "SQLite database file (empty keeps data in memory)",
				EnvVars: []string{"LCM_STUB_DB"},
			},
			&cli.StringFlag{
				Name:    "db-key",
				Usage:   "Hex SQLCipher key for --db",
				EnvVars: []string{"LCM_STUB_DB_KEY"},
			},
			&cli.IntFlag{
				Name:  "filler-billings",
				Usage: "Invoices to create up front so the billing list spans pages",
				Value: 25,
			},
			&cli.BoolFlag{
				Name:  "fast-hash",
				Usage: "Store passwords with the insecure test hasher",
			},
			&cli.Float64Flag{
				Name:  "post-rps",
				Usage: "Sustained form submissions per second allowed per client IP",
				Value: ratelimit.DefaultConfig.RPS,
			},
			&cli.IntFlag{
				Name:  "post-burst",
				Usage: "Form submissions a client IP may burst before throttling",
				Value: ratelimit.DefaultConfig.Burst,
			},
		},
		Action: serve,
	}
}

func serve(c *cli.Context) error {
	opts := lcmstub.Options{
		DBPath:         c.String("db"),
		Accounts:       lcmstub.DefaultAccounts(),
		FillerBillings: c.Int("filler-billings"),
		Throttle: ratelimit.Config{
			RPS:             c.Float64("post-rps"),
			Burst:           c.Int("post-burst"),
			CleanupInterval: ratelimit.DefaultConfig.CleanupInterval,
		},
	}
	if key := c.String("db-key"); key != "" {
		raw, err := hex.DecodeString(key)
		if err != nil {
			return fmt.Errorf("--db-key must be hex: %w", err)
		}
		opts.DBKey = raw
	}
	if c.Bool("fast-hash") {
		opts.Hasher = auth.FakeInsecureHasher{}
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := lcmstub.New(ctx, opts)
	if err != nil {
		return err
	}
	defer app.Close()

	logger := obs.Pkg("main")
	for _, a := range lcmstub.DefaultAccounts() {
		logger.Info("seeded account", "role", string(a.Role), "email", a.Email)
	}

	srv := &http.Server{
		Addr:              c.String("addr"),
		Handler:           app.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
