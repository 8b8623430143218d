package obs

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

type scenarioContextKey struct{}

// Scenario carries the identifiers attached to every log line a scenario emits.
type Scenario struct {
	Name   string
	Role   string
	Worker string
}

var (
	loggerMu sync.RWMutex
	logger   *slog.Logger
)

// Init configures the global structured logger.
func Init() {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if logger != nil {
		return
	}
	logger = newLogger(os.Stderr, levelFromEnv())
	slog.SetDefault(logger)
}

// SetOutputForTests overrides the global logger output for tests.
func SetOutputForTests(w io.Writer) func() {
	loggerMu.Lock()
	prev := logger
	logger = newLogger(w, slog.LevelDebug)
	slog.SetDefault(logger)
	loggerMu.Unlock()

	return func() {
		loggerMu.Lock()
		defer loggerMu.Unlock()
		if prev != nil {
			logger = prev
		} else {
			logger = newLogger(os.Stderr, levelFromEnv())
		}
		slog.SetDefault(logger)
	}
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			if attr.Key == slog.TimeKey {
				t, ok := attr.Value.Any().(time.Time)
				if ok {
					return slog.String(slog.TimeKey, t.UTC().Format(time.RFC3339Nano))
				}
			}
			return attr
		},
	})
	return slog.New(handler)
}

func globalLogger() *slog.Logger {
	loggerMu.RLock()
	l := logger
	loggerMu.RUnlock()
	if l != nil {
		return l
	}
	Init()
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

// Pkg returns a logger tagged with package name.
func Pkg(pkg string) *slog.Logger {
	return globalLogger().With("pkg", pkg)
}

// WithScenario stores scenario identifiers in context.
func WithScenario(ctx context.Context, sc Scenario) context.Context {
	existing := ScenarioFromContext(ctx)
	if sc.Name != "" {
		existing.Name = strings.TrimSpace(sc.Name)
	}
	if sc.Role != "" {
		existing.Role = strings.TrimSpace(sc.Role)
	}
	if sc.Worker != "" {
		existing.Worker = strings.TrimSpace(sc.Worker)
	}
	return context.WithValue(ctx, scenarioContextKey{}, existing)
}

// ScenarioFromContext returns scenario identifiers from context.
func ScenarioFromContext(ctx context.Context) Scenario {
	if ctx == nil {
		return Scenario{}
	}
	sc, ok := ctx.Value(scenarioContextKey{}).(Scenario)
	if !ok {
		return Scenario{}
	}
	return sc
}

// From returns a logger with scenario fields from context.
func From(ctx context.Context) *slog.Logger {
	l := globalLogger()
	attrs := scenarioAttrs(ScenarioFromContext(ctx))
	if len(attrs) == 0 {
		return l
	}
	return l.With(attrs...)
}

func scenarioAttrs(sc Scenario) []any {
	attrs := make([]any, 0, 6)
	if sc.Name != "" {
		attrs = append(attrs, "scenario", sc.Name)
	}
	if sc.Role != "" {
		attrs = append(attrs, "role", sc.Role)
	}
	if sc.Worker != "" {
		attrs = append(attrs, "worker", sc.Worker)
	}
	return attrs
}
