package browser

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/kuitang/lcm-e2e/internal/obs"
)

var env *SuiteEnv

func TestMain(m *testing.M) {
	obs.Init()

	var err error
	env, err = newSuiteEnv(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "browser suite setup: %v\n", err)
		os.Exit(1)
	}
	code := m.Run()
	env.Close()
	os.Exit(code)
}
