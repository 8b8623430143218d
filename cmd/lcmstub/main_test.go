package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFlagDefaults(t *testing.T) {
	app := newApp()
	names := map[string]bool{}
	for _, f := range app.Flags {
		for _, n := range f.Names() {
			names[n] = true
		}
	}
	for _, want := range []string{"addr", "db", "db-key", "filler-billings", "fast-hash", "post-rps", "post-burst"} {
		require.True(t, names[want], want)
	}
}

func TestBadKeyIsRejectedBeforeServing(t *testing.T) {
	err := newApp().Run([]string{"lcmstub", "--db-key", "not-hex", "--addr", "127.0.0.1:0"})
	require.ErrorContains(t, err, "--db-key must be hex")
}
