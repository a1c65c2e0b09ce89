package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitErrorCarriesCode(t *testing.T) {
	err := exitError(ExitConnectivity, "Connectivity check failed", errors.New("listing denied"))

	var ec *exitCodeError
	require.ErrorAs(t, err, &ec)
	assert.Equal(t, ExitConnectivity, ec.code)
	assert.Contains(t, err.Error(), "Connectivity check failed")
	assert.Contains(t, err.Error(), "listing denied")

	err = exitError(ExitConfig, "Invalid configuration", nil)
	require.ErrorAs(t, err, &ec)
	assert.Equal(t, ExitConfig, ec.code)
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "sync", "test", "state", "config", "version"} {
		assert.True(t, names[want], "command %s not registered", want)
	}
}

func TestVersionCommand(t *testing.T) {
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)

	code := Execute(context.Background())
	assert.Equal(t, ExitOK, code)
}

func TestSyncDatesOverrides(t *testing.T) {
	syncDate = "2024-11-28"
	defer func() { syncDate = ""; syncLookback = -1 }()

	dates, err := syncDates(5)
	require.NoError(t, err)
	require.Len(t, dates, 1)
	assert.Equal(t, "2024-11-28", dates[0].Format("2006-01-02"))

	syncDate = "not-a-date"
	_, err = syncDates(5)
	var ec *exitCodeError
	require.ErrorAs(t, err, &ec)
	assert.Equal(t, ExitConfig, ec.code)

	syncDate = ""
	syncLookback = 2
	dates, err = syncDates(5)
	require.NoError(t, err)
	assert.Len(t, dates, 3, "--lookback overrides the configured window")
}
