package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	// Collect subcommand names.
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	// Verify expected subcommands are registered.
	expected := []string{"point", "sample", "features", "footprints", "cache", "serve"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "solar", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestPointCommand_Flags(t *testing.T) {
	for _, flagName := range []string{"lat", "lng"} {
		flag := pointCmd.Flags().Lookup(flagName)
		require.NotNil(t, flag, "point command should have --%s flag", flagName)
	}
}

func TestSampleCommand_Flags(t *testing.T) {
	for _, flagName := range []string{"coords", "file", "workers", "no-cache", "progress"} {
		flag := sampleCmd.Flags().Lookup(flagName)
		require.NotNil(t, flag, "sample command should have --%s flag", flagName)
	}

	assert.Equal(t, "0", sampleCmd.Flags().Lookup("workers").DefValue)
	assert.Equal(t, "false", sampleCmd.Flags().Lookup("no-cache").DefValue)
}

func TestFeaturesCommand_Flags(t *testing.T) {
	for _, flagName := range []string{"coords", "file"} {
		flag := featuresCmd.Flags().Lookup(flagName)
		require.NotNil(t, flag, "features command should have --%s flag", flagName)
	}
}

func TestFootprintsCommand_Flags(t *testing.T) {
	for _, flagName := range []string{"shapefile", "limit", "concurrency", "out", "label-field"} {
		flag := footprintsCmd.Flags().Lookup(flagName)
		require.NotNil(t, flag, "footprints command should have --%s flag", flagName)
	}

	assert.Equal(t, "2", footprintsCmd.Flags().Lookup("concurrency").DefValue)
	assert.Equal(t, "0", footprintsCmd.Flags().Lookup("limit").DefValue)
	assert.Equal(t, "egid", footprintsCmd.Flags().Lookup("label-field").DefValue)
}

func TestCacheCommand_HasSubcommands(t *testing.T) {
	cmds := cacheCmd.Commands()
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	for _, name := range []string{"status", "clear"} {
		assert.True(t, names[name], "cache should have subcommand %q", name)
	}
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}
