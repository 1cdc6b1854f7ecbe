package main

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/colorloop/internal/config"
)

func TestRootCommandFlags(t *testing.T) {
	f := rootCmd.Flags().Lookup("light")
	require.NotNil(t, f)
	assert.Equal(t, "l", f.Shorthand)
	assert.Equal(t, "", f.DefValue)

	c := rootCmd.Flags().Lookup("config")
	require.NotNil(t, c)
	assert.Equal(t, "c", c.Shorthand)
}

func TestRootCommandParsesLight(t *testing.T) {
	defer func() { light = "" }()

	require.NoError(t, rootCmd.ParseFlags([]string{"-l", "4"}))
	assert.Equal(t, "4", light)
}

func TestSetupLogging(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.WarnLevel)

	var buf bytes.Buffer
	setupLogging(&buf, config.LogConfig{Level: "DEBUG", JSON: true})
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	log.Debug().Str("host", "10.0.0.2").Msg("Settings resolved")
	assert.Contains(t, buf.String(), `"host":"10.0.0.2"`)
}

func TestSetupLogging_UnknownLevelFallsBackToWarn(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.WarnLevel)

	var buf bytes.Buffer
	setupLogging(&buf, config.LogConfig{Level: "verbose", JSON: true})
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
	assert.Contains(t, buf.String(), "Unknown log level")

	buf.Reset()
	setupLogging(&buf, config.LogConfig{JSON: true})
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
}
