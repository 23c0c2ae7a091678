package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2576, cfg.HL7ListenPort)
	assert.Equal(t, 5678, cfg.WebPort)
	assert.Equal(t, 5*time.Minute, cfg.IdleTimeout)
	assert.Equal(t, 1<<20, cfg.MaxMessageBytes)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("HL7_LISTEN_PORT", "9999")
	t.Setenv("IDLE_TIMEOUT_SECONDS", "30")
	t.Setenv("DATABASE_URL", "postgres://test/db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.HL7ListenPort)
	assert.Equal(t, 30*time.Second, cfg.IdleTimeout)
	assert.Equal(t, "postgres://test/db", cfg.DatabaseURL)
}

func TestLoadIgnoresMalformedInt(t *testing.T) {
	t.Setenv("HL7_LISTEN_PORT", "not-a-port")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2576, cfg.HL7ListenPort)
}
