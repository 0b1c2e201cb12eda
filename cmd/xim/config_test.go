package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("XIM_CHANNEL", "memory")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Channel)
	assert.Equal(t, 10*time.Second, cfg.SendTimeout)
	assert.False(t, cfg.RejectEmpty)
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("XIM_CHANNEL", "redis-streams")
	t.Setenv("XIM_REDIS_ADDR", "redis:6380")
	t.Setenv("XIM_REDIS_DB", "2")
	t.Setenv("XIM_SEND_TIMEOUT", "750ms")
	t.Setenv("XIM_REJECT_EMPTY", "true")
	t.Setenv("XIM_USERNAME", "alice")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.Equal(t, "redis-streams", cfg.Channel)
	assert.Equal(t, "redis:6380", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, 750*time.Millisecond, cfg.SendTimeout)
	assert.True(t, cfg.RejectEmpty)
	assert.Equal(t, "alice", cfg.Username)
}

func TestLoadConfig_DotEnvFile(t *testing.T) {
	t.Setenv("XIM_CHANNEL", "memory")
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("XIM_HEALTH_ADDR=127.0.0.1:9099\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("XIM_HEALTH_ADDR") })

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9099", cfg.HealthAddr)
}

func TestLoadConfig_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown channel":  {"XIM_CHANNEL": "carrier-pigeon"},
		"negative timeout": {"XIM_CHANNEL": "memory", "XIM_SEND_TIMEOUT": "-1s"},
		"negative db":      {"XIM_CHANNEL": "memory", "XIM_REDIS_DB": "-1"},
		"bad duration":     {"XIM_CHANNEL": "memory", "XIM_SEND_TIMEOUT": "soon"},
		"redis no addr":    {"XIM_CHANNEL": "redis-streams", "XIM_REDIS_ADDR": ""},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range vars {
				t.Setenv(k, v)
			}
			_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.env"))
			assert.Error(t, err)
		})
	}
}
