package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLoad_Defaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", c.Addr)
	assert.Equal(t, zapcore.InfoLevel, c.LogLevel)
	assert.False(t, c.LogDevelopment)
	assert.Equal(t, 256, c.MaxImages)
	assert.Equal(t, 5*time.Minute, c.WSReadTimeout)
	assert.Equal(t, 3*time.Second, c.WSWriteTimeout)
	assert.Empty(t, c.OriginPatterns)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CONTEST_ADDR", "127.0.0.1:9000")
	t.Setenv("CONTEST_LOG_LEVEL", "debug")
	t.Setenv("CONTEST_LOG_DEVELOPMENT", "true")
	t.Setenv("CONTEST_MAX_IMAGES", "16")
	t.Setenv("CONTEST_WS_READ_TIMEOUT", "1m")
	t.Setenv("CONTEST_ORIGIN_PATTERNS", "localhost:*, example.com ,")

	c, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", c.Addr)
	assert.Equal(t, zapcore.DebugLevel, c.LogLevel)
	assert.True(t, c.LogDevelopment)
	assert.Equal(t, 16, c.MaxImages)
	assert.Equal(t, time.Minute, c.WSReadTimeout)
	assert.Equal(t, []string{"localhost:*", "example.com"}, c.OriginPatterns)
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("CONTEST_MAX_IMAGES=8\n"), 0o600))
	// godotenv does not override set variables. t.Setenv registers the cleanup,
	// Unsetenv leaves the key free for the file.
	t.Setenv("CONTEST_MAX_IMAGES", "")
	require.NoError(t, os.Unsetenv("CONTEST_MAX_IMAGES"))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, c.MaxImages)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name string
		key  string
		val  string
	}{
		{name: "bad level", key: "CONTEST_LOG_LEVEL", val: "loud"},
		{name: "too few images", key: "CONTEST_MAX_IMAGES", val: "1"},
		{name: "zero write timeout", key: "CONTEST_WS_WRITE_TIMEOUT", val: "0s"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.val)
			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}
