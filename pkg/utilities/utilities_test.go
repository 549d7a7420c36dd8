package utilities

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLevelFromString(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, levelFromString("debug"))
	assert.Equal(t, zapcore.WarnLevel, levelFromString("warning"))
	assert.Equal(t, zapcore.InfoLevel, levelFromString("loud"))
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("LOG_DEV", "1")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FILE", "/tmp/account.log")
	t.Setenv("LOG_MAX_AGE_DAYS", "3")

	cfg := ConfigFromEnv()
	assert.Equal(t, Config{Level: "debug", Dev: true, File: "/tmp/account.log", MaxAgeDays: 3}, cfg)
}

func TestInitWithRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "account.log")
	lg, err := Init(Config{Level: "info", File: path, MaxAgeDays: 1})
	require.NoError(t, err)
	lg.Info("hello")
	_ = lg.Sync()

	matches, err := filepath.Glob(path + ".*")
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestIDGenerator(t *testing.T) {
	g, err := NewIDGenerator(7)
	require.NoError(t, err)
	seen := map[int64]bool{}
	var last int64
	for i := 0; i < 1000; i++ {
		id := g.NextID()
		assert.False(t, seen[id])
		assert.Greater(t, id, last)
		seen[id] = true
		last = id
	}

	_, err = NewIDGenerator(4096)
	assert.Error(t, err)
}

func TestNodeFromEnv(t *testing.T) {
	t.Setenv("SNOWFLAKE_NODE", "")
	assert.Equal(t, int64(1), NodeFromEnv())
	t.Setenv("SNOWFLAKE_NODE", "12")
	assert.Equal(t, int64(12), NodeFromEnv())
}
