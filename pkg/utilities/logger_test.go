package utilities

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestConfigFromEnv(t *testing.T) {
	tests := []struct {
		name  string
		dev   string
		level string
		want  Config
	}{
		{name: "defaults", want: Config{Level: "info"}},
		{name: "dev defaults to debug", dev: "1", want: Config{Level: "debug", Dev: true}},
		{name: "explicit level", level: "warn", want: Config{Level: "warn"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LOG_DEV", tt.dev)
			t.Setenv("LOG_LEVEL", tt.level)
			t.Setenv("LOG_FILE", "")
			assert.Equal(t, tt.want, ConfigFromEnv())
		})
	}
}

func TestLevelFromString(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, levelFromString("debug"))
	assert.Equal(t, zapcore.WarnLevel, levelFromString("warning"))
	assert.Equal(t, zapcore.ErrorLevel, levelFromString("error"))
	assert.Equal(t, zapcore.InfoLevel, levelFromString("bogus"))
}

func TestInit(t *testing.T) {
	lg, err := Init(Config{Level: "info"})
	require.NoError(t, err)
	assert.False(t, lg.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, lg.Core().Enabled(zapcore.InfoLevel))

	lg, err = Init(Config{Level: "debug", File: filepath.Join(t.TempDir(), "api.log")})
	require.NoError(t, err)
	assert.True(t, lg.Core().Enabled(zapcore.DebugLevel))
	lg.Info("hello")
	_ = lg.Sync()
}
