package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInitAndSetLevel(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zap.NewNop()))

	require.NoError(t, Init("production"))
	assert.Equal(t, zapcore.InfoLevel, Level())

	require.NoError(t, SetLevel("debug"))
	assert.Equal(t, zapcore.DebugLevel, Level())
	assert.True(t, zap.L().Core().Enabled(zapcore.DebugLevel))

	assert.Error(t, SetLevel("loud"))
	assert.Equal(t, zapcore.DebugLevel, Level())

	require.NoError(t, Init("development"))
	assert.Equal(t, zapcore.DebugLevel, Level())
}
