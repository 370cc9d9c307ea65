package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure_SetsLevel(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	require.NoError(t, Configure("warn", false))
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	require.NoError(t, Configure("DEBUG", false))
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestConfigure_UnknownLevel(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	require.NoError(t, Configure("error", false))
	err := Configure("verbose", false)
	require.Error(t, err)
	assert.Equal(t, zerolog.ErrorLevel, zerolog.GlobalLevel(), "failed configure leaves level untouched")
}

func TestConfigure_PrettyToggle(t *testing.T) {
	prev := pretty.Load()
	t.Cleanup(func() { pretty.Store(prev) })

	require.NoError(t, Configure("info", true))
	assert.True(t, pretty.Load())
	require.NoError(t, Configure("info", false))
	assert.False(t, pretty.Load())
}
