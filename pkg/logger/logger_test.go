package logger

import (
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hangarshare/cli/pkg/config"
)

func TestInitHonorsConfiguredLevel(t *testing.T) {
	config.Set("log.file", filepath.Join(t.TempDir(), "cli.log"))
	config.Set("log.level", "warn")

	Init(false)

	require.NotNil(t, GetLogger())
	assert.Equal(t, log.WarnLevel, GetLogger().GetLevel())
}

func TestInitVerboseOverridesConfiguredLevel(t *testing.T) {
	config.Set("log.file", filepath.Join(t.TempDir(), "cli.log"))
	config.Set("log.level", "error")

	Init(true)

	require.NotNil(t, GetLogger())
	assert.Equal(t, log.DebugLevel, GetLogger().GetLevel())
}

func TestInitUnknownLevelFallsBackToInfo(t *testing.T) {
	config.Set("log.file", filepath.Join(t.TempDir(), "cli.log"))
	config.Set("log.level", "chatty")

	Init(false)

	require.NotNil(t, GetLogger())
	assert.Equal(t, log.InfoLevel, GetLogger().GetLevel())
}
