package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hathitrust/feed/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadExpandsFilePathsAndReadsSettings(t *testing.T) {
	cfg, err := config.Load(filepath.Join("testdata", "config.json"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(cfg.Staging.Ingest, "/"))
	assert.True(t, strings.HasPrefix(cfg.Repository.ObjDir, "/"))
	assert.Equal(t, []string{"collated", "punted"}, cfg.Daemon.ReleaseStates)
	assert.Equal(t, 4, cfg.Dataset.Threads)
}

func TestLoadDefaultsReleaseStatesAndThreadsWhenUnset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"staging": {"ingest": "/tmp/ingest"}}`), 0644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"collated", "punted"}, cfg.Daemon.ReleaseStates)
	assert.Equal(t, 1, cfg.Dataset.Threads)
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := config.Load(filepath.Join("testdata", "does_not_exist.json"))
	assert.Error(t, err)
}

func TestLoadFromEnvRequiresEnvVar(t *testing.T) {
	t.Setenv(config.EnvVar, "")
	_, err := config.LoadFromEnv()
	assert.Error(t, err)
}

func TestIsReleaseState(t *testing.T) {
	cfg, err := config.Load(filepath.Join("testdata", "config.json"))
	require.NoError(t, err)
	assert.True(t, cfg.IsReleaseState("punted"))
	assert.False(t, cfg.IsReleaseState("new"))
}

func TestLogDirectoryFallsBackToStagingIngest(t *testing.T) {
	cfg, err := config.Load(filepath.Join("testdata", "config.json"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(cfg.LogDirectory(), "logs"))
}

func TestGetLooksUpDottedKeyFromRawDocument(t *testing.T) {
	cfg, err := config.Load(filepath.Join("testdata", "config.json"))
	require.NoError(t, err)

	val, ok := cfg.Get("premis.ingest.executor")
	require.True(t, ok)
	assert.Equal(t, "feed", val)

	_, ok = cfg.Get("premis.does_not_exist.executor")
	assert.False(t, ok)
}
