package engine_test

import (
	"path/filepath"
	"testing"

	"github.com/hathitrust/feed/config"
	"github.com/hathitrust/feed/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		SQLiteDSN: filepath.Join(dir, "feed.db"),
		LogDir:    filepath.Join(dir, "logs"),
	}
}

func TestNewOpensStoreAndLogger(t *testing.T) {
	e, err := engine.New(testConfig(t), "")
	require.NoError(t, err)
	defer e.Close()

	assert.NotNil(t, e.Store)
	assert.NotNil(t, e.Log)
	assert.Nil(t, e.Producer)
}

func TestSuccessAndFailureCounters(t *testing.T) {
	e, err := engine.New(testConfig(t), "")
	require.NoError(t, err)
	defer e.Close()

	assert.EqualValues(t, 1, e.IncrementSucceeded())
	assert.EqualValues(t, 2, e.IncrementSucceeded())
	assert.EqualValues(t, 1, e.IncrementFailed())
	assert.EqualValues(t, 2, e.Succeeded())
	assert.EqualValues(t, 1, e.Failed())
}

func TestPublishStatusChangeWithoutProducerIsNoop(t *testing.T) {
	e, err := engine.New(testConfig(t), "")
	require.NoError(t, err)
	defer e.Close()

	assert.NoError(t, e.PublishStatusChange("feed.status", "yale", "39002X", "ready"))
}
