package fileutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hathitrust/feed/constants"
	"github.com/hathitrust/feed/fileutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "x.txt")
	require.NoError(t, os.WriteFile(f, []byte("hi"), 0644))
	assert.True(t, fileutil.FileExists(f))
	assert.False(t, fileutil.FileExists(filepath.Join(dir, "missing.txt")))
}

func TestCalculateChecksum(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "x.txt")
	require.NoError(t, os.WriteFile(f, []byte("hello"), 0644))
	digest, err := fileutil.CalculateChecksum(f, constants.AlgMd5)
	require.NoError(t, err)
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", digest)
}

func TestCalculateChecksumUnsupportedAlgorithm(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "x.txt")
	require.NoError(t, os.WriteFile(f, []byte("hello"), 0644))
	_, err := fileutil.CalculateChecksum(f, "crc32")
	assert.Error(t, err)
}

func TestRecursiveFileList(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.txt"), []byte("b"), 0644))

	files, err := fileutil.RecursiveFileList(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", filepath.Join("sub", "b.txt")}, files)
}

func TestLooksSafeToDelete(t *testing.T) {
	assert.False(t, fileutil.LooksSafeToDelete("/", 8, 2))
	assert.False(t, fileutil.LooksSafeToDelete("/etc", 8, 2))
	assert.True(t, fileutil.LooksSafeToDelete("/var/feed/staging/39002X", 8, 2))
}
