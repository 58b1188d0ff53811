// Package fileutil holds filesystem helpers shared by Volume and the
// stages: checksum calculation, directory listing, and the zip reader/
// writer pair that unpacks SIPs and packs AIPs.
package fileutil

import (
	"crypto/md5"
	"crypto/sha256"
	"fmt"
	"hash"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hathitrust/feed/constants"
)

// FileExists returns true if the file at path exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ExpandTilde expands a leading "~/" in filePath to the current user's
// home directory.
func ExpandTilde(filePath string) (string, error) {
	if !strings.HasPrefix(filePath, "~/") {
		return filePath, nil
	}
	usr, err := user.Current()
	if err != nil {
		return "", err
	}
	return filepath.Join(usr.HomeDir, filePath[2:]), nil
}

// RecursiveFileList returns every regular file under dir, relative to
// dir, sorted lexically.
func RecursiveFileList(dir string) ([]string, error) {
	files := make([]string, 0)
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	sort.Strings(files)
	return files, err
}

// LooksSafeToDelete guards os.RemoveAll callers against deleting
// something catastrophic: dir must be at least minLength characters
// and contain at least minSeparators path separators.
func LooksSafeToDelete(dir string, minLength, minSeparators int) bool {
	sep := string(os.PathSeparator)
	count := strings.Count(dir, sep)
	return len(dir) >= minLength && count >= minSeparators
}

// CalculateChecksum computes the md5 or sha256 digest of the file at
// pathToFile, returned hex-encoded.
func CalculateChecksum(pathToFile, algorithm string) (string, error) {
	var h hash.Hash
	switch algorithm {
	case constants.AlgMd5:
		h = md5.New()
	case constants.AlgSha256:
		h = sha256.New()
	default:
		return "", fmt.Errorf("unsupported checksum algorithm: %s", algorithm)
	}
	f, err := os.Open(pathToFile)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
