// +build !partners

// magicmime requires an external C library most partner build
// environments won't have, so this file is excluded from -tags=partners
// builds; nomime.go supplies a stub in that case.
package platform

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/rakyll/magicmime"
)

var IsPartnerBuild = false

// magicMime is the MimeMagic database; only one copy is kept open.
var magicMime *magicmime.Decoder

// mutex serializes access to the underlying MagicMime C library, which
// returns garbled results when called from multiple goroutines at once.
var mutex = &sync.Mutex{}

var validMimeType = regexp.MustCompile(`^\w+/\w+$`)

// GuessMimeType sniffs the MIME type of the file at absPath. A type
// MagicMime can't determine, or returns malformed, falls back to
// application/binary rather than failing the caller.
func GuessMimeType(absPath string) (mimeType string, err error) {
	if magicMime == nil {
		magicMime, err = magicmime.NewDecoder(magicmime.MAGIC_MIME_TYPE)
		if err != nil {
			return "", fmt.Errorf("opening mimemagic database: %w", err)
		}
	}

	mimeType = "application/binary"
	mutex.Lock()
	guessedType, _ := magicMime.TypeByFile(absPath)
	mutex.Unlock()
	if guessedType != "" && validMimeType.MatchString(guessedType) {
		mimeType = guessedType
	}
	return mimeType, nil
}
