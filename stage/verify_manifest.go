package stage

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hathitrust/feed/checkcache"
	"github.com/hathitrust/feed/constants"
	"github.com/hathitrust/feed/fileutil"
	"github.com/hathitrust/feed/ingesterr"
	"github.com/hathitrust/feed/volume"
)

func init() {
	Register("verify_manifest", func() Stage {
		return &VerifyManifestStage{base: base{info: Info{SuccessState: "verified", FailureState: "punted"}}}
	})
}

// VerifyManifestStage recomputes the checksum of every content file and
// compares it against the value recorded in the source METS's fileSec,
// failing on any mismatch or any file the manifest doesn't mention. A
// per-volume checksum cache on disk means a retried run after a crash
// doesn't recompute digests for files already verified.
type VerifyManifestStage struct {
	base
}

func (s *VerifyManifestStage) Run(ctx context.Context, v *volume.Volume) bool {
	manifest, err := v.Checksums()
	if err != nil {
		return s.setError(err)
	}

	files, err := v.AllContentFiles()
	if err != nil {
		return s.setError(err)
	}

	cache, err := checkcache.Open(filepath.Join(v.StagingDirectory(), ".checkcache"))
	if err != nil {
		return s.setError(ingesterr.New(ingesterr.OperationFailed, err, "operation", "open_checkcache"))
	}
	defer cache.Close()

	stagingDir := v.StagingDirectory()
	for _, f := range files {
		expected, ok := manifest[f]
		if !ok {
			return s.setError(ingesterr.New(ingesterr.BadField, nil, "field", "manifest", "file", f, "detail", "no checksum recorded"))
		}

		actual, cached, err := cache.Get(f)
		if err != nil {
			return s.setError(ingesterr.New(ingesterr.OperationFailed, err, "operation", "read_checkcache", "file", f))
		}
		if !cached {
			actual, err = fileutil.CalculateChecksum(filepath.Join(stagingDir, f), constants.AlgMd5)
			if err != nil {
				return s.setError(ingesterr.New(ingesterr.OperationFailed, err, "operation", "checksum", "file", f))
			}
			if err := cache.Put(f, actual); err != nil {
				return s.setError(ingesterr.New(ingesterr.OperationFailed, err, "operation", "write_checkcache", "file", f))
			}
		}

		if actual != expected {
			return s.setError(ingesterr.New(ingesterr.BadField, nil,
				"field", "checksum", "file", f,
				"detail", fmt.Sprintf("expected %s, got %s", expected, actual)))
		}
	}

	_ = cache.Clear()

	if err := v.VerifyMimeTypes(); err != nil {
		return s.setError(err)
	}
	return s.setError(nil)
}
