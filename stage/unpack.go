package stage

import (
	"context"
	"os"
	"path/filepath"

	"github.com/hathitrust/feed/fileutil"
	"github.com/hathitrust/feed/ingesterr"
	"github.com/hathitrust/feed/volume"
)

func init() {
	Register("unpack", func() Stage {
		return &UnpackStage{base: base{info: Info{SuccessState: "unpacked", FailureState: "punted"}}}
	})
}

// UnpackStage extracts a downloaded SIP zip into the object's staging
// directory.
type UnpackStage struct {
	base
}

func (s *UnpackStage) Run(ctx context.Context, v *volume.Volume) bool {
	sipPath := filepath.Join(v.DownloadDirectory(), v.SIPFilename())
	if !fileutil.FileExists(sipPath) {
		return s.setError(ingesterr.New(ingesterr.MissingField, nil, "field", "sip_file", "path", sipPath))
	}

	stagingDir := v.StagingDirectory()
	if err := os.MkdirAll(stagingDir, 0755); err != nil {
		return s.setError(ingesterr.New(ingesterr.OperationFailed, err, "operation", "mkdir", "path", stagingDir))
	}

	reader := fileutil.NewZipReader(sipPath, stagingDir)
	if _, err := reader.Unpack(); err != nil {
		return s.setError(ingesterr.New(ingesterr.OperationFailed, err, "operation", "unpack", "path", sipPath))
	}
	return s.setError(nil)
}
