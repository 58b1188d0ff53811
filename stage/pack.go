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
	Register("pack", func() Stage {
		return &PackStage{base: base{info: Info{SuccessState: "packed", FailureState: "punted"}}}
	})
}

// PackStage assembles the AIP zip from every file in the staging
// directory (Volume.AllDirectoryFiles) plus the METS document already
// written to Volume.METSPath.
type PackStage struct {
	base
}

func (s *PackStage) Run(ctx context.Context, v *volume.Volume) bool {
	metsPath := v.METSPath()
	if !fileutil.FileExists(metsPath) {
		return s.setError(ingesterr.New(ingesterr.MissingField, nil, "field", "mets_file", "path", metsPath))
	}

	files, err := v.AllDirectoryFiles()
	if err != nil {
		return s.setError(err)
	}

	zipPath := v.ZipPath()
	if err := os.MkdirAll(filepath.Dir(zipPath), 0755); err != nil {
		return s.setError(ingesterr.New(ingesterr.OperationFailed, err, "operation", "mkdir", "path", filepath.Dir(zipPath)))
	}

	writer := fileutil.NewZipWriter(zipPath, v.PackageType().UncompressedExtensions)
	if err := writer.Open(); err != nil {
		return s.setError(ingesterr.New(ingesterr.OperationFailed, err, "operation", "open_zip", "path", zipPath))
	}
	defer writer.Close()

	stagingDir := v.StagingDirectory()
	for _, f := range files {
		if err := writer.AddToArchive(filepath.Join(stagingDir, f), f); err != nil {
			return s.setError(ingesterr.New(ingesterr.OperationFailed, err, "operation", "add_to_archive", "file", f))
		}
	}
	metsName := filepath.Base(metsPath)
	if err := writer.AddToArchive(metsPath, metsName); err != nil {
		return s.setError(ingesterr.New(ingesterr.OperationFailed, err, "operation", "add_to_archive", "file", metsName))
	}

	return s.setError(nil)
}
