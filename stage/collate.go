package stage

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/hathitrust/feed/fileutil"
	"github.com/hathitrust/feed/ingesterr"
	"github.com/hathitrust/feed/volume"
)

func init() {
	Register("collate", func() Stage {
		return &CollateStage{
			base:     base{info: Info{SuccessState: "collated", FailureState: "punted"}},
			isRepeat: false,
		}
	})
}

// CollateStage moves the assembled zip and METS file from staging into
// the content-addressed object store and maintains the stable
// repository symlink. The move is rename-then-replace: both files land
// in a temporary sibling path first, so a crash mid-collate never leaves
// a half-written object at its final path.
type CollateStage struct {
	base
	isRepeat bool
}

// IsRepeat reports whether the destination object directory already
// existed before this run (a reingest). The stage succeeds either way.
func (s *CollateStage) IsRepeat() bool { return s.isRepeat }

func (s *CollateStage) Run(ctx context.Context, v *volume.Volume) bool {
	zipSrc := v.ZipPath()
	metsSrc := v.METSPath()
	if !fileutil.FileExists(zipSrc) {
		return s.setError(ingesterr.New(ingesterr.MissingField, nil, "field", "zip_file", "path", zipSrc))
	}
	if !fileutil.FileExists(metsSrc) {
		return s.setError(ingesterr.New(ingesterr.MissingField, nil, "field", "mets_file", "path", metsSrc))
	}

	zipDst := v.RepositoryZipPath()
	metsDst := v.RepositoryMETSPath()
	objDir := filepath.Dir(zipDst)

	if _, err := os.Stat(objDir); err == nil {
		s.isRepeat = true
	}

	if err := os.MkdirAll(objDir, 0755); err != nil {
		return s.setError(ingesterr.New(ingesterr.OperationFailed, err, "operation", "mkdir", "path", objDir))
	}

	if err := atomicMove(zipSrc, zipDst); err != nil {
		return s.setError(ingesterr.New(ingesterr.OperationFailed, err, "operation", "move", "file", zipSrc))
	}
	if err := atomicMove(metsSrc, metsDst); err != nil {
		return s.setError(ingesterr.New(ingesterr.OperationFailed, err, "operation", "move", "file", metsSrc))
	}

	if err := relinkRepository(v); err != nil {
		return s.setError(ingesterr.New(ingesterr.OperationFailed, err, "operation", "symlink", "path", v.RepositorySymlink()))
	}

	return s.setError(nil)
}

// atomicMove writes dst's contents via a temp-file-then-rename sequence
// in dst's own directory, so a partially written dst is never visible
// under its real name: os.Rename within one filesystem is atomic.
func atomicMove(src, dst string) error {
	tmp := dst + ".tmp"
	if err := copyFile(src, tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

func relinkRepository(v *volume.Volume) error {
	link := v.RepositorySymlink()
	target := filepath.Dir(v.RepositoryZipPath())

	if err := os.MkdirAll(filepath.Dir(link), 0755); err != nil {
		return err
	}
	if fi, err := os.Lstat(link); err == nil {
		if fi.Mode()&os.ModeSymlink != 0 {
			if err := os.Remove(link); err != nil {
				return err
			}
		} else {
			return ingesterr.New(ingesterr.OperationFailed, nil, "field", "repository_symlink", "path", link, "detail", "exists and is not a symlink")
		}
	}
	return os.Symlink(target, link)
}
