package fileutil

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ZipReader unpacks a SIP zip to a target directory. It guards against
// zip-slip path traversal: every entry's cleaned, joined path must stay
// under targetDir.
type ZipReader struct {
	PathToZip string
	TargetDir string
}

func NewZipReader(pathToZip, targetDir string) *ZipReader {
	return &ZipReader{PathToZip: pathToZip, TargetDir: targetDir}
}

// Unpack extracts every entry in the zip to TargetDir and returns the
// list of files written, relative to TargetDir.
func (r *ZipReader) Unpack() ([]string, error) {
	zr, err := zip.OpenReader(r.PathToZip)
	if err != nil {
		return nil, fmt.Errorf("opening zip %q: %w", r.PathToZip, err)
	}
	defer zr.Close()

	if err := os.MkdirAll(r.TargetDir, 0755); err != nil {
		return nil, fmt.Errorf("creating target dir %q: %w", r.TargetDir, err)
	}

	written := make([]string, 0, len(zr.File))
	for _, entry := range zr.File {
		destPath := filepath.Join(r.TargetDir, entry.Name)
		if !strings.HasPrefix(destPath, filepath.Clean(r.TargetDir)+string(os.PathSeparator)) {
			return nil, fmt.Errorf("zip entry %q escapes target directory", entry.Name)
		}
		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(destPath, 0755); err != nil {
				return nil, err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
			return nil, err
		}
		if err := extractOne(entry, destPath); err != nil {
			return nil, err
		}
		written = append(written, entry.Name)
	}
	return written, nil
}

func extractOne(entry *zip.File, destPath string) error {
	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("opening zip entry %q: %w", entry.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, entry.Mode())
	if err != nil {
		return fmt.Errorf("creating %q: %w", destPath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("writing %q: %w", destPath, err)
	}
	return nil
}

// ZipWriter packs content files into an AIP zip. Files whose extension
// is in uncompressedExtensions are stored rather than deflated.
type ZipWriter struct {
	PathToZip             string
	UncompressedExtensions map[string]bool
	zw                     *zip.Writer
	file                   *os.File
}

func NewZipWriter(pathToZip string, uncompressedExtensions []string) *ZipWriter {
	set := make(map[string]bool, len(uncompressedExtensions))
	for _, ext := range uncompressedExtensions {
		set[strings.ToLower(ext)] = true
	}
	return &ZipWriter{PathToZip: pathToZip, UncompressedExtensions: set}
}

func (w *ZipWriter) Open() error {
	f, err := os.Create(w.PathToZip)
	if err != nil {
		return fmt.Errorf("creating zip file %q: %w", w.PathToZip, err)
	}
	w.file = f
	w.zw = zip.NewWriter(f)
	return nil
}

func (w *ZipWriter) Close() error {
	if w.zw != nil {
		if err := w.zw.Close(); err != nil {
			return err
		}
	}
	if w.file != nil {
		return w.file.Close()
	}
	return nil
}

// AddToArchive adds the file at filePath to the archive under
// pathWithinArchive, stored uncompressed if its extension is in
// UncompressedExtensions.
func (w *ZipWriter) AddToArchive(filePath, pathWithinArchive string) error {
	if w.zw == nil {
		return fmt.Errorf("zip writer not open")
	}
	info, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("cannot add %q to archive: %w", filePath, err)
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = pathWithinArchive
	ext := strings.ToLower(filepath.Ext(pathWithinArchive))
	if w.UncompressedExtensions[ext] {
		header.Method = zip.Store
	} else {
		header.Method = zip.Deflate
	}

	entryWriter, err := w.zw.CreateHeader(header)
	if err != nil {
		return err
	}
	src, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer src.Close()
	if _, err := io.Copy(entryWriter, src); err != nil {
		return fmt.Errorf("copying %q into zip archive: %w", filePath, err)
	}
	return nil
}
