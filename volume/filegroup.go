package volume

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/hathitrust/feed/constants"
	"github.com/hathitrust/feed/ingesterr"
	"github.com/hathitrust/feed/packagetype"
	"github.com/hathitrust/feed/platform"
)

// FileGroup is one classified bucket of files in a staging directory,
// all sharing a filegroup spec's METS @USE and naming convention.
type FileGroup struct {
	Name  string
	Spec  packagetype.FileGroupSpec
	Files []string
}

// FileGroups classifies every file in the staging directory into the
// package type's declared filegroups, caching the result. A file that
// matches no group's pattern is simply not counted in any group; a
// Required group with zero matches is an error the caller should check
// for explicitly via MissingRequiredFileGroups.
func (v *Volume) FileGroups() (map[string]*FileGroup, error) {
	var outerErr error
	v.fileGroupsOnce.Do(func() {
		files, err := v.AllDirectoryFiles()
		if err != nil {
			v.fileGroupsErr = err
			return
		}
		groups := make(map[string]*FileGroup, len(v.pt.FileGroups))
		for name, spec := range v.pt.FileGroups {
			groups[name] = &FileGroup{Name: name, Spec: spec}
		}
		for _, f := range files {
			base := baseName(f)
			for name, spec := range v.pt.FileGroups {
				if spec.FilePattern != nil && spec.FilePattern.MatchString(base) {
					groups[name].Files = append(groups[name].Files, f)
				}
			}
		}
		for _, g := range groups {
			sort.Strings(g.Files)
		}
		v.fileGroups = groups
	})
	if outerErr != nil {
		return nil, outerErr
	}
	return v.fileGroups, v.fileGroupsErr
}

// MissingRequiredFileGroups returns the names of every Required
// filegroup with zero matched files.
func (v *Volume) MissingRequiredFileGroups() ([]string, error) {
	groups, err := v.FileGroups()
	if err != nil {
		return nil, err
	}
	var missing []string
	for name, g := range groups {
		if g.Spec.Required && len(g.Files) == 0 {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing, nil
}

// AllContentFiles returns every file belonging to a filegroup whose
// Content flag is set, sorted.
func (v *Volume) AllContentFiles() ([]string, error) {
	return v.filesWhere(func(spec packagetype.FileGroupSpec) bool { return spec.Content })
}

// JHOVEFiles returns every file belonging to a filegroup that requires
// JHOVE format validation.
func (v *Volume) JHOVEFiles() ([]string, error) {
	return v.filesWhere(func(spec packagetype.FileGroupSpec) bool { return spec.JHOVE })
}

// UTF8Files returns every file belonging to a filegroup that requires
// UTF-8 validation.
func (v *Volume) UTF8Files() ([]string, error) {
	return v.filesWhere(func(spec packagetype.FileGroupSpec) bool { return spec.UTF8 })
}

func (v *Volume) filesWhere(pred func(packagetype.FileGroupSpec) bool) ([]string, error) {
	groups, err := v.FileGroups()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, g := range groups {
		if pred(g.Spec) {
			out = append(out, g.Files...)
		}
	}
	sort.Strings(out)
	return out, nil
}

// FileGroupsByPage reorganizes every content file into a per-page-number
// map of filegroup name to files, keyed on the trailing sequence number
// each content filename must carry. A content file whose basename
// doesn't match constants.SequenceNumberPattern is a BadField error
// naming "sequence_number".
func (v *Volume) FileGroupsByPage() (map[int]map[string][]string, error) {
	groups, err := v.FileGroups()
	if err != nil {
		return nil, err
	}

	pages := make(map[int]map[string][]string)
	var seen []int
	for name, g := range groups {
		if !g.Spec.Content && !g.Spec.StructMap {
			continue
		}
		for _, f := range g.Files {
			base := baseName(f)
			m := constants.SequenceNumberPattern.FindStringSubmatch(base)
			if m == nil {
				return nil, ingesterr.New(ingesterr.BadField, nil,
					"field", "sequence_number", "file", f, "filegroup", name)
			}
			n, err := strconv.Atoi(m[1])
			if err != nil {
				return nil, ingesterr.New(ingesterr.BadField, err,
					"field", "sequence_number", "file", f, "filegroup", name)
			}
			if pages[n] == nil {
				pages[n] = make(map[string][]string)
				seen = append(seen, n)
			}
			pages[n][name] = append(pages[n][name], f)
		}
	}

	if !v.pt.AllowSequenceGaps && len(seen) > 0 {
		sort.Ints(seen)
		for i, n := range seen {
			if n != i+1 {
				return nil, ingesterr.New(ingesterr.BadField, nil,
					"field", "sequence_number", "detail", fmt.Sprintf("gap before page %d", n))
			}
		}
	}
	return pages, nil
}

// VerifyMimeTypes sniffs every file belonging to a filegroup whose spec
// declares a MimeType and returns a BadField error naming the first file
// whose sniffed type doesn't match. Filegroups with no MimeType set are
// not checked.
func (v *Volume) VerifyMimeTypes() error {
	groups, err := v.FileGroups()
	if err != nil {
		return err
	}
	stagingDir := v.StagingDirectory()
	for name, g := range groups {
		if g.Spec.MimeType == "" {
			continue
		}
		for _, f := range g.Files {
			actual, err := platform.GuessMimeType(filepath.Join(stagingDir, f))
			if err != nil {
				return ingesterr.New(ingesterr.OperationFailed, err, "operation", "guess_mime_type", "file", f)
			}
			if actual != g.Spec.MimeType {
				return ingesterr.New(ingesterr.BadField, nil,
					"field", "mime_type", "file", f, "filegroup", name,
					"detail", fmt.Sprintf("expected %s, got %s", g.Spec.MimeType, actual))
			}
		}
	}
	return nil
}

// PageCount returns the number of files in the package type's "image"
// filegroup, which is what a volume's page count means: one page per
// scanned image. A package type with no filegroup named "image" fails
// with MissingImageGroup.
func (v *Volume) PageCount() (int, error) {
	groups, err := v.FileGroups()
	if err != nil {
		return 0, err
	}
	g, ok := groups["image"]
	if !ok {
		return 0, ingesterr.New(ingesterr.MissingImageGroup, nil, "field", "image_filegroup")
	}
	return len(g.Files), nil
}

func baseName(path string) string {
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
