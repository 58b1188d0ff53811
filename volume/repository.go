package volume

import (
	"os"
	"path/filepath"

	"github.com/hathitrust/feed/pairtree"
)

// RepositoryMETSPath is the path this object's METS document occupies
// in the content-addressed object store, once collated:
// <obj_dir>/<namespace>/<pairtree shards>/<pt_objid>/<pt_objid>.mets.xml.
func (v *Volume) RepositoryMETSPath() string {
	return filepath.Join(pairtree.Dir(v.cfg.Repository.ObjDir, v.ns.Identifier, v.objid), v.PtObjid()+".mets.xml")
}

// RepositoryZipPath is the path this object's zip occupies in the
// content-addressed object store, once collated (same directory as
// RepositoryMETSPath).
func (v *Volume) RepositoryZipPath() string {
	return filepath.Join(pairtree.Dir(v.cfg.Repository.ObjDir, v.ns.Identifier, v.objid), v.PtObjid()+".zip")
}

// RepositorySymlink is the stable, non-pairtree-encoded path by which
// external consumers locate this object's repository directory.
func (v *Volume) RepositorySymlink() string {
	return filepath.Join(v.cfg.Repository.LinkDir, v.ns.Identifier, v.objid)
}

// Stages returns, in order, the Stage identifiers a Job for this
// package type will run starting from startStatus, by following the
// package type's stage_map until it reaches a status with no mapped
// stage (a terminal status).
func (v *Volume) Stages(startStatus string) []string {
	var out []string
	status := startStatus
	seen := make(map[string]bool)
	for {
		stageID, ok := v.pt.StageMap[status]
		if !ok || seen[status] {
			break
		}
		seen[status] = true
		out = append(out, stageID)
		status = stageID
	}
	return out
}

func removeAll(dir string) error {
	if dir == "" || dir == string(filepath.Separator) {
		return nil
	}
	return os.RemoveAll(dir)
}

func removeIfExists(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// FileCount returns the number of content files for this package type
// (the files in filegroups whose Content flag is set, as reported in
// the PREMIS object's significant properties).
func (v *Volume) FileCount() (int, error) {
	files, err := v.AllContentFiles()
	if err != nil {
		return 0, err
	}
	return len(files), nil
}
