package stage

import (
	"context"

	"github.com/hathitrust/feed/mets"
	"github.com/hathitrust/feed/volume"
)

func init() {
	Register("mets", func() Stage {
		return &METSStage{base: base{info: Info{SuccessState: "mets_assembled", FailureState: "punted"}}}
	})
}

// METSStage assembles and validates the AIP METS document: the merged
// PREMIS provenance history, MARC descriptive metadata, and structural
// map. It runs after the manifest is verified and before Pack, since
// Pack archives the document this stage writes to Volume.METSPath
// straight into the AIP zip.
type METSStage struct {
	base
}

func (s *METSStage) Run(ctx context.Context, v *volume.Volume) bool {
	a := mets.New(v, v.XercesPath())
	return s.setError(a.WriteAndValidate(ctx))
}
