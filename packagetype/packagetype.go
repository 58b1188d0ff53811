// Package packagetype implements the PackageType descriptor: the
// immutable, declarative configuration describing one content
// provider's SIP format and ingest recipe. Per-provider specialization
// is plain struct composition rather than inheritance — a PackageType
// is a flat data record validated once, at registration time.
package packagetype

import (
	"fmt"
	"regexp"

	"github.com/hathitrust/feed/constants"
	"github.com/hathitrust/feed/registry"
)

// Presence values for a filegroup.
type Presence string

const (
	Required Presence = "required"
	Optional Presence = "optional"
)

// FileGroupSpec describes one logical filegroup: a class of
// files within a SIP sharing a METS @USE value, filename pattern, and
// validation requirements.
type FileGroupSpec struct {
	Prefix       string
	METSUse      string
	FilePattern  *regexp.Regexp
	Required     bool
	Content      bool // counts toward all_content_files
	JHOVE        bool // must pass JHOVE validation
	UTF8         bool // must pass UTF-8 validation
	StructMap    bool // appears in the physical struct map

	// MimeType, if set, is the expected MIME type every file in this
	// group must sniff to (e.g. "image/jp2"). Empty means the group's
	// format isn't MIME-checked.
	MimeType string
}

// EventOverride overrides one generated event's recipe.
type EventOverride struct {
	Detail          string
	Executor        string
	Tools           []string
	Type            string
	EventIDOverride string
}

// PackageType is the immutable descriptor for one SIP format + ingest
// recipe.
type PackageType struct {
	Identifier      string
	Description     string
	VolumeModule    string
	ValidFilePattern *regexp.Regexp
	FileGroups      map[string]FileGroupSpec
	SourceMETSFile  *regexp.Regexp
	ChecksumFile    *regexp.Regexp

	// StageMap maps a Volume status to the Stage identifier that
	// processes it. An empty/absent entry for a status
	// means Job.Runnable() is false at that status.
	StageMap map[string]string

	Validation map[string]map[string]interface{}

	PremisEvents               []string
	SourcePremisEvents         []string
	SourcePremisEventsExtract  []string
	PremisOverrides            map[string]EventOverride

	SIPFilenamePattern     string // printf-style, e.g. "%s.zip"
	UncompressedExtensions []string
	AllowSequenceGaps      bool
	UsePreingest           bool
	DownloadToDisk         bool
}

// Config returns the package type's own base configuration layer for
// the config resolver. PackageType doesn't carry a
// free-form config map in the original design (only Namespace does);
// this returns an empty map so configresolver can treat both descriptor
// types uniformly.
func (pt *PackageType) Config() map[string]interface{} {
	return map[string]interface{}{}
}

// Validate checks the invariants
// before it can be registered: every stage_map value must name a
// registered Stage, every filegroup key must be unique (guaranteed by
// the map type itself), and every referenced event code must be in the
// global PREMIS catalog.
func (pt *PackageType) Validate() error {
	for status, stageID := range pt.StageMap {
		if _, err := registry.Lookup(registry.KindStage, stageID); err != nil {
			return fmt.Errorf("package type %s: stage_map[%s]=%s: %w", pt.Identifier, status, stageID, err)
		}
	}
	for _, code := range pt.PremisEvents {
		if !constants.EventTypeValid(code) {
			return fmt.Errorf("package type %s: premis_events references unknown event %q", pt.Identifier, code)
		}
	}
	for _, code := range pt.SourcePremisEvents {
		if !constants.EventTypeValid(code) {
			return fmt.Errorf("package type %s: source_premis_events references unknown event %q", pt.Identifier, code)
		}
	}
	for _, code := range pt.SourcePremisEventsExtract {
		if !constants.EventTypeValid(code) {
			return fmt.Errorf("package type %s: source_premis_events_extract references unknown event %q", pt.Identifier, code)
		}
	}
	return nil
}

// Register validates pt and adds it to the global PackageType registry
// under its own Identifier.
func Register(pt *PackageType) error {
	if err := pt.Validate(); err != nil {
		return err
	}
	registry.Register(registry.KindPackageType, pt.Identifier, pt)
	return nil
}

// Lookup retrieves a previously registered PackageType by identifier.
func Lookup(identifier string) (*PackageType, error) {
	v, err := registry.Lookup(registry.KindPackageType, identifier)
	if err != nil {
		return nil, err
	}
	return v.(*PackageType), nil
}
