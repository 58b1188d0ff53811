// Package volume implements the Volume runtime object:
// the per-ingest object holding paths, filegroups, lazily-parsed METS
// contexts, and PREMIS event recording for one item being ingested.
package volume

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hathitrust/feed/config"
	"github.com/hathitrust/feed/configresolver"
	"github.com/hathitrust/feed/constants"
	"github.com/hathitrust/feed/fileutil"
	"github.com/hathitrust/feed/ingesterr"
	"github.com/hathitrust/feed/namespace"
	"github.com/hathitrust/feed/packagetype"
	"github.com/hathitrust/feed/pairtree"
	"github.com/hathitrust/feed/store"
)

// Volume is the mutable per-ingest runtime object for one item. It holds
// non-owning references to its Namespace and PackageType: a read-only
// diamond, Volume alongside Namespace and PackageType, each an
// arena-owned immutable descriptor.
type Volume struct {
	ns       *namespace.Namespace
	pt       *packagetype.PackageType
	objid    string
	cfg      *config.Config
	resolver *configresolver.Resolver
	store    *store.Store

	dirFilesOnce sync.Once
	dirFiles     []string
	dirFilesErr  error

	fileGroupsOnce sync.Once
	fileGroups     map[string]*FileGroup
	fileGroupsErr  error

	sourceMETSOnce sync.Once
	sourceMETS     *metsDoc
	sourceMETSErr  error

	reposMETSOnce sync.Once
	reposMETS     *metsDoc
	reposMETSErr  error
}

// New constructs a Volume for one (namespace, packagetype, objid).
func New(ns *namespace.Namespace, pt *packagetype.PackageType, objid string, cfg *config.Config, st *store.Store) *Volume {
	return &Volume{
		ns:       ns,
		pt:       pt,
		objid:    objid,
		cfg:      cfg,
		resolver: configresolver.New(cfg),
		store:    st,
	}
}

func (v *Volume) Namespace() *namespace.Namespace     { return v.ns }
func (v *Volume) Objid() string                       { return v.objid }
func (v *Volume) PackageType() *packagetype.PackageType { return v.pt }

// Identifier returns the full identifier "namespace.objid".
func (v *Volume) Identifier() string {
	return fmt.Sprintf("%s.%s", v.ns.Identifier, v.objid)
}

// PtObjid returns the pairtree-encoded form of objid, stable across
// calls.
func (v *Volume) PtObjid() string {
	return pairtree.Encode(v.objid)
}

// StagingDirectory is where this object's SIP is unpacked and AIP is
// assembled: <staging.ingest>/<namespace>/<pt_objid>.
func (v *Volume) StagingDirectory() string {
	return filepath.Join(v.cfg.Staging.Ingest, v.ns.Identifier, v.PtObjid())
}

// DownloadDirectory is where the SIP zip is fetched to.
func (v *Volume) DownloadDirectory() string {
	return filepath.Join(v.cfg.Staging.Download, v.ns.Identifier)
}

// PreingestDirectory is used by package types with UsePreingest set.
func (v *Volume) PreingestDirectory() string {
	return filepath.Join(v.cfg.Staging.Preingest, v.ns.Identifier, v.PtObjid())
}

// METSPath is the path the assembled AIP METS document is written to.
func (v *Volume) METSPath() string {
	return filepath.Join(v.cfg.Staging.Zipfile, v.ns.Identifier, v.PtObjid()+".mets.xml")
}

// ZipPath is the path the assembled AIP zip is written to.
func (v *Volume) ZipPath() string {
	return filepath.Join(v.cfg.Staging.Zipfile, v.ns.Identifier, v.PtObjid()+".zip")
}

// SIPFilename resolves the package type's SIP_filename_pattern against
// this volume's objid.
func (v *Volume) SIPFilename() string {
	if v.pt.SIPFilenamePattern == "" {
		return v.objid + ".zip"
	}
	return fmt.Sprintf(v.pt.SIPFilenamePattern, v.objid)
}

// AllDirectoryFiles returns the sorted list of files currently present
// in the staging directory, cached after first call.
func (v *Volume) AllDirectoryFiles() ([]string, error) {
	v.dirFilesOnce.Do(func() {
		v.dirFiles, v.dirFilesErr = fileutil.RecursiveFileList(v.StagingDirectory())
	})
	return v.dirFiles, v.dirFilesErr
}

// RecordPremisEvent computes the event's type from the package type's
// event configuration, derives its deterministic UUID, and idempotently
// REPLACEs the corresponding premis_events row.
func (v *Volume) RecordPremisEvent(ctx context.Context, eventCode string, date time.Time, outcome string) error {
	eventType, err := v.eventType(eventCode)
	if err != nil {
		return err
	}
	id := v.MakePremisUUID(eventType, date)
	return v.store.PutPremisEvent(ctx, store.PremisEventRow{
		Namespace:   v.ns.Identifier,
		ID:          v.objid,
		EventID:     id.String(),
		EventTypeID: eventType,
		Outcome:     outcome,
		Date:        date,
	})
}

// EventInfo is the result of GetEventInfo: a recorded PREMIS event's
// identifier, date, and outcome XML.
type EventInfo struct {
	EventID string
	Date    time.Time
	Outcome string
}

// GetEventInfo returns the recorded event for eventCode, or ok=false if
// none has been recorded yet.
func (v *Volume) GetEventInfo(ctx context.Context, eventCode string) (EventInfo, bool, error) {
	eventType, err := v.eventType(eventCode)
	if err != nil {
		return EventInfo{}, false, err
	}
	row, ok, err := v.store.GetPremisEvent(ctx, v.ns.Identifier, v.objid, eventType)
	if err != nil || !ok {
		return EventInfo{}, ok, err
	}
	return EventInfo{EventID: row.EventID, Date: row.Date, Outcome: row.Outcome}, true, nil
}

// MakePremisUUID derives the deterministic UUIDv5 for one (namespace,
// objid, eventtype, date) tuple: identical inputs always
// yield the identical UUID, which is what makes reingest stable.
// google/uuid provides the UUIDv5 (name-based SHA1) construction this
// needs (see DESIGN.md).
func (v *Volume) MakePremisUUID(eventType string, date time.Time) uuid.UUID {
	ns := uuid.MustParse(constants.HTNamespaceUUID)
	name := fmt.Sprintf("%s-%s-%s-%s", v.ns.Identifier, v.objid, eventType, date.UTC().Format(time.RFC3339Nano))
	return uuid.NewSHA1(ns, []byte(name))
}

// eventType resolves the PREMIS eventType string for a package-type
// event code, preferring a per-package-type override's Type over the
// global catalog entry.
func (v *Volume) eventType(eventCode string) (string, error) {
	if v.pt != nil {
		if override, ok := v.pt.PremisOverrides[eventCode]; ok && override.Type != "" {
			return override.Type, nil
		}
	}
	if v.cfg != nil {
		if entry, ok := v.cfg.Premis[eventCode]; ok && entry.Type != "" {
			return entry.Type, nil
		}
	}
	return "", ingesterr.New(ingesterr.MissingField, nil, "field", "premis event type", "event_code", eventCode)
}

// EventRecipe is the resolved, field-by-field-overlaid recipe for
// generating one PREMIS event: the data the METS assembler needs beyond
// the recorded (date, outcome) to build the event's eventDetail and
// linkingAgentIdentifier entries.
type EventRecipe struct {
	Type            string
	Detail          string
	Executor        string
	Tools           []string
	EventIDOverride string
}

// EventRecipe resolves the generation recipe for eventCode: the
// package type's PremisOverrides entry overlaid field-by-field over the
// global config catalog entry, so a package type can override just the
// executor without having to repeat detail or tools. An executor of
// "VOLUME_ARTIST" is substituted with Artist(). Type, Detail, and
// Executor are required; a recipe missing any of them is a
// MissingField error, matching the fatal requirement on event
// generation.
func (v *Volume) EventRecipe(eventCode string) (EventRecipe, error) {
	var global packagetype.EventOverride
	if v.cfg != nil {
		if entry, ok := v.cfg.Premis[eventCode]; ok {
			global = packagetype.EventOverride{
				Type:            entry.Type,
				Detail:          entry.Detail,
				Executor:        entry.Executor,
				Tools:           entry.Tools,
				EventIDOverride: entry.EventIDOverride,
			}
		}
	}
	override := packagetype.EventOverride{}
	if v.pt != nil {
		override = v.pt.PremisOverrides[eventCode]
	}

	recipe := EventRecipe{
		Type:            firstNonEmpty(override.Type, global.Type),
		Detail:          firstNonEmpty(override.Detail, global.Detail),
		Executor:        firstNonEmpty(override.Executor, global.Executor),
		EventIDOverride: firstNonEmpty(override.EventIDOverride, global.EventIDOverride),
		Tools:           override.Tools,
	}
	if recipe.Tools == nil {
		recipe.Tools = global.Tools
	}
	if recipe.Executor == "VOLUME_ARTIST" {
		recipe.Executor = v.Artist()
	}

	if recipe.Type == "" || recipe.Detail == "" || recipe.Executor == "" {
		return EventRecipe{}, ingesterr.New(ingesterr.MissingField, nil,
			"field", "premis event recipe", "event_code", eventCode,
			"detail", "type, detail, and executor are all required")
	}
	return recipe, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Artist returns the digitization operator or vendor recorded for this
// volume's namespace, substituted for an event recipe's "VOLUME_ARTIST"
// executor placeholder. It's resolved the same way any other
// namespace/package-type configuration key is, through the layered
// config resolver, under the key "artist"; a namespace that doesn't
// configure one resolves to "unknown".
func (v *Volume) Artist() string {
	if v.resolver == nil {
		return "unknown"
	}
	val, ok := v.resolver.Get(v.ns, v.pt, "artist")
	if !ok {
		return "unknown"
	}
	s, ok := val.(string)
	if !ok || s == "" {
		return "unknown"
	}
	return s
}

// XercesPath returns the configured path to the Xerces XML validator
// binary, empty if METS validation should be skipped.
func (v *Volume) XercesPath() string {
	if v.cfg == nil {
		return ""
	}
	return v.cfg.Xerces
}

// CleanAll removes the staging directory, METS file, and zip for this
// volume.
func (v *Volume) CleanAll() error {
	for _, dir := range []string{v.StagingDirectory()} {
		if !fileutil.LooksSafeToDelete(dir, 8, 3) {
			return fmt.Errorf("refusing to remove suspicious staging directory %q", dir)
		}
	}
	if err := removeAll(v.StagingDirectory()); err != nil {
		return err
	}
	if err := removeIfExists(v.METSPath()); err != nil {
		return err
	}
	return removeIfExists(v.ZipPath())
}
