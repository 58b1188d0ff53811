// Package mets assembles the AIP METS document: the merged PREMIS
// provenance history (prior repository events, extracted source events,
// and newly generated events), a filesec reflecting the object's
// filegroups, and a physical structmap by page. It is the one package
// in this module with no third-party vocabulary library behind it --
// no retrieved dependency speaks METS/PREMIS, so the document is built
// directly with encoding/xml structs (see DESIGN.md).
package mets

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/hathitrust/feed/ingesterr"
	"github.com/hathitrust/feed/volume"
)

// event is one PREMIS event destined for the assembled document's
// digiprovMD, already deduplicated against whatever prior history
// exists.
type event struct {
	ID             string
	Type           string
	DateTime       time.Time
	Outcome        string
	Detail         string
	IdentifierType string

	// EventDetail, Executor, and Tools are only set for freshly
	// generated events (see volume.EventRecipe): carried-over events
	// from a prior repository METS or the source METS already have
	// whatever linking agents they were written with baked into their
	// history, so this module doesn't regenerate agent data for them.
	EventDetail string
	Executor    string
	Tools       []string
}

// Assembler builds and validates the METS document for one Volume.
type Assembler struct {
	Volume     *volume.Volume
	XercesPath string

	createdAtOnce sync.Once
	createdAt     time.Time
}

// New constructs an Assembler for v, validating the written document
// with the Xerces binary at xercesPath (empty skips validation).
func New(v *volume.Volume, xercesPath string) *Assembler {
	return &Assembler{Volume: v, XercesPath: xercesPath}
}

// createDate returns the wall-clock time this Assembler's document
// header records, fixed on first use so repeated Build calls against
// the same Assembler render byte-identical output.
func (a *Assembler) createDate() time.Time {
	a.createdAtOnce.Do(func() { a.createdAt = time.Now().UTC() })
	return a.createdAt
}

// Build gathers events from the prior repository METS (if this is a
// reingest), the source METS's own provenance, and freshly recorded
// events, merges them without duplication, and renders the AIP METS
// document as XML bytes. It does not write or validate the result --
// see WriteAndValidate.
func (a *Assembler) Build(ctx context.Context) ([]byte, error) {
	events, err := a.mergedEvents(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].DateTime.Equal(events[j].DateTime) {
			return events[i].Type < events[j].Type
		}
		return events[i].DateTime.Before(events[j].DateTime)
	})
	for i := range events {
		events[i].ID = fmt.Sprintf("t%d", i+1)
	}

	pages, err := a.Volume.FileGroupsByPage()
	if err != nil {
		return nil, err
	}

	marcXML, err := a.Volume.MarcXML()
	if err != nil {
		return nil, err
	}
	fileCount, err := a.Volume.FileCount()
	if err != nil {
		return nil, err
	}
	pageCount, err := a.Volume.PageCount()
	if err != nil {
		return nil, err
	}

	doc := buildDocument(a.Volume, events, pages, marcXML, fileCount, pageCount, a.createDate())
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, ingesterr.New(ingesterr.InvalidMETS, err)
	}
	return append([]byte(xml.Header), out...), nil
}

// mergedEvents collects the three event sources and drops duplicates: a
// prior repository event and a freshly generated event for the same
// (type, detail) pair describe the same provenance fact, so only the
// most recent survives. This is what keeps reingest idempotent: rerunning
// ingest on an unchanged object regenerates the identical event list
// rather than appending duplicates.
func (a *Assembler) mergedEvents(ctx context.Context) ([]event, error) {
	merged := map[string]event{}

	reposEvents, err := a.Volume.ReposPremisEvents()
	if err != nil {
		return nil, err
	}
	for _, re := range reposEvents {
		e := re2event(re)
		merged[e.Type+"|"+e.Detail] = e
	}

	sourceEvents, err := a.Volume.SourcePremisEvents()
	if err == nil {
		wanted := stringSet(a.Volume.PackageType().SourcePremisEvents, a.Volume.PackageType().SourcePremisEventsExtract)
		for _, se := range sourceEvents {
			if !wanted[se.Type] {
				continue
			}
			candidate := re2event(se)
			key := candidate.Type + "|" + candidate.Detail
			if needToUpdateEvent(merged[key], candidate) {
				merged[key] = candidate
			}
		}
	}

	for _, code := range a.Volume.PackageType().PremisEvents {
		info, ok, err := a.Volume.GetEventInfo(ctx, code)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		recipe, err := a.Volume.EventRecipe(code)
		if err != nil {
			return nil, err
		}
		candidate := event{
			Type:           recipe.Type,
			DateTime:       info.Date,
			Outcome:        info.Outcome,
			Detail:         info.EventID,
			IdentifierType: "UUID",
			EventDetail:    recipe.Detail,
			Executor:       recipe.Executor,
			Tools:          recipe.Tools,
		}
		key := candidate.Type + "|" + candidate.Detail
		if needToUpdateEvent(merged[key], candidate) {
			merged[key] = candidate
		}
	}

	out := make([]event, 0, len(merged))
	for _, e := range merged {
		out = append(out, e)
	}
	return out, nil
}

// re2event converts a PremisEvent read back from a prior repository or
// source METS into the merge set's event shape. A document this module
// itself wrote always carries an eventIdentifierType (see the generated
// branch of mergedEvents); an empty one here means the source document
// didn't record one, which defaults to "UUID" rather than mislabeling
// whatever identifier scheme the event actually used.
func re2event(pe volume.PremisEvent) event {
	idType := pe.IdentifierType
	if idType == "" {
		idType = "UUID"
	}
	return event{Type: pe.Type, DateTime: pe.DateTime, Outcome: pe.Outcome, Detail: pe.Detail, IdentifierType: idType}
}

func stringSet(lists ...[]string) map[string]bool {
	out := map[string]bool{}
	for _, list := range lists {
		for _, s := range list {
			out[s] = true
		}
	}
	return out
}

// needToUpdateEvent reports whether candidate should replace existing in
// the merged set: a zero-value existing (not yet present) always loses,
// otherwise the more recent DateTime wins.
func needToUpdateEvent(existing, candidate event) bool {
	if existing.Type == "" {
		return true
	}
	return candidate.DateTime.After(existing.DateTime)
}

// WriteAndValidate renders the document, writes it to Volume.METSPath
// (creating that file's directory if needed), and validates it with the configured Xerces binary. A non-zero exit
// or any execution error becomes an InvalidMETS error carrying the
// tool's combined output.
func (a *Assembler) WriteAndValidate(ctx context.Context) error {
	doc, err := a.Build(ctx)
	if err != nil {
		return err
	}
	path := a.Volume.METSPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return ingesterr.New(ingesterr.OperationFailed, err, "operation", "mkdir", "path", filepath.Dir(path))
	}
	if err := os.WriteFile(path, doc, 0644); err != nil {
		return ingesterr.New(ingesterr.OperationFailed, err, "operation", "write_mets", "path", path)
	}
	if a.XercesPath == "" {
		return nil
	}

	cmd := exec.CommandContext(ctx, a.XercesPath, path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return ingesterr.New(ingesterr.InvalidMETS, err, "path", path, "output", string(output))
	}
	return nil
}
