package volume

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hathitrust/feed/ingesterr"
)

// metsDoc is the minimal parse of a METS document this package needs:
// the descriptive MARC record, the PREMIS provenance events in its
// digiprovMD sections, and the checksums recorded in its fileSec. Full
// METS assembly lives in the mets package; this is read-only extraction
// from an existing (source or repository) document.
type metsDoc struct {
	XMLName xml.Name  `xml:"mets"`
	DmdSecs []dmdSec  `xml:"dmdSec"`
	FileSec fileSecXML `xml:"fileSec"`
	AmdSecs []amdSecXML `xml:"amdSec"`
}

type dmdSec struct {
	ID     string `xml:"ID,attr"`
	MdWrap mdWrapXML `xml:"mdWrap"`
}

type mdWrapXML struct {
	MDType  string     `xml:"MDTYPE,attr"`
	XMLData rawElement `xml:"xmlData"`
}

type rawElement struct {
	Inner []byte `xml:",innerxml"`
}

type fileSecXML struct {
	FileGrp []fileGrpXML `xml:"fileGrp"`
}

type fileGrpXML struct {
	File []fileXML `xml:"file"`
}

type fileXML struct {
	ID       string `xml:"ID,attr"`
	Checksum string `xml:"CHECKSUM,attr"`
	FLocat   struct {
		Href string `xml:"href,attr"`
	} `xml:"FLocat"`
}

type amdSecXML struct {
	DigiprovMD []digiprovMDXML `xml:"digiprovMD"`
}

type digiprovMDXML struct {
	MdWrap struct {
		XMLData struct {
			Events []premisEventXML `xml:"event"`
		} `xml:"xmlData"`
	} `xml:"mdWrap"`
}

type premisEventXML struct {
	Inner           []byte `xml:",innerxml"`
	EventType       string `xml:"eventType"`
	EventDateTime   string `xml:"eventDateTime"`
	EventIdentifier struct {
		Type  string `xml:"eventIdentifierType"`
		Value string `xml:"eventIdentifierValue"`
	} `xml:"eventIdentifier"`
	EventOutcomeInformation struct {
		EventOutcome string `xml:"eventOutcome"`
	} `xml:"eventOutcomeInformation"`
}

func parseMETSFile(path string) (*metsDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc metsDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, ingesterr.New(ingesterr.InvalidMETS, err, "path", path)
	}
	return &doc, nil
}

// SourceMETSXPC parses and caches the provider-supplied METS file named
// by the package type's source_mets_file pattern within the staging
// directory.
func (v *Volume) SourceMETSXPC() (*metsDoc, error) {
	v.sourceMETSOnce.Do(func() {
		path, err := v.findSourceMETSFile()
		if err != nil {
			v.sourceMETSErr = err
			return
		}
		v.sourceMETS, v.sourceMETSErr = parseMETSFile(path)
	})
	return v.sourceMETS, v.sourceMETSErr
}

// ReposMETSXPC parses and caches the prior repository METS document for
// this object, if one exists at RepositoryMETSPath. A Volume with no
// prior repository copy (first ingest) returns (nil, nil).
func (v *Volume) ReposMETSXPC() (*metsDoc, error) {
	v.reposMETSOnce.Do(func() {
		path := v.RepositoryMETSPath()
		if _, err := os.Stat(path); err != nil {
			return
		}
		v.reposMETS, v.reposMETSErr = parseMETSFile(path)
	})
	return v.reposMETS, v.reposMETSErr
}

func (v *Volume) findSourceMETSFile() (string, error) {
	if v.pt.SourceMETSFile == nil {
		return "", ingesterr.New(ingesterr.MissingField, nil, "field", "source_mets_file")
	}
	files, err := v.AllDirectoryFiles()
	if err != nil {
		return "", err
	}
	for _, f := range files {
		if v.pt.SourceMETSFile.MatchString(baseName(f)) {
			return filepath.Join(v.StagingDirectory(), f), nil
		}
	}
	return "", ingesterr.New(ingesterr.MissingField, nil, "field", "source_mets_file")
}

// MarcXML returns the first MARC metadata element in the source METS's
// dmdSec/mdWrap[@MDTYPE=MARC], or a MissingMARC error if no MARC dmdSec
// is present.
func (v *Volume) MarcXML() (string, error) {
	doc, err := v.SourceMETSXPC()
	if err != nil {
		return "", err
	}
	for _, dmd := range doc.DmdSecs {
		if dmd.MdWrap.MDType == "MARC" {
			elem, err := firstElement(dmd.MdWrap.XMLData.Inner)
			if err != nil {
				return "", ingesterr.New(ingesterr.InvalidMETS, err, "field", "marc")
			}
			return elem, nil
		}
	}
	return "", ingesterr.New(ingesterr.MissingMARC, nil, "field", "marc")
}

// firstElement returns the outer XML of the first child element found
// in innerXML, the way a dmdSec/mdWrap/xmlData's descriptive metadata is
// the single child element regardless of its own vocabulary. It copies
// tokens from the decoder to a fresh encoder rather than slicing raw
// bytes, so namespace prefixes and attributes round-trip correctly.
func firstElement(innerXML []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(innerXML))
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)

	depth := 0
	started := false
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		if _, ok := tok.(xml.StartElement); ok {
			if depth == 0 {
				started = true
			}
			depth++
		}
		if !started {
			continue
		}
		if err := enc.EncodeToken(tok); err != nil {
			return "", err
		}
		if _, ok := tok.(xml.EndElement); ok {
			depth--
			if depth == 0 {
				break
			}
		}
	}
	if !started {
		return "", fmt.Errorf("no element found")
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// PremisEvent is one provenance event extracted from a METS document's
// digiprovMD, in the form the mets package's Assembler merges.
type PremisEvent struct {
	Type     string
	DateTime time.Time
	Outcome  string
	Detail   string

	// IdentifierType is the eventIdentifierType recorded in the source
	// document (e.g. "UUID", or whatever a provider's own source METS
	// carries). Empty if the document didn't record one.
	IdentifierType string
}

// ReposPremisEvents returns the PREMIS events recorded in the prior
// repository METS document (the reingest case). A Volume with no prior
// repository copy returns (nil, nil).
func (v *Volume) ReposPremisEvents() ([]PremisEvent, error) {
	doc, err := v.ReposMETSXPC()
	if err != nil || doc == nil {
		return nil, err
	}
	return extractPremisEvents(doc), nil
}

// SourcePremisEvents returns the PREMIS events recorded in the
// provider-supplied source METS document.
func (v *Volume) SourcePremisEvents() ([]PremisEvent, error) {
	doc, err := v.SourceMETSXPC()
	if err != nil || doc == nil {
		return nil, err
	}
	return extractPremisEvents(doc), nil
}

func extractPremisEvents(doc *metsDoc) []PremisEvent {
	var out []PremisEvent
	for _, amd := range doc.AmdSecs {
		for _, digiprov := range amd.DigiprovMD {
			for _, re := range digiprov.MdWrap.XMLData.Events {
				dt, _ := time.Parse(time.RFC3339, re.EventDateTime)
				out = append(out, PremisEvent{
					Type:           re.EventType,
					DateTime:       dt,
					Outcome:        re.EventOutcomeInformation.EventOutcome,
					Detail:         re.EventIdentifier.Value,
					IdentifierType: re.EventIdentifier.Type,
				})
			}
		}
	}
	return out
}

// Checksums returns the CHECKSUM attribute recorded for every file in
// the source METS's fileSec, keyed by the file's FLocat href.
func (v *Volume) Checksums() (map[string]string, error) {
	doc, err := v.SourceMETSXPC()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	for _, grp := range doc.FileSec.FileGrp {
		for _, f := range grp.File {
			if f.Checksum != "" && f.FLocat.Href != "" {
				out[f.FLocat.Href] = f.Checksum
			}
		}
	}
	return out, nil
}
