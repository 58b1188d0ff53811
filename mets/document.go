package mets

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/hathitrust/feed/volume"
)

// document mirrors the small slice of the METS/PREMIS vocabulary this
// pipeline writes: a header, two MARC dmdSecs, an amdSec holding a
// PREMIS object plus PREMIS events, a fileSec grouped by filegroup, and
// a physical structmap by page.
type document struct {
	XMLName   xml.Name     `xml:"mets"`
	ObjID     string       `xml:"OBJID,attr"`
	PremisNS  string       `xml:"xmlns:PREMIS,attr"`
	MarcNS    string       `xml:"xmlns:MARC,attr"`
	MetsHdr   metsHdrOut   `xml:"metsHdr"`
	DmdSec    []dmdSecOut  `xml:"dmdSec"`
	AmdSec    amdSecOut    `xml:"amdSec"`
	FileSec   fileSecOut   `xml:"fileSec"`
	StructMap structMapOut `xml:"structMap"`
}

type metsHdrOut struct {
	CreateDate   string   `xml:"CREATEDATE,attr"`
	RecordStatus string   `xml:"RECORDSTATUS,attr"`
	Agent        agentOut `xml:"agent"`
}

type agentOut struct {
	Role string `xml:"ROLE,attr"`
	Type string `xml:"TYPE,attr"`
	Name string `xml:"name"`
}

// dmdSecOut is one descriptive metadata section: either an external
// reference (MdRef, the item-ID-scoped record pointer) or inline content
// (MdWrap, the remediated MARCXML itself).
type dmdSecOut struct {
	ID     string      `xml:"ID,attr"`
	MdRef  *mdRefOut   `xml:"mdRef,omitempty"`
	MdWrap *dmdWrapOut `xml:"mdWrap,omitempty"`
}

type mdRefOut struct {
	MDType  string `xml:"MDTYPE,attr"`
	LocType string `xml:"LOCTYPE,attr"`
	Href    string `xml:"href,attr"`
}

type dmdWrapOut struct {
	MDType  string        `xml:"MDTYPE,attr"`
	XMLData rawXMLDataOut `xml:"xmlData"`
}

// rawXMLDataOut carries already-serialized XML verbatim (the remediated
// MARCXML returned by volume.MarcXML), rather than re-parsing it into a
// MARC-specific struct tree this module has no reason to understand.
type rawXMLDataOut struct {
	Inner string `xml:",innerxml"`
}

type amdSecOut struct {
	ID         string          `xml:"ID,attr"`
	TechMD     []techMDOut     `xml:"techMD"`
	DigiprovMD []digiprovMDOut `xml:"digiprovMD"`
}

// techMDOut carries the PREMIS intellectual-entity object: identity,
// preservation level, and significant properties. It's a sibling of the
// digiprovMD events, not one of them — object-level facts, not
// provenance history.
type techMDOut struct {
	ID     string        `xml:"ID,attr"`
	MdWrap techMdWrapOut `xml:"mdWrap"`
}

type techMdWrapOut struct {
	MDType  string         `xml:"MDTYPE,attr"`
	XMLData techXMLDataOut `xml:"xmlData"`
}

type techXMLDataOut struct {
	Object premisObjectOut `xml:"object"`
}

type premisObjectOut struct {
	ObjectIdentifier      objectIdentifierOut      `xml:"objectIdentifier"`
	PreservationLevel     string                   `xml:"preservationLevel"`
	SignificantProperties []significantPropertyOut `xml:"significantProperties"`
}

type objectIdentifierOut struct {
	ObjectIdentifierType  string `xml:"objectIdentifierType"`
	ObjectIdentifierValue string `xml:"objectIdentifierValue"`
}

type significantPropertyOut struct {
	SignificantPropertiesType  string `xml:"significantPropertiesType"`
	SignificantPropertiesValue string `xml:"significantPropertiesValue"`
}

type digiprovMDOut struct {
	ID     string    `xml:"ID,attr"`
	MdWrap mdWrapOut `xml:"mdWrap"`
}

type mdWrapOut struct {
	MDType  string     `xml:"MDTYPE,attr"`
	XMLData xmlDataOut `xml:"xmlData"`
}

type xmlDataOut struct {
	Event premisEventOut `xml:"event"`
}

type premisEventOut struct {
	EventIdentifier         eventIdentifierOut `xml:"eventIdentifier"`
	EventType               string             `xml:"eventType"`
	EventDateTime           string             `xml:"eventDateTime"`
	EventDetail             string             `xml:"eventDetail,omitempty"`
	EventOutcomeInformation eventOutcomeOut    `xml:"eventOutcomeInformation"`
	LinkingAgentIdentifier  []linkingAgentOut  `xml:"linkingAgentIdentifier,omitempty"`
}

type eventIdentifierOut struct {
	EventIdentifierType  string `xml:"eventIdentifierType"`
	EventIdentifierValue string `xml:"eventIdentifierValue"`
}

type eventOutcomeOut struct {
	EventOutcome string `xml:"eventOutcome"`
}

// linkingAgentOut names one agent involved in producing an event: the
// human or organization that executed it (role "Executor"), or a tool
// it ran (role "software").
type linkingAgentOut struct {
	LinkingAgentIdentifierType  string `xml:"linkingAgentIdentifierType"`
	LinkingAgentIdentifierValue string `xml:"linkingAgentIdentifierValue"`
	LinkingAgentRole            string `xml:"linkingAgentRole"`
}

type fileSecOut struct {
	FileGrp []fileGrpOut `xml:"fileGrp"`
}

type fileGrpOut struct {
	Use  string    `xml:"USE,attr"`
	File []fileOut `xml:"file"`
}

type fileOut struct {
	ID     string    `xml:"ID,attr"`
	FLocat flocatOut `xml:"FLocat"`
}

type flocatOut struct {
	Href string `xml:"href,attr"`
}

type structMapOut struct {
	Type string `xml:"TYPE,attr"`
	Div  divOut `xml:"div"`
}

type divOut struct {
	Type string    `xml:"TYPE,attr"`
	Div  []divOut  `xml:"div"`
	Fptr []fptrOut `xml:"fptr,omitempty"`
}

type fptrOut struct {
	FileID string `xml:"FILEID,attr"`
}

func buildDocument(v *volume.Volume, events []event, pages map[int]map[string][]string, marcXML string, fileCount, pageCount int, createdAt time.Time) document {
	doc := document{
		ObjID:    v.Identifier(),
		PremisNS: "info:lc/xmlns/premis-v2",
		MarcNS:   "http://www.loc.gov/MARC21/slim",
	}
	doc.MetsHdr = metsHdrOut{
		CreateDate:   createdAt.Format("2006-01-02T15:04:05Z"),
		RecordStatus: "NEW",
		Agent:        agentOut{Role: "CREATOR", Type: "ORGANIZATION", Name: "DLPS"},
	}
	doc.DmdSec = []dmdSecOut{
		{
			ID:    "DMD1",
			MdRef: &mdRefOut{MDType: "MARC", LocType: "OTHER", Href: v.Identifier()},
		},
		{
			ID:     "DMD2",
			MdWrap: &dmdWrapOut{MDType: "MARC", XMLData: rawXMLDataOut{Inner: marcXML}},
		},
	}

	doc.AmdSec.ID = "AMD1"
	doc.AmdSec.TechMD = []techMDOut{{
		ID: "TECH1",
		MdWrap: techMdWrapOut{
			MDType: "PREMIS",
			XMLData: techXMLDataOut{
				Object: premisObjectOut{
					ObjectIdentifier: objectIdentifierOut{
						ObjectIdentifierType:  "HathiTrust",
						ObjectIdentifierValue: v.Identifier(),
					},
					PreservationLevel: "1",
					SignificantProperties: []significantPropertyOut{
						{SignificantPropertiesType: "file count", SignificantPropertiesValue: strconv.Itoa(fileCount)},
						{SignificantPropertiesType: "page count", SignificantPropertiesValue: strconv.Itoa(pageCount)},
					},
				},
			},
		},
	}}

	for _, e := range events {
		premisEvent := premisEventOut{
			EventIdentifier: eventIdentifierOut{
				EventIdentifierType:  e.IdentifierType,
				EventIdentifierValue: e.Detail,
			},
			EventType:     e.Type,
			EventDateTime: e.DateTime.UTC().Format("2006-01-02T15:04:05Z"),
			EventDetail:   e.EventDetail,
			EventOutcomeInformation: eventOutcomeOut{
				EventOutcome: e.Outcome,
			},
			LinkingAgentIdentifier: linkingAgents(e),
		}
		doc.AmdSec.DigiprovMD = append(doc.AmdSec.DigiprovMD, digiprovMDOut{
			ID: "digiprov-" + e.ID,
			MdWrap: mdWrapOut{
				MDType:  "PREMIS",
				XMLData: xmlDataOut{Event: premisEvent},
			},
		})
	}

	groups, _ := v.FileGroups()
	groupNames := make([]string, 0, len(groups))
	for name := range groups {
		groupNames = append(groupNames, name)
	}
	sort.Strings(groupNames)
	for _, name := range groupNames {
		g := groups[name]
		grp := fileGrpOut{Use: g.Spec.METSUse}
		for i, f := range g.Files {
			grp.File = append(grp.File, fileOut{
				ID:     fmt.Sprintf("%s%04d", g.Spec.Prefix, i+1),
				FLocat: flocatOut{Href: f},
			})
		}
		doc.FileSec.FileGrp = append(doc.FileSec.FileGrp, grp)
	}

	doc.StructMap.Type = "physical"
	top := divOut{Type: "volume"}
	pageNumbers := make([]int, 0, len(pages))
	for n := range pages {
		pageNumbers = append(pageNumbers, n)
	}
	sort.Ints(pageNumbers)
	for _, n := range pageNumbers {
		pageDiv := divOut{Type: "page"}
		groupsOnPage := pages[n]
		names := make([]string, 0, len(groupsOnPage))
		for name := range groupsOnPage {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			for _, f := range groupsOnPage[name] {
				pageDiv.Fptr = append(pageDiv.Fptr, fptrOut{FileID: fileIDFor(groups[name], f)})
			}
		}
		top.Div = append(top.Div, pageDiv)
	}
	doc.StructMap.Div = top

	return doc
}

// linkingAgents builds the Executor agent and one software agent per
// tool for a freshly generated event. Carried-over events from a prior
// or source METS have no Executor recorded (see the event struct's
// comment) and so contribute no linking agents here.
func linkingAgents(e event) []linkingAgentOut {
	if e.Executor == "" {
		return nil
	}
	agents := []linkingAgentOut{{
		LinkingAgentIdentifierType:  "name",
		LinkingAgentIdentifierValue: e.Executor,
		LinkingAgentRole:            "Executor",
	}}
	for _, tool := range e.Tools {
		agents = append(agents, linkingAgentOut{
			LinkingAgentIdentifierType:  "software",
			LinkingAgentIdentifierValue: tool,
			LinkingAgentRole:            "software",
		})
	}
	return agents
}

func fileIDFor(g *volume.FileGroup, file string) string {
	for i, f := range g.Files {
		if f == file {
			return fmt.Sprintf("%s%04d", g.Spec.Prefix, i+1)
		}
	}
	return file
}
