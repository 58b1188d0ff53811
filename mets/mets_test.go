package mets_test

import (
	"context"
	"encoding/xml"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/hathitrust/feed/config"
	"github.com/hathitrust/feed/mets"
	"github.com/hathitrust/feed/namespace"
	"github.com/hathitrust/feed/packagetype"
	"github.com/hathitrust/feed/store"
	"github.com/hathitrust/feed/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testVolume(t *testing.T, objid string) (*volume.Volume, string) {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{}
	cfg.Staging.Ingest = filepath.Join(root, "ingest")
	cfg.Staging.Zipfile = filepath.Join(root, "zipfile")
	cfg.Repository.ObjDir = filepath.Join(root, "obj")
	cfg.Repository.LinkDir = filepath.Join(root, "links")
	cfg.Premis = map[string]config.PremisEventConfig{
		"ingest": {
			Type:     "ingestion",
			Detail:   "copied to repository storage",
			Executor: "HathiTrust",
			Tools:    []string{"feed"},
		},
	}

	ns := &namespace.Namespace{Identifier: "yale"}
	pt := &packagetype.PackageType{
		Identifier:     "google",
		SourceMETSFile: regexp.MustCompile(`_marc\.xml$`),
		FileGroups: map[string]packagetype.FileGroupSpec{
			"image": {
				Prefix:      "IMG",
				METSUse:     "image",
				FilePattern: regexp.MustCompile(`_\d+\.jp2$`),
				Content:     true,
			},
			"ocr": {
				Prefix:      "OCR",
				METSUse:     "ocr",
				FilePattern: regexp.MustCompile(`_\d+\.txt$`),
				Content:     true,
			},
		},
		PremisEvents: []string{"ingest"},
	}

	st, err := store.Open(filepath.Join(root, "feed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	v := volume.New(ns, pt, objid, cfg, st)
	stagingDir := v.StagingDirectory()
	require.NoError(t, os.MkdirAll(stagingDir, 0755))
	require.NoError(t, os.MkdirAll(filepath.Dir(v.METSPath()), 0755))
	writeFile(t, stagingDir, objid+"_marc.xml", `<mets>
  <dmdSec ID="DMD1">
    <mdWrap MDTYPE="MARC">
      <xmlData><record><leader>00000nam a2200000 a 4500</leader></record></xmlData>
    </mdWrap>
  </dmdSec>
</mets>`)
	return v, stagingDir
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

type parsedDoc struct {
	XMLName xml.Name `xml:"mets"`
	ObjID   string   `xml:"OBJID,attr"`
	MetsHdr struct {
		CreateDate   string `xml:"CREATEDATE,attr"`
		RecordStatus string `xml:"RECORDSTATUS,attr"`
		Agent        struct {
			Role string `xml:"ROLE,attr"`
			Type string `xml:"TYPE,attr"`
			Name string `xml:"name"`
		} `xml:"agent"`
	} `xml:"metsHdr"`
	DmdSec []struct {
		ID    string `xml:"ID,attr"`
		MdRef *struct {
			MDType string `xml:"MDTYPE,attr"`
			Href   string `xml:"href,attr"`
		} `xml:"mdRef"`
		MdWrap *struct {
			MDType string `xml:"MDTYPE,attr"`
		} `xml:"mdWrap"`
	} `xml:"dmdSec"`
	AmdSec struct {
		TechMD []struct {
			MdWrap struct {
				XMLData struct {
					Object struct {
						PreservationLevel     string `xml:"preservationLevel"`
						SignificantProperties []struct {
							Type  string `xml:"significantPropertiesType"`
							Value string `xml:"significantPropertiesValue"`
						} `xml:"significantProperties"`
					} `xml:"object"`
				} `xml:"xmlData"`
			} `xml:"mdWrap"`
		} `xml:"techMD"`
		DigiprovMD []struct {
			ID     string `xml:"ID,attr"`
			MdWrap struct {
				XMLData struct {
					Event struct {
						EventIdentifier struct {
							Type  string `xml:"eventIdentifierType"`
							Value string `xml:"eventIdentifierValue"`
						} `xml:"eventIdentifier"`
						EventType              string `xml:"eventType"`
						EventDateTime          string `xml:"eventDateTime"`
						EventDetail            string `xml:"eventDetail"`
						LinkingAgentIdentifier []struct {
							Type  string `xml:"linkingAgentIdentifierType"`
							Value string `xml:"linkingAgentIdentifierValue"`
							Role  string `xml:"linkingAgentRole"`
						} `xml:"linkingAgentIdentifier"`
					} `xml:"event"`
				} `xml:"xmlData"`
			} `xml:"mdWrap"`
		} `xml:"digiprovMD"`
	} `xml:"amdSec"`
	FileSec struct {
		FileGrp []struct {
			Use  string `xml:"USE,attr"`
			File []struct {
				ID string `xml:"ID,attr"`
			} `xml:"file"`
		} `xml:"fileGrp"`
	} `xml:"fileSec"`
	StructMap struct {
		Div struct {
			Div []struct {
				Fptr []struct {
					FileID string `xml:"FILEID,attr"`
				} `xml:"fptr"`
			} `xml:"div"`
		} `xml:"div"`
	} `xml:"structMap"`
}

func TestBuildIncludesRecordedEventAndFileSec(t *testing.T) {
	v, dir := testVolume(t, "vol1")
	writeFile(t, dir, "vol1_000001.jp2", "image bytes")
	writeFile(t, dir, "vol1_000001.txt", "ocr text")

	ctx := context.Background()
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, v.RecordPremisEvent(ctx, "ingest", date, "success"))

	a := mets.New(v, "")
	out, err := a.Build(ctx)
	require.NoError(t, err)

	var doc parsedDoc
	require.NoError(t, xml.Unmarshal(out, &doc))

	assert.Equal(t, "yale.vol1", doc.ObjID)
	require.Len(t, doc.AmdSec.DigiprovMD, 1)
	ev := doc.AmdSec.DigiprovMD[0].MdWrap.XMLData.Event
	assert.Equal(t, "ingestion", ev.EventType)
	assert.Equal(t, "copied to repository storage", ev.EventDetail)
	require.Len(t, ev.LinkingAgentIdentifier, 2)
	assert.Equal(t, "Executor", ev.LinkingAgentIdentifier[0].Role)
	assert.Equal(t, "HathiTrust", ev.LinkingAgentIdentifier[0].Value)
	assert.Equal(t, "software", ev.LinkingAgentIdentifier[1].Role)
	assert.Equal(t, "feed", ev.LinkingAgentIdentifier[1].Value)

	require.Len(t, doc.FileSec.FileGrp, 2)
	require.Len(t, doc.StructMap.Div.Div, 1)
	assert.Len(t, doc.StructMap.Div.Div[0].Fptr, 2)
}

func TestBuildPopulatesHeaderDmdSecAndTechMD(t *testing.T) {
	v, dir := testVolume(t, "vol6")
	writeFile(t, dir, "vol6_000001.jp2", "image bytes")
	writeFile(t, dir, "vol6_000001.txt", "ocr text")

	ctx := context.Background()
	require.NoError(t, v.RecordPremisEvent(ctx, "ingest", time.Now().UTC(), "success"))

	a := mets.New(v, "")
	out, err := a.Build(ctx)
	require.NoError(t, err)

	var doc parsedDoc
	require.NoError(t, xml.Unmarshal(out, &doc))

	assert.Equal(t, "NEW", doc.MetsHdr.RecordStatus)
	assert.NotEmpty(t, doc.MetsHdr.CreateDate)
	assert.Equal(t, "CREATOR", doc.MetsHdr.Agent.Role)
	assert.Equal(t, "ORGANIZATION", doc.MetsHdr.Agent.Type)
	assert.Equal(t, "DLPS", doc.MetsHdr.Agent.Name)

	require.Len(t, doc.DmdSec, 2)
	require.NotNil(t, doc.DmdSec[0].MdRef)
	assert.Equal(t, "MARC", doc.DmdSec[0].MdRef.MDType)
	require.NotNil(t, doc.DmdSec[1].MdWrap)
	assert.Equal(t, "MARC", doc.DmdSec[1].MdWrap.MDType)

	require.Len(t, doc.AmdSec.TechMD, 1)
	obj := doc.AmdSec.TechMD[0].MdWrap.XMLData.Object
	assert.Equal(t, "1", obj.PreservationLevel)
	require.Len(t, obj.SignificantProperties, 2)
	assert.Equal(t, "file count", obj.SignificantProperties[0].Type)
	assert.Equal(t, "2", obj.SignificantProperties[0].Value)
	assert.Equal(t, "page count", obj.SignificantProperties[1].Type)
	assert.Equal(t, "1", obj.SignificantProperties[1].Value)

	ev := doc.AmdSec.DigiprovMD[0].MdWrap.XMLData.Event
	assert.Equal(t, "UUID", ev.EventIdentifier.Type)
	assert.NotEmpty(t, ev.EventIdentifier.Value)
}

func TestBuildFailsWithMissingMARC(t *testing.T) {
	v, dir := testVolume(t, "vol7")
	writeFile(t, dir, "vol7_000001.jp2", "image bytes")
	require.NoError(t, os.Remove(filepath.Join(dir, "vol7_marc.xml")))
	writeFile(t, dir, "vol7_marc.xml", `<mets></mets>`)

	ctx := context.Background()
	require.NoError(t, v.RecordPremisEvent(ctx, "ingest", time.Now().UTC(), "success"))

	a := mets.New(v, "")
	_, err := a.Build(ctx)
	require.Error(t, err)
}

func TestBuildFailsWithMissingImageGroup(t *testing.T) {
	root := t.TempDir()
	cfg := &config.Config{}
	cfg.Staging.Ingest = filepath.Join(root, "ingest")
	cfg.Staging.Zipfile = filepath.Join(root, "zipfile")
	cfg.Premis = map[string]config.PremisEventConfig{
		"ingest": {Type: "ingestion", Detail: "copied to repository storage", Executor: "HathiTrust", Tools: []string{"feed"}},
	}

	ns := &namespace.Namespace{Identifier: "yale"}
	pt := &packagetype.PackageType{
		Identifier:     "google",
		SourceMETSFile: regexp.MustCompile(`_marc\.xml$`),
		FileGroups: map[string]packagetype.FileGroupSpec{
			"ocr": {Prefix: "OCR", METSUse: "ocr", FilePattern: regexp.MustCompile(`_\d+\.txt$`), Content: true},
		},
		PremisEvents: []string{"ingest"},
	}

	st, err := store.Open(filepath.Join(root, "feed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	v := volume.New(ns, pt, "vol8", cfg, st)
	dir := v.StagingDirectory()
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.MkdirAll(filepath.Dir(v.METSPath()), 0755))
	writeFile(t, dir, "vol8_marc.xml", `<mets>
  <dmdSec ID="DMD1">
    <mdWrap MDTYPE="MARC">
      <xmlData><record><leader>00000nam a2200000 a 4500</leader></record></xmlData>
    </mdWrap>
  </dmdSec>
</mets>`)
	writeFile(t, dir, "vol8_000001.txt", "ocr text")

	ctx := context.Background()
	require.NoError(t, v.RecordPremisEvent(ctx, "ingest", time.Now().UTC(), "success"))

	a := mets.New(v, "")
	_, err = a.Build(ctx)
	require.Error(t, err)
}

func TestBuildSubstitutesVolumeArtistExecutor(t *testing.T) {
	v, dir := testVolume(t, "vol5")
	writeFile(t, dir, "vol5_000001.jp2", "image bytes")
	v.Namespace().Config = map[string]interface{}{"artist": "acme digitization"}
	v.PackageType().PremisOverrides = map[string]packagetype.EventOverride{
		"ingest": {Executor: "VOLUME_ARTIST"},
	}

	ctx := context.Background()
	require.NoError(t, v.RecordPremisEvent(ctx, "ingest", time.Now().UTC(), "success"))

	a := mets.New(v, "")
	out, err := a.Build(ctx)
	require.NoError(t, err)

	var doc parsedDoc
	require.NoError(t, xml.Unmarshal(out, &doc))
	ev := doc.AmdSec.DigiprovMD[0].MdWrap.XMLData.Event
	require.NotEmpty(t, ev.LinkingAgentIdentifier)
	assert.Equal(t, "acme digitization", ev.LinkingAgentIdentifier[0].Value)
}

func TestBuildAssignsSequentialDeterministicIDs(t *testing.T) {
	v, dir := testVolume(t, "vol2")
	writeFile(t, dir, "vol2_000001.jp2", "image bytes")

	ctx := context.Background()
	require.NoError(t, v.RecordPremisEvent(ctx, "ingest", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "success"))

	a := mets.New(v, "")
	out1, err := a.Build(ctx)
	require.NoError(t, err)
	out2, err := a.Build(ctx)
	require.NoError(t, err)
	assert.Equal(t, out1, out2)
}

func TestWriteAndValidateWithoutXercesWritesFile(t *testing.T) {
	v, dir := testVolume(t, "vol3")
	writeFile(t, dir, "vol3_000001.jp2", "image bytes")

	ctx := context.Background()
	require.NoError(t, v.RecordPremisEvent(ctx, "ingest", time.Now().UTC(), "success"))

	a := mets.New(v, "")
	require.NoError(t, a.WriteAndValidate(ctx))

	_, err := os.Stat(v.METSPath())
	assert.NoError(t, err)
}

func TestWriteAndValidateRunsXercesAndReportsFailure(t *testing.T) {
	v, dir := testVolume(t, "vol4")
	writeFile(t, dir, "vol4_000001.jp2", "image bytes")

	ctx := context.Background()
	require.NoError(t, v.RecordPremisEvent(ctx, "ingest", time.Now().UTC(), "success"))

	a := mets.New(v, "/bin/false")
	err := a.WriteAndValidate(ctx)
	require.Error(t, err)
}
