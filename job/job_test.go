package job_test

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/hathitrust/feed/config"
	"github.com/hathitrust/feed/engine"
	"github.com/hathitrust/feed/job"
	"github.com/hathitrust/feed/namespace"
	"github.com/hathitrust/feed/packagetype"
	_ "github.com/hathitrust/feed/stage"
	"github.com/hathitrust/feed/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeValidZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func testSetup(t *testing.T) (*config.Config, *store.Store, *namespace.Namespace, *packagetype.PackageType) {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{}
	cfg.Staging.Ingest = filepath.Join(root, "ingest")
	cfg.Staging.Download = filepath.Join(root, "download")
	cfg.Staging.Zipfile = filepath.Join(root, "zipfile")
	cfg.Repository.ObjDir = filepath.Join(root, "obj")
	cfg.Repository.LinkDir = filepath.Join(root, "links")
	cfg.LogDir = filepath.Join(root, "logs")
	cfg.SQLiteDSN = filepath.Join(root, "feed.db")

	st, err := store.Open(cfg.SQLiteDSN)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ns := &namespace.Namespace{Identifier: "yale"}
	pt := &packagetype.PackageType{
		Identifier:     "google",
		SourceMETSFile: regexp.MustCompile(`\.xml$`),
		FileGroups: map[string]packagetype.FileGroupSpec{
			"image": {Prefix: "IMG", METSUse: "image", FilePattern: regexp.MustCompile(`_\d+\.jp2$`), Content: true},
		},
		StageMap: map[string]string{
			"new":            "unpack",
			"unpacked":       "verify_manifest",
			"verified":       "mets",
			"mets_assembled": "pack",
			"packed":         "collate",
		},
	}
	return cfg, st, ns, pt
}

func TestJobRunnableReflectsStageMap(t *testing.T) {
	cfg, st, ns, pt := testSetup(t)
	j := job.New(ns, pt, "vol1", "new", cfg, st)
	assert.True(t, j.Runnable())

	j.Status = "collated"
	assert.False(t, j.Runnable())
}

func TestJobRunSetsFailureStateOnStageError(t *testing.T) {
	cfg, st, ns, pt := testSetup(t)
	j := job.New(ns, pt, "vol2", "new", cfg, st)

	sipPath := filepath.Join(j.Volume().DownloadDirectory(), j.Volume().SIPFilename())
	require.NoError(t, os.MkdirAll(filepath.Dir(sipPath), 0755))
	require.NoError(t, os.WriteFile(sipPath, []byte("not a real zip but exists"), 0644))

	ok := j.Run(context.Background())
	assert.False(t, ok)
	assert.Equal(t, "punted", j.Status)
	assert.Error(t, j.LastError())
}

func TestJobRunAdvancesStatusOnSuccess(t *testing.T) {
	cfg, st, ns, pt := testSetup(t)
	j := job.New(ns, pt, "vol2b", "new", cfg, st)

	sipPath := filepath.Join(j.Volume().DownloadDirectory(), j.Volume().SIPFilename())
	require.NoError(t, os.MkdirAll(filepath.Dir(sipPath), 0755))
	writeValidZip(t, sipPath, map[string]string{"vol2b_000001.jp2": "image bytes"})

	ok := j.Run(context.Background())
	assert.True(t, ok)
	assert.Equal(t, "unpacked", j.Status)
	assert.NoError(t, j.LastError())
}

func TestJobRunsFullPipelineToCollated(t *testing.T) {
	cfg, st, ns, pt := testSetup(t)
	j := job.New(ns, pt, "vol5", "new", cfg, st)

	sourceMETS := `<mets>
  <dmdSec ID="DMD1">
    <mdWrap MDTYPE="MARC">
      <xmlData><record><leader>00000nam a2200000 a 4500</leader></record></xmlData>
    </mdWrap>
  </dmdSec>
  <fileSec>
    <fileGrp>
      <file ID="IMG00001" CHECKSUM="bebb32c1d5592c44df47d1826cacc09b">
        <FLocat href="vol5_00000001.jp2"/>
      </file>
    </fileGrp>
  </fileSec>
</mets>`

	sipPath := filepath.Join(j.Volume().DownloadDirectory(), j.Volume().SIPFilename())
	require.NoError(t, os.MkdirAll(filepath.Dir(sipPath), 0755))
	writeValidZip(t, sipPath, map[string]string{
		"vol5_00000001.jp2": "image bytes",
		"source.mets.xml":   sourceMETS,
	})

	ctx := context.Background()
	for j.Runnable() {
		ok := j.Run(ctx)
		require.True(t, ok, "stage failed at status %s: %v", j.Status, j.LastError())
	}
	assert.Equal(t, "collated", j.Status)

	_, err := os.Stat(j.Volume().RepositoryZipPath())
	assert.NoError(t, err)
	_, err = os.Stat(j.Volume().RepositoryMETSPath())
	assert.NoError(t, err)
}

func TestJobUpdatePersistsFeedQueue(t *testing.T) {
	cfg, _, ns, pt := testSetup(t)
	eng, err := engine.New(cfg, "")
	require.NoError(t, err)
	defer eng.Close()

	j := job.New(ns, pt, "vol3", "collated", cfg, eng.Store)
	require.NoError(t, j.Update(context.Background(), eng))

	row, ok, err := eng.Store.GetFeedQueue(context.Background(), "yale", "vol3")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "collated", row.Status)
}

func TestPoolProcessesSubmittedJobs(t *testing.T) {
	cfg, _, ns, pt := testSetup(t)
	eng, err := engine.New(cfg, "")
	require.NoError(t, err)
	defer eng.Close()

	pool := job.NewPool(eng, 2)
	j := job.New(ns, pt, "vol4", "collated", cfg, eng.Store)
	pool.Submit(j)
	pool.Close()

	done := <-pool.Results()
	assert.Equal(t, "vol4", done.Objid)
}
