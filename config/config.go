// Package config loads the pipeline's global configuration file, the
// one hierarchical key-value document consulted by every other
// package. It's loaded once at startup: a single encoding/json.Unmarshal
// into a plain struct, no schema validation library, no hot reload.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hathitrust/feed/fileutil"
)

// EnvVar is the environment variable naming the config file path.
const EnvVar = "HTFEED_CONFIG"

// StagingConfig is staging.* in the config file.
type StagingConfig struct {
	Ingest    string `json:"ingest"`
	Preingest string `json:"preingest"`
	Download  string `json:"download"`
	Fetch     string `json:"fetch"`
	Zipfile   string `json:"zipfile"`
	Disk      struct {
		Ingest    string `json:"ingest"`
		Preingest string `json:"preingest"`
	} `json:"disk"`
}

// RepositoryConfig is repository.* in the config file.
type RepositoryConfig struct {
	ObjDir  string `json:"obj_dir"`
	LinkDir string `json:"link_dir"`
}

// DaemonConfig is daemon.* in the config file.
type DaemonConfig struct {
	ReleaseStates []string `json:"release_states"`
}

// DatasetConfig is dataset.* in the config file.
type DatasetConfig struct {
	Threads int `json:"threads"`
}

// PremisEventConfig is one entry of premis.<event_code>.* in the config
// file: the global catalog entry a PackageType's premis_overrides layer
// on top of.
type PremisEventConfig struct {
	Type             string   `json:"type"`
	Detail           string   `json:"detail"`
	Executor         string   `json:"executor"`
	ExecutorType     string   `json:"executor_type"`
	Tools            []string `json:"tools"`
	EventIDOverride  string   `json:"eventid_override,omitempty"`
}

// HandleDatabaseConfig is handle.database.* in the config file.
type HandleDatabaseConfig struct {
	Datasource string `json:"datasource"`
	Username   string `json:"username"`
	Password   string `json:"password"`
}

// HandleConfig is handle.* in the config file. It's a contract-only
// surface: the core records enough to hand off to the
// handle-service SQL emitter, but doesn't implement that emitter.
type HandleConfig struct {
	RootAdmin  string               `json:"root_admin"`
	LocalAdmin string               `json:"local_admin"`
	Database   HandleDatabaseConfig `json:"database"`
}

// JiraConfig is jira.* in the config file. Contract-only, as HandleConfig
// is: the JIRA/SOAP ticket-reconciliation script is an external
// collaborator.
type JiraConfig struct {
	WSDL     string `json:"wsdl"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Config is the full, immutable-after-load global configuration.
type Config struct {
	Staging    StagingConfig                `json:"staging"`
	Repository RepositoryConfig             `json:"repository"`
	Daemon     DaemonConfig                 `json:"daemon"`
	Dataset    DatasetConfig                `json:"dataset"`
	Premis     map[string]PremisEventConfig `json:"premis"`
	Xerces     string                       `json:"xerces"`
	Handle     HandleConfig                 `json:"handle"`
	Jira       JiraConfig                   `json:"jira"`
	RepoURLBase string                      `json:"repo_url_base"`

	// SQLiteDSN is the data source name for the relational store
	// (store.Store), backing premis_events/feed_queue/errors. A
	// dedicated nested key since store.Open needs a DSN from somewhere
	// and overloading Handle.Database would conflate two databases.
	SQLiteDSN string `json:"sqlite_dsn"`

	// LogDir / LogLevel / LogToStderr configure logging.New. Every
	// worker needs them, so they live on the shared config struct
	// rather than being threaded through separately.
	LogDir      string `json:"log_dir"`
	LogLevel    string `json:"log_level"`
	LogToStderr bool   `json:"log_to_stderr"`

	pathToFile string
}

// Load reads and parses the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %q: %w", path, err)
	}
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing JSON from config file %q: %w", path, err)
	}
	cfg.pathToFile = path
	cfg.expandFilePaths()
	if len(cfg.Daemon.ReleaseStates) == 0 {
		cfg.Daemon.ReleaseStates = []string{"collated", "punted"}
	}
	if cfg.Dataset.Threads <= 0 {
		cfg.Dataset.Threads = 1
	}
	return cfg, nil
}

// LoadFromEnv loads the config file named by the HTFEED_CONFIG
// environment variable.
func LoadFromEnv() (*Config, error) {
	path := os.Getenv(EnvVar)
	if path == "" {
		return nil, fmt.Errorf("%s is not set", EnvVar)
	}
	return Load(path)
}

func (cfg *Config) expandFilePaths() {
	for _, dir := range []*string{
		&cfg.Staging.Ingest, &cfg.Staging.Preingest, &cfg.Staging.Download,
		&cfg.Staging.Fetch, &cfg.Staging.Zipfile,
		&cfg.Staging.Disk.Ingest, &cfg.Staging.Disk.Preingest,
		&cfg.Repository.ObjDir, &cfg.Repository.LinkDir, &cfg.LogDir,
	} {
		if expanded, err := fileutil.ExpandTilde(*dir); err == nil {
			*dir = expanded
		}
	}
}

// LogDirectory returns the absolute path to the directory process logs
// should be written to.
func (cfg *Config) LogDirectory() string {
	dir := cfg.LogDir
	if dir == "" {
		dir = filepath.Join(cfg.Staging.Ingest, "logs")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return dir
	}
	return abs
}

// IsReleaseState reports whether status is one of the configured release
// (terminal) states.
func (cfg *Config) IsReleaseState(status string) bool {
	for _, s := range cfg.Daemon.ReleaseStates {
		if s == status {
			return true
		}
	}
	return false
}

// Get implements the lowest-priority layer of the config resolver: a
// dotted key path looked up against the parsed JSON document's raw
// value, for configuration keys that don't have a dedicated struct
// field (e.g. provider-specific keys no PackageType anticipated).
func (cfg *Config) Get(dottedKey string) (interface{}, bool) {
	raw, err := os.ReadFile(cfg.pathToFile)
	if err != nil {
		return nil, false
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, false
	}
	parts := strings.Split(dottedKey, ".")
	var cur interface{} = doc
	for _, part := range parts {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
