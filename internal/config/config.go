// Package config loads the updater configuration: a YAML file validated against
// an embedded JSON schema, decoded onto built-in defaults, then overridden by
// the environment CI provides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/itsmechinmoy/dartotsu-updater/internal/artifact"
	"github.com/itsmechinmoy/dartotsu-updater/internal/config/validate"
	"gopkg.in/yaml.v3"
	k8syaml "sigs.k8s.io/yaml"
)

// DefaultConfigFile is read when no --config flag is given and the file exists.
const DefaultConfigFile = "dartotsu-updater.yml"

// DefaultBuildType is the buildTypes entry used for unknown build types.
const DefaultBuildType = "default"

// GlobalConfig holds every setting of one invocation.
type GlobalConfig struct {
	DownloadDir string               `yaml:"downloadDir"`
	CacheDir    string               `yaml:"cacheDir"`
	ReportDir   string               `yaml:"reportDir"`
	Source      SourceConfig         `yaml:"source"`
	BuildTypes  map[string]BuildType `yaml:"buildTypes"`
	Release     ReleaseConfig        `yaml:"release"`
	Upstream    UpstreamConfig       `yaml:"upstream"`
	Git         GitConfig            `yaml:"git"`
	Logging     LoggingConfig        `yaml:"logging"`
	Watch       WatchConfig          `yaml:"watch"`

	// Secrets come from the environment or flags only.
	Token              string `yaml:"-"`
	ServiceAccountJSON string `yaml:"-"`
}

type SourceConfig struct {
	Type               string            `yaml:"type"`
	ServiceAccountFile string            `yaml:"serviceAccountFile"`
	Bucket             string            `yaml:"bucket"`
	Region             string            `yaml:"region"`
	Endpoint           string            `yaml:"endpoint"`
	UsePathStyle       bool              `yaml:"usePathStyle"`
	Root               string            `yaml:"root"`
	Folders            map[string]string `yaml:"folders"`
}

// BuildType selects the folders a build type reads and whether it publishes a release.
type BuildType struct {
	Folders []string `yaml:"folders"`
	Publish *bool    `yaml:"publish"`
}

// ShouldPublish defaults to true when publish is not set.
func (b BuildType) ShouldPublish() bool {
	return b.Publish == nil || *b.Publish
}

type ReleaseConfig struct {
	Repo   string   `yaml:"repo"`
	APIURL string   `yaml:"apiURL"`
	Order  []string `yaml:"order"`
}

type UpstreamConfig struct {
	Repo          string   `yaml:"repo"`
	Workflow      string   `yaml:"workflow"`
	Markers       []string `yaml:"markers"`
	CommitsToScan int      `yaml:"commitsToScan"`
}

type GitConfig struct {
	Enabled       bool   `yaml:"enabled"`
	WorkDir       string `yaml:"workDir"`
	UserName      string `yaml:"userName"`
	UserEmail     string `yaml:"userEmail"`
	CommitMessage string `yaml:"commitMessage"`
	Remote        string `yaml:"remote"`
	Branch        string `yaml:"branch"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type WatchConfig struct {
	PollInterval time.Duration `yaml:"pollInterval"`
	MaxAttempts  int           `yaml:"maxAttempts"`
}

// Folder is a resolved folder key and its backend location.
type Folder struct {
	Key      string
	Location string
}

func boolPtr(b bool) *bool { return &b }

// defaultCacheDir keeps cached release assets out of the git work tree so
// they are never committed with the downloads.
func defaultCacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "dartotsu-updater", "release-assets")
}

// DefaultConfig returns the settings the Dartotsu release pipeline runs with.
func DefaultConfig() *GlobalConfig {
	both := []string{"apks", "others"}
	others := []string{"others"}
	return &GlobalConfig{
		DownloadDir: "downloads",
		CacheDir:    defaultCacheDir(),
		Source: SourceConfig{
			Type: "drive",
			Folders: map[string]string{
				"apks":   "1S4QzdKz7ZofhiF5GAvjMdBvYK7YhndKM",
				"others": "1nWYex54zd58SVitJUCva91_4k1PPTdP3",
			},
		},
		BuildTypes: map[string]BuildType{
			"build.all":     {Folders: both},
			"build.apk":     {Folders: []string{"apks"}},
			"build.windows": {Folders: others},
			"build.linux":   {Folders: others},
			"build.ios":     {Folders: others},
			"build.macos":   {Folders: others},
			"update_note":   {Folders: both, Publish: boolPtr(false)},
			"default":       {Folders: both},
		},
		Release: ReleaseConfig{
			Repo:   "itsmechinmoy/dartotsu-updater",
			APIURL: "https://api.github.com",
			Order:  append([]string(nil), artifact.DefaultOrder...),
		},
		Upstream: UpstreamConfig{
			Repo:     "aayush2622/Dartotsu",
			Workflow: "dart.yml",
			Markers: []string{
				"build.all", "build.apk", "build.windows",
				"build.linux", "build.ios", "build.macos",
			},
			CommitsToScan: 10,
		},
		Git: GitConfig{
			Enabled:       true,
			WorkDir:       ".",
			UserName:      "itsmechinmoy",
			UserEmail:     "167056923+itsmechinmoy@users.noreply.github.com",
			CommitMessage: "Add build files",
			Remote:        "origin",
			Branch:        "main",
		},
		Logging: LoggingConfig{Level: "info"},
		Watch: WatchConfig{
			PollInterval: 30 * time.Second,
			MaxAttempts:  60,
		},
	}
}

// Load reads path (or DefaultConfigFile when path is empty and the file
// exists), applies environment overrides and validates the result.
func Load(path string) (*GlobalConfig, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		cfg, err = parseYAMLConfig(data)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// defaults only
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseYAMLConfig validates data against the config schema and decodes it onto the defaults.
func parseYAMLConfig(data []byte) (*GlobalConfig, error) {
	cfg := DefaultConfig()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}

	jsonData, err := k8syaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if string(jsonData) != "null" {
		if err := validate.ValidateConfigJSON(jsonData); err != nil {
			return nil, err
		}
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides settings from the variables GitHub Actions provides.
func (c *GlobalConfig) ApplyEnv(getenv func(string) string) {
	if v := getenv("GITHUB_REPOSITORY"); v != "" {
		c.Release.Repo = v
	}
	if v := getenv("GITHUB_API_URL"); v != "" {
		c.Release.APIURL = v
	}
	if v := getenv("GITHUB_TOKEN"); v != "" {
		c.Token = v
	}
	if v := getenv("SERVICE_ACCOUNT_JSON"); v != "" {
		c.ServiceAccountJSON = v
	}
}

// Validate checks cross-field constraints the schema cannot express.
func (c *GlobalConfig) Validate() error {
	var problems []string

	switch c.Source.Type {
	case "drive":
	case "gcs", "s3":
		if c.Source.Bucket == "" {
			problems = append(problems, fmt.Sprintf("source.bucket is required for %s", c.Source.Type))
		}
	case "fs":
		if c.Source.Root == "" {
			problems = append(problems, "source.root is required for fs")
		}
	default:
		problems = append(problems, fmt.Sprintf("unsupported source type %q", c.Source.Type))
	}

	if _, ok := c.BuildTypes[DefaultBuildType]; !ok {
		problems = append(problems, "buildTypes must define a \"default\" entry")
	}
	names := make([]string, 0, len(c.BuildTypes))
	for name := range c.BuildTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, key := range c.BuildTypes[name].Folders {
			if _, ok := c.Source.Folders[key]; !ok {
				problems = append(problems, fmt.Sprintf("build type %s references unknown folder %q", name, key))
			}
		}
	}

	if c.DownloadDir == "" {
		problems = append(problems, "downloadDir must not be empty")
	}
	if c.Watch.PollInterval <= 0 {
		problems = append(problems, "watch.pollInterval must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// BuildTypeFor returns the entry for name, falling back to the default entry.
func (c *GlobalConfig) BuildTypeFor(name string) BuildType {
	if bt, ok := c.BuildTypes[name]; ok {
		return bt
	}
	return c.BuildTypes[DefaultBuildType]
}

// FoldersFor resolves the folders a build type reads, in configured order.
func (c *GlobalConfig) FoldersFor(name string) ([]Folder, error) {
	bt := c.BuildTypeFor(name)
	out := make([]Folder, 0, len(bt.Folders))
	for _, key := range bt.Folders {
		loc, ok := c.Source.Folders[key]
		if !ok {
			return nil, fmt.Errorf("build type %s references unknown folder %q", name, key)
		}
		out = append(out, Folder{Key: key, Location: loc})
	}
	return out, nil
}

// PresentationOrder returns the configured asset order.
func (c *GlobalConfig) PresentationOrder() artifact.Order {
	return artifact.Order(c.Release.Order)
}

// ServiceAccount returns the service account key, preferring the inline JSON
// over source.serviceAccountFile.
func (c *GlobalConfig) ServiceAccount() ([]byte, error) {
	if c.ServiceAccountJSON != "" {
		return []byte(c.ServiceAccountJSON), nil
	}
	if c.Source.ServiceAccountFile == "" {
		return nil, nil
	}
	data, err := os.ReadFile(c.Source.ServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("reading service account file: %w", err)
	}
	return data, nil
}
