package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/robfig/cron/v3"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// fs is overridden with afero.NewMemMapFs() in tests.
var fs = afero.NewOsFs()

var (
	ErrNoFolder   = errors.New("folder_id is required")
	ErrNoMappings = errors.New("file_mappings must not be empty")
)

// matches $(VAR_NAME)
var envPattern = regexp.MustCompile(`\$\(([A-Za-z0-9_]+)\)`)

func expandEnvVars(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(m string) string {
		return os.Getenv(envPattern.FindStringSubmatch(m)[1])
	})
}

// Load reads, expands and validates the config file at path. JSON and YAML
// documents are both accepted.
func Load(path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a config document and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Backup.IntervalDays == 0 {
		c.Backup.IntervalDays = DefaultIntervalDays
	}
	if c.Backup.TempDir == "" {
		c.Backup.TempDir = os.TempDir()
	}
	if c.Sync.Schedule == "" {
		c.Sync.Schedule = DefaultSchedule
	}
	if c.Sync.OnError == "" {
		c.Sync.OnError = OnErrorExit
	}
	if c.Remote.Backend == "" {
		c.Remote.Backend = BackendDrive
	}
	if c.Remote.CredentialsFile == "" {
		c.Remote.CredentialsFile = DefaultCredentialsFile
	}
	if c.Journal.Path == "" {
		c.Journal.Path = DefaultJournalPath
	}
}

func (c *Config) expandPaths() error {
	for name, p := range c.FileMappings {
		expanded, err := homedir.Expand(p)
		if err != nil {
			return fmt.Errorf("expanding path for %s: %w", name, err)
		}
		c.FileMappings[name] = expanded
	}

	for _, p := range []*string{&c.Backup.TempDir, &c.Remote.CredentialsFile, &c.Journal.Path} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("expanding path %s: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks required keys and enum values.
func (c *Config) Validate() error {
	if c.FolderID == "" {
		return ErrNoFolder
	}
	if len(c.FileMappings) == 0 {
		return ErrNoMappings
	}
	for name, p := range c.FileMappings {
		if name == "" || p == "" {
			return fmt.Errorf("file_mappings: empty name or path (%q: %q)", name, p)
		}
	}
	if c.Backup.IntervalDays < 0 {
		return fmt.Errorf("backup.interval_days must be positive, got %d", c.Backup.IntervalDays)
	}
	if _, err := cron.ParseStandard(c.Sync.Schedule); err != nil {
		return fmt.Errorf("sync.schedule %q: %w", c.Sync.Schedule, err)
	}

	switch c.Sync.OnError {
	case OnErrorExit, OnErrorContinue:
	default:
		return fmt.Errorf("sync.on_error: unknown policy %q", c.Sync.OnError)
	}

	switch c.Remote.Backend {
	case BackendDrive, BackendFS:
	case BackendMinio:
		if c.Remote.Minio.Endpoint == "" || c.Remote.Minio.Bucket == "" {
			return errors.New("remote.minio: endpoint and bucket are required")
		}
	default:
		return fmt.Errorf("remote.backend: unknown backend %q", c.Remote.Backend)
	}
	return nil
}
