// Package config loads the sync configuration file.
package config

import "time"

const (
	BackendDrive = "drive"
	BackendMinio = "minio"
	BackendFS    = "fs"

	OnErrorExit     = "exit"
	OnErrorContinue = "continue"

	DefaultPath            = "./config.json"
	DefaultCredentialsFile = "./service-account.json"
	DefaultSchedule        = "@every 5m"
	DefaultIntervalDays    = 10
	DefaultJournalPath     = "csync.db"
)

type Config struct {
	FolderID     string            `yaml:"folder_id"`
	FileMappings map[string]string `yaml:"file_mappings"`
	Backup       BackupConfig      `yaml:"backup"`
	Sync         SyncConfig        `yaml:"sync"`
	Remote       RemoteConfig      `yaml:"remote"`
	Journal      JournalConfig     `yaml:"journal"`
	Logging      LoggingConfig     `yaml:"logging"`
}

type BackupConfig struct {
	FolderID     string `yaml:"folder_id"`
	IntervalDays int    `yaml:"interval_days"`
	TempDir      string `yaml:"temp_dir"`
}

// Interval is the minimum age of the newest backup before another is made.
func (b BackupConfig) Interval() time.Duration {
	return time.Duration(b.IntervalDays) * 24 * time.Hour
}

// Enabled reports whether a backup folder is configured.
func (b BackupConfig) Enabled() bool {
	return b.FolderID != ""
}

type SyncConfig struct {
	Schedule string `yaml:"schedule"` // cron spec, e.g. "@every 5m"
	OnError  string `yaml:"on_error"` // "exit", "continue"
	Watch    bool   `yaml:"watch"`
}

type RemoteConfig struct {
	Backend         string      `yaml:"backend"` // "drive", "minio", "fs"
	CredentialsFile string      `yaml:"credentials_file"`
	Minio           MinioConfig `yaml:"minio"`
}

type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Secure    *bool  `yaml:"secure"`
}

// UseTLS defaults to true when unset.
func (m MinioConfig) UseTLS() bool {
	return m.Secure == nil || *m.Secure
}

type JournalConfig struct {
	Path     string `yaml:"path"`
	Disabled bool   `yaml:"disabled"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // "info", "debug", etc.
	Format string `yaml:"format"` // "text", "json"
}
