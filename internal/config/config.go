// Package config loads runtime settings from defaults, an optional config
// file and PRODUCTIVITY_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "PRODUCTIVITY"

const (
	ModeRow      = "row"
	ModeDocument = "document"
)

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendGitHub = "github"
	BackendS3     = "s3"
)

type Config struct {
	// StorageKey names the local snapshot of the state.
	StorageKey string         `mapstructure:"storage_key"`
	Mode       string         `mapstructure:"mode"`
	Database   DatabaseConfig `mapstructure:"database"`
	Log        LogConfig      `mapstructure:"log"`
	Server     ServerConfig   `mapstructure:"server"`
	Session    SessionConfig  `mapstructure:"session"`
	Schedule   ScheduleConfig `mapstructure:"schedule"`
	Document   DocumentConfig `mapstructure:"document"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
	// CachePath holds the local snapshot cache. Empty means the main database.
	CachePath string `mapstructure:"cache_path"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type SessionConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// ScheduleConfig holds cron specs. An empty spec disables the job.
type ScheduleConfig struct {
	SessionSweep string `mapstructure:"session_sweep"`
	Refresh      string `mapstructure:"refresh"`
	Pull         string `mapstructure:"pull"`
}

type DocumentConfig struct {
	Backend string       `mapstructure:"backend"`
	File    FileConfig   `mapstructure:"file"`
	SQLite  SQLiteConfig `mapstructure:"sqlite"`
	GitHub  GitHubConfig `mapstructure:"github"`
	S3      S3Config     `mapstructure:"s3"`
}

type FileConfig struct {
	Path  string `mapstructure:"path"`
	Watch bool   `mapstructure:"watch"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type GitHubConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Owner   string `mapstructure:"owner"`
	Repo    string `mapstructure:"repo"`
	Path    string `mapstructure:"path"`
	Branch  string `mapstructure:"branch"`
	Token   string `mapstructure:"token"`
}

type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	Bucket    string `mapstructure:"bucket"`
	Key       string `mapstructure:"key"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

var defaults = map[string]any{
	"storage_key":              "productivity-storage",
	"mode":                     ModeRow,
	"database.path":            "productivity.db",
	"database.cache_path":      "",
	"log.level":                "info",
	"log.file":                 "",
	"log.max_size_mb":          10,
	"log.max_backups":          3,
	"log.max_age_days":         28,
	"server.addr":              "127.0.0.1:8080",
	"server.allowed_origins":   []string{},
	"session.ttl":              30 * 24 * time.Hour,
	"schedule.session_sweep":   "@hourly",
	"schedule.refresh":         "@every 5m",
	"schedule.pull":            "@every 1m",
	"document.backend":         BackendFile,
	"document.file.path":       "data.json",
	"document.file.watch":      true,
	"document.sqlite.path":     "data.json",
	"document.github.base_url": "",
	"document.github.owner":    "",
	"document.github.repo":     "",
	"document.github.path":     "data.json",
	"document.github.branch":   "main",
	"document.github.token":    "",
	"document.s3.endpoint":     "",
	"document.s3.bucket":       "",
	"document.s3.key":          "data.json",
	"document.s3.region":       "us-east-1",
	"document.s3.access_key":   "",
	"document.s3.secret_key":   "",
}

// Load reads the configuration. path may be empty, in which case only
// defaults and the environment apply. A nested key such as document.s3.bucket
// maps to PRODUCTIVITY_DOCUMENT_S3_BUCKET.
func Load(path string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.StorageKey == "" {
		return &Error{Field: "storage_key", Message: "storage key cannot be empty"}
	}
	if c.Database.Path == "" {
		return &Error{Field: "database.path", Message: "database path cannot be empty"}
	}
	if c.Session.TTL <= 0 {
		return &Error{Field: "session.ttl", Message: "session ttl must be positive"}
	}

	switch c.Mode {
	case ModeRow:
		return nil
	case ModeDocument:
	default:
		return &Error{Field: "mode", Message: fmt.Sprintf("unknown mode %q, want row or document", c.Mode)}
	}

	d := c.Document
	switch d.Backend {
	case BackendFile:
		if d.File.Path == "" {
			return &Error{Field: "document.file.path", Message: "file path cannot be empty"}
		}
	case BackendSQLite:
		if d.SQLite.Path == "" {
			return &Error{Field: "document.sqlite.path", Message: "document path cannot be empty"}
		}
	case BackendGitHub:
		if d.GitHub.Owner == "" || d.GitHub.Repo == "" || d.GitHub.Path == "" {
			return &Error{Field: "document.github", Message: "owner, repo and path are required"}
		}
		if d.GitHub.Token == "" {
			return &Error{Field: "document.github.token", Message: "token is required"}
		}
	case BackendS3:
		if d.S3.Bucket == "" || d.S3.Key == "" {
			return &Error{Field: "document.s3", Message: "bucket and key are required"}
		}
	default:
		return &Error{Field: "document.backend", Message: fmt.Sprintf("unknown backend %q", d.Backend)}
	}
	return nil
}

// Error is a validation failure of one setting.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return e.Field + ": " + e.Message
}

// IsInvalid reports whether err is a validation failure.
func IsInvalid(err error) bool {
	var e *Error
	return errors.As(err, &e)
}
