package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Queue selects where the persisted upload queue lives.
type Queue struct {
	Backend       string `toml:"backend"`
	ResumeOnStart bool   `toml:"resume_on_start"`
	RedisAddr     string `toml:"redis_addr"`
	RedisKey      string `toml:"redis_key"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
}

// Transport contains defaults applied to uploads that omit tuning options.
// Timeouts are expressed in seconds.
type Transport struct {
	ConnectTimeout     int    `toml:"connect_timeout"`
	ReadTimeout        int    `toml:"read_timeout"`
	WriteTimeout       int    `toml:"write_timeout"`
	MaxRetries         int    `toml:"max_retries"`
	ProgressIntervalMS int    `toml:"progress_interval_ms"`
	UserAgent          string `toml:"user_agent"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Started        bool   `toml:"started"`
	Completed      bool   `toml:"completed"`
	Errors         bool   `toml:"errors"`
	Cancelled      bool   `toml:"cancelled"`
	QueueDrained   bool   `toml:"queue_drained"`
}

// Logging contains configuration for log output and daemon log rotation.
type Logging struct {
	Format     string `toml:"format"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// Config encapsulates all configuration values for Hoist.
//
// Configuration sections by subsystem:
//   - Paths: state/log directories and API bind address
//   - Queue: persisted queue backend and cold-start behaviour
//   - Transport: default timeouts, retries, and progress cadence
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and rotation
type Config struct {
	Paths         Paths         `toml:"paths"`
	Queue         Queue         `toml:"queue"`
	Transport     Transport     `toml:"transport"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigRelativeToHome)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	if err := loadDotEnv(); err != nil {
		return nil, "", false, err
	}

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// loadDotEnv reads ./.env when present. Variables already set in the
// environment win over the file.
func loadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat .env: %w", err)
	}
	if err := godotenv.Load(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigFileName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// QueueDBPath is the SQLite database backing the persisted upload queue.
func (c *Config) QueueDBPath() string {
	return filepath.Join(c.Paths.StateDir, queueDatabaseFileName)
}

// SocketPath is the unix socket served by the daemon's IPC server.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.StateDir, socketFileName)
}

// LockPath is the flock file guarding single-instance daemon startup.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, lockFileName)
}

// PIDPath is where the running daemon records its process id.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.StateDir, pidFileName)
}

// DaemonLogPath is the rotated log file written by the daemon.
func (c *Config) DaemonLogPath() string {
	return filepath.Join(c.Paths.LogDir, daemonLogFileName)
}

// ProgressInterval returns the minimum spacing between progress events.
func (c *Config) ProgressInterval() time.Duration {
	return time.Duration(c.Transport.ProgressIntervalMS) * time.Millisecond
}

// NotificationTimeout returns the ntfy request timeout.
func (c *Config) NotificationTimeout() time.Duration {
	return time.Duration(c.Notifications.RequestTimeout) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	redacted := *c
	if redacted.Paths.APIToken != "" {
		redacted.Paths.APIToken = "<redacted>"
	}
	if redacted.Queue.RedisPassword != "" {
		redacted.Queue.RedisPassword = "<redacted>"
	}
	data, err := toml.Marshal(redacted)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
