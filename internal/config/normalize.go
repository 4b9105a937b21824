package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeQueue()
	c.normalizeTransport()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("HOIST_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeQueue() {
	c.Queue.Backend = strings.ToLower(strings.TrimSpace(c.Queue.Backend))
	if c.Queue.Backend == "" {
		c.Queue.Backend = defaultQueueBackend
	}
	c.Queue.RedisAddr = strings.TrimSpace(c.Queue.RedisAddr)
	if c.Queue.RedisAddr == "" {
		c.Queue.RedisAddr = defaultRedisAddr
	}
	c.Queue.RedisKey = strings.TrimSpace(c.Queue.RedisKey)
	if c.Queue.RedisKey == "" {
		c.Queue.RedisKey = defaultRedisKey
	}
	if c.Queue.RedisPassword == "" {
		if value, ok := os.LookupEnv("HOIST_REDIS_PASSWORD"); ok {
			c.Queue.RedisPassword = value
		}
	}
}

func (c *Config) normalizeTransport() {
	if c.Transport.ProgressIntervalMS <= 0 {
		c.Transport.ProgressIntervalMS = defaultProgressIntervalMS
	}
	c.Transport.UserAgent = strings.TrimSpace(c.Transport.UserAgent)
	if c.Transport.UserAgent == "" {
		c.Transport.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("HOIST_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups < 0 {
		c.Logging.MaxBackups = 0
	}
	if c.Logging.MaxAgeDays < 0 {
		c.Logging.MaxAgeDays = 0
	}
}
