package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateTransport(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	if c.Paths.APIBind == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
		return fmt.Errorf("paths.api_bind must be host:port: %w", err)
	}
	return nil
}

func (c *Config) validateQueue() error {
	switch c.Queue.Backend {
	case QueueBackendSQLite, QueueBackendMemory:
		return nil
	case QueueBackendRedis:
		if c.Queue.RedisAddr == "" {
			return errors.New("queue.redis_addr must be set when queue.backend is redis")
		}
		if c.Queue.RedisDB < 0 {
			return errors.New("queue.redis_db must be >= 0")
		}
		return nil
	default:
		return fmt.Errorf("queue.backend: unsupported value %q (want sqlite, redis, or memory)", c.Queue.Backend)
	}
}

func (c *Config) validateTransport() error {
	if err := ensureNonNegativeMap(map[string]int{
		"transport.connect_timeout": c.Transport.ConnectTimeout,
		"transport.read_timeout":    c.Transport.ReadTimeout,
		"transport.write_timeout":   c.Transport.WriteTimeout,
		"transport.max_retries":     c.Transport.MaxRetries,
	}); err != nil {
		return err
	}
	if c.Transport.MaxRetries > maxTransportRetries {
		return fmt.Errorf("transport.max_retries must be <= %d", maxTransportRetries)
	}
	if c.Transport.ProgressIntervalMS < minProgressIntervalMS {
		return fmt.Errorf("transport.progress_interval_ms must be >= %d", minProgressIntervalMS)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

func ensureNonNegativeMap(values map[string]int) error {
	for key, value := range values {
		if value < 0 {
			return fmt.Errorf("%s must be >= 0", key)
		}
	}
	return nil
}
