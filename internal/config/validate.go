package config

import (
	"errors"
	"fmt"
	"net"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateNotify(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if _, _, err := net.SplitHostPort(c.Server.APIBind); err != nil {
		return fmt.Errorf("server.api_bind %q must be host:port: %w", c.Server.APIBind, err)
	}
	return ensurePositiveMap(map[string]int{
		"server.read_header_timeout": c.Server.ReadHeaderTimeout,
		"server.write_timeout":       c.Server.WriteTimeout,
		"server.shutdown_timeout":    c.Server.ShutdownTimeout,
	})
}

func (c *Config) validateStore() error {
	if c.Store.BusyTimeoutMillis < 0 {
		return errors.New("store.busy_timeout_ms must not be negative")
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.GCIntervalSeconds < 0 {
		return errors.New("cache.gc_interval_seconds must not be negative (0 disables GC)")
	}
	if c.Cache.GCDiscardRatio <= 0 || c.Cache.GCDiscardRatio >= 1 {
		return errors.New("cache.gc_discard_ratio must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateNotify() error {
	return ensurePositiveMap(map[string]int{
		"notify.history_capacity":      c.Notify.HistoryCapacity,
		"notify.subscriber_buffer":     c.Notify.SubscriberBuffer,
		"notify.ping_interval_seconds": c.Notify.PingIntervalSeconds,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json", "auto":
	default:
		return fmt.Errorf("logging.format must be console, json, or auto (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error (got %q)", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
