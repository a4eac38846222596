package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeMapper()
	c.normalizeArchive()
	c.normalizeWatch()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ArchiveDir) == "" {
		c.Paths.ArchiveDir = defaultArchiveDir
	}
	if c.Paths.ArchiveDir, err = expandPath(c.Paths.ArchiveDir); err != nil {
		return fmt.Errorf("paths.archive_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeMapper() {
	if c.Mapper.UVTolerance == 0 {
		c.Mapper.UVTolerance = defaultUVTolerance
	}
	if c.Mapper.Workers < 0 {
		c.Mapper.Workers = 0
	}
}

func (c *Config) normalizeArchive() {
	if c.Archive.Keep <= 0 {
		c.Archive.Keep = defaultArchiveKeep
	}
	if c.Archive.MinFreeMiB < 0 {
		c.Archive.MinFreeMiB = 0
	}
	if c.Archive.LockTimeoutSeconds <= 0 {
		c.Archive.LockTimeoutSeconds = defaultLockTimeoutSeconds
	}
}

func (c *Config) normalizeWatch() {
	if c.Watch.DebounceMS <= 0 {
		c.Watch.DebounceMS = defaultWatchDebounceMS
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json", "auto":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
