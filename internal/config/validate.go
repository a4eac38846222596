package config

import (
	"errors"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateMapper(); err != nil {
		return err
	}
	if err := c.validateArchive(); err != nil {
		return err
	}
	if err := c.validateWatch(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateMapper() error {
	if c.Mapper.UVTolerance <= 0 {
		return errors.New("mapper.uv_tolerance must be positive")
	}
	if c.Mapper.UVTolerance >= 1 {
		return errors.New("mapper.uv_tolerance must be below 1 (texture coordinates span [0,1])")
	}
	if c.Mapper.Workers < 0 {
		return errors.New("mapper.workers must be >= 0")
	}
	return nil
}

func (c *Config) validateArchive() error {
	if c.Archive.Keep < 1 {
		return errors.New("archive.keep must be >= 1")
	}
	if c.Archive.MinFreeMiB < 0 {
		return errors.New("archive.min_free_mib must be >= 0")
	}
	if c.Archive.LockTimeoutSeconds <= 0 {
		return errors.New("archive.lock_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateWatch() error {
	if c.Watch.DebounceMS <= 0 {
		return errors.New("watch.debounce_ms must be positive")
	}
	return nil
}
