package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"rigdna/internal/archive"
	"rigdna/internal/calibrate"
	"rigdna/internal/config"
	"rigdna/internal/logging"
)

type commandContext struct {
	configFlag    *string
	logLevelFlag  *string
	logFormatFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, logLevelFlag, logFormatFlag *string) *commandContext {
	return &commandContext{
		configFlag:    configFlag,
		logLevelFlag:  logLevelFlag,
		logFormatFlag: logFormatFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.TrimSpace(*c.logLevelFlag)
		}
		if c.logFormatFlag != nil && strings.TrimSpace(*c.logFormatFlag) != "" {
			cfg.Logging.Format = strings.TrimSpace(*c.logFormatFlag)
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// ensureLogger builds the shared pipeline logger lazily so commands that
// only print tables never touch the log directory.
func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	c.loggerOnce.Do(func() {
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// openArchive connects the backup registry, or returns nil when archiving
// is disabled. Callers close the returned store.
func (c *commandContext) openArchive() (*archive.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Archive.Enabled {
		return nil, nil
	}
	return archive.Open(cfg)
}

// calibrationService wires the calibrate service plus its archive store.
// The returned closer releases the store; it is safe to call when the
// store is nil.
func (c *commandContext) calibrationService() (*calibrate.Service, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, nil, err
	}
	store, err := c.openArchive()
	if err != nil {
		return nil, nil, err
	}
	closer := func() {
		if store != nil {
			_ = store.Close()
		}
	}
	svc, err := calibrate.NewService(cfg, store, logger)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return svc, closer, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
