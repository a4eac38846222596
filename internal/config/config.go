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

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	ArchiveDir string `toml:"archive_dir"`
	LogDir     string `toml:"log_dir"`
}

// Mapper contains tuning for texture-coordinate correspondence mapping.
type Mapper struct {
	// UVTolerance is the chart-boundary slack applied when a query point
	// falls outside every reference triangle. Matches are still produced
	// beyond it, flagged low confidence.
	UVTolerance float64 `toml:"uv_tolerance"`
	// Workers caps the goroutines used for batch mapping. Zero means one
	// per CPU.
	Workers int `toml:"workers"`
}

// Archive contains configuration for the rig backup registry.
type Archive struct {
	Enabled bool `toml:"enabled"`
	// Keep is the number of newest backups retained per rig when pruning.
	Keep int `toml:"keep"`
	// MinFreeMiB refuses new backups when the archive volume has less
	// free space than this.
	MinFreeMiB         int64 `toml:"min_free_mib"`
	LockTimeoutSeconds int   `toml:"lock_timeout_seconds"`
}

// Watch contains configuration for watch mode.
type Watch struct {
	DebounceMS      int  `toml:"debounce_ms"`
	ArchiveOnChange bool `toml:"archive_on_change"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for rigdna.
//
// Configuration sections by subsystem:
//   - Paths: data, archive, and log directories
//   - Mapper: UV correspondence tolerances and parallelism
//   - Archive: backup registry retention and capacity limits
//   - Watch: directory watch debounce and archive-on-change
//   - Logging: log format, level, and retention
type Config struct {
	Paths   Paths   `toml:"paths"`
	Mapper  Mapper  `toml:"mapper"`
	Archive Archive `toml:"archive"`
	Watch   Watch   `toml:"watch"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/rigdna/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
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

	defaultPath, err := expandPath("~/.config/rigdna/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("rigdna.toml")
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

// EnsureDirectories creates required directories for pipeline operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.LogDir}
	if c.Archive.Enabled {
		dirs = append(dirs, c.Paths.ArchiveDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// UVTolerance returns the mapper chart tolerance at the precision the
// correspondence mapper computes in.
func (c *Config) UVTolerance() float32 {
	return float32(c.Mapper.UVTolerance)
}

// ArchiveLockTimeout returns how long pipeline operations wait on a rig
// file lock before giving up.
func (c *Config) ArchiveLockTimeout() time.Duration {
	return time.Duration(c.Archive.LockTimeoutSeconds) * time.Second
}

// WatchDebounce returns the quiet window applied before a changed file is
// re-verified.
func (c *Config) WatchDebounce() time.Duration {
	return time.Duration(c.Watch.DebounceMS) * time.Millisecond
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
