package config

const (
	defaultDataDir            = "~/.local/share/rigdna"
	defaultArchiveDir         = "~/.local/share/rigdna/archive"
	defaultLogDir             = "~/.local/share/rigdna/logs"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultLogRetentionDays   = 60
	defaultUVTolerance        = 0.001
	defaultArchiveKeep        = 5
	defaultArchiveMinFreeMiB  = 256
	defaultLockTimeoutSeconds = 10
	defaultWatchDebounceMS    = 500
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			ArchiveDir: defaultArchiveDir,
			LogDir:     defaultLogDir,
		},
		Mapper: Mapper{
			UVTolerance: defaultUVTolerance,
		},
		Archive: Archive{
			Enabled:            true,
			Keep:               defaultArchiveKeep,
			MinFreeMiB:         defaultArchiveMinFreeMiB,
			LockTimeoutSeconds: defaultLockTimeoutSeconds,
		},
		Watch: Watch{
			DebounceMS: defaultWatchDebounceMS,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
