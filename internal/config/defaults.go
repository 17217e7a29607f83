package config

const (
	defaultLibraryDir       = "~/library"
	defaultPeopleDir        = "People"
	defaultStateDir         = "~/.local/share/curator"
	defaultLogDir           = "~/.local/share/curator/logs"
	defaultParseConcurrency = 4
	defaultWorkers          = 16
	defaultIntervalSeconds  = 3600
	defaultWatchEnabled     = true
	defaultWatchDebounceMS  = 500
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"

	// maxParseConcurrency bounds the gate capacity; descriptor parsing is
	// I/O bound and more permits than this only thrash the disk.
	maxParseConcurrency = 64
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir: defaultLibraryDir,
			PeopleDir:  defaultPeopleDir,
			StateDir:   defaultStateDir,
			LogDir:     defaultLogDir,
		},
		Refresh: Refresh{
			ParseConcurrency: defaultParseConcurrency,
			Workers:          defaultWorkers,
			IntervalSeconds:  defaultIntervalSeconds,
		},
		Watch: Watch{
			Enabled:    defaultWatchEnabled,
			DebounceMS: defaultWatchDebounceMS,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
