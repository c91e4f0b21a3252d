package config

// ConfigSource represents where a configuration value came from.
type ConfigSource string

const (
	SourceDefault  ConfigSource = "default"
	SourceUserFile ConfigSource = "user file"
	SourceProjFile ConfigSource = "project file"
	SourceEnv      ConfigSource = "environment"
	SourceFlag     ConfigSource = "flag"
)

// ConfigWithSources holds configuration along with source information
// for each field, for the doctor report.
type ConfigWithSources struct {
	Config  *Config
	Sources map[string]ConfigSource
}

// Default values.
const (
	DefaultTasksFile       = ".tasknest/tasks.json"
	DefaultStateFile       = ".tasknest/state.json"
	DefaultLogDir          = "~/.tasknest"
	DefaultPriorityValue   = "medium"
	DefaultAuditLogEnabled = true
)

// Config holds the full configuration for tasknest.
type Config struct {
	// Paths
	TasksFile  string `toml:"tasks_file"`
	StateFile  string `toml:"state_file"`
	SchemaFile string `toml:"schema_file"`
	LogDir     string `toml:"log_dir"`

	// Tag override for a single invocation. Not persisted in config
	// files; flags and TASKNEST_TAG only.
	Tag string `toml:"-"`

	// Defaults applied to new tasks
	DefaultPriority string `toml:"default_priority"`

	// AuditLog enables the JSONL mutation log under LogDir.
	AuditLog bool `toml:"audit_log"`

	// Logging configuration
	LogLevel      string `toml:"log_level"`
	LogFormat     string `toml:"log_format"`
	LogTimestamps bool   `toml:"log_timestamps"`
	LogCaller     bool   `toml:"log_caller"`

	// Project root (computed)
	ProjectRoot string `toml:"-"`
}

// setDefaults fills cfg with the built-in defaults.
func setDefaults(cfg *Config) {
	cfg.TasksFile = DefaultTasksFile
	cfg.StateFile = DefaultStateFile
	cfg.SchemaFile = ""
	cfg.LogDir = DefaultLogDir
	cfg.DefaultPriority = DefaultPriorityValue
	cfg.AuditLog = DefaultAuditLogEnabled
	cfg.LogLevel = "info"
	cfg.LogFormat = "text"
	cfg.LogTimestamps = false
	cfg.LogCaller = false
}

// configFields returns the configurable field names for source tracking.
func configFields() []string {
	return []string{
		"tasks_file",
		"state_file",
		"schema_file",
		"log_dir",
		"default_priority",
		"audit_log",
		"log_level",
		"log_format",
		"log_timestamps",
		"log_caller",
	}
}
