package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Load loads configuration from multiple sources in priority order:
// 1. Defaults
// 2. User config file (~/.tasknest/tasknest.toml or OS-specific config dir)
// 3. Project config file (tasknest.toml or .tasknest.toml in current directory)
// 4. Environment variables
// 5. CLI flags
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	cws, err := LoadWithSources(fs, args)
	if err != nil {
		return nil, err
	}
	return cws.Config, nil
}

// LoadWithSources loads configuration and tracks the source of each
// value. The doctor command uses the source map to explain where a
// setting came from.
func LoadWithSources(fs *flag.FlagSet, args []string) (*ConfigWithSources, error) {
	sources := make(map[string]ConfigSource)
	cfg := &Config{}

	// 1. Defaults
	setDefaults(cfg)
	for _, field := range configFields() {
		sources[field] = SourceDefault
	}

	// 2. User config file
	if userFile := findUserConfigFile(); userFile != "" {
		if err := loadConfigFile(cfg, userFile, sources, SourceUserFile); err != nil {
			return nil, fmt.Errorf("loading user config file %s: %w", userFile, err)
		}
	}

	// 3. Project config file (overrides user config)
	if projFile := findProjectConfigFile(); projFile != "" {
		if err := loadConfigFile(cfg, projFile, sources, SourceProjFile); err != nil {
			return nil, fmt.Errorf("loading project config file %s: %w", projFile, err)
		}
	}

	// 4. Environment
	loadFromEnv(cfg, sources)

	// 5. CLI flags (they override everything)
	if err := parseFlags(cfg, fs, args, sources); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	// 6. Derived values
	if err := finalizeConfig(cfg); err != nil {
		return nil, fmt.Errorf("finalizing config: %w", err)
	}

	return &ConfigWithSources{Config: cfg, Sources: sources}, nil
}

// loadConfigFile merges one TOML file into cfg, marking every key the
// file actually defines with the given source.
func loadConfigFile(cfg *Config, path string, sources map[string]ConfigSource, source ConfigSource) error {
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return err
	}
	for _, keys := range meta.Keys() {
		sources[keys.String()] = source
	}
	return nil
}

// loadFromEnv overrides config from TASKNEST_* environment variables.
func loadFromEnv(cfg *Config, sources map[string]ConfigSource) {
	set := func(field string) {
		sources[field] = SourceEnv
	}
	if v := os.Getenv("TASKNEST_TASKS"); v != "" {
		cfg.TasksFile = v
		set("tasks_file")
	}
	if v := os.Getenv("TASKNEST_STATE"); v != "" {
		cfg.StateFile = v
		set("state_file")
	}
	if v := os.Getenv("TASKNEST_SCHEMA"); v != "" {
		cfg.SchemaFile = v
		set("schema_file")
	}
	if v := os.Getenv("TASKNEST_LOG_DIR"); v != "" {
		cfg.LogDir = v
		set("log_dir")
	}
	if v := os.Getenv("TASKNEST_TAG"); v != "" {
		cfg.Tag = v
	}
	if v := os.Getenv("TASKNEST_DEFAULT_PRIORITY"); v != "" {
		cfg.DefaultPriority = v
		set("default_priority")
	}
	if v := os.Getenv("TASKNEST_AUDIT_LOG"); v != "" {
		cfg.AuditLog = boolFromString(v)
		set("audit_log")
	}
	if v := os.Getenv("TASKNEST_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
		set("log_level")
	}
	if v := os.Getenv("TASKNEST_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
		set("log_format")
	}
	if v := os.Getenv("TASKNEST_LOG_TIMESTAMPS"); v != "" {
		cfg.LogTimestamps = boolFromString(v)
		set("log_timestamps")
	}
	if v := os.Getenv("TASKNEST_LOG_CALLER"); v != "" {
		cfg.LogCaller = boolFromString(v)
		set("log_caller")
	}
}

// parseFlags defines and parses the global CLI flags.
func parseFlags(cfg *Config, fs *flag.FlagSet, args []string, sources map[string]ConfigSource) error {
	if fs == nil {
		fs = flag.NewFlagSet("tasknest", flag.ContinueOnError)
	}

	fs.StringVar(&cfg.TasksFile, "file", cfg.TasksFile, "Path to task file")
	fs.StringVar(&cfg.StateFile, "state-file", cfg.StateFile, "Path to state file")
	fs.StringVar(&cfg.SchemaFile, "schema", cfg.SchemaFile, "Path to JSON Schema override")
	fs.StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "Audit log directory")
	fs.StringVar(&cfg.Tag, "tag", cfg.Tag, "Tag to operate on (default: current tag)")
	fs.StringVar(&cfg.DefaultPriority, "default-priority", cfg.DefaultPriority, "Priority for new tasks (high, medium, low)")
	fs.BoolVar(&cfg.AuditLog, "audit-log", cfg.AuditLog, "Write a JSONL audit log of mutations")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (text, json, logfmt)")
	fs.BoolVar(&cfg.LogTimestamps, "log-timestamps", cfg.LogTimestamps, "Show timestamps in logs")
	fs.BoolVar(&cfg.LogCaller, "log-caller", cfg.LogCaller, "Show caller location in logs")

	if err := fs.Parse(args); err != nil {
		return err
	}

	flagField := map[string]string{
		"file":             "tasks_file",
		"state-file":       "state_file",
		"schema":           "schema_file",
		"log-dir":          "log_dir",
		"default-priority": "default_priority",
		"audit-log":        "audit_log",
		"log-level":        "log_level",
		"log-format":       "log_format",
		"log-timestamps":   "log_timestamps",
		"log-caller":       "log_caller",
	}
	fs.Visit(func(f *flag.Flag) {
		if field, ok := flagField[f.Name]; ok {
			sources[field] = SourceFlag
		}
	})
	return nil
}

// finalizeConfig computes derived values and normalizes paths.
func finalizeConfig(cfg *Config) error {
	cfg.LogDir = expandPath(cfg.LogDir)
	cfg.TasksFile = expandPath(cfg.TasksFile)
	cfg.StateFile = expandPath(cfg.StateFile)

	if cfg.ProjectRoot == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
		cfg.ProjectRoot = resolveProjectRoot(wd)
	}

	if !filepath.IsAbs(cfg.TasksFile) {
		cfg.TasksFile = filepath.Join(cfg.ProjectRoot, cfg.TasksFile)
	}
	if !filepath.IsAbs(cfg.StateFile) {
		cfg.StateFile = filepath.Join(cfg.ProjectRoot, cfg.StateFile)
	}
	if cfg.SchemaFile != "" && !filepath.IsAbs(cfg.SchemaFile) {
		cfg.SchemaFile = filepath.Join(cfg.ProjectRoot, cfg.SchemaFile)
	}
	return nil
}

func boolFromString(s string) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false
	}
	return b
}
