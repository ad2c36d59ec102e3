package config

import (
	"fmt"
	"runtime"
	"time"
)

// Config holds the global configuration for one compile run.
type Config struct {
	// Input/output settings
	InputFile string
	OutputDir string

	// Processing settings
	Threads int
	KeepIDs bool

	// Feature flags
	Quiet   bool
	Verbose bool

	// Logging and metrics
	LogFile         string        // Path to log file (empty = no file logging)
	MetricsInterval time.Duration // Interval for system metrics logging

	// ConfigFile, if set, is a YAML file overriding the fields listed in
	// FileOverrides.
	ConfigFile string
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		OutputDir:       "./osmflat_data",
		Threads:         runtime.NumCPU(),
		KeepIDs:         false,
		Quiet:           false,
		Verbose:         false,
		LogFile:         "",
		MetricsInterval: 30 * time.Second,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.InputFile == "" {
		return fmt.Errorf("input file is required")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output directory is required")
	}
	if c.Threads < 1 {
		return fmt.Errorf("threads must be at least 1")
	}
	if c.Quiet && c.Verbose {
		return fmt.Errorf("--quiet and --verbose are mutually exclusive")
	}
	return nil
}

// FileOverrides is the subset of Config a YAML config file may set,
// decoded separately so unset fields never clobber flag-supplied values.
type FileOverrides struct {
	OutputDir       *string        `yaml:"output_dir,omitempty"`
	Threads         *int           `yaml:"threads,omitempty"`
	KeepIDs         *bool          `yaml:"keep_ids,omitempty"`
	Quiet           *bool          `yaml:"quiet,omitempty"`
	LogFile         *string        `yaml:"log_file,omitempty"`
	MetricsInterval *time.Duration `yaml:"metrics_interval,omitempty"`
}

// Apply overlays any fields set in o onto c.
func (c *Config) Apply(o FileOverrides) {
	if o.OutputDir != nil {
		c.OutputDir = *o.OutputDir
	}
	if o.Threads != nil {
		c.Threads = *o.Threads
	}
	if o.KeepIDs != nil {
		c.KeepIDs = *o.KeepIDs
	}
	if o.Quiet != nil {
		c.Quiet = *o.Quiet
	}
	if o.LogFile != nil {
		c.LogFile = *o.LogFile
	}
	if o.MetricsInterval != nil {
		c.MetricsInterval = *o.MetricsInterval
	}
}
