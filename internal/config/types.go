package config

import "time"

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// MinInterval is the lowest refresh cadence the dashboard accepts.
// Anything faster would spend more time forking npu-smi than rendering.
const MinInterval = 250 * time.Millisecond

// Config represents the complete .nputop.yaml configuration file.
type Config struct {
	Version int `yaml:"version" mapstructure:"version"`

	// Interval is the dashboard refresh cadence.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`

	// Timeout bounds a single npu-smi invocation.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// CacheTTL is how long a snapshot stays fresh for all consumers.
	CacheTTL time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`

	// SMIPath overrides the npu-smi binary location.
	SMIPath string `yaml:"smi_path" mapstructure:"smi_path"`

	// Devices restricts the dashboard to specific logical indexes.
	// Empty means all devices. Environment variables and the --devices
	// flag take precedence; see ResolveVisible.
	Devices []int `yaml:"devices" mapstructure:"devices"`

	Thresholds ThresholdConfig `yaml:"thresholds" mapstructure:"thresholds"`
	Output     OutputConfig    `yaml:"output" mapstructure:"output"`
}

// ThresholdConfig sets the utilization bands used for color coding:
// below Light renders calm, above Heavy renders critical, in between
// renders as a warning.
type ThresholdConfig struct {
	NPULight int `yaml:"npu_light" mapstructure:"npu_light"`
	NPUHeavy int `yaml:"npu_heavy" mapstructure:"npu_heavy"`
	MemLight int `yaml:"mem_light" mapstructure:"mem_light"`
	MemHeavy int `yaml:"mem_heavy" mapstructure:"mem_heavy"`
}

// OutputConfig controls terminal output formatting.
type OutputConfig struct {
	// Color mode: "auto", "always", or "never".
	// "auto" disables color when output is piped.
	Color string `yaml:"color" mapstructure:"color"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version:  CurrentConfigVersion,
		Interval: 2 * time.Second,
		Timeout:  2 * time.Second,
		CacheTTL: 5 * time.Second,
		SMIPath:  "npu-smi",
		Thresholds: ThresholdConfig{
			NPULight: 10,
			NPUHeavy: 75,
			MemLight: 10,
			MemHeavy: 80,
		},
		Output: OutputConfig{
			Color: "auto",
		},
	}
}
