package cli

import (
	"fmt"
	"time"

	"github.com/npulab/nputop/internal/config"
	"github.com/npulab/nputop/internal/errors"
)

// WatchFlags holds the dashboard flags shared by the root command and
// watch. Empty string values mean "not set, use the config file".
type WatchFlags struct {
	Interval string
	Devices  string
	SMIPath  string
	Timeout  string
	Compact  bool
}

// watchFlagValues snapshots the shared flag variables.
func watchFlagValues() WatchFlags {
	return WatchFlags{
		Interval: watchIntervalFlag,
		Devices:  watchDevicesFlag,
		SMIPath:  watchSMIFlag,
		Timeout:  watchTimeoutFlag,
		Compact:  watchCompactFlag,
	}
}

// ParseIntervalFlag parses a refresh interval, enforcing the floor that
// keeps the dashboard from forking npu-smi faster than it can answer.
func ParseIntervalFlag(flag string) (time.Duration, error) {
	d, err := time.ParseDuration(flag)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("'%s' doesn't look like a valid interval", flag),
			"Try something like 2s, 5s, or 1m.")
	}
	if d < config.MinInterval {
		return 0, errors.New(errors.ErrConfig,
			fmt.Sprintf("Interval too short: %s", flag),
			fmt.Sprintf("Minimum interval is %s.", config.MinInterval))
	}
	return d, nil
}

// ParseTimeoutFlag parses a per-query npu-smi timeout.
func ParseTimeoutFlag(flag string) (time.Duration, error) {
	d, err := time.ParseDuration(flag)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("'%s' doesn't look like a valid timeout", flag),
			"Try something like 2s, 5s, or 500ms.")
	}
	if d <= 0 {
		return 0, errors.New(errors.ErrConfig,
			"Timeout must be positive",
			"Try something like 2s.")
	}
	return d, nil
}

// applyFlagOverrides layers command-line flags over the loaded config.
// Flags always beat file values.
func applyFlagOverrides(cfg *config.Config, intervalFlag, timeoutFlag, smiFlag string) error {
	if intervalFlag != "" {
		d, err := ParseIntervalFlag(intervalFlag)
		if err != nil {
			return err
		}
		cfg.Interval = d
	}
	if timeoutFlag != "" {
		d, err := ParseTimeoutFlag(timeoutFlag)
		if err != nil {
			return err
		}
		cfg.Timeout = d
	}
	if smiFlag != "" {
		cfg.SMIPath = smiFlag
	}
	return nil
}
