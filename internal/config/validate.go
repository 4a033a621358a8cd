package config

import (
	"fmt"

	"github.com/npulab/nputop/internal/errors"
)

// Validate checks the configuration for values the dashboard cannot run
// with. Called after every load and after flag overrides are applied.
func (c *Config) Validate() error {
	if c.Interval < MinInterval {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("refresh interval %v is below the minimum %v", c.Interval, MinInterval),
			fmt.Sprintf("Use an interval of %v or longer", MinInterval))
	}

	if c.Timeout <= 0 {
		return errors.New(errors.ErrConfig,
			"query timeout must be positive",
			"Set timeout to a duration like 2s")
	}

	if c.CacheTTL <= 0 {
		return errors.New(errors.ErrConfig,
			"cache TTL must be positive",
			"Set cache_ttl to a duration like 5s")
	}

	if c.SMIPath == "" {
		return errors.New(errors.ErrConfig,
			"smi_path must not be empty",
			"Remove smi_path to use the npu-smi on PATH")
	}

	for _, idx := range c.Devices {
		if idx < 0 {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("device index %d is negative", idx),
				"Device indexes are the logical indexes npu-smi reports, starting at 0")
		}
	}

	if err := c.Thresholds.validate(); err != nil {
		return err
	}

	switch c.Output.Color {
	case "auto", "always", "never":
	default:
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("unknown color mode %q", c.Output.Color),
			"Use one of: auto, always, never")
	}

	return nil
}

func (t ThresholdConfig) validate() error {
	check := func(name string, light, heavy int) error {
		if light < 0 || heavy > 100 {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("%s thresholds must be within 0-100", name),
				"")
		}
		if light >= heavy {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("%s light threshold %d must be below heavy threshold %d", name, light, heavy),
				"")
		}
		return nil
	}
	if err := check("npu", t.NPULight, t.NPUHeavy); err != nil {
		return err
	}
	return check("mem", t.MemLight, t.MemHeavy)
}
