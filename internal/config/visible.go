package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/npulab/nputop/internal/errors"
)

// Environment variables that restrict device visibility, checked in
// order. The CUDA variable is honored for scripts ported from GPU
// clusters that still export it.
var visibilityEnvVars = []string{
	"ASCEND_RT_VISIBLE_DEVICES",
	"CUDA_VISIBLE_DEVICES",
}

// ResolveVisible computes the device allow-list for this run. Precedence:
// the --devices flag, then the visibility environment variables, then the
// config file. A nil result means every device is visible; a non-nil
// empty result hides everything (e.g. ASCEND_RT_VISIBLE_DEVICES="").
//
// The list is resolved once at startup and handed to the interface
// adapter, so a filtered device can never leak into any later view.
func (c *Config) ResolveVisible(flagValue string) ([]int, error) {
	if flagValue != "" {
		indexes, err := parseDeviceList(flagValue)
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"invalid --devices value: "+flagValue,
				"Use a comma-separated list of device indexes, e.g. 0,2,3")
		}
		return indexes, nil
	}

	for _, name := range visibilityEnvVars {
		value, set := os.LookupEnv(name)
		if !set {
			continue
		}
		indexes, err := parseDeviceList(value)
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				fmt.Sprintf("invalid %s value: %q", name, value),
				"Use a comma-separated list of device indexes, e.g. 0,2,3")
		}
		return indexes, nil
	}

	if len(c.Devices) > 0 {
		return append([]int(nil), c.Devices...), nil
	}

	return nil, nil
}

// parseDeviceList parses "0,2,3" into indexes. An empty or whitespace
// string yields an empty (hide-everything) list, matching how runtimes
// treat an empty visibility variable.
func parseDeviceList(value string) ([]int, error) {
	indexes := []int{}
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%q is not a device index", part)
		}
		if idx < 0 {
			return nil, fmt.Errorf("device index %d is negative", idx)
		}
		indexes = append(indexes, idx)
	}
	return indexes, nil
}
