package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/npulab/nputop/internal/errors"
)

// configTemplate is the commented starter file `nputop config init`
// writes. Kept as a template rather than marshaled so the comments
// survive; WriteDefault verifies it still parses before writing.
const configTemplate = `# nputop configuration
version: 1

# Dashboard refresh cadence. Minimum 250ms.
interval: 2s

# Upper bound for a single npu-smi invocation.
timeout: 2s

# How long a telemetry snapshot stays fresh for all views.
cache_ttl: 5s

# Path to the npu-smi binary. Leave as-is to use PATH.
smi_path: npu-smi

# Restrict the dashboard to specific logical device indexes.
# ASCEND_RT_VISIBLE_DEVICES and --devices take precedence.
# devices: [0, 1]

# Utilization bands for color coding (percent).
thresholds:
  npu_light: 10
  npu_heavy: 75
  mem_light: 10
  mem_heavy: 80

output:
  # Color mode: auto, always, or never.
  color: auto
`

// WriteDefault writes the starter config to path, creating parent
// directories. Refuses to overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return errors.New(errors.ErrConfig,
			"config file already exists: "+path,
			"Edit it directly, or remove it first to regenerate defaults")
	}

	// Template drift guard: the starter file must stay valid YAML.
	var probe map[string]interface{}
	if err := yaml.Unmarshal([]byte(configTemplate), &probe); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"internal config template is invalid", "")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"cannot create config directory "+dir,
				"Check directory permissions")
		}
	}

	if err := os.WriteFile(path, []byte(configTemplate), 0o644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"cannot write config file "+path,
			"Check directory permissions")
	}
	return nil
}

// DefaultPath returns where `nputop config init` writes when no path is
// given: ~/.config/nputop/config.yaml, or ./.nputop.yaml when the home
// directory cannot be determined.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ConfigFileName
	}
	return filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
}
