package cli

import (
	"os"
	"strconv"

	"github.com/npulab/nputop/internal/errors"
	"github.com/spf13/cobra"
)

// Command-specific flags
var (
	watchIntervalFlag string
	watchDevicesFlag  string
	watchSMIFlag      string
	watchTimeoutFlag  string
	watchCompactFlag  bool
	showDevicesFlag   string
	showSMIFlag       string
	showTimeoutFlag   string
	showJSONFlag      bool
	killForceFlag     bool
	killYesFlag       bool
	initPathFlag      string
	initForceFlag     bool
)

// watchCmd starts the TUI dashboard. Identical to running nputop with
// no subcommand.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Start the interactive NPU dashboard",
	Long: `Start an interactive TUI dashboard showing real-time metrics for all
visible NPU devices.

Displays AI core utilization, HBM memory, power draw, and temperature
per device with color-coded thresholds, plus the compute processes
attached to each device.

Keyboard shortcuts:
  q / Ctrl+C  Quit
  r           Force refresh (bypasses the snapshot cache)
  s           Cycle sort order (index/util/memory/power/temp)
  c           Toggle compact layout
  up/k        Select previous device or process
  down/j      Select next device or process
  Tab         Switch focus between devices and processes
  Enter       Expand selected device details
  Esc         Collapse / go back
  t           Terminate selected process (SIGTERM)
  K           Kill selected process (SIGKILL)
  ?           Show help

Examples:
  nputop watch
  nputop watch --interval 5s
  nputop watch --devices 0,2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return watchCommand(watchFlagValues())
	},
}

// showCmd prints one snapshot and exits
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print a one-shot device snapshot",
	Long: `Query the devices once and print a plain-text snapshot to stdout.

Intended for scripts, cron jobs, and terminals where the interactive
dashboard is not wanted. With --json the snapshot is emitted as a
machine-readable envelope.

Examples:
  nputop show
  nputop show --devices 0,1
  nputop show --json | jq '.data.devices[].power_w'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showCommand(showOptions{
			Devices: showDevicesFlag,
			SMIPath: showSMIFlag,
			Timeout: showTimeoutFlag,
			JSON:    showJSONFlag,
		})
	},
}

// killCmd terminates an NPU compute process from the shell
var killCmd = &cobra.Command{
	Use:   "kill <pid>",
	Short: "Terminate an NPU compute process",
	Long: `Send SIGTERM (or SIGKILL with --force) to a compute process running
on an NPU device.

The PID is checked against the current device snapshot first, so you
cannot accidentally signal a process that is not using an NPU. A
confirmation prompt is shown unless --yes is given.

Examples:
  nputop kill 12074
  nputop kill 12074 --force
  nputop kill 12074 --yes`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := strconv.ParseInt(args[0], 10, 32)
		if err != nil || pid <= 0 {
			return errors.New(errors.ErrConfig,
				"Invalid PID: "+args[0],
				"Pass a positive process ID, e.g. 'nputop kill 12074'")
		}
		return killCommand(int32(pid), killForceFlag, killYesFlag)
	},
}

// configCmd groups configuration subcommands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the nputop configuration file",
}

// configInitCmd writes a default config file
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Long: `Create a commented nputop configuration file with default values.

Writes to ~/.config/nputop/config.yaml unless --path is given.

Examples:
  nputop config init
  nputop config init --path .nputop.yaml
  nputop config init --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitCommand(initPathFlag, initForceFlag)
	},
}

// completionCmd generates shell completion scripts
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion scripts for nputop.

Examples:
  # Bash
  nputop completion bash > /etc/bash_completion.d/nputop

  # Zsh
  nputop completion zsh > "${fpath[1]}/_nputop"

  # Fish
  nputop completion fish > ~/.config/fish/completions/nputop.fish`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(os.Stdout)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletion(os.Stdout)
		default:
			return errors.New(errors.ErrExec,
				"Unknown shell: "+args[0],
				"Supported shells: bash, zsh, fish, powershell")
		}
	},
}

// addWatchFlags registers the dashboard flags. They live on both the
// root command and watch so either invocation accepts them.
func addWatchFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&watchIntervalFlag, "interval", "", "refresh interval (e.g. 2s, 5s, 1m)")
	cmd.Flags().StringVar(&watchDevicesFlag, "devices", "", "restrict to specific device indexes (comma-separated)")
	cmd.Flags().StringVar(&watchSMIFlag, "smi", "", "path to the npu-smi binary")
	cmd.Flags().StringVar(&watchTimeoutFlag, "timeout", "", "per-query npu-smi timeout (e.g. 2s)")
	cmd.Flags().BoolVar(&watchCompactFlag, "compact", false, "start in the compact single-line layout")
}

func init() {
	// watch flags (also registered on the root command, see root.go)
	addWatchFlags(watchCmd)

	// show command flags
	showCmd.Flags().StringVar(&showDevicesFlag, "devices", "", "restrict to specific device indexes (comma-separated)")
	showCmd.Flags().StringVar(&showSMIFlag, "smi", "", "path to the npu-smi binary")
	showCmd.Flags().StringVar(&showTimeoutFlag, "timeout", "", "per-query npu-smi timeout (e.g. 2s)")
	showCmd.Flags().BoolVar(&showJSONFlag, "json", false, "emit a machine-readable JSON envelope")

	// kill command flags
	killCmd.Flags().BoolVarP(&killForceFlag, "force", "f", false, "send SIGKILL instead of SIGTERM")
	killCmd.Flags().BoolVarP(&killYesFlag, "yes", "y", false, "skip the confirmation prompt")

	// config init flags
	configInitCmd.Flags().StringVar(&initPathFlag, "path", "", "where to write the config file")
	configInitCmd.Flags().BoolVarP(&initForceFlag, "force", "f", false, "overwrite an existing config")

	// Register all commands
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(killCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(completionCmd)
}
