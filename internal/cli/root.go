package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/npulab/nputop/internal/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Global flags available to all subcommands
var (
	configFlag  string
	noColorFlag bool
)

// rootCmd is the base command. Running it with no subcommand starts the
// dashboard, so "nputop" alone does the obvious thing.
var rootCmd = &cobra.Command{
	Use:   "nputop",
	Short: "Interactive dashboard for Ascend NPU devices",
	Long: `nputop is an interactive terminal dashboard for Huawei Ascend NPUs.

It polls npu-smi on a fixed cadence and renders per-device utilization,
memory, power, and temperature along with the compute processes running
on each device.

Running nputop with no arguments starts the dashboard. Use 'nputop show'
for a one-shot snapshot in scripts or non-TTY environments.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		applyColorMode()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return watchCommand(watchFlagValues())
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		if code, ok := errors.GetExitCode(err); ok {
			os.Exit(code)
		}
		os.Exit(1)
	}
}

// applyColorMode resolves the --no-color flag and NO_COLOR convention
// before any command renders output. The config file's output.color
// setting is applied later, once the config is loaded, and never
// re-enables color that a flag disabled.
func applyColorMode() {
	if noColorFlag || os.Getenv("NO_COLOR") != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// applyConfigColor applies the config file's color mode. "never" strips
// color, "always" forces it even when piped, "auto" leaves detection to
// the terminal profile.
func applyConfigColor(mode string) {
	if noColorFlag {
		return
	}
	switch mode {
	case "never":
		lipgloss.SetColorProfile(termenv.Ascii)
	case "always":
		lipgloss.SetColorProfile(termenv.TrueColor)
	}
}

// stdoutIsTerminal reports whether stdout is attached to a TTY. The
// dashboard refuses to start without one.
func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "config file path (default: .nputop.yaml discovery)")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "disable colored output")

	// The root command doubles as watch, so it carries the same flags.
	addWatchFlags(rootCmd)
}
