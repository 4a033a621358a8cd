// Package cli implements the nputop command-line interface.
//
// The package is organized around Cobra commands, with each command
// delegating to a small set of wiring functions that assemble the
// telemetry pipeline. The general structure follows a clean separation
// between:
//
//   - Command definitions (cobra.Command instances)
//   - Pipeline wiring (npu-smi adapter, telemetry service, collector)
//   - Implementation details (in other internal packages)
//
// # Command Structure
//
// The root command is "nputop"; running it with no subcommand starts
// the dashboard:
//
//	nputop              - Interactive TUI dashboard (same as watch)
//	nputop watch        - Interactive TUI dashboard
//	nputop show         - One-shot snapshot for non-TTY use
//	nputop kill <pid>   - Terminate an NPU compute process
//	nputop config init  - Write a default config file
//	nputop version      - Print version information
//	nputop completion   - Generate shell completion scripts
//
// # Flag Handling
//
// Global flags (--config, --no-color) are defined on the root command
// and available to all subcommands. Dashboard flags (--interval,
// --devices, --smi, --timeout) are shared between the root command and
// watch so "nputop --interval 5s" and "nputop watch --interval 5s"
// behave identically.
//
// # Pipeline Wiring
//
// All commands that need device data share one wiring path: load the
// config, resolve the visible-device set (flag beats environment beats
// config file), build the npu-smi adapter with the configured timeout,
// and wrap it in the telemetry service with the host process manager.
package cli
