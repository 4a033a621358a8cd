package cli

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/npulab/nputop/internal/config"
	"github.com/npulab/nputop/internal/errors"
	"github.com/npulab/nputop/internal/hostproc"
	"github.com/npulab/nputop/internal/logger"
	"github.com/npulab/nputop/internal/monitor"
	"github.com/npulab/nputop/internal/smi"
	"github.com/npulab/nputop/internal/telemetry"
)

// pipeline is the wired telemetry stack shared by watch, show, and kill.
type pipeline struct {
	cfg     *config.Config
	service *telemetry.Service
	procs   *hostproc.Manager
	log     logger.Logger
}

// buildPipeline loads the config, layers flag overrides on top,
// resolves the visible-device set, and wires the npu-smi adapter into
// the telemetry service.
func buildPipeline(devicesFlag, smiFlag, intervalFlag, timeoutFlag string) (*pipeline, error) {
	cfg, err := config.LoadOrDefault(configFlag)
	if err != nil {
		return nil, err
	}
	if err := applyFlagOverrides(cfg, intervalFlag, timeoutFlag, smiFlag); err != nil {
		return nil, err
	}
	applyConfigColor(cfg.Output.Color)

	visible, err := cfg.ResolveVisible(devicesFlag)
	if err != nil {
		return nil, err
	}

	log := logger.Default()
	adapter := smi.NewAdapter(cfg.SMIPath, cfg.Timeout, visible, log)
	procs := hostproc.New(log)
	service := telemetry.NewService(adapter, procs, cfg.CacheTTL, log)

	return &pipeline{
		cfg:     cfg,
		service: service,
		procs:   procs,
		log:     log,
	}, nil
}

// watchCommand starts the TUI dashboard.
func watchCommand(flags WatchFlags) error {
	if !stdoutIsTerminal() {
		return errors.New(errors.ErrExec,
			"The dashboard needs a terminal",
			"Use 'nputop show' for one-shot output in scripts and pipes.")
	}

	p, err := buildPipeline(flags.Devices, flags.SMIPath, flags.Interval, flags.Timeout)
	if err != nil {
		return err
	}

	collector := monitor.NewCollector(p.service, p.procs, p.log)
	model := monitor.NewModel(collector, p.cfg.Interval, p.cfg.Thresholds, p.log)
	if flags.Compact {
		model.SetCompact(true)
	}

	prog := tea.NewProgram(model, tea.WithAltScreen())
	_, err = prog.Run()
	return err
}
