package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/npulab/nputop/internal/errors"
	"github.com/npulab/nputop/internal/telemetry"
	"golang.org/x/term"
)

// killTimeout bounds the snapshot query that validates the PID.
const killTimeout = 10 * time.Second

// killCommand signals a compute process after checking it actually
// holds an NPU device.
func killCommand(pid int32, force, yes bool) error {
	p, err := buildPipeline("", "", "", "")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), killTimeout)
	defer cancel()

	snap, err := p.service.Snapshot(ctx)
	if err != nil {
		return err
	}

	target := findProcess(snap, pid)
	if target == nil {
		return errors.New(errors.ErrExec,
			fmt.Sprintf("PID %d is not using any NPU device", pid),
			"Run 'nputop show' to list the current compute processes.")
	}
	if target.Stale {
		return errors.New(errors.ErrExec,
			fmt.Sprintf("PID %d already exited", pid),
			"The device stopped reporting it; nothing to signal.")
	}

	signal := "SIGTERM"
	if force {
		signal = "SIGKILL"
	}

	if !yes {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return errors.New(errors.ErrExec,
				"Cannot confirm without a terminal",
				"Pass --yes to skip the confirmation prompt.")
		}

		var confirmed bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Send %s to PID %d (%s) on NPU %d?",
						signal, pid, processLabel(target), target.DeviceIndex)).
					Value(&confirmed),
			),
		)
		if err := form.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrExec,
				"Failed to get user input",
				"Pass --yes to skip the confirmation prompt.")
		}
		if !confirmed {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	if force {
		err = p.procs.Kill(pid)
	} else {
		err = p.procs.Terminate(pid)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Sent %s to PID %d\n", signal, pid)
	return nil
}

// findProcess returns the snapshot's record for a PID, or nil.
func findProcess(snap *telemetry.Snapshot, pid int32) *telemetry.ProcessRecord {
	for i := range snap.Processes {
		if snap.Processes[i].PID == pid {
			return &snap.Processes[i]
		}
	}
	return nil
}

// processLabel picks the most descriptive short name for a process.
func processLabel(proc *telemetry.ProcessRecord) string {
	if proc.Name != "" {
		return proc.Name
	}
	if proc.Cmdline != "" {
		return proc.Cmdline
	}
	return "unknown"
}
