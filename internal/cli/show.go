package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/npulab/nputop/internal/telemetry"
)

// showTimeout bounds the single collection cycle behind `nputop show`.
const showTimeout = 10 * time.Second

// showOptions holds the resolved flags for the show command.
type showOptions struct {
	Devices string
	SMIPath string
	Timeout string
	JSON    bool
}

// showCommand queries the devices once and prints the snapshot.
func showCommand(opts showOptions) error {
	p, err := buildPipeline(opts.Devices, opts.SMIPath, "", opts.Timeout)
	if err != nil {
		if opts.JSON {
			_ = WriteJSONFromError(os.Stdout, err)
		}
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), showTimeout)
	defer cancel()

	snap, err := p.service.Snapshot(ctx)
	if err != nil {
		if opts.JSON {
			_ = WriteJSONFromError(os.Stdout, err)
		}
		return err
	}

	if opts.JSON {
		return WriteJSONSuccess(os.Stdout, snapshotPayload(snap))
	}

	renderSnapshotText(os.Stdout, snap)
	return nil
}

// renderSnapshotText prints a plain-text snapshot. Unknown fields render
// as N/A, estimated power limits carry a ~ prefix; the same conventions
// the dashboard uses.
func renderSnapshotText(w io.Writer, snap *telemetry.Snapshot) {
	fmt.Fprintf(w, "nputop snapshot — %s", snap.Taken.Format("2006-01-02 15:04:05"))
	if snap.Partial {
		fmt.Fprint(w, "  (partial)")
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w)

	if len(snap.Devices) == 0 {
		fmt.Fprintln(w, "No visible devices.")
		return
	}

	for i := range snap.Devices {
		dev := &snap.Devices[i]
		fmt.Fprintf(w, "NPU %d  %-10s health %-8s bus %s\n",
			dev.Index, dev.Model, healthText(dev.Health), busText(dev.BusID))
		fmt.Fprintf(w, "  util %-5s  mem %-24s  pwr %-14s  temp %s\n",
			utilText(dev), memText(dev), powerText(dev), tempText(dev))
		if len(dev.Degraded) > 0 {
			fmt.Fprintf(w, "  degraded: %s\n", strings.Join(dev.Degraded, ", "))
		}
	}

	if len(snap.Processes) == 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "No compute processes.")
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Processes:")
	fmt.Fprintf(w, "  %-8s %-10s %-4s %-10s %-10s %s\n",
		"PID", "USER", "DEV", "NPU MEM", "HOST MEM", "COMMAND")
	for _, proc := range snap.Processes {
		user := "-"
		hostMem := "-"
		command := proc.Name
		if proc.HostKnown {
			user = proc.Username
			hostMem = formatShowBytes(proc.HostRSSBytes)
			if proc.Cmdline != "" {
				command = proc.Cmdline
			}
		}
		if proc.Stale {
			command += " (exited)"
		}
		fmt.Fprintf(w, "  %-8d %-10s %-4d %-10s %-10s %s\n",
			proc.PID, user, proc.DeviceIndex,
			formatShowBytes(proc.DeviceMemoryBytes), hostMem, command)
	}
}

func healthText(health string) string {
	if health == "" {
		return "N/A"
	}
	return health
}

func busText(bus string) string {
	if bus == "" || bus == "NA" {
		return "N/A"
	}
	return bus
}

func utilText(dev *telemetry.DeviceRecord) string {
	if !dev.AICoreKnown {
		return "N/A"
	}
	return fmt.Sprintf("%d%%", dev.AICorePercent)
}

func memText(dev *telemetry.DeviceRecord) string {
	if !dev.MemKnown {
		return "N/A"
	}
	return fmt.Sprintf("%s / %s (%.1f%%)",
		formatShowBytes(dev.MemUsedBytes), formatShowBytes(dev.MemTotalBytes), dev.MemPercent)
}

func powerText(dev *telemetry.DeviceRecord) string {
	if !dev.Power.Known {
		return "N/A"
	}
	text := fmt.Sprintf("%.1fW", dev.Power.Watts())
	if dev.PowerLimit.Known {
		prefix := ""
		if dev.PowerLimit.Estimated {
			prefix = "~"
		}
		text += fmt.Sprintf(" / %s%.0fW", prefix, dev.PowerLimit.Watts())
	}
	return text
}

func tempText(dev *telemetry.DeviceRecord) string {
	if !dev.TempKnown {
		return "N/A"
	}
	return fmt.Sprintf("%d°C", dev.TemperatureC)
}

// formatShowBytes renders a byte count in binary units.
func formatShowBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
