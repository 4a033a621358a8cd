package smi

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/npulab/nputop/internal/errors"
	"github.com/npulab/nputop/internal/logger"
)

// DefaultTimeout bounds a single npu-smi invocation. A hung driver must
// never block a refresh cycle indefinitely.
const DefaultTimeout = 2 * time.Second

// Runner executes the npu-smi binary. Abstracted so tests can substitute
// canned output without a real driver installed.
type Runner interface {
	Run(ctx context.Context, args ...string) (string, error)
}

type execRunner struct {
	path string
}

func (r *execRunner) Run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, r.path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return "", fmt.Errorf("%s: %w: %s", r.path, err, detail)
		}
		return "", fmt.Errorf("%s: %w", r.path, err)
	}
	return stdout.String(), nil
}

// Adapter queries the npu-smi utility for device telemetry. The visible
// allow-list is fixed at construction: devices whose logical index is not
// listed never appear in any result, so callers upstream cannot observe
// filtered hardware.
type Adapter struct {
	runner  Runner
	timeout time.Duration
	visible map[int]bool // nil means all devices visible
	log     logger.Logger
}

// NewAdapter creates an adapter that executes the npu-smi binary at path.
// visible is the logical-index allow-list (nil shows every device).
func NewAdapter(path string, timeout time.Duration, visible []int, log logger.Logger) *Adapter {
	if path == "" {
		path = "npu-smi"
	}
	return newAdapter(&execRunner{path: path}, timeout, visible, log)
}

// NewAdapterWithRunner creates an adapter backed by a custom Runner.
func NewAdapterWithRunner(runner Runner, timeout time.Duration, visible []int, log logger.Logger) *Adapter {
	return newAdapter(runner, timeout, visible, log)
}

func newAdapter(runner Runner, timeout time.Duration, visible []int, log logger.Logger) *Adapter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.Noop()
	}
	a := &Adapter{runner: runner, timeout: timeout, log: log}
	if visible != nil {
		a.visible = make(map[int]bool, len(visible))
		for _, idx := range visible {
			a.visible[idx] = true
		}
	}
	return a
}

// Board runs `npu-smi info` and returns the parsed report with the
// visibility filter applied.
func (a *Adapter) Board(ctx context.Context) (*BoardReport, error) {
	out, err := a.run(ctx, "info")
	if err != nil {
		return nil, err
	}
	report, err := ParseBoard(out, a.log)
	if err != nil {
		return nil, err
	}
	a.filterVisible(report)
	return report, nil
}

// Usage runs `npu-smi info -t usages -i N` for one device.
func (a *Adapter) Usage(ctx context.Context, index int) (UtilizationRates, error) {
	out, err := a.run(ctx, "info", "-t", "usages", "-i", fmt.Sprintf("%d", index))
	if err != nil {
		return UtilizationRates{}, err
	}
	return ParseUsage(out), nil
}

// Temperature runs the dedicated temperature query for one device. Used
// to backfill records the board table left degraded.
func (a *Adapter) Temperature(ctx context.Context, index int) (int, bool, error) {
	out, err := a.run(ctx, "info", "-t", "temp", "-i", fmt.Sprintf("%d", index))
	if err != nil {
		return 0, false, err
	}
	temp, ok := ParseTemperature(out)
	return temp, ok, nil
}

// Power runs the dedicated power query for one device, in milliwatts.
func (a *Adapter) Power(ctx context.Context, index int) (int64, bool, error) {
	out, err := a.run(ctx, "info", "-t", "power", "-i", fmt.Sprintf("%d", index))
	if err != nil {
		return 0, false, err
	}
	mw, ok := ParsePower(out)
	return mw, ok, nil
}

func (a *Adapter) run(ctx context.Context, args ...string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	out, err := a.runner.Run(runCtx, args...)
	a.log.Debug("npu-smi %s took %v", strings.Join(args, " "), time.Since(start))
	if err != nil {
		return "", classify(err, a.timeout)
	}
	return out, nil
}

// classify maps raw execution failures onto the error taxonomy: deadline
// hits become ErrTimeout, everything else ErrUnavailable.
func classify(err error, timeout time.Duration) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.WrapWithCode(err, errors.ErrTimeout,
			fmt.Sprintf("npu-smi did not respond within %v", timeout),
			"Increase the query timeout or check driver health")
	}
	if stderrors.Is(err, context.Canceled) {
		return err
	}
	return errors.WrapWithCode(err, errors.ErrUnavailable,
		"cannot query the NPU device interface",
		"Check that the NPU driver is installed and npu-smi is on PATH")
}

func (a *Adapter) filterVisible(report *BoardReport) {
	if a.visible == nil {
		return
	}
	kept := report.Devices[:0]
	for _, dev := range report.Devices {
		if a.visible[dev.Index] {
			kept = append(kept, dev)
		}
	}
	report.Devices = kept
}
