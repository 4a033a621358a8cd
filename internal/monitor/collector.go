package monitor

import (
	"context"
	"time"

	"github.com/npulab/nputop/internal/logger"
	"github.com/npulab/nputop/internal/telemetry"
)

// defaultCollectTimeout bounds one collection cycle so a wedged driver
// never freezes the UI.
const defaultCollectTimeout = 10 * time.Second

// SnapshotSource provides device snapshots. Implemented by
// telemetry.Service; faked in tests.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (*telemetry.Snapshot, error)
	Refresh(ctx context.Context) (*telemetry.Snapshot, error)
	Last() (*telemetry.Snapshot, bool)
}

// ProcessKiller delivers signals to host processes. Implemented by
// hostproc.Manager.
type ProcessKiller interface {
	Terminate(pid int32) error
	Kill(pid int32) error
}

// Result is the outcome of one collection cycle.
type Result struct {
	Snapshot *telemetry.Snapshot
	Err      error
	Elapsed  time.Duration
}

// Collector bridges the dashboard to the telemetry service and the host
// process table.
type Collector struct {
	source  SnapshotSource
	killer  ProcessKiller
	timeout time.Duration
	log     logger.Logger
}

// NewCollector creates a collector over the given snapshot source and
// process killer.
func NewCollector(source SnapshotSource, killer ProcessKiller, log logger.Logger) *Collector {
	if log == nil {
		log = logger.Noop()
	}
	return &Collector{
		source:  source,
		killer:  killer,
		timeout: defaultCollectTimeout,
		log:     log,
	}
}

// SetTimeout overrides the per-cycle collection timeout.
func (c *Collector) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		c.timeout = timeout
	}
}

// Collect acquires a snapshot, reusing the cached one while fresh.
func (c *Collector) Collect(ctx context.Context) Result {
	return c.run(ctx, c.source.Snapshot)
}

// Refresh forces a fresh snapshot regardless of cache freshness. This is
// the manual-refresh path bound to the r key.
func (c *Collector) Refresh(ctx context.Context) Result {
	return c.run(ctx, c.source.Refresh)
}

// Last returns the most recent good snapshot without touching hardware.
func (c *Collector) Last() (*telemetry.Snapshot, bool) {
	return c.source.Last()
}

func (c *Collector) run(ctx context.Context, fetch func(context.Context) (*telemetry.Snapshot, error)) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	snap, err := fetch(ctx)
	elapsed := time.Since(start)

	if err != nil {
		c.log.Debug("collection cycle failed after %s: %v", elapsed, err)
	} else {
		c.log.Debug("collection cycle complete in %s (%d devices)", elapsed, len(snap.Devices))
	}

	return Result{Snapshot: snap, Err: err, Elapsed: elapsed}
}

// Terminate signals a process. force selects SIGKILL over SIGTERM.
func (c *Collector) Terminate(pid int32, force bool) error {
	if force {
		return c.killer.Kill(pid)
	}
	return c.killer.Terminate(pid)
}
