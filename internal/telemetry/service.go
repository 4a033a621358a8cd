package telemetry

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/npulab/nputop/internal/logger"
	"github.com/npulab/nputop/internal/smi"
)

// snapshotKey is the aggregate cache entry holding the full board view.
const snapshotKey = "board"

// Service is the façade the UI polls: cached snapshots with per-device
// usage entries underneath, plus an explicit refresh path that bypasses
// the TTL for the user's refresh key.
type Service struct {
	source   DeviceSource
	builder  *Builder
	registry *ProcessRegistry

	snapshots *Cache[*Snapshot]
	usages    *Cache[smi.UtilizationRates]

	// lastGood survives cache eviction and failed refreshes so the UI
	// can keep rendering the previous view under an error notice.
	lastGood atomic.Pointer[Snapshot]

	log logger.Logger
}

// NewService wires a device source, host PID lookup and TTL cache into
// one snapshot provider.
func NewService(source DeviceSource, lookup HostLookup, ttl time.Duration, log logger.Logger) *Service {
	if log == nil {
		log = logger.Noop()
	}
	s := &Service{
		source:    source,
		registry:  NewProcessRegistry(lookup, log),
		snapshots: NewCache[*Snapshot](ttl),
		usages:    NewCache[smi.UtilizationRates](ttl),
		log:       log,
	}
	s.builder = NewBuilder(source, s.registry, log)
	s.builder.usage = s.cachedUsage
	return s
}

// Snapshot returns the current snapshot, reusing the cached one while it
// is fresh. Concurrent callers share a single acquisition.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	snap, err := s.snapshots.Get(ctx, snapshotKey, s.builder.Build)
	if err == nil {
		s.lastGood.Store(snap)
	}
	return snap, err
}

// Refresh drops all cached state and acquires a fresh snapshot. This is
// the manual-refresh path: it must hit the hardware regardless of TTL.
func (s *Service) Refresh(ctx context.Context) (*Snapshot, error) {
	s.snapshots.Forget(snapshotKey)
	s.usages.ForgetAll()
	return s.Snapshot(ctx)
}

// Last returns the most recent successfully built snapshot without
// touching the hardware. ok is false before the first successful build.
func (s *Service) Last() (*Snapshot, bool) {
	snap := s.lastGood.Load()
	return snap, snap != nil
}

// Usage returns cached utilization rates for one device, for detail
// views that poll a single NPU.
func (s *Service) Usage(ctx context.Context, npuID int) (smi.UtilizationRates, error) {
	return s.cachedUsage(ctx, npuID)
}

func (s *Service) cachedUsage(ctx context.Context, npuID int) (smi.UtilizationRates, error) {
	key := fmt.Sprintf("usage:%d", npuID)
	return s.usages.Get(ctx, key, func(ctx context.Context) (smi.UtilizationRates, error) {
		return s.source.Usage(ctx, npuID)
	})
}
