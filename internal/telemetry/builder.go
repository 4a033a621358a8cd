package telemetry

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/npulab/nputop/internal/logger"
	"github.com/npulab/nputop/internal/power"
	"github.com/npulab/nputop/internal/smi"
)

// DeviceSource is the raw-interface surface the builder consumes.
// Satisfied by *smi.Adapter; faked in tests.
type DeviceSource interface {
	Board(ctx context.Context) (*smi.BoardReport, error)
	Usage(ctx context.Context, index int) (smi.UtilizationRates, error)
	Temperature(ctx context.Context, index int) (int, bool, error)
	Power(ctx context.Context, index int) (int64, bool, error)
}

// Builder assembles display-ready snapshots from a device source. A
// whole-interface failure returns an error; per-device supplement
// failures only mark the snapshot partial.
type Builder struct {
	source   DeviceSource
	registry *ProcessRegistry
	log      logger.Logger
	cycle    atomic.Uint64

	// usage is indirect so a caching layer can interpose.
	usage func(ctx context.Context, index int) (smi.UtilizationRates, error)

	// now is swappable for tests.
	now func() time.Time
}

// NewBuilder creates a snapshot builder.
func NewBuilder(source DeviceSource, registry *ProcessRegistry, log logger.Logger) *Builder {
	if log == nil {
		log = logger.Noop()
	}
	b := &Builder{
		source:   source,
		registry: registry,
		log:      log,
		now:      time.Now,
	}
	b.usage = source.Usage
	return b
}

// Build queries the device source once and assembles a snapshot. The
// returned snapshot is immutable: callers swap it in wholesale.
func (b *Builder) Build(ctx context.Context) (*Snapshot, error) {
	report, err := b.source.Board(ctx)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Taken:   b.now(),
		Cycle:   b.cycle.Add(1),
		Partial: report.SkippedRows > 0,
		Devices: make([]DeviceRecord, 0, len(report.Devices)),
	}

	for _, dev := range report.Devices {
		record := b.buildDevice(ctx, dev, snap)
		snap.Devices = append(snap.Devices, record)
	}

	if b.registry != nil {
		snap.Processes = b.registry.Reconcile(report.Devices)
	}

	return snap, nil
}

func (b *Builder) buildDevice(ctx context.Context, dev smi.DeviceInfo, snap *Snapshot) DeviceRecord {
	record := DeviceRecord{
		Index:         dev.Index,
		NPUID:         dev.NPUID,
		ChipID:        dev.ChipID,
		Model:         dev.Model,
		Health:        dev.Health,
		BusID:         dev.BusID,
		TemperatureC:  dev.TemperatureC,
		TempKnown:     dev.TempKnown,
		AICorePercent: dev.AICorePercent,
		AICoreKnown:   dev.AICoreKnown,
		MemUsedBytes:  dev.MemUsedBytes,
		MemTotalBytes: dev.MemTotalBytes,
		MemKnown:      dev.MemKnown,
		MemPercent:    dev.MemPercent,
		Power:         PowerValue{Milliwatts: dev.PowerMilliwatts, Known: dev.PowerKnown},
	}

	// Usage rates supplement the board table with bandwidth and AICPU
	// figures; a failure here degrades nothing the board already gave us.
	rates, err := b.usage(ctx, dev.NPUID)
	if err != nil {
		b.log.Warn("usage query failed for NPU %d: %v", dev.NPUID, err)
		snap.Partial = true
	} else {
		record.BandwidthPercent = rates.BandwidthPercent
		record.BandwidthKnown = rates.BandwidthKnown
		record.AICPUPercent = rates.AICPUPercent
		record.AICPUKnown = rates.AICPUKnown
		if !record.AICoreKnown && rates.AICoreKnown {
			record.AICorePercent = rates.AICorePercent
			record.AICoreKnown = true
		}
		if !record.MemKnown && rates.MemoryKnown {
			record.MemPercent = float64(rates.MemoryPercent)
		}
	}

	// Dedicated queries backfill fields the board table left degraded.
	degraded := make([]string, 0, len(dev.Degraded))
	for _, field := range dev.Degraded {
		switch field {
		case "power":
			if mw, ok, err := b.source.Power(ctx, dev.NPUID); err == nil && ok {
				record.Power = PowerValue{Milliwatts: mw, Known: true}
				continue
			}
		case "temperature":
			if temp, ok, err := b.source.Temperature(ctx, dev.NPUID); err == nil && ok {
				record.TemperatureC = temp
				record.TempKnown = true
				continue
			}
		}
		degraded = append(degraded, field)
	}
	record.Degraded = degraded

	if limit, ok := power.EstimateLimit(dev.Model); ok {
		record.PowerLimit = PowerValue{Milliwatts: limit, Known: true, Estimated: true}
	}

	return record
}
