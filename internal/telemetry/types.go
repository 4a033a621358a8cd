// Package telemetry turns raw npu-smi reports into display-ready
// snapshots: it estimates missing power limits, reconciles device
// processes against the host process table, and caches results so the
// UI refresh cadence never hammers the driver.
package telemetry

import "time"

// PowerValue is a power reading or limit in milliwatts. Estimated marks
// values derived from model metadata rather than measured by the driver;
// the UI must label them as estimates.
type PowerValue struct {
	Milliwatts int64
	Known      bool
	Estimated  bool
}

// Watts returns the value in watts for display.
func (p PowerValue) Watts() float64 {
	return float64(p.Milliwatts) / 1000
}

// DeviceRecord is the display-ready state of one accelerator chip.
type DeviceRecord struct {
	Index  int
	NPUID  int
	ChipID int

	Model  string
	Health string
	BusID  string

	Power      PowerValue
	PowerLimit PowerValue

	TemperatureC int
	TempKnown    bool

	AICorePercent int
	AICoreKnown   bool

	MemUsedBytes  int64
	MemTotalBytes int64
	MemKnown      bool
	MemPercent    float64

	BandwidthPercent int
	BandwidthKnown   bool
	AICPUPercent     int
	AICPUKnown       bool

	// Degraded lists fields that could not be read this cycle. Rendered
	// as "N/A" per field; never fails the device.
	Degraded []string
}

// IsDegraded reports whether any field failed to parse this cycle.
func (d *DeviceRecord) IsDegraded() bool {
	return len(d.Degraded) > 0
}

// ProcessRecord is one compute process as seen by a device, enriched with
// host-side process details when the PID resolves locally.
type ProcessRecord struct {
	PID         int32
	DeviceIndex int
	Name        string

	// DeviceMemoryBytes is device memory held, as reported by npu-smi.
	DeviceMemoryBytes int64

	// Host-side enrichment. HostKnown is false when the PID does not
	// resolve on this host (e.g. a containerized namespace).
	Cmdline      string
	Username     string
	HostRSSBytes int64
	HostKnown    bool

	// Stale marks a process the device stopped reporting last cycle.
	// Stale records survive exactly one cycle and are then dropped.
	Stale bool
}

// Snapshot is one consistent view of all visible devices and their
// processes. The UI swaps whole snapshots, so a render never mixes data
// from different cycles.
type Snapshot struct {
	Taken time.Time
	Cycle uint64

	Devices   []DeviceRecord
	Processes []ProcessRecord

	// Partial marks a cycle where some per-device supplement failed or
	// rows were dropped; device identity data is still trustworthy.
	Partial bool
}

// Device returns the record with the given logical index, or nil.
func (s *Snapshot) Device(index int) *DeviceRecord {
	for i := range s.Devices {
		if s.Devices[i].Index == index {
			return &s.Devices[i]
		}
	}
	return nil
}

// ProcessesFor returns the processes attached to one device, preserving
// snapshot order.
func (s *Snapshot) ProcessesFor(index int) []ProcessRecord {
	var procs []ProcessRecord
	for _, p := range s.Processes {
		if p.DeviceIndex == index {
			procs = append(procs, p)
		}
	}
	return procs
}

// HostProcess is the host-side view of a PID.
type HostProcess struct {
	Cmdline  string
	Username string
	RSSBytes int64
}

// HostLookup resolves device-reported PIDs against the host process
// table. Implemented by internal/hostproc; faked in tests.
type HostLookup interface {
	Lookup(pid int32) (HostProcess, error)
}
