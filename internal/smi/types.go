// Package smi runs the npu-smi utility and parses its textual output into
// structured device and process records. Parsing is tolerant: missing
// optional fields degrade individual records instead of failing the whole
// report, and only unrecognized layouts or missing identity fields are
// treated as errors.
package smi

// Layout identifies which npu-smi table variant produced a report.
// Driver generations print different second-header columns, so the parser
// dispatches on the most specific recognizable layout first.
type Layout string

const (
	// LayoutHBMPhy is the multi-chip table with a Phy-ID column and an
	// HBM-Usage(MB) column (Ascend 910 with multiple chips per NPU).
	LayoutHBMPhy Layout = "hbm-phy"

	// LayoutHBMChip is the table with a bare Chip column and an
	// HBM-Usage(MB) column (910B-series boards).
	LayoutHBMChip Layout = "hbm-chip"

	// LayoutLegacy is the oldest table with a Chip/Device column and only
	// Memory-Usage(MB), no HBM column (310-series boards).
	LayoutLegacy Layout = "legacy"
)

// DeviceInfo is one accelerator chip parsed from the npu-smi board table.
// Index is the logical enumeration order across all chip rows; NPUID and
// ChipID preserve the hardware addressing reported by the driver.
type DeviceInfo struct {
	Index  int
	NPUID  int
	ChipID int

	Model  string
	Health string
	BusID  string

	// Power is reported by npu-smi in watts with one decimal; stored in
	// milliwatts. PowerKnown is false when the driver prints "-" for
	// secondary chips that share a board power rail.
	PowerMilliwatts int64
	PowerKnown      bool

	TemperatureC int
	TempKnown    bool

	AICorePercent int
	AICoreKnown   bool

	// Memory is HBM when the layout has an HBM column, otherwise the
	// generic Memory-Usage column. Reported in MB, stored in bytes.
	MemUsedBytes  int64
	MemTotalBytes int64
	MemKnown      bool

	// MemPercent is used/total rounded to one decimal place.
	MemPercent float64

	// Degraded lists the optional fields that could not be parsed for
	// this chip (e.g. "power", "temperature").
	Degraded []string

	Processes []ProcessInfo
}

// IsDegraded reports whether any optional field failed to parse.
func (d *DeviceInfo) IsDegraded() bool {
	return len(d.Degraded) > 0
}

// ProcessInfo is one row of the npu-smi process table, attached to the
// device it runs on. MemoryBytes is device memory, reported in MB.
type ProcessInfo struct {
	PID         int32
	Name        string
	MemoryBytes int64
}

// BoardReport is the parsed result of one full `npu-smi info` invocation.
type BoardReport struct {
	Layout  Layout
	Devices []DeviceInfo

	// SkippedRows counts chip rows dropped because identity fields
	// (NPU id, chip id, model) could not be parsed.
	SkippedRows int
}

// UtilizationRates holds the per-device `npu-smi info -t usages` fields.
// Each value carries a Known flag because older drivers omit rates.
type UtilizationRates struct {
	AICorePercent    int
	AICoreKnown      bool
	MemoryPercent    int
	MemoryKnown      bool
	BandwidthPercent int
	BandwidthKnown   bool
	AICPUPercent     int
	AICPUKnown       bool
}
