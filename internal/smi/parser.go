package smi

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/npulab/nputop/internal/errors"
	"github.com/npulab/nputop/internal/logger"
)

// fractionRE matches "used / total" pairs like "20701/ 65536" or "3628 / 15609".
var fractionRE = regexp.MustCompile(`(\d+)\s*/\s*(\d+)`)

// noProcsRE matches the placeholder row npu-smi prints for idle devices.
var noProcsRE = regexp.MustCompile(`No running processes found in NPU\s+(\d+)`)

// ParseBoard parses the full `npu-smi info` board table into device records.
//
// The table variant is detected from the second header line, most specific
// first: Phy-ID with HBM, Chip with HBM, then the legacy Memory-only
// layout. Unrecognized layouts return an ErrParse error; individual chip
// rows with unparsable identity fields are dropped and counted, and
// missing optional fields only degrade the affected record.
func ParseBoard(raw string, log logger.Logger) (*BoardReport, error) {
	if log == nil {
		log = logger.Noop()
	}

	lines := strings.Split(raw, "\n")

	layout, bodyStart := detectLayout(lines)
	if layout == "" {
		return nil, errors.New(errors.ErrParse,
			"unrecognized npu-smi output layout",
			"Run with NPUTOP_DEBUG=1 to capture the raw output and report it")
	}

	report := &BoardReport{Layout: layout}

	// Chip rows come in pairs: an NPU line then a Chip line. The device
	// table ends at the process-table header or at end of output.
	procStart := len(lines)
	var pending []string
	for i := bodyStart; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" || strings.HasPrefix(line, "+") {
			continue
		}
		if strings.Contains(line, "Process id") {
			procStart = i + 1
			break
		}
		if !strings.HasPrefix(line, "|") {
			continue
		}
		pending = append(pending, line)
		if len(pending) == 2 {
			dev, ok := parseChipRows(layout, pending[0], pending[1], log)
			if ok {
				dev.Index = len(report.Devices)
				report.Devices = append(report.Devices, dev)
			} else {
				report.SkippedRows++
			}
			pending = pending[:0]
		}
	}
	if len(pending) == 1 {
		log.Warn("npu-smi board table ended mid-row, dropping trailing line")
		report.SkippedRows++
	}

	parseProcessTable(lines[procStart:], report, log)

	return report, nil
}

// detectLayout scans for the two-line table header and returns the layout
// plus the index of the first line after the header separator.
func detectLayout(lines []string) (Layout, int) {
	for i := 0; i < len(lines)-1; i++ {
		first := lines[i]
		if !strings.Contains(first, "NPU") || !strings.Contains(first, "Health") {
			continue
		}
		second := lines[i+1]
		switch {
		case strings.Contains(second, "Phy-ID") && strings.Contains(second, "HBM-Usage"):
			return LayoutHBMPhy, i + 2
		case strings.Contains(second, "HBM-Usage"):
			return LayoutHBMChip, i + 2
		case strings.Contains(second, "Memory-Usage"):
			return LayoutLegacy, i + 2
		}
	}
	return "", 0
}

// parseChipRows parses one NPU-line/Chip-line pair. Returns ok=false when
// identity fields cannot be recovered; optional field failures are
// recorded in Degraded instead.
func parseChipRows(layout Layout, npuLine, chipLine string, log logger.Logger) (DeviceInfo, bool) {
	dev := DeviceInfo{}

	npuCells := splitRow(npuLine)
	chipCells := splitRow(chipLine)
	if len(npuCells) < 3 || len(chipCells) < 3 {
		log.Warn("malformed npu-smi chip row: %q", npuLine)
		return dev, false
	}

	// Identity: NPU id + model from the first cell of the NPU line, chip
	// id from the first cell of the Chip line.
	idFields := strings.Fields(npuCells[0])
	if len(idFields) < 2 {
		log.Warn("npu-smi row missing NPU id or model: %q", npuCells[0])
		return dev, false
	}
	npuID, err := strconv.Atoi(idFields[0])
	if err != nil {
		log.Warn("npu-smi row has non-numeric NPU id %q", idFields[0])
		return dev, false
	}
	dev.NPUID = npuID
	dev.Model = idFields[1]

	chipFields := strings.Fields(chipCells[0])
	if len(chipFields) < 1 {
		log.Warn("npu-smi row missing chip id: %q", chipCells[0])
		return dev, false
	}
	chipID, err := strconv.Atoi(chipFields[0])
	if err != nil {
		log.Warn("npu-smi row has non-numeric chip id %q", chipFields[0])
		return dev, false
	}
	dev.ChipID = chipID

	// Optional fields from here on.
	dev.Health = strings.TrimSpace(npuCells[1])
	if dev.Health == "" {
		dev.Degraded = append(dev.Degraded, "health")
	}

	dev.BusID = strings.TrimSpace(chipCells[1])
	if dev.BusID == "" {
		dev.Degraded = append(dev.Degraded, "bus-id")
	}

	// Power(W) and Temp(C) are the first two tokens of the third cell;
	// the trailing Hugepages fraction is ignored.
	statFields := strings.Fields(npuCells[2])
	if len(statFields) >= 1 {
		if mw, ok := parsePowerWatts(statFields[0]); ok {
			dev.PowerMilliwatts = mw
			dev.PowerKnown = true
		} else {
			dev.Degraded = append(dev.Degraded, "power")
		}
	} else {
		dev.Degraded = append(dev.Degraded, "power")
	}
	if len(statFields) >= 2 {
		if temp, err := strconv.Atoi(statFields[1]); err == nil {
			dev.TemperatureC = temp
			dev.TempKnown = true
		} else {
			dev.Degraded = append(dev.Degraded, "temperature")
		}
	} else {
		dev.Degraded = append(dev.Degraded, "temperature")
	}

	// AICore(%) is the first token of the chip line's third cell; memory
	// fractions follow. HBM layouts print Memory-Usage first and HBM
	// second, so the last fraction is always the one to report.
	usageCell := chipCells[2]
	usageFields := strings.Fields(usageCell)
	if len(usageFields) >= 1 {
		if aicore, err := strconv.Atoi(usageFields[0]); err == nil {
			dev.AICorePercent = aicore
			dev.AICoreKnown = true
		} else {
			dev.Degraded = append(dev.Degraded, "aicore")
		}
	} else {
		dev.Degraded = append(dev.Degraded, "aicore")
	}

	fractions := fractionRE.FindAllStringSubmatch(usageCell, -1)
	if len(fractions) > 0 {
		last := fractions[len(fractions)-1]
		used, _ := strconv.ParseInt(last[1], 10, 64)
		total, _ := strconv.ParseInt(last[2], 10, 64)
		dev.MemUsedBytes = used * 1024 * 1024
		dev.MemTotalBytes = total * 1024 * 1024
		dev.MemKnown = true
		if total > 0 {
			dev.MemPercent = math.Round(float64(used)/float64(total)*1000) / 10
		}
	} else {
		dev.Degraded = append(dev.Degraded, "memory")
	}

	return dev, true
}

// parseProcessTable attaches process rows to their devices by (NPU id,
// chip id). Rows it cannot parse are logged and skipped.
func parseProcessTable(lines []string, report *BoardReport, log logger.Logger) {
	byAddr := make(map[[2]int]*DeviceInfo, len(report.Devices))
	for i := range report.Devices {
		d := &report.Devices[i]
		byAddr[[2]int{d.NPUID, d.ChipID}] = d
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "+") || !strings.HasPrefix(line, "|") {
			continue
		}
		if noProcsRE.MatchString(line) {
			continue
		}

		cells := splitRow(line)
		if len(cells) < 4 {
			continue
		}
		addrFields := strings.Fields(cells[0])
		if len(addrFields) < 2 {
			continue
		}
		npuID, err1 := strconv.Atoi(addrFields[0])
		chipID, err2 := strconv.Atoi(addrFields[1])
		pid, err3 := strconv.ParseInt(strings.TrimSpace(cells[1]), 10, 32)
		memMB, err4 := strconv.ParseInt(strings.TrimSpace(cells[3]), 10, 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			log.Warn("skipping malformed npu-smi process row: %q", line)
			continue
		}

		dev, found := byAddr[[2]int{npuID, chipID}]
		if !found {
			log.Warn("process row references unknown device NPU %d chip %d", npuID, chipID)
			continue
		}
		dev.Processes = append(dev.Processes, ProcessInfo{
			PID:         int32(pid),
			Name:        strings.TrimSpace(cells[2]),
			MemoryBytes: memMB * 1024 * 1024,
		})
	}
}

// splitRow splits a "|"-delimited table row into trimmed cells, dropping
// the empty leading and trailing segments.
func splitRow(line string) []string {
	parts := strings.Split(strings.Trim(strings.TrimSpace(line), "|"), "|")
	cells := make([]string, 0, len(parts))
	for _, p := range parts {
		cells = append(cells, strings.TrimSpace(p))
	}
	return cells
}

// parsePowerWatts converts the Power(W) column to milliwatts. The driver
// prints "-" for chips that share a power rail with chip 0.
func parsePowerWatts(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" || strings.EqualFold(s, "NA") || strings.EqualFold(s, "N/A") {
		return 0, false
	}
	watts, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return int64(math.Round(watts * 1000)), true
}

// Per-field regexes for the single-device `npu-smi info -t <field>` queries.
var (
	tempRE      = regexp.MustCompile(`(?i)NPU Temperature \(C\)\s*:\s*(\d+)`)
	powerRE     = regexp.MustCompile(`(?i)Power\(W\)\s*:\s*(\d+)`)
	aicoreRE    = regexp.MustCompile(`(?i)Aicore Usage Rate\(%\)\s*:\s*(\d+)`)
	hbmRateRE   = regexp.MustCompile(`(?i)HBM Usage Rate\(%\)\s*:\s*(\d+)`)
	bandwidthRE = regexp.MustCompile(`(?i)HBM Bandwidth Usage Rate\(%\)\s*:\s*(\d+)`)
	aicpuRE     = regexp.MustCompile(`(?i)Aicpu Usage Rate\(%\)\s*:\s*(\d+)`)
)

// ParseUsage parses `npu-smi info -t usages -i N` output. Fields the
// driver does not report stay unknown rather than zero.
func ParseUsage(raw string) UtilizationRates {
	rates := UtilizationRates{}
	if m := aicoreRE.FindStringSubmatch(raw); m != nil {
		rates.AICorePercent, _ = strconv.Atoi(m[1])
		rates.AICoreKnown = true
	}
	if m := hbmRateRE.FindStringSubmatch(raw); m != nil {
		rates.MemoryPercent, _ = strconv.Atoi(m[1])
		rates.MemoryKnown = true
	}
	if m := bandwidthRE.FindStringSubmatch(raw); m != nil {
		rates.BandwidthPercent, _ = strconv.Atoi(m[1])
		rates.BandwidthKnown = true
	}
	if m := aicpuRE.FindStringSubmatch(raw); m != nil {
		rates.AICPUPercent, _ = strconv.Atoi(m[1])
		rates.AICPUKnown = true
	}
	return rates
}

// ParseTemperature parses `npu-smi info -t temp -i N` output.
func ParseTemperature(raw string) (int, bool) {
	if m := tempRE.FindStringSubmatch(raw); m != nil {
		temp, _ := strconv.Atoi(m[1])
		return temp, true
	}
	return 0, false
}

// ParsePower parses `npu-smi info -t power -i N` output into milliwatts.
func ParsePower(raw string) (int64, bool) {
	if m := powerRE.FindStringSubmatch(raw); m != nil {
		watts, _ := strconv.ParseInt(m[1], 10, 64)
		return watts * 1000, true
	}
	return 0, false
}
