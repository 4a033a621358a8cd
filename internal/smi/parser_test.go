package smi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/npulab/nputop/internal/logger"
)

const boardHBM = `
+------------------------------------------------------------------------------------------------+
| npu-smi 23.0.2.1                 Version: 23.0.2.1                                             |
+---------------------------+---------------+----------------------------------------------------+
| NPU   Name                | Health        | Power(W)    Temp(C)           Hugepages-Usage(page)|
| Chip                      | Bus-Id        | AICore(%)   Memory-Usage(MB)  HBM-Usage(MB)        |
+===========================+===============+====================================================+
| 0     910B2C              | OK            | 88.6        51                0    / 0             |
| 0                         | 0000:5A:00.0  | 0           0    / 0          20701/ 65536         |
+===========================+===============+====================================================+
| 1     910B2C              | OK            | 99.6        50                0    / 0             |
| 0                         | 0000:19:00.0  | 0           0    / 0          20687/ 65536         |
+===========================+===============+====================================================+
+---------------------------+---------------+----------------------------------------------------+
| NPU     Chip              | Process id    | Process name             | Process memory(MB)      |
+===========================+===============+====================================================+
| 0       0                 | 124528        | python3.8                | 17400                   |
+---------------------------+---------------+----------------------------------------------------+
`

const boardNoHBM = `
+--------------------------------------------------------------------------------------------------------+
| npu-smi 23.0.0                                   Version: 23.0.0                                       |
+-------------------------------+-----------------+------------------------------------------------------+
| NPU     Name                  | Health          | Power(W)     Temp(C)           Hugepages-Usage(page) |
| Chip    Device                | Bus-Id          | AICore(%)    Memory-Usage(MB)                        |
+===============================+=================+======================================================+
| 0       310B4                 | Alarm           | 0.0          65                15    / 15            |
| 0       0                     | NA              | 0            3628 / 15609                            |
+===============================+=================+======================================================+
`

const boardPhyID = `
+------------------------------------------------------------------------------------------------+
| npu-smi 25.2.0                   Version: 25.2.0                                               |
+---------------------------+---------------+----------------------------------------------------+
| NPU   Name                | Health        | Power(W)    Temp(C)           Hugepages-Usage(page)|
| Chip  Phy-ID              | Bus-Id        | AICore(%)   Memory-Usage(MB)  HBM-Usage(MB)        |
+===========================+===============+====================================================+
| 0     Ascend910           | OK            | 162.8       37                0    / 0             |
| 0     0                   | 0000:9C:00.0  | 0           0    / 0          3133 / 65536         |
+------------------------------------------------------------------------------------------------+
| 0     Ascend910           | OK            | -           37                0    / 0             |
| 1     1                   | 0000:9E:00.0  | 0           0    / 0          2876 / 65536         |
+===========================+===============+====================================================+
| 1     Ascend910           | OK            | 167.1       38                0    / 0             |
| 0     2                   | 0000:37:00.0  | 0           0    / 0          3116 / 65536         |
+------------------------------------------------------------------------------------------------+
| 1     Ascend910           | OK            | -           38                0    / 0             |
| 1     3                   | 0000:39:00.0  | 0           0    / 0          10568/ 65536         |
+===========================+===============+====================================================+
+---------------------------+---------------+----------------------------------------------------+
| NPU     Chip              | Process id    | Process name             | Process memory(MB)      |
+===========================+===============+====================================================+
| No running processes found in NPU 0                                                            |
+===========================+===============+====================================================+
| 1       1                 | 990711        | python                   | 7746                    |
+===========================+===============+====================================================+
`

func TestParseBoard_HBMLayout(t *testing.T) {
	report, err := ParseBoard(boardHBM, logger.Noop())
	require.NoError(t, err)

	assert.Equal(t, LayoutHBMChip, report.Layout)
	assert.Equal(t, 0, report.SkippedRows)
	require.Len(t, report.Devices, 2)

	d0 := report.Devices[0]
	assert.Equal(t, 0, d0.Index)
	assert.Equal(t, 0, d0.NPUID)
	assert.Equal(t, 0, d0.ChipID)
	assert.Equal(t, "910B2C", d0.Model)
	assert.Equal(t, "OK", d0.Health)
	assert.Equal(t, "0000:5A:00.0", d0.BusID)
	assert.True(t, d0.PowerKnown)
	assert.Equal(t, int64(88600), d0.PowerMilliwatts)
	assert.True(t, d0.TempKnown)
	assert.Equal(t, 51, d0.TemperatureC)
	assert.True(t, d0.AICoreKnown)
	assert.Equal(t, 0, d0.AICorePercent)
	assert.True(t, d0.MemKnown)
	assert.Equal(t, int64(20701)*1024*1024, d0.MemUsedBytes)
	assert.Equal(t, int64(65536)*1024*1024, d0.MemTotalBytes)
	assert.InDelta(t, 31.6, d0.MemPercent, 0.001)
	assert.False(t, d0.IsDegraded())

	require.Len(t, d0.Processes, 1)
	assert.Equal(t, int32(124528), d0.Processes[0].PID)
	assert.Equal(t, "python3.8", d0.Processes[0].Name)
	assert.Equal(t, int64(17400)*1024*1024, d0.Processes[0].MemoryBytes)

	d1 := report.Devices[1]
	assert.Equal(t, 1, d1.Index)
	assert.Equal(t, int64(99600), d1.PowerMilliwatts)
	assert.Equal(t, 50, d1.TemperatureC)
	assert.Empty(t, d1.Processes)
}

func TestParseBoard_LegacyLayout(t *testing.T) {
	report, err := ParseBoard(boardNoHBM, logger.Noop())
	require.NoError(t, err)

	assert.Equal(t, LayoutLegacy, report.Layout)
	require.Len(t, report.Devices, 1)

	d := report.Devices[0]
	assert.Equal(t, "310B4", d.Model)
	assert.Equal(t, "Alarm", d.Health)
	assert.Equal(t, "NA", d.BusID)
	assert.True(t, d.PowerKnown)
	assert.Equal(t, int64(0), d.PowerMilliwatts)
	assert.Equal(t, 65, d.TemperatureC)
	assert.True(t, d.MemKnown)
	assert.Equal(t, int64(3628)*1024*1024, d.MemUsedBytes)
	assert.Equal(t, int64(15609)*1024*1024, d.MemTotalBytes)
	assert.InDelta(t, 23.2, d.MemPercent, 0.001)
	assert.Empty(t, d.Processes)
}

func TestParseBoard_PhyIDLayout(t *testing.T) {
	report, err := ParseBoard(boardPhyID, logger.Noop())
	require.NoError(t, err)

	assert.Equal(t, LayoutHBMPhy, report.Layout)
	require.Len(t, report.Devices, 4)

	// Logical indexes are assigned in enumeration order across NPUs.
	for i, dev := range report.Devices {
		assert.Equal(t, i, dev.Index)
		assert.Equal(t, "Ascend910", dev.Model)
		assert.Equal(t, "OK", dev.Health)
	}

	// Chip 0 of each NPU reports board power; secondary chips print "-".
	assert.True(t, report.Devices[0].PowerKnown)
	assert.Equal(t, int64(162800), report.Devices[0].PowerMilliwatts)
	assert.False(t, report.Devices[1].PowerKnown)
	assert.Contains(t, report.Devices[1].Degraded, "power")
	assert.True(t, report.Devices[2].PowerKnown)
	assert.Equal(t, int64(167100), report.Devices[2].PowerMilliwatts)
	assert.False(t, report.Devices[3].PowerKnown)

	assert.Equal(t, 1, report.Devices[3].NPUID)
	assert.Equal(t, 1, report.Devices[3].ChipID)
	assert.Equal(t, int64(10568)*1024*1024, report.Devices[3].MemUsedBytes)
	assert.InDelta(t, 16.1, report.Devices[3].MemPercent, 0.001)

	// The "No running processes" placeholder leaves NPU 0 empty; the
	// single real row lands on NPU 1 chip 1.
	assert.Empty(t, report.Devices[0].Processes)
	assert.Empty(t, report.Devices[1].Processes)
	assert.Empty(t, report.Devices[2].Processes)
	require.Len(t, report.Devices[3].Processes, 1)
	assert.Equal(t, int32(990711), report.Devices[3].Processes[0].PID)
	assert.Equal(t, "python", report.Devices[3].Processes[0].Name)
	assert.Equal(t, int64(7746)*1024*1024, report.Devices[3].Processes[0].MemoryBytes)
}

func TestParseBoard_UnrecognizedLayout(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty output", raw: ""},
		{name: "garbage output", raw: "command not found: npu-smi"},
		{
			name: "header without known columns",
			raw:  "| GPU   Name | Fan | Perf |\n| 0  Tesla | 30% | P0 |",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := ParseBoard(tt.raw, logger.Noop())
			require.Error(t, err)
			assert.Nil(t, report)
			assert.Contains(t, err.Error(), "unrecognized")
		})
	}
}

func TestParseBoard_MalformedIdentityRowSkipped(t *testing.T) {
	raw := `
| NPU   Name                | Health        | Power(W)    Temp(C)           Hugepages-Usage(page)|
| Chip                      | Bus-Id        | AICore(%)   Memory-Usage(MB)  HBM-Usage(MB)        |
+===========================+===============+====================================================+
| x     910B2C              | OK            | 88.6        51                0    / 0             |
| 0                         | 0000:5A:00.0  | 0           0    / 0          20701/ 65536         |
+===========================+===============+====================================================+
| 1     910B2C              | OK            | 99.6        50                0    / 0             |
| 0                         | 0000:19:00.0  | 0           0    / 0          20687/ 65536         |
`
	log := logger.NewBufferLogger()
	report, err := ParseBoard(raw, log)
	require.NoError(t, err)

	// The row with a non-numeric NPU id is dropped; the healthy row stays.
	assert.Equal(t, 1, report.SkippedRows)
	require.Len(t, report.Devices, 1)
	assert.Equal(t, 1, report.Devices[0].NPUID)
	assert.True(t, log.HasLevel("warn"))
}

func TestParseBoard_MissingOptionalFieldsDegrade(t *testing.T) {
	raw := `
| NPU   Name                | Health        | Power(W)    Temp(C)           Hugepages-Usage(page)|
| Chip                      | Bus-Id        | AICore(%)   Memory-Usage(MB)  HBM-Usage(MB)        |
+===========================+===============+====================================================+
| 0     910B2C              |               | NA                                                 |
| 0                         | 0000:5A:00.0  | 0           0    / 0          20701/ 65536         |
`
	report, err := ParseBoard(raw, logger.Noop())
	require.NoError(t, err)
	require.Len(t, report.Devices, 1)

	d := report.Devices[0]
	assert.True(t, d.IsDegraded())
	assert.Contains(t, d.Degraded, "health")
	assert.Contains(t, d.Degraded, "power")
	assert.Contains(t, d.Degraded, "temperature")
	assert.False(t, d.PowerKnown)
	assert.False(t, d.TempKnown)

	// Identity and memory survive intact.
	assert.Equal(t, "910B2C", d.Model)
	assert.True(t, d.MemKnown)
}

func TestParseUsage(t *testing.T) {
	raw := `
	NPU ID                         : 0
	Aicore Usage Rate(%)           : 25
	Aicpu Usage Rate(%)            : 2
	HBM Usage Rate(%)              : 47
	HBM Bandwidth Usage Rate(%)    : 12
`
	rates := ParseUsage(raw)
	assert.True(t, rates.AICoreKnown)
	assert.Equal(t, 25, rates.AICorePercent)
	assert.True(t, rates.MemoryKnown)
	assert.Equal(t, 47, rates.MemoryPercent)
	assert.True(t, rates.BandwidthKnown)
	assert.Equal(t, 12, rates.BandwidthPercent)
	assert.True(t, rates.AICPUKnown)
	assert.Equal(t, 2, rates.AICPUPercent)
}

func TestParseUsage_PartialOutput(t *testing.T) {
	rates := ParseUsage("Aicore Usage Rate(%) : 80\n")
	assert.True(t, rates.AICoreKnown)
	assert.Equal(t, 80, rates.AICorePercent)
	assert.False(t, rates.MemoryKnown)
	assert.False(t, rates.BandwidthKnown)
	assert.False(t, rates.AICPUKnown)
}

func TestParseTemperature(t *testing.T) {
	temp, ok := ParseTemperature("NPU Temperature (C) : 51\n")
	assert.True(t, ok)
	assert.Equal(t, 51, temp)

	_, ok = ParseTemperature("no temperature here")
	assert.False(t, ok)
}

func TestParsePower(t *testing.T) {
	mw, ok := ParsePower("Power(W) : 88\n")
	assert.True(t, ok)
	assert.Equal(t, int64(88000), mw)

	_, ok = ParsePower("")
	assert.False(t, ok)
}

func TestParsePowerWatts(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		wantMW int64
		wantOK bool
	}{
		{name: "fractional watts", input: "88.6", wantMW: 88600, wantOK: true},
		{name: "zero watts", input: "0.0", wantMW: 0, wantOK: true},
		{name: "dash placeholder", input: "-", wantOK: false},
		{name: "NA placeholder", input: "NA", wantOK: false},
		{name: "empty", input: "", wantOK: false},
		{name: "garbage", input: "watts", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw, ok := parsePowerWatts(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantMW, mw)
			}
		})
	}
}
