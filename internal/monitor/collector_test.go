package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/npulab/nputop/internal/telemetry"
)

// fakeSource is a canned SnapshotSource for tests.
type fakeSource struct {
	snap *telemetry.Snapshot
	err  error

	snapshotCalls int
	refreshCalls  int
}

func (f *fakeSource) Snapshot(ctx context.Context) (*telemetry.Snapshot, error) {
	f.snapshotCalls++
	return f.snap, f.err
}

func (f *fakeSource) Refresh(ctx context.Context) (*telemetry.Snapshot, error) {
	f.refreshCalls++
	return f.snap, f.err
}

func (f *fakeSource) Last() (*telemetry.Snapshot, bool) {
	if f.err != nil || f.snap == nil {
		return nil, false
	}
	return f.snap, true
}

// fakeKiller records delivered signals.
type fakeKiller struct {
	terminated []int32
	killed     []int32
	err        error
}

func (f *fakeKiller) Terminate(pid int32) error {
	f.terminated = append(f.terminated, pid)
	return f.err
}

func (f *fakeKiller) Kill(pid int32) error {
	f.killed = append(f.killed, pid)
	return f.err
}

// testSnapshot builds a two-device snapshot with one attached process.
func testSnapshot() *telemetry.Snapshot {
	return &telemetry.Snapshot{
		Taken: time.Now(),
		Cycle: 1,
		Devices: []telemetry.DeviceRecord{
			{
				Index:         0,
				NPUID:         0,
				Model:         "910B2C",
				Health:        "OK",
				Power:         telemetry.PowerValue{Milliwatts: 88600, Known: true},
				PowerLimit:    telemetry.PowerValue{Milliwatts: 384000, Known: true, Estimated: true},
				TemperatureC:  46,
				TempKnown:     true,
				AICorePercent: 25,
				AICoreKnown:   true,
				MemUsedBytes:  20701 * 1024 * 1024,
				MemTotalBytes: 65536 * 1024 * 1024,
				MemKnown:      true,
				MemPercent:    31.6,
			},
			{
				Index:         1,
				NPUID:         1,
				Model:         "910B2C",
				Health:        "OK",
				Power:         telemetry.PowerValue{Milliwatts: 92400, Known: true},
				PowerLimit:    telemetry.PowerValue{Milliwatts: 384000, Known: true, Estimated: true},
				TemperatureC:  51,
				TempKnown:     true,
				AICorePercent: 80,
				AICoreKnown:   true,
				MemUsedBytes:  40000 * 1024 * 1024,
				MemTotalBytes: 65536 * 1024 * 1024,
				MemKnown:      true,
				MemPercent:    61.0,
			},
		},
		Processes: []telemetry.ProcessRecord{
			{
				PID:               12074,
				DeviceIndex:       1,
				Name:              "python3.9",
				DeviceMemoryBytes: 108 * 1024 * 1024,
				Cmdline:           "python3.9 train.py",
				Username:          "mluser",
				HostRSSBytes:      2 * 1024 * 1024 * 1024,
				HostKnown:         true,
			},
		},
	}
}

func newTestCollector(source *fakeSource, killer *fakeKiller) *Collector {
	return NewCollector(source, killer, nil)
}

func TestCollector_Collect(t *testing.T) {
	source := &fakeSource{snap: testSnapshot()}
	c := newTestCollector(source, &fakeKiller{})

	res := c.Collect(context.Background())

	require.NoError(t, res.Err)
	require.NotNil(t, res.Snapshot)
	assert.Len(t, res.Snapshot.Devices, 2)
	assert.Equal(t, 1, source.snapshotCalls)
	assert.Equal(t, 0, source.refreshCalls)
}

func TestCollector_Refresh(t *testing.T) {
	source := &fakeSource{snap: testSnapshot()}
	c := newTestCollector(source, &fakeKiller{})

	res := c.Refresh(context.Background())

	require.NoError(t, res.Err)
	assert.Equal(t, 1, source.refreshCalls)
	assert.Equal(t, 0, source.snapshotCalls)
}

func TestCollector_CollectError(t *testing.T) {
	source := &fakeSource{err: assert.AnError}
	c := newTestCollector(source, &fakeKiller{})

	res := c.Collect(context.Background())

	assert.Error(t, res.Err)
	assert.Nil(t, res.Snapshot)
}

func TestCollector_Last(t *testing.T) {
	snap := testSnapshot()
	source := &fakeSource{snap: snap}
	c := newTestCollector(source, &fakeKiller{})

	got, ok := c.Last()
	require.True(t, ok)
	assert.Same(t, snap, got)
}

func TestCollector_Terminate(t *testing.T) {
	killer := &fakeKiller{}
	c := newTestCollector(&fakeSource{}, killer)

	require.NoError(t, c.Terminate(123, false))
	require.NoError(t, c.Terminate(456, true))

	assert.Equal(t, []int32{123}, killer.terminated)
	assert.Equal(t, []int32{456}, killer.killed)
}

func TestCollector_SetTimeout(t *testing.T) {
	c := newTestCollector(&fakeSource{snap: testSnapshot()}, &fakeKiller{})

	c.SetTimeout(5 * time.Second)
	assert.Equal(t, 5*time.Second, c.timeout)

	// Non-positive values keep the current timeout.
	c.SetTimeout(0)
	assert.Equal(t, 5*time.Second, c.timeout)
}
