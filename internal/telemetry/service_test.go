package telemetry

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/npulab/nputop/internal/logger"
	"github.com/npulab/nputop/internal/smi"
)

func newTestService(source *fakeSource, ttl time.Duration) *Service {
	return NewService(source, nil, ttl, logger.Noop())
}

func TestService_SnapshotIsCached(t *testing.T) {
	source := &fakeSource{report: &smi.BoardReport{Devices: []smi.DeviceInfo{healthyDevice(0)}}}
	svc := newTestService(source, time.Minute)

	first, err := svc.Snapshot(context.Background())
	require.NoError(t, err)

	second, err := svc.Snapshot(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second, "a fresh snapshot must be reused")
	assert.Equal(t, 1, source.boardHits)
}

func TestService_RefreshBypassesTTL(t *testing.T) {
	source := &fakeSource{report: &smi.BoardReport{Devices: []smi.DeviceInfo{healthyDevice(0)}}}
	svc := newTestService(source, time.Hour)

	first, err := svc.Snapshot(context.Background())
	require.NoError(t, err)

	// Manual refresh must hit the hardware even with an hour-long TTL,
	// and yield a newer cycle than the cached snapshot.
	refreshed, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, source.boardHits)
	assert.Greater(t, refreshed.Cycle, first.Cycle)

	// The refreshed snapshot becomes the cached one.
	again, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Same(t, refreshed, again)
	assert.Equal(t, 2, source.boardHits)
}

func TestService_UsageQueriesAreCachedPerDevice(t *testing.T) {
	source := &fakeSource{
		report: &smi.BoardReport{Devices: []smi.DeviceInfo{healthyDevice(0), healthyDevice(1)}},
		usage: map[int]smi.UtilizationRates{
			0: {AICorePercent: 10, AICoreKnown: true},
			1: {AICorePercent: 20, AICoreKnown: true},
		},
	}
	svc := newTestService(source, time.Minute)

	_, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	hitsAfterBuild := source.usageHits
	assert.Equal(t, 2, hitsAfterBuild, "one usage query per device per build")

	// Detail-view polls reuse the entries the build just populated.
	rates, err := svc.Usage(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 20, rates.AICorePercent)
	assert.Equal(t, hitsAfterBuild, source.usageHits)
}

func TestService_LastSurvivesFailures(t *testing.T) {
	source := &fakeSource{report: &smi.BoardReport{Devices: []smi.DeviceInfo{healthyDevice(0)}}}
	svc := newTestService(source, time.Minute)

	_, ok := svc.Last()
	assert.False(t, ok, "no snapshot before the first build")

	snap, err := svc.Snapshot(context.Background())
	require.NoError(t, err)

	// The interface dies; Refresh fails but Last still serves the old view.
	source.boardErr = fmt.Errorf("driver unloaded")
	_, err = svc.Refresh(context.Background())
	require.Error(t, err)

	last, ok := svc.Last()
	require.True(t, ok)
	assert.Same(t, snap, last)
}

func TestService_FailedRefreshRetriesNextPoll(t *testing.T) {
	source := &fakeSource{boardErr: fmt.Errorf("driver unloaded")}
	svc := newTestService(source, time.Minute)

	_, err := svc.Snapshot(context.Background())
	require.Error(t, err)

	// Failures are not cached: the interface coming back is observed on
	// the very next poll.
	source.boardErr = nil
	source.report = &smi.BoardReport{Devices: []smi.DeviceInfo{healthyDevice(0)}}
	snap, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Devices, 1)
}
