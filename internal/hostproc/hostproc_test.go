package hostproc

import (
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/npulab/nputop/internal/errors"
	"github.com/npulab/nputop/internal/logger"
)

func TestLookup_Self(t *testing.T) {
	m := New(logger.Noop())

	host, err := m.Lookup(int32(os.Getpid()))
	require.NoError(t, err)

	// Our own process must resolve with a command line and RSS.
	assert.NotEmpty(t, host.Cmdline)
	assert.Greater(t, host.RSSBytes, int64(0))
}

func TestLookup_NonexistentPID(t *testing.T) {
	m := New(logger.Noop())

	// PIDs near the kernel maximum are effectively never allocated.
	_, err := m.Lookup(1<<31 - 2)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestTerminate_SignalDelivery(t *testing.T) {
	var gotPID int32
	var gotSig syscall.Signal
	m := New(logger.Noop())
	m.signal = func(pid int32, sig syscall.Signal) error {
		gotPID = pid
		gotSig = sig
		return nil
	}

	require.NoError(t, m.Terminate(4321))
	assert.Equal(t, int32(4321), gotPID)
	assert.Equal(t, syscall.SIGTERM, gotSig)

	require.NoError(t, m.Kill(4321))
	assert.Equal(t, syscall.SIGKILL, gotSig)
}

func TestTerminate_ErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		signalErr  error
		wantPerm   bool
		wantMissed bool
	}{
		{
			name:      "EPERM maps to permission denied",
			signalErr: syscall.EPERM,
			wantPerm:  true,
		},
		{
			name:       "ESRCH maps to not found",
			signalErr:  syscall.ESRCH,
			wantMissed: true,
		},
		{
			name:      "other errors pass through as exec failures",
			signalErr: syscall.EINVAL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(logger.Noop())
			m.signal = func(pid int32, sig syscall.Signal) error {
				return tt.signalErr
			}

			err := m.Terminate(999)
			require.Error(t, err)
			assert.Equal(t, tt.wantPerm, errors.IsCode(err, errors.ErrPermission))
			assert.Equal(t, tt.wantMissed, IsNotFound(err))
		})
	}
}

func TestTerminate_NonexistentProcess(t *testing.T) {
	m := New(logger.Noop())

	err := m.Terminate(1<<31 - 2)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}
