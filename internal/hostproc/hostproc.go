// Package hostproc resolves device-reported PIDs against the host
// process table and delivers termination signals. It is the only part of
// the codebase that touches OS process state.
package hostproc

import (
	stderrors "errors"
	"fmt"
	"strings"
	"syscall"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/npulab/nputop/internal/errors"
	"github.com/npulab/nputop/internal/logger"
	"github.com/npulab/nputop/internal/telemetry"
)

// ErrNotFound reports a PID with no matching host process. Devices can
// report PIDs from other namespaces, so this is an expected outcome.
var ErrNotFound = stderrors.New("process not found on host")

// IsNotFound reports whether err means the PID does not exist here.
func IsNotFound(err error) bool {
	return stderrors.Is(err, ErrNotFound)
}

// signaler delivers a signal to a PID. Swappable in tests.
type signaler func(pid int32, sig syscall.Signal) error

// Manager implements PID lookup and termination against the local OS.
type Manager struct {
	log    logger.Logger
	signal signaler
}

// New creates a process manager.
func New(log logger.Logger) *Manager {
	if log == nil {
		log = logger.Noop()
	}
	return &Manager{log: log, signal: defaultSignal}
}

func defaultSignal(pid int32, sig syscall.Signal) error {
	proc, err := process.NewProcess(pid)
	if err != nil {
		return err
	}
	return proc.SendSignal(sig)
}

// Lookup resolves a PID into host-side process details. Fields that
// cannot be read (e.g. another user's cmdline) are left empty rather
// than failing the lookup.
func (m *Manager) Lookup(pid int32) (telemetry.HostProcess, error) {
	proc, err := process.NewProcess(pid)
	if err != nil {
		return telemetry.HostProcess{}, fmt.Errorf("%w: pid %d", ErrNotFound, pid)
	}

	host := telemetry.HostProcess{}
	if cmdline, err := proc.Cmdline(); err == nil {
		host.Cmdline = cmdline
	}
	if username, err := proc.Username(); err == nil {
		host.Username = username
	}
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		host.RSSBytes = int64(mem.RSS)
	}
	return host, nil
}

// Terminate sends SIGTERM to the process.
func (m *Manager) Terminate(pid int32) error {
	return m.deliver(pid, syscall.SIGTERM)
}

// Kill sends SIGKILL to the process. Reserved for processes that ignore
// SIGTERM; the UI requires a separate keypress for it.
func (m *Manager) Kill(pid int32) error {
	return m.deliver(pid, syscall.SIGKILL)
}

func (m *Manager) deliver(pid int32, sig syscall.Signal) error {
	m.log.Info("sending %v to pid %d", sig, pid)
	err := m.signal(pid, sig)
	if err == nil {
		return nil
	}
	return classifySignalError(pid, err)
}

// classifySignalError maps OS failures onto the outcomes the UI handles:
// permission denials and vanished processes. Anything else is passed
// through as a generic exec failure.
func classifySignalError(pid int32, err error) error {
	switch {
	case stderrors.Is(err, syscall.EPERM):
		return errors.WrapWithCode(err, errors.ErrPermission,
			fmt.Sprintf("not permitted to signal process %d", pid),
			"Re-run as the process owner or with elevated privileges")
	case stderrors.Is(err, syscall.ESRCH),
		stderrors.Is(err, process.ErrorProcessNotRunning),
		strings.Contains(err.Error(), "process does not exist"):
		return fmt.Errorf("%w: pid %d", ErrNotFound, pid)
	default:
		return errors.Wrap(err, fmt.Sprintf("failed to signal process %d", pid))
	}
}
