package monitor

import tea "github.com/charmbracelet/bubbletea"

// Key bindings as constants for consistency.
const (
	KeyQuit        = "q"
	KeyQuitAlt     = "ctrl+c"
	KeyRefresh     = "r"
	KeyCycleSort   = "s"
	KeyCompact     = "c"
	KeySelectPrev  = "up"
	KeySelectPrevK = "k"
	KeySelectNext  = "down"
	KeySelectNextJ = "j"
	KeySelectFirst = "home"
	KeySelectLast  = "end"
	KeySwitchPanel = "tab"
	KeyExpand      = "enter"
	KeyCollapse    = "esc"
	KeyTerminate   = "t"
	KeyKill        = "K"
	KeyConfirm     = "y"
	KeyCancel      = "n"
	KeyToggleHelp  = "?"
)

// HandleKeyMsg processes keyboard input and returns updated model state
// and command. Returns true if the key was handled.
func (m *Model) HandleKeyMsg(msg tea.KeyMsg) (bool, tea.Cmd) {
	key := msg.String()

	// A pending terminate confirmation captures all input.
	if m.confirm != nil {
		switch key {
		case KeyConfirm:
			pending := *m.confirm
			m.confirm = nil
			m.terminating[pending.pid] = true
			return true, m.terminateCmd(pending.pid, pending.force)
		case KeyCancel, KeyCollapse, KeyQuit:
			m.confirm = nil
			return true, nil
		}
		return true, nil
	}

	// Help toggle takes priority.
	if key == KeyToggleHelp {
		m.showHelp = !m.showHelp
		return true, nil
	}

	// If help is showing, Esc closes it.
	if m.showHelp && key == KeyCollapse {
		m.showHelp = false
		return true, nil
	}

	// Esc clears transient notices and the startup error overlay.
	if key == KeyCollapse && (len(m.notices) > 0 || (m.snapshot == nil && m.lastErr != nil && !m.errDismissed)) {
		m.notices = nil
		m.errDismissed = true
		return true, nil
	}

	// Detail view: Esc returns to the list.
	if m.viewMode == ViewDetail && key == KeyCollapse {
		m.viewMode = ViewList
		m.focus = FocusDevices
		return true, nil
	}

	switch key {
	case KeyQuit, KeyQuitAlt:
		m.quitting = true
		return true, tea.Quit

	case KeyRefresh:
		if m.refreshing {
			return true, nil
		}
		m.refreshing = true
		return true, m.collectCmd(true)

	case KeyCycleSort:
		m.sortOrder = m.sortOrder.Next()
		m.applySort()
		return true, nil

	case KeyCompact:
		m.SetCompact(!m.compact)
		return true, nil

	case KeySwitchPanel:
		if m.focus == FocusDevices {
			m.focus = FocusProcesses
		} else {
			m.focus = FocusDevices
		}
		return true, nil

	case KeySelectPrev, KeySelectPrevK:
		if m.focus == FocusProcesses {
			if m.procSelected > 0 {
				m.procSelected--
			}
			return true, nil
		}
		if m.selected > 0 {
			m.selected--
			if m.viewMode == ViewDetail {
				m.syncViewport()
			}
		}
		return true, nil

	case KeySelectNext, KeySelectNextJ:
		if m.focus == FocusProcesses {
			if m.procSelected < len(m.visibleProcesses())-1 {
				m.procSelected++
			}
			return true, nil
		}
		if m.selected < len(m.devices)-1 {
			m.selected++
			if m.viewMode == ViewDetail {
				m.syncViewport()
			}
		}
		return true, nil

	case KeySelectFirst:
		if m.focus == FocusProcesses {
			m.procSelected = 0
		} else {
			m.selected = 0
		}
		return true, nil

	case KeySelectLast:
		if m.focus == FocusProcesses {
			if n := len(m.visibleProcesses()); n > 0 {
				m.procSelected = n - 1
			}
		} else if len(m.devices) > 0 {
			m.selected = len(m.devices) - 1
		}
		return true, nil

	case KeyExpand:
		if m.viewMode == ViewList && len(m.devices) > 0 {
			m.viewMode = ViewDetail
			m.syncViewport()
		}
		return true, nil

	case KeyCollapse:
		m.viewMode = ViewList
		m.focus = FocusDevices
		return true, nil

	case KeyTerminate:
		return true, m.requestTerminate(false)

	case KeyKill:
		return true, m.requestTerminate(true)
	}

	return false, nil
}

// requestTerminate opens the confirmation prompt for the selected
// process, if any.
func (m *Model) requestTerminate(force bool) tea.Cmd {
	proc := m.SelectedProcess()
	if proc == nil {
		return m.pushNotice("no process selected", noticeInfo)
	}
	if proc.Stale {
		return m.pushNotice("process already exited", noticeInfo)
	}
	if m.terminating[proc.PID] {
		return nil
	}

	name := proc.Name
	if name == "" {
		name = proc.Cmdline
	}
	m.confirm = &pendingTerminate{pid: proc.PID, name: name, force: force}
	return nil
}
